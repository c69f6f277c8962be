package config

import (
	"strings"
	"testing"
	"time"
)

var keys = []string{
	"GRPC_ADDR", "DATABASE_URL", "APP_ENV", "JWT_PUBLIC_KEY", "JWT_ISSUER", "JWT_AUDIENCE",
	"LOG_LEVEL", "LOG_FORMAT", "OTEL_EXPORTER_OTLP_ENDPOINT", "OTEL_EXPORTER_OTLP_INSECURE",
	"OTEL_SERVICE_NAME", "STORAGE_PROVIDER", "STORAGE_BUCKET", "STORAGE_LOCAL_ROOT",
	"STORAGE_SIGNING_KEY", "STORAGE_PUBLIC_BASE_URL", "S3_REGION", "S3_ENDPOINT",
	"S3_ACCESS_KEY_ID", "S3_SECRET_ACCESS_KEY", "AZURE_ACCOUNT_NAME", "AZURE_ACCOUNT_KEY",
	"AZURE_SERVICE_URL", "MAX_UPLOAD_BYTES", "DENIED_UPLOAD_EXTENSIONS", "SIGNED_URL_TTL",
	"MAX_PATH_DEPTH", "USAGE_STATS_STRICT", "PII_FIELD_NAMES", "PII_AMBIGUOUS_FIELD_NAMES",
}

// clearEnv blanks every key Load reads; Viper treats empty variables as unset.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range keys {
		t.Setenv(k, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.GRPCAddr != ":8080" {
		t.Errorf("GRPCAddr = %q, want %q", cfg.GRPCAddr, ":8080")
	}
	if cfg.JWTIssuer != "tsc-auth" {
		t.Errorf("JWTIssuer = %q, want %q", cfg.JWTIssuer, "tsc-auth")
	}
	if cfg.JWTAudience != "tsc-api" {
		t.Errorf("JWTAudience = %q, want %q", cfg.JWTAudience, "tsc-api")
	}
	if cfg.LogFormat != "json" || cfg.LogLevel != "info" {
		t.Errorf("log = %q/%q, want info/json", cfg.LogLevel, cfg.LogFormat)
	}
	if cfg.StorageProvider != "memory" {
		t.Errorf("StorageProvider = %q, want memory", cfg.StorageProvider)
	}
	if cfg.MaxUploadBytes != 50<<20 {
		t.Errorf("MaxUploadBytes = %d, want %d", cfg.MaxUploadBytes, 50<<20)
	}
	if cfg.MaxPathDepth != 10 {
		t.Errorf("MaxPathDepth = %d, want 10", cfg.MaxPathDepth)
	}
	if cfg.SignedURLTTL() != time.Hour {
		t.Errorf("SignedURLTTL = %v, want 1h", cfg.SignedURLTTL())
	}
	if cfg.UsageStatsStrict {
		t.Error("UsageStatsStrict should default to false")
	}
	if got := strings.Join(cfg.DeniedExtensions(), ","); got != ".exe,.bat,.cmd,.com,.scr,.pif" {
		t.Errorf("DeniedExtensions = %q", got)
	}
	policy := cfg.PIIPolicy()
	if len(policy.Known) != 17 || policy.Known[0] != "email" {
		t.Errorf("PIIPolicy().Known = %v", policy.Known)
	}
	if len(policy.Ambiguous) != 5 {
		t.Errorf("PIIPolicy().Ambiguous = %v", policy.Ambiguous)
	}
}

func TestLoad_EnvVarOverride(t *testing.T) {
	clearEnv(t)
	t.Setenv("GRPC_ADDR", ":9090")
	t.Setenv("JWT_ISSUER", "custom-issuer")
	t.Setenv("MAX_UPLOAD_BYTES", "1024")
	t.Setenv("SIGNED_URL_TTL", "90s")
	t.Setenv("USAGE_STATS_STRICT", "true")
	t.Setenv("DENIED_UPLOAD_EXTENSIONS", " .sh , ,.ps1")
	t.Setenv("PII_FIELD_NAMES", "email,phone")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.GRPCAddr != ":9090" {
		t.Errorf("GRPCAddr = %q, want :9090", cfg.GRPCAddr)
	}
	if cfg.JWTIssuer != "custom-issuer" {
		t.Errorf("JWTIssuer = %q, want custom-issuer", cfg.JWTIssuer)
	}
	if cfg.MaxUploadBytes != 1024 {
		t.Errorf("MaxUploadBytes = %d, want 1024", cfg.MaxUploadBytes)
	}
	if cfg.SignedURLTTL() != 90*time.Second {
		t.Errorf("SignedURLTTL = %v, want 90s", cfg.SignedURLTTL())
	}
	if !cfg.UsageStatsStrict {
		t.Error("UsageStatsStrict should be true")
	}
	if got := strings.Join(cfg.DeniedExtensions(), ","); got != ".sh,.ps1" {
		t.Errorf("DeniedExtensions = %q, want .sh,.ps1", got)
	}
	if got := cfg.PIIPolicy().Known; len(got) != 2 {
		t.Errorf("PIIPolicy().Known = %v", got)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"log format", map[string]string{"LOG_FORMAT": "xml"}, "LOG_FORMAT"},
		{"upload ceiling", map[string]string{"MAX_UPLOAD_BYTES": "-1"}, "MAX_UPLOAD_BYTES"},
		{"depth too small", map[string]string{"MAX_PATH_DEPTH": "-3"}, "MAX_PATH_DEPTH"},
		{"depth too large", map[string]string{"MAX_PATH_DEPTH": "65"}, "MAX_PATH_DEPTH"},
		{"ttl", map[string]string{"SIGNED_URL_TTL": "soon"}, "SIGNED_URL_TTL"},
		{"unknown provider", map[string]string{"STORAGE_PROVIDER": "gcs"}, "STORAGE_PROVIDER"},
		{"s3 without bucket", map[string]string{"STORAGE_PROVIDER": "s3"}, "STORAGE_BUCKET"},
		{"azure without container", map[string]string{"STORAGE_PROVIDER": "azure"}, "STORAGE_BUCKET"},
		{"local without root", map[string]string{"STORAGE_PROVIDER": "local", "STORAGE_SIGNING_KEY": "k"}, "STORAGE_LOCAL_ROOT"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			if err == nil {
				t.Fatal("Load: expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %s", err, tt.want)
			}
		})
	}
}

func TestBackend_CopiesProviderSettings(t *testing.T) {
	cfg := &Config{
		StorageProvider:   "s3",
		StorageBucket:     "files",
		S3Region:          "eu-west-1",
		S3Endpoint:        "http://localhost:9000",
		AzureAccountName:  "acct",
		StorageSigningKey: "k",
	}
	b := cfg.Backend()
	if b.Provider != "s3" || b.Bucket != "files" || b.S3Region != "eu-west-1" || b.S3Endpoint != "http://localhost:9000" {
		t.Errorf("Backend() = %+v", b)
	}
	if b.AzureAccountName != "acct" || b.SigningKey != "k" {
		t.Errorf("Backend() = %+v", b)
	}
}

func TestSignedURLTTL_FallsBack(t *testing.T) {
	c := &Config{SignedURLTTLRaw: "bad"}
	if c.SignedURLTTL() != time.Hour {
		t.Errorf("SignedURLTTL = %v, want 1h", c.SignedURLTTL())
	}
}
