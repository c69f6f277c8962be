// Package config loads and validates app config from env and an optional .env file using Viper.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"tenant-storage-core/backend/internal/pii"
	"tenant-storage-core/backend/internal/storage/backend"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	// GRPCAddr is the address the gRPC server listens on (e.g. :8080).
	GRPCAddr string `mapstructure:"GRPC_ADDR"`
	// DatabaseURL is the DSN; postgres:// for production, sqlite:// for local runs.
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	// Env is the application environment (e.g. "development", "production").
	Env string `mapstructure:"APP_ENV"`

	// JWTPublicKey is the PEM-encoded public key or path to file used to verify access tokens.
	// Empty disables token authentication; every caller is then anonymous.
	JWTPublicKey string `mapstructure:"JWT_PUBLIC_KEY"`
	JWTIssuer    string `mapstructure:"JWT_ISSUER"`
	JWTAudience  string `mapstructure:"JWT_AUDIENCE"`

	LogLevel  string `mapstructure:"LOG_LEVEL"`
	LogFormat string `mapstructure:"LOG_FORMAT"`

	// OTLP endpoint for traces and metrics. Empty disables export.
	OTelEndpoint    string `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	OTelInsecure    bool   `mapstructure:"OTEL_EXPORTER_OTLP_INSECURE"`
	OTelServiceName string `mapstructure:"OTEL_SERVICE_NAME"`

	// StorageProvider selects the blob backend: memory, local, s3 or azure.
	StorageProvider      string `mapstructure:"STORAGE_PROVIDER"`
	StorageBucket        string `mapstructure:"STORAGE_BUCKET"`
	StorageLocalRoot     string `mapstructure:"STORAGE_LOCAL_ROOT"`
	StorageSigningKey    string `mapstructure:"STORAGE_SIGNING_KEY"`
	StoragePublicBaseURL string `mapstructure:"STORAGE_PUBLIC_BASE_URL"`
	S3Region             string `mapstructure:"S3_REGION"`
	S3Endpoint           string `mapstructure:"S3_ENDPOINT"`
	S3AccessKeyID        string `mapstructure:"S3_ACCESS_KEY_ID"`
	S3SecretAccessKey    string `mapstructure:"S3_SECRET_ACCESS_KEY"`
	AzureAccountName     string `mapstructure:"AZURE_ACCOUNT_NAME"`
	AzureAccountKey      string `mapstructure:"AZURE_ACCOUNT_KEY"`
	AzureServiceURL      string `mapstructure:"AZURE_SERVICE_URL"`

	MaxUploadBytes int64 `mapstructure:"MAX_UPLOAD_BYTES"`
	// DeniedUploadExtensions is a comma-separated list such as ".exe,.bat".
	DeniedUploadExtensions string `mapstructure:"DENIED_UPLOAD_EXTENSIONS"`
	// SignedURLTTLRaw is the signed URL lifetime (e.g. "1h").
	SignedURLTTLRaw  string `mapstructure:"SIGNED_URL_TTL"`
	MaxPathDepth     int    `mapstructure:"MAX_PATH_DEPTH"`
	UsageStatsStrict bool   `mapstructure:"USAGE_STATS_STRICT"`

	// Comma-separated field names checked against the PII manifests at startup.
	PIIFieldNames          string `mapstructure:"PII_FIELD_NAMES"`
	PIIAmbiguousFieldNames string `mapstructure:"PII_AMBIGUOUS_FIELD_NAMES"`
}

// Load reads .env (if present), then builds and validates Config from the environment via Viper.
// Missing .env is ignored (e.g. in CI). Env vars override .env. Returns an error if any field is invalid.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()

	v.SetDefault("GRPC_ADDR", ":8080")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("APP_ENV", "")
	v.SetDefault("JWT_PUBLIC_KEY", "")
	v.SetDefault("JWT_ISSUER", "tsc-auth")
	v.SetDefault("JWT_AUDIENCE", "tsc-api")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
	v.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	v.SetDefault("OTEL_EXPORTER_OTLP_INSECURE", false)
	v.SetDefault("OTEL_SERVICE_NAME", "tenant-storage-core")
	v.SetDefault("STORAGE_PROVIDER", "memory")
	for _, k := range []string{
		"STORAGE_BUCKET", "STORAGE_LOCAL_ROOT", "STORAGE_SIGNING_KEY", "STORAGE_PUBLIC_BASE_URL",
		"S3_REGION", "S3_ENDPOINT", "S3_ACCESS_KEY_ID", "S3_SECRET_ACCESS_KEY",
		"AZURE_ACCOUNT_NAME", "AZURE_ACCOUNT_KEY", "AZURE_SERVICE_URL",
	} {
		v.SetDefault(k, "")
	}
	v.SetDefault("MAX_UPLOAD_BYTES", 50<<20)
	v.SetDefault("DENIED_UPLOAD_EXTENSIONS", ".exe,.bat,.cmd,.com,.scr,.pif")
	v.SetDefault("SIGNED_URL_TTL", "1h")
	v.SetDefault("MAX_PATH_DEPTH", 10)
	v.SetDefault("USAGE_STATS_STRICT", false)
	v.SetDefault("PII_FIELD_NAMES", strings.Join(pii.DefaultPolicy.Known, ","))
	v.SetDefault("PII_AMBIGUOUS_FIELD_NAMES", strings.Join(pii.DefaultPolicy.Ambiguous, ","))

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks field values and provider requirements.
func (c *Config) Validate() error {
	if c.GRPCAddr == "" {
		return errors.New("config: GRPC_ADDR must be set")
	}
	switch strings.ToLower(c.LogFormat) {
	case "json", "logfmt", "console":
	default:
		return fmt.Errorf("config: LOG_FORMAT must be json, logfmt or console, got %q", c.LogFormat)
	}
	if c.MaxUploadBytes <= 0 {
		return errors.New("config: MAX_UPLOAD_BYTES must be positive")
	}
	if c.MaxPathDepth < 1 || c.MaxPathDepth > 64 {
		return errors.New("config: MAX_PATH_DEPTH must be between 1 and 64")
	}
	if d, err := time.ParseDuration(c.SignedURLTTLRaw); err != nil || d <= 0 {
		return fmt.Errorf("config: SIGNED_URL_TTL must be a positive duration, got %q", c.SignedURLTTLRaw)
	}
	switch c.StorageProvider {
	case "memory":
	case "local":
		if c.StorageLocalRoot == "" || c.StorageSigningKey == "" {
			return errors.New("config: STORAGE_LOCAL_ROOT and STORAGE_SIGNING_KEY are required for the local provider")
		}
	case "s3", "azure":
		if c.StorageBucket == "" {
			return fmt.Errorf("config: STORAGE_BUCKET is required for the %s provider", c.StorageProvider)
		}
	default:
		return fmt.Errorf("config: unknown STORAGE_PROVIDER %q", c.StorageProvider)
	}
	return nil
}

// SignedURLTTL parses SignedURLTTLRaw. Returns 1h if unset or invalid.
func (c *Config) SignedURLTTL() time.Duration {
	d, err := time.ParseDuration(c.SignedURLTTLRaw)
	if err != nil || d <= 0 {
		return time.Hour
	}
	return d
}

// DeniedExtensions returns the configured denied upload extensions.
func (c *Config) DeniedExtensions() []string {
	return splitList(c.DeniedUploadExtensions)
}

// PIIPolicy returns the field-name lists for the startup manifest check.
func (c *Config) PIIPolicy() pii.Policy {
	return pii.Policy{
		Known:     splitList(c.PIIFieldNames),
		Ambiguous: splitList(c.PIIAmbiguousFieldNames),
	}
}

// Backend returns the blob backend settings.
func (c *Config) Backend() backend.Config {
	return backend.Config{
		Provider:          c.StorageProvider,
		Bucket:            c.StorageBucket,
		LocalRoot:         c.StorageLocalRoot,
		SigningKey:        c.StorageSigningKey,
		PublicBaseURL:     c.StoragePublicBaseURL,
		S3Region:          c.S3Region,
		S3Endpoint:        c.S3Endpoint,
		S3AccessKeyID:     c.S3AccessKeyID,
		S3SecretAccessKey: c.S3SecretAccessKey,
		AzureAccountName:  c.AzureAccountName,
		AzureAccountKey:   c.AzureAccountKey,
		AzureServiceURL:   c.AzureServiceURL,
	}
}

// splitList splits a comma-separated value, dropping empty entries.
func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
