package migrate

import (
	"io/fs"
	"strings"
	"testing"

	"tenant-storage-core/backend/internal/db"
)

func TestRun_EmptyDSN(t *testing.T) {
	err := Run("", Up)
	if err == nil {
		t.Fatal("Run with empty DSN should return error")
	}
	if !strings.Contains(err.Error(), "DATABASE_URL is not set") {
		t.Errorf("error = %q, want mention of DATABASE_URL", err.Error())
	}
}

func TestRun_SQLiteRejected(t *testing.T) {
	if err := Run("sqlite://file:x?mode=memory", Up); err == nil {
		t.Fatal("Run with sqlite DSN should return error")
	}
}

func TestParseDirection(t *testing.T) {
	for _, ok := range []string{"up", "down"} {
		if _, err := ParseDirection(ok); err != nil {
			t.Errorf("ParseDirection(%q): %v", ok, err)
		}
	}
	for _, bad := range []string{"", "UP", "Up", "left", "both"} {
		if _, err := ParseDirection(bad); err == nil {
			t.Errorf("ParseDirection(%q) should fail", bad)
		}
	}
}

func TestToMigrateURL(t *testing.T) {
	testCases := map[string]string{
		"pgx://u:p@h/db":      "postgres://u:p@h/db",
		"pgx5://u:p@h/db":     "postgres://u:p@h/db",
		"postgres://u:p@h/db": "postgres://u:p@h/db",
	}
	for in, want := range testCases {
		if got := toMigrateURL(in); got != want {
			t.Errorf("toMigrateURL(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestMigrationFS_PairsUpAndDown(t *testing.T) {
	entries, err := fs.ReadDir(db.MigrationFS, "migrations")
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	ups, downs := 0, 0
	for _, e := range entries {
		switch {
		case strings.HasSuffix(e.Name(), ".up.sql"):
			ups++
		case strings.HasSuffix(e.Name(), ".down.sql"):
			downs++
		}
	}
	if ups == 0 || ups != downs {
		t.Errorf("up migrations = %d, down migrations = %d; want equal and non-zero", ups, downs)
	}
}
