// Package dbtest provides SQLite-backed databases for repository tests.
package dbtest

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"

	"tenant-storage-core/backend/internal/db"
)

var seq atomic.Int64

// Open returns a fresh in-memory SQLite database with the schema applied.
// The database is closed when the test ends.
func Open(t testing.TB) *sqlx.DB {
	t.Helper()
	name := fmt.Sprintf("file:dbtest_%d_%d?mode=memory&cache=shared&_foreign_keys=on", time.Now().UnixNano(), seq.Add(1))
	conn, err := db.Open("sqlite://" + name)
	if err != nil {
		t.Fatalf("dbtest: open: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	if _, err := conn.Exec(db.SQLiteSchema); err != nil {
		t.Fatalf("dbtest: schema: %v", err)
	}
	return conn
}

// SeedUser inserts a user row so that audit and membership foreign keys resolve.
func SeedUser(t testing.TB, conn *sqlx.DB, id, email string) {
	t.Helper()
	now := time.Now().UTC()
	_, err := conn.Exec(conn.Rebind(`INSERT INTO users (id, email, full_name, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`),
		id, email, "", now, now)
	if err != nil {
		t.Fatalf("dbtest: seed user %s: %v", id, err)
	}
}

// SeedOrg inserts an organization row with the given status.
func SeedOrg(t testing.TB, conn *sqlx.DB, id, name, status string) {
	t.Helper()
	now := time.Now().UTC()
	_, err := conn.Exec(conn.Rebind(`INSERT INTO organizations (id, name, status, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`),
		id, name, status, now, now)
	if err != nil {
		t.Fatalf("dbtest: seed org %s: %v", id, err)
	}
}
