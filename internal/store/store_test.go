// ABOUTME: Tests for SQLite store initialization and schema migrations.
// ABOUTME: Verifies database setup, table creation and reset.

package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/2389/pluginadmin/internal/wire"
)

func TestNewStore_CreatesDatabase(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "pluginadmin.db")

	s, err := New(dbPath)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer s.Close()

	tables := []string{"schema_migrations", "plugins", "parameters", "request_logs"}
	for _, table := range tables {
		var name string
		err := s.db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		if err != nil {
			t.Errorf("table %s not found: %v", table, err)
		}
	}

	version, err := s.getCurrentMigrationVersion()
	if err != nil {
		t.Fatalf("getCurrentMigrationVersion() error = %v", err)
	}
	if version != CurrentSchemaVersion {
		t.Errorf("schema version = %d, want %d", version, CurrentSchemaVersion)
	}
}

func TestNewStore_ReopenKeepsData(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "pluginadmin.db")

	s, err := New(dbPath)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if _, err := s.CreatePlugin(context.Background(), wire.Plugin{Name: "p1", URL: "http://x"}); err != nil {
		t.Fatalf("CreatePlugin() error = %v", err)
	}
	s.Close()

	s, err = New(dbPath)
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	defer s.Close()

	if _, err := s.GetPlugin(context.Background(), "p1"); err != nil {
		t.Errorf("GetPlugin() after reopen error = %v", err)
	}
}

func TestStore_Reset(t *testing.T) {
	s := setupTestDB(t)
	defer s.Close()
	ctx := context.Background()

	if _, err := s.CreatePlugin(ctx, wire.Plugin{Name: "p1", URL: "u", Parameters: []wire.Parameter{{Key: "k", Type: "string"}}}); err != nil {
		t.Fatalf("CreatePlugin() error = %v", err)
	}
	if err := s.LogRequest(&RequestLog{Method: "GET", Path: "/plugins"}); err != nil {
		t.Fatalf("LogRequest() error = %v", err)
	}

	if err := s.Reset(); err != nil {
		t.Fatalf("Reset() error = %v", err)
	}
	n, err := s.CountPlugins(ctx)
	if err != nil {
		t.Fatalf("CountPlugins() error = %v", err)
	}
	if n != 0 {
		t.Errorf("CountPlugins() = %d after reset", n)
	}
	var params int
	s.db.QueryRow("SELECT COUNT(*) FROM parameters").Scan(&params)
	if params != 0 {
		t.Errorf("parameters left after reset: %d", params)
	}
}
