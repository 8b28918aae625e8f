// ABOUTME: Core SQLite store for the plugin repository server.
// ABOUTME: Handles database initialization, migrations, and connection management.

package store

import (
	"database/sql"
	"errors"
	"fmt"
	"log"

	"github.com/mattn/go-sqlite3"
)

// Migration version constants
const (
	MigrationV1 = 1 // Plugins and parameters tables
	MigrationV2 = 2 // Request logs table and indexes
)

// CurrentSchemaVersion is the target version for the database schema
const CurrentSchemaVersion = MigrationV2

var (
	// ErrNotFound is returned when an addressed plugin does not exist.
	ErrNotFound = errors.New("plugin not found")
	// ErrConflict is returned when a plugin name is already taken.
	ErrConflict = errors.New("plugin already exists")
)

type Store struct {
	db *sql.DB
}

func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	// Verify connection works
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Every connection to :memory: is a separate database
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(5)
	}
	db.SetConnMaxLifetime(0) // Connections don't expire

	// Enable foreign keys and WAL mode
	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, err
		}
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Reset deletes every plugin and request log.
func (s *Store) Reset() error {
	for _, stmt := range []string{
		"DELETE FROM parameters",
		"DELETE FROM plugins",
		"DELETE FROM request_logs",
	} {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("reset: %w", err)
		}
	}
	return nil
}

// migrate runs all pending migrations
func (s *Store) migrate() error {
	// Create schema_migrations table if it doesn't exist
	if err := s.createMigrationsTable(); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	currentVersion, err := s.getCurrentMigrationVersion()
	if err != nil {
		return fmt.Errorf("failed to get current migration version: %w", err)
	}

	log.Printf("Database schema version: %d, target version: %d", currentVersion, CurrentSchemaVersion)

	// Run migrations in order
	if currentVersion < MigrationV1 {
		if err := s.migrateV1(); err != nil {
			return fmt.Errorf("migration v1 failed: %w", err)
		}
	}

	if currentVersion < MigrationV2 {
		if err := s.migrateV2(); err != nil {
			return fmt.Errorf("migration v2 failed: %w", err)
		}
	}

	return nil
}

// createMigrationsTable creates the schema_migrations tracking table
func (s *Store) createMigrationsTable() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			description TEXT
		)
	`)
	return err
}

// getCurrentMigrationVersion retrieves the current schema version
func (s *Store) getCurrentMigrationVersion() (int, error) {
	var version int
	err := s.db.QueryRow(`
		SELECT COALESCE(MAX(version), 0) FROM schema_migrations
	`).Scan(&version)
	if err != nil {
		return 0, err
	}
	return version, nil
}

// recordMigration records a completed migration
func (s *Store) recordMigration(version int, description string) error {
	_, err := s.db.Exec(`
		INSERT INTO schema_migrations (version, description)
		VALUES (?, ?)
	`, version, description)
	return err
}

// migrateV1 creates the plugins and parameters tables
func (s *Store) migrateV1() error {
	schema := `
	CREATE TABLE IF NOT EXISTS plugins (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL UNIQUE,
		url TEXT NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS parameters (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		plugin_id INTEGER NOT NULL REFERENCES plugins(id) ON DELETE CASCADE,
		position INTEGER NOT NULL,
		parameter_key TEXT NOT NULL,
		parameter_type TEXT NOT NULL,
		default_value TEXT,
		is_mandatory INTEGER NOT NULL DEFAULT 0,
		is_read_only INTEGER NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_parameters_plugin ON parameters(plugin_id, position);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return err
	}

	if err := s.recordMigration(MigrationV1, "Create plugins and parameters tables"); err != nil {
		return err
	}

	log.Printf("Applied migration v%d: Create plugins and parameters tables", MigrationV1)
	return nil
}

// migrateV2 creates the request_logs table and indexes
func (s *Store) migrateV2() error {
	schema := `
	CREATE TABLE IF NOT EXISTS request_logs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		timestamp TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		plugin_name TEXT DEFAULT '',
		method TEXT NOT NULL,
		path TEXT NOT NULL,
		status_code INTEGER,
		duration_ms INTEGER,
		ip_address TEXT,
		user_agent TEXT,
		request_body TEXT,
		response_body TEXT,
		error TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_request_logs_timestamp ON request_logs(timestamp DESC);
	CREATE INDEX IF NOT EXISTS idx_request_logs_plugin_timestamp ON request_logs(plugin_name, timestamp DESC);
	CREATE INDEX IF NOT EXISTS idx_request_logs_plugin_method_status ON request_logs(plugin_name, method, status_code);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return err
	}

	if err := s.recordMigration(MigrationV2, "Create request_logs table and indexes"); err != nil {
		return err
	}

	log.Printf("Applied migration v%d: Create request_logs table and indexes", MigrationV2)
	return nil
}

// isUniqueViolation reports whether err is a SQLite UNIQUE constraint failure.
func isUniqueViolation(err error) bool {
	var se sqlite3.Error
	return errors.As(err, &se) && se.ExtendedCode == sqlite3.ErrConstraintUnique
}
