// Package database holds the SQLite setup and schema migrations of the question bank.
package database

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// Migration represents a database migration
type Migration struct {
	Version int
	Name    string
	SQL     string
}

// GetMigrations returns all available migrations in order
func GetMigrations() []Migration {
	return []Migration{
		{
			Version: 1,
			Name:    "create_resources_and_questions",
			SQL: `
				CREATE TABLE IF NOT EXISTS resources (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					name TEXT NOT NULL UNIQUE,
					path TEXT NOT NULL,
					chunks INTEGER NOT NULL DEFAULT 0,
					created_at TEXT NOT NULL
				);

				CREATE TABLE IF NOT EXISTS questions (
					id TEXT PRIMARY KEY,
					resource_id INTEGER NOT NULL,
					type TEXT NOT NULL,
					question TEXT NOT NULL,
					category TEXT NOT NULL,
					level TEXT NOT NULL,
					created_at TEXT NOT NULL,
					FOREIGN KEY (resource_id) REFERENCES resources (id) ON DELETE CASCADE
				);

				CREATE TABLE IF NOT EXISTS multiple_choice_questions (
					question_id TEXT PRIMARY KEY,
					option_a TEXT NOT NULL,
					option_b TEXT NOT NULL,
					option_c TEXT NOT NULL,
					option_d TEXT NOT NULL,
					correct_answer TEXT NOT NULL CHECK (correct_answer IN ('A', 'B', 'C', 'D')),
					FOREIGN KEY (question_id) REFERENCES questions (id) ON DELETE CASCADE
				);

				CREATE TABLE IF NOT EXISTS true_false_questions (
					question_id TEXT PRIMARY KEY,
					correct_answer INTEGER NOT NULL CHECK (correct_answer IN (0, 1)),
					FOREIGN KEY (question_id) REFERENCES questions (id) ON DELETE CASCADE
				);

				CREATE TABLE IF NOT EXISTS fill_blank_questions (
					question_id TEXT PRIMARY KEY,
					correct_answer TEXT NOT NULL,
					FOREIGN KEY (question_id) REFERENCES questions (id) ON DELETE CASCADE
				);

				CREATE INDEX IF NOT EXISTS idx_questions_resource ON questions (resource_id);
				CREATE INDEX IF NOT EXISTS idx_questions_type_level ON questions (type, level);
			`,
		},
		{
			Version: 2,
			Name:    "create_generation_runs",
			SQL: `
				-- One row per successful quiz composition
				CREATE TABLE IF NOT EXISTS generation_runs (
					id TEXT PRIMARY KEY,
					resource_id INTEGER NOT NULL,
					quiz_type TEXT NOT NULL,
					level TEXT NOT NULL,
					requested INTEGER NOT NULL,
					produced INTEGER NOT NULL,
					attempts INTEGER NOT NULL,
					total_tokens INTEGER NOT NULL DEFAULT 0,
					created_at TEXT NOT NULL,
					FOREIGN KEY (resource_id) REFERENCES resources (id) ON DELETE CASCADE
				);

				ALTER TABLE questions ADD COLUMN run_id TEXT REFERENCES generation_runs (id);
				CREATE INDEX IF NOT EXISTS idx_questions_run ON questions (run_id);
			`,
		},
	}
}

// RunMigrations executes all pending migrations
func RunMigrations(db *sql.DB) error {
	if err := ensureMigrationsTable(db); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	currentVersion, err := CurrentVersion(db)
	if err != nil {
		return fmt.Errorf("failed to get current version: %w", err)
	}

	for _, migration := range GetMigrations() {
		if migration.Version <= currentVersion {
			continue // Already applied
		}

		if err := runMigration(db, migration); err != nil {
			return fmt.Errorf("failed to run migration %d (%s): %w", migration.Version, migration.Name, err)
		}
	}

	return nil
}

func ensureMigrationsTable(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);
	`)
	return err
}

// CurrentVersion returns the highest applied migration version.
func CurrentVersion(db *sql.DB) (int, error) {
	var version int
	err := db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&version)
	return version, err
}

func runMigration(db *sql.DB, migration Migration) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(migration.SQL); err != nil {
		return err
	}

	if _, err := tx.Exec(
		"INSERT INTO schema_migrations (version, name) VALUES (?, ?)",
		migration.Version, migration.Name,
	); err != nil {
		return err
	}

	return tx.Commit()
}

// Open opens the SQLite database at path and brings its schema up to date.
func Open(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := ConfigureDatabase(db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// ConfigureDatabase applies SQLite settings and runs migrations
func ConfigureDatabase(db *sql.DB) error {
	// Pragmas are per connection, so the pool is pinned to one.
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to apply pragma '%s': %w", pragma, err)
		}
	}

	if err := RunMigrations(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}
