package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// DB is the global database connection
var DB *sql.DB

// Config holds database configuration
type Config struct {
	Path string
}

// Open initializes the database connection and runs migrations
func Open(cfg Config) error {
	// Ensure directory exists
	dir := filepath.Dir(cfg.Path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("failed to create database directory: %w", err)
	}

	var err error
	DB, err = sql.Open("sqlite", cfg.Path+"?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)")
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	// Test connection
	if err := DB.Ping(); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	// Run migrations
	if err := migrate(); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// Close closes the database connection
func Close() error {
	if DB != nil {
		return DB.Close()
	}
	return nil
}

// migrate runs all database migrations
func migrate() error {
	// Create migrations table
	_, err := DB.Exec(`
		CREATE TABLE IF NOT EXISTS migrations (
			id INTEGER PRIMARY KEY,
			name TEXT NOT NULL UNIQUE,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return err
	}

	// Run each migration
	for _, m := range migrations {
		if err := runMigration(m); err != nil {
			return fmt.Errorf("migration %s failed: %w", m.name, err)
		}
	}

	return nil
}

type migration struct {
	name string
	up   string
}

func runMigration(m migration) error {
	// Check if already applied
	var count int
	err := DB.QueryRow("SELECT COUNT(*) FROM migrations WHERE name = ?", m.name).Scan(&count)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil // Already applied
	}

	// Run migration
	if _, err := DB.Exec(m.up); err != nil {
		return err
	}

	// Record migration
	_, err = DB.Exec("INSERT INTO migrations (name) VALUES (?)", m.name)
	return err
}

var migrations = []migration{
	{
		name: "001_create_users",
		up: `
			CREATE TABLE users (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				username TEXT NOT NULL UNIQUE,
				display_name TEXT NOT NULL,
				email TEXT,
				password_hash TEXT,
				role TEXT NOT NULL DEFAULT 'student',
				disabled INTEGER NOT NULL DEFAULT 0,
				created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
				updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
				last_login DATETIME
			);
			CREATE INDEX idx_users_username ON users(username);
		`,
	},
	{
		name: "002_create_sessions",
		up: `
			CREATE TABLE sessions (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				user_id INTEGER NOT NULL,
				token_hash TEXT NOT NULL UNIQUE,
				started_at DATETIME DEFAULT CURRENT_TIMESTAMP,
				last_activity DATETIME DEFAULT CURRENT_TIMESTAMP,
				ip_address TEXT,
				user_agent TEXT,
				FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
			);
			CREATE INDEX idx_sessions_token_hash ON sessions(token_hash);
			CREATE INDEX idx_sessions_user_id ON sessions(user_id);
			CREATE INDEX idx_sessions_last_activity ON sessions(last_activity);
		`,
	},
	{
		name: "003_create_qr_tokens",
		up: `
			CREATE TABLE qr_tokens (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				token_hash TEXT NOT NULL UNIQUE,
				created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
				expires_at DATETIME NOT NULL,
				bound_user_id INTEGER,
				used INTEGER NOT NULL DEFAULT 0,
				used_at DATETIME,
				origin_ip TEXT,
				origin_agent TEXT,
				FOREIGN KEY (bound_user_id) REFERENCES users(id) ON DELETE SET NULL
			);
			CREATE INDEX idx_qr_tokens_token_hash ON qr_tokens(token_hash);
			CREATE INDEX idx_qr_tokens_expires_at ON qr_tokens(expires_at);
		`,
	},
	{
		name: "004_create_badges",
		up: `
			CREATE TABLE badges (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				slug TEXT NOT NULL UNIQUE,
				name TEXT NOT NULL,
				description TEXT,
				icon TEXT,
				system INTEGER NOT NULL DEFAULT 0,
				created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
				updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
			);
			CREATE INDEX idx_badges_slug ON badges(slug);

			CREATE TABLE badge_awards (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				badge_id INTEGER NOT NULL,
				user_id INTEGER NOT NULL,
				awarded_by INTEGER,
				note TEXT,
				created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
				UNIQUE (user_id, badge_id),
				FOREIGN KEY (badge_id) REFERENCES badges(id) ON DELETE CASCADE,
				FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE,
				FOREIGN KEY (awarded_by) REFERENCES users(id) ON DELETE SET NULL
			);
			CREATE INDEX idx_badge_awards_user_id ON badge_awards(user_id);

			-- System badges granted by first-time events
			INSERT INTO badges (slug, name, description, system) VALUES
				('welcome', 'Welcome!', 'Logged in to the portal for the first time', 1),
				('communication', 'First Contact', 'Sent a first message', 1);
		`,
	},
	{
		name: "005_create_messages",
		up: `
			CREATE TABLE messages (
				id TEXT PRIMARY KEY,
				sender_id INTEGER NOT NULL,
				recipient_id INTEGER NOT NULL,
				kind TEXT NOT NULL DEFAULT 'text',
				body TEXT,
				file_path TEXT,
				created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
				read_at DATETIME,
				FOREIGN KEY (sender_id) REFERENCES users(id) ON DELETE CASCADE,
				FOREIGN KEY (recipient_id) REFERENCES users(id) ON DELETE CASCADE
			);
			CREATE INDEX idx_messages_recipient_id ON messages(recipient_id);
			CREATE INDEX idx_messages_sender_id ON messages(sender_id);
		`,
	},
	{
		name: "006_create_audit_logs",
		up: `
			CREATE TABLE audit_logs (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				timestamp DATETIME DEFAULT CURRENT_TIMESTAMP,
				user_id INTEGER,
				username TEXT,
				action TEXT NOT NULL,
				target TEXT,
				details TEXT,
				ip_address TEXT,
				FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE SET NULL
			);
			CREATE INDEX idx_audit_logs_timestamp ON audit_logs(timestamp);
			CREATE INDEX idx_audit_logs_action ON audit_logs(action);
		`,
	},
	{
		name: "007_create_settings",
		up: `
			CREATE TABLE settings (
				key TEXT PRIMARY KEY,
				value TEXT NOT NULL,
				updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
			);
			-- Default settings
			INSERT INTO settings (key, value) VALUES
				('session.idle_minutes', '30'),
				('session.max_per_user', '5'),
				('qr.ttl_seconds', '300');
		`,
	},
}
