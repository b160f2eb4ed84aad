package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

const dbFile = ".trail/trail.db"

// Store wraps the local database holding progress, notes, settings, the
// card graph, and the durable offline queue. It is restart-durable and
// safe for concurrent use across processes via an OS file lock.
type Store struct {
	conn    *sql.DB
	baseDir string
}

// Open opens an existing database and runs any pending migrations.
func Open(baseDir string) (*Store, error) {
	dbPath := filepath.Join(baseDir, dbFile)

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("database not found: run 'trail init' first")
	}

	conn, err := openConn(dbPath)
	if err != nil {
		return nil, err
	}

	s := &Store{conn: conn, baseDir: baseDir}
	if _, err := s.RunMigrations(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return s, nil
}

// Initialize creates the database, applies the schema, and runs migrations.
func Initialize(baseDir string) (*Store, error) {
	dbPath := filepath.Join(baseDir, dbFile)

	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	conn, err := openConn(dbPath)
	if err != nil {
		return nil, err
	}

	if _, err := conn.Exec(schema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	s := &Store{conn: conn, baseDir: baseDir}
	if _, err := s.RunMigrations(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return s, nil
}

func openConn(dbPath string) (*sql.DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// WAL allows concurrent reads while writes are serialized
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}
	if _, err := conn.Exec("PRAGMA busy_timeout=500"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}
	conn.Exec("PRAGMA synchronous=NORMAL")

	return conn, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.conn.Close()
}

// BaseDir returns the base directory for the database.
func (s *Store) BaseDir() string {
	return s.baseDir
}

// Conn returns the underlying *sql.DB for components that manage their own
// transactions (the offline queue in particular).
func (s *Store) Conn() *sql.DB {
	return s.conn
}

// withWriteLock executes fn while holding the cross-process write lock.
func (s *Store) withWriteLock(fn func() error) error {
	sl, err := acquireStoreLock(s.baseDir, lockWaitDefault)
	if err != nil {
		return err
	}
	defer sl.release()
	return fn()
}

// GetSchemaVersion returns the current schema version from the database.
func (s *Store) GetSchemaVersion() (int, error) {
	var version string
	err := s.conn.QueryRow("SELECT value FROM schema_info WHERE key = 'version'").Scan(&version)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		// Table might not exist yet
		return 0, nil
	}
	var v int
	fmt.Sscanf(version, "%d", &v)
	return v, nil
}

func (s *Store) setSchemaVersion(version int) error {
	_, err := s.conn.Exec(`INSERT OR REPLACE INTO schema_info (key, value) VALUES ('version', ?)`,
		fmt.Sprintf("%d", version))
	return err
}

// RunMigrations runs any pending database migrations.
func (s *Store) RunMigrations() (int, error) {
	// Quick check without lock - if already at current version, skip
	currentVersion, _ := s.GetSchemaVersion()
	if currentVersion >= SchemaVersion {
		return 0, nil
	}

	var migrationsRun int
	err := s.withWriteLock(func() error {
		var err error
		migrationsRun, err = s.runMigrationsLocked()
		return err
	})
	return migrationsRun, err
}

func (s *Store) runMigrationsLocked() (int, error) {
	_, err := s.conn.Exec(`CREATE TABLE IF NOT EXISTS schema_info (key TEXT PRIMARY KEY, value TEXT NOT NULL)`)
	if err != nil {
		return 0, fmt.Errorf("create schema_info: %w", err)
	}

	currentVersion, err := s.GetSchemaVersion()
	if err != nil {
		return 0, fmt.Errorf("get schema version: %w", err)
	}

	migrationsRun := 0
	for _, migration := range Migrations {
		if migration.Version > currentVersion {
			if _, err := s.conn.Exec(migration.SQL); err != nil {
				return migrationsRun, fmt.Errorf("migration %d (%s): %w", migration.Version, migration.Description, err)
			}
			if err := s.setSchemaVersion(migration.Version); err != nil {
				return migrationsRun, fmt.Errorf("set version %d: %w", migration.Version, err)
			}
			migrationsRun++
		}
	}

	if currentVersion == 0 {
		if err := s.setSchemaVersion(SchemaVersion); err != nil {
			return migrationsRun, err
		}
	}

	return migrationsRun, nil
}

// ResetAll empties every user-data table while keeping the schema intact.
// Used by 'trail reset'; the offline queue is cleared separately.
func (s *Store) ResetAll() error {
	return s.withWriteLock(func() error {
		for _, table := range []string{
			"progress", "notes", "settings", "playlist",
			"cards", "card_links", "card_contents", "projects",
		} {
			if _, err := s.conn.Exec("DELETE FROM " + table); err != nil {
				return fmt.Errorf("clear %s: %w", table, err)
			}
		}
		if _, err := s.conn.Exec(`UPDATE sync_state SET local_last_modified = NULL, last_synced_at = NULL, last_sync_error = ''`); err != nil {
			return err
		}
		_, err := s.conn.Exec(`UPDATE card_state SET local_last_modified = NULL, last_synced_at = NULL`)
		return err
	})
}
