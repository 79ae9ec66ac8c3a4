package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/bjornbryggman/eu4-modding-tools/internal/apperr"
	_ "github.com/duckdb/duckdb-go/v2"
	_ "modernc.org/sqlite"
)

// Store manages all data persistence via SQLite or DuckDB.
type Store struct {
	DB      *sql.DB
	DataDir string
	Driver  string
}

// New opens (or creates) the default SQLite database in the given data directory.
func New(dataDir string) (*Store, error) {
	return Open(dataDir, "sqlite", "eu4.db")
}

// Open opens (or creates) a database file in dataDir with the named driver
// ("sqlite" or "duckdb").
func Open(dataDir, driver, file string) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, apperr.WrapIO("creating data dir", err)
	}

	dbPath := filepath.Join(dataDir, file)
	var dsn string
	switch driver {
	case "sqlite":
		dsn = "file:" + dbPath + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	case "duckdb":
		dsn = dbPath
	default:
		return nil, apperr.Configf("unknown database driver %q", driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", driver, err)
	}
	if driver == "sqlite" {
		// One writer at a time; the pragmas above apply per connection.
		db.SetMaxOpenConns(1)
	}

	s := &Store{DB: db, DataDir: dataDir, Driver: driver}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating schema: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.DB.Close()
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS continents (
			id INTEGER PRIMARY KEY,
			name TEXT NOT NULL UNIQUE
		)`,
		`CREATE TABLE IF NOT EXISTS super_regions (
			id INTEGER PRIMARY KEY,
			name TEXT NOT NULL UNIQUE,
			continent_id INTEGER NOT NULL REFERENCES continents(id)
		)`,
		`CREATE TABLE IF NOT EXISTS regions (
			id INTEGER PRIMARY KEY,
			name TEXT NOT NULL UNIQUE,
			super_region_id INTEGER NOT NULL REFERENCES super_regions(id)
		)`,
		`CREATE TABLE IF NOT EXISTS areas (
			id INTEGER PRIMARY KEY,
			name TEXT NOT NULL UNIQUE,
			region_id INTEGER NOT NULL REFERENCES regions(id)
		)`,
		`CREATE TABLE IF NOT EXISTS climates (
			id INTEGER PRIMARY KEY,
			name TEXT NOT NULL UNIQUE
		)`,
		`CREATE TABLE IF NOT EXISTS terrains (
			id INTEGER PRIMARY KEY,
			name TEXT NOT NULL UNIQUE,
			is_water BOOLEAN NOT NULL DEFAULT false,
			properties TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS provinces (
			id INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			area_id INTEGER NOT NULL REFERENCES areas(id),
			climate_id INTEGER NOT NULL REFERENCES climates(id),
			terrain_id INTEGER NOT NULL REFERENCES terrains(id),
			continent_id INTEGER REFERENCES continents(id),
			winter TEXT,
			monsoon TEXT,
			description TEXT,
			prompt TEXT,
			image_url TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS generations (
			id TEXT PRIMARY KEY,
			province_id INTEGER NOT NULL,
			model TEXT NOT NULL,
			prompt TEXT NOT NULL,
			status TEXT NOT NULL,
			output_url TEXT,
			local_path TEXT,
			error TEXT,
			created_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS gui_original_values (
			file_path TEXT NOT NULL,
			property TEXT NOT NULL,
			ordinal INTEGER NOT NULL,
			value INTEGER NOT NULL,
			PRIMARY KEY (file_path, property, ordinal)
		)`,
		`CREATE TABLE IF NOT EXISTS gui_scaling_factors (
			file_path TEXT NOT NULL,
			property TEXT NOT NULL,
			resolution TEXT NOT NULL,
			mean DOUBLE NOT NULL,
			median DOUBLE NOT NULL,
			std_dev DOUBLE NOT NULL,
			min DOUBLE NOT NULL,
			max DOUBLE NOT NULL,
			samples INTEGER NOT NULL,
			PRIMARY KEY (file_path, property, resolution)
		)`,
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,
	}

	for _, stmt := range stmts {
		if _, err := s.DB.Exec(stmt); err != nil {
			return fmt.Errorf("executing migration %q: %w", stmt[:40], err)
		}
	}
	return nil
}

// SetMeta stores a key/value pair in the meta table.
func (s *Store) SetMeta(key, value string) error {
	_, err := s.DB.Exec("INSERT OR REPLACE INTO meta (key, value) VALUES (?, ?)", key, value)
	return err
}

// GetMeta returns a meta value, or "" when unset.
func (s *Store) GetMeta(key string) string {
	var v sql.NullString
	s.DB.QueryRow("SELECT value FROM meta WHERE key = ?", key).Scan(&v)
	return v.String
}

func (s *Store) count(query string, args ...any) int {
	var n int
	s.DB.QueryRow(query, args...).Scan(&n)
	return n
}
