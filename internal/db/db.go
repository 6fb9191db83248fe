// Package db opens the single SQLite handle shared by every store.
//
// The handle is created once in the composition root and passed
// explicitly to each store constructor — no package holds a process-wide
// connection.
package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// openDB is a package-level var to allow test injection.
var openDB = sql.Open

// Open creates the data directory if needed and opens the workspace
// database with WAL mode and the standard pragmas.
func Open(dataDir string) (*sql.DB, error) {
	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		return nil, fmt.Errorf("db: create data dir: %w", err)
	}

	path := filepath.Join(dataDir, "atelier.db")
	handle, err := openDB("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("db: open database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
	}
	for _, p := range pragmas {
		if _, err := handle.Exec(p); err != nil {
			handle.Close()
			return nil, fmt.Errorf("db: pragma %q: %w", p, err)
		}
	}

	return handle, nil
}
