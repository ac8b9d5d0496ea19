package database

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// NewSQLite opens (creating if needed) a SQLite database file.
func NewSQLite(path string) (*SQLClient, error) {
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite %s: %w", path, err)
	}
	// sqlite serializes writers
	db.SetMaxOpenConns(1)
	return &SQLClient{DB: db, Dialect: DialectSQLite}, nil
}
