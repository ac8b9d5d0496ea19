package database

import (
	"fmt"

	"sales-predictor/internal/common/config"
)

const (
	DialectPostgres = "postgres"
	DialectSQLite   = "sqlite3"
)

// OpenHistory opens the database backing prediction history. It returns
// nil, nil when no history driver is configured.
func OpenHistory(cfg config.DatabaseConfig) (*SQLClient, error) {
	switch cfg.History.Driver {
	case "":
		return nil, nil
	case DialectPostgres:
		return NewPostgres(cfg.Postgres)
	case DialectSQLite:
		return NewSQLite(cfg.SQLite.Path)
	}
	return nil, fmt.Errorf("unsupported history driver %q", cfg.History.Driver)
}
