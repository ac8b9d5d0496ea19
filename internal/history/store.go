// Package history persists an audit trail of served predictions.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"sales-predictor/internal/common/database"
	"sales-predictor/internal/common/errors"
)

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Entry is one prediction attempt.
type Entry struct {
	ID             string          `json:"id"`
	RequestID      string          `json:"requestId"`
	Source         string          `json:"source"`
	ModelVersion   string          `json:"modelVersion"`
	Input          json.RawMessage `json:"input"`
	PredictedSales *float64        `json:"predictedSales,omitempty"`
	Status         string          `json:"status"`
	ErrorCode      string          `json:"errorCode,omitempty"`
	ErrorMessage   string          `json:"errorMessage,omitempty"`
	CreatedAt      time.Time       `json:"createdAt"`
}

// Store writes entries to the prediction_history table.
type Store struct {
	db      *sql.DB
	dialect string
}

func NewStore(db *sql.DB, dialect string) *Store {
	return &Store{db: db, dialect: dialect}
}

func (s *Store) ddl() string {
	floatType, timeType := "DOUBLE PRECISION", "TIMESTAMPTZ"
	if s.dialect == database.DialectSQLite {
		floatType, timeType = "REAL", "DATETIME"
	}
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS prediction_history (
    id TEXT PRIMARY KEY,
    request_id TEXT,
    source TEXT NOT NULL,
    model_version TEXT,
    input TEXT NOT NULL,
    predicted_sales %s,
    status TEXT NOT NULL,
    error_code TEXT,
    error_message TEXT,
    created_at %s NOT NULL
)`, floatType, timeType)
}

// EnsureSchema creates the history table if it does not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, s.ddl()); err != nil {
		return errors.NewDatabaseConnectionFailedError(fmt.Errorf("create prediction_history: %w", err))
	}
	return nil
}

// placeholders returns n bind markers for the store's dialect.
func (s *Store) placeholders(n int) string {
	marks := make([]string, n)
	for i := range marks {
		if s.dialect == database.DialectPostgres {
			marks[i] = fmt.Sprintf("$%d", i+1)
		} else {
			marks[i] = "?"
		}
	}
	return strings.Join(marks, ", ")
}

// Record inserts e, filling ID and CreatedAt when unset.
func (s *Store) Record(ctx context.Context, e Entry) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	if len(e.Input) == 0 {
		e.Input = json.RawMessage("{}")
	}

	var sales sql.NullFloat64
	if e.PredictedSales != nil {
		sales = sql.NullFloat64{Float64: *e.PredictedSales, Valid: true}
	}

	query := `INSERT INTO prediction_history (id, request_id, source, model_version, input, predicted_sales, status, error_code, error_message, created_at) VALUES (` + s.placeholders(10) + `)`
	_, err := s.db.ExecContext(ctx, query,
		e.ID, e.RequestID, e.Source, e.ModelVersion, string(e.Input),
		sales, e.Status, e.ErrorCode, e.ErrorMessage, e.CreatedAt,
	)
	if err != nil {
		return errors.NewDatabaseInsertFailedError(err)
	}
	return nil
}

// Recent returns up to limit entries, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}

	query := `SELECT id, request_id, source, model_version, input, predicted_sales, status, error_code, error_message, created_at FROM prediction_history ORDER BY created_at DESC LIMIT ` + s.placeholders(1)
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, errors.NewDatabaseConnectionFailedError(err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			e                             Entry
			requestID, version, code, msg sql.NullString
			input                         string
			sales                         sql.NullFloat64
		)
		if err := rows.Scan(&e.ID, &requestID, &e.Source, &version, &input, &sales, &e.Status, &code, &msg, &e.CreatedAt); err != nil {
			return nil, errors.NewParseError(err)
		}
		e.RequestID = requestID.String
		e.ModelVersion = version.String
		e.ErrorCode = code.String
		e.ErrorMessage = msg.String
		e.Input = json.RawMessage(input)
		if sales.Valid {
			v := sales.Float64
			e.PredictedSales = &v
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewDatabaseConnectionFailedError(err)
	}
	return out, nil
}
