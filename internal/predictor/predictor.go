package predictor

import (
	"context"
	"fmt"

	"sales-predictor/internal/models"
)

// Predictor scores records. Implementations must be safe for concurrent use.
type Predictor interface {
	Predict(ctx context.Context, rows []models.Record) ([]float64, error)
}

// Model is a loaded artifact. It is immutable after construction.
type Model struct {
	name     string
	version  string
	target   string
	kind     string
	columns  []string
	encoder  *encoder
	regr     regressor
	features int
}

var _ Predictor = (*Model)(nil)

// Info summarizes a model for display.
type Info struct {
	Name      string   `json:"name"`
	Version   string   `json:"version"`
	Format    string   `json:"format"`
	Target    string   `json:"target,omitempty"`
	Regressor string   `json:"regressor"`
	Columns   []string `json:"columns"`
	Features  int      `json:"features"`
}

func (m *Model) Name() string    { return m.name }
func (m *Model) Version() string { return m.version }

// Columns returns a copy of the fitted column order.
func (m *Model) Columns() []string {
	return append([]string(nil), m.columns...)
}

func (m *Model) Info() Info {
	return Info{
		Name:      m.name,
		Version:   m.version,
		Format:    FormatV1,
		Target:    m.target,
		Regressor: m.kind,
		Columns:   m.Columns(),
		Features:  m.features,
	}
}

// Predict returns one estimate per row, in row order.
func (m *Model) Predict(ctx context.Context, rows []models.Record) ([]float64, error) {
	out := make([]float64, len(rows))
	for i, rec := range rows {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		x, err := m.encoder.encode(rec)
		if err != nil {
			return nil, err
		}
		y, err := m.regr.predict(x)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		out[i] = y
	}
	return out, nil
}
