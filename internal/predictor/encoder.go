package predictor

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"sales-predictor/internal/models"
)

type columnEncoder struct {
	spec  ColumnSpec
	index map[string]int // categorical only
}

type encoder struct {
	columns []columnEncoder
	width   int
}

func newEncoder(specs []ColumnSpec) (*encoder, error) {
	if len(specs) == 0 {
		return nil, fmt.Errorf("artifact has no columns")
	}

	enc := &encoder{columns: make([]columnEncoder, len(specs))}
	seen := make(map[string]bool, len(specs))

	for i, s := range specs {
		if s.Name == "" {
			return nil, fmt.Errorf("column %d has no name", i)
		}
		if seen[s.Name] {
			return nil, fmt.Errorf("duplicate column %q", s.Name)
		}
		seen[s.Name] = true

		ce := columnEncoder{spec: s}
		switch s.Kind {
		case KindNumeric:
			if s.Scale == 0 {
				ce.spec.Scale = 1
			}
			enc.width++
		case KindCategorical:
			if len(s.Categories) == 0 {
				return nil, fmt.Errorf("categorical column %q has no categories", s.Name)
			}
			switch s.HandleUnknown {
			case "":
				ce.spec.HandleUnknown = HandleUnknownError
			case HandleUnknownError, HandleUnknownIgnore:
			default:
				return nil, fmt.Errorf("column %q: handle_unknown must be %q or %q", s.Name, HandleUnknownError, HandleUnknownIgnore)
			}
			ce.index = make(map[string]int, len(s.Categories))
			for j, c := range s.Categories {
				if _, dup := ce.index[c]; dup {
					return nil, fmt.Errorf("column %q: duplicate category %q", s.Name, c)
				}
				ce.index[c] = j
			}
			enc.width += len(s.Categories)
		default:
			return nil, fmt.Errorf("column %q: unknown kind %q", s.Name, s.Kind)
		}
		enc.columns[i] = ce
	}
	return enc, nil
}

// encode turns one record into the feature vector the regressor was fitted on.
// Names and order must match the fitted columns exactly.
func (e *encoder) encode(rec models.Record) ([]float64, error) {
	if len(rec) != len(e.columns) {
		return nil, fmt.Errorf("X has %d features, but the model is expecting %d features as input", len(rec), len(e.columns))
	}
	for i, f := range rec {
		if f.Name != e.columns[i].spec.Name {
			return nil, fmt.Errorf("feature names must match those seen at fit time: got %s, want %s",
				strings.Join(rec.Names(), ","), strings.Join(e.names(), ","))
		}
	}

	x := make([]float64, 0, e.width)
	for i, ce := range e.columns {
		v := rec[i].Value
		switch ce.spec.Kind {
		case KindNumeric:
			f, err := toFloat(v)
			if err != nil {
				return nil, fmt.Errorf("column %s: %w", ce.spec.Name, err)
			}
			if math.IsNaN(f) {
				if ce.spec.Impute == nil {
					return nil, fmt.Errorf("column %s: input contains NaN", ce.spec.Name)
				}
				f = *ce.spec.Impute
			}
			if math.IsInf(f, 0) {
				return nil, fmt.Errorf("column %s: input contains infinity", ce.spec.Name)
			}
			x = append(x, (f-ce.spec.Mean)/ce.spec.Scale)
		case KindCategorical:
			s := toCategory(v)
			hot := make([]float64, len(ce.spec.Categories))
			j, ok := ce.index[s]
			if ok {
				hot[j] = 1
			} else if ce.spec.HandleUnknown != HandleUnknownIgnore {
				return nil, fmt.Errorf("Found unknown categories ['%s'] in column %d during transform", s, i)
			}
			x = append(x, hot...)
		}
	}
	return x, nil
}

func (e *encoder) names() []string {
	out := make([]string, len(e.columns))
	for i, c := range e.columns {
		out[i] = c.spec.Name
	}
	return out
}

func toFloat(v interface{}) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int32:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case json.Number:
		return n.Float64()
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, fmt.Errorf("could not convert string to float: '%s'", n)
		}
		return f, nil
	case nil:
		return math.NaN(), nil
	}
	return 0, fmt.Errorf("unsupported value type %T", v)
}

func toCategory(v interface{}) string {
	switch s := v.(type) {
	case string:
		return s
	case nil:
		return ""
	}
	return fmt.Sprint(v)
}
