package predictor

import (
	"encoding/json"
	"fmt"
	"io"
)

// FormatV1 identifies the artifact layout this package decodes.
const FormatV1 = "sales-regressor/v1"

const (
	KindNumeric     = "numeric"
	KindCategorical = "categorical"

	HandleUnknownError  = "error"
	HandleUnknownIgnore = "ignore"

	RegressorLinear = "linear"
	RegressorTree   = "tree"
	RegressorGBRT   = "gbrt"
)

// Artifact is the serialized form of a fitted preprocessing + regression
// pipeline.
type Artifact struct {
	Format    string        `json:"format"`
	Name      string        `json:"name"`
	Version   string        `json:"version"`
	Target    string        `json:"target,omitempty"`
	Columns   []ColumnSpec  `json:"columns"`
	Regressor RegressorSpec `json:"regressor"`
}

// ColumnSpec describes how one input column becomes model features.
// Numeric columns yield one feature, (x-mean)/scale. Categorical columns are
// one-hot encoded over Categories.
type ColumnSpec struct {
	Name          string   `json:"name"`
	Kind          string   `json:"kind"`
	Impute        *float64 `json:"impute,omitempty"`
	Mean          float64  `json:"mean,omitempty"`
	Scale         float64  `json:"scale,omitempty"`
	Categories    []string `json:"categories,omitempty"`
	HandleUnknown string   `json:"handle_unknown,omitempty"`
}

type RegressorSpec struct {
	Kind string `json:"kind"`

	// linear
	Intercept    float64   `json:"intercept,omitempty"`
	Coefficients []float64 `json:"coefficients,omitempty"`

	// tree
	Nodes []TreeNode `json:"nodes,omitempty"`

	// gbrt
	BaseScore    float64      `json:"base_score,omitempty"`
	LearningRate float64      `json:"learning_rate,omitempty"`
	Trees        [][]TreeNode `json:"trees,omitempty"`
}

// TreeNode is one entry of a flattened regression tree. Children always sit
// after their parent in the array.
type TreeNode struct {
	FeatureIdx int     `json:"feature_idx"`
	Threshold  float64 `json:"threshold"`
	LeftChild  int     `json:"left_child"`
	RightChild int     `json:"right_child"`
	Value      float64 `json:"value"`
	IsLeaf     bool    `json:"is_leaf"`
}

// Decode reads an artifact and builds an immutable Model from it.
func Decode(r io.Reader) (*Model, error) {
	var a Artifact
	dec := json.NewDecoder(r)
	if err := dec.Decode(&a); err != nil {
		return nil, fmt.Errorf("decode artifact: %w", err)
	}
	return NewModel(a)
}

// NewModel validates a and compiles it for inference.
func NewModel(a Artifact) (*Model, error) {
	if a.Format != FormatV1 {
		return nil, fmt.Errorf("unsupported artifact format %q, want %q", a.Format, FormatV1)
	}

	enc, err := newEncoder(a.Columns)
	if err != nil {
		return nil, err
	}

	reg, err := newRegressor(a.Regressor, enc.width)
	if err != nil {
		return nil, fmt.Errorf("regressor: %w", err)
	}

	cols := make([]string, len(a.Columns))
	for i, c := range a.Columns {
		cols[i] = c.Name
	}

	return &Model{
		name:     a.Name,
		version:  a.Version,
		target:   a.Target,
		kind:     a.Regressor.Kind,
		columns:  cols,
		encoder:  enc,
		regr:     reg,
		features: enc.width,
	}, nil
}
