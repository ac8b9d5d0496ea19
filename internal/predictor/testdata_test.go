package predictor

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"sales-predictor/internal/models"
)

func float(v float64) *float64 { return &v }

// smallArtifact: one numeric column (MRP, standardized) and one categorical
// column (Outlet_Size) => features [mrp, High, Medium, Small].
func smallArtifact(reg RegressorSpec) Artifact {
	return Artifact{
		Format:  FormatV1,
		Name:    "test-model",
		Version: "0.1.0",
		Columns: []ColumnSpec{
			{Name: models.ColItemMRP, Kind: KindNumeric, Impute: float(100), Mean: 100, Scale: 50},
			{Name: models.ColOutletSize, Kind: KindCategorical, Categories: []string{"High", "Medium", "Small"}},
		},
		Regressor: reg,
	}
}

func smallRecord(mrp interface{}, size string) models.Record {
	return models.Record{
		{Name: models.ColItemMRP, Value: mrp},
		{Name: models.ColOutletSize, Value: size},
	}
}

func linearSpec() RegressorSpec {
	return RegressorSpec{Kind: RegressorLinear, Intercept: 1000, Coefficients: []float64{200, 50, 10, -30}}
}

// treeNodes splits on standardized MRP <= 0, then on Small.
func treeNodes() []TreeNode {
	return []TreeNode{
		{FeatureIdx: 0, Threshold: 0, LeftChild: 1, RightChild: 2},
		{IsLeaf: true, Value: 500},
		{FeatureIdx: 3, Threshold: 0.5, LeftChild: 3, RightChild: 4},
		{IsLeaf: true, Value: 2000},
		{IsLeaf: true, Value: 1500},
	}
}

func encodeArtifact(t *testing.T, a Artifact) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, json.NewEncoder(&buf).Encode(a))
	return buf.Bytes()
}
