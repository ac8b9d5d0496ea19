package prediction

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sales-predictor/internal/cache"
	apperrors "sales-predictor/internal/common/errors"
	"sales-predictor/internal/common/logger"
	"sales-predictor/internal/history"
	"sales-predictor/internal/models"
	"sales-predictor/internal/predictor"
)

// stubPredictor records what it was asked and answers with fn.
type stubPredictor struct {
	mu    sync.Mutex
	calls [][]models.Record
	fn    func(ctx context.Context, rows []models.Record) ([]float64, error)
}

func (s *stubPredictor) Predict(ctx context.Context, rows []models.Record) ([]float64, error) {
	s.mu.Lock()
	s.calls = append(s.calls, rows)
	s.mu.Unlock()
	return s.fn(ctx, rows)
}

func (s *stubPredictor) Name() string    { return "stub" }
func (s *stubPredictor) Version() string { return "test" }

func constant(v float64) *stubPredictor {
	return &stubPredictor{fn: func(context.Context, []models.Record) ([]float64, error) {
		return []float64{v}, nil
	}}
}

type memHistory struct {
	mu      sync.Mutex
	entries []history.Entry
	err     error
}

func (m *memHistory) Record(_ context.Context, e history.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, e)
	return m.err
}

func validRequest() models.PredictionRequest {
	return models.PredictionRequest{
		ItemWeight:              9.3,
		ItemFatContent:          "Low Fat",
		ItemVisibility:          0.016,
		ItemType:                "Dairy",
		ItemMRP:                 249.8,
		OutletEstablishmentYear: 1999,
		OutletSize:              "Medium",
		OutletLocationType:      "Tier 1",
		OutletType:              "Supermarket Type1",
	}
}

func newTestService(t *testing.T, p predictor.Predictor, opts Options, deps Dependencies) *Service {
	t.Helper()
	if deps.Logger == nil {
		deps.Logger = logger.NewTestLogger(t)
	}
	svc, err := NewService(p, opts, deps)
	require.NoError(t, err)
	return svc
}

func TestPredict_FormatsTwoDecimals(t *testing.T) {
	svc := newTestService(t, constant(1234.5678), Options{}, Dependencies{})

	res, err := svc.Predict(context.Background(), validRequest(), RequestMeta{Source: SourceForm})
	require.NoError(t, err)
	assert.Equal(t, 1234.5678, res.PredictedSales)
	assert.Equal(t, "Predicted Sales: 1234.57", res.Display)
	assert.Equal(t, "test", res.ModelVersion)
	assert.NotEmpty(t, res.RequestID)
	assert.False(t, res.Cached)
}

func TestPredict_SingleRowInColumnOrder(t *testing.T) {
	p := constant(1)
	svc := newTestService(t, p, Options{}, Dependencies{})

	req := validRequest()
	_, err := svc.Predict(context.Background(), req, RequestMeta{})
	require.NoError(t, err)

	require.Len(t, p.calls, 1)
	require.Len(t, p.calls[0], 1)
	row := p.calls[0][0]
	assert.Equal(t, models.Columns, row.Names())
	assert.Equal(t, req.Values()[0], row[0].Value)

	// swapping two inputs swaps exactly those positions
	swapped := req
	swapped.ItemWeight, swapped.ItemMRP = req.ItemMRP, req.ItemWeight
	_, err = svc.Predict(context.Background(), swapped, RequestMeta{})
	require.NoError(t, err)

	row2 := p.calls[1][0]
	for i := range row {
		switch row[i].Name {
		case models.ColItemWeight:
			assert.Equal(t, row[i].Value, row2[4].Value)
		case models.ColItemMRP:
			assert.Equal(t, row[i].Value, row2[0].Value)
		default:
			assert.Equal(t, row[i].Value, row2[i].Value, row[i].Name)
		}
	}
}

func TestPredict_InferenceErrorKeepsOriginalText(t *testing.T) {
	p := &stubPredictor{fn: func(context.Context, []models.Record) ([]float64, error) {
		return nil, errors.New("Found unknown categories ['-Select-'] in column 1 during transform")
	}}
	svc := newTestService(t, p, Options{}, Dependencies{})

	res, err := svc.Predict(context.Background(), validRequest(), RequestMeta{})
	require.Error(t, err)
	assert.Nil(t, res)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeInferenceFailed))
	assert.Equal(t, "Error in prediction: Found unknown categories ['-Select-'] in column 1 during transform", FormatError(err))
}

func TestPredict_PanicBecomesError(t *testing.T) {
	p := &stubPredictor{fn: func(context.Context, []models.Record) ([]float64, error) {
		panic("index out of range [3] with length 3")
	}}
	svc := newTestService(t, p, Options{}, Dependencies{})

	_, err := svc.Predict(context.Background(), validRequest(), RequestMeta{})
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeInferenceFailed))
	assert.Contains(t, FormatError(err), "index out of range [3] with length 3")

	// the service keeps working afterwards
	p.fn = func(context.Context, []models.Record) ([]float64, error) { return []float64{5}, nil }
	res, err := svc.Predict(context.Background(), validRequest(), RequestMeta{})
	require.NoError(t, err)
	assert.Equal(t, "Predicted Sales: 5.00", res.Display)
}

func TestPredict_DegenerateOutputs(t *testing.T) {
	tests := []struct {
		name string
		out  []float64
		msg  string
	}{
		{"empty", nil, "no values"},
		{"nan", []float64{math.NaN()}, "non-finite"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &stubPredictor{fn: func(context.Context, []models.Record) ([]float64, error) { return tt.out, nil }}
			_, err := newTestService(t, p, Options{}, Dependencies{}).Predict(context.Background(), validRequest(), RequestMeta{})
			require.Error(t, err)
			assert.Contains(t, FormatError(err), tt.msg)
		})
	}
}

func TestPredict_Timeout(t *testing.T) {
	p := &stubPredictor{fn: func(ctx context.Context, _ []models.Record) ([]float64, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}}
	svc := newTestService(t, p, Options{Timeout: 20 * time.Millisecond}, Dependencies{})

	_, err := svc.Predict(context.Background(), validRequest(), RequestMeta{})
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeInferenceTimeout))
}

func TestPredict_NoModel(t *testing.T) {
	var nilModel *predictor.Model
	svc := newTestService(t, nilModel, Options{}, Dependencies{})
	assert.False(t, svc.Ready())

	_, err := svc.Predict(context.Background(), validRequest(), RequestMeta{})
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeModelUnavailable))
}

func TestPredict_Boundaries(t *testing.T) {
	svc := newTestService(t, constant(1), Options{}, Dependencies{})

	tests := []struct {
		name   string
		mutate func(*models.PredictionRequest)
	}{
		{"visibility 0", func(r *models.PredictionRequest) { r.ItemVisibility = 0 }},
		{"visibility 1", func(r *models.PredictionRequest) { r.ItemVisibility = 1 }},
		{"year 1950", func(r *models.PredictionRequest) { r.OutletEstablishmentYear = 1950 }},
		{"year 2024", func(r *models.PredictionRequest) { r.OutletEstablishmentYear = 2024 }},
		{"weight 0", func(r *models.PredictionRequest) { r.ItemWeight = 0 }},
		{"mrp 0", func(r *models.PredictionRequest) { r.ItemMRP = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validRequest()
			tt.mutate(&req)
			_, err := svc.Predict(context.Background(), req, RequestMeta{})
			assert.NoError(t, err)
		})
	}
}

func TestPredict_ValidationFailures(t *testing.T) {
	p := constant(1)
	svc := newTestService(t, p, Options{}, Dependencies{})

	tests := []struct {
		name   string
		mutate func(*models.PredictionRequest)
		field  string
	}{
		{"visibility above 1", func(r *models.PredictionRequest) { r.ItemVisibility = 1.01 }, models.ColItemVisibility},
		{"negative visibility", func(r *models.PredictionRequest) { r.ItemVisibility = -0.1 }, models.ColItemVisibility},
		{"year 1949", func(r *models.PredictionRequest) { r.OutletEstablishmentYear = 1949 }, models.ColOutletEstablishmentYear},
		{"year 2025", func(r *models.PredictionRequest) { r.OutletEstablishmentYear = 2025 }, models.ColOutletEstablishmentYear},
		{"negative weight", func(r *models.PredictionRequest) { r.ItemWeight = -1 }, models.ColItemWeight},
		{"negative mrp", func(r *models.PredictionRequest) { r.ItemMRP = -5 }, models.ColItemMRP},
		{"unknown outlet size", func(r *models.PredictionRequest) { r.OutletSize = "Huge" }, models.ColOutletSize},
		{"nan weight", func(r *models.PredictionRequest) { r.ItemWeight = math.NaN() }, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validRequest()
			tt.mutate(&req)
			_, err := svc.Predict(context.Background(), req, RequestMeta{})
			require.Error(t, err)
			assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeValidationFailed))
			assert.Contains(t, err.Error(), tt.field)
		})
	}
	assert.Empty(t, p.calls)
}

func TestPredict_PlaceholderPassThrough(t *testing.T) {
	p := constant(10)
	svc := newTestService(t, p, Options{}, Dependencies{})

	_, err := svc.Predict(context.Background(), models.NewPredictionRequest(), RequestMeta{})
	require.NoError(t, err)

	v, ok := p.calls[0][0].Get(models.ColOutletType)
	require.True(t, ok)
	assert.Equal(t, models.Placeholder, v)
}

func TestPredict_RejectPlaceholders(t *testing.T) {
	p := constant(10)
	svc := newTestService(t, p, Options{RejectPlaceholders: true}, Dependencies{})

	req := validRequest()
	req.ItemType = models.Placeholder
	_, err := svc.Predict(context.Background(), req, RequestMeta{})
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeValidationFailed))
	assert.Contains(t, FormatError(err), models.ColItemType)
	assert.Empty(t, p.calls)
}

func TestPredict_CacheHit(t *testing.T) {
	lru, err := cache.NewLRUCache(16)
	require.NoError(t, err)

	p := constant(42)
	svc := newTestService(t, p, Options{}, Dependencies{Cache: lru})

	first, err := svc.Predict(context.Background(), validRequest(), RequestMeta{})
	require.NoError(t, err)
	assert.False(t, first.Cached)

	second, err := svc.Predict(context.Background(), validRequest(), RequestMeta{})
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, first.PredictedSales, second.PredictedSales)
	assert.Len(t, p.calls, 1)
}

func TestPredict_RecordsHistory(t *testing.T) {
	h := &memHistory{}
	p := constant(7)
	svc := newTestService(t, p, Options{}, Dependencies{History: h})

	_, err := svc.Predict(context.Background(), validRequest(), RequestMeta{Source: SourceForm, RequestID: "r-1"})
	require.NoError(t, err)

	bad := validRequest()
	bad.ItemVisibility = 2
	_, err = svc.Predict(context.Background(), bad, RequestMeta{Source: SourceAPI})
	require.Error(t, err)

	require.Len(t, h.entries, 2)
	assert.Equal(t, "r-1", h.entries[0].RequestID)
	assert.Equal(t, history.StatusSuccess, h.entries[0].Status)
	require.NotNil(t, h.entries[0].PredictedSales)
	assert.Equal(t, 7.0, *h.entries[0].PredictedSales)
	assert.Contains(t, string(h.entries[0].Input), `"Item_MRP":249.8`)

	assert.Equal(t, history.StatusError, h.entries[1].Status)
	assert.Equal(t, "VALIDATION_FAILED", h.entries[1].ErrorCode)
	assert.Nil(t, h.entries[1].PredictedSales)
}

func TestPredict_HistoryFailureIsIgnored(t *testing.T) {
	h := &memHistory{err: errors.New("db down")}
	svc := newTestService(t, constant(3), Options{}, Dependencies{History: h})

	res, err := svc.Predict(context.Background(), validRequest(), RequestMeta{})
	require.NoError(t, err)
	assert.Equal(t, 3.0, res.PredictedSales)
}

func TestPredict_ConcurrentRequests(t *testing.T) {
	svc := newTestService(t, constant(1), Options{}, Dependencies{Logger: logger.NewNoOpLogger()})

	var wg sync.WaitGroup
	errs := make(chan error, 32)
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			req := validRequest()
			req.ItemMRP = float64(i)
			_, err := svc.Predict(context.Background(), req, RequestMeta{})
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		assert.NoError(t, err)
	}
}

func TestFormatPrediction(t *testing.T) {
	assert.Equal(t, "Predicted Sales: 0.00", FormatPrediction(0))
	assert.Equal(t, "Predicted Sales: -12.35", FormatPrediction(-12.346))
	assert.Equal(t, "Predicted Sales: 1000000.00", FormatPrediction(1e6))
}

func TestParseRequest(t *testing.T) {
	svc := newTestService(t, constant(1), Options{}, Dependencies{})

	req, err := svc.ParseRequest([]byte(`{
		"Item_Weight": 9.3, "Item_Fat_Content": "Low Fat", "Item_Visibility": 0.016,
		"Item_Type": "Dairy", "Item_MRP": 249.8, "Outlet_Establishment_Year": 1999,
		"Outlet_Size": "Medium", "Outlet_Location_Type": "Tier 1", "Outlet_Type": "Supermarket Type1",
		"processInstance": "ignored"
	}`))
	require.NoError(t, err)
	assert.Equal(t, validRequest(), req)

	req, err = svc.ParseRequest([]byte(`{
		"Item_Weight": 9.3, "Item_Fat_Content": "Low Fat", "Item_Visibility": 0.016,
		"Item_Type": "Dairy", "Item_MRP": 249.8, "Outlet_Establishment_Year": 1999.0,
		"Outlet_Size": "Medium", "Outlet_Location_Type": "Tier 1", "Outlet_Type": "Supermarket Type1"
	}`))
	require.NoError(t, err)
	assert.Equal(t, validRequest(), req)

	tests := []struct {
		name  string
		body  string
		field string
	}{
		{"not json", `nope`, "JSON object"},
		{"array", `[1,2]`, "JSON object"},
		{"missing fields", `{"Item_Weight": 1}`, models.ColOutletType},
		{"fractional year", `{"Item_Weight": 9.3, "Item_Fat_Content": "Low Fat", "Item_Visibility": 0.016,
			"Item_Type": "Dairy", "Item_MRP": 249.8, "Outlet_Establishment_Year": 1999.5,
			"Outlet_Size": "Medium", "Outlet_Location_Type": "Tier 1", "Outlet_Type": "Supermarket Type1"}`, models.ColOutletEstablishmentYear},
		{"string weight", `{"Item_Weight": "heavy", "Item_Fat_Content": "Low Fat", "Item_Visibility": 0.016,
			"Item_Type": "Dairy", "Item_MRP": 249.8, "Outlet_Establishment_Year": 1999,
			"Outlet_Size": "Medium", "Outlet_Location_Type": "Tier 1", "Outlet_Type": "Supermarket Type1"}`, models.ColItemWeight},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.ParseRequest([]byte(tt.body))
			require.Error(t, err)
			assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeValidationFailed))
			assert.Contains(t, err.Error(), tt.field)
		})
	}
}
