package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObservePrediction(t *testing.T) {
	before := testutil.ToFloat64(PredictionsTotal.WithLabelValues("api", "success"))
	ObservePrediction("api", "success", 3*time.Millisecond)
	after := testutil.ToFloat64(PredictionsTotal.WithLabelValues("api", "success"))
	assert.Equal(t, before+1, after)
}

func TestCacheResult(t *testing.T) {
	before := testutil.ToFloat64(PredictionCacheTotal.WithLabelValues("hit"))
	CacheResult("hit")
	assert.Equal(t, before+1, testutil.ToFloat64(PredictionCacheTotal.WithLabelValues("hit")))
}
