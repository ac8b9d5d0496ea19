// test/e2e/e2e_test.go
package e2e

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sales-predictor/internal/cache"
	"sales-predictor/internal/common/config"
	"sales-predictor/internal/common/database"
	"sales-predictor/internal/common/logger"
	"sales-predictor/internal/common/observability"
	"sales-predictor/internal/history"
	"sales-predictor/internal/models"
	"sales-predictor/internal/predictor"
	"sales-predictor/internal/services/prediction"
	"sales-predictor/internal/web"
)

const sampleArtifact = "../../models/sales_prediction_model.json"

type stack struct {
	server    *httptest.Server
	downloads *int32
}

// writeConfig points the model at a remote artifact store, the cache at
// redis and history at a sqlite file, all under dir.
func writeConfig(t *testing.T, dir, remoteURL, redisAddr string) string {
	t.Helper()
	yaml := fmt.Sprintf(`
app:
  name: sales-predictor-e2e
  version: e2e
server:
  mode: test
model:
  path: %s
  source: http
  remote_url: %s
prediction:
  timeout: 2000
cache:
  backend: redis
  ttl: 60
database:
  history:
    driver: sqlite3
  sqlite:
    path: %s
  redis:
    address: %s
logging:
  level: warn
`, filepath.Join(dir, "models", "model.json"), remoteURL, filepath.Join(dir, "history.db"), redisAddr)

	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))
	return path
}

func startStack(t *testing.T) *stack {
	t.Helper()
	gin.SetMode(gin.TestMode)
	ctx := context.Background()

	artifact, err := os.ReadFile(sampleArtifact)
	require.NoError(t, err)

	var downloads int32
	store := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&downloads, 1)
		w.Write(artifact)
	}))
	t.Cleanup(store.Close)

	mr := miniredis.RunT(t)
	dir := t.TempDir()

	cfg, err := config.LoadFromFile(writeConfig(t, dir, store.URL+"/model.json", mr.Addr()))
	require.NoError(t, err)

	log := logger.NewTestLogger(t)
	obs := observability.NewWithRegisterer("e2e", prometheus.NewRegistry())

	fetcher, err := predictor.NewFetcher(cfg.Model)
	require.NoError(t, err)
	model, err := predictor.NewLoader(cfg.Model.Path, fetcher, log).Load(ctx)
	require.NoError(t, err)

	rdb := database.NewRedis(cfg.Database.Redis)
	t.Cleanup(func() { rdb.Close() })
	predictionCache, err := cache.New(cfg.Cache, rdb.Client)
	require.NoError(t, err)

	sqlClient, err := database.OpenHistory(cfg.Database)
	require.NoError(t, err)
	require.NotNil(t, sqlClient)
	t.Cleanup(func() { sqlClient.Close() })
	hist := history.NewStore(sqlClient.DB, sqlClient.Dialect)
	require.NoError(t, hist.EnsureSchema(ctx))

	svc, err := prediction.NewService(model, prediction.Options{
		RejectPlaceholders: cfg.Prediction.RejectPlaceholders,
		Timeout:            config.GetDuration(cfg.Prediction.Timeout),
	}, prediction.Dependencies{
		Cache:         predictionCache,
		History:       hist,
		Observability: obs,
		Logger:        log,
	})
	require.NoError(t, err)

	srv, err := web.NewServer(cfg.Server, web.Deps{
		Service: svc,
		Model:   model,
		History: hist,
		Checks: []web.Check{
			{Name: "redis", Check: rdb.Ping},
			{Name: "history", Check: sqlClient.Ping},
		},
		Logger:  log,
		Version: cfg.App.Version,
	})
	require.NoError(t, err)

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	return &stack{server: ts, downloads: &downloads}
}

func sampleForm() url.Values {
	return url.Values{
		models.ColItemWeight:              {"9.3"},
		models.ColItemFatContent:          {"Low Fat"},
		models.ColItemVisibility:          {"0.016"},
		models.ColItemType:                {"Dairy"},
		models.ColItemMRP:                 {"249.8"},
		models.ColOutletEstablishmentYear: {"1999"},
		models.ColOutletSize:              {"Medium"},
		models.ColOutletLocationType:      {"Tier 1"},
		models.ColOutletType:              {"Supermarket Type1"},
	}
}

func getJSON(t *testing.T, u string, into interface{}) int {
	t.Helper()
	resp, err := http.Get(u)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(into))
	return resp.StatusCode
}

func TestFullE2E(t *testing.T) {
	s := startStack(t)
	assert.Equal(t, int32(1), atomic.LoadInt32(s.downloads), "artifact should be fetched once at startup")

	var ready map[string]interface{}
	assert.Equal(t, http.StatusOK, getJSON(t, s.server.URL+"/ready", &ready))

	// form submission renders the formatted prediction
	resp, err := http.PostForm(s.server.URL+"/predict", sampleForm())
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "Predicted Sales: ")

	// the same record over the API is answered from the cache
	payload := `{"Item_Weight":9.3,"Item_Fat_Content":"Low Fat","Item_Visibility":0.016,` +
		`"Item_Type":"Dairy","Item_MRP":249.8,"Outlet_Establishment_Year":1999,` +
		`"Outlet_Size":"Medium","Outlet_Location_Type":"Tier 1","Outlet_Type":"Supermarket Type1"}`
	resp, err = http.Post(s.server.URL+"/api/v1/predict", "application/json", strings.NewReader(payload))
	require.NoError(t, err)
	var apiResp web.GenericResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&apiResp))
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	data := apiResp.Data.(map[string]interface{})
	assert.Equal(t, true, data["cached"])
	assert.Equal(t, "1.0.0", data["modelVersion"])
	assert.Contains(t, string(body), data["display"].(string))

	// a body failing the schema is rejected before it reaches the service
	resp, err = http.Post(s.server.URL+"/api/v1/predict", "application/json", strings.NewReader(`{"Item_Weight":-1}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var hist struct {
		Data []history.Entry `json:"data"`
	}
	require.Equal(t, http.StatusOK, getJSON(t, s.server.URL+"/api/v1/history?limit=10", &hist))
	require.Len(t, hist.Data, 2)

	sources := map[string]bool{}
	for _, e := range hist.Data {
		assert.Equal(t, history.StatusSuccess, e.Status)
		sources[e.Source] = true
	}
	assert.True(t, sources[prediction.SourceForm])
	assert.True(t, sources[prediction.SourceAPI])

	var info struct {
		Data predictor.Info `json:"data"`
	}
	require.Equal(t, http.StatusOK, getJSON(t, s.server.URL+"/api/v1/model", &info))
	assert.Equal(t, models.Columns, info.Data.Columns)
}
