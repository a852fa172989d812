package handlers_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openntia/pfewatch/internal/config"
	"github.com/openntia/pfewatch/internal/grafana"
	"github.com/openntia/pfewatch/internal/handlers"
	"github.com/openntia/pfewatch/internal/models"
	"github.com/openntia/pfewatch/internal/queue"
	"github.com/openntia/pfewatch/internal/router"
	"github.com/openntia/pfewatch/internal/services"
	"github.com/openntia/pfewatch/internal/tsdb"
)

type testEnv struct {
	app     *fiber.App
	fetcher *tsdb.MemoryFetcher
	grafana *httptest.Server
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	grafanaSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/api/search":
			w.Write([]byte(`[{"uid":"pfe-exceptions","title":"PFE Exceptions"}]`))
		case "/api/dashboards/uid/pfe-exceptions":
			w.Write([]byte(`{"dashboard":{"uid":"pfe-exceptions"}}`))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(grafanaSrv.Close)

	cfg := *config.DefaultConfig()
	cfg.Grafana.URL = grafanaSrv.URL
	cfg.Detection.UseML = false
	cfg.Detection.UseDynamicBaseline = false
	cfg.Detection.Workers = 2

	fetcher := tsdb.NewMemoryFetcher()
	links := grafana.NewLinkBuilder(cfg.Grafana)
	analyzer, err := services.NewAnalyzerService(nil, fetcher, links, queue.NoopPublisher{}, cfg.Detection, "")
	require.NoError(t, err)

	grafanaClient := grafana.NewClient(cfg.Grafana, nil)
	app := router.New(nil, analyzer, grafanaClient, cfg)

	return &testEnv{app: app, fetcher: fetcher, grafana: grafanaSrv}
}

func (e *testEnv) request(t *testing.T, method, path string, body []byte) (*http.Response, []byte) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := e.app.Test(req, 30000)
	require.NoError(t, err)
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	resp.Body.Close()
	return resp, data
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)
	resp, body := env.request(t, http.MethodGet, "/health", nil)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var health models.HealthResponse
	require.NoError(t, json.Unmarshal(body, &health))
	assert.Equal(t, "healthy", health.Status)
	assert.Equal(t, handlers.ServiceName, health.Service)
	assert.NotEmpty(t, health.Version)
	assert.GreaterOrEqual(t, health.UptimeSeconds, int64(0))
}

func TestAnalyzePostEmptyStore(t *testing.T) {
	env := newTestEnv(t)
	resp, body := env.request(t, http.MethodPost, "/v1/analyze", nil)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var result services.AnalyzeResult
	require.NoError(t, json.Unmarshal(body, &result))
	assert.Equal(t, 0, result.Summary.Total)
}

func TestAnalyzePostDetects(t *testing.T) {
	env := newTestEnv(t)
	key := models.SeriesKey{Device: "mx480-lab1", Slot: "0", Exception: "sw_error"}
	now := time.Now()
	env.fetcher.Add(key,
		models.NewSample(now.Add(-10*time.Minute), 0.0),
		models.NewSample(now.Add(-9*time.Minute), 0.8),
		models.NewSample(now.Add(-8*time.Minute), 0.9),
		models.NewSample(now.Add(-7*time.Minute), 1.0),
	)

	resp, body := env.request(t, http.MethodPost, "/v1/analyze", []byte(`{}`))
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var result services.AnalyzeResult
	require.NoError(t, json.Unmarshal(body, &result))
	require.NotEmpty(t, result.Detections)
	assert.Equal(t, key, result.Detections[0].Key)
}

func TestAnalyzePostBadBody(t *testing.T) {
	env := newTestEnv(t)
	resp, _ := env.request(t, http.MethodPost, "/v1/analyze", []byte(`{not json`))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAnalyzeGetWithParams(t *testing.T) {
	env := newTestEnv(t)
	resp, body := env.request(t, http.MethodGet, "/v1/analyze?lookback_hours=2&use_ml=false", nil)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var result services.AnalyzeResult
	require.NoError(t, json.Unmarshal(body, &result))
	assert.Equal(t, 2, result.LookbackHours)
}

func TestAnalyzeGetBadParam(t *testing.T) {
	env := newTestEnv(t)
	for _, path := range []string{
		"/v1/analyze?lookback_hours=zero",
		"/v1/analyze?lookback_hours=-1",
		"/v1/analyze?use_ml=maybe",
		"/v1/analyze?ml_confidence_threshold=1.5",
	} {
		resp, _ := env.request(t, http.MethodGet, path, nil)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "path %s", path)
	}
}

func TestAnalyzeFetchFailure(t *testing.T) {
	env := newTestEnv(t)
	env.fetcher.Fail(assert.AnError)

	resp, body := env.request(t, http.MethodPost, "/v1/analyze", nil)
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)

	var errResp models.ErrorResponse
	require.NoError(t, json.Unmarshal(body, &errResp))
	assert.Equal(t, "FETCH_FAILED", errResp.Error.Code)
}

func TestSeverities(t *testing.T) {
	env := newTestEnv(t)
	resp, body := env.request(t, http.MethodGet, "/v1/severities", nil)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var out struct {
		Severities map[string]string `json:"severities"`
		Default    string            `json:"default"`
	}
	require.NoError(t, json.Unmarshal(body, &out))
	assert.Equal(t, "CRITICAL", out.Severities["hw_error"])
	assert.Equal(t, "LOW", out.Default)
}

func TestListDashboards(t *testing.T) {
	env := newTestEnv(t)
	resp, body := env.request(t, http.MethodGet, "/v1/dashboards", nil)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var out struct {
		Dashboards []grafana.Dashboard `json:"dashboards"`
		Total      int                 `json:"total"`
	}
	require.NoError(t, json.Unmarshal(body, &out))
	assert.Equal(t, 1, out.Total)
	assert.Equal(t, "pfe-exceptions", out.Dashboards[0].UID)
}

func TestGetDashboard(t *testing.T) {
	env := newTestEnv(t)
	resp, _ := env.request(t, http.MethodGet, "/v1/dashboards/pfe-exceptions", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = env.request(t, http.MethodGet, "/v1/dashboards/nonexistent", nil)
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
}

func TestNotFound(t *testing.T) {
	env := newTestEnv(t)
	resp, body := env.request(t, http.MethodGet, "/v1/unknown", nil)

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	var errResp models.ErrorResponse
	require.NoError(t, json.Unmarshal(body, &errResp))
	assert.Equal(t, "NOT_FOUND", errResp.Error.Code)
}

func TestAuthEnforced(t *testing.T) {
	grafanaSrv := httptest.NewServer(http.NotFoundHandler())
	t.Cleanup(grafanaSrv.Close)

	cfg := *config.DefaultConfig()
	cfg.Grafana.URL = grafanaSrv.URL
	cfg.Detection.UseML = false
	cfg.Auth.Enabled = true
	cfg.Auth.APIKeys = []string{"0123456789abcdef0123456789abcdef"}

	analyzer, err := services.NewAnalyzerService(nil, tsdb.NewMemoryFetcher(),
		grafana.NewLinkBuilder(cfg.Grafana), queue.NoopPublisher{}, cfg.Detection, "")
	require.NoError(t, err)
	app := router.New(nil, analyzer, grafana.NewClient(cfg.Grafana, nil), cfg)

	// Health stays open.
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// Analyze requires the key.
	req = httptest.NewRequest(http.MethodPost, "/v1/analyze", nil)
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	req = httptest.NewRequest(http.MethodPost, "/v1/analyze", nil)
	req.Header.Set("X-API-Key", "0123456789abcdef0123456789abcdef")
	resp, err = app.Test(req, 30000)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
