package api

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zapponejosh/feast-calendar/internal/config"
	"github.com/zapponejosh/feast-calendar/internal/database"
	"github.com/zapponejosh/feast-calendar/internal/ephemeris"
	"github.com/zapponejosh/feast-calendar/internal/feasts"
	"github.com/zapponejosh/feast-calendar/internal/metrics"
)

// =============================================================================
// TEST SETUP HELPERS
// =============================================================================

const testAPIKey = "refresh-test-key"

// testEnv is a complete server over the fixture ephemeris
type testEnv struct {
	db      *database.DB
	cfg     *config.Config
	metrics *metrics.Metrics
	router  http.Handler
}

type envOption func(*Deps)

func withoutArchive() envOption {
	return func(d *Deps) { d.DB = nil }
}

// setupTest creates a fresh test environment
func setupTest(t *testing.T, opts ...envOption) *testEnv {
	t.Helper()

	logger := slog.New(slog.DiscardHandler)

	db, err := database.Open(database.Config{
		Path:            ":memory:",
		MaxOpenConns:    1,
		MaxIdleConns:    1,
		ConnMaxLifetime: time.Hour,
	}, logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = db.Migrate(context.Background())
	require.NoError(t, err)

	table, err := ephemeris.LoadTable("../feasts/testdata/ephemeris.yaml")
	require.NoError(t, err)

	cfg := &config.Config{
		Port:          8080,
		Env:           config.EnvDevelopment,
		DatabasePath:  ":memory:",
		APIKey:        testAPIKey,
		LogLevel:      "error",
		LogFormat:     "text",
		Timezone:      "Asia/Jerusalem",
		MaxRangeYears: 50,
	}

	deps := Deps{
		Calculator: feasts.NewCalculator(table),
		DB:         db,
		Metrics:    metrics.NewWithRegistry(prometheus.NewRegistry()),
		Config:     cfg,
		Logger:     logger,
		Source:     database.SourceFixture,
	}
	for _, opt := range opts {
		opt(&deps)
	}

	return &testEnv{
		db:      deps.DB,
		cfg:     cfg,
		metrics: deps.Metrics,
		router:  SetupRoutes(NewHandlers(deps), cfg, logger),
	}
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *ErrorInfo      `json:"error"`
}

func (env *testEnv) do(t *testing.T, method, path string, header http.Header) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	req := httptest.NewRequest(method, path, nil)
	for k, v := range header {
		req.Header[k] = v
	}
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	var body envelope
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	}
	return rec, body
}

func (env *testEnv) get(t *testing.T, path string) (*httptest.ResponseRecorder, envelope) {
	return env.do(t, http.MethodGet, path, nil)
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(raw, &v))
	return v
}

type yearBody struct {
	Year     int            `json:"year"`
	Timezone string         `json:"timezone"`
	Nisan1   string         `json:"nisan_1"`
	Tishri1  string         `json:"tishri_1"`
	Origin   string         `json:"origin"`
	Feasts   []feasts.Feast `json:"feasts"`
}

// =============================================================================
// HEALTH & METRICS
// =============================================================================

func TestHealthCheck(t *testing.T) {
	env := setupTest(t)

	rec, body := env.get(t, "/health")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, body.Success)
	assert.Equal(t, "enabled", decode[map[string]string](t, body.Data)["archive"])
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestHealthCheck_NoArchive(t *testing.T) {
	env := setupTest(t, withoutArchive())

	rec, body := env.get(t, "/health")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "disabled", decode[map[string]string](t, body.Data)["archive"])
}

func TestRequestID_Propagated(t *testing.T) {
	env := setupTest(t)

	rec, _ := env.do(t, http.MethodGet, "/health", http.Header{"X-Request-Id": {"client-chosen"}})
	assert.Equal(t, "client-chosen", rec.Header().Get("X-Request-ID"))
}

func TestMetricsEndpoint(t *testing.T) {
	env := setupTest(t)
	env.get(t, "/api/v1/feasts/2024")

	rec, _ := env.get(t, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	body, _ := io.ReadAll(rec.Body)
	assert.Contains(t, string(body), "feast_calendar_computations_total")
}

// =============================================================================
// YEAR
// =============================================================================

func TestGetYear_ComputesThenServesArchive(t *testing.T) {
	env := setupTest(t)

	rec, body := env.get(t, "/api/v1/feasts/2024")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	first := decode[yearBody](t, body.Data)
	assert.Equal(t, OriginComputed, first.Origin)
	assert.Equal(t, 2024, first.Year)
	assert.Equal(t, "Asia/Jerusalem", first.Timezone)
	assert.Equal(t, "2024-03-10", first.Nisan1)
	assert.Equal(t, "2024-09-03", first.Tishri1)
	require.Len(t, first.Feasts, len(feasts.Order))
	for i, f := range first.Feasts {
		assert.Equal(t, feasts.Order[i], f.Slug)
	}

	rec, body = env.get(t, "/api/v1/feasts/2024")
	require.Equal(t, http.StatusOK, rec.Code)
	second := decode[yearBody](t, body.Data)
	assert.Equal(t, OriginArchive, second.Origin)
	assert.Equal(t, first.Feasts, second.Feasts)

	assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.ArchiveLookups.WithLabelValues("miss")))
	assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.ArchiveLookups.WithLabelValues("hit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.Computations.WithLabelValues(metrics.OutcomeOK)))
}

func TestGetYear_NoArchive(t *testing.T) {
	env := setupTest(t, withoutArchive())

	for range 2 {
		rec, body := env.get(t, "/api/v1/feasts/2025")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, OriginComputed, decode[yearBody](t, body.Data).Origin)
	}
}

func TestGetYear_Errors(t *testing.T) {
	env := setupTest(t)

	tests := []struct {
		name       string
		path       string
		wantStatus int
		wantCode   string
	}{
		{"not a number", "/api/v1/feasts/abc", http.StatusBadRequest, "BAD_REQUEST"},
		{"beyond supported range", "/api/v1/feasts/5000", http.StatusBadRequest, "BAD_REQUEST"},
		{"before supported range", "/api/v1/feasts/-1001", http.StatusBadRequest, "BAD_REQUEST"},
		{"provider has no data", "/api/v1/feasts/1999", http.StatusBadGateway, "EPHEMERIS_ERROR"},
		{"unknown route", "/api/v2/feasts", http.StatusNotFound, "NOT_FOUND"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, body := env.get(t, tt.path)
			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.False(t, body.Success)
			require.NotNil(t, body.Error)
			assert.Equal(t, tt.wantCode, body.Error.Code)
		})
	}

	assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.Computations.WithLabelValues(metrics.OutcomeUnavailable)))
}

// =============================================================================
// SINGLE FEAST
// =============================================================================

func TestGetFeast(t *testing.T) {
	env := setupTest(t)

	tests := []struct {
		path    string
		date    string
		endDate string
	}{
		{"/api/v1/feasts/2024/passover", "2024-03-24", ""},
		{"/api/v1/feasts/2024/pentecost", "2024-05-12", ""},
		{"/api/v1/feasts/2025/wave-sheaf", "2025-04-13", ""},
		{"/api/v1/feasts/2025/tabernacles", "2025-10-05", "2025-10-11"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec, body := env.get(t, tt.path)
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

			got := decode[map[string]any](t, body.Data)
			assert.Equal(t, tt.date, got["date"])
			if tt.endDate != "" {
				assert.Equal(t, tt.endDate, got["end_date"])
			} else {
				assert.NotContains(t, got, "end_date")
			}
			assert.Equal(t, "Asia/Jerusalem", got["timezone"])
		})
	}
}

func TestGetFeast_UnknownSlug(t *testing.T) {
	env := setupTest(t)

	rec, body := env.get(t, "/api/v1/feasts/2024/christmas")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NOT_FOUND", body.Error.Code)

	// Unknown slugs are rejected before anything is computed.
	assert.Equal(t, 0.0, testutil.ToFloat64(env.metrics.Computations.WithLabelValues(metrics.OutcomeOK)))
}

// =============================================================================
// RANGE
// =============================================================================

func TestGetRange(t *testing.T) {
	env := setupTest(t)

	rec, body := env.get(t, "/api/v1/feasts?from=2024&to=2025")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	got := decode[struct {
		From  int        `json:"from"`
		To    int        `json:"to"`
		Years []yearBody `json:"years"`
	}](t, body.Data)

	assert.Equal(t, 2024, got.From)
	assert.Equal(t, 2025, got.To)
	require.Len(t, got.Years, 2)
	assert.Equal(t, 2024, got.Years[0].Year)
	assert.Equal(t, 2025, got.Years[1].Year)
	assert.Equal(t, "2025-03-29", got.Years[1].Nisan1)
}

func TestGetRange_Errors(t *testing.T) {
	env := setupTest(t)
	env.cfg.MaxRangeYears = 3

	tests := []struct {
		name       string
		query      string
		wantStatus int
	}{
		{"missing to", "?from=2024", http.StatusBadRequest},
		{"missing both", "", http.StatusBadRequest},
		{"inverted", "?from=2025&to=2024", http.StatusBadRequest},
		{"not numbers", "?from=x&to=y", http.StatusBadRequest},
		{"too wide", "?from=2020&to=2025", http.StatusBadRequest},
		{"out of range", "?from=2999&to=3001", http.StatusBadRequest},
		{"uncovered year", "?from=2024&to=2026", http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, body := env.get(t, "/api/v1/feasts"+tt.query)
			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.False(t, body.Success)
		})
	}
}

// =============================================================================
// REFRESH & ARCHIVE
// =============================================================================

func TestRefreshYear_RequiresAPIKey(t *testing.T) {
	env := setupTest(t)

	rec, body := env.do(t, http.MethodPost, "/api/v1/feasts/2024/refresh", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Missing API key", body.Error.Message)

	rec, body = env.do(t, http.MethodPost, "/api/v1/feasts/2024/refresh", http.Header{"X-Api-Key": {"wrong"}})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Invalid API key", body.Error.Message)
}

func TestRefreshYear(t *testing.T) {
	env := setupTest(t)
	auth := http.Header{"X-Api-Key": {testAPIKey}}

	rec, body := env.do(t, http.MethodPost, "/api/v1/feasts/2025/refresh", auth)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, OriginComputed, decode[yearBody](t, body.Data).Origin)

	archived, err := env.db.GetYear(context.Background(), 2025, "Asia/Jerusalem")
	require.NoError(t, err)
	assert.Equal(t, database.SourceFixture, archived.Summary.Source)

	// A refresh overwrites rather than duplicates.
	rec, _ = env.do(t, http.MethodPost, "/api/v1/feasts/2025/refresh", auth)
	require.Equal(t, http.StatusOK, rec.Code)
	list, err := env.db.ListYears(context.Background(), "")
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestRefreshYear_OpenWithoutKey(t *testing.T) {
	env := setupTest(t)
	env.cfg.APIKey = ""

	rec, _ := env.do(t, http.MethodPost, "/api/v1/feasts/2024/refresh", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestListArchive(t *testing.T) {
	env := setupTest(t)

	env.get(t, "/api/v1/feasts/2025")
	env.get(t, "/api/v1/feasts/2024")

	rec, body := env.get(t, "/api/v1/archive")
	require.Equal(t, http.StatusOK, rec.Code)

	got := decode[struct {
		Count int                    `json:"count"`
		Years []database.YearSummary `json:"years"`
	}](t, body.Data)
	assert.Equal(t, 2, got.Count)
	require.Len(t, got.Years, 2)
	assert.Equal(t, 2024, got.Years[0].Year)
	assert.Equal(t, "2024-03-10", got.Years[0].Nisan1.String())

	rec, body = env.get(t, "/api/v1/archive?timezone=UTC")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0.0, decode[map[string]any](t, body.Data)["count"])
}

func TestListArchive_Disabled(t *testing.T) {
	env := setupTest(t, withoutArchive())

	rec, body := env.get(t, "/api/v1/archive")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "ARCHIVE_DISABLED", body.Error.Code)
}

func TestCORSPreflight(t *testing.T) {
	env := setupTest(t)

	rec, _ := env.do(t, http.MethodOptions, "/api/v1/feasts/2024", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}
