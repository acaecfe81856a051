package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/zapponejosh/feast-calendar/internal/config"
	"github.com/zapponejosh/feast-calendar/internal/database"
	"github.com/zapponejosh/feast-calendar/internal/ephemeris"
	"github.com/zapponejosh/feast-calendar/internal/feasts"
	"github.com/zapponejosh/feast-calendar/internal/logger"
	"github.com/zapponejosh/feast-calendar/internal/metrics"
)

// Where a year response came from.
const (
	OriginArchive  = "archive"
	OriginComputed = "computed"
)

// Deps are the collaborators the handlers need. DB and Metrics may be nil:
// without a DB the archive is disabled and every request is computed.
type Deps struct {
	Calculator *feasts.Calculator
	DB         *database.DB
	Metrics    *metrics.Metrics
	Config     *config.Config
	Logger     *slog.Logger

	// Source is recorded with archived years, e.g. database.SourceMeeus.
	Source string
}

// Handlers contains all HTTP handlers and their dependencies.
type Handlers struct {
	calc    *feasts.Calculator
	db      *database.DB
	metrics *metrics.Metrics
	cfg     *config.Config
	logger  *slog.Logger
	source  string
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(deps Deps) *Handlers {
	log := deps.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Handlers{
		calc:    deps.Calculator,
		db:      deps.DB,
		metrics: deps.Metrics,
		cfg:     deps.Config,
		logger:  log,
		source:  deps.Source,
	}
}

// YearResponse is a year's feast calendar with its provenance.
type YearResponse struct {
	*feasts.Year
	Origin     string     `json:"origin"`
	ComputedAt *time.Time `json:"computed_at,omitempty"`
}

// FeastResponse is a single feast with the year it belongs to.
type FeastResponse struct {
	Year     int    `json:"year"`
	Timezone string `json:"timezone"`
	Origin   string `json:"origin"`
	feasts.Feast
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if h.db == nil {
		WriteSuccess(w, map[string]string{
			"status":  "healthy",
			"archive": "disabled",
		})
		return
	}

	if err := h.db.Health(ctx); err != nil {
		h.logger.Warn("health check failed", slog.Any("error", err))
		WriteServiceUnavailable(w, "Database unhealthy", "HEALTH_CHECK_FAILED")
		return
	}

	WriteSuccess(w, map[string]string{
		"status":  "healthy",
		"archive": "enabled",
	})
}

// GetYear handles GET /api/v1/feasts/{year}
func (h *Handlers) GetYear(w http.ResponseWriter, r *http.Request) {
	year, ok := h.yearParam(w, r)
	if !ok {
		return
	}

	resp, err := h.loadYear(r.Context(), year)
	if err != nil {
		h.writeComputeError(w, r, year, err)
		return
	}

	WriteSuccess(w, resp)
}

// GetFeast handles GET /api/v1/feasts/{year}/{slug}
func (h *Handlers) GetFeast(w http.ResponseWriter, r *http.Request) {
	year, ok := h.yearParam(w, r)
	if !ok {
		return
	}

	slug := chi.URLParam(r, "slug")
	if !slices.Contains(feasts.Order, slug) {
		WriteNotFound(w, fmt.Sprintf("Unknown feast %q", slug))
		return
	}

	resp, err := h.loadYear(r.Context(), year)
	if err != nil {
		h.writeComputeError(w, r, year, err)
		return
	}

	feast, found := resp.Find(slug)
	if !found {
		WriteNotFound(w, fmt.Sprintf("Feast %q not found for %d", slug, year))
		return
	}

	WriteSuccess(w, FeastResponse{
		Year:     resp.Year.Year,
		Timezone: resp.Timezone,
		Origin:   resp.Origin,
		Feast:    feast,
	})
}

// GetRange handles GET /api/v1/feasts?from=YYYY&to=YYYY
func (h *Handlers) GetRange(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	fromStr := r.URL.Query().Get("from")
	toStr := r.URL.Query().Get("to")
	if fromStr == "" || toStr == "" {
		WriteBadRequest(w, "Both from and to year parameters are required")
		return
	}

	from, err := parseYear(fromStr)
	if err != nil {
		WriteBadRequest(w, fmt.Sprintf("Invalid from year: %v", err))
		return
	}
	to, err := parseYear(toStr)
	if err != nil {
		WriteBadRequest(w, fmt.Sprintf("Invalid to year: %v", err))
		return
	}

	if from > to {
		WriteBadRequest(w, "from year must not be after to year")
		return
	}
	if span := to - from + 1; span > h.cfg.MaxRangeYears {
		WriteBadRequest(w, fmt.Sprintf("Range of %d years exceeds the maximum of %d", span, h.cfg.MaxRangeYears))
		return
	}

	start := time.Now()
	years, err := h.calc.Range(ctx, from, to)
	if err != nil {
		h.metrics.IncrementComputation(outcome(err))
		h.writeComputeError(w, r, from, err)
		return
	}
	h.metrics.ObserveComputeLatency(time.Since(start))
	for range years {
		h.metrics.IncrementComputation(metrics.OutcomeOK)
	}

	resp := make([]YearResponse, len(years))
	for i, y := range years {
		resp[i] = YearResponse{Year: y, Origin: OriginComputed}
	}

	WriteSuccess(w, map[string]any{
		"from":  from,
		"to":    to,
		"years": resp,
	})
}

// RefreshYear handles POST /api/v1/feasts/{year}/refresh
//
// Recomputes the year and overwrites its archive entry.
func (h *Handlers) RefreshYear(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	year, ok := h.yearParam(w, r)
	if !ok {
		return
	}

	y, err := h.computeYear(ctx, year)
	if err != nil {
		h.writeComputeError(w, r, year, err)
		return
	}

	if h.db != nil {
		if err := h.db.SaveYear(ctx, y, h.source); err != nil {
			logger.Error(ctx, "failed to archive refreshed year", err, slog.Int("year", year))
			WriteInternalError(w, "Failed to archive feast year")
			return
		}
		logger.Info(ctx, "feast year refreshed", slog.Int("year", year))
	}

	now := time.Now().UTC()
	WriteSuccess(w, YearResponse{Year: y, Origin: OriginComputed, ComputedAt: &now})
}

// ListArchive handles GET /api/v1/archive?timezone=Zone
func (h *Handlers) ListArchive(w http.ResponseWriter, r *http.Request) {
	if h.db == nil {
		WriteServiceUnavailable(w, "Archive is disabled", "ARCHIVE_DISABLED")
		return
	}

	timezone := r.URL.Query().Get("timezone")
	years, err := h.db.ListYears(r.Context(), timezone)
	if err != nil {
		logger.Error(r.Context(), "failed to list archive", err)
		WriteInternalError(w, "Failed to list archived years")
		return
	}

	WriteSuccess(w, map[string]any{
		"count": len(years),
		"years": years,
	})
}

// =============================================================================
// Helpers
// =============================================================================

// loadYear serves a year from the archive, computing and archiving it on a
// miss. Archive failures are logged and never fail the request.
func (h *Handlers) loadYear(ctx context.Context, year int) (*YearResponse, error) {
	timezone := h.calc.Location().String()

	if h.db != nil {
		archived, err := h.db.GetYear(ctx, year, timezone)
		switch {
		case err == nil:
			h.metrics.RecordArchiveLookup(true)
			return &YearResponse{
				Year:       archived.Calendar,
				Origin:     OriginArchive,
				ComputedAt: &archived.Summary.ComputedAt,
			}, nil
		case database.IsNotFound(err):
			h.metrics.RecordArchiveLookup(false)
		default:
			logger.Warn(ctx, "archive lookup failed", slog.Int("year", year), slog.Any("error", err))
		}
	}

	y, err := h.computeYear(ctx, year)
	if err != nil {
		return nil, err
	}

	if h.db != nil {
		if err := h.db.SaveYear(ctx, y, h.source); err != nil {
			logger.Warn(ctx, "failed to archive feast year", slog.Int("year", year), slog.Any("error", err))
		}
	}

	return &YearResponse{Year: y, Origin: OriginComputed}, nil
}

func (h *Handlers) computeYear(ctx context.Context, year int) (*feasts.Year, error) {
	start := time.Now()
	y, err := h.calc.Year(ctx, year)
	h.metrics.IncrementComputation(outcome(err))
	if err != nil {
		return nil, err
	}
	h.metrics.ObserveComputeLatency(time.Since(start))
	return y, nil
}

func outcome(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeOK
	case ephemeris.IsUnavailable(err):
		return metrics.OutcomeUnavailable
	case ephemeris.IsSearchExhausted(err):
		return metrics.OutcomeExhausted
	case errors.Is(err, feasts.ErrInvalidRange):
		return metrics.OutcomeInvalidRequest
	default:
		return metrics.OutcomeError
	}
}

// writeComputeError maps calculation failures to responses. Provider
// failures are the upstream's fault and surface as 502.
func (h *Handlers) writeComputeError(w http.ResponseWriter, r *http.Request, year int, err error) {
	ctx := r.Context()

	switch {
	case ephemeris.IsUnavailable(err), ephemeris.IsSearchExhausted(err):
		logger.Warn(ctx, "ephemeris failure", slog.Int("year", year), slog.Any("error", err))
		WriteBadGateway(w, fmt.Sprintf("Ephemeris could not resolve year %d", year))
	case errors.Is(err, feasts.ErrInvalidRange):
		WriteBadRequest(w, err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		WriteServiceUnavailable(w, "Request cancelled", "CANCELLED")
	default:
		logger.Error(ctx, "failed to compute feasts", err, slog.Int("year", year))
		WriteInternalError(w, "Failed to compute feasts")
	}
}

// yearParam reads and validates the {year} path parameter, writing a 400
// when it is unusable.
func (h *Handlers) yearParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	year, err := parseYear(chi.URLParam(r, "year"))
	if err != nil {
		WriteBadRequest(w, fmt.Sprintf("Invalid year: %v", err))
		return 0, false
	}
	return year, true
}

// parseYear parses a year and checks it against the supported ephemeris
// range.
func parseYear(s string) (int, error) {
	year, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%q is not a year", s)
	}
	if year < ephemeris.MinYear || year > ephemeris.MaxYear {
		return 0, fmt.Errorf("%d is outside %d..%d", year, ephemeris.MinYear, ephemeris.MaxYear)
	}
	return year, nil
}
