// Package api implements the bcaengine HTTP API.
// It accepts run submissions and serves the run log and stored output tables.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/bcaengine/bcaengine/internal/ingestion"
	"github.com/bcaengine/bcaengine/internal/runlog"
	"github.com/bcaengine/bcaengine/pkg/bca"
	"github.com/bcaengine/bcaengine/pkg/combine"
	"github.com/bcaengine/bcaengine/pkg/factors"
	"github.com/bcaengine/bcaengine/pkg/record"
	"github.com/bcaengine/bcaengine/pkg/social"
)

// Processor runs the pipeline for a stored run. *ingestion.Service implements it.
type Processor interface {
	Process(ctx context.Context, req ingestion.RunRequest) (*bca.Result, error)
}

// RunReader reads the run log. *runlog.Store implements it.
type RunReader interface {
	Get(ctx context.Context, id string) (*runlog.Run, error)
	List(ctx context.Context, limit int) ([]runlog.Run, error)
}

// Handler is the top-level API handler for the hosted service.
type Handler struct {
	proc    Processor
	runs    RunReader
	storage ingestion.StorageClient
	cache   *OutputCache
	ping    func(context.Context) error
	log     zerolog.Logger
}

// NewHandler creates a new API handler. ping backs the health check and may be nil.
func NewHandler(proc Processor, runs RunReader, storage ingestion.StorageClient, cache *OutputCache, ping func(context.Context) error, log zerolog.Logger) *Handler {
	if cache == nil {
		cache = NewOutputCacheFromEnv()
	}
	return &Handler{
		proc:    proc,
		runs:    runs,
		storage: storage,
		cache:   cache,
		ping:    ping,
		log:     log,
	}
}

// Router returns the routes with the middleware stack applied. When apiKey is
// non-empty the processing endpoint requires it.
func (h *Handler) Router(apiKey string) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(RequestLogger(h.log))
	r.Use(CORS())

	r.Get("/healthz", h.handleHealth)

	// Write endpoints (auth-protected)
	r.With(APIKeyAuth(apiKey)).Post("/internal/process", h.handleProcess)

	// Read endpoints
	r.Route("/api/runs", func(r chi.Router) {
		r.Get("/", h.handleListRuns)
		r.Get("/{runID}", h.handleGetRun)
		r.Get("/{runID}/outputs", h.handleListOutputs)
		r.Get("/{runID}/outputs/{name}", h.handleGetOutput)
	})
	return r
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(data)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// statusFor maps pipeline errors to HTTP status codes. Bad table references
// are 400, errors caused by the submitted tables are 422, and everything else
// is a server failure.
func statusFor(err error) int {
	var (
		schema   *record.SchemaError
		factor   *factors.MissingFactorError
		baseline *social.MissingBaselineError
		scenario *combine.InconsistentScenarioError
	)
	switch {
	case errors.As(err, &schema), errors.As(err, &factor),
		errors.As(err, &baseline), errors.As(err, &scenario):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ingestion.ErrInvalidName):
		return http.StatusBadRequest
	case errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}
