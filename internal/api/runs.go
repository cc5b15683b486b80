package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/bcaengine/bcaengine/internal/ingestion"
	"github.com/bcaengine/bcaengine/internal/runlog"
	"github.com/bcaengine/bcaengine/pkg/bca"
)

// processRequest is the JSON body for POST /internal/process. Inputs must
// already be stored under the run id.
type processRequest struct {
	RunID            string `json:"run_id"`
	ScenarioBaseline string `json:"scenario_baseline"`
	DiscountYear     int    `json:"discount_year"`
}

type processResponse struct {
	Status string      `json:"status"`
	RunID  string      `json:"run_id"`
	Result *bca.Result `json:"result"`
}

func (h *Handler) handleProcess(w http.ResponseWriter, r *http.Request) {
	var req processRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.RunID == "" {
		writeError(w, http.StatusBadRequest, "run_id is required")
		return
	}
	if err := ingestion.ValidateRunID(req.RunID); err != nil {
		writeError(w, http.StatusBadRequest, "run_id must be a run UUID")
		return
	}

	res, err := h.proc.Process(r.Context(), ingestion.RunRequest{
		RunID:        req.RunID,
		Baseline:     req.ScenarioBaseline,
		DiscountYear: req.DiscountYear,
	})
	if err != nil {
		h.log.Error().Err(err).Str("run_id", req.RunID).Msg("process failed")
		writeError(w, statusFor(err), "processing failed: "+err.Error())
		return
	}

	writeJSON(w, http.StatusOK, processResponse{Status: "completed", RunID: req.RunID, Result: res})
}

func (h *Handler) handleListRuns(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	runs, err := h.runs.List(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list runs: "+err.Error())
		return
	}
	if runs == nil {
		runs = []runlog.Run{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": runs})
}

// runIDParam reads and validates the runID path parameter, writing a 400 when
// it is not a run UUID.
func runIDParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	runID := chi.URLParam(r, "runID")
	if err := ingestion.ValidateRunID(runID); err != nil {
		writeError(w, http.StatusBadRequest, "invalid run id")
		return "", false
	}
	return runID, true
}

func (h *Handler) handleGetRun(w http.ResponseWriter, r *http.Request) {
	runID, ok := runIDParam(w, r)
	if !ok {
		return
	}
	run, err := h.runs.Get(r.Context(), runID)
	if errors.Is(err, runlog.ErrNotFound) {
		writeError(w, http.StatusNotFound, "run not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load run: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, run)
}

// handleGetOutput serves one output table as CSV, checking the cache first.
func (h *Handler) handleGetOutput(w http.ResponseWriter, r *http.Request) {
	runID, ok := runIDParam(w, r)
	if !ok {
		return
	}
	name := chi.URLParam(r, "name")
	if err := ingestion.ValidateTableName(name); err != nil {
		writeError(w, http.StatusBadRequest, "invalid output name")
		return
	}

	data := h.cache.Get(runID, name)
	if data == nil {
		var err error
		data, err = h.storage.Get(r.Context(), runID, ingestion.KindOutputs, name)
		if errors.Is(err, ingestion.ErrNotFound) {
			writeError(w, http.StatusNotFound, "output not found")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to load output: "+err.Error())
			return
		}
		h.cache.Put(runID, name, data)
	}

	w.Header().Set("Content-Type", "text/csv")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (h *Handler) handleListOutputs(w http.ResponseWriter, r *http.Request) {
	runID, ok := runIDParam(w, r)
	if !ok {
		return
	}
	names, err := h.storage.List(r.Context(), runID, ingestion.KindOutputs)
	if err != nil {
		writeError(w, statusFor(err), "failed to list outputs: "+err.Error())
		return
	}
	if names == nil {
		names = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"run_id": runID, "outputs": names})
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	if h.ping != nil {
		if err := h.ping(r.Context()); err != nil {
			writeError(w, http.StatusServiceUnavailable, "database unreachable")
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
