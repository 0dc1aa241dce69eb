package gateway

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/CosmoTheDev/ctrlgrade/internal/repository"
	"github.com/CosmoTheDev/ctrlgrade/internal/store"
	"github.com/CosmoTheDev/ctrlgrade/models"
)

// buildHandler wires all REST and SSE routes onto a new ServeMux.
// Uses Go 1.22+ method-prefixed patterns ("GET /path", "POST /path").
func buildHandler(gw *Gateway) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", gw.handleRoot)

	// Health / status
	mux.HandleFunc("GET /health", gw.handleHealth)
	mux.HandleFunc("GET /api/status", gw.handleStatus)

	// Analyses
	mux.HandleFunc("POST /api/analyses", gw.handleCreateAnalysis)
	mux.HandleFunc("GET /api/analyses", gw.handleListAnalyses)
	mux.HandleFunc("GET /api/analyses/{id}", gw.handleGetAnalysis)
	mux.HandleFunc("GET /api/analyses/{id}/report", gw.handleGetReport)
	mux.HandleFunc("DELETE /api/analyses/{id}", gw.handleDeleteAnalysis)

	// Schedule management
	mux.HandleFunc("GET /api/schedules", gw.handleListSchedules)
	mux.HandleFunc("POST /api/schedules", gw.handleCreateSchedule)
	mux.HandleFunc("DELETE /api/schedules/{id}", gw.handleDeleteSchedule)
	mux.HandleFunc("POST /api/schedules/{id}/trigger", gw.handleTriggerSchedule)

	// Operations
	mux.HandleFunc("GET /api/config", gw.handleGetConfig)
	mux.HandleFunc("GET /api/logs", gw.handleLogs)

	// Server-Sent Events stream
	mux.HandleFunc("GET /events", gw.handleEvents)

	return mux
}

func (gw *Gateway) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":   "ctrlgrade gateway",
		"status": "running",
		"endpoints": []string{
			"GET /health",
			"GET /api/status",
			"POST /api/analyses",
			"GET /api/analyses",
			"GET /api/analyses/{id}",
			"GET /api/analyses/{id}/report",
			"DELETE /api/analyses/{id}",
			"GET /api/schedules",
			"POST /api/schedules",
			"DELETE /api/schedules/{id}",
			"POST /api/schedules/{id}/trigger",
			"GET /api/config",
			"GET /api/logs",
			"GET /events",
		},
	})
}

func (gw *Gateway) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (gw *Gateway) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, gw.currentStatus(r.Context()))
}

type analysisRequest struct {
	URL string `json:"url"`
}

func (gw *Gateway) handleCreateAnalysis(w http.ResponseWriter, r *http.Request) {
	var req analysisRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.URL) == "" {
		writeError(w, http.StatusBadRequest, "url is required")
		return
	}
	job, err := gw.enqueue(r.Context(), req.URL, store.SourceAPI)
	if errors.Is(err, repository.ErrUnsupportedTarget) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "enqueue failed")
		return
	}
	writeJSON(w, http.StatusAccepted, job)
}

func (gw *Gateway) handleListAnalyses(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	status := strings.TrimSpace(q.Get("status"))
	switch status {
	case "", models.JobPending, models.JobRunning, models.JobCompleted, models.JobFailed:
	default:
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid status %q", status))
		return
	}
	p := parsePaginationParams(r, 50, 500)
	jobs, err := gw.store.ListJobs(r.Context(), store.ListOptions{
		Status: status,
		Kind:   strings.TrimSpace(q.Get("kind")),
		Limit:  p.PageSize,
		Offset: p.Offset,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "query failed")
		return
	}
	if jobs == nil {
		jobs = []models.AnalysisJob{}
	}
	writeJSON(w, http.StatusOK, paginationResult[models.AnalysisJob]{
		Items:    jobs,
		Page:     p.Page,
		PageSize: p.PageSize,
	})
}

func (gw *Gateway) handleGetAnalysis(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	job, err := gw.store.GetJob(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "analysis not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "query failed")
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (gw *Gateway) handleGetReport(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	report, err := gw.store.GetReport(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		job, jerr := gw.store.GetJob(r.Context(), id)
		switch {
		case errors.Is(jerr, store.ErrNotFound):
			writeError(w, http.StatusNotFound, "analysis not found")
		case jerr == nil && (job.Status == models.JobPending || job.Status == models.JobRunning):
			writeError(w, http.StatusConflict, "analysis is "+job.Status)
		default:
			writeError(w, http.StatusNotFound, "no report for this analysis")
		}
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "query failed")
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (gw *Gateway) handleDeleteAnalysis(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	err = gw.store.DeleteJob(r.Context(), id)
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "analysis not found")
		return
	case errors.Is(err, store.ErrJobRunning):
		writeError(w, http.StatusConflict, "analysis is running")
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, "delete failed")
		return
	}
	gw.broadcaster.send(SSEEvent{Type: EventAnalysisDeleted, Payload: map[string]any{"id": id}})
	w.WriteHeader(http.StatusNoContent)
}

func (gw *Gateway) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	gw.mu.RLock()
	cfgCopy := redactConfig(*gw.cfg)
	cfgPath := gw.configPath
	gw.mu.RUnlock()
	writeJSON(w, http.StatusOK, map[string]any{
		"path":   cfgPath,
		"config": cfgCopy,
	})
}

func (gw *Gateway) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // disable nginx buffering if behind a proxy

	ch := gw.broadcaster.subscribe()
	defer gw.broadcaster.unsubscribe(ch)

	// Initial connected event carries the current status.
	if f, err := frame(SSEEvent{Type: EventConnected, Payload: gw.currentStatus(r.Context())}); err == nil {
		_, _ = w.Write(f)
	}
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case f, ok := <-ch:
			if !ok {
				return
			}
			_, _ = w.Write(f)
			flusher.Flush()
		}
	}
}
