package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/indexpilot/indexpilot/internal/pipeline"
	"github.com/indexpilot/indexpilot/internal/queue"
	"github.com/indexpilot/indexpilot/internal/store"
)

func (s *Server) syncWebsite(w http.ResponseWriter, r *http.Request) {
	websiteID, ok := pathID(w, r, "website_id")
	if !ok {
		return
	}
	if _, err := s.store.GetWebsiteByID(r.Context(), websiteID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "website not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to load website")
		return
	}
	if err := s.queue.AddJob(websiteID, pipeline.OriginManual); err != nil {
		if errors.Is(err, queue.ErrQueueFull) {
			writeError(w, http.StatusServiceUnavailable, "job queue is full, try again later")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to enqueue sync")
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{
		"website_id": websiteID,
		"status":     "queued",
	})
}

func (s *Server) getStats(w http.ResponseWriter, r *http.Request) {
	websiteID, ok := pathID(w, r, "website_id")
	if !ok {
		return
	}
	stats, err := s.store.GetIndexingStats(r.Context(), websiteID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load indexing stats")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) listPages(w http.ResponseWriter, r *http.Request) {
	websiteID, ok := pathID(w, r, "website_id")
	if !ok {
		return
	}
	pages, err := s.store.GetPagesByWebsiteID(r.Context(), websiteID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load pages")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"pages": pages, "total": len(pages)})
}

func (s *Server) submitPage(w http.ResponseWriter, r *http.Request) {
	websiteID, ok := pathID(w, r, "website_id")
	if !ok {
		return
	}
	pageID, ok := pathID(w, r, "page_id")
	if !ok {
		return
	}
	resp, err := s.submitter.SubmitPage(r.Context(), websiteID, pageID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "page not found")
			return
		}
		s.logger.Error("manual page submission failed",
			zap.Int64("website_id", websiteID),
			zap.Int64("page_id", pageID),
			zap.Error(err),
		)
		writeError(w, http.StatusBadGateway, "submission failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"url":         resp.URL,
		"type":        resp.Type,
		"notify_time": resp.NotifyTime,
	})
}

func (s *Server) getJob(w http.ResponseWriter, r *http.Request) {
	jobID, ok := pathID(w, r, "job_id")
	if !ok {
		return
	}
	job, err := s.store.GetIndexingJob(r.Context(), jobID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "job not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to load job")
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func pathID(w http.ResponseWriter, r *http.Request, param string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, param), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid "+param)
		return 0, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
