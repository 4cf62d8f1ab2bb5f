package trigger

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	ierr "github.com/demandradar/engine/internal/core/errors"
)

// Register mounts the trigger entry points on the given mux:
//
//	POST /run/dedup
//	POST /run/cluster?force=true
//	GET  /report?limit=10&min_sources=2
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/run/dedup", h.handleDedup)
	mux.HandleFunc("/run/cluster", h.handleCluster)
	mux.HandleFunc("/report", h.handleReport)
}

func (h *Handler) handleDedup(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeResult(w, http.StatusMethodNotAllowed, fail(errors.New("method not allowed")))
		return
	}

	result := h.RunDeduplication(r.Context())
	writeResult(w, statusFor(result), result)
}

func (h *Handler) handleCluster(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeResult(w, http.StatusMethodNotAllowed, fail(errors.New("method not allowed")))
		return
	}

	force := r.URL.Query().Get("force") == "true"

	result := h.RunClustering(r.Context(), force)
	writeResult(w, statusFor(result), result)
}

func (h *Handler) handleReport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeResult(w, http.StatusMethodNotAllowed, fail(errors.New("method not allowed")))
		return
	}

	limit, err := queryInt(r, "limit")
	if err != nil {
		writeResult(w, http.StatusBadRequest, fail(ierr.ErrInvalidLimit))
		return
	}

	minSources, err := queryInt(r, "min_sources")
	if err != nil {
		writeResult(w, http.StatusBadRequest, fail(ierr.ErrInvalidMinSources))
		return
	}

	if limit < 0 {
		writeResult(w, http.StatusBadRequest, fail(ierr.ErrInvalidLimit))
		return
	}

	if minSources < 0 {
		writeResult(w, http.StatusBadRequest, fail(ierr.ErrInvalidMinSources))
		return
	}

	result := h.GetClusterReport(r.Context(), limit, minSources)
	writeResult(w, statusFor(result), result)
}

func queryInt(r *http.Request, key string) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return 0, nil
	}

	return strconv.Atoi(raw)
}

func statusFor(result Result) int {
	if result.Success {
		return http.StatusOK
	}

	return http.StatusInternalServerError
}

func writeResult(w http.ResponseWriter, status int, result Result) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	_ = json.NewEncoder(w).Encode(result)
}
