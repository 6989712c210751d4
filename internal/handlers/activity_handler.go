package handlers

import (
	"net/http"
	"strconv"

	"github.com/ternarybob/arbor"

	"github.com/hpcwfm/wfm/internal/interfaces"
)

// ActivityHandler serves the append-only audit trail
type ActivityHandler struct {
	store  interfaces.StorageManager
	logger arbor.ILogger
}

// NewActivityHandler creates a new activity handler
func NewActivityHandler(store interfaces.StorageManager, logger arbor.ILogger) *ActivityHandler {
	return &ActivityHandler{
		store:  store,
		logger: logger,
	}
}

// RecentHandler handles GET /activity/recent?limit=N
func (h *ActivityHandler) RecentHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	limit := 100
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}

	entries, err := h.store.Activity().GetRecent(r.Context(), limit)
	if err != nil {
		WriteFailure(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, entries)
}
