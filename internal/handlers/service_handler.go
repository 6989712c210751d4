package handlers

import (
	"net/http"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/hpcwfm/wfm/internal/interfaces"
)

// ServiceHandler handles the ephemeral-service listing HTTP requests
type ServiceHandler struct {
	store  interfaces.StorageManager
	logger arbor.ILogger
}

// NewServiceHandler creates a new service handler
func NewServiceHandler(store interfaces.StorageManager, logger arbor.ILogger) *ServiceHandler {
	return &ServiceHandler{
		store:  store,
		logger: logger,
	}
}

// ListHandler handles GET /service/all
func (h *ServiceHandler) ListHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	services, err := h.store.Services().GetAll(r.Context())
	if err != nil {
		WriteFailure(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, services)
}

// GetHandler handles GET /service/{name}
func (h *ServiceHandler) GetHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	name := strings.TrimPrefix(r.URL.Path, "/service/")
	if name == "" {
		WriteDetail(w, "missing service name")
		return
	}

	services, err := h.store.Services().GetByName(r.Context(), name)
	if err != nil {
		WriteFailure(w, err)
		return
	}
	if len(services) == 0 {
		WriteDetail(w, "service %s not found", name)
		return
	}
	WriteJSON(w, http.StatusOK, services)
}
