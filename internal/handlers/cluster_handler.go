package handlers

import (
	"net/http"

	"github.com/ternarybob/arbor"

	"github.com/hpcwfm/wfm/internal/interfaces"
)

// ClusterHandler answers the cluster catalog queries backed by the job
// manager and the resource manager.
type ClusterHandler struct {
	jm     interfaces.JobManager
	rm     interfaces.ResourceManager
	logger arbor.ILogger
}

// NewClusterHandler creates a new cluster handler
func NewClusterHandler(jm interfaces.JobManager, rm interfaces.ResourceManager, logger arbor.ILogger) *ClusterHandler {
	return &ClusterHandler{
		jm:     jm,
		rm:     rm,
		logger: logger,
	}
}

// PartitionsHandler handles GET /cluster/partitions
func (h *ClusterHandler) PartitionsHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	partitions, err := h.jm.ListPartitions(r.Context())
	if err != nil {
		WriteFailure(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, partitions)
}

// LocationsHandler handles GET /cluster/locations
func (h *ClusterHandler) LocationsHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	locations, err := h.rm.ListLocations(r.Context())
	if err != nil {
		WriteFailure(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, locations)
}

// FlavorsHandler handles GET /cluster/flavors
func (h *ClusterHandler) FlavorsHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	flavors, err := h.rm.ListFlavors(r.Context())
	if err != nil {
		WriteFailure(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, flavors)
}
