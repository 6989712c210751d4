package handlers

import (
	"net/http"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/hpcwfm/wfm/internal/interfaces"
	"github.com/hpcwfm/wfm/internal/models"
	"github.com/hpcwfm/wfm/internal/orchestrator"
)

// StepHandler handles the step lifecycle HTTP requests
type StepHandler struct {
	orc    *orchestrator.Orchestrator
	store  interfaces.StorageManager
	logger arbor.ILogger
}

// NewStepHandler creates a new step handler
func NewStepHandler(orc *orchestrator.Orchestrator, store interfaces.StorageManager, logger arbor.ILogger) *StepHandler {
	return &StepHandler{
		orc:    orc,
		store:  store,
		logger: logger,
	}
}

type startStepRequest struct {
	SessionName  string            `json:"session_name" validate:"required"`
	StepName     string            `json:"step_name" validate:"required"`
	Replacements map[string]string `json:"replacements"`
}

// StartupHandler handles POST /step/startup
func (h *StepHandler) StartupHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	var req startStepRequest
	if err := DecodeAndValidate(r, &req); err != nil {
		WriteFailure(w, err)
		return
	}

	instance, err := h.orc.StartStep(r.Context(), orchestrator.StartStepRequest{
		SessionName: req.SessionName,
		StepName:    req.StepName,
		Variables:   req.Replacements,
	})
	if err != nil {
		h.logger.Warn().Err(err).
			Str("session", req.SessionName).
			Str("step", req.StepName).
			Msg("Step start failed")
		WriteFailure(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"id":            instance.ID,
		"instance_name": instance.InstanceName,
	})
}

type progressRequest struct {
	JobID    int64  `json:"jobid" validate:"required"`
	Progress string `json:"progress" validate:"required"`
}

// ProgressJobHandler handles POST /step/progress/job: running steps report
// their progress keyed on the batch job id they run under.
func (h *StepHandler) ProgressJobHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	var req progressRequest
	if err := DecodeAndValidate(r, &req); err != nil {
		WriteFailure(w, err)
		return
	}

	instance, err := h.orc.UpdateProgress(r.Context(), "", req.JobID, req.Progress)
	if err != nil {
		WriteFailure(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, instance.InstanceName)
}

// StatusHandler handles GET /step/status/{session} and
// GET /step/status/{session}/{step}.
func (h *StepHandler) StatusHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}
	if err := h.orc.Reconcile(r.Context()); err != nil {
		h.logger.Warn().Err(err).Msg("Reconcile before read failed")
	}

	rest := strings.TrimPrefix(r.URL.Path, "/step/status/")
	parts := strings.SplitN(rest, "/", 2)
	if parts[0] == "" {
		WriteDetail(w, "missing session name")
		return
	}

	views, err := h.orc.StepStatuses(r.Context(), parts[0])
	if err != nil {
		WriteFailure(w, err)
		return
	}

	if len(parts) == 2 && parts[1] != "" {
		filtered := make([]*models.StepStatusView, 0, len(views))
		for _, view := range views {
			if view.StepName == parts[1] {
				filtered = append(filtered, view)
			}
		}
		views = filtered
	}

	WriteJSON(w, http.StatusOK, views)
}

// DescriptionAllHandler handles GET /step/description/all
func (h *StepHandler) DescriptionAllHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	stepds, err := h.store.Steps().GetAllDescriptions(r.Context())
	if err != nil {
		WriteFailure(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, stepds)
}

// DescriptionGetHandler handles GET /step/description/{name}
func (h *StepHandler) DescriptionGetHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	name := strings.TrimPrefix(r.URL.Path, "/step/description/")
	if name == "" {
		WriteDetail(w, "missing step name")
		return
	}

	stepds, err := h.store.Steps().GetAllDescriptions(r.Context())
	if err != nil {
		WriteFailure(w, err)
		return
	}

	matching := make([]*models.StepDescription, 0)
	for _, stepd := range stepds {
		if stepd.Name == name {
			matching = append(matching, stepd)
		}
	}
	if len(matching) == 0 {
		WriteDetail(w, "step %s not found", name)
		return
	}
	WriteJSON(w, http.StatusOK, matching)
}
