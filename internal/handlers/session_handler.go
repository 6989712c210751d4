package handlers

import (
	"net/http"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/hpcwfm/wfm/internal/interfaces"
	"github.com/hpcwfm/wfm/internal/models"
	"github.com/hpcwfm/wfm/internal/orchestrator"
)

// SessionHandler handles the session lifecycle HTTP requests
type SessionHandler struct {
	orc    *orchestrator.Orchestrator
	store  interfaces.StorageManager
	logger arbor.ILogger
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(orc *orchestrator.Orchestrator, store interfaces.StorageManager, logger arbor.ILogger) *SessionHandler {
	return &SessionHandler{
		orc:    orc,
		store:  store,
		logger: logger,
	}
}

type startSessionRequest struct {
	WorkflowDescriptionFile string            `json:"workflow_description_file"`
	WorkflowDescription     string            `json:"workflow_description" validate:"required"`
	SyncStart               bool              `json:"sync_start"`
	SessionName             string            `json:"session_name" validate:"required"`
	UserName                string            `json:"user_name" validate:"required"`
	Replacements            map[string]string `json:"replacements"`
}

// StartupHandler handles POST /session/startup
func (h *SessionHandler) StartupHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	var req startSessionRequest
	if err := DecodeAndValidate(r, &req); err != nil {
		WriteFailure(w, err)
		return
	}

	session, err := h.orc.StartSession(r.Context(), orchestrator.StartSessionRequest{
		SessionName: req.SessionName,
		User:        req.UserName,
		FileName:    req.WorkflowDescriptionFile,
		Description: req.WorkflowDescription,
		Variables:   req.Replacements,
		Synchronous: req.SyncStart,
	})
	if err != nil {
		h.logger.Warn().Err(err).Str("session", req.SessionName).Msg("Session start failed")
		WriteFailure(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, []*models.Session{session})
}

type stopSessionRequest struct {
	SyncStop    bool   `json:"sync_stop"`
	SessionName string `json:"session_name" validate:"required"`
}

// StopHandler handles POST /session/stop, the graceful stop
func (h *SessionHandler) StopHandler(w http.ResponseWriter, r *http.Request) {
	h.stop(w, r, false)
}

// ForcedStopHandler handles POST /session/forcedstop: running step
// instances are cancelled before the teardown.
func (h *SessionHandler) ForcedStopHandler(w http.ResponseWriter, r *http.Request) {
	h.stop(w, r, true)
}

func (h *SessionHandler) stop(w http.ResponseWriter, r *http.Request, forced bool) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	var req stopSessionRequest
	if err := DecodeAndValidate(r, &req); err != nil {
		WriteFailure(w, err)
		return
	}

	_, err := h.orc.StopSession(r.Context(), orchestrator.StopSessionRequest{
		SessionName: req.SessionName,
		Forced:      forced,
		Synchronous: req.SyncStop,
	})
	if err != nil {
		h.logger.Warn().Err(err).Str("session", req.SessionName).Msg("Session stop failed")
		WriteFailure(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, 0)
}

type accessSessionRequest struct {
	SessionName string   `json:"session_name" validate:"required"`
	Services    []string `json:"services"`
}

// AccessHandler handles POST /session/access: it answers the shell command
// for an interactive allocation using one service of the session.
func (h *SessionHandler) AccessHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	var req accessSessionRequest
	if err := DecodeAndValidate(r, &req); err != nil {
		WriteFailure(w, err)
		return
	}
	if len(req.Services) == 0 {
		WriteDetail(w, "session %s: no service named for access", req.SessionName)
		return
	}
	if len(req.Services) > 1 {
		WriteDetail(w, "session %s: access supports a single service, %d named", req.SessionName, len(req.Services))
		return
	}

	command, err := h.orc.AccessSession(r.Context(), req.SessionName, req.Services[0])
	if err != nil {
		WriteFailure(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, command)
}

// ListHandler handles GET /session/all. Stopped sessions awaiting cleanup
// are omitted.
func (h *SessionHandler) ListHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}
	h.reconcile(r)

	sessions, err := h.store.Sessions().GetAll(r.Context(), r.URL.Query().Get("user"))
	if err != nil {
		WriteFailure(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, liveSessions(sessions))
}

// ListDetailedHandler handles GET /session/alldetailed
func (h *SessionHandler) ListDetailedHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}
	h.reconcile(r)

	sessions, err := h.store.Sessions().GetAll(r.Context(), r.URL.Query().Get("user"))
	if err != nil {
		WriteFailure(w, err)
		return
	}

	details := make([]*models.SessionDetail, 0)
	for _, session := range liveSessions(sessions) {
		services, err := h.store.Services().GetBySession(r.Context(), session.ID)
		if err != nil {
			WriteFailure(w, err)
			return
		}
		stepds, err := h.store.Steps().GetDescriptionsBySession(r.Context(), session.ID)
		if err != nil {
			WriteFailure(w, err)
			return
		}
		details = append(details, &models.SessionDetail{
			Session:          *session,
			Services:         services,
			StepDescriptions: stepds,
		})
	}

	WriteJSON(w, http.StatusOK, details)
}

// GetHandler handles GET /session/{name}
func (h *SessionHandler) GetHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}
	h.reconcile(r)

	name := strings.TrimPrefix(r.URL.Path, "/session/")
	if name == "" {
		WriteDetail(w, "missing session name")
		return
	}

	sessions, err := h.store.Sessions().GetByName(r.Context(), name, "")
	if err != nil {
		WriteFailure(w, err)
		return
	}

	live := liveSessions(sessions)
	if len(live) == 0 {
		WriteDetail(w, "session %s not found", name)
		return
	}
	WriteJSON(w, http.StatusOK, live)
}

// reconcile refreshes the stored state before a read. Failures are logged
// and the last-known state is served.
func (h *SessionHandler) reconcile(r *http.Request) {
	if err := h.orc.Reconcile(r.Context()); err != nil {
		h.logger.Warn().Err(err).Msg("Reconcile before read failed")
	}
}

// liveSessions filters out stopped sessions awaiting cleanup
func liveSessions(sessions []*models.Session) []*models.Session {
	live := make([]*models.Session, 0, len(sessions))
	for _, s := range sessions {
		if s.Status != models.SessionStatusStopped {
			live = append(live, s)
		}
	}
	return live
}
