package server

import (
	"net/http"
)

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	// Session lifecycle
	mux.HandleFunc("/session/startup", s.app.SessionHandler.StartupHandler)
	mux.HandleFunc("/session/stop", s.app.SessionHandler.StopHandler)
	mux.HandleFunc("/session/forcedstop", s.app.SessionHandler.ForcedStopHandler)
	mux.HandleFunc("/session/access", s.app.SessionHandler.AccessHandler)
	mux.HandleFunc("/session/all", s.app.SessionHandler.ListHandler)
	mux.HandleFunc("/session/alldetailed", s.app.SessionHandler.ListDetailedHandler)
	mux.HandleFunc("/session/", s.app.SessionHandler.GetHandler) // GET /session/{name}

	// Steps
	mux.HandleFunc("/step/startup", s.app.StepHandler.StartupHandler)
	mux.HandleFunc("/step/progress/job", s.app.StepHandler.ProgressJobHandler)
	mux.HandleFunc("/step/status/", s.app.StepHandler.StatusHandler) // GET /step/status/{session}[/{step}]
	mux.HandleFunc("/step/description/all", s.app.StepHandler.DescriptionAllHandler)
	mux.HandleFunc("/step/description/", s.app.StepHandler.DescriptionGetHandler)

	// Services
	mux.HandleFunc("/service/all", s.app.ServiceHandler.ListHandler)
	mux.HandleFunc("/service/", s.app.ServiceHandler.GetHandler) // GET /service/{name}

	// Cluster catalogs
	mux.HandleFunc("/cluster/partitions", s.app.ClusterHandler.PartitionsHandler)
	mux.HandleFunc("/cluster/locations", s.app.ClusterHandler.LocationsHandler)
	mux.HandleFunc("/cluster/flavors", s.app.ClusterHandler.FlavorsHandler)

	// Audit trail
	mux.HandleFunc("/activity/recent", s.app.ActivityHandler.RecentHandler)

	// System
	mux.HandleFunc("/api/version", s.app.APIHandler.VersionHandler)
	mux.HandleFunc("/api/health", s.app.APIHandler.HealthHandler)

	// 404 handler for everything unmatched
	mux.HandleFunc("/", s.handleRoot)

	return mux
}

// handleRoot answers the root path and unmatched routes
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path == "/" {
		s.app.APIHandler.HealthHandler(w, r)
		return
	}
	s.app.APIHandler.NotFoundHandler(w, r)
}
