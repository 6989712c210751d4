// Package ephemeral implements the per-kind service plugins (SBB, GBF,
// DASI, NONE) that provision and tear down ephemeral storage services
// through the batch system.
package ephemeral

import (
	"fmt"

	"github.com/ternarybob/arbor"

	"github.com/hpcwfm/wfm/internal/common"
	"github.com/hpcwfm/wfm/internal/interfaces"
	"github.com/hpcwfm/wfm/internal/models"
)

// Registry dispatches service operations to the plugin for each kind
type Registry struct {
	plugins map[models.ServiceKind]interfaces.EphemeralService
	order   []models.ServiceKind
}

// NewRegistry creates a registry with the built-in service kinds
func NewRegistry(jm interfaces.JobManager, cfg common.WorkflowConfig, logger arbor.ILogger) *Registry {
	r := &Registry{plugins: make(map[models.ServiceKind]interfaces.EphemeralService)}
	r.register(NewSBB(jm, cfg, logger))
	r.register(NewGBF(jm, cfg, logger))
	r.register(NewDASI(jm, cfg, logger))
	r.register(NewNone(jm, cfg, logger))
	return r
}

func (r *Registry) register(plugin interfaces.EphemeralService) {
	r.plugins[plugin.Kind()] = plugin
	r.order = append(r.order, plugin.Kind())
}

// ForKind returns the plugin for a kind
func (r *Registry) ForKind(kind models.ServiceKind) (interfaces.EphemeralService, error) {
	plugin, ok := r.plugins[kind]
	if !ok {
		return nil, fmt.Errorf("%w: unknown service kind %q", models.ErrNotSupported, kind)
	}
	return plugin, nil
}

// Kinds lists the registered kinds in registration order
func (r *Registry) Kinds() []models.ServiceKind {
	return r.order
}
