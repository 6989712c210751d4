// Package resourcemanager implements reservation admission for ephemeral
// services, either against a remote resource-manager HTTP API or as the
// NONE fallback that admits everything.
package resourcemanager

import (
	"fmt"

	"github.com/ternarybob/arbor"

	"github.com/hpcwfm/wfm/internal/common"
	"github.com/hpcwfm/wfm/internal/interfaces"
	"github.com/hpcwfm/wfm/internal/models"
)

// New creates the resource manager configured in cfg. Unknown types are
// refused.
func New(cfg common.ResourceManagerConfig, jm interfaces.JobManager, logger arbor.ILogger) (interfaces.ResourceManager, error) {
	switch cfg.Type {
	case "none", "":
		return NewNone(jm, logger), nil
	case "http":
		return NewClient(cfg, logger), nil
	default:
		return nil, fmt.Errorf("%w: unknown resource manager type %q", models.ErrNotSupported, cfg.Type)
	}
}
