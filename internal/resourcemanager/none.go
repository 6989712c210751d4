package resourcemanager

import (
	"context"

	"github.com/ternarybob/arbor"

	"github.com/hpcwfm/wfm/internal/interfaces"
	"github.com/hpcwfm/wfm/internal/models"
)

// None admits every reservation and answers catalog queries from the job
// manager's partition listing.
type None struct {
	jm     interfaces.JobManager
	logger arbor.ILogger
}

// NewNone creates the NONE resource manager
func NewNone(jm interfaces.JobManager, logger arbor.ILogger) *None {
	return &None{jm: jm, logger: logger}
}

// Reserve admits every request
func (n *None) Reserve(ctx context.Context, req *models.ReservationRequest) error {
	if req != nil {
		n.logger.Debug().Str("service", req.Name).Msg("Reservation admitted (no resource manager)")
	}
	return nil
}

// ListLocations falls back to the batch system's partitions
func (n *None) ListLocations(ctx context.Context) ([]string, error) {
	partitions, err := n.jm.ListPartitions(ctx)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(partitions))
	for _, p := range partitions {
		names = append(names, p.Name)
	}
	return names, nil
}

// ListFlavors falls back to the batch system's partitions
func (n *None) ListFlavors(ctx context.Context) ([]string, error) {
	return n.ListLocations(ctx)
}
