package interfaces

import (
	"context"

	"github.com/hpcwfm/wfm/internal/models"
)

// ResourceManager admits reservations for ephemeral services and exposes the
// location/flavor catalog. A refused reservation aborts the service start.
type ResourceManager interface {
	Reserve(ctx context.Context, req *models.ReservationRequest) error
	ListLocations(ctx context.Context) ([]string, error)
	ListFlavors(ctx context.Context) ([]string, error)
}
