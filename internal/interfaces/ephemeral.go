package interfaces

import (
	"context"

	"github.com/hpcwfm/wfm/internal/models"
)

// EphemeralService is the per-kind plugin contract for provisioning and
// tearing down an ephemeral storage service around a computation.
type EphemeralService interface {
	Kind() models.ServiceKind

	// MandatoryAttributes and OptionalAttributes list the attribute keys
	// the validator admits for this kind.
	MandatoryAttributes() []string
	OptionalAttributes() []string

	// ValidateAttributes checks kind-specific attribute constraints for one
	// declared service.
	ValidateAttributes(svc *models.WorkflowService) error

	// ValidateSet checks cross-service constraints over all declared
	// services of this kind (distinct mountpoints, namespaces, configs).
	ValidateSet(svcs []*models.WorkflowService) error

	// PrepareAttributes rewrites declared attributes before provisioning.
	// Most kinds leave them alone; DASI derives the mountpoint from its
	// config file and appends a per-mountpoint hash to the namespace.
	PrepareAttributes(svc *models.WorkflowService) error

	// StartSync runs the service creation to completion; on success the
	// service is considered ALLOCATED.
	StartSync(ctx context.Context, svc *models.Service, workflow, runID string) error

	// StartAsync submits the service creation and returns its batch job id;
	// the service is WAITING until the reconciler observes otherwise.
	StartAsync(ctx context.Context, svc *models.Service, workflow, runID string) (int64, error)

	// StopSync and StopAsync tear the service down. startJobID <= 0 means
	// the teardown has no creation job to depend on.
	StopSync(ctx context.Context, name string, startJobID int64, partition, workflow, runID string) error
	StopAsync(ctx context.Context, name string, startJobID int64, partition, workflow, runID string) (int64, error)

	// ProbeStatus queries the current service status from the cluster.
	// UNKNOWN (with no error) means the probe could not tell; the stored
	// status is then left alone.
	ProbeStatus(ctx context.Context, svc *models.Service) (models.ServiceStatus, error)

	// CleanupTempFiles removes the batch specification files written for
	// the service.
	CleanupTempFiles(name string) error

	// UseCommand builds the shell command a user pastes to enter an
	// interactive session using the service.
	UseCommand(name, partition string) (string, error)

	// SubmitStep enriches the instance command with the batch options for
	// this service (dependency on the creation job included) and submits
	// it, returning the job id. svc is nil for the NONE kind.
	SubmitStep(ctx context.Context, svc *models.Service, instance *models.StepInstance, opts models.JobOptions) (int64, error)

	// FillReservation builds the resource-manager admission request.
	FillReservation(svc *models.Service, user string) (*models.ReservationRequest, error)
}

// ServiceRegistry resolves the plugin for a service kind
type ServiceRegistry interface {
	// ForKind returns the plugin for the kind, or an ErrNotSupported error.
	ForKind(kind models.ServiceKind) (EphemeralService, error)
	Kinds() []models.ServiceKind
}
