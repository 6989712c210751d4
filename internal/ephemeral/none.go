package ephemeral

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"

	"github.com/hpcwfm/wfm/internal/common"
	"github.com/hpcwfm/wfm/internal/interfaces"
	"github.com/hpcwfm/wfm/internal/models"
)

// None implements "no ephemeral service": starts and stops are no-ops and
// the use path simply enriches the step command with the batch options and
// submits it.
type None struct {
	base
}

// NewNone creates the NONE plugin
func NewNone(jm interfaces.JobManager, cfg common.WorkflowConfig, logger arbor.ILogger) *None {
	return &None{base{jm: jm, cfg: cfg, logger: logger}}
}

func (p *None) Kind() models.ServiceKind { return models.ServiceKindNone }

func (p *None) MandatoryAttributes() []string { return nil }

func (p *None) OptionalAttributes() []string { return []string{attrLocation} }

func (p *None) ValidateAttributes(svc *models.WorkflowService) error { return nil }

func (p *None) ValidateSet(svcs []*models.WorkflowService) error { return nil }

func (p *None) PrepareAttributes(svc *models.WorkflowService) error { return nil }

// StartSync is a no-op: there is nothing to provision
func (p *None) StartSync(ctx context.Context, svc *models.Service, workflow, runID string) error {
	return nil
}

// StartAsync is never meaningful for NONE services; callers use StartSync
func (p *None) StartAsync(ctx context.Context, svc *models.Service, workflow, runID string) (int64, error) {
	return 0, fmt.Errorf("%w: NONE services are not started asynchronously", models.ErrNotSupported)
}

// StopSync is a no-op
func (p *None) StopSync(ctx context.Context, name string, startJobID int64, partition, workflow, runID string) error {
	return nil
}

// StopAsync is a no-op reporting "already stopped"
func (p *None) StopAsync(ctx context.Context, name string, startJobID int64, partition, workflow, runID string) (int64, error) {
	return 0, nil
}

// ProbeStatus leaves the stored status alone
func (p *None) ProbeStatus(ctx context.Context, svc *models.Service) (models.ServiceStatus, error) {
	return models.ServiceStatusUnknown, nil
}

// CleanupTempFiles has nothing to remove
func (p *None) CleanupTempFiles(name string) error { return nil }

// UseCommand builds a plain interactive shell on the partition
func (p *None) UseCommand(name, partition string) (string, error) {
	return fmt.Sprintf("srun --partition=%s --pty bash", p.partitionFor(partition)), nil
}

// SubmitStep enriches the step command with the batch options and submits it
func (p *None) SubmitStep(ctx context.Context, svc *models.Service, instance *models.StepInstance, opts models.JobOptions) (int64, error) {
	return p.submitStep(ctx, svc, instance, opts, nil)
}

// FillReservation returns no request: NONE services reserve nothing
func (p *None) FillReservation(svc *models.Service, user string) (*models.ReservationRequest, error) {
	return nil, nil
}
