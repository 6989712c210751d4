package ephemeral

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"

	"github.com/hpcwfm/wfm/internal/common"
	"github.com/hpcwfm/wfm/internal/interfaces"
	"github.com/hpcwfm/wfm/internal/models"
)

// SBB provisions Slurm burst buffers through persistent-buffer batch
// specifications.
type SBB struct {
	base
}

// NewSBB creates the SBB plugin
func NewSBB(jm interfaces.JobManager, cfg common.WorkflowConfig, logger arbor.ILogger) *SBB {
	return &SBB{base{jm: jm, cfg: cfg, logger: logger}}
}

func (p *SBB) Kind() models.ServiceKind { return models.ServiceKindSBB }

func (p *SBB) MandatoryAttributes() []string {
	return []string{attrTargets, attrFlavor}
}

func (p *SBB) OptionalAttributes() []string {
	return []string{attrStorageSize, attrDataNodes, attrLocation}
}

// ValidateAttributes checks SBB-specific constraints: every target is an
// absolute path and the optional storage size is well-formed.
func (p *SBB) ValidateAttributes(svc *models.WorkflowService) error {
	for _, target := range splitList(svc.Attributes[attrTargets], ":") {
		if target[0] != '/' {
			return fmt.Errorf("%w: service %s: target %q must be an absolute path", models.ErrValidation, svc.Name, target)
		}
	}
	if _, present := svc.Attributes[attrStorageSize]; present {
		if err := validateStorageSize(svc); err != nil {
			return err
		}
	}
	return validateDataNodes(svc, 0)
}

// ValidateSet has no cross-service constraints for burst buffers
func (p *SBB) ValidateSet(svcs []*models.WorkflowService) error { return nil }

// PrepareAttributes leaves SBB attributes alone
func (p *SBB) PrepareAttributes(svc *models.WorkflowService) error { return nil }

// createSpec builds the persistent-buffer creation specification
func (p *SBB) createSpec(svc *models.Service) string {
	spec := "#!/bin/bash\n"
	spec += fmt.Sprintf("#BB create_persistent name=%s pool=%s", svc.Name, svc.Flavor)
	if svc.StorageSize != "" {
		spec += fmt.Sprintf(" capacity=%s", svc.StorageSize)
	}
	spec += "\n"
	for _, target := range splitList(svc.Targets, ":") {
		spec += fmt.Sprintf("#BB persistent name=%s target=%s\n", svc.Name, shellQuote(target))
	}
	spec += "exit 0\n"
	return spec
}

func (p *SBB) destroySpec(name string) string {
	return fmt.Sprintf("#!/bin/bash\n#BB destroy_persistent name=%s\nexit 0\n", name)
}

// StartSync creates the buffer and waits for completion
func (p *SBB) StartSync(ctx context.Context, svc *models.Service, workflow, runID string) error {
	_, err := p.startWithSpec(ctx, svc, p.createSpec(svc), workflow, runID, true, nil)
	return err
}

// StartAsync submits the buffer creation and returns its job id
func (p *SBB) StartAsync(ctx context.Context, svc *models.Service, workflow, runID string) (int64, error) {
	return p.startWithSpec(ctx, svc, p.createSpec(svc), workflow, runID, false, nil)
}

// StopSync destroys the buffer and waits for completion
func (p *SBB) StopSync(ctx context.Context, name string, startJobID int64, partition, workflow, runID string) error {
	_, err := p.stopWithSpec(ctx, name, p.destroySpec(name), startJobID, partition, workflow, runID, true, nil)
	return err
}

// StopAsync submits the buffer destruction and returns its job id
func (p *SBB) StopAsync(ctx context.Context, name string, startJobID int64, partition, workflow, runID string) (int64, error) {
	return p.stopWithSpec(ctx, name, p.destroySpec(name), startJobID, partition, workflow, runID, false, nil)
}

// ProbeStatus derives the buffer status from its creation/teardown job
func (p *SBB) ProbeStatus(ctx context.Context, svc *models.Service) (models.ServiceStatus, error) {
	return p.probeByJob(ctx, svc)
}

// UseCommand builds the interactive access command for the buffer
func (p *SBB) UseCommand(name, partition string) (string, error) {
	usePath, err := p.writeSpec(opUse, name, fmt.Sprintf("#!/bin/bash\n#BB use_persistent name=%s\nexit 0\n", name))
	if err != nil {
		return "", err
	}
	partition = p.partitionFor(partition)
	return fmt.Sprintf("srun --partition=%s --bbf=%s --pty bash", partition, shellQuote(usePath)), nil
}

// SubmitStep submits a step command against the buffer
func (p *SBB) SubmitStep(ctx context.Context, svc *models.Service, instance *models.StepInstance, opts models.JobOptions) (int64, error) {
	return p.submitStep(ctx, svc, instance, opts, nil)
}

// FillReservation builds the SBB reservation request: flavor plus the
// targets list, split on ':'.
func (p *SBB) FillReservation(svc *models.Service, user string) (*models.ReservationRequest, error) {
	return &models.ReservationRequest{
		Name:           svc.Name,
		User:           user,
		UserSlurmToken: models.ReservationToken,
		Type:           models.ServiceKindSBB,
		Servers:        dataNodesOf(svc),
		Location:       splitList(svc.Location, ","),
		Attributes: map[string]interface{}{
			"flavor":  svc.Flavor,
			"targets": splitList(svc.Targets, ":"),
		},
	}, nil
}
