package ephemeral

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"

	"github.com/hpcwfm/wfm/internal/common"
	"github.com/hpcwfm/wfm/internal/interfaces"
	"github.com/hpcwfm/wfm/internal/models"
)

// GBF provisions Ganesha-backed NFS filesystems: an ephemeral NFS server is
// started on a data node and exported to the compute nodes of the step.
type GBF struct {
	base
}

// NewGBF creates the GBF plugin
func NewGBF(jm interfaces.JobManager, cfg common.WorkflowConfig, logger arbor.ILogger) *GBF {
	return &GBF{base{jm: jm, cfg: cfg, logger: logger}}
}

func (p *GBF) Kind() models.ServiceKind { return models.ServiceKindGBF }

func (p *GBF) MandatoryAttributes() []string {
	return []string{attrNamespace, attrMountpoint, attrStorageSize}
}

func (p *GBF) OptionalAttributes() []string {
	return []string{attrDataNodes, attrLocation}
}

// ValidateAttributes checks GBF-specific constraints: absolute mountpoint,
// absolute writable namespace directory, well-formed storage size, and a
// single data node.
func (p *GBF) ValidateAttributes(svc *models.WorkflowService) error {
	if err := validateAbsolutePath(svc, attrMountpoint); err != nil {
		return err
	}
	if err := validateWritableDir(svc, attrNamespace); err != nil {
		return err
	}
	if err := validateStorageSize(svc); err != nil {
		return err
	}
	return validateDataNodes(svc, 1)
}

// ValidateSet enforces distinct mountpoints and distinct namespaces across
// the GBF services of one workflow.
func (p *GBF) ValidateSet(svcs []*models.WorkflowService) error {
	if err := validateDistinct(svcs, attrMountpoint); err != nil {
		return err
	}
	return validateDistinct(svcs, attrNamespace)
}

// PrepareAttributes leaves GBF attributes alone
func (p *GBF) PrepareAttributes(svc *models.WorkflowService) error { return nil }

func (p *GBF) createSpec(svc *models.Service) string {
	return fmt.Sprintf(
		"#!/bin/bash\nexport %s\ngbf-server start --name %s --namespace %s --mountpoint %s --size %s\n",
		iolibExport, svc.Name, shellQuote(svc.Namespace), shellQuote(svc.Mountpoint), shellQuote(svc.StorageSize))
}

func (p *GBF) destroySpec(name string) string {
	return fmt.Sprintf("#!/bin/bash\nexport %s\ngbf-server stop --name %s\n", iolibExport, name)
}

// StartSync starts the NFS server and waits until it is exported
func (p *GBF) StartSync(ctx context.Context, svc *models.Service, workflow, runID string) error {
	_, err := p.startWithSpec(ctx, svc, p.createSpec(svc), workflow, runID, true, []string{iolibExport})
	return err
}

// StartAsync submits the NFS server start and returns its job id
func (p *GBF) StartAsync(ctx context.Context, svc *models.Service, workflow, runID string) (int64, error) {
	return p.startWithSpec(ctx, svc, p.createSpec(svc), workflow, runID, false, []string{iolibExport})
}

// StopSync stops the NFS server and waits for completion
func (p *GBF) StopSync(ctx context.Context, name string, startJobID int64, partition, workflow, runID string) error {
	_, err := p.stopWithSpec(ctx, name, p.destroySpec(name), startJobID, partition, workflow, runID, true, []string{iolibExport})
	return err
}

// StopAsync submits the NFS server stop and returns its job id
func (p *GBF) StopAsync(ctx context.Context, name string, startJobID int64, partition, workflow, runID string) (int64, error) {
	return p.stopWithSpec(ctx, name, p.destroySpec(name), startJobID, partition, workflow, runID, false, []string{iolibExport})
}

// ProbeStatus derives the filesystem status from its creation/teardown job
func (p *GBF) ProbeStatus(ctx context.Context, svc *models.Service) (models.ServiceStatus, error) {
	return p.probeByJob(ctx, svc)
}

// UseCommand builds the interactive access command for the filesystem
func (p *GBF) UseCommand(name, partition string) (string, error) {
	partition = p.partitionFor(partition)
	return fmt.Sprintf("srun --partition=%s --export=ALL,%s --pty bash", partition, iolibExport), nil
}

// SubmitStep submits a step command with the I/O library export attached
func (p *GBF) SubmitStep(ctx context.Context, svc *models.Service, instance *models.StepInstance, opts models.JobOptions) (int64, error) {
	return p.submitStep(ctx, svc, instance, opts, []string{iolibExport})
}

// FillReservation builds the GBF reservation request
func (p *GBF) FillReservation(svc *models.Service, user string) (*models.ReservationRequest, error) {
	return &models.ReservationRequest{
		Name:           svc.Name,
		User:           user,
		UserSlurmToken: models.ReservationToken,
		Type:           models.ServiceKindGBF,
		Servers:        dataNodesOf(svc),
		Location:       splitList(svc.Location, ","),
		Attributes: map[string]interface{}{
			"gssize":     svc.StorageSize,
			"mountpoint": svc.Mountpoint,
		},
	}, nil
}
