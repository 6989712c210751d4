package ephemeral

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ternarybob/arbor"
	"gopkg.in/yaml.v3"

	"github.com/hpcwfm/wfm/internal/common"
	"github.com/hpcwfm/wfm/internal/interfaces"
	"github.com/hpcwfm/wfm/internal/models"
	"github.com/hpcwfm/wfm/internal/workflow"
)

// DASI provisions DASI data stores. The store root comes from the user's
// DASI configuration file; the service data lives in a per-mountpoint
// directory derived under the declared namespace.
type DASI struct {
	base
}

// NewDASI creates the DASI plugin
func NewDASI(jm interfaces.JobManager, cfg common.WorkflowConfig, logger arbor.ILogger) *DASI {
	return &DASI{base{jm: jm, cfg: cfg, logger: logger}}
}

func (p *DASI) Kind() models.ServiceKind { return models.ServiceKindDASI }

func (p *DASI) MandatoryAttributes() []string {
	return []string{attrNamespace, attrDasiConfig}
}

func (p *DASI) OptionalAttributes() []string {
	return []string{attrDataNodes, attrLocation}
}

// dasiConfig mirrors the subset of a DASI configuration file the engine
// needs: the root paths of the declared spaces.
type dasiConfig struct {
	Schema string `yaml:"schema"`
	Spaces []struct {
		Roots []struct {
			Path string `yaml:"path"`
		} `yaml:"roots"`
	} `yaml:"spaces"`
}

// resolveRoot reads the DASI configuration file and returns its single
// absolute root path.
func resolveRoot(svc *models.WorkflowService) (string, error) {
	path := svc.Attributes[attrDasiConfig]
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("%w: service %s: DASI config %q is not readable", models.ErrValidation, svc.Name, path)
	}

	var cfg dasiConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return "", fmt.Errorf("%w: service %s: DASI config %q is not valid YAML: %v", models.ErrValidation, svc.Name, path, err)
	}

	var roots []string
	for _, space := range cfg.Spaces {
		for _, root := range space.Roots {
			if root.Path != "" {
				roots = append(roots, root.Path)
			}
		}
	}
	if len(roots) != 1 {
		return "", fmt.Errorf("%w: service %s: DASI config %q must resolve to exactly one root path, found %d", models.ErrValidation, svc.Name, path, len(roots))
	}
	if !filepath.IsAbs(roots[0]) {
		return "", fmt.Errorf("%w: service %s: DASI root %q must be an absolute path", models.ErrValidation, svc.Name, roots[0])
	}
	return roots[0], nil
}

// ValidateAttributes checks DASI-specific constraints: writable namespace,
// readable config resolving to one absolute root, single data node.
func (p *DASI) ValidateAttributes(svc *models.WorkflowService) error {
	if err := validateWritableDir(svc, attrNamespace); err != nil {
		return err
	}
	if _, err := resolveRoot(svc); err != nil {
		return err
	}
	return validateDataNodes(svc, 1)
}

// ValidateSet enforces distinct config files across the DASI services of
// one workflow.
func (p *DASI) ValidateSet(svcs []*models.WorkflowService) error {
	return validateDistinct(svcs, attrDasiConfig)
}

// PrepareAttributes derives the mountpoint from the config root and turns
// the namespace into its per-mountpoint directory:
// namespace/<sha256_hex(mountpoint)>.
func (p *DASI) PrepareAttributes(svc *models.WorkflowService) error {
	root, err := resolveRoot(svc)
	if err != nil {
		return err
	}
	svc.Attributes[attrMountpoint] = root
	svc.Attributes[attrNamespace] = workflow.DasiNamespacePath(svc.Attributes[attrNamespace], root)
	return nil
}

func (p *DASI) createSpec(svc *models.Service) string {
	return fmt.Sprintf(
		"#!/bin/bash\nexport %s\ndasi-server start --name %s --namespace %s --root %s\n",
		iolibExport, svc.Name, shellQuote(svc.Namespace), shellQuote(svc.Mountpoint))
}

func (p *DASI) destroySpec(name string) string {
	return fmt.Sprintf("#!/bin/bash\nexport %s\ndasi-server stop --name %s\n", iolibExport, name)
}

// StartSync starts the data store and waits for completion
func (p *DASI) StartSync(ctx context.Context, svc *models.Service, workflow, runID string) error {
	_, err := p.startWithSpec(ctx, svc, p.createSpec(svc), workflow, runID, true, []string{iolibExport})
	return err
}

// StartAsync submits the data store start and returns its job id
func (p *DASI) StartAsync(ctx context.Context, svc *models.Service, workflow, runID string) (int64, error) {
	return p.startWithSpec(ctx, svc, p.createSpec(svc), workflow, runID, false, []string{iolibExport})
}

// StopSync stops the data store and waits for completion
func (p *DASI) StopSync(ctx context.Context, name string, startJobID int64, partition, workflow, runID string) error {
	_, err := p.stopWithSpec(ctx, name, p.destroySpec(name), startJobID, partition, workflow, runID, true, []string{iolibExport})
	return err
}

// StopAsync submits the data store stop and returns its job id
func (p *DASI) StopAsync(ctx context.Context, name string, startJobID int64, partition, workflow, runID string) (int64, error) {
	return p.stopWithSpec(ctx, name, p.destroySpec(name), startJobID, partition, workflow, runID, false, []string{iolibExport})
}

// ProbeStatus derives the data store status from its creation/teardown job
func (p *DASI) ProbeStatus(ctx context.Context, svc *models.Service) (models.ServiceStatus, error) {
	return p.probeByJob(ctx, svc)
}

// UseCommand builds the interactive access command for the data store
func (p *DASI) UseCommand(name, partition string) (string, error) {
	partition = p.partitionFor(partition)
	return fmt.Sprintf("srun --partition=%s --export=ALL,%s --pty bash", partition, iolibExport), nil
}

// SubmitStep submits a step command with the I/O library export attached
func (p *DASI) SubmitStep(ctx context.Context, svc *models.Service, instance *models.StepInstance, opts models.JobOptions) (int64, error) {
	return p.submitStep(ctx, svc, instance, opts, []string{iolibExport})
}

// FillReservation builds the DASI reservation request (same shape as GBF)
func (p *DASI) FillReservation(svc *models.Service, user string) (*models.ReservationRequest, error) {
	return &models.ReservationRequest{
		Name:           svc.Name,
		User:           user,
		UserSlurmToken: models.ReservationToken,
		Type:           models.ServiceKindDASI,
		Servers:        dataNodesOf(svc),
		Location:       splitList(svc.Location, ","),
		Attributes: map[string]interface{}{
			"gssize":     svc.StorageSize,
			"mountpoint": svc.Mountpoint,
		},
	}, nil
}
