package ephemeral

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/hpcwfm/wfm/internal/common"
	"github.com/hpcwfm/wfm/internal/interfaces"
	"github.com/hpcwfm/wfm/internal/jobmanager"
	"github.com/hpcwfm/wfm/internal/models"
)

// Batch specification operations; spec files are named
// bb.spec.{op}.{service_name} under the configured temp dir.
const (
	opCreate  = "create_persistent"
	opDestroy = "destroy_persistent"
	opUse     = "use_persistent"
)

// iolibExport is attached to every GBF/DASI submission so the I/O library
// picks up the ephemeral-service backend.
const iolibExport = "IOLIB_MODULES=EphemeralServices"

// base carries the pieces shared by all plugins: the job manager, the
// workflow configuration (temp dir, default partition) and spec-file
// bookkeeping.
type base struct {
	jm     interfaces.JobManager
	cfg    common.WorkflowConfig
	logger arbor.ILogger
}

// specPath returns the path of a batch specification file
func (b *base) specPath(op, name string) string {
	return filepath.Join(b.cfg.TempDir, fmt.Sprintf("bb.spec.%s.%s", op, name))
}

// writeSpec writes a batch specification file and returns its path
func (b *base) writeSpec(op, name, content string) (string, error) {
	path := b.specPath(op, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return "", fmt.Errorf("%w: failed to write spec file %s: %v", models.ErrExternal, path, err)
	}
	return path, nil
}

// CleanupTempFiles removes the spec files written for a service
func (b *base) CleanupTempFiles(name string) error {
	var firstErr error
	for _, op := range []string{opCreate, opDestroy, opUse} {
		path := b.specPath(op, name)
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			if firstErr == nil {
				firstErr = err
			}
			b.logger.Warn().Str("path", path).Err(err).Msg("Failed to remove spec file")
		}
	}
	return firstErr
}

// startWithSpec writes the creation spec and submits it. With wait the call
// blocks until the creation finished; otherwise the returned job id is the
// dependency step submissions serialize against.
func (b *base) startWithSpec(ctx context.Context, svc *models.Service, content, workflow, runID string, wait bool, export []string) (int64, error) {
	path, err := b.writeSpec(opCreate, svc.Name, content)
	if err != nil {
		return 0, err
	}

	opts := models.JobOptions{
		JobName:      svc.Name + "-create",
		Partition:    b.partitionFor(svc.Location),
		Dependency:   models.NoJobDependency,
		Export:       export,
		WorkflowName: workflow,
		RunID:        runID,
		Wait:         wait,
	}
	return b.jm.SubmitBatch(ctx, path, opts)
}

// stopWithSpec writes the teardown spec and submits it, depending on the
// creation job when one exists (startJobID > 0).
func (b *base) stopWithSpec(ctx context.Context, name string, content string, startJobID int64, partition, workflow, runID string, wait bool, export []string) (int64, error) {
	path, err := b.writeSpec(opDestroy, name, content)
	if err != nil {
		return 0, err
	}

	dependency := models.NoJobDependency
	if startJobID > 0 {
		dependency = startJobID
	}
	opts := models.JobOptions{
		JobName:      name + "-destroy",
		Partition:    b.partitionFor(partition),
		Dependency:   dependency,
		Export:       export,
		WorkflowName: workflow,
		RunID:        runID,
		Wait:         wait,
	}
	return b.jm.SubmitBatch(ctx, path, opts)
}

// probeByJob derives the service status from the state of its creation or
// teardown job. Synchronously created services expose no job to watch, so
// the probe answers UNKNOWN and the stored status stands.
func (b *base) probeByJob(ctx context.Context, svc *models.Service) (models.ServiceStatus, error) {
	switch svc.Status {
	case models.ServiceStatusWaiting, models.ServiceStatusStagingIn:
		if svc.JobID <= 0 {
			return models.ServiceStatusUnknown, nil
		}
		raw, err := b.jm.JobState(ctx, svc.JobID)
		if err != nil {
			return models.ServiceStatusUnknown, nil
		}
		switch jobmanager.CombineForDisplay(raw) {
		case "PENDING", "CONFIGURING":
			return models.ServiceStatusWaiting, nil
		case "RUNNING", "COMPLETING", "STAGE_OUT":
			return models.ServiceStatusStagingIn, nil
		case jobmanager.StatusStopped:
			return models.ServiceStatusAllocated, nil
		default:
			// Creation job failed or was requeued
			return models.ServiceStatusTeardown, nil
		}

	case models.ServiceStatusStopping, models.ServiceStatusStagingOut:
		if svc.StopJobID <= 0 {
			return models.ServiceStatusUnknown, nil
		}
		raw, err := b.jm.JobState(ctx, svc.StopJobID)
		if err != nil {
			return models.ServiceStatusUnknown, nil
		}
		if jobmanager.CombineForStopping(raw) == jobmanager.StatusStopped {
			return models.ServiceStatusStopped, nil
		}
		return models.ServiceStatusStopping, nil

	default:
		return models.ServiceStatusUnknown, nil
	}
}

// submitStep enriches the instance command with the batch options of the
// backing service and submits it.
func (b *base) submitStep(ctx context.Context, svc *models.Service, instance *models.StepInstance, opts models.JobOptions, export []string) (int64, error) {
	opts.JobName = instance.InstanceName
	opts.Export = append(opts.Export, export...)
	opts.Dependency = models.NoJobDependency
	if svc != nil {
		if opts.Partition == "" {
			opts.Partition = b.partitionFor(svc.Location)
		}
		// Serialize against an asynchronous service creation
		if svc.JobID > 0 {
			opts.Dependency = svc.JobID
		}
	}
	if opts.Partition == "" {
		opts.Partition = b.cfg.DefaultPartition
	}
	return b.jm.SubmitLine(ctx, instance.Command, opts)
}

func (b *base) partitionFor(location string) string {
	if location != "" {
		return location
	}
	return b.cfg.DefaultPartition
}

// shellQuote single-quotes a value for interpolation into a batch command.
// User-supplied attribute values must never reach the shell unescaped.
func shellQuote(value string) string {
	return "'" + strings.ReplaceAll(value, "'", `'\''`) + "'"
}

// splitList splits a catalog value on the given separator, dropping blanks
func splitList(value, sep string) []string {
	var out []string
	for _, item := range strings.Split(value, sep) {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
