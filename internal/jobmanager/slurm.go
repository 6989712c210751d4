// Package jobmanager drives the cluster's batch system through its
// command-line tools and translates its status vocabulary.
package jobmanager

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"

	"github.com/hpcwfm/wfm/internal/common"
	"github.com/hpcwfm/wfm/internal/interfaces"
	"github.com/hpcwfm/wfm/internal/models"
)

// commandRunner executes a control-plane command and returns its combined
// trimmed output. Swapped out in tests.
type commandRunner func(ctx context.Context, name string, args ...string) (string, error)

// Slurm talks to a Slurm-like batch system through sbatch/scancel/squeue/
// sinfo. Every call is bounded by the configured timeout and throttled by a
// shared rate limiter so status sweeps cannot flood the controller.
type Slurm struct {
	cfg     common.JobManagerConfig
	limiter *rate.Limiter
	logger  arbor.ILogger
	run     commandRunner
}

// New creates the job manager configured in cfg. Unknown types are refused.
func New(cfg common.JobManagerConfig, logger arbor.ILogger) (interfaces.JobManager, error) {
	switch cfg.Type {
	case "slurm", "":
		return NewSlurm(cfg, logger), nil
	default:
		return nil, fmt.Errorf("%w: unknown job manager type %q", models.ErrNotSupported, cfg.Type)
	}
}

// NewSlurm creates a Slurm job manager
func NewSlurm(cfg common.JobManagerConfig, logger arbor.ILogger) *Slurm {
	burst := int(cfg.RatePerSecond)
	if burst < 1 {
		burst = 1
	}
	s := &Slurm{
		cfg:     cfg,
		limiter: rate.NewLimiter(rate.Limit(cfg.RatePerSecond), burst),
		logger:  logger,
	}
	s.run = s.execCommand
	return s
}

func (s *Slurm) execCommand(ctx context.Context, name string, args ...string) (string, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.CommandTimeout)
	defer cancel()

	out, err := exec.CommandContext(ctx, name, args...).CombinedOutput()
	if err != nil {
		return strings.TrimSpace(string(out)), fmt.Errorf("%s failed: %w (%s)", name, err, strings.TrimSpace(string(out)))
	}
	return strings.TrimSpace(string(out)), nil
}

// submissionArgs builds the common sbatch options for a submission
func submissionArgs(opts models.JobOptions) []string {
	args := []string{"--parsable"}
	if opts.JobName != "" {
		args = append(args, "--job-name="+opts.JobName)
	}
	if opts.Partition != "" {
		args = append(args, "--partition="+opts.Partition)
	}
	if opts.Dependency > models.NoJobDependency && opts.Dependency != 0 {
		args = append(args, fmt.Sprintf("--dependency=afterany:%d", opts.Dependency))
	}
	if len(opts.Export) > 0 {
		args = append(args, "--export=ALL,"+strings.Join(opts.Export, ","))
	}
	if opts.WorkflowName != "" || opts.RunID != "" {
		args = append(args, fmt.Sprintf("--comment=workflow:%s,runid:%s", opts.WorkflowName, opts.RunID))
	}
	if opts.Wait {
		args = append(args, "--wait")
	}
	return args
}

// SubmitBatch submits a batch specification file
func (s *Slurm) SubmitBatch(ctx context.Context, specFile string, opts models.JobOptions) (int64, error) {
	args := append(submissionArgs(opts), specFile)

	out, err := s.run(ctx, s.cfg.SubmitCommand, args...)
	if err != nil {
		return 0, fmt.Errorf("%w: batch submission failed: %v", models.ErrExternal, err)
	}

	jobID, err := parseJobID(out)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", models.ErrExternal, err)
	}

	s.logger.Debug().
		Str("spec_file", specFile).
		Int64("jobid", jobID).
		Msg("Batch specification submitted")
	return jobID, nil
}

// SubmitLine wraps a single command line in a submission
func (s *Slurm) SubmitLine(ctx context.Context, command string, opts models.JobOptions) (int64, error) {
	args := append(submissionArgs(opts), "--wrap", command)

	out, err := s.run(ctx, s.cfg.SubmitCommand, args...)
	if err != nil {
		return 0, fmt.Errorf("%w: command submission failed: %v", models.ErrExternal, err)
	}

	jobID, err := parseJobID(out)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", models.ErrExternal, err)
	}

	s.logger.Debug().
		Int64("jobid", jobID).
		Bool("wait", opts.Wait).
		Msg("Command line submitted")
	return jobID, nil
}

// Cancel cancels a job
func (s *Slurm) Cancel(ctx context.Context, jobID int64) error {
	if _, err := s.run(ctx, s.cfg.CancelCommand, strconv.FormatInt(jobID, 10)); err != nil {
		return fmt.Errorf("%w: cancel of job %d failed: %v", models.ErrExternal, jobID, err)
	}
	s.logger.Info().Int64("jobid", jobID).Msg("Job cancelled")
	return nil
}

// JobState returns the raw blank-separated status tokens for a job.
// A failing query or empty output means the job left the queue: the raw
// status is empty and combines to STOPPED.
func (s *Slurm) JobState(ctx context.Context, jobID int64) (string, error) {
	out, err := s.run(ctx, s.cfg.StateCommand, "-h", "-j", strconv.FormatInt(jobID, 10), "-o", "%T")
	if err != nil {
		s.logger.Debug().Int64("jobid", jobID).Err(err).Msg("Job state query failed, job treated as gone")
		return "", nil
	}
	// One token per heterogeneous component, one component per line
	return strings.Join(strings.Fields(out), " "), nil
}

// ListPartitions returns the partitions known to the batch system
func (s *Slurm) ListPartitions(ctx context.Context) ([]models.Partition, error) {
	out, err := s.run(ctx, s.cfg.PartitionCommand, "-h", "-o", "%R")
	if err != nil {
		return nil, fmt.Errorf("%w: partition listing failed: %v", models.ErrExternal, err)
	}

	var partitions []models.Partition
	for _, name := range strings.Fields(out) {
		partitions = append(partitions, models.Partition{Name: name})
	}
	return partitions, nil
}

// CombineForDisplay implements interfaces.JobManager
func (s *Slurm) CombineForDisplay(raw string) string { return CombineForDisplay(raw) }

// CombineForStopping implements interfaces.JobManager
func (s *Slurm) CombineForStopping(raw string) string { return CombineForStopping(raw) }

// TranslateToWFMStatus implements interfaces.JobManager
func (s *Slurm) TranslateToWFMStatus(jmStatus string) models.StepStatus {
	return TranslateToWFMStatus(jmStatus)
}

// TranslateToJMStatus implements interfaces.JobManager
func (s *Slurm) TranslateToJMStatus(status models.StepStatus) string {
	return TranslateToJMStatus(status)
}

// parseJobID extracts the job id from a --parsable submission output
// ("123" or "123;cluster").
func parseJobID(out string) (int64, error) {
	first := out
	if idx := strings.IndexAny(out, ";\n"); idx >= 0 {
		first = out[:idx]
	}
	jobID, err := strconv.ParseInt(strings.TrimSpace(first), 10, 64)
	if err != nil || jobID <= 0 {
		return 0, fmt.Errorf("submission returned no job id (output %q)", out)
	}
	return jobID, nil
}
