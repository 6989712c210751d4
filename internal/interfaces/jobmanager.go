package interfaces

import (
	"context"

	"github.com/hpcwfm/wfm/internal/models"
)

// JobManager abstracts the cluster's batch system. Implementations wrap the
// system's control commands; every call is bounded by the context deadline.
//
// Job state is reported as a raw blank-separated token string: a
// heterogeneous job has several co-scheduled components sharing one job id,
// each contributing one token. The raw string is stored verbatim and
// collapsed on read with CombineForDisplay or CombineForStopping.
type JobManager interface {
	// SubmitBatch submits a batch specification file and returns the job id.
	SubmitBatch(ctx context.Context, specFile string, opts models.JobOptions) (int64, error)

	// SubmitLine wraps a single command line in a submission and returns
	// the job id. With opts.Wait the call blocks until the job finishes.
	SubmitLine(ctx context.Context, command string, opts models.JobOptions) (int64, error)

	// Cancel cancels the job.
	Cancel(ctx context.Context, jobID int64) error

	// JobState returns the raw blank-separated status tokens for the job.
	// An empty string means the job left the queue recently; a failing
	// query is reported the same way by the caller (treated as gone).
	JobState(ctx context.Context, jobID int64) (string, error)

	// ListPartitions returns the partitions known to the batch system.
	ListPartitions(ctx context.Context) ([]models.Partition, error)

	// CombineForDisplay collapses a raw status string into the single
	// status shown to users.
	CombineForDisplay(raw string) string

	// CombineForStopping collapses a raw status string for the stop
	// protocol: anything still cancellable reports as not stopped.
	CombineForStopping(raw string) string

	// TranslateToWFMStatus maps a combined batch status to a step status.
	TranslateToWFMStatus(jmStatus string) models.StepStatus

	// TranslateToJMStatus maps a step status to the batch vocabulary.
	TranslateToJMStatus(status models.StepStatus) string
}
