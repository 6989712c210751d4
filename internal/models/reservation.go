package models

// ReservationToken is the placeholder the resource manager expects while
// batch-system token forwarding is not deployed.
const ReservationToken = "MYTOKEN"

// ReservationRequest is the admission request sent to the resource manager
// before an ephemeral service is started.
type ReservationRequest struct {
	Name           string      `json:"name"`
	User           string      `json:"user"`
	UserSlurmToken string      `json:"user_slurm_token"`
	Type           ServiceKind `json:"type"`
	// Servers defaults to 1 and is overridden by the datanodes attribute.
	Servers    int                    `json:"servers"`
	Location   []string               `json:"location"`
	Attributes map[string]interface{} `json:"attributes"`
}

// Partition is a named subset of cluster nodes reported by the job manager
type Partition struct {
	Name string `json:"name"`
}

// JobOptions carries the batch-system options attached to a submission
type JobOptions struct {
	JobName   string
	Partition string
	// Dependency serializes the submission against an async service
	// creation job. NoJobDependency omits the option.
	Dependency int64
	// Export lists NAME=VALUE environment exports for the job.
	Export []string
	// WorkflowName and RunID are forwarded for observability correlation.
	WorkflowName string
	RunID        string
	// Wait blocks the submission command until the job completes.
	Wait bool
}
