package jobmanager

import (
	"strings"

	"github.com/hpcwfm/wfm/internal/models"
)

// Batch-system status vocabulary, grouped for combination. A heterogeneous
// job reports one token per component; the groups below decide which single
// token represents the whole job.
var (
	failingStates  = []string{"BOOT_FAIL", "DEADLINE", "FAILED", "NODE_FAIL", "OUT_OF_MEMORY", "TIMEOUT"}
	heldStates     = []string{"RESV_DEL_HOLD", "REQUEUE_FED", "REQUEUE_HOLD"}
	waitingStates  = []string{"CONFIGURING", "PENDING"}
	specialStates  = []string{"RESIZING", "SIGNALING"}
	runningStates  = []string{"RUNNING"}
	stoppingStates = []string{"COMPLETING", "STAGE_OUT", "REQUEUED"}
)

// unstoppableStates lists every state in which a component still occupies or
// may re-occupy the queue: the job cannot be considered stopped yet.
var unstoppableStates = map[string]bool{
	"CONFIGURING":   true,
	"PENDING":       true,
	"RUNNING":       true,
	"RESV_DEL_HOLD": true,
	"REQUEUE_FED":   true,
	"REQUEUE_HOLD":  true,
	"REQUEUED":      true,
	"COMPLETING":    true,
	"RESIZING":      true,
	"SIGNALING":     true,
	"STAGE_OUT":     true,
	"SUSPENDED":     true,
}

// StatusStopped is the combined status of a job that left the queue
const StatusStopped = "STOPPED"

// CombineForDisplay collapses a raw blank-separated status string into the
// single status shown to users. Tie-breaking is deterministic: the first
// failing component wins, then held/requeued, waiting, special, running,
// stopping. An empty raw status means the job exited recently.
func CombineForDisplay(raw string) string {
	tokens := strings.Fields(raw)
	if len(tokens) == 0 {
		return StatusStopped
	}

	for _, group := range [][]string{failingStates, heldStates, waitingStates, specialStates, runningStates, stoppingStates} {
		if match := firstInGroup(tokens, group); match != "" {
			return match
		}
	}
	return StatusStopped
}

// CombineForStopping collapses a raw status string for the stop protocol.
// While any component is in an unstoppable state the job is not yet stopped;
// the returned token is the display combination so retry messages stay
// consistent with listings.
func CombineForStopping(raw string) string {
	tokens := strings.Fields(raw)

	var pending string
	for _, token := range tokens {
		if unstoppableStates[token] && pending == "" {
			pending = token
		}
	}
	if pending == "" {
		return StatusStopped
	}

	if display := CombineForDisplay(raw); display != StatusStopped {
		return display
	}
	// Display groups miss some unstoppable states (SUSPENDED); fall back to
	// the first unstoppable token.
	return pending
}

// firstInGroup returns the first token (in raw order) belonging to the group
func firstInGroup(tokens, group []string) string {
	members := make(map[string]bool, len(group))
	for _, state := range group {
		members[state] = true
	}
	for _, token := range tokens {
		if members[token] {
			return token
		}
	}
	return ""
}

// TranslateToWFMStatus maps a combined batch status to a step status
func TranslateToWFMStatus(jmStatus string) models.StepStatus {
	switch jmStatus {
	case "PENDING", "CONFIGURING":
		return models.StepStatusStarting
	case "RUNNING", "RESIZING", "SIGNALING":
		return models.StepStatusRunning
	case "COMPLETING", "STAGE_OUT", "REQUEUED":
		return models.StepStatusStopping
	case "SUSPENDED", "RESV_DEL_HOLD", "REQUEUE_FED", "REQUEUE_HOLD":
		return models.StepStatusSuspended
	default:
		return models.StepStatusStopped
	}
}

// TranslateToJMStatus maps a step status to the batch vocabulary
func TranslateToJMStatus(status models.StepStatus) string {
	switch status {
	case models.StepStatusStarting:
		return "PENDING"
	case models.StepStatusRunning:
		return "RUNNING"
	case models.StepStatusStopping:
		return "COMPLETING"
	case models.StepStatusSuspended:
		return "SUSPENDED"
	default:
		return "COMPLETED"
	}
}
