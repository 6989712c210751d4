package models

import "time"

// StepStatus represents the state of a step instance
type StepStatus string

const (
	StepStatusStarting  StepStatus = "STARTING"
	StepStatusRunning   StepStatus = "RUNNING"
	StepStatusStopping  StepStatus = "STOPPING"
	StepStatusStopped   StepStatus = "STOPPED"
	StepStatusSuspended StepStatus = "SUSPENDED"
)

// NoService is the StepDescription.ServiceID sentinel meaning the step uses
// no ephemeral service.
const NoService uint64 = 0

// StepDescription is the static declaration of a step within a workflow.
// (SessionID, Name) is unique.
type StepDescription struct {
	ID        uint64 `json:"id" badgerhold:"key"`
	SessionID uint64 `json:"session_id" badgerhold:"index"`
	// ServiceID references the service backing the step, or NoService.
	ServiceID uint64 `json:"service_id"`
	Name      string `json:"name"`
	Command   string `json:"command"`
}

// StepInstance is one execution of a step description. InstanceName is
// globally unique ({user}-{session}-{step}_{index}).
type StepInstance struct {
	ID                uint64     `json:"id" badgerhold:"key"`
	StepDescriptionID uint64     `json:"step_description_id" badgerhold:"index"`
	InstanceName      string     `json:"instance_name" badgerhold:"index"`
	StartTime         time.Time  `json:"start_time"`
	StopTime          time.Time  `json:"stop_time,omitempty"`
	Status            StepStatus `json:"status"`
	Progress          string     `json:"progress,omitempty"`
	// JobID is the step's job in the job manager, 0 before submission.
	JobID int64 `json:"jobid" badgerhold:"index"`
	// Command is the resolved command, after variable substitution.
	Command string `json:"command"`
	// RawJobStatus is the last blank-separated status string reported by
	// the job manager for this (possibly heterogeneous) job. It is stored
	// verbatim and combined on read.
	RawJobStatus string `json:"raw_job_status,omitempty"`
}

// StepStatusView is the display shape returned by the step status listings:
// the raw heterogeneous status collapsed with the display combination rules.
type StepStatusView struct {
	ID             uint64     `json:"id"`
	InstanceName   string     `json:"instance_name"`
	StepName       string     `json:"step_name"`
	SessionName    string     `json:"session_name"`
	Status         StepStatus `json:"status"`
	CombinedStatus string     `json:"combined_status"`
	Progress       string     `json:"progress,omitempty"`
	JobID          int64      `json:"jobid"`
	StartTime      time.Time  `json:"start_time"`
}
