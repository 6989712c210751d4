package models

import "time"

// SessionStatus represents the lifecycle state of a session
type SessionStatus string

const (
	SessionStatusStarting SessionStatus = "STARTING"
	SessionStatusActive   SessionStatus = "ACTIVE"
	SessionStatusStopping SessionStatus = "STOPPING"
	SessionStatusStopped  SessionStatus = "STOPPED"
	SessionStatusTeardown SessionStatus = "TEARDOWN"
	SessionStatusUnknown  SessionStatus = "UNKNOWN"
)

// Session represents one activation of a workflow: a collection of
// provisioned ephemeral services and instantiated steps.
//
// Uniqueness is enforced on (Name, WorkflowName, User) among sessions that
// are not STOPPED. Sessions with the same name may coexist for different
// users or workflows, so lookups by name alone can return several rows.
type Session struct {
	ID           uint64        `json:"id" badgerhold:"key"`
	Name         string        `json:"name" badgerhold:"index"`
	WorkflowName string        `json:"workflow_name"`
	User         string        `json:"user"`
	StartTime    time.Time     `json:"start_time"`
	EndTime      time.Time     `json:"end_time,omitempty"`
	Status       SessionStatus `json:"status"`
}

// RunID returns the correlation tag passed to the job manager for every
// submission belonging to this session.
func (s *Session) RunID() string {
	return s.Name + "-" + s.StartTime.Format("2006-01-02_15:04:05")
}

// SessionDetail embeds the services and step descriptions of a session for
// the /session/alldetailed listing.
type SessionDetail struct {
	Session
	Services         []*Service         `json:"services"`
	StepDescriptions []*StepDescription `json:"step_descriptions"`
}
