package models

import "time"

// ServiceKind identifies the ephemeral-service plugin backing a service
type ServiceKind string

const (
	ServiceKindSBB  ServiceKind = "SBB"  // Slurm burst buffer
	ServiceKindGBF  ServiceKind = "GBF"  // Ganesha-backed filesystem (NFS)
	ServiceKindDASI ServiceKind = "DASI" // DASI data store
	ServiceKindNone ServiceKind = "NONE" // no ephemeral service
)

// IsValidServiceKind checks if a given ServiceKind is one of the known kinds
func IsValidServiceKind(kind ServiceKind) bool {
	switch kind {
	case ServiceKindSBB, ServiceKindGBF, ServiceKindDASI, ServiceKindNone:
		return true
	default:
		return false
	}
}

// ServiceStatus represents the state of an ephemeral service
type ServiceStatus string

const (
	ServiceStatusWaiting    ServiceStatus = "WAITING"
	ServiceStatusStagingIn  ServiceStatus = "STAGINGIN"
	ServiceStatusStagedIn   ServiceStatus = "STAGEDIN"
	ServiceStatusAllocated  ServiceStatus = "ALLOCATED"
	ServiceStatusStagingOut ServiceStatus = "STAGINGOUT"
	ServiceStatusStagedOut  ServiceStatus = "STAGEDOUT"
	ServiceStatusStopping   ServiceStatus = "STOPPING"
	ServiceStatusStopped    ServiceStatus = "STOPPED"
	ServiceStatusTeardown   ServiceStatus = "TEARDOWN"
	ServiceStatusUnknown    ServiceStatus = "UNKNOWN"
)

// NoJobDependency is the JobID sentinel for services created synchronously:
// there is no batch job to serialize step submissions against.
const NoJobDependency int64 = -1

// Service is a provisioned ephemeral storage service owned by a session.
// The Name is fully namespaced ({user}-{session}-{declared}).
type Service struct {
	ID          uint64        `json:"id" badgerhold:"key"`
	SessionID   uint64        `json:"session_id" badgerhold:"index"`
	Name        string        `json:"name" badgerhold:"index"`
	Kind        ServiceKind   `json:"kind"`
	Location    string        `json:"location,omitempty"`
	Targets     string        `json:"targets,omitempty"`
	Flavor      string        `json:"flavor,omitempty"`
	Namespace   string        `json:"namespace,omitempty"`
	Mountpoint  string        `json:"mountpoint,omitempty"`
	StorageSize string        `json:"storagesize,omitempty"`
	DataNodes   int           `json:"datanodes,omitempty"`
	StartTime   time.Time     `json:"start_time"`
	EndTime     time.Time     `json:"end_time,omitempty"`
	Status      ServiceStatus `json:"status"`
	// JobID is the batch job that created the service (>= 0), or
	// NoJobDependency when the start was synchronous.
	JobID int64 `json:"jobid"`
	// StopJobID is the asynchronous teardown job, 0 while none was
	// submitted. The reconciler watches it to conclude STOPPING.
	StopJobID int64 `json:"stop_jobid,omitempty"`
}

// IsUsable reports whether steps may be submitted against the service
func (s *Service) IsUsable() bool {
	return s.Status == ServiceStatusAllocated || s.Status == ServiceStatusStagedIn
}

// IsStoppable reports whether the service is in a state the stop protocol
// should act on.
func (s *Service) IsStoppable() bool {
	switch s.Status {
	case ServiceStatusAllocated, ServiceStatusStagedIn, ServiceStatusWaiting:
		return true
	default:
		return false
	}
}
