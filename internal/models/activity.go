package models

import (
	"context"
	"time"
)

// Activity identifies the kind of mutation recorded in the activity log
type Activity string

const (
	ActivityCreation Activity = "creation"
	ActivityRemoval  Activity = "removal"
)

// ObjectType identifies the entity an activity entry refers to
type ObjectType string

const (
	ObjectTypeSession         ObjectType = "session"
	ObjectTypeService         ObjectType = "service"
	ObjectTypeStepDescription ObjectType = "step_description"
	ObjectTypeStepInstance    ObjectType = "step_instance"
	ObjectTypeNamespaceLock   ObjectType = "namespace_lock"
)

// ActivityEntry is an append-only audit row emitted on every create/delete
// in the data model, in the same transaction as the mutation itself.
// CorrelationID groups the entries produced by one engine operation.
type ActivityEntry struct {
	ID            uint64     `json:"id" badgerhold:"key"`
	ObjectType    ObjectType `json:"object_type"`
	ObjectID      uint64     `json:"object_id"`
	Activity      Activity   `json:"activity"`
	CorrelationID string     `json:"correlation_id,omitempty"`
	Timestamp     time.Time  `json:"timestamp"`
}

type correlationKey struct{}

// WithCorrelationID tags the context with the id that groups the activity
// entries of one engine operation.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationKey{}, id)
}

// CorrelationID returns the operation id carried by the context, or ""
func CorrelationID(ctx context.Context) string {
	id, _ := ctx.Value(correlationKey{}).(string)
	return id
}
