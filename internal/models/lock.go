package models

// NamespaceLock is a lease asserting that a storage namespace is used by
// exactly one active service. In steady state at most one row exists per
// namespace; a second row may appear only transiently inside a store
// transaction while ownership is handed over.
type NamespaceLock struct {
	ID          uint64 `json:"id" badgerhold:"key"`
	Namespace   string `json:"namespace" badgerhold:"index"`
	ServiceName string `json:"service_name"`
}
