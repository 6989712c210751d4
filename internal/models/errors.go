package models

import (
	"errors"
	"strings"
)

// Error kinds surfaced by the engine. Callers wrap these with fmt.Errorf
// ("...: %w") so handlers can classify a failure without losing the detail
// message rendered to the client.
var (
	// ErrValidation covers workflow description schema failures, bad
	// session/service names, undefined variables and redefinition of
	// predefined variables.
	ErrValidation = errors.New("validation error")

	// ErrState covers lifecycle conflicts: session already exists, not yet
	// started, not unique, step not found.
	ErrState = errors.New("state error")

	// ErrResource covers admission failures: namespace already locked,
	// reservation refused, partition unavailable.
	ErrResource = errors.New("resource error")

	// ErrExternal covers failed calls into the job manager, the resource
	// manager or an ephemeral-service start/stop command.
	ErrExternal = errors.New("external error")

	// ErrNotSupported covers unknown service kinds, job managers and
	// resource managers.
	ErrNotSupported = errors.New("not supported")
)

// errorKinds in the order they are tried when stripping a prefix
var errorKinds = []error{ErrValidation, ErrState, ErrResource, ErrExternal, ErrNotSupported}

// Detail returns the client-facing message of an error: the kind prefix the
// sentinels above contribute through %w wrapping is stripped, everything
// else passes through verbatim.
func Detail(err error) string {
	msg := err.Error()
	for _, kind := range errorKinds {
		if prefix := kind.Error() + ": "; strings.HasPrefix(msg, prefix) {
			return strings.TrimPrefix(msg, prefix)
		}
	}
	return msg
}
