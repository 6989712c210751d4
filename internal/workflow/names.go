package workflow

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/hpcwfm/wfm/internal/models"
)

// ServiceName builds the namespaced service name: {user}-{session}-{declared}
func ServiceName(user, session, declared string) string {
	return fmt.Sprintf("%s-%s-%s", user, session, declared)
}

// StepInstanceName builds a step instance name: {user}-{session}-{step}_{index}
func StepInstanceName(user, session, step string, index int) string {
	return fmt.Sprintf("%s-%s-%s_%d", user, session, step, index)
}

// DasiNamespacePath derives the per-mountpoint directory a DASI service uses
// under its namespace: sha256_hex(mountpoint).
func DasiNamespacePath(namespace, mountpoint string) string {
	sum := sha256.Sum256([]byte(mountpoint))
	return strings.TrimRight(namespace, "/") + "/" + hex.EncodeToString(sum[:])
}

// ValidateName checks that a session or declared service name is usable as a
// file-name fragment: non-empty, no '/'.
func ValidateName(kind, name string) error {
	if name == "" {
		return fmt.Errorf("%w: %s name must not be empty", models.ErrValidation, kind)
	}
	if strings.Contains(name, "/") {
		return fmt.Errorf("%w: %s name %q must not contain '/'", models.ErrValidation, kind, name)
	}
	return nil
}
