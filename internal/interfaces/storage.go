package interfaces

import (
	"context"

	"github.com/hpcwfm/wfm/internal/models"
)

// SessionStorage persists sessions.
//
// GetByName signals "unknown session" with an error when no row matches;
// every other lookup returns an empty collection for missing rows.
type SessionStorage interface {
	// Add inserts the session and assigns its ID. Fails with a state error
	// when a non-stopped session already exists for (name, workflow, user).
	Add(ctx context.Context, session *models.Session) error
	Update(ctx context.Context, session *models.Session) error
	UpdateStatus(ctx context.Context, id uint64, status models.SessionStatus) error
	Delete(ctx context.Context, id uint64) error
	GetByID(ctx context.Context, id uint64) (*models.Session, error)
	// GetByName returns every session with the given name, optionally
	// restricted to one workflow. Name uniqueness is scoped to
	// (name, workflow, user), so several rows may come back.
	GetByName(ctx context.Context, name, workflow string) ([]*models.Session, error)
	// GetAll returns all sessions, optionally filtered by user.
	GetAll(ctx context.Context, user string) ([]*models.Session, error)
}

// ServiceStorage persists ephemeral services
type ServiceStorage interface {
	Add(ctx context.Context, service *models.Service) error
	Update(ctx context.Context, service *models.Service) error
	UpdateStatus(ctx context.Context, id uint64, status models.ServiceStatus) error
	Delete(ctx context.Context, id uint64) error
	GetBySession(ctx context.Context, sessionID uint64) ([]*models.Service, error)
	GetByName(ctx context.Context, name string) ([]*models.Service, error)
	GetAll(ctx context.Context) ([]*models.Service, error)
}

// StepStorage persists step descriptions and step instances
type StepStorage interface {
	AddDescription(ctx context.Context, stepd *models.StepDescription) error
	DeleteDescription(ctx context.Context, id uint64) error
	GetDescriptionsBySession(ctx context.Context, sessionID uint64) ([]*models.StepDescription, error)
	GetDescriptionByName(ctx context.Context, sessionID uint64, name string) (*models.StepDescription, error)
	GetAllDescriptions(ctx context.Context) ([]*models.StepDescription, error)

	// AddInstance assigns the instance index inside the same transaction as
	// the insert: two concurrent calls for one step description observe
	// distinct counts and produce distinct instance names.
	AddInstance(ctx context.Context, instance *models.StepInstance, nameFor func(index int) string) error
	UpdateInstance(ctx context.Context, instance *models.StepInstance) error
	DeleteInstance(ctx context.Context, id uint64) error
	GetInstancesByDescription(ctx context.Context, stepdID uint64) ([]*models.StepInstance, error)
	GetInstanceByName(ctx context.Context, name string) (*models.StepInstance, error)
	GetInstancesByJobID(ctx context.Context, jobID int64) ([]*models.StepInstance, error)
}

// LockStorage persists namespace leases
type LockStorage interface {
	// Acquire inserts a lock row for the namespace. When the namespace is
	// already held the insert fails with a resource error naming the
	// holders; the check and the insert run in one transaction.
	Acquire(ctx context.Context, namespace, serviceName string) error
	Release(ctx context.Context, namespace, serviceName string) error
	GetByNamespace(ctx context.Context, namespace string) ([]*models.NamespaceLock, error)
	GetAll(ctx context.Context) ([]*models.NamespaceLock, error)
}

// ActivityStorage reads the append-only audit trail. Writes happen inside
// the entity stores, in the same transaction as the mutation they record.
type ActivityStorage interface {
	GetRecent(ctx context.Context, limit int) ([]*models.ActivityEntry, error)
}

// StorageManager aggregates the entity stores over one embedded database
type StorageManager interface {
	Sessions() SessionStorage
	Services() ServiceStorage
	Steps() StepStorage
	Locks() LockStorage
	Activity() ActivityStorage
	Close() error
}
