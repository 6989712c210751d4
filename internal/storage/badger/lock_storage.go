package badger

import (
	"context"
	"fmt"
	"strings"

	badgerdb "github.com/dgraph-io/badger/v4"
	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/hpcwfm/wfm/internal/interfaces"
	"github.com/hpcwfm/wfm/internal/models"
)

// LockStorage implements the LockStorage interface for Badger
type LockStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewLockStorage creates a new LockStorage instance
func NewLockStorage(db *BadgerDB, logger arbor.ILogger) interfaces.LockStorage {
	return &LockStorage{
		db:     db,
		logger: logger,
	}
}

// Acquire leases the namespace for one service. The availability check and
// the insert run in a single transaction, so two services racing for the
// same namespace cannot both win.
func (s *LockStorage) Acquire(ctx context.Context, namespace, serviceName string) error {
	if namespace == "" {
		return fmt.Errorf("%w: namespace is required", models.ErrValidation)
	}

	return s.db.Store().Badger().Update(func(txn *badgerdb.Txn) error {
		var holders []models.NamespaceLock
		query := badgerhold.Where("Namespace").Eq(namespace).Index("Namespace")
		if err := s.db.Store().TxFind(txn, &holders, query); err != nil {
			return fmt.Errorf("failed to check namespace availability: %w", err)
		}
		if len(holders) > 0 {
			names := make([]string, len(holders))
			for i := range holders {
				names[i] = holders[i].ServiceName
			}
			return fmt.Errorf("%w: NS %s already used by other services [%s]",
				models.ErrResource, namespace, strings.Join(names, ", "))
		}

		lock := &models.NamespaceLock{
			Namespace:   namespace,
			ServiceName: serviceName,
		}
		if err := s.db.Store().TxInsert(txn, badgerhold.NextSequence(), lock); err != nil {
			return fmt.Errorf("failed to insert namespace lock: %w", err)
		}
		return s.db.logActivity(ctx, txn, models.ObjectTypeNamespaceLock, lock.ID, models.ActivityCreation)
	})
}

// Release drops the lease held by the given service on the namespace.
// Releasing a lease that does not exist is not an error.
func (s *LockStorage) Release(ctx context.Context, namespace, serviceName string) error {
	return s.db.Store().Badger().Update(func(txn *badgerdb.Txn) error {
		var holders []models.NamespaceLock
		query := badgerhold.Where("Namespace").Eq(namespace).Index("Namespace").And("ServiceName").Eq(serviceName)
		if err := s.db.Store().TxFind(txn, &holders, query); err != nil {
			return fmt.Errorf("failed to find namespace lock: %w", err)
		}

		for i := range holders {
			if err := s.db.Store().TxDelete(txn, holders[i].ID, &models.NamespaceLock{}); err != nil {
				return fmt.Errorf("failed to delete namespace lock: %w", err)
			}
			if err := s.db.logActivity(ctx, txn, models.ObjectTypeNamespaceLock, holders[i].ID, models.ActivityRemoval); err != nil {
				return err
			}
		}
		return nil
	})
}

// GetByNamespace returns the leases held on one namespace
func (s *LockStorage) GetByNamespace(ctx context.Context, namespace string) ([]*models.NamespaceLock, error) {
	var locks []models.NamespaceLock
	if err := s.db.Store().Find(&locks, badgerhold.Where("Namespace").Eq(namespace).Index("Namespace")); err != nil {
		return nil, fmt.Errorf("failed to find namespace locks: %w", err)
	}

	result := make([]*models.NamespaceLock, len(locks))
	for i := range locks {
		result[i] = &locks[i]
	}
	return result, nil
}

// GetAll returns every lease
func (s *LockStorage) GetAll(ctx context.Context) ([]*models.NamespaceLock, error) {
	var locks []models.NamespaceLock
	if err := s.db.Store().Find(&locks, badgerhold.Where(badgerhold.Key).Ge(uint64(0))); err != nil {
		return nil, fmt.Errorf("failed to list namespace locks: %w", err)
	}

	result := make([]*models.NamespaceLock, len(locks))
	for i := range locks {
		result[i] = &locks[i]
	}
	return result, nil
}
