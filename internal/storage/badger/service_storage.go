package badger

import (
	"context"
	"fmt"

	badgerdb "github.com/dgraph-io/badger/v4"
	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/hpcwfm/wfm/internal/interfaces"
	"github.com/hpcwfm/wfm/internal/models"
)

// ServiceStorage implements the ServiceStorage interface for Badger
type ServiceStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewServiceStorage creates a new ServiceStorage instance
func NewServiceStorage(db *BadgerDB, logger arbor.ILogger) interfaces.ServiceStorage {
	return &ServiceStorage{
		db:     db,
		logger: logger,
	}
}

// Add inserts the service and records the creation
func (s *ServiceStorage) Add(ctx context.Context, service *models.Service) error {
	if service.Name == "" {
		return fmt.Errorf("%w: service name is required", models.ErrValidation)
	}

	return s.db.Store().Badger().Update(func(txn *badgerdb.Txn) error {
		if err := s.db.Store().TxInsert(txn, badgerhold.NextSequence(), service); err != nil {
			return fmt.Errorf("failed to insert service: %w", err)
		}
		return s.db.logActivity(ctx, txn, models.ObjectTypeService, service.ID, models.ActivityCreation)
	})
}

// Update persists the full service row
func (s *ServiceStorage) Update(ctx context.Context, service *models.Service) error {
	if err := s.db.Store().Update(service.ID, service); err != nil {
		if err == badgerhold.ErrNotFound {
			return fmt.Errorf("%w: service %d not found", models.ErrState, service.ID)
		}
		return fmt.Errorf("failed to update service: %w", err)
	}
	return nil
}

// UpdateStatus changes only the status field
func (s *ServiceStorage) UpdateStatus(ctx context.Context, id uint64, status models.ServiceStatus) error {
	err := s.db.Store().UpdateMatching(&models.Service{}, badgerhold.Where(badgerhold.Key).Eq(id), func(record interface{}) error {
		service, ok := record.(*models.Service)
		if !ok {
			return fmt.Errorf("unexpected record type %T", record)
		}
		service.Status = status
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to update service status: %w", err)
	}
	return nil
}

// Delete removes the service and records the removal
func (s *ServiceStorage) Delete(ctx context.Context, id uint64) error {
	return s.db.Store().Badger().Update(func(txn *badgerdb.Txn) error {
		if err := s.db.Store().TxDelete(txn, id, &models.Service{}); err != nil {
			if err == badgerhold.ErrNotFound {
				return nil
			}
			return fmt.Errorf("failed to delete service: %w", err)
		}
		return s.db.logActivity(ctx, txn, models.ObjectTypeService, id, models.ActivityRemoval)
	})
}

// GetBySession returns the services of one session
func (s *ServiceStorage) GetBySession(ctx context.Context, sessionID uint64) ([]*models.Service, error) {
	var services []models.Service
	if err := s.db.Store().Find(&services, badgerhold.Where("SessionID").Eq(sessionID).Index("SessionID")); err != nil {
		return nil, fmt.Errorf("failed to find services: %w", err)
	}

	result := make([]*models.Service, len(services))
	for i := range services {
		result[i] = &services[i]
	}
	return result, nil
}

// GetByName returns the services with the given resolved name
func (s *ServiceStorage) GetByName(ctx context.Context, name string) ([]*models.Service, error) {
	var services []models.Service
	if err := s.db.Store().Find(&services, badgerhold.Where("Name").Eq(name).Index("Name")); err != nil {
		return nil, fmt.Errorf("failed to find services: %w", err)
	}

	result := make([]*models.Service, len(services))
	for i := range services {
		result[i] = &services[i]
	}
	return result, nil
}

// GetAll returns every service row
func (s *ServiceStorage) GetAll(ctx context.Context) ([]*models.Service, error) {
	var services []models.Service
	if err := s.db.Store().Find(&services, badgerhold.Where(badgerhold.Key).Ge(uint64(0))); err != nil {
		return nil, fmt.Errorf("failed to list services: %w", err)
	}

	result := make([]*models.Service, len(services))
	for i := range services {
		result[i] = &services[i]
	}
	return result, nil
}
