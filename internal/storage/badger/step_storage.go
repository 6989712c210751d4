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

// StepStorage implements the StepStorage interface for Badger
type StepStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewStepStorage creates a new StepStorage instance
func NewStepStorage(db *BadgerDB, logger arbor.ILogger) interfaces.StepStorage {
	return &StepStorage{
		db:     db,
		logger: logger,
	}
}

// AddDescription inserts the step description and records the creation
func (s *StepStorage) AddDescription(ctx context.Context, stepd *models.StepDescription) error {
	if stepd.Name == "" {
		return fmt.Errorf("%w: step name is required", models.ErrValidation)
	}

	return s.db.Store().Badger().Update(func(txn *badgerdb.Txn) error {
		if err := s.db.Store().TxInsert(txn, badgerhold.NextSequence(), stepd); err != nil {
			return fmt.Errorf("failed to insert step description: %w", err)
		}
		return s.db.logActivity(ctx, txn, models.ObjectTypeStepDescription, stepd.ID, models.ActivityCreation)
	})
}

// DeleteDescription removes the step description and records the removal
func (s *StepStorage) DeleteDescription(ctx context.Context, id uint64) error {
	return s.db.Store().Badger().Update(func(txn *badgerdb.Txn) error {
		if err := s.db.Store().TxDelete(txn, id, &models.StepDescription{}); err != nil {
			if err == badgerhold.ErrNotFound {
				return nil
			}
			return fmt.Errorf("failed to delete step description: %w", err)
		}
		return s.db.logActivity(ctx, txn, models.ObjectTypeStepDescription, id, models.ActivityRemoval)
	})
}

// GetDescriptionsBySession returns the step descriptions of one session
func (s *StepStorage) GetDescriptionsBySession(ctx context.Context, sessionID uint64) ([]*models.StepDescription, error) {
	var steps []models.StepDescription
	if err := s.db.Store().Find(&steps, badgerhold.Where("SessionID").Eq(sessionID).Index("SessionID")); err != nil {
		return nil, fmt.Errorf("failed to find step descriptions: %w", err)
	}

	result := make([]*models.StepDescription, len(steps))
	for i := range steps {
		result[i] = &steps[i]
	}
	return result, nil
}

// GetDescriptionByName returns one step description addressed by session and
// declared step name.
func (s *StepStorage) GetDescriptionByName(ctx context.Context, sessionID uint64, name string) (*models.StepDescription, error) {
	var steps []models.StepDescription
	query := badgerhold.Where("SessionID").Eq(sessionID).Index("SessionID").And("Name").Eq(name)
	if err := s.db.Store().Find(&steps, query); err != nil {
		return nil, fmt.Errorf("failed to find step description: %w", err)
	}
	if len(steps) == 0 {
		return nil, fmt.Errorf("%w: step %s not found", models.ErrState, name)
	}
	return &steps[0], nil
}

// GetAllDescriptions returns every step description row
func (s *StepStorage) GetAllDescriptions(ctx context.Context) ([]*models.StepDescription, error) {
	var steps []models.StepDescription
	if err := s.db.Store().Find(&steps, badgerhold.Where(badgerhold.Key).Ge(uint64(0))); err != nil {
		return nil, fmt.Errorf("failed to list step descriptions: %w", err)
	}

	result := make([]*models.StepDescription, len(steps))
	for i := range steps {
		result[i] = &steps[i]
	}
	return result, nil
}

// AddInstance counts the existing instances of the step description and
// inserts the new one in a single transaction, so concurrent launches get
// distinct indexes and therefore distinct instance names.
func (s *StepStorage) AddInstance(ctx context.Context, instance *models.StepInstance, nameFor func(index int) string) error {
	return s.db.Store().Badger().Update(func(txn *badgerdb.Txn) error {
		count, err := s.db.Store().TxCount(txn, &models.StepInstance{},
			badgerhold.Where("StepDescriptionID").Eq(instance.StepDescriptionID).Index("StepDescriptionID"))
		if err != nil {
			return fmt.Errorf("failed to count step instances: %w", err)
		}

		instance.InstanceName = nameFor(int(count))
		if err := s.db.Store().TxInsert(txn, badgerhold.NextSequence(), instance); err != nil {
			return fmt.Errorf("failed to insert step instance: %w", err)
		}
		return s.db.logActivity(ctx, txn, models.ObjectTypeStepInstance, instance.ID, models.ActivityCreation)
	})
}

// UpdateInstance persists the full instance row
func (s *StepStorage) UpdateInstance(ctx context.Context, instance *models.StepInstance) error {
	if err := s.db.Store().Update(instance.ID, instance); err != nil {
		if err == badgerhold.ErrNotFound {
			return fmt.Errorf("%w: step instance %d not found", models.ErrState, instance.ID)
		}
		return fmt.Errorf("failed to update step instance: %w", err)
	}
	return nil
}

// DeleteInstance removes the instance and records the removal
func (s *StepStorage) DeleteInstance(ctx context.Context, id uint64) error {
	return s.db.Store().Badger().Update(func(txn *badgerdb.Txn) error {
		if err := s.db.Store().TxDelete(txn, id, &models.StepInstance{}); err != nil {
			if err == badgerhold.ErrNotFound {
				return nil
			}
			return fmt.Errorf("failed to delete step instance: %w", err)
		}
		return s.db.logActivity(ctx, txn, models.ObjectTypeStepInstance, id, models.ActivityRemoval)
	})
}

// GetInstancesByDescription returns the instances of one step description
func (s *StepStorage) GetInstancesByDescription(ctx context.Context, stepdID uint64) ([]*models.StepInstance, error) {
	var instances []models.StepInstance
	if err := s.db.Store().Find(&instances, badgerhold.Where("StepDescriptionID").Eq(stepdID).Index("StepDescriptionID")); err != nil {
		return nil, fmt.Errorf("failed to find step instances: %w", err)
	}

	result := make([]*models.StepInstance, len(instances))
	for i := range instances {
		result[i] = &instances[i]
	}
	return result, nil
}

// GetInstanceByName returns one instance by its globally unique name
func (s *StepStorage) GetInstanceByName(ctx context.Context, name string) (*models.StepInstance, error) {
	var instances []models.StepInstance
	if err := s.db.Store().Find(&instances, badgerhold.Where("InstanceName").Eq(name).Index("InstanceName")); err != nil {
		return nil, fmt.Errorf("failed to find step instance: %w", err)
	}
	if len(instances) == 0 {
		return nil, fmt.Errorf("%w: step instance %s not found", models.ErrState, name)
	}
	return &instances[0], nil
}

// GetInstancesByJobID returns the instances attached to one batch job
func (s *StepStorage) GetInstancesByJobID(ctx context.Context, jobID int64) ([]*models.StepInstance, error) {
	var instances []models.StepInstance
	if err := s.db.Store().Find(&instances, badgerhold.Where("JobID").Eq(jobID).Index("JobID")); err != nil {
		return nil, fmt.Errorf("failed to find step instances: %w", err)
	}

	result := make([]*models.StepInstance, len(instances))
	for i := range instances {
		result[i] = &instances[i]
	}
	return result, nil
}
