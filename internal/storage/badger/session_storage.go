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

// SessionStorage implements the SessionStorage interface for Badger
type SessionStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewSessionStorage creates a new SessionStorage instance
func NewSessionStorage(db *BadgerDB, logger arbor.ILogger) interfaces.SessionStorage {
	return &SessionStorage{
		db:     db,
		logger: logger,
	}
}

// Add inserts the session. The uniqueness check on (name, workflow, user)
// among non-stopped sessions runs in the same transaction as the insert.
func (s *SessionStorage) Add(ctx context.Context, session *models.Session) error {
	if session.Name == "" {
		return fmt.Errorf("%w: session name is required", models.ErrValidation)
	}

	return s.db.Store().Badger().Update(func(txn *badgerdb.Txn) error {
		var existing []models.Session
		query := badgerhold.Where("Name").Eq(session.Name).Index("Name").
			And("WorkflowName").Eq(session.WorkflowName).
			And("User").Eq(session.User).
			And("Status").Ne(models.SessionStatusStopped)
		if err := s.db.Store().TxFind(txn, &existing, query); err != nil {
			return fmt.Errorf("failed to check session uniqueness: %w", err)
		}
		if len(existing) > 0 {
			return fmt.Errorf("%w: session %s already exists for workflow %s and user %s",
				models.ErrState, session.Name, session.WorkflowName, session.User)
		}

		if err := s.db.Store().TxInsert(txn, badgerhold.NextSequence(), session); err != nil {
			return fmt.Errorf("failed to insert session: %w", err)
		}
		return s.db.logActivity(ctx, txn, models.ObjectTypeSession, session.ID, models.ActivityCreation)
	})
}

// Update persists the full session row
func (s *SessionStorage) Update(ctx context.Context, session *models.Session) error {
	if err := s.db.Store().Update(session.ID, session); err != nil {
		if err == badgerhold.ErrNotFound {
			return fmt.Errorf("%w: session %d not found", models.ErrState, session.ID)
		}
		return fmt.Errorf("failed to update session: %w", err)
	}
	return nil
}

// UpdateStatus changes only the status field
func (s *SessionStorage) UpdateStatus(ctx context.Context, id uint64, status models.SessionStatus) error {
	err := s.db.Store().UpdateMatching(&models.Session{}, badgerhold.Where(badgerhold.Key).Eq(id), func(record interface{}) error {
		session, ok := record.(*models.Session)
		if !ok {
			return fmt.Errorf("unexpected record type %T", record)
		}
		session.Status = status
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to update session status: %w", err)
	}
	return nil
}

// Delete removes the session and records the removal
func (s *SessionStorage) Delete(ctx context.Context, id uint64) error {
	return s.db.Store().Badger().Update(func(txn *badgerdb.Txn) error {
		if err := s.db.Store().TxDelete(txn, id, &models.Session{}); err != nil {
			if err == badgerhold.ErrNotFound {
				return nil
			}
			return fmt.Errorf("failed to delete session: %w", err)
		}
		return s.db.logActivity(ctx, txn, models.ObjectTypeSession, id, models.ActivityRemoval)
	})
}

// GetByID returns one session by its key
func (s *SessionStorage) GetByID(ctx context.Context, id uint64) (*models.Session, error) {
	var session models.Session
	if err := s.db.Store().Get(id, &session); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, fmt.Errorf("%w: session %d not found", models.ErrState, id)
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return &session, nil
}

// GetByName returns every session with the given name, optionally restricted
// to one workflow. No match is an error: callers address sessions by name.
func (s *SessionStorage) GetByName(ctx context.Context, name, workflow string) ([]*models.Session, error) {
	query := badgerhold.Where("Name").Eq(name).Index("Name")
	if workflow != "" {
		query = query.And("WorkflowName").Eq(workflow)
	}

	var sessions []models.Session
	if err := s.db.Store().Find(&sessions, query); err != nil {
		return nil, fmt.Errorf("failed to find sessions: %w", err)
	}
	if len(sessions) == 0 {
		return nil, fmt.Errorf("%w: session %s not found", models.ErrState, name)
	}

	result := make([]*models.Session, len(sessions))
	for i := range sessions {
		result[i] = &sessions[i]
	}
	return result, nil
}

// GetAll returns all sessions, optionally filtered by user
func (s *SessionStorage) GetAll(ctx context.Context, user string) ([]*models.Session, error) {
	query := badgerhold.Where(badgerhold.Key).Ge(uint64(0))
	if user != "" {
		query = badgerhold.Where("User").Eq(user)
	}

	var sessions []models.Session
	if err := s.db.Store().Find(&sessions, query.SortBy("StartTime")); err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}

	result := make([]*models.Session, len(sessions))
	for i := range sessions {
		result[i] = &sessions[i]
	}
	return result, nil
}
