package badger

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/hpcwfm/wfm/internal/interfaces"
	"github.com/hpcwfm/wfm/internal/models"
)

// ActivityStorage reads the audit trail. The entity stores append the rows
// themselves, inside their own transactions.
type ActivityStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewActivityStorage creates a new ActivityStorage instance
func NewActivityStorage(db *BadgerDB, logger arbor.ILogger) interfaces.ActivityStorage {
	return &ActivityStorage{
		db:     db,
		logger: logger,
	}
}

// GetRecent returns the newest entries, most recent first
func (s *ActivityStorage) GetRecent(ctx context.Context, limit int) ([]*models.ActivityEntry, error) {
	query := badgerhold.Where(badgerhold.Key).Ge(uint64(0)).SortBy("Timestamp").Reverse()
	if limit > 0 {
		query = query.Limit(limit)
	}

	var entries []models.ActivityEntry
	if err := s.db.Store().Find(&entries, query); err != nil {
		return nil, fmt.Errorf("failed to list activity entries: %w", err)
	}

	result := make([]*models.ActivityEntry, len(entries))
	for i := range entries {
		result[i] = &entries[i]
	}
	return result, nil
}
