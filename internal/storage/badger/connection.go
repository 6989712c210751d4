package badger

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	badgerdb "github.com/dgraph-io/badger/v4"
	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/hpcwfm/wfm/internal/common"
	"github.com/hpcwfm/wfm/internal/models"
)

// BadgerDB manages the Badger database connection
type BadgerDB struct {
	store  *badgerhold.Store
	logger arbor.ILogger
	config *common.BadgerConfig
}

// NewBadgerDB creates a new Badger database connection
func NewBadgerDB(logger arbor.ILogger, config *common.BadgerConfig) (*BadgerDB, error) {
	// If reset_on_startup is enabled, delete the existing database
	if config.ResetOnStartup {
		if _, err := os.Stat(config.Path); err == nil {
			logger.Debug().Str("path", config.Path).Msg("Deleting existing database (reset_on_startup=true)")
			if err := os.RemoveAll(config.Path); err != nil {
				logger.Warn().Err(err).Str("path", config.Path).Msg("Failed to delete database directory")
			}
		}
	}

	// Ensure the directory exists
	dir := filepath.Dir(config.Path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	logger.Debug().Str("path", config.Path).Msg("Opening Badger database connection")

	options := badgerhold.DefaultOptions
	options.Dir = config.Path
	options.ValueDir = config.Path
	options.Logger = nil // Disable default badger logger to use arbor

	store, err := badgerhold.Open(options)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger database: %w", err)
	}

	db := &BadgerDB{
		store:  store,
		logger: logger,
		config: config,
	}
	if err := db.reserveZeroKeys(); err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to reserve zero keys: %w", err)
	}

	logger.Debug().Str("path", config.Path).Msg("Badger database initialized")
	return db, nil
}

// reserveZeroKeys consumes the first value of every row sequence. Sequences
// hand out keys starting at 0, but key 0 doubles as the "absent" sentinel in
// foreign-key fields (models.NoService), so real rows must start at 1.
func (b *BadgerDB) reserveZeroKeys() error {
	session := &models.Session{}
	service := &models.Service{}
	stepd := &models.StepDescription{}
	instance := &models.StepInstance{}
	lock := &models.NamespaceLock{}

	for _, row := range []interface{}{session, service, stepd, instance, lock} {
		if err := b.store.Insert(badgerhold.NextSequence(), row); err != nil {
			return err
		}
	}
	for _, burnt := range []struct {
		key  uint64
		zero interface{}
	}{
		{session.ID, models.Session{}},
		{service.ID, models.Service{}},
		{stepd.ID, models.StepDescription{}},
		{instance.ID, models.StepInstance{}},
		{lock.ID, models.NamespaceLock{}},
	} {
		if err := b.store.Delete(burnt.key, burnt.zero); err != nil {
			return err
		}
	}
	return nil
}

// Store returns the underlying badgerhold store
func (b *BadgerDB) Store() *badgerhold.Store {
	return b.store
}

// Close closes the database connection
func (b *BadgerDB) Close() error {
	if b.store != nil {
		return b.store.Close()
	}
	return nil
}

// logActivity appends an audit row inside the given transaction, so the
// entry commits or aborts together with the mutation it records.
func (b *BadgerDB) logActivity(ctx context.Context, txn *badgerdb.Txn, objectType models.ObjectType, objectID uint64, activity models.Activity) error {
	entry := &models.ActivityEntry{
		ObjectType:    objectType,
		ObjectID:      objectID,
		Activity:      activity,
		CorrelationID: models.CorrelationID(ctx),
		Timestamp:     time.Now(),
	}
	if err := b.store.TxInsert(txn, badgerhold.NextSequence(), entry); err != nil {
		return fmt.Errorf("failed to append activity entry: %w", err)
	}
	return nil
}
