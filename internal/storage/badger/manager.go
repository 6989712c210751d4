package badger

import (
	"github.com/ternarybob/arbor"

	"github.com/hpcwfm/wfm/internal/common"
	"github.com/hpcwfm/wfm/internal/interfaces"
)

// Manager aggregates the entity stores over one Badger database
type Manager struct {
	db       *BadgerDB
	sessions interfaces.SessionStorage
	services interfaces.ServiceStorage
	steps    interfaces.StepStorage
	locks    interfaces.LockStorage
	activity interfaces.ActivityStorage
}

// NewManager opens the database and wires the entity stores
func NewManager(logger arbor.ILogger, config *common.BadgerConfig) (*Manager, error) {
	db, err := NewBadgerDB(logger, config)
	if err != nil {
		return nil, err
	}

	return &Manager{
		db:       db,
		sessions: NewSessionStorage(db, logger),
		services: NewServiceStorage(db, logger),
		steps:    NewStepStorage(db, logger),
		locks:    NewLockStorage(db, logger),
		activity: NewActivityStorage(db, logger),
	}, nil
}

func (m *Manager) Sessions() interfaces.SessionStorage { return m.sessions }

func (m *Manager) Services() interfaces.ServiceStorage { return m.services }

func (m *Manager) Steps() interfaces.StepStorage { return m.steps }

func (m *Manager) Locks() interfaces.LockStorage { return m.locks }

func (m *Manager) Activity() interfaces.ActivityStorage { return m.activity }

// Close closes the underlying database
func (m *Manager) Close() error {
	return m.db.Close()
}
