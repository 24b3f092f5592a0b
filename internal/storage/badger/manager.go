package badger

import (
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/webprobe/internal/common"
	"github.com/ternarybob/webprobe/internal/interfaces"
)

// Manager implements the StorageManager interface for Badger
type Manager struct {
	db       *BadgerDB
	accounts interfaces.AccountStorage
	runs     interfaces.RunStorage
	logger   arbor.ILogger
}

// NewManager opens the ledger and wires its storages
func NewManager(logger arbor.ILogger, config *common.BadgerConfig) (interfaces.StorageManager, error) {
	db, err := NewBadgerDB(logger, config)
	if err != nil {
		return nil, err
	}

	return &Manager{
		db:       db,
		accounts: NewAccountStorage(db, logger),
		runs:     NewRunStorage(db, logger),
		logger:   logger,
	}, nil
}

// AccountStorage returns the account ledger
func (m *Manager) AccountStorage() interfaces.AccountStorage {
	return m.accounts
}

// RunStorage returns the run ledger
func (m *Manager) RunStorage() interfaces.RunStorage {
	return m.runs
}

// Close closes the database connection
func (m *Manager) Close() error {
	if m.db != nil {
		return m.db.Close()
	}
	return nil
}
