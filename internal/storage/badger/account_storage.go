package badger

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/webprobe/internal/interfaces"
	"github.com/ternarybob/webprobe/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// AccountStorage implements the AccountStorage interface for Badger
type AccountStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewAccountStorage creates a new AccountStorage instance
func NewAccountStorage(db *BadgerDB, logger arbor.ILogger) interfaces.AccountStorage {
	return &AccountStorage{
		db:     db,
		logger: logger,
	}
}

func (s *AccountStorage) SaveAccount(ctx context.Context, record *models.AccountRecord) error {
	if record.Username == "" {
		return fmt.Errorf("account username is required")
	}

	if err := s.db.Store().Upsert(record.Username, record); err != nil {
		return fmt.Errorf("failed to save account: %w", err)
	}

	s.logger.Debug().Str("username", record.Username).Str("run_id", record.RunID).Msg("Account recorded")
	return nil
}

func (s *AccountStorage) ListAccounts(ctx context.Context, limit int) ([]*models.AccountRecord, error) {
	query := badgerhold.Where("Username").Ne("").SortBy("CreatedAt").Reverse()
	if limit > 0 {
		query = query.Limit(limit)
	}

	var records []models.AccountRecord
	if err := s.db.Store().Find(&records, query); err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}

	result := make([]*models.AccountRecord, len(records))
	for i := range records {
		result[i] = &records[i]
	}
	return result, nil
}

func (s *AccountStorage) CountAccounts(ctx context.Context) (int, error) {
	count, err := s.db.Store().Count(&models.AccountRecord{}, badgerhold.Where("Username").Ne(""))
	if err != nil {
		return 0, fmt.Errorf("failed to count accounts: %w", err)
	}
	return int(count), nil
}
