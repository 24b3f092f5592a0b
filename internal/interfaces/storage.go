package interfaces

import (
	"context"

	"github.com/ternarybob/webprobe/internal/models"
)

// AccountStorage records every provisioned test account
type AccountStorage interface {
	SaveAccount(ctx context.Context, record *models.AccountRecord) error
	// ListAccounts returns the newest accounts first; limit <= 0 means all
	ListAccounts(ctx context.Context, limit int) ([]*models.AccountRecord, error)
	CountAccounts(ctx context.Context) (int, error)
}

// RunStorage records suite runs
type RunStorage interface {
	SaveRun(ctx context.Context, run *models.RunRecord) error
	GetRun(ctx context.Context, id string) (*models.RunRecord, error)
	// ListRuns returns the newest runs first; limit <= 0 means all
	ListRuns(ctx context.Context, limit int) ([]*models.RunRecord, error)
}

// StorageManager owns the ledger database
type StorageManager interface {
	AccountStorage() AccountStorage
	RunStorage() RunStorage
	Close() error
}
