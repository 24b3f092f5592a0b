package common

import (
	"time"

	"github.com/google/uuid"
)

// NewRunID generates a unique run ID.
// Format: run_<yyyymmdd-hhmmss>_<8 hex chars>, sortable by start time.
func NewRunID(started time.Time) string {
	return "run_" + started.UTC().Format("20060102-150405") + "_" + uuid.New().String()[:8]
}
