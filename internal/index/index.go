package index

import "github.com/starford/dailylog/internal/models"

// VaultIndex defines the file-tracking and journal operations.
// Consumers should depend on this interface rather than the concrete *DB type
// to facilitate testing with mocks.
type VaultIndex interface {
	UpsertFile(row FileRow) error
	DeleteFile(path string) error
	GetChecksum(path string) (string, error)
	AllChecksums() (map[string]string, error)
	RecordActivity(a models.Activity) error
	ListActivity(date string, limit int) ([]models.Activity, error)
	Close() error
}

// Verify *DB satisfies VaultIndex at compile time.
var _ VaultIndex = (*DB)(nil)
