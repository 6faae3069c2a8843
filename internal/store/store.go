package store

import "github.com/cwbudde/texturestats/internal/texture"

// Store defines the interface for results persistence.
// Implementations must be safe for concurrent use.
//
// Error handling conventions:
//   - Return nil error on success
//   - Return ErrNotFound if the dataset doesn't exist (for Load/Append/Delete)
//   - Wrap underlying errors with context using fmt.Errorf("context: %w", err)
type Store interface {
	// SaveDataset persists dataset metadata. If a dataset already exists
	// with this ID its metadata is overwritten; existing records are kept.
	// Implementations should write atomically (temp file + rename) so a
	// crash cannot leave corrupt metadata behind.
	SaveDataset(dataset *Dataset) error

	// LoadDataset retrieves metadata for the given dataset.
	// Returns ErrNotFound if no dataset exists with this ID.
	LoadDataset(id string) (*Dataset, error)

	// ListDatasets returns metadata for all stored datasets, including
	// record counts. The returned slice may be empty.
	ListDatasets() ([]DatasetInfo, error)

	// AppendRecord appends one analysis record to the dataset's results.
	// Returns ErrNotFound if the dataset does not exist.
	AppendRecord(id string, record *texture.Record) error

	// LoadRecords reads back every record stored for the dataset, in
	// append order. Returns ErrNotFound if the dataset does not exist.
	LoadRecords(id string) ([]texture.Record, error)

	// DeleteDataset removes the dataset metadata and all of its records.
	// Returns ErrNotFound if no dataset exists with this ID.
	DeleteDataset(id string) error
}

// ErrNotFound is returned when a requested dataset does not exist.
// Use errors.Is(err, ErrNotFound) to check for this error.
var ErrNotFound = &NotFoundError{}

// NotFoundError represents a missing dataset error.
type NotFoundError struct {
	DatasetID string
}

func (e *NotFoundError) Error() string {
	if e.DatasetID != "" {
		return "dataset not found: " + e.DatasetID
	}
	return "dataset not found"
}

func (e *NotFoundError) Is(target error) bool {
	_, ok := target.(*NotFoundError)
	return ok
}
