package store

import (
	"time"
)

// Dataset groups the analysis records produced over one batch of images,
// for example every region extracted from a single study or directory.
// The metadata is serialized to dataset.json; the records themselves live
// in an append-only results.jsonl next to it.
type Dataset struct {
	// ID is the unique identifier for this dataset
	ID string `json:"id"`

	// Name is a human-readable label shown in listings
	Name string `json:"name"`

	// Source describes where the analyzed images came from (directory,
	// upload, API call); informational only
	Source string `json:"source,omitempty"`

	// CreatedAt records when this dataset was created
	CreatedAt time.Time `json:"createdAt"`
}

// DatasetInfo contains listing metadata for a dataset, including the
// number of stored records, without loading the records themselves.
type DatasetInfo struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Source    string    `json:"source,omitempty"`
	CreatedAt time.Time `json:"createdAt"`

	// Records is the number of result rows currently stored
	Records int `json:"records"`
}

// NewDataset creates dataset metadata with the creation time set to now.
func NewDataset(id, name, source string) *Dataset {
	return &Dataset{
		ID:        id,
		Name:      name,
		Source:    source,
		CreatedAt: time.Now(),
	}
}

// Validate checks if the dataset has valid metadata.
// Returns an error if any required field is missing or invalid.
func (d *Dataset) Validate() error {
	if d.ID == "" {
		return &ValidationError{Field: "ID", Reason: "cannot be empty"}
	}
	if d.Name == "" {
		return &ValidationError{Field: "Name", Reason: "cannot be empty"}
	}
	if d.CreatedAt.IsZero() {
		return &ValidationError{Field: "CreatedAt", Reason: "cannot be zero"}
	}
	return nil
}

// ValidationError represents a dataset validation error.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return "validation error: " + e.Field + " " + e.Reason
}
