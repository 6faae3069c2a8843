package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/cwbudde/texturestats/internal/texture"
)

// FSStore implements the Store interface using filesystem-based persistence.
// Each dataset lives in its own directory: <baseDir>/datasets/<id>/ with
// dataset.json metadata and a results.jsonl record log.
//
// Metadata writes use atomic rename; record appends are serialized through
// the ResultWriter's mutex.
type FSStore struct {
	baseDir string
}

// NewFSStore creates a new filesystem-based store.
// The baseDir will be created if it doesn't exist.
func NewFSStore(baseDir string) (*FSStore, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}

	return &FSStore{
		baseDir: baseDir,
	}, nil
}

// BaseDir returns the root directory of the store.
func (fs *FSStore) BaseDir() string {
	return fs.baseDir
}

// datasetDir returns the directory path for a given dataset ID.
func (fs *FSStore) datasetDir(id string) string {
	return filepath.Join(fs.baseDir, "datasets", id)
}

// metadataPath returns the path to the dataset.json file for a dataset.
func (fs *FSStore) metadataPath(id string) string {
	return filepath.Join(fs.datasetDir(id), "dataset.json")
}

// SaveDataset atomically saves dataset metadata.
// Uses temp file + rename pattern to ensure atomicity.
func (fs *FSStore) SaveDataset(dataset *Dataset) error {
	if dataset == nil {
		return fmt.Errorf("dataset cannot be nil")
	}
	if err := dataset.Validate(); err != nil {
		return err
	}

	dir := fs.datasetDir(dataset.ID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create dataset directory: %w", err)
	}

	data, err := json.MarshalIndent(dataset, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize dataset: %w", err)
	}

	// Write to temporary file first (atomic pattern)
	tempPath := fs.metadataPath(dataset.ID) + ".tmp"
	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write temp metadata file: %w", err)
	}

	finalPath := fs.metadataPath(dataset.ID)
	if err := os.Rename(tempPath, finalPath); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to rename metadata file: %w", err)
	}

	slog.Debug("Dataset saved", "dataset_id", dataset.ID, "path", finalPath)
	return nil
}

// LoadDataset retrieves metadata for the given dataset.
func (fs *FSStore) LoadDataset(id string) (*Dataset, error) {
	if id == "" {
		return nil, fmt.Errorf("dataset ID cannot be empty")
	}

	path := fs.metadataPath(id)

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, &NotFoundError{DatasetID: id}
	} else if err != nil {
		return nil, fmt.Errorf("failed to stat metadata file: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read metadata file: %w", err)
	}

	var dataset Dataset
	if err := json.Unmarshal(data, &dataset); err != nil {
		return nil, fmt.Errorf("failed to deserialize dataset: %w", err)
	}

	return &dataset, nil
}

// ListDatasets returns metadata for all stored datasets.
func (fs *FSStore) ListDatasets() ([]DatasetInfo, error) {
	datasetsDir := filepath.Join(fs.baseDir, "datasets")

	if _, err := os.Stat(datasetsDir); os.IsNotExist(err) {
		// No datasets exist yet, return empty slice
		return []DatasetInfo{}, nil
	} else if err != nil {
		return nil, fmt.Errorf("failed to stat datasets directory: %w", err)
	}

	entries, err := os.ReadDir(datasetsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read datasets directory: %w", err)
	}

	var infos []DatasetInfo

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		id := entry.Name()
		dataset, err := fs.LoadDataset(id)
		if err != nil {
			slog.Warn("Failed to load dataset for listing", "dataset_id", id, "error", err)
			continue // skip directories without valid metadata
		}

		count, err := fs.countRecords(id)
		if err != nil {
			slog.Warn("Failed to count records", "dataset_id", id, "error", err)
		}

		infos = append(infos, DatasetInfo{
			ID:        dataset.ID,
			Name:      dataset.Name,
			Source:    dataset.Source,
			CreatedAt: dataset.CreatedAt,
			Records:   count,
		})
	}

	slog.Debug("Listed datasets", "count", len(infos))
	return infos, nil
}

// AppendRecord appends one analysis record to the dataset's result log.
func (fs *FSStore) AppendRecord(id string, record *texture.Record) error {
	if record == nil {
		return fmt.Errorf("record cannot be nil")
	}
	if _, err := fs.LoadDataset(id); err != nil {
		return err
	}

	w, err := NewResultWriter(fs.baseDir, id, true)
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Write(*record); err != nil {
		return err
	}
	return w.Flush()
}

// LoadRecords reads back every record stored for the dataset.
func (fs *FSStore) LoadRecords(id string) ([]texture.Record, error) {
	if _, err := fs.LoadDataset(id); err != nil {
		return nil, err
	}

	r, err := NewResultReader(fs.baseDir, id)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			// Dataset exists but has no records yet
			return []texture.Record{}, nil
		}
		return nil, err
	}
	defer r.Close()

	return r.ReadAll()
}

// DeleteDataset removes the dataset metadata and all of its records.
func (fs *FSStore) DeleteDataset(id string) error {
	if id == "" {
		return fmt.Errorf("dataset ID cannot be empty")
	}

	dir := fs.datasetDir(id)

	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return &NotFoundError{DatasetID: id}
	} else if err != nil {
		return fmt.Errorf("failed to stat dataset directory: %w", err)
	}

	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("failed to remove dataset directory: %w", err)
	}

	slog.Debug("Dataset deleted", "dataset_id", id, "path", dir)
	return nil
}

// countRecords counts the result rows without keeping them in memory.
func (fs *FSStore) countRecords(id string) (int, error) {
	r, err := NewResultReader(fs.baseDir, id)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, nil
		}
		return 0, err
	}
	defer r.Close()

	count := 0
	for {
		_, err := r.Read()
		if err != nil {
			break
		}
		count++
	}
	return count, nil
}
