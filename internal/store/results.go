package store

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/cwbudde/texturestats/internal/texture"
)

// ResultWriter appends texture analysis records to a JSONL file.
// It uses buffered I/O for performance and is safe for concurrent use.
type ResultWriter struct {
	mu     sync.Mutex
	file   *os.File
	writer *bufio.Writer
	path   string
}

// NewResultWriter creates a writer for the given dataset's result log at
// <baseDir>/datasets/<id>/results.jsonl.
// If append is true, new records are appended to an existing file.
func NewResultWriter(baseDir, datasetID string, append bool) (*ResultWriter, error) {
	dir := filepath.Join(baseDir, "datasets", datasetID)

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create dataset directory: %w", err)
	}

	path := filepath.Join(dir, "results.jsonl")

	var file *os.File
	var err error
	if append {
		file, err = os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	} else {
		file, err = os.Create(path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open results file: %w", err)
	}

	writer := bufio.NewWriterSize(file, 64*1024) // 64KB buffer

	return &ResultWriter{
		file:   file,
		writer: writer,
		path:   path,
	}, nil
}

// Write appends a record to the file.
// The record is buffered and will be written on Flush() or Close().
func (rw *ResultWriter) Write(record texture.Record) error {
	rw.mu.Lock()
	defer rw.mu.Unlock()

	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}

	if _, err := rw.writer.Write(data); err != nil {
		return fmt.Errorf("failed to write record: %w", err)
	}

	if err := rw.writer.WriteByte('\n'); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

// Flush writes any buffered data to the file.
func (rw *ResultWriter) Flush() error {
	rw.mu.Lock()
	defer rw.mu.Unlock()

	if err := rw.writer.Flush(); err != nil {
		return fmt.Errorf("failed to flush result writer: %w", err)
	}

	// Also sync to disk for durability
	if err := rw.file.Sync(); err != nil {
		return fmt.Errorf("failed to sync results file: %w", err)
	}

	return nil
}

// Close flushes buffered data and closes the results file.
func (rw *ResultWriter) Close() error {
	rw.mu.Lock()
	defer rw.mu.Unlock()

	if err := rw.writer.Flush(); err != nil {
		rw.file.Close() // Try to close anyway
		return fmt.Errorf("failed to flush on close: %w", err)
	}

	if err := rw.file.Close(); err != nil {
		return fmt.Errorf("failed to close results file: %w", err)
	}

	return nil
}

// Path returns the filesystem path to the results file.
func (rw *ResultWriter) Path() string {
	return rw.path
}

// ResultReader reads texture analysis records from a JSONL file.
type ResultReader struct {
	file    *os.File
	scanner *bufio.Scanner
}

// NewResultReader creates a reader for the given dataset's result log.
// The returned error satisfies errors.Is(err, os.ErrNotExist) when the
// log has not been created yet.
func NewResultReader(baseDir, datasetID string) (*ResultReader, error) {
	path := filepath.Join(baseDir, "datasets", datasetID, "results.jsonl")

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open results file: %w", err)
	}

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024) // 64KB initial, 1MB max

	return &ResultReader{
		file:    file,
		scanner: scanner,
	}, nil
}

// Read reads the next record from the file.
// Returns io.EOF when no more records are available.
func (rr *ResultReader) Read() (*texture.Record, error) {
	if !rr.scanner.Scan() {
		if err := rr.scanner.Err(); err != nil {
			return nil, fmt.Errorf("failed to scan result line: %w", err)
		}
		return nil, io.EOF
	}

	line := rr.scanner.Bytes()
	var record texture.Record
	if err := json.Unmarshal(line, &record); err != nil {
		return nil, fmt.Errorf("failed to unmarshal record: %w", err)
	}

	return &record, nil
}

// ReadAll reads all records from the file in append order.
func (rr *ResultReader) ReadAll() ([]texture.Record, error) {
	var records []texture.Record

	for {
		record, err := rr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		records = append(records, *record)
	}

	return records, nil
}

// Close closes the result reader.
func (rr *ResultReader) Close() error {
	if err := rr.file.Close(); err != nil {
		return fmt.Errorf("failed to close results file: %w", err)
	}
	return nil
}
