// Package store reads candidate pools and writes the canonical collection as
// flat JSON arrays.
package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"schoolcal/internal/models"
)

// DecodePool parses a JSON array of events. Extractor output is sometimes cut
// off mid-array; when strict decoding fails the text is trimmed after the
// last complete object, closed with ']' and decoded again.
func DecodePool(data []byte) ([]models.Event, error) {
	var events []models.Event
	err := json.Unmarshal(data, &events)
	if err == nil {
		return events, nil
	}

	last := bytes.LastIndexByte(data, '}')
	if last <= 0 {
		return nil, fmt.Errorf("decode pool: %w", err)
	}
	fixed := make([]byte, 0, last+2)
	fixed = append(fixed, data[:last+1]...)
	fixed = append(fixed, ']')

	var recovered []models.Event
	if rerr := json.Unmarshal(fixed, &recovered); rerr != nil {
		return nil, fmt.Errorf("decode pool: %w", err)
	}
	return recovered, nil
}

// LoadPool reads the pool stored at path. A missing file is an empty pool.
func LoadPool(logger *slog.Logger, name, path string) ([]models.Event, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			logger.Warn("Pool file not found, using an empty pool.", "pool", name, "file", path)
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read %s pool: %w", name, err)
	}

	events, err := DecodePool(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s pool %s: %w", name, path, err)
	}
	logger.Debug("Loaded pool.", "pool", name, "file", path, "count", len(events))
	return events, nil
}

// Save writes events to path as an indented JSON array, creating parent
// directories as needed. The file is replaced atomically.
func Save(path string, events []models.Event) error {
	if events == nil {
		events = []models.Event{}
	}
	data, err := json.MarshalIndent(events, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal events: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create output dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".schoolcal-events-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write events: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("failed to chmod events file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}

// Load reads a canonical collection previously written by Save.
func Load(path string) ([]models.Event, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var events []models.Event
	if err := json.Unmarshal(data, &events); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return events, nil
}
