// Package storage persists agent state. The default backend is a pair of
// JSON files (a MAC-keyed device object, a guest session array), rewritten
// in full on every save. The device counts involved make write-through
// cheaper than being clever. A SQLite backend implements the same
// interfaces for installs that prefer an embedded database.
package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"netwarden/authorize"
	"netwarden/presence"
)

const (
	devicesFilename = "devices.json"
	guestsFilename  = "guests.json"
)

// JSONStore persists devices and guest sessions as JSON files under a
// data directory.
type JSONStore struct {
	mu          sync.Mutex
	devicesPath string
	guestsPath  string
}

// NewJSONStore creates the data directory if needed and returns a store
// rooted there.
func NewJSONStore(dataDir string) (*JSONStore, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("storage: create data dir: %w", err)
	}
	return &JSONStore{
		devicesPath: filepath.Join(dataDir, devicesFilename),
		guestsPath:  filepath.Join(dataDir, guestsFilename),
	}, nil
}

// LoadDevices reads the device map. A missing file is a cold start and
// yields an empty map; a corrupt file is reported so the caller can log
// and fall back to empty.
func (s *JSONStore) LoadDevices(ctx context.Context) (map[string]presence.DeviceRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.devicesPath)
	if os.IsNotExist(err) {
		return map[string]presence.DeviceRecord{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("storage: read devices: %w", err)
	}

	devices := make(map[string]presence.DeviceRecord)
	if err := json.Unmarshal(data, &devices); err != nil {
		return nil, fmt.Errorf("storage: corrupt devices file: %w", err)
	}
	return devices, nil
}

// SaveDevices rewrites the device file with the full map.
func (s *JSONStore) SaveDevices(ctx context.Context, devices map[string]presence.DeviceRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return writeJSONAtomic(s.devicesPath, devices)
}

// LoadGuests reads the guest session list; missing file means no guests.
func (s *JSONStore) LoadGuests(ctx context.Context) ([]authorize.GuestSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.guestsPath)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("storage: read guests: %w", err)
	}

	var sessions []authorize.GuestSession
	if err := json.Unmarshal(data, &sessions); err != nil {
		return nil, fmt.Errorf("storage: corrupt guests file: %w", err)
	}
	return sessions, nil
}

// SaveGuests rewrites the guest session file.
func (s *JSONStore) SaveGuests(ctx context.Context, sessions []authorize.GuestSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sessions == nil {
		sessions = []authorize.GuestSession{}
	}
	return writeJSONAtomic(s.guestsPath, sessions)
}

// Close is a no-op for the JSON backend.
func (s *JSONStore) Close() error { return nil }

// writeJSONAtomic writes via a temp file and rename so a crash mid-write
// cannot leave a truncated file behind.
func writeJSONAtomic(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("storage: marshal: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("storage: write %s: %w", filepath.Base(path), err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("storage: replace %s: %w", filepath.Base(path), err)
	}
	return nil
}
