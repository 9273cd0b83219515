package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"netwarden/authorize"
	"netwarden/presence"
	"netwarden/scanner"
)

func sampleDevices() map[string]presence.DeviceRecord {
	return map[string]presence.DeviceRecord{
		"aa:bb:cc:dd:ee:ff": {
			MAC:      "aa:bb:cc:dd:ee:ff",
			IP:       "192.168.1.5",
			Name:     "MyPhone",
			Vendor:   "Samsung",
			Type:     scanner.TypePhone,
			Status:   presence.StatusOnline,
			Blocked:  true,
			LastSeen: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		},
		"11:22:33:44:55:66": {
			MAC:    "11:22:33:44:55:66",
			IP:     "192.168.1.6",
			Status: presence.StatusOffline,
		},
	}
}

func TestJSONStoreDeviceRoundTrip(t *testing.T) {
	t.Parallel()

	store, err := NewJSONStore(t.TempDir())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	ctx := context.Background()

	want := sampleDevices()
	if err := store.SaveDevices(ctx, want); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := store.LoadDevices(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if len(got) != len(want) {
		t.Fatalf("loaded %d devices, want %d", len(got), len(want))
	}
	d := got["aa:bb:cc:dd:ee:ff"]
	if d.Name != "MyPhone" || !d.Blocked || d.Type != scanner.TypePhone {
		t.Errorf("round trip mangled record: %+v", d)
	}
	if !d.LastSeen.Equal(want["aa:bb:cc:dd:ee:ff"].LastSeen) {
		t.Errorf("lastSeen = %v", d.LastSeen)
	}
}

func TestJSONStoreMissingFileColdStart(t *testing.T) {
	t.Parallel()

	store, err := NewJSONStore(t.TempDir())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}

	devices, err := store.LoadDevices(context.Background())
	if err != nil {
		t.Fatalf("missing file should load as empty, got error: %v", err)
	}
	if len(devices) != 0 {
		t.Errorf("expected empty map, got %d devices", len(devices))
	}

	guests, err := store.LoadGuests(context.Background())
	if err != nil {
		t.Fatalf("missing guests file: %v", err)
	}
	if len(guests) != 0 {
		t.Errorf("expected no guests, got %d", len(guests))
	}
}

func TestJSONStoreCorruptFileReportsError(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	store, err := NewJSONStore(dir)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, devicesFilename), []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write corrupt file: %v", err)
	}

	if _, err := store.LoadDevices(context.Background()); err == nil {
		t.Error("corrupt file should surface an error for the caller to treat as cold start")
	}
}

func TestJSONStoreGuestRoundTrip(t *testing.T) {
	t.Parallel()

	store, err := NewJSONStore(t.TempDir())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	ctx := context.Background()

	exp := time.Date(2025, 6, 1, 14, 0, 0, 0, time.UTC)
	want := []authorize.GuestSession{
		{MAC: "aa:bb:cc:dd:ee:ff", Name: "visitor", JoinedAt: exp.Add(-2 * time.Hour), ExpiresAt: &exp},
		{MAC: "11:22:33:44:55:66", Name: "open-ended", JoinedAt: exp.Add(-time.Hour)},
	}
	if err := store.SaveGuests(ctx, want); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := store.LoadGuests(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if len(got) != 2 {
		t.Fatalf("loaded %d sessions, want 2", len(got))
	}
	if got[0].ExpiresAt == nil || !got[0].ExpiresAt.Equal(exp) {
		t.Errorf("expiresAt = %v", got[0].ExpiresAt)
	}
	if got[1].ExpiresAt != nil {
		t.Error("unlimited session gained an expiry")
	}
}

func TestJSONStoreSaveLeavesNoTempFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	store, err := NewJSONStore(dir)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	if err := store.SaveDevices(context.Background(), sampleDevices()); err != nil {
		t.Fatalf("save: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("readdir: %v", err)
	}
	for _, e := range entries {
		if filepath.Ext(e.Name()) == ".tmp" {
			t.Errorf("temp file left behind: %s", e.Name())
		}
	}
}
