package presence

import (
	"context"
	"errors"
	"testing"
	"time"

	"netwarden/scanner"
)

// memStore is an in-memory Store for tests. failLoad simulates a corrupt
// cache file; failSave simulates an unwritable disk.
type memStore struct {
	devices  map[string]DeviceRecord
	failLoad bool
	failSave bool
	saves    int
}

func (m *memStore) LoadDevices(ctx context.Context) (map[string]DeviceRecord, error) {
	if m.failLoad {
		return nil, errors.New("corrupt devices file")
	}
	return m.devices, nil
}

func (m *memStore) SaveDevices(ctx context.Context, devices map[string]DeviceRecord) error {
	m.saves++
	if m.failSave {
		return errors.New("disk full")
	}
	m.devices = devices
	return nil
}

func newTestCache(t *testing.T, store *memStore) *Cache {
	t.Helper()
	if store.devices == nil {
		store.devices = make(map[string]DeviceRecord)
	}
	return NewCache(context.Background(), store)
}

func TestReconcileCreatesRecord(t *testing.T) {
	t.Parallel()

	cache := newTestCache(t, &memStore{})
	devices, err := cache.Reconcile(context.Background(), []scanner.Observation{
		{IP: "192.168.1.5", MAC: "aa:bb:cc:dd:ee:ff", Name: "MyPhone"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(devices) != 1 {
		t.Fatalf("expected 1 device, got %d", len(devices))
	}

	d := devices[0]
	if d.MAC != "aa:bb:cc:dd:ee:ff" {
		t.Errorf("mac = %q", d.MAC)
	}
	if d.IP != "192.168.1.5" {
		t.Errorf("ip = %q", d.IP)
	}
	if d.Name != "MyPhone" {
		t.Errorf("name = %q", d.Name)
	}
	if d.Type != scanner.TypePhone {
		t.Errorf("type = %v, want Phone", d.Type)
	}
	if d.Status != StatusOnline {
		t.Errorf("status = %v, want online", d.Status)
	}
	if d.Blocked {
		t.Error("new device should not be blocked")
	}
	if d.LastSeen.IsZero() {
		t.Error("lastSeen should be set")
	}
}

func TestReconcileIdempotent(t *testing.T) {
	t.Parallel()

	cache := newTestCache(t, &memStore{})
	obs := []scanner.Observation{
		{IP: "192.168.1.5", MAC: "aa:bb:cc:dd:ee:ff", Name: "MyPhone"},
		{IP: "192.168.1.6", MAC: "11:22:33:44:55:66", Name: "desk-laptop"},
	}

	first, err := cache.Reconcile(context.Background(), obs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := cache.Reconcile(context.Background(), obs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(first) != len(second) {
		t.Fatalf("device count changed: %d then %d", len(first), len(second))
	}
	for i := range first {
		if first[i].Status != second[i].Status {
			t.Errorf("%s: status changed across identical reconciles", first[i].MAC)
		}
		if first[i].Blocked != second[i].Blocked {
			t.Errorf("%s: blocked changed across identical reconciles", first[i].MAC)
		}
	}
}

func TestReconcileOfflineTransitionPreservesFields(t *testing.T) {
	t.Parallel()

	cache := newTestCache(t, &memStore{})
	obs := []scanner.Observation{{IP: "192.168.1.5", MAC: "aa:bb:cc:dd:ee:ff", Name: "MyPhone"}}
	if _, err := cache.Reconcile(context.Background(), obs); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := cache.SetBlocked(context.Background(), "aa:bb:cc:dd:ee:ff", true); err != nil {
		t.Fatalf("SetBlocked: %v", err)
	}

	devices, err := cache.Reconcile(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(devices) != 1 {
		t.Fatalf("expected 1 device, got %d", len(devices))
	}

	d := devices[0]
	if d.Status != StatusOffline {
		t.Errorf("status = %v, want offline", d.Status)
	}
	if d.IP != "192.168.1.5" {
		t.Errorf("offline transition lost ip: %q", d.IP)
	}
	if d.Name != "MyPhone" {
		t.Errorf("offline transition lost name: %q", d.Name)
	}
	if !d.Blocked {
		t.Error("offline transition lost blocked flag")
	}
}

func TestReconcileBlockedFlagSticky(t *testing.T) {
	t.Parallel()

	cache := newTestCache(t, &memStore{})
	obs := []scanner.Observation{{IP: "192.168.1.5", MAC: "aa:bb:cc:dd:ee:ff", Name: "MyPhone"}}
	if _, err := cache.Reconcile(context.Background(), obs); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := cache.SetBlocked(context.Background(), "aa:bb:cc:dd:ee:ff", true); err != nil {
		t.Fatalf("SetBlocked: %v", err)
	}

	// Device flapping between online and offline must not clear the flag.
	for i := 0; i < 3; i++ {
		if _, err := cache.Reconcile(context.Background(), obs); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, err := cache.Reconcile(context.Background(), nil); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	d, ok := cache.Get("aa:bb:cc:dd:ee:ff")
	if !ok {
		t.Fatal("device missing")
	}
	if !d.Blocked {
		t.Error("blocked flag did not survive reconcile cycles")
	}

	if err := cache.SetBlocked(context.Background(), "aa:bb:cc:dd:ee:ff", false); err != nil {
		t.Fatalf("SetBlocked: %v", err)
	}
	d, _ = cache.Get("aa:bb:cc:dd:ee:ff")
	if d.Blocked {
		t.Error("explicit unblock did not clear the flag")
	}
}

func TestReconcileKeepsKnownNameOverBlank(t *testing.T) {
	t.Parallel()

	cache := newTestCache(t, &memStore{})
	ctx := context.Background()
	if _, err := cache.Reconcile(ctx, []scanner.Observation{
		{IP: "192.168.1.5", MAC: "aa:bb:cc:dd:ee:ff", Name: "MyPhone"},
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := cache.Reconcile(ctx, []scanner.Observation{
		{IP: "192.168.1.99", MAC: "aa:bb:cc:dd:ee:ff"},
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	d, _ := cache.Get("aa:bb:cc:dd:ee:ff")
	if d.Name != "MyPhone" {
		t.Errorf("blank observation overwrote name: %q", d.Name)
	}
	if d.IP != "192.168.1.99" {
		t.Errorf("ip should follow the newest observation: %q", d.IP)
	}
}

func TestReconcileSortsByNameCaseInsensitive(t *testing.T) {
	t.Parallel()

	cache := newTestCache(t, &memStore{})
	devices, err := cache.Reconcile(context.Background(), []scanner.Observation{
		{IP: "192.168.1.2", MAC: "22:22:22:22:22:22", Name: "zebra"},
		{IP: "192.168.1.3", MAC: "33:33:33:33:33:33", Name: "Alpha"},
		{IP: "192.168.1.4", MAC: "44:44:44:44:44:44", Name: "beta"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got := []string{devices[0].Name, devices[1].Name, devices[2].Name}
	want := []string{"Alpha", "beta", "zebra"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("sort order = %v, want %v", got, want)
		}
	}
}

func TestNewCacheCorruptStoreStartsEmpty(t *testing.T) {
	t.Parallel()

	cache := NewCache(context.Background(), &memStore{failLoad: true})
	if n := len(cache.List()); n != 0 {
		t.Errorf("expected empty cache after load failure, got %d devices", n)
	}

	// The cache must still be usable.
	devices, err := cache.Reconcile(context.Background(), []scanner.Observation{
		{IP: "192.168.1.5", MAC: "aa:bb:cc:dd:ee:ff", Name: "MyPhone"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(devices) != 1 {
		t.Errorf("expected 1 device, got %d", len(devices))
	}
}

func TestReconcileSaveFailureKeepsMemoryState(t *testing.T) {
	t.Parallel()

	store := &memStore{failSave: true}
	cache := newTestCache(t, store)

	devices, err := cache.Reconcile(context.Background(), []scanner.Observation{
		{IP: "192.168.1.5", MAC: "aa:bb:cc:dd:ee:ff", Name: "MyPhone"},
	})
	if err != nil {
		t.Fatalf("save failure should not fail the reconcile: %v", err)
	}
	if len(devices) != 1 {
		t.Fatalf("expected 1 device, got %d", len(devices))
	}
	if _, ok := cache.Get("aa:bb:cc:dd:ee:ff"); !ok {
		t.Error("in-memory state lost after save failure")
	}
}

func TestSetBlockedUnknownMACCreatesRecord(t *testing.T) {
	t.Parallel()

	cache := newTestCache(t, &memStore{})
	if err := cache.SetBlocked(context.Background(), "AA:BB:CC:DD:EE:FF", true); err != nil {
		t.Fatalf("SetBlocked: %v", err)
	}

	d, ok := cache.Get("aa:bb:cc:dd:ee:ff")
	if !ok {
		t.Fatal("expected record for blocked unknown MAC")
	}
	if !d.Blocked {
		t.Error("blocked flag not set")
	}
	if d.Status != StatusOffline {
		t.Errorf("status = %v, want offline until first sighting", d.Status)
	}
}

func TestReconcileAdvancesLastSeen(t *testing.T) {
	t.Parallel()

	cache := newTestCache(t, &memStore{})
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	cache.now = func() time.Time { return base }

	obs := []scanner.Observation{{IP: "192.168.1.5", MAC: "aa:bb:cc:dd:ee:ff", Name: "MyPhone"}}
	if _, err := cache.Reconcile(context.Background(), obs); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cache.now = func() time.Time { return base.Add(time.Minute) }
	if _, err := cache.Reconcile(context.Background(), obs); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	d, _ := cache.Get("aa:bb:cc:dd:ee:ff")
	if !d.LastSeen.Equal(base.Add(time.Minute)) {
		t.Errorf("lastSeen = %v, want %v", d.LastSeen, base.Add(time.Minute))
	}
}
