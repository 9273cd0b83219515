package presence

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"netwarden/logger"
	"netwarden/scanner"
)

// Store persists the full device map. Implementations live in the storage
// package; a corrupt or missing file must load as an empty map rather than
// failing, per the cold-start rule.
type Store interface {
	LoadDevices(ctx context.Context) (map[string]DeviceRecord, error)
	SaveDevices(ctx context.Context, devices map[string]DeviceRecord) error
}

// Cache reconciles scan observations against persisted device state. It is
// the sole writer of Status and LastSeen; Blocked is written only through
// SetBlocked on behalf of the access controller.
type Cache struct {
	mu      sync.RWMutex
	store   Store
	devices map[string]DeviceRecord
	now     func() time.Time
}

// NewCache loads existing device state from store. Load failures are
// logged and treated as an empty cache.
func NewCache(ctx context.Context, store Store) *Cache {
	devices, err := store.LoadDevices(ctx)
	if err != nil {
		logger.Get().Warn("presence: cache unreadable, starting empty", zap.Error(err))
		devices = nil
	}
	if devices == nil {
		devices = make(map[string]DeviceRecord)
	}
	return &Cache{store: store, devices: devices, now: time.Now}
}

// Reconcile merges one scan's observations into the cache: observed MACs
// are upserted and marked online, everything else is marked offline with
// all other fields untouched. The merged state is persisted before the
// method returns so callers can safely broadcast the result. The returned
// list is sorted by name (case-insensitive) for deterministic rendering.
func (c *Cache) Reconcile(ctx context.Context, observations []scanner.Observation) ([]DeviceRecord, error) {
	c.mu.Lock()
	now := c.now()
	seen := make(map[string]bool, len(observations))

	for _, o := range observations {
		mac := strings.ToLower(o.MAC)
		if mac == "" {
			continue
		}
		seen[mac] = true

		rec, ok := c.devices[mac]
		if !ok {
			rec = DeviceRecord{MAC: mac}
		}
		rec.IP = o.IP
		if o.Name != "" {
			// Never overwrite a known name with blank.
			rec.Name = o.Name
		}
		rec.Vendor = scanner.LookupVendor(mac)
		rec.Type = scanner.ClassifyDevice(rec.Vendor, rec.Name)
		rec.Status = StatusOnline
		rec.LastSeen = now
		c.devices[mac] = rec
	}

	for mac, rec := range c.devices {
		if !seen[mac] && rec.Status != StatusOffline {
			rec.Status = StatusOffline
			c.devices[mac] = rec
		}
	}

	snapshot := c.snapshotLocked()
	c.mu.Unlock()

	// Write-through on every reconcile; an unwritable store keeps serving
	// in-memory state, so the error is logged but the merge still stands.
	if err := c.store.SaveDevices(ctx, c.copyMap()); err != nil {
		logger.Get().Warn("presence: cache save failed", zap.Error(err))
	}
	return snapshot, nil
}

// List returns the current device set sorted by name (case-insensitive),
// ties broken by MAC.
func (c *Cache) List() []DeviceRecord {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snapshotLocked()
}

// Get returns the record for a MAC.
func (c *Cache) Get(mac string) (DeviceRecord, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	rec, ok := c.devices[strings.ToLower(mac)]
	return rec, ok
}

// SetBlocked flips the sticky blocked flag for a MAC and persists the
// cache. Unknown MACs get a minimal record created: the access controller
// may legitimately block a device before its first successful scan.
func (c *Cache) SetBlocked(ctx context.Context, mac string, blocked bool) error {
	mac = strings.ToLower(mac)
	c.mu.Lock()
	rec, ok := c.devices[mac]
	if !ok {
		rec = DeviceRecord{
			MAC:    mac,
			Vendor: scanner.LookupVendor(mac),
			Type:   scanner.TypeOther,
			Status: StatusOffline,
		}
	}
	rec.Blocked = blocked
	c.devices[mac] = rec
	c.mu.Unlock()

	return c.store.SaveDevices(ctx, c.copyMap())
}

func (c *Cache) snapshotLocked() []DeviceRecord {
	out := make([]DeviceRecord, 0, len(c.devices))
	for _, rec := range c.devices {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool {
		ni, nj := strings.ToLower(out[i].Name), strings.ToLower(out[j].Name)
		if ni != nj {
			return ni < nj
		}
		return out[i].MAC < out[j].MAC
	})
	return out
}

func (c *Cache) copyMap() map[string]DeviceRecord {
	c.mu.RLock()
	defer c.mu.RUnlock()
	cp := make(map[string]DeviceRecord, len(c.devices))
	for k, v := range c.devices {
		cp[k] = v
	}
	return cp
}
