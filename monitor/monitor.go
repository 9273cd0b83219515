// Package monitor drives the periodic reconcile-and-broadcast cycle.
// It owns the scan loop: run the discovery command, enrich the raw
// observations with mDNS and SNMP names, hand never-before-seen MACs to
// the authorization workflow, reconcile the presence cache, and push
// the resulting snapshot to subscribers. The cache write-through runs
// before the broadcast so subscribers never see unpersisted state.
package monitor

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"netwarden/events"
	"netwarden/logger"
	"netwarden/presence"
	"netwarden/scanner"
)

// Authorizer receives devices the cache has never seen before.
type Authorizer interface {
	Request(mac, ip, name string)
}

// Options tune the optional enrichment probes and the loop cadence.
type Options struct {
	Interval      time.Duration
	MDNSEnabled   bool
	SNMPEnabled   bool
	SNMPCommunity string
}

// Monitor ties the scanner, cache, hub and workflow together.
type Monitor struct {
	scanner *scanner.Scanner
	cache   *presence.Cache
	hub     *events.Hub
	auth    Authorizer
	opts    Options

	trigger chan struct{}
}

func New(sc *scanner.Scanner, cache *presence.Cache, hub *events.Hub, auth Authorizer, opts Options) *Monitor {
	if opts.Interval <= 0 {
		opts.Interval = time.Minute
	}
	return &Monitor{
		scanner: sc,
		cache:   cache,
		hub:     hub,
		auth:    auth,
		opts:    opts,
		trigger: make(chan struct{}, 1),
	}
}

// SetAuthorizer installs the pending-request sink after construction. The
// workflow refreshes through the monitor and the monitor routes into the
// workflow, so wiring is two-step: build the monitor first, hand its
// Refresh to the workflow, then install the workflow here before Run
// starts.
func (m *Monitor) SetAuthorizer(auth Authorizer) {
	m.auth = auth
}

// RunCycle executes one full scan-and-reconcile pass and returns the
// merged device list. On scan failure the last-known-good cache is
// broadcast instead and a ScanError is returned.
func (m *Monitor) RunCycle(ctx context.Context) ([]presence.DeviceRecord, error) {
	log := logger.Get()

	observations, err := m.scanner.Scan(ctx)
	if err != nil {
		var scanErr *scanner.ScanError
		if errors.As(err, &scanErr) {
			log.Warn("scan failed, serving cached device list", zap.Error(err))
		} else {
			log.Warn("scan aborted", zap.Error(err))
		}
		cached := m.cache.List()
		m.broadcast(cached)
		return cached, err
	}

	m.enrich(ctx, observations)

	// Route MACs the cache has never seen into the pending queue
	// before the reconcile records them.
	if m.auth != nil {
		for _, obs := range observations {
			if _, known := m.cache.Get(obs.MAC); !known {
				m.auth.Request(obs.MAC, obs.IP, obs.Name)
			}
		}
	}

	devices, err := m.cache.Reconcile(ctx, observations)
	if err != nil {
		return devices, err
	}
	m.broadcast(devices)

	log.Debug("scan cycle complete",
		zap.Int("observed", len(observations)),
		zap.Int("devices", len(devices)))
	return devices, nil
}

// enrich fills in missing observation names from mDNS browse results
// and, as a fallback, per-device SNMP sysName probes. Both are
// best-effort and probed sequentially.
func (m *Monitor) enrich(ctx context.Context, observations []scanner.Observation) {
	var mdnsNames map[string]string
	if m.opts.MDNSEnabled {
		mdnsNames = scanner.BrowseMDNSNames(ctx, 3*time.Second)
	}
	for i := range observations {
		if observations[i].Name != "" {
			continue
		}
		if name, ok := mdnsNames[observations[i].IP]; ok && name != "" {
			observations[i].Name = name
			continue
		}
		if m.opts.SNMPEnabled {
			observations[i].Name = scanner.QuerySysName(observations[i].IP, m.opts.SNMPCommunity, 2*time.Second)
		}
	}
}

// Broadcast pushes the current cached device list to subscribers
// without scanning. The workflow and guest manager call this after a
// block state change so dashboards update immediately.
func (m *Monitor) Broadcast() {
	m.broadcast(m.cache.List())
}

func (m *Monitor) broadcast(devices []presence.DeviceRecord) {
	if m.hub == nil {
		return
	}
	m.hub.Broadcast(events.DeviceScan(devices))
}

// Refresh requests an out-of-band scan cycle from the running loop.
// It never blocks; a refresh already queued is enough.
func (m *Monitor) Refresh() {
	select {
	case m.trigger <- struct{}{}:
	default:
	}
}

// Run loops until ctx is cancelled, scanning every Interval and on
// every Refresh call. The first cycle runs immediately.
func (m *Monitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.opts.Interval)
	defer ticker.Stop()

	m.RunCycle(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.RunCycle(ctx)
		case <-m.trigger:
			m.RunCycle(ctx)
		}
	}
}
