// Package authorize owns the pending-request queue for unrecognized
// devices and the time-boxed guest sessions. Both are constructor-injected
// state so tests can run isolated instances.
package authorize

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"netwarden/access"
	"netwarden/events"
	"netwarden/logger"
)

// Resolution actions.
const (
	ActionApprove = "approve"
	ActionDeny    = "deny"
)

// PendingRequest is one unresolved access request from an unrecognized
// device. Resolved requests leave the queue immediately; there is no
// historical log here.
type PendingRequest struct {
	MAC       string    `json:"mac"`
	IP        string    `json:"ip"`
	Name      string    `json:"name"`
	Timestamp time.Time `json:"timestamp"`
	Status    string    `json:"status"`
}

// Workflow manages the pending-request set and drives enforcement on
// resolution. The refresh hook re-runs a reconcile-and-broadcast cycle so
// subscribers see updated block state without waiting for the next scan
// tick; it may be nil in tests.
type Workflow struct {
	mu      sync.Mutex
	pending map[string]PendingRequest
	access  *access.Controller
	hub     *events.Hub
	timers  *TimerRegistry
	refresh func()
	now     func() time.Time
}

// NewWorkflow creates a Workflow. hub and refresh may be nil.
func NewWorkflow(ctrl *access.Controller, hub *events.Hub, refresh func()) *Workflow {
	return &Workflow{
		pending: make(map[string]PendingRequest),
		access:  ctrl,
		hub:     hub,
		timers:  NewTimerRegistry(),
		refresh: refresh,
		now:     time.Now,
	}
}

// Request records an access attempt from mac. Repeated attempts from the
// same unresolved device are no-ops so the queue cannot be flooded.
func (w *Workflow) Request(mac, ip, name string) {
	mac = strings.ToLower(mac)

	w.mu.Lock()
	if _, exists := w.pending[mac]; exists {
		w.mu.Unlock()
		return
	}
	req := PendingRequest{MAC: mac, IP: ip, Name: name, Timestamp: w.now(), Status: "pending"}
	w.pending[mac] = req
	w.mu.Unlock()

	logger.Get().Info("authorize: new device attempt",
		zap.String("mac", mac), zap.String("ip", ip), zap.String("name", name))
	if w.hub != nil {
		w.hub.Broadcast(events.NewDeviceAttempt(mac, ip, name))
	}
}

// Pending returns unresolved requests, oldest first.
func (w *Workflow) Pending() []PendingRequest {
	w.mu.Lock()
	defer w.mu.Unlock()

	out := make([]PendingRequest, 0, len(w.pending))
	for _, req := range w.pending {
		out = append(out, req)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out
}

// Resolve settles the request for mac. The pending entry is removed up
// front regardless of whether it existed or enforcement succeeds; an
// admin may act on a device known through other means.
//
// Approve unblocks the device; a positive timeLimitMinutes arms an
// auto-revoke that blocks it again after that many minutes. Deny blocks
// and deauthenticates immediately. Either way any previously armed timer
// for the MAC is cancelled first.
func (w *Workflow) Resolve(ctx context.Context, mac, action string, timeLimitMinutes int) error {
	mac = strings.ToLower(mac)

	w.mu.Lock()
	delete(w.pending, mac)
	w.mu.Unlock()

	w.timers.Cancel(mac)

	switch action {
	case ActionApprove:
		if err := w.access.Unblock(ctx, mac); err != nil {
			return err
		}
		if timeLimitMinutes > 0 {
			w.scheduleAutoBlock(mac, time.Duration(timeLimitMinutes)*time.Minute)
		}
		if w.hub != nil {
			w.hub.Broadcast(events.DeviceApproved(mac))
		}
	case ActionDeny:
		if err := w.access.Block(ctx, mac); err != nil {
			return err
		}
	default:
		return fmt.Errorf("authorize: unknown action %q", action)
	}

	if w.refresh != nil {
		go w.refresh()
	}
	return nil
}

// scheduleAutoBlock arms the time-limited-approval revoke for mac.
func (w *Workflow) scheduleAutoBlock(mac string, d time.Duration) {
	logger.Get().Info("authorize: time-limited approval",
		zap.String("mac", mac), zap.Duration("limit", d))

	w.timers.Schedule(mac, d, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := w.access.Block(ctx, mac); err != nil {
			logger.Get().Error("authorize: auto-block failed", zap.String("mac", mac), zap.Error(err))
			return
		}
		if w.refresh != nil {
			w.refresh()
		}
	})
}

// AutoBlockPending reports whether mac has an armed auto-revoke timer.
func (w *Workflow) AutoBlockPending(mac string) bool {
	return w.timers.Pending(strings.ToLower(mac))
}

// Close cancels all armed timers.
func (w *Workflow) Close() {
	w.timers.Stop()
}
