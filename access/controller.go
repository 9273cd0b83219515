// Package access enforces per-device network access by MAC address. It
// installs and removes firewall DROP rules and asks the access point to
// deauthenticate blocked clients. The persisted blocked flag on the
// device record is the durable source of truth; firewall state is a
// re-derivable enforcement side effect.
package access

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"netwarden/events"
	"netwarden/logger"
	"netwarden/presence"
	"netwarden/scanner"
)

// EnforcementError reports a failed firewall rule insertion. Rule removal
// failures are never surfaced, since an absent rule already satisfies an
// unblock.
type EnforcementError struct {
	MAC string
	Op  string
	Err error
}

func (e *EnforcementError) Error() string {
	return fmt.Sprintf("enforcement %s failed for %s: %v", e.Op, e.MAC, e.Err)
}

func (e *EnforcementError) Unwrap() error { return e.Err }

// Controller applies and removes block rules for MACs. It is the sole
// writer of the Blocked flag on device records.
type Controller struct {
	runner scanner.Runner
	cache  *presence.Cache
	hub    *events.Hub
	iface  string
}

// NewController wires a Controller. hub may be nil in tests.
func NewController(runner scanner.Runner, cache *presence.Cache, hub *events.Hub, wirelessIface string) *Controller {
	return &Controller{runner: runner, cache: cache, hub: hub, iface: wirelessIface}
}

// Block drops all traffic from mac on inbound and forwarded chains, then
// asks the access point to deauthenticate the client. The DROP insertions
// must succeed; deauth is a best-effort accelerant, and the device is
// considered blocked once traffic is actually dropped.
func (c *Controller) Block(ctx context.Context, mac string) error {
	mac = strings.ToLower(mac)
	log := logger.Get()

	for _, chain := range []string{"INPUT", "FORWARD"} {
		if _, err := c.runner.Run(ctx, "iptables", "-I", chain, "-m", "mac", "--mac-source", mac, "-j", "DROP"); err != nil {
			return &EnforcementError{MAC: mac, Op: "block", Err: err}
		}
	}

	if _, err := c.runner.Run(ctx, "hostapd_cli", "-i", c.iface, "deauthenticate", mac); err != nil {
		// Traffic is already dropped; a failed deauth only delays the
		// disconnect until the client gives up on its own.
		log.Warn("access: deauth failed", zap.String("mac", mac), zap.Error(err))
	}

	if err := c.cache.SetBlocked(ctx, mac, true); err != nil {
		log.Warn("access: failed to persist blocked flag", zap.String("mac", mac), zap.Error(err))
	}
	if c.hub != nil {
		c.hub.Broadcast(events.DeviceBlocked(mac))
	}
	log.Info("access: device blocked", zap.String("mac", mac))
	return nil
}

// Unblock removes the DROP rules for mac. Removal failures (typically
// "rule not found") are swallowed: unblocking an already-unblocked MAC is
// not an error. No deauth is issued; the device re-associates on its own.
func (c *Controller) Unblock(ctx context.Context, mac string) error {
	mac = strings.ToLower(mac)
	log := logger.Get()

	for _, chain := range []string{"INPUT", "FORWARD"} {
		if _, err := c.runner.Run(ctx, "iptables", "-D", chain, "-m", "mac", "--mac-source", mac, "-j", "DROP"); err != nil {
			log.Debug("access: rule removal reported error (treated as already removed)",
				zap.String("mac", mac), zap.String("chain", chain), zap.Error(err))
		}
	}

	if err := c.cache.SetBlocked(ctx, mac, false); err != nil {
		log.Warn("access: failed to persist blocked flag", zap.String("mac", mac), zap.Error(err))
	}
	if c.hub != nil {
		c.hub.Broadcast(events.DeviceUnblocked(mac))
	}
	log.Info("access: device unblocked", zap.String("mac", mac))
	return nil
}
