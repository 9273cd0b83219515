package access

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"netwarden/presence"
	"netwarden/scanner"
)

type memStore struct {
	devices map[string]presence.DeviceRecord
}

func (m *memStore) LoadDevices(ctx context.Context) (map[string]presence.DeviceRecord, error) {
	return m.devices, nil
}

func (m *memStore) SaveDevices(ctx context.Context, devices map[string]presence.DeviceRecord) error {
	m.devices = devices
	return nil
}

// recordingRunner captures every command invocation and lets individual
// commands be failed by name.
type recordingRunner struct {
	calls []string
	fail  map[string]error
}

func (r *recordingRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	call := name + " " + strings.Join(args, " ")
	r.calls = append(r.calls, call)
	if err, ok := r.fail[name]; ok {
		return nil, err
	}
	return nil, nil
}

func newTestController(runner scanner.Runner) (*Controller, *presence.Cache) {
	cache := presence.NewCache(context.Background(), &memStore{})
	return NewController(runner, cache, nil, "wlan0"), cache
}

func TestBlockCommandSequence(t *testing.T) {
	t.Parallel()

	runner := &recordingRunner{}
	ctrl, cache := newTestController(runner)

	if err := ctrl.Block(context.Background(), "AA:BB:CC:DD:EE:FF"); err != nil {
		t.Fatalf("block: %v", err)
	}

	want := []string{
		"iptables -I INPUT -m mac --mac-source aa:bb:cc:dd:ee:ff -j DROP",
		"iptables -I FORWARD -m mac --mac-source aa:bb:cc:dd:ee:ff -j DROP",
		"hostapd_cli -i wlan0 deauthenticate aa:bb:cc:dd:ee:ff",
	}
	if len(runner.calls) != len(want) {
		t.Fatalf("got %d calls, want %d: %v", len(runner.calls), len(want), runner.calls)
	}
	for i := range want {
		if runner.calls[i] != want[i] {
			t.Errorf("call %d = %q, want %q", i, runner.calls[i], want[i])
		}
	}

	d, ok := cache.Get("aa:bb:cc:dd:ee:ff")
	if !ok || !d.Blocked {
		t.Error("blocked flag not persisted")
	}
}

func TestBlockIptablesFailureReturnsEnforcementError(t *testing.T) {
	t.Parallel()

	runner := &recordingRunner{fail: map[string]error{"iptables": errors.New("permission denied")}}
	ctrl, cache := newTestController(runner)

	err := ctrl.Block(context.Background(), "aa:bb:cc:dd:ee:ff")
	if err == nil {
		t.Fatal("expected error when iptables fails")
	}
	var enfErr *EnforcementError
	if !errors.As(err, &enfErr) {
		t.Fatalf("expected *EnforcementError, got %T", err)
	}
	if enfErr.MAC != "aa:bb:cc:dd:ee:ff" || enfErr.Op != "block" {
		t.Errorf("error fields: mac=%q op=%q", enfErr.MAC, enfErr.Op)
	}

	if d, ok := cache.Get("aa:bb:cc:dd:ee:ff"); ok && d.Blocked {
		t.Error("blocked flag must not be set when enforcement failed")
	}
}

func TestBlockDeauthFailureTolerated(t *testing.T) {
	t.Parallel()

	runner := &recordingRunner{fail: map[string]error{"hostapd_cli": errors.New("no station")}}
	ctrl, cache := newTestController(runner)

	if err := ctrl.Block(context.Background(), "aa:bb:cc:dd:ee:ff"); err != nil {
		t.Fatalf("deauth failure should not fail the block: %v", err)
	}
	d, _ := cache.Get("aa:bb:cc:dd:ee:ff")
	if !d.Blocked {
		t.Error("blocked flag not set")
	}
}

func TestUnblockSwallowsRemovalFailure(t *testing.T) {
	t.Parallel()

	runner := &recordingRunner{fail: map[string]error{"iptables": fmt.Errorf("Bad rule (does a matching rule exist in that chain?)")}}
	ctrl, cache := newTestController(runner)

	if err := ctrl.Unblock(context.Background(), "aa:bb:cc:dd:ee:ff"); err != nil {
		t.Fatalf("unblock of an unblocked MAC must not error: %v", err)
	}
	d, _ := cache.Get("aa:bb:cc:dd:ee:ff")
	if d.Blocked {
		t.Error("blocked flag should be cleared")
	}
}

func TestUnblockCommandSequence(t *testing.T) {
	t.Parallel()

	runner := &recordingRunner{}
	ctrl, _ := newTestController(runner)

	if err := ctrl.Unblock(context.Background(), "aa:bb:cc:dd:ee:ff"); err != nil {
		t.Fatalf("unblock: %v", err)
	}

	want := []string{
		"iptables -D INPUT -m mac --mac-source aa:bb:cc:dd:ee:ff -j DROP",
		"iptables -D FORWARD -m mac --mac-source aa:bb:cc:dd:ee:ff -j DROP",
	}
	if len(runner.calls) != len(want) {
		t.Fatalf("got %d calls, want %d: %v", len(runner.calls), len(want), runner.calls)
	}
	for i := range want {
		if runner.calls[i] != want[i] {
			t.Errorf("call %d = %q, want %q", i, runner.calls[i], want[i])
		}
	}
}

func TestBlockUnblockIdempotent(t *testing.T) {
	t.Parallel()

	runner := &recordingRunner{}
	ctrl, cache := newTestController(runner)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := ctrl.Block(ctx, "aa:bb:cc:dd:ee:ff"); err != nil {
			t.Fatalf("block %d: %v", i, err)
		}
	}
	if d, _ := cache.Get("aa:bb:cc:dd:ee:ff"); !d.Blocked {
		t.Error("blocked flag lost after repeated block")
	}

	for i := 0; i < 2; i++ {
		if err := ctrl.Unblock(ctx, "aa:bb:cc:dd:ee:ff"); err != nil {
			t.Fatalf("unblock %d: %v", i, err)
		}
	}
	if d, _ := cache.Get("aa:bb:cc:dd:ee:ff"); d.Blocked {
		t.Error("blocked flag set after repeated unblock")
	}
}
