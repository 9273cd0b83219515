package authorize

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"netwarden/access"
	"netwarden/logger"
)

// ErrGuestExists is returned when admitting a MAC that already has a session.
var ErrGuestExists = errors.New("authorize: guest session already exists")

// ErrGuestNotFound is returned when removing a MAC with no session.
var ErrGuestNotFound = errors.New("authorize: guest session not found")

// GuestSession is a time-boxed admission for a visiting device. A nil
// ExpiresAt means the session is unlimited.
type GuestSession struct {
	MAC       string     `json:"mac"`
	Name      string     `json:"name"`
	JoinedAt  time.Time  `json:"joinedAt"`
	ExpiresAt *time.Time `json:"expiresAt"`
}

// GuestStore persists the guest session list. Implemented by the storage
// package alongside the device store.
type GuestStore interface {
	LoadGuests(ctx context.Context) ([]GuestSession, error)
	SaveGuests(ctx context.Context, sessions []GuestSession) error
}

// GuestManager owns guest sessions and their expiry timers. Admission
// unblocks the device; expiry or removal blocks it again.
type GuestManager struct {
	mu       sync.Mutex
	sessions map[string]GuestSession
	store    GuestStore
	access   *access.Controller
	timers   *TimerRegistry
	refresh  func()
	now      func() time.Time
}

// NewGuestManager loads persisted sessions and re-arms expiry timers.
// Sessions whose deadline passed while the agent was down are expired
// immediately. Load failures start with an empty session list.
func NewGuestManager(ctx context.Context, store GuestStore, ctrl *access.Controller, refresh func()) *GuestManager {
	m := &GuestManager{
		sessions: make(map[string]GuestSession),
		store:    store,
		access:   ctrl,
		timers:   NewTimerRegistry(),
		refresh:  refresh,
		now:      time.Now,
	}

	sessions, err := store.LoadGuests(ctx)
	if err != nil {
		logger.Get().Warn("authorize: guest sessions unreadable, starting empty", zap.Error(err))
		return m
	}

	// Populate the session map completely before any expire goroutine can
	// touch it; expire locks, deletes and iterates the same map.
	now := m.now()
	var elapsed []string
	m.mu.Lock()
	for _, s := range sessions {
		if s.ExpiresAt != nil && !s.ExpiresAt.After(now) {
			// Deadline passed while we were down.
			elapsed = append(elapsed, s.MAC)
			continue
		}
		m.sessions[s.MAC] = s
	}
	m.mu.Unlock()

	for _, s := range sessions {
		if s.ExpiresAt != nil && s.ExpiresAt.After(now) {
			mac := s.MAC
			m.timers.Schedule(mac, s.ExpiresAt.Sub(now), func() { m.expire(mac) })
		}
	}
	for _, mac := range elapsed {
		go m.expire(mac)
	}
	return m
}

// Admit opens a guest session for mac and unblocks it. A positive
// durationMinutes sets the expiry; zero means unlimited.
func (m *GuestManager) Admit(ctx context.Context, mac, name string, durationMinutes int) (GuestSession, error) {
	mac = strings.ToLower(mac)

	m.mu.Lock()
	if _, exists := m.sessions[mac]; exists {
		m.mu.Unlock()
		return GuestSession{}, ErrGuestExists
	}

	session := GuestSession{MAC: mac, Name: name, JoinedAt: m.now()}
	if durationMinutes > 0 {
		exp := session.JoinedAt.Add(time.Duration(durationMinutes) * time.Minute)
		session.ExpiresAt = &exp
	}
	m.sessions[mac] = session
	m.mu.Unlock()

	if err := m.access.Unblock(ctx, mac); err != nil {
		m.mu.Lock()
		delete(m.sessions, mac)
		m.mu.Unlock()
		return GuestSession{}, err
	}

	if session.ExpiresAt != nil {
		m.timers.Schedule(mac, time.Until(*session.ExpiresAt), func() { m.expire(mac) })
	}
	m.persist(ctx)

	logger.Get().Info("authorize: guest admitted",
		zap.String("mac", mac), zap.String("name", name), zap.Int("minutes", durationMinutes))
	return session, nil
}

// Remove ends the session for mac, cancelling its expiry timer and
// blocking the device.
func (m *GuestManager) Remove(ctx context.Context, mac string) error {
	mac = strings.ToLower(mac)

	m.mu.Lock()
	if _, exists := m.sessions[mac]; !exists {
		m.mu.Unlock()
		return ErrGuestNotFound
	}
	delete(m.sessions, mac)
	m.mu.Unlock()

	m.timers.Cancel(mac)

	if err := m.access.Block(ctx, mac); err != nil {
		return err
	}
	m.persist(ctx)
	return nil
}

// List returns sessions ordered by join time.
func (m *GuestManager) List() []GuestSession {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]GuestSession, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].JoinedAt.Before(out[j].JoinedAt) })
	return out
}

// expire ends an elapsed session: the device is blocked again and the
// session removed. Runs from the timer goroutine.
func (m *GuestManager) expire(mac string) {
	logger.Get().Info("authorize: guest session expired", zap.String("mac", mac))

	m.mu.Lock()
	delete(m.sessions, mac)
	m.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := m.access.Block(ctx, mac); err != nil {
		logger.Get().Error("authorize: guest expiry block failed", zap.String("mac", mac), zap.Error(err))
	}
	m.persist(ctx)

	if m.refresh != nil {
		m.refresh()
	}
}

func (m *GuestManager) persist(ctx context.Context) {
	m.mu.Lock()
	sessions := make([]GuestSession, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.mu.Unlock()

	sort.Slice(sessions, func(i, j int) bool { return sessions[i].JoinedAt.Before(sessions[j].JoinedAt) })
	if err := m.store.SaveGuests(ctx, sessions); err != nil {
		logger.Get().Warn("authorize: guest session save failed", zap.Error(err))
	}
}

// Close cancels all expiry timers.
func (m *GuestManager) Close() {
	m.timers.Stop()
}
