// Package session holds the client-side authentication state: who is logged
// in, whether a login or restore is in flight, and where that identity is
// persisted between runs.
package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/maratonas-femininas/maratonas/internal/identity"
)

var (
	// ErrBusy is returned when a login is attempted while another is in flight.
	ErrBusy = errors.New("session: login already in progress")
	// ErrNotReady is returned when a login is attempted before Restore resolved.
	ErrNotReady = errors.New("session: not restored yet")
	// ErrAlreadyAuthenticated is returned when logging in without logging out first.
	ErrAlreadyAuthenticated = errors.New("session: already authenticated")
	// ErrClosed is returned once the manager has been closed.
	ErrClosed = errors.New("session: manager closed")
)

// State is the position of the session in its lifecycle.
type State uint8

const (
	StateUnknown State = iota
	StateAnonymous
	StateAuthenticated
)

func (s State) String() string {
	switch s {
	case StateUnknown:
		return "unknown"
	case StateAnonymous:
		return "anonymous"
	case StateAuthenticated:
		return "authenticated"
	default:
		return "invalid"
	}
}

// Exchanger trades an identifier/secret pair for an identity. Any error means
// authentication did not succeed.
type Exchanger interface {
	Exchange(ctx context.Context, identifier, secret string) (identity.Identity, error)
}

// ExchangeFunc adapts a function to Exchanger.
type ExchangeFunc func(ctx context.Context, identifier, secret string) (identity.Identity, error)

func (f ExchangeFunc) Exchange(ctx context.Context, identifier, secret string) (identity.Identity, error) {
	return f(ctx, identifier, secret)
}

// Snapshot is a read-only view of the session.
type Snapshot struct {
	State    State
	Identity identity.Identity
	Loading  bool
}

// Role is the current role, identity.RoleNone unless authenticated.
func (s Snapshot) Role() identity.Role {
	if s.State != StateAuthenticated {
		return identity.RoleNone
	}
	return s.Identity.Role
}

// Manager is the only writer of session state. Readers use Snapshot, Current
// or Subscribe.
type Manager struct {
	store     *Store
	exchanger Exchanger
	logger    *slog.Logger

	mu       sync.Mutex
	state    State
	ident    identity.Identity
	loading  bool
	restored bool
	closed   bool
	nextSub  int
	subs     map[int]chan Snapshot

	// restoreDone is closed when the single store load finishes.
	restoreDone chan struct{}
	restoreErr  error
}

// NewManager builds a manager in StateUnknown. Call Restore before use.
func NewManager(store *Store, exchanger Exchanger, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		store:     store,
		exchanger: exchanger,
		logger:    logger,
		subs:      make(map[int]chan Snapshot),
	}
}

// Restore resolves the initial state from the store. The store is read once;
// later calls wait for that load, or for ctx, and return its result. A
// storage failure leaves the session Anonymous and is returned.
func (m *Manager) Restore(ctx context.Context) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrClosed
	}
	if done := m.restoreDone; done != nil {
		m.mu.Unlock()
		select {
		case <-done:
		case <-ctx.Done():
			return ctx.Err()
		}
		m.mu.Lock()
		defer m.mu.Unlock()
		return m.restoreErr
	}
	m.restoreDone = make(chan struct{})
	m.loading = true
	m.publishLocked()
	m.mu.Unlock()

	ident, ok, err := m.store.Load(ctx)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.loading = false
	m.restored = true
	m.restoreErr = err
	close(m.restoreDone)
	if m.state == StateUnknown {
		switch {
		case err == nil && ok:
			m.state = StateAuthenticated
			m.ident = ident
		default:
			m.state = StateAnonymous
		}
	}
	m.publishLocked()
	if err != nil {
		m.logger.Error("restore session", slog.Any("error", err))
		return err
	}
	if ok {
		m.logger.Debug("session restored", slog.String("user_id", string(ident.ID)), slog.String("role", ident.Role.String()))
	}
	return nil
}

// EstablishSession exchanges credentials and, on success, persists and adopts
// the resulting identity. A rejected exchange returns (false, nil) and leaves
// the session Anonymous. Errors are reserved for misuse (ErrBusy, ErrNotReady,
// ErrAlreadyAuthenticated), cancellation and storage failures.
func (m *Manager) EstablishSession(ctx context.Context, identifier, secret string) (bool, error) {
	m.mu.Lock()
	switch {
	case m.closed:
		m.mu.Unlock()
		return false, ErrClosed
	case m.state == StateUnknown:
		m.mu.Unlock()
		return false, ErrNotReady
	case m.loading:
		m.mu.Unlock()
		return false, ErrBusy
	case m.state == StateAuthenticated:
		m.mu.Unlock()
		return false, ErrAlreadyAuthenticated
	}
	m.loading = true
	m.publishLocked()
	m.mu.Unlock()

	ident, exErr := m.exchanger.Exchange(ctx, identifier, secret)
	if exErr == nil {
		exErr = ident.Validate()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.loading = false

	if m.closed {
		return false, ErrClosed
	}
	if err := ctx.Err(); err != nil {
		m.publishLocked()
		return false, err
	}
	if exErr != nil {
		m.logger.Info("credential exchange failed", slog.Any("error", exErr))
		m.publishLocked()
		return false, nil
	}
	if err := m.store.Save(ctx, ident); err != nil {
		m.publishLocked()
		return false, err
	}

	m.state = StateAuthenticated
	m.ident = ident
	m.publishLocked()
	m.logger.Info("session established", slog.String("user_id", string(ident.ID)), slog.String("role", ident.Role.String()))
	return true, nil
}

// ClearSession logs out. The transition to Anonymous is immediate and happens
// even when erasing the durable record fails; that failure is returned.
// Calling it while already Anonymous does nothing.
func (m *Manager) ClearSession(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == StateAnonymous {
		return nil
	}
	m.state = StateAnonymous
	m.ident = identity.Identity{}
	m.restored = true
	m.publishLocked()
	return m.store.Clear(ctx)
}

// Snapshot returns the current view.
func (m *Manager) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

// Current returns the authenticated identity, if any.
func (m *Manager) Current() (identity.Identity, bool) {
	snap := m.Snapshot()
	return snap.Identity, snap.State == StateAuthenticated
}

// Subscribe returns a channel that receives the latest snapshot after every
// change, starting with the current one. Slow readers only see the most
// recent value. The returned func unsubscribes.
func (m *Manager) Subscribe() (<-chan Snapshot, func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ch := make(chan Snapshot, 1)
	if m.closed {
		close(ch)
		return ch, func() {}
	}
	id := m.nextSub
	m.nextSub++
	m.subs[id] = ch
	ch <- m.snapshotLocked()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			m.mu.Lock()
			defer m.mu.Unlock()
			if sub, ok := m.subs[id]; ok {
				delete(m.subs, id)
				close(sub)
			}
		})
	}
}

// Close detaches the manager from its owner. In-flight logins are discarded
// and subscribers are released. The persisted record is left untouched.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	m.closed = true
	for id, ch := range m.subs {
		delete(m.subs, id)
		close(ch)
	}
}

func (m *Manager) snapshotLocked() Snapshot {
	return Snapshot{State: m.state, Identity: m.ident, Loading: m.loading}
}

func (m *Manager) publishLocked() {
	snap := m.snapshotLocked()
	for _, ch := range m.subs {
		select {
		case <-ch:
		default:
		}
		ch <- snap
	}
}
