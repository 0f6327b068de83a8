// Package session owns who is logged in. It restores the cached session at
// startup, performs login, registration and logout, and drops the session
// when the API gateway reports it invalid.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/nhle/todoctl/internal/api"
	"github.com/nhle/todoctl/internal/credential"
	"github.com/nhle/todoctl/internal/logging"
	"github.com/nhle/todoctl/internal/model"
)

// State is a snapshot of the session.
type State struct {
	User    *model.User
	Token   string
	Loading bool
}

// IsAuthenticated reports whether both a user and a token are present.
func (s State) IsAuthenticated() bool {
	return s.User != nil && s.Token != ""
}

// AuthAPI is the subset of the API client the manager calls. These calls
// bypass the gateway's interception.
type AuthAPI interface {
	Login(ctx context.Context, email, password string) (model.TokenResponse, error)
	Register(ctx context.Context, email, password string) (model.User, error)
	Me(ctx context.Context, token string) (model.User, error)
}

// Manager is safe for concurrent use.
type Manager struct {
	auth  AuthAPI
	store credential.Store
	log   *slog.Logger

	mu    sync.Mutex
	state State

	subsMu  sync.Mutex
	subs    map[int]func(State)
	nextSub int

	unsubscribe func()
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the manager's logger.
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) { m.log = logging.Component(l, "session") }
}

// NewManager creates a manager. When events is non-nil the manager
// subscribes to it once and logs out on every invalidation. The session
// starts in the loading state until Initialize runs.
func NewManager(auth AuthAPI, store credential.Store, events *api.Events, opts ...Option) *Manager {
	m := &Manager{
		auth:  auth,
		store: store,
		log:   logging.Discard(),
		state: State{Loading: true},
		subs:  make(map[int]func(State)),
	}
	for _, opt := range opts {
		opt(m)
	}
	if events != nil {
		m.unsubscribe = events.Subscribe(func(inv api.Invalidation) {
			m.log.Info("session invalidated", "method", inv.Method, "path", inv.Path, "reason", inv.Reason)
			m.Logout()
		})
	}
	return m
}

// Close detaches the manager from the gateway's event bus.
func (m *Manager) Close() {
	if m.unsubscribe != nil {
		m.unsubscribe()
	}
}

// State returns the current session.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// IsAuthenticated reports whether a user is logged in.
func (m *Manager) IsAuthenticated() bool {
	return m.State().IsAuthenticated()
}

// Subscribe registers fn to receive every state change. The returned
// function removes it.
func (m *Manager) Subscribe(fn func(State)) (cancel func()) {
	m.subsMu.Lock()
	id := m.nextSub
	m.nextSub++
	m.subs[id] = fn
	m.subsMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.subsMu.Lock()
			delete(m.subs, id)
			m.subsMu.Unlock()
		})
	}
}

func (m *Manager) set(update func(*State)) {
	m.mu.Lock()
	update(&m.state)
	snapshot := m.state
	m.mu.Unlock()

	m.subsMu.Lock()
	fns := make([]func(State), 0, len(m.subs))
	for _, fn := range m.subs {
		fns = append(fns, fn)
	}
	m.subsMu.Unlock()

	for _, fn := range fns {
		fn(snapshot)
	}
}

func (m *Manager) clearStore() {
	if err := m.store.Clear(); err != nil {
		m.log.Error("clearing cached session", "err", err)
	}
}

// Initialize restores the cached session and validates its token with the
// server. Any failure discards the cache and leaves the session logged out;
// the returned error says why. Loading is always cleared.
func (m *Manager) Initialize(ctx context.Context) error {
	cached, err := m.store.Load()
	if err == nil && !cached.Complete() {
		m.set(func(s *State) { *s = State{} })
		return nil
	}
	if err == nil {
		_, err = m.auth.Me(ctx, cached.Token)
	}
	if err != nil {
		m.log.Warn("discarding cached session", "err", err)
		m.clearStore()
		m.set(func(s *State) { *s = State{} })
		return fmt.Errorf("restoring session: %w", err)
	}

	user := *cached.User
	m.set(func(s *State) { *s = State{User: &user, Token: cached.Token} })
	m.log.Info("session restored", "user_id", user.ID)
	return nil
}

// Login authenticates, loads the profile and caches both. On failure the
// session is cleared and the error returned unchanged.
func (m *Manager) Login(ctx context.Context, email, password string) error {
	m.set(func(s *State) { s.Loading = true })

	user, token, err := m.login(ctx, email, password)
	if err != nil {
		m.set(func(s *State) { *s = State{} })
		return err
	}

	m.set(func(s *State) { *s = State{User: &user, Token: token} })
	m.log.Info("logged in", "user_id", user.ID)
	return nil
}

func (m *Manager) login(ctx context.Context, email, password string) (model.User, string, error) {
	tok, err := m.auth.Login(ctx, email, password)
	if err != nil {
		return model.User{}, "", err
	}
	if tok.AccessToken == "" {
		return model.User{}, "", errors.New("login response carried no access token")
	}

	user, err := m.auth.Me(ctx, tok.AccessToken)
	if err != nil {
		return model.User{}, "", err
	}

	if err := m.store.Save(tok.AccessToken, user); err != nil {
		return model.User{}, "", fmt.Errorf("caching session: %w", err)
	}
	return user, tok.AccessToken, nil
}

// Register creates the account and then logs in with the same credentials.
func (m *Manager) Register(ctx context.Context, email, password string) error {
	m.set(func(s *State) { s.Loading = true })

	if _, err := m.auth.Register(ctx, email, password); err != nil {
		m.set(func(s *State) { *s = State{} })
		return err
	}
	return m.Login(ctx, email, password)
}

// Logout clears the cache and the session. Calling it again is harmless.
func (m *Manager) Logout() {
	m.set(func(s *State) {
		m.clearStore()
		*s = State{}
	})
}

// RefreshUserInfo re-fetches the profile for the current token. Without a
// token it does nothing. A failure logs the user out.
func (m *Manager) RefreshUserInfo(ctx context.Context) error {
	token := m.State().Token
	if token == "" {
		return nil
	}

	user, err := m.auth.Me(ctx, token)
	if err != nil {
		m.log.Warn("refreshing user info", "err", err)
		m.Logout()
		return err
	}

	// The cache is only written while the session is still the one the
	// refresh started from; a logout in between wins.
	m.set(func(s *State) {
		if s.Token != token {
			m.log.Info("session changed during refresh, not caching")
			return
		}
		if err := m.store.Save(token, user); err != nil {
			m.log.Error("caching refreshed user", "err", err)
		}
		s.User = &user
	})
	return nil
}
