// Package session owns the authentication state of the device.
//
// [Manager] is the only component that installs or clears the bearer token
// of the cloud gateway. Other components learn about sign-in and sign-out by
// subscribing to its events.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ItIsGreg/Raki-sub002/pkg/api"
	"github.com/ItIsGreg/Raki-sub002/pkg/constants"
	"github.com/ItIsGreg/Raki-sub002/pkg/models"
	"github.com/rs/zerolog"
)

// Gateway is the part of the cloud client the manager drives.
type Gateway interface {
	Register(ctx context.Context, email, password, fullName string) (*models.User, error)
	Login(ctx context.Context, email, password string) (*api.TokenResponse, error)
	Logout(ctx context.Context) error
	Me(ctx context.Context) (*models.User, error)
	DeleteAccount(ctx context.Context) error
	Refresh(ctx context.Context) (*api.TokenResponse, error)
	SetAuthToken(token string)
}

// Session is an authenticated user on this device.
type Session struct {
	Token     string
	TokenType string
	User      models.User
	// Offline is set when the session was restored without reaching the
	// server to confirm the token.
	Offline bool
}

type EventKind int

const (
	// EventAcquired fires after login, registration and restore.
	EventAcquired EventKind = iota + 1
	// EventCleared fires after logout or when the server rejected the token.
	EventCleared
	// EventDeleted fires after the account was deleted on the server.
	EventDeleted
	// EventRefreshed fires when the token of the current session was renewed.
	EventRefreshed
)

func (k EventKind) String() string {
	switch k {
	case EventAcquired:
		return "acquired"
	case EventCleared:
		return "cleared"
	case EventDeleted:
		return "deleted"
	case EventRefreshed:
		return "refreshed"
	}
	return fmt.Sprintf("EventKind(%d)", int(k))
}

// Event reports a session transition. For Cleared and Deleted, Session is
// the session that ended.
type Event struct {
	Kind    EventKind
	Session *Session
}

// InvalidCredentialsError is returned by Login when the server rejects the
// email and password.
type InvalidCredentialsError struct {
	Cause error
}

func (e *InvalidCredentialsError) Error() string {
	return "Invalid email or password. Please try again."
}

func (e *InvalidCredentialsError) Is(target error) bool {
	return target == constants.ErrInvalidCredentials || target == constants.ErrUnauthorized
}

func (e *InvalidCredentialsError) Unwrap() error { return e.Cause }

// Manager serializes all session transitions. Subscribers run in
// transition order on the goroutine that caused the transition; they must
// not call back into Login, Logout, Register, DeleteAccount, Restore or
// Refresh.
type Manager struct {
	gw     Gateway
	tokens TokenStore
	log    zerolog.Logger
	now    func() time.Time

	// op serializes transitions and their notifications
	op sync.Mutex

	mu      sync.RWMutex
	current *Session
	nextSub uint64
	subs    map[uint64]func(Event)
	order   []uint64
}

type Option func(*Manager)

func WithLogger(l zerolog.Logger) Option {
	return func(m *Manager) { m.log = l }
}

func NewManager(gw Gateway, tokens TokenStore, opts ...Option) *Manager {
	if tokens == nil {
		tokens = NewMemoryTokenStore()
	}
	m := &Manager{
		gw:     gw,
		tokens: tokens,
		log:    zerolog.Nop(),
		now:    time.Now,
		subs:   make(map[uint64]func(Event)),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Subscribe registers fn for session events. Callbacks run in
// subscription order.
func (m *Manager) Subscribe(fn func(Event)) (unsubscribe func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextSub++
	id := m.nextSub
	m.subs[id] = fn
	m.order = append(m.order, id)

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			defer m.mu.Unlock()
			delete(m.subs, id)
			for i, sid := range m.order {
				if sid == id {
					m.order = append(m.order[:i], m.order[i+1:]...)
					break
				}
			}
		})
	}
}

// Token returns the current bearer token.
func (m *Manager) Token() (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.current == nil {
		return "", false
	}
	return m.current.Token, true
}

// Current returns a copy of the current session, or nil when signed out.
func (m *Manager) Current() *Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.current == nil {
		return nil
	}
	s := *m.current
	return &s
}

// Login signs in. Rejected credentials return *InvalidCredentialsError; an
// unreachable server returns an error wrapping constants.ErrNetwork. On
// failure nothing is persisted and no event fires.
func (m *Manager) Login(ctx context.Context, email, password string) (*Session, error) {
	m.op.Lock()
	defer m.op.Unlock()
	return m.login(ctx, email, password)
}

func (m *Manager) login(ctx context.Context, email, password string) (*Session, error) {
	resp, err := m.gw.Login(ctx, email, password)
	if err != nil {
		if errors.Is(err, constants.ErrUnauthorized) {
			return nil, &InvalidCredentialsError{Cause: err}
		}
		return nil, fmt.Errorf("login: %w", err)
	}
	if resp.AccessToken == "" {
		return nil, fmt.Errorf("login: server returned no token")
	}

	m.gw.SetAuthToken(resp.AccessToken)
	user := resp.User
	if user == nil {
		user, err = m.gw.Me(ctx)
		if err != nil {
			m.gw.SetAuthToken(m.installedToken())
			return nil, fmt.Errorf("login: fetch user: %w", err)
		}
	}

	s := &Session{Token: resp.AccessToken, TokenType: resp.TokenType, User: *user}
	if err := m.acquire(ctx, s); err != nil {
		return nil, err
	}
	m.log.Info().Str("user", user.ID.String()).Msg("signed in")
	return s, nil
}

// Register creates the account and signs in with it. A taken email
// returns an error wrapping constants.ErrEmailTaken.
func (m *Manager) Register(ctx context.Context, email, password string) (*Session, error) {
	m.op.Lock()
	defer m.op.Unlock()

	if _, err := m.gw.Register(ctx, email, password, ""); err != nil {
		if errors.Is(err, constants.ErrConflict) {
			return nil, fmt.Errorf("register %s: %w", email, constants.ErrEmailTaken)
		}
		return nil, fmt.Errorf("register: %w", err)
	}
	return m.login(ctx, email, password)
}

// Logout tells the server to drop the token and always clears the local
// session, even when the server cannot be reached.
func (m *Manager) Logout(ctx context.Context) error {
	m.op.Lock()
	defer m.op.Unlock()

	if m.Current() == nil {
		return nil
	}
	if err := m.gw.Logout(ctx); err != nil {
		m.log.Warn().Err(err).Msg("server logout failed, clearing local session anyway")
	}
	return m.clear(ctx, EventCleared)
}

// DeleteAccount deletes the account on the server. The local session is
// cleared whatever the outcome; the server error, if any, is returned.
func (m *Manager) DeleteAccount(ctx context.Context) error {
	m.op.Lock()
	defer m.op.Unlock()

	if m.Current() == nil {
		return constants.ErrUnauthenticated
	}
	serverErr := m.gw.DeleteAccount(ctx)
	kind := EventDeleted
	if serverErr != nil {
		kind = EventCleared
		m.log.Warn().Err(serverErr).Msg("account deletion failed on the server")
	}
	if err := m.clear(ctx, kind); err != nil && serverErr == nil {
		return err
	}
	if serverErr != nil {
		return fmt.Errorf("delete account: %w", serverErr)
	}
	return nil
}

// Restore loads the persisted token and confirms it with the server. A
// rejected token is cleared. When the server cannot be reached the token is
// kept and the session is restored offline. It returns nil when there is no
// stored token.
func (m *Manager) Restore(ctx context.Context) (*Session, error) {
	m.op.Lock()
	defer m.op.Unlock()

	creds, err := m.tokens.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load token: %w", err)
	}
	if creds == nil || creds.Token == "" {
		return nil, nil
	}

	m.gw.SetAuthToken(creds.Token)
	user, err := m.gw.Me(ctx)
	switch {
	case err == nil:
		s := &Session{Token: creds.Token, TokenType: creds.TokenType, User: *user}
		if err := m.acquire(ctx, s); err != nil {
			return nil, err
		}
		return s, nil
	case errors.Is(err, constants.ErrUnauthorized):
		m.log.Info().Msg("stored token was rejected, clearing it")
		m.gw.SetAuthToken("")
		if err := m.tokens.Clear(ctx); err != nil {
			return nil, fmt.Errorf("clear token: %w", err)
		}
		return nil, nil
	case errors.Is(err, constants.ErrNetwork):
		m.log.Warn().Err(err).Msg("server unreachable, restoring session offline")
		s := &Session{
			Token:     creds.Token,
			TokenType: creds.TokenType,
			User:      models.User{ID: creds.UserID, Email: creds.Email},
			Offline:   true,
		}
		m.set(s)
		m.publish(Event{Kind: EventAcquired, Session: s})
		return s, nil
	default:
		m.gw.SetAuthToken("")
		return nil, fmt.Errorf("restore session: %w", err)
	}
}

// Refresh exchanges the current token for a new one. A rejected token
// clears the session.
func (m *Manager) Refresh(ctx context.Context) (*Session, error) {
	m.op.Lock()
	defer m.op.Unlock()

	cur := m.Current()
	if cur == nil {
		return nil, constants.ErrUnauthenticated
	}
	resp, err := m.gw.Refresh(ctx)
	if err != nil {
		if errors.Is(err, constants.ErrUnauthorized) {
			if clearErr := m.clear(ctx, EventCleared); clearErr != nil {
				m.log.Error().Err(clearErr).Msg("failed to clear rejected session")
			}
		}
		return nil, fmt.Errorf("refresh: %w", err)
	}

	s := &Session{Token: resp.AccessToken, TokenType: resp.TokenType, User: cur.User}
	if resp.User != nil {
		s.User = *resp.User
	}
	m.gw.SetAuthToken(s.Token)
	if err := m.install(ctx, s, EventRefreshed); err != nil {
		return nil, err
	}
	return s, nil
}

// acquire persists the session, installs it and notifies subscribers.
func (m *Manager) acquire(ctx context.Context, s *Session) error {
	return m.install(ctx, s, EventAcquired)
}

func (m *Manager) install(ctx context.Context, s *Session, kind EventKind) error {
	creds := Credentials{
		Token:     s.Token,
		TokenType: s.TokenType,
		UserID:    s.User.ID,
		Email:     s.User.Email,
		SavedAt:   m.now().UTC(),
	}
	if err := m.tokens.Save(ctx, creds); err != nil {
		m.gw.SetAuthToken(m.installedToken())
		return fmt.Errorf("save token: %w", err)
	}
	m.set(s)
	m.publish(Event{Kind: kind, Session: s})
	return nil
}

func (m *Manager) clear(ctx context.Context, kind EventKind) error {
	prev := m.Current()
	m.gw.SetAuthToken("")
	m.set(nil)
	err := m.tokens.Clear(ctx)
	if err != nil {
		m.log.Error().Err(err).Msg("failed to clear stored token")
		err = fmt.Errorf("clear token: %w", err)
	}
	m.publish(Event{Kind: kind, Session: prev})
	return err
}

func (m *Manager) set(s *Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = s
}

// installedToken is the token of the current session, used to roll the
// gateway back after a failed transition.
func (m *Manager) installedToken() string {
	token, _ := m.Token()
	return token
}

func (m *Manager) publish(ev Event) {
	m.mu.RLock()
	fns := make([]func(Event), 0, len(m.order))
	for _, id := range m.order {
		fns = append(fns, m.subs[id])
	}
	m.mu.RUnlock()

	m.log.Debug().Stringer("event", ev.Kind).Msg("session event")
	for _, fn := range fns {
		fn(ev)
	}
}
