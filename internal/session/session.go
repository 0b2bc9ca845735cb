// Package session owns the authenticated-session lifecycle: login,
// registration, logout, startup verification, and periodic silent refresh.
//
// The manager is a three-state machine (Unauthenticated, Verifying,
// Authenticated) and fails closed: any verification or refresh failure,
// network errors included, lands in Unauthenticated with all credential
// storage cleared. A network partition never grants access.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"coursectl/internal/api"
	"coursectl/internal/credstore"
	"coursectl/internal/models"
)

// State is the session lifecycle state.
type State int

const (
	StateUnauthenticated State = iota
	StateVerifying
	StateAuthenticated
)

func (s State) String() string {
	switch s {
	case StateUnauthenticated:
		return "unauthenticated"
	case StateVerifying:
		return "verifying"
	case StateAuthenticated:
		return "authenticated"
	default:
		return ""
	}
}

// Session is the live session snapshot. Exactly one is held per process.
type Session struct {
	UserID        string
	Email         string
	Name          string
	Role          string
	Token         string
	Authenticated bool
	Verifying     bool
}

// LogoutOpts controls logout behavior.
type LogoutOpts struct {
	Silent         bool // log at debug instead of info
	SkipServerCall bool // skip the best-effort backend notification
}

// authPayload is the envelope data returned by login, register, and
// token verification.
type authPayload struct {
	Token string      `json:"token"`
	User  models.User `json:"user"`
}

// Manager owns the process-wide session.
//
// The epoch counter enforces ordering between user actions and background
// completions: logout and login bump it, and any verify/refresh result is
// applied only if the epoch it started under is still current. A logout
// racing an in-flight refresh therefore always wins.
type Manager struct {
	mu      sync.Mutex
	state   State
	session Session
	epoch   uint64

	client *api.Client
	creds  *credstore.Store
	logger *log.Logger

	refreshStop chan struct{}
	refreshDone chan struct{}
}

// ManagerOpts contains configuration options for creating a Manager.
type ManagerOpts struct {
	Client      *api.Client
	Credentials *credstore.Store
	Logger      *log.Logger
}

// NewManager creates a Manager in the Unauthenticated state.
func NewManager(opts ManagerOpts) *Manager {
	return &Manager{
		state:  StateUnauthenticated,
		client: opts.Client,
		creds:  opts.Credentials,
		logger: opts.Logger,
	}
}

// Token returns the current bearer token, or an empty string. It performs
// no I/O and is safe to call from any goroutine.
func (m *Manager) Token() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session.Token
}

// State returns the current lifecycle state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Current returns a snapshot of the live session.
func (m *Manager) Current() Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session
}

// Initialize verifies any stored credential on process start and returns the
// resulting state. All failure paths resolve to Unauthenticated with
// credential storage cleared; Initialize never returns an error.
func (m *Manager) Initialize(ctx context.Context) State {
	stored := m.creds.Read()
	if stored == "" {
		m.mu.Lock()
		m.state = StateUnauthenticated
		m.mu.Unlock()
		return StateUnauthenticated
	}

	m.mu.Lock()
	m.state = StateVerifying
	m.session = Session{Token: stored, Verifying: true}
	epoch := m.epoch
	m.mu.Unlock()

	var payload authPayload
	err := m.client.Get(ctx, "/auth/validate-token", nil, &payload)

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.epoch != epoch {
		return m.state
	}
	if err != nil {
		m.logger.Debug("startup verification failed", "err", err)
		m.creds.Clear()
		m.state = StateUnauthenticated
		m.session = Session{}
		return StateUnauthenticated
	}

	m.state = StateAuthenticated
	m.session = sessionFrom(payload.User, stored)
	return StateAuthenticated
}

// Login exchanges credentials for a token. On failure the state is
// Unauthenticated but any pre-existing stored credential is left untouched.
func (m *Manager) Login(ctx context.Context, email, password string) error {
	var payload authPayload
	body := map[string]string{"email": email, "password": password}
	if err := m.client.Post(ctx, "/auth/login", body, &payload); err != nil {
		m.mu.Lock()
		m.state = StateUnauthenticated
		m.session = Session{}
		m.mu.Unlock()
		return err
	}

	if err := m.creds.Write(payload.Token); err != nil {
		m.logger.Warn("credential persistence failed, session is memory-only", "err", err)
	}

	m.mu.Lock()
	m.epoch++
	m.state = StateAuthenticated
	m.session = sessionFrom(payload.User, payload.Token)
	m.mu.Unlock()
	return nil
}

// Register creates an account. The backend may or may not return a token;
// without one the account needs follow-up verification and the state stays
// Unauthenticated, which is not an error.
func (m *Manager) Register(ctx context.Context, name, email, password string) error {
	var payload authPayload
	body := map[string]string{"name": name, "email": email, "password": password}
	if err := m.client.Post(ctx, "/auth/register", body, &payload); err != nil {
		return err
	}

	if payload.Token == "" {
		return nil
	}

	if err := m.creds.Write(payload.Token); err != nil {
		m.logger.Warn("credential persistence failed, session is memory-only", "err", err)
	}

	m.mu.Lock()
	m.epoch++
	m.state = StateAuthenticated
	m.session = sessionFrom(payload.User, payload.Token)
	m.mu.Unlock()
	return nil
}

// Logout informs the backend best-effort, then unconditionally clears all
// credential storage and resets the session. Logout always succeeds locally
// even when the network is down.
func (m *Manager) Logout(ctx context.Context, opts LogoutOpts) {
	if !opts.SkipServerCall {
		if err := m.client.Post(ctx, "/auth/logout", nil, nil); err != nil {
			if opts.Silent {
				m.logger.Debug("server logout failed", "err", err)
			} else {
				m.logger.Warn("server logout failed, clearing local session anyway", "err", err)
			}
		}
	}

	m.mu.Lock()
	m.epoch++
	m.state = StateUnauthenticated
	m.session = Session{}
	m.mu.Unlock()

	m.creds.Clear()
}

// Refresh re-verifies the current token. Failures perform a silent logout
// rather than surfacing an error; an active session is never interrupted by
// a background refresh. No-op unless Authenticated.
func (m *Manager) Refresh(ctx context.Context) {
	m.mu.Lock()
	if m.state != StateAuthenticated {
		m.mu.Unlock()
		return
	}
	epoch := m.epoch
	token := m.session.Token
	m.mu.Unlock()

	var payload authPayload
	err := m.client.Get(ctx, "/auth/validate-token", nil, &payload)

	m.mu.Lock()
	if m.epoch != epoch {
		// Logout or re-login happened while the refresh was in flight.
		m.mu.Unlock()
		return
	}
	if err != nil {
		m.mu.Unlock()
		m.logger.Debug("silent refresh failed, logging out", "err", err)
		m.Logout(ctx, LogoutOpts{Silent: true, SkipServerCall: true})
		return
	}

	m.session = sessionFrom(payload.User, token)
	m.mu.Unlock()
}

// StartAutoRefresh launches the recurring silent refresh loop. Call Close
// to stop it; starting twice restarts the loop.
func (m *Manager) StartAutoRefresh(interval time.Duration) {
	m.Close()

	stop := make(chan struct{})
	done := make(chan struct{})
	m.mu.Lock()
	m.refreshStop = stop
	m.refreshDone = done
	m.mu.Unlock()

	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				m.Refresh(context.Background())
			case <-stop:
				return
			}
		}
	}()
}

// Close stops the refresh loop and waits for it to exit. Safe to call
// multiple times or without a running loop.
func (m *Manager) Close() {
	m.mu.Lock()
	stop, done := m.refreshStop, m.refreshDone
	m.refreshStop, m.refreshDone = nil, nil
	m.mu.Unlock()

	if stop != nil {
		close(stop)
		<-done
	}
}

func sessionFrom(user models.User, token string) Session {
	return Session{
		UserID:        user.ID,
		Email:         user.Email,
		Name:          user.Name,
		Role:          user.Role,
		Token:         token,
		Authenticated: true,
	}
}
