// Package session owns the authenticated identity of the running client:
// the bearer token, the user profile and the activity heartbeat that lives
// exactly as long as the login does.
//
// Transitions are ANONYMOUS -> AUTHENTICATED (Establish, or Init restoring a
// persisted record) and AUTHENTICATED -> ANONYMOUS (Clear on logout, Expire
// on a 401). Each transition happens under the manager's lock and stops or
// starts the heartbeat as part of the same step.
package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"safeshift/internal/platform/logger"
	"safeshift/internal/platform/metrics"
	dErrors "safeshift/pkg/domain-errors"
	"safeshift/pkg/platform/sentinel"
)

const defaultBeatTimeout = 30 * time.Second

// Manager is the explicitly owned session object handed to the API client
// and the CLI. The zero value is not usable; construct with New.
type Manager struct {
	mu         sync.Mutex
	token      string
	user       *User
	generation uint64
	hb         *heartbeatTask

	store       Store
	beat        HeartbeatFunc
	onExpire    ExpiryHook
	interval    time.Duration
	beatTimeout time.Duration
	logger      *slog.Logger
	metrics     *metrics.Metrics
	now         func() time.Time
}

type Option func(*Manager)

func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

func WithMetrics(metrics *metrics.Metrics) Option {
	return func(m *Manager) {
		m.metrics = metrics
	}
}

func WithHeartbeatInterval(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.interval = d
		}
	}
}

// WithHeartbeat sets the function each heartbeat tick calls.
func WithHeartbeat(fn HeartbeatFunc) Option {
	return func(m *Manager) {
		m.beat = fn
	}
}

// WithExpiryHook registers what happens after a 401 invalidates the
// session, typically sending the user back to the login entry point.
func WithExpiryHook(fn ExpiryHook) Option {
	return func(m *Manager) {
		m.onExpire = fn
	}
}

// WithClock overrides time.Now for persisted timestamps.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

// New creates an anonymous session. A nil store keeps the session in memory only.
func New(store Store, opts ...Option) *Manager {
	m := &Manager{
		store:       store,
		interval:    5 * time.Minute,
		beatTimeout: defaultBeatTimeout,
		logger:      logger.Discard(),
		now:         time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}
	if m.beatTimeout > m.interval {
		m.beatTimeout = m.interval
	}
	return m
}

// SetHeartbeat installs the heartbeat function after construction. The API
// client uses this to register itself, since it needs the manager first.
func (m *Manager) SetHeartbeat(fn HeartbeatFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.beat = fn
}

// SetExpiryHook replaces the expiry hook.
func (m *Manager) SetExpiryHook(fn ExpiryHook) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onExpire = fn
}

// Init restores a persisted session, if any, and starts its heartbeat.
func (m *Manager) Init(ctx context.Context) error {
	return m.restore(ctx, true)
}

// Restore loads a persisted session without starting the heartbeat. Commands
// that are about to replace or drop the login use it so the old token is not
// reported as active.
func (m *Manager) Restore(ctx context.Context) error {
	return m.restore(ctx, false)
}

func (m *Manager) restore(ctx context.Context, heartbeat bool) error {
	if m.store == nil {
		return nil
	}
	rec, err := m.store.Load(ctx)
	switch {
	case errors.Is(err, sentinel.ErrNotFound), errors.Is(err, sentinel.ErrExpired):
		return nil
	case errors.Is(err, sentinel.ErrCorrupt):
		// unreadable record: start anonymous instead of blocking every command
		m.logger.WarnContext(ctx, "discarding unreadable session record", "error", err)
		if derr := m.store.Delete(ctx); derr != nil && !errors.Is(derr, sentinel.ErrNotFound) {
			m.logger.WarnContext(ctx, "failed to delete session record", "error", derr)
		}
		return nil
	case err != nil:
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load session")
	}
	if rec.Token == "" {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.setLocked(rec.Token, rec.User)
	if heartbeat {
		m.startHeartbeatLocked()
	}
	if m.metrics != nil {
		m.metrics.SetSessionActive(true)
	}
	m.logger.DebugContext(ctx, "session restored", "user_id", rec.User.ID, "heartbeat", heartbeat)
	return nil
}

// Establish moves to AUTHENTICATED with the given credentials, persists
// them and (re)starts the heartbeat.
func (m *Manager) Establish(ctx context.Context, token string, user User) error {
	if token == "" {
		return dErrors.New(dErrors.CodeInvalidState, "token required")
	}
	if user.ID == "" {
		return dErrors.New(dErrors.CodeInvalidState, "user required")
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopHeartbeatLocked()
	m.setLocked(token, user)

	if m.store != nil {
		rec := Record{Token: token, User: user, SavedAt: m.now()}
		if err := m.store.Save(ctx, rec); err != nil {
			m.logger.WarnContext(ctx, "failed to persist session", "error", err)
		}
	}

	m.startHeartbeatLocked()
	if m.metrics != nil {
		m.metrics.IncSessionTransition("established")
		m.metrics.SetSessionActive(true)
	}
	m.logger.InfoContext(ctx, "session established", "user_id", user.ID, "role", string(user.Role))
	return nil
}

// Clear moves to ANONYMOUS: token and user are dropped, the heartbeat is
// stopped and the persisted record deleted. Idempotent.
func (m *Manager) Clear(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.clearLocked(ctx) {
		return
	}
	if m.metrics != nil {
		m.metrics.IncSessionTransition("cleared")
	}
	m.logger.InfoContext(ctx, "session cleared")
}

// Expire handles a 401 seen by a request made under generation. Only the
// first caller for the current login performs the transition and runs the
// expiry hook; everyone else gets false.
func (m *Manager) Expire(ctx context.Context, generation uint64) bool {
	m.mu.Lock()
	if m.token == "" || m.generation != generation {
		m.mu.Unlock()
		return false
	}
	m.clearLocked(ctx)
	hook := m.onExpire
	m.mu.Unlock()

	if m.metrics != nil {
		m.metrics.IncSessionTransition("expired")
	}
	m.logger.WarnContext(ctx, "session expired; signed out")
	if hook != nil {
		hook(ctx)
	}
	return true
}

// Teardown stops the heartbeat and waits for it to exit, keeping the
// persisted record so the next process can resume the login.
func (m *Manager) Teardown(ctx context.Context) error {
	m.mu.Lock()
	task := m.hb
	m.stopHeartbeatLocked()
	m.mu.Unlock()

	if task == nil {
		return nil
	}
	select {
	case <-task.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Current returns a consistent snapshot.
func (m *Manager) Current() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	var user *User
	if m.user != nil {
		u := *m.user
		user = &u
	}
	return Snapshot{Token: m.token, User: user, Generation: m.generation}
}

// Token returns the bearer token, or "" when anonymous.
func (m *Manager) Token() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token
}

// User returns the signed-in user.
func (m *Manager) User() (User, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.user == nil {
		return User{}, false
	}
	return *m.user, true
}

func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.token == "" {
		return StateAnonymous
	}
	return StateAuthenticated
}

func (m *Manager) setLocked(token string, user User) {
	m.token = token
	m.user = &user
	m.generation++
}

// clearLocked reports whether there was a session to clear.
func (m *Manager) clearLocked(ctx context.Context) bool {
	m.stopHeartbeatLocked()
	had := m.token != ""
	m.token = ""
	m.user = nil
	m.generation++

	if m.store != nil {
		if err := m.store.Delete(ctx); err != nil && !errors.Is(err, sentinel.ErrNotFound) {
			m.logger.WarnContext(ctx, "failed to delete persisted session", "error", err)
		}
	}
	if m.metrics != nil {
		m.metrics.SetSessionActive(false)
	}
	return had
}
