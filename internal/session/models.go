package session

import (
	"context"
	"time"
)

// Role is the authorization level of a user profile.
type Role string

const (
	RoleEmployee Role = "employee"
	RoleAdmin    Role = "admin"
)

func (r Role) IsValid() bool {
	return r == RoleEmployee || r == RoleAdmin
}

// User is the denormalized profile returned at login.
type User struct {
	ID           string `json:"id"`
	Email        string `json:"email"`
	FullName     string `json:"full_name"`
	Role         Role   `json:"role"`
	DepartmentID string `json:"department_id,omitempty"`
	EmployeeID   string `json:"employee_id,omitempty"`
	IsActive     bool   `json:"is_active"`
}

func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// State is the session lifecycle state.
type State int

const (
	StateAnonymous State = iota
	StateAuthenticated
)

func (s State) String() string {
	if s == StateAuthenticated {
		return "authenticated"
	}
	return "anonymous"
}

// Snapshot is a consistent read of the session. Generation identifies the
// login it belongs to; it changes on every establish and clear.
type Snapshot struct {
	Token      string
	User       *User
	Generation uint64
}

func (s Snapshot) Authenticated() bool {
	return s.Token != ""
}

// Record is what a Store persists between process runs.
type Record struct {
	Token   string    `json:"token"`
	User    User      `json:"user"`
	SavedAt time.Time `json:"saved_at"`
}

// Store persists the session record. Load returns sentinel.ErrNotFound
// when nothing is stored.
type Store interface {
	Load(ctx context.Context) (*Record, error)
	Save(ctx context.Context, rec Record) error
	Delete(ctx context.Context) error
}

// HeartbeatFunc sends one activity heartbeat.
type HeartbeatFunc func(ctx context.Context) error

// ExpiryHook runs once after a session is invalidated by a 401.
type ExpiryHook func(ctx context.Context)

// CancelFunc stops a heartbeat. Safe to call more than once.
type CancelFunc func()
