// Package fakeapi is an in-memory development double of the SafeShift REST
// API. It implements the contract the client consumes so the CLI and the
// client tests can run without the production backend.
package fakeapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"golang.org/x/crypto/bcrypt"

	"safeshift/internal/platform/logger"
	"safeshift/internal/platform/middleware"
	"safeshift/internal/session"
	dErrors "safeshift/pkg/domain-errors"
	"safeshift/pkg/platform/sentinel"
)

const (
	issuer          = "safeshift-fakeapi"
	defaultTokenTTL = 7 * 24 * time.Hour
	requestTimeout  = 30 * time.Second
)

// Server serves the SafeShift API from memory.
type Server struct {
	store      *Store
	tokens     *TokenService
	flagger    *Flagger
	logger     *slog.Logger
	metrics    *Metrics
	bcryptCost int
	seeded     bool
	now        func() time.Time
}

type Option func(*Server)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

func WithMetrics(m *Metrics) Option {
	return func(s *Server) {
		s.metrics = m
	}
}

// WithBcryptCost lowers hashing cost; tests use bcrypt.MinCost.
func WithBcryptCost(cost int) Option {
	return func(s *Server) {
		s.bcryptCost = cost
	}
}

// WithFlagRules replaces the default keyword rules.
func WithFlagRules(rules []FlagRule) Option {
	return func(s *Server) {
		s.flagger = NewFlagger(rules)
	}
}

// WithoutSeed starts with an empty store.
func WithoutSeed() Option {
	return func(s *Server) {
		s.seeded = false
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Server) {
		s.now = now
	}
}

// New builds a server signing tokens with signingKey. A zero tokenTTL
// means seven days.
func New(signingKey string, tokenTTL time.Duration, opts ...Option) (*Server, error) {
	if signingKey == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "signing key required")
	}
	if tokenTTL <= 0 {
		tokenTTL = defaultTokenTTL
	}
	s := &Server{
		store:      NewStore(),
		flagger:    NewFlagger(nil),
		logger:     logger.Discard(),
		bcryptCost: bcrypt.DefaultCost,
		seeded:     true,
		now:        time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	s.tokens = NewTokenService(signingKey, issuer, tokenTTL)
	s.tokens.now = s.now

	if s.seeded {
		if err := s.seed(s.now()); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Store exposes the backing store for inspection in tests.
func (s *Server) Store() *Store {
	return s.store
}

// RevokeUser invalidates every live token of userID; the next call made
// with one of them gets 401.
func (s *Server) RevokeUser(userID string) int {
	return s.tokens.RevokeUser(userID)
}

// Handler returns a router serving every endpoint.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	s.Register(r)
	return r
}

// Register mounts the API routes on r.
func (s *Server) Register(r chi.Router) {
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(middleware.ClientMetadata)
	r.Use(chimw.Timeout(requestTimeout))
	if s.metrics != nil {
		r.Use(middleware.Latency(s.metrics))
	}

	r.Get("/health", s.handleHealth)
	r.Post("/auth/login", s.handleLogin)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(s.tokens, s.logger))

		r.Post("/auth/logout", s.handleLogout)
		r.Get("/auth/me", s.handleMe)
		r.Post("/auth/change-password", s.handleChangePassword)

		r.Get("/dashboard/metrics", s.handleDashboardMetrics)
		r.Get("/departments", s.handleDepartments)

		r.Post("/reports", s.handleCreateReport)
		r.Get("/reports", s.handleListReports)
		r.Post("/reports/upload", s.handleUpload)
		r.Get("/reports/{id}", s.handleGetReport)

		r.Post("/activity/heartbeat", s.handleHeartbeat)
		r.Get("/activity/{employee_id}", s.handleActivity)

		r.Get("/tasks", s.handleListTasks)
		r.Patch("/tasks/{id}", s.handleUpdateTask)

		r.Get("/wellness/{employee_id}", s.handleGetWellness)
		r.Post("/wellness/calculate/{employee_id}", s.handleCalculateWellness)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole(string(session.RoleAdmin), s.logger))

			r.Patch("/reports/{id}/status", s.handleUpdateStatus)
			r.Post("/reports/{id}/assign", s.handleAssign)

			r.Post("/admin/employees", s.handleCreateEmployee)
			r.Get("/admin/employees", s.handleListEmployees)
			r.Get("/admin/employees/{id}", s.handleGetEmployee)
			r.Patch("/admin/employees/{id}", s.handleUpdateEmployee)

			r.Post("/tasks", s.handleCreateTask)
			r.Delete("/tasks/{id}", s.handleDeleteTask)
			r.Get("/departments/{id}/wellness", s.handleDepartmentWellness)
		})
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy", "service": "SafeShift API (development)"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError renders err as {"detail": ...} with the status its code maps to.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	detail := "Internal server error"

	var de *dErrors.Error
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		status, detail = http.StatusNotFound, "Not found"
	case dErrors.As(err, &de):
		status = statusForCode(de.Code)
		detail = de.Message
	}
	if status >= http.StatusInternalServerError {
		s.logger.ErrorContext(r.Context(), "request failed",
			"error", err,
			"request_id", chimw.GetReqID(r.Context()),
		)
	}
	writeJSON(w, status, map[string]string{"detail": detail})
}

func statusForCode(code dErrors.Code) int {
	switch code {
	case dErrors.CodeValidation:
		return http.StatusUnprocessableEntity
	case dErrors.CodeBadRequest:
		return http.StatusBadRequest
	case dErrors.CodeUnauthorized, dErrors.CodeSessionExpired:
		return http.StatusUnauthorized
	case dErrors.CodeForbidden:
		return http.StatusForbidden
	case dErrors.CodeNotFound:
		return http.StatusNotFound
	case dErrors.CodeConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return dErrors.New(dErrors.CodeBadRequest, "invalid request body")
	}
	return nil
}
