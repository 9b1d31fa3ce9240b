// Package dashboard caches the dashboard metrics the signed-in user sees
// and keeps them fresh.
package dashboard

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"safeshift/internal/api"
	"safeshift/internal/platform/logger"
	"safeshift/internal/platform/metrics"
	dErrors "safeshift/pkg/domain-errors"
)

// Fetcher loads dashboard metrics; *api.Client satisfies it.
type Fetcher interface {
	DashboardMetrics(ctx context.Context) (*api.DashboardMetrics, error)
}

// Snapshot is the last successful fetch.
type Snapshot struct {
	Metrics   api.DashboardMetrics
	FetchedAt time.Time
}

// Service deduplicates concurrent refreshes: callers arriving while a fetch
// is outstanding share its result.
type Service struct {
	fetcher Fetcher
	logger  *slog.Logger
	metrics *metrics.Metrics
	now     func() time.Time

	group singleflight.Group

	mu       sync.RWMutex
	snapshot *Snapshot
	lastErr  error
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

func New(fetcher Fetcher, opts ...Option) (*Service, error) {
	if fetcher == nil {
		return nil, dErrors.New(dErrors.CodeInternal, "fetcher is required")
	}
	s := &Service{
		fetcher: fetcher,
		logger:  logger.Discard(),
		now:     time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s, nil
}

// Refresh fetches fresh metrics and caches them. A failed fetch keeps the
// previous snapshot.
func (s *Service) Refresh(ctx context.Context) error {
	_, err, shared := s.group.Do("metrics", func() (any, error) {
		m, err := s.fetcher.DashboardMetrics(ctx)
		s.mu.Lock()
		defer s.mu.Unlock()
		s.lastErr = err
		if err != nil {
			return nil, err
		}
		s.snapshot = &Snapshot{Metrics: *m, FetchedAt: s.now()}
		return nil, nil
	})
	if s.metrics != nil && !shared {
		s.metrics.IncDashboardRefresh(err == nil)
	}
	if err != nil {
		s.logger.WarnContext(ctx, "dashboard refresh failed", "error", err, "shared", shared)
	}
	return err
}

// Snapshot returns the cached metrics, if any fetch has succeeded.
func (s *Service) Snapshot() (Snapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.snapshot == nil {
		return Snapshot{}, false
	}
	return *s.snapshot, true
}

// LastError is the outcome of the most recent fetch.
func (s *Service) LastError() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastErr
}

// Watch refreshes immediately and then every interval until ctx is done,
// calling onUpdate after each attempt. A session expiry ends the loop.
func (s *Service) Watch(ctx context.Context, every time.Duration, onUpdate func(Snapshot, error)) error {
	if every <= 0 {
		return dErrors.New(dErrors.CodeValidation, "watch interval must be positive")
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		err := s.Refresh(ctx)
		if onUpdate != nil {
			snap, _ := s.Snapshot()
			onUpdate(snap, err)
		}
		if dErrors.HasCode(err, dErrors.CodeSessionExpired) {
			return err
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}
