package dashboard

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"safeshift/internal/api"
	"safeshift/internal/platform/metrics"
	dErrors "safeshift/pkg/domain-errors"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type stubFetcher struct {
	calls   atomic.Int32
	gate    chan struct{}
	entered chan struct{}
	err     error
}

func (f *stubFetcher) DashboardMetrics(ctx context.Context) (*api.DashboardMetrics, error) {
	n := f.calls.Add(1)
	if f.entered != nil && n == 1 {
		close(f.entered)
	}
	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return &api.DashboardMetrics{Metrics: api.MetricCounts{ActiveReports: int(n)}}, nil
}

func TestNewRequiresFetcher(t *testing.T) {
	_, err := New(nil)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInternal))
}

func TestRefreshCachesSnapshot(t *testing.T) {
	fixed := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	reg := metrics.New(prometheus.NewRegistry())
	svc, err := New(&stubFetcher{}, WithClock(func() time.Time { return fixed }), WithMetrics(reg))
	require.NoError(t, err)

	_, ok := svc.Snapshot()
	assert.False(t, ok)

	require.NoError(t, svc.Refresh(context.Background()))
	snap, ok := svc.Snapshot()
	require.True(t, ok)
	assert.Equal(t, 1, snap.Metrics.Metrics.ActiveReports)
	assert.Equal(t, fixed, snap.FetchedAt)
	assert.Equal(t, 1.0, promtest.ToFloat64(reg.DashboardRefreshes.WithLabelValues("success")))
}

func TestFailedRefreshKeepsPreviousSnapshot(t *testing.T) {
	f := &stubFetcher{}
	svc, err := New(f)
	require.NoError(t, err)
	require.NoError(t, svc.Refresh(context.Background()))

	f.err = dErrors.New(dErrors.CodeNetwork, "offline")
	err = svc.Refresh(context.Background())

	assert.True(t, dErrors.HasCode(err, dErrors.CodeNetwork))
	assert.Equal(t, err, svc.LastError())
	snap, ok := svc.Snapshot()
	require.True(t, ok)
	assert.Equal(t, 1, snap.Metrics.Metrics.ActiveReports)
}

func TestConcurrentRefreshesShareOneFetch(t *testing.T) {
	f := &stubFetcher{gate: make(chan struct{}), entered: make(chan struct{})}
	svc, err := New(f)
	require.NoError(t, err)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		assert.NoError(t, svc.Refresh(context.Background()))
	}()
	<-f.entered

	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, svc.Refresh(context.Background()))
		}()
	}
	// give the followers time to join the outstanding call
	time.Sleep(20 * time.Millisecond)
	close(f.gate)
	wg.Wait()

	assert.Equal(t, int32(1), f.calls.Load())
}

func TestWatch(t *testing.T) {
	t.Run("refreshes until cancelled", func(t *testing.T) {
		svc, err := New(&stubFetcher{})
		require.NoError(t, err)
		ctx, cancel := context.WithCancel(context.Background())

		var updates atomic.Int32
		err = svc.Watch(ctx, 5*time.Millisecond, func(Snapshot, error) {
			if updates.Add(1) == 3 {
				cancel()
			}
		})

		assert.NoError(t, err)
		assert.GreaterOrEqual(t, updates.Load(), int32(3))
	})

	t.Run("stops on session expiry", func(t *testing.T) {
		expired := dErrors.New(dErrors.CodeSessionExpired, "session expired")
		svc, err := New(&stubFetcher{err: expired})
		require.NoError(t, err)

		err = svc.Watch(context.Background(), time.Hour, nil)
		assert.ErrorIs(t, err, expired)
	})

	t.Run("rejects non-positive interval", func(t *testing.T) {
		svc, err := New(&stubFetcher{})
		require.NoError(t, err)
		assert.True(t, dErrors.HasCode(svc.Watch(context.Background(), 0, nil), dErrors.CodeValidation))
	})
}
