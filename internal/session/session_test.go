package session_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/goleak"

	"safeshift/internal/platform/metrics"
	"safeshift/internal/session"
	"safeshift/internal/session/store"
	dErrors "safeshift/pkg/domain-errors"
	"safeshift/pkg/platform/sentinel"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const tick = 20 * time.Millisecond

var employee = session.User{ID: "u-1", FullName: "Sam Reyes", Role: session.RoleEmployee, DepartmentID: "d-ops"}

// beatCounter is a HeartbeatFunc that counts calls and can be told to fail.
type beatCounter struct {
	calls atomic.Int32
	fail  atomic.Bool
}

func (b *beatCounter) beat(context.Context) error {
	b.calls.Add(1)
	if b.fail.Load() {
		return errors.New("backend unavailable")
	}
	return nil
}

type ManagerSuite struct {
	suite.Suite
	ctx     context.Context
	beats   *beatCounter
	store   *store.InMemoryStore
	metrics *metrics.Metrics
	mgr     *session.Manager
	expired atomic.Int32
}

func TestManagerSuite(t *testing.T) {
	suite.Run(t, new(ManagerSuite))
}

func (s *ManagerSuite) SetupTest() {
	s.ctx = context.Background()
	s.beats = &beatCounter{}
	s.store = store.NewInMemory()
	s.metrics = metrics.New(prometheus.NewRegistry())
	s.expired.Store(0)
	s.mgr = session.New(s.store,
		session.WithHeartbeat(s.beats.beat),
		session.WithHeartbeatInterval(tick),
		session.WithMetrics(s.metrics),
		session.WithExpiryHook(func(context.Context) { s.expired.Add(1) }),
	)
}

func (s *ManagerSuite) TearDownTest() {
	s.Require().NoError(s.mgr.Teardown(context.Background()))
}

func (s *ManagerSuite) TestStartsAnonymous() {
	s.Equal(session.StateAnonymous, s.mgr.State())
	_, ok := s.mgr.User()
	s.False(ok)
	s.False(s.mgr.HeartbeatRunning())
}

func (s *ManagerSuite) TestEstablish() {
	s.Require().NoError(s.mgr.Establish(s.ctx, "tok", employee))

	s.Equal(session.StateAuthenticated, s.mgr.State())
	user, ok := s.mgr.User()
	s.True(ok)
	s.Equal(employee, user)
	s.True(s.mgr.HeartbeatRunning())

	rec, err := s.store.Load(s.ctx)
	s.Require().NoError(err)
	s.Equal("tok", rec.Token)

	s.Eventually(func() bool { return s.beats.calls.Load() >= 1 }, time.Second, time.Millisecond,
		"first heartbeat is sent immediately")
	s.Equal(1.0, promtest.ToFloat64(s.metrics.SessionActive))
}

func (s *ManagerSuite) TestEstablishRejectsMissingCredentials() {
	err := s.mgr.Establish(s.ctx, "", employee)
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))

	err = s.mgr.Establish(s.ctx, "tok", session.User{})
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))
	s.Equal(session.StateAnonymous, s.mgr.State())
}

func (s *ManagerSuite) TestHeartbeatRepeatsOnInterval() {
	s.Require().NoError(s.mgr.Establish(s.ctx, "tok", employee))
	s.Eventually(func() bool { return s.beats.calls.Load() >= 3 }, time.Second, time.Millisecond)
}

func (s *ManagerSuite) TestHeartbeatFailuresDoNotStopTimer() {
	s.beats.fail.Store(true)
	s.Require().NoError(s.mgr.Establish(s.ctx, "tok", employee))

	s.Eventually(func() bool { return s.beats.calls.Load() >= 3 }, time.Second, time.Millisecond)
	s.True(s.mgr.HeartbeatRunning())
	s.Equal(session.StateAuthenticated, s.mgr.State())
	s.GreaterOrEqual(promtest.ToFloat64(s.metrics.Heartbeats.WithLabelValues("failure")), 2.0)
}

func (s *ManagerSuite) TestClearStopsHeartbeat() {
	s.Require().NoError(s.mgr.Establish(s.ctx, "tok", employee))
	s.Eventually(func() bool { return s.beats.calls.Load() >= 1 }, time.Second, time.Millisecond)

	s.mgr.Clear(s.ctx)
	s.assertNoMoreBeats()

	s.Equal(session.StateAnonymous, s.mgr.State())
	_, err := s.store.Load(s.ctx)
	s.ErrorIs(err, sentinel.ErrNotFound)

	s.NotPanics(func() { s.mgr.Clear(s.ctx) })
	s.Equal(int32(0), s.expired.Load())
}

func (s *ManagerSuite) TestStartHeartbeatIsIdempotent() {
	s.Require().NoError(s.mgr.Establish(s.ctx, "tok", employee))
	s.Eventually(func() bool { return s.beats.calls.Load() >= 1 }, time.Second, time.Millisecond)

	first := s.mgr.StartHeartbeat()
	second := s.mgr.StartHeartbeat()
	s.True(s.mgr.HeartbeatRunning())

	// the replaced timer's cancel must not stop the live one
	first()
	first()
	s.True(s.mgr.HeartbeatRunning())

	// with one timer, beats arrive at roughly one per tick
	before := s.beats.calls.Load()
	time.Sleep(10 * tick)
	delta := s.beats.calls.Load() - before
	s.LessOrEqual(delta, int32(13), "more beats than one timer can produce")

	second()
	second()
	s.False(s.mgr.HeartbeatRunning())
	s.assertNoMoreBeats()
}

func (s *ManagerSuite) TestStartHeartbeatWhileAnonymousIsNoop() {
	cancel := s.mgr.StartHeartbeat()
	s.False(s.mgr.HeartbeatRunning())
	cancel()

	time.Sleep(3 * tick)
	s.Equal(int32(0), s.beats.calls.Load())
}

func (s *ManagerSuite) TestExpireOnlyForCurrentGeneration() {
	s.Require().NoError(s.mgr.Establish(s.ctx, "tok", employee))
	stale := s.mgr.Current().Generation

	s.Require().NoError(s.mgr.Establish(s.ctx, "tok-2", employee))
	s.False(s.mgr.Expire(s.ctx, stale), "a 401 from a previous login must not end the new one")
	s.Equal(session.StateAuthenticated, s.mgr.State())

	s.True(s.mgr.Expire(s.ctx, s.mgr.Current().Generation))
	s.Equal(session.StateAnonymous, s.mgr.State())
	s.Equal(int32(1), s.expired.Load())
}

func (s *ManagerSuite) TestConcurrentExpireHappensOnce() {
	s.Require().NoError(s.mgr.Establish(s.ctx, "tok", employee))
	gen := s.mgr.Current().Generation

	const goroutines = 16
	var wg sync.WaitGroup
	var transitions atomic.Int32
	for range goroutines {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if s.mgr.Expire(s.ctx, gen) {
				transitions.Add(1)
			}
		}()
	}
	wg.Wait()

	s.Equal(int32(1), transitions.Load())
	s.Equal(int32(1), s.expired.Load())
	s.Equal(1.0, promtest.ToFloat64(s.metrics.SessionTransitions.WithLabelValues("expired")))
	s.False(s.mgr.HeartbeatRunning())
	s.assertNoMoreBeats()
}

func (s *ManagerSuite) TestBeatThatExpiresSessionStopsItself() {
	var mgr *session.Manager
	mgr = session.New(nil,
		session.WithHeartbeatInterval(tick),
		session.WithHeartbeat(func(ctx context.Context) error {
			mgr.Expire(ctx, mgr.Current().Generation)
			return dErrors.New(dErrors.CodeSessionExpired, "session expired")
		}),
	)
	s.Require().NoError(mgr.Establish(s.ctx, "tok", employee))

	s.Eventually(func() bool { return mgr.State() == session.StateAnonymous }, time.Second, time.Millisecond)
	s.False(mgr.HeartbeatRunning())
	s.Require().NoError(mgr.Teardown(s.ctx))
}

func (s *ManagerSuite) TestLoginAfterLogoutRestartsHeartbeat() {
	s.Require().NoError(s.mgr.Establish(s.ctx, "tok", employee))
	s.mgr.Clear(s.ctx)
	s.assertNoMoreBeats()

	before := s.beats.calls.Load()
	s.Require().NoError(s.mgr.Establish(s.ctx, "tok-2", employee))
	s.Eventually(func() bool { return s.beats.calls.Load() > before }, time.Second, time.Millisecond)
}

func (s *ManagerSuite) TestInitRestoresPersistedSession() {
	s.Require().NoError(s.store.Save(s.ctx, session.Record{Token: "saved", User: employee, SavedAt: time.Now()}))

	s.Require().NoError(s.mgr.Init(s.ctx))
	s.Equal("saved", s.mgr.Token())
	s.True(s.mgr.HeartbeatRunning())
}

func (s *ManagerSuite) TestRestoreLeavesHeartbeatStopped() {
	s.Require().NoError(s.store.Save(s.ctx, session.Record{Token: "saved", User: employee, SavedAt: time.Now()}))

	s.Require().NoError(s.mgr.Restore(s.ctx))
	s.Equal("saved", s.mgr.Token())
	s.False(s.mgr.HeartbeatRunning())
	s.assertNoMoreBeats()
	s.Equal(int32(0), s.beats.calls.Load())

	// replacing the login starts exactly one heartbeat for the new token
	s.Require().NoError(s.mgr.Establish(s.ctx, "fresh", employee))
	s.Eventually(func() bool { return s.beats.calls.Load() == 1 }, time.Second, time.Millisecond)
}

func (s *ManagerSuite) TestTeardownKeepsPersistedRecord() {
	s.Require().NoError(s.mgr.Establish(s.ctx, "tok", employee))
	s.Require().NoError(s.mgr.Teardown(s.ctx))

	s.False(s.mgr.HeartbeatRunning())
	rec, err := s.store.Load(s.ctx)
	s.Require().NoError(err)
	s.Equal("tok", rec.Token)
	s.NoError(s.mgr.Teardown(s.ctx))
}

// assertNoMoreBeats lets any beat already in flight settle, then checks that
// several further intervals pass without a new one.
func (s *ManagerSuite) assertNoMoreBeats() {
	time.Sleep(2 * tick)
	settled := s.beats.calls.Load()
	time.Sleep(5 * tick)
	s.Equal(settled, s.beats.calls.Load(), "heartbeat fired after the session ended")
}

type failingStore struct{}

func (failingStore) Load(context.Context) (*session.Record, error) {
	return nil, errors.New("disk unreadable")
}
func (failingStore) Save(context.Context, session.Record) error { return errors.New("disk full") }
func (failingStore) Delete(context.Context) error               { return errors.New("disk full") }

func TestInitSurfacesStoreFailure(t *testing.T) {
	mgr := session.New(failingStore{})
	err := mgr.Init(context.Background())
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInternal))
}

// corruptStore holds a record that no longer decodes.
type corruptStore struct {
	deleted atomic.Bool
}

func (c *corruptStore) Load(context.Context) (*session.Record, error) {
	if c.deleted.Load() {
		return nil, sentinel.ErrNotFound
	}
	return nil, fmt.Errorf("decode session file: %w", sentinel.ErrCorrupt)
}
func (c *corruptStore) Save(context.Context, session.Record) error { return nil }
func (c *corruptStore) Delete(context.Context) error {
	c.deleted.Store(true)
	return nil
}

func TestInitDiscardsUnreadableRecord(t *testing.T) {
	st := &corruptStore{}
	mgr := session.New(st)

	require.NoError(t, mgr.Init(context.Background()))
	assert.Equal(t, session.StateAnonymous, mgr.State())
	assert.True(t, st.deleted.Load(), "unreadable record is erased")

	require.NoError(t, mgr.Establish(context.Background(), "tok", employee))
	assert.Equal(t, session.StateAuthenticated, mgr.State())
	require.NoError(t, mgr.Teardown(context.Background()))
}

func TestPersistenceFailureDoesNotBlockLogin(t *testing.T) {
	mgr := session.New(failingStore{})
	require.NoError(t, mgr.Establish(context.Background(), "tok", employee))
	assert.Equal(t, session.StateAuthenticated, mgr.State())

	mgr.Clear(context.Background())
	assert.Equal(t, session.StateAnonymous, mgr.State())
}
