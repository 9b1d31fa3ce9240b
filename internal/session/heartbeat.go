package session

import (
	"context"
	"sync"
	"time"
)

// heartbeatTask is one running heartbeat loop.
type heartbeatTask struct {
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

// stop cancels the loop without waiting, so it is safe to call from inside
// a beat (a beat that hits a 401 expires the session and stops itself).
func (t *heartbeatTask) stop() {
	t.once.Do(t.cancel)
}

// StartHeartbeat replaces any running heartbeat with a new one: one beat
// immediately, then one per interval. It is a no-op while anonymous.
func (m *Manager) StartHeartbeat() CancelFunc {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.startHeartbeatLocked()
}

// HeartbeatRunning reports whether a heartbeat loop is active.
func (m *Manager) HeartbeatRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.hb != nil
}

func (m *Manager) startHeartbeatLocked() CancelFunc {
	m.stopHeartbeatLocked()
	if m.token == "" || m.beat == nil {
		return func() {}
	}

	ctx, cancel := context.WithCancel(context.Background())
	task := &heartbeatTask{cancel: cancel, done: make(chan struct{})}
	m.hb = task
	go m.runHeartbeat(ctx, task, m.beat, m.interval)

	m.logger.Debug("heartbeat started", "interval", m.interval.String())
	return func() { m.releaseHeartbeat(task) }
}

func (m *Manager) stopHeartbeatLocked() {
	if m.hb == nil {
		return
	}
	m.hb.stop()
	m.hb = nil
}

func (m *Manager) releaseHeartbeat(task *heartbeatTask) {
	m.mu.Lock()
	if m.hb == task {
		m.hb = nil
	}
	m.mu.Unlock()
	task.stop()
}

func (m *Manager) runHeartbeat(ctx context.Context, task *heartbeatTask, beat HeartbeatFunc, interval time.Duration) {
	defer close(task.done)

	m.sendBeat(ctx, beat)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.sendBeat(ctx, beat)
		}
	}
}

func (m *Manager) sendBeat(ctx context.Context, beat HeartbeatFunc) {
	if ctx.Err() != nil {
		return
	}
	beatCtx, cancel := context.WithTimeout(ctx, m.beatTimeout)
	defer cancel()

	err := beat(beatCtx)
	if ctx.Err() != nil {
		// stopped mid-beat; not a heartbeat failure
		return
	}
	if err != nil {
		m.logger.Warn("heartbeat failed", "error", err)
		if m.metrics != nil {
			m.metrics.IncHeartbeat(false)
		}
		return
	}
	if m.metrics != nil {
		m.metrics.IncHeartbeat(true)
	}
}
