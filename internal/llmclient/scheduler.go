package llmclient

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"sparklens/internal/logging"
)

// Scheduler bounds in-flight provider invocations. Each provider gets its own
// slot pool so a saturated remote API cannot starve the local runtime, and
// vice versa. Callers acquire a slot, invoke, and release; the scheduler
// never makes calls itself.
type Scheduler struct {
	maxPerProvider int

	mu    sync.Mutex
	slots map[Provider]chan struct{}

	totalAcquired int64
	totalWaitNs   int64
	waiting       int32
	executing     int32

	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewScheduler creates a scheduler allowing maxPerProvider concurrent
// invocations for each provider.
func NewScheduler(maxPerProvider int) *Scheduler {
	if maxPerProvider < 1 {
		maxPerProvider = 1
	}
	return &Scheduler{
		maxPerProvider: maxPerProvider,
		slots:          make(map[Provider]chan struct{}),
		stopCh:         make(chan struct{}),
	}
}

func (s *Scheduler) pool(provider Provider) chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	pool, ok := s.slots[provider]
	if !ok {
		pool = make(chan struct{}, s.maxPerProvider)
		s.slots[provider] = pool
	}
	return pool
}

// Acquire blocks until a slot for the provider is free, the context is
// cancelled, or the scheduler stops.
func (s *Scheduler) Acquire(ctx context.Context, provider Provider) error {
	pool := s.pool(provider)
	waitStart := time.Now()

	atomic.AddInt32(&s.waiting, 1)
	defer atomic.AddInt32(&s.waiting, -1)

	if len(pool) >= s.maxPerProvider {
		logging.APIDebug("scheduler: %s slots full (%d/%d), waiting", provider, len(pool), s.maxPerProvider)
	}

	select {
	case pool <- struct{}{}:
		waited := time.Since(waitStart)
		atomic.AddInt64(&s.totalWaitNs, int64(waited))
		atomic.AddInt64(&s.totalAcquired, 1)
		atomic.AddInt32(&s.executing, 1)
		if waited > 100*time.Millisecond {
			logging.API("scheduler: acquired %s slot after %v", provider, waited)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-s.stopCh:
		return fmt.Errorf("scheduler stopped")
	}
}

// Release returns a slot. Releasing without a matching Acquire is a bug and
// is logged rather than panicking.
func (s *Scheduler) Release(provider Provider) {
	pool := s.pool(provider)
	select {
	case <-pool:
		atomic.AddInt32(&s.executing, -1)
	default:
		logging.APIError("scheduler: release without acquire for %s", provider)
	}
}

// Invoke runs one client call under a slot. This is the integration point the
// orchestrator uses; the slot is held only for the network call.
func (s *Scheduler) Invoke(ctx context.Context, client Client, prompt, modelHint string) (string, error) {
	if err := s.Acquire(ctx, client.Provider()); err != nil {
		return "", fmt.Errorf("acquire %s slot: %w", client.Provider(), err)
	}
	defer s.Release(client.Provider())
	return client.Invoke(ctx, prompt, modelHint)
}

// SchedulerMetrics reports scheduler occupancy.
type SchedulerMetrics struct {
	MaxPerProvider int
	Executing      int
	Waiting        int
	TotalAcquired  int64
	AvgWait        time.Duration
}

// Metrics returns a snapshot of scheduler activity.
func (s *Scheduler) Metrics() SchedulerMetrics {
	acquired := atomic.LoadInt64(&s.totalAcquired)
	avg := time.Duration(0)
	if acquired > 0 {
		avg = time.Duration(atomic.LoadInt64(&s.totalWaitNs) / acquired)
	}
	return SchedulerMetrics{
		MaxPerProvider: s.maxPerProvider,
		Executing:      int(atomic.LoadInt32(&s.executing)),
		Waiting:        int(atomic.LoadInt32(&s.waiting)),
		TotalAcquired:  acquired,
		AvgWait:        avg,
	}
}

func (m SchedulerMetrics) String() string {
	return fmt.Sprintf("executing=%d, waiting=%d, acquired=%d, avg_wait=%v, max_per_provider=%d",
		m.Executing, m.Waiting, m.TotalAcquired, m.AvgWait, m.MaxPerProvider)
}

// Stop unblocks all waiters. Safe to call more than once.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() { close(s.stopCh) })
}
