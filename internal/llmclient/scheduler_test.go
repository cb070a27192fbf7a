package llmclient

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("go.opencensus.io/stats/view.(*worker).start"),
	)
}

type fakeClient struct {
	provider Provider
	invoke   func(ctx context.Context, prompt, modelHint string) (string, error)
}

func (f *fakeClient) Invoke(ctx context.Context, prompt, modelHint string) (string, error) {
	return f.invoke(ctx, prompt, modelHint)
}

func (f *fakeClient) Capabilities() Capabilities { return Capabilities{MaxTokens: 4096} }

func (f *fakeClient) Provider() Provider { return f.provider }

func TestSchedulerBoundsConcurrency(t *testing.T) {
	sched := NewScheduler(2)
	defer sched.Stop()

	var inFlight, maxInFlight int32
	client := &fakeClient{
		provider: ProviderOpenAI,
		invoke: func(ctx context.Context, prompt, modelHint string) (string, error) {
			cur := atomic.AddInt32(&inFlight, 1)
			for {
				prev := atomic.LoadInt32(&maxInFlight)
				if cur <= prev || atomic.CompareAndSwapInt32(&maxInFlight, prev, cur) {
					break
				}
			}
			time.Sleep(20 * time.Millisecond)
			atomic.AddInt32(&inFlight, -1)
			return "ok", nil
		},
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := sched.Invoke(context.Background(), client, "p", ""); err != nil {
				t.Errorf("Invoke failed: %v", err)
			}
		}()
	}
	wg.Wait()

	if got := atomic.LoadInt32(&maxInFlight); got > 2 {
		t.Errorf("concurrency bound violated: %d in flight", got)
	}
	if m := sched.Metrics(); m.TotalAcquired != 8 {
		t.Errorf("expected 8 acquisitions, got %d", m.TotalAcquired)
	}
}

func TestSchedulerProvidersIsolated(t *testing.T) {
	sched := NewScheduler(1)
	defer sched.Stop()

	// Hold the only openai slot.
	if err := sched.Acquire(context.Background(), ProviderOpenAI); err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	defer sched.Release(ProviderOpenAI)

	// Ollama has its own pool and must not block.
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	if err := sched.Acquire(ctx, ProviderOllama); err != nil {
		t.Fatalf("ollama slot should be independent: %v", err)
	}
	sched.Release(ProviderOllama)
}

func TestSchedulerAcquireHonorsContext(t *testing.T) {
	sched := NewScheduler(1)
	defer sched.Stop()

	if err := sched.Acquire(context.Background(), ProviderOpenAI); err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	defer sched.Release(ProviderOpenAI)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err := sched.Acquire(ctx, ProviderOpenAI)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
}

func TestSchedulerStopUnblocksWaiters(t *testing.T) {
	sched := NewScheduler(1)

	if err := sched.Acquire(context.Background(), ProviderOpenAI); err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}

	done := make(chan error, 1)
	go func() {
		done <- sched.Acquire(context.Background(), ProviderOpenAI)
	}()

	time.Sleep(20 * time.Millisecond)
	sched.Stop()

	select {
	case err := <-done:
		if err == nil {
			t.Error("expected error after Stop")
		}
	case <-time.After(time.Second):
		t.Fatal("waiter not unblocked by Stop")
	}
	sched.Release(ProviderOpenAI)
}

func TestSchedulerReleaseWithoutAcquire(t *testing.T) {
	sched := NewScheduler(1)
	defer sched.Stop()
	// Must not panic or corrupt the pool.
	sched.Release(ProviderOpenAI)
	if err := sched.Acquire(context.Background(), ProviderOpenAI); err != nil {
		t.Fatalf("pool corrupted by spurious release: %v", err)
	}
	sched.Release(ProviderOpenAI)
}
