package engine

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type countingExecutor struct {
	runs    atomic.Int64
	active  atomic.Bool
	overlap atomic.Bool
}

func (c *countingExecutor) Run(int) {
	if !c.active.CompareAndSwap(false, true) {
		c.overlap.Store(true)
	}

	c.runs.Add(1)
	c.active.Store(false)
}

// blockingExecutor signals entered and waits for release on every run.
type blockingExecutor struct {
	entered chan struct{}
	release chan struct{}
}

func newBlockingExecutor() *blockingExecutor {
	return &blockingExecutor{entered: make(chan struct{}, 1), release: make(chan struct{})}
}

func (b *blockingExecutor) Run(int) {
	b.entered <- struct{}{}
	<-b.release
}

func returnsWithin(done <-chan struct{}, d time.Duration) bool {
	select {
	case <-done:
		return true
	case <-time.After(d):
		return false
	}
}

// audioThread calls Run until stopped.
func audioThread(p *Process) (stop func()) {
	done := make(chan struct{})

	var wg sync.WaitGroup

	wg.Add(1)

	go func() {
		defer wg.Done()

		for {
			select {
			case <-done:
				return
			default:
				p.Run(64)
			}
		}
	}()

	return func() {
		close(done)
		wg.Wait()
	}
}

func waitPending(t *testing.T, p *Process) {
	t.Helper()

	deadline := time.Now().Add(5 * time.Second)
	for p.pending.Load() == nil {
		if time.Now().After(deadline) {
			t.Fatal("swap never became pending")
		}

		time.Sleep(time.Millisecond)
	}
}

func TestSwapExecutorHandsBackOld(t *testing.T) {
	t.Parallel()

	first, second := &countingExecutor{}, &countingExecutor{}
	p := NewProcess(first)
	p.Start()

	stop := audioThread(p)
	defer stop()

	old, err := p.SwapExecutor(context.Background(), second)
	if err != nil {
		t.Fatalf("SwapExecutor: %v", err)
	}

	if old != first {
		t.Error("old executor must be handed back")
	}

	before := first.runs.Load()

	deadline := time.Now().Add(5 * time.Second)
	for second.runs.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}

	if second.runs.Load() == 0 {
		t.Fatal("new executor never ran")
	}

	if first.runs.Load() != before {
		t.Error("old executor ran after the swap")
	}
}

func TestSwapExecutorFailsWhenStopped(t *testing.T) {
	t.Parallel()

	p := NewProcess(nil)

	if _, err := p.SwapExecutor(context.Background(), &countingExecutor{}); !errors.Is(err, ErrNotRunning) {
		t.Errorf("expected ErrNotRunning, got %v", err)
	}

	next := &countingExecutor{}
	if _, err := p.SetExecutor(next); err != nil {
		t.Fatalf("SetExecutor while stopped: %v", err)
	}

	p.Run(8)

	if next.runs.Load() != 1 {
		t.Errorf("runs = %d, want 1", next.runs.Load())
	}

	p.Start()

	if _, err := p.SetExecutor(&countingExecutor{}); !errors.Is(err, ErrRunning) {
		t.Errorf("SetExecutor while running: %v", err)
	}
}

func TestSwapExecutorPendingAndCancel(t *testing.T) {
	t.Parallel()

	current := &countingExecutor{}
	p := NewProcess(current)
	p.Start()

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)

	go func() {
		_, err := p.SwapExecutor(ctx, &countingExecutor{})
		errc <- err
	}()

	waitPending(t, p)

	if _, err := p.SwapExecutor(context.Background(), &countingExecutor{}); !errors.Is(err, ErrSwapPending) {
		t.Errorf("second swap: %v", err)
	}

	cancel()

	if err := <-errc; !errors.Is(err, context.Canceled) {
		t.Errorf("canceled swap: %v", err)
	}

	p.Run(8)

	if current.runs.Load() != 1 {
		t.Error("retracted swap must leave the executor in place")
	}
}

func TestStopWithdrawsPendingSwap(t *testing.T) {
	t.Parallel()

	p := NewProcess(&countingExecutor{})
	p.Start()

	errc := make(chan error, 1)

	go func() {
		_, err := p.SwapExecutor(context.Background(), &countingExecutor{})
		errc <- err
	}()

	waitPending(t, p)
	p.Stop()

	if err := <-errc; !errors.Is(err, ErrNotRunning) {
		t.Errorf("swap after stop: %v", err)
	}

	if p.pending.Load() != nil {
		t.Error("pending swap must be withdrawn")
	}
}

func TestConcurrentSwaps(t *testing.T) {
	t.Parallel()

	initial := &countingExecutor{}
	p := NewProcess(initial)
	p.Start()

	stop := audioThread(p)

	type handoff struct {
		old      *countingExecutor
		runsSeen int64
	}

	var (
		mu        sync.Mutex
		installed = []*countingExecutor{initial}
		rejected  []*countingExecutor
		handoffs  []handoff
		wg        sync.WaitGroup
	)

	for range 8 {
		wg.Add(1)

		go func() {
			defer wg.Done()

			for range 50 {
				next := &countingExecutor{}
				old, err := p.SwapExecutor(context.Background(), next)

				mu.Lock()

				switch {
				case err == nil:
					prev := old.(*countingExecutor)
					installed = append(installed, next)
					handoffs = append(handoffs, handoff{old: prev, runsSeen: prev.runs.Load()})
				case errors.Is(err, ErrSwapPending):
					rejected = append(rejected, next)
				default:
					t.Errorf("unexpected error: %v", err)
				}

				mu.Unlock()
			}
		}()
	}

	wg.Wait()
	stop()

	if len(handoffs) == 0 {
		t.Fatal("no swap succeeded")
	}

	final := p.current.(*countingExecutor)

	returned := make(map[*countingExecutor]int)
	for _, h := range handoffs {
		returned[h.old]++

		if got := h.old.runs.Load(); got != h.runsSeen {
			t.Errorf("executor ran %d times after it was handed back", got-h.runsSeen)
		}
	}

	// Every executor that was ever live comes back exactly once, except the
	// one still running.
	for _, e := range installed {
		want := 1
		if e == final {
			want = 0
		}

		if returned[e] != want {
			t.Errorf("executor returned %d times, want %d", returned[e], want)
		}

		if e.overlap.Load() {
			t.Error("executor ran concurrently with itself")
		}
	}

	if len(returned) != len(installed)-1 {
		t.Errorf("%d distinct executors returned for %d installed", len(returned), len(installed))
	}

	for _, e := range rejected {
		if e.runs.Load() != 0 {
			t.Error("rejected executor must never run")
		}
	}
}

func TestStopWaitsForRunningPeriod(t *testing.T) {
	t.Parallel()

	blocking := newBlockingExecutor()
	p := NewProcess(blocking)
	p.Start()

	go p.Run(64)
	<-blocking.entered

	stopped := make(chan struct{})

	go func() {
		p.Stop()
		close(stopped)
	}()

	if returnsWithin(stopped, 20*time.Millisecond) {
		t.Fatal("Stop returned while a period was still running")
	}

	close(blocking.release)

	if !returnsWithin(stopped, 5*time.Second) {
		t.Fatal("Stop never returned")
	}

	if _, err := p.SetExecutor(&countingExecutor{}); err != nil {
		t.Errorf("SetExecutor after Stop: %v", err)
	}
}

func TestSetExecutorWaitsForStoppedRun(t *testing.T) {
	t.Parallel()

	blocking := newBlockingExecutor()
	p := NewProcess(blocking)

	go p.Run(64)
	<-blocking.entered

	set := make(chan struct{})

	go func() {
		if _, err := p.SetExecutor(&countingExecutor{}); err != nil {
			t.Errorf("SetExecutor: %v", err)
		}

		close(set)
	}()

	if returnsWithin(set, 20*time.Millisecond) {
		t.Fatal("SetExecutor overlapped a running period")
	}

	close(blocking.release)

	if !returnsWithin(set, 5*time.Second) {
		t.Fatal("SetExecutor never returned")
	}
}
