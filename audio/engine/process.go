package engine

import (
	"context"
	"errors"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/nooploop/piejam-sub003/audio/dag"
)

var (
	// ErrNotRunning is returned by SwapExecutor while the audio thread is
	// not calling Run.
	ErrNotRunning = errors.New("engine: process not running")
	// ErrSwapPending is returned by SwapExecutor while another swap has not
	// been picked up yet.
	ErrSwapPending = errors.New("engine: swap already pending")
	// ErrRunning is returned by SetExecutor while the process is running.
	ErrRunning = errors.New("engine: process running")
)

type swapRequest struct {
	next dag.Executor
	old  chan dag.Executor
}

// Process owns the live executor. Run is called by the audio thread once
// per period; SwapExecutor replaces the executor from the control thread
// without blocking the audio thread.
//
// While stopped, Run may still be called, e.g. for offline rendering. It
// then takes the same lock as SetExecutor, so the two never overlap.
type Process struct {
	current dag.Executor // audio thread only while running

	pending atomic.Pointer[swapRequest]
	running atomic.Bool
	// realtime counts Run calls that took the lock-free path.
	realtime atomic.Int32

	mu      sync.Mutex
	stopped chan struct{}
}

// NewProcess returns a stopped process running e, which may be nil.
func NewProcess(e dag.Executor) *Process {
	return &Process{current: e}
}

// Run picks up a pending swap and runs the live executor once.
func (p *Process) Run(bufferSize int) {
	p.realtime.Add(1)

	if p.running.Load() {
		p.run(bufferSize)
		p.realtime.Add(-1)

		return
	}

	p.realtime.Add(-1)

	p.mu.Lock()
	defer p.mu.Unlock()

	p.run(bufferSize)
}

func (p *Process) run(bufferSize int) {
	if req := p.pending.Swap(nil); req != nil {
		old := p.current
		p.current = req.next
		req.old <- old
	}

	if p.current != nil {
		p.current.Run(bufferSize)
	}
}

// Start marks the audio thread as calling Run.
func (p *Process) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running.Load() {
		return
	}

	p.stopped = make(chan struct{})
	p.running.Store(true)
}

// Stop marks the audio thread as no longer calling Run. Pending swaps are
// withdrawn and fail with ErrNotRunning. Stop returns once a Run that
// started while running has finished.
func (p *Process) Stop() {
	p.mu.Lock()

	if !p.running.Load() {
		p.mu.Unlock()
		return
	}

	p.running.Store(false)
	close(p.stopped)
	p.mu.Unlock()

	for p.realtime.Load() > 0 {
		runtime.Gosched()
	}
}

// Running reports whether the process is started.
func (p *Process) Running() bool { return p.running.Load() }

// SetExecutor replaces the executor while the process is stopped and
// returns the previous one.
func (p *Process) SetExecutor(e dag.Executor) (dag.Executor, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running.Load() {
		return nil, ErrRunning
	}

	old := p.current
	p.current = e

	return old, nil
}

// SwapExecutor publishes e to the audio thread and waits until the next
// Run has switched to it. The previous executor is returned so it can be
// released off the audio thread. On error the process keeps its executor
// and the caller still owns e.
func (p *Process) SwapExecutor(ctx context.Context, e dag.Executor) (dag.Executor, error) {
	p.mu.Lock()
	running, stopped := p.running.Load(), p.stopped
	p.mu.Unlock()

	if !running {
		return nil, ErrNotRunning
	}

	req := &swapRequest{next: e, old: make(chan dag.Executor, 1)}
	if !p.pending.CompareAndSwap(nil, req) {
		return nil, ErrSwapPending
	}

	select {
	case old := <-req.old:
		return old, nil
	case <-ctx.Done():
		return p.retract(req, ctx.Err())
	case <-stopped:
		return p.retract(req, ErrNotRunning)
	}
}

// retract withdraws req. If the audio thread took it in the meantime the
// swap succeeded after all.
func (p *Process) retract(req *swapRequest, err error) (dag.Executor, error) {
	if p.pending.CompareAndSwap(req, nil) {
		return nil, err
	}

	return <-req.old, nil
}
