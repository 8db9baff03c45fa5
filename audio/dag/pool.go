package dag

import (
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/nooploop/piejam-sub003/audio/event"
)

// WorkerPool is a fixed set of goroutines, each locked to an OS thread,
// that help the audio goroutine run a parallel executor. Workers block only
// while waiting for work.
type WorkerPool struct {
	size int
	work chan *parallel
	wg   sync.WaitGroup
	once sync.Once
}

// NewWorkerPool starts size workers.
func NewWorkerPool(size int) *WorkerPool {
	p := &WorkerPool{size: max(size, 0), work: make(chan *parallel)}

	p.wg.Add(p.size)

	for i := range p.size {
		go p.worker(i)
	}

	return p
}

// Size returns the number of workers.
func (p *WorkerPool) Size() int {
	if p == nil {
		return 0
	}

	return p.size
}

// Close stops the workers and waits for them to exit. It must not be called
// while an executor using the pool is running.
func (p *WorkerPool) Close() {
	p.once.Do(func() {
		close(p.work)
		p.wg.Wait()
	})
}

func (p *WorkerPool) worker(index int) {
	defer p.wg.Done()

	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	for e := range p.work {
		e.participate(index)
		e.finished.Done()
	}
}

const stopToken TaskID = -1

// parallel runs tasks as soon as their last parent has completed. The
// calling goroutine participates as the last worker.
type parallel struct {
	pool *WorkerPool

	tasks    []Task
	children [][]TaskID
	parents  []int32
	roots    []TaskID

	pending  []atomic.Int32
	complete atomic.Int32
	ready    chan TaskID
	finished sync.WaitGroup

	contexts []ThreadContext
}

func newParallel(d *DAG, pool *WorkerPool, eventMemorySize int) *parallel {
	n := len(d.nodes)
	e := &parallel{
		pool:     pool,
		tasks:    make([]Task, n),
		children: make([][]TaskID, n),
		parents:  make([]int32, n),
		pending:  make([]atomic.Int32, n),
		ready:    make(chan TaskID, n+pool.Size()+1),
		contexts: make([]ThreadContext, pool.Size()+1),
	}

	for id, nd := range d.nodes {
		e.tasks[id] = nd.task
		e.children[id] = nd.children

		for _, c := range nd.children {
			e.parents[c]++
		}
	}

	for id, count := range e.parents {
		if count == 0 {
			e.roots = append(e.roots, TaskID(id))
		}
	}

	for i := range e.contexts {
		e.contexts[i].Arena = event.NewArena(eventMemorySize)
	}

	return e
}

func (e *parallel) Run(bufferSize int) {
	if len(e.tasks) == 0 {
		return
	}

	for i := range e.contexts {
		e.contexts[i].Arena.Reset()
		e.contexts[i].BufferSize = bufferSize
	}

	for i, count := range e.parents {
		e.pending[i].Store(count)
	}

	e.complete.Store(0)

	for _, id := range e.roots {
		e.ready <- id
	}

	workers := e.pool.Size()
	e.finished.Add(workers)

	for range workers {
		e.pool.work <- e
	}

	e.participate(workers)
	e.finished.Wait()
}

func (e *parallel) participate(worker int) {
	tc := &e.contexts[worker]

	for id := range e.ready {
		if id == stopToken {
			return
		}

		e.tasks[id](tc)

		for _, c := range e.children[id] {
			if e.pending[c].Add(-1) == 0 {
				e.ready <- c
			}
		}

		if int(e.complete.Add(1)) == len(e.tasks) {
			for range len(e.contexts) {
				e.ready <- stopToken
			}
		}
	}
}
