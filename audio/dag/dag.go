// Package dag schedules tasks with dependencies once per audio block,
// either sequentially or on a pool of worker goroutines.
package dag

import (
	"fmt"

	"github.com/nooploop/piejam-sub003/audio/event"
)

// TaskID identifies a task within one DAG.
type TaskID int

// ThreadContext is handed to every task. Arena is owned by the goroutine
// running the task for the duration of the block.
type ThreadContext struct {
	Arena      *event.Arena
	BufferSize int
}

// Task is one unit of work. It must not block or allocate.
type Task func(tc *ThreadContext)

type node struct {
	task     Task
	children []TaskID
}

// DAG is an adjacency list of tasks. Edges point from a task to the tasks
// that depend on it.
type DAG struct {
	nodes []node
}

// New returns an empty DAG.
func New() *DAG {
	return &DAG{}
}

// AddTask adds a task without dependencies.
func (d *DAG) AddTask(t Task) TaskID {
	d.nodes = append(d.nodes, node{task: t})
	return TaskID(len(d.nodes) - 1)
}

// AddChildTask adds a task that runs after parent.
func (d *DAG) AddChildTask(parent TaskID, t Task) TaskID {
	id := d.AddTask(t)
	d.AddChild(parent, id)

	return id
}

// AddChild makes child depend on parent. Adding an existing edge is a
// no-op.
func (d *DAG) AddChild(parent, child TaskID) {
	d.check(parent)
	d.check(child)

	for _, c := range d.nodes[parent].children {
		if c == child {
			return
		}
	}

	d.nodes[parent].children = append(d.nodes[parent].children, child)
}

// Len returns the number of tasks.
func (d *DAG) Len() int {
	return len(d.nodes)
}

// Children returns the direct dependents of id.
func (d *DAG) Children(id TaskID) []TaskID {
	d.check(id)
	return d.nodes[id].children
}

// Executor runs every task of a DAG once per call, respecting dependencies.
type Executor interface {
	Run(bufferSize int)
}

// MakeRunnable freezes d into an executor. With a nil pool tasks run
// sequentially on the calling goroutine. Every participating goroutine gets
// an event arena of eventMemorySize bytes, reset at the start of each run.
// A cycle is a construction defect and panics.
func (d *DAG) MakeRunnable(pool *WorkerPool, eventMemorySize int) Executor {
	order := d.topologicalOrder()

	if pool == nil || pool.Size() == 0 {
		return newSequential(d, order, eventMemorySize)
	}

	return newParallel(d, pool, eventMemorySize)
}

// topologicalOrder returns the tasks in a depth-first topological order.
func (d *DAG) topologicalOrder() []TaskID {
	const (
		unvisited = iota
		visiting
		done
	)

	state := make([]uint8, len(d.nodes))
	order := make([]TaskID, 0, len(d.nodes))

	var visit func(TaskID)
	visit = func(id TaskID) {
		switch state[id] {
		case done:
			return
		case visiting:
			panic(fmt.Sprintf("dag: cycle through task %d", id))
		}

		state[id] = visiting

		for _, c := range d.nodes[id].children {
			visit(c)
		}

		state[id] = done
		order = append(order, id)
	}

	for id := range d.nodes {
		visit(TaskID(id))
	}

	for i, j := 0, len(order)-1; i < j; i, j = i+1, j-1 {
		order[i], order[j] = order[j], order[i]
	}

	return order
}

func (d *DAG) check(id TaskID) {
	if id < 0 || int(id) >= len(d.nodes) {
		panic(fmt.Sprintf("dag: unknown task %d", id))
	}
}

type sequential struct {
	tasks []Task
	tc    ThreadContext
}

func newSequential(d *DAG, order []TaskID, eventMemorySize int) *sequential {
	s := &sequential{
		tasks: make([]Task, len(order)),
		tc:    ThreadContext{Arena: event.NewArena(eventMemorySize)},
	}

	for i, id := range order {
		s.tasks[i] = d.nodes[id].task
	}

	return s
}

func (s *sequential) Run(bufferSize int) {
	s.tc.Arena.Reset()
	s.tc.BufferSize = bufferSize

	for _, t := range s.tasks {
		t(&s.tc)
	}
}
