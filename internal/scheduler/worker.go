package scheduler

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/aretw0/bbseed/pkg/decider"
	"github.com/aretw0/bbseed/pkg/domain"
	"github.com/aretw0/bbseed/pkg/enumerate"
)

// WorkerState is what a worker is doing.
type WorkerState int32

const (
	Idle WorkerState = iota
	Expanding
	Classifying
	Emitting
	Quiescing
)

// WorkerStates lists every state in order.
var WorkerStates = [...]WorkerState{Idle, Expanding, Classifying, Emitting, Quiescing}

var workerStateNames = [...]string{"idle", "expanding", "classifying", "emitting", "quiescing"}

func (s WorkerState) String() string {
	if int(s) < len(workerStateNames) {
		return workerStateNames[s]
	}
	return fmt.Sprintf("state(%d)", s)
}

// worker owns a local stack of frontier nodes and the output it has not
// flushed yet. mu is held for one unit of work at a time and by snapshots.
type worker struct {
	id       int
	mu       sync.Mutex
	stack    []domain.Node
	children enumerate.Children
	pipeline *decider.Pipeline

	buf      []domain.Classified
	counters domain.Counters
	by       map[string]uint64

	state    atomic.Int32
	stackLen atomic.Int32
}

func (w *worker) setState(s WorkerState) {
	w.state.Store(int32(s))
}

func (w *worker) State() WorkerState {
	return WorkerState(w.state.Load())
}

func (w *worker) emit(c domain.Classified, by string) {
	w.buf = append(w.buf, c)
	w.counters.Add(c.Class)
	if by != "" {
		w.by[by]++
	}
}

// expand generates the child at the cursor of the top node, classifies it
// and emits it or pushes it as a new node. The caller holds w.mu and the
// stack is not empty.
func (s *Scheduler) expand(w *worker) error {
	w.setState(Expanding)
	top := &w.stack[len(w.stack)-1]
	if err := w.children.Load(*top); err != nil {
		return fmt.Errorf("worker %d: %w", w.id, err)
	}
	child, ok := w.children.Next()
	if !ok {
		return fmt.Errorf("worker %d: %w: no child left of %s at %s", w.id, domain.ErrInvariant, top.Machine, top.Branch)
	}
	changed := top.Branch
	top.Next = w.children.Cursor()
	if w.children.Done() {
		w.stack = w.stack[:len(w.stack)-1]
	}

	w.setState(Classifying)
	v := w.pipeline.Classify(child, changed)

	w.setState(Emitting)
	if !v.Branch {
		w.emit(domain.Classified{Machine: child, Class: v.Class}, v.By)
		w.stackLen.Store(int32(len(w.stack)))
		return nil
	}

	// The child itself is the Halt filling of its branch cell, so it is
	// emitted now and the new node starts at the first defined filling.
	w.emit(domain.Classified{Machine: child, Class: domain.Halt}, v.By)
	node := domain.Node{Machine: child, Branch: v.Cell, Next: 1}
	if child.Undefined() > s.cfg.LocalThreshold {
		s.pool.push(node)
	} else {
		w.stack = append(w.stack, node)
	}
	w.stackLen.Store(int32(len(w.stack)))
	return nil
}
