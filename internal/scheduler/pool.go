package scheduler

import (
	"context"
	"sync"

	"github.com/aretw0/bbseed/pkg/domain"
)

// pool is the shared work pool. Idle workers wait on wake, which is closed
// and replaced on every push. The pool is done once every worker is idle
// while it is empty; nothing can refill it after that.
type pool struct {
	mu      sync.Mutex
	items   []domain.Node
	wake    chan struct{}
	done    chan struct{}
	idle    int
	workers int
}

func newPool(workers int) *pool {
	return &pool{
		wake:    make(chan struct{}),
		done:    make(chan struct{}),
		workers: workers,
	}
}

func (p *pool) push(n domain.Node) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.items = append(p.items, n)
	close(p.wake)
	p.wake = make(chan struct{})
}

func (p *pool) tryPop() (domain.Node, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.items) == 0 {
		return domain.Node{}, false
	}
	n := p.items[len(p.items)-1]
	p.items = p.items[:len(p.items)-1]
	return n, true
}

func (p *pool) len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.items)
}

// wait blocks an idle worker until the pool may have work. It returns false
// when the enumeration is finished or ctx is cancelled. The caller must not
// hold its worker mutex.
func (p *pool) wait(ctx context.Context) bool {
	p.mu.Lock()
	if len(p.items) > 0 {
		p.mu.Unlock()
		return true
	}
	p.idle++
	if p.idle == p.workers {
		select {
		case <-p.done:
		default:
			close(p.done)
		}
		p.mu.Unlock()
		return false
	}
	wake := p.wake
	p.mu.Unlock()

	select {
	case <-wake:
		p.mu.Lock()
		p.idle--
		p.mu.Unlock()
		return true
	case <-p.done:
		return false
	case <-ctx.Done():
		return false
	}
}

// snapshot copies the pool. The caller holds every worker mutex, so nothing
// is pushed or popped concurrently.
func (p *pool) snapshot() []domain.Node {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]domain.Node(nil), p.items...)
}
