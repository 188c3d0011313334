package crawler

import "sync"

type task struct {
	url   string
	depth int
}

// frontier is a FIFO work queue. pending counts queued plus in-progress
// tasks; the crawl is finished when it drops to zero.
type frontier struct {
	mu      sync.Mutex
	cond    *sync.Cond
	queue   []task
	pending int
	closed  bool
}

func newFrontier() *frontier {
	f := &frontier{}
	f.cond = sync.NewCond(&f.mu)
	return f
}

// push enqueues t. It is a no-op once the frontier is closed.
func (f *frontier) push(t task) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	f.queue = append(f.queue, t)
	f.pending++
	f.cond.Signal()
}

// next blocks until a task is available. It returns false when the
// frontier is drained or closed.
func (f *frontier) next() (task, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for len(f.queue) == 0 && f.pending > 0 && !f.closed {
		f.cond.Wait()
	}
	if f.closed || len(f.queue) == 0 {
		return task{}, false
	}
	t := f.queue[0]
	f.queue[0] = task{}
	f.queue = f.queue[1:]
	return t, true
}

// done marks one task finished. Children must be pushed before done is
// called for their parent.
func (f *frontier) done() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pending--
	if f.pending == 0 {
		f.cond.Broadcast()
	}
}

// close wakes every waiter and rejects further pushes.
func (f *frontier) close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	f.queue = nil
	f.cond.Broadcast()
}
