// Package parallel provides the goroutine pool shared by the baker and the
// streamer.
package parallel

import (
	"runtime"
	"sync"
)

// WorkerPool runs submitted funcs on a fixed set of goroutines fed from one
// buffered queue. Safe for concurrent use.
type WorkerPool struct {
	workers int
	queue   chan func()
	done    chan struct{}
	wg      sync.WaitGroup
	once    sync.Once

	// mu orders sends against Close: no send starts once closed is set, so
	// everything queued is seen by a worker's drain.
	mu     sync.RWMutex
	closed bool
}

// NewWorkerPool starts workers goroutines. Non-positive workers means
// GOMAXPROCS; non-positive queueSize means four slots per worker.
func NewWorkerPool(workers, queueSize int) *WorkerPool {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if queueSize <= 0 {
		queueSize = workers * 4
	}
	p := &WorkerPool{
		workers: workers,
		queue:   make(chan func(), queueSize),
		done:    make(chan struct{}),
	}
	p.wg.Add(workers)
	for range workers {
		go p.worker()
	}
	return p
}

// Workers returns the goroutine count.
func (p *WorkerPool) Workers() int { return p.workers }

func (p *WorkerPool) worker() {
	defer p.wg.Done()
	for {
		select {
		case <-p.done:
			p.drain()
			return
		case work := <-p.queue:
			if work != nil {
				work()
			}
		}
	}
}

// drain runs whatever is still queued so accepted work always completes.
func (p *WorkerPool) drain() {
	for {
		select {
		case work := <-p.queue:
			if work != nil {
				work()
			}
		default:
			return
		}
	}
}

// TrySubmit queues work without blocking. It returns false when the queue is
// full or the pool is closed; the caller keeps the work and retries later.
func (p *WorkerPool) TrySubmit(work func()) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return false
	}
	select {
	case p.queue <- work:
		return true
	default:
		return false
	}
}

// ExecuteAll runs every func and waits for all of them. On a closed pool the
// funcs run on the calling goroutine.
func (p *WorkerPool) ExecuteAll(work []func()) {
	if len(work) == 0 {
		return
	}
	var wg sync.WaitGroup
	wg.Add(len(work))
	for _, fn := range work {
		wrapped := func() {
			defer wg.Done()
			fn()
		}
		if !p.send(wrapped) {
			wrapped()
		}
	}
	wg.Wait()
}

// send queues work, blocking while the queue is full. It returns false on a
// closed pool.
func (p *WorkerPool) send(work func()) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return false
	}
	p.queue <- work
	return true
}

// Close stops accepting work, lets queued work finish and waits for the
// workers to exit.
func (p *WorkerPool) Close() {
	p.once.Do(func() {
		p.mu.Lock()
		p.closed = true
		close(p.done)
		p.mu.Unlock()
	})
	p.wg.Wait()
}
