package parallel

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestExecuteAllRunsEverything(t *testing.T) {
	p := NewWorkerPool(4, 0)
	defer p.Close()

	var n atomic.Int64
	work := make([]func(), 100)
	for i := range work {
		work[i] = func() { n.Add(1) }
	}
	p.ExecuteAll(work)
	if n.Load() != 100 {
		t.Errorf("ran %d funcs, want 100", n.Load())
	}
}

func TestTrySubmitFullQueue(t *testing.T) {
	p := NewWorkerPool(1, 1)
	block := make(chan struct{})
	started := make(chan struct{})
	if !p.TrySubmit(func() { close(started); <-block }) {
		t.Fatal("first submit should succeed")
	}
	<-started
	if !p.TrySubmit(func() {}) {
		t.Fatal("second submit should fill the queue")
	}
	if p.TrySubmit(func() {}) {
		t.Error("third submit should report a full queue")
	}
	close(block)
	p.Close()
	if p.TrySubmit(func() {}) {
		t.Error("submit after Close should fail")
	}
}

func TestCloseDrainsQueuedWork(t *testing.T) {
	p := NewWorkerPool(1, 8)
	var mu sync.Mutex
	var ran []int
	for i := 0; i < 5; i++ {
		i := i
		for !p.TrySubmit(func() { mu.Lock(); ran = append(ran, i); mu.Unlock() }) {
		}
	}
	p.Close()
	if len(ran) != 5 {
		t.Errorf("ran %d queued funcs, want 5", len(ran))
	}
}

func TestExecuteAllAfterClose(t *testing.T) {
	p := NewWorkerPool(2, 0)
	p.Close()
	var n int
	p.ExecuteAll([]func(){func() { n++ }, func() { n++ }})
	if n != 2 {
		t.Errorf("ran %d funcs after Close, want 2", n)
	}
}

func TestExecuteAllRacingClose(t *testing.T) {
	for i := 0; i < 200; i++ {
		p := NewWorkerPool(2, 1)
		var n atomic.Int64
		work := make([]func(), 50)
		for j := range work {
			work[j] = func() { n.Add(1) }
		}

		finished := make(chan struct{})
		go func() {
			p.ExecuteAll(work)
			close(finished)
		}()
		p.Close()

		select {
		case <-finished:
		case <-time.After(5 * time.Second):
			t.Fatalf("iteration %d: ExecuteAll hung after Close", i)
		}
		if n.Load() != 50 {
			t.Fatalf("iteration %d: ran %d funcs, want 50", i, n.Load())
		}
	}
}
