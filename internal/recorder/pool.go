package recorder

import (
	"sync"
	"sync/atomic"
	"time"
)

const (
	defaultWorkers      = 2
	defaultQueueSize    = 256
	defaultAttemptLimit = 2 * time.Second
)

// pool runs record deliveries on a small fixed set of background workers
// so recording never blocks the orchestrator caller. When the queue is
// full the oldest pending record is dropped and counted; a delivery that
// exceeds the attempt timeout is counted as dropped too.
type pool struct {
	queue        chan Record
	deliver      func(Record)
	attemptLimit time.Duration
	dropped      atomic.Uint64
	wg           sync.WaitGroup
	closeOnce    sync.Once
}

func newPool(workers, queueSize int, attemptLimit time.Duration, deliver func(Record)) *pool {
	if workers <= 0 {
		workers = defaultWorkers
	}
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	if attemptLimit <= 0 {
		attemptLimit = defaultAttemptLimit
	}
	p := &pool{
		queue:        make(chan Record, queueSize),
		deliver:      deliver,
		attemptLimit: attemptLimit,
	}
	p.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go p.work()
	}
	return p
}

// enqueue hands a record to the background workers. On a saturated queue
// the oldest pending record is evicted so the caller never stalls.
func (p *pool) enqueue(record Record) {
	for {
		select {
		case p.queue <- record:
			return
		default:
		}
		select {
		case <-p.queue:
			p.dropped.Add(1)
		default:
		}
	}
}

func (p *pool) work() {
	defer p.wg.Done()
	for record := range p.queue {
		p.attempt(record)
	}
}

// attempt runs one delivery, bounded by the attempt timeout. A timed-out
// delivery counts as a dropped record and the worker moves on; the
// in-flight delivery finishes on its own without a waiter.
func (p *pool) attempt(record Record) {
	done := make(chan struct{})
	go func() {
		defer close(done)
		p.deliver(record)
	}()
	timer := time.NewTimer(p.attemptLimit)
	defer timer.Stop()
	select {
	case <-done:
	case <-timer.C:
		p.dropped.Add(1)
	}
}

// droppedCount reports how many records were evicted or timed out.
func (p *pool) droppedCount() uint64 {
	return p.dropped.Load()
}

// close drains the queue and waits for the workers to finish.
func (p *pool) close() {
	p.closeOnce.Do(func() {
		close(p.queue)
	})
	p.wg.Wait()
}
