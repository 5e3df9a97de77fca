package dispatch

import (
	"errors"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/soyunomas/sniffguard/internal/telemetry"
)

const DefaultWorkers = 25

var (
	ErrPoolClosed = errors.New("dispatch: pool closed")
	ErrQueueFull  = errors.New("dispatch: queue full")
)

// Handler analyses one frame. Each worker owns its own Handler, so a
// Handler needs no locking of its private state.
type Handler interface {
	Handle(f *Frame)
}

type HandlerFunc func(f *Frame)

func (fn HandlerFunc) Handle(f *Frame) { fn(f) }

type Options struct {
	Workers int
	// MaxQueued > 0 drops new frames once that many are waiting.
	MaxQueued int
	// Drain lets workers empty the queue before exiting on Close. When
	// false the leftover frames are discarded after every worker joined.
	Drain  bool
	Logger zerolog.Logger

	// onDequeue runs under the queue lock right after a frame is removed.
	onDequeue func(f *Frame)
}

type Stats struct {
	Enqueued  uint64
	Dropped   uint64
	Processed uint64
	Discarded uint64
}

// Pool is a fixed set of workers pulling frames from an unbounded FIFO.
// The queue is guarded by mu; cond wakes workers on every enqueue and on
// shutdown.
type Pool struct {
	mu     sync.Mutex
	cond   *sync.Cond
	queue  Queue
	closed bool

	workers   int
	maxQueued int
	drain     bool
	logger    zerolog.Logger
	onDequeue func(f *Frame)

	wg        sync.WaitGroup
	closeOnce sync.Once

	enqueued  atomic.Uint64
	dropped   atomic.Uint64
	processed atomic.Uint64
	discarded atomic.Uint64
}

// NewPool starts opts.Workers goroutines. newHandler is called once per
// worker, before the worker starts.
func NewPool(opts Options, newHandler func(id int) Handler) *Pool {
	if opts.Workers < 1 {
		opts.Workers = DefaultWorkers
	}
	p := &Pool{
		workers:   opts.Workers,
		maxQueued: opts.MaxQueued,
		drain:     opts.Drain,
		logger:    opts.Logger,
		onDequeue: opts.onDequeue,
	}
	p.cond = sync.NewCond(&p.mu)

	p.wg.Add(p.workers)
	for i := 0; i < p.workers; i++ {
		go p.run(i, newHandler(i))
	}
	p.logger.Debug().Int("workers", p.workers).Bool("drain", p.drain).Msg("worker pool started")
	return p
}

func (p *Pool) Workers() int { return p.workers }

// Enqueue hands f to the pool. It never waits for a worker.
func (p *Pool) Enqueue(f *Frame) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		p.dropped.Add(1)
		telemetry.FramesDropped.WithLabelValues("closed").Inc()
		return ErrPoolClosed
	}
	if p.maxQueued > 0 && p.queue.Len() >= p.maxQueued {
		p.mu.Unlock()
		p.dropped.Add(1)
		telemetry.FramesDropped.WithLabelValues("queue_full").Inc()
		return ErrQueueFull
	}
	p.queue.Enqueue(f)
	depth := p.queue.Len()
	p.cond.Broadcast()
	p.mu.Unlock()

	p.enqueued.Add(1)
	telemetry.QueueDepth.Set(float64(depth))
	return nil
}

// Len reports the number of frames waiting in the queue.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.queue.Len()
}

func (p *Pool) run(id int, h Handler) {
	defer p.wg.Done()

	for {
		p.mu.Lock()
		for !p.closed && p.queue.IsEmpty() {
			p.cond.Wait()
		}
		if p.closed && (!p.drain || p.queue.IsEmpty()) {
			p.mu.Unlock()
			p.logger.Debug().Int("worker", id).Msg("worker stopped")
			return
		}
		f := p.queue.Dequeue()
		if p.onDequeue != nil {
			p.onDequeue(f)
		}
		depth := p.queue.Len()
		p.mu.Unlock()

		telemetry.QueueDepth.Set(float64(depth))
		h.Handle(f)
		f.Data = nil
		p.processed.Add(1)
	}
}

// Close stops intake, wakes every worker, joins them all and only then
// releases whatever is left in the queue. It is safe to call more than
// once; later calls just return the final stats.
func (p *Pool) Close() Stats {
	p.closeOnce.Do(func() {
		p.mu.Lock()
		p.closed = true
		p.cond.Broadcast()
		p.mu.Unlock()

		p.wg.Wait()

		p.mu.Lock()
		n := p.queue.Release()
		p.mu.Unlock()

		if n > 0 {
			p.discarded.Add(uint64(n))
			telemetry.FramesDropped.WithLabelValues("discarded").Add(float64(n))
		}
		telemetry.QueueDepth.Set(0)
		p.logger.Debug().Int("discarded", n).Msg("worker pool closed")
	})
	return p.Stats()
}

func (p *Pool) Stats() Stats {
	return Stats{
		Enqueued:  p.enqueued.Load(),
		Dropped:   p.dropped.Load(),
		Processed: p.processed.Load(),
		Discarded: p.discarded.Load(),
	}
}
