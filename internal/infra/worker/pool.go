// File: internal/infra/worker/pool.go
package worker

import (
	"context"
	"errors"
	"runtime"
	"sync"

	"github.com/rs/zerolog"
)

// A small fixed-size worker pool. Jobs that fan out gateway calls submit
// through it so the gateway never sees more than n concurrent requests.

var (
	ErrNilTask   = errors.New("nil task")
	ErrQueueFull = errors.New("worker queue full")
	ErrStopped   = errors.New("worker pool stopped")
)

type Task func(ctx context.Context) error

type Pool struct {
	wg       sync.WaitGroup
	jobs     chan Task
	quit     chan struct{}
	stopOnce sync.Once
	// mu guards closed; Submit holds it for reading while it enqueues so no
	// task lands after the final drain.
	mu     sync.RWMutex
	closed bool
	n      int
	log    *zerolog.Logger
}

func NewPool(workers int, logger *zerolog.Logger) *Pool {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	l := logger.With().Str("component", "WorkerPool").Logger()
	return &Pool{jobs: make(chan Task, workers*4), quit: make(chan struct{}), n: workers, log: &l}
}

func (p *Pool) Size() int { return p.n }

// Start runs the workers until ctx is done or Stop is called. Either way the
// pool closes: later submissions fail and queued tasks are drained.
func (p *Pool) Start(ctx context.Context) {
	for i := 0; i < p.n; i++ {
		p.wg.Add(1)
		go func(id int) {
			defer p.wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case <-p.quit:
					return
				case task := <-p.jobs:
					if err := task(ctx); err != nil {
						p.log.Debug().Err(err).Int("worker", id).Msg("task error")
					}
				}
			}
		}(i)
	}
	go func() {
		select {
		case <-ctx.Done():
			p.close()
		case <-p.quit:
		}
	}()
}

// Stop closes the pool and waits for running tasks. Safe to call more than once.
func (p *Pool) Stop() {
	p.close()
	p.wg.Wait()
}

// close stops intake, then hands every task still queued a cancelled context
// so whoever waits on it is released.
func (p *Pool) close() {
	p.stopOnce.Do(func() {
		close(p.quit)
		p.mu.Lock()
		p.closed = true
		p.mu.Unlock()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		dropped := 0
		for {
			select {
			case task := <-p.jobs:
				_ = task(ctx)
				dropped++
			default:
				if dropped > 0 {
					p.log.Debug().Int("dropped", dropped).Msg("queued tasks cancelled")
				}
				return
			}
		}
	})
}

// Submit queues task, waiting for room until ctx is done or the pool stops.
func (p *Pool) Submit(ctx context.Context, task Task) error {
	if task == nil {
		return ErrNilTask
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrStopped
	}
	select {
	case <-p.quit:
		return ErrStopped
	default:
	}
	select {
	case p.jobs <- task:
		return nil
	case <-p.quit:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TrySubmit queues task without waiting.
func (p *Pool) TrySubmit(task Task) error {
	if task == nil {
		return ErrNilTask
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrStopped
	}
	select {
	case <-p.quit:
		return ErrStopped
	default:
	}
	select {
	case p.jobs <- task:
		return nil
	default:
		return ErrQueueFull
	}
}
