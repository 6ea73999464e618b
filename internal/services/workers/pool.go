package workers

import (
	"context"
	"errors"
	"sync"

	"github.com/ternarybob/arbor"
)

// Task is one unit of work. The context it receives is cancelled when the
// pool shuts down.
type Task func(ctx context.Context) error

// ErrPoolClosed is returned by Submit after Shutdown has begun.
var ErrPoolClosed = errors.New("worker pool is shutting down")

// Pool runs tasks on a bounded set of goroutines. Scan pages are validated
// through it when parallelism is enabled; the caller merges page results
// commutatively, so completion order carries no meaning.
type Pool struct {
	size   int
	tasks  chan Task
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	logger arbor.ILogger

	mu     sync.Mutex
	failed []error
}

// NewPool sizes a pool; size values below 1 fall back to 4 workers.
func NewPool(size int, logger arbor.ILogger) *Pool {
	if size < 1 {
		size = 4
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Pool{
		size:   size,
		tasks:  make(chan Task, size*2),
		ctx:    ctx,
		cancel: cancel,
		logger: logger,
	}
}

// Start launches the workers.
func (p *Pool) Start() {
	p.logger.Debug().Int("workers", p.size).Msg("Starting worker pool")
	for i := 0; i < p.size; i++ {
		p.wg.Add(1)
		go func(worker int) {
			defer p.wg.Done()
			p.run(worker)
		}(i)
	}
}

func (p *Pool) run(worker int) {
	for {
		select {
		case <-p.ctx.Done():
			return
		case task, open := <-p.tasks:
			if !open {
				return
			}
			if err := task(p.ctx); err != nil {
				p.mu.Lock()
				p.failed = append(p.failed, err)
				p.mu.Unlock()
				p.logger.Error().Err(err).Int("worker", worker).Msg("Task failed")
			}
		}
	}
}

// Submit queues a task, blocking while the queue is full.
func (p *Pool) Submit(task Task) error {
	select {
	case <-p.ctx.Done():
		return ErrPoolClosed
	case p.tasks <- task:
		return nil
	}
}

// Wait closes the queue and blocks until queued tasks finish.
func (p *Pool) Wait() {
	close(p.tasks)
	p.wg.Wait()
}

// Shutdown cancels in-flight tasks and waits for the workers to exit.
func (p *Pool) Shutdown() {
	p.cancel()
	p.Wait()
}

// Errors returns the errors collected from failed tasks.
func (p *Pool) Errors() []error {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]error, len(p.failed))
	copy(out, p.failed)
	return out
}
