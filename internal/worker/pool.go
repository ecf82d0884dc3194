package worker

import (
	"context"
	"sync"

	"github.com/martinsuchenak/geotoolkit/internal/log"
)

// WorkerPool manages concurrent workers
type WorkerPool struct {
	maxWorkers int
	jobs       chan Job
	wg         sync.WaitGroup
	mu         sync.RWMutex
	ctx        context.Context
	cancel     context.CancelFunc
	startOnce  sync.Once
}

// Job represents a unit of work. Dropped, when set, is called instead of
// Handler if the pool stops while the job is still queued.
type Job struct {
	ID      string
	Handler func(context.Context) error
	Result  chan error
	Dropped func()
}

// NewWorkerPool creates a new worker pool with at least one worker
func NewWorkerPool(maxWorkers int) *WorkerPool {
	if maxWorkers < 1 {
		maxWorkers = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &WorkerPool{
		maxWorkers: maxWorkers,
		jobs:       make(chan Job, 100),
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Start starts the worker pool
func (p *WorkerPool) Start() {
	p.startOnce.Do(func() {
		for i := 0; i < p.maxWorkers; i++ {
			p.wg.Add(1)
			go p.worker(i)
		}
		log.Info("Worker pool started", "workers", p.maxWorkers)
	})
}

// Stop cancels running jobs and waits for the workers to exit. Jobs still
// queued are not run; their Dropped hooks are called instead.
func (p *WorkerPool) Stop() {
	p.cancel()

	// blocks until any Submit that was mid-send has returned
	p.mu.Lock()
	defer p.mu.Unlock()

	p.wg.Wait()

	for {
		select {
		case job := <-p.jobs:
			log.Debug("Dropping queued job", "job_id", job.ID)
			if job.Dropped != nil {
				job.Dropped()
			}
		default:
			return
		}
	}
}

// Submit queues a job, blocking while the queue is full
func (p *WorkerPool) Submit(job Job) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if err := p.ctx.Err(); err != nil {
		return err
	}
	select {
	case p.jobs <- job:
		return nil
	case <-p.ctx.Done():
		return p.ctx.Err()
	}
}

func (p *WorkerPool) worker(id int) {
	defer p.wg.Done()

	for {
		select {
		case <-p.ctx.Done():
			return
		case job := <-p.jobs:
			log.Debug("Worker executing job", "worker_id", id, "job_id", job.ID)

			err := job.Handler(p.ctx)
			if job.Result != nil {
				job.Result <- err
			}
		}
	}
}
