// Package workqueue is the bounded worker pool that runs avatar fetches.
//
// Submission never blocks: when the queue is full Submit fails with
// ErrQueueFull and the caller keeps whatever it already has. Each job runs
// with its own context, bounded by Config.JobTimeout.
package workqueue

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/marmos91/contactpic/internal/logger"
)

var (
	// ErrQueueFull is returned by Submit when no queue slot is free.
	ErrQueueFull = errors.New("workqueue: queue full")

	// ErrQueueStopped is returned by Submit after Stop.
	ErrQueueStopped = errors.New("workqueue: queue stopped")
)

// Job is one unit of work.
type Job struct {
	// Name identifies the job in logs.
	Name string

	// Run does the work. ctx is cancelled after Config.JobTimeout.
	Run func(ctx context.Context) error
}

// Config sizes the pool.
type Config struct {
	// Workers is the number of concurrent workers (default 4).
	Workers int

	// QueueSize is the number of jobs that may wait (default 128).
	QueueSize int

	// JobTimeout bounds each job. Zero means no timeout.
	JobTimeout time.Duration
}

// Defaults applied by New for unset Config fields.
const (
	DefaultWorkers   = 4
	DefaultQueueSize = 128
)

// Stats is a snapshot of queue counters.
type Stats struct {
	Workers   int    `json:"workers"`
	Capacity  int    `json:"capacity"`
	Pending   int    `json:"pending"`
	Completed uint64 `json:"completed"`
	Failed    uint64 `json:"failed"`
	Rejected  uint64 `json:"rejected"`
}

// Queue is a fixed-size worker pool fed by a bounded channel.
type Queue struct {
	jobs       chan Job
	workers    int
	jobTimeout time.Duration

	wg        sync.WaitGroup
	stopCh    chan struct{}
	stoppedCh chan struct{}

	mu          sync.Mutex
	started     bool
	stopped     bool
	pending     int
	completed   uint64
	failed      uint64
	rejected    uint64
	lastError   error
	lastErrorAt time.Time
}

// New creates a queue. Call Start to begin processing.
func New(cfg Config) *Queue {
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultWorkers
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = DefaultQueueSize
	}

	return &Queue{
		jobs:       make(chan Job, cfg.QueueSize),
		workers:    cfg.Workers,
		jobTimeout: cfg.JobTimeout,
		stopCh:     make(chan struct{}),
		stoppedCh:  make(chan struct{}),
	}
}

// Start launches the workers. Calling it again is a no-op.
//
// Workers do not stop when ctx is cancelled, only on Stop, so a short-lived
// startup context cannot take the pool down with it.
func (q *Queue) Start(_ context.Context) {
	q.mu.Lock()
	if q.started {
		q.mu.Unlock()
		return
	}
	q.started = true
	q.mu.Unlock()

	logger.Info("Starting avatar work queue", "workers", q.workers, "capacity", cap(q.jobs))

	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.worker(i)
	}

	go func() {
		q.wg.Wait()
		close(q.stoppedCh)
	}()
}

// Stop rejects further submissions, lets workers drain what is queued and
// waits up to timeout for them to exit.
func (q *Queue) Stop(timeout time.Duration) {
	q.mu.Lock()
	if q.stopped {
		q.mu.Unlock()
		return
	}
	q.stopped = true
	started := q.started
	pending := q.pending
	q.mu.Unlock()

	if !started {
		return
	}

	logger.Info("Stopping avatar work queue", "pending", pending)
	close(q.stopCh)

	select {
	case <-q.stoppedCh:
		logger.Info("Avatar work queue stopped")
	case <-time.After(timeout):
		logger.Warn("Avatar work queue stop timed out", "pending", q.Pending())
	}
}

// Submit enqueues job without blocking.
func (q *Queue) Submit(job Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.stopped {
		return ErrQueueStopped
	}

	select {
	case q.jobs <- job:
		q.pending++
		return nil
	default:
		q.rejected++
		logger.Debug("Avatar work queue full, rejecting job", "job", job.Name)
		return ErrQueueFull
	}
}

// Pending returns the number of queued or running jobs.
func (q *Queue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.pending
}

// Stats returns queue counters.
func (q *Queue) Stats() Stats {
	q.mu.Lock()
	defer q.mu.Unlock()
	return Stats{
		Workers:   q.workers,
		Capacity:  cap(q.jobs),
		Pending:   q.pending,
		Completed: q.completed,
		Failed:    q.failed,
		Rejected:  q.rejected,
	}
}

// LastError returns the most recent job error and when it happened.
func (q *Queue) LastError() (time.Time, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.lastErrorAt, q.lastError
}

func (q *Queue) worker(id int) {
	defer q.wg.Done()

	logger.Debug("Avatar worker started", "worker_id", id)

	for {
		select {
		case job := <-q.jobs:
			q.process(job)
		case <-q.stopCh:
			q.drain()
			logger.Debug("Avatar worker stopped", "worker_id", id)
			return
		}
	}
}

func (q *Queue) drain() {
	for {
		select {
		case job := <-q.jobs:
			q.process(job)
		default:
			return
		}
	}
}

// process runs one job under a fresh context.
func (q *Queue) process(job Job) {
	ctx := context.Background()
	if q.jobTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, q.jobTimeout)
		defer cancel()
	}

	err := job.Run(ctx)

	q.mu.Lock()
	defer q.mu.Unlock()

	q.pending--
	if err != nil {
		q.failed++
		q.lastError = err
		q.lastErrorAt = time.Now()
		logger.Warn("Avatar job failed", "job", job.Name, "error", err)
		return
	}
	q.completed++
}
