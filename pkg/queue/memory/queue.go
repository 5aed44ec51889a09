// Package memory delivers delayed pipeline phases with in-process timers.
package memory

import (
	"context"
	"errors"
	"sync"
	"time"

	"labswarm/pkg/interfaces"
	"labswarm/pkg/logger"
)

var _ interfaces.PhaseQueue = (*Queue)(nil)

// ErrStopped returned when scheduling on a stopped queue
var ErrStopped = errors.New("phase queue stopped")

type pending struct {
	job     interfaces.PhaseJob
	dueAt   time.Time
	timer   *time.Timer
	attempt int
}

// Queue timer backed interfaces.PhaseQueue.
// Jobs scheduled before Start are held and armed once a handler is registered.
type Queue struct {
	maxRetry   int
	retryDelay time.Duration

	mu      sync.Mutex
	jobs    map[string]*pending
	handler interfaces.PhaseHandler
	stopped bool
	wg      sync.WaitGroup
	ctx     context.Context
	cancel  context.CancelFunc
}

// Option customizes a Queue
type Option func(*Queue)

// WithRetry redelivers a failed phase up to maxRetry times, retryDelay apart
func WithRetry(maxRetry int, retryDelay time.Duration) Option {
	return func(q *Queue) {
		if maxRetry >= 0 {
			q.maxRetry = maxRetry
		}
		if retryDelay > 0 {
			q.retryDelay = retryDelay
		}
	}
}

// NewQueue creates a queue. Failed phases are not retried unless WithRetry is given.
func NewQueue(opts ...Option) *Queue {
	ctx, cancel := context.WithCancel(context.Background())
	q := &Queue{
		retryDelay: time.Second,
		jobs:       make(map[string]*pending),
		ctx:        ctx,
		cancel:     cancel,
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Start implements interfaces.PhaseQueue
func (q *Queue) Start(handler interfaces.PhaseHandler) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.stopped {
		return ErrStopped
	}
	q.handler = handler
	now := time.Now()
	for _, p := range q.jobs {
		if p.timer == nil {
			q.arm(p, p.dueAt.Sub(now))
		}
	}
	return nil
}

// Schedule implements interfaces.PhaseQueue. Rescheduling a job with the same key replaces it.
func (q *Queue) Schedule(_ context.Context, job interfaces.PhaseJob, delay time.Duration) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.stopped {
		return ErrStopped
	}
	key := job.Key()
	if old, ok := q.jobs[key]; ok && old.timer != nil {
		old.timer.Stop()
	}

	p := &pending{job: job, dueAt: time.Now().Add(delay)}
	q.jobs[key] = p
	if q.handler != nil {
		q.arm(p, delay)
	}
	return nil
}

// arm must be called with q.mu held
func (q *Queue) arm(p *pending, delay time.Duration) {
	if delay < 0 {
		delay = 0
	}
	key := p.job.Key()
	p.timer = time.AfterFunc(delay, func() {
		q.mu.Lock()
		current, ok := q.jobs[key]
		if !ok || current != p || q.stopped {
			q.mu.Unlock()
			return
		}
		delete(q.jobs, key)
		handler := q.handler
		q.wg.Add(1)
		q.mu.Unlock()

		defer q.wg.Done()
		if err := q.run(handler, p.job); err != nil {
			q.retry(p, err)
		}
	})
}

func (q *Queue) run(handler interfaces.PhaseHandler, job interfaces.PhaseJob) (err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.ErrorCtx(q.ctx, "phase %s of query %d panicked: %v", job.Phase, job.QueryID, r)
			err = nil
		}
	}()
	return handler(q.ctx, job)
}

// retry re-arms a failed job unless retries are exhausted or the key was rescheduled meanwhile
func (q *Queue) retry(p *pending, err error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	job := p.job
	if q.stopped || p.attempt >= q.maxRetry {
		logger.ErrorCtx(q.ctx, "phase %s of query %d failed: %v", job.Phase, job.QueryID, err)
		return
	}
	if _, ok := q.jobs[job.Key()]; ok {
		return
	}

	next := &pending{job: job, dueAt: time.Now().Add(q.retryDelay), attempt: p.attempt + 1}
	q.jobs[job.Key()] = next
	q.arm(next, q.retryDelay)
	logger.WarnCtx(q.ctx, "phase %s of query %d failed, retry %d/%d in %s: %v",
		job.Phase, job.QueryID, next.attempt, q.maxRetry, q.retryDelay, err)
}

// CancelQuery implements interfaces.PhaseQueue
func (q *Queue) CancelQuery(_ context.Context, queryID int64) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	for key, p := range q.jobs {
		if p.job.QueryID != queryID {
			continue
		}
		if p.timer != nil {
			p.timer.Stop()
		}
		delete(q.jobs, key)
	}
	return nil
}

// Pending number of jobs not yet delivered
func (q *Queue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.jobs)
}

// Stop implements interfaces.PhaseQueue. Pending timers are released and
// in-flight handlers are awaited.
func (q *Queue) Stop() {
	q.mu.Lock()
	if q.stopped {
		q.mu.Unlock()
		return
	}
	q.stopped = true
	for key, p := range q.jobs {
		if p.timer != nil {
			p.timer.Stop()
		}
		delete(q.jobs, key)
	}
	q.mu.Unlock()

	q.cancel()
	q.wg.Wait()
}
