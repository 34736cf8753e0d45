// Package writequeue runs persistence jobs in the background. Jobs are keyed
// by the document they write; a newer job for a key replaces a pending one,
// and jobs for the same key never run concurrently.
package writequeue

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/PDUUR/Super-Muslim-Assistant/internal/config"
)

// Job writes one document. It is retried until it succeeds, is superseded
// by a newer job for the same key, or the retry budget runs out.
type Job func(ctx context.Context) error

// FailureFunc is called once per job that exhausted its retries.
type FailureFunc func(key string, err error)

var errSuperseded = errors.New("superseded by a newer write")

// Queue is a keyed, coalescing write-behind queue.
type Queue struct {
	workers   int
	policy    func() backoff.BackOff
	onFailure FailureFunc

	mu      sync.Mutex
	pending map[string]Job
	running map[string]bool
	order   []string
	idle    *sync.Cond
	wake    chan struct{}
}

// New creates a queue from the queue configuration. onFailure may be nil.
func New(cfg config.QueueConfig, onFailure FailureFunc) *Queue {
	workers := cfg.Workers
	if workers <= 0 {
		workers = 1
	}
	q := &Queue{
		workers:   workers,
		onFailure: onFailure,
		pending:   make(map[string]Job),
		running:   make(map[string]bool),
		wake:      make(chan struct{}, 1),
		policy: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			if cfg.InitialInterval > 0 {
				b.InitialInterval = cfg.InitialInterval
			}
			if cfg.MaxInterval > 0 {
				b.MaxInterval = cfg.MaxInterval
			}
			if cfg.MaxElapsedTime > 0 {
				b.MaxElapsedTime = cfg.MaxElapsedTime
			}
			return b
		},
	}
	q.idle = sync.NewCond(&q.mu)
	return q
}

// Enqueue schedules job for key. A job already waiting for the same key is
// dropped in favour of this one.
func (q *Queue) Enqueue(key string, job Job) {
	q.mu.Lock()
	_, waiting := q.pending[key]
	q.pending[key] = job
	if !waiting && !q.running[key] {
		q.order = append(q.order, key)
	}
	q.mu.Unlock()
	q.signal()
}

func (q *Queue) signal() {
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// Len returns the number of keys waiting or running.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending) + len(q.running)
}

// Run starts the workers and blocks until ctx is done. Jobs still pending at
// that point stay in the queue.
func (q *Queue) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < q.workers; i++ {
		g.Go(func() error {
			q.work(ctx)
			return nil
		})
	}
	err := g.Wait()

	q.mu.Lock()
	left := len(q.pending)
	q.idle.Broadcast()
	q.mu.Unlock()
	if left > 0 {
		log.Warn().Int("pending", left).Msg("Write queue stopped with pending jobs")
	}
	return err
}

func (q *Queue) work(ctx context.Context) {
	for {
		key, job, ok := q.next()
		if !ok {
			select {
			case <-ctx.Done():
				return
			case <-q.wake:
				continue
			}
		}
		q.run(ctx, key, job)
	}
}

func (q *Queue) next() (string, Job, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.order) == 0 {
		return "", nil, false
	}
	key := q.order[0]
	q.order = q.order[1:]
	job := q.pending[key]
	delete(q.pending, key)
	q.running[key] = true
	if len(q.order) > 0 {
		q.signal()
	}
	return key, job, true
}

func (q *Queue) run(ctx context.Context, key string, job Job) {
	op := func() error {
		if q.superseded(key) {
			return backoff.Permanent(errSuperseded)
		}
		return job(ctx)
	}
	notify := func(err error, wait time.Duration) {
		log.Warn().Err(err).Str("key", key).Dur("retry_in", wait).Msg("Write failed, retrying")
	}

	err := backoff.RetryNotify(op, backoff.WithContext(q.policy(), ctx), notify)
	switch {
	case err == nil, errors.Is(err, errSuperseded):
	case ctx.Err() != nil:
		// Put the job back so a later Run can finish it.
		q.mu.Lock()
		if _, ok := q.pending[key]; !ok {
			q.pending[key] = job
		}
		q.mu.Unlock()
	default:
		log.Error().Err(err).Str("key", key).Msg("Write dropped after retries")
		if q.onFailure != nil {
			q.onFailure(key, err)
		}
	}

	q.mu.Lock()
	delete(q.running, key)
	if _, ok := q.pending[key]; ok {
		q.order = append(q.order, key)
		q.signal()
	}
	if len(q.pending) == 0 && len(q.running) == 0 {
		q.idle.Broadcast()
	}
	q.mu.Unlock()
}

func (q *Queue) superseded(key string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	_, ok := q.pending[key]
	return ok
}

// Flush blocks until the queue is empty or ctx is done.
func (q *Queue) Flush(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		q.mu.Lock()
		for (len(q.pending) > 0 || len(q.running) > 0) && ctx.Err() == nil {
			q.idle.Wait()
		}
		q.mu.Unlock()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		q.mu.Lock()
		q.idle.Broadcast()
		q.mu.Unlock()
		return ctx.Err()
	}
}
