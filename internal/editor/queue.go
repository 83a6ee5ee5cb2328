package editor

import (
	"context"
	"sync"
)

// job is one unit of persistence work. Jobs run FIFO on a single
// worker goroutine, so gateway calls for one sibling scope never race
// each other.
type job struct {
	key     string
	run     func(ctx context.Context) error
	barrier chan struct{} // flush marker; key and run are unset
}

// saveQueue serializes a store's persistence work. done is invoked
// after every non-barrier job with the job's key and outcome.
type saveQueue struct {
	qmu  sync.Mutex // serializes enqueue against close
	open bool
	jobs chan job
	wg   sync.WaitGroup
}

func newSaveQueue(size int, done func(key string, err error)) *saveQueue {
	if size <= 0 {
		size = 64
	}
	q := &saveQueue{open: true, jobs: make(chan job, size)}
	q.wg.Add(1)
	go func() {
		defer q.wg.Done()
		for j := range q.jobs {
			if j.barrier != nil {
				close(j.barrier)
				continue
			}
			// Persistence is never cancelled mid-flight; teardown is
			// handled by the closed checks inside completion paths.
			done(j.key, j.run(context.Background()))
		}
	}()
	return q
}

// enqueue submits a job. before runs under the queue lock right before
// the job is accepted, giving callers an atomic "mark in-flight then
// queue" step.
func (q *saveQueue) enqueue(j job, before func()) error {
	q.qmu.Lock()
	defer q.qmu.Unlock()
	if !q.open {
		return ErrClosed
	}
	if before != nil {
		before()
	}
	q.jobs <- j
	return nil
}

// flush blocks until every previously enqueued job has completed.
func (q *saveQueue) flush(ctx context.Context) error {
	barrier := make(chan struct{})
	if err := q.enqueue(job{barrier: barrier}, nil); err != nil {
		return err
	}
	select {
	case <-barrier:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// close stops accepting work and waits for the queue to drain. Queued
// jobs still run to completion.
func (q *saveQueue) close() {
	q.qmu.Lock()
	if !q.open {
		q.qmu.Unlock()
		return
	}
	q.open = false
	close(q.jobs)
	q.qmu.Unlock()
	q.wg.Wait()
}
