package worker

import (
	"context"
	"sync"
)

// Batch is a set of jobs running on a pool.
type Batch[R any] struct {
	results chan R
	done    chan struct{}
	queued  int
	mu      sync.Mutex
}

// Done is closed once every worker has returned.
func (b *Batch[R]) Done() <-chan struct{} {
	return b.done
}

// Dispatched reports how many jobs were handed to workers.
func (b *Batch[R]) Dispatched() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.queued
}

// Wait blocks until all workers have returned and collects their results in
// completion order.
func (b *Batch[R]) Wait() []R {
	<-b.done
	all := make([]R, 0, len(b.results))
	for r := range b.results {
		all = append(all, r)
	}
	return all
}

// Start runs fn over jobs on the given number of goroutines. The context only
// gates dispatch: once it is cancelled no further job is handed out, but jobs
// already running are left to finish.
func Start[T, R any](ctx context.Context, workers int, jobs []T, fn func(T) R) *Batch[R] {
	if workers < 1 {
		workers = 1
	}
	if workers > len(jobs) && len(jobs) > 0 {
		workers = len(jobs)
	}

	b := &Batch[R]{
		results: make(chan R, len(jobs)),
		done:    make(chan struct{}),
	}
	queue := make(chan T)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range queue {
				b.results <- fn(job)
			}
		}()
	}

	go func() {
		defer func() {
			close(queue)
			wg.Wait()
			close(b.results)
			close(b.done)
		}()
		for _, job := range jobs {
			if ctx.Err() != nil {
				return
			}
			select {
			case queue <- job:
				b.mu.Lock()
				b.queued++
				b.mu.Unlock()
			case <-ctx.Done():
				return
			}
		}
	}()

	return b
}
