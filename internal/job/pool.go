package job

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/semaphore"
)

// Outcome is the result of a pooled fetch.
type Outcome struct {
	Path string
	Err  error
}

// Pool bounds how many fetches run at once. Submitted work waits for a slot
// on its own goroutine so the caller never blocks.
type Pool struct {
	sem  *semaphore.Weighted
	size int64
	wg   sync.WaitGroup
	log  *slog.Logger
}

// NewPool creates a pool with size slots.
func NewPool(size int, log *slog.Logger) *Pool {
	if size <= 0 {
		size = 1
	}
	if log == nil {
		log = slog.Default()
	}
	return &Pool{
		sem:  semaphore.NewWeighted(int64(size)),
		size: int64(size),
		log:  log,
	}
}

// Size returns the number of slots.
func (p *Pool) Size() int {
	return int(p.size)
}

// Submit schedules fn and returns a channel that receives exactly one Outcome.
// If ctx ends before a slot frees up, fn never runs and the outcome carries
// the context error.
func (p *Pool) Submit(ctx context.Context, fn func(ctx context.Context) (string, error)) <-chan Outcome {
	out := make(chan Outcome, 1)
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()

		if err := p.sem.Acquire(ctx, 1); err != nil {
			out <- Outcome{Err: fmt.Errorf("waiting for worker: %w", err)}
			return
		}
		defer p.sem.Release(1)

		out <- p.run(ctx, fn)
	}()
	return out
}

func (p *Pool) run(ctx context.Context, fn func(ctx context.Context) (string, error)) (o Outcome) {
	defer func() {
		if r := recover(); r != nil {
			p.log.Error("fetch panicked", "panic", r)
			o = Outcome{Err: fmt.Errorf("%w: worker panic: %v", ErrTransient, r)}
		}
	}()
	path, err := fn(ctx)
	return Outcome{Path: path, Err: err}
}

// Wait blocks until every submitted fetch has returned.
func (p *Pool) Wait() {
	p.wg.Wait()
}
