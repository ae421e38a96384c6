// Package control runs work serially on a single goroutine. Chat edits
// from every job funnel through it so the messaging surface sees one writer.
package control

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
)

// ErrStopped is returned for work submitted after the loop exited.
var ErrStopped = errors.New("control loop stopped")

type task struct {
	ctx       context.Context
	fn        func(ctx context.Context) error
	done      chan error
	abandoned atomic.Bool
}

// Loop is a serial executor.
type Loop struct {
	tasks   chan *task
	stopped chan struct{}
	log     *slog.Logger
}

// New creates a loop with the given queue depth.
func New(queue int, log *slog.Logger) *Loop {
	if queue <= 0 {
		queue = 64
	}
	if log == nil {
		log = slog.Default()
	}
	return &Loop{
		tasks:   make(chan *task, queue),
		stopped: make(chan struct{}),
		log:     log,
	}
}

// Name returns the runner name.
func (l *Loop) Name() string {
	return "control"
}

// Start executes submitted work until ctx is cancelled.
func (l *Loop) Start(ctx context.Context) error {
	defer close(l.stopped)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case t := <-l.tasks:
			l.run(t)
		}
	}
}

func (l *Loop) run(t *task) {
	if t.abandoned.Load() {
		return
	}
	err := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("control task panic: %v", r)
				l.log.Error("control task panicked", "panic", r)
			}
		}()
		return t.fn(t.ctx)
	}()
	if t.done != nil {
		t.done <- err
	}
}

// Do submits fn and waits for it to finish or for ctx to end. When ctx ends
// first the task is abandoned: if it has not started yet it never runs.
func (l *Loop) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	t := &task{ctx: ctx, fn: fn, done: make(chan error, 1)}

	select {
	case l.tasks <- t:
	case <-l.stopped:
		return ErrStopped
	case <-ctx.Done():
		return fmt.Errorf("submit: %w", ctx.Err())
	}

	select {
	case err := <-t.done:
		return err
	case <-l.stopped:
		return ErrStopped
	case <-ctx.Done():
		t.abandoned.Store(true)
		return fmt.Errorf("wait: %w", ctx.Err())
	}
}

// Post schedules fn without waiting. It returns false when the queue is full
// or the loop has stopped.
func (l *Loop) Post(fn func(ctx context.Context) error) bool {
	t := &task{ctx: context.Background(), fn: fn}
	select {
	case <-l.stopped:
		return false
	default:
	}
	select {
	case l.tasks <- t:
		return true
	default:
		l.log.Warn("control queue full, dropping task")
		return false
	}
}
