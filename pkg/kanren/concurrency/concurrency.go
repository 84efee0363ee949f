// Package concurrency implements §6's structured-concurrency layer on
// top of the core runtime: spawn, channel, and the bundle_* family.
// Every task runs its query to completion on a goroutine of an
// internal/parallel worker pool; tasks are not interleaved at
// suspension points. Tasks that share a Runtime share its trail and
// constraint store, so independent tasks are given independent
// runtimes.
package concurrency

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"linkanren/internal/parallel"
	"linkanren/pkg/kanren"
)

// Bundle runs a fixed set of resolver queries concurrently over a
// worker pool and reports every result together, matching §6's
// "bundle" primitive: a bundle either waits for every member goal
// (WaitAll) or returns as soon as any one of them produces a solution
// (WaitAny).
type Bundle struct {
	pool *parallel.WorkerPool
}

// NewBundle builds a bundle backed by a worker pool of size workers
// (0 means runtime.NumCPU()).
func NewBundle(size int) *Bundle {
	return &Bundle{pool: parallel.NewWorkerPool(size)}
}

func (b *Bundle) Close() { b.pool.Shutdown() }

// Task is one member of a bundle: a runtime and the goal resolved
// against that runtime's environment. Member goals only keep separate
// trails when each task is given its own Runtime; the bundle does not
// fork environments itself.
type Task struct {
	RT   *kanren.Runtime
	Goal kanren.Term
}

// WaitAll implements bundle_wait_all: every task is resolved to its
// first solution (or failure), and WaitAll returns once all of them have
// finished, using golang.org/x/sync/errgroup so the first task error
// cancels the group's context and the rest unwind promptly rather than
// running needless work to completion.
func (b *Bundle) WaitAll(ctx context.Context, tasks []Task) ([]bool, error) {
	results := make([]bool, len(tasks))
	g, gctx := errgroup.WithContext(ctx)
	for i, t := range tasks {
		i, t := i, t
		g.Go(func() error {
			done := make(chan error, 1)
			if err := b.pool.Submit(gctx, func() {
				found, _, err := t.RT.QueryFirst(gctx, t.Goal)
				if err == nil {
					results[i] = found
				}
				done <- err
			}); err != nil {
				return err
			}
			return <-done
		})
	}
	if err := g.Wait(); err != nil {
		return results, fmt.Errorf("kanren/concurrency: bundle_wait_all: %w", err)
	}
	return results, nil
}

// WaitAny implements bundle_wait_any: the bundle returns as soon as one
// member task finds a solution, and that task's index is reported; every
// other in-flight task is left to finish on its own worker (their
// results are simply not consulted) — matching §6's description of
// wait_any as a race rather than a cancellation.
func (b *Bundle) WaitAny(ctx context.Context, tasks []Task) (winner int, found bool, err error) {
	type outcome struct {
		index int
		found bool
		err   error
	}
	done := make(chan outcome, len(tasks))
	for i, t := range tasks {
		i, t := i, t
		submitErr := b.pool.Submit(ctx, func() {
			f, _, e := t.RT.QueryFirst(ctx, t.Goal)
			done <- outcome{index: i, found: f, err: e}
		})
		if submitErr != nil {
			return -1, false, submitErr
		}
	}
	for range tasks {
		select {
		case o := <-done:
			if o.err != nil {
				return -1, false, o.err
			}
			if o.found {
				return o.index, true, nil
			}
		case <-ctx.Done():
			return -1, false, ctx.Err()
		}
	}
	return -1, false, nil
}

// Channel is a bounded handoff point between spawned goals, the
// runtime-level counterpart of §6's "channel" primitive. Unlike a raw Go
// channel of kanren.Term, Channel additionally narrows each sent value
// through the receiving environment so a goal blocked on a channel
// receive resumes exactly like any other suspension, once a value
// arrives (§4.F, §6).
type Channel struct {
	values chan *kanren.Value
}

func NewChannel(capacity int) *Channel {
	return &Channel{values: make(chan *kanren.Value, capacity)}
}

// Send delivers v to the channel, blocking if it is full, or returning
// ctx.Err() if ctx is cancelled first.
func (c *Channel) Send(ctx context.Context, v *kanren.Value) error {
	select {
	case c.values <- v:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Receive blocks for the next value, unifying it into result once one
// arrives — mirroring NarrowCall's "unify the reduction into the
// caller's result slot" contract so a channel receive composes with the
// rest of the resolver's suspension machinery.
func (c *Channel) Receive(ctx context.Context, env *kanren.Environment, result *kanren.Value) error {
	select {
	case v := <-c.values:
		if !kanren.Unify(result, v, env) {
			return fmt.Errorf("kanren/concurrency: channel receive: %w", kanren.ErrUnification)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Channel) Close() { close(c.values) }

// Spawn submits goal to run against its own environment on the pool,
// reporting its first solution asynchronously through a Go channel. It
// is the primitive §6's spawn/1 reduces to once the concurrency layer
// sits on top of a worker pool rather than a bare `go` statement,
// letting every spawned goal share the same backpressure and deadlock
// detection the pool already provides.
func Spawn(ctx context.Context, pool *parallel.WorkerPool, rt *kanren.Runtime, goal kanren.Term) <-chan error {
	resultCh := make(chan error, 1)
	err := pool.Submit(ctx, func() {
		_, _, err := rt.QueryFirst(ctx, goal)
		resultCh <- err
	})
	if err != nil {
		resultCh <- err
	}
	return resultCh
}
