// Package calctest provides fake collaborators for testing code that uses
// the calcdefs interfaces.
package calctest

import (
	"context"
	"sync"

	"src.calc.sh/pkg/calc/calcdefs"
)

// Call is an intercepted call to a fake collaborator. The caller blocks until
// the test calls Return, or the context of the call is done.
type Call[A, R any] struct {
	Arg A
	ret chan ret[R]
}

type ret[R any] struct {
	v   R
	err error
}

func newCall[A, R any](arg A) *Call[A, R] {
	return &Call[A, R]{arg, make(chan ret[R], 1)}
}

// Return makes the intercepted call return. Only the first call has an
// effect.
func (c *Call[A, R]) Return(v R, err error) {
	select {
	case c.ret <- ret[R]{v, err}:
	default:
	}
}

// Sends the call on ch and waits for its return.
func intercept[A, R any](ctx context.Context, ch chan<- *Call[A, R], arg A) (R, error) {
	var zero R
	call := newCall[A, R](arg)
	select {
	case ch <- call:
	case <-ctx.Done():
		return zero, ctx.Err()
	}
	select {
	case r := <-call.ret:
		return r.v, r.err
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// Evaluator is a calcdefs.Evaluator whose calls are answered by the test.
type Evaluator struct {
	Calls chan *Call[string, float64]
}

// NewEvaluator creates a new Evaluator.
func NewEvaluator() *Evaluator {
	return &Evaluator{make(chan *Call[string, float64], 16)}
}

func (e *Evaluator) Evaluate(ctx context.Context, expr string) (float64, error) {
	return intercept(ctx, e.Calls, expr)
}

// Persister is a calcdefs.Persister whose calls are answered by the test.
type Persister struct {
	Commits chan *Call[string, calcdefs.Operation]
	Fetches chan *Call[struct{}, []calcdefs.Operation]
}

// NewPersister creates a new Persister.
func NewPersister() *Persister {
	return &Persister{
		make(chan *Call[string, calcdefs.Operation], 16),
		make(chan *Call[struct{}, []calcdefs.Operation], 16),
	}
}

func (p *Persister) Commit(ctx context.Context, expr string) (calcdefs.Operation, error) {
	return intercept(ctx, p.Commits, expr)
}

func (p *Persister) History(ctx context.Context) ([]calcdefs.Operation, error) {
	return intercept(ctx, p.Fetches, struct{}{})
}

// EventStream is a calcdefs.EventStream whose Subscribe calls are answered by
// the test. The argument of an intercepted call is the event handler.
type EventStream struct {
	Subscribes chan *Call[func(calcdefs.Event), calcdefs.Subscription]
}

// NewEventStream creates a new EventStream.
func NewEventStream() *EventStream {
	return &EventStream{make(chan *Call[func(calcdefs.Event), calcdefs.Subscription], 16)}
}

func (s *EventStream) Subscribe(ctx context.Context, f func(calcdefs.Event)) (calcdefs.Subscription, error) {
	return intercept(ctx, s.Subscribes, f)
}

// Subscription is a calcdefs.Subscription that counts how many times it has
// been closed.
type Subscription struct {
	mutex  sync.Mutex
	closes int
	// Closed is closed on the first Close call.
	Closed chan struct{}
}

// NewSubscription creates a new Subscription.
func NewSubscription() *Subscription {
	return &Subscription{Closed: make(chan struct{})}
}

func (s *Subscription) Close() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.closes++
	if s.closes == 1 {
		close(s.Closed)
	}
	return nil
}

// Closes returns the number of times Close has been called.
func (s *Subscription) Closes() int {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.closes
}
