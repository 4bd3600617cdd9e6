package calctest

import (
	"context"
	"sync"

	"src.calc.sh/pkg/calc/calcdefs"
)

// Backend is an in-memory implementation of all the calcdefs collaborators
// that answers immediately. Evaluation is delegated to Eval.
type Backend struct {
	Eval func(expr string) (float64, error)

	mutex sync.Mutex
	ops   []calcdefs.Operation
	seq   int
	subs  map[*backendSub]struct{}
}

// NewBackend creates a new Backend with the given evaluation function and
// initial history.
func NewBackend(eval func(string) (float64, error), ops ...calcdefs.Operation) *Backend {
	b := &Backend{Eval: eval, subs: make(map[*backendSub]struct{})}
	for _, op := range ops {
		b.seq++
		op.Seq = b.seq
		b.ops = append(b.ops, op)
	}
	return b
}

func (b *Backend) Evaluate(_ context.Context, expr string) (float64, error) {
	if _, ok := calcdefs.IsCommand(expr); ok {
		return 0, calcdefs.ErrIsCommand
	}
	return b.Eval(expr)
}

func (b *Backend) Commit(_ context.Context, expr string) (calcdefs.Operation, error) {
	if name, ok := calcdefs.IsCommand(expr); ok {
		if name == calcdefs.CmdClear {
			b.Clear()
		}
		return calcdefs.Operation{}, &calcdefs.CommandRan{Name: name}
	}
	v, err := b.Eval(expr)
	if err != nil {
		return calcdefs.Operation{}, err
	}
	b.mutex.Lock()
	defer b.mutex.Unlock()
	b.seq++
	op := calcdefs.Operation{Expression: expr, Result: v, Seq: b.seq}
	b.ops = append(b.ops, op)
	b.emit(calcdefs.OperationAdded{Operation: op})
	return op, nil
}

func (b *Backend) History(context.Context) ([]calcdefs.Operation, error) {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	return append([]calcdefs.Operation(nil), b.ops...), nil
}

// Clear clears the history and notifies subscribers.
func (b *Backend) Clear() {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	b.ops = nil
	b.emit(calcdefs.HistoryCleared{Seq: b.seq})
}

func (b *Backend) Subscribe(_ context.Context, f func(calcdefs.Event)) (calcdefs.Subscription, error) {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	sub := &backendSub{b, f}
	b.subs[sub] = struct{}{}
	return sub, nil
}

// Subscribers returns the number of active subscriptions.
func (b *Backend) Subscribers() int {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	return len(b.subs)
}

// Must be called with the mutex held.
func (b *Backend) emit(ev calcdefs.Event) {
	for sub := range b.subs {
		sub.f(ev)
	}
}

type backendSub struct {
	b *Backend
	f func(calcdefs.Event)
}

func (s *backendSub) Close() error {
	s.b.mutex.Lock()
	defer s.b.mutex.Unlock()
	delete(s.b.subs, s)
	return nil
}
