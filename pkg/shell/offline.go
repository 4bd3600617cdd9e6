package shell

import (
	"context"
	"fmt"

	"src.calc.sh/pkg/calc/calcdefs"
)

// A backend used when the daemon cannot be reached. All requests fail as
// unavailable.
type offline struct{ cause error }

var closedCh = func() chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}()

func (o offline) err() error {
	return fmt.Errorf("%w: %v", calcdefs.ErrUnavailable, o.cause)
}

func (o offline) Evaluate(context.Context, string) (float64, error) { return 0, o.err() }

func (o offline) Commit(context.Context, string) (calcdefs.Operation, error) {
	return calcdefs.Operation{}, o.err()
}

func (o offline) History(context.Context) ([]calcdefs.Operation, error) { return nil, o.err() }

func (o offline) Subscribe(context.Context, func(calcdefs.Event)) (calcdefs.Subscription, error) {
	return nil, o.err()
}

func (offline) DisconnectNotify() <-chan struct{} { return closedCh }
func (offline) Close() error                      { return nil }
