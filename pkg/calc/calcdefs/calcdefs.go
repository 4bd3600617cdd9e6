// Package calcdefs contains definitions of the collaborators the calculator
// core talks to: the evaluator, the persistence backend and the history event
// stream.
//
// It is a separate package so that backends and frontends only need to depend
// on these definitions, not on the core itself.
package calcdefs

import (
	"context"
	"errors"
	"strings"
)

// Operation is one committed, successfully evaluated calculation.
type Operation struct {
	Expression string  `json:"expression"`
	Result     float64 `json:"result"`
	// Sequence number assigned by the store, starting from 1. 0 means the
	// sequence number is unknown.
	Seq int `json:"seq,omitempty"`
}

// Evaluator evaluates normalized expressions. It has no side effects.
type Evaluator interface {
	Evaluate(ctx context.Context, expr string) (float64, error)
}

// Persister commits expressions to the durable history and fetches it.
type Persister interface {
	// Commit evaluates and stores an expression, returning the stored
	// Operation. If the expression is a command, the command is run and the
	// error is a *CommandRan.
	Commit(ctx context.Context, expr string) (Operation, error)
	// History returns all operations in commit order.
	History(ctx context.Context) ([]Operation, error)
}

// EventStream pushes history events that happen in the backend, including the
// ones caused by this process.
type EventStream interface {
	// Subscribe registers f to be called for each event. Events are delivered
	// in the order they happen in the backend. The subscription ends when the
	// returned Subscription is closed or ctx is done.
	Subscribe(ctx context.Context, f func(Event)) (Subscription, error)
}

// Subscription is a handle of an active EventStream subscription.
type Subscription interface {
	// Close ends the subscription. It is safe to call more than once.
	Close() error
}

// Event is a history event. It is either OperationAdded or HistoryCleared.
type Event interface{ isEvent() }

// OperationAdded is emitted when an operation is committed.
type OperationAdded struct{ Operation Operation }

// HistoryCleared is emitted when the history is cleared.
type HistoryCleared struct {
	// The highest sequence number removed by the clear; 0 if unknown.
	Seq int
}

func (OperationAdded) isEvent() {}
func (HistoryCleared) isEvent() {}

// ErrUnavailable is returned (possibly wrapped) when the evaluator is not
// ready or the request could not be dispatched.
var ErrUnavailable = errors.New("evaluator unavailable")

// ErrIsCommand is returned by Evaluator.Evaluate when the input is a command
// rather than an expression.
var ErrIsCommand = errors.New("input is a command")

// DomainError is an error evaluating an expression, such as a syntax error or
// an unknown variable.
type DomainError struct {
	Message string
}

func (e *DomainError) Error() string { return e.Message }

// CommandRan is returned by Persister.Commit when the committed input was a
// command and the command has been run. No operation was stored.
type CommandRan struct {
	Name string
}

func (c *CommandRan) Error() string { return "ran command " + c.Name }

// Names of commands understood by the backend.
const (
	CmdClear = "clear"
	CmdExit  = "exit"
)

// IsCommand returns whether a normalized input is a command, and if so, the
// name of the command.
func IsCommand(expr string) (string, bool) {
	name := strings.TrimSpace(expr)
	if name == CmdClear || name == CmdExit {
		return name, true
	}
	return "", false
}
