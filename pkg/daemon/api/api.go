// Package api defines the JSON-RPC protocol spoken between the daemon and its
// clients.
//
// Requests and responses use the methods below. The daemon pushes history
// events to subscribed clients as notifications; each notification carries
// the id of the subscription it is for.
package api

import (
	"src.calc.sh/pkg/calc/calcdefs"
)

// Version is the API version. It should be bumped any time the API changes.
const Version = 1

// Request methods.
const (
	MethodVersion     = "calc.version"
	MethodEvaluate    = "calc.evaluate"
	MethodCommit      = "calc.commit"
	MethodHistory     = "calc.history"
	MethodClear       = "calc.clear"
	MethodSubscribe   = "calc.subscribe"
	MethodUnsubscribe = "calc.unsubscribe"
)

// Notification methods.
const (
	NotifyOperationAdded = "calc.operationAdded"
	NotifyHistoryCleared = "calc.historyCleared"
)

// Error codes in responses, in addition to the standard JSON-RPC ones.
const (
	// The expression is malformed or does not evaluate to a number. The
	// message is the description of the problem.
	CodeDomain = 1
	// The expression is a shell command and has no value.
	CodeCommand = 2
	// The committed expression was a shell command and has been run. The
	// message is the name of the command.
	CodeCommandRan = 3
	// The store failed or is not available.
	CodeStore = 4
)

// VersionResult is the result of MethodVersion.
type VersionResult struct {
	Version int `json:"version"`
	Pid     int `json:"pid"`
}

// ExpressionParams is the params of MethodEvaluate and MethodCommit.
type ExpressionParams struct {
	Expression string `json:"expression"`
}

// EvaluateResult is the result of MethodEvaluate.
type EvaluateResult struct {
	Result Float `json:"result"`
}

// Operation is the wire form of calcdefs.Operation. It is the result of
// MethodCommit; MethodHistory returns a list of them.
type Operation struct {
	Expression string `json:"expression"`
	Result     Float  `json:"result"`
	Seq        int    `json:"seq"`
}

// FromOperation converts a calcdefs.Operation to its wire form.
func FromOperation(op calcdefs.Operation) Operation {
	return Operation{op.Expression, Float(op.Result), op.Seq}
}

// FromOperations converts a list of operations to their wire form. It never
// returns nil, so that an empty history is encoded as an empty list.
func FromOperations(ops []calcdefs.Operation) []Operation {
	wire := make([]Operation, len(ops))
	for i, op := range ops {
		wire[i] = FromOperation(op)
	}
	return wire
}

// Calc converts the wire form back to a calcdefs.Operation.
func (op Operation) Calc() calcdefs.Operation {
	return calcdefs.Operation{Expression: op.Expression, Result: float64(op.Result), Seq: op.Seq}
}

// ClearResult is the result of MethodClear.
type ClearResult struct {
	// Highest sequence number removed by the clear.
	Seq int `json:"seq"`
}

// SubscriptionParams is the params of MethodSubscribe and MethodUnsubscribe.
// The id of a subscription is chosen by the client.
type SubscriptionParams struct {
	Subscription string `json:"subscription"`
}

// OperationAddedParams is the params of NotifyOperationAdded.
type OperationAddedParams struct {
	Subscription string    `json:"subscription"`
	Operation    Operation `json:"operation"`
}

// HistoryClearedParams is the params of NotifyHistoryCleared.
type HistoryClearedParams struct {
	Subscription string `json:"subscription"`
	Seq          int    `json:"seq"`
}
