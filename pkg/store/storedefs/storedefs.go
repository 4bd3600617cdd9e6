// Package storedefs contains definitions of the store API.
//
// It is a separate package so that packages that only depend on the store API
// does not need to depend on the concrete implementation.
package storedefs

import "src.calc.sh/pkg/calc/calcdefs"

// Store is an interface satisfied by the storage service.
type Store interface {
	// AddOperation appends an operation to the history and returns it with
	// its sequence number set.
	AddOperation(expr string, result float64) (calcdefs.Operation, error)
	// Operations returns the whole history, ordered by sequence number.
	Operations() ([]calcdefs.Operation, error)
	// ClearOperations removes all operations and returns the highest
	// sequence number removed, or 0 if the history was never written to.
	// Sequence numbers are never reused after a clear.
	ClearOperations() (int, error)

	// Variables are read all at once, since every evaluation needs them.
	SetVar(name string, value float64) error
	Vars() (map[string]float64, error)
	ClearVars() error
}
