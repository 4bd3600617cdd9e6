// Package testutil contains common test utilities.
package testutil

// Cleanuper wraps the Cleanup method. It is a subset of [testing.TB], thus
// satisfied by [*testing.T] and [*testing.B].
type Cleanuper interface {
	Cleanup(func())
}

// Fataler wraps the Helper and Fatalf methods. It is a subset of
// [testing.TB].
type Fataler interface {
	Helper()
	Fatalf(format string, args ...any)
}
