package testutil

import "time"

// DefaultTimeout is the unscaled timeout used by Recv.
const DefaultTimeout = time.Second

// Recv receives a value from ch, failing the test if no value arrives within
// the scaled DefaultTimeout.
func Recv[T any](t Fataler, ch <-chan T) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-After(DefaultTimeout):
		t.Fatalf("timed out waiting for value")
		panic("unreachable")
	}
}

// NoRecv fails the test if a value arrives on ch within d (scaled).
func NoRecv[T any](t Fataler, ch <-chan T, d time.Duration) {
	t.Helper()
	select {
	case v := <-ch:
		t.Fatalf("got unexpected value %v", v)
	case <-After(d):
	}
}
