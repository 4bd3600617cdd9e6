//go:build !unix

package testutil

// Umask does nothing on systems without umask.
func Umask(c Cleanuper, m int) {}
