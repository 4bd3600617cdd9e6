package store

import (
	"path/filepath"
	"testing"

	"src.calc.sh/pkg/testutil"
)

// MustTempStore returns a Store backed by a file in a temporary directory.
// The store is closed when the test finishes.
func MustTempStore(t testing.TB) DBStore {
	t.Helper()
	st, err := NewStore(filepath.Join(testutil.TempDir(t), "db.bolt"))
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	t.Cleanup(func() {
		if err := st.Close(); err != nil {
			t.Errorf("close store: %v", err)
		}
	})
	return st
}
