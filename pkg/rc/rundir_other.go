//go:build !unix

package rc

import (
	"os"
	"path/filepath"
)

func secureRunDir() (string, error) {
	runDir := filepath.Join(os.TempDir(), "calcsh")
	return runDir, os.MkdirAll(runDir, 0700)
}
