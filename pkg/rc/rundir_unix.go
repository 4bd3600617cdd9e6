//go:build unix

package rc

import (
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"
)

// Returns a directory for the socket that is only accessible by the current
// user, creating it if needed. It is $XDG_RUNTIME_DIR/calcsh if the variable
// is set, and $TMPDIR/calcsh-$uid otherwise.
func secureRunDir() (string, error) {
	uid := unix.Getuid()
	var runDir string
	if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
		runDir = filepath.Join(dir, "calcsh")
	} else {
		runDir = filepath.Join(os.TempDir(), fmt.Sprintf("calcsh-%d", uid))
	}
	if err := os.MkdirAll(runDir, 0700); err != nil {
		return "", fmt.Errorf("create run directory: %w", err)
	}

	var stat unix.Stat_t
	if err := unix.Stat(runDir, &stat); err != nil {
		return "", err
	}
	if int(stat.Uid) != uid {
		return "", fmt.Errorf("run directory %s is owned by %d, not the current user", runDir, stat.Uid)
	}
	if stat.Mode&0077 != 0 {
		return "", fmt.Errorf("run directory %s is accessible by other users", runDir)
	}
	return runDir, nil
}
