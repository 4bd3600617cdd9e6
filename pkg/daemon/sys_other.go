//go:build !unix

package daemon

import "os"

// No-op on systems without umask.
func setUmaskForDaemon() {}

func procAttrForSpawn(files []*os.File) *os.ProcAttr {
	return &os.ProcAttr{Files: files}
}
