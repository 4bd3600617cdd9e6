// Package shell is the entry point for the terminal interface of calcsh.
package shell

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"
	"src.calc.sh/pkg/calc/calcdefs"
	"src.calc.sh/pkg/daemon"
	"src.calc.sh/pkg/daemon/client"
	"src.calc.sh/pkg/logutil"
	"src.calc.sh/pkg/prog"
	"src.calc.sh/pkg/rc"
)

var logger = logutil.GetLogger("[shell] ")

// ActivateFunc connects to the daemon, spawning it if needed.
type ActivateFunc func(stderr io.Writer, cfg *daemon.SpawnConfig) (*client.Client, error)

// Program is the shell subprogram.
type Program struct {
	// If nil, daemon.Activate is used.
	ActivateDaemon ActivateFunc
}

// The collaborators of a session, as served by the daemon.
type backend interface {
	calcdefs.Evaluator
	calcdefs.Persister
	calcdefs.EventStream
	// Closed when the connection is lost.
	DisconnectNotify() <-chan struct{}
	Close() error
}

func (p Program) Run(fds [3]*os.File, f *prog.Flags, args []string) error {
	if len(args) > 0 {
		return prog.BadUsage("arguments are not allowed")
	}

	cfg := loadRC(fds[2], f.RC)
	mode, err := ParseColourMode(cfg.ColourMode)
	if err != nil {
		fmt.Fprintln(fds[2], "Warning:", err)
	}

	be, err := p.connect(fds[2], f, cfg)
	if err != nil {
		fmt.Fprintln(fds[2], "Warning:", err)
		fmt.Fprintln(fds[2], "Running without the daemon; nothing can be evaluated.")
		be = offline{err}
	}
	defer be.Close()

	if f.Batch || !isatty.IsTerminal(fds[0].Fd()) {
		return prog.Exit(script(context.Background(), fds[0], fds[1], fds[2], be))
	}
	return interact(fds, be, mode)
}

// Loads the config file, warning about problems. It never returns nil.
func loadRC(stderr io.Writer, path string) *rc.Config {
	if path == "" {
		var err error
		path, err = rc.Path()
		if err != nil {
			fmt.Fprintln(stderr, "Warning:", err)
			return &rc.Config{}
		}
	}
	cfg, err := rc.Load(path)
	if err != nil {
		fmt.Fprintln(stderr, "Warning:", err)
		return &rc.Config{}
	}
	return cfg
}
