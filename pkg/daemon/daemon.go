// Package daemon implements the calcsh daemon, which owns the store and the
// evaluator and serves them to shells over JSON-RPC, and the activation logic
// that connects to or spawns it.
package daemon

import (
	"os"

	"src.calc.sh/pkg/logutil"
	"src.calc.sh/pkg/prog"
	"src.calc.sh/pkg/rc"
)

var logger = logutil.GetLogger("[daemon] ")

// Program is the daemon subprogram.
type Program struct {
	// Used in tests.
	serveOpts ServeOpts
}

func (p *Program) Run(fds [3]*os.File, f *prog.Flags, args []string) error {
	if !f.Daemon {
		return prog.ErrNotSuitable
	}
	if len(args) > 0 {
		return prog.BadUsage("arguments are not allowed with -daemon")
	}
	if f.Sock == "" || f.DB == "" {
		paths, err := rc.ResolvePaths(f.DB, f.Sock, &rc.Config{})
		if err != nil {
			return err
		}
		f.DB, f.Sock = paths.DB, paths.Sock
	}

	setUmaskForDaemon()
	opts := p.serveOpts
	if f.WS != "" {
		opts.HTTPAddr = f.WS
	}
	exit := Serve(f.Sock, f.DB, opts)
	return prog.Exit(exit)
}
