package shell

import (
	"context"
	"fmt"
	"io"
	"time"

	"src.calc.sh/pkg/daemon"
	"src.calc.sh/pkg/daemon/client"
	"src.calc.sh/pkg/prog"
	"src.calc.sh/pkg/rc"
)

var dialTimeout = 3 * time.Second

// Connects to the daemon: a remote one if the config names it, otherwise the
// local one, spawning it unless the config says not to. Paths from the
// command line take precedence over the config.
func (p Program) connect(stderr io.Writer, f *prog.Flags, cfg *rc.Config) (backend, error) {
	if cfg.Remote != "" {
		logger.Println("connecting to remote daemon", cfg.Remote)
		ctx, cancel := context.WithTimeout(context.Background(), dialTimeout)
		defer cancel()
		cl, err := client.DialWebsocket(ctx, cfg.Remote)
		if err != nil {
			return nil, fmt.Errorf("cannot connect to %s: %w", cfg.Remote, err)
		}
		return cl, nil
	}

	paths, err := rc.ResolvePaths(f.DB, f.Sock, cfg)
	if err != nil {
		return nil, err
	}
	if !cfg.ShouldSpawnDaemon() {
		ctx, cancel := context.WithTimeout(context.Background(), dialTimeout)
		defer cancel()
		cl, err := client.Dial(ctx, paths.Sock)
		if err != nil {
			return nil, fmt.Errorf("daemon not running and spawning is disabled: %w", err)
		}
		return cl, nil
	}

	activate := p.ActivateDaemon
	if activate == nil {
		activate = daemon.Activate
	}
	cl, err := activate(stderr, &daemon.SpawnConfig{
		DbPath: paths.DB, SockPath: paths.Sock, RunDir: paths.RunDir, WSAddr: cfg.WSAddr})
	if err != nil {
		return nil, err
	}
	return cl, nil
}
