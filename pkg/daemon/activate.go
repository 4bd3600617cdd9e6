package daemon

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"syscall"
	"time"

	"src.calc.sh/pkg/daemon/api"
	"src.calc.sh/pkg/daemon/client"
)

var (
	daemonSpawnTimeout     = time.Second
	daemonSpawnWaitPerLoop = 10 * time.Millisecond
	daemonDialTimeout      = time.Second
)

var (
	errSockMissing = errors.New("socket does not exist")
	errConnRefused = errors.New("connection refused")
)

// Activate returns a client connected to the daemon at cfg.SockPath. If the
// daemon is not running, it spawns one and waits for it to come up. A socket
// left behind by a daemon that has died is removed first.
func Activate(stderr io.Writer, cfg *SpawnConfig) (*client.Client, error) {
	cl, err := tryConnect(cfg.SockPath)
	switch {
	case err == nil:
		return cl, nil
	case errors.Is(err, errSockMissing):
		// Spawn below.
	case errors.Is(err, errConnRefused):
		fmt.Fprintln(stderr, "removing stale daemon socket", cfg.SockPath)
		if err := os.Remove(cfg.SockPath); err != nil {
			return nil, fmt.Errorf("cannot remove stale socket: %w", err)
		}
	default:
		return nil, err
	}

	logger.Println("spawning daemon")
	if err := Spawn(cfg); err != nil {
		return nil, fmt.Errorf("cannot spawn daemon: %w", err)
	}

	start := time.Now()
	for {
		cl, err := tryConnect(cfg.SockPath)
		switch {
		case err == nil:
			logger.Println("daemon up after", time.Since(start))
			return cl, nil
		case !errors.Is(err, errSockMissing) && !errors.Is(err, errConnRefused):
			return nil, err
		case time.Since(start) > daemonSpawnTimeout:
			return nil, fmt.Errorf("daemon did not come up within %v: %w", daemonSpawnTimeout, err)
		}
		time.Sleep(daemonSpawnWaitPerLoop)
	}
}

// Connects to the daemon and checks its version.
func tryConnect(sockPath string) (*client.Client, error) {
	info, err := os.Lstat(sockPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errSockMissing
		}
		return nil, fmt.Errorf("cannot stat socket: %w", err)
	}
	if info.Mode()&os.ModeSocket == 0 {
		return nil, fmt.Errorf("%s exists and is not a socket", sockPath)
	}

	ctx, cancel := context.WithTimeout(context.Background(), daemonDialTimeout)
	defer cancel()
	cl, err := client.Dial(ctx, sockPath)
	if err != nil {
		if errors.Is(err, syscall.ECONNREFUSED) {
			return nil, errConnRefused
		}
		return nil, fmt.Errorf("cannot connect to daemon: %w", err)
	}
	version, err := cl.Version(ctx)
	if err != nil {
		cl.Close()
		return nil, fmt.Errorf("cannot get daemon version: %w", err)
	}
	if version.Version != api.Version {
		cl.Close()
		return nil, fmt.Errorf("daemon (pid %d) has API version %d, want %d; stop it and try again",
			version.Pid, version.Version, api.Version)
	}
	return cl, nil
}
