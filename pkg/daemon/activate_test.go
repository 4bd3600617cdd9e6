package daemon

import (
	"io"
	"net"
	"os"
	"strings"
	"testing"
	"time"

	"src.calc.sh/pkg/must"
	"src.calc.sh/pkg/testutil"
)

func TestActivate_ConnectsToExistingServer(t *testing.T) {
	setup(t)
	startServer(t, cli("sock", "db"))
	cl, err := Activate(io.Discard, &SpawnConfig{DbPath: "db", SockPath: "sock", RunDir: "."})
	if err != nil {
		t.Fatalf("got error %v, want nil", err)
	}
	cl.Close()
}

func TestActivate_SpawnsNewServer(t *testing.T) {
	var gotArgs []string
	setupForActivate(t, func(name string, argv []string, attr *os.ProcAttr) error {
		gotArgs = argv
		startServer(t, argv)
		return nil
	})

	cl, err := Activate(io.Discard,
		&SpawnConfig{DbPath: "db", SockPath: "sock", RunDir: ".", WSAddr: "127.0.0.1:0"})
	if err != nil {
		t.Fatalf("got error %v, want nil", err)
	}
	cl.Close()
	if gotArgs == nil {
		t.Fatalf("daemon not spawned")
	}
	args := strings.Join(gotArgs[1:], " ")
	if !strings.HasPrefix(args, "-daemon -db /") || !strings.HasSuffix(args, "/sock -ws 127.0.0.1:0") {
		t.Errorf("got spawn arguments %q", args)
	}
	// The daemon log file is created in RunDir.
	logs, _ := os.ReadDir(".")
	var sawLog bool
	for _, entry := range logs {
		if strings.HasPrefix(entry.Name(), "daemon-") && strings.HasSuffix(entry.Name(), ".log") {
			sawLog = true
		}
	}
	if !sawLog {
		t.Errorf("no daemon log file in run dir")
	}
}

func TestActivate_RemovesHangingSocketAndSpawnsNewServer(t *testing.T) {
	activated := 0
	setupForActivate(t, func(name string, argv []string, attr *os.ProcAttr) error {
		startServer(t, argv)
		activated++
		return nil
	})
	makeHangingUnixSocket(t, "sock")

	cl, err := Activate(io.Discard, &SpawnConfig{DbPath: "db", SockPath: "sock", RunDir: "."})
	if err != nil {
		t.Fatalf("got error %v, want nil", err)
	}
	cl.Close()
	if activated != 1 {
		t.Errorf("got activated %v times, want 1", activated)
	}
}

func TestActivate_FailsIfDaemonDoesNotComeUp(t *testing.T) {
	setupForActivate(t, func(name string, argv []string, attr *os.ProcAttr) error {
		return nil
	})
	testutil.Set(t, &daemonSpawnTimeout, 50*time.Millisecond)
	_, err := Activate(io.Discard, &SpawnConfig{DbPath: "db", SockPath: "sock", RunDir: "."})
	if err == nil || !strings.Contains(err.Error(), "did not come up") {
		t.Errorf("got error %v, want timeout error", err)
	}
}

func TestActivate_FailsIfVersionMismatch(t *testing.T) {
	setup(t)
	version := -1
	startServerOpts(t, cli("sock", "db"), ServeOpts{Version: &version})
	_, err := Activate(io.Discard, &SpawnConfig{DbPath: "db", SockPath: "sock", RunDir: "."})
	if err == nil || !strings.Contains(err.Error(), "has API version -1") {
		t.Errorf("got error %v, want version mismatch", err)
	}
}

func TestActivate_FailsIfCannotStatSock(t *testing.T) {
	setup(t)
	// POSIX lstat(2) returns ENOTDIR instead of ENOENT if a path prefix is
	// not a directory.
	must.CreateEmpty("not-dir")
	_, err := Activate(io.Discard,
		&SpawnConfig{DbPath: "db", SockPath: "not-dir/sock", RunDir: "."})
	if err == nil {
		t.Errorf("got error nil, want non-nil")
	}
}

func TestActivate_FailsIfSockIsNotSocket(t *testing.T) {
	setup(t)
	must.CreateEmpty("sock")
	_, err := Activate(io.Discard, &SpawnConfig{DbPath: "db", SockPath: "sock", RunDir: "."})
	if err == nil {
		t.Errorf("got error nil, want non-nil")
	}
}

func TestSpawn_RequiresPaths(t *testing.T) {
	setupForActivate(t, func(string, []string, *os.ProcAttr) error {
		t.Error("process started")
		return nil
	})
	err := Spawn(&SpawnConfig{BinPath: "calcsh", SockPath: "sock", RunDir: "."})
	if err == nil || err.Error() != "DbPath is required for spawning daemon" {
		t.Errorf("got error %v", err)
	}
}

func setupForActivate(t *testing.T, f func(string, []string, *os.ProcAttr) error) {
	setup(t)
	testutil.Set(t, &startProcess, f)
	scaleDuration(t, &daemonSpawnTimeout)
}

func scaleDuration(t *testing.T, d *time.Duration) {
	testutil.Set(t, d, testutil.Scaled(*d))
}

func makeHangingUnixSocket(t *testing.T, path string) {
	t.Helper()

	l, err := net.Listen("unix", path)
	if err != nil {
		t.Fatal(err)
	}
	// We need to call l.Close() to make the socket hang, but that will
	// helpfully remove the socket file. Work around this by renaming the socket
	// file.
	err = os.Rename(path, path+".save")
	if err != nil {
		t.Fatal(err)
	}
	l.Close()
	err = os.Rename(path+".save", path)
	if err != nil {
		t.Fatal(err)
	}
}
