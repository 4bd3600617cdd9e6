package shell

import (
	"fmt"
	"os"
	"testing"
	"time"

	"src.calc.sh/pkg/daemon"
	"src.calc.sh/pkg/must"
	. "src.calc.sh/pkg/prog/progtest"
	"src.calc.sh/pkg/testutil"
)

func TestProgram_Batch(t *testing.T) {
	setup(t)
	startDaemon(t, daemon.ServeOpts{})

	Test(t, Program{},
		ThatCalcsh("-batch", "-sock", "sock", "-db", "db", "-rc", "rc.yaml").
			WithStdin("x = 6*7\nx+1\n").
			WritesStdout("42\n43\n"),
	)
}

func TestProgram_ExitCommandStopsInput(t *testing.T) {
	setup(t)
	startDaemon(t, daemon.ServeOpts{})

	Test(t, Program{},
		ThatCalcsh("-sock", "sock", "-db", "db", "-rc", "rc.yaml").
			WithStdin("1+1\nexit\n2+2\n").
			WritesStdout("2\n"),
	)
}

func TestProgram_Remote(t *testing.T) {
	setup(t)
	l := must.Listen("tcp", "127.0.0.1:0")
	startDaemon(t, daemon.ServeOpts{HTTPListener: l})
	must.WriteFile("rc.yaml", fmt.Sprintf("remote: ws://%s/rpc\n", l.Addr()))

	Test(t, Program{},
		ThatCalcsh("-rc", "rc.yaml").
			WithStdin("2^8\n").
			WritesStdout("256\n"),
	)
}

func TestProgram_NoDaemonAndSpawningDisabled(t *testing.T) {
	setup(t)
	must.WriteFile("rc.yaml", "spawn-daemon: false\n")

	Test(t, Program{},
		ThatCalcsh("-sock", "sock", "-db", "db", "-rc", "rc.yaml").
			WithStdin("1+1\n").
			ExitsWith(1).
			WritesStderrContaining("evaluator unavailable"),
	)
}

func TestProgram_BadRC(t *testing.T) {
	setup(t)
	must.WriteFile("rc.yaml", "colour-mode: sepia\nspawn-daemon: false\n")

	Test(t, Program{},
		ThatCalcsh("-sock", "sock", "-db", "db", "-rc", "rc.yaml").
			WritesStderrContaining(`invalid colour mode "sepia"`),
	)
}

func TestProgram_BadUsage(t *testing.T) {
	Test(t, Program{},
		ThatCalcsh("1+1").
			ExitsWith(2).
			WritesStderrContaining("arguments are not allowed"),
	)
}

func setup(t *testing.T) {
	dir := testutil.InTempDir(t)
	t.Setenv("XDG_RUNTIME_DIR", dir)
	t.Setenv("XDG_DATA_HOME", dir)
}

// Runs a daemon on "sock" and "db" in the working directory until the test
// finishes.
func startDaemon(t *testing.T, opts daemon.ServeOpts) {
	t.Helper()
	readyCh := make(chan struct{})
	sigCh := make(chan os.Signal)
	opts.Ready, opts.Signals = readyCh, sigCh
	exitCh := make(chan int, 1)
	go func() { exitCh <- daemon.Serve("sock", "db", opts) }()
	select {
	case <-readyCh:
	case <-testutil.After(2 * time.Second):
		t.Fatal("timed out waiting for daemon to start")
	}
	t.Cleanup(func() {
		close(sigCh)
		select {
		case <-exitCh:
		case <-testutil.After(2 * time.Second):
			t.Error("timed out waiting for daemon to quit")
		}
	})
}
