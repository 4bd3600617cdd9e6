//go:build unix

package daemon

import (
	"os"
	"syscall"
	"testing"
	"time"

	"src.calc.sh/pkg/prog/progtest"
	"src.calc.sh/pkg/testutil"
)

func TestProgram_QuitsOnSystemSignal_SIGINT(t *testing.T) {
	testProgram_QuitsOnSystemSignal(t, syscall.SIGINT)
}

func TestProgram_QuitsOnSystemSignal_SIGTERM(t *testing.T) {
	testProgram_QuitsOnSystemSignal(t, syscall.SIGTERM)
}

func testProgram_QuitsOnSystemSignal(t *testing.T, sig os.Signal) {
	t.Helper()
	setup(t)
	readyCh := make(chan struct{})
	exitCh := make(chan int, 1)
	go func() {
		exit, _, _ := progtest.Run(&Program{serveOpts: ServeOpts{Ready: readyCh}}, cli("sock", "db")...)
		exitCh <- exit
	}()
	testutil.Recv(t, readyCh)

	p, err := os.FindProcess(os.Getpid())
	if err != nil {
		t.Fatalf("FindProcess: %v", err)
	}
	p.Signal(sig)
	select {
	case exit := <-exitCh:
		if exit != 0 {
			t.Errorf("daemon exited with %v, want 0", exit)
		}
	case <-testutil.After(2 * time.Second):
		t.Fatal("daemon did not quit on signal")
	}
}
