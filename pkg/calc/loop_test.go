package calc

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"src.calc.sh/pkg/testutil"
)

func TestLoop_RunsPostedEventsInOrder(t *testing.T) {
	var got []string

	lp := newLoop()
	for _, s := range []string{"foo", "bar", "lorem", "ipsum"} {
		s := s
		lp.Post(func() { got = append(got, s) })
	}
	lp.Post(func() { lp.Return(nil) })

	lp.Run()
	want := []string{"foo", "bar", "lorem", "ipsum"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("events ran as %v, want %v", got, want)
	}
}

func TestLoop_RunReturnsErrorPassedToReturn(t *testing.T) {
	errQuit := errors.New("quit")
	lp := newLoop()
	lp.Post(func() { lp.Return(errQuit) })
	if err := lp.Run(); err != errQuit {
		t.Errorf("Run -> %v, want %v", err, errQuit)
	}
}

func TestLoop_ReturnBeforeRun(t *testing.T) {
	lp := newLoop()
	lp.Return(nil)
	if err := lp.Run(); err != nil {
		t.Errorf("Run -> %v, want nil", err)
	}
}

func TestLoop_PublishesFinalStateOnReturn(t *testing.T) {
	var flags []bool
	lp := newLoop()
	lp.PublishCb(func(final bool) { flags = append(flags, final) })
	lp.Post(func() { lp.Return(nil) })
	lp.Run()

	if len(flags) < 2 {
		t.Fatalf("publish called %d times, want at least 2", len(flags))
	}
	if flags[0] {
		t.Errorf("first publish is final, want non-final")
	}
	if !flags[len(flags)-1] {
		t.Errorf("last publish is not final")
	}
}

func TestLoop_PublishRequestTriggersPublish(t *testing.T) {
	published := make(chan bool, 10)
	lp := newLoop()
	lp.PublishCb(func(final bool) { published <- final })
	go lp.Run()

	// Initial publish.
	testutil.Recv(t, published)
	lp.Publish()
	testutil.Recv(t, published)

	lp.Return(nil)
	<-lp.Done()
}

func TestLoop_PostAfterRunReturnsDoesNotBlock(t *testing.T) {
	lp := newLoop()
	lp.Return(nil)
	lp.Run()

	done := make(chan struct{})
	go func() {
		for i := 0; i < inputChSize*2; i++ {
			lp.Post(func() {})
		}
		close(done)
	}()
	select {
	case <-done:
	case <-testutil.After(time.Second):
		t.Errorf("Post blocked after Run returned")
	}
}
