package shell

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"src.calc.sh/pkg/calc"
	"src.calc.sh/pkg/calc/calcdefs"
)

type collaborators interface {
	calcdefs.Evaluator
	calcdefs.Persister
	calcdefs.EventStream
}

// Runs the expressions read from in, one per line, as if each were typed and
// committed. The result of each expression is written to out, and errors to
// errOut. It stops at the end of input or when the exit command is run, and
// returns 1 if any line failed, 0 otherwise.
func script(ctx context.Context, in io.Reader, out, errOut io.Writer, co collaborators) int {
	rec := &recordingPersister{Persister: co}
	changed := make(chan struct{}, 1)
	s := calc.NewSession(calc.SessionSpec{
		Evaluator: co, Persister: rec, Events: co,
		OnChange: func(calc.State) {
			select {
			case changed <- struct{}{}:
			default:
			}
		},
	})
	done := make(chan struct{})
	go func() {
		if err := s.Run(ctx); err != nil {
			logger.Println("session:", err)
		}
		close(done)
	}()
	defer func() {
		s.Close()
		<-done
	}()

	// Waits until pred is satisfied. It returns false if the session has
	// ended without satisfying it.
	wait := func(pred func(calc.State) bool) (calc.State, bool) {
		for {
			if st := s.CopyState(); pred(st) {
				return st, true
			}
			select {
			case <-changed:
			case <-done:
				st := s.CopyState()
				return st, pred(st)
			}
		}
	}

	exit := 0
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		attempts := s.CopyState().CommitAttempts
		s.Keystroke(line)
		s.Commit()
		st, ok := wait(func(st calc.State) bool { return st.CommitAttempts > attempts })
		if !ok {
			break
		}
		if st.CommitErr != nil {
			fmt.Fprintf(errOut, "%s: %v\n", line, st.CommitErr)
			exit = 1
		} else if op, ok := rec.take(); ok {
			fmt.Fprintln(out, calc.RenderResult(op.Result))
		}
		select {
		case <-done:
			// The exit command has been run.
			return exit
		default:
		}
	}
	if err := scanner.Err(); err != nil {
		fmt.Fprintln(errOut, "cannot read input:", err)
		return 2
	}
	return exit
}

// Remembers the last operation committed successfully.
type recordingPersister struct {
	calcdefs.Persister
	mutex sync.Mutex
	last  *calcdefs.Operation
}

func (r *recordingPersister) Commit(ctx context.Context, expr string) (calcdefs.Operation, error) {
	op, err := r.Persister.Commit(ctx, expr)
	if err == nil {
		r.mutex.Lock()
		r.last = &op
		r.mutex.Unlock()
	}
	return op, err
}

// Returns and forgets the last committed operation.
func (r *recordingPersister) take() (calcdefs.Operation, bool) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	if r.last == nil {
		return calcdefs.Operation{}, false
	}
	op := *r.last
	r.last = nil
	return op, true
}
