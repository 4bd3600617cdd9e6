// Package calc implements the core of the calculator shell: the session state
// machine that turns keystrokes into live previews, commits expressions and
// mirrors the remote history.
//
// A Session is driven by a serial event loop. Its collaborators are called on
// separate goroutines and their results are handed back to the loop, so all
// state changes happen one at a time, in the order they are observed.
package calc

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"src.calc.sh/pkg/calc/calcdefs"
	"src.calc.sh/pkg/calc/histutil"
	"src.calc.sh/pkg/logutil"
)

var logger = logutil.GetLogger("[calc] ")

// Phase is the phase of the input/commit state machine.
type Phase int

// Possible values of Phase.
const (
	// The buffer is empty.
	Idle Phase = iota
	// The buffer is not empty.
	Typing
	// A commit is in flight.
	Committing
)

var phaseNames = [...]string{Idle: "idle", Typing: "typing", Committing: "committing"}

func (p Phase) String() string {
	if 0 <= p && int(p) < len(phaseNames) {
		return phaseNames[p]
	}
	return fmt.Sprintf("Phase(%d)", int(p))
}

// State is a snapshot of the state of a Session.
type State struct {
	Phase Phase
	// Raw text typed by the user.
	Buffer string
	// Rendered result or error of the latest evaluated buffer.
	Preview string

	// Mirrored history, in commit order.
	History []calcdefs.Operation
	// Whether the history has been fetched. A false value with a nil
	// HistoryErr means the fetch is still in flight.
	HistoryLoaded bool
	// The error fetching the history, if any.
	HistoryErr error
	// Whether history events are being received.
	Live bool

	// The error of the last commit attempt, if it failed.
	CommitErr error
	// Number of commit attempts that have finished, successfully or not.
	CommitAttempts int
	// Number of times the session has rewritten the buffer on its own, by
	// clearing it after a commit or inserting a result. Frontends that keep
	// their own copy of the buffer reload it when this changes.
	BufferRewrites int
}

// SessionSpec specifies the collaborators and callbacks of a Session.
type SessionSpec struct {
	Evaluator calcdefs.Evaluator
	Persister calcdefs.Persister
	Events    calcdefs.EventStream
	// Called from the loop with a copy of the state whenever it may have
	// changed. It must not block for long.
	OnChange func(State)
}

// ErrAlreadyRunning is returned by Session.Run when the session is already
// running.
var ErrAlreadyRunning = errors.New("session is already running")

// Session is the input/commit state machine.
//
// The methods Keystroke, Commit, ActivateResult and Close may be called from
// any goroutine; they are queued and handled in order on the loop. Calls made
// before Run are handled once Run starts.
type Session struct {
	onChange func(State)

	loopMutex sync.Mutex
	loop      *loop
	running   bool

	stateMutex sync.RWMutex
	state      State

	// Fields below are only accessed on the loop.
	ctx       context.Context
	eval      *liveEval
	history   *history
	persister calcdefs.Persister
	commitSeq uint64
}

// NewSession creates a new Session.
func NewSession(spec SessionSpec) *Session {
	s := &Session{onChange: spec.OnChange, loop: newLoop(), persister: spec.Persister}
	if s.onChange == nil {
		s.onChange = func(State) {}
	}
	s.eval = &liveEval{
		evaluator:  spec.Evaluator,
		post:       s.post,
		setPreview: func(p string) { s.mutate(func(st *State) { st.Preview = p }) },
	}
	s.history = &history{
		persister: spec.Persister,
		events:    spec.Events,
		post:      s.post,
		changed:   s.syncHistory,
		mirror:    histutil.NewMirror(),
	}
	return s
}

// Run activates the session and runs its loop, until ctx is done, Close is
// called or the exit command is committed. The history subscription is
// released before Run returns.
func (s *Session) Run(ctx context.Context) error {
	s.loopMutex.Lock()
	if s.running {
		s.loopMutex.Unlock()
		return ErrAlreadyRunning
	}
	s.running = true
	lp := s.loop
	s.loopMutex.Unlock()

	defer func() {
		s.loopMutex.Lock()
		defer s.loopMutex.Unlock()
		s.loop = newLoop()
		s.running = false
	}()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-ctx.Done():
			lp.Return(nil)
		case <-lp.Done():
		}
	}()

	lp.PublishCb(func(bool) { s.onChange(s.CopyState()) })
	// This goroutine becomes the loop when lp.Run is called, so it is safe to
	// start the activation here.
	s.start(ctx)
	defer func() {
		s.history.deactivate()
		s.syncHistory()
		// The loop has stopped publishing.
		s.onChange(s.CopyState())
	}()
	return lp.Run()
}

// Close stops the loop if the session is running.
func (s *Session) Close() {
	s.currentLoop().Return(nil)
}

// CopyState returns a copy of the current state. It may be called from any
// goroutine.
func (s *Session) CopyState() State {
	s.stateMutex.RLock()
	defer s.stateMutex.RUnlock()
	st := s.state
	st.History = append([]calcdefs.Operation(nil), s.state.History...)
	return st
}

// Keystroke replaces the buffer with the raw input and evaluates it.
func (s *Session) Keystroke(raw string) {
	s.post(func() { s.keystroke(raw) })
}

// Commit commits the buffer. It does nothing if the buffer is empty or a
// commit is already in flight.
func (s *Session) Commit() {
	s.post(s.commit)
}

// ActivateResult handles an activation gesture on a history entry. A double
// activation (count == 2) appends the result of the operation to the buffer;
// other counts, including single activations, do nothing.
func (s *Session) ActivateResult(op calcdefs.Operation, count int) {
	s.post(func() { s.activateResult(op, count) })
}

func (s *Session) currentLoop() *loop {
	s.loopMutex.Lock()
	defer s.loopMutex.Unlock()
	return s.loop
}

func (s *Session) post(ev event) {
	s.currentLoop().Post(ev)
}

func (s *Session) mutate(f func(*State)) {
	s.stateMutex.Lock()
	defer s.stateMutex.Unlock()
	f(&s.state)
}

// Handlers. These are all called on the loop.

func (s *Session) start(ctx context.Context) {
	s.ctx = ctx
	if s.state.Phase == Committing {
		// The response to the commit of the previous run was lost. If the
		// commit did succeed, the operation comes back with the history.
		s.commitSeq++
		s.mutate(func(st *State) { st.Phase = Typing })
	}
	s.history.activate(ctx)
	s.syncHistory()
	s.eval.changed(ctx, Normalize(s.state.Buffer))
}

func (s *Session) keystroke(raw string) {
	if s.state.Phase == Committing {
		logger.Printf("ignoring input %q during commit", raw)
		return
	}
	s.mutate(func(st *State) {
		st.Buffer = raw
		if raw == "" {
			st.Phase = Idle
		} else {
			st.Phase = Typing
		}
	})
	s.eval.changed(s.ctx, Normalize(raw))
}

func (s *Session) commit() {
	if s.state.Buffer == "" || s.state.Phase == Committing {
		return
	}
	expr := Normalize(s.state.Buffer)
	s.mutate(func(st *State) {
		st.Phase = Committing
		st.CommitErr = nil
	})
	s.commitSeq++
	seq, ctx := s.commitSeq, s.ctx
	go func() {
		op, err := s.persister.Commit(ctx, expr)
		s.post(func() { s.committed(seq, expr, op, err) })
	}()
}

func (s *Session) committed(seq uint64, expr string, op calcdefs.Operation, err error) {
	if seq != s.commitSeq || s.state.Phase != Committing {
		logger.Printf("dropping stale commit response for %q", expr)
		return
	}
	var cmd *calcdefs.CommandRan
	switch {
	case err == nil:
		s.history.appendLocal(op)
		s.resetInput()
	case errors.As(err, &cmd):
		s.resetInput()
		if cmd.Name == calcdefs.CmdExit {
			s.currentLoop().Return(nil)
		}
	default:
		logger.Printf("commit of %q failed: %v", expr, err)
		s.mutate(func(st *State) {
			st.Phase = Typing
			st.CommitErr = err
		})
	}
	s.mutate(func(st *State) { st.CommitAttempts++ })
}

func (s *Session) resetInput() {
	s.mutate(func(st *State) {
		st.Phase = Idle
		st.Buffer = ""
		st.BufferRewrites++
	})
	// Clears the preview and drops in-flight evaluations.
	s.eval.changed(s.ctx, "")
}

func (s *Session) activateResult(op calcdefs.Operation, count int) {
	if count != 2 || s.state.Phase == Committing {
		return
	}
	s.keystroke(s.state.Buffer + RenderResult(op.Result))
	s.mutate(func(st *State) { st.BufferRewrites++ })
}

func (s *Session) syncHistory() {
	h := s.history
	s.mutate(func(st *State) {
		st.History = h.mirror.Snapshot()
		st.HistoryLoaded = h.mirror.Seeded()
		st.HistoryErr = h.err
		st.Live = h.live
	})
}
