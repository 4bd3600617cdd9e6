package shell

import (
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/go-cmp/cmp"
	"src.calc.sh/pkg/calc"
	"src.calc.sh/pkg/calc/calcdefs"
)

type activation struct {
	Op    calcdefs.Operation
	Count int
}

type fakeSession struct {
	keystrokes  []string
	commits     int
	activations []activation
}

func (s *fakeSession) Keystroke(raw string) { s.keystrokes = append(s.keystrokes, raw) }
func (s *fakeSession) Commit()              { s.commits++ }

func (s *fakeSession) ActivateResult(op calcdefs.Operation, count int) {
	s.activations = append(s.activations, activation{op, count})
}

var (
	opA = calcdefs.Operation{Expression: "1+1", Result: 2, Seq: 1}
	opB = calcdefs.Operation{Expression: "6*7", Result: 42, Seq: 2}
)

func setupModel() (model, *fakeSession) {
	s := &fakeSession{}
	return newModel(s, Dark), s
}

func update(m model, msgs ...tea.Msg) model {
	for _, msg := range msgs {
		next, _ := m.Update(msg)
		m = next.(model)
	}
	return m
}

func typeText(s string) tea.Msg { return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)} }

var (
	keyEnter = tea.KeyMsg{Type: tea.KeyEnter}
	keyTab   = tea.KeyMsg{Type: tea.KeyTab}
	keyUp    = tea.KeyMsg{Type: tea.KeyUp}
	keyDown  = tea.KeyMsg{Type: tea.KeyDown}
)

func TestModel_TypingSendsKeystrokes(t *testing.T) {
	m, s := setupModel()
	m = update(m, typeText("1+1"), typeText("0"))
	if diff := cmp.Diff([]string{"1+1", "1+10"}, s.keystrokes); diff != "" {
		t.Errorf("keystrokes (-want +got):\n%s", diff)
	}
}

func TestModel_CommitBlocksEditingUntilFinished(t *testing.T) {
	m, s := setupModel()
	m = update(m, typeText("2+2"), keyEnter)
	if s.commits != 1 {
		t.Fatalf("got %v commits, want 1", s.commits)
	}
	m = update(m, typeText("9"), keyEnter)
	if len(s.keystrokes) != 1 || s.commits != 1 {
		t.Errorf("input during commit was not blocked: keystrokes %q, commits %v", s.keystrokes, s.commits)
	}

	// The session reports the finished commit and the cleared buffer.
	m = update(m, stateMsg(calc.State{
		Phase: calc.Idle, CommitAttempts: 1, BufferRewrites: 1,
		History: []calcdefs.Operation{{Expression: "2+2", Result: 4, Seq: 1}}}))
	if v := m.input.Value(); v != "" {
		t.Errorf("input not reset after commit: %q", v)
	}
	update(m, typeText("3"))
	if got := s.keystrokes[len(s.keystrokes)-1]; got != "3" {
		t.Errorf("input after commit gave keystroke %q, want %q", got, "3")
	}
}

func TestModel_EmptyInputIsNotCommitted(t *testing.T) {
	m, s := setupModel()
	update(m, keyEnter)
	if s.commits != 0 {
		t.Errorf("got %v commits, want 0", s.commits)
	}
}

func TestModel_BufferRewriteReloadsInput(t *testing.T) {
	m, _ := setupModel()
	m = update(m, typeText("1+"), stateMsg(calc.State{Buffer: "1+42", Phase: calc.Typing, BufferRewrites: 1}))
	if v := m.input.Value(); v != "1+42" {
		t.Errorf("input is %q, want %q", v, "1+42")
	}
	// States without a new rewrite don't touch the input.
	m = update(m, typeText("0"), stateMsg(calc.State{Buffer: "1+42", Phase: calc.Typing, BufferRewrites: 1}))
	if v := m.input.Value(); v != "1+420" {
		t.Errorf("input is %q, want %q", v, "1+420")
	}
}

func TestModel_DoubleActivationBlocksEditingUntilInserted(t *testing.T) {
	m, s := setupModel()
	m.now = func() time.Time { return time.Unix(100, 0) }
	m = update(m,
		stateMsg(calc.State{History: []calcdefs.Operation{opA, opB}, HistoryLoaded: true, Live: true}),
		typeText("1+"), keyUp, keyTab, keyTab)
	if diff := cmp.Diff([]activation{{opB, 1}, {opB, 2}}, s.activations); diff != "" {
		t.Fatalf("activations (-want +got):\n%s", diff)
	}

	// Typed before the session has inserted the result.
	m = update(m, typeText("x"), keyEnter)
	if diff := cmp.Diff([]string{"1+"}, s.keystrokes); diff != "" || s.commits != 0 {
		t.Errorf("input before the insertion was not blocked: keystrokes (-want +got):\n%s, commits %v", diff, s.commits)
	}

	m = update(m, stateMsg(calc.State{
		Buffer: "1+42", Phase: calc.Typing, BufferRewrites: 1,
		History: []calcdefs.Operation{opA, opB}, HistoryLoaded: true, Live: true}))
	if v := m.input.Value(); v != "1+42" {
		t.Errorf("input is %q, want %q", v, "1+42")
	}
	update(m, typeText("0"))
	if got := s.keystrokes[len(s.keystrokes)-1]; got != "1+420" {
		t.Errorf("input after the insertion gave keystroke %q, want %q", got, "1+420")
	}
}

func TestModel_ActivationIgnoredDuringCommit(t *testing.T) {
	m, s := setupModel()
	m = update(m,
		stateMsg(calc.State{History: []calcdefs.Operation{opA}, HistoryLoaded: true, Live: true}),
		typeText("2"), keyEnter, keyUp, keyTab, keyTab)
	if len(s.activations) != 0 {
		t.Errorf("got activations %v during commit, want none", s.activations)
	}
}

func TestModel_SelectAndActivateHistory(t *testing.T) {
	m, s := setupModel()
	now := time.Unix(100, 0)
	m.now = func() time.Time { return now }
	m = update(m, stateMsg(calc.State{History: []calcdefs.Operation{opA, opB}, HistoryLoaded: true, Live: true}))

	// Nothing selected yet.
	m = update(m, keyTab)
	m = update(m, keyUp, keyTab)
	now = now.Add(100 * time.Millisecond)
	m = update(m, keyTab)
	now = now.Add(time.Second)
	m = update(m, keyUp, keyTab)
	want := []activation{{opB, 1}, {opB, 2}, {opA, 1}}
	if diff := cmp.Diff(want, s.activations); diff != "" {
		t.Errorf("activations (-want +got):\n%s", diff)
	}

	m = update(m, keyUp)
	if m.selected != 0 {
		t.Errorf("selection moved past the first entry: %v", m.selected)
	}
	m = update(m, keyDown, keyDown)
	if m.selected != -1 {
		t.Errorf("selection is %v after moving past the last entry, want -1", m.selected)
	}
}

func TestModel_ToggleColourMode(t *testing.T) {
	m, _ := setupModel()
	m = update(m, tea.KeyMsg{Type: tea.KeyCtrlT})
	if m.mode != Light {
		t.Errorf("mode is %v after toggling, want light", m.mode)
	}
	m = update(m, tea.KeyMsg{Type: tea.KeyCtrlT})
	if m.mode != Dark {
		t.Errorf("mode is %v after toggling twice, want dark", m.mode)
	}
}

func TestModel_Quit(t *testing.T) {
	m, _ := setupModel()
	for _, msg := range []tea.Msg{tea.KeyMsg{Type: tea.KeyEsc}, tea.KeyMsg{Type: tea.KeyCtrlC}, sessionDoneMsg{}} {
		_, cmd := m.Update(msg)
		if cmd == nil {
			t.Errorf("%v: no command", msg)
			continue
		}
		if _, ok := cmd().(tea.QuitMsg); !ok {
			t.Errorf("%v: command does not quit", msg)
		}
	}
}

func TestModel_View(t *testing.T) {
	m, _ := setupModel()
	m = update(m, stateMsg(calc.State{
		History:       []calcdefs.Operation{opA, opB},
		HistoryLoaded: true, Live: true,
		Preview: "12345",
	}))
	view := m.View()
	for _, want := range []string{"1+1", "6*7", "42", "12345"} {
		if !strings.Contains(view, want) {
			t.Errorf("view doesn't contain %q:\n%s", want, view)
		}
	}

	for _, test := range []struct {
		name   string
		state  calc.State
		status string
	}{
		{"loading", calc.State{}, "loading history..."},
		{"not live", calc.State{HistoryLoaded: true}, "offline"},
		{"history error", calc.State{HistoryErr: errors.New("no db")}, "cannot load history: no db"},
		{"commit error", calc.State{HistoryLoaded: true, Live: true, CommitErr: errors.New("boom")}, "commit failed: boom"},
	} {
		m := update(m, stateMsg(test.state))
		if view := m.View(); !strings.Contains(view, test.status) {
			t.Errorf("%s: view doesn't contain %q:\n%s", test.name, test.status, view)
		}
	}

	m = update(m, stateMsg(calc.State{HistoryLoaded: true, Live: true}), disconnectedMsg{})
	if view := m.View(); !strings.Contains(view, "disconnected from daemon") {
		t.Errorf("view doesn't show disconnection:\n%s", view)
	}
}
