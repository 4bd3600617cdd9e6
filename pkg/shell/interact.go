package shell

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"src.calc.sh/pkg/calc"
	"src.calc.sh/pkg/calc/calcdefs"
)

// The part of calc.Session driven by the interface.
type session interface {
	Keystroke(raw string)
	Commit()
	ActivateResult(op calcdefs.Operation, count int)
}

// Messages sent to the model from outside.
type (
	stateMsg        calc.State
	sessionDoneMsg  struct{}
	disconnectedMsg struct{}
)

const defaultHeight = 24

type model struct {
	session session
	now     func() time.Time

	input textinput.Model
	state calc.State
	// Value of State.BufferRewrites last applied to input.
	rewrites int
	// Editing is blocked until rewrites reaches this, so that input typed
	// after a double activation is not overwritten by the inserted result.
	awaitRewrites int
	// Set when a commit has been requested and its outcome is not known yet.
	// Editing is blocked meanwhile.
	awaitingCommit bool
	commitsBefore  int

	// Index of the selected history entry; -1 when none is selected.
	selected int
	clicks   clickCounter

	mode         ColourMode
	theme        theme
	disconnected bool
	height       int
}

func newModel(s session, mode ColourMode) model {
	input := textinput.New()
	input.Prompt = "> "
	input.Placeholder = "expression"
	input.Focus()
	m := model{session: s, now: time.Now, input: input, selected: -1,
		mode: mode, height: defaultHeight}
	m.applyTheme()
	return m
}

func (m *model) applyTheme() {
	m.theme = themeFor(m.mode)
	m.input.PromptStyle = m.theme.prompt
	m.input.TextStyle = m.theme.expr
}

func (m model) Init() tea.Cmd {
	return textinput.Blink
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case stateMsg:
		m.state = calc.State(msg)
		if m.state.BufferRewrites != m.rewrites {
			m.rewrites = m.state.BufferRewrites
			m.input.SetValue(m.state.Buffer)
			m.input.CursorEnd()
		}
		if m.awaitingCommit && m.state.CommitAttempts > m.commitsBefore {
			m.awaitingCommit = false
		}
		if m.selected >= len(m.state.History) {
			m.selected = len(m.state.History) - 1
		}
		return m, nil
	case sessionDoneMsg:
		return m, tea.Quit
	case disconnectedMsg:
		m.disconnected = true
		return m, nil
	case tea.WindowSizeMsg:
		m.height = msg.Height
		m.input.Width = msg.Width - len(m.input.Prompt) - 1
		return m, nil
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyCtrlT:
			m.mode = m.mode.Toggle()
			m.applyTheme()
			return m, nil
		case tea.KeyUp:
			if n := len(m.state.History); n > 0 {
				if m.selected < 0 {
					m.selected = n - 1
				} else if m.selected > 0 {
					m.selected--
				}
			}
			return m, nil
		case tea.KeyDown:
			if m.selected >= 0 {
				m.selected++
				if m.selected >= len(m.state.History) {
					m.selected = -1
				}
			}
			return m, nil
		case tea.KeyTab:
			// The session ignores activations during a commit.
			if m.committing() || m.selected < 0 || m.selected >= len(m.state.History) {
				return m, nil
			}
			op := m.state.History[m.selected]
			count := m.clicks.hit(m.selected, m.now())
			if count == 2 {
				m.awaitRewrites = max(m.awaitRewrites, m.rewrites) + 1
			}
			m.session.ActivateResult(op, count)
			return m, nil
		case tea.KeyEnter:
			if !m.editBlocked() && m.input.Value() != "" {
				m.awaitingCommit = true
				m.commitsBefore = m.state.CommitAttempts
				m.selected = -1
				m.session.Commit()
			}
			return m, nil
		}
		if m.editBlocked() {
			return m, nil
		}
		old := m.input.Value()
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		if v := m.input.Value(); v != old {
			m.session.Keystroke(v)
		}
		return m, cmd
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m model) editBlocked() bool {
	return m.committing() || m.rewrites < m.awaitRewrites
}

func (m model) committing() bool {
	return m.awaitingCommit || m.state.Phase == calc.Committing
}

func (m model) View() string {
	var sb strings.Builder
	// Lines below the history: input, preview, status and help.
	historyLines := max(m.height-4, 1)
	history := m.state.History
	first := max(len(history)-historyLines, 0)
	if m.selected >= 0 && m.selected < first {
		first = m.selected
	}
	for i := first; i < len(history) && i < first+historyLines; i++ {
		op := history[i]
		line := m.theme.expr.Render(op.Expression) + " = " +
			m.theme.result.Render(calc.RenderResult(op.Result))
		if i == m.selected {
			line = m.theme.selected.Render(op.Expression + " = " + calc.RenderResult(op.Result))
		}
		sb.WriteString(line + "\n")
	}
	sb.WriteString(m.input.View() + "\n")
	sb.WriteString(m.theme.preview.Render(m.state.Preview) + "\n")
	sb.WriteString(m.statusLine() + "\n")
	sb.WriteString(m.theme.status.Render(
		"enter: commit  up/down: select  tab tab: insert result  ctrl+t: " +
			m.mode.Toggle().String() + " mode  esc: quit"))
	return sb.String()
}

func (m model) statusLine() string {
	switch {
	case m.state.CommitErr != nil:
		return m.theme.errText.Render("commit failed: " + m.state.CommitErr.Error())
	case m.disconnected:
		return m.theme.errText.Render("disconnected from daemon")
	case m.state.HistoryErr != nil:
		return m.theme.errText.Render("cannot load history: " + m.state.HistoryErr.Error())
	case !m.state.HistoryLoaded:
		return m.theme.status.Render("loading history...")
	case !m.state.Live:
		return m.theme.status.Render("offline: history is not updated")
	case m.state.Phase == calc.Committing:
		return m.theme.status.Render("committing...")
	}
	return ""
}

// Runs the interactive interface until the user quits or the exit command is
// run.
func interact(fds [3]*os.File, be backend, mode ColourMode) error {
	var p *tea.Program
	s := calc.NewSession(calc.SessionSpec{
		Evaluator: be, Persister: be, Events: be,
		OnChange: func(st calc.State) { p.Send(stateMsg(st)) },
	})
	p = tea.NewProgram(newModel(s, mode),
		tea.WithInput(fds[0]), tea.WithOutput(fds[1]), tea.WithAltScreen())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sessionDone := make(chan struct{})
	go func() {
		defer close(sessionDone)
		if err := s.Run(ctx); err != nil {
			logger.Println("session:", err)
		}
		p.Send(sessionDoneMsg{})
	}()
	go func() {
		select {
		case <-be.DisconnectNotify():
			p.Send(disconnectedMsg{})
		case <-ctx.Done():
		}
	}()

	_, err := p.Run()
	cancel()
	<-sessionDone
	if err != nil {
		return fmt.Errorf("terminal interface: %w", err)
	}
	return nil
}
