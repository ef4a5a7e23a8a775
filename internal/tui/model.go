// Package tui is the tablet interface: a bubbletea program that walks the
// table through each hand one screen at a time, driving a phase.Controller.
package tui

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"

	"github.com/lox/pokerstyle/internal/cards"
	"github.com/lox/pokerstyle/internal/game"
	"github.com/lox/pokerstyle/internal/phase"
)

// Options configures a Model
type Options struct {
	// HandCountOptions are offered as targets on the hand-start screen.
	HandCountOptions []int
	// Updates delivers session snapshots written by other devices.
	Updates <-chan *game.Session
}

// resultMsg reports the outcome of a controller operation.
type resultMsg struct {
	op  string
	err error
}

// sessionMsg carries a snapshot from Updates.
type sessionMsg struct {
	session *game.Session
}

// Model is the tablet's bubbletea model
type Model struct {
	ctx     context.Context
	ctrl    *phase.Controller
	logger  *log.Logger
	options []int
	updates <-chan *game.Session

	input   textinput.Model
	results viewport.Model

	busy     string
	err      error
	notice   string
	quitting bool
	width    int
	height   int
}

// New creates the tablet model. Operations run with ctx.
func New(ctx context.Context, ctrl *phase.Controller, logger *log.Logger, opts Options) *Model {
	ti := textinput.New()
	ti.Focus()
	ti.CharLimit = 40
	ti.Width = 40
	ti.Prompt = "> "
	ti.PromptStyle = promptStyle

	return &Model{
		ctx:     ctx,
		ctrl:    ctrl,
		logger:  logger.WithPrefix("tui"),
		options: opts.HandCountOptions,
		updates: opts.Updates,
		input:   ti,
		results: viewport.New(80, 20),
	}
}

// Run starts the program in the alternate screen and blocks until it exits.
func Run(ctx context.Context, m *Model) error {
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}

// Init implements tea.Model
func (m *Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.exec("load", m.ctrl.Load), m.waitForUpdate())
}

// exec runs a controller operation off the update loop.
func (m *Model) exec(op string, fn func(context.Context) error) tea.Cmd {
	m.busy = op
	m.notice = ""
	ctx := m.ctx
	return func() tea.Msg {
		return resultMsg{op: op, err: fn(ctx)}
	}
}

func (m *Model) waitForUpdate() tea.Cmd {
	if m.updates == nil {
		return nil
	}
	updates, ctx := m.updates, m.ctx
	return func() tea.Msg {
		select {
		case s := <-updates:
			return sessionMsg{session: s}
		case <-ctx.Done():
			return nil
		}
	}
}

// Update implements tea.Model
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.results.Width = max(msg.Width-4, 20)
		m.results.Height = max(msg.Height-8, 5)
		return m, nil

	case resultMsg:
		return m, m.finish(msg)

	case sessionMsg:
		if m.ctrl.Refresh(msg.session) {
			m.logger.Debug("Session refreshed", "version", msg.session.Version)
		}
		return m, m.waitForUpdate()

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		case "enter":
			if m.busy != "" {
				return m, nil
			}
			return m, m.submit(strings.TrimSpace(m.input.Value()))
		case "tab":
			if m.ctrl.Phase().Step == game.StepHandStart {
				m.cycleTarget()
				return m, nil
			}
		case "up", "down", "pgup", "pgdown":
			if m.ctrl.Phase().Step == game.StepComplete {
				var cmd tea.Cmd
				m.results, cmd = m.results.Update(msg)
				return m, cmd
			}
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// finish records an operation's outcome. Reaching the target after a hand
// starts the diagnosis without waiting for the operator.
func (m *Model) finish(msg resultMsg) tea.Cmd {
	m.busy = ""
	m.err = msg.err
	if msg.err != nil {
		m.logger.Warn("Operation failed", "op", msg.op, "phase", m.ctrl.Phase(), "error", msg.err)
		return nil
	}

	m.input.SetValue("")
	switch p := m.ctrl.Phase(); {
	case p.Step == game.StepHandComplete && msg.op != "diagnose" && m.ctrl.DiagnosisDue():
		m.logger.Info("Target reached, diagnosing", "target", m.ctrl.Target())
		return m.exec("diagnose", m.ctrl.Diagnose)
	case p.Step == game.StepComplete:
		m.results.SetContent(m.renderResults())
		m.results.GotoTop()
	}
	return nil
}

// submit interprets the input line for the current screen.
func (m *Model) submit(line string) tea.Cmd {
	m.err = nil
	cmd := strings.ToLower(line)

	switch p := m.ctrl.Phase(); p.Step {
	case game.StepLoading:
		return m.exec("load", m.ctrl.Load)

	case game.StepHandStart:
		switch {
		case cmd == "d" || cmd == "diagnose":
			return m.diagnose()
		case cmd == "":
			return m.exec("deal", m.ctrl.Deal)
		}
		n, ok := parseTarget(cmd)
		if !ok {
			m.err = fmt.Errorf("enter a hand count, d to diagnose or nothing to deal")
			return nil
		}
		if err := m.ctrl.SetTarget(n); err != nil {
			m.err = err
			return nil
		}
		m.input.SetValue("")
		m.notice = fmt.Sprintf("Playing %d hands", n)
		return nil

	case game.StepPlayerIntro:
		return m.exec("ready", m.ctrl.Ready)

	case game.StepCardInput:
		if err := m.selectCards(line); err != nil {
			m.err = err
			return nil
		}
		return m.exec("cards", func(ctx context.Context) error {
			return m.ctrl.SubmitCards(ctx)
		})

	case game.StepActionSelect:
		t, amount, err := parseAction(line)
		if err != nil {
			m.err = err
			return nil
		}
		if !slices.Contains(m.ctrl.LegalActions(), t) {
			m.err = fmt.Errorf("%s is not allowed now", t)
			return nil
		}
		return m.exec("action", func(ctx context.Context) error {
			return m.ctrl.SubmitAction(ctx, t, amount)
		})

	case game.StepTurnComplete:
		return m.exec("continue", m.ctrl.Continue)

	case game.StepDealerTurn:
		if err := m.selectCards(line); err != nil {
			m.err = err
			return nil
		}
		return m.exec("board", func(ctx context.Context) error {
			return m.ctrl.DealBoard(ctx)
		})

	case game.StepHandComplete:
		if cmd == "d" || cmd == "diagnose" {
			return m.diagnose()
		}
		return m.exec("next", m.ctrl.NextHand)

	case game.StepComplete:
		m.quitting = true
		return tea.Quit
	}
	return nil
}

func (m *Model) diagnose() tea.Cmd {
	if !m.ctrl.CanDiagnose() {
		m.err = fmt.Errorf("play at least %d hands before diagnosing", m.ctrl.View().MinHands)
		return nil
	}
	return m.exec("diagnose", m.ctrl.Diagnose)
}

// selectCards replaces the controller's selection with the typed cards.
func (m *Model) selectCards(line string) error {
	typed, err := cards.ParseList(line)
	if err != nil {
		return err
	}
	if len(typed) == 0 {
		return fmt.Errorf("enter cards like \"As Kd\"")
	}
	m.ctrl.ClearSelection()
	for _, c := range typed {
		if err := m.ctrl.ToggleCard(c); err != nil {
			m.ctrl.ClearSelection()
			return err
		}
	}
	return nil
}

// cycleTarget steps through the configured hand counts that are still
// reachable.
func (m *Model) cycleTarget() {
	completed := m.ctrl.View().CompletedHands
	var reachable []int
	for _, n := range m.options {
		if n >= max(completed, 1) {
			reachable = append(reachable, n)
		}
	}
	if len(reachable) == 0 {
		return
	}
	next := reachable[0]
	for _, n := range reachable {
		if n > m.ctrl.Target() {
			next = n
			break
		}
	}
	if err := m.ctrl.SetTarget(next); err != nil {
		m.err = err
		return
	}
	m.notice = fmt.Sprintf("Playing %d hands", next)
}
