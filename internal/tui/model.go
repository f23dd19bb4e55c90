// Package tui is a terminal front end for one local session.
package tui

import (
	"context"
	"slices"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/DoyleJ11/fleet-bracket/internal/engine"
	"github.com/DoyleJ11/fleet-bracket/internal/lobby"
	"github.com/DoyleJ11/fleet-bracket/internal/style"
)

// Session is the part of *lobby.Lobby the terminal needs.
type Session interface {
	Send(ctx context.Context, m lobby.Msg) error
}

type resultTab int

const (
	tabSmashed resultTab = iota
	tabPassed
)

type snapshotMsg lobby.Snapshot

type closedMsg struct{}

type Model struct {
	session Session
	outbox  chan lobby.Snapshot
	keys    keyMap

	snap  lobby.Snapshot
	tab   resultTab
	width int
	err   error
}

// New joins session as a client. The returned model receives every snapshot
// the session broadcasts.
func New(session Session) (Model, error) {
	m := Model{
		session: session,
		outbox:  make(chan lobby.Snapshot, 16),
		keys:    defaultKeys(),
		width:   80,
	}
	if err := session.Send(context.Background(), lobby.Join{ClientID: "terminal", Outbox: m.outbox}); err != nil {
		return Model{}, err
	}
	return m, nil
}

func (m Model) Init() tea.Cmd {
	return waitForSnapshot(m.outbox)
}

func waitForSnapshot(ch <-chan lobby.Snapshot) tea.Cmd {
	return func() tea.Msg {
		snap, ok := <-ch
		if !ok {
			return closedMsg{}
		}
		return snapshotMsg(snap)
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case snapshotMsg:
		m.snap = lobby.Snapshot(msg)
		if engine.ContainsEvent(m.snap.Events, engine.EvtRestarted) {
			m.tab = tabSmashed
		}
		return m, waitForSnapshot(m.outbox)

	case closedMsg:
		return m, tea.Quit

	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case tea.KeyMsg:
		if key.Matches(msg, m.keys.Quit) {
			m.send(lobby.Shutdown{})
			return m, tea.Quit
		}
		if key.Matches(msg, m.keys.Tab) {
			m.tab = 1 - m.tab
			return m, nil
		}
		if cmd, ok := m.commandFor(msg); ok {
			m.send(lobby.FromClient{Cmd: cmd})
		}
		return m, nil
	}
	return m, nil
}

func (m *Model) send(msg lobby.Msg) {
	if err := m.session.Send(context.Background(), msg); err != nil {
		m.err = err
	}
}

// commandFor maps a key to the command it means in the current phase.
// Keys with no meaning in the phase map to nothing.
func (m Model) commandFor(msg tea.KeyMsg) (engine.Command, bool) {
	phase := m.snap.Session.Phase()
	switch {
	case key.Matches(msg, m.keys.Pass) && phase == engine.PhaseSelecting:
		return engine.Command{Type: engine.CmdDecide, Choice: engine.ChoicePass}, true
	case key.Matches(msg, m.keys.Smash) && phase == engine.PhaseSelecting:
		return engine.Command{Type: engine.CmdDecide, Choice: engine.ChoiceSmash}, true
	case key.Matches(msg, m.keys.PickLeft) && phase == engine.PhaseBracketing:
		return engine.Command{Type: engine.CmdPick, Side: 0}, true
	case key.Matches(msg, m.keys.PickRight) && phase == engine.PhaseBracketing:
		return engine.Command{Type: engine.CmdPick, Side: 1}, true
	case key.Matches(msg, m.keys.Tournament):
		return engine.Command{Type: engine.CmdStartTournament}, true
	case key.Matches(msg, m.keys.Results):
		return engine.Command{Type: engine.CmdShowResults}, true
	case key.Matches(msg, m.keys.Restart):
		return engine.Command{Type: engine.CmdRestart}, true
	case key.Matches(msg, m.keys.Redo):
		return engine.Command{Type: engine.CmdRedoTournament}, true
	case key.Matches(msg, m.keys.Abort):
		return engine.Command{Type: engine.CmdAbortToResults}, true
	case key.Matches(msg, m.keys.Reload):
		return engine.Command{Type: engine.CmdReload}, true
	case key.Matches(msg, m.keys.Faction):
		f := m.snap.Session.Filter
		f.Faction = next(slices.Insert(style.Factions(), 0, engine.FilterAll), f.Faction)
		return engine.Command{Type: engine.CmdSetFilter, Filter: f}, true
	case key.Matches(msg, m.keys.Type):
		f := m.snap.Session.Filter
		f.Type = next(engine.Types(m.snap.Session.Catalog), f.Type)
		return engine.Command{Type: engine.CmdSetFilter, Filter: f}, true
	}
	return engine.Command{}, false
}

// next returns the value after cur in vals, wrapping around. An unknown cur
// starts over at the first value.
func next(vals []string, cur string) string {
	i := slices.Index(vals, cur)
	return vals[(i+1)%len(vals)]
}
