package engine

import (
	"fmt"
	"maps"
	"slices"
)

// Session is everything one player's run holds. State is the only place
// phase-specific data lives.
type Session struct {
	Catalog      []Item
	Filter       Filter
	BrokenImages map[string]bool
	State        PhaseState
}

func NewSession() Session {
	return Session{
		Filter:       AllItems,
		BrokenImages: map[string]bool{},
		State:        Loading{Generation: 1},
	}
}

func (s Session) Phase() Phase {
	if s.State == nil {
		return PhaseLoading
	}
	return s.State.Phase()
}

// Selection returns the smash-or-pass stage if the current phase carries
// one.
func (s Session) Selection() (Selection, bool) {
	switch st := s.State.(type) {
	case Selecting:
		return st.Selection, true
	case RoundComplete:
		return st.Selection, true
	case Results:
		return st.Selection, true
	case Bracketing:
		return st.Selection, true
	case Crowned:
		return st.Selection, true
	}
	return Selection{}, false
}

func (s Session) Tournament() (Tournament, bool) {
	switch st := s.State.(type) {
	case Bracketing:
		return st.Tournament, true
	case Crowned:
		return st.Tournament, true
	}
	return Tournament{}, false
}

// Pending reports whether a decision or pick is holding the settle lock.
func (s Session) Pending() bool {
	switch st := s.State.(type) {
	case Selecting:
		return st.Selection.Pending != nil
	case Bracketing:
		return st.Tournament.Round.Pending != nil
	}
	return false
}

type CommandType string

const (
	CmdCatalogLoaded   CommandType = "CatalogLoaded"
	CmdCatalogFailed   CommandType = "CatalogFailed"
	CmdReload          CommandType = "Reload"
	CmdDecide          CommandType = "Decide"
	CmdPick            CommandType = "Pick"
	CmdSettle          CommandType = "Settle"
	CmdStartTournament CommandType = "StartTournament"
	CmdShowResults     CommandType = "ShowResults"
	CmdRestart         CommandType = "Restart"
	CmdRedoTournament  CommandType = "RedoTournament"
	CmdAbortToResults  CommandType = "AbortToResults"
	CmdSetFilter       CommandType = "SetFilter"
	CmdImageFailed     CommandType = "ImageFailed"
)

/*
	CmdCatalogLoaded   -> EvtCatalogReady -> EvtPhaseChanged (loading -> selecting)
	CmdCatalogFailed   -> EvtCatalogFailed -> EvtPhaseChanged (loading -> error)
	CmdDecide          -> EvtDecisionPending; the caller waits the settle delay, then sends CmdSettle
	CmdSettle          -> EvtItemDecided [-> EvtSelectionComplete -> EvtPhaseChanged]
	CmdPick            -> EvtPickPending; same settle handshake as CmdDecide
	CmdSettle          -> EvtPairResolved [-> EvtRoundStarted | EvtChampionCrowned -> EvtPhaseChanged]
*/

type Command struct {
	Type       CommandType
	Choice     Choice
	Side       int
	Filter     Filter
	ItemID     string
	Items      []Item
	Failures   []string
	Generation int
}

type EventType string

const (
	EvtCatalogReady      EventType = "CatalogReady"
	EvtCatalogFailed     EventType = "CatalogFailed"
	EvtLoadStarted       EventType = "LoadStarted"
	EvtDecisionPending   EventType = "DecisionPending"
	EvtItemDecided       EventType = "ItemDecided"
	EvtSelectionComplete EventType = "SelectionComplete"
	EvtFilterApplied     EventType = "FilterApplied"
	EvtTournamentStarted EventType = "TournamentStarted"
	EvtPickPending       EventType = "PickPending"
	EvtPairResolved      EventType = "PairResolved"
	EvtRoundStarted      EventType = "RoundStarted"
	EvtChampionCrowned   EventType = "ChampionCrowned"
	EvtRestarted         EventType = "Restarted"
	EvtImageFlagged      EventType = "ImageFlagged"
	EvtPhaseChanged      EventType = "PhaseChanged"
)

type Event struct {
	Type        EventType
	From        Phase
	To          Phase
	ItemID      string
	Choice      Choice
	Side        int
	RoundNumber int
	Generation  int
}

// Apply runs one command against s. Commands that the current phase does not
// accept return ErrEventIgnored and leave s untouched. order supplies every
// shuffle the command needs.
func Apply(s Session, cmd Command, order Shuffler) ([]Event, Session, error) {
	switch cmd.Type {
	case CmdCatalogLoaded:
		st, ok := s.State.(Loading)
		if !ok || st.Generation != cmd.Generation {
			return nil, s, ErrEventIgnored
		}
		s.Catalog = slices.Clone(cmd.Items)
		s.Filter = AllItems
		events := []Event{{Type: EvtCatalogReady, Generation: cmd.Generation}}
		return enterSelection(s, StartSelection(s.Catalog, order), events)

	case CmdCatalogFailed:
		st, ok := s.State.(Loading)
		if !ok || st.Generation != cmd.Generation {
			return nil, s, ErrEventIgnored
		}
		events := []Event{{Type: EvtCatalogFailed, Generation: cmd.Generation}}
		return transition(s, Failed{Generation: cmd.Generation, Failures: slices.Clone(cmd.Failures)}, events)

	case CmdReload:
		st, ok := s.State.(Failed)
		if !ok {
			return nil, s, ErrEventIgnored
		}
		gen := st.Generation + 1
		return transition(s, Loading{Generation: gen}, []Event{{Type: EvtLoadStarted, Generation: gen}})

	case CmdDecide:
		st, ok := s.State.(Selecting)
		if !ok {
			return nil, s, ErrEventIgnored
		}
		cur, _ := st.Selection.Current()
		sel, err := st.Selection.Hold(cmd.Choice)
		if err != nil {
			return nil, s, err
		}
		s.State = Selecting{Selection: sel}
		return []Event{{Type: EvtDecisionPending, ItemID: cur.ID, Choice: cmd.Choice}}, s, nil

	case CmdPick:
		st, ok := s.State.(Bracketing)
		if !ok {
			return nil, s, ErrEventIgnored
		}
		t, err := st.Tournament.Hold(cmd.Side)
		if err != nil {
			return nil, s, err
		}
		pair, _ := t.Round.Current()
		s.State = Bracketing{Selection: st.Selection, Tournament: t}
		return []Event{{Type: EvtPickPending, ItemID: pair[cmd.Side].ID, Side: cmd.Side, RoundNumber: t.RoundNumber}}, s, nil

	case CmdSettle:
		return settle(s, order)

	case CmdStartTournament:
		var sel Selection
		switch st := s.State.(type) {
		case RoundComplete:
			sel = st.Selection
		case Results:
			sel = st.Selection
		default:
			return nil, s, ErrEventIgnored
		}
		if len(sel.Accepted) < 2 {
			// not enough entrants: the action is simply unavailable
			return nil, s, nil
		}
		return startTournament(s, sel, sel.Accepted, order)

	case CmdShowResults:
		switch st := s.State.(type) {
		case Selecting:
			if !st.Selection.IsComplete() {
				return nil, s, ErrEventIgnored
			}
			return transition(s, Results{Selection: st.Selection}, nil)
		case RoundComplete:
			return transition(s, Results{Selection: st.Selection}, nil)
		}
		return nil, s, ErrEventIgnored

	case CmdRestart:
		switch s.State.(type) {
		case RoundComplete, Results, Crowned:
		default:
			return nil, s, ErrEventIgnored
		}
		s.Filter = AllItems
		return enterSelection(s, StartSelection(s.Catalog, order), []Event{{Type: EvtRestarted}})

	case CmdRedoTournament:
		st, ok := s.State.(Crowned)
		if !ok {
			return nil, s, ErrEventIgnored
		}
		return startTournament(s, st.Selection, st.Tournament.Seed, order)

	case CmdAbortToResults:
		st, ok := s.State.(Bracketing)
		if !ok {
			return nil, s, ErrEventIgnored
		}
		return transition(s, Results{Selection: st.Selection}, nil)

	case CmdSetFilter:
		switch s.State.(type) {
		case Selecting, RoundComplete:
		default:
			return nil, s, ErrEventIgnored
		}
		s.Filter = cmd.Filter.normalized()
		sel := RestrictTo(s.Catalog, s.Filter.Match, order)
		return enterSelection(s, sel, []Event{{Type: EvtFilterApplied}})

	case CmdImageFailed:
		if cmd.ItemID == "" || s.BrokenImages[cmd.ItemID] {
			return nil, s, nil
		}
		broken := maps.Clone(s.BrokenImages)
		if broken == nil {
			broken = map[string]bool{}
		}
		broken[cmd.ItemID] = true
		s.BrokenImages = broken
		return []Event{{Type: EvtImageFlagged, ItemID: cmd.ItemID}}, s, nil

	default:
		return nil, s, ErrUnsupportedCommand
	}
}

func settle(s Session, order Shuffler) ([]Event, Session, error) {
	switch st := s.State.(type) {
	case Selecting:
		choice := st.Selection.Pending
		cur, _ := st.Selection.Current()
		sel, err := st.Selection.Settle()
		if err != nil {
			if choice != nil {
				// keep the released lock
				s.State = Selecting{Selection: sel}
			}
			return nil, s, err
		}
		events := []Event{{Type: EvtItemDecided, ItemID: cur.ID, Choice: *choice}}
		if !sel.IsComplete() {
			s.State = Selecting{Selection: sel}
			return events, s, nil
		}
		events = append(events, Event{Type: EvtSelectionComplete})
		return transition(s, RoundComplete{Selection: sel}, events)

	case Bracketing:
		side := st.Tournament.Round.Pending
		pair, _ := st.Tournament.Round.Current()
		t, err := st.Tournament.Settle(order)
		if err != nil {
			if side != nil {
				s.State = Bracketing{Selection: st.Selection, Tournament: t}
			}
			return nil, s, err
		}
		events := []Event{{Type: EvtPairResolved, ItemID: pair[*side].ID, Side: *side, RoundNumber: st.Tournament.RoundNumber}}
		if t.Done() {
			events = append(events, Event{Type: EvtChampionCrowned, ItemID: t.Champion.ID, RoundNumber: t.RoundNumber})
			return transition(s, Crowned{Selection: st.Selection, Tournament: t}, events)
		}
		if t.RoundNumber != st.Tournament.RoundNumber {
			events = append(events, Event{Type: EvtRoundStarted, RoundNumber: t.RoundNumber})
			return transition(s, Bracketing{Selection: st.Selection, Tournament: t}, events)
		}
		s.State = Bracketing{Selection: st.Selection, Tournament: t}
		return events, s, nil
	}
	return nil, s, ErrNothingPending
}

func startTournament(s Session, sel Selection, seed []Item, order Shuffler) ([]Event, Session, error) {
	t, err := StartTournament(seed, order)
	if err != nil {
		return nil, s, err
	}
	events := []Event{{Type: EvtTournamentStarted, RoundNumber: t.RoundNumber}}
	return transition(s, Bracketing{Selection: sel, Tournament: t}, events)
}

// enterSelection starts sel, going straight on to RoundComplete when there
// is nothing to decide.
func enterSelection(s Session, sel Selection, events []Event) ([]Event, Session, error) {
	if sel.IsComplete() {
		return transition(s, RoundComplete{Selection: sel}, append(events, Event{Type: EvtSelectionComplete}))
	}
	return transition(s, Selecting{Selection: sel}, events)
}

func transition(s Session, next PhaseState, events []Event) ([]Event, Session, error) {
	from, to := s.Phase(), next.Phase()
	if !from.CanTransitionTo(to) {
		return nil, s, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	s.State = next
	if from != to {
		events = append(events, Event{Type: EvtPhaseChanged, From: from, To: to})
	}
	return events, s, nil
}

// ContainsEvent reports whether events has one of type t.
func ContainsEvent(events []Event, t EventType) bool {
	for _, e := range events {
		if e.Type == t {
			return true
		}
	}
	return false
}
