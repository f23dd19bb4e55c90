package types

import (
	"slices"

	"github.com/DoyleJ11/fleet-bracket/internal/engine"
	"github.com/DoyleJ11/fleet-bracket/internal/style"
	pub "github.com/DoyleJ11/fleet-bracket/pkg/types"
)

// ClientMessage is one command from a websocket client. Which fields matter
// depends on Type.
type ClientMessage struct {
	Type     string `json:"type"`
	Choice   string `json:"choice,omitempty"`  // Decide: "smash" | "pass"
	Index    *int   `json:"index,omitempty"`   // Pick: 0 | 1
	Faction  string `json:"faction,omitempty"` // SetFilter
	ShipType string `json:"ship_type,omitempty"`
	ID       string `json:"id,omitempty"` // ImageFailed
}

type ServerMessage struct {
	Type  string             `json:"type"` // "StateSnapshot" | "Error"
	State *pub.StateSnapshot `json:"state,omitempty"`
	Error string             `json:"error,omitempty"`
}

// NewSnapshot renders s for clients.
func NewSnapshot(code string, version int, s engine.Session, events []engine.Event) pub.StateSnapshot {
	f := s.Filter
	snap := pub.StateSnapshot{
		Version: version,
		Code:    code,
		Phase:   s.Phase().String(),
		Filter:  pub.Filter{Faction: f.Faction, Type: f.Type},
		Facets: pub.Facets{
			Factions: slices.Insert(style.Factions(), 0, engine.FilterAll),
			Types:    engine.Types(s.Catalog),
		},
	}
	for _, ev := range events {
		snap.Events = append(snap.Events, string(ev.Type))
	}

	if st, ok := s.State.(engine.Failed); ok {
		snap.Failures = slices.Clone(st.Failures)
	}

	ship := func(it engine.Item) pub.Ship {
		out := pub.Ship{ID: it.ID, Name: it.Name, Faction: it.Faction, Type: it.Type, Rarity: it.Rarity, Thumbnail: it.Thumbnail}
		if s.BrokenImages[it.ID] {
			out.Thumbnail = ""
		}
		return out
	}
	ships := func(items []engine.Item) []pub.Ship {
		out := make([]pub.Ship, len(items))
		for i, it := range items {
			out[i] = ship(it)
		}
		return out
	}

	if sel, ok := s.Selection(); ok {
		view := &pub.Selection{
			Position: sel.Cursor,
			Total:    len(sel.Queue),
			Progress: sel.Progress(),
			Accepted: ships(sel.Accepted),
			Rejected: ships(sel.Rejected),
		}
		if cur, ok := sel.Current(); ok {
			c := ship(cur)
			view.Current = &c
		}
		if sel.Pending != nil {
			view.Pending = string(*sel.Pending)
		}
		snap.Selection = view
	}

	if t, ok := s.Tournament(); ok {
		r := t.Round
		view := &pub.Bracket{
			Round:     t.RoundNumber,
			PairIndex: r.PairIndex,
			PairCount: len(r.Pairs),
			Entrants:  r.Size(),
			Winners:   ships(r.Winners),
			SeedSize:  len(t.Seed),
		}
		if pair, ok := r.Current(); ok && !t.Done() {
			view.Current = []pub.Ship{ship(pair[0]), ship(pair[1])}
		}
		if r.Bye != nil {
			b := ship(*r.Bye)
			view.Bye = &b
		}
		if r.Pending != nil {
			side := *r.Pending
			view.Pending = &side
		}
		if t.Champion != nil {
			c := ship(*t.Champion)
			view.Champion = &c
		}
		snap.Bracket = view
	}
	return snap
}
