// Package types is the JSON shape of a session as clients see it.
package types

// Ship is one catalog entry. Thumbnail is empty when there is no image or
// the client reported it broken; show the faction flag instead.
type Ship struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Faction   string `json:"faction"`
	Type      string `json:"type"`
	Rarity    string `json:"rarity"`
	Thumbnail string `json:"thumbnail,omitempty"`
}

type Filter struct {
	Faction string `json:"faction"`
	Type    string `json:"type"`
}

// Facets are the values the filter bar offers, each list starting with "All".
type Facets struct {
	Factions []string `json:"factions"`
	Types    []string `json:"types"`
}

type Selection struct {
	Current  *Ship   `json:"current,omitempty"`
	Position int     `json:"position"`
	Total    int     `json:"total"`
	Progress float64 `json:"progress"`
	Pending  string  `json:"pending,omitempty"` // "smash" | "pass" while the choice settles
	Accepted []Ship  `json:"accepted"`
	Rejected []Ship  `json:"rejected"`
}

type Bracket struct {
	Round     int    `json:"round"`
	PairIndex int    `json:"pair_index"`
	PairCount int    `json:"pair_count"`
	Entrants  int    `json:"entrants"`
	Current   []Ship `json:"current,omitempty"` // the two ships of the pair being decided
	Bye       *Ship  `json:"bye,omitempty"`
	Winners   []Ship `json:"winners"`
	Pending   *int   `json:"pending,omitempty"` // side picked, while it settles
	Champion  *Ship  `json:"champion,omitempty"`
	SeedSize  int    `json:"seed_size"`
}

// StateSnapshot:
//
//	phase: "loading" | "error" | "selecting" | "round_complete" | "results" | "bracketing" | "champion"
//	failures: one "<source>: <cause>" line per source, only in "error"
//	selection: present from "selecting" on
//	bracket: present in "bracketing" and "champion"
type StateSnapshot struct {
	Version   int        `json:"version"`
	Code      string     `json:"code,omitempty"`
	Phase     string     `json:"phase"`
	Failures  []string   `json:"failures,omitempty"`
	Filter    Filter     `json:"filter"`
	Facets    Facets     `json:"facets"`
	Selection *Selection `json:"selection,omitempty"`
	Bracket   *Bracket   `json:"bracket,omitempty"`
	Events    []string   `json:"events,omitempty"`
}
