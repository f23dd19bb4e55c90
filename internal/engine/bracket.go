package engine

import "slices"

// Round is one pass over the surviving entrants. Bye is set iff the round
// started with an odd number of entrants.
type Round struct {
	Pairs     [][2]Item
	Bye       *Item
	PairIndex int
	Winners   []Item

	// Pending is the side (0 or 1) picked for the current pair, waiting out
	// its settle delay.
	Pending *int
}

// BuildRound pairs items in the order given: (0,1), (2,3), ... An odd tail
// becomes the bye. It does not shuffle.
func BuildRound(items []Item) Round {
	r := Round{
		Pairs:   make([][2]Item, 0, len(items)/2),
		Winners: []Item{},
	}
	for i := 0; i+1 < len(items); i += 2 {
		r.Pairs = append(r.Pairs, [2]Item{items[i], items[i+1]})
	}
	if len(items)%2 == 1 {
		bye := items[len(items)-1]
		r.Bye = &bye
	}
	return r
}

// Size is the number of entrants the round started with.
func (r Round) Size() int {
	n := len(r.Pairs) * 2
	if r.Bye != nil {
		n++
	}
	return n
}

func (r Round) Current() ([2]Item, bool) {
	if r.PairIndex >= len(r.Pairs) {
		return [2]Item{}, false
	}
	return r.Pairs[r.PairIndex], true
}

func (r Round) closed() bool {
	return r.PairIndex >= len(r.Pairs)
}

func (r Round) survivors() []Item {
	out := slices.Clone(r.Winners)
	if r.Bye != nil {
		out = append(out, *r.Bye)
	}
	return out
}

// Tournament is a single-elimination run over Seed.
type Tournament struct {
	Seed        []Item
	RoundNumber int
	Round       Round
	Champion    *Item
}

// StartTournament seeds round one with a fresh ordering of seed. Fewer than
// two entrants is refused with ErrTooFewEntrants.
func StartTournament(seed []Item, order Shuffler) (Tournament, error) {
	if len(seed) < 2 {
		return Tournament{}, ErrTooFewEntrants
	}
	return Tournament{
		Seed:        slices.Clone(seed),
		RoundNumber: 1,
		Round:       BuildRound(order.Shuffle(seed)),
	}, nil
}

func (t Tournament) Done() bool {
	return t.Champion != nil
}

// ResolvePair advances the bracket with side picked for the current pair.
// It is the lock-free form of Hold followed by Settle.
func (t Tournament) ResolvePair(side int, order Shuffler) (Tournament, error) {
	if t.Round.Pending != nil {
		return t, ErrDecisionInFlight
	}
	return t.resolve(side, order)
}

// Hold takes the pick lock for side without advancing.
func (t Tournament) Hold(side int) (Tournament, error) {
	if side != 0 && side != 1 {
		return t, ErrUnsupportedCommand
	}
	if t.Done() || t.Round.closed() {
		return t, ErrNoPendingPair
	}
	if t.Round.Pending != nil {
		return t, ErrDecisionInFlight
	}
	s := side
	t.Round.Pending = &s
	return t, nil
}

// Settle commits the held pick and releases the lock.
func (t Tournament) Settle(order Shuffler) (Tournament, error) {
	if t.Round.Pending == nil {
		return t, ErrNothingPending
	}
	side := *t.Round.Pending
	t.Round.Pending = nil
	next, err := t.resolve(side, order)
	if err != nil {
		return t, err
	}
	return next, nil
}

func (t Tournament) resolve(side int, order Shuffler) (Tournament, error) {
	if side != 0 && side != 1 {
		return t, ErrUnsupportedCommand
	}
	pair, ok := t.Round.Current()
	if !ok || t.Done() {
		return t, ErrNoPendingPair
	}

	r := t.Round
	r.Winners = append(slices.Clip(r.Winners), pair[side])
	r.PairIndex++
	t.Round = r
	if !r.closed() {
		return t, nil
	}

	survivors := r.survivors()
	switch len(survivors) {
	case 0:
		return t, ErrEmptyRound
	case 1:
		champ := survivors[0]
		t.Champion = &champ
		return t, nil
	}
	t.RoundNumber++
	t.Round = BuildRound(order.Shuffle(survivors))
	return t, nil
}
