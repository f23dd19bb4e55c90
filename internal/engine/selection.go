package engine

import "slices"

type Choice string

const (
	ChoiceSmash Choice = "smash"
	ChoicePass  Choice = "pass"
)

func (c Choice) Valid() bool {
	return c == ChoiceSmash || c == ChoicePass
}

// Selection is the smash-or-pass stage. Queue is fixed when the stage starts;
// Accepted and Rejected together always hold exactly Queue[:Cursor].
type Selection struct {
	Queue    []Item
	Cursor   int
	Accepted []Item
	Rejected []Item

	// Pending is the decision waiting out its settle delay. While it is set
	// no other decision is taken.
	Pending *Choice
}

// StartSelection begins a stage over a fresh ordering of items. An empty
// list is legal and is complete immediately.
func StartSelection(items []Item, order Shuffler) Selection {
	return Selection{
		Queue:    order.Shuffle(items),
		Accepted: []Item{},
		Rejected: []Item{},
	}
}

// RestrictTo starts a new stage over the catalog items matching keep.
// Decisions made so far are dropped.
func RestrictTo(catalog []Item, keep func(Item) bool, order Shuffler) Selection {
	filtered := make([]Item, 0, len(catalog))
	for _, it := range catalog {
		if keep(it) {
			filtered = append(filtered, it)
		}
	}
	return StartSelection(filtered, order)
}

func (s Selection) Current() (Item, bool) {
	if s.Cursor >= len(s.Queue) {
		return Item{}, false
	}
	return s.Queue[s.Cursor], true
}

func (s Selection) IsComplete() bool {
	return s.Cursor >= len(s.Queue)
}

// Progress is the share of the queue already decided, in percent.
func (s Selection) Progress() float64 {
	if len(s.Queue) == 0 {
		return 0
	}
	return min(float64(s.Cursor)/float64(len(s.Queue))*100, 100)
}

// Decide records choice for the current item right away. It is the
// lock-free form of Hold followed by Settle; sessions always use the pair.
func (s Selection) Decide(choice Choice) (Selection, error) {
	if s.Pending != nil {
		return s, ErrDecisionInFlight
	}
	return s.commit(choice)
}

// Hold takes the decision lock for choice without advancing. Settle commits
// it.
func (s Selection) Hold(choice Choice) (Selection, error) {
	if !choice.Valid() {
		return s, ErrUnsupportedCommand
	}
	if s.IsComplete() {
		return s, ErrSelectionComplete
	}
	if s.Pending != nil {
		return s, ErrDecisionInFlight
	}
	c := choice
	s.Pending = &c
	return s, nil
}

// Settle commits the held decision and releases the lock.
func (s Selection) Settle() (Selection, error) {
	if s.Pending == nil {
		return s, ErrNothingPending
	}
	choice := *s.Pending
	s.Pending = nil
	next, err := s.commit(choice)
	if err != nil {
		// the lock is released even when the commit is refused
		return s, err
	}
	return next, nil
}

func (s Selection) commit(choice Choice) (Selection, error) {
	cur, ok := s.Current()
	if !ok {
		return s, ErrSelectionComplete
	}
	switch choice {
	case ChoiceSmash:
		s.Accepted = append(slices.Clip(s.Accepted), cur)
	case ChoicePass:
		s.Rejected = append(slices.Clip(s.Rejected), cur)
	default:
		return s, ErrUnsupportedCommand
	}
	s.Cursor++
	return s, nil
}
