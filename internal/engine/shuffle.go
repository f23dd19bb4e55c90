package engine

import "math/rand/v2"

// Shuffler produces a permutation of items without touching the input.
type Shuffler interface {
	Shuffle(items []Item) []Item
}

// RandomOrder is a uniform Fisher-Yates shuffler. The zero value draws from
// the global source and is safe for concurrent use; one built with
// NewShuffler is not.
type RandomOrder struct {
	rng *rand.Rand
}

func NewShuffler(rng *rand.Rand) RandomOrder {
	return RandomOrder{rng: rng}
}

func (o RandomOrder) Shuffle(items []Item) []Item {
	out := make([]Item, len(items))
	copy(out, items)
	for i := len(out) - 1; i > 0; i-- {
		j := o.intN(i + 1)
		out[i], out[j] = out[j], out[i]
	}
	return out
}

func (o RandomOrder) intN(n int) int {
	if o.rng == nil {
		return rand.IntN(n)
	}
	return o.rng.IntN(n)
}

// IdentityOrder keeps items in the order given. Tests use it to make
// pairings predictable.
type IdentityOrder struct{}

func (IdentityOrder) Shuffle(items []Item) []Item {
	out := make([]Item, len(items))
	copy(out, items)
	return out
}
