package engine

import "errors"

var ErrEventIgnored = errors.New("event ignored in current phase")
var ErrDecisionInFlight = errors.New("decision already in flight")
var ErrNothingPending = errors.New("no decision pending")
var ErrSelectionComplete = errors.New("selection already complete")
var ErrNoPendingPair = errors.New("no unresolved pair")
var ErrEmptyRound = errors.New("round has no entrants")
var ErrTooFewEntrants = errors.New("tournament needs at least two entrants")
var ErrUnsupportedCommand = errors.New("unsupported command")
var ErrInvalidTransition = errors.New("invalid phase transition")
