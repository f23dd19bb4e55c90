package engine

type Phase string

const (
	PhaseLoading       Phase = "loading"
	PhaseError         Phase = "error"
	PhaseSelecting     Phase = "selecting"
	PhaseRoundComplete Phase = "round_complete"
	PhaseResults       Phase = "results"
	PhaseBracketing    Phase = "bracketing"
	PhaseChampion      Phase = "champion"
)

func (p Phase) String() string {
	return string(p)
}

// validTransitions is the closed set of phase changes. Self-transitions are
// a new round (Bracketing) or a filter change (Selecting, RoundComplete).
var validTransitions = map[Phase][]Phase{
	PhaseLoading:       {PhaseSelecting, PhaseError},
	PhaseError:         {PhaseLoading},
	PhaseSelecting:     {PhaseRoundComplete, PhaseResults, PhaseSelecting},
	PhaseRoundComplete: {PhaseBracketing, PhaseResults, PhaseSelecting, PhaseRoundComplete},
	PhaseResults:       {PhaseBracketing, PhaseSelecting},
	PhaseBracketing:    {PhaseChampion, PhaseBracketing, PhaseResults},
	PhaseChampion:      {PhaseBracketing, PhaseSelecting},
}

// CanTransitionTo reports whether the table allows p -> target.
func (p Phase) CanTransitionTo(target Phase) bool {
	for _, allowed := range validTransitions[p] {
		if allowed == target {
			return true
		}
	}
	return false
}

// PhaseState is the data that exists only while its phase is active. The
// set of implementations is closed.
type PhaseState interface {
	Phase() Phase
	isPhaseState()
}

// Loading waits for catalog attempt Generation to finish.
type Loading struct {
	Generation int
}

// Failed holds one "<source>: <cause>" line per attempted source, in the
// order they were tried.
type Failed struct {
	Generation int
	Failures   []string
}

type Selecting struct {
	Selection Selection
}

// RoundComplete and Results both carry the finished stage; they differ only
// in which screen is shown.
type RoundComplete struct {
	Selection Selection
}

type Results struct {
	Selection Selection
}

// Bracketing keeps the finished stage so an abort can fall back to Results.
type Bracketing struct {
	Selection  Selection
	Tournament Tournament
}

type Crowned struct {
	Selection  Selection
	Tournament Tournament
}

func (Loading) Phase() Phase       { return PhaseLoading }
func (Failed) Phase() Phase        { return PhaseError }
func (Selecting) Phase() Phase     { return PhaseSelecting }
func (RoundComplete) Phase() Phase { return PhaseRoundComplete }
func (Results) Phase() Phase       { return PhaseResults }
func (Bracketing) Phase() Phase    { return PhaseBracketing }
func (Crowned) Phase() Phase       { return PhaseChampion }

func (Loading) isPhaseState()       {}
func (Failed) isPhaseState()        {}
func (Selecting) isPhaseState()     {}
func (RoundComplete) isPhaseState() {}
func (Results) isPhaseState()       {}
func (Bracketing) isPhaseState()    {}
func (Crowned) isPhaseState()       {}
