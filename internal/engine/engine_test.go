package engine

import (
	"errors"
	"math"
	"math/rand/v2"
	"slices"
	"testing"
)

func loadedSession(t *testing.T, items []Item) Session {
	t.Helper()
	events, s, err := Apply(NewSession(), Command{Type: CmdCatalogLoaded, Generation: 1, Items: items}, IdentityOrder{})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !ContainsEvent(events, EvtCatalogReady) {
		t.Fatalf("expected CatalogReady, got %v", events)
	}
	return s
}

func mustApply(t *testing.T, s Session, cmd Command, order Shuffler) ([]Event, Session) {
	t.Helper()
	events, next, err := Apply(s, cmd, order)
	if err != nil {
		t.Fatalf("%s: unexpected err: %v", cmd.Type, err)
	}
	return events, next
}

// decideAll walks the whole queue, accepting the items keep reports true for.
func decideAll(t *testing.T, s Session, keep func(Item) bool) Session {
	t.Helper()
	for s.Phase() == PhaseSelecting {
		sel, _ := s.Selection()
		cur, _ := sel.Current()
		choice := ChoicePass
		if keep(cur) {
			choice = ChoiceSmash
		}
		_, s = mustApply(t, s, Command{Type: CmdDecide, Choice: choice}, IdentityOrder{})
		_, s = mustApply(t, s, Command{Type: CmdSettle}, IdentityOrder{})
	}
	return s
}

func acceptIDs(ids ...string) func(Item) bool {
	return func(it Item) bool { return slices.Contains(ids, it.ID) }
}

func acceptAll(Item) bool { return true }

func TestIsValidTransition(t *testing.T) {
	cases := []struct {
		from Phase
		to   Phase
		want bool
	}{
		{PhaseLoading, PhaseSelecting, true},
		{PhaseLoading, PhaseError, true},
		{PhaseLoading, PhaseResults, false},
		{PhaseError, PhaseLoading, true},
		{PhaseError, PhaseSelecting, false},
		{PhaseSelecting, PhaseRoundComplete, true},
		{PhaseSelecting, PhaseBracketing, false},
		{PhaseRoundComplete, PhaseBracketing, true},
		{PhaseRoundComplete, PhaseResults, true},
		{PhaseRoundComplete, PhaseSelecting, true},
		{PhaseResults, PhaseBracketing, true},
		{PhaseResults, PhaseRoundComplete, false},
		{PhaseBracketing, PhaseBracketing, true},
		{PhaseBracketing, PhaseChampion, true},
		{PhaseBracketing, PhaseResults, true},
		{PhaseBracketing, PhaseSelecting, false},
		{PhaseChampion, PhaseBracketing, true},
		{PhaseChampion, PhaseSelecting, true},
		{PhaseChampion, PhaseResults, false},
	}

	for _, tc := range cases {
		t.Run(string(tc.from)+"->"+string(tc.to), func(t *testing.T) {
			if got := tc.from.CanTransitionTo(tc.to); got != tc.want {
				t.Fatalf("CanTransitionTo = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestCommandsIgnoredOutsideTheirPhase(t *testing.T) {
	loading := NewSession()
	selecting := loadedSession(t, makeItems(4))
	complete := decideAll(t, loadedSession(t, makeItems(4)), acceptAll)

	cases := []struct {
		name  string
		setup Session
		cmd   Command
	}{
		{"decide while loading", loading, Command{Type: CmdDecide, Choice: ChoiceSmash}},
		{"pick while selecting", selecting, Command{Type: CmdPick, Side: 0}},
		{"tournament while selecting", selecting, Command{Type: CmdStartTournament}},
		{"results before queue is done", selecting, Command{Type: CmdShowResults}},
		{"restart while selecting", selecting, Command{Type: CmdRestart}},
		{"redo without a champion", complete, Command{Type: CmdRedoTournament}},
		{"abort outside a bracket", complete, Command{Type: CmdAbortToResults}},
		{"reload without a failure", selecting, Command{Type: CmdReload}},
		{"decide after completion", complete, Command{Type: CmdDecide, Choice: ChoicePass}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			events, next, err := Apply(tc.setup, tc.cmd, IdentityOrder{})
			if !errors.Is(err, ErrEventIgnored) {
				t.Fatalf("expected ErrEventIgnored, got %v", err)
			}
			if len(events) != 0 {
				t.Fatalf("expected no events, got %v", events)
			}
			if next.Phase() != tc.setup.Phase() {
				t.Fatalf("phase moved from %s to %s", tc.setup.Phase(), next.Phase())
			}
		})
	}
}

func TestUnknownCommand(t *testing.T) {
	_, _, err := Apply(NewSession(), Command{Type: "Hover"}, IdentityOrder{})
	if !errors.Is(err, ErrUnsupportedCommand) {
		t.Fatalf("expected ErrUnsupportedCommand, got %v", err)
	}
}

func TestCatalogLoad(t *testing.T) {
	s := NewSession()
	if s.Phase() != PhaseLoading {
		t.Fatalf("new session phase = %s", s.Phase())
	}

	events, next, err := Apply(s, Command{Type: CmdCatalogLoaded, Generation: 2, Items: makeItems(12)}, IdentityOrder{})
	if !errors.Is(err, ErrEventIgnored) || len(events) != 0 {
		t.Fatalf("stale generation must be ignored, got %v %v", events, err)
	}

	events, next = mustApply(t, next, Command{Type: CmdCatalogLoaded, Generation: 1, Items: makeItems(12)}, IdentityOrder{})
	if next.Phase() != PhaseSelecting {
		t.Fatalf("phase = %s, want selecting", next.Phase())
	}
	if !ContainsEvent(events, EvtPhaseChanged) {
		t.Fatalf("expected PhaseChanged in %v", events)
	}
	sel, _ := next.Selection()
	if len(sel.Queue) != 12 || sel.Cursor != 0 {
		t.Fatalf("queue=%d cursor=%d", len(sel.Queue), sel.Cursor)
	}

	// a late duplicate result after the load settled changes nothing
	_, _, err = Apply(next, Command{Type: CmdCatalogFailed, Generation: 1, Failures: []string{"x"}}, IdentityOrder{})
	if !errors.Is(err, ErrEventIgnored) {
		t.Fatalf("expected ErrEventIgnored, got %v", err)
	}
}

func TestAllSourcesFailedThenReload(t *testing.T) {
	failures := []string{"jsDelivr: HTTP 503", "allorigins: too few ships", "corsproxy: context deadline exceeded"}
	events, s := mustApply(t, NewSession(), Command{Type: CmdCatalogFailed, Generation: 1, Failures: failures}, IdentityOrder{})
	if s.Phase() != PhaseError || !ContainsEvent(events, EvtCatalogFailed) {
		t.Fatalf("phase = %s events = %v", s.Phase(), events)
	}
	failed := s.State.(Failed)
	if !slices.Equal(failed.Failures, failures) {
		t.Fatalf("failures = %v, want %v", failed.Failures, failures)
	}

	failures[0] = "mutated"
	if s.State.(Failed).Failures[0] != "jsDelivr: HTTP 503" {
		t.Fatalf("failure list shares the caller's slice")
	}

	events, s = mustApply(t, s, Command{Type: CmdReload}, IdentityOrder{})
	st, ok := s.State.(Loading)
	if !ok || st.Generation != 2 {
		t.Fatalf("state after reload = %#v", s.State)
	}
	if !ContainsEvent(events, EvtLoadStarted) || events[0].Generation != 2 {
		t.Fatalf("events = %v", events)
	}

	if _, _, err := Apply(s, Command{Type: CmdCatalogLoaded, Generation: 1, Items: makeItems(10)}, IdentityOrder{}); !errors.Is(err, ErrEventIgnored) {
		t.Fatalf("result of the first attempt must be ignored, got %v", err)
	}
	_, s = mustApply(t, s, Command{Type: CmdCatalogLoaded, Generation: 2, Items: makeItems(10)}, IdentityOrder{})
	if s.Phase() != PhaseSelecting {
		t.Fatalf("phase = %s", s.Phase())
	}
}

func TestDecisionLock(t *testing.T) {
	s := loadedSession(t, makeItems(3))

	events, s := mustApply(t, s, Command{Type: CmdDecide, Choice: ChoiceSmash}, IdentityOrder{})
	if len(events) != 1 || events[0].Type != EvtDecisionPending || events[0].ItemID != "ship-1" {
		t.Fatalf("events = %v", events)
	}
	if !s.Pending() {
		t.Fatalf("expected the lock to be held")
	}

	if _, _, err := Apply(s, Command{Type: CmdDecide, Choice: ChoicePass}, IdentityOrder{}); !errors.Is(err, ErrDecisionInFlight) {
		t.Fatalf("expected ErrDecisionInFlight, got %v", err)
	}
	sel, _ := s.Selection()
	if sel.Cursor != 0 {
		t.Fatalf("cursor advanced before settle")
	}

	events, s = mustApply(t, s, Command{Type: CmdSettle}, IdentityOrder{})
	if len(events) != 1 || events[0].Type != EvtItemDecided || events[0].Choice != ChoiceSmash {
		t.Fatalf("events = %v", events)
	}
	if s.Pending() {
		t.Fatalf("lock still held after settle")
	}
	sel, _ = s.Selection()
	if sel.Cursor != 1 || len(sel.Accepted) != 1 || sel.Accepted[0].ID != "ship-1" {
		t.Fatalf("selection = %+v", sel)
	}

	if _, _, err := Apply(s, Command{Type: CmdSettle}, IdentityOrder{}); !errors.Is(err, ErrNothingPending) {
		t.Fatalf("second settle: expected ErrNothingPending, got %v", err)
	}
	if _, _, err := Apply(s, Command{Type: CmdDecide, Choice: "maybe"}, IdentityOrder{}); !errors.Is(err, ErrUnsupportedCommand) {
		t.Fatalf("bad choice: expected ErrUnsupportedCommand, got %v", err)
	}
}

func TestLastDecisionCompletesRound(t *testing.T) {
	s := loadedSession(t, makeItems(2))
	_, s = mustApply(t, s, Command{Type: CmdDecide, Choice: ChoicePass}, IdentityOrder{})
	_, s = mustApply(t, s, Command{Type: CmdSettle}, IdentityOrder{})
	_, s = mustApply(t, s, Command{Type: CmdDecide, Choice: ChoiceSmash}, IdentityOrder{})
	events, s := mustApply(t, s, Command{Type: CmdSettle}, IdentityOrder{})

	if s.Phase() != PhaseRoundComplete {
		t.Fatalf("phase = %s", s.Phase())
	}
	if !ContainsEvent(events, EvtSelectionComplete) || !ContainsEvent(events, EvtPhaseChanged) {
		t.Fatalf("events = %v", events)
	}
	sel, _ := s.Selection()
	if len(sel.Accepted)+len(sel.Rejected) != 2 {
		t.Fatalf("partition = %d + %d", len(sel.Accepted), len(sel.Rejected))
	}

	_, s = mustApply(t, s, Command{Type: CmdShowResults}, IdentityOrder{})
	if s.Phase() != PhaseResults {
		t.Fatalf("phase = %s", s.Phase())
	}
}

// Five items, {1,3,5} accepted: round one is one pair and one bye.
func TestScenarioThreeAccepted(t *testing.T) {
	s := decideAll(t, loadedSession(t, makeItems(5)), acceptIDs("ship-1", "ship-3", "ship-5"))
	sel, _ := s.Selection()
	if got := sortedIDs(sel.Rejected); !slices.Equal(got, []string{"ship-2", "ship-4"}) {
		t.Fatalf("rejected = %v", got)
	}

	events, s := mustApply(t, s, Command{Type: CmdStartTournament}, IdentityOrder{})
	if s.Phase() != PhaseBracketing || !ContainsEvent(events, EvtTournamentStarted) {
		t.Fatalf("phase = %s events = %v", s.Phase(), events)
	}
	tour, _ := s.Tournament()
	if len(tour.Round.Pairs) != 1 || tour.Round.Bye == nil {
		t.Fatalf("pairs=%d bye=%v", len(tour.Round.Pairs), tour.Round.Bye)
	}
}

// Ten items all accepted: four rounds of 5, 2, 1 and 1 pairs.
func TestScenarioTenAccepted(t *testing.T) {
	order := NewShuffler(rand.New(rand.NewPCG(42, 7)))
	s := decideAll(t, loadedSession(t, makeItems(10)), acceptAll)

	_, s = mustApply(t, s, Command{Type: CmdStartTournament}, order)
	tour, _ := s.Tournament()
	pairs := []int{len(tour.Round.Pairs)}

	for s.Phase() == PhaseBracketing {
		_, s = mustApply(t, s, Command{Type: CmdPick, Side: 1}, order)
		var events []Event
		events, s = mustApply(t, s, Command{Type: CmdSettle}, order)
		if ContainsEvent(events, EvtRoundStarted) {
			tour, _ = s.Tournament()
			pairs = append(pairs, len(tour.Round.Pairs))
		}
	}

	if s.Phase() != PhaseChampion {
		t.Fatalf("phase = %s", s.Phase())
	}
	if !slices.Equal(pairs, []int{5, 2, 1, 1}) {
		t.Fatalf("pairs per round = %v", pairs)
	}
	tour, _ = s.Tournament()
	if want := int(math.Ceil(math.Log2(10))); tour.RoundNumber != want {
		t.Fatalf("rounds = %d, want %d", tour.RoundNumber, want)
	}
	if !slices.ContainsFunc(tour.Seed, func(it Item) bool { return it.ID == tour.Champion.ID }) {
		t.Fatalf("champion %s not in seed", tour.Champion.ID)
	}
}

func TestTournamentGuard(t *testing.T) {
	cases := []struct {
		name    string
		accept  func(Item) bool
		results bool
	}{
		{name: "one accepted on round complete", accept: acceptIDs("ship-2")},
		{name: "one accepted on results", accept: acceptIDs("ship-2"), results: true},
		{name: "none accepted", accept: acceptIDs()},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := decideAll(t, loadedSession(t, makeItems(3)), tc.accept)
			if tc.results {
				_, s = mustApply(t, s, Command{Type: CmdShowResults}, IdentityOrder{})
			}
			before := s.Phase()

			events, next, err := Apply(s, Command{Type: CmdStartTournament}, IdentityOrder{})
			if err != nil {
				t.Fatalf("unexpected err: %v", err)
			}
			if len(events) != 0 {
				t.Fatalf("expected no events, got %v", events)
			}
			if next.Phase() != before {
				t.Fatalf("phase moved to %s", next.Phase())
			}
		})
	}
}

// Two accepted: one round, one pair, no bye, the picked side wins.
func TestScenarioTwoAccepted(t *testing.T) {
	for side := 0; side <= 1; side++ {
		s := decideAll(t, loadedSession(t, makeItems(4)), acceptIDs("ship-2", "ship-3"))
		_, s = mustApply(t, s, Command{Type: CmdStartTournament}, IdentityOrder{})
		tour, _ := s.Tournament()
		if len(tour.Round.Pairs) != 1 || tour.Round.Bye != nil {
			t.Fatalf("pairs=%d bye=%v", len(tour.Round.Pairs), tour.Round.Bye)
		}
		want := tour.Round.Pairs[0][side].ID

		events, s := mustApply(t, s, Command{Type: CmdPick, Side: side}, IdentityOrder{})
		if events[0].Type != EvtPickPending || events[0].ItemID != want {
			t.Fatalf("events = %v", events)
		}
		events, s = mustApply(t, s, Command{Type: CmdSettle}, IdentityOrder{})
		if !ContainsEvent(events, EvtChampionCrowned) || s.Phase() != PhaseChampion {
			t.Fatalf("phase = %s events = %v", s.Phase(), events)
		}
		tour, _ = s.Tournament()
		if tour.Champion.ID != want || tour.RoundNumber != 1 {
			t.Fatalf("champion = %s round = %d", tour.Champion.ID, tour.RoundNumber)
		}
	}
}

func TestPickLock(t *testing.T) {
	s := decideAll(t, loadedSession(t, makeItems(4)), acceptAll)
	_, s = mustApply(t, s, Command{Type: CmdStartTournament}, IdentityOrder{})

	_, s = mustApply(t, s, Command{Type: CmdPick, Side: 0}, IdentityOrder{})
	if _, _, err := Apply(s, Command{Type: CmdPick, Side: 1}, IdentityOrder{}); !errors.Is(err, ErrDecisionInFlight) {
		t.Fatalf("expected ErrDecisionInFlight, got %v", err)
	}
	if _, _, err := Apply(s, Command{Type: CmdPick, Side: 2}, IdentityOrder{}); !errors.Is(err, ErrUnsupportedCommand) {
		t.Fatalf("expected ErrUnsupportedCommand, got %v", err)
	}

	// aborting drops the held pick with the bracket
	_, s = mustApply(t, s, Command{Type: CmdAbortToResults}, IdentityOrder{})
	if s.Phase() != PhaseResults || s.Pending() {
		t.Fatalf("phase = %s pending = %v", s.Phase(), s.Pending())
	}
	if _, _, err := Apply(s, Command{Type: CmdSettle}, IdentityOrder{}); !errors.Is(err, ErrNothingPending) {
		t.Fatalf("stale settle: expected ErrNothingPending, got %v", err)
	}
	sel, _ := s.Selection()
	if len(sel.Accepted) != 4 {
		t.Fatalf("accepted = %d after abort", len(sel.Accepted))
	}

	_, s = mustApply(t, s, Command{Type: CmdStartTournament}, IdentityOrder{})
	if s.Phase() != PhaseBracketing {
		t.Fatalf("phase = %s", s.Phase())
	}
}

func crownChampion(t *testing.T, s Session, order Shuffler) Session {
	t.Helper()
	for s.Phase() == PhaseBracketing {
		_, s = mustApply(t, s, Command{Type: CmdPick, Side: 0}, order)
		_, s = mustApply(t, s, Command{Type: CmdSettle}, order)
	}
	return s
}

func TestRedoTournament(t *testing.T) {
	order := NewShuffler(rand.New(rand.NewPCG(3, 9)))
	s := decideAll(t, loadedSession(t, makeItems(7)), acceptIDs("ship-1", "ship-2", "ship-4", "ship-6", "ship-7"))
	_, s = mustApply(t, s, Command{Type: CmdStartTournament}, order)
	s = crownChampion(t, s, order)
	first, _ := s.Tournament()

	events, s := mustApply(t, s, Command{Type: CmdRedoTournament}, order)
	if s.Phase() != PhaseBracketing || !ContainsEvent(events, EvtTournamentStarted) {
		t.Fatalf("phase = %s events = %v", s.Phase(), events)
	}
	redo, _ := s.Tournament()
	if redo.Champion != nil || redo.RoundNumber != 1 {
		t.Fatalf("redo did not reset: champion=%v round=%d", redo.Champion, redo.RoundNumber)
	}
	if !slices.Equal(sortedIDs(redo.Seed), sortedIDs(first.Seed)) {
		t.Fatalf("seed = %v, want %v", sortedIDs(redo.Seed), sortedIDs(first.Seed))
	}
	if redo.Round.Size() != 5 {
		t.Fatalf("first round size = %d, want the full accepted set", redo.Round.Size())
	}
}

func TestRestartClearsRun(t *testing.T) {
	cases := []struct {
		name  string
		reach func(t *testing.T, s Session) Session
	}{
		{"from round complete", func(t *testing.T, s Session) Session { return s }},
		{"from results", func(t *testing.T, s Session) Session {
			_, s = mustApply(t, s, Command{Type: CmdShowResults}, IdentityOrder{})
			return s
		}},
		{"from champion", func(t *testing.T, s Session) Session {
			_, s = mustApply(t, s, Command{Type: CmdStartTournament}, IdentityOrder{})
			return crownChampion(t, s, IdentityOrder{})
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := decideAll(t, loadedSession(t, makeItems(6)), acceptIDs("ship-1", "ship-5", "ship-6"))
			s = tc.reach(t, s)

			events, next := mustApply(t, s, Command{Type: CmdRestart}, IdentityOrder{})
			if next.Phase() != PhaseSelecting || !ContainsEvent(events, EvtRestarted) {
				t.Fatalf("phase = %s events = %v", next.Phase(), events)
			}
			sel, _ := next.Selection()
			if len(sel.Accepted) != 0 || len(sel.Rejected) != 0 || sel.Cursor != 0 || len(sel.Queue) != 6 {
				t.Fatalf("selection not reset: %+v", sel)
			}
			if _, ok := next.Tournament(); ok {
				t.Fatalf("tournament survived restart")
			}
			if next.Filter != AllItems {
				t.Fatalf("filter = %+v", next.Filter)
			}
		})
	}
}

func fleet() []Item {
	return []Item{
		{ID: "1", Name: "Akagi", Faction: "Sakura Empire", Type: "Aircraft Carrier"},
		{ID: "2", Name: "Ayanami", Faction: "Sakura Empire", Type: "Destroyer"},
		{ID: "3", Name: "Enterprise", Faction: "Eagle Union", Type: "Aircraft Carrier"},
		{ID: "4", Name: "Laffey", Faction: "Eagle Union", Type: "Destroyer"},
		{ID: "5", Name: "Hood", Faction: "Royal Navy", Type: "Battlecruiser"},
	}
}

func TestSetFilter(t *testing.T) {
	s := loadedSession(t, fleet())
	_, s = mustApply(t, s, Command{Type: CmdDecide, Choice: ChoiceSmash}, IdentityOrder{})
	_, s = mustApply(t, s, Command{Type: CmdSettle}, IdentityOrder{})

	events, s := mustApply(t, s, Command{Type: CmdSetFilter, Filter: Filter{Faction: "Eagle Union"}}, IdentityOrder{})
	if !ContainsEvent(events, EvtFilterApplied) || s.Phase() != PhaseSelecting {
		t.Fatalf("phase = %s events = %v", s.Phase(), events)
	}
	if s.Filter != (Filter{Faction: "Eagle Union", Type: FilterAll}) {
		t.Fatalf("filter = %+v", s.Filter)
	}
	sel, _ := s.Selection()
	if got := itemIDs(sel.Queue); !slices.Equal(got, []string{"3", "4"}) {
		t.Fatalf("queue = %v", got)
	}
	if sel.Cursor != 0 || len(sel.Accepted) != 0 {
		t.Fatalf("progress not reset: %+v", sel)
	}

	_, s = mustApply(t, s, Command{Type: CmdSetFilter, Filter: Filter{Faction: "Eagle Union", Type: "Destroyer"}}, IdentityOrder{})
	sel, _ = s.Selection()
	if got := itemIDs(sel.Queue); !slices.Equal(got, []string{"4"}) {
		t.Fatalf("queue = %v", got)
	}

	events, s = mustApply(t, s, Command{Type: CmdSetFilter, Filter: Filter{Faction: "Royal Navy", Type: "Destroyer"}}, IdentityOrder{})
	if s.Phase() != PhaseRoundComplete || !ContainsEvent(events, EvtSelectionComplete) {
		t.Fatalf("empty filter: phase = %s events = %v", s.Phase(), events)
	}

	_, s = mustApply(t, s, Command{Type: CmdSetFilter, Filter: Filter{Faction: "Royal Navy", Type: "Submarine"}}, IdentityOrder{})
	if s.Phase() != PhaseRoundComplete {
		t.Fatalf("phase = %s", s.Phase())
	}

	_, s = mustApply(t, s, Command{Type: CmdSetFilter}, IdentityOrder{})
	sel, _ = s.Selection()
	if s.Phase() != PhaseSelecting || len(sel.Queue) != 5 || s.Filter != AllItems {
		t.Fatalf("phase = %s queue = %d filter = %+v", s.Phase(), len(sel.Queue), s.Filter)
	}

	_, s = mustApply(t, s, Command{Type: CmdSetFilter, Filter: Filter{Type: "Battlecruiser"}}, IdentityOrder{})
	s = decideAll(t, s, acceptAll)
	_, s = mustApply(t, s, Command{Type: CmdShowResults}, IdentityOrder{})
	if _, _, err := Apply(s, Command{Type: CmdSetFilter, Filter: AllItems}, IdentityOrder{}); !errors.Is(err, ErrEventIgnored) {
		t.Fatalf("filter on results: expected ErrEventIgnored, got %v", err)
	}
}

func TestImageFailed(t *testing.T) {
	s := loadedSession(t, fleet())

	events, flagged := mustApply(t, s, Command{Type: CmdImageFailed, ItemID: "3"}, IdentityOrder{})
	if len(events) != 1 || events[0].Type != EvtImageFlagged {
		t.Fatalf("events = %v", events)
	}
	if !flagged.BrokenImages["3"] {
		t.Fatalf("image not flagged")
	}
	if s.BrokenImages["3"] {
		t.Fatalf("flag leaked into the previous session value")
	}
	if flagged.Phase() != s.Phase() {
		t.Fatalf("phase changed on image failure")
	}

	events, again := mustApply(t, flagged, Command{Type: CmdImageFailed, ItemID: "3"}, IdentityOrder{})
	if len(events) != 0 || !again.BrokenImages["3"] {
		t.Fatalf("second report: events = %v", events)
	}

	// flags survive a restart
	again = decideAll(t, again, acceptAll)
	_, again = mustApply(t, again, Command{Type: CmdRestart}, IdentityOrder{})
	if !again.BrokenImages["3"] {
		t.Fatalf("flag lost on restart")
	}
}

func TestRefusedSettleReleasesLock(t *testing.T) {
	smash := ChoiceSmash
	s := NewSession()
	s.State = Selecting{Selection: Selection{
		Queue:    fleet()[:1],
		Cursor:   1,
		Accepted: fleet()[:1],
		Pending:  &smash,
	}}

	_, next, err := Apply(s, Command{Type: CmdSettle}, IdentityOrder{})
	if !errors.Is(err, ErrSelectionComplete) {
		t.Fatalf("expected ErrSelectionComplete, got %v", err)
	}
	if next.Pending() {
		t.Fatalf("lock still held after a refused settle")
	}
}
