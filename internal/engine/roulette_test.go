package engine

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"pubgame-service/internal/domain"
)

func rouletteContent() domain.RoundContent {
	return domain.RoundContent{
		Type:          domain.ModeRoulette,
		Question:      "Where does the ball land?",
		Options:       []string{"Red", "Black", "Green"},
		CorrectAnswer: "Green",
	}
}

func TestRouletteOpensVotingImmediately(t *testing.T) {
	clock := clockwork.NewFakeClock()
	rec := &recorder{}
	m := newTestMode(t, domain.ModeRoulette, rouletteContent(), clock, rec.callbacks())
	startActive(t, m, clock)

	m.HandleAnswer("Alice", 2, 500)
	m.HandleAnswer("Bob", 0, 700)
	waitFor(t, func() bool { return rec.outcomeCount() == 2 }, "votes recorded")

	rec.mu.Lock()
	alice, bob := rec.outcomes[0], rec.outcomes[1]
	rec.mu.Unlock()
	if !alice.Correct || alice.Points != 1000 || alice.Choice != "Green" {
		t.Fatalf("unexpected winning bet outcome: %+v", alice)
	}
	if bob.Correct || bob.Points != 0 || bob.Choice != "Red" {
		t.Fatalf("a losing bet must score zero: %+v", bob)
	}

	snap := m.Project()
	if snap.Display["voteCount"] != 2 {
		t.Fatalf("expected 2 votes, got %v", snap.Display["voteCount"])
	}
	if snap.Display["correctAnswer"] != "Green" {
		t.Fatal("the display script needs the target segment up front")
	}
}

func TestRouletteScriptedReveal(t *testing.T) {
	clock := clockwork.NewFakeClock()
	rec := &recorder{}
	m := newTestMode(t, domain.ModeRoulette, rouletteContent(), clock, rec.callbacks())
	startActive(t, m, clock)

	m.HandleAnswer("Alice", 2, 500)
	m.HandleAnswer("Bob", 0, 700)
	m.HandleAnswer("Carol", 2, 900)
	waitFor(t, func() bool { return rec.outcomeCount() == 3 }, "votes recorded")

	// run out the voting window
	tickSeconds(t, m, clock, m.DurationSeconds(), 0)
	waitFor(t, func() bool { return m.Phase() == PhaseRevealed }, "voting closed")

	m.HandleAnswer("Dave", 1, 100)
	time.Sleep(20 * time.Millisecond)
	if rec.outcomeCount() != 3 {
		t.Fatal("votes after the window must be dropped")
	}

	// 5..1 countdown, one emission per second. The script runs inside the
	// expired timer's callback, so its stale ticker is still a clock waiter;
	// BlockUntil(2) waits for the script's own sleep to register too.
	for i := 1; i <= rouletteCountdownFrom; i++ {
		i := i
		waitFor(t, func() bool {
			rec.mu.Lock()
			defer rec.mu.Unlock()
			return len(rec.preTicks) == i
		}, "countdown emission")
		clock.BlockUntil(2)
		clock.Advance(time.Second)
	}
	rec.mu.Lock()
	for i, v := range rec.preTicks {
		if v != rouletteCountdownFrom-i {
			t.Fatalf("expected descending countdown, got %v", rec.preTicks)
		}
	}
	rec.mu.Unlock()

	waitFor(t, func() bool { return m.Project().Display["showGo"] == true }, "go flash")
	clock.BlockUntil(2)
	clock.Advance(rouletteGoFlash)

	waitFor(t, func() bool { return m.Project().Display["spinning"] == true }, "wheel spinning")
	clock.BlockUntil(2)
	clock.Advance(rouletteSpinDuration)

	waitFor(t, func() bool { return rec.endedCount() == 1 }, "round end after the spin")
	if !m.Revealed() || m.Phase() != PhaseStopped {
		t.Fatalf("expected a revealed stop, phase %s", m.Phase())
	}

	winners := m.RouletteWinners()
	if len(winners) != 2 || winners[0] != "Alice" || winners[1] != "Carol" {
		t.Fatalf("expected sorted winners [Alice Carol], got %v", winners)
	}
}

func TestRouletteCleanupAbandonsScript(t *testing.T) {
	clock := clockwork.NewFakeClock()
	rec := &recorder{}
	m := newTestMode(t, domain.ModeRoulette, rouletteContent(), clock, rec.callbacks())
	startActive(t, m, clock)

	tickSeconds(t, m, clock, m.DurationSeconds(), 0)
	waitFor(t, func() bool { return m.Phase() == PhaseRevealed }, "script started")

	m.Cleanup()
	clock.Advance(time.Minute)
	time.Sleep(20 * time.Millisecond)
	if rec.endedCount() != 0 {
		t.Fatal("a cleaned-up script must not end the round")
	}
}

func TestRouletteWinnersNilForOtherModes(t *testing.T) {
	clock := clockwork.NewFakeClock()
	m := newTestMode(t, domain.ModeQuiz, quizContent(), clock, Callbacks{})
	if m.RouletteWinners() != nil {
		t.Fatal("expected nil winners outside roulette")
	}
}
