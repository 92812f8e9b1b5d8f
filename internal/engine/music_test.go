package engine

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"pubgame-service/internal/domain"
)

func musicContent() domain.RoundContent {
	return domain.RoundContent{
		Type:          domain.ModeMusic,
		CorrectAnswer: "Bohemian Rhapsody",
		SongTitle:     "Bohemian Rhapsody",
		Artist:        "Queen",
		MediaURL:      "https://audio.example/preview.mp3",
	}
}

func musicDisplay(m *Mode) map[string]any {
	return m.Project().Display
}

func TestMusicMancheFlow(t *testing.T) {
	clock := clockwork.NewFakeClock()
	rec := &recorder{}
	m := newTestMode(t, domain.ModeMusic, musicContent(), clock, rec.callbacks())
	startActive(t, m, clock)

	d := musicDisplay(m)
	if d["currentManche"] != 1 || d["audioPlaying"] != true {
		t.Fatalf("expected manche 1 playing, got %+v", d)
	}

	// clip window runs out with nobody buzzing
	tickSeconds(t, m, clock, int(manchePlayDuration/time.Second), 1)
	waitFor(t, func() bool { return musicDisplay(m)["audioPlaying"] == false }, "clip over")

	// silent break, then the lead-in countdown starts
	tickSeconds(t, m, clock, int(mancheBreakDuration/time.Second), 1)
	waitFor(t, func() bool { return musicDisplay(m)["inCountdown"] == true }, "lead-in countdown")

	tickSeconds(t, m, clock, mancheLeadInFrom, 1)
	waitFor(t, func() bool { return musicDisplay(m)["currentManche"] == 2 }, "second manche")
	if musicDisplay(m)["audioPlaying"] != true {
		t.Fatal("expected the second clip to start playing")
	}

	rec.mu.Lock()
	preTicks := append([]int(nil), rec.preTicks...)
	rec.mu.Unlock()
	if len(preTicks) != mancheLeadInFrom {
		t.Fatalf("expected %d lead-in emissions, got %v", mancheLeadInFrom, preTicks)
	}
	for i, v := range preTicks {
		if v != mancheLeadInFrom-i {
			t.Fatalf("expected descending lead-in, got %v", preTicks)
		}
	}
}

func TestMusicManchePoints(t *testing.T) {
	clock := clockwork.NewFakeClock()
	rec := &recorder{}
	m := newTestMode(t, domain.ModeMusic, musicContent(), clock, rec.callbacks())
	startActive(t, m, clock)

	m.HandleBuzz("Alice")
	if musicDisplay(m)["audioPlaying"] != false {
		t.Fatal("audio must cut when the buzz lands")
	}
	res, err := m.ConfirmCorrect("Alice")
	if err != nil {
		t.Fatalf("confirm correct: %v", err)
	}
	if res.Points != 2000 {
		t.Fatalf("expected 2000 points in manche 1, got %d", res.Points)
	}

	d := musicDisplay(m)
	if d["songTitle"] != "Bohemian Rhapsody" || d["artist"] != "Queen" {
		t.Fatalf("expected the song revealed after the round, got %+v", d)
	}
}

func TestMusicWrongGuessRestartsManche(t *testing.T) {
	clock := clockwork.NewFakeClock()
	rec := &recorder{}
	m := newTestMode(t, domain.ModeMusic, musicContent(), clock, rec.callbacks())
	startActive(t, m, clock)

	m.HandleBuzz("Bob")
	res, err := m.ConfirmWrong("Bob")
	if err != nil {
		t.Fatalf("confirm wrong: %v", err)
	}
	if res.Points != -1000 {
		t.Fatalf("expected a flat -1000 penalty, got %d", res.Points)
	}

	d := musicDisplay(m)
	if m.Phase() != PhaseActive || d["currentManche"] != 1 || d["audioPlaying"] != true {
		t.Fatalf("expected manche 1 restarted, phase %s display %+v", m.Phase(), d)
	}
	if !m.CanBuzz() {
		t.Fatal("others must be able to buzz after a wrong guess")
	}
}

func TestMusicHidesSongBeforeReveal(t *testing.T) {
	clock := clockwork.NewFakeClock()
	m := newTestMode(t, domain.ModeMusic, musicContent(), clock, Callbacks{})
	startActive(t, m, clock)

	d := musicDisplay(m)
	if d["songTitle"] != "" || d["artist"] != "" {
		t.Fatalf("song identity must stay hidden while playing, got %+v", d)
	}
	if d["previewUrl"] != "https://audio.example/preview.mp3" {
		t.Fatalf("expected the preview url for the remotes, got %v", d["previewUrl"])
	}
}
