package engine

import (
	"testing"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"pubgame-service/internal/domain"
)

func TestFactoryRejectsUnknownMode(t *testing.T) {
	f := NewFactory(clockwork.NewFakeClock(), zerolog.Nop())
	if _, err := f.CreateMode(domain.ModeType("KARAOKE"), domain.RoundContent{}, Callbacks{}); err != domain.ErrUnknownMode {
		t.Fatalf("expected ErrUnknownMode, got %v", err)
	}
}

func TestFactoryTearsDownPreviousMode(t *testing.T) {
	f := NewFactory(clockwork.NewFakeClock(), zerolog.Nop())

	first, err := f.CreateMode(domain.ModeQuiz, quizContent(), Callbacks{})
	if err != nil {
		t.Fatalf("create first: %v", err)
	}
	second, err := f.CreateMode(domain.ModeTrueFalse, domain.RoundContent{Type: domain.ModeTrueFalse}, Callbacks{})
	if err != nil {
		t.Fatalf("create second: %v", err)
	}

	select {
	case <-first.done:
	default:
		t.Fatal("creating a new mode must clean up the previous one")
	}
	if got := f.Current(); got != second {
		t.Fatal("expected the second mode to be current")
	}

	f.Cleanup()
	if f.Current() != nil {
		t.Fatal("expected no current mode after cleanup")
	}
	select {
	case <-second.done:
	default:
		t.Fatal("cleanup must tear down the current mode")
	}
}

func TestFactoryBuildsEveryVariant(t *testing.T) {
	f := NewFactory(clockwork.NewFakeClock(), zerolog.Nop())
	for _, typ := range domain.ModeTypes {
		m, err := f.CreateMode(typ, domain.RoundContent{Type: typ}, Callbacks{})
		if err != nil {
			t.Fatalf("create %s: %v", typ, err)
		}
		if m.Type() != typ {
			t.Fatalf("expected type %s, got %s", typ, m.Type())
		}
	}
}
