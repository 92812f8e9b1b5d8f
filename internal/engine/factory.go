package engine

import (
	"sync"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"pubgame-service/internal/domain"
)

// Factory builds mode instances and enforces that at most one round is live
// at a time: creating a new mode tears the previous one down first, so its
// timers and scheduled callbacks can never leak into the new round.
type Factory struct {
	clock clockwork.Clock
	log   zerolog.Logger

	mu      sync.Mutex
	current *Mode
}

func NewFactory(clock clockwork.Clock, log zerolog.Logger) *Factory {
	return &Factory{clock: clock, log: log}
}

// CreateMode instantiates the variant for t, initialized with content and
// wired to cb. The previous mode, if any, is cleaned up.
func (f *Factory) CreateMode(t domain.ModeType, content domain.RoundContent, cb Callbacks) (*Mode, error) {
	spec, ok := variantFor(t)
	if !ok {
		return nil, domain.ErrUnknownMode
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.current != nil {
		f.current.Cleanup()
	}
	m := newMode(spec, f.clock, f.log, cb)
	m.Initialize(content)
	f.current = m
	return m, nil
}

// Current returns the live mode, or nil when no round is running.
func (f *Factory) Current() *Mode {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.current
}

// Cleanup tears down the live mode, if any.
func (f *Factory) Cleanup() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.current != nil {
		f.current.Cleanup()
		f.current = nil
	}
}
