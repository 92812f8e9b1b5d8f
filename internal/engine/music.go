package engine

import (
	"time"

	"pubgame-service/internal/domain"
)

const (
	mancheCount         = 4
	manchePlayDuration  = 30 * time.Second
	mancheBreakDuration = 20 * time.Second
	mancheLeadInFrom    = 5
)

var manchePoints = [mancheCount]int{2000, 1500, 1000, 500}

type musicState struct {
	manche         int
	runGen         int // bumped on buzz/pause/stop so pending manche steps are dropped
	audioPlaying   bool
	inCountdown    bool
	countdownValue int
}

// MUSIC: blind test in four manches. Each manche plays a 30s clip, then a
// 20s silent break and a 5..1 lead-in countdown into the next. Buzzing
// earlier pays more; a wrong guess costs a flat penalty and restarts the
// current manche for everyone else.
func musicSpec() variantSpec {
	return variantSpec{
		typ:             domain.ModeMusic,
		durationSeconds: 200,
		readingDelay:    musicReadingDelay,
		requiresBuzz:    true,
		requiresReveal:  false,
		hooks: hooks{
			init: func(m *Mode) {
				m.state = &musicState{}
			},
			active: func(m *Mode) {
				musicStartManche(m, m.gen, 1)
			},
			pause: func(m *Mode) {
				musicFreeze(m)
			},
			buzz: func(m *Mode, _ string) {
				musicFreeze(m)
			},
			resume: func(m *Mode) {
				ms := m.state.(*musicState)
				if ms.manche >= 1 {
					musicStartManche(m, m.gen, ms.manche)
				}
			},
			stop: func(m *Mode) {
				musicFreeze(m)
			},
			score: func(m *Mode, correct bool, _ int) int {
				if !correct {
					return -1000
				}
				ms := m.state.(*musicState)
				idx := ms.manche - 1
				if idx < 0 {
					idx = 0
				}
				if idx >= mancheCount {
					idx = mancheCount - 1
				}
				return manchePoints[idx]
			},
			project: func(m *Mode) map[string]any {
				ms := m.state.(*musicState)
				title, artist := "", ""
				if m.revealed {
					title = m.content.SongTitle
					artist = m.content.Artist
				}
				return map[string]any{
					"previewUrl":    m.content.MediaURL,
					"currentManche": ms.manche,
					"totalManches":  mancheCount,
					"audioPlaying":  ms.audioPlaying,
					"inCountdown":   ms.inCountdown,
					"countdown":     ms.countdownValue,
					"buzzedPlayer":  m.claimant,
					"songTitle":     title,
					"artist":        artist,
				}
			},
		},
	}
}

func musicFreeze(m *Mode) {
	ms := m.state.(*musicState)
	ms.runGen++
	ms.audioPlaying = false
	ms.inCountdown = false
}

// musicStartManche opens manche n from the top of its clip and schedules the
// end of the play window. Called with the lock held. Restarting the current
// manche (after a wrong guess or a resume) goes through here too.
func musicStartManche(m *Mode, gen, n int) {
	ms := m.state.(*musicState)
	ms.manche = n
	ms.runGen++
	rg := ms.runGen
	ms.inCountdown = false
	ms.audioPlaying = true
	m.schedule(gen, manchePlayDuration, func() func() {
		if ms.runGen != rg || m.phase != PhaseActive {
			return nil
		}
		ms.audioPlaying = false
		return musicAfterPlay(m, gen, rg, n+1)
	})
}

// musicAfterPlay runs when a clip window closes with nobody holding the
// buzz. After the last manche the round ends revealed; otherwise the silent
// break and lead-in countdown into manche next are scheduled. Called with
// the lock held; the returned func is the post-unlock callback emission.
func musicAfterPlay(m *Mode, gen, rg, next int) func() {
	if next > mancheCount {
		m.stopLocked()
		cb := m.cb.OnTimerEnd
		return func() {
			if cb != nil {
				cb()
			}
		}
	}
	m.schedule(gen, mancheBreakDuration, func() func() {
		ms := m.state.(*musicState)
		if ms.runGen != rg || m.phase != PhaseActive {
			return nil
		}
		ms.inCountdown = true
		ms.countdownValue = mancheLeadInFrom
		return musicCountdownTick(m, gen, rg, next)
	})
	return nil
}

// musicCountdownTick emits the current lead-in value and schedules the next
// step; at zero the next manche starts.
func musicCountdownTick(m *Mode, gen, rg, next int) func() {
	ms := m.state.(*musicState)
	v := ms.countdownValue
	m.schedule(gen, time.Second, func() func() {
		ms := m.state.(*musicState)
		if ms.runGen != rg || m.phase != PhaseActive {
			return nil
		}
		ms.countdownValue--
		if ms.countdownValue <= 0 {
			ms.inCountdown = false
			musicStartManche(m, gen, next)
			return nil
		}
		return musicCountdownTick(m, gen, rg, next)
	})
	if cb := m.cb.OnPreGameTick; cb != nil {
		return func() { cb(v) }
	}
	return nil
}
