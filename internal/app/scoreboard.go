package app

import (
	"sort"
	"sync"
	"time"

	"pubgame-service/internal/domain"
)

// scoreboard accumulates points per player across the rounds of one game.
type scoreboard struct {
	gameID string
	now    func() time.Time

	mu     sync.Mutex
	scores map[string]int
}

func newScoreboard(gameID string, now func() time.Time) *scoreboard {
	return &scoreboard{
		gameID: gameID,
		now:    now,
		scores: make(map[string]int),
	}
}

// join registers a player at zero points; rejoining keeps the total.
func (b *scoreboard) join(playerName string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.scores[playerName]; !ok {
		b.scores[playerName] = 0
	}
}

// applyDelta adds points (possibly negative) and returns the running total.
func (b *scoreboard) applyDelta(playerName string, delta int) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.scores[playerName] += delta
	return b.scores[playerName]
}

func (b *scoreboard) total(playerName string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.scores[playerName]
}

// snapshot returns the standings sorted by score desc, name asc on ties.
func (b *scoreboard) snapshot() domain.Scoreboard {
	b.mu.Lock()
	defer b.mu.Unlock()

	entries := make([]domain.ScoreboardEntry, 0, len(b.scores))
	for name, score := range b.scores {
		entries = append(entries, domain.ScoreboardEntry{PlayerName: name, Score: score})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		return entries[i].PlayerName < entries[j].PlayerName
	})
	return domain.Scoreboard{
		GameID:    b.gameID,
		Entries:   entries,
		UpdatedAt: b.now(),
	}
}
