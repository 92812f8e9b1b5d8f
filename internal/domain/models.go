package domain

import "time"

// ModeType identifies one of the available round variants.
type ModeType string

const (
	ModeQuiz           ModeType = "QUIZ"
	ModeTrueFalse      ModeType = "TRUE_FALSE"
	ModeChrono         ModeType = "CHRONO"
	ModeImageBlur      ModeType = "IMAGE_BLUR"
	ModeWheelOfFortune ModeType = "WHEEL_OF_FORTUNE"
	ModeRoulette       ModeType = "ROULETTE"
	ModeMusic          ModeType = "MUSIC"
)

// ModeTypes lists every variant, in the order the host display offers them.
var ModeTypes = []ModeType{
	ModeQuiz, ModeTrueFalse, ModeChrono, ModeImageBlur,
	ModeWheelOfFortune, ModeRoulette, ModeMusic,
}

// Valid reports whether t names a known variant.
func (t ModeType) Valid() bool {
	switch t {
	case ModeQuiz, ModeTrueFalse, ModeChrono, ModeImageBlur,
		ModeWheelOfFortune, ModeRoulette, ModeMusic:
		return true
	}
	return false
}

// RoundContent is the opaque payload a round is built from. It is supplied
// once at mode initialization and never mutated by the engine.
type RoundContent struct {
	Type          ModeType `json:"type"`
	Question      string   `json:"question,omitempty"`
	Options       []string `json:"options,omitempty"`
	CorrectAnswer string   `json:"correctAnswer"`
	Hint          string   `json:"hint,omitempty"`
	MediaURL      string   `json:"mediaUrl,omitempty"`
	Phrase        string   `json:"phrase,omitempty"`
	SongTitle     string   `json:"songTitle,omitempty"`
	Artist        string   `json:"artist,omitempty"`
}

// Round pairs generated content with its identity within a game.
type Round struct {
	ID       string       `json:"id"`
	GameID   string       `json:"gameId"`
	Type     ModeType     `json:"type"`
	Category string       `json:"category"`
	Content  RoundContent `json:"content"`
}

// BuzzSentinel is the reserved answer value meaning "buzz" rather than a
// concrete answer.
const BuzzSentinel = -1

// PlayerAnswer is what a remote publishes on the answer topic. Value is the
// option index for QUIZ/TRUE_FALSE, a literal year for CHRONO, a color index
// for ROULETTE, or BuzzSentinel.
type PlayerAnswer struct {
	PlayerName     string `json:"playerName"`
	Value          int    `json:"answerIndex"`
	ResponseTimeMs int    `json:"responseTimeMs"`
}

// IsBuzz reports whether the answer is the buzz sentinel.
func (a PlayerAnswer) IsBuzz() bool { return a.Value == BuzzSentinel }

// Action enumerates the status-topic event kinds.
type Action string

const (
	ActionShowQuestion        Action = "SHOW_QUESTION"
	ActionStartVoting         Action = "START_VOTING"
	ActionPlayerLocked        Action = "PLAYER_LOCKED"
	ActionRoundEnded          Action = "ROUND_ENDED"
	ActionReveal              Action = "REVEAL"
	ActionBlockedError        Action = "BLOCKED_ERROR"
	ActionAdminConfirmCorrect Action = "ADMIN_CONFIRM_CORRECT"
	ActionAdminConfirmWrong   Action = "ADMIN_CONFIRM_WRONG"
)

// StatusEvent is broadcast host -> remotes. Each event is a full snapshot:
// remotes derive their state from the latest event only, never from history.
type StatusEvent struct {
	Action        Action   `json:"action"`
	Type          ModeType `json:"type,omitempty"`
	Payload       any      `json:"payload,omitempty"`
	Name          string   `json:"name,omitempty"`
	Winner        string   `json:"winner,omitempty"`
	Points        int      `json:"points,omitempty"`
	TotalPoints   int      `json:"totalPoints,omitempty"`
	BlockedPlayer string   `json:"blockedPlayer,omitempty"`
	Winners       []string `json:"winners,omitempty"`
}

// AnswerOutcome is the engine's verdict on a simultaneous-mode answer.
// Informational: the round continues until timeout or scripted reveal.
type AnswerOutcome struct {
	PlayerName string `json:"playerName"`
	Correct    bool   `json:"correct"`
	Points     int    `json:"points"`
	Choice     string `json:"choice,omitempty"`
	Distance   int    `json:"distance,omitempty"`
}

// RoundResult summarizes a confirm action on a buzz-mode round.
type RoundResult struct {
	Success       bool   `json:"success"`
	PlayerName    string `json:"playerName"`
	Points        int    `json:"points"`
	CorrectAnswer string `json:"correctAnswer,omitempty"`
}

// ScoreboardEntry is a snapshot-friendly view of a player's running total.
type ScoreboardEntry struct {
	PlayerName string `json:"playerName"`
	Score      int    `json:"score"`
}

// Scoreboard captures the ordered standings for a game.
type Scoreboard struct {
	GameID    string            `json:"gameId"`
	Entries   []ScoreboardEntry `json:"entries"`
	UpdatedAt time.Time         `json:"updatedAt"`
}
