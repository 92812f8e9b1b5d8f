package domain

import "errors"

var (
	// ErrUnknownMode is returned when a round requests a variant that does not exist.
	ErrUnknownMode = errors.New("unknown game mode")
	// ErrContentDecode indicates round content could not be parsed; the round must not start.
	ErrContentDecode = errors.New("round content decode failed")
	// ErrContentNotFound indicates the content store has nothing for the request.
	ErrContentNotFound = errors.New("round content not found")
	// ErrRoundNotActive is returned when a confirm arrives with no round in play.
	ErrRoundNotActive = errors.New("no active round")
	// ErrNoClaimant is returned when a confirm names a player who does not hold the buzz.
	ErrNoClaimant = errors.New("player is not the current claimant")
	// ErrGameNotFound indicates a request named a game this instance does not host.
	ErrGameNotFound = errors.New("game not found")
	// ErrChannelClosed indicates the synchronization channel was shut down.
	ErrChannelClosed = errors.New("sync channel closed")
)
