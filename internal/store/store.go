// Package store is the single source of truth for rounds, guesses, prize
// config and the chat feed. Implementations must enforce the two hard
// invariants atomically: at most one open round, and at most one guess per
// (round, address).
package store

import (
	"context"
	"errors"

	"github.com/arukh89/bitcoin-block/internal/models"
)

var (
	// ErrNotFound is returned when the requested entity does not exist.
	ErrNotFound = errors.New("store: not found")
	// ErrDuplicateGuess is returned when a guess for the same
	// (round, address) already exists. The insert itself carries the
	// uniqueness check, never a prior read.
	ErrDuplicateGuess = errors.New("store: duplicate guess")
	// ErrOpenRoundExists is returned by CreateRound while another round is
	// still open.
	ErrOpenRoundExists = errors.New("store: a round is already open")
)

type Store interface {
	// CreateRound persists a new open round. Fails with ErrOpenRoundExists
	// if a round is already open, atomically with respect to concurrent
	// creates.
	CreateRound(ctx context.Context, round *models.Round) error
	Round(ctx context.Context, id uint) (*models.Round, error)
	// OpenRound returns the currently open round, or ErrNotFound.
	OpenRound(ctx context.Context) (*models.Round, error)
	// Rounds lists all rounds, newest first.
	Rounds(ctx context.Context) ([]models.Round, error)
	// TransitionRound performs a compare-and-set on the round status.
	// It reports whether this call performed the transition.
	TransitionRound(ctx context.Context, id uint, from, to models.RoundStatus) (bool, error)
	// FinishRound atomically records the resolution result and moves the
	// round from closed to finished in a single write, so no reader can
	// observe the result on a round that is still closed.
	FinishRound(ctx context.Context, id uint, actualTxCount int, blockHash, winnerAddress string) (bool, error)

	// InsertGuess appends a guess, failing with ErrDuplicateGuess when the
	// (RoundID, Address) pair is already present.
	InsertGuess(ctx context.Context, guess *models.Guess) error
	// GuessesForRound returns the guesses in insertion order.
	GuessesForRound(ctx context.Context, roundID uint) ([]models.Guess, error)
	HasGuessed(ctx context.Context, roundID uint, address string) (bool, error)
	CountGuesses(ctx context.Context, roundID uint) (int64, error)

	// SavePrizeConfig overwrites the singleton prize config.
	SavePrizeConfig(ctx context.Context, cfg *models.PrizeConfig) error
	PrizeConfig(ctx context.Context) (*models.PrizeConfig, error)

	AppendChat(ctx context.Context, msg *models.ChatMessage) error
	// RecentChat returns up to limit messages, oldest first.
	RecentChat(ctx context.Context, limit int) ([]models.ChatMessage, error)
}
