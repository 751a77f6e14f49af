// Package game implements the round lifecycle state machine and the
// guess-resolution engine.
package game

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/arukh89/bitcoin-block/internal/models"
	"github.com/arukh89/bitcoin-block/internal/store"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// Guess value bounds, inclusive.
const (
	MinGuess = 1
	MaxGuess = 20000
)

// Event types pushed to the live sync channel.
const (
	EventRoundCreated   = "round_created"
	EventRoundClosed    = "round_closed"
	EventRoundResolved  = "round_resolved"
	EventGuessSubmitted = "guess_submitted"
	EventPrizeConfig    = "prize_config"
	EventChat           = "chat"
)

// BlockSource provides ground truth about mined blocks. found=false means the
// target block is not available yet, which is not an error.
type BlockSource interface {
	HashAtHeight(ctx context.Context, height int64) (hash string, found bool, err error)
	TxCount(ctx context.Context, hash string) (int, error)
}

// Broadcaster pushes state changes to connected viewers. A nil Broadcaster is
// valid and disables pushes.
type Broadcaster interface {
	Broadcast(eventType string, payload interface{})
}

type Service struct {
	store  store.Store
	blocks BlockSource
	events Broadcaster
	log    *logrus.Logger
}

func NewService(st store.Store, blocks BlockSource, events Broadcaster, log *logrus.Logger) *Service {
	return &Service{store: st, blocks: blocks, events: events, log: log}
}

// CreateRound opens a new round. The store's single-open-round constraint
// makes concurrent creates race on the insert itself, so exactly one wins.
func (s *Service) CreateRound(ctx context.Context, roundNumber int, blockHeight int64, durationMinutes int, prizeLabel string) (*models.Round, error) {
	if roundNumber <= 0 {
		return nil, newError(KindInvalidInput, "round number must be positive, got %d", roundNumber)
	}
	if blockHeight <= 0 {
		return nil, newError(KindInvalidInput, "block height must be positive, got %d", blockHeight)
	}
	if durationMinutes <= 0 {
		return nil, newError(KindInvalidInput, "duration must be positive, got %d minutes", durationMinutes)
	}
	if prizeLabel == "" {
		// Fall back to the advertised jackpot when the admin did not
		// label the round explicitly.
		if cfg, err := s.store.PrizeConfig(ctx); err == nil {
			prizeLabel = fmt.Sprintf("%s %s", cfg.Jackpot.String(), cfg.Currency)
		}
	}

	now := time.Now().UTC()
	round := &models.Round{
		RoundNumber: roundNumber,
		BlockHeight: blockHeight,
		StartTime:   now,
		EndTime:     now.Add(time.Duration(durationMinutes) * time.Minute),
		Status:      models.RoundOpen,
		PrizeLabel:  prizeLabel,
	}
	if err := s.store.CreateRound(ctx, round); err != nil {
		if errors.Is(err, store.ErrOpenRoundExists) {
			return nil, newError(KindInvalidState, "another round is already open")
		}
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"round":  round.ID,
		"number": round.RoundNumber,
		"height": round.BlockHeight,
	}).Info("round opened")
	s.broadcast(EventRoundCreated, round)
	return round, nil
}

// CloseRound locks submissions. It reports whether this call performed the
// transition: closing an already-closed round is a no-op success because the
// manual and automatic close paths may race.
func (s *Service) CloseRound(ctx context.Context, roundID uint) (bool, error) {
	changed, err := s.store.TransitionRound(ctx, roundID, models.RoundOpen, models.RoundClosed)
	if err != nil {
		return false, err
	}
	if changed {
		s.log.WithField("round", roundID).Info("round closed")
		if round, err := s.store.Round(ctx, roundID); err == nil {
			s.broadcast(EventRoundClosed, round)
		}
		return true, nil
	}

	round, err := s.store.Round(ctx, roundID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return false, newError(KindInvalidState, "round %d not found", roundID)
		}
		return false, err
	}
	if round.Status == models.RoundClosed || round.Status == models.RoundFinished {
		// Lost the race against the other close path.
		return false, nil
	}
	return false, newError(KindInvalidState, "round %d is %s, cannot close", roundID, round.Status)
}

// ResolveRound fetches the target block from the oracle, ranks the ledger and
// finishes the round. Ranking, result persistence and the status transition
// land in a single store write.
func (s *Service) ResolveRound(ctx context.Context, roundID uint) (*Result, error) {
	round, err := s.store.Round(ctx, roundID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, newError(KindInvalidState, "round %d not found", roundID)
		}
		return nil, err
	}
	if round.Status != models.RoundClosed {
		return nil, newError(KindInvalidState, "round %d is %s, close it before resolving", roundID, round.Status)
	}

	guesses, err := s.store.GuessesForRound(ctx, roundID)
	if err != nil {
		return nil, err
	}
	if len(guesses) == 0 {
		return nil, newError(KindNoParticipants, "round %d has no guesses to rank", roundID)
	}

	hash, found, err := s.blocks.HashAtHeight(ctx, round.BlockHeight)
	if err != nil || !found {
		return nil, newError(KindOracleUnavailable, "block %d not available yet, try again later", round.BlockHeight)
	}
	actualTxCount, err := s.blocks.TxCount(ctx, hash)
	if err != nil {
		return nil, newError(KindOracleUnavailable, "tx count for block %d not available yet: %v", round.BlockHeight, err)
	}

	ranking := Rank(guesses, actualTxCount)
	winner := ranking[0]
	result := &Result{
		RoundID:       roundID,
		ActualTxCount: actualTxCount,
		BlockHash:     hash,
		Winner:        winner,
		Ranking:       ranking,
	}
	if len(ranking) > 1 {
		runnerUp := ranking[1]
		result.RunnerUp = &runnerUp
	}

	changed, err := s.store.FinishRound(ctx, roundID, actualTxCount, hash, winner.Address)
	if err != nil {
		return nil, err
	}
	if !changed {
		return nil, newError(KindInvalidState, "round %d was resolved concurrently", roundID)
	}

	s.log.WithFields(logrus.Fields{
		"round":  roundID,
		"actual": actualTxCount,
		"winner": winner.Address,
	}).Info("round resolved")

	s.announceWinner(ctx, round, winner, actualTxCount)

	if resolved, err := s.store.Round(ctx, roundID); err == nil {
		s.broadcast(EventRoundResolved, resolved)
	}
	return result, nil
}

// announceWinner appends the winner message to the chat feed. Best-effort: a
// failure here never rolls back the resolution.
func (s *Service) announceWinner(ctx context.Context, round *models.Round, winner RankedGuess, actualTxCount int) {
	msg := &models.ChatMessage{
		RoundID:   round.ID,
		Address:   winner.Address,
		Username:  winner.Username,
		PfpURL:    winner.PfpURL,
		Message:   fmt.Sprintf("Winner: @%s guessed %d vs actual %d tx in block #%d", winner.Username, winner.GuessValue, actualTxCount, round.BlockHeight),
		Type:      models.ChatWinner,
		Timestamp: time.Now().UTC(),
	}
	if err := s.store.AppendChat(ctx, msg); err != nil {
		s.log.WithError(err).Warn("failed to record winner announcement")
		return
	}
	s.broadcast(EventChat, msg)
}

// SubmitGuess admits one guess per address for the open round. Addresses are
// compared case-insensitively, normalized once here at ingress.
func (s *Service) SubmitGuess(ctx context.Context, roundID uint, address, username string, guessValue int, pfpURL string) (*models.Guess, error) {
	address = strings.ToLower(strings.TrimSpace(address))
	if address == "" {
		return nil, newError(KindInvalidInput, "address is required")
	}
	if guessValue < MinGuess || guessValue > MaxGuess {
		return nil, newError(KindInvalidGuess, "guess must be between %d and %d, got %d", MinGuess, MaxGuess, guessValue)
	}

	round, err := s.store.Round(ctx, roundID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, newError(KindInvalidInput, "round %d not found", roundID)
		}
		return nil, err
	}
	// The countdown is informational: only status gates admission, so a
	// round whose nominal timer expired keeps accepting guesses until the
	// target block is mined or an admin closes it.
	if !round.IsOpen() {
		return nil, newError(KindRoundLocked, "round %d is locked", roundID)
	}

	guess := &models.Guess{
		RoundID:     roundID,
		Address:     address,
		Username:    username,
		PfpURL:      pfpURL,
		GuessValue:  guessValue,
		SubmittedAt: time.Now().UTC(),
	}
	if err := s.store.InsertGuess(ctx, guess); err != nil {
		if errors.Is(err, store.ErrDuplicateGuess) {
			return nil, newError(KindDuplicateGuess, "address %s already guessed in round %d", address, roundID)
		}
		return nil, err
	}

	s.broadcast(EventGuessSubmitted, guess)
	return guess, nil
}

// SavePrizeConfig overwrites the displayed prize amounts. Informational only.
func (s *Service) SavePrizeConfig(ctx context.Context, jackpot, first, second decimal.Decimal, currency, tokenContract string) (*models.PrizeConfig, error) {
	if !jackpot.IsPositive() || !first.IsPositive() || !second.IsPositive() {
		return nil, newError(KindInvalidInput, "prize amounts must be positive")
	}
	currency = strings.TrimSpace(currency)
	if currency == "" {
		return nil, newError(KindInvalidInput, "currency label is required")
	}

	cfg := &models.PrizeConfig{
		Jackpot:       jackpot,
		FirstPlace:    first,
		SecondPlace:   second,
		Currency:      currency,
		TokenContract: strings.TrimSpace(tokenContract),
	}
	if err := s.store.SavePrizeConfig(ctx, cfg); err != nil {
		return nil, err
	}
	s.broadcast(EventPrizeConfig, cfg)
	return cfg, nil
}

// PostChat appends a user message to the feed.
func (s *Service) PostChat(ctx context.Context, roundID uint, address, username, pfpURL, message string) (*models.ChatMessage, error) {
	address = strings.ToLower(strings.TrimSpace(address))
	message = strings.TrimSpace(message)
	if address == "" || message == "" {
		return nil, newError(KindInvalidInput, "address and message are required")
	}
	msg := &models.ChatMessage{
		RoundID:   roundID,
		Address:   address,
		Username:  username,
		PfpURL:    pfpURL,
		Message:   message,
		Type:      models.ChatUser,
		Timestamp: time.Now().UTC(),
	}
	if err := s.store.AppendChat(ctx, msg); err != nil {
		return nil, err
	}
	s.broadcast(EventChat, msg)
	return msg, nil
}

// CurrentRound returns the open round, or nil when no round is open.
func (s *Service) CurrentRound(ctx context.Context) (*models.Round, error) {
	round, err := s.store.OpenRound(ctx)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	return round, err
}

func (s *Service) Round(ctx context.Context, roundID uint) (*models.Round, error) {
	round, err := s.store.Round(ctx, roundID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, newError(KindInvalidInput, "round %d not found", roundID)
	}
	return round, err
}

func (s *Service) Rounds(ctx context.Context) ([]models.Round, error) {
	return s.store.Rounds(ctx)
}

// GuessesForRound returns guesses in submission (insertion) order.
func (s *Service) GuessesForRound(ctx context.Context, roundID uint) ([]models.Guess, error) {
	return s.store.GuessesForRound(ctx, roundID)
}

func (s *Service) HasGuessed(ctx context.Context, roundID uint, address string) (bool, error) {
	return s.store.HasGuessed(ctx, roundID, strings.ToLower(strings.TrimSpace(address)))
}

// PrizeConfig returns the saved config, or nil when none was saved yet.
func (s *Service) PrizeConfig(ctx context.Context) (*models.PrizeConfig, error) {
	cfg, err := s.store.PrizeConfig(ctx)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	return cfg, err
}

func (s *Service) ChatHistory(ctx context.Context, limit int) ([]models.ChatMessage, error) {
	return s.store.RecentChat(ctx, limit)
}

func (s *Service) broadcast(eventType string, payload interface{}) {
	if s.events != nil {
		s.events.Broadcast(eventType, payload)
	}
}
