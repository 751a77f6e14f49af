package store

import (
	"context"
	"sync"

	"github.com/arukh89/bitcoin-block/internal/models"
)

// MemoryStore is an in-process Store used when no DATABASE_URL is configured
// and by tests. A single mutex serializes every mutation, which makes the
// check-then-insert paths atomic by construction.
type MemoryStore struct {
	mu      sync.Mutex
	rounds  []models.Round
	guesses []models.Guess
	chat    []models.ChatMessage
	prize   *models.PrizeConfig

	nextRoundID uint
	nextGuessID uint
	nextChatID  uint
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{nextRoundID: 1, nextGuessID: 1, nextChatID: 1}
}

func (s *MemoryStore) CreateRound(_ context.Context, round *models.Round) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.rounds {
		if s.rounds[i].Status == models.RoundOpen {
			return ErrOpenRoundExists
		}
	}
	round.ID = s.nextRoundID
	s.nextRoundID++
	s.rounds = append(s.rounds, *round)
	return nil
}

func (s *MemoryStore) Round(_ context.Context, id uint) (*models.Round, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.rounds {
		if s.rounds[i].ID == id {
			round := s.rounds[i]
			return &round, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) OpenRound(_ context.Context) (*models.Round, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.rounds {
		if s.rounds[i].Status == models.RoundOpen {
			round := s.rounds[i]
			return &round, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) Rounds(_ context.Context) ([]models.Round, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Round, 0, len(s.rounds))
	for i := len(s.rounds) - 1; i >= 0; i-- {
		out = append(out, s.rounds[i])
	}
	return out, nil
}

func (s *MemoryStore) TransitionRound(_ context.Context, id uint, from, to models.RoundStatus) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.rounds {
		if s.rounds[i].ID == id && s.rounds[i].Status == from {
			s.rounds[i].Status = to
			return true, nil
		}
	}
	return false, nil
}

func (s *MemoryStore) FinishRound(_ context.Context, id uint, actualTxCount int, blockHash, winnerAddress string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.rounds {
		if s.rounds[i].ID == id && s.rounds[i].Status == models.RoundClosed {
			s.rounds[i].Status = models.RoundFinished
			s.rounds[i].ActualTxCount = &actualTxCount
			hash, winner := blockHash, winnerAddress
			s.rounds[i].BlockHash = &hash
			s.rounds[i].WinnerAddress = &winner
			return true, nil
		}
	}
	return false, nil
}

func (s *MemoryStore) InsertGuess(_ context.Context, guess *models.Guess) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.guesses {
		if s.guesses[i].RoundID == guess.RoundID && s.guesses[i].Address == guess.Address {
			return ErrDuplicateGuess
		}
	}
	guess.ID = s.nextGuessID
	s.nextGuessID++
	s.guesses = append(s.guesses, *guess)
	return nil
}

func (s *MemoryStore) GuessesForRound(_ context.Context, roundID uint) ([]models.Guess, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Guess
	for i := range s.guesses {
		if s.guesses[i].RoundID == roundID {
			out = append(out, s.guesses[i])
		}
	}
	return out, nil
}

func (s *MemoryStore) HasGuessed(_ context.Context, roundID uint, address string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.guesses {
		if s.guesses[i].RoundID == roundID && s.guesses[i].Address == address {
			return true, nil
		}
	}
	return false, nil
}

func (s *MemoryStore) CountGuesses(_ context.Context, roundID uint) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var count int64
	for i := range s.guesses {
		if s.guesses[i].RoundID == roundID {
			count++
		}
	}
	return count, nil
}

func (s *MemoryStore) SavePrizeConfig(_ context.Context, cfg *models.PrizeConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cfg.ID = models.PrizeConfigID
	saved := *cfg
	s.prize = &saved
	return nil
}

func (s *MemoryStore) PrizeConfig(_ context.Context) (*models.PrizeConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.prize == nil {
		return nil, ErrNotFound
	}
	cfg := *s.prize
	return &cfg, nil
}

func (s *MemoryStore) AppendChat(_ context.Context, msg *models.ChatMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	msg.ID = s.nextChatID
	s.nextChatID++
	s.chat = append(s.chat, *msg)
	return nil
}

func (s *MemoryStore) RecentChat(_ context.Context, limit int) ([]models.ChatMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	start := 0
	if limit > 0 && len(s.chat) > limit {
		start = len(s.chat) - limit
	}
	out := make([]models.ChatMessage, len(s.chat)-start)
	copy(out, s.chat[start:])
	return out, nil
}
