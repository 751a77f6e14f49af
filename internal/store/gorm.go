package store

import (
	"context"
	"errors"

	"github.com/arukh89/bitcoin-block/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormStore persists game state in Postgres via GORM. Uniqueness of guesses
// and the single-open-round rule are enforced by the unique indexes declared
// on the models, so concurrent writers race on the constraint, not on
// application-level checks.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) CreateRound(ctx context.Context, round *models.Round) error {
	err := s.db.WithContext(ctx).Create(round).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrOpenRoundExists
	}
	return err
}

func (s *GormStore) Round(ctx context.Context, id uint) (*models.Round, error) {
	var round models.Round
	err := s.db.WithContext(ctx).First(&round, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &round, nil
}

func (s *GormStore) OpenRound(ctx context.Context) (*models.Round, error) {
	var round models.Round
	err := s.db.WithContext(ctx).Where("status = ?", models.RoundOpen).First(&round).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &round, nil
}

func (s *GormStore) Rounds(ctx context.Context) ([]models.Round, error) {
	var rounds []models.Round
	err := s.db.WithContext(ctx).Order("id DESC").Find(&rounds).Error
	return rounds, err
}

func (s *GormStore) TransitionRound(ctx context.Context, id uint, from, to models.RoundStatus) (bool, error) {
	tx := s.db.WithContext(ctx).
		Model(&models.Round{}).
		Where("id = ? AND status = ?", id, from).
		Update("status", to)
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}

func (s *GormStore) FinishRound(ctx context.Context, id uint, actualTxCount int, blockHash, winnerAddress string) (bool, error) {
	tx := s.db.WithContext(ctx).
		Model(&models.Round{}).
		Where("id = ? AND status = ?", id, models.RoundClosed).
		Updates(map[string]interface{}{
			"status":          models.RoundFinished,
			"actual_tx_count": actualTxCount,
			"block_hash":      blockHash,
			"winner_address":  winnerAddress,
		})
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}

func (s *GormStore) InsertGuess(ctx context.Context, guess *models.Guess) error {
	err := s.db.WithContext(ctx).Create(guess).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicateGuess
	}
	return err
}

func (s *GormStore) GuessesForRound(ctx context.Context, roundID uint) ([]models.Guess, error) {
	var guesses []models.Guess
	err := s.db.WithContext(ctx).Where("round_id = ?", roundID).Order("id ASC").Find(&guesses).Error
	return guesses, err
}

func (s *GormStore) HasGuessed(ctx context.Context, roundID uint, address string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&models.Guess{}).
		Where("round_id = ? AND address = ?", roundID, address).
		Count(&count).Error
	return count > 0, err
}

func (s *GormStore) CountGuesses(ctx context.Context, roundID uint) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&models.Guess{}).
		Where("round_id = ?", roundID).
		Count(&count).Error
	return count, err
}

func (s *GormStore) SavePrizeConfig(ctx context.Context, cfg *models.PrizeConfig) error {
	cfg.ID = models.PrizeConfigID
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			UpdateAll: true,
		}).
		Create(cfg).Error
}

func (s *GormStore) PrizeConfig(ctx context.Context) (*models.PrizeConfig, error) {
	var cfg models.PrizeConfig
	err := s.db.WithContext(ctx).First(&cfg, models.PrizeConfigID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (s *GormStore) AppendChat(ctx context.Context, msg *models.ChatMessage) error {
	return s.db.WithContext(ctx).Create(msg).Error
}

func (s *GormStore) RecentChat(ctx context.Context, limit int) ([]models.ChatMessage, error) {
	var msgs []models.ChatMessage
	err := s.db.WithContext(ctx).Order("id DESC").Limit(limit).Find(&msgs).Error
	if err != nil {
		return nil, err
	}
	// reverse to oldest-first
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}
