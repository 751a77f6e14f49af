// Package models defines the database models for the prediction game.
package models

import "time"

type RoundStatus string

const (
	RoundOpen     RoundStatus = "open"
	RoundClosed   RoundStatus = "closed"
	RoundFinished RoundStatus = "finished"
)

// Round represents one instance of the game tied to a target block height.
// The partial unique index on Status guarantees at most one open round even
// under concurrent creates.
type Round struct {
	ID            uint        `gorm:"primaryKey" json:"id"`
	RoundNumber   int         `gorm:"not null;index" json:"roundNumber"`
	BlockHeight   int64       `gorm:"not null;index" json:"blockHeight"`
	StartTime     time.Time   `gorm:"not null" json:"startTime"`
	EndTime       time.Time   `gorm:"not null" json:"endTime"`
	Status        RoundStatus `gorm:"size:16;not null;index;index:ux_open_round,unique,where:status = 'open'" json:"status"`
	PrizeLabel    string      `gorm:"size:64" json:"prizeLabel,omitempty"`
	ActualTxCount *int        `json:"actualTxCount,omitempty"`
	BlockHash     *string     `gorm:"size:128" json:"blockHash,omitempty"`
	WinnerAddress *string     `gorm:"size:96" json:"winnerAddress,omitempty"`
	CreatedAt     time.Time   `json:"-"`
	UpdatedAt     time.Time   `json:"-"`
}

// IsOpen reports whether the round still accepts guesses. The countdown
// (EndTime) is informational only: rounds close when the target block is
// mined or on admin command, never on a wall-clock timer.
func (r *Round) IsOpen() bool {
	return r.Status == RoundOpen
}
