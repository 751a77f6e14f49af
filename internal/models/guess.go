package models

import "time"

// Guess is one participant's tx-count prediction for a round. The composite
// unique index on (RoundID, Address) is the authoritative one-guess-per-round
// constraint; Address is lowercased before it ever reaches the store.
type Guess struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	RoundID     uint      `gorm:"not null;index;index:ux_round_address,unique" json:"roundId"`
	Address     string    `gorm:"size:96;not null;index:ux_round_address,unique" json:"address"`
	Username    string    `gorm:"size:96" json:"username"`
	PfpURL      string    `gorm:"size:256" json:"pfpUrl"`
	GuessValue  int       `gorm:"not null" json:"guessValue"`
	SubmittedAt time.Time `gorm:"not null;index" json:"submittedAt"`
	CreatedAt   time.Time `json:"-"`
}
