package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PrizeConfigID is the fixed primary key of the singleton config row.
const PrizeConfigID = 1

// PrizeConfig holds the advertised prize amounts. Purely informational: it
// plays no part in resolution. Overwritten wholesale on each save.
type PrizeConfig struct {
	ID            uint            `gorm:"primaryKey" json:"-"`
	Jackpot       decimal.Decimal `gorm:"type:numeric(32,8)" json:"jackpot"`
	FirstPlace    decimal.Decimal `gorm:"type:numeric(32,8)" json:"firstPlace"`
	SecondPlace   decimal.Decimal `gorm:"type:numeric(32,8)" json:"secondPlace"`
	Currency      string          `gorm:"size:32" json:"currency"`
	TokenContract string          `gorm:"size:96" json:"tokenContract,omitempty"`
	UpdatedAt     time.Time       `json:"-"`
}
