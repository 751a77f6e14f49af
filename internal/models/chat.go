package models

import "time"

type ChatType string

const (
	ChatUser   ChatType = "user"
	ChatWinner ChatType = "winner"
	ChatSystem ChatType = "system"
)

// ChatMessage is a feed entry. Winner announcements are appended by the
// resolution engine; user messages arrive through the API.
type ChatMessage struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	RoundID   uint      `gorm:"index" json:"roundId"`
	Address   string    `gorm:"size:96" json:"address"`
	Username  string    `gorm:"size:96" json:"username"`
	PfpURL    string    `gorm:"size:256" json:"pfpUrl"`
	Message   string    `gorm:"size:512;not null" json:"message"`
	Type      ChatType  `gorm:"size:16;not null" json:"type"`
	Timestamp time.Time `gorm:"not null;index" json:"timestamp"`
}
