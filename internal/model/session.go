package model

import "time"

const DefaultSessionTitle = "New Chat"

// Session is an owned, titled container of turns. Version is bumped on
// every append and guards against lost updates from concurrent writers.
type Session struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	OwnerID   string    `gorm:"size:128;not null;index:idx_sessions_owner_created,priority:1" json:"-"`
	Title     string    `gorm:"size:128;not null" json:"title"`
	Titled    bool      `gorm:"not null;default:false" json:"-"`
	Version   int64     `gorm:"not null;default:0" json:"-"`
	CreatedAt time.Time `gorm:"index:idx_sessions_owner_created,priority:2" json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
