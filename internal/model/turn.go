package model

import "time"

const (
	RoleUser   = "user"
	RoleModel  = "model"
	RoleSystem = "system"
)

// Turn is one immutable message in a session. Seq is the append position
// and is unique per session.
type Turn struct {
	ID        uint      `gorm:"primaryKey" json:"-"`
	SessionID string    `gorm:"size:36;not null;uniqueIndex:idx_turns_session_seq,priority:1" json:"-"`
	Seq       int       `gorm:"not null;uniqueIndex:idx_turns_session_seq,priority:2" json:"seq"`
	Role      string    `gorm:"size:16;not null" json:"role"`
	Text      string    `gorm:"type:longtext;not null" json:"text"`
	CreatedAt time.Time `json:"createdAt"`
}
