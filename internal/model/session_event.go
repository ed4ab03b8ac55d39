package model

import "time"

const (
	EventSessionCreated   = "session.created"
	EventTurnsAppended    = "turns.appended"
	EventDocumentAttached = "document.attached"
	EventSessionDeleted   = "session.deleted"
)

// SessionEvent is an audit record published on the event queue and
// persisted by the event worker.
type SessionEvent struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	SessionID string    `gorm:"size:36;not null;index" json:"session_id"`
	OwnerID   string    `gorm:"size:128;not null;index" json:"owner_id"`
	Type      string    `gorm:"size:32;not null" json:"type"`
	Detail    string    `gorm:"size:255" json:"detail,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
