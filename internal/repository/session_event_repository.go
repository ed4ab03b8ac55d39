package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"gopherai-chat/internal/model"
)

type SessionEventRepository struct {
	db *gorm.DB
}

func NewSessionEventRepository(db *gorm.DB) *SessionEventRepository {
	return &SessionEventRepository{db: db}
}

func (r *SessionEventRepository) Create(ctx context.Context, event *model.SessionEvent) error {
	if err := r.db.WithContext(ctx).Create(event).Error; err != nil {
		return fmt.Errorf("create session event failed: %w", err)
	}
	return nil
}

// ListBySessionAndOwner returns the audit trail of a session in insertion
// order. Events outlive their session, so deleted sessions still list.
func (r *SessionEventRepository) ListBySessionAndOwner(ctx context.Context, sessionID, ownerID string) ([]model.SessionEvent, error) {
	events := make([]model.SessionEvent, 0)
	if err := r.db.WithContext(ctx).
		Where("session_id = ? AND owner_id = ?", sessionID, ownerID).
		Order("id ASC").
		Find(&events).Error; err != nil {
		return nil, fmt.Errorf("list session events failed: %w", err)
	}
	return events, nil
}
