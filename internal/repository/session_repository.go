package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"gopherai-chat/internal/model"
)

type SessionRepository struct {
	db *gorm.DB
}

func NewSessionRepository(db *gorm.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

func (r *SessionRepository) Create(ctx context.Context, session *model.Session) error {
	if err := r.db.WithContext(ctx).Create(session).Error; err != nil {
		return fmt.Errorf("create session failed: %w", err)
	}
	return nil
}

func (r *SessionRepository) ListByOwner(ctx context.Context, ownerID string) ([]model.Session, error) {
	sessions := make([]model.Session, 0)
	if err := r.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("created_at DESC").
		Order("id DESC").
		Find(&sessions).Error; err != nil {
		return nil, fmt.Errorf("list sessions failed: %w", err)
	}
	return sessions, nil
}

// GetByIDAndOwner returns nil, nil when no session matches both id and owner.
func (r *SessionRepository) GetByIDAndOwner(ctx context.Context, sessionID, ownerID string) (*model.Session, error) {
	var session model.Session
	if err := r.db.WithContext(ctx).Where("id = ? AND owner_id = ?", sessionID, ownerID).First(&session).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get session failed: %w", err)
	}
	return &session, nil
}

// DeleteByIDAndOwner removes the session and its turns in one transaction.
// It reports whether a session was actually removed.
func (r *SessionRepository) DeleteByIDAndOwner(ctx context.Context, sessionID, ownerID string) (bool, error) {
	deleted := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Where("id = ? AND owner_id = ?", sessionID, ownerID).Delete(&model.Session{})
		if result.Error != nil {
			return fmt.Errorf("delete session failed: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return nil
		}
		deleted = true
		if err := tx.Where("session_id = ?", sessionID).Delete(&model.Turn{}).Error; err != nil {
			return fmt.Errorf("delete session turns failed: %w", err)
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	return deleted, nil
}

// AppendTurns persists turns after the session's current ones together with
// the session's title fields. session.Version must be the version that was
// read; a concurrent append in between yields ErrVersionConflict and nothing
// is written.
func (r *SessionRepository) AppendTurns(ctx context.Context, session *model.Session, turns []model.Turn) error {
	if len(turns) == 0 {
		return nil
	}
	now := time.Now()
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&model.Session{}).
			Where("id = ? AND owner_id = ? AND version = ?", session.ID, session.OwnerID, session.Version).
			Updates(map[string]interface{}{
				"title":      session.Title,
				"titled":     session.Titled,
				"version":    session.Version + 1,
				"updated_at": now,
			})
		if result.Error != nil {
			return fmt.Errorf("bump session version failed: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return ErrVersionConflict
		}

		var count int64
		if err := tx.Model(&model.Turn{}).Where("session_id = ?", session.ID).Count(&count).Error; err != nil {
			return fmt.Errorf("count session turns failed: %w", err)
		}
		for i := range turns {
			turns[i].SessionID = session.ID
			turns[i].Seq = int(count) + i
			if turns[i].CreatedAt.IsZero() {
				turns[i].CreatedAt = now
			}
		}
		if err := tx.Create(&turns).Error; err != nil {
			return fmt.Errorf("create turns failed: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	session.Version++
	session.UpdatedAt = now
	return nil
}
