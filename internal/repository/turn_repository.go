package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"gopherai-chat/internal/model"
)

type TurnRepository struct {
	db *gorm.DB
}

func NewTurnRepository(db *gorm.DB) *TurnRepository {
	return &TurnRepository{db: db}
}

func (r *TurnRepository) ListBySessionID(ctx context.Context, sessionID string) ([]model.Turn, error) {
	turns := make([]model.Turn, 0)
	if err := r.db.WithContext(ctx).Where("session_id = ?", sessionID).Order("seq ASC").Find(&turns).Error; err != nil {
		return nil, fmt.Errorf("list turns failed: %w", err)
	}
	return turns, nil
}
