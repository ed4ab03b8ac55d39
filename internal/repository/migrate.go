package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"gopherai-chat/internal/model"
)

func Migrate(ctx context.Context, db *gorm.DB) error {
	if err := db.WithContext(ctx).AutoMigrate(
		&model.User{},
		&model.Session{},
		&model.Turn{},
		&model.SessionEvent{},
	); err != nil {
		return fmt.Errorf("auto migrate tables failed: %w", err)
	}
	return nil
}
