package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/citadelle/account-security-service/internal/domain"
)

type passwordHistoryRepository struct {
	db *gorm.DB
}

// RecordAndPrune appends the new hash and trims the user's history to the
// most recent keep rows in one transaction, so a concurrent read never sees
// the history over or under the configured depth.
func (r *passwordHistoryRepository) RecordAndPrune(ctx context.Context, userID uuid.UUID, passwordHash string, keep int, at time.Time) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rec := passwordHistoryModel{
			UserID:       userID,
			PasswordHash: passwordHash,
			CreatedAt:    at,
		}
		if err := tx.Create(&rec).Error; err != nil {
			return err
		}
		if keep <= 0 {
			return tx.Where("user_id = ?", userID).
				Where("id <> ?", rec.ID).
				Delete(&passwordHistoryModel{}).Error
		}

		keepIDs := tx.Model(&passwordHistoryModel{}).
			Select("id").
			Where("user_id = ?", userID).
			Order("created_at DESC, id DESC").
			Limit(keep)
		return tx.Where("user_id = ?", userID).
			Where("id NOT IN (?)", keepIDs).
			Delete(&passwordHistoryModel{}).Error
	})
}

func (r *passwordHistoryRepository) RecentByUser(ctx context.Context, userID uuid.UUID, limit int) ([]domain.PasswordHistory, error) {
	var rows []passwordHistoryModel
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	result := make([]domain.PasswordHistory, 0, len(rows))
	for _, item := range rows {
		result = append(result, domain.PasswordHistory{
			ID:           item.ID,
			UserID:       item.UserID,
			PasswordHash: item.PasswordHash,
			CreatedAt:    item.CreatedAt,
		})
	}
	return result, nil
}
