package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/citadelle/account-security-service/internal/domain"
)

type lockoutRepository struct {
	db *gorm.DB
}

func (r *lockoutRepository) ActiveByUser(ctx context.Context, userID uuid.UUID, now time.Time) (domain.AccountLockout, error) {
	var rec accountLockoutModel
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Where("unlocked_at IS NULL").
		Where("locked_until > ?", now).
		Take(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.AccountLockout{}, domain.ErrNotFound
		}
		return domain.AccountLockout{}, err
	}
	return toDomainLockout(rec), nil
}

// ApplyIfAbsent enforces at most one open lockout row per user. Stale open
// rows (horizon already passed) are closed first so the partial unique index
// on (user_id) WHERE unlocked_at IS NULL admits the new episode; if a live
// row wins the race instead, that row is returned and created is false.
func (r *lockoutRepository) ApplyIfAbsent(ctx context.Context, lockout domain.AccountLockout) (domain.AccountLockout, bool, error) {
	rec := accountLockoutModel{
		LockoutID:    lockout.LockoutID,
		UserID:       lockout.UserID,
		LockedAt:     lockout.LockedAt,
		LockedUntil:  lockout.LockedUntil,
		Reason:       lockout.Reason,
		AttemptCount: lockout.AttemptCount,
	}

	var created bool
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&accountLockoutModel{}).
			Where("user_id = ?", lockout.UserID).
			Where("unlocked_at IS NULL").
			Where("locked_until <= ?", lockout.LockedAt).
			Update("unlocked_at", lockout.LockedAt).Error; err != nil {
			return err
		}

		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&rec)
		if res.Error != nil {
			return res.Error
		}
		created = res.RowsAffected > 0
		if created {
			return nil
		}

		var existing accountLockoutModel
		if err := tx.Where("user_id = ?", lockout.UserID).
			Where("unlocked_at IS NULL").
			Take(&existing).Error; err != nil {
			return err
		}
		rec = existing
		return nil
	})
	if err != nil {
		return domain.AccountLockout{}, false, err
	}
	return toDomainLockout(rec), created, nil
}

func (r *lockoutRepository) CountByUser(ctx context.Context, userID uuid.UUID) (int, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&accountLockoutModel{}).
		Where("user_id = ?", userID).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return int(count), nil
}

func (r *lockoutRepository) Unlock(ctx context.Context, userID uuid.UUID, unlockedAt time.Time, unlockedBy uuid.UUID) error {
	res := r.db.WithContext(ctx).
		Model(&accountLockoutModel{}).
		Where("user_id = ?", userID).
		Where("unlocked_at IS NULL").
		Updates(map[string]any{
			"unlocked_at": unlockedAt,
			"unlocked_by": unlockedBy,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *lockoutRepository) ListActive(ctx context.Context, now time.Time, limit, offset int) ([]domain.AccountLockout, error) {
	var rows []accountLockoutModel
	err := r.db.WithContext(ctx).
		Where("unlocked_at IS NULL").
		Where("locked_until > ?", now).
		Order("locked_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	result := make([]domain.AccountLockout, 0, len(rows))
	for _, item := range rows {
		result = append(result, toDomainLockout(item))
	}
	return result, nil
}
