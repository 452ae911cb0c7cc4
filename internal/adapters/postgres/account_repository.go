package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/citadelle/account-security-service/internal/domain"
)

type accountRepository struct {
	db *gorm.DB
}

func (r *accountRepository) GetByEmail(ctx context.Context, email string) (domain.Account, error) {
	var rec accountModel
	if err := r.db.WithContext(ctx).Where("email = ?", email).Take(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Account{}, domain.ErrNotFound
		}
		return domain.Account{}, err
	}
	return toDomainAccount(rec), nil
}

func (r *accountRepository) GetByID(ctx context.Context, userID uuid.UUID) (domain.Account, error) {
	var rec accountModel
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Take(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Account{}, domain.ErrNotFound
		}
		return domain.Account{}, err
	}
	return toDomainAccount(rec), nil
}

func (r *accountRepository) Create(ctx context.Context, account domain.Account) (domain.Account, error) {
	rec := accountModel{
		UserID:            account.UserID,
		TenantID:          account.TenantID,
		Email:             account.Email,
		PasswordHash:      account.PasswordHash,
		PasswordChangedAt: account.PasswordChangedAt,
		PasswordExpiresAt: account.PasswordExpiresAt,
		IsActive:          account.IsActive,
		CreatedAt:         account.CreatedAt,
		UpdatedAt:         account.UpdatedAt,
	}
	if err := r.db.WithContext(ctx).Create(&rec).Error; err != nil {
		if isUniqueViolation(err) {
			return domain.Account{}, domain.ErrConflict
		}
		return domain.Account{}, err
	}
	return toDomainAccount(rec), nil
}

func (r *accountRepository) UpdatePassword(ctx context.Context, userID uuid.UUID, passwordHash string, changedAt time.Time, expiresAt *time.Time) error {
	res := r.db.WithContext(ctx).
		Model(&accountModel{}).
		Where("user_id = ?", userID).
		Updates(map[string]any{
			"password_hash":       passwordHash,
			"password_changed_at": changedAt,
			"password_expires_at": expiresAt,
			"grace_logins_used":   0,
			"updated_at":          changedAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *accountRepository) IncrementGraceLogins(ctx context.Context, userID uuid.UUID, at time.Time) (int, error) {
	var used int
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&accountModel{}).
			Where("user_id = ?", userID).
			Updates(map[string]any{
				"grace_logins_used": gorm.Expr("grace_logins_used + 1"),
				"updated_at":        at,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return domain.ErrNotFound
		}
		return tx.Model(&accountModel{}).
			Select("grace_logins_used").
			Where("user_id = ?", userID).
			Scan(&used).Error
	})
	if err != nil {
		return 0, err
	}
	return used, nil
}
