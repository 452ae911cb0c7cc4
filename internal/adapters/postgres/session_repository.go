package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/citadelle/account-security-service/internal/domain"
	"github.com/citadelle/account-security-service/internal/ports"
)

type sessionRepository struct {
	db *gorm.DB
}

func (r *sessionRepository) Create(ctx context.Context, params ports.SessionCreateParams) (domain.UserSession, error) {
	rec := userSessionModel{
		SessionID:         uuid.New(),
		UserID:            params.UserID,
		JTI:               params.JTI,
		IssuedAt:          params.IssuedAt,
		ExpiresAt:         params.ExpiresAt,
		AbsoluteExpiresAt: params.AbsoluteExpiresAt,
		LastActivityAt:    params.IssuedAt,
		DeviceID:          params.DeviceID,
		IPAddress:         nullableString(params.IPAddress),
		UserAgent:         params.UserAgent,
	}
	if err := r.db.WithContext(ctx).Create(&rec).Error; err != nil {
		if isUniqueViolation(err) {
			return domain.UserSession{}, domain.ErrConflict
		}
		return domain.UserSession{}, err
	}
	return toDomainSession(rec), nil
}

func (r *sessionRepository) GetByJTI(ctx context.Context, jti string) (domain.UserSession, error) {
	var rec userSessionModel
	if err := r.db.WithContext(ctx).Where("jti = ?", jti).Take(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.UserSession{}, domain.ErrNotFound
		}
		return domain.UserSession{}, err
	}
	return toDomainSession(rec), nil
}

// ListActiveByUser orders by issuance ascending so the caller's eviction
// policy can take the oldest sessions straight off the front.
func (r *sessionRepository) ListActiveByUser(ctx context.Context, userID uuid.UUID, now time.Time) ([]domain.UserSession, error) {
	var rows []userSessionModel
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Where("revoked_at IS NULL").
		Where("expires_at > ?", now).
		Where("absolute_expires_at > ?", now).
		Order("issued_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	result := make([]domain.UserSession, 0, len(rows))
	for _, item := range rows {
		result = append(result, toDomainSession(item))
	}
	return result, nil
}

func (r *sessionRepository) CountActiveByUser(ctx context.Context, userID uuid.UUID, now time.Time) (int, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&userSessionModel{}).
		Where("user_id = ?", userID).
		Where("revoked_at IS NULL").
		Where("expires_at > ?", now).
		Where("absolute_expires_at > ?", now).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return int(count), nil
}

func (r *sessionRepository) TouchActivity(ctx context.Context, jti string, touchedAt, newExpiresAt time.Time) error {
	res := r.db.WithContext(ctx).
		Model(&userSessionModel{}).
		Where("jti = ?", jti).
		Where("revoked_at IS NULL").
		Updates(map[string]any{
			"last_activity_at": touchedAt,
			"expires_at":       newExpiresAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *sessionRepository) RevokeByJTI(ctx context.Context, jti string, revokedAt time.Time) error {
	res := r.db.WithContext(ctx).
		Model(&userSessionModel{}).
		Where("jti = ?", jti).
		Where("revoked_at IS NULL").
		Update("revoked_at", revokedAt)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		var exists int64
		if err := r.db.WithContext(ctx).Model(&userSessionModel{}).Where("jti = ?", jti).Count(&exists).Error; err != nil {
			return err
		}
		if exists == 0 {
			return domain.ErrNotFound
		}
	}
	return nil
}

func (r *sessionRepository) RevokeAllByUser(ctx context.Context, userID uuid.UUID, revokedAt time.Time, exceptJTI *string) (int, error) {
	query := r.db.WithContext(ctx).
		Model(&userSessionModel{}).
		Where("user_id = ?", userID).
		Where("revoked_at IS NULL")
	if exceptJTI != nil {
		query = query.Where("jti <> ?", *exceptJTI)
	}
	res := query.Update("revoked_at", revokedAt)
	if res.Error != nil {
		return 0, res.Error
	}
	return int(res.RowsAffected), nil
}

func (r *sessionRepository) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	res := r.db.WithContext(ctx).
		Where("expires_at <= ? OR absolute_expires_at <= ?", now, now).
		Delete(&userSessionModel{})
	if res.Error != nil {
		return 0, res.Error
	}
	return int(res.RowsAffected), nil
}
