package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/citadelle/account-security-service/internal/domain"
)

type resetTokenRepository struct {
	db *gorm.DB
}

func (r *resetTokenRepository) Create(ctx context.Context, token domain.PasswordResetToken) error {
	rec := passwordResetTokenModel{
		TokenID:   token.TokenID,
		UserID:    token.UserID,
		TokenHash: token.TokenHash,
		ExpiresAt: token.ExpiresAt,
		CreatedAt: token.CreatedAt,
	}
	return r.db.WithContext(ctx).Create(&rec).Error
}

// GetValid looks the token up by hash and applies the validity predicate.
// Unknown and already-used hashes both map to ErrNotFound so a caller cannot
// distinguish them; a present but dead token gets its specific sentinel.
func (r *resetTokenRepository) GetValid(ctx context.Context, tokenHash string, now time.Time, maxAttempts int) (domain.PasswordResetToken, error) {
	var rec passwordResetTokenModel
	if err := r.db.WithContext(ctx).Where("token_hash = ?", tokenHash).Take(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.PasswordResetToken{}, domain.ErrNotFound
		}
		return domain.PasswordResetToken{}, err
	}
	token := toDomainResetToken(rec)
	switch {
	case token.UsedAt != nil:
		return domain.PasswordResetToken{}, domain.ErrNotFound
	case !now.Before(token.ExpiresAt):
		return domain.PasswordResetToken{}, domain.ErrTokenExpired
	case maxAttempts > 0 && token.AttemptCount >= maxAttempts:
		return domain.PasswordResetToken{}, domain.ErrTokenExhausted
	}
	return token, nil
}

// Consume is guarded on used_at IS NULL so a token stays single-use when two
// redemptions race; the loser gets ErrNotFound.
func (r *resetTokenRepository) Consume(ctx context.Context, tokenID uuid.UUID, usedAt time.Time) error {
	res := r.db.WithContext(ctx).
		Model(&passwordResetTokenModel{}).
		Where("token_id = ?", tokenID).
		Where("used_at IS NULL").
		Update("used_at", usedAt)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *resetTokenRepository) RecordFailedAttempt(ctx context.Context, tokenID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&passwordResetTokenModel{}).
		Where("token_id = ?", tokenID).
		Update("attempt_count", gorm.Expr("attempt_count + 1")).Error
}
