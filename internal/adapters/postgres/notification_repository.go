package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/citadelle/account-security-service/internal/domain"
)

type notificationRepository struct {
	db *gorm.DB
}

func (r *notificationRepository) Enqueue(ctx context.Context, entry domain.NotificationQueueEntry) error {
	rec := notificationQueueModel{
		EntryID:      entry.EntryID,
		TenantID:     entry.TenantID,
		UserID:       entry.UserID,
		Type:         string(entry.Type),
		Channel:      string(entry.Channel),
		Payload:      string(entry.Payload),
		Priority:     string(entry.Priority),
		Status:       string(entry.Status),
		MaxAttempts:  entry.MaxAttempts,
		ScheduledFor: entry.ScheduledFor,
		CreatedAt:    entry.CreatedAt,
	}
	return r.db.WithContext(ctx).Create(&rec).Error
}

// ClaimDue leases pending due entries to one dispatcher run. The SKIP LOCKED
// subquery keeps concurrent dispatchers off each other's rows; the claim
// token ties the follow-up state transitions to the claim that read them.
func (r *notificationRepository) ClaimDue(ctx context.Context, limit int, claimToken string, claimUntil, now time.Time) ([]domain.NotificationQueueEntry, error) {
	if limit <= 0 {
		return nil, nil
	}
	if claimToken == "" {
		return nil, fmt.Errorf("claim token is required")
	}

	var rows []notificationQueueModel
	if err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		subquery := tx.Model(&notificationQueueModel{}).
			Select("entry_id").
			Where("status = ?", string(domain.NotificationPending)).
			Where("scheduled_for <= ?", now).
			Where("claim_until IS NULL OR claim_until < ?", now).
			Order("CASE priority WHEN 'HIGH' THEN 0 WHEN 'NORMAL' THEN 1 ELSE 2 END ASC, scheduled_for ASC").
			Limit(limit).
			Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"})

		if err := tx.Model(&notificationQueueModel{}).
			Where("entry_id IN (?)", subquery).
			Updates(map[string]any{
				"claim_token": claimToken,
				"claim_until": claimUntil,
			}).Error; err != nil {
			return err
		}

		return tx.Where("claim_token = ?", claimToken).
			Where("status = ?", string(domain.NotificationPending)).
			Order("CASE priority WHEN 'HIGH' THEN 0 WHEN 'NORMAL' THEN 1 ELSE 2 END ASC, scheduled_for ASC").
			Find(&rows).Error
	}); err != nil {
		return nil, err
	}

	result := make([]domain.NotificationQueueEntry, 0, len(rows))
	for _, row := range rows {
		result = append(result, toDomainQueueEntry(row))
	}
	return result, nil
}

func (r *notificationRepository) MarkSent(ctx context.Context, entryID uuid.UUID, claimToken string, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&notificationQueueModel{}).
		Where("entry_id = ?", entryID).
		Where("claim_token = ?", claimToken).
		Updates(map[string]any{
			"status":        string(domain.NotificationSent),
			"sent_at":       at,
			"attempt_count": gorm.Expr("attempt_count + 1"),
			"claim_token":   nil,
			"claim_until":   nil,
		}).Error
}

func (r *notificationRepository) Reschedule(ctx context.Context, entryID uuid.UUID, claimToken, lastError string, nextAttemptAt, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&notificationQueueModel{}).
		Where("entry_id = ?", entryID).
		Where("claim_token = ?", claimToken).
		Updates(map[string]any{
			"attempt_count": gorm.Expr("attempt_count + 1"),
			"last_error":    lastError,
			"scheduled_for": nextAttemptAt,
			"claim_token":   nil,
			"claim_until":   nil,
		}).Error
}

func (r *notificationRepository) MarkFailed(ctx context.Context, entryID uuid.UUID, claimToken, lastError string, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&notificationQueueModel{}).
		Where("entry_id = ?", entryID).
		Where("claim_token = ?", claimToken).
		Updates(map[string]any{
			"status":        string(domain.NotificationFailed),
			"attempt_count": gorm.Expr("attempt_count + 1"),
			"last_error":    lastError,
			"claim_token":   nil,
			"claim_until":   nil,
		}).Error
}

type notificationRouteRepository struct {
	db *gorm.DB
}

// EnabledChannels loads every configured route for the tenant and type and
// filters to the enabled ones in Go. ErrNotFound means no route rows exist
// at all; a tenant that disabled every row gets an empty slice instead, so
// an explicit opt-out is distinguishable from missing configuration.
func (r *notificationRouteRepository) EnabledChannels(ctx context.Context, tenantID uuid.UUID, notificationType domain.NotificationType) ([]domain.NotificationChannel, error) {
	var rows []notificationRouteModel
	err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Where("notification_type = ?", string(notificationType)).
		Order("channel ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, domain.ErrNotFound
	}
	result := make([]domain.NotificationChannel, 0, len(rows))
	for _, item := range rows {
		if item.IsEnabled {
			result = append(result, domain.NotificationChannel(item.Channel))
		}
	}
	return result, nil
}
