package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/citadelle/account-security-service/internal/domain"
)

// QueueNotification fans the event out into one pending queue row per
// enabled channel for this tenant and type. Fan-out happens here, at enqueue
// time, so each channel's retry state stays independent. Delivery itself is
// the external dispatcher's concern; this call is a synchronous insert and
// returns once the rows are durable.
func (s *Service) QueueNotification(ctx context.Context, tenantID uuid.UUID, userID *uuid.UUID, notificationType domain.NotificationType, payload map[string]any, priority domain.NotificationPriority) ([]domain.NotificationQueueEntry, error) {
	channels, err := s.routes.EnabledChannels(ctx, tenantID, notificationType)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		// No routes configured at all; fall back to the deployment default.
		channels = domain.DefaultChannels()
	case err != nil:
		return nil, err
	case len(channels) == 0:
		// Routes exist but every one is disabled. The tenant opted out of
		// this notification type, so nothing is enqueued.
		return nil, nil
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal notification payload: %w", err)
	}

	now := s.nowFn()
	entries := make([]domain.NotificationQueueEntry, 0, len(channels))
	for _, channel := range channels {
		entry := domain.NotificationQueueEntry{
			EntryID:      uuid.New(),
			TenantID:     tenantID,
			UserID:       userID,
			Type:         notificationType,
			Channel:      channel,
			Payload:      raw,
			Priority:     priority,
			Status:       domain.NotificationPending,
			MaxAttempts:  s.cfg.NotificationMaxAttempts,
			ScheduledFor: now,
			CreatedAt:    now,
		}
		if err := s.notifications.Enqueue(ctx, entry); err != nil {
			return entries, fmt.Errorf("enqueue %s notification: %w", channel, err)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// NotifyAccountLocked queues the lockout event at high priority.
func (s *Service) NotifyAccountLocked(ctx context.Context, tenantID, userID uuid.UUID, lockedUntil time.Time, attemptCount int) error {
	_, err := s.QueueNotification(ctx, tenantID, &userID, domain.NotifyAccountLocked, map[string]any{
		"user_id":       userID.String(),
		"locked_until":  lockedUntil.UTC(),
		"attempt_count": attemptCount,
	}, domain.PriorityHigh)
	return err
}

// NotifyPasswordExpiring queues an expiry warning.
func (s *Service) NotifyPasswordExpiring(ctx context.Context, tenantID, userID uuid.UUID, expiresAt time.Time) error {
	_, err := s.QueueNotification(ctx, tenantID, &userID, domain.NotifyPasswordExpiring, map[string]any{
		"user_id":    userID.String(),
		"expires_at": expiresAt.UTC(),
	}, domain.PriorityNormal)
	return err
}

// NotifyPasswordChanged queues the change confirmation.
func (s *Service) NotifyPasswordChanged(ctx context.Context, tenantID, userID uuid.UUID) error {
	_, err := s.QueueNotification(ctx, tenantID, &userID, domain.NotifyPasswordChanged, map[string]any{
		"user_id":    userID.String(),
		"changed_at": s.nowFn(),
	}, domain.PriorityNormal)
	return err
}

// NotifyPasswordReset queues the reset-token delivery. The raw token rides
// in the payload; only its hash is ever persisted on the token row itself.
func (s *Service) NotifyPasswordReset(ctx context.Context, tenantID, userID uuid.UUID, rawToken string, expiresAt time.Time) error {
	_, err := s.QueueNotification(ctx, tenantID, &userID, domain.NotifyPasswordReset, map[string]any{
		"user_id":    userID.String(),
		"token":      rawToken,
		"expires_at": expiresAt.UTC(),
	}, domain.PriorityHigh)
	return err
}
