package domain

import (
	"time"

	"github.com/google/uuid"
)

// NotificationType identifies the security event being delivered.
type NotificationType string

const (
	NotifyAccountLocked    NotificationType = "ACCOUNT_LOCKED"
	NotifyPasswordExpiring NotificationType = "PASSWORD_EXPIRING"
	NotifyPasswordChanged  NotificationType = "PASSWORD_CHANGED"
	NotifyPasswordReset    NotificationType = "PASSWORD_RESET"
)

// NotificationChannel is a delivery transport. Transports themselves are
// external; this engine only fans queue rows out per channel.
type NotificationChannel string

const (
	ChannelEmail   NotificationChannel = "EMAIL"
	ChannelSMS     NotificationChannel = "SMS"
	ChannelWebhook NotificationChannel = "WEBHOOK"
)

// NotificationPriority orders dispatch; higher ranks drain first.
type NotificationPriority string

const (
	PriorityHigh   NotificationPriority = "HIGH"
	PriorityNormal NotificationPriority = "NORMAL"
	PriorityLow    NotificationPriority = "LOW"
)

// NotificationStatus is the queue-entry lifecycle state.
type NotificationStatus string

const (
	NotificationPending NotificationStatus = "PENDING"
	NotificationSent    NotificationStatus = "SENT"
	NotificationFailed  NotificationStatus = "FAILED"
)

// NotificationQueueEntry is one channel-scoped delivery unit. Fan-out happens
// at enqueue time so each channel's retry state is independent.
type NotificationQueueEntry struct {
	EntryID      uuid.UUID
	TenantID     uuid.UUID
	UserID       *uuid.UUID
	Type         NotificationType
	Channel      NotificationChannel
	Payload      []byte
	Priority     NotificationPriority
	Status       NotificationStatus
	AttemptCount int
	MaxAttempts  int
	ScheduledFor time.Time
	LastError    *string
	CreatedAt    time.Time
	SentAt       *time.Time
}

// NotificationRoute is one enabled tenant/type/channel combination from the
// administrator-managed routing table. Read-only to this engine.
type NotificationRoute struct {
	TenantID uuid.UUID
	Type     NotificationType
	Channel  NotificationChannel
}

// DefaultChannels is the fan-out used when a tenant has no routing rows for
// a type at all.
func DefaultChannels() []NotificationChannel {
	return []NotificationChannel{ChannelEmail}
}
