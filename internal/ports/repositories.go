package ports

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/citadelle/account-security-service/internal/domain"
)

// PolicyRepository reads and administers persisted policy layers.
// FindActive with a nil tenantID returns the system-default row.
type PolicyRepository interface {
	FindActive(ctx context.Context, tenantID *uuid.UUID) (domain.SecurityPolicy, error)
	// Upsert deactivates any currently active row for the same tenant value
	// and inserts the new one in a single transaction, preserving history.
	Upsert(ctx context.Context, policy domain.SecurityPolicy) (domain.SecurityPolicy, error)
	Deactivate(ctx context.Context, policyID uuid.UUID, at time.Time) (domain.SecurityPolicy, error)
	ListByTenant(ctx context.Context, tenantID *uuid.UUID) ([]domain.SecurityPolicy, error)
}

// AccountRepository manages the credential state rows this engine owns.
type AccountRepository interface {
	GetByEmail(ctx context.Context, email string) (domain.Account, error)
	GetByID(ctx context.Context, userID uuid.UUID) (domain.Account, error)
	Create(ctx context.Context, account domain.Account) (domain.Account, error)
	// UpdatePassword sets the hash together with both expiry bookkeeping
	// fields and resets the grace-login counter.
	UpdatePassword(ctx context.Context, userID uuid.UUID, passwordHash string, changedAt time.Time, expiresAt *time.Time) error
	IncrementGraceLogins(ctx context.Context, userID uuid.UUID, at time.Time) (int, error)
}

// LoginAttemptRepository stores the append-only attempt log. Insert must
// surface persistence failures to the caller: failing open on audit logging
// is a security regression.
type LoginAttemptRepository interface {
	Insert(ctx context.Context, attempt domain.LoginAttempt) error
	CountFailedSince(ctx context.Context, userID uuid.UUID, since time.Time) (int, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int, since *time.Time) ([]domain.LoginAttempt, error)
}

// LockoutRepository manages lockout episodes. ApplyIfAbsent is the
// race-tolerant insert: a concurrent duplicate degrades to returning the
// already-active row, never an error.
type LockoutRepository interface {
	ActiveByUser(ctx context.Context, userID uuid.UUID, now time.Time) (domain.AccountLockout, error)
	// ApplyIfAbsent first closes any stale row whose lockout horizon already
	// passed, then inserts the new episode unless an active one exists.
	// The bool reports whether a new row was created by this call.
	ApplyIfAbsent(ctx context.Context, lockout domain.AccountLockout) (domain.AccountLockout, bool, error)
	CountByUser(ctx context.Context, userID uuid.UUID) (int, error)
	Unlock(ctx context.Context, userID uuid.UUID, unlockedAt time.Time, unlockedBy uuid.UUID) error
	ListActive(ctx context.Context, now time.Time, limit, offset int) ([]domain.AccountLockout, error)
}

// SessionCreateParams captures metadata required to create a session record.
// Device and network fields are stored for auditability.
type SessionCreateParams struct {
	UserID            uuid.UUID
	JTI               string
	IssuedAt          time.Time
	ExpiresAt         time.Time
	AbsoluteExpiresAt time.Time
	DeviceID          *string
	IPAddress         string
	UserAgent         string
}

// SessionRepository manages persistent session lifecycle. Revocation is
// idempotent: re-revoking an already revoked session is a no-op.
type SessionRepository interface {
	Create(ctx context.Context, params SessionCreateParams) (domain.UserSession, error)
	GetByJTI(ctx context.Context, jti string) (domain.UserSession, error)
	ListActiveByUser(ctx context.Context, userID uuid.UUID, now time.Time) ([]domain.UserSession, error)
	CountActiveByUser(ctx context.Context, userID uuid.UUID, now time.Time) (int, error)
	TouchActivity(ctx context.Context, jti string, touchedAt, newExpiresAt time.Time) error
	RevokeByJTI(ctx context.Context, jti string, revokedAt time.Time) error
	RevokeAllByUser(ctx context.Context, userID uuid.UUID, revokedAt time.Time, exceptJTI *string) (int, error)
	// DeleteExpired hard-deletes sessions past both expiry clocks. Validity
	// checks never depend on it; it only bounds storage growth.
	DeleteExpired(ctx context.Context, now time.Time) (int, error)
}

// PasswordHistoryRepository persists and prunes historical hashes.
type PasswordHistoryRepository interface {
	// RecordAndPrune inserts the new hash and deletes all but the most
	// recent keep rows for the user as one transaction.
	RecordAndPrune(ctx context.Context, userID uuid.UUID, passwordHash string, keep int, at time.Time) error
	RecentByUser(ctx context.Context, userID uuid.UUID, limit int) ([]domain.PasswordHistory, error)
}

// ResetTokenRepository owns password-reset token lifecycle. GetValid applies
// the validity predicate (unused, unexpired, attempt budget left) and maps
// each failure mode to its own sentinel; maxAttempts <= 0 defers the budget
// check to the caller. Consume is guarded on
// used_at IS NULL so a token stays single-use under concurrent redemption.
type ResetTokenRepository interface {
	Create(ctx context.Context, token domain.PasswordResetToken) error
	GetValid(ctx context.Context, tokenHash string, now time.Time, maxAttempts int) (domain.PasswordResetToken, error)
	Consume(ctx context.Context, tokenID uuid.UUID, usedAt time.Time) error
	// RecordFailedAttempt bumps the attempt counter so the budget in the
	// validity predicate is enforceable.
	RecordFailedAttempt(ctx context.Context, tokenID uuid.UUID) error
}

// NotificationRepository is the queue side of the producer/dispatcher split.
// Claiming mirrors the scheduled-worker pattern: pending due rows are leased
// with a claim token so concurrent dispatchers never double-deliver.
type NotificationRepository interface {
	Enqueue(ctx context.Context, entry domain.NotificationQueueEntry) error
	ClaimDue(ctx context.Context, limit int, claimToken string, claimUntil, now time.Time) ([]domain.NotificationQueueEntry, error)
	MarkSent(ctx context.Context, entryID uuid.UUID, claimToken string, at time.Time) error
	Reschedule(ctx context.Context, entryID uuid.UUID, claimToken, lastError string, nextAttemptAt, at time.Time) error
	MarkFailed(ctx context.Context, entryID uuid.UUID, claimToken, lastError string, at time.Time) error
}

// NotificationRouteRepository reads the administrator-managed routing table.
// EnabledChannels returns ErrNotFound when no route rows exist for the
// tenant and type, and an empty slice when rows exist but all are disabled.
type NotificationRouteRepository interface {
	EnabledChannels(ctx context.Context, tenantID uuid.UUID, notificationType domain.NotificationType) ([]domain.NotificationChannel, error)
}
