package postgres

import (
	"time"

	"github.com/google/uuid"
)

type securityPolicyModel struct {
	PolicyID uuid.UUID  `gorm:"column:policy_id;type:uuid;primaryKey"`
	TenantID *uuid.UUID `gorm:"column:tenant_id;type:uuid"`

	MinLength        *int  `gorm:"column:min_length"`
	MaxLength        *int  `gorm:"column:max_length"`
	RequireUppercase *bool `gorm:"column:require_uppercase"`
	RequireLowercase *bool `gorm:"column:require_lowercase"`
	RequireDigit     *bool `gorm:"column:require_digit"`
	RequireSpecial   *bool `gorm:"column:require_special"`
	MinUniqueChars   *int  `gorm:"column:min_unique_chars"`
	MaxRepeatRun     *int  `gorm:"column:max_repeat_run"`
	HistoryCount     *int  `gorm:"column:history_count"`
	ExpirationDays   *int  `gorm:"column:expiration_days"`
	WarningDays      *int  `gorm:"column:warning_days"`
	GraceLogins      *int  `gorm:"column:grace_logins"`

	MaxAttempts           *int    `gorm:"column:max_attempts"`
	LockoutDurationMin    *int    `gorm:"column:lockout_duration_min"`
	LockoutType           *string `gorm:"column:lockout_type"`
	ResetAttemptsAfterMin *int    `gorm:"column:reset_attempts_after_min"`
	ProgressiveTiersMin   *string `gorm:"column:progressive_tiers_min;type:jsonb"`

	ResetTokenTTLMin *int `gorm:"column:reset_token_ttl_min"`
	ResetMaxAttempts *int `gorm:"column:reset_max_attempts"`

	SessionIdleTimeoutMin     *int  `gorm:"column:session_idle_timeout_min"`
	SessionAbsoluteTimeoutMin *int  `gorm:"column:session_absolute_timeout_min"`
	MaxConcurrentSessions     *int  `gorm:"column:max_concurrent_sessions"`
	TerminateOnPasswordChange *bool `gorm:"column:terminate_on_password_change"`

	IsActive  bool      `gorm:"column:is_active"`
	CreatedAt time.Time `gorm:"column:created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (securityPolicyModel) TableName() string { return "security_policies" }

type accountModel struct {
	UserID            uuid.UUID  `gorm:"column:user_id;type:uuid;primaryKey"`
	TenantID          uuid.UUID  `gorm:"column:tenant_id;type:uuid"`
	Email             string     `gorm:"column:email"`
	PasswordHash      string     `gorm:"column:password_hash"`
	PasswordChangedAt *time.Time `gorm:"column:password_changed_at"`
	PasswordExpiresAt *time.Time `gorm:"column:password_expires_at"`
	GraceLoginsUsed   int        `gorm:"column:grace_logins_used"`
	IsActive          bool       `gorm:"column:is_active"`
	CreatedAt         time.Time  `gorm:"column:created_at"`
	UpdatedAt         time.Time  `gorm:"column:updated_at"`
}

func (accountModel) TableName() string { return "accounts" }

type loginAttemptModel struct {
	ID            int64      `gorm:"column:id;primaryKey"`
	UserID        *uuid.UUID `gorm:"column:user_id"`
	Email         string     `gorm:"column:email"`
	Success       bool       `gorm:"column:success"`
	FailureReason string     `gorm:"column:failure_reason"`
	IPAddress     *string    `gorm:"column:ip_address"`
	UserAgent     string     `gorm:"column:user_agent"`
	CreatedAt     time.Time  `gorm:"column:created_at"`
}

func (loginAttemptModel) TableName() string { return "login_attempts" }

type accountLockoutModel struct {
	LockoutID    uuid.UUID  `gorm:"column:lockout_id;type:uuid;primaryKey"`
	UserID       uuid.UUID  `gorm:"column:user_id"`
	LockedAt     time.Time  `gorm:"column:locked_at"`
	LockedUntil  time.Time  `gorm:"column:locked_until"`
	Reason       string     `gorm:"column:reason"`
	AttemptCount int        `gorm:"column:attempt_count"`
	UnlockedAt   *time.Time `gorm:"column:unlocked_at"`
	UnlockedBy   *uuid.UUID `gorm:"column:unlocked_by"`
}

func (accountLockoutModel) TableName() string { return "account_lockouts" }

type userSessionModel struct {
	SessionID         uuid.UUID  `gorm:"column:session_id;type:uuid;primaryKey"`
	UserID            uuid.UUID  `gorm:"column:user_id"`
	JTI               string     `gorm:"column:jti"`
	IssuedAt          time.Time  `gorm:"column:issued_at"`
	ExpiresAt         time.Time  `gorm:"column:expires_at"`
	AbsoluteExpiresAt time.Time  `gorm:"column:absolute_expires_at"`
	LastActivityAt    time.Time  `gorm:"column:last_activity_at"`
	DeviceID          *string    `gorm:"column:device_id"`
	IPAddress         *string    `gorm:"column:ip_address"`
	UserAgent         string     `gorm:"column:user_agent"`
	RevokedAt         *time.Time `gorm:"column:revoked_at"`
}

func (userSessionModel) TableName() string { return "user_sessions" }

type passwordHistoryModel struct {
	ID           int64     `gorm:"column:id;primaryKey"`
	UserID       uuid.UUID `gorm:"column:user_id"`
	PasswordHash string    `gorm:"column:password_hash"`
	CreatedAt    time.Time `gorm:"column:created_at"`
}

func (passwordHistoryModel) TableName() string { return "password_history" }

type passwordResetTokenModel struct {
	TokenID      uuid.UUID  `gorm:"column:token_id;type:uuid;primaryKey"`
	UserID       uuid.UUID  `gorm:"column:user_id"`
	TokenHash    string     `gorm:"column:token_hash"`
	ExpiresAt    time.Time  `gorm:"column:expires_at"`
	UsedAt       *time.Time `gorm:"column:used_at"`
	AttemptCount int        `gorm:"column:attempt_count"`
	CreatedAt    time.Time  `gorm:"column:created_at"`
}

func (passwordResetTokenModel) TableName() string { return "password_reset_tokens" }

type notificationQueueModel struct {
	EntryID      uuid.UUID  `gorm:"column:entry_id;type:uuid;primaryKey"`
	TenantID     uuid.UUID  `gorm:"column:tenant_id;type:uuid"`
	UserID       *uuid.UUID `gorm:"column:user_id"`
	Type         string     `gorm:"column:notification_type"`
	Channel      string     `gorm:"column:channel"`
	Payload      string     `gorm:"column:payload;type:jsonb"`
	Priority     string     `gorm:"column:priority"`
	Status       string     `gorm:"column:status"`
	AttemptCount int        `gorm:"column:attempt_count"`
	MaxAttempts  int        `gorm:"column:max_attempts"`
	ScheduledFor time.Time  `gorm:"column:scheduled_for"`
	LastError    *string    `gorm:"column:last_error"`
	ClaimToken   *string    `gorm:"column:claim_token"`
	ClaimUntil   *time.Time `gorm:"column:claim_until"`
	CreatedAt    time.Time  `gorm:"column:created_at"`
	SentAt       *time.Time `gorm:"column:sent_at"`
}

func (notificationQueueModel) TableName() string { return "notification_queue" }

type notificationRouteModel struct {
	RouteID   uuid.UUID `gorm:"column:route_id;type:uuid;default:gen_random_uuid();primaryKey"`
	TenantID  uuid.UUID `gorm:"column:tenant_id;type:uuid"`
	Type      string    `gorm:"column:notification_type"`
	Channel   string    `gorm:"column:channel"`
	IsEnabled bool      `gorm:"column:is_enabled"`
	CreatedAt time.Time `gorm:"column:created_at"`
}

func (notificationRouteModel) TableName() string { return "notification_routes" }
