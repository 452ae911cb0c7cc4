package bootstrap

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/citadelle/account-security-service/internal/domain"
)

// Config is the resolved runtime configuration for the service.
// It merges file defaults and environment overrides to support both local and deployed runs.
type Config struct {
	ServiceID string

	HTTPPort int
	GRPCPort int

	DatabaseURL string
	RedisURL    string

	JWTPrivateKeyPEM  string
	JWTPublicKeyPEM   string
	JWTKeyID          string
	AllowEphemeralJWT bool

	BcryptCost int

	PolicyCacheTTL          time.Duration
	NotificationMaxAttempts int

	DispatchPollInterval time.Duration
	DispatchBatchSize    int
	DispatchClaimTTL     time.Duration

	SessionCleanupInterval time.Duration

	MaxDBConns int32

	// PolicyDefaults is the deployment-level resolution layer, sitting
	// between the persisted system default and code defaults.
	PolicyDefaults domain.SecurityPolicy
}

// configFile mirrors the YAML schema used by configs/default.yaml.
// It is intentionally separate from Config so runtime-only fields stay internal.
type configFile struct {
	Service struct {
		ID       string `yaml:"id"`
		HTTPPort int    `yaml:"http_port"`
		GRPCPort int    `yaml:"grpc_port"`
	} `yaml:"service"`
	Dependencies struct {
		PostgresURL string `yaml:"postgres_url"`
		RedisURL    string `yaml:"redis_url"`
	} `yaml:"dependencies"`
	PolicyDefaults struct {
		MinLength        *int  `yaml:"min_length"`
		MaxLength        *int  `yaml:"max_length"`
		RequireUppercase *bool `yaml:"require_uppercase"`
		RequireLowercase *bool `yaml:"require_lowercase"`
		RequireDigit     *bool `yaml:"require_digit"`
		RequireSpecial   *bool `yaml:"require_special"`
		MinUniqueChars   *int  `yaml:"min_unique_chars"`
		MaxRepeatRun     *int  `yaml:"max_repeat_run"`
		HistoryCount     *int  `yaml:"history_count"`
		ExpirationDays   *int  `yaml:"expiration_days"`
		WarningDays      *int  `yaml:"warning_days"`
		GraceLogins      *int  `yaml:"grace_logins"`

		MaxAttempts           *int    `yaml:"max_attempts"`
		LockoutDurationMin    *int    `yaml:"lockout_duration_min"`
		LockoutType           *string `yaml:"lockout_type"`
		ResetAttemptsAfterMin *int    `yaml:"reset_attempts_after_min"`
		ProgressiveTiersMin   []int   `yaml:"progressive_tiers_min"`

		ResetTokenTTLMin *int `yaml:"reset_token_ttl_min"`
		ResetMaxAttempts *int `yaml:"reset_max_attempts"`

		SessionIdleTimeoutMin     *int  `yaml:"session_idle_timeout_min"`
		SessionAbsoluteTimeoutMin *int  `yaml:"session_absolute_timeout_min"`
		MaxConcurrentSessions     *int  `yaml:"max_concurrent_sessions"`
		TerminateOnPasswordChange *bool `yaml:"terminate_on_password_change"`
	} `yaml:"policy_defaults"`
}

// LoadConfig resolves configuration in priority order: defaults -> file -> env.
// This order keeps local bootstrap simple while allowing environment-specific overrides.
func LoadConfig(path string) (Config, error) {
	cfg := Config{
		ServiceID:               "account-security-service",
		HTTPPort:                8080,
		GRPCPort:                9090,
		JWTKeyID:                "acctsec-key-1",
		AllowEphemeralJWT:       true,
		BcryptCost:              12,
		PolicyCacheTTL:          time.Minute,
		NotificationMaxAttempts: 5,
		DispatchPollInterval:    2 * time.Second,
		DispatchBatchSize:       100,
		DispatchClaimTTL:        30 * time.Second,
		SessionCleanupInterval:  time.Hour,
		MaxDBConns:              20,
	}

	raw, err := os.ReadFile(path)
	if err == nil {
		var f configFile
		if unmarshalErr := yaml.Unmarshal(raw, &f); unmarshalErr != nil {
			return Config{}, fmt.Errorf("parse config file: %w", unmarshalErr)
		}
		if f.Service.ID != "" {
			cfg.ServiceID = f.Service.ID
		}
		if f.Service.HTTPPort > 0 {
			cfg.HTTPPort = f.Service.HTTPPort
		}
		if f.Service.GRPCPort > 0 {
			cfg.GRPCPort = f.Service.GRPCPort
		}
		if f.Dependencies.PostgresURL != "" {
			cfg.DatabaseURL = f.Dependencies.PostgresURL
		}
		if f.Dependencies.RedisURL != "" {
			cfg.RedisURL = f.Dependencies.RedisURL
		}
		cfg.PolicyDefaults = policyDefaultsFromFile(f)
	}

	cfg.DatabaseURL = envOrDefault("DB_URL", envOrDefault("POSTGRES_URL", cfg.DatabaseURL))
	cfg.RedisURL = envOrDefault("REDIS_URL", cfg.RedisURL)
	cfg.JWTPrivateKeyPEM = envOrDefault("JWT_PRIVATE_KEY_PEM", cfg.JWTPrivateKeyPEM)
	cfg.JWTPublicKeyPEM = envOrDefault("JWT_PUBLIC_KEY_PEM", cfg.JWTPublicKeyPEM)
	cfg.JWTKeyID = envOrDefault("JWT_KEY_ID", cfg.JWTKeyID)
	cfg.AllowEphemeralJWT = envBool("JWT_ALLOW_EPHEMERAL", cfg.AllowEphemeralJWT)

	cfg.HTTPPort = envInt("HTTP_PORT", cfg.HTTPPort)
	cfg.GRPCPort = envInt("GRPC_PORT", cfg.GRPCPort)
	cfg.BcryptCost = envInt("BCRYPT_ROUNDS", cfg.BcryptCost)
	cfg.NotificationMaxAttempts = envInt("NOTIFICATION_MAX_ATTEMPTS", cfg.NotificationMaxAttempts)
	cfg.MaxDBConns = int32(envInt("DB_MAX_CONNS", int(cfg.MaxDBConns)))

	cfg.PolicyCacheTTL = time.Duration(envInt("POLICY_CACHE_TTL_SECONDS", int(cfg.PolicyCacheTTL.Seconds()))) * time.Second
	cfg.DispatchPollInterval = time.Duration(envInt("DISPATCH_POLL_SECONDS", int(cfg.DispatchPollInterval.Seconds()))) * time.Second
	cfg.DispatchBatchSize = envInt("DISPATCH_BATCH_SIZE", cfg.DispatchBatchSize)
	cfg.DispatchClaimTTL = time.Duration(envInt("DISPATCH_CLAIM_TTL_SECONDS", int(cfg.DispatchClaimTTL.Seconds()))) * time.Second
	cfg.SessionCleanupInterval = time.Duration(envInt("SESSION_CLEANUP_INTERVAL_SECONDS", int(cfg.SessionCleanupInterval.Seconds()))) * time.Second

	if cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("missing DB_URL/POSTGRES_URL")
	}
	if cfg.RedisURL == "" {
		return Config{}, fmt.Errorf("missing REDIS_URL")
	}
	if (cfg.JWTPrivateKeyPEM == "" || cfg.JWTPublicKeyPEM == "") && !cfg.AllowEphemeralJWT {
		return Config{}, fmt.Errorf("missing JWT_PRIVATE_KEY_PEM or JWT_PUBLIC_KEY_PEM")
	}

	return cfg, nil
}

func policyDefaultsFromFile(f configFile) domain.SecurityPolicy {
	d := f.PolicyDefaults
	policy := domain.SecurityPolicy{
		MinLength:        d.MinLength,
		MaxLength:        d.MaxLength,
		RequireUppercase: d.RequireUppercase,
		RequireLowercase: d.RequireLowercase,
		RequireDigit:     d.RequireDigit,
		RequireSpecial:   d.RequireSpecial,
		MinUniqueChars:   d.MinUniqueChars,
		MaxRepeatRun:     d.MaxRepeatRun,
		HistoryCount:     d.HistoryCount,
		ExpirationDays:   d.ExpirationDays,
		WarningDays:      d.WarningDays,
		GraceLogins:      d.GraceLogins,

		MaxAttempts:           d.MaxAttempts,
		LockoutDurationMin:    d.LockoutDurationMin,
		ResetAttemptsAfterMin: d.ResetAttemptsAfterMin,
		ProgressiveTiersMin:   d.ProgressiveTiersMin,

		ResetTokenTTLMin: d.ResetTokenTTLMin,
		ResetMaxAttempts: d.ResetMaxAttempts,

		SessionIdleTimeoutMin:     d.SessionIdleTimeoutMin,
		SessionAbsoluteTimeoutMin: d.SessionAbsoluteTimeoutMin,
		MaxConcurrentSessions:     d.MaxConcurrentSessions,
		TerminateOnPasswordChange: d.TerminateOnPasswordChange,
	}
	if d.LockoutType != nil {
		lt := domain.LockoutType(*d.LockoutType)
		if lt == domain.LockoutFixed || lt == domain.LockoutProgressive {
			policy.LockoutType = &lt
		}
	}
	return policy
}

// envOrDefault returns an env var when present, otherwise the provided fallback.
func envOrDefault(name, fallback string) string {
	if value := os.Getenv(name); value != "" {
		return value
	}
	return fallback
}

// envInt parses integer env vars with safe fallback on empty/invalid values.
func envInt(name string, fallback int) int {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

// envBool parses common boolean env forms while keeping a deterministic fallback.
func envBool(name string, fallback bool) bool {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	switch raw {
	case "1", "true", "TRUE", "yes", "YES":
		return true
	case "0", "false", "FALSE", "no", "NO":
		return false
	default:
		return fallback
	}
}
