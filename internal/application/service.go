package application

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/citadelle/account-security-service/internal/domain"
	"github.com/citadelle/account-security-service/internal/ports"
)

// Service groups the account-security use-cases behind one dependency set.
// All state lives in the persisted entities; the service itself holds no
// mutable shared state, so it is safe for concurrent request-scoped use.
type Service struct {
	cfg           Config
	policies      ports.PolicyRepository
	accounts      ports.AccountRepository
	loginAttempts ports.LoginAttemptRepository
	lockouts      ports.LockoutRepository
	sessions      ports.SessionRepository
	history       ports.PasswordHistoryRepository
	resetTokens   ports.ResetTokenRepository
	notifications ports.NotificationRepository
	routes        ports.NotificationRouteRepository
	policyCache   ports.PolicyCache
	revocations   ports.SessionRevocationStore
	hasher        ports.PasswordHasher
	tokenSigner   ports.TokenSigner
	nowFn         func() time.Time
}

// Config holds runtime tunables plus the deployment-level policy defaults,
// which sit between the system-default row and code defaults in the
// resolution chain.
type Config struct {
	PolicyCacheTTL          time.Duration
	NotificationMaxAttempts int
	PolicyDefaults          domain.SecurityPolicy
}

type Dependencies struct {
	Config        Config
	Policies      ports.PolicyRepository
	Accounts      ports.AccountRepository
	LoginAttempts ports.LoginAttemptRepository
	Lockouts      ports.LockoutRepository
	Sessions      ports.SessionRepository
	History       ports.PasswordHistoryRepository
	ResetTokens   ports.ResetTokenRepository
	Notifications ports.NotificationRepository
	Routes        ports.NotificationRouteRepository
	PolicyCache   ports.PolicyCache
	Revocations   ports.SessionRevocationStore
	Hasher        ports.PasswordHasher
	TokenSigner   ports.TokenSigner
}

func NewService(deps Dependencies) *Service {
	cfg := deps.Config
	if cfg.NotificationMaxAttempts <= 0 {
		cfg.NotificationMaxAttempts = 5
	}
	if cfg.PolicyCacheTTL <= 0 {
		cfg.PolicyCacheTTL = time.Minute
	}
	return &Service{
		cfg:           cfg,
		policies:      deps.Policies,
		accounts:      deps.Accounts,
		loginAttempts: deps.LoginAttempts,
		lockouts:      deps.Lockouts,
		sessions:      deps.Sessions,
		history:       deps.History,
		resetTokens:   deps.ResetTokens,
		notifications: deps.Notifications,
		routes:        deps.Routes,
		policyCache:   deps.PolicyCache,
		revocations:   deps.Revocations,
		hasher:        deps.Hasher,
		tokenSigner:   deps.TokenSigner,
		nowFn:         func() time.Time { return time.Now().UTC() },
	}
}

func normalizeEmail(email string) (string, error) {
	trimmed := strings.ToLower(strings.TrimSpace(email))
	if trimmed == "" {
		return "", fmt.Errorf("%w: email is required", domain.ErrInvalidInput)
	}
	if _, err := mail.ParseAddress(trimmed); err != nil {
		return "", fmt.Errorf("%w: invalid email", domain.ErrInvalidInput)
	}
	return trimmed, nil
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(token)))
	return hex.EncodeToString(sum[:])
}

func randomHex(bytesLen int) string {
	raw := make([]byte, bytesLen)
	_, _ = rand.Read(raw)
	return hex.EncodeToString(raw)
}
