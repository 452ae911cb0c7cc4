package postgres

import (
	"gorm.io/gorm"

	"github.com/citadelle/account-security-service/internal/ports"
)

type Repositories struct {
	Policies        ports.PolicyRepository
	Accounts        ports.AccountRepository
	LoginAttempts   ports.LoginAttemptRepository
	Lockouts        ports.LockoutRepository
	Sessions        ports.SessionRepository
	PasswordHistory ports.PasswordHistoryRepository
	ResetTokens     ports.ResetTokenRepository
	Notifications   ports.NotificationRepository
	Routes          ports.NotificationRouteRepository
}

func NewRepositories(db *gorm.DB) Repositories {
	return Repositories{
		Policies:        &policyRepository{db: db},
		Accounts:        &accountRepository{db: db},
		LoginAttempts:   &loginAttemptRepository{db: db},
		Lockouts:        &lockoutRepository{db: db},
		Sessions:        &sessionRepository{db: db},
		PasswordHistory: &passwordHistoryRepository{db: db},
		ResetTokens:     &resetTokenRepository{db: db},
		Notifications:   &notificationRepository{db: db},
		Routes:          &notificationRouteRepository{db: db},
	}
}
