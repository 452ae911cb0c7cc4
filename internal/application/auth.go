package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/citadelle/account-security-service/internal/domain"
	"github.com/citadelle/account-security-service/internal/ports"
)

// Login runs the full authentication sequence: resolve the tenant config,
// pre-check lockout, verify credentials, record the attempt, apply lockout
// on threshold, evaluate password age, create the session, and queue the
// relevant notifications. The lockout pre-check runs before credential
// verification so locked accounts never leak a password-correctness signal.
func (s *Service) Login(ctx context.Context, req LoginRequest) (LoginResponse, error) {
	email, err := normalizeEmail(req.Email)
	if err != nil {
		return LoginResponse{}, err
	}

	account, err := s.accounts.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			// Unknown emails still land in the attempt log, with a nil user
			// id, for rate visibility without account enumeration.
			if logErr := s.RecordLoginAttempt(ctx, nil, email, false, "USER_NOT_FOUND", req.IPAddress, req.UserAgent); logErr != nil {
				return LoginResponse{}, fmt.Errorf("record login attempt: %w", logErr)
			}
			return LoginResponse{}, domain.ErrInvalidCredentials
		}
		return LoginResponse{}, err
	}

	config, err := s.ResolveConfig(ctx, account.TenantID)
	if err != nil {
		return LoginResponse{}, err
	}

	locked, lockedUntil, err := s.IsAccountLocked(ctx, account.UserID)
	if err != nil {
		return LoginResponse{}, err
	}
	if locked {
		return LoginResponse{}, &domain.LockedError{LockedUntil: *lockedUntil}
	}

	if !account.IsActive {
		if logErr := s.RecordLoginAttempt(ctx, &account.UserID, email, false, "ACCOUNT_INACTIVE", req.IPAddress, req.UserAgent); logErr != nil {
			return LoginResponse{}, fmt.Errorf("record login attempt: %w", logErr)
		}
		return LoginResponse{}, domain.ErrInvalidCredentials
	}

	if err := s.hasher.Compare(account.PasswordHash, req.Password); err != nil {
		if logErr := s.RecordLoginAttempt(ctx, &account.UserID, email, false, "INVALID_PASSWORD", req.IPAddress, req.UserAgent); logErr != nil {
			return LoginResponse{}, fmt.Errorf("record login attempt: %w", logErr)
		}
		decision, lockErr := s.CheckAndApplyLockout(ctx, account.UserID, config.Lockout)
		if lockErr != nil {
			return LoginResponse{}, lockErr
		}
		if decision.NewlyApplied {
			if notifyErr := s.NotifyAccountLocked(ctx, account.TenantID, account.UserID, *decision.LockedUntil, config.Lockout.MaxAttempts); notifyErr != nil {
				s.logNotifyFailure(ctx, "login", account.UserID, notifyErr)
			}
		}
		if decision.Locked {
			return LoginResponse{}, &domain.LockedError{LockedUntil: *decision.LockedUntil}
		}
		return LoginResponse{}, domain.ErrInvalidCredentials
	}

	if err := s.ResetFailedAttempts(ctx, account.UserID, email, req.IPAddress, req.UserAgent); err != nil {
		return LoginResponse{}, fmt.Errorf("record login attempt: %w", err)
	}

	response := LoginResponse{PasswordState: account.PasswordExpiry(config.Password, s.nowFn())}
	switch response.PasswordState {
	case domain.PasswordExpired:
		if config.Password.GraceLogins <= 0 || account.GraceLoginsUsed >= config.Password.GraceLogins {
			return LoginResponse{}, domain.ErrPasswordExpired
		}
		used, err := s.accounts.IncrementGraceLogins(ctx, account.UserID, s.nowFn())
		if err != nil {
			return LoginResponse{}, err
		}
		response.GraceLoginsLeft = config.Password.GraceLogins - used
	case domain.PasswordExpiring:
		if account.PasswordExpiresAt != nil {
			if notifyErr := s.NotifyPasswordExpiring(ctx, account.TenantID, account.UserID, *account.PasswordExpiresAt); notifyErr != nil {
				s.logNotifyFailure(ctx, "login", account.UserID, notifyErr)
			}
		}
	}

	jti := uuid.NewString()
	session, err := s.CreateSession(ctx, account.UserID, jti, config.Session, SessionInput{
		DeviceID:  req.DeviceID,
		IPAddress: req.IPAddress,
		UserAgent: req.UserAgent,
	})
	if err != nil {
		return LoginResponse{}, err
	}

	token, err := s.tokenSigner.Sign(ports.SessionClaims{
		UserID:    account.UserID,
		TenantID:  account.TenantID,
		Email:     account.Email,
		JTI:       jti,
		IssuedAt:  session.IssuedAt,
		ExpiresAt: session.ExpiresAt,
	})
	if err != nil {
		return LoginResponse{}, fmt.Errorf("sign token: %w", err)
	}

	response.Token = token
	response.JTI = jti
	response.ExpiresIn = int64(config.Session.IdleTimeout.Seconds())
	return response, nil
}

// ChangePassword verifies the current credential, validates the candidate
// against the full policy (history included), records the change, sweeps
// other sessions when the policy demands it, and queues the confirmation.
func (s *Service) ChangePassword(ctx context.Context, req ChangePasswordRequest) error {
	account, err := s.accounts.GetByID(ctx, req.UserID)
	if err != nil {
		return err
	}
	config, err := s.ResolveConfig(ctx, account.TenantID)
	if err != nil {
		return err
	}

	if err := s.hasher.Compare(account.PasswordHash, req.CurrentPassword); err != nil {
		return domain.ErrInvalidCredentials
	}

	if err := s.ValidatePasswordStrict(ctx, req.NewPassword, config.Password, account.Email, &account.UserID); err != nil {
		return err
	}

	newHash, err := s.hasher.Hash(req.NewPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.RecordPasswordChange(ctx, account.UserID, newHash, config.Password); err != nil {
		return err
	}

	if config.Session.TerminateOnPasswordChange {
		if _, err := s.RevokeAllSessions(ctx, account.UserID, req.CurrentJTI); err != nil {
			return err
		}
	}

	if notifyErr := s.NotifyPasswordChanged(ctx, account.TenantID, account.UserID); notifyErr != nil {
		s.logNotifyFailure(ctx, "change_password", account.UserID, notifyErr)
	}
	return nil
}

// RequestPasswordReset issues a reset token and queues its delivery. The
// response is identical for unknown emails so existence is not leaked.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) error {
	normalized, err := normalizeEmail(email)
	if err != nil {
		return err
	}

	account, err := s.accounts.GetByEmail(ctx, normalized)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil
		}
		return err
	}

	config, err := s.ResolveConfig(ctx, account.TenantID)
	if err != nil {
		return err
	}

	rawToken := randomHex(32)
	now := s.nowFn()
	expiresAt := now.Add(config.Reset.TokenTTL)
	if err := s.resetTokens.Create(ctx, domain.PasswordResetToken{
		TokenID:   uuid.New(),
		UserID:    account.UserID,
		TokenHash: hashToken(rawToken),
		ExpiresAt: expiresAt,
		CreatedAt: now,
	}); err != nil {
		return err
	}

	if notifyErr := s.NotifyPasswordReset(ctx, account.TenantID, account.UserID, rawToken, expiresAt); notifyErr != nil {
		s.logNotifyFailure(ctx, "request_password_reset", account.UserID, notifyErr)
	}
	return nil
}

// ResetPassword redeems a reset token. The token is consumed only after the
// candidate passes validation; a rejected candidate burns one attempt from
// the token's budget instead of the token itself.
func (s *Service) ResetPassword(ctx context.Context, req ResetPasswordRequest) error {
	if req.Token == "" {
		return fmt.Errorf("%w: token is required", domain.ErrInvalidInput)
	}

	// The attempt budget is per tenant, and the tenant is unknown until the
	// token resolves to an account. The lookup therefore checks only expiry
	// and single-use; the budget is applied below once the tenant's
	// configuration is resolved.
	token, err := s.resetTokens.GetValid(ctx, hashToken(req.Token), s.nowFn(), 0)
	if err != nil {
		return err
	}

	account, err := s.accounts.GetByID(ctx, token.UserID)
	if err != nil {
		return err
	}
	config, err := s.ResolveConfig(ctx, account.TenantID)
	if err != nil {
		return err
	}
	if !token.IsValid(s.nowFn(), config.Reset.MaxAttempts) {
		return domain.ErrTokenExhausted
	}

	if err := s.ValidatePasswordStrict(ctx, req.NewPassword, config.Password, account.Email, &account.UserID); err != nil {
		var validation *domain.ValidationError
		if errors.As(err, &validation) {
			_ = s.resetTokens.RecordFailedAttempt(ctx, token.TokenID)
		}
		return err
	}

	if err := s.resetTokens.Consume(ctx, token.TokenID, s.nowFn()); err != nil {
		return err
	}

	newHash, err := s.hasher.Hash(req.NewPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.RecordPasswordChange(ctx, account.UserID, newHash, config.Password); err != nil {
		return err
	}

	// A reset always sweeps every session: the actor proving control of the
	// recovery channel may not be the actor holding the sessions.
	if _, err := s.RevokeAllSessions(ctx, account.UserID, nil); err != nil {
		return err
	}

	if notifyErr := s.NotifyPasswordChanged(ctx, account.TenantID, account.UserID); notifyErr != nil {
		s.logNotifyFailure(ctx, "reset_password", account.UserID, notifyErr)
	}
	return nil
}

// ValidateToken verifies token integrity and live session state. Session
// state is re-checked on every call to support immediate revocation and the
// absolute expiry ceiling.
func (s *Service) ValidateToken(ctx context.Context, token string) (ports.SessionClaims, error) {
	claims, err := s.tokenSigner.ParseAndValidate(token)
	if err != nil {
		return ports.SessionClaims{}, domain.ErrSessionInvalid
	}
	valid, err := s.IsSessionValid(ctx, claims.JTI)
	if err != nil {
		return ports.SessionClaims{}, err
	}
	if !valid {
		return ports.SessionClaims{}, domain.ErrSessionInvalid
	}
	return claims, nil
}

func (s *Service) logNotifyFailure(ctx context.Context, operation string, userID uuid.UUID, err error) {
	// Notification enqueue failures never fail the triggering action, but
	// they are not allowed to vanish either.
	slog.Default().ErrorContext(ctx, "notification enqueue failed",
		"module", "application",
		"layer", "application",
		"operation", operation,
		"outcome", "degraded",
		"user_id", userID,
		"error", err,
	)
}
