package application

import (
	"context"

	"github.com/google/uuid"

	"github.com/citadelle/account-security-service/internal/domain"
)

// ValidatePassword evaluates every policy rule and returns the complete
// violation list; it never mutates state. When userID is non-nil the user's
// recent password history is checked by re-hashing the candidate against
// each stored hash's parameters, never by reversing hashes.
func (s *Service) ValidatePassword(ctx context.Context, password string, rules domain.PasswordRules, email string, userID *uuid.UUID) ([]domain.Violation, error) {
	violations := domain.CheckPassword(password, rules, email)

	if userID != nil && rules.HistoryCount > 0 {
		recent, err := s.history.RecentByUser(ctx, *userID, rules.HistoryCount)
		if err != nil {
			return nil, err
		}
		for _, entry := range recent {
			if s.hasher.Compare(entry.PasswordHash, password) == nil {
				violations = append(violations, domain.ViolationReusedPassword)
				break
			}
		}
	}

	return violations, nil
}

// ValidatePasswordStrict is the exception-style variant: a non-empty
// violation list becomes a typed *domain.ValidationError.
func (s *Service) ValidatePasswordStrict(ctx context.Context, password string, rules domain.PasswordRules, email string, userID *uuid.UUID) error {
	violations, err := s.ValidatePassword(ctx, password, rules, email, userID)
	if err != nil {
		return err
	}
	if len(violations) > 0 {
		return &domain.ValidationError{Violations: violations}
	}
	return nil
}
