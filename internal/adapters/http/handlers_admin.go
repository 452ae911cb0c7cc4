package http

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/citadelle/account-security-service/internal/domain"
)

// policyPayload is the wire shape of one policy layer. Every rule field is
// optional; an absent field inherits from the next resolution layer.
type policyPayload struct {
	PolicyID *uuid.UUID `json:"policy_id,omitempty"`
	TenantID *uuid.UUID `json:"tenant_id,omitempty"`

	MinLength        *int  `json:"min_length,omitempty"`
	MaxLength        *int  `json:"max_length,omitempty"`
	RequireUppercase *bool `json:"require_uppercase,omitempty"`
	RequireLowercase *bool `json:"require_lowercase,omitempty"`
	RequireDigit     *bool `json:"require_digit,omitempty"`
	RequireSpecial   *bool `json:"require_special,omitempty"`
	MinUniqueChars   *int  `json:"min_unique_chars,omitempty"`
	MaxRepeatRun     *int  `json:"max_repeat_run,omitempty"`
	HistoryCount     *int  `json:"history_count,omitempty"`
	ExpirationDays   *int  `json:"expiration_days,omitempty"`
	WarningDays      *int  `json:"warning_days,omitempty"`
	GraceLogins      *int  `json:"grace_logins,omitempty"`

	MaxAttempts           *int    `json:"max_attempts,omitempty"`
	LockoutDurationMin    *int    `json:"lockout_duration_min,omitempty"`
	LockoutType           *string `json:"lockout_type,omitempty"`
	ResetAttemptsAfterMin *int    `json:"reset_attempts_after_min,omitempty"`
	ProgressiveTiersMin   []int   `json:"progressive_tiers_min,omitempty"`

	ResetTokenTTLMin *int `json:"reset_token_ttl_min,omitempty"`
	ResetMaxAttempts *int `json:"reset_max_attempts,omitempty"`

	SessionIdleTimeoutMin     *int  `json:"session_idle_timeout_min,omitempty"`
	SessionAbsoluteTimeoutMin *int  `json:"session_absolute_timeout_min,omitempty"`
	MaxConcurrentSessions     *int  `json:"max_concurrent_sessions,omitempty"`
	TerminateOnPasswordChange *bool `json:"terminate_on_password_change,omitempty"`
}

func (p policyPayload) toDomain() (domain.SecurityPolicy, error) {
	policy := domain.SecurityPolicy{
		TenantID: p.TenantID,

		MinLength:        p.MinLength,
		MaxLength:        p.MaxLength,
		RequireUppercase: p.RequireUppercase,
		RequireLowercase: p.RequireLowercase,
		RequireDigit:     p.RequireDigit,
		RequireSpecial:   p.RequireSpecial,
		MinUniqueChars:   p.MinUniqueChars,
		MaxRepeatRun:     p.MaxRepeatRun,
		HistoryCount:     p.HistoryCount,
		ExpirationDays:   p.ExpirationDays,
		WarningDays:      p.WarningDays,
		GraceLogins:      p.GraceLogins,

		MaxAttempts:           p.MaxAttempts,
		LockoutDurationMin:    p.LockoutDurationMin,
		ResetAttemptsAfterMin: p.ResetAttemptsAfterMin,
		ProgressiveTiersMin:   p.ProgressiveTiersMin,

		ResetTokenTTLMin: p.ResetTokenTTLMin,
		ResetMaxAttempts: p.ResetMaxAttempts,

		SessionIdleTimeoutMin:     p.SessionIdleTimeoutMin,
		SessionAbsoluteTimeoutMin: p.SessionAbsoluteTimeoutMin,
		MaxConcurrentSessions:     p.MaxConcurrentSessions,
		TerminateOnPasswordChange: p.TerminateOnPasswordChange,
	}
	if p.PolicyID != nil {
		policy.PolicyID = *p.PolicyID
	}
	if p.MaxConcurrentSessions != nil && *p.MaxConcurrentSessions < 0 {
		return domain.SecurityPolicy{}, errors.New("max_concurrent_sessions must not be negative")
	}
	if p.LockoutType != nil {
		switch lt := domain.LockoutType(*p.LockoutType); lt {
		case domain.LockoutFixed, domain.LockoutProgressive:
			policy.LockoutType = &lt
		default:
			return domain.SecurityPolicy{}, errors.New("lockout_type must be FIXED or PROGRESSIVE")
		}
	}
	return policy, nil
}

func (h *Handler) listPolicies(w http.ResponseWriter, r *http.Request) {
	var tenantID *uuid.UUID
	if raw := r.URL.Query().Get("tenant_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			writeValidationError(r.Context(), w, "list_policies", errors.New("invalid tenant_id"))
			return
		}
		tenantID = &id
	}
	policies, err := h.service.ListPolicies(r.Context(), tenantID)
	if err != nil {
		writeMappedError(r.Context(), w, "list_policies", err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{"policies": policies})
}

func (h *Handler) upsertPolicy(w http.ResponseWriter, r *http.Request) {
	var payload policyPayload
	if err := decodeBody(r, &payload); err != nil {
		writeValidationError(r.Context(), w, "upsert_policy", err)
		return
	}
	policy, err := payload.toDomain()
	if err != nil {
		writeValidationError(r.Context(), w, "upsert_policy", err)
		return
	}
	stored, err := h.service.UpsertPolicy(r.Context(), policy)
	if err != nil {
		writeMappedError(r.Context(), w, "upsert_policy", err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{"policy": stored})
}

func (h *Handler) deactivatePolicy(w http.ResponseWriter, r *http.Request) {
	policyID, err := uuid.Parse(chi.URLParam(r, "policy_id"))
	if err != nil {
		writeValidationError(r.Context(), w, "deactivate_policy", errors.New("invalid policy_id"))
		return
	}
	if err := h.service.DeactivatePolicy(r.Context(), policyID); err != nil {
		writeMappedError(r.Context(), w, "deactivate_policy", err)
		return
	}
	writeMessage(w, http.StatusOK, "Policy deactivated")
}

func (h *Handler) effectiveConfig(w http.ResponseWriter, r *http.Request) {
	tenantID, err := uuid.Parse(chi.URLParam(r, "tenant_id"))
	if err != nil {
		writeValidationError(r.Context(), w, "effective_config", errors.New("invalid tenant_id"))
		return
	}
	config, err := h.service.EffectiveConfig(r.Context(), tenantID)
	if err != nil {
		writeMappedError(r.Context(), w, "effective_config", err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{"config": config})
}

func (h *Handler) listLockouts(w http.ResponseWriter, r *http.Request) {
	limit := parseIntDefault(r.URL.Query().Get("limit"), 50)
	offset := parseIntDefault(r.URL.Query().Get("offset"), 0)
	lockouts, err := h.service.ListActiveLockouts(r.Context(), limit, offset)
	if err != nil {
		writeMappedError(r.Context(), w, "list_lockouts", err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{"lockouts": lockouts})
}

func (h *Handler) unlockAccount(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(chi.URLParam(r, "user_id"))
	if err != nil {
		writeValidationError(r.Context(), w, "unlock_account", errors.New("invalid user_id"))
		return
	}
	claims, ok := claimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing session claims")
		return
	}
	if err := h.service.AdminUnlock(r.Context(), userID, claims.UserID); err != nil {
		writeMappedError(r.Context(), w, "unlock_account", err)
		return
	}
	writeMessage(w, http.StatusOK, "Account unlocked")
}

func (h *Handler) listUserSessions(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(chi.URLParam(r, "user_id"))
	if err != nil {
		writeValidationError(r.Context(), w, "list_user_sessions", errors.New("invalid user_id"))
		return
	}
	sessions, err := h.service.ListUserSessions(r.Context(), userID)
	if err != nil {
		writeMappedError(r.Context(), w, "list_user_sessions", err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{"sessions": sessions})
}

func (h *Handler) revokeUserSessions(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(chi.URLParam(r, "user_id"))
	if err != nil {
		writeValidationError(r.Context(), w, "revoke_user_sessions", errors.New("invalid user_id"))
		return
	}
	revoked, err := h.service.RevokeAllSessions(r.Context(), userID, nil)
	if err != nil {
		writeMappedError(r.Context(), w, "revoke_user_sessions", err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{"revoked_count": revoked})
}

func (h *Handler) revokeSession(w http.ResponseWriter, r *http.Request) {
	jti := chi.URLParam(r, "jti")
	if jti == "" {
		writeValidationError(r.Context(), w, "revoke_session", errors.New("jti is required"))
		return
	}
	if err := h.service.RevokeSession(r.Context(), jti); err != nil {
		writeMappedError(r.Context(), w, "revoke_session", err)
		return
	}
	writeMessage(w, http.StatusOK, "Session revoked")
}
