package application

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/citadelle/account-security-service/internal/domain"
	"github.com/citadelle/account-security-service/internal/ports"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fixture struct {
	service     *Service
	clock       *fakeClock
	policies    *fakePolicyRepo
	accounts    *fakeAccountRepo
	attempts    *fakeLoginAttemptRepo
	lockouts    *fakeLockoutRepo
	sessions    *fakeSessionRepo
	history     *fakeHistoryRepo
	tokens      *fakeResetTokenRepo
	queue       *fakeNotificationRepo
	routes      *fakeRouteRepo
	cache       *fakePolicyCache
	revocations *fakeRevocationStore
	signer      *fakeSigner
}

func newFixture() *fixture {
	clock := &fakeClock{now: time.Date(2026, time.March, 1, 9, 0, 0, 0, time.UTC)}
	f := &fixture{
		clock:       clock,
		policies:    &fakePolicyRepo{},
		accounts:    &fakeAccountRepo{byID: map[uuid.UUID]domain.Account{}},
		attempts:    &fakeLoginAttemptRepo{},
		lockouts:    &fakeLockoutRepo{},
		sessions:    &fakeSessionRepo{byJTI: map[string]domain.UserSession{}},
		history:     &fakeHistoryRepo{},
		tokens:      &fakeResetTokenRepo{byID: map[uuid.UUID]domain.PasswordResetToken{}},
		queue:       &fakeNotificationRepo{},
		routes:      &fakeRouteRepo{channels: map[string][]domain.NotificationChannel{}},
		cache:       &fakePolicyCache{entries: map[uuid.UUID]domain.SecurityConfig{}},
		revocations: &fakeRevocationStore{revoked: map[string]bool{}},
		signer:      &fakeSigner{claims: map[string]ports.SessionClaims{}},
	}

	f.service = NewService(Dependencies{
		Config: Config{
			PolicyCacheTTL:          time.Minute,
			NotificationMaxAttempts: 5,
		},
		Policies:      f.policies,
		Accounts:      f.accounts,
		LoginAttempts: f.attempts,
		Lockouts:      f.lockouts,
		Sessions:      f.sessions,
		History:       f.history,
		ResetTokens:   f.tokens,
		Notifications: f.queue,
		Routes:        f.routes,
		PolicyCache:   f.cache,
		Revocations:   f.revocations,
		Hasher:        &fakeHasher{},
		TokenSigner:   f.signer,
	})
	f.service.nowFn = clock.Now
	return f
}

func (f *fixture) seedAccount(t *testing.T, email, password string) domain.Account {
	t.Helper()
	now := f.clock.Now()
	account := domain.Account{
		UserID:       uuid.New(),
		TenantID:     uuid.New(),
		Email:        email,
		PasswordHash: fakeHash(password),
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	f.accounts.mu.Lock()
	f.accounts.byID[account.UserID] = account
	f.accounts.mu.Unlock()
	return account
}

func fakeHash(password string) string { return "bcrypt$" + password }

type fakeHasher struct{}

func (fakeHasher) Hash(password string) (string, error) { return fakeHash(password), nil }

func (fakeHasher) Compare(hash, password string) error {
	if hash != fakeHash(password) {
		return errors.New("hash mismatch")
	}
	return nil
}

type fakeSigner struct {
	mu     sync.Mutex
	claims map[string]ports.SessionClaims
}

func (s *fakeSigner) Sign(claims ports.SessionClaims) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	token := "signed." + claims.JTI
	s.claims[token] = claims
	return token, nil
}

func (s *fakeSigner) ParseAndValidate(token string) (ports.SessionClaims, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	claims, ok := s.claims[token]
	if !ok {
		return ports.SessionClaims{}, errors.New("unknown token")
	}
	return claims, nil
}

type fakePolicyRepo struct {
	mu   sync.Mutex
	rows []domain.SecurityPolicy
}

func sameTenant(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func (r *fakePolicyRepo) FindActive(_ context.Context, tenantID *uuid.UUID) (domain.SecurityPolicy, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, row := range r.rows {
		if row.IsActive && sameTenant(row.TenantID, tenantID) {
			return row, nil
		}
	}
	return domain.SecurityPolicy{}, domain.ErrPolicyNotFound
}

func (r *fakePolicyRepo) Upsert(_ context.Context, policy domain.SecurityPolicy) (domain.SecurityPolicy, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.rows {
		if r.rows[i].IsActive && sameTenant(r.rows[i].TenantID, policy.TenantID) {
			r.rows[i].IsActive = false
		}
	}
	r.rows = append(r.rows, policy)
	return policy, nil
}

func (r *fakePolicyRepo) Deactivate(_ context.Context, policyID uuid.UUID, at time.Time) (domain.SecurityPolicy, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.rows {
		if r.rows[i].PolicyID == policyID {
			r.rows[i].IsActive = false
			r.rows[i].UpdatedAt = at
			return r.rows[i], nil
		}
	}
	return domain.SecurityPolicy{}, domain.ErrPolicyNotFound
}

func (r *fakePolicyRepo) ListByTenant(_ context.Context, tenantID *uuid.UUID) ([]domain.SecurityPolicy, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.SecurityPolicy
	for _, row := range r.rows {
		if tenantID == nil || sameTenant(row.TenantID, tenantID) {
			out = append(out, row)
		}
	}
	return out, nil
}

type fakeAccountRepo struct {
	mu   sync.Mutex
	byID map[uuid.UUID]domain.Account
}

func (r *fakeAccountRepo) GetByEmail(_ context.Context, email string) (domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.byID {
		if a.Email == email {
			return a, nil
		}
	}
	return domain.Account{}, domain.ErrNotFound
}

func (r *fakeAccountRepo) GetByID(_ context.Context, userID uuid.UUID) (domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.byID[userID]
	if !ok {
		return domain.Account{}, domain.ErrNotFound
	}
	return a, nil
}

func (r *fakeAccountRepo) Create(_ context.Context, account domain.Account) (domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.byID {
		if a.Email == account.Email {
			return domain.Account{}, domain.ErrConflict
		}
	}
	r.byID[account.UserID] = account
	return account, nil
}

func (r *fakeAccountRepo) UpdatePassword(_ context.Context, userID uuid.UUID, passwordHash string, changedAt time.Time, expiresAt *time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.byID[userID]
	if !ok {
		return domain.ErrNotFound
	}
	a.PasswordHash = passwordHash
	a.PasswordChangedAt = &changedAt
	a.PasswordExpiresAt = expiresAt
	a.GraceLoginsUsed = 0
	a.UpdatedAt = changedAt
	r.byID[userID] = a
	return nil
}

func (r *fakeAccountRepo) IncrementGraceLogins(_ context.Context, userID uuid.UUID, at time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.byID[userID]
	if !ok {
		return 0, domain.ErrNotFound
	}
	a.GraceLoginsUsed++
	a.UpdatedAt = at
	r.byID[userID] = a
	return a.GraceLoginsUsed, nil
}

type fakeLoginAttemptRepo struct {
	mu      sync.Mutex
	rows    []domain.LoginAttempt
	failErr error
}

func (r *fakeLoginAttemptRepo) Insert(_ context.Context, attempt domain.LoginAttempt) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failErr != nil {
		return r.failErr
	}
	attempt.ID = int64(len(r.rows) + 1)
	r.rows = append(r.rows, attempt)
	return nil
}

func (r *fakeLoginAttemptRepo) CountFailedSince(_ context.Context, userID uuid.UUID, since time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, a := range r.rows {
		if a.UserID != nil && *a.UserID == userID && !a.Success && !a.CreatedAt.Before(since) {
			count++
		}
	}
	return count, nil
}

func (r *fakeLoginAttemptRepo) ListByUser(_ context.Context, userID uuid.UUID, limit, offset int, since *time.Time) ([]domain.LoginAttempt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.LoginAttempt
	for _, a := range r.rows {
		if a.UserID == nil || *a.UserID != userID {
			continue
		}
		if since != nil && a.CreatedAt.Before(*since) {
			continue
		}
		out = append(out, a)
	}
	if offset < len(out) {
		out = out[offset:]
	} else {
		out = nil
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *fakeLoginAttemptRepo) lastForUser(userID uuid.UUID) (domain.LoginAttempt, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.rows) - 1; i >= 0; i-- {
		if r.rows[i].UserID != nil && *r.rows[i].UserID == userID {
			return r.rows[i], true
		}
	}
	return domain.LoginAttempt{}, false
}

type fakeLockoutRepo struct {
	mu        sync.Mutex
	rows      []domain.AccountLockout
	activeErr error
}

func (r *fakeLockoutRepo) ActiveByUser(_ context.Context, userID uuid.UUID, now time.Time) (domain.AccountLockout, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.activeErr != nil {
		return domain.AccountLockout{}, r.activeErr
	}
	for _, l := range r.rows {
		if l.UserID == userID && l.IsActive(now) {
			return l, nil
		}
	}
	return domain.AccountLockout{}, domain.ErrNotFound
}

func (r *fakeLockoutRepo) ApplyIfAbsent(_ context.Context, lockout domain.AccountLockout) (domain.AccountLockout, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.rows {
		if r.rows[i].UserID != lockout.UserID || r.rows[i].UnlockedAt != nil {
			continue
		}
		if r.rows[i].LockedUntil.After(lockout.LockedAt) {
			return r.rows[i], false, nil
		}
		closedAt := lockout.LockedAt
		r.rows[i].UnlockedAt = &closedAt
	}
	r.rows = append(r.rows, lockout)
	return lockout, true, nil
}

func (r *fakeLockoutRepo) CountByUser(_ context.Context, userID uuid.UUID) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, l := range r.rows {
		if l.UserID == userID {
			count++
		}
	}
	return count, nil
}

func (r *fakeLockoutRepo) Unlock(_ context.Context, userID uuid.UUID, unlockedAt time.Time, unlockedBy uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	unlocked := false
	for i := range r.rows {
		if r.rows[i].UserID == userID && r.rows[i].UnlockedAt == nil {
			at := unlockedAt
			by := unlockedBy
			r.rows[i].UnlockedAt = &at
			r.rows[i].UnlockedBy = &by
			unlocked = true
		}
	}
	if !unlocked {
		return domain.ErrNotFound
	}
	return nil
}

func (r *fakeLockoutRepo) ListActive(_ context.Context, now time.Time, limit, offset int) ([]domain.AccountLockout, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.AccountLockout
	for _, l := range r.rows {
		if l.IsActive(now) {
			out = append(out, l)
		}
	}
	if offset < len(out) {
		out = out[offset:]
	} else {
		out = nil
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type fakeSessionRepo struct {
	mu    sync.Mutex
	byJTI map[string]domain.UserSession
}

func (r *fakeSessionRepo) Create(_ context.Context, params ports.SessionCreateParams) (domain.UserSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byJTI[params.JTI]; ok {
		return domain.UserSession{}, domain.ErrConflict
	}
	session := domain.UserSession{
		SessionID:         uuid.New(),
		UserID:            params.UserID,
		JTI:               params.JTI,
		IssuedAt:          params.IssuedAt,
		ExpiresAt:         params.ExpiresAt,
		AbsoluteExpiresAt: params.AbsoluteExpiresAt,
		LastActivityAt:    params.IssuedAt,
		DeviceID:          params.DeviceID,
		IPAddress:         params.IPAddress,
		UserAgent:         params.UserAgent,
	}
	r.byJTI[params.JTI] = session
	return session, nil
}

func (r *fakeSessionRepo) GetByJTI(_ context.Context, jti string) (domain.UserSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	session, ok := r.byJTI[jti]
	if !ok {
		return domain.UserSession{}, domain.ErrNotFound
	}
	return session, nil
}

func (r *fakeSessionRepo) ListActiveByUser(_ context.Context, userID uuid.UUID, now time.Time) ([]domain.UserSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.UserSession
	for _, s := range r.byJTI {
		if s.UserID == userID && s.IsActive(now) {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].IssuedAt.Before(out[j].IssuedAt) })
	return out, nil
}

func (r *fakeSessionRepo) CountActiveByUser(ctx context.Context, userID uuid.UUID, now time.Time) (int, error) {
	active, err := r.ListActiveByUser(ctx, userID, now)
	if err != nil {
		return 0, err
	}
	return len(active), nil
}

func (r *fakeSessionRepo) TouchActivity(_ context.Context, jti string, touchedAt, newExpiresAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	session, ok := r.byJTI[jti]
	if !ok || session.RevokedAt != nil {
		return domain.ErrNotFound
	}
	session.LastActivityAt = touchedAt
	session.ExpiresAt = newExpiresAt
	r.byJTI[jti] = session
	return nil
}

func (r *fakeSessionRepo) RevokeByJTI(_ context.Context, jti string, revokedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	session, ok := r.byJTI[jti]
	if !ok {
		return domain.ErrNotFound
	}
	if session.RevokedAt != nil {
		return nil
	}
	at := revokedAt
	session.RevokedAt = &at
	r.byJTI[jti] = session
	return nil
}

func (r *fakeSessionRepo) RevokeAllByUser(_ context.Context, userID uuid.UUID, revokedAt time.Time, exceptJTI *string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	revoked := 0
	for jti, session := range r.byJTI {
		if session.UserID != userID || session.RevokedAt != nil {
			continue
		}
		if exceptJTI != nil && jti == *exceptJTI {
			continue
		}
		at := revokedAt
		session.RevokedAt = &at
		r.byJTI[jti] = session
		revoked++
	}
	return revoked, nil
}

func (r *fakeSessionRepo) DeleteExpired(_ context.Context, now time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	deleted := 0
	for jti, session := range r.byJTI {
		if !now.Before(session.ExpiresAt) || !now.Before(session.AbsoluteExpiresAt) {
			delete(r.byJTI, jti)
			deleted++
		}
	}
	return deleted, nil
}

type fakeHistoryRepo struct {
	mu   sync.Mutex
	rows []domain.PasswordHistory
}

func (r *fakeHistoryRepo) RecordAndPrune(_ context.Context, userID uuid.UUID, passwordHash string, keep int, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows = append(r.rows, domain.PasswordHistory{
		ID:           int64(len(r.rows) + 1),
		UserID:       userID,
		PasswordHash: passwordHash,
		CreatedAt:    at,
	})
	if keep <= 0 {
		keep = 1
	}
	var userRows []int
	for i, h := range r.rows {
		if h.UserID == userID {
			userRows = append(userRows, i)
		}
	}
	if excess := len(userRows) - keep; excess > 0 {
		drop := map[int]bool{}
		for _, i := range userRows[:excess] {
			drop[i] = true
		}
		kept := r.rows[:0]
		for i, h := range r.rows {
			if !drop[i] {
				kept = append(kept, h)
			}
		}
		r.rows = kept
	}
	return nil
}

func (r *fakeHistoryRepo) RecentByUser(_ context.Context, userID uuid.UUID, limit int) ([]domain.PasswordHistory, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.PasswordHistory
	for i := len(r.rows) - 1; i >= 0; i-- {
		if r.rows[i].UserID != userID {
			continue
		}
		out = append(out, r.rows[i])
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

type fakeResetTokenRepo struct {
	mu   sync.Mutex
	byID map[uuid.UUID]domain.PasswordResetToken
}

func (r *fakeResetTokenRepo) Create(_ context.Context, token domain.PasswordResetToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[token.TokenID] = token
	return nil
}

func (r *fakeResetTokenRepo) GetValid(_ context.Context, tokenHash string, now time.Time, maxAttempts int) (domain.PasswordResetToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.byID {
		if t.TokenHash != tokenHash {
			continue
		}
		if t.UsedAt != nil {
			return domain.PasswordResetToken{}, domain.ErrNotFound
		}
		if !now.Before(t.ExpiresAt) {
			return domain.PasswordResetToken{}, domain.ErrTokenExpired
		}
		if maxAttempts > 0 && t.AttemptCount >= maxAttempts {
			return domain.PasswordResetToken{}, domain.ErrTokenExhausted
		}
		return t, nil
	}
	return domain.PasswordResetToken{}, domain.ErrNotFound
}

func (r *fakeResetTokenRepo) Consume(_ context.Context, tokenID uuid.UUID, usedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.byID[tokenID]
	if !ok || t.UsedAt != nil {
		return domain.ErrNotFound
	}
	at := usedAt
	t.UsedAt = &at
	r.byID[tokenID] = t
	return nil
}

func (r *fakeResetTokenRepo) RecordFailedAttempt(_ context.Context, tokenID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.byID[tokenID]
	if !ok {
		return domain.ErrNotFound
	}
	t.AttemptCount++
	r.byID[tokenID] = t
	return nil
}

func (r *fakeResetTokenRepo) only() (domain.PasswordResetToken, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.byID) != 1 {
		return domain.PasswordResetToken{}, false
	}
	for _, t := range r.byID {
		return t, true
	}
	return domain.PasswordResetToken{}, false
}

type fakeNotificationRepo struct {
	mu      sync.Mutex
	entries []domain.NotificationQueueEntry
}

func (r *fakeNotificationRepo) Enqueue(_ context.Context, entry domain.NotificationQueueEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, entry)
	return nil
}

func (r *fakeNotificationRepo) ClaimDue(_ context.Context, _ int, _ string, _, _ time.Time) ([]domain.NotificationQueueEntry, error) {
	return nil, nil
}

func (r *fakeNotificationRepo) MarkSent(_ context.Context, _ uuid.UUID, _ string, _ time.Time) error {
	return nil
}

func (r *fakeNotificationRepo) Reschedule(_ context.Context, _ uuid.UUID, _, _ string, _, _ time.Time) error {
	return nil
}

func (r *fakeNotificationRepo) MarkFailed(_ context.Context, _ uuid.UUID, _, _ string, _ time.Time) error {
	return nil
}

func (r *fakeNotificationRepo) byType(notificationType domain.NotificationType) []domain.NotificationQueueEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.NotificationQueueEntry
	for _, e := range r.entries {
		if e.Type == notificationType {
			out = append(out, e)
		}
	}
	return out
}

type fakeRouteRepo struct {
	mu       sync.Mutex
	channels map[string][]domain.NotificationChannel
}

func routeKey(tenantID uuid.UUID, notificationType domain.NotificationType) string {
	return tenantID.String() + "|" + string(notificationType)
}

func (r *fakeRouteRepo) set(tenantID uuid.UUID, notificationType domain.NotificationType, channels ...domain.NotificationChannel) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.channels[routeKey(tenantID, notificationType)] = channels
}

func (r *fakeRouteRepo) EnabledChannels(_ context.Context, tenantID uuid.UUID, notificationType domain.NotificationType) ([]domain.NotificationChannel, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	channels, ok := r.channels[routeKey(tenantID, notificationType)]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return channels, nil
}

type fakePolicyCache struct {
	mu      sync.Mutex
	entries map[uuid.UUID]domain.SecurityConfig
}

func (c *fakePolicyCache) Get(_ context.Context, tenantID uuid.UUID) (*domain.SecurityConfig, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	cfg, ok := c.entries[tenantID]
	if !ok {
		return nil, nil
	}
	return &cfg, nil
}

func (c *fakePolicyCache) Put(_ context.Context, config domain.SecurityConfig, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[config.TenantID] = config
	return nil
}

func (c *fakePolicyCache) Invalidate(_ context.Context, tenantID uuid.UUID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, tenantID)
	return nil
}

type fakeRevocationStore struct {
	mu      sync.Mutex
	revoked map[string]bool
}

func (s *fakeRevocationStore) MarkRevoked(_ context.Context, jti string, _ time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.revoked[jti] = true
	return nil
}

func (s *fakeRevocationStore) IsRevoked(_ context.Context, jti string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.revoked[jti], nil
}
