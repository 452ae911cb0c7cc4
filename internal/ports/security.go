package ports

import (
	"time"

	"github.com/google/uuid"
)

// PasswordHasher is the credential-store boundary. The engine never stores
// plaintext; history comparison re-hashes the candidate against each stored
// hash's own parameters via Compare.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) error
}

// SessionClaims is the token payload issued on successful authentication.
// JTI is the correlation key back to the persisted session row.
type SessionClaims struct {
	UserID    uuid.UUID `json:"user_id"`
	TenantID  uuid.UUID `json:"tenant_id"`
	Email     string    `json:"email"`
	JTI       string    `json:"jti"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// TokenSigner signs and validates session tokens.
type TokenSigner interface {
	Sign(claims SessionClaims) (string, error)
	ParseAndValidate(token string) (SessionClaims, error)
}
