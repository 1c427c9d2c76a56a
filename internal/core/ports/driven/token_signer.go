package driven

import "github.com/doctalk-labs/doctalk-core/internal/core/domain"

// SessionTokenSigner mints and validates signed chat session tokens (JWT)
type SessionTokenSigner interface {
	// Sign creates a signed token from session claims
	Sign(claims *domain.SessionClaims) (string, error)

	// Verify validates a token and extracts its claims.
	// Returns domain.ErrTokenInvalid for malformed, forged or expired tokens.
	Verify(token string) (*domain.SessionClaims, error)
}
