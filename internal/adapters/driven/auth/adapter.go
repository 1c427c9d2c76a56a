package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/doctalk-labs/doctalk-core/internal/core/domain"
	"github.com/doctalk-labs/doctalk-core/internal/core/ports/driven"
)

// Ensure Adapter implements SessionTokenSigner
var _ driven.SessionTokenSigner = (*Adapter)(nil)

// jwtClaims wraps domain.SessionClaims for JWT compatibility
type jwtClaims struct {
	SessionID  string `json:"session_id"`
	DocumentID string `json:"document_id"`
	jwt.RegisteredClaims
}

// Adapter signs and verifies chat session tokens using HS256 JWTs
type Adapter struct {
	secret []byte
}

// NewAdapter creates a new session token signer with the given secret
func NewAdapter(secret string) (*Adapter, error) {
	if secret == "" {
		return nil, errors.New("token secret is required")
	}
	return &Adapter{secret: []byte(secret)}, nil
}

// Sign creates a signed JWT from session claims
func (a *Adapter) Sign(claims *domain.SessionClaims) (string, error) {
	jc := jwtClaims{
		SessionID:  claims.SessionID,
		DocumentID: claims.DocumentID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(time.Unix(claims.IssuedAt, 0)),
			ExpiresAt: jwt.NewNumericDate(time.Unix(claims.ExpiresAt, 0)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jc)
	return token.SignedString(a.secret)
}

// Verify validates a JWT and extracts session claims.
// Malformed, forged and expired tokens all map to domain.ErrTokenInvalid;
// the caller never needs to distinguish them.
func (a *Adapter) Verify(tokenString string) (*domain.SessionClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &jwtClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return a.secret, nil
	})

	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrTokenInvalid, err)
	}

	claims, ok := token.Claims.(*jwtClaims)
	if !ok || !token.Valid {
		return nil, domain.ErrTokenInvalid
	}
	if claims.SessionID == "" {
		return nil, domain.ErrTokenInvalid
	}

	return &domain.SessionClaims{
		SessionID:  claims.SessionID,
		DocumentID: claims.DocumentID,
		IssuedAt:   claims.IssuedAt.Unix(),
		ExpiresAt:  claims.ExpiresAt.Unix(),
	}, nil
}
