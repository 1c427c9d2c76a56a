package mocks

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/doctalk-labs/doctalk-core/internal/core/domain"
)

// MockTokenSigner is a mock implementation of SessionTokenSigner for
// testing. Tokens are plain JSON claims with a static prefix; Verify
// still enforces expiry so TTL behavior is testable.
type MockTokenSigner struct {
	failSign   bool
	failVerify bool
}

// NewMockTokenSigner creates a new MockTokenSigner
func NewMockTokenSigner() *MockTokenSigner {
	return &MockTokenSigner{}
}

func (m *MockTokenSigner) Sign(claims *domain.SessionClaims) (string, error) {
	if m.failSign {
		m.failSign = false
		return "", fmt.Errorf("%w: signing failed", domain.ErrTokenInvalid)
	}
	data, err := json.Marshal(claims)
	if err != nil {
		return "", err
	}
	return "mock." + string(data), nil
}

func (m *MockTokenSigner) Verify(token string) (*domain.SessionClaims, error) {
	if m.failVerify {
		m.failVerify = false
		return nil, domain.ErrTokenInvalid
	}
	payload, ok := strings.CutPrefix(token, "mock.")
	if !ok {
		return nil, domain.ErrTokenInvalid
	}
	var claims domain.SessionClaims
	if err := json.Unmarshal([]byte(payload), &claims); err != nil {
		return nil, domain.ErrTokenInvalid
	}
	if claims.ExpiresAt > 0 && time.Now().Unix() > claims.ExpiresAt {
		return nil, domain.ErrTokenInvalid
	}
	return &claims, nil
}

// Helper methods for testing

func (m *MockTokenSigner) SetFailSign(fail bool) {
	m.failSign = fail
}

func (m *MockTokenSigner) SetFailVerify(fail bool) {
	m.failVerify = fail
}
