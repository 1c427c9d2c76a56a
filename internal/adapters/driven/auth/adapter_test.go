package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/doctalk-labs/doctalk-core/internal/core/domain"
)

func newTestAdapter(t *testing.T) *Adapter {
	t.Helper()
	a, err := NewAdapter("test-secret-key")
	if err != nil {
		t.Fatalf("failed to create adapter: %v", err)
	}
	return a
}

func testClaims(expiresIn time.Duration) *domain.SessionClaims {
	now := time.Now()
	return &domain.SessionClaims{
		SessionID:  "session-123",
		DocumentID: "doc-456",
		IssuedAt:   now.Unix(),
		ExpiresAt:  now.Add(expiresIn).Unix(),
	}
}

func TestNewAdapter_RequiresSecret(t *testing.T) {
	if _, err := NewAdapter(""); err == nil {
		t.Error("expected error for empty secret")
	}
}

func TestAdapter_SignAndVerify(t *testing.T) {
	a := newTestAdapter(t)
	claims := testClaims(30 * time.Minute)

	token, err := a.Sign(claims)
	if err != nil {
		t.Fatalf("sign failed: %v", err)
	}
	if token == "" {
		t.Fatal("expected a non-empty token")
	}

	got, err := a.Verify(token)
	if err != nil {
		t.Fatalf("verify failed: %v", err)
	}
	if got.SessionID != claims.SessionID {
		t.Errorf("expected session %s, got %s", claims.SessionID, got.SessionID)
	}
	if got.DocumentID != claims.DocumentID {
		t.Errorf("expected document %s, got %s", claims.DocumentID, got.DocumentID)
	}
	if got.ExpiresAt != claims.ExpiresAt {
		t.Errorf("expected expiry %d, got %d", claims.ExpiresAt, got.ExpiresAt)
	}
}

func TestAdapter_VerifyExpiredToken(t *testing.T) {
	a := newTestAdapter(t)

	token, err := a.Sign(testClaims(-1 * time.Minute))
	if err != nil {
		t.Fatalf("sign failed: %v", err)
	}

	_, err = a.Verify(token)
	if !errors.Is(err, domain.ErrTokenInvalid) {
		t.Errorf("expected ErrTokenInvalid, got %v", err)
	}
}

func TestAdapter_VerifyMalformedToken(t *testing.T) {
	a := newTestAdapter(t)

	for _, token := range []string{"", "not-a-jwt", "a.b.c"} {
		if _, err := a.Verify(token); !errors.Is(err, domain.ErrTokenInvalid) {
			t.Errorf("token %q: expected ErrTokenInvalid, got %v", token, err)
		}
	}
}

func TestAdapter_VerifyWrongSecret(t *testing.T) {
	a := newTestAdapter(t)
	other, err := NewAdapter("different-secret")
	if err != nil {
		t.Fatalf("failed to create adapter: %v", err)
	}

	token, err := a.Sign(testClaims(30 * time.Minute))
	if err != nil {
		t.Fatalf("sign failed: %v", err)
	}

	if _, err := other.Verify(token); !errors.Is(err, domain.ErrTokenInvalid) {
		t.Errorf("expected ErrTokenInvalid for forged token, got %v", err)
	}
}
