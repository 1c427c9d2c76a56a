package domain

// SessionClaims are the signed claims embedded in a chat session token.
// The token binds a caller to its own conversation so one session can
// never read or extend another session's history.
type SessionClaims struct {
	SessionID  string `json:"session_id"`
	DocumentID string `json:"document_id"`
	IssuedAt   int64  `json:"issued_at"`
	ExpiresAt  int64  `json:"expires_at"`
}
