package models

import "time"

// OAuthStateRecord backs a single CSRF state value. Records live in a
// TTL store and are consumed exactly once on a successful callback.
type OAuthStateRecord struct {
	State        string    `json:"state"`
	UserID       int64     `json:"user_id"`
	OrgID        int64     `json:"org_id"`
	Nonce        string    `json:"nonce"`
	CodeVerifier string    `json:"code_verifier,omitempty"`
	IssuedAt     time.Time `json:"issued_at"`
}
