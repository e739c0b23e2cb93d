package oauthstate

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/adnanh27/postbridge/internal/models"
	"github.com/adnanh27/postbridge/pkg/utils"
)

// StateTTL bounds how long an issued state is accepted.
const StateTTL = 10 * time.Minute

// Manager issues and verifies CSRF state values of the form
// {userId}_{orgId}_{timestampMs}_{hmacHex}. The HMAC covers a per-state
// nonce that only the server-side record knows, so a state cannot be
// forged from its visible parts.
type Manager struct {
	secret string
	store  Store
	now    func() time.Time
}

func NewManager(secret string, store Store) *Manager {
	return &Manager{
		secret: secret,
		store:  store,
		now:    time.Now,
	}
}

// Generate issues a new single-use state bound to the user and
// organization. codeVerifier may be empty; PKCE platforms stash their
// verifier here so the callback can replay it.
func (m *Manager) Generate(ctx context.Context, userID, orgID int64, codeVerifier string) (string, error) {
	nonce, err := utils.GenerateNonce()
	if err != nil {
		return "", err
	}

	issuedAt := m.now()
	ts := issuedAt.UnixMilli()
	state := fmt.Sprintf("%d_%d_%d_%s", userID, orgID, ts, m.sign(userID, orgID, ts, nonce))

	rec := &models.OAuthStateRecord{
		State:        state,
		UserID:       userID,
		OrgID:        orgID,
		Nonce:        nonce,
		CodeVerifier: codeVerifier,
		IssuedAt:     issuedAt,
	}
	if err := m.store.Save(ctx, rec, StateTTL); err != nil {
		return "", err
	}

	return state, nil
}

// AttachCodeVerifier stores a PKCE verifier on an already issued state.
// PKCE platforms generate the verifier while building the authorize URL,
// after the state itself exists.
func (m *Manager) AttachCodeVerifier(ctx context.Context, state, codeVerifier string) error {
	rec, err := m.store.Get(ctx, state)
	if err != nil {
		return err
	}
	if rec == nil {
		return errors.New("state not found")
	}
	rec.CodeVerifier = codeVerifier
	return m.store.Save(ctx, rec, StateTTL-m.now().Sub(rec.IssuedAt))
}

// Validate checks a state against the expected user and organization.
// It never panics and never returns an error; any malformed, expired,
// mismatched or unknown state is simply false. A validated state must be
// consumed immediately by the caller to prevent replay.
func (m *Manager) Validate(ctx context.Context, state string, expectedUserID, expectedOrgID int64) bool {
	userID, orgID, ts, macHex, err := parseState(state)
	if err != nil {
		return false
	}
	if userID != expectedUserID || orgID != expectedOrgID {
		return false
	}

	issuedAt := time.UnixMilli(ts)
	age := m.now().Sub(issuedAt)
	if age < 0 || age >= StateTTL {
		return false
	}

	rec, err := m.store.Get(ctx, state)
	if err != nil || rec == nil {
		return false
	}
	if rec.UserID != expectedUserID || rec.OrgID != expectedOrgID {
		return false
	}

	expected, err := hex.DecodeString(m.sign(userID, orgID, ts, rec.Nonce))
	if err != nil {
		return false
	}
	got, err := hex.DecodeString(macHex)
	if err != nil {
		return false
	}
	return hmac.Equal(expected, got)
}

// Consume removes the record and hands back what it carried. Removal is
// atomic in the store, so of two racing callbacks presenting the same
// state only one gets the record; after that the state never validates
// again.
func (m *Manager) Consume(ctx context.Context, state string) (*models.OAuthStateRecord, error) {
	rec, err := m.store.Take(ctx, state)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	if rec == nil {
		return nil, errors.New("state not found or already consumed")
	}
	return rec, nil
}

func (m *Manager) sign(userID, orgID, ts int64, nonce string) string {
	mac := hmac.New(sha256.New, []byte(m.secret))
	fmt.Fprintf(mac, "%d:%d:%d:%s:%s", userID, orgID, ts, nonce, m.secret)
	return hex.EncodeToString(mac.Sum(nil))
}

func parseState(state string) (userID, orgID, ts int64, macHex string, err error) {
	parts := strings.Split(state, "_")
	if len(parts) != 4 {
		return 0, 0, 0, "", errors.New("state is not a 4-part value")
	}

	userID, err = strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return 0, 0, 0, "", err
	}
	orgID, err = strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return 0, 0, 0, "", err
	}
	ts, err = strconv.ParseInt(parts[2], 10, 64)
	if err != nil {
		return 0, 0, 0, "", err
	}

	return userID, orgID, ts, parts[3], nil
}
