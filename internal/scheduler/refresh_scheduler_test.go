package scheduler

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adnanh27/postbridge/internal/models"
	"github.com/adnanh27/postbridge/internal/service"
	"github.com/adnanh27/postbridge/internal/transfer"
	"github.com/adnanh27/postbridge/pkg/crypto"
)

type fakeAccountRepo struct {
	account  *models.SocialAccount
	expiring []*models.SocialAccount

	updatedBlob    string
	updatedRefresh string
	statuses       map[int64]string
}

func (f *fakeAccountRepo) Upsert(context.Context, *sql.Tx, *models.SocialAccount) (int64, error) {
	return 0, nil
}
func (f *fakeAccountRepo) GetByID(context.Context, int64) (*models.SocialAccount, error) {
	return f.account, nil
}
func (f *fakeAccountRepo) ListActiveByOrgAndPlatforms(context.Context, int64, []string) ([]*models.SocialAccount, error) {
	return nil, nil
}
func (f *fakeAccountRepo) ListInfoByOrgID(context.Context, int64) ([]*models.SocialAccount, error) {
	return nil, nil
}
func (f *fakeAccountRepo) ListExpiringBetween(context.Context, time.Time, time.Time) ([]*models.SocialAccount, error) {
	return f.expiring, nil
}
func (f *fakeAccountRepo) CheckByOrgID(context.Context, int64, int64) (bool, error) {
	return true, nil
}

func (f *fakeAccountRepo) UpdateTokens(_ context.Context, _ int64, accessToken, refreshToken string, _ time.Time) error {
	f.updatedBlob = accessToken
	f.updatedRefresh = refreshToken
	return nil
}

func (f *fakeAccountRepo) SetStatus(_ context.Context, id int64, status string) error {
	if f.statuses == nil {
		f.statuses = make(map[int64]string)
	}
	f.statuses[id] = status
	return nil
}

type fakeAdapter struct {
	platform string
	tokens   *transfer.OAuthTokens
}

func (f *fakeAdapter) Platform() string { return f.platform }
func (f *fakeAdapter) GenerateAuthURL(string) (*transfer.AuthURL, error) {
	return &transfer.AuthURL{}, nil
}
func (f *fakeAdapter) HandleCallback(context.Context, string, string) *transfer.OAuthResult {
	return &transfer.OAuthResult{}
}
func (f *fakeAdapter) RefreshAccessToken(context.Context, string) *transfer.OAuthTokens {
	return f.tokens
}

func newTestVault(t *testing.T) *crypto.Vault {
	t.Helper()
	v, err := crypto.NewVault("0123456789abcdef0123456789abcdef")
	require.NoError(t, err)
	return v
}

func activeAccount(t *testing.T, v *crypto.Vault) *models.SocialAccount {
	t.Helper()

	blob, err := v.EncryptTokens(&crypto.TokenData{
		AccessToken: "old-access",
		IssuedAt:    time.Now(),
		ExpiresAt:   time.Now().Add(10 * time.Minute),
		Scopes:      []string{"tweet.write"},
	})
	require.NoError(t, err)

	refresh, err := v.Encrypt([]byte("refresh-raw"))
	require.NoError(t, err)

	return &models.SocialAccount{
		ID:            5,
		Platform:      "twitter",
		AccessToken:   blob,
		RefreshToken:  refresh,
		AccountStatus: models.AccountStatusActive,
	}
}

func newTestScheduler(t *testing.T, sa *fakeAccountRepo, vault *crypto.Vault, adapter service.PlatformAdapter) *RefreshScheduler {
	t.Helper()
	registry := service.NewRegistry()
	if adapter != nil {
		registry.RegisterAdapter(adapter)
	}
	return NewRefreshScheduler(registry, sa, vault)
}

func timerCount(s *RefreshScheduler) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

func TestScheduleIsIdempotentPerAccount(t *testing.T) {
	s := newTestScheduler(t, &fakeAccountRepo{}, newTestVault(t), nil)

	expiresAt := time.Now().Add(time.Hour)
	s.Schedule(5, "twitter", expiresAt)
	s.Schedule(5, "twitter", expiresAt.Add(time.Hour))

	assert.Equal(t, 1, timerCount(s))

	s.Cancel(5)
	assert.Equal(t, 0, timerCount(s))
}

func TestRefreshPersistsRotatedTokens(t *testing.T) {
	vault := newTestVault(t)
	sa := &fakeAccountRepo{account: activeAccount(t, vault)}
	adapter := &fakeAdapter{platform: "twitter", tokens: &transfer.OAuthTokens{
		AccessToken:  "new-access",
		RefreshToken: "new-refresh",
		ExpiresIn:    7200,
	}}
	s := newTestScheduler(t, sa, vault, adapter)

	s.refresh(5, "twitter")

	require.NotEmpty(t, sa.updatedBlob)
	td, err := vault.DecryptTokens(sa.updatedBlob)
	require.NoError(t, err)
	assert.Equal(t, "new-access", td.AccessToken)
	assert.Equal(t, "new-refresh", td.RefreshToken)
	assert.Equal(t, []string{"tweet.write"}, td.Scopes, "scopes carry over when the refresh grant omits them")

	rotated, err := vault.Decrypt(sa.updatedRefresh)
	require.NoError(t, err)
	assert.Equal(t, "new-refresh", string(rotated))

	assert.Equal(t, 1, timerCount(s), "a successful refresh re-arms the timer")
	s.Cancel(5)
}

func TestRefreshKeepsStoredRefreshTokenWhenNotRotated(t *testing.T) {
	vault := newTestVault(t)
	sa := &fakeAccountRepo{account: activeAccount(t, vault)}
	adapter := &fakeAdapter{platform: "twitter", tokens: &transfer.OAuthTokens{
		AccessToken: "new-access",
		ExpiresIn:   7200,
	}}
	s := newTestScheduler(t, sa, vault, adapter)

	s.refresh(5, "twitter")

	assert.Empty(t, sa.updatedRefresh, "empty string keeps the stored refresh token")
	s.Cancel(5)
}

func TestRefreshFailureFlagsReauthAndStops(t *testing.T) {
	vault := newTestVault(t)
	sa := &fakeAccountRepo{account: activeAccount(t, vault)}
	adapter := &fakeAdapter{platform: "twitter", tokens: nil}
	s := newTestScheduler(t, sa, vault, adapter)

	s.refresh(5, "twitter")

	assert.Equal(t, models.AccountStatusReauthNeeded, sa.statuses[5])
	assert.Equal(t, 0, timerCount(s), "a dead refresh token must not re-arm")
	assert.Empty(t, sa.updatedBlob)
}

func TestRefreshSkipsInactiveAccount(t *testing.T) {
	vault := newTestVault(t)
	acc := activeAccount(t, vault)
	acc.AccountStatus = models.AccountStatusDisabled
	sa := &fakeAccountRepo{account: acc}
	s := newTestScheduler(t, sa, vault, &fakeAdapter{platform: "twitter"})

	s.refresh(5, "twitter")

	assert.Empty(t, sa.updatedBlob)
	assert.Empty(t, sa.statuses)
}

func TestSweepArmsExpiringAccounts(t *testing.T) {
	vault := newTestVault(t)
	withRefresh := activeAccount(t, vault)
	withoutRefresh := &models.SocialAccount{
		ID:             6,
		Platform:       "facebook",
		AccountStatus:  models.AccountStatusActive,
		TokenExpiresAt: time.Now().Add(time.Hour),
	}
	withRefresh.TokenExpiresAt = time.Now().Add(time.Hour)

	sa := &fakeAccountRepo{expiring: []*models.SocialAccount{withRefresh, withoutRefresh}}
	s := newTestScheduler(t, sa, vault, nil)

	require.NoError(t, s.Sweep(context.Background(), 30*time.Minute))

	assert.Equal(t, 1, timerCount(s), "accounts without refresh tokens are not armed")
	s.Cancel(withRefresh.ID)
}
