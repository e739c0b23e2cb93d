package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/adnanh27/postbridge/internal/models"
	"github.com/adnanh27/postbridge/internal/repository"
	"github.com/adnanh27/postbridge/internal/service"
	"github.com/adnanh27/postbridge/internal/transfer"
	"github.com/adnanh27/postbridge/pkg/crypto"
)

// leadTime is how far ahead of expiry a token is refreshed.
const leadTime = 5 * time.Minute

const refreshTimeout = 30 * time.Second

// RefreshScheduler keeps access tokens alive by refreshing each account
// shortly before its token expires. Timers are in-memory; the periodic
// sweep re-arms them after a restart.
type RefreshScheduler struct {
	registry *service.Registry
	sa       repository.SocialAccountRepository
	vault    *crypto.Vault

	mu     sync.Mutex
	timers map[int64]*time.Timer
}

func NewRefreshScheduler(registry *service.Registry, sa repository.SocialAccountRepository, vault *crypto.Vault) *RefreshScheduler {
	return &RefreshScheduler{
		registry: registry,
		sa:       sa,
		vault:    vault,
		timers:   make(map[int64]*time.Timer),
	}
}

// Schedule arms a refresh timer for the account. Scheduling an account
// that already has a timer replaces it, so re-arming is idempotent.
func (s *RefreshScheduler) Schedule(accountID int64, platform string, expiresAt time.Time) {
	delay := time.Until(expiresAt.Add(-leadTime))
	if delay < 0 {
		delay = 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if timer, ok := s.timers[accountID]; ok {
		timer.Stop()
	}
	s.timers[accountID] = time.AfterFunc(delay, func() {
		s.refresh(accountID, platform)
	})

	slog.Info("token refresh scheduled", "account_id", accountID, "platform", platform, "in", delay)
}

func (s *RefreshScheduler) Cancel(accountID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if timer, ok := s.timers[accountID]; ok {
		timer.Stop()
		delete(s.timers, accountID)
	}
}

// Sweep re-arms timers for every active account whose token expires
// within the window. Run periodically, it covers accounts whose timers
// were lost to a restart.
func (s *RefreshScheduler) Sweep(ctx context.Context, window time.Duration) error {
	now := time.Now()
	accounts, err := s.sa.ListExpiringBetween(ctx, now, now.Add(window))
	if err != nil {
		return err
	}

	for _, acc := range accounts {
		if acc.RefreshToken == "" {
			continue
		}
		s.Schedule(acc.ID, acc.Platform, acc.TokenExpiresAt)
	}
	return nil
}

func (s *RefreshScheduler) refresh(accountID int64, platform string) {
	ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
	defer cancel()

	s.mu.Lock()
	delete(s.timers, accountID)
	s.mu.Unlock()

	acc, err := s.sa.GetByID(ctx, accountID)
	if err != nil || acc == nil {
		slog.Info("refresh skipped, account not loadable", "account_id", accountID)
		return
	}
	if acc.AccountStatus != models.AccountStatusActive {
		return
	}

	adapter, ok := s.registry.Adapter(platform)
	if !ok {
		slog.Info("refresh skipped, no adapter", "platform", platform)
		return
	}

	refreshToken, err := s.vault.Decrypt(acc.RefreshToken)
	if err != nil {
		slog.Info("stored refresh token failed to decrypt", "account_id", accountID, "error", err)
		s.flagReauth(ctx, accountID)
		return
	}

	tokens := adapter.RefreshAccessToken(ctx, string(refreshToken))
	if tokens == nil {
		// A rejected refresh token will stay rejected; the account
		// needs the user to reconnect it.
		s.flagReauth(ctx, accountID)
		return
	}

	if err := s.persist(ctx, acc, tokens); err != nil {
		slog.Info("refreshed tokens could not be persisted", "account_id", accountID, "error", err)
		return
	}

	s.Schedule(accountID, platform, service.GetExpiresAt(tokens.ExpiresIn))
}

func (s *RefreshScheduler) persist(ctx context.Context, acc *models.SocialAccount, tokens *transfer.OAuthTokens) error {
	now := time.Now()
	expiresAt := service.GetExpiresAt(tokens.ExpiresIn)

	scopes := tokens.Scopes
	if len(scopes) == 0 {
		if old, err := s.vault.DecryptTokens(acc.AccessToken); err == nil {
			scopes = old.Scopes
		}
	}

	blob, err := s.vault.EncryptTokens(&crypto.TokenData{
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
		IssuedAt:     now,
		ExpiresAt:    expiresAt,
		Scopes:       scopes,
	})
	if err != nil {
		return err
	}

	// Platforms that rotate refresh tokens return a new one; for the
	// rest the empty string keeps the stored token in place.
	encryptedRefreshToken := ""
	if tokens.RefreshToken != "" {
		encryptedRefreshToken, err = s.vault.Encrypt([]byte(tokens.RefreshToken))
		if err != nil {
			return err
		}
	}

	return s.sa.UpdateTokens(ctx, acc.ID, blob, encryptedRefreshToken, expiresAt)
}

func (s *RefreshScheduler) flagReauth(ctx context.Context, accountID int64) {
	if err := s.sa.SetStatus(ctx, accountID, models.AccountStatusReauthNeeded); err != nil {
		slog.Info(err.Error())
	}
}
