package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/adnanh27/postbridge/internal/errs"
	"github.com/adnanh27/postbridge/internal/models"
	"github.com/adnanh27/postbridge/internal/oauthstate"
	"github.com/adnanh27/postbridge/internal/repository"
	"github.com/adnanh27/postbridge/pkg/crypto"
)

// refreshScheduler is the slice of the token refresh scheduler this
// service needs; the concrete type lives in internal/scheduler.
type refreshScheduler interface {
	Schedule(accountID int64, platform string, expiresAt time.Time)
	Cancel(accountID int64)
}

type PlatformService interface {
	GetAuthURL(ctx context.Context, platform string, userID, orgID int64) (string, error)
	HandleOAuthCallback(ctx context.Context, platform, code, state string, userID, orgID int64) (*models.SocialAccount, error)
	List(ctx context.Context, orgID int64) ([]*models.SocialAccount, error)
	Disconnect(ctx context.Context, orgID, accountID int64) error
}

type platformService struct {
	registry  *Registry
	states    *oauthstate.Manager
	vault     *crypto.Vault
	sa        repository.SocialAccountRepository
	refresher refreshScheduler
}

func NewPlatformService(
	registry *Registry,
	states *oauthstate.Manager,
	vault *crypto.Vault,
	sa repository.SocialAccountRepository,
	refresher refreshScheduler) PlatformService {
	return &platformService{
		registry:  registry,
		states:    states,
		vault:     vault,
		sa:        sa,
		refresher: refresher,
	}
}

func (s *platformService) GetAuthURL(ctx context.Context, platform string, userID, orgID int64) (string, error) {
	adapter, ok := s.registry.Adapter(platform)
	if !ok {
		return "", errs.NewValidation(fmt.Sprintf("unsupported platform %q", platform))
	}

	state, err := s.states.Generate(ctx, userID, orgID, "")
	if err != nil {
		return "", err
	}

	authURL, err := adapter.GenerateAuthURL(state)
	if err != nil {
		return "", err
	}

	if authURL.CodeVerifier != "" {
		if err := s.states.AttachCodeVerifier(ctx, state, authURL.CodeVerifier); err != nil {
			return "", err
		}
	}

	return authURL.URL, nil
}

// HandleOAuthCallback validates and consumes the state, exchanges the
// code, encrypts the received tokens and persists the linked account.
// The state is consumed before the exchange so a replayed callback can
// never trigger a second exchange.
func (s *platformService) HandleOAuthCallback(ctx context.Context, platform, code, state string, userID, orgID int64) (*models.SocialAccount, error) {
	adapter, ok := s.registry.Adapter(platform)
	if !ok {
		return nil, errs.NewValidation(fmt.Sprintf("unsupported platform %q", platform))
	}

	if !s.states.Validate(ctx, state, userID, orgID) {
		return nil, errs.NewValidation("invalid or expired oauth state")
	}

	rec, err := s.states.Consume(ctx, state)
	if err != nil {
		return nil, errs.NewValidation("oauth state already consumed")
	}

	result := adapter.HandleCallback(ctx, code, rec.CodeVerifier)
	if !result.Success {
		return nil, errors.New(result.Error)
	}

	now := time.Now()
	expiresAt := GetExpiresAt(result.Tokens.ExpiresIn)

	blob, err := s.vault.EncryptTokens(&crypto.TokenData{
		AccessToken:  result.Tokens.AccessToken,
		RefreshToken: result.Tokens.RefreshToken,
		IssuedAt:     now,
		ExpiresAt:    expiresAt,
		Scopes:       result.Tokens.Scopes,
	})
	if err != nil {
		return nil, err
	}

	encryptedRefreshToken := ""
	if result.Tokens.RefreshToken != "" {
		encryptedRefreshToken, err = s.vault.Encrypt([]byte(result.Tokens.RefreshToken))
		if err != nil {
			return nil, err
		}
	}

	account := &models.SocialAccount{
		OrgID:          orgID,
		Platform:       platform,
		PlatformUserID: result.Profile.PlatformUserID,
		AccountName:    result.Profile.Name,
		Username:       result.Profile.Username,
		ProfilePicture: result.Profile.AvatarURL,
		AccessToken:    blob,
		RefreshToken:   encryptedRefreshToken,
		TokenExpiresAt: expiresAt,
		Scopes:         result.Tokens.Scopes,
		AccountStatus:  models.AccountStatusActive,
	}

	accountID, err := s.sa.Upsert(ctx, nil, account)
	if err != nil {
		return nil, err
	}
	account.ID = accountID

	if encryptedRefreshToken != "" {
		s.refresher.Schedule(accountID, platform, expiresAt)
	}

	return account, nil
}

func (s *platformService) List(ctx context.Context, orgID int64) ([]*models.SocialAccount, error) {
	if orgID == 0 {
		err := errors.New("org id is not valid")
		slog.Info(err.Error())
		return nil, err
	}

	accounts, err := s.sa.ListInfoByOrgID(ctx, orgID)
	if err != nil {
		return nil, fmt.Errorf("error getting social accounts")
	}

	return accounts, nil
}

// Disconnect soft-disables the account. The row is kept so history and
// platform post ids stay resolvable; only the credentials go dormant.
func (s *platformService) Disconnect(ctx context.Context, orgID, accountID int64) error {
	if orgID == 0 || accountID == 0 {
		return errs.NewValidation("org id and account id are required")
	}

	isOwned, err := s.sa.CheckByOrgID(ctx, accountID, orgID)
	if err != nil {
		return err
	}
	if !isOwned {
		return errs.NewValidation("social account doesn't exist")
	}

	s.refresher.Cancel(accountID)

	if err := s.sa.SetStatus(ctx, accountID, models.AccountStatusDisabled); err != nil {
		return fmt.Errorf("error disabling account")
	}

	return nil
}
