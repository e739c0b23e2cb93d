package service

import (
	"context"
	"log/slog"
	"time"

	config "github.com/adnanh27/postbridge/configs"
	"github.com/adnanh27/postbridge/internal/models"
	"github.com/adnanh27/postbridge/internal/transfer"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	goauth2 "google.golang.org/api/oauth2/v2"
	"google.golang.org/api/option"
)

// GoogleService is auth-only: it links no publishable account and backs
// the dashboard login instead.
type GoogleService interface {
	PlatformAdapter
}

type googleService struct {
	conf *oauth2.Config
}

func NewGoogleService(cfg config.Config) GoogleService {
	return &googleService{
		conf: &oauth2.Config{
			ClientID:     cfg.Google.ClientID,
			ClientSecret: cfg.Google.ClientSecret,
			RedirectURL:  cfg.Google.RedirectURI,
			Scopes: []string{
				"https://www.googleapis.com/auth/userinfo.email",
				"https://www.googleapis.com/auth/userinfo.profile",
			},
			Endpoint: google.Endpoint,
		},
	}
}

func (s *googleService) Platform() string {
	return models.PlatformGoogle
}

func (s *googleService) GenerateAuthURL(state string) (*transfer.AuthURL, error) {
	return &transfer.AuthURL{
		URL: s.conf.AuthCodeURL(state, oauth2.AccessTypeOffline),
	}, nil
}

func (s *googleService) HandleCallback(ctx context.Context, code, codeVerifier string) *transfer.OAuthResult {
	if code == "" {
		return &transfer.OAuthResult{Error: "missing authorization code"}
	}

	token, err := s.conf.Exchange(ctx, code)
	if err != nil {
		slog.Info(err.Error())
		return &transfer.OAuthResult{Error: err.Error()}
	}

	svc, err := goauth2.NewService(ctx, option.WithTokenSource(s.conf.TokenSource(ctx, token)))
	if err != nil {
		slog.Info(err.Error())
		return &transfer.OAuthResult{Error: err.Error()}
	}

	userInfo, err := svc.Userinfo.Get().Do()
	if err != nil {
		slog.Info(err.Error())
		return &transfer.OAuthResult{Error: err.Error()}
	}

	return &transfer.OAuthResult{
		Success: true,
		Tokens: &transfer.OAuthTokens{
			AccessToken:  token.AccessToken,
			RefreshToken: token.RefreshToken,
			ExpiresIn:    int(time.Until(token.Expiry).Seconds()),
			Scopes:       s.conf.Scopes,
		},
		Profile: &transfer.PlatformProfile{
			PlatformUserID: userInfo.Id,
			Name:           userInfo.Name,
			Username:       userInfo.Email,
			AvatarURL:      userInfo.Picture,
		},
	}
}

func (s *googleService) RefreshAccessToken(ctx context.Context, refreshToken string) *transfer.OAuthTokens {
	tokenSource := s.conf.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})

	token, err := tokenSource.Token()
	if err != nil {
		slog.Info("google token refresh failed", "error", err)
		return nil
	}

	return &transfer.OAuthTokens{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		ExpiresIn:    int(time.Until(token.Expiry).Seconds()),
	}
}
