package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	config "github.com/adnanh27/postbridge/configs"
	"github.com/adnanh27/postbridge/internal/errs"
	"github.com/adnanh27/postbridge/internal/models"
	"github.com/adnanh27/postbridge/internal/transfer"
)

const (
	facebookAuthURL   = "https://www.facebook.com/v18.0/dialog/oauth"
	facebookGraphBase = "https://graph.facebook.com/v18.0"
	facebookScopes    = "public_profile,pages_manage_posts,pages_read_engagement"
	facebookCharLimit = 63206
)

type FacebookService interface {
	PlatformAdapter
	PlatformPublisher
}

type facebookService struct {
	creds     config.PlatformCredentials
	graphBase string
}

func NewFacebookService(cfg config.Config) FacebookService {
	return &facebookService{
		creds:     cfg.Facebook,
		graphBase: facebookGraphBase,
	}
}

func (s *facebookService) Platform() string {
	return models.PlatformFacebook
}

func (s *facebookService) GenerateAuthURL(state string) (*transfer.AuthURL, error) {
	params := url.Values{}
	params.Add("client_id", s.creds.ClientID)
	params.Add("redirect_uri", s.creds.RedirectURI)
	params.Add("scope", facebookScopes)
	params.Add("response_type", "code")
	params.Add("state", state)

	return &transfer.AuthURL{URL: fmt.Sprintf("%s?%s", facebookAuthURL, params.Encode())}, nil
}

func (s *facebookService) HandleCallback(ctx context.Context, code, codeVerifier string) *transfer.OAuthResult {
	if code == "" {
		return &transfer.OAuthResult{Error: "missing authorization code"}
	}

	tokenResponse, err := s.exchangeCodeForToken(ctx, code)
	if err != nil {
		slog.Info(err.Error())
		return &transfer.OAuthResult{Error: err.Error()}
	}

	profile, err := s.fetchProfile(ctx, tokenResponse.AccessToken)
	if err != nil {
		slog.Info(err.Error())
		return &transfer.OAuthResult{Error: err.Error()}
	}

	return &transfer.OAuthResult{
		Success: true,
		Tokens: &transfer.OAuthTokens{
			AccessToken: tokenResponse.AccessToken,
			ExpiresIn:   tokenResponse.ExpiresIn,
			Scopes:      splitScopes(facebookScopes),
		},
		Profile: profile,
	}
}

func (s *facebookService) exchangeCodeForToken(ctx context.Context, code string) (*transfer.FacebookTokenResponse, error) {
	params := url.Values{}
	params.Set("client_id", s.creds.ClientID)
	params.Set("client_secret", s.creds.ClientSecret)
	params.Set("redirect_uri", s.creds.RedirectURI)
	params.Set("code", code)

	exchangeURL := fmt.Sprintf("%s/oauth/access_token?%s", s.graphBase, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, exchangeURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("facebook token request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("facebook token endpoint returned status %d", resp.StatusCode)
	}

	var tokenResponse transfer.FacebookTokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tokenResponse); err != nil {
		return nil, fmt.Errorf("failed to decode token response: %w", err)
	}

	return &tokenResponse, nil
}

func (s *facebookService) fetchProfile(ctx context.Context, accessToken string) (*transfer.PlatformProfile, error) {
	profileURL := fmt.Sprintf("%s/me?fields=id,name,picture&access_token=%s", s.graphBase, url.QueryEscape(accessToken))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, profileURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("facebook profile endpoint returned status %d", resp.StatusCode)
	}

	var profile transfer.FacebookProfile
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return nil, err
	}

	return &transfer.PlatformProfile{
		PlatformUserID: profile.ID,
		Name:           profile.Name,
		AvatarURL:      profile.Picture.Data.URL,
	}, nil
}

// RefreshAccessToken exchanges the current token for a new long-lived
// one. Facebook has no refresh tokens; the stored access token itself
// is traded in via fb_exchange_token.
func (s *facebookService) RefreshAccessToken(ctx context.Context, refreshToken string) *transfer.OAuthTokens {
	params := url.Values{}
	params.Set("grant_type", "fb_exchange_token")
	params.Set("client_id", s.creds.ClientID)
	params.Set("client_secret", s.creds.ClientSecret)
	params.Set("fb_exchange_token", refreshToken)

	exchangeURL := fmt.Sprintf("%s/oauth/access_token?%s", s.graphBase, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, exchangeURL, nil)
	if err != nil {
		slog.Info(err.Error())
		return nil
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		slog.Info("facebook token exchange failed", "error", err)
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		slog.Info("facebook token exchange rejected", "status", resp.StatusCode)
		return nil
	}

	var tokenResponse transfer.FacebookTokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tokenResponse); err != nil {
		slog.Info(err.Error())
		return nil
	}

	return &transfer.OAuthTokens{
		AccessToken: tokenResponse.AccessToken,
		ExpiresIn:   tokenResponse.ExpiresIn,
	}
}

func (s *facebookService) Publish(ctx context.Context, post *models.Post, acc *models.SocialAccount, accessToken string) transfer.PublishOutcome {
	data := url.Values{}
	data.Set("message", TruncateContent(post.Content, facebookCharLimit))
	data.Set("access_token", accessToken)
	if len(post.MediaURLs) > 0 {
		data.Set("link", post.MediaURLs[0])
	}

	feedURL := fmt.Sprintf("%s/%s/feed", s.graphBase, acc.PlatformUserID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, feedURL, strings.NewReader(data.Encode()))
	if err != nil {
		return failure(models.PlatformFacebook, errs.CategoryUnknown, err.Error())
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := httpClient.Do(req)
	if err != nil {
		return failure(models.PlatformFacebook, errs.CategoryUnknown, err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return s.classifyPublishError(resp)
	}

	var postResponse transfer.FacebookPostResponse
	if err := json.NewDecoder(resp.Body).Decode(&postResponse); err != nil {
		return failure(models.PlatformFacebook, errs.CategoryUnknown, err.Error())
	}

	return transfer.PublishOutcome{
		Platform: models.PlatformFacebook,
		Success:  true,
		PostID:   postResponse.ID,
	}
}

// Graph error codes: 190 is an invalid or expired token, 4/17/32/613
// are throttling buckets, 506 is duplicate content.
func (s *facebookService) classifyPublishError(resp *http.Response) transfer.PublishOutcome {
	var apiError transfer.FacebookErrorResponse
	_ = json.NewDecoder(resp.Body).Decode(&apiError)

	message := apiError.Error.Message
	if message == "" {
		message = fmt.Sprintf("facebook returned status %d", resp.StatusCode)
	}

	category := errs.CategoryUnknown
	switch apiError.Error.Code {
	case 190:
		category = errs.CategoryAuthExpired
	case 4, 17, 32, 613:
		category = errs.CategoryRateLimited
	case 506:
		category = errs.CategoryDuplicateContent
	}

	return failure(models.PlatformFacebook, category, message)
}
