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
	instagramAuthURL   = "https://www.instagram.com/oauth/authorize"
	instagramTokenURL  = "https://api.instagram.com/oauth/access_token"
	instagramGraphBase = "https://graph.instagram.com"
	instagramScopes    = "instagram_business_basic,instagram_business_content_publish"
)

type InstagramService interface {
	PlatformAdapter
	PlatformPublisher
}

type instagramService struct {
	creds     config.PlatformCredentials
	tokenURL  string
	graphBase string
}

func NewInstagramService(cfg config.Config) InstagramService {
	return &instagramService{
		creds:     cfg.Instagram,
		tokenURL:  instagramTokenURL,
		graphBase: instagramGraphBase,
	}
}

func (s *instagramService) Platform() string {
	return models.PlatformInstagram
}

func (s *instagramService) GenerateAuthURL(state string) (*transfer.AuthURL, error) {
	params := url.Values{}
	params.Add("client_id", s.creds.ClientID)
	params.Add("scope", instagramScopes)
	params.Add("response_type", "code")
	params.Add("redirect_uri", s.creds.RedirectURI)
	params.Add("state", state)

	return &transfer.AuthURL{URL: fmt.Sprintf("%s?%s", instagramAuthURL, params.Encode())}, nil
}

func (s *instagramService) HandleCallback(ctx context.Context, code, codeVerifier string) *transfer.OAuthResult {
	if code == "" {
		return &transfer.OAuthResult{Error: "missing authorization code"}
	}

	shortLived, err := s.exchangeCodeForToken(ctx, code)
	if err != nil {
		slog.Info(err.Error())
		return &transfer.OAuthResult{Error: err.Error()}
	}

	// Short-lived tokens last an hour; trade up to a 60-day token
	// before persisting anything.
	longLived, err := s.exchangeLongLivedToken(ctx, shortLived.AccessToken)
	if err != nil {
		slog.Info(err.Error())
		return &transfer.OAuthResult{Error: err.Error()}
	}

	profile, err := s.fetchProfile(ctx, longLived.AccessToken)
	if err != nil {
		slog.Info(err.Error())
		return &transfer.OAuthResult{Error: err.Error()}
	}

	return &transfer.OAuthResult{
		Success: true,
		Tokens: &transfer.OAuthTokens{
			AccessToken: longLived.AccessToken,
			// Instagram refreshes by presenting the current
			// long-lived token, so it doubles as refresh token.
			RefreshToken: longLived.AccessToken,
			ExpiresIn:    longLived.ExpiresIn,
			Scopes:       splitScopes(instagramScopes),
		},
		Profile: profile,
	}
}

func (s *instagramService) exchangeCodeForToken(ctx context.Context, code string) (*transfer.InstagramTokenResponse, error) {
	data := url.Values{}
	data.Set("client_id", s.creds.ClientID)
	data.Set("client_secret", s.creds.ClientSecret)
	data.Set("grant_type", "authorization_code")
	data.Set("redirect_uri", s.creds.RedirectURI)
	data.Set("code", code)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.tokenURL, strings.NewReader(data.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("instagram token request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("instagram token endpoint returned status %d", resp.StatusCode)
	}

	var tokenResponse transfer.InstagramTokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tokenResponse); err != nil {
		return nil, fmt.Errorf("failed to decode token response: %w", err)
	}

	return &tokenResponse, nil
}

func (s *instagramService) exchangeLongLivedToken(ctx context.Context, shortLivedToken string) (*transfer.InstagramTokenResponse, error) {
	params := url.Values{}
	params.Set("grant_type", "ig_exchange_token")
	params.Set("client_secret", s.creds.ClientSecret)
	params.Set("access_token", shortLivedToken)

	exchangeURL := fmt.Sprintf("%s/access_token?%s", s.graphBase, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, exchangeURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("instagram long-lived exchange failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("instagram long-lived exchange returned status %d", resp.StatusCode)
	}

	var tokenResponse transfer.InstagramTokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tokenResponse); err != nil {
		return nil, err
	}

	return &tokenResponse, nil
}

func (s *instagramService) fetchProfile(ctx context.Context, accessToken string) (*transfer.PlatformProfile, error) {
	profileURL := fmt.Sprintf("%s/me?fields=id,username,name,profile_picture_url,followers_count&access_token=%s",
		s.graphBase, url.QueryEscape(accessToken))
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
		return nil, fmt.Errorf("instagram profile endpoint returned status %d", resp.StatusCode)
	}

	var userInfo transfer.InstagramUserInfo
	if err := json.NewDecoder(resp.Body).Decode(&userInfo); err != nil {
		return nil, err
	}

	return &transfer.PlatformProfile{
		PlatformUserID: userInfo.UserID,
		Name:           userInfo.Name,
		Username:       userInfo.Username,
		AvatarURL:      userInfo.ProfilePicture,
		FollowerCount:  userInfo.FollowersCount,
	}, nil
}

func (s *instagramService) RefreshAccessToken(ctx context.Context, refreshToken string) *transfer.OAuthTokens {
	params := url.Values{}
	params.Set("grant_type", "ig_refresh_token")
	params.Set("access_token", refreshToken)

	refreshURL := fmt.Sprintf("%s/refresh_access_token?%s", s.graphBase, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, refreshURL, nil)
	if err != nil {
		slog.Info(err.Error())
		return nil
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		slog.Info("instagram token refresh failed", "error", err)
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		slog.Info("instagram token refresh rejected", "status", resp.StatusCode)
		return nil
	}

	var tokenResponse transfer.InstagramTokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tokenResponse); err != nil {
		slog.Info(err.Error())
		return nil
	}

	return &transfer.OAuthTokens{
		AccessToken:  tokenResponse.AccessToken,
		RefreshToken: tokenResponse.AccessToken,
		ExpiresIn:    tokenResponse.ExpiresIn,
	}
}

// Publish creates a media container and then publishes it. Instagram
// mandates media on every post; a post without any is rejected before
// touching the API.
func (s *instagramService) Publish(ctx context.Context, post *models.Post, acc *models.SocialAccount, accessToken string) transfer.PublishOutcome {
	if len(post.MediaURLs) == 0 {
		return failure(models.PlatformInstagram, "", "instagram requires at least one media attachment")
	}

	containerID, outcome := s.createContainer(ctx, post, acc, accessToken)
	if containerID == "" {
		return outcome
	}

	return s.publishContainer(ctx, acc, accessToken, containerID)
}

func (s *instagramService) createContainer(ctx context.Context, post *models.Post, acc *models.SocialAccount, accessToken string) (string, transfer.PublishOutcome) {
	data := url.Values{}
	data.Set("image_url", post.MediaURLs[0])
	data.Set("caption", post.Content)
	data.Set("access_token", accessToken)

	containerURL := fmt.Sprintf("%s/%s/media", s.graphBase, acc.PlatformUserID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, containerURL, strings.NewReader(data.Encode()))
	if err != nil {
		return "", failure(models.PlatformInstagram, errs.CategoryUnknown, err.Error())
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := httpClient.Do(req)
	if err != nil {
		return "", failure(models.PlatformInstagram, errs.CategoryUnknown, err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", s.classifyPublishError(resp)
	}

	var container transfer.InstagramContainerResponse
	if err := json.NewDecoder(resp.Body).Decode(&container); err != nil {
		return "", failure(models.PlatformInstagram, errs.CategoryUnknown, err.Error())
	}

	return container.ID, transfer.PublishOutcome{}
}

func (s *instagramService) publishContainer(ctx context.Context, acc *models.SocialAccount, accessToken, containerID string) transfer.PublishOutcome {
	data := url.Values{}
	data.Set("creation_id", containerID)
	data.Set("access_token", accessToken)

	publishURL := fmt.Sprintf("%s/%s/media_publish", s.graphBase, acc.PlatformUserID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, publishURL, strings.NewReader(data.Encode()))
	if err != nil {
		return failure(models.PlatformInstagram, errs.CategoryUnknown, err.Error())
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := httpClient.Do(req)
	if err != nil {
		return failure(models.PlatformInstagram, errs.CategoryUnknown, err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return s.classifyPublishError(resp)
	}

	var published transfer.InstagramPublishResponse
	if err := json.NewDecoder(resp.Body).Decode(&published); err != nil {
		return failure(models.PlatformInstagram, errs.CategoryUnknown, err.Error())
	}

	return transfer.PublishOutcome{
		Platform: models.PlatformInstagram,
		Success:  true,
		PostID:   published.ID,
	}
}

func (s *instagramService) classifyPublishError(resp *http.Response) transfer.PublishOutcome {
	var apiError transfer.FacebookErrorResponse
	_ = json.NewDecoder(resp.Body).Decode(&apiError)

	message := apiError.Error.Message
	if message == "" {
		message = fmt.Sprintf("instagram returned status %d", resp.StatusCode)
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

	return failure(models.PlatformInstagram, category, message)
}
