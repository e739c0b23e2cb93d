package service

import (
	"bytes"
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
	linkedinAuthURL   = "https://www.linkedin.com/oauth/v2/authorization"
	linkedinTokenURL  = "https://www.linkedin.com/oauth/v2/accessToken"
	linkedinAPIBase   = "https://api.linkedin.com"
	linkedinScopes    = "openid profile email w_member_social"
	linkedinCharLimit = 3000
)

type LinkedinService interface {
	PlatformAdapter
	PlatformPublisher
}

type linkedinService struct {
	creds    config.PlatformCredentials
	tokenURL string
	apiBase  string
}

func NewLinkedinService(cfg config.Config) LinkedinService {
	return &linkedinService{
		creds:    cfg.LinkedIn,
		tokenURL: linkedinTokenURL,
		apiBase:  linkedinAPIBase,
	}
}

func (s *linkedinService) Platform() string {
	return models.PlatformLinkedIn
}

func (s *linkedinService) GenerateAuthURL(state string) (*transfer.AuthURL, error) {
	params := url.Values{}
	params.Add("response_type", "code")
	params.Add("client_id", s.creds.ClientID)
	params.Add("redirect_uri", s.creds.RedirectURI)
	params.Add("scope", linkedinScopes)
	params.Add("state", state)

	return &transfer.AuthURL{URL: fmt.Sprintf("%s?%s", linkedinAuthURL, params.Encode())}, nil
}

func (s *linkedinService) HandleCallback(ctx context.Context, code, codeVerifier string) *transfer.OAuthResult {
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
			AccessToken:  tokenResponse.AccessToken,
			RefreshToken: tokenResponse.RefreshToken,
			ExpiresIn:    tokenResponse.ExpiresIn,
			Scopes:       splitScopes(tokenResponse.Scope),
		},
		Profile: profile,
	}
}

func (s *linkedinService) exchangeCodeForToken(ctx context.Context, code string) (*transfer.LinkedinTokenResponse, error) {
	data := url.Values{}
	data.Set("grant_type", "authorization_code")
	data.Set("code", code)
	data.Set("client_id", s.creds.ClientID)
	data.Set("client_secret", s.creds.ClientSecret)
	data.Set("redirect_uri", s.creds.RedirectURI)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.tokenURL, strings.NewReader(data.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("linkedin token request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("linkedin token endpoint returned status %d", resp.StatusCode)
	}

	var tokenResponse transfer.LinkedinTokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tokenResponse); err != nil {
		return nil, fmt.Errorf("failed to decode token response: %w", err)
	}

	return &tokenResponse, nil
}

func (s *linkedinService) fetchProfile(ctx context.Context, accessToken string) (*transfer.PlatformProfile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.apiBase+"/v2/userinfo", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("linkedin userinfo endpoint returned status %d", resp.StatusCode)
	}

	var userInfo transfer.LinkedinUserInfo
	if err := json.NewDecoder(resp.Body).Decode(&userInfo); err != nil {
		return nil, err
	}

	return &transfer.PlatformProfile{
		PlatformUserID: userInfo.Sub,
		Name:           userInfo.Name,
		Username:       userInfo.Email,
		AvatarURL:      userInfo.Picture,
	}, nil
}

func (s *linkedinService) RefreshAccessToken(ctx context.Context, refreshToken string) *transfer.OAuthTokens {
	data := url.Values{}
	data.Set("grant_type", "refresh_token")
	data.Set("refresh_token", refreshToken)
	data.Set("client_id", s.creds.ClientID)
	data.Set("client_secret", s.creds.ClientSecret)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.tokenURL, strings.NewReader(data.Encode()))
	if err != nil {
		slog.Info(err.Error())
		return nil
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := httpClient.Do(req)
	if err != nil {
		slog.Info("linkedin token refresh failed", "error", err)
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		slog.Info("linkedin token refresh rejected", "status", resp.StatusCode)
		return nil
	}

	var tokenResponse transfer.LinkedinTokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tokenResponse); err != nil {
		slog.Info(err.Error())
		return nil
	}

	return &transfer.OAuthTokens{
		AccessToken:  tokenResponse.AccessToken,
		RefreshToken: tokenResponse.RefreshToken,
		ExpiresIn:    tokenResponse.ExpiresIn,
		Scopes:       splitScopes(tokenResponse.Scope),
	}
}

func (s *linkedinService) Publish(ctx context.Context, post *models.Post, acc *models.SocialAccount, accessToken string) transfer.PublishOutcome {
	share := transfer.LinkedinShareRequest{
		Author:         "urn:li:person:" + acc.PlatformUserID,
		LifecycleState: "PUBLISHED",
		SpecificContent: map[string]interface{}{
			"com.linkedin.ugc.ShareContent": map[string]interface{}{
				"shareCommentary": map[string]string{
					"text": TruncateContent(post.Content, linkedinCharLimit),
				},
				"shareMediaCategory": "NONE",
			},
		},
		Visibility: map[string]string{
			"com.linkedin.ugc.MemberNetworkVisibility": "PUBLIC",
		},
	}

	payload, err := json.Marshal(share)
	if err != nil {
		return failure(models.PlatformLinkedIn, errs.CategoryUnknown, err.Error())
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.apiBase+"/v2/ugcPosts", bytes.NewBuffer(payload))
	if err != nil {
		return failure(models.PlatformLinkedIn, errs.CategoryUnknown, err.Error())
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Restli-Protocol-Version", "2.0.0")

	resp, err := httpClient.Do(req)
	if err != nil {
		return failure(models.PlatformLinkedIn, errs.CategoryUnknown, err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return s.classifyPublishError(resp)
	}

	var shareResponse transfer.LinkedinShareResponse
	if err := json.NewDecoder(resp.Body).Decode(&shareResponse); err != nil {
		return failure(models.PlatformLinkedIn, errs.CategoryUnknown, err.Error())
	}

	return transfer.PublishOutcome{
		Platform: models.PlatformLinkedIn,
		Success:  true,
		PostID:   shareResponse.ID,
	}
}

func (s *linkedinService) classifyPublishError(resp *http.Response) transfer.PublishOutcome {
	var apiError transfer.LinkedinErrorResponse
	_ = json.NewDecoder(resp.Body).Decode(&apiError)

	message := apiError.Message
	if message == "" {
		message = fmt.Sprintf("linkedin returned status %d", resp.StatusCode)
	}

	category := errs.CategoryUnknown
	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		category = errs.CategoryAuthExpired
	case resp.StatusCode == http.StatusTooManyRequests:
		category = errs.CategoryRateLimited
	case strings.Contains(strings.ToLower(message), "duplicate"):
		category = errs.CategoryDuplicateContent
	}

	return failure(models.PlatformLinkedIn, category, message)
}
