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
	"github.com/adnanh27/postbridge/pkg/utils"
)

const (
	twitterAuthURL   = "https://twitter.com/i/oauth2/authorize"
	twitterTokenURL  = "https://api.twitter.com/2/oauth2/token"
	twitterAPIBase   = "https://api.twitter.com"
	twitterScopes    = "tweet.read tweet.write users.read offline.access"
	twitterCharLimit = 280
)

type TwitterService interface {
	PlatformAdapter
	PlatformPublisher
}

type twitterService struct {
	creds    config.PlatformCredentials
	tokenURL string
	apiBase  string
}

func NewTwitterService(cfg config.Config) TwitterService {
	return &twitterService{
		creds:    cfg.Twitter,
		tokenURL: twitterTokenURL,
		apiBase:  twitterAPIBase,
	}
}

func (s *twitterService) Platform() string {
	return models.PlatformTwitter
}

// GenerateAuthURL builds the PKCE authorize URL. The returned code
// verifier must be persisted with the state and replayed at callback.
func (s *twitterService) GenerateAuthURL(state string) (*transfer.AuthURL, error) {
	verifier, err := utils.GeneratePKCEVerifier()
	if err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Add("response_type", "code")
	params.Add("client_id", s.creds.ClientID)
	params.Add("redirect_uri", s.creds.RedirectURI)
	params.Add("scope", twitterScopes)
	params.Add("state", state)
	params.Add("code_challenge", utils.PKCEChallenge(verifier))
	params.Add("code_challenge_method", "S256")

	return &transfer.AuthURL{
		URL:          fmt.Sprintf("%s?%s", twitterAuthURL, params.Encode()),
		CodeVerifier: verifier,
	}, nil
}

func (s *twitterService) HandleCallback(ctx context.Context, code, codeVerifier string) *transfer.OAuthResult {
	if code == "" || codeVerifier == "" {
		return &transfer.OAuthResult{Error: "missing code or code verifier"}
	}

	tokenResponse, err := s.exchangeCodeForToken(ctx, code, codeVerifier)
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

func (s *twitterService) exchangeCodeForToken(ctx context.Context, code, codeVerifier string) (*transfer.TwitterTokenResponse, error) {
	data := url.Values{}
	data.Set("grant_type", "authorization_code")
	data.Set("code", code)
	data.Set("redirect_uri", s.creds.RedirectURI)
	data.Set("code_verifier", codeVerifier)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.tokenURL, strings.NewReader(data.Encode()))
	if err != nil {
		return nil, err
	}
	req.SetBasicAuth(s.creds.ClientID, s.creds.ClientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("twitter token request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("twitter token endpoint returned status %d", resp.StatusCode)
	}

	var tokenResponse transfer.TwitterTokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tokenResponse); err != nil {
		return nil, fmt.Errorf("failed to decode token response: %w", err)
	}

	return &tokenResponse, nil
}

func (s *twitterService) fetchProfile(ctx context.Context, accessToken string) (*transfer.PlatformProfile, error) {
	profileURL := s.apiBase + "/2/users/me?user.fields=profile_image_url,public_metrics"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, profileURL, nil)
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
		return nil, fmt.Errorf("twitter profile endpoint returned status %d", resp.StatusCode)
	}

	var userResponse transfer.TwitterUserResponse
	if err := json.NewDecoder(resp.Body).Decode(&userResponse); err != nil {
		return nil, err
	}

	return &transfer.PlatformProfile{
		PlatformUserID: userResponse.Data.ID,
		Name:           userResponse.Data.Name,
		Username:       userResponse.Data.Username,
		AvatarURL:      userResponse.Data.ProfileImageURL,
		FollowerCount:  userResponse.Data.PublicMetrics.FollowersCount,
	}, nil
}

func (s *twitterService) RefreshAccessToken(ctx context.Context, refreshToken string) *transfer.OAuthTokens {
	data := url.Values{}
	data.Set("grant_type", "refresh_token")
	data.Set("refresh_token", refreshToken)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.tokenURL, strings.NewReader(data.Encode()))
	if err != nil {
		slog.Info(err.Error())
		return nil
	}
	req.SetBasicAuth(s.creds.ClientID, s.creds.ClientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := httpClient.Do(req)
	if err != nil {
		slog.Info("twitter token refresh failed", "error", err)
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		slog.Info("twitter token refresh rejected", "status", resp.StatusCode)
		return nil
	}

	var tokenResponse transfer.TwitterTokenResponse
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

// Publish posts a tweet. Content beyond the 280-character ceiling is
// truncated rather than rejected.
func (s *twitterService) Publish(ctx context.Context, post *models.Post, acc *models.SocialAccount, accessToken string) transfer.PublishOutcome {
	tweet := transfer.TwitterTweetRequest{Text: TruncateContent(post.Content, twitterCharLimit)}

	payload, err := json.Marshal(tweet)
	if err != nil {
		return failure(models.PlatformTwitter, errs.CategoryUnknown, err.Error())
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.apiBase+"/2/tweets", bytes.NewBuffer(payload))
	if err != nil {
		return failure(models.PlatformTwitter, errs.CategoryUnknown, err.Error())
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := httpClient.Do(req)
	if err != nil {
		return failure(models.PlatformTwitter, errs.CategoryUnknown, err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return s.classifyPublishError(resp)
	}

	var tweetResponse transfer.TwitterTweetResponse
	if err := json.NewDecoder(resp.Body).Decode(&tweetResponse); err != nil {
		return failure(models.PlatformTwitter, errs.CategoryUnknown, err.Error())
	}

	return transfer.PublishOutcome{
		Platform: models.PlatformTwitter,
		Success:  true,
		PostID:   tweetResponse.Data.ID,
	}
}

func (s *twitterService) classifyPublishError(resp *http.Response) transfer.PublishOutcome {
	var apiError transfer.TwitterErrorResponse
	_ = json.NewDecoder(resp.Body).Decode(&apiError)

	detail := apiError.Detail
	if detail == "" {
		detail = fmt.Sprintf("twitter returned status %d", resp.StatusCode)
	}

	category := errs.CategoryUnknown
	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		category = errs.CategoryAuthExpired
	case resp.StatusCode == http.StatusTooManyRequests:
		category = errs.CategoryRateLimited
	case resp.StatusCode == http.StatusForbidden && strings.Contains(strings.ToLower(detail), "duplicate"):
		category = errs.CategoryDuplicateContent
	}

	return failure(models.PlatformTwitter, category, detail)
}

func failure(platform, category, message string) transfer.PublishOutcome {
	return transfer.PublishOutcome{
		Platform: platform,
		Category: category,
		Error:    message,
	}
}
