package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	config "github.com/adnanh27/postbridge/configs"
	"github.com/adnanh27/postbridge/internal/errs"
	"github.com/adnanh27/postbridge/internal/models"
)

func testInstagramService(tokenURL, graphBase string) *instagramService {
	return &instagramService{
		creds: config.PlatformCredentials{
			ClientID:     "client-id",
			ClientSecret: "client-secret",
			RedirectURI:  "http://localhost:3000/api/auth/instagram/callback",
		},
		tokenURL:  tokenURL,
		graphBase: graphBase,
	}
}

func TestInstagramPublishRequiresMedia(t *testing.T) {
	s := testInstagramService(instagramTokenURL, instagramGraphBase)

	outcome := s.Publish(context.Background(), &models.Post{Content: "caption only"}, &models.SocialAccount{}, "token")

	require.False(t, outcome.Success)
	assert.Contains(t, outcome.Error, "media")
}

func TestInstagramPublishContainerFlow(t *testing.T) {
	var containerCreated, containerPublished bool

	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/178000/media":
			containerCreated = true
			require.NoError(t, r.ParseForm())
			assert.Equal(t, "https://cdn.postbridge.app/pic.jpg", r.FormValue("image_url"))
			assert.Equal(t, "hello insta", r.FormValue("caption"))
			json.NewEncoder(w).Encode(map[string]string{"id": "container-5"})
		case "/178000/media_publish":
			containerPublished = true
			require.NoError(t, r.ParseForm())
			assert.Equal(t, "container-5", r.FormValue("creation_id"))
			json.NewEncoder(w).Encode(map[string]string{"id": "ig-post-77"})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer api.Close()

	s := testInstagramService(api.URL, api.URL)
	post := &models.Post{
		Content:   "hello insta",
		MediaURLs: []string{"https://cdn.postbridge.app/pic.jpg"},
	}
	acc := &models.SocialAccount{PlatformUserID: "178000"}

	outcome := s.Publish(context.Background(), post, acc, "token")

	require.True(t, outcome.Success, outcome.Error)
	assert.True(t, containerCreated)
	assert.True(t, containerPublished)
	assert.Equal(t, "ig-post-77", outcome.PostID)
}

func TestInstagramPublishClassifiesGraphErrors(t *testing.T) {
	tests := []struct {
		name     string
		code     int
		category string
	}{
		{"expired token", 190, errs.CategoryAuthExpired},
		{"application throttled", 4, errs.CategoryRateLimited},
		{"user throttled", 17, errs.CategoryRateLimited},
		{"duplicate", 506, errs.CategoryDuplicateContent},
		{"other", 100, errs.CategoryUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadRequest)
				json.NewEncoder(w).Encode(map[string]interface{}{
					"error": map[string]interface{}{
						"message": "graph api error",
						"code":    tt.code,
					},
				})
			}))
			defer api.Close()

			s := testInstagramService(api.URL, api.URL)
			post := &models.Post{MediaURLs: []string{"https://cdn.postbridge.app/pic.jpg"}}
			outcome := s.Publish(context.Background(), post, &models.SocialAccount{PlatformUserID: "178000"}, "token")

			require.False(t, outcome.Success)
			assert.Equal(t, tt.category, outcome.Category)
		})
	}
}

func TestInstagramRefreshUsesCurrentToken(t *testing.T) {
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/refresh_access_token", r.URL.Path)
		assert.Equal(t, "ig_refresh_token", r.URL.Query().Get("grant_type"))
		assert.Equal(t, "current-long-lived", r.URL.Query().Get("access_token"))

		json.NewEncoder(w).Encode(map[string]interface{}{
			"access_token": "extended-long-lived",
			"expires_in":   5184000,
		})
	}))
	defer api.Close()

	s := testInstagramService(api.URL, api.URL)

	tokens := s.RefreshAccessToken(context.Background(), "current-long-lived")
	require.NotNil(t, tokens)
	assert.Equal(t, "extended-long-lived", tokens.AccessToken)
	assert.Equal(t, "extended-long-lived", tokens.RefreshToken, "the long-lived token doubles as refresh token")
}
