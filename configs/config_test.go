package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	creds := PlatformCredentials{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		RedirectURI:  "https://api.postbridge.app/api/auth/platform/callback",
	}
	return &Config{
		Environment:            "production",
		Twitter:                creds,
		LinkedIn:               creds,
		Facebook:               creds,
		Instagram:              creds,
		Google:                 creds,
		PostgresURI:            "postgres://localhost/postbridge",
		RedisURI:               "localhost:6379",
		EncryptionKey:          "0123456789abcdef0123456789abcdef",
		SecretKey:              "jwt-signing-secret",
		AllowedCallbackDomains: []string{"postbridge.app"},
	}
}

func TestValidateAcceptsCompleteConfig(t *testing.T) {
	require.NoError(t, validConfig().Validate())
}

func TestValidateEncryptionKey(t *testing.T) {
	tests := []struct {
		name string
		key  string
	}{
		{"missing", ""},
		{"wrong length", "too-short"},
		{"placeholder", "your-encryption-key-placeholder1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			cfg.EncryptionKey = tt.key
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestValidateRequiresCompletePlatformCredentials(t *testing.T) {
	cfg := validConfig()
	cfg.LinkedIn.ClientSecret = ""
	assert.Error(t, cfg.Validate())
}

func TestValidateRejectsUnlistedCallbackDomain(t *testing.T) {
	cfg := validConfig()
	cfg.Twitter.RedirectURI = "https://evil.example.com/callback"
	assert.Error(t, cfg.Validate())
}

func TestValidateAllowsSubdomainsOfAllowedDomain(t *testing.T) {
	cfg := validConfig()
	cfg.Twitter.RedirectURI = "https://staging.postbridge.app/callback"
	require.NoError(t, cfg.Validate())
}

func TestLocalhostCallbackOnlyOutsideProduction(t *testing.T) {
	cfg := validConfig()
	cfg.Twitter.RedirectURI = "http://localhost:3000/api/auth/twitter/callback"

	assert.Error(t, cfg.Validate())

	cfg.Environment = "development"
	assert.NoError(t, cfg.Validate())
}
