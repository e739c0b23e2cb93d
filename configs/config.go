package config

import (
	"fmt"
	"os"
	"strings"
)

type R2 struct {
	AccountID  string
	AccessKey  string
	SecretKey  string
	BucketName string
	PublicURL  string
}

type PlatformCredentials struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
}

type Config struct {
	Environment string

	Twitter   PlatformCredentials
	LinkedIn  PlatformCredentials
	Facebook  PlatformCredentials
	Instagram PlatformCredentials
	Google    PlatformCredentials

	PostgresURI string
	RedisURI    string
	FrontendURL string
	R2          R2

	// EncryptionKey protects stored OAuth tokens, SecretKey signs
	// session cookies and OAuth state values.
	EncryptionKey string
	SecretKey     string
	CookieName    string

	AllowedCallbackDomains []string
}

func LoadConfig() *Config {
	return &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		Twitter: PlatformCredentials{
			ClientID:     getEnv("TWITTER_CLIENT_ID", ""),
			ClientSecret: getEnv("TWITTER_CLIENT_SECRET", ""),
			RedirectURI:  getEnv("TWITTER_REDIRECT_URI", ""),
		},
		LinkedIn: PlatformCredentials{
			ClientID:     getEnv("LINKEDIN_CLIENT_ID", ""),
			ClientSecret: getEnv("LINKEDIN_CLIENT_SECRET", ""),
			RedirectURI:  getEnv("LINKEDIN_REDIRECT_URI", ""),
		},
		Facebook: PlatformCredentials{
			ClientID:     getEnv("FACEBOOK_CLIENT_ID", ""),
			ClientSecret: getEnv("FACEBOOK_CLIENT_SECRET", ""),
			RedirectURI:  getEnv("FACEBOOK_REDIRECT_URI", ""),
		},
		Instagram: PlatformCredentials{
			ClientID:     getEnv("INSTAGRAM_CLIENT_ID", ""),
			ClientSecret: getEnv("INSTAGRAM_CLIENT_SECRET", ""),
			RedirectURI:  getEnv("INSTAGRAM_REDIRECT_URI", ""),
		},
		Google: PlatformCredentials{
			ClientID:     getEnv("GOOGLE_CLIENT_ID", ""),
			ClientSecret: getEnv("GOOGLE_CLIENT_SECRET", ""),
			RedirectURI:  getEnv("GOOGLE_REDIRECT_URI", ""),
		},
		PostgresURI: getEnv("POSTGRES_URI", ""),
		RedisURI:    getEnv("REDIS_URI", ""),
		FrontendURL: getEnv("FRONTEND_URL", "http://localhost:5173"),
		R2: R2{
			AccountID:  getEnv("R2_ACCOUNT_ID", ""),
			AccessKey:  getEnv("R2_ACCESS_KEY", ""),
			SecretKey:  getEnv("R2_SECRET_KEY", ""),
			BucketName: getEnv("R2_BUCKET_NAME", ""),
			PublicURL:  getEnv("R2_PUBLIC_URL", ""),
		},
		EncryptionKey:          getEnv("TOKEN_ENCRYPTION_KEY", ""),
		SecretKey:              getEnv("SECRET_KEY", ""),
		CookieName:             getEnv("COOKIE_NAME", "postbridge_session"),
		AllowedCallbackDomains: splitList(getEnv("ALLOWED_CALLBACK_DOMAINS", "")),
	}
}

// placeholderPatterns are substrings that mark a secret as a template
// value that was never replaced with a real key.
var placeholderPatterns = []string{"your-", "demo-", "example", "changeme", "placeholder"}

// Validate checks everything that must be correct before the process is
// allowed to serve traffic. Violations abort startup rather than fail
// lazily on first use.
func (c *Config) Validate() error {
	if c.EncryptionKey == "" {
		return fmt.Errorf("config: TOKEN_ENCRYPTION_KEY is not set")
	}
	if len(c.EncryptionKey) != 32 {
		return fmt.Errorf("config: TOKEN_ENCRYPTION_KEY must be exactly 32 bytes, got %d", len(c.EncryptionKey))
	}
	lower := strings.ToLower(c.EncryptionKey)
	for _, pattern := range placeholderPatterns {
		if strings.Contains(lower, pattern) {
			return fmt.Errorf("config: TOKEN_ENCRYPTION_KEY looks like a placeholder (contains %q)", pattern)
		}
	}

	if c.SecretKey == "" {
		return fmt.Errorf("config: SECRET_KEY is not set")
	}
	if c.PostgresURI == "" {
		return fmt.Errorf("config: POSTGRES_URI is not set")
	}
	if c.RedisURI == "" {
		return fmt.Errorf("config: REDIS_URI is not set")
	}

	platforms := map[string]PlatformCredentials{
		"twitter":   c.Twitter,
		"linkedin":  c.LinkedIn,
		"facebook":  c.Facebook,
		"instagram": c.Instagram,
		"google":    c.Google,
	}
	for name, creds := range platforms {
		if creds.ClientID == "" || creds.ClientSecret == "" || creds.RedirectURI == "" {
			return fmt.Errorf("config: incomplete oauth credentials for %s", name)
		}
		if !c.callbackDomainAllowed(creds.RedirectURI) {
			return fmt.Errorf("config: redirect URI for %s is not in ALLOWED_CALLBACK_DOMAINS", name)
		}
	}

	return nil
}

func (c *Config) callbackDomainAllowed(redirectURI string) bool {
	host := hostOf(redirectURI)
	if host == "" {
		return false
	}
	// localhost is implicitly allowed everywhere except production.
	if c.Environment != "production" && (host == "localhost" || host == "127.0.0.1") {
		return true
	}
	for _, domain := range c.AllowedCallbackDomains {
		if host == domain || strings.HasSuffix(host, "."+domain) {
			return true
		}
	}
	return false
}

func hostOf(rawURL string) string {
	rest := rawURL
	if idx := strings.Index(rest, "://"); idx != -1 {
		rest = rest[idx+3:]
	}
	if idx := strings.IndexAny(rest, "/?#"); idx != -1 {
		rest = rest[:idx]
	}
	if idx := strings.Index(rest, ":"); idx != -1 {
		rest = rest[:idx]
	}
	return rest
}

func splitList(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
