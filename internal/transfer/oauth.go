package transfer

// OAuthTokens is the normalized result of a code exchange or refresh.
type OAuthTokens struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    int
	Scopes       []string
}

// PlatformProfile carries the minimal profile fields fetched after a
// successful exchange.
type PlatformProfile struct {
	PlatformUserID string
	Name           string
	Username       string
	AvatarURL      string
	FollowerCount  int
}

// OAuthResult is the discriminated outcome of an OAuth callback.
// External-API failures populate Error instead of being raised, so the
// handler can branch deterministically.
type OAuthResult struct {
	Success bool
	Tokens  *OAuthTokens
	Profile *PlatformProfile
	Error   string
}

// AuthURL is what generateAuthUrl hands back. CodeVerifier is only set
// for PKCE platforms and must be replayed at callback time.
type AuthURL struct {
	URL          string
	CodeVerifier string
}
