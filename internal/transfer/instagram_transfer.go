package transfer

type InstagramTokenResponse struct {
	AccessToken string `json:"access_token"`
	UserID      int64  `json:"user_id"`
	ExpiresIn   int    `json:"expires_in"`
}

type InstagramUserInfo struct {
	UserID         string `json:"id"`
	Username       string `json:"username"`
	Name           string `json:"name"`
	ProfilePicture string `json:"profile_picture_url"`
	FollowersCount int    `json:"followers_count"`
}

type InstagramContainerResponse struct {
	ID string `json:"id"`
}

type InstagramPublishResponse struct {
	ID string `json:"id"`
}
