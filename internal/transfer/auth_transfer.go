package transfer

import "github.com/golang-jwt/jwt/v5"

type CustomClaims struct {
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}

type TwitterUser struct {
	Data struct {
		ID       string `json:"id"`
		Name     string `json:"name"`
		Username string `json:"username"`
	} `json:"data"`
}

type TwitterTweetRequest struct {
	Text string `json:"text"`
}

type TwitterTweetResponse struct {
	Data struct {
		ID   string `json:"id"`
		Text string `json:"text"`
	} `json:"data"`
}

type MastodonConnect struct {
	Instance string `json:"instance"`
}

type ConnectResponse struct {
	AuthURL   string `json:"auth_url,omitempty"`
	Connected bool   `json:"connected,omitempty"`
	Platform  string `json:"platform"`
	Username  string `json:"username,omitempty"`
}

type UploadedImage struct {
	URL      string `json:"url"`
	FileName string `json:"file_name"`
	AltText  string `json:"alt_text"`
}
