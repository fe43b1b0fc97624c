package service

import (
	"context"
	"net/http"
	"strings"

	config "github.com/maheshrc27/broadcast/configs"
	"github.com/maheshrc27/broadcast/internal/models"
	"github.com/maheshrc27/broadcast/internal/platform"
	"github.com/maheshrc27/broadcast/internal/transfer"
	"golang.org/x/oauth2"
)

const (
	twitterAuthURL  = "https://twitter.com/i/oauth2/authorize"
	twitterTokenURL = "https://api.twitter.com/2/oauth2/token"
	TwitterAPIBase  = "https://api.twitter.com"
)

// OAuthProvider covers the authorization-code platforms.
type OAuthProvider interface {
	Adapter
	AuthURL(state, verifier string) string
	Exchange(ctx context.Context, code, verifier string) (*oauth2.Token, error)
	Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error)
}

type TwitterService interface {
	OAuthProvider
	Me(ctx context.Context, accessToken string) (*transfer.TwitterUser, error)
}

type twitterService struct {
	oauth   *oauth2.Config
	apiBase string
	client  *http.Client
}

func NewTwitterService(cfg config.Config, apiBase string, client *http.Client) TwitterService {
	if apiBase == "" {
		apiBase = TwitterAPIBase
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &twitterService{
		oauth: &oauth2.Config{
			ClientID:     cfg.Twitter.ClientID,
			ClientSecret: cfg.Twitter.ClientSecret,
			RedirectURL:  cfg.Twitter.RedirectURI,
			Scopes:       []string{"tweet.read", "tweet.write", "users.read", "offline.access"},
			Endpoint: oauth2.Endpoint{
				AuthURL:   twitterAuthURL,
				TokenURL:  twitterTokenURL,
				AuthStyle: oauth2.AuthStyleInHeader,
			},
		},
		apiBase: strings.TrimRight(apiBase, "/"),
		client:  client,
	}
}

func (s *twitterService) Platform() platform.ID { return platform.Twitter }

func (s *twitterService) AuthURL(state, verifier string) string {
	return s.oauth.AuthCodeURL(state, oauth2.S256ChallengeOption(verifier))
}

func (s *twitterService) Exchange(ctx context.Context, code, verifier string) (*oauth2.Token, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, s.client)
	token, err := s.oauth.Exchange(ctx, code, oauth2.VerifierOption(verifier))
	if err != nil {
		return nil, upstream("Twitter token exchange failed: %v", err)
	}
	return token, nil
}

func (s *twitterService) Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, s.client)
	return s.oauth.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken}).Token()
}

func (s *twitterService) Me(ctx context.Context, accessToken string) (*transfer.TwitterUser, error) {
	var user transfer.TwitterUser
	if err := doJSON(ctx, s.client, http.MethodGet, s.apiBase+"/2/users/me", accessToken, nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// Publish posts text only; hashtags are appended inline.
func (s *twitterService) Publish(ctx context.Context, conn *models.PlatformConnection, req *transfer.PublishRequest) (*transfer.PublishResult, error) {
	tweet := transfer.TwitterTweetRequest{
		Text: platform.ComposeText(req.Content, req.Tags, platform.Twitter),
	}

	var created transfer.TwitterTweetResponse
	if err := doJSON(ctx, s.client, http.MethodPost, s.apiBase+"/2/tweets", conn.AccessToken, tweet, &created); err != nil {
		return nil, err
	}

	return &transfer.PublishResult{
		PlatformPostID:  created.Data.ID,
		PlatformPostURL: "https://twitter.com/" + conn.PlatformUsername + "/status/" + created.Data.ID,
	}, nil
}
