package service

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	config "github.com/maheshrc27/broadcast/configs"
	"github.com/maheshrc27/broadcast/internal/models"
	"github.com/maheshrc27/broadcast/internal/platform"
	"github.com/maheshrc27/broadcast/internal/transfer"
	"github.com/mattn/go-mastodon"
)

const (
	mastodonAppName = "Broadcast"
	mastodonScopes  = "read write"
)

type MastodonApp struct {
	ClientID     string
	ClientSecret string
}

type MastodonService interface {
	Adapter
	RegisterApp(ctx context.Context, instanceURL string) (*MastodonApp, error)
	AuthURL(instanceURL, clientID, state string) string
	Authenticate(ctx context.Context, instanceURL string, app *MastodonApp, code string) (string, *mastodon.Account, error)
}

type mastodonService struct {
	redirectURI string
	website     string
	client      *http.Client
	images      ImageService
}

func NewMastodonService(cfg config.Config, client *http.Client, images ImageService) MastodonService {
	if client == nil {
		client = http.DefaultClient
	}
	return &mastodonService{
		redirectURI: cfg.MastodonRedirect,
		website:     cfg.FrontendURL,
		client:      client,
		images:      images,
	}
}

func (s *mastodonService) Platform() platform.ID { return platform.Mastodon }

// NormalizeInstance turns "mastodon.social" or "https://mastodon.social/"
// into "https://mastodon.social".
func NormalizeInstance(instance string) (string, error) {
	instance = strings.TrimSpace(instance)
	if instance == "" {
		return "", invalidInput("Instance URL is required")
	}
	if !strings.Contains(instance, "://") {
		instance = "https://" + instance
	}

	u, err := url.Parse(instance)
	if err != nil || u.Host == "" || (u.Scheme != "https" && u.Scheme != "http") {
		return "", invalidInput("Invalid instance URL: %s", instance)
	}
	return u.Scheme + "://" + u.Host, nil
}

func (s *mastodonService) newClient(cfg *mastodon.Config) *mastodon.Client {
	c := mastodon.NewClient(cfg)
	c.Client = *s.client
	return c
}

func (s *mastodonService) RegisterApp(ctx context.Context, instanceURL string) (*MastodonApp, error) {
	app, err := mastodon.RegisterApp(ctx, &mastodon.AppConfig{
		Client:       *s.client,
		Server:       instanceURL,
		ClientName:   mastodonAppName,
		Scopes:       mastodonScopes,
		Website:      s.website,
		RedirectURIs: s.redirectURI,
	})
	if err != nil {
		return nil, upstream("Failed to register app with %s: %v", instanceURL, err)
	}
	return &MastodonApp{ClientID: app.ClientID, ClientSecret: app.ClientSecret}, nil
}

func (s *mastodonService) AuthURL(instanceURL, clientID, state string) string {
	params := url.Values{}
	params.Add("client_id", clientID)
	params.Add("redirect_uri", s.redirectURI)
	params.Add("response_type", "code")
	params.Add("scope", mastodonScopes)
	params.Add("state", state)

	return fmt.Sprintf("%s/oauth/authorize?%s", instanceURL, params.Encode())
}

func (s *mastodonService) Authenticate(ctx context.Context, instanceURL string, app *MastodonApp, code string) (string, *mastodon.Account, error) {
	c := s.newClient(&mastodon.Config{
		Server:       instanceURL,
		ClientID:     app.ClientID,
		ClientSecret: app.ClientSecret,
	})

	if err := c.AuthenticateToken(ctx, code, s.redirectURI); err != nil {
		return "", nil, upstream("Mastodon token exchange failed: %v", err)
	}

	account, err := c.GetAccountCurrentUser(ctx)
	if err != nil {
		return "", nil, upstream("Failed to verify Mastodon credentials: %v", err)
	}
	return c.Config.AccessToken, account, nil
}

func (s *mastodonService) Publish(ctx context.Context, conn *models.PlatformConnection, req *transfer.PublishRequest) (*transfer.PublishResult, error) {
	c := s.newClient(&mastodon.Config{
		Server:      conn.InstanceURL,
		AccessToken: conn.AccessToken,
	})

	var mediaIDs []mastodon.ID
	for _, img := range req.Images {
		data, err := s.images.Prepare(ctx, img.URL, imageLimitKB(platform.Mastodon))
		if err != nil {
			return nil, err
		}

		attachment, err := c.UploadMediaFromMedia(ctx, &mastodon.Media{
			File:        bytes.NewReader(data),
			Description: img.AltText,
		})
		if err != nil {
			return nil, upstream("Mastodon media upload failed: %v", err)
		}
		mediaIDs = append(mediaIDs, attachment.ID)
	}

	status, err := c.PostStatus(ctx, &mastodon.Toot{
		Status:   platform.ComposeText(req.Content, req.Tags, platform.Mastodon),
		MediaIDs: mediaIDs,
	})
	if err != nil {
		return nil, upstream("Mastodon post failed: %v", err)
	}

	return &transfer.PublishResult{
		PlatformPostID:  string(status.ID),
		PlatformPostURL: status.URL,
	}, nil
}
