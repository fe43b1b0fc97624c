package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	config "github.com/maheshrc27/broadcast/configs"
	"github.com/maheshrc27/broadcast/internal/models"
	"github.com/maheshrc27/broadcast/internal/platform"
	"github.com/maheshrc27/broadcast/internal/repository"
	"github.com/maheshrc27/broadcast/internal/transfer"
	"github.com/maheshrc27/broadcast/pkg/utils"
	"golang.org/x/oauth2"
)

const (
	oauthStateTTL    = 10 * time.Minute
	mastodonStateTTL = 30 * time.Minute
)

type PlatformService interface {
	Capabilities() []platform.Capability
	Connect(ctx context.Context, userID int64, platformID string, instance string) (*transfer.ConnectResponse, error)
	ConnectBluesky(ctx context.Context, userID int64, req *transfer.BlueskyConnect) (*transfer.ConnectResponse, error)
	Callback(ctx context.Context, platformID, code, state string) (*transfer.ConnectResponse, error)
	List(ctx context.Context, userID int64) ([]*models.PlatformConnection, error)
	Disconnect(ctx context.Context, userID int64, platformID string) error
	Limit(ctx context.Context, userID int64) (*transfer.PlatformLimit, error)
}

type platformService struct {
	key      []byte
	now      func() time.Time
	states   repository.OAuthStateRepository
	conns    ConnectionService
	quota    QuotaService
	twitter  TwitterService
	linkedin LinkedInService
	mastodon MastodonService
	bluesky  BlueskyService
}

func NewPlatformService(
	cfg config.Config,
	states repository.OAuthStateRepository,
	conns ConnectionService,
	quota QuotaService,
	twitter TwitterService,
	linkedin LinkedInService,
	mastodon MastodonService,
	bluesky BlueskyService) PlatformService {
	return &platformService{
		key:      []byte(cfg.SecretKey),
		now:      time.Now,
		states:   states,
		conns:    conns,
		quota:    quota,
		twitter:  twitter,
		linkedin: linkedin,
		mastodon: mastodon,
		bluesky:  bluesky,
	}
}

func (s *platformService) Capabilities() []platform.Capability {
	return platform.All()
}

// Connect starts an authorization-code flow and returns the provider URL
// the browser should be sent to. instance is only used for Mastodon.
func (s *platformService) Connect(ctx context.Context, userID int64, platformID, instance string) (*transfer.ConnectResponse, error) {
	if userID == 0 {
		return nil, ErrUnauthorized
	}
	if err := s.quota.CheckConnection(ctx, userID, platformID); err != nil {
		return nil, err
	}

	state := &models.OAuthState{
		State:     uuid.NewString(),
		UserID:    userID,
		Platform:  platformID,
		ExpiresAt: s.now().Add(oauthStateTTL),
	}

	var authURL string
	switch platform.ID(platformID) {
	case platform.Twitter:
		state.CodeVerifier = oauth2.GenerateVerifier()
		authURL = s.twitter.AuthURL(state.State, state.CodeVerifier)

	case platform.LinkedIn:
		authURL = s.linkedin.AuthURL(state.State, "")

	case platform.Mastodon:
		instanceURL, err := NormalizeInstance(instance)
		if err != nil {
			return nil, err
		}
		app, err := s.mastodon.RegisterApp(ctx, instanceURL)
		if err != nil {
			return nil, err
		}
		secret, err := utils.Encrypt([]byte(app.ClientSecret), s.key)
		if err != nil {
			return nil, fmt.Errorf("failed to seal client secret: %w", err)
		}
		state.InstanceURL = instanceURL
		state.ClientID = app.ClientID
		state.ClientSecret = secret
		state.ExpiresAt = s.now().Add(mastodonStateTTL)
		authURL = s.mastodon.AuthURL(instanceURL, app.ClientID, state.State)

	case platform.Bluesky:
		return nil, invalidInput("Bluesky connects with a handle and app password")

	default:
		return nil, invalidInput("Unsupported platform: %s", platformID)
	}

	if err := s.states.Create(ctx, state); err != nil {
		return nil, fmt.Errorf("failed to save oauth state: %w", err)
	}

	return &transfer.ConnectResponse{AuthURL: authURL, Platform: platformID}, nil
}

// ConnectBluesky stores the session tokens; the app password is never persisted.
func (s *platformService) ConnectBluesky(ctx context.Context, userID int64, req *transfer.BlueskyConnect) (*transfer.ConnectResponse, error) {
	if userID == 0 {
		return nil, ErrUnauthorized
	}
	if req == nil || strings.TrimSpace(req.Handle) == "" || req.Password == "" {
		return nil, invalidInput("Handle and app password are required")
	}
	if err := s.quota.CheckConnection(ctx, userID, string(platform.Bluesky)); err != nil {
		return nil, err
	}

	handle := strings.TrimPrefix(strings.TrimSpace(req.Handle), "@")
	session, err := s.bluesky.Login(ctx, handle, req.Password)
	if err != nil {
		return nil, err
	}

	conn := &models.PlatformConnection{
		UserID:           userID,
		Platform:         string(platform.Bluesky),
		PlatformUserID:   session.DID,
		PlatformUsername: session.Handle,
		AccessToken:      session.AccessJwt,
		RefreshToken:     session.RefreshJwt,
		IsActive:         true,
	}
	if err := s.conns.Save(ctx, conn); err != nil {
		return nil, err
	}

	return &transfer.ConnectResponse{Connected: true, Platform: conn.Platform, Username: conn.PlatformUsername}, nil
}

// Callback redeems a state exactly once. The state row is deleted before it
// is checked, so a replayed or expired state can never be used again.
func (s *platformService) Callback(ctx context.Context, platformID, code, state string) (*transfer.ConnectResponse, error) {
	if code == "" || state == "" {
		return nil, invalidInput("Missing code or state")
	}

	st, err := s.states.Consume(ctx, state)
	if err != nil {
		return nil, fmt.Errorf("failed to load oauth state: %w", err)
	}
	if st == nil {
		return nil, invalidInput("Invalid or expired state")
	}
	if st.Platform != platformID {
		return nil, invalidInput("State does not belong to %s", platformID)
	}
	if st.Expired(s.now()) {
		return nil, invalidInput("Invalid or expired state")
	}
	if err := s.quota.CheckConnection(ctx, st.UserID, platformID); err != nil {
		return nil, err
	}

	var conn *models.PlatformConnection
	switch platform.ID(platformID) {
	case platform.Twitter:
		conn, err = s.twitterConnection(ctx, st, code)
	case platform.LinkedIn:
		conn, err = s.linkedInConnection(ctx, code)
	case platform.Mastodon:
		conn, err = s.mastodonConnection(ctx, st, code)
	default:
		return nil, invalidInput("Unsupported platform: %s", platformID)
	}
	if err != nil {
		return nil, err
	}

	conn.UserID = st.UserID
	conn.Platform = platformID
	conn.IsActive = true
	if err := s.conns.Save(ctx, conn); err != nil {
		return nil, err
	}

	slog.Info("platform connected", "user_id", conn.UserID, "platform", platformID)
	return &transfer.ConnectResponse{Connected: true, Platform: platformID, Username: conn.PlatformUsername}, nil
}

func (s *platformService) twitterConnection(ctx context.Context, st *models.OAuthState, code string) (*models.PlatformConnection, error) {
	token, err := s.twitter.Exchange(ctx, code, st.CodeVerifier)
	if err != nil {
		return nil, err
	}
	me, err := s.twitter.Me(ctx, token.AccessToken)
	if err != nil {
		return nil, err
	}
	return &models.PlatformConnection{
		PlatformUserID:   me.Data.ID,
		PlatformUsername: me.Data.Username,
		AccessToken:      token.AccessToken,
		RefreshToken:     token.RefreshToken,
		TokenExpiresAt:   expiryPtr(token.Expiry),
	}, nil
}

func (s *platformService) linkedInConnection(ctx context.Context, code string) (*models.PlatformConnection, error) {
	token, err := s.linkedin.Exchange(ctx, code, "")
	if err != nil {
		return nil, err
	}
	info, err := s.linkedin.UserInfo(ctx, token.AccessToken)
	if err != nil {
		return nil, err
	}
	return &models.PlatformConnection{
		PlatformUserID:   info.Sub,
		PlatformUsername: info.Name,
		AccessToken:      token.AccessToken,
		RefreshToken:     token.RefreshToken,
		TokenExpiresAt:   expiryPtr(token.Expiry),
	}, nil
}

func (s *platformService) mastodonConnection(ctx context.Context, st *models.OAuthState, code string) (*models.PlatformConnection, error) {
	secret, err := utils.Decrypt(st.ClientSecret, s.key)
	if err != nil {
		return nil, fmt.Errorf("failed to open client secret: %w", err)
	}

	token, account, err := s.mastodon.Authenticate(ctx, st.InstanceURL, &MastodonApp{ClientID: st.ClientID, ClientSecret: secret}, code)
	if err != nil {
		return nil, err
	}
	return &models.PlatformConnection{
		PlatformUserID:   string(account.ID),
		PlatformUsername: account.Acct,
		AccessToken:      token,
		InstanceURL:      st.InstanceURL,
	}, nil
}

func (s *platformService) List(ctx context.Context, userID int64) ([]*models.PlatformConnection, error) {
	connections, err := s.conns.List(ctx, userID)
	if err != nil {
		return nil, err
	}
	if connections == nil {
		connections = []*models.PlatformConnection{}
	}
	return connections, nil
}

func (s *platformService) Disconnect(ctx context.Context, userID int64, platformID string) error {
	return s.conns.Disconnect(ctx, userID, platformID)
}

func (s *platformService) Limit(ctx context.Context, userID int64) (*transfer.PlatformLimit, error) {
	return s.quota.PlatformLimit(ctx, userID)
}
