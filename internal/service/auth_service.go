package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	config "github.com/maheshrc27/broadcast/configs"
	"github.com/maheshrc27/broadcast/internal/models"
	"github.com/maheshrc27/broadcast/internal/repository"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	googleoauth2 "google.golang.org/api/oauth2/v2"
	"google.golang.org/api/option"
)

type AuthService interface {
	AuthURL(state string) string
	LoginCallback(ctx context.Context, code string) (int64, error)
}

type authService struct {
	db           *sql.DB
	oauth        *oauth2.Config
	starterLimit int
	u            repository.UserRepository
	p            repository.ProfileRepository
}

func NewAuthService(cfg config.Config, db *sql.DB, u repository.UserRepository, p repository.ProfileRepository) AuthService {
	return &authService{
		db: db,
		oauth: &oauth2.Config{
			ClientID:     cfg.Google.ClientID,
			ClientSecret: cfg.Google.ClientSecret,
			RedirectURL:  cfg.Google.RedirectURI,
			Scopes:       []string{googleoauth2.UserinfoEmailScope, googleoauth2.UserinfoProfileScope},
			Endpoint:     google.Endpoint,
		},
		starterLimit: cfg.StarterPostLimit,
		u:            u,
		p:            p,
	}
}

func (s *authService) AuthURL(state string) string {
	return s.oauth.AuthCodeURL(state)
}

// LoginCallback signs a Google user in, creating the user and a starter
// profile on first login.
func (s *authService) LoginCallback(ctx context.Context, code string) (int64, error) {
	if code == "" {
		return 0, invalidInput("code is empty")
	}
	if s.oauth.ClientID == "" || s.oauth.ClientSecret == "" || s.oauth.RedirectURL == "" {
		err := errors.New("OAuth2 configuration is incomplete")
		slog.Info(err.Error())
		return 0, err
	}

	token, err := s.oauth.Exchange(ctx, code)
	if err != nil {
		slog.Info(err.Error())
		return 0, upstream("Google sign-in failed")
	}

	svc, err := googleoauth2.NewService(ctx, option.WithHTTPClient(s.oauth.Client(ctx, token)))
	if err != nil {
		return 0, fmt.Errorf("failed to create userinfo client: %w", err)
	}
	info, err := svc.Userinfo.Get().Context(ctx).Do()
	if err != nil {
		slog.Info(err.Error())
		return 0, upstream("Failed to fetch Google profile")
	}
	if info.Email == "" {
		return 0, upstream("Google account has no email")
	}

	return s.signIn(ctx, &models.User{
		GoogleID:       info.Id,
		Email:          info.Email,
		Name:           info.Name,
		ProfilePicture: info.Picture,
	})
}

func (s *authService) signIn(ctx context.Context, user *models.User) (userID int64, err error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return 0, fmt.Errorf("failed to start transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		} else if err != nil {
			tx.Rollback()
		}
	}()

	userID, err = s.u.Upsert(ctx, tx, user)
	if err != nil {
		return 0, fmt.Errorf("error saving user: %w", err)
	}

	err = s.p.Create(ctx, tx, &models.Profile{
		UserID:             userID,
		SubscriptionTier:   models.TierStarter,
		PostLimit:          s.starterLimit,
		SubscriptionStatus: models.SubscriptionActive,
	})
	if err != nil {
		return 0, fmt.Errorf("error creating profile: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return userID, nil
}
