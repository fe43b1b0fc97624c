package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	config "github.com/maheshrc27/broadcast/configs"
	"github.com/maheshrc27/broadcast/internal/models"
	"github.com/maheshrc27/broadcast/internal/platform"
	"github.com/maheshrc27/broadcast/internal/repository"
	"github.com/maheshrc27/broadcast/pkg/utils"
)

// ConnectionService is the only path to stored platform credentials.
// Tokens are encrypted on the way in and decrypted on the way out.
type ConnectionService interface {
	Save(ctx context.Context, pc *models.PlatformConnection) error
	ListActive(ctx context.Context, userID int64, platforms []string) ([]*models.PlatformConnection, error)
	List(ctx context.Context, userID int64) ([]*models.PlatformConnection, error)
	ListExpiring(ctx context.Context, before time.Time, platforms []string) ([]*models.PlatformConnection, error)
	UpdateTokens(ctx context.Context, conn *models.PlatformConnection, accessToken, refreshToken string, expiresAt *time.Time) error
	Disconnect(ctx context.Context, userID int64, platform string) error
}

type connectionService struct {
	key []byte
	pc  repository.PlatformConnectionRepository
}

func NewConnectionService(cfg config.Config, pc repository.PlatformConnectionRepository) ConnectionService {
	return &connectionService{
		key: []byte(cfg.SecretKey),
		pc:  pc,
	}
}

func (s *connectionService) Save(ctx context.Context, pc *models.PlatformConnection) error {
	if pc.UserID == 0 {
		return ErrUnauthorized
	}
	if !platform.IsKnown(platform.ID(pc.Platform)) {
		return invalidInput("Unsupported platform: %s", pc.Platform)
	}

	stored := *pc
	var err error
	if stored.AccessToken, err = s.encrypt(pc.AccessToken); err != nil {
		return err
	}
	if stored.RefreshToken, err = s.encrypt(pc.RefreshToken); err != nil {
		return err
	}

	id, err := s.pc.Upsert(ctx, &stored)
	if err != nil {
		return fmt.Errorf("failed to save %s connection: %w", pc.Platform, err)
	}
	pc.ID = id
	return nil
}

func (s *connectionService) ListActive(ctx context.Context, userID int64, platforms []string) ([]*models.PlatformConnection, error) {
	if userID == 0 {
		return nil, ErrUnauthorized
	}
	if len(platforms) == 0 {
		return nil, nil
	}

	connections, err := s.pc.ListActive(ctx, userID, platforms)
	if err != nil {
		return nil, fmt.Errorf("failed to load connections: %w", err)
	}
	s.decryptAll(connections)
	return connections, nil
}

func (s *connectionService) List(ctx context.Context, userID int64) ([]*models.PlatformConnection, error) {
	if userID == 0 {
		return nil, ErrUnauthorized
	}

	connections, err := s.pc.ListByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("Error getting platform connections")
	}
	for _, c := range connections {
		c.AccessToken, c.RefreshToken = "", ""
	}
	return connections, nil
}

func (s *connectionService) ListExpiring(ctx context.Context, before time.Time, platforms []string) ([]*models.PlatformConnection, error) {
	connections, err := s.pc.ListExpiring(ctx, before, platforms)
	if err != nil {
		return nil, err
	}
	s.decryptAll(connections)
	return connections, nil
}

func (s *connectionService) UpdateTokens(ctx context.Context, conn *models.PlatformConnection, accessToken, refreshToken string, expiresAt *time.Time) error {
	encAccess, err := s.encrypt(accessToken)
	if err != nil {
		return err
	}
	encRefresh, err := s.encrypt(refreshToken)
	if err != nil {
		return err
	}

	if err := s.pc.UpdateTokens(ctx, conn.ID, encAccess, encRefresh, expiresAt); err != nil {
		return fmt.Errorf("failed to update %s tokens: %w", conn.Platform, err)
	}

	if accessToken != "" {
		conn.AccessToken = accessToken
	}
	if refreshToken != "" {
		conn.RefreshToken = refreshToken
	}
	if expiresAt != nil {
		conn.TokenExpiresAt = expiresAt
	}
	return nil
}

func (s *connectionService) Disconnect(ctx context.Context, userID int64, platformID string) error {
	if userID == 0 {
		return ErrUnauthorized
	}
	if !platform.IsKnown(platform.ID(platformID)) {
		return invalidInput("Unsupported platform: %s", platformID)
	}

	deleted, err := s.pc.DeleteByPlatform(ctx, userID, platformID)
	if err != nil {
		return fmt.Errorf("Error removing connection")
	}
	if !deleted {
		return notFound("%s is not connected", platformID)
	}
	return nil
}

func (s *connectionService) encrypt(token string) (string, error) {
	if token == "" {
		return "", nil
	}
	enc, err := utils.Encrypt([]byte(token), s.key)
	if err != nil {
		return "", errors.New("failed to encrypt token")
	}
	return enc, nil
}

// decryptAll clears tokens it cannot decrypt so the publisher reports the
// connection as needing to be reconnected.
func (s *connectionService) decryptAll(connections []*models.PlatformConnection) {
	for _, c := range connections {
		access, err := s.decrypt(c.AccessToken)
		if err != nil {
			slog.Error("failed to decrypt access token", "platform", c.Platform, "user_id", c.UserID)
		}
		refresh, err := s.decrypt(c.RefreshToken)
		if err != nil {
			slog.Error("failed to decrypt refresh token", "platform", c.Platform, "user_id", c.UserID)
		}
		c.AccessToken, c.RefreshToken = access, refresh
	}
}

func (s *connectionService) decrypt(token string) (string, error) {
	if token == "" {
		return "", nil
	}
	return utils.Decrypt(token, s.key)
}
