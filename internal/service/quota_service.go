package service

import (
	"context"
	"fmt"

	config "github.com/maheshrc27/broadcast/configs"
	"github.com/maheshrc27/broadcast/internal/models"
	"github.com/maheshrc27/broadcast/internal/repository"
	"github.com/maheshrc27/broadcast/internal/transfer"
)

const unlimitedConnections = 999

var connectionCaps = map[string]int{
	models.TierStarter:      2,
	models.TierCreator:      unlimitedConnections,
	models.TierProfessional: unlimitedConnections,
	models.TierEnterprise:   unlimitedConnections,
}

// IsUnlimitedTier reports whether a tier is exempt from the monthly post cap.
func IsUnlimitedTier(tier string) bool {
	switch tier {
	case models.TierCreator, models.TierProfessional, models.TierEnterprise:
		return true
	}
	return false
}

// ConnectionCap falls back to the starter cap for unknown tiers.
func ConnectionCap(tier string) int {
	if n, ok := connectionCaps[tier]; ok {
		return n
	}
	return connectionCaps[models.TierStarter]
}

type QuotaService interface {
	Profile(ctx context.Context, userID int64) (*models.Profile, error)
	CheckPost(ctx context.Context, userID int64, scheduled bool) error
	PlatformLimit(ctx context.Context, userID int64) (*transfer.PlatformLimit, error)
	CheckConnection(ctx context.Context, userID int64, platform string) error
}

type quotaService struct {
	starterLimit int
	p            repository.ProfileRepository
	pc           repository.PlatformConnectionRepository
}

func NewQuotaService(cfg config.Config, p repository.ProfileRepository, pc repository.PlatformConnectionRepository) QuotaService {
	return &quotaService{
		starterLimit: cfg.StarterPostLimit,
		p:            p,
		pc:           pc,
	}
}

// Profile never returns nil; users without a row are treated as fresh
// starter accounts.
func (s *quotaService) Profile(ctx context.Context, userID int64) (*models.Profile, error) {
	if userID == 0 {
		return nil, ErrUnauthorized
	}

	profile, err := s.p.GetByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}
	if profile == nil {
		profile = &models.Profile{UserID: userID, SubscriptionTier: models.TierStarter, PostLimit: s.starterLimit}
	}
	return profile, nil
}

// CheckPost only gates immediate posts; scheduled posts are admitted and
// counted when they are published.
func (s *quotaService) CheckPost(ctx context.Context, userID int64, scheduled bool) error {
	if scheduled {
		return nil
	}

	profile, err := s.Profile(ctx, userID)
	if err != nil {
		return err
	}
	if IsUnlimitedTier(profile.SubscriptionTier) {
		return nil
	}
	if profile.PostsThisMonth >= profile.PostLimit {
		return limitReached("Monthly post limit reached (%d). Upgrade your plan to publish more posts.", profile.PostLimit)
	}
	return nil
}

func (s *quotaService) PlatformLimit(ctx context.Context, userID int64) (*transfer.PlatformLimit, error) {
	profile, err := s.Profile(ctx, userID)
	if err != nil {
		return nil, err
	}

	count, err := s.pc.CountActive(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to count connections: %w", err)
	}

	limit := ConnectionCap(profile.SubscriptionTier)
	return &transfer.PlatformLimit{
		CanConnect:   count < limit,
		CurrentCount: count,
		Limit:        limit,
	}, nil
}

// CheckConnection lets a user reconnect a platform they already have even
// when they are at their cap.
func (s *quotaService) CheckConnection(ctx context.Context, userID int64, platform string) error {
	existing, err := s.pc.GetByPlatform(ctx, userID, platform)
	if err != nil {
		return fmt.Errorf("failed to load connection: %w", err)
	}
	if existing != nil {
		return nil
	}

	limit, err := s.PlatformLimit(ctx, userID)
	if err != nil {
		return err
	}
	if !limit.CanConnect {
		return limitReached("Platform limit reached (%d). Upgrade your plan to connect more platforms.", limit.Limit)
	}
	return nil
}
