package job

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/maheshrc27/broadcast/internal/models"
	"github.com/maheshrc27/broadcast/internal/repository"
	"github.com/maheshrc27/broadcast/internal/service"
)

const (
	refreshWindow    = 30 * time.Minute
	concurrencyLimit = 4
)

type TokenRefreshJob struct {
	now       func() time.Time
	conns     service.ConnectionService
	states    repository.OAuthStateRepository
	providers map[string]service.OAuthProvider
}

func NewTokenRefreshJob(
	conns service.ConnectionService,
	states repository.OAuthStateRepository,
	providers ...service.OAuthProvider) *TokenRefreshJob {
	byPlatform := make(map[string]service.OAuthProvider, len(providers))
	for _, p := range providers {
		byPlatform[string(p.Platform())] = p
	}
	return &TokenRefreshJob{
		now:       time.Now,
		conns:     conns,
		states:    states,
		providers: byPlatform,
	}
}

// Run refreshes tokens that expire within the window and purges stale
// OAuth states. It returns the number of connections refreshed.
func (c *TokenRefreshJob) Run(ctx context.Context) int {
	now := c.now()

	if n, err := c.states.PurgeExpired(ctx, now); err != nil {
		slog.Info(err.Error())
	} else if n > 0 {
		slog.Info("purged expired oauth states", "count", n)
	}

	platforms := make([]string, 0, len(c.providers))
	for p := range c.providers {
		platforms = append(platforms, p)
	}

	accounts, err := c.conns.ListExpiring(ctx, now.Add(refreshWindow), platforms)
	if err != nil {
		slog.Info(err.Error())
		return 0
	}

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		refreshed int
	)
	semaphore := make(chan struct{}, concurrencyLimit)

	for _, acc := range accounts {
		wg.Add(1)
		semaphore <- struct{}{}

		go func(acc *models.PlatformConnection) {
			defer wg.Done()
			defer func() { <-semaphore }()

			if err := c.refresh(ctx, acc); err != nil {
				slog.Info("Unable to refresh tokens", "platform", acc.Platform, "user_id", acc.UserID, "error", err)
				return
			}
			mu.Lock()
			refreshed++
			mu.Unlock()
		}(acc)
	}
	wg.Wait()

	return refreshed
}

func (c *TokenRefreshJob) refresh(ctx context.Context, acc *models.PlatformConnection) error {
	provider, ok := c.providers[acc.Platform]
	if !ok || acc.RefreshToken == "" {
		return nil
	}

	token, err := provider.Refresh(ctx, acc.RefreshToken)
	if err != nil {
		return err
	}

	var expiresAt *time.Time
	if !token.Expiry.IsZero() {
		expiresAt = &token.Expiry
	}
	// Providers that do not rotate refresh tokens return an empty one; the
	// stored token is kept in that case.
	return c.conns.UpdateTokens(ctx, acc, token.AccessToken, token.RefreshToken, expiresAt)
}
