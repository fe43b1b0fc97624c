package job

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/maheshrc27/broadcast/internal/models"
	"github.com/maheshrc27/broadcast/internal/platform"
	"github.com/maheshrc27/broadcast/internal/transfer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

var now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type stubProvider struct {
	id  platform.ID
	err error

	mu    sync.Mutex
	seen  []string
	token *oauth2.Token
}

func (p *stubProvider) Platform() platform.ID { return p.id }

func (p *stubProvider) Publish(context.Context, *models.PlatformConnection, *transfer.PublishRequest) (*transfer.PublishResult, error) {
	return nil, errors.New("not used")
}

func (p *stubProvider) AuthURL(string, string) string { return "" }

func (p *stubProvider) Exchange(context.Context, string, string) (*oauth2.Token, error) {
	return nil, errors.New("not used")
}

func (p *stubProvider) Refresh(_ context.Context, refreshToken string) (*oauth2.Token, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.seen = append(p.seen, refreshToken)
	if p.err != nil {
		return nil, p.err
	}
	return p.token, nil
}

type stubConnections struct {
	mu        sync.Mutex
	expiring  []*models.PlatformConnection
	platforms []string
	before    time.Time
	updated   map[int64][2]string
	expiry    map[int64]*time.Time
}

func (s *stubConnections) Save(context.Context, *models.PlatformConnection) error { return nil }

func (s *stubConnections) ListActive(context.Context, int64, []string) ([]*models.PlatformConnection, error) {
	return nil, nil
}

func (s *stubConnections) List(context.Context, int64) ([]*models.PlatformConnection, error) {
	return nil, nil
}

func (s *stubConnections) ListExpiring(_ context.Context, before time.Time, platforms []string) ([]*models.PlatformConnection, error) {
	s.before, s.platforms = before, platforms
	return s.expiring, nil
}

func (s *stubConnections) UpdateTokens(_ context.Context, conn *models.PlatformConnection, accessToken, refreshToken string, expiresAt *time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.updated == nil {
		s.updated, s.expiry = map[int64][2]string{}, map[int64]*time.Time{}
	}
	s.updated[conn.ID] = [2]string{accessToken, refreshToken}
	s.expiry[conn.ID] = expiresAt
	return nil
}

func (s *stubConnections) Disconnect(context.Context, int64, string) error { return nil }

type stubStates struct {
	purgedAt time.Time
}

func (s *stubStates) Create(context.Context, *models.OAuthState) error { return nil }

func (s *stubStates) Consume(context.Context, string) (*models.OAuthState, error) { return nil, nil }

func (s *stubStates) PurgeExpired(_ context.Context, at time.Time) (int64, error) {
	s.purgedAt = at
	return 2, nil
}

func TestTokenRefreshJob(t *testing.T) {
	expiry := now.Add(2 * time.Hour)
	tw := &stubProvider{id: platform.Twitter, token: &oauth2.Token{AccessToken: "tw-new", RefreshToken: "tw-rotated", Expiry: expiry}}
	li := &stubProvider{id: platform.LinkedIn, err: errors.New("invalid_grant")}

	conns := &stubConnections{expiring: []*models.PlatformConnection{
		{ID: 1, UserID: 1, Platform: "twitter", RefreshToken: "tw-old"},
		{ID: 2, UserID: 2, Platform: "linkedin", RefreshToken: "li-old"},
		{ID: 3, UserID: 3, Platform: "twitter", RefreshToken: ""},
	}}
	states := &stubStates{}

	job := NewTokenRefreshJob(conns, states, tw, li)
	job.now = func() time.Time { return now }

	refreshed := job.Run(context.Background())
	assert.Equal(t, 2, refreshed)

	assert.Equal(t, now, states.purgedAt)
	assert.Equal(t, now.Add(30*time.Minute), conns.before)
	assert.ElementsMatch(t, []string{"twitter", "linkedin"}, conns.platforms)

	assert.Equal(t, []string{"tw-old"}, tw.seen)
	assert.Equal(t, []string{"li-old"}, li.seen)

	require.Contains(t, conns.updated, int64(1))
	assert.Equal(t, [2]string{"tw-new", "tw-rotated"}, conns.updated[1])
	assert.Equal(t, expiry, *conns.expiry[1])
	assert.NotContains(t, conns.updated, int64(2))
	assert.NotContains(t, conns.updated, int64(3))
}

func TestTokenRefreshJobKeepsExpiryWhenProviderOmitsIt(t *testing.T) {
	tw := &stubProvider{id: platform.Twitter, token: &oauth2.Token{AccessToken: "tw-new"}}
	conns := &stubConnections{expiring: []*models.PlatformConnection{{ID: 1, Platform: "twitter", RefreshToken: "r"}}}

	job := NewTokenRefreshJob(conns, &stubStates{}, tw)
	job.now = func() time.Time { return now }

	assert.Equal(t, 1, job.Run(context.Background()))
	assert.Equal(t, [2]string{"tw-new", ""}, conns.updated[1])
	assert.Nil(t, conns.expiry[1])
}
