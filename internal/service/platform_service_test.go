package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/maheshrc27/broadcast/internal/models"
	"github.com/maheshrc27/broadcast/internal/platform"
	"github.com/maheshrc27/broadcast/internal/transfer"
	"github.com/maheshrc27/broadcast/pkg/utils"
	"github.com/mattn/go-mastodon"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

type fakeTwitter struct {
	fakeAdapter
	verifier string
}

func (f *fakeTwitter) AuthURL(state, verifier string) string {
	return "https://twitter.test/authorize?state=" + state
}

func (f *fakeTwitter) Exchange(_ context.Context, code, verifier string) (*oauth2.Token, error) {
	f.verifier = verifier
	if code == "bad" {
		return nil, upstream("Twitter token exchange failed")
	}
	return &oauth2.Token{AccessToken: "tw-access", RefreshToken: "tw-refresh", Expiry: fixedNow.Add(2 * time.Hour)}, nil
}

func (f *fakeTwitter) Refresh(context.Context, string) (*oauth2.Token, error) {
	return &oauth2.Token{AccessToken: "tw-access-2"}, nil
}

func (f *fakeTwitter) Me(context.Context, string) (*transfer.TwitterUser, error) {
	var u transfer.TwitterUser
	u.Data.ID = "42"
	u.Data.Username = "gopher"
	return &u, nil
}

type fakeLinkedIn struct{ fakeAdapter }

func (f *fakeLinkedIn) AuthURL(state, _ string) string { return "https://linkedin.test/authorize?state=" + state }

func (f *fakeLinkedIn) Exchange(context.Context, string, string) (*oauth2.Token, error) {
	return &oauth2.Token{AccessToken: "li-access"}, nil
}

func (f *fakeLinkedIn) Refresh(context.Context, string) (*oauth2.Token, error) {
	return &oauth2.Token{AccessToken: "li-access-2"}, nil
}

func (f *fakeLinkedIn) UserInfo(context.Context, string) (*transfer.LinkedInUserInfo, error) {
	return &transfer.LinkedInUserInfo{Sub: "li-sub", Name: "Go Pher"}, nil
}

type platformFixture struct {
	svc     *platformService
	states  *fakeStateRepo
	conns   ConnectionService
	repo    *fakeConnRepo
	twitter *fakeTwitter
}

func newPlatformFixture(t *testing.T, blueskyURL string) *platformFixture {
	t.Helper()
	cfg := testConfig()
	cfg.MastodonRedirect = "https://api.example.com/auth/mastodon/callback"

	repo := &fakeConnRepo{}
	conns := NewConnectionService(cfg, repo)
	profiles := newFakeProfileRepo(&models.Profile{UserID: testUser, SubscriptionTier: models.TierStarter})
	quota := NewQuotaService(cfg, profiles, repo)
	states := newFakeStateRepo()
	tw := &fakeTwitter{fakeAdapter: fakeAdapter{id: platform.Twitter}}
	li := &fakeLinkedIn{fakeAdapter: fakeAdapter{id: platform.LinkedIn}}

	client := http.DefaultClient
	ma := NewMastodonService(cfg, client, fakeImages{})
	bs := NewBlueskyService(blueskyURL, client, fakeImages{}, conns)

	svc := NewPlatformService(cfg, states, conns, quota, tw, li, ma, bs).(*platformService)
	svc.now = func() time.Time { return fixedNow }
	return &platformFixture{svc: svc, states: states, conns: conns, repo: repo, twitter: tw}
}

func (f *platformFixture) onlyState(t *testing.T) *models.OAuthState {
	t.Helper()
	require.Len(t, f.states.states, 1)
	for _, s := range f.states.states {
		cp := *s
		return &cp
	}
	return nil
}

func TestConnectTwitterCreatesState(t *testing.T) {
	f := newPlatformFixture(t, "")

	resp, err := f.svc.Connect(context.Background(), testUser, "twitter", "")
	require.NoError(t, err)

	st := f.onlyState(t)
	assert.Equal(t, "https://twitter.test/authorize?state="+st.State, resp.AuthURL)
	assert.Equal(t, testUser, st.UserID)
	assert.Equal(t, "twitter", st.Platform)
	assert.NotEmpty(t, st.CodeVerifier)
	assert.Equal(t, fixedNow.Add(10*time.Minute), st.ExpiresAt)

	_, err = f.svc.Connect(context.Background(), testUser, "bluesky", "")
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = f.svc.Connect(context.Background(), testUser, "myspace", "")
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = f.svc.Connect(context.Background(), 0, "twitter", "")
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestTwitterCallbackStoresEncryptedConnection(t *testing.T) {
	f := newPlatformFixture(t, "")
	ctx := context.Background()

	_, err := f.svc.Connect(ctx, testUser, "twitter", "")
	require.NoError(t, err)
	st := f.onlyState(t)

	resp, err := f.svc.Callback(ctx, "twitter", "code-1", st.State)
	require.NoError(t, err)
	assert.True(t, resp.Connected)
	assert.Equal(t, "gopher", resp.Username)
	assert.Equal(t, st.CodeVerifier, f.twitter.verifier)

	require.Len(t, f.repo.rows, 1)
	row := f.repo.rows[0]
	assert.Equal(t, "42", row.PlatformUserID)
	assert.NotEqual(t, "tw-access", row.AccessToken)
	require.NotNil(t, row.TokenExpiresAt)

	active, err := f.conns.ListActive(ctx, testUser, []string{"twitter"})
	require.NoError(t, err)
	assert.Equal(t, "tw-access", active[0].AccessToken)
	assert.Equal(t, "tw-refresh", active[0].RefreshToken)

	// states are single use
	_, err = f.svc.Callback(ctx, "twitter", "code-1", st.State)
	require.ErrorIs(t, err, ErrInvalidInput)
	assert.Equal(t, "Invalid or expired state", err.Error())
}

func TestCallbackRejectsBadStates(t *testing.T) {
	f := newPlatformFixture(t, "")
	ctx := context.Background()

	_, err := f.svc.Callback(ctx, "twitter", "", "s")
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = f.svc.Callback(ctx, "twitter", "code", "unknown")
	assert.ErrorIs(t, err, ErrInvalidInput)

	require.NoError(t, f.states.Create(ctx, &models.OAuthState{State: "expired", UserID: testUser, Platform: "twitter", ExpiresAt: fixedNow}))
	_, err = f.svc.Callback(ctx, "twitter", "code", "expired")
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Empty(t, f.states.states)

	require.NoError(t, f.states.Create(ctx, &models.OAuthState{State: "li", UserID: testUser, Platform: "linkedin", ExpiresAt: fixedNow.Add(time.Minute)}))
	_, err = f.svc.Callback(ctx, "twitter", "code", "li")
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Empty(t, f.states.states)

	require.NoError(t, f.states.Create(ctx, &models.OAuthState{State: "tw", UserID: testUser, Platform: "twitter", ExpiresAt: fixedNow.Add(time.Minute)}))
	_, err = f.svc.Callback(ctx, "twitter", "bad", "tw")
	assert.ErrorIs(t, err, ErrUpstream)
	assert.Empty(t, f.repo.rows)
}

func TestLinkedInCallback(t *testing.T) {
	f := newPlatformFixture(t, "")
	ctx := context.Background()

	resp, err := f.svc.Connect(ctx, testUser, "linkedin", "")
	require.NoError(t, err)
	assert.Contains(t, resp.AuthURL, "linkedin.test")
	st := f.onlyState(t)
	assert.Empty(t, st.CodeVerifier)

	resp, err = f.svc.Callback(ctx, "linkedin", "code", st.State)
	require.NoError(t, err)
	assert.Equal(t, "Go Pher", resp.Username)
	assert.Equal(t, "li-sub", f.repo.rows[0].PlatformUserID)
	assert.Nil(t, f.repo.rows[0].TokenExpiresAt)
}

func TestMastodonConnectFlow(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/apps":
			writeJSON(w, map[string]string{"id": "1", "client_id": "cid", "client_secret": "csecret"})
		case "/oauth/token":
			assert.NoError(t, r.ParseForm())
			assert.Equal(t, "csecret", r.PostForm.Get("client_secret"))
			writeJSON(w, map[string]string{"access_token": "ma-token"})
		case "/api/v1/accounts/verify_credentials":
			writeJSON(w, mastodon.Account{ID: "109", Acct: "gopher"})
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	f := newPlatformFixture(t, "")
	ctx := context.Background()

	_, err := f.svc.Connect(ctx, testUser, "mastodon", "")
	assert.ErrorIs(t, err, ErrInvalidInput)

	resp, err := f.svc.Connect(ctx, testUser, "mastodon", srv.URL+"/")
	require.NoError(t, err)
	assert.Contains(t, resp.AuthURL, srv.URL+"/oauth/authorize?")

	st := f.onlyState(t)
	assert.Equal(t, srv.URL, st.InstanceURL)
	assert.Equal(t, "cid", st.ClientID)
	assert.NotEqual(t, "csecret", st.ClientSecret)
	secret, err := utils.Decrypt(st.ClientSecret, []byte(testConfig().SecretKey))
	require.NoError(t, err)
	assert.Equal(t, "csecret", secret)
	assert.Equal(t, fixedNow.Add(30*time.Minute), st.ExpiresAt)

	resp, err = f.svc.Callback(ctx, "mastodon", "code", st.State)
	require.NoError(t, err)
	assert.Equal(t, "gopher", resp.Username)
	row := f.repo.rows[0]
	assert.Equal(t, "109", row.PlatformUserID)
	assert.Equal(t, srv.URL, row.InstanceURL)
}

func TestConnectBluesky(t *testing.T) {
	srv := newBlueskyServer(t, newRecorder(), http.StatusOK)
	defer srv.Close()

	f := newPlatformFixture(t, srv.URL)
	ctx := context.Background()

	_, err := f.svc.ConnectBluesky(ctx, testUser, &transfer.BlueskyConnect{Handle: "gopher"})
	assert.ErrorIs(t, err, ErrInvalidInput)

	resp, err := f.svc.ConnectBluesky(ctx, testUser, &transfer.BlueskyConnect{Handle: "@gopher.bsky.social", Password: "app-pass"})
	require.NoError(t, err)
	assert.True(t, resp.Connected)
	assert.Equal(t, "gopher.bsky.social", resp.Username)

	active, err := f.conns.ListActive(ctx, testUser, []string{"bluesky"})
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "did:plc:abc", active[0].PlatformUserID)
	assert.Equal(t, "refresh-1", active[0].RefreshToken)
}

func TestConnectRespectsPlatformLimit(t *testing.T) {
	f := newPlatformFixture(t, "")
	ctx := context.Background()

	for _, p := range []string{"twitter", "linkedin"} {
		_, err := f.svc.Connect(ctx, testUser, p, "")
		require.NoError(t, err)
	}
	for state, st := range f.states.states {
		_, err := f.svc.Callback(ctx, st.Platform, "code", state)
		require.NoError(t, err)
	}

	limit, err := f.svc.Limit(ctx, testUser)
	require.NoError(t, err)
	assert.False(t, limit.CanConnect)

	_, err = f.svc.ConnectBluesky(ctx, testUser, &transfer.BlueskyConnect{Handle: "gopher", Password: "pw"})
	assert.ErrorIs(t, err, ErrLimitReached)

	_, err = f.svc.Connect(ctx, testUser, "twitter", "")
	assert.NoError(t, err)

	list, err := f.svc.List(ctx, testUser)
	require.NoError(t, err)
	require.Len(t, list, 2)
	for _, c := range list {
		assert.Empty(t, c.AccessToken)
	}

	require.NoError(t, f.svc.Disconnect(ctx, testUser, "twitter"))
	assert.ErrorIs(t, f.svc.Disconnect(ctx, testUser, "twitter"), ErrNotFound)
	assert.ErrorIs(t, f.svc.Disconnect(ctx, testUser, "myspace"), ErrInvalidInput)
}
