package service

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"sync"
	"time"

	config "github.com/maheshrc27/broadcast/configs"
	"github.com/maheshrc27/broadcast/internal/models"
	"github.com/maheshrc27/broadcast/internal/platform"
	"github.com/maheshrc27/broadcast/internal/transfer"
)

func testConfig() config.Config {
	return config.Config{
		SecretKey:          "test-secret",
		FrontendURL:        "https://app.example.com",
		StarterPostLimit:   10,
		AdapterTimeout:     2 * time.Second,
		PublishConcurrency: 4,
	}
}

type fakePostRepo struct {
	mu     sync.Mutex
	nextID int64
	posts  map[int64]*models.Post
	claims int
}

func newFakePostRepo() *fakePostRepo {
	return &fakePostRepo{posts: map[int64]*models.Post{}}
}

func (r *fakePostRepo) GetByID(_ context.Context, id int64) (*models.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.posts[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (r *fakePostRepo) Create(_ context.Context, _ *sql.Tx, post *models.Post) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	cp := *post
	cp.ID = r.nextID
	r.posts[cp.ID] = &cp
	return cp.ID, nil
}

func (r *fakePostRepo) GetByUserID(_ context.Context, userID int64) ([]*models.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Post
	for _, p := range r.posts {
		if p.UserID == userID {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakePostRepo) ListDue(_ context.Context, now time.Time, limit int) ([]*models.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Post
	for _, p := range r.posts {
		if p.Status == models.PostStatusScheduled && p.ScheduledFor != nil && !p.ScheduledFor.After(now) {
			cp := *p
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *fakePostRepo) TransitionStatus(_ context.Context, postID int64, status string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.posts[postID]
	if !ok || !models.CanTransition(p.Status, status) {
		return false, nil
	}
	p.Status = status
	if status == models.PostStatusPublishing {
		r.claims++
	}
	return true, nil
}

func (r *fakePostRepo) CheckByUserID(_ context.Context, postID, userID int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.posts[postID]
	return ok && p.UserID == userID, nil
}

func (r *fakePostRepo) Remove(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.posts, id)
	return nil
}

func (r *fakePostRepo) status(id int64) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.posts[id].Status
}

type fakeResultRepo struct {
	mu      sync.Mutex
	results []*models.PostResult
}

func (r *fakeResultRepo) Create(_ context.Context, pr *models.PostResult) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *pr
	cp.ID = int64(len(r.results) + 1)
	r.results = append(r.results, &cp)
	return cp.ID, nil
}

func (r *fakeResultRepo) ListByPostID(_ context.Context, postID int64) ([]*models.PostResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.PostResult
	for _, res := range r.results {
		if res.PostID == postID {
			out = append(out, res)
		}
	}
	return out, nil
}

func (r *fakeResultRepo) byPlatform(postID int64) map[string]*models.PostResult {
	out := map[string]*models.PostResult{}
	list, _ := r.ListByPostID(context.Background(), postID)
	for _, res := range list {
		out[res.Platform] = res
	}
	return out
}

type fakeProfileRepo struct {
	mu       sync.Mutex
	profiles map[int64]*models.Profile
	resets   int
}

func newFakeProfileRepo(profiles ...*models.Profile) *fakeProfileRepo {
	r := &fakeProfileRepo{profiles: map[int64]*models.Profile{}}
	for _, p := range profiles {
		r.profiles[p.UserID] = p
	}
	return r
}

func (r *fakeProfileRepo) Create(_ context.Context, _ *sql.Tx, p *models.Profile) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.profiles[p.UserID]; !ok {
		cp := *p
		r.profiles[p.UserID] = &cp
	}
	return nil
}

func (r *fakeProfileRepo) GetByUserID(_ context.Context, userID int64) (*models.Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.profiles[userID]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (r *fakeProfileRepo) IncrementPosts(_ context.Context, userID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.profiles[userID]; ok {
		p.PostsThisMonth++
	}
	return nil
}

func (r *fakeProfileRepo) ResetMonthlyPosts(_ context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resets++
	for _, p := range r.profiles {
		p.PostsThisMonth = 0
	}
	return int64(len(r.profiles)), nil
}

func (r *fakeProfileRepo) SetStripeCustomer(_ context.Context, userID int64, customerID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.profiles[userID]; ok {
		p.StripeCustomerID = customerID
	}
	return nil
}

func (r *fakeProfileRepo) UpdateSubscriptionByCustomer(_ context.Context, customerID, tier, status string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.profiles {
		if p.StripeCustomerID != customerID {
			continue
		}
		if tier != "" {
			p.SubscriptionTier = tier
		}
		if status != "" {
			p.SubscriptionStatus = status
		}
	}
	return nil
}

func (r *fakeProfileRepo) get(userID int64) models.Profile {
	r.mu.Lock()
	defer r.mu.Unlock()
	return *r.profiles[userID]
}

type fakeConnRepo struct {
	mu     sync.Mutex
	nextID int64
	rows   []*models.PlatformConnection
}

func (r *fakeConnRepo) Upsert(_ context.Context, pc *models.PlatformConnection) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, row := range r.rows {
		if row.UserID == pc.UserID && row.Platform == pc.Platform {
			id := row.ID
			*row = *pc
			row.ID = id
			row.IsActive = true
			return id, nil
		}
	}
	r.nextID++
	cp := *pc
	cp.ID = r.nextID
	cp.IsActive = true
	r.rows = append(r.rows, &cp)
	return cp.ID, nil
}

func (r *fakeConnRepo) GetByPlatform(_ context.Context, userID int64, platform string) (*models.PlatformConnection, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, row := range r.rows {
		if row.UserID == userID && row.Platform == platform {
			cp := *row
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *fakeConnRepo) ListActive(_ context.Context, userID int64, platforms []string) ([]*models.PlatformConnection, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	want := map[string]bool{}
	for _, p := range platforms {
		want[p] = true
	}
	var out []*models.PlatformConnection
	for _, row := range r.rows {
		if row.UserID == userID && row.IsActive && want[row.Platform] {
			cp := *row
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakeConnRepo) ListByUserID(_ context.Context, userID int64) ([]*models.PlatformConnection, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.PlatformConnection
	for _, row := range r.rows {
		if row.UserID == userID {
			cp := *row
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakeConnRepo) ListExpiring(_ context.Context, before time.Time, platforms []string) ([]*models.PlatformConnection, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	want := map[string]bool{}
	for _, p := range platforms {
		want[p] = true
	}
	var out []*models.PlatformConnection
	for _, row := range r.rows {
		if row.IsActive && row.RefreshToken != "" && row.TokenExpiresAt != nil && row.TokenExpiresAt.Before(before) && want[row.Platform] {
			cp := *row
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakeConnRepo) CountActive(_ context.Context, userID int64) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, row := range r.rows {
		if row.UserID == userID && row.IsActive {
			n++
		}
	}
	return n, nil
}

func (r *fakeConnRepo) UpdateTokens(_ context.Context, id int64, accessToken, refreshToken string, expiresAt *time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, row := range r.rows {
		if row.ID != id {
			continue
		}
		if accessToken != "" {
			row.AccessToken = accessToken
		}
		if refreshToken != "" {
			row.RefreshToken = refreshToken
		}
		if expiresAt != nil {
			row.TokenExpiresAt = expiresAt
		}
		return nil
	}
	return errors.New("no rows affected")
}

func (r *fakeConnRepo) DeleteByPlatform(_ context.Context, userID int64, platform string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, row := range r.rows {
		if row.UserID == userID && row.Platform == platform {
			r.rows = append(r.rows[:i], r.rows[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

type fakeStateRepo struct {
	mu     sync.Mutex
	states map[string]*models.OAuthState
}

func newFakeStateRepo() *fakeStateRepo {
	return &fakeStateRepo{states: map[string]*models.OAuthState{}}
}

func (r *fakeStateRepo) Create(_ context.Context, s *models.OAuthState) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *s
	r.states[s.State] = &cp
	return nil
}

func (r *fakeStateRepo) Consume(_ context.Context, state string) (*models.OAuthState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.states[state]
	if !ok {
		return nil, nil
	}
	delete(r.states, state)
	return s, nil
}

func (r *fakeStateRepo) PurgeExpired(_ context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for k, s := range r.states {
		if s.Expired(now) {
			delete(r.states, k)
			n++
		}
	}
	return n, nil
}

// fakeAdapter publishes by calling fn, or succeeds with a canned result.
type fakeAdapter struct {
	id    platform.ID
	fn    func(ctx context.Context, conn *models.PlatformConnection, req *transfer.PublishRequest) (*transfer.PublishResult, error)
	mu    sync.Mutex
	calls []*transfer.PublishRequest
}

func (a *fakeAdapter) Platform() platform.ID { return a.id }

func (a *fakeAdapter) Publish(ctx context.Context, conn *models.PlatformConnection, req *transfer.PublishRequest) (*transfer.PublishResult, error) {
	a.mu.Lock()
	a.calls = append(a.calls, req)
	a.mu.Unlock()
	if a.fn != nil {
		return a.fn(ctx, conn, req)
	}
	return &transfer.PublishResult{PlatformPostID: string(a.id) + "-1", PlatformPostURL: "https://example.com/" + string(a.id)}, nil
}

func (a *fakeAdapter) callCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.calls)
}

type fakeImages struct {
	data   []byte
	err    error
	limits *[]int
}

func (f fakeImages) Prepare(_ context.Context, _ string, maxKB int) ([]byte, error) {
	if f.limits != nil {
		*f.limits = append(*f.limits, maxKB)
	}
	return f.data, f.err
}
