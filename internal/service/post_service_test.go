package service

import (
	"context"
	"strings"
	"testing"

	"github.com/maheshrc27/broadcast/internal/models"
	"github.com/maheshrc27/broadcast/internal/transfer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostServiceOwnership(t *testing.T) {
	posts := newFakePostRepo()
	results := &fakeResultRepo{}
	s := NewPostService(posts, results)
	ctx := context.Background()

	id, err := posts.Create(ctx, nil, &models.Post{UserID: testUser, Content: "mine", Status: models.PostStatusPublished})
	require.NoError(t, err)
	_, err = results.Create(ctx, &models.PostResult{PostID: id, Platform: "twitter", Status: models.ResultStatusSuccess})
	require.NoError(t, err)

	detail, err := s.Get(ctx, testUser, id)
	require.NoError(t, err)
	assert.Equal(t, "mine", detail.Post.Content)
	assert.Len(t, detail.Results, 1)

	_, err = s.Get(ctx, testUser+1, id)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.Get(ctx, 0, id)
	assert.ErrorIs(t, err, ErrUnauthorized)

	list, err := s.List(ctx, testUser+1)
	require.NoError(t, err)
	assert.NotNil(t, list)
	assert.Empty(t, list)
}

func TestPostServiceRemove(t *testing.T) {
	posts := newFakePostRepo()
	s := NewPostService(posts, &fakeResultRepo{})
	ctx := context.Background()

	busy, _ := posts.Create(ctx, nil, &models.Post{UserID: testUser, Status: models.PostStatusPublishing})
	assert.ErrorIs(t, s.Remove(ctx, testUser, busy), ErrInvalidInput)

	queued, _ := posts.Create(ctx, nil, &models.Post{UserID: testUser, Status: models.PostStatusScheduled})
	require.NoError(t, s.Remove(ctx, testUser, queued))
	_, err := s.Get(ctx, testUser, queued)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPreview(t *testing.T) {
	s := NewPostService(newFakePostRepo(), &fakeResultRepo{})

	long := strings.Repeat("é", 290)
	resp, err := s.Preview(&transfer.PreviewRequest{
		Content:   long,
		Platforms: []string{"twitter", "mastodon"},
		Tags:      []string{"#go"},
	})
	require.NoError(t, err)

	assert.Equal(t, 280, resp.MaxCharLimit)

	tw := resp.Platforms["twitter"]
	assert.True(t, tw.Truncated)
	assert.Equal(t, 295, tw.Length)
	assert.Equal(t, 280, len([]rune(tw.Text)))
	assert.True(t, strings.HasSuffix(tw.Text, "..."))

	ma := resp.Platforms["mastodon"]
	assert.False(t, ma.Truncated)
	assert.Equal(t, long+"\n\n#go", ma.Text)

	_, err = s.Preview(&transfer.PreviewRequest{Content: "x", Platforms: []string{"friendster"}})
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = s.Preview(&transfer.PreviewRequest{Content: "x"})
	assert.ErrorIs(t, err, ErrInvalidInput)
}
