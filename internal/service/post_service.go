package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"unicode/utf8"

	"github.com/maheshrc27/broadcast/internal/models"
	"github.com/maheshrc27/broadcast/internal/platform"
	"github.com/maheshrc27/broadcast/internal/repository"
	"github.com/maheshrc27/broadcast/internal/transfer"
)

type PostService interface {
	List(ctx context.Context, userID int64) ([]*models.Post, error)
	Get(ctx context.Context, userID, postID int64) (*transfer.PostDetail, error)
	Remove(ctx context.Context, userID, postID int64) error
	Preview(req *transfer.PreviewRequest) (*transfer.PreviewResponse, error)
}

type postService struct {
	pr repository.PostRepository
	rr repository.PostResultRepository
}

func NewPostService(pr repository.PostRepository, rr repository.PostResultRepository) PostService {
	return &postService{
		pr: pr,
		rr: rr,
	}
}

func (s *postService) List(ctx context.Context, userID int64) ([]*models.Post, error) {
	if userID == 0 {
		return nil, ErrUnauthorized
	}

	posts, err := s.pr.GetByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("Error getting posts")
	}
	if posts == nil {
		posts = []*models.Post{}
	}
	return posts, nil
}

func (s *postService) owned(ctx context.Context, userID, postID int64) error {
	if userID == 0 {
		return ErrUnauthorized
	}
	if postID == 0 {
		return invalidInput("post id is not valid")
	}

	isValid, err := s.pr.CheckByUserID(ctx, postID, userID)
	if err != nil {
		return err
	}
	if !isValid {
		err = notFound("Post doesn't exist")
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (s *postService) Get(ctx context.Context, userID, postID int64) (*transfer.PostDetail, error) {
	if err := s.owned(ctx, userID, postID); err != nil {
		return nil, err
	}

	post, err := s.pr.GetByID(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("Error getting post info")
	}
	if post == nil {
		return nil, notFound("Post doesn't exist")
	}

	results, err := s.rr.ListByPostID(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("Error getting post results")
	}
	if results == nil {
		results = []*models.PostResult{}
	}

	return &transfer.PostDetail{Post: post, Results: results}, nil
}

// Remove only deletes posts that have not started publishing.
func (s *postService) Remove(ctx context.Context, userID, postID int64) error {
	if err := s.owned(ctx, userID, postID); err != nil {
		return err
	}

	post, err := s.pr.GetByID(ctx, postID)
	if err != nil {
		return fmt.Errorf("Error getting post info")
	}
	if post == nil {
		return notFound("Post doesn't exist")
	}
	if post.Status == models.PostStatusPublishing {
		return invalidInput("Post is being published and cannot be removed")
	}

	if err := s.pr.Remove(ctx, postID); err != nil {
		return errors.New("Error removing post")
	}
	return nil
}

// Preview shows the text each platform would receive. Content over a
// platform's limit is shown truncated but never truncated on publish.
func (s *postService) Preview(req *transfer.PreviewRequest) (*transfer.PreviewResponse, error) {
	if req == nil || len(req.Platforms) == 0 {
		return nil, invalidInput("At least one platform is required")
	}

	ids := make([]platform.ID, 0, len(req.Platforms))
	previews := make(map[string]transfer.PlatformPreview, len(req.Platforms))
	for _, p := range req.Platforms {
		id := platform.ID(p)
		c, ok := platform.Lookup(id)
		if !ok {
			return nil, invalidInput("Unsupported platform: %s", p)
		}
		ids = append(ids, id)

		full := platform.ComposeText(req.Content, req.Tags, id)
		text := platform.Truncate(full, id)
		previews[p] = transfer.PlatformPreview{
			Text:      text,
			Length:    utf8.RuneCountInString(full),
			CharLimit: c.CharLimit,
			Truncated: text != full,
		}
	}

	return &transfer.PreviewResponse{
		MaxCharLimit: platform.MaxCharLimit(ids),
		Platforms:    previews,
	}, nil
}
