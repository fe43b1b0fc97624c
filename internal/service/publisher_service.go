package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	config "github.com/maheshrc27/broadcast/configs"
	"github.com/maheshrc27/broadcast/internal/metrics"
	"github.com/maheshrc27/broadcast/internal/models"
	"github.com/maheshrc27/broadcast/internal/platform"
	"github.com/maheshrc27/broadcast/internal/repository"
	"github.com/maheshrc27/broadcast/internal/transfer"
)

const credentialsUnavailable = "Credentials unavailable, reconnect the account"

type PublisherService interface {
	Submit(ctx context.Context, userID int64, sub *transfer.PostSubmission) (*transfer.SubmitResponse, error)
	// Dispatch fans a post out to the given connections, records one result
	// per connection and moves the post to its terminal status.
	Dispatch(ctx context.Context, post *models.Post, conns []*models.PlatformConnection) (map[string]transfer.PlatformOutcome, string)
}

type publisherService struct {
	concurrency int
	timeout     time.Duration
	now         func() time.Time
	adapters    Adapters
	quota       QuotaService
	conns       ConnectionService
	pr          repository.PostRepository
	rr          repository.PostResultRepository
	p           repository.ProfileRepository
}

func NewPublisherService(
	cfg config.Config,
	adapters Adapters,
	quota QuotaService,
	conns ConnectionService,
	pr repository.PostRepository,
	rr repository.PostResultRepository,
	p repository.ProfileRepository) PublisherService {
	concurrency := cfg.PublishConcurrency
	if concurrency <= 0 {
		concurrency = 1
	}
	return &publisherService{
		concurrency: concurrency,
		timeout:     cfg.AdapterTimeout,
		now:         time.Now,
		adapters:    adapters,
		quota:       quota,
		conns:       conns,
		pr:          pr,
		rr:          rr,
		p:           p,
	}
}

func (s *publisherService) Submit(ctx context.Context, userID int64, sub *transfer.PostSubmission) (*transfer.SubmitResponse, error) {
	if userID == 0 {
		return nil, ErrUnauthorized
	}

	post, err := s.validate(userID, sub)
	if err != nil {
		return nil, err
	}

	now := s.now()
	scheduled := post.ScheduledFor != nil && post.ScheduledFor.After(now)
	if !scheduled {
		post.ScheduledFor = nil
	}

	if err := s.quota.CheckPost(ctx, userID, scheduled); err != nil {
		return nil, err
	}

	conns, err := s.conns.ListActive(ctx, userID, post.Platforms)
	if err != nil {
		return nil, err
	}
	if len(conns) == 0 {
		return nil, invalidInput("No connected platforms found. Please connect at least one platform.")
	}

	if scheduled {
		post.Status = models.PostStatusScheduled
	} else {
		post.Status = models.PostStatusPublishing
	}

	post.ID, err = s.pr.Create(ctx, nil, post)
	if err != nil {
		return nil, fmt.Errorf("failed to create post: %w", err)
	}

	if scheduled {
		slog.Info("post scheduled", "post_id", post.ID, "scheduled_for", post.ScheduledFor)
		return &transfer.SubmitResponse{
			Success:      true,
			PostID:       post.ID,
			Scheduled:    true,
			ScheduledFor: post.ScheduledFor,
			Status:       post.Status,
			Message:      "Post scheduled successfully",
			Timestamp:    now,
		}, nil
	}

	if err := s.p.IncrementPosts(ctx, userID); err != nil {
		slog.Error("failed to increment post counter", "user_id", userID, "error", err)
	}

	results, status := s.Dispatch(ctx, post, conns)
	return &transfer.SubmitResponse{
		Success:   status == models.PostStatusPublished,
		PostID:    post.ID,
		Status:    status,
		Results:   results,
		Timestamp: s.now(),
	}, nil
}

func (s *publisherService) validate(userID int64, sub *transfer.PostSubmission) (*models.Post, error) {
	if sub == nil || strings.TrimSpace(sub.Content) == "" || len(sub.Platforms) == 0 {
		return nil, invalidInput("Content and platforms are required")
	}

	seen := make(map[string]bool, len(sub.Platforms))
	platforms := make([]string, 0, len(sub.Platforms))
	for _, p := range sub.Platforms {
		if !platform.IsKnown(platform.ID(p)) {
			return nil, invalidInput("Unsupported platform: %s", p)
		}
		if !seen[p] {
			seen[p] = true
			platforms = append(platforms, p)
		}
	}

	for i, img := range sub.Images {
		if strings.TrimSpace(img.URL) == "" {
			return nil, invalidInput("Image %d is missing a URL", i+1)
		}
	}

	tags := sub.Tags
	if tags == nil {
		tags = []string{}
	}

	post := &models.Post{
		UserID:    userID,
		Content:   sub.Content,
		Tags:      tags,
		Platforms: platforms,
		Images:    sub.Images,
	}

	if sub.ScheduledFor != "" {
		t, err := time.Parse(time.RFC3339, sub.ScheduledFor)
		if err != nil {
			return nil, invalidInput("scheduled_for must be an RFC 3339 timestamp")
		}
		t = t.UTC()
		post.ScheduledFor = &t
	}

	return post, nil
}

func (s *publisherService) Dispatch(ctx context.Context, post *models.Post, conns []*models.PlatformConnection) (map[string]transfer.PlatformOutcome, string) {
	req := &transfer.PublishRequest{
		Content: post.Content,
		Tags:    post.Tags,
		Images:  post.Images,
	}

	outcomes := make([]transfer.PlatformOutcome, len(conns))
	sem := make(chan struct{}, s.concurrency)
	var wg sync.WaitGroup

	for i, conn := range conns {
		wg.Add(1)
		go func(i int, conn *models.PlatformConnection) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			start := time.Now()
			outcomes[i] = s.publishOne(ctx, conn, req)
			metrics.ObservePublish(conn.Platform, outcomes[i].Success, time.Since(start))
		}(i, conn)
	}
	wg.Wait()

	results := make(map[string]transfer.PlatformOutcome, len(conns))
	allOK := true
	for i, conn := range conns {
		out := outcomes[i]
		results[conn.Platform] = out
		if !out.Success {
			allOK = false
		}

		pr := &models.PostResult{
			PostID:          post.ID,
			Platform:        conn.Platform,
			Status:          models.ResultStatusSuccess,
			PlatformPostID:  out.PostID,
			PlatformPostURL: out.URL,
		}
		if !out.Success {
			pr.Status = models.ResultStatusFailed
			pr.ErrorMessage = out.Error
		}
		// Results are recorded even if the request context is gone.
		if _, err := s.rr.Create(context.WithoutCancel(ctx), pr); err != nil {
			slog.Error("failed to record post result", "post_id", post.ID, "platform", conn.Platform, "error", err)
		}
	}

	status := models.PostStatusFailed
	if allOK {
		status = models.PostStatusPublished
	}

	ok, err := s.pr.TransitionStatus(context.WithoutCancel(ctx), post.ID, status)
	if err != nil {
		slog.Error("failed to update post status", "post_id", post.ID, "status", status, "error", err)
	} else if !ok {
		slog.Warn("post status already moved on", "post_id", post.ID, "status", status)
	}
	metrics.PostFinished(status)

	return results, status
}

type publishReturn struct {
	res *transfer.PublishResult
	err error
}

// publishOne never panics and never outlives the adapter timeout.
func (s *publisherService) publishOne(ctx context.Context, conn *models.PlatformConnection, req *transfer.PublishRequest) transfer.PlatformOutcome {
	if conn.AccessToken == "" {
		return transfer.PlatformOutcome{Error: credentialsUnavailable}
	}

	adapter, err := s.adapters.For(platform.ID(conn.Platform))
	if err != nil {
		return transfer.PlatformOutcome{Error: err.Error()}
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	done := make(chan publishReturn, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				slog.Error("publish adapter panicked", "platform", conn.Platform, "panic", r)
				done <- publishReturn{err: fmt.Errorf("internal error while publishing to %s", conn.Platform)}
			}
		}()
		res, err := adapter.Publish(ctx, conn, req)
		done <- publishReturn{res: res, err: err}
	}()

	select {
	case r := <-done:
		if r.err != nil {
			if errors.Is(r.err, context.DeadlineExceeded) {
				return transfer.PlatformOutcome{Error: fmt.Sprintf("Timed out after %s", s.timeout)}
			}
			return transfer.PlatformOutcome{Error: r.err.Error()}
		}
		if r.res == nil {
			return transfer.PlatformOutcome{Error: "No result returned"}
		}
		return transfer.PlatformOutcome{Success: true, PostID: r.res.PlatformPostID, URL: r.res.PlatformPostURL}
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return transfer.PlatformOutcome{Error: fmt.Sprintf("Timed out after %s", s.timeout)}
		}
		return transfer.PlatformOutcome{Error: ctx.Err().Error()}
	}
}
