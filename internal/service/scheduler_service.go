package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/maheshrc27/broadcast/internal/metrics"
	"github.com/maheshrc27/broadcast/internal/models"
	"github.com/maheshrc27/broadcast/internal/repository"
	"github.com/maheshrc27/broadcast/internal/transfer"
)

const sweepBatchSize = 50

type SchedulerService interface {
	Sweep(ctx context.Context) (*transfer.SweepReport, error)
	ResetMonthly(ctx context.Context) (int64, error)
}

type schedulerService struct {
	now       func() time.Time
	publisher PublisherService
	conns     ConnectionService
	pr        repository.PostRepository
	p         repository.ProfileRepository
}

func NewSchedulerService(publisher PublisherService, conns ConnectionService, pr repository.PostRepository, p repository.ProfileRepository) SchedulerService {
	return &schedulerService{
		now:       time.Now,
		publisher: publisher,
		conns:     conns,
		pr:        pr,
		p:         p,
	}
}

// Sweep publishes every scheduled post that has come due. A post is claimed
// by moving it to publishing; posts claimed by a concurrent sweep are skipped.
// Failed posts are never retried.
func (s *schedulerService) Sweep(ctx context.Context) (*transfer.SweepReport, error) {
	posts, err := s.pr.ListDue(ctx, s.now(), sweepBatchSize)
	if err != nil {
		return nil, fmt.Errorf("failed to list due posts: %w", err)
	}

	report := &transfer.SweepReport{Total: len(posts)}
	for _, post := range posts {
		switch s.sweepOne(ctx, post) {
		case sweepProcessed:
			report.Processed++
			metrics.SweepResult("processed")
		case sweepFailed:
			report.Failed++
			metrics.SweepResult("failed")
		default:
			metrics.SweepResult("skipped")
		}
	}

	report.Timestamp = s.now()
	slog.Info("sweep finished", "total", report.Total, "processed", report.Processed, "failed", report.Failed)
	return report, nil
}

type sweepOutcome int

const (
	sweepSkipped sweepOutcome = iota
	sweepProcessed
	sweepFailed
)

func (s *schedulerService) sweepOne(ctx context.Context, post *models.Post) (outcome sweepOutcome) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("sweep panicked on post", "post_id", post.ID, "panic", r)
			s.markFailed(ctx, post.ID)
			outcome = sweepFailed
		}
	}()

	claimed, err := s.pr.TransitionStatus(ctx, post.ID, models.PostStatusPublishing)
	if err != nil {
		slog.Error("failed to claim post", "post_id", post.ID, "error", err)
		return sweepFailed
	}
	if !claimed {
		return sweepSkipped
	}

	if err := s.p.IncrementPosts(ctx, post.UserID); err != nil {
		slog.Error("failed to increment post counter", "user_id", post.UserID, "error", err)
	}

	conns, err := s.conns.ListActive(ctx, post.UserID, post.Platforms)
	if err != nil {
		slog.Error("failed to load connections", "post_id", post.ID, "error", err)
		s.markFailed(ctx, post.ID)
		return sweepFailed
	}
	if len(conns) == 0 {
		slog.Info("no active connections for scheduled post", "post_id", post.ID)
		s.markFailed(ctx, post.ID)
		return sweepFailed
	}

	s.publisher.Dispatch(ctx, post, conns)
	return sweepProcessed
}

func (s *schedulerService) markFailed(ctx context.Context, postID int64) {
	if _, err := s.pr.TransitionStatus(ctx, postID, models.PostStatusFailed); err != nil {
		slog.Error("failed to mark post failed", "post_id", postID, "error", err)
	}
}

func (s *schedulerService) ResetMonthly(ctx context.Context) (int64, error) {
	n, err := s.p.ResetMonthlyPosts(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to reset monthly counters: %w", err)
	}
	slog.Info("monthly post counters reset", "profiles", n)
	return n, nil
}
