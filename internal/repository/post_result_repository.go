package repository

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/maheshrc27/broadcast/internal/models"
)

type PostResultRepository interface {
	Create(ctx context.Context, pr *models.PostResult) (int64, error)
	ListByPostID(ctx context.Context, postID int64) ([]*models.PostResult, error)
}

type postResultRepository struct {
	db *sql.DB
}

func NewPostResultRepository(db *sql.DB) PostResultRepository {
	return &postResultRepository{db: db}
}

func (r *postResultRepository) Create(ctx context.Context, pr *models.PostResult) (int64, error) {
	query := `
		INSERT INTO post_results (post_id, platform, status, platform_post_id, platform_post_url, error_message)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`

	var id int64
	err := r.db.QueryRowContext(ctx, query, pr.PostID, pr.Platform, pr.Status,
		pr.PlatformPostID, pr.PlatformPostURL, pr.ErrorMessage).Scan(&id)
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}

	return id, nil
}

func (r *postResultRepository) ListByPostID(ctx context.Context, postID int64) ([]*models.PostResult, error) {
	query := `
		SELECT id, post_id, platform, status, platform_post_id, platform_post_url, error_message, created_at
		FROM post_results
		WHERE post_id = $1
		ORDER BY id
	`
	rows, err := r.db.QueryContext(ctx, query, postID)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var results []*models.PostResult
	for rows.Next() {
		var pr models.PostResult
		err := rows.Scan(&pr.ID, &pr.PostID, &pr.Platform, &pr.Status, &pr.PlatformPostID,
			&pr.PlatformPostURL, &pr.ErrorMessage, &pr.CreatedAt)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		results = append(results, &pr)
	}
	return results, rows.Err()
}
