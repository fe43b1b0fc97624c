package repository

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/maheshrc27/broadcast/internal/models"
)

type ProfileRepository interface {
	Create(ctx context.Context, tx *sql.Tx, p *models.Profile) error
	GetByUserID(ctx context.Context, userID int64) (*models.Profile, error)
	IncrementPosts(ctx context.Context, userID int64) error
	ResetMonthlyPosts(ctx context.Context) (int64, error)
	SetStripeCustomer(ctx context.Context, userID int64, customerID string) error
	UpdateSubscriptionByCustomer(ctx context.Context, customerID, tier, status string) error
}

type profileRepository struct {
	db *sql.DB
}

func NewProfileRepository(db *sql.DB) ProfileRepository {
	return &profileRepository{db: db}
}

func (r *profileRepository) Create(ctx context.Context, tx *sql.Tx, p *models.Profile) error {
	query := `
		INSERT INTO profiles (user_id, subscription_tier, post_limit)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id) DO NOTHING
	`

	var err error
	if tx != nil {
		_, err = tx.ExecContext(ctx, query, p.UserID, p.SubscriptionTier, p.PostLimit)
	} else {
		_, err = r.db.ExecContext(ctx, query, p.UserID, p.SubscriptionTier, p.PostLimit)
	}
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *profileRepository) GetByUserID(ctx context.Context, userID int64) (*models.Profile, error) {
	query := `
		SELECT user_id, subscription_tier, posts_this_month, post_limit, stripe_customer_id,
			subscription_status, created_at, updated_at
		FROM profiles
		WHERE user_id = $1
	`

	var p models.Profile
	err := r.db.QueryRowContext(ctx, query, userID).Scan(&p.UserID, &p.SubscriptionTier, &p.PostsThisMonth,
		&p.PostLimit, &p.StripeCustomerID, &p.SubscriptionStatus, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}
	return &p, nil
}

func (r *profileRepository) IncrementPosts(ctx context.Context, userID int64) error {
	query := `UPDATE profiles SET posts_this_month = posts_this_month + 1, updated_at = NOW() WHERE user_id = $1`
	if _, err := r.db.ExecContext(ctx, query, userID); err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *profileRepository) ResetMonthlyPosts(ctx context.Context) (int64, error) {
	query := `UPDATE profiles SET posts_this_month = 0, updated_at = NOW() WHERE posts_this_month <> 0`
	result, err := r.db.ExecContext(ctx, query)
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}
	return result.RowsAffected()
}

func (r *profileRepository) SetStripeCustomer(ctx context.Context, userID int64, customerID string) error {
	query := `UPDATE profiles SET stripe_customer_id = $2, updated_at = NOW() WHERE user_id = $1`
	if _, err := r.db.ExecContext(ctx, query, userID, customerID); err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

// UpdateSubscriptionByCustomer leaves a field untouched when passed empty.
func (r *profileRepository) UpdateSubscriptionByCustomer(ctx context.Context, customerID, tier, status string) error {
	query := `
		UPDATE profiles
		SET
			subscription_tier = COALESCE(NULLIF($2, ''), subscription_tier),
			subscription_status = COALESCE(NULLIF($3, ''), subscription_status),
			updated_at = NOW()
		WHERE stripe_customer_id = $1
	`
	if _, err := r.db.ExecContext(ctx, query, customerID, tier, status); err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}
