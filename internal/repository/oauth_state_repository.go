package repository

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/maheshrc27/broadcast/internal/models"
)

type OAuthStateRepository interface {
	Create(ctx context.Context, s *models.OAuthState) error
	Consume(ctx context.Context, state string) (*models.OAuthState, error)
	PurgeExpired(ctx context.Context, now time.Time) (int64, error)
}

type oauthStateRepository struct {
	db *sql.DB
}

func NewOAuthStateRepository(db *sql.DB) OAuthStateRepository {
	return &oauthStateRepository{db: db}
}

func (r *oauthStateRepository) Create(ctx context.Context, s *models.OAuthState) error {
	query := `
		INSERT INTO oauth_states (state, user_id, platform, code_verifier, instance_url, client_id, client_secret, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := r.db.ExecContext(ctx, query, s.State, s.UserID, s.Platform, s.CodeVerifier,
		s.InstanceURL, s.ClientID, s.ClientSecret, s.ExpiresAt)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

// Consume deletes the state and returns it, so a state can be redeemed at
// most once even under concurrent callbacks. A nil state means it was unknown
// or already used.
func (r *oauthStateRepository) Consume(ctx context.Context, state string) (*models.OAuthState, error) {
	query := `
		DELETE FROM oauth_states
		WHERE state = $1
		RETURNING state, user_id, platform, code_verifier, instance_url, client_id, client_secret, expires_at, created_at
	`

	var s models.OAuthState
	err := r.db.QueryRowContext(ctx, query, state).Scan(&s.State, &s.UserID, &s.Platform, &s.CodeVerifier,
		&s.InstanceURL, &s.ClientID, &s.ClientSecret, &s.ExpiresAt, &s.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}
	return &s, nil
}

func (r *oauthStateRepository) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM oauth_states WHERE expires_at <= $1`, now)
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}
	return result.RowsAffected()
}
