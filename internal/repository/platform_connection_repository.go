package repository

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/lib/pq"
	"github.com/maheshrc27/broadcast/internal/models"
)

type PlatformConnectionRepository interface {
	Upsert(ctx context.Context, pc *models.PlatformConnection) (int64, error)
	GetByPlatform(ctx context.Context, userID int64, platform string) (*models.PlatformConnection, error)
	ListActive(ctx context.Context, userID int64, platforms []string) ([]*models.PlatformConnection, error)
	ListByUserID(ctx context.Context, userID int64) ([]*models.PlatformConnection, error)
	ListExpiring(ctx context.Context, before time.Time, platforms []string) ([]*models.PlatformConnection, error)
	CountActive(ctx context.Context, userID int64) (int, error)
	UpdateTokens(ctx context.Context, id int64, accessToken, refreshToken string, expiresAt *time.Time) error
	DeleteByPlatform(ctx context.Context, userID int64, platform string) (bool, error)
}

type platformConnectionRepository struct {
	db *sql.DB
}

func NewPlatformConnectionRepository(db *sql.DB) PlatformConnectionRepository {
	return &platformConnectionRepository{db: db}
}

const connectionColumns = `id, user_id, platform, platform_user_id, platform_username, access_token,
	refresh_token, instance_url, token_expires_at, is_active, created_at, updated_at`

func scanConnection(row rowScanner) (*models.PlatformConnection, error) {
	var pc models.PlatformConnection
	err := row.Scan(&pc.ID, &pc.UserID, &pc.Platform, &pc.PlatformUserID, &pc.PlatformUsername,
		&pc.AccessToken, &pc.RefreshToken, &pc.InstanceURL, &pc.TokenExpiresAt, &pc.IsActive,
		&pc.CreatedAt, &pc.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &pc, nil
}

// Upsert keeps exactly one row per (user_id, platform); reconnecting
// overwrites identity and credentials and reactivates the row.
func (r *platformConnectionRepository) Upsert(ctx context.Context, pc *models.PlatformConnection) (int64, error) {
	query := `
		INSERT INTO platform_connections (
			user_id,
			platform,
			platform_user_id,
			platform_username,
			access_token,
			refresh_token,
			instance_url,
			token_expires_at,
			is_active
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, TRUE)
		ON CONFLICT (user_id, platform) DO UPDATE SET
			platform_user_id = EXCLUDED.platform_user_id,
			platform_username = EXCLUDED.platform_username,
			access_token = EXCLUDED.access_token,
			refresh_token = EXCLUDED.refresh_token,
			instance_url = EXCLUDED.instance_url,
			token_expires_at = EXCLUDED.token_expires_at,
			is_active = TRUE,
			updated_at = NOW()
		RETURNING id
	`

	var id int64
	err := r.db.QueryRowContext(ctx, query,
		pc.UserID,
		pc.Platform,
		pc.PlatformUserID,
		pc.PlatformUsername,
		pc.AccessToken,
		pc.RefreshToken,
		pc.InstanceURL,
		pc.TokenExpiresAt,
	).Scan(&id)
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}

	return id, nil
}

func (r *platformConnectionRepository) GetByPlatform(ctx context.Context, userID int64, platform string) (*models.PlatformConnection, error) {
	query := `SELECT ` + connectionColumns + ` FROM platform_connections WHERE user_id = $1 AND platform = $2`

	pc, err := scanConnection(r.db.QueryRowContext(ctx, query, userID, platform))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}
	return pc, nil
}

func (r *platformConnectionRepository) ListActive(ctx context.Context, userID int64, platforms []string) ([]*models.PlatformConnection, error) {
	query := `SELECT ` + connectionColumns + ` FROM platform_connections
		WHERE user_id = $1 AND is_active AND platform = ANY($2)
		ORDER BY platform`
	return r.list(ctx, query, userID, pq.Array(platforms))
}

func (r *platformConnectionRepository) ListByUserID(ctx context.Context, userID int64) ([]*models.PlatformConnection, error) {
	query := `SELECT ` + connectionColumns + ` FROM platform_connections WHERE user_id = $1 ORDER BY platform`
	return r.list(ctx, query, userID)
}

// ListExpiring returns active connections whose token expires before the given time.
func (r *platformConnectionRepository) ListExpiring(ctx context.Context, before time.Time, platforms []string) ([]*models.PlatformConnection, error) {
	query := `SELECT ` + connectionColumns + ` FROM platform_connections
		WHERE is_active
		AND refresh_token <> ''
		AND token_expires_at IS NOT NULL
		AND token_expires_at < $1
		AND platform = ANY($2)`
	return r.list(ctx, query, before, pq.Array(platforms))
}

func (r *platformConnectionRepository) list(ctx context.Context, query string, args ...any) ([]*models.PlatformConnection, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var connections []*models.PlatformConnection
	for rows.Next() {
		pc, err := scanConnection(rows)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		connections = append(connections, pc)
	}

	if err := rows.Err(); err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	return connections, nil
}

func (r *platformConnectionRepository) CountActive(ctx context.Context, userID int64) (int, error) {
	query := `SELECT COUNT(*) FROM platform_connections WHERE user_id = $1 AND is_active`

	var count int
	if err := r.db.QueryRowContext(ctx, query, userID).Scan(&count); err != nil {
		slog.Info(err.Error())
		return 0, err
	}
	return count, nil
}

func (r *platformConnectionRepository) UpdateTokens(ctx context.Context, id int64, accessToken, refreshToken string, expiresAt *time.Time) error {
	query := `
		UPDATE platform_connections
		SET
			access_token = COALESCE(NULLIF($2, ''), access_token),
			refresh_token = COALESCE(NULLIF($3, ''), refresh_token),
			token_expires_at = COALESCE($4, token_expires_at),
			updated_at = NOW()
		WHERE id = $1
	`
	result, err := r.db.ExecContext(ctx, query, id, accessToken, refreshToken, expiresAt)
	if err != nil {
		slog.Info(err.Error())
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	if affected != 1 {
		err = errors.New("no rows affected; connection may not exist")
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *platformConnectionRepository) DeleteByPlatform(ctx context.Context, userID int64, platform string) (bool, error) {
	query := `DELETE FROM platform_connections WHERE user_id = $1 AND platform = $2`
	result, err := r.db.ExecContext(ctx, query, userID, platform)
	if err != nil {
		slog.Info(err.Error())
		return false, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		slog.Info(err.Error())
		return false, err
	}
	return affected > 0, nil
}
