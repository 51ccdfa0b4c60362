package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"saasbooks/internal/domain"
)

// DriveConfigRepository guarda la configuracion de Drive (una por usuario).
type DriveConfigRepository interface {
	Create(ctx context.Context, cfg domain.DriveConfig) error
	GetByUserID(ctx context.Context, userID string) (domain.DriveConfig, error)
	UpdateTokens(ctx context.Context, userID, accessToken, refreshToken string, expiry time.Time) error
	UpdateFolder(ctx context.Context, userID, folderID string) error
}

type PgDriveConfigRepository struct {
	pool *pgxpool.Pool
}

func NewPgDriveConfigRepository(pool *pgxpool.Pool) *PgDriveConfigRepository {
	return &PgDriveConfigRepository{pool: pool}
}

func (r *PgDriveConfigRepository) Create(ctx context.Context, cfg domain.DriveConfig) error {
	const query = `
		INSERT INTO drive_configs (user_id, folder_id, access_token, refresh_token, expiry_date, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.pool.Exec(ctx, query,
		cfg.UserID,
		cfg.FolderID,
		cfg.AccessToken,
		nullString(cfg.RefreshToken),
		cfg.ExpiryDate,
		cfg.UpdatedAt,
	)
	return err
}

func (r *PgDriveConfigRepository) GetByUserID(ctx context.Context, userID string) (domain.DriveConfig, error) {
	const query = `
		SELECT user_id, folder_id, access_token, refresh_token, expiry_date, updated_at
		FROM drive_configs
		WHERE user_id = $1
	`
	var (
		cfg     domain.DriveConfig
		refresh *string
	)
	err := r.pool.QueryRow(ctx, query, userID).Scan(
		&cfg.UserID,
		&cfg.FolderID,
		&cfg.AccessToken,
		&refresh,
		&cfg.ExpiryDate,
		&cfg.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.DriveConfig{}, err
	}
	if err != nil {
		return domain.DriveConfig{}, err
	}
	cfg.RefreshToken = derefString(refresh)
	return cfg, nil
}

// UpdateTokens reemplaza access token y expiracion. El refresh token solo se
// sobreescribe si llega uno nuevo.
func (r *PgDriveConfigRepository) UpdateTokens(ctx context.Context, userID, accessToken, refreshToken string, expiry time.Time) error {
	const query = `
		UPDATE drive_configs
		SET access_token = $2,
		    refresh_token = COALESCE($3, refresh_token),
		    expiry_date = $4,
		    updated_at = now()
		WHERE user_id = $1
	`
	tag, err := r.pool.Exec(ctx, query, userID, accessToken, nullString(refreshToken), expiry)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *PgDriveConfigRepository) UpdateFolder(ctx context.Context, userID, folderID string) error {
	const query = `
		UPDATE drive_configs
		SET folder_id = $2, updated_at = now()
		WHERE user_id = $1
	`
	tag, err := r.pool.Exec(ctx, query, userID, folderID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
