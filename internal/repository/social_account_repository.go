package repository

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/adnanh27/postbridge/internal/models"
	"github.com/lib/pq"
)

type SocialAccountRepository interface {
	Upsert(ctx context.Context, tx *sql.Tx, sa *models.SocialAccount) (int64, error)
	GetByID(ctx context.Context, id int64) (*models.SocialAccount, error)
	ListActiveByOrgAndPlatforms(ctx context.Context, orgID int64, platforms []string) ([]*models.SocialAccount, error)
	ListInfoByOrgID(ctx context.Context, orgID int64) ([]*models.SocialAccount, error)
	ListExpiringBetween(ctx context.Context, initialTime, finalTime time.Time) ([]*models.SocialAccount, error)
	CheckByOrgID(ctx context.Context, accountID, orgID int64) (bool, error)
	UpdateTokens(ctx context.Context, id int64, accessToken, refreshToken string, expiresAt time.Time) error
	SetStatus(ctx context.Context, id int64, status string) error
}

type socialAccountRepository struct {
	db *sql.DB
}

func NewSocialAccountRepository(db *sql.DB) SocialAccountRepository {
	return &socialAccountRepository{db: db}
}

const socialAccountColumns = `
	id, org_id, platform, platform_user_id, account_name, username,
	profile_picture_url, access_token, refresh_token, token_expires_at,
	scopes, metadata, account_status, created_at, updated_at`

// Upsert inserts a freshly linked account, or re-activates and replaces
// the tokens when the same platform identity is connected again.
func (r *socialAccountRepository) Upsert(ctx context.Context, tx *sql.Tx, sa *models.SocialAccount) (int64, error) {
	query := `
		INSERT INTO social_accounts(
			org_id,
			platform,
			platform_user_id,
			account_name,
			username,
			profile_picture_url,
			access_token,
			refresh_token,
			token_expires_at,
			scopes,
			metadata,
			account_status
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, 'active')
		ON CONFLICT (org_id, platform, platform_user_id) DO UPDATE
		SET account_name = EXCLUDED.account_name,
			username = EXCLUDED.username,
			profile_picture_url = EXCLUDED.profile_picture_url,
			access_token = EXCLUDED.access_token,
			refresh_token = EXCLUDED.refresh_token,
			token_expires_at = EXCLUDED.token_expires_at,
			scopes = EXCLUDED.scopes,
			metadata = EXCLUDED.metadata,
			account_status = 'active',
			updated_at = CURRENT_TIMESTAMP
		RETURNING id
	`

	args := []interface{}{
		sa.OrgID,
		sa.Platform,
		sa.PlatformUserID,
		sa.AccountName,
		sa.Username,
		sa.ProfilePicture,
		sa.AccessToken,
		sa.RefreshToken,
		sa.TokenExpiresAt,
		pq.Array(sa.Scopes),
		sa.Metadata,
	}

	var id int64
	var err error
	if tx != nil {
		err = tx.QueryRowContext(ctx, query, args...).Scan(&id)
	} else {
		err = r.db.QueryRowContext(ctx, query, args...).Scan(&id)
	}
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}

	return id, nil
}

func (r *socialAccountRepository) GetByID(ctx context.Context, id int64) (*models.SocialAccount, error) {
	query := `SELECT ` + socialAccountColumns + ` FROM social_accounts WHERE id = $1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, id))
}

func (r *socialAccountRepository) ListActiveByOrgAndPlatforms(ctx context.Context, orgID int64, platforms []string) ([]*models.SocialAccount, error) {
	query := `SELECT ` + socialAccountColumns + `
		FROM social_accounts
		WHERE org_id = $1 AND platform = ANY($2) AND account_status = 'active'`

	rows, err := r.db.QueryContext(ctx, query, orgID, pq.Array(platforms))
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	return r.scanAll(rows)
}

func (r *socialAccountRepository) ListInfoByOrgID(ctx context.Context, orgID int64) ([]*models.SocialAccount, error) {
	query := `SELECT id, account_name, username, profile_picture_url, platform, account_status
		FROM social_accounts WHERE org_id = $1`
	rows, err := r.db.QueryContext(ctx, query, orgID)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var accounts []*models.SocialAccount
	for rows.Next() {
		var sa models.SocialAccount
		err := rows.Scan(&sa.ID, &sa.AccountName, &sa.Username, &sa.ProfilePicture, &sa.Platform, &sa.AccountStatus)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		accounts = append(accounts, &sa)
	}
	return accounts, rows.Err()
}

func (r *socialAccountRepository) ListExpiringBetween(ctx context.Context, initialTime, finalTime time.Time) ([]*models.SocialAccount, error) {
	query := `SELECT ` + socialAccountColumns + `
		FROM social_accounts
		WHERE account_status = 'active'
		AND token_expires_at BETWEEN $1 AND $2`

	rows, err := r.db.QueryContext(ctx, query, initialTime, finalTime)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	return r.scanAll(rows)
}

func (r *socialAccountRepository) CheckByOrgID(ctx context.Context, accountID, orgID int64) (bool, error) {
	query := `SELECT 1 FROM social_accounts WHERE id = $1 AND org_id = $2`

	var result int
	err := r.db.QueryRowContext(ctx, query, accountID, orgID).Scan(&result)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		slog.Info(err.Error())
		return false, err
	}

	return result == 1, nil
}

func (r *socialAccountRepository) UpdateTokens(ctx context.Context, id int64, accessToken, refreshToken string, expiresAt time.Time) error {
	query := `
		UPDATE social_accounts
		SET access_token = $2,
			refresh_token = COALESCE(NULLIF($3, ''), refresh_token),
			token_expires_at = $4,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = $1
	`
	_, err := r.db.ExecContext(ctx, query, id, accessToken, refreshToken, expiresAt)
	if err != nil {
		slog.Info(err.Error())
	}
	return err
}

// SetStatus soft-disables or flags an account. Accounts are never hard
// deleted; disconnect sets account_status = 'disabled'.
func (r *socialAccountRepository) SetStatus(ctx context.Context, id int64, status string) error {
	query := `UPDATE social_accounts SET account_status = $2, updated_at = CURRENT_TIMESTAMP WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id, status)
	if err != nil {
		slog.Info(err.Error())
	}
	return err
}

func (r *socialAccountRepository) scanOne(row *sql.Row) (*models.SocialAccount, error) {
	var sa models.SocialAccount
	err := row.Scan(&sa.ID, &sa.OrgID, &sa.Platform, &sa.PlatformUserID, &sa.AccountName,
		&sa.Username, &sa.ProfilePicture, &sa.AccessToken, &sa.RefreshToken,
		&sa.TokenExpiresAt, pq.Array(&sa.Scopes), &sa.Metadata, &sa.AccountStatus,
		&sa.CreatedAt, &sa.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}
	return &sa, nil
}

func (r *socialAccountRepository) scanAll(rows *sql.Rows) ([]*models.SocialAccount, error) {
	var accounts []*models.SocialAccount
	for rows.Next() {
		var sa models.SocialAccount
		err := rows.Scan(&sa.ID, &sa.OrgID, &sa.Platform, &sa.PlatformUserID, &sa.AccountName,
			&sa.Username, &sa.ProfilePicture, &sa.AccessToken, &sa.RefreshToken,
			&sa.TokenExpiresAt, pq.Array(&sa.Scopes), &sa.Metadata, &sa.AccountStatus,
			&sa.CreatedAt, &sa.UpdatedAt)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		accounts = append(accounts, &sa)
	}
	return accounts, rows.Err()
}
