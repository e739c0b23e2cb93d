package repository

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/adnanh27/postbridge/internal/models"
)

type UserRepository interface {
	Create(ctx context.Context, tx *sql.Tx, user *models.User) (int64, error)
	GetByID(ctx context.Context, id int64) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, bool, error)
	SetOrgID(ctx context.Context, userID, orgID int64) error
}

type userRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(ctx context.Context, tx *sql.Tx, user *models.User) (int64, error) {
	query := `
		INSERT INTO users(org_id, google_id, email, name, profile_picture)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`

	var id int64
	var err error
	if tx != nil {
		err = tx.QueryRowContext(ctx, query, user.OrgID, user.GoogleID, user.Email, user.Name, user.ProfilePicture).Scan(&id)
	} else {
		err = r.db.QueryRowContext(ctx, query, user.OrgID, user.GoogleID, user.Email, user.Name, user.ProfilePicture).Scan(&id)
	}
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}

	return id, nil
}

func (r *userRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	query := `SELECT id, org_id, google_id, email, name, profile_picture, created_at, updated_at
		FROM users WHERE id = $1`
	row := r.db.QueryRowContext(ctx, query, id)

	var u models.User
	err := row.Scan(&u.ID, &u.OrgID, &u.GoogleID, &u.Email, &u.Name, &u.ProfilePicture, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}
	return &u, nil
}

func (r *userRepository) SetOrgID(ctx context.Context, userID, orgID int64) error {
	query := `UPDATE users SET org_id = $2, updated_at = CURRENT_TIMESTAMP WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, userID, orgID)
	if err != nil {
		slog.Info(err.Error())
	}
	return err
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*models.User, bool, error) {
	query := `SELECT id, org_id, google_id, email, name, profile_picture, created_at, updated_at
		FROM users WHERE email = $1`
	row := r.db.QueryRowContext(ctx, query, email)

	var u models.User
	err := row.Scan(&u.ID, &u.OrgID, &u.GoogleID, &u.Email, &u.Name, &u.ProfilePicture, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, false, nil
		}
		slog.Info(err.Error())
		return nil, false, err
	}
	return &u, true, nil
}
