package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/adnanh27/postbridge/internal/models"
	"github.com/lib/pq"
)

type PostRepository interface {
	Create(ctx context.Context, tx *sql.Tx, post *models.Post) (int64, error)
	GetByID(ctx context.Context, id int64) (*models.Post, error)
	ListByOrgID(ctx context.Context, orgID int64) ([]*models.Post, error)
	CheckByOrgID(ctx context.Context, postID, orgID int64) (bool, error)
	Reschedule(ctx context.Context, id int64, scheduledTime time.Time) error
	TransitionStatus(ctx context.Context, id int64, from, to string) (bool, error)
	Unschedule(ctx context.Context, id int64) (bool, error)
	MarkPublished(ctx context.Context, id int64, platformPostIDs map[string]string) error
	MarkFailed(ctx context.Context, id int64, errorMessage string) error
	Remove(ctx context.Context, id int64) error
}

type postRepository struct {
	db *sql.DB
}

func NewPostRepository(db *sql.DB) PostRepository {
	return &postRepository{db: db}
}

const postColumns = `
	id, org_id, user_id, content, target_platforms, media_urls,
	scheduled_time, status, platform_post_ids, error_message,
	created_at, updated_at`

func (r *postRepository) Create(ctx context.Context, tx *sql.Tx, post *models.Post) (int64, error) {
	query := `
		INSERT INTO posts(org_id, user_id, content, target_platforms, media_urls, scheduled_time, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`

	args := []interface{}{
		post.OrgID,
		post.UserID,
		post.Content,
		pq.Array(post.TargetPlatforms),
		pq.Array(post.MediaURLs),
		post.ScheduledTime,
		post.Status,
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

func (r *postRepository) GetByID(ctx context.Context, id int64) (*models.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts WHERE id = $1`
	row := r.db.QueryRowContext(ctx, query, id)

	post, err := scanPost(row.Scan)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}
	return post, nil
}

func (r *postRepository) ListByOrgID(ctx context.Context, orgID int64) ([]*models.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts WHERE org_id = $1 ORDER BY scheduled_time DESC`
	rows, err := r.db.QueryContext(ctx, query, orgID)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var posts []*models.Post
	for rows.Next() {
		post, err := scanPost(rows.Scan)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		posts = append(posts, post)
	}
	return posts, rows.Err()
}

func (r *postRepository) CheckByOrgID(ctx context.Context, postID, orgID int64) (bool, error) {
	query := `SELECT 1 FROM posts WHERE id = $1 AND org_id = $2`

	var result int
	err := r.db.QueryRowContext(ctx, query, postID, orgID).Scan(&result)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		slog.Info(err.Error())
		return false, err
	}

	return result == 1, nil
}

func (r *postRepository) Reschedule(ctx context.Context, id int64, scheduledTime time.Time) error {
	query := `
		UPDATE posts
		SET scheduled_time = $2, status = $3, updated_at = CURRENT_TIMESTAMP
		WHERE id = $1 AND status IN ($4, $3)
	`
	_, err := r.db.ExecContext(ctx, query, id, scheduledTime, models.PostStatusScheduled, models.PostStatusDraft)
	if err != nil {
		slog.Info(err.Error())
	}
	return err
}

// TransitionStatus performs a compare-and-set on the post status. The
// false return (no row matched) is how the publish handler detects a
// post that was cancelled or edited after its job was enqueued.
func (r *postRepository) TransitionStatus(ctx context.Context, id int64, from, to string) (bool, error) {
	if !models.CanTransition(from, to) {
		return false, nil
	}

	query := `
		UPDATE posts
		SET status = $3, updated_at = CURRENT_TIMESTAMP
		WHERE id = $1 AND status = $2
	`
	result, err := r.db.ExecContext(ctx, query, id, from, to)
	if err != nil {
		slog.Info(err.Error())
		return false, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		slog.Info(err.Error())
		return false, err
	}
	return affected == 1, nil
}

// Unschedule moves a scheduled post back to draft. It is the one
// backward move the lifecycle permits, and only while the post has not
// been picked up for publishing.
func (r *postRepository) Unschedule(ctx context.Context, id int64) (bool, error) {
	query := `
		UPDATE posts
		SET status = $3, updated_at = CURRENT_TIMESTAMP
		WHERE id = $1 AND status = $2
	`
	result, err := r.db.ExecContext(ctx, query, id, models.PostStatusScheduled, models.PostStatusDraft)
	if err != nil {
		slog.Info(err.Error())
		return false, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		slog.Info(err.Error())
		return false, err
	}
	return affected == 1, nil
}

func (r *postRepository) MarkPublished(ctx context.Context, id int64, platformPostIDs map[string]string) error {
	payload, err := json.Marshal(platformPostIDs)
	if err != nil {
		return err
	}

	query := `
		UPDATE posts
		SET status = $2, platform_post_ids = $3, error_message = '', updated_at = CURRENT_TIMESTAMP
		WHERE id = $1
	`
	_, err = r.db.ExecContext(ctx, query, id, models.PostStatusPublished, payload)
	if err != nil {
		slog.Info(err.Error())
	}
	return err
}

func (r *postRepository) MarkFailed(ctx context.Context, id int64, errorMessage string) error {
	query := `
		UPDATE posts
		SET status = $2, error_message = $3, updated_at = CURRENT_TIMESTAMP
		WHERE id = $1
	`
	_, err := r.db.ExecContext(ctx, query, id, models.PostStatusFailed, errorMessage)
	if err != nil {
		slog.Info(err.Error())
	}
	return err
}

func (r *postRepository) Remove(ctx context.Context, id int64) error {
	query := `DELETE FROM posts WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		slog.Info(err.Error())
	}
	return err
}

func scanPost(scan func(dest ...interface{}) error) (*models.Post, error) {
	var post models.Post
	var platformPostIDs []byte

	err := scan(&post.ID, &post.OrgID, &post.UserID, &post.Content,
		pq.Array(&post.TargetPlatforms), pq.Array(&post.MediaURLs),
		&post.ScheduledTime, &post.Status, &platformPostIDs, &post.ErrorMessage,
		&post.CreatedAt, &post.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if len(platformPostIDs) > 0 {
		if err := json.Unmarshal(platformPostIDs, &post.PlatformPostIDs); err != nil {
			return nil, err
		}
	}
	return &post, nil
}
