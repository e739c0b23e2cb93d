package service

import (
	"context"
	"fmt"
	"time"

	"github.com/adnanh27/postbridge/internal/errs"
	"github.com/adnanh27/postbridge/internal/models"
	"github.com/adnanh27/postbridge/internal/repository"
	"github.com/adnanh27/postbridge/internal/transfer"
)

const scheduledTimeLayout = "2006-01-02T15:04"

// publishScheduler is the slice of the job queue scheduler this service
// needs; the concrete type lives in internal/queue.
type publishScheduler interface {
	SchedulePost(postID, orgID int64, when time.Time) error
	CancelScheduledPost(postID int64) error
}

type PostService interface {
	Create(ctx context.Context, userID, orgID int64, creation *transfer.PostCreation) (*models.Post, error)
	Get(ctx context.Context, orgID, postID int64) (*models.Post, error)
	List(ctx context.Context, orgID int64) ([]*models.Post, error)
	Reschedule(ctx context.Context, orgID, postID int64, scheduledTime string) error
	Cancel(ctx context.Context, orgID, postID int64) error
	Remove(ctx context.Context, orgID, postID int64) error
}

type postService struct {
	pr       repository.PostRepository
	registry *Registry
	jobs     publishScheduler
}

func NewPostService(pr repository.PostRepository, registry *Registry, jobs publishScheduler) PostService {
	return &postService{pr: pr, registry: registry, jobs: jobs}
}

// Create validates the draft, persists it as scheduled and enqueues its
// publish job. The job is keyed by post id, so a crash between the
// insert and the enqueue leaves a post the sweep can re-arm later.
func (s *postService) Create(ctx context.Context, userID, orgID int64, creation *transfer.PostCreation) (*models.Post, error) {
	scheduledTime, err := s.validate(creation)
	if err != nil {
		return nil, err
	}

	post := &models.Post{
		OrgID:           orgID,
		UserID:          userID,
		Content:         creation.Content,
		TargetPlatforms: creation.TargetPlatforms,
		MediaURLs:       creation.MediaURLs,
		ScheduledTime:   scheduledTime,
		Status:          models.PostStatusScheduled,
	}

	postID, err := s.pr.Create(ctx, nil, post)
	if err != nil {
		return nil, fmt.Errorf("error creating post")
	}
	post.ID = postID

	if err := s.jobs.SchedulePost(postID, orgID, scheduledTime); err != nil {
		return nil, fmt.Errorf("error scheduling post")
	}

	return post, nil
}

func (s *postService) validate(creation *transfer.PostCreation) (time.Time, error) {
	if creation.Content == "" && len(creation.MediaURLs) == 0 {
		return time.Time{}, errs.NewValidation("post needs content or media")
	}
	if len(creation.TargetPlatforms) == 0 {
		return time.Time{}, errs.NewValidation("at least one target platform is required")
	}
	for _, platform := range creation.TargetPlatforms {
		if _, ok := s.registry.Publisher(platform); !ok {
			return time.Time{}, errs.NewValidation(fmt.Sprintf("platform %q cannot be published to", platform))
		}
	}

	scheduledTime, err := time.Parse(scheduledTimeLayout, creation.ScheduledTime)
	if err != nil {
		return time.Time{}, errs.NewValidation("scheduled time must look like 2006-01-02T15:04")
	}
	if !scheduledTime.After(time.Now()) {
		return time.Time{}, errs.NewValidation("scheduled time must be in the future")
	}

	return scheduledTime, nil
}

func (s *postService) Get(ctx context.Context, orgID, postID int64) (*models.Post, error) {
	post, err := s.pr.GetByID(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("error getting post")
	}
	if post == nil || post.OrgID != orgID {
		return nil, errs.NewValidation("post doesn't exist")
	}
	return post, nil
}

func (s *postService) List(ctx context.Context, orgID int64) ([]*models.Post, error) {
	posts, err := s.pr.ListByOrgID(ctx, orgID)
	if err != nil {
		return nil, fmt.Errorf("error listing posts")
	}
	return posts, nil
}

// Reschedule moves the publish time of a post that has not been picked
// up yet and replaces its queued job.
func (s *postService) Reschedule(ctx context.Context, orgID, postID int64, scheduledTime string) error {
	post, err := s.Get(ctx, orgID, postID)
	if err != nil {
		return err
	}
	if post.Status != models.PostStatusScheduled && post.Status != models.PostStatusDraft {
		return errs.NewValidation("only draft or scheduled posts can be rescheduled")
	}

	when, err := time.Parse(scheduledTimeLayout, scheduledTime)
	if err != nil {
		return errs.NewValidation("scheduled time must look like 2006-01-02T15:04")
	}
	if !when.After(time.Now()) {
		return errs.NewValidation("scheduled time must be in the future")
	}

	if err := s.pr.Reschedule(ctx, postID, when); err != nil {
		return fmt.Errorf("error rescheduling post")
	}

	if err := s.jobs.SchedulePost(postID, orgID, when); err != nil {
		return fmt.Errorf("error scheduling post")
	}
	return nil
}

// Cancel removes the queued job and moves the post back to draft. A
// post whose publish has already started stays on its way out.
func (s *postService) Cancel(ctx context.Context, orgID, postID int64) error {
	if _, err := s.Get(ctx, orgID, postID); err != nil {
		return err
	}

	if err := s.jobs.CancelScheduledPost(postID); err != nil {
		return fmt.Errorf("error cancelling scheduled job")
	}

	ok, err := s.pr.Unschedule(ctx, postID)
	if err != nil {
		return fmt.Errorf("error cancelling post")
	}
	if !ok {
		return errs.NewValidation("post is not in a cancellable state")
	}
	return nil
}

func (s *postService) Remove(ctx context.Context, orgID, postID int64) error {
	post, err := s.Get(ctx, orgID, postID)
	if err != nil {
		return err
	}

	if post.Status == models.PostStatusScheduled {
		if err := s.jobs.CancelScheduledPost(postID); err != nil {
			return fmt.Errorf("error cancelling scheduled job")
		}
	}

	if err := s.pr.Remove(ctx, postID); err != nil {
		return fmt.Errorf("error removing post")
	}
	return nil
}
