package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/adnanh27/postbridge/internal/errs"
	"github.com/adnanh27/postbridge/internal/models"
	"github.com/adnanh27/postbridge/internal/transfer"
	"github.com/hibiken/asynq"
)

func (j *Queue) HandlePublishPostTask(ctx context.Context, task *asynq.Task) error {
	var payload PublishPostPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		// A payload that never unmarshals will never unmarshal;
		// retrying is pointless.
		return fmt.Errorf("malformed payload: %v: %w", err, asynq.SkipRetry)
	}

	return j.PublishPost(ctx, payload.PostID, payload.OrgID)
}

// PublishPost runs one publish attempt for the post. Delivery is
// at-least-once, so everything up to the status transition must be safe
// to re-run; the scheduled->publishing compare-and-set is what makes a
// duplicate delivery a no-op.
func (j *Queue) PublishPost(ctx context.Context, postID, orgID int64) error {
	post, err := j.pr.GetByID(ctx, postID)
	if err != nil {
		return errs.NewJobExecution("loading post", err)
	}
	if post == nil {
		slog.Info("publish job for missing post, skipping", "post_id", postID)
		return nil
	}

	if post.Status != models.PostStatusScheduled {
		slog.Info("post is no longer scheduled, skipping", "post_id", postID, "status", post.Status)
		return nil
	}

	allowed, err := j.limiter.Allow(ctx, post.OrgID)
	if err != nil {
		return errs.NewJobExecution("checking rate limit", err)
	}
	if !allowed {
		// Let the queue's backoff move the attempt out of the
		// current window.
		return errs.NewJobExecution("org publish rate limit exceeded", nil)
	}

	accounts, err := j.sa.ListActiveByOrgAndPlatforms(ctx, post.OrgID, post.TargetPlatforms)
	if err != nil {
		return errs.NewJobExecution("loading social accounts", err)
	}

	ok, err := j.pr.TransitionStatus(ctx, post.ID, models.PostStatusScheduled, models.PostStatusPublishing)
	if err != nil {
		return errs.NewJobExecution("transitioning post status", err)
	}
	if !ok {
		slog.Info("post was cancelled or already picked up, skipping", "post_id", postID)
		return nil
	}

	if len(accounts) == 0 {
		if err := j.pr.MarkFailed(ctx, post.ID, "no connected accounts for the target platforms"); err != nil {
			return errs.NewJobExecution("persisting post failure", err)
		}
		return nil
	}

	result := j.publish(ctx, post, accounts)

	if result.Success {
		err = j.pr.MarkPublished(ctx, post.ID, result.PlatformPostIDs)
	} else {
		err = j.pr.MarkFailed(ctx, post.ID, result.ErrorMessage)
	}
	if err != nil {
		return errs.NewJobExecution("persisting publish result", err)
	}

	// Platform-level failures inside a completed orchestration are
	// terminal for this post; they are never re-driven by the queue.
	return nil
}

// publish fans the post out to every account concurrently and joins the
// outcomes with all-settled semantics: one platform failing or stalling
// never cancels the others.
func (j *Queue) publish(ctx context.Context, post *models.Post, accounts []*models.SocialAccount) transfer.PublishResult {
	outcomes := make([]transfer.PublishOutcome, len(accounts))

	var wg sync.WaitGroup
	semaphore := make(chan struct{}, 10)

	for i, acc := range accounts {
		wg.Add(1)
		semaphore <- struct{}{}

		go func(i int, acc *models.SocialAccount) {
			defer wg.Done()
			defer func() { <-semaphore }()
			outcomes[i] = j.publishToAccount(ctx, post, acc)
		}(i, acc)
	}
	wg.Wait()

	return j.aggregate(outcomes)
}

func (j *Queue) publishToAccount(ctx context.Context, post *models.Post, acc *models.SocialAccount) transfer.PublishOutcome {
	publisher, ok := j.registry.Publisher(acc.Platform)
	if !ok {
		return transfer.PublishOutcome{
			Platform: acc.Platform,
			Category: errs.CategoryUnknown,
			Error:    fmt.Sprintf("no publisher registered for %s", acc.Platform),
		}
	}

	tokens, err := j.vault.DecryptTokens(acc.AccessToken)
	if err != nil {
		// Unreadable credentials are as good as expired ones; the
		// account needs a reconnect either way.
		slog.Info("stored credentials failed to decrypt", "account_id", acc.ID, "error", err)
		if setErr := j.sa.SetStatus(ctx, acc.ID, models.AccountStatusReauthNeeded); setErr != nil {
			slog.Info(setErr.Error())
		}
		return transfer.PublishOutcome{
			Platform: acc.Platform,
			Category: errs.CategoryAuthExpired,
			Error:    "stored credentials are unreadable, reconnect the account",
		}
	}

	outcome := publisher.Publish(ctx, post, acc, tokens.AccessToken)

	if !outcome.Success && outcome.Category == errs.CategoryAuthExpired {
		if err := j.sa.SetStatus(ctx, acc.ID, models.AccountStatusReauthNeeded); err != nil {
			slog.Info(err.Error())
		}
	}

	return outcome
}

// aggregate applies the partial-success rule: the post counts as
// published iff at least one platform took it, and the result map holds
// only the platforms that succeeded.
func (j *Queue) aggregate(outcomes []transfer.PublishOutcome) transfer.PublishResult {
	platformPostIDs := make(map[string]string)
	var failures []string

	for _, outcome := range outcomes {
		if outcome.Success {
			platformPostIDs[outcome.Platform] = outcome.PostID
			continue
		}
		failures = append(failures, fmt.Sprintf("%s: %s", outcome.Platform, outcome.Error))
	}

	if len(platformPostIDs) > 0 {
		return transfer.PublishResult{
			Success:         true,
			PlatformPostIDs: platformPostIDs,
		}
	}

	return transfer.PublishResult{
		ErrorMessage: strings.Join(failures, "; "),
	}
}
