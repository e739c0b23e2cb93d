package queue

import (
	"fmt"

	"github.com/adnanh27/postbridge/internal/ratelimit"
	"github.com/adnanh27/postbridge/internal/repository"
	"github.com/adnanh27/postbridge/internal/service"
	"github.com/adnanh27/postbridge/pkg/crypto"
)

const (
	TaskTypePublishPost = "publish:post"

	// QueueName is the asynq queue publish jobs run on.
	QueueName = "default"

	// MaxRetry bounds how often a failed job execution is re-attempted.
	// Only infrastructure failures retry; a completed orchestration is
	// terminal regardless of how many platforms succeeded.
	MaxRetry = 3
)

// TaskID keys a job by post id, which is what gives the queue its
// at-most-one-live-job-per-post property.
func TaskID(postID int64) string {
	return fmt.Sprintf("publish:post:%d", postID)
}

type PublishPostPayload struct {
	PostID int64 `json:"post_id"`
	OrgID  int64 `json:"org_id"`
}

// Queue executes publish jobs: it guards the post status, fans the post
// out to every linked platform account and persists the aggregate.
type Queue struct {
	pr       repository.PostRepository
	sa       repository.SocialAccountRepository
	registry *service.Registry
	vault    *crypto.Vault
	limiter  ratelimit.Limiter
}

func NewQueue(
	pr repository.PostRepository,
	sa repository.SocialAccountRepository,
	registry *service.Registry,
	vault *crypto.Vault,
	limiter ratelimit.Limiter) *Queue {
	return &Queue{
		pr:       pr,
		sa:       sa,
		registry: registry,
		vault:    vault,
		limiter:  limiter,
	}
}
