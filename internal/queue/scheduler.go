package queue

import (
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/hibiken/asynq"
)

// taskEnqueuer and taskRemover are the slices of *asynq.Client and
// *asynq.Inspector the scheduler uses.
type taskEnqueuer interface {
	Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

type taskRemover interface {
	DeleteTask(queue, id string) error
}

// Scheduler owns the delayed publish jobs. Jobs are keyed by post id,
// so scheduling a post that already has a live job replaces it.
type Scheduler struct {
	client    taskEnqueuer
	inspector taskRemover
}

func NewScheduler(client *asynq.Client, inspector *asynq.Inspector) *Scheduler {
	return &Scheduler{client: client, inspector: inspector}
}

// SchedulePost enqueues a delayed publish job for the post, cancelling
// any job a prior scheduling call left behind.
func (s *Scheduler) SchedulePost(postID, orgID int64, when time.Time) error {
	if err := s.removeTask(postID); err != nil {
		return err
	}

	payload, err := json.Marshal(PublishPostPayload{PostID: postID, OrgID: orgID})
	if err != nil {
		return err
	}

	task := asynq.NewTask(TaskTypePublishPost, payload)
	_, err = s.client.Enqueue(task,
		asynq.Queue(QueueName),
		asynq.TaskID(TaskID(postID)),
		asynq.ProcessAt(when),
		asynq.MaxRetry(MaxRetry),
	)
	if err != nil {
		slog.Info(err.Error())
		return err
	}

	slog.Info("publish job scheduled", "post_id", postID, "at", when)
	return nil
}

// CancelScheduledPost removes a pending job. A job whose execution has
// already begun is not touched; cancellation has no effect then.
func (s *Scheduler) CancelScheduledPost(postID int64) error {
	return s.removeTask(postID)
}

func (s *Scheduler) removeTask(postID int64) error {
	err := s.inspector.DeleteTask(QueueName, TaskID(postID))
	if err == nil {
		return nil
	}
	if errors.Is(err, asynq.ErrTaskNotFound) || errors.Is(err, asynq.ErrQueueNotFound) {
		return nil
	}
	// A task already being processed cannot be deleted; cancellation has
	// no effect then and the post status reflects the outcome. The
	// inspector exports no sentinel for this case, only the message.
	if strings.Contains(err.Error(), "active state") {
		slog.Info("publish job already executing, delete skipped", "post_id", postID)
		return nil
	}
	slog.Info(err.Error())
	return err
}
