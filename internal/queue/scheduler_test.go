package queue

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEnqueuer struct {
	tasks []*asynq.Task
	err   error
}

func (f *fakeEnqueuer) Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.tasks = append(f.tasks, task)
	return &asynq.TaskInfo{}, nil
}

type fakeRemover struct {
	deleted []string
	err     error
}

func (f *fakeRemover) DeleteTask(queue, id string) error {
	f.deleted = append(f.deleted, id)
	return f.err
}

func TestSchedulePostReplacesExistingJob(t *testing.T) {
	enqueuer := &fakeEnqueuer{}
	remover := &fakeRemover{}
	s := &Scheduler{client: enqueuer, inspector: remover}

	when := time.Now().Add(time.Hour)
	require.NoError(t, s.SchedulePost(11, 3, when))
	require.NoError(t, s.SchedulePost(11, 3, when.Add(time.Hour)))

	// Each scheduling call first clears whatever job the post had.
	assert.Equal(t, []string{"publish:post:11", "publish:post:11"}, remover.deleted)
	require.Len(t, enqueuer.tasks, 2)

	var payload PublishPostPayload
	require.NoError(t, json.Unmarshal(enqueuer.tasks[0].Payload(), &payload))
	assert.Equal(t, int64(11), payload.PostID)
	assert.Equal(t, int64(3), payload.OrgID)
	assert.Equal(t, TaskTypePublishPost, enqueuer.tasks[0].Type())
}

func TestSchedulePostToleratesMissingOldJob(t *testing.T) {
	enqueuer := &fakeEnqueuer{}
	remover := &fakeRemover{err: asynq.ErrTaskNotFound}
	s := &Scheduler{client: enqueuer, inspector: remover}

	require.NoError(t, s.SchedulePost(11, 3, time.Now().Add(time.Hour)))
	assert.Len(t, enqueuer.tasks, 1)
}

func TestSchedulePostSurfacesRemoveFailure(t *testing.T) {
	enqueuer := &fakeEnqueuer{}
	remover := &fakeRemover{err: errors.New("redis down")}
	s := &Scheduler{client: enqueuer, inspector: remover}

	err := s.SchedulePost(11, 3, time.Now().Add(time.Hour))
	require.Error(t, err)
	assert.Empty(t, enqueuer.tasks, "no job may be enqueued while the old one might survive")
}

func TestCancelScheduledPost(t *testing.T) {
	remover := &fakeRemover{}
	s := &Scheduler{inspector: remover}

	require.NoError(t, s.CancelScheduledPost(11))
	assert.Equal(t, []string{"publish:post:11"}, remover.deleted)
}

func TestCancelScheduledPostMissingJobIsNoop(t *testing.T) {
	remover := &fakeRemover{err: asynq.ErrQueueNotFound}
	s := &Scheduler{inspector: remover}

	assert.NoError(t, s.CancelScheduledPost(11))
}

func TestCancelScheduledPostExecutingJobIsNoop(t *testing.T) {
	// The inspector refuses to delete a task that is already being
	// processed; cancellation must not surface that as a failure.
	remover := &fakeRemover{err: errors.New("could not delete task: cannot delete task in active state. use CancelProcessing instead.")}
	s := &Scheduler{inspector: remover}

	assert.NoError(t, s.CancelScheduledPost(11))
}
