package queue

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adnanh27/postbridge/internal/errs"
	"github.com/adnanh27/postbridge/internal/models"
	"github.com/adnanh27/postbridge/internal/service"
	"github.com/adnanh27/postbridge/internal/transfer"
	"github.com/adnanh27/postbridge/pkg/crypto"
)

type fakePostRepo struct {
	post *models.Post

	transitioned    bool
	transitionOK    bool
	publishedIDs    map[string]string
	failedMessage   string
	markedPublished bool
	markedFailed    bool
}

func (f *fakePostRepo) Create(context.Context, *sql.Tx, *models.Post) (int64, error) { return 0, nil }
func (f *fakePostRepo) GetByID(context.Context, int64) (*models.Post, error)        { return f.post, nil }
func (f *fakePostRepo) ListByOrgID(context.Context, int64) ([]*models.Post, error)  { return nil, nil }
func (f *fakePostRepo) CheckByOrgID(context.Context, int64, int64) (bool, error)    { return true, nil }
func (f *fakePostRepo) Reschedule(context.Context, int64, time.Time) error          { return nil }
func (f *fakePostRepo) Unschedule(context.Context, int64) (bool, error)             { return true, nil }
func (f *fakePostRepo) Remove(context.Context, int64) error                         { return nil }

func (f *fakePostRepo) TransitionStatus(_ context.Context, _ int64, from, to string) (bool, error) {
	f.transitioned = true
	return f.transitionOK, nil
}

func (f *fakePostRepo) MarkPublished(_ context.Context, _ int64, ids map[string]string) error {
	f.markedPublished = true
	f.publishedIDs = ids
	return nil
}

func (f *fakePostRepo) MarkFailed(_ context.Context, _ int64, message string) error {
	f.markedFailed = true
	f.failedMessage = message
	return nil
}

type fakeAccountRepo struct {
	accounts []*models.SocialAccount
	statuses map[int64]string
}

func (f *fakeAccountRepo) Upsert(context.Context, *sql.Tx, *models.SocialAccount) (int64, error) {
	return 0, nil
}
func (f *fakeAccountRepo) GetByID(context.Context, int64) (*models.SocialAccount, error) {
	return nil, nil
}
func (f *fakeAccountRepo) ListActiveByOrgAndPlatforms(context.Context, int64, []string) ([]*models.SocialAccount, error) {
	return f.accounts, nil
}
func (f *fakeAccountRepo) ListInfoByOrgID(context.Context, int64) ([]*models.SocialAccount, error) {
	return nil, nil
}
func (f *fakeAccountRepo) ListExpiringBetween(context.Context, time.Time, time.Time) ([]*models.SocialAccount, error) {
	return nil, nil
}
func (f *fakeAccountRepo) CheckByOrgID(context.Context, int64, int64) (bool, error) {
	return true, nil
}
func (f *fakeAccountRepo) UpdateTokens(context.Context, int64, string, string, time.Time) error {
	return nil
}

func (f *fakeAccountRepo) SetStatus(_ context.Context, id int64, status string) error {
	if f.statuses == nil {
		f.statuses = make(map[int64]string)
	}
	f.statuses[id] = status
	return nil
}

type fakeLimiter struct {
	allowed bool
}

func (f *fakeLimiter) Allow(context.Context, int64) (bool, error) { return f.allowed, nil }

type fakePublisher struct {
	platform string
	outcome  transfer.PublishOutcome
}

func (f *fakePublisher) Platform() string { return f.platform }
func (f *fakePublisher) Publish(context.Context, *models.Post, *models.SocialAccount, string) transfer.PublishOutcome {
	return f.outcome
}

func newTestVault(t *testing.T) *crypto.Vault {
	t.Helper()
	v, err := crypto.NewVault("0123456789abcdef0123456789abcdef")
	require.NoError(t, err)
	return v
}

func encryptedBlob(t *testing.T, v *crypto.Vault) string {
	t.Helper()
	blob, err := v.EncryptTokens(&crypto.TokenData{
		AccessToken: "access-token",
		IssuedAt:    time.Now(),
		ExpiresAt:   time.Now().Add(time.Hour),
	})
	require.NoError(t, err)
	return blob
}

func scheduledPost(platforms ...string) *models.Post {
	return &models.Post{
		ID:              11,
		OrgID:           3,
		Content:         "hello world",
		TargetPlatforms: platforms,
		Status:          models.PostStatusScheduled,
	}
}

func account(id int64, platform, blob string) *models.SocialAccount {
	return &models.SocialAccount{
		ID:            id,
		OrgID:         3,
		Platform:      platform,
		AccessToken:   blob,
		AccountStatus: models.AccountStatusActive,
	}
}

func success(platform, postID string) transfer.PublishOutcome {
	return transfer.PublishOutcome{Platform: platform, Success: true, PostID: postID}
}

func publishFailure(platform, category, message string) transfer.PublishOutcome {
	return transfer.PublishOutcome{Platform: platform, Category: category, Error: message}
}

func newTestQueue(t *testing.T, pr *fakePostRepo, sa *fakeAccountRepo, allowed bool, publishers ...service.PlatformPublisher) *Queue {
	t.Helper()
	registry := service.NewRegistry()
	for _, p := range publishers {
		registry.RegisterPublisher(p)
	}
	return NewQueue(pr, sa, registry, newTestVault(t), &fakeLimiter{allowed: allowed})
}

func TestPublishPostPartialSuccessCountsAsPublished(t *testing.T) {
	vault := newTestVault(t)
	blob := encryptedBlob(t, vault)

	pr := &fakePostRepo{post: scheduledPost("twitter", "linkedin", "facebook"), transitionOK: true}
	sa := &fakeAccountRepo{accounts: []*models.SocialAccount{
		account(1, "twitter", blob),
		account(2, "linkedin", blob),
		account(3, "facebook", blob),
	}}

	q := newTestQueue(t, pr, sa, true,
		&fakePublisher{platform: "twitter", outcome: success("twitter", "tw-900")},
		&fakePublisher{platform: "linkedin", outcome: publishFailure("linkedin", errs.CategoryRateLimited, "throttled")},
		&fakePublisher{platform: "facebook", outcome: publishFailure("facebook", errs.CategoryUnknown, "boom")},
	)

	require.NoError(t, q.PublishPost(context.Background(), 11, 3))

	assert.True(t, pr.markedPublished)
	assert.False(t, pr.markedFailed)
	assert.Equal(t, map[string]string{"twitter": "tw-900"}, pr.publishedIDs)
}

func TestPublishPostAllPlatformsFailed(t *testing.T) {
	vault := newTestVault(t)
	blob := encryptedBlob(t, vault)

	pr := &fakePostRepo{post: scheduledPost("twitter", "linkedin"), transitionOK: true}
	sa := &fakeAccountRepo{accounts: []*models.SocialAccount{
		account(1, "twitter", blob),
		account(2, "linkedin", blob),
	}}

	q := newTestQueue(t, pr, sa, true,
		&fakePublisher{platform: "twitter", outcome: publishFailure("twitter", errs.CategoryUnknown, "boom")},
		&fakePublisher{platform: "linkedin", outcome: publishFailure("linkedin", errs.CategoryDuplicateContent, "already posted")},
	)

	// A completed orchestration never retries, even when every
	// platform failed.
	require.NoError(t, q.PublishPost(context.Background(), 11, 3))

	assert.True(t, pr.markedFailed)
	assert.Contains(t, pr.failedMessage, "twitter: boom")
	assert.Contains(t, pr.failedMessage, "linkedin: already posted")
}

func TestPublishPostSkipsNonScheduledPost(t *testing.T) {
	post := scheduledPost("twitter")
	post.Status = models.PostStatusPublished
	pr := &fakePostRepo{post: post}

	q := newTestQueue(t, pr, &fakeAccountRepo{}, true)

	require.NoError(t, q.PublishPost(context.Background(), 11, 3))
	assert.False(t, pr.transitioned)
	assert.False(t, pr.markedFailed)
}

func TestPublishPostSkipsMissingPost(t *testing.T) {
	pr := &fakePostRepo{}
	q := newTestQueue(t, pr, &fakeAccountRepo{}, true)

	require.NoError(t, q.PublishPost(context.Background(), 11, 3))
	assert.False(t, pr.transitioned)
}

func TestPublishPostLostTransitionRaceIsNoop(t *testing.T) {
	pr := &fakePostRepo{post: scheduledPost("twitter"), transitionOK: false}
	q := newTestQueue(t, pr, &fakeAccountRepo{}, true)

	require.NoError(t, q.PublishPost(context.Background(), 11, 3))
	assert.True(t, pr.transitioned)
	assert.False(t, pr.markedPublished)
	assert.False(t, pr.markedFailed)
}

func TestPublishPostOverRateLimitRetries(t *testing.T) {
	pr := &fakePostRepo{post: scheduledPost("twitter"), transitionOK: true}
	q := newTestQueue(t, pr, &fakeAccountRepo{}, false)

	err := q.PublishPost(context.Background(), 11, 3)
	require.Error(t, err)

	var jobErr *errs.JobExecutionError
	assert.ErrorAs(t, err, &jobErr)
	assert.False(t, pr.transitioned, "rate limited attempt must leave the post schedulable")
}

func TestPublishPostNoConnectedAccounts(t *testing.T) {
	pr := &fakePostRepo{post: scheduledPost("twitter"), transitionOK: true}
	q := newTestQueue(t, pr, &fakeAccountRepo{}, true)

	require.NoError(t, q.PublishPost(context.Background(), 11, 3))
	assert.True(t, pr.markedFailed)
	assert.Contains(t, pr.failedMessage, "no connected accounts")
}

func TestPublishPostUnreadableCredentialsFlagReauth(t *testing.T) {
	pr := &fakePostRepo{post: scheduledPost("twitter"), transitionOK: true}
	sa := &fakeAccountRepo{accounts: []*models.SocialAccount{
		account(1, "twitter", "aa:bb:cc"),
	}}

	q := newTestQueue(t, pr, sa, true,
		&fakePublisher{platform: "twitter", outcome: success("twitter", "never-reached")},
	)

	require.NoError(t, q.PublishPost(context.Background(), 11, 3))

	assert.True(t, pr.markedFailed)
	assert.Equal(t, models.AccountStatusReauthNeeded, sa.statuses[1])
}

func TestPublishPostAuthExpiredOutcomeFlagsReauth(t *testing.T) {
	vault := newTestVault(t)
	blob := encryptedBlob(t, vault)

	pr := &fakePostRepo{post: scheduledPost("twitter"), transitionOK: true}
	sa := &fakeAccountRepo{accounts: []*models.SocialAccount{account(1, "twitter", blob)}}

	q := newTestQueue(t, pr, sa, true,
		&fakePublisher{platform: "twitter", outcome: publishFailure("twitter", errs.CategoryAuthExpired, "token expired")},
	)

	require.NoError(t, q.PublishPost(context.Background(), 11, 3))
	assert.Equal(t, models.AccountStatusReauthNeeded, sa.statuses[1])
}
