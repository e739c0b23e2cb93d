package oauthstate

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/adnanh27/postbridge/internal/models"
	"github.com/redis/go-redis/v9"
)

// Store persists state records for their lifetime. Records expire
// unconsumed after the TTL; Take is the single-use consume and must be
// atomic: of two concurrent callers only one may receive the record.
type Store interface {
	Save(ctx context.Context, rec *models.OAuthStateRecord, ttl time.Duration) error
	Get(ctx context.Context, state string) (*models.OAuthStateRecord, error)
	Take(ctx context.Context, state string) (*models.OAuthStateRecord, error)
}

const stateKeyPrefix = "oauth_state:"

type redisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) Store {
	return &redisStore{client: client}
}

func (s *redisStore) Save(ctx context.Context, rec *models.OAuthStateRecord, ttl time.Duration) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, stateKeyPrefix+rec.State, payload, ttl).Err()
}

func (s *redisStore) Get(ctx context.Context, state string) (*models.OAuthStateRecord, error) {
	payload, err := s.client.Get(ctx, stateKeyPrefix+state).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}

	var rec models.OAuthStateRecord
	if err := json.Unmarshal(payload, &rec); err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	return &rec, nil
}

// Take fetches and deletes in one GETDEL round trip, so a state
// presented on two concurrent callbacks is handed out at most once.
func (s *redisStore) Take(ctx context.Context, state string) (*models.OAuthStateRecord, error) {
	payload, err := s.client.GetDel(ctx, stateKeyPrefix+state).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}

	var rec models.OAuthStateRecord
	if err := json.Unmarshal(payload, &rec); err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	return &rec, nil
}
