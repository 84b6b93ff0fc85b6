package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const idemKeyPrefix = "idem:"

// ErrKeyInFlight is returned when a request with the same key is still running.
var ErrKeyInFlight = errors.New("request with this idempotency key is in progress")

// StoredResponse is the replayable result of a completed request
type StoredResponse struct {
	Status int             `json:"status"`
	Body   json.RawMessage `json:"body"`
}

type idemRecord struct {
	Done     bool            `json:"done"`
	Response *StoredResponse `json:"response,omitempty"`
}

// IdempotencyStore remembers responses by client-supplied key
type IdempotencyStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewIdempotencyStore(client *redis.Client, ttl time.Duration) *IdempotencyStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &IdempotencyStore{client: client, ttl: ttl}
}

// Begin claims key. It returns the stored response when the key already
// completed, ErrKeyInFlight when another request holds it, and (nil, nil)
// when the caller now owns the key.
func (s *IdempotencyStore) Begin(ctx context.Context, key string) (*StoredResponse, error) {
	if s.client == nil {
		return nil, nil
	}

	pending, _ := json.Marshal(idemRecord{})
	ok, err := s.client.SetNX(ctx, idemKeyPrefix+key, pending, s.ttl).Result()
	if err != nil {
		return nil, err
	}
	if ok {
		return nil, nil
	}

	data, err := s.client.Get(ctx, idemKeyPrefix+key).Bytes()
	if err == redis.Nil {
		return s.Begin(ctx, key)
	}
	if err != nil {
		return nil, err
	}

	var rec idemRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, err
	}
	if !rec.Done {
		return nil, ErrKeyInFlight
	}
	return rec.Response, nil
}

// Complete stores the response for key
func (s *IdempotencyStore) Complete(ctx context.Context, key string, resp StoredResponse) error {
	if s.client == nil {
		return nil
	}
	data, err := json.Marshal(idemRecord{Done: true, Response: &resp})
	if err != nil {
		return err
	}
	return s.client.Set(ctx, idemKeyPrefix+key, data, s.ttl).Err()
}

// Release forgets key so the client may retry, used when the request failed
func (s *IdempotencyStore) Release(ctx context.Context, key string) error {
	if s.client == nil {
		return nil
	}
	return s.client.Del(ctx, idemKeyPrefix+key).Err()
}
