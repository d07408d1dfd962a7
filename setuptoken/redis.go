package setuptoken

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "setup_token:"

// expiredGrace keeps a key in Redis a while past its logical expiry so a late
// lookup reports ErrExpired rather than ErrInvalidToken.
const expiredGrace = 10 * time.Minute

type redisEntry struct {
	UserID    uint      `json:"userId"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// RedisStore shares tokens between instances. Consume uses GETDEL so a token
// is single-use across processes.
type RedisStore struct {
	client *redis.Client
	nowF   func() time.Time
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client, nowF: time.Now}
}

func (s *RedisStore) Issue(ctx context.Context, userID uint) (string, error) {
	token, err := newToken()
	if err != nil {
		return "", err
	}
	payload, err := json.Marshal(redisEntry{UserID: userID, ExpiresAt: s.nowF().Add(TTL)})
	if err != nil {
		return "", fmt.Errorf("encode setup token: %w", err)
	}
	if err := s.client.Set(ctx, keyPrefix+token, payload, TTL+expiredGrace).Err(); err != nil {
		return "", fmt.Errorf("store setup token: %w", err)
	}
	return token, nil
}

func (s *RedisStore) Consume(ctx context.Context, token string) (uint, error) {
	raw, err := s.client.GetDel(ctx, keyPrefix+token).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, ErrInvalidToken
		}
		return 0, fmt.Errorf("consume setup token: %w", err)
	}
	return s.check(raw)
}

func (s *RedisStore) Peek(ctx context.Context, token string) (uint, error) {
	raw, err := s.client.Get(ctx, keyPrefix+token).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, ErrInvalidToken
		}
		return 0, fmt.Errorf("peek setup token: %w", err)
	}
	userID, err := s.check(raw)
	if errors.Is(err, ErrExpired) {
		if delErr := s.client.Del(ctx, keyPrefix+token).Err(); delErr != nil {
			return 0, fmt.Errorf("drop expired setup token: %w", delErr)
		}
	}
	return userID, err
}

func (s *RedisStore) check(raw []byte) (uint, error) {
	var e redisEntry
	if err := json.Unmarshal(raw, &e); err != nil {
		return 0, ErrInvalidToken
	}
	if s.nowF().After(e.ExpiresAt) {
		return 0, ErrExpired
	}
	return e.UserID, nil
}
