package transfer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Store is the expiring keeper of pending payloads, one-time codes and
// resend cooldowns. A miss always means "expired or never existed".
type Store interface {
	SavePending(ctx context.Context, token string, p *Pending, ttl time.Duration) error
	GetPending(ctx context.Context, token string) (*Pending, error)
	// ConsumePending reads and evicts the payload in one step. Exactly one
	// of any set of concurrent callers gets the payload; the rest see
	// ErrPendingExpired.
	ConsumePending(ctx context.Context, token string) (*Pending, error)
	DeletePending(ctx context.Context, token string) error

	SaveCode(ctx context.Context, userID uuid.UUID, kind Kind, hash string, ttl time.Duration) error
	GetCode(ctx context.Context, userID uuid.UUID, kind Kind) (hash string, attempts int, err error)
	IncrementAttempts(ctx context.Context, userID uuid.UUID, kind Kind) (int, error)
	DeleteCode(ctx context.Context, userID uuid.UUID, kind Kind) error

	MarkSent(ctx context.Context, userID uuid.UUID, kind Kind, cooldown time.Duration) error
	RecentlySent(ctx context.Context, userID uuid.UUID, kind Kind) (bool, error)
}

type redisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) Store {
	return &redisStore{client: client}
}

func pendingKey(token string) string {
	return "transfer:pending:" + token
}

func codeKey(userID uuid.UUID, kind Kind) string {
	return fmt.Sprintf("transfer:otp:%s:%s", userID, kind)
}

func attemptsKey(userID uuid.UUID, kind Kind) string {
	return fmt.Sprintf("transfer:otp:attempts:%s:%s", userID, kind)
}

func cooldownKey(userID uuid.UUID, kind Kind) string {
	return fmt.Sprintf("transfer:otp:cooldown:%s:%s", userID, kind)
}

func (s *redisStore) SavePending(ctx context.Context, token string, p *Pending, ttl time.Duration) error {
	data, err := json.Marshal(p)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, pendingKey(token), data, ttl).Err()
}

func (s *redisStore) GetPending(ctx context.Context, token string) (*Pending, error) {
	data, err := s.client.Get(ctx, pendingKey(token)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrPendingExpired
	}
	if err != nil {
		return nil, fmt.Errorf("pending store get: %w", err)
	}
	var p Pending
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("pending store decode: %w", err)
	}
	return &p, nil
}

// ConsumePending uses GETDEL so the read and the eviction are one redis
// command, no interleaving between concurrent verifies can hand the same
// payload out twice.
func (s *redisStore) ConsumePending(ctx context.Context, token string) (*Pending, error) {
	data, err := s.client.GetDel(ctx, pendingKey(token)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrPendingExpired
	}
	if err != nil {
		return nil, fmt.Errorf("pending store consume: %w", err)
	}
	var p Pending
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("pending store decode: %w", err)
	}
	return &p, nil
}

func (s *redisStore) DeletePending(ctx context.Context, token string) error {
	return s.client.Del(ctx, pendingKey(token)).Err()
}

// SaveCode stores a fresh code hash and resets the attempt counter. Both
// keys share the code's TTL so they expire together.
func (s *redisStore) SaveCode(ctx context.Context, userID uuid.UUID, kind Kind, hash string, ttl time.Duration) error {
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, codeKey(userID, kind), hash, ttl)
	pipe.Set(ctx, attemptsKey(userID, kind), 0, ttl)
	_, err := pipe.Exec(ctx)
	return err
}

func (s *redisStore) GetCode(ctx context.Context, userID uuid.UUID, kind Kind) (string, int, error) {
	hash, err := s.client.Get(ctx, codeKey(userID, kind)).Result()
	if errors.Is(err, redis.Nil) {
		return "", 0, ErrPendingExpired
	}
	if err != nil {
		return "", 0, fmt.Errorf("otp store get: %w", err)
	}
	attempts, err := s.client.Get(ctx, attemptsKey(userID, kind)).Int()
	if err != nil && !errors.Is(err, redis.Nil) {
		return "", 0, fmt.Errorf("otp store attempts: %w", err)
	}
	return hash, attempts, nil
}

func (s *redisStore) IncrementAttempts(ctx context.Context, userID uuid.UUID, kind Kind) (int, error) {
	n, err := s.client.Incr(ctx, attemptsKey(userID, kind)).Result()
	if err != nil {
		return 0, fmt.Errorf("otp store increment attempts: %w", err)
	}
	return int(n), nil
}

func (s *redisStore) DeleteCode(ctx context.Context, userID uuid.UUID, kind Kind) error {
	return s.client.Del(ctx, codeKey(userID, kind), attemptsKey(userID, kind)).Err()
}

func (s *redisStore) MarkSent(ctx context.Context, userID uuid.UUID, kind Kind, cooldown time.Duration) error {
	return s.client.Set(ctx, cooldownKey(userID, kind), 1, cooldown).Err()
}

func (s *redisStore) RecentlySent(ctx context.Context, userID uuid.UUID, kind Kind) (bool, error) {
	err := s.client.Get(ctx, cooldownKey(userID, kind)).Err()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("otp store cooldown: %w", err)
	}
	return true, nil
}
