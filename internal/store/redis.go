package store

import (
	"context"
	"errors"

	"docchat/internal/models"
	"docchat/internal/redis"
)

// redisStore implements Store on a shared redis instance, letting several
// machines behave like tabs of the same origin.
type redisStore struct {
	client *redis.Client
}

// LoadSession implements Store.
func (s *redisStore) LoadSession(ctx context.Context) (*models.Session, error) {
	raw, err := s.client.Get(ctx, sessionKey)
	if errors.Is(err, redis.ErrCacheMiss) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return decodeSession(raw)
}

// SaveSession implements Store.
func (s *redisStore) SaveSession(ctx context.Context, sess *models.Session) error {
	if sess == nil {
		return s.client.Del(ctx, sessionKey)
	}
	raw, err := encodeSession(sess)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, sessionKey, raw)
}

// LoadMessages implements Store.
func (s *redisStore) LoadMessages(ctx context.Context) ([]models.Message, error) {
	raw, err := s.client.Get(ctx, messagesKey)
	if errors.Is(err, redis.ErrCacheMiss) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return decodeMessages(raw)
}

// SaveMessages implements Store.
func (s *redisStore) SaveMessages(ctx context.Context, msgs []models.Message) error {
	if len(msgs) == 0 {
		return s.client.Del(ctx, messagesKey)
	}
	raw, err := encodeMessages(msgs)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, messagesKey, raw)
}

// Close implements Store. The redis client is owned by the caller.
func (s *redisStore) Close() error { return nil }
