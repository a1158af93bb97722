package store

import (
	"context"
	"database/sql"
	"sync"

	"docchat/internal/models"
	"docchat/internal/redis"
)

// StoreType represents the type of persisted store.
type StoreType string

const (
	StoreTypeMemory StoreType = "memory"
	StoreTypeSQL    StoreType = "sql"
	StoreTypeRedis  StoreType = "redis"
)

// StoreOption is a functional option for configuring a store.
type StoreOption func(*storeConfig)

type storeConfig struct {
	db          *sql.DB
	dbDriver    string
	redisClient *redis.Client
}

// WithDB sets the database handle and driver name for the SQL store.
func WithDB(db *sql.DB, driver string) StoreOption {
	return func(c *storeConfig) {
		c.db = db
		c.dbDriver = driver
	}
}

// WithRedisClient sets the redis client for the redis store.
func WithRedisClient(client *redis.Client) StoreOption {
	return func(c *storeConfig) {
		c.redisClient = client
	}
}

// NewStore creates a Store of the given type.
// The SQL store requires WithDB; the redis store requires WithRedisClient.
func NewStore(storeType StoreType, opts ...StoreOption) (Store, error) {
	config := &storeConfig{}
	for _, opt := range opts {
		opt(config)
	}

	switch storeType {
	case StoreTypeMemory:
		return &memoryStore{entries: make(map[string]string)}, nil

	case StoreTypeSQL:
		if config.db == nil || config.dbDriver == "" {
			return nil, ErrInvalidConfig
		}
		return &sqlStore{db: config.db, driver: config.dbDriver}, nil

	case StoreTypeRedis:
		if config.redisClient == nil {
			return nil, ErrInvalidConfig
		}
		return &redisStore{client: config.redisClient}, nil

	default:
		return nil, ErrInvalidStoreType
	}
}

// memoryStore keeps state in a map. Used by tests and as a throwaway mode.
type memoryStore struct {
	mu      sync.RWMutex
	entries map[string]string
}

func (s *memoryStore) get(key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.entries[key]
	return v, ok
}

func (s *memoryStore) set(key, value string) {
	s.mu.Lock()
	s.entries[key] = value
	s.mu.Unlock()
}

func (s *memoryStore) del(key string) {
	s.mu.Lock()
	delete(s.entries, key)
	s.mu.Unlock()
}

func (s *memoryStore) Close() error {
	s.mu.Lock()
	s.entries = make(map[string]string)
	s.mu.Unlock()
	return nil
}

// LoadSession implements Store.
func (s *memoryStore) LoadSession(ctx context.Context) (*models.Session, error) {
	raw, ok := s.get(sessionKey)
	if !ok {
		return nil, nil
	}
	return decodeSession(raw)
}

// SaveSession implements Store.
func (s *memoryStore) SaveSession(ctx context.Context, sess *models.Session) error {
	if sess == nil {
		s.del(sessionKey)
		return nil
	}
	raw, err := encodeSession(sess)
	if err != nil {
		return err
	}
	s.set(sessionKey, raw)
	return nil
}

// LoadMessages implements Store.
func (s *memoryStore) LoadMessages(ctx context.Context) ([]models.Message, error) {
	raw, ok := s.get(messagesKey)
	if !ok {
		return nil, nil
	}
	return decodeMessages(raw)
}

// SaveMessages implements Store.
func (s *memoryStore) SaveMessages(ctx context.Context, msgs []models.Message) error {
	if len(msgs) == 0 {
		s.del(messagesKey)
		return nil
	}
	raw, err := encodeMessages(msgs)
	if err != nil {
		return err
	}
	s.set(messagesKey, raw)
	return nil
}
