package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"docchat/internal/models"
)

// sqlStore implements Store on the client_state key/value table created by
// storage.Migrate. Works with both the sqlite3 and mysql drivers.
type sqlStore struct {
	db     *sql.DB
	driver string
}

func (s *sqlStore) getValue(ctx context.Context, name string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx,
		"SELECT value FROM client_state WHERE name = ?", name).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("read %s: %w", name, err)
	}
	return value, true, nil
}

func (s *sqlStore) setValue(ctx context.Context, name, value string) error {
	var stmt string
	switch strings.ToLower(s.driver) {
	case "sqlite", "sqlite3":
		stmt = `INSERT INTO client_state (name, value, updated_at) VALUES (?, ?, ?)
			ON CONFLICT(name) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`
	case "mysql":
		stmt = `INSERT INTO client_state (name, value, updated_at) VALUES (?, ?, ?)
			ON DUPLICATE KEY UPDATE value = VALUES(value), updated_at = VALUES(updated_at)`
	default:
		return fmt.Errorf("unsupported driver: %s", s.driver)
	}
	if _, err := s.db.ExecContext(ctx, stmt, name, value, time.Now().UTC()); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}

func (s *sqlStore) delValue(ctx context.Context, name string) error {
	if _, err := s.db.ExecContext(ctx,
		"DELETE FROM client_state WHERE name = ?", name); err != nil {
		return fmt.Errorf("delete %s: %w", name, err)
	}
	return nil
}

// LoadSession implements Store.
func (s *sqlStore) LoadSession(ctx context.Context) (*models.Session, error) {
	raw, ok, err := s.getValue(ctx, sessionKey)
	if err != nil || !ok {
		return nil, err
	}
	return decodeSession(raw)
}

// SaveSession implements Store.
func (s *sqlStore) SaveSession(ctx context.Context, sess *models.Session) error {
	if sess == nil {
		return s.delValue(ctx, sessionKey)
	}
	raw, err := encodeSession(sess)
	if err != nil {
		return err
	}
	return s.setValue(ctx, sessionKey, raw)
}

// LoadMessages implements Store.
func (s *sqlStore) LoadMessages(ctx context.Context) ([]models.Message, error) {
	raw, ok, err := s.getValue(ctx, messagesKey)
	if err != nil || !ok {
		return nil, err
	}
	return decodeMessages(raw)
}

// SaveMessages implements Store.
func (s *sqlStore) SaveMessages(ctx context.Context, msgs []models.Message) error {
	if len(msgs) == 0 {
		return s.delValue(ctx, messagesKey)
	}
	raw, err := encodeMessages(msgs)
	if err != nil {
		return err
	}
	return s.setValue(ctx, messagesKey, raw)
}

// Close implements Store. The database handle is owned by the caller.
func (s *sqlStore) Close() error { return nil }
