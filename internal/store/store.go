// Package store persists the active session and its cached transcript.
// It is the durable owner of both: every component reads a snapshot and
// writes back through it, mirroring how the browser client kept its state
// under two localStorage keys.
package store

import (
	"context"
	"errors"

	"docchat/internal/models"
)

// Keys under which state is persisted. Kept from the original web client
// so a stored session is recognizable across versions.
const (
	sessionKey  = "docchat_info"
	messagesKey = "docchat_messages"
)

var (
	ErrInvalidStoreType = errors.New("invalid store type")
	ErrInvalidConfig    = errors.New("invalid store configuration")
)

// Store defines the persisted state operations.
type Store interface {
	// LoadSession retrieves the persisted session.
	// Returns nil if no session is stored (not an error).
	LoadSession(ctx context.Context) (*models.Session, error)

	// SaveSession persists the session wholesale. Passing nil removes the
	// entry entirely.
	SaveSession(ctx context.Context, s *models.Session) error

	// LoadMessages retrieves the cached transcript, oldest first.
	LoadMessages(ctx context.Context) ([]models.Message, error)

	// SaveMessages replaces the cached transcript. Passing an empty slice
	// or nil removes the entry.
	SaveMessages(ctx context.Context, msgs []models.Message) error

	// Close releases any resources held by the store.
	Close() error
}
