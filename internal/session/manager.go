// Package session owns the single active document session. All reads and
// writes of persisted state go through the Manager, which keeps the two
// hard invariants: the session is replaced wholesale (never patched in
// place by a second writer), and every save is followed by an announcement
// on the bus so no reader ever has to poll the store.
package session

import (
	"context"
	"time"

	"docchat/internal/bus"
	"docchat/internal/models"
	"docchat/internal/store"
)

// maxAge is the horizon past which a persisted session is discarded on
// load instead of resumed.
const maxAge = 7 * 24 * time.Hour

type Manager struct {
	store store.Store
	bus   bus.Bus
	now   func() time.Time
}

func NewManager(st store.Store, b bus.Bus) *Manager {
	return &Manager{store: st, bus: b, now: time.Now}
}

// Load returns the persisted session, applying the expiry rule: a session
// older than seven days is removed (transcript included) and treated as
// absent. The removal goes through Replace so nil is announced and every
// subscriber, local or remote, drops the dead session too.
func (m *Manager) Load(ctx context.Context) (*models.Session, error) {
	s, err := m.store.LoadSession(ctx)
	if err != nil || s == nil {
		return nil, err
	}
	if m.now().Sub(s.CreatedAt) > maxAge {
		if err := m.Replace(ctx, nil); err != nil {
			return nil, err
		}
		return nil, nil
	}
	return s, nil
}

// Replace installs s as the active session, dropping the previous one and
// its transcript. Passing nil clears everything. The save completes before
// the announcement goes out.
func (m *Manager) Replace(ctx context.Context, s *models.Session) error {
	if err := m.store.SaveMessages(ctx, nil); err != nil {
		return err
	}
	if err := m.store.SaveSession(ctx, s); err != nil {
		return err
	}
	return m.bus.Announce(ctx, s)
}

// Clear removes the active session and its transcript and announces nil so
// every instance's poller cancels and gate reverts to needs-upload.
func (m *Manager) Clear(ctx context.Context) error {
	return m.Replace(ctx, nil)
}

// UpdateStatus records a new ingestion progress value for the session
// identified by uploadID. The update is discarded when the stored session
// has been replaced or cleared in the meantime, so a stale poll response
// can never resurrect a dead session. Returns the saved session, or nil
// when the update was discarded.
func (m *Manager) UpdateStatus(ctx context.Context, uploadID, status string) (*models.Session, error) {
	s, err := m.store.LoadSession(ctx)
	if err != nil {
		return nil, err
	}
	if s == nil || s.UploadID != uploadID {
		return nil, nil
	}
	s.Status = status
	if err := m.store.SaveSession(ctx, s); err != nil {
		return nil, err
	}
	if err := m.bus.Announce(ctx, s); err != nil {
		return nil, err
	}
	return s, nil
}

// Subscribe registers a handler for session announcements.
func (m *Manager) Subscribe(h bus.Handler) (unsubscribe func()) {
	return m.bus.Subscribe(h)
}

// Messages returns the cached transcript, oldest first.
func (m *Manager) Messages(ctx context.Context) ([]models.Message, error) {
	return m.store.LoadMessages(ctx)
}

// AppendMessage adds one turn to the cached transcript and returns the
// full transcript after the append.
func (m *Manager) AppendMessage(ctx context.Context, msg models.Message) ([]models.Message, error) {
	msgs, err := m.store.LoadMessages(ctx)
	if err != nil {
		return nil, err
	}
	msgs = append(msgs, msg)
	if err := m.store.SaveMessages(ctx, msgs); err != nil {
		return nil, err
	}
	return msgs, nil
}
