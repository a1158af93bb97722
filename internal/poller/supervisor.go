package poller

import (
	"context"
	"log"
	"sync"

	"docchat/internal/models"
	"docchat/internal/session"
)

// Supervisor owns at most one live poll run and retargets it as the
// active session changes: a new upload starts a run, a replacement or a
// clear cancels the current one. Cancellation is cooperative; the run's
// context is the token the loop checks before acting.
type Supervisor struct {
	poller *Poller
	onDone func(uploadID string, st State)

	mu      sync.Mutex
	parent  context.Context
	cancel  context.CancelFunc
	current string
	wg      sync.WaitGroup
}

// NewSupervisor creates a supervisor. onDone, when non-nil, is invoked
// with the final state of each finished run.
func NewSupervisor(p *Poller, onDone func(uploadID string, st State)) *Supervisor {
	return &Supervisor{poller: p, onDone: onDone}
}

// Attach subscribes the supervisor to session announcements and starts a
// run for the given session when it still needs polling. The returned
// function detaches and stops any live run.
func (sv *Supervisor) Attach(ctx context.Context, m *session.Manager, s *models.Session) func() {
	sv.mu.Lock()
	sv.parent = ctx
	sv.mu.Unlock()

	unsubscribe := m.Subscribe(sv.handle)
	sv.handle(s)

	return func() {
		unsubscribe()
		sv.Stop()
	}
}

// handle reacts to one announcement. Announcements carrying the upload
// already being polled (typically the poller's own status saves) leave the
// run alone; anything else cancels it, and a fresh non-terminal session
// starts a new one.
func (sv *Supervisor) handle(s *models.Session) {
	sv.mu.Lock()
	defer sv.mu.Unlock()

	if s != nil && s.UploadID == sv.current {
		return
	}

	sv.stopLocked()
	if s == nil || session.IsComplete(s.Status) || session.IsError(s.Status) {
		return
	}
	sv.startLocked(s.Clone())
}

func (sv *Supervisor) startLocked(s *models.Session) {
	if sv.parent == nil {
		return
	}
	runCtx, cancel := context.WithCancel(sv.parent)
	sv.cancel = cancel
	sv.current = s.UploadID

	sv.wg.Add(1)
	go func() {
		defer sv.wg.Done()
		st := sv.poller.Run(runCtx, s)
		cancel()

		sv.mu.Lock()
		if sv.current == s.UploadID {
			sv.current = ""
			sv.cancel = nil
		}
		sv.mu.Unlock()

		log.Printf("poll %s finished: %s", s.UploadID, st)
		if sv.onDone != nil {
			sv.onDone(s.UploadID, st)
		}
	}()
}

func (sv *Supervisor) stopLocked() {
	if sv.cancel != nil {
		sv.cancel()
		sv.cancel = nil
	}
	sv.current = ""
}

// Stop cancels any live run and waits for it to wind down.
func (sv *Supervisor) Stop() {
	sv.mu.Lock()
	sv.stopLocked()
	sv.mu.Unlock()
	sv.wg.Wait()
}
