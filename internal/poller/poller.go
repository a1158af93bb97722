// Package poller tracks server-side ingestion progress for the active
// session. One poll run is live per non-nil session; the run queries the
// backend on a fixed period until ingestion completes, fails, exceeds the
// overall bound, or the session it belongs to goes away.
package poller

import (
	"context"
	"time"

	"docchat/internal/models"
	"docchat/internal/session"
)

// State is the poll run's lifecycle state. Every state except Idle and
// Polling is terminal: once reached, no further queries are issued.
type State int

const (
	Idle State = iota
	Polling
	Completed
	Failed
	TimedOut
	Cancelled
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Polling:
		return "polling"
	case Completed:
		return "completed"
	case Failed:
		return "failed"
	case TimedOut:
		return "timed-out"
	case Cancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further queries will be issued from s.
func (s State) Terminal() bool {
	return s == Completed || s == Failed || s == TimedOut || s == Cancelled
}

// StatusFunc queries backend ingestion progress for an upload.
type StatusFunc func(ctx context.Context, uploadID string) (string, error)

const (
	defaultInterval = 7 * time.Second
	defaultTimeout  = 3 * time.Minute
)

type Poller struct {
	status   StatusFunc
	sessions *session.Manager
	interval time.Duration
	timeout  time.Duration
}

// New creates a poller. Non-positive interval or timeout fall back to the
// defaults (7s period, 3m bound).
func New(status StatusFunc, sessions *session.Manager, interval, timeout time.Duration) *Poller {
	if interval <= 0 {
		interval = defaultInterval
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Poller{status: status, sessions: sessions, interval: interval, timeout: timeout}
}

// Run polls for s until a terminal state and returns it. An immediate
// first query is issued before the first tick. Cancelling ctx yields
// Cancelled; a query already in flight at cancellation time completes but
// its result is discarded.
func (p *Poller) Run(ctx context.Context, s *models.Session) State {
	deadline := time.NewTimer(p.timeout)
	defer deadline.Stop()
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	if st, done := p.probe(ctx, s.UploadID); done {
		return st
	}
	for {
		select {
		case <-ctx.Done():
			return Cancelled
		case <-deadline.C:
			return TimedOut
		case <-ticker.C:
			if st, done := p.probe(ctx, s.UploadID); done {
				return st
			}
		}
	}
}

// probe issues one status query and classifies the result. done reports
// whether a terminal state was reached. A query failure terminates the run
// directly; there is no in-place retry.
func (p *Poller) probe(ctx context.Context, uploadID string) (State, bool) {
	progress, err := p.status(ctx, uploadID)
	if ctx.Err() != nil {
		return Cancelled, true
	}
	if err != nil {
		return Failed, true
	}

	saved, err := p.sessions.UpdateStatus(ctx, uploadID, progress)
	if err != nil {
		return Failed, true
	}
	if saved == nil {
		// Session was replaced or cleared while the query was in flight.
		return Cancelled, true
	}

	switch {
	case session.IsComplete(progress):
		return Completed, true
	case session.IsError(progress):
		return Failed, true
	default:
		return Polling, false
	}
}
