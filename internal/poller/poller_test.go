package poller

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"docchat/internal/bus"
	"docchat/internal/models"
	"docchat/internal/session"
	"docchat/internal/store"
)

func newTestManager(t *testing.T) *session.Manager {
	t.Helper()
	st, err := store.NewStore(store.StoreTypeMemory)
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	return session.NewManager(st, bus.NewLocal())
}

// scriptedStatus replays a fixed sequence of progress strings, repeating
// the last one once exhausted, and counts queries.
type scriptedStatus struct {
	mu        sync.Mutex
	responses []string
	err       error
	count     int
}

func (f *scriptedStatus) fn(ctx context.Context, uploadID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.count++
	if f.err != nil {
		return "", f.err
	}
	i := f.count - 1
	if i >= len(f.responses) {
		i = len(f.responses) - 1
	}
	return f.responses[i], nil
}

func (f *scriptedStatus) queries() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.count
}

func seedSession(t *testing.T, m *session.Manager, uploadID string) *models.Session {
	t.Helper()
	s := &models.Session{
		UploadID:  uploadID,
		Filename:  "doc.pdf",
		CreatedAt: time.Now(),
		Status:    "Ingestion queued",
	}
	if err := m.Replace(context.Background(), s); err != nil {
		t.Fatalf("seed session: %v", err)
	}
	return s
}

func TestRunCompletesAndStopsQuerying(t *testing.T) {
	m := newTestManager(t)
	s := seedSession(t, m, "abc123")
	status := &scriptedStatus{responses: []string{"45%", "100% – ingestion complete. Ready for chat ✔"}}
	p := New(status.fn, m, 10*time.Millisecond, time.Second)

	state := p.Run(context.Background(), s)
	if state != Completed {
		t.Fatalf("expected Completed, got %s", state)
	}
	queries := status.queries()
	if queries != 2 {
		t.Fatalf("expected 2 queries, got %d", queries)
	}

	time.Sleep(50 * time.Millisecond)
	if status.queries() != queries {
		t.Fatalf("queries issued after terminal state")
	}

	stored, err := m.Load(context.Background())
	if err != nil || stored == nil {
		t.Fatalf("load after run: %#v err %v", stored, err)
	}
	if session.Gate(stored) != session.Ready {
		t.Fatalf("final status not persisted: %#v", stored)
	}
}

func TestRunUpdatesStatusWhileInProgress(t *testing.T) {
	m := newTestManager(t)
	s := seedSession(t, m, "abc123")

	var announced []string
	m.Subscribe(func(s *models.Session) {
		if s != nil {
			announced = append(announced, s.Status)
		}
	})

	status := &scriptedStatus{responses: []string{
		"10% – parsing PDF",
		"45%",
		"100% – ingestion complete. Ready for chat ✔",
	}}
	p := New(status.fn, m, 5*time.Millisecond, time.Second)
	if state := p.Run(context.Background(), s); state != Completed {
		t.Fatalf("expected Completed, got %s", state)
	}

	if len(announced) != 3 || announced[0] != "10% – parsing PDF" || announced[1] != "45%" {
		t.Fatalf("intermediate statuses not propagated: %v", announced)
	}
}

func TestRunFailsOnErrorMarker(t *testing.T) {
	m := newTestManager(t)
	s := seedSession(t, m, "abc123")
	status := &scriptedStatus{responses: []string{"Error: parse failure"}}
	p := New(status.fn, m, 10*time.Millisecond, time.Second)

	if state := p.Run(context.Background(), s); state != Failed {
		t.Fatalf("expected Failed, got %s", state)
	}
	if status.queries() != 1 {
		t.Fatalf("error marker should terminate on the first query, got %d", status.queries())
	}

	// The session survives a failed ingestion; it is just never ready.
	stored, _ := m.Load(context.Background())
	if stored == nil || session.Gate(stored) != session.Processing {
		t.Fatalf("session should remain, non-ready: %#v", stored)
	}
}

func TestRunFailsOnTransportErrorWithoutRetry(t *testing.T) {
	m := newTestManager(t)
	s := seedSession(t, m, "abc123")
	status := &scriptedStatus{err: errors.New("connection refused")}
	p := New(status.fn, m, 10*time.Millisecond, time.Second)

	if state := p.Run(context.Background(), s); state != Failed {
		t.Fatalf("expected Failed, got %s", state)
	}
	if status.queries() != 1 {
		t.Fatalf("transport failure must not retry in place, got %d queries", status.queries())
	}

	stored, _ := m.Load(context.Background())
	if stored == nil || stored.Status != "Ingestion queued" {
		t.Fatalf("stored status should be untouched on transport failure: %#v", stored)
	}
}

func TestRunTimesOut(t *testing.T) {
	m := newTestManager(t)
	s := seedSession(t, m, "abc123")
	status := &scriptedStatus{responses: []string{"45%"}}
	p := New(status.fn, m, 10*time.Millisecond, 60*time.Millisecond)

	start := time.Now()
	state := p.Run(context.Background(), s)
	if state != TimedOut {
		t.Fatalf("expected TimedOut, got %s", state)
	}
	if elapsed := time.Since(start); elapsed < 50*time.Millisecond {
		t.Fatalf("timed out too early: %s", elapsed)
	}

	queries := status.queries()
	time.Sleep(50 * time.Millisecond)
	if status.queries() != queries {
		t.Fatalf("queries issued after timeout")
	}
}

func TestRunCancelled(t *testing.T) {
	m := newTestManager(t)
	s := seedSession(t, m, "abc123")
	status := &scriptedStatus{responses: []string{"45%"}}
	p := New(status.fn, m, 20*time.Millisecond, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan State, 1)
	go func() { done <- p.Run(ctx, s) }()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case state := <-done:
		if state != Cancelled {
			t.Fatalf("expected Cancelled, got %s", state)
		}
	case <-time.After(time.Second):
		t.Fatalf("run did not observe cancellation")
	}
}

func TestRunDiscardsInFlightResultAfterCancel(t *testing.T) {
	m := newTestManager(t)
	s := seedSession(t, m, "abc123")

	ctx, cancel := context.WithCancel(context.Background())
	blocked := make(chan struct{})
	statusFn := func(ctx context.Context, uploadID string) (string, error) {
		close(blocked)
		<-ctx.Done()
		// The request "completes" with a terminal answer after cancellation.
		return "100% – ingestion complete. Ready for chat ✔", nil
	}
	p := New(statusFn, m, 10*time.Millisecond, time.Second)

	done := make(chan State, 1)
	go func() { done <- p.Run(ctx, s) }()
	<-blocked
	cancel()

	state := <-done
	if state != Cancelled {
		t.Fatalf("expected Cancelled, got %s", state)
	}
	stored, _ := m.Load(context.Background())
	if stored == nil || stored.Status != "Ingestion queued" {
		t.Fatalf("discarded result must not be persisted: %#v", stored)
	}
}

func TestRunCancelledWhenSessionReplaced(t *testing.T) {
	m := newTestManager(t)
	s := seedSession(t, m, "old")
	status := &scriptedStatus{responses: []string{"45%"}}
	p := New(status.fn, m, 10*time.Millisecond, time.Second)

	done := make(chan State, 1)
	go func() { done <- p.Run(context.Background(), s) }()

	time.Sleep(25 * time.Millisecond)
	if err := m.Replace(context.Background(), &models.Session{UploadID: "new", CreatedAt: time.Now()}); err != nil {
		t.Fatalf("replace: %v", err)
	}

	select {
	case state := <-done:
		if state != Cancelled {
			t.Fatalf("expected Cancelled after replacement, got %s", state)
		}
	case <-time.After(time.Second):
		t.Fatalf("run did not stop after session replacement")
	}

	stored, _ := m.Load(context.Background())
	if stored == nil || stored.UploadID != "new" || stored.Status != "" {
		t.Fatalf("replacement session corrupted by stale poll: %#v", stored)
	}
}
