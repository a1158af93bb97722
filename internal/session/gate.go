package session

import (
	"strings"

	"docchat/internal/models"
)

// Progress string markers emitted by the backend. Completion looks like
// "100% – ingestion complete. Ready for chat ✔"; failures look like
// "Error: <reason>".
const (
	completeMarker = "100%"
	errorMarker    = "Error"
)

// IsComplete reports whether the progress string marks finished ingestion.
func IsComplete(status string) bool {
	return strings.HasPrefix(status, completeMarker)
}

// IsError reports whether the progress string marks failed ingestion.
func IsError(status string) bool {
	return strings.HasPrefix(status, errorMarker)
}

// Availability is the UI-facing state derived from the current session.
type Availability int

const (
	// NeedsUpload: no active session; chat is disabled.
	NeedsUpload Availability = iota
	// Processing: a session exists but ingestion has not completed.
	Processing
	// Ready: ingestion completed; chat submission is permitted.
	Ready
)

func (a Availability) String() string {
	switch a {
	case NeedsUpload:
		return "needs-upload"
	case Processing:
		return "processing"
	case Ready:
		return "ready"
	default:
		return "unknown"
	}
}

// Gate derives availability from the session snapshot. Pure; no side
// effects.
func Gate(s *models.Session) Availability {
	switch {
	case s == nil:
		return NeedsUpload
	case IsComplete(s.Status):
		return Ready
	default:
		return Processing
	}
}
