package models

import "time"

// Session is the client's record of one uploaded document. At most one
// session is active at a time; replacing it always destroys the old one.
type Session struct {
	UploadID  string    `json:"upload_id"`
	Filename  string    `json:"filename"`
	CreatedAt time.Time `json:"created_at"`
	// Status holds the latest ingestion progress string reported by the
	// backend. Empty until the first status response arrives.
	Status string `json:"status,omitempty"`
}

// Clone returns a copy so readers never share the stored value.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	dup := *s
	return &dup
}
