// Package controller implements the user-triggered actions: uploading a
// document, asking a question, and resetting the session.
package controller

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"docchat/internal/client"
	"docchat/internal/models"
	"docchat/internal/session"
)

const maxUploadBytes = 10 << 20 // 10 MiB

var (
	// ErrTooLarge rejects files over the upload limit before any network
	// call is made.
	ErrTooLarge = errors.New("file exceeds the 10 MiB upload limit")

	// ErrUnsupportedType rejects non-PDF files before any network call is
	// made.
	ErrUnsupportedType = errors.New("only PDF files are supported")
)

type UploadController struct {
	api      *client.Client
	sessions *session.Manager
}

func NewUploadController(api *client.Client, sessions *session.Manager) *UploadController {
	return &UploadController{api: api, sessions: sessions}
}

// Submit validates the file at path and sends it for ingestion. An empty
// path means no file was selected and is a no-op, not an error. On
// success the new session unconditionally replaces any prior one and is
// announced to every instance; on failure the existing session is left
// untouched.
func (u *UploadController) Submit(ctx context.Context, path string) (*models.Session, error) {
	if path == "" {
		return nil, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat upload: %w", err)
	}
	if info.Size() > maxUploadBytes {
		return nil, ErrTooLarge
	}

	// Sniff the content the way the browser reported a MIME type. An
	// empty file reads as EOF and falls through to the type check so it
	// is rejected as non-PDF, not as an I/O failure.
	head := make([]byte, 512)
	n, err := f.Read(head)
	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if http.DetectContentType(head[:n]) != "application/pdf" {
		return nil, ErrUnsupportedType
	}
	if _, err := f.Seek(0, 0); err != nil {
		return nil, fmt.Errorf("rewind upload: %w", err)
	}

	filename := filepath.Base(path)
	result, err := u.api.Ingest(ctx, filename, f)
	if err != nil {
		return nil, fmt.Errorf("ingest %s: %w", filename, err)
	}

	s := &models.Session{
		UploadID:  result.UploadID,
		Filename:  filename,
		CreatedAt: time.Now(),
		Status:    result.Progress,
	}
	if err := u.sessions.Replace(ctx, s); err != nil {
		return nil, fmt.Errorf("persist session: %w", err)
	}
	return s, nil
}
