package controller

import (
	"context"
	"log"

	"docchat/internal/client"
	"docchat/internal/session"
)

type ResetController struct {
	api      *client.Client
	sessions *session.Manager
}

func NewResetController(api *client.Client, sessions *session.Manager) *ResetController {
	return &ResetController{api: api, sessions: sessions}
}

// Reset tears down the active session. The backend delete is best-effort:
// its failure is logged and swallowed so a backend outage can never strand
// the client in an unresettable state. Local state is cleared
// unconditionally and nil is announced, cancelling every instance's
// poller.
func (r *ResetController) Reset(ctx context.Context) error {
	s, err := r.sessions.Load(ctx)
	if err != nil {
		return err
	}
	if s != nil {
		if err := r.api.Reset(ctx, s.UploadID); err != nil {
			log.Printf("reset: backend delete failed, clearing locally anyway: %v", err)
		}
	}
	return r.sessions.Clear(ctx)
}
