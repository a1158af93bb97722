package controller

import (
	"context"
	"errors"
	"strings"

	"docchat/internal/client"
	"docchat/internal/models"
	"docchat/internal/session"
)

// ErrNotReady rejects a question while no completed ingestion is
// available to answer it.
var ErrNotReady = errors.New("no ready document: upload a PDF and wait for ingestion to complete")

type ChatController struct {
	api      *client.Client
	sessions *session.Manager
}

func NewChatController(api *client.Client, sessions *session.Manager) *ChatController {
	return &ChatController{api: api, sessions: sessions}
}

// Ask appends the question to the transcript, queries the backend, and
// appends the answer. A transport failure does not break the
// conversation: it is rendered as an assistant-authored error message,
// matching the web client's behavior.
func (c *ChatController) Ask(ctx context.Context, question string) ([]models.Message, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return c.sessions.Messages(ctx)
	}

	s, err := c.sessions.Load(ctx)
	if err != nil {
		return nil, err
	}
	if session.Gate(s) != session.Ready {
		return nil, ErrNotReady
	}

	if _, err := c.sessions.AppendMessage(ctx, models.Message{
		Role:    models.RoleUser,
		Content: question,
	}); err != nil {
		return nil, err
	}

	content, err := c.api.Chat(ctx, question, s.UploadID)
	if err != nil {
		content = "**Error:** " + err.Error()
	}
	return c.sessions.AppendMessage(ctx, models.Message{
		Role:    models.RoleAssistant,
		Content: content,
	})
}
