// Package client talks to the document QA backend. The backend itself
// (parsing, embeddings, retrieval, the LLM) is opaque here; this is just
// its four HTTP endpoints.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"
)

type Client struct {
	base  string
	httpc *http.Client
}

// New creates a client for the given API base URL, e.g.
// "http://localhost:8000".
func New(base string) *Client {
	return &Client{
		base:  strings.TrimRight(base, "/"),
		httpc: &http.Client{Timeout: 60 * time.Second},
	}
}

// IngestResult is the backend's acceptance of an upload.
type IngestResult struct {
	UploadID string `json:"upload_id"`
	Progress string `json:"progress"`
}

// Ingest submits the file as multipart form data to POST /ingest.
func (c *Client) Ingest(ctx context.Context, filename string, file io.Reader) (*IngestResult, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition",
		fmt.Sprintf(`form-data; name="file"; filename=%q`, filename))
	header.Set("Content-Type", "application/pdf")
	part, err := writer.CreatePart(header)
	if err != nil {
		return nil, fmt.Errorf("build multipart form: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("finish multipart form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/ingest", &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	var result IngestResult
	if err := c.do(req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Status fetches the current ingestion progress from GET /status/{id}.
func (c *Client) Status(ctx context.Context, uploadID string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+"/status/"+uploadID, nil)
	if err != nil {
		return "", err
	}
	var result struct {
		Progress string `json:"progress"`
	}
	if err := c.do(req, &result); err != nil {
		return "", err
	}
	return result.Progress, nil
}

// Chat asks a question against the ingested document via POST /chat.
func (c *Client) Chat(ctx context.Context, question, uploadID string) (string, error) {
	payload, err := json.Marshal(map[string]string{
		"question":  question,
		"upload_id": uploadID,
	})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/chat", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	var result struct {
		Answer string `json:"answer"`
	}
	if err := c.do(req, &result); err != nil {
		return "", err
	}
	return result.Answer, nil
}

// Reset asks the backend to delete the ingested document via
// DELETE /reset/{id}.
func (c *Client) Reset(ctx context.Context, uploadID string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.base+"/reset/"+uploadID, nil)
	if err != nil {
		return err
	}
	return c.do(req, nil)
}

// do executes the request and decodes a JSON response into out (when out
// is non-nil). Any non-2xx status is an error carrying the response body.
func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%s %s: status %d: %s",
			req.Method, req.URL.Path, resp.StatusCode, strings.TrimSpace(string(snippet)))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
