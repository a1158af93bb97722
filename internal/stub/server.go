// Package stub is a development stand-in for the document QA backend. It
// serves the same four endpoints with simulated ingestion progress so the
// client can be exercised without embeddings, retrieval, or an LLM.
package stub

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const maxUploadBytes = 10 << 20

// Milestones mirror the progress strings the real ingestion pipeline
// emits, ending at the completion marker the client gates on.
var milestones = []string{
	"Ingestion started",
	"10% – parsing PDF",
	"40% – splitting into chunks",
	"60% – generating embeddings",
	"80% – indexing chunks",
	"100% – ingestion complete. Ready for chat ✔",
}

type upload struct {
	filename string
	progress string
}

type Options struct {
	// StepDelay is the pause between progress milestones (default 2s).
	StepDelay time.Duration
	// Workers bounds concurrent simulated ingestions (default 2).
	Workers int
}

type Server struct {
	mu        sync.RWMutex
	uploads   map[string]*upload
	stepDelay time.Duration
	jobs      chan string
	wg        sync.WaitGroup
}

func NewServer(opts Options) *Server {
	if opts.StepDelay <= 0 {
		opts.StepDelay = 2 * time.Second
	}
	if opts.Workers <= 0 {
		opts.Workers = 2
	}
	s := &Server{
		uploads:   make(map[string]*upload),
		stepDelay: opts.StepDelay,
		jobs:      make(chan string, 16),
	}
	for i := 0; i < opts.Workers; i++ {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			for id := range s.jobs {
				s.runIngest(id)
			}
		}()
	}
	return s
}

// Close stops the ingest workers after draining queued jobs.
func (s *Server) Close() {
	close(s.jobs)
	s.wg.Wait()
}

// Router builds the gin engine serving the backend API.
func (s *Server) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.POST("/ingest", s.ingest)
	router.GET("/status/:upload_id", s.status)
	router.POST("/chat", s.chat)
	router.DELETE("/reset/:upload_id", s.reset)
	return router
}

func (s *Server) ingest(c *gin.Context) {
	header, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file field required"})
		return
	}
	if ct := header.Header.Get("Content-Type"); ct != "" && ct != "application/pdf" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "only PDF files allowed"})
		return
	}
	if header.Size > maxUploadBytes {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file too large (> 10 MB)"})
		return
	}

	id := uuid.NewString()
	s.mu.Lock()
	s.uploads[id] = &upload{filename: header.Filename, progress: "Ingestion queued"}
	s.mu.Unlock()

	select {
	case s.jobs <- id:
	default:
		s.SetProgress(id, "Error: ingestion queue full")
	}

	c.JSON(http.StatusOK, gin.H{"upload_id": id, "progress": "Ingestion queued"})
}

func (s *Server) status(c *gin.Context) {
	id := c.Param("upload_id")
	s.mu.RLock()
	up, ok := s.uploads[id]
	progress := ""
	if ok {
		progress = up.progress
	}
	s.mu.RUnlock()

	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "upload_id not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"progress": progress})
}

func (s *Server) chat(c *gin.Context) {
	var req struct {
		Question string `json:"question"`
		UploadID string `json:"upload_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	s.mu.RLock()
	up, ok := s.uploads[req.UploadID]
	s.mu.RUnlock()
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "upload_id not found"})
		return
	}

	answer := fmt.Sprintf("Stub answer about %q: no retrieval here, but your question was %q.",
		up.filename, req.Question)
	c.JSON(http.StatusOK, gin.H{"answer": answer})
}

func (s *Server) reset(c *gin.Context) {
	id := c.Param("upload_id")
	s.mu.Lock()
	_, ok := s.uploads[id]
	delete(s.uploads, id)
	s.mu.Unlock()

	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "upload_id not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "upload_id": id})
}

// SetProgress overwrites an upload's progress string. Handy for forcing
// error or completion states while developing against the stub.
func (s *Server) SetProgress(id, progress string) {
	s.mu.Lock()
	if up, ok := s.uploads[id]; ok {
		up.progress = progress
	}
	s.mu.Unlock()
}

// runIngest walks the upload through the milestone strings, stopping if
// the upload is deleted or forced into an error state mid-run.
func (s *Server) runIngest(id string) {
	for i, step := range milestones {
		if i > 0 {
			time.Sleep(s.stepDelay)
		}
		s.mu.Lock()
		up, ok := s.uploads[id]
		if ok && isErrorProgress(up.progress) {
			ok = false
		}
		if ok {
			up.progress = step
		}
		s.mu.Unlock()
		if !ok {
			return
		}
	}
}

func isErrorProgress(p string) bool {
	return len(p) >= 5 && p[:5] == "Error"
}
