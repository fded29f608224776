// Package web serves the shared project store over HTTP for `tq serve`.
package web

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"taskquest/internal/model"
)

// maxBodySize caps request bodies; a project document is small.
const maxBodySize = 1 << 20

// ProjectRepository is the authoritative project store behind the API.
// storage.SharedProjectRepo satisfies it.
type ProjectRepository interface {
	Get(ctx context.Context, id string) (*model.Project, error)
	UpsertDetails(ctx context.Context, id string, d model.ProjectDetails) (*model.Project, error)
	AddMember(ctx context.Context, id, userID string) (*model.Project, error)
	SetSubtask(ctx context.Context, id string, index int, completed bool) (*model.Project, error)
}

// Server is the shared project API server
type Server struct {
	repo   ProjectRepository
	router *gin.Engine
	logger *log.Logger
}

// NewServer creates a server with all routes registered.
func NewServer(repo ProjectRepository, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	router := gin.New()
	router.Use(gin.LoggerWithWriter(logger.Writer()), gin.Recovery())

	s := &Server{
		repo:   repo,
		router: router,
		logger: logger,
	}

	router.GET("/healthz", s.handleHealth)

	api := router.Group("/api")
	{
		api.GET("/projects/:id", s.handleGetProject)
		api.PUT("/projects/:id", s.handlePutProject)
		api.POST("/projects/:id/share", s.handleShareProject)
		api.PUT("/projects/:id/subtasks/:index", s.handleSetSubtask)
	}

	return s
}

// Handler exposes the router, mainly for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Printf("web: listening on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Printf("web: shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}
