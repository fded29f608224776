package web

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"taskquest/internal/model"
	"taskquest/internal/storage"
)

type shareRequest struct {
	UserID string `json:"userId"`
}

type subtaskRequest struct {
	Completed *bool `json:"completed"`
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleGetProject(c *gin.Context) {
	p, err := s.repo.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "project": p})
}

func (s *Server) handlePutProject(c *gin.Context) {
	var d model.ProjectDetails
	if !bindBody(c, &d) {
		return
	}
	if strings.TrimSpace(d.Name) == "" {
		badRequest(c, "name is required")
		return
	}

	p, err := s.repo.UpsertDetails(c.Request.Context(), c.Param("id"), d)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "project": p})
}

func (s *Server) handleShareProject(c *gin.Context) {
	var req shareRequest
	if !bindBody(c, &req) {
		return
	}
	if strings.TrimSpace(req.UserID) == "" {
		badRequest(c, "userId is required")
		return
	}

	p, err := s.repo.AddMember(c.Request.Context(), c.Param("id"), req.UserID)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "project": p})
}

func (s *Server) handleSetSubtask(c *gin.Context) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		badRequest(c, "subtask index must be an integer")
		return
	}
	var req subtaskRequest
	if !bindBody(c, &req) {
		return
	}
	if req.Completed == nil {
		badRequest(c, "completed is required")
		return
	}

	p, err := s.repo.SetSubtask(c.Request.Context(), c.Param("id"), index, *req.Completed)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "project": p})
}

func bindBody(c *gin.Context, v any) bool {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBodySize)
	if err := c.ShouldBindJSON(v); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return false
	}
	return true
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{
		"success": false,
		"error":   msg,
	})
}

// fail maps repository errors onto status codes.
func (s *Server) fail(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, model.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, storage.ErrIndexOutOfRange):
		status = http.StatusBadRequest
	default:
		s.logger.Printf("web: %s %s: %v", c.Request.Method, c.Request.URL.Path, err)
	}
	c.JSON(status, gin.H{
		"success": false,
		"error":   err.Error(),
	})
}
