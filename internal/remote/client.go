// Package remote is the HTTP client for the shared project API served by
// `tq serve`. Client implements projectsync.Store.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"taskquest/internal/model"
)

const DefaultTimeout = 10 * time.Second

// StatusError is a non-2xx response from the server.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("remote: %d %s", e.Code, http.StatusText(e.Code))
	}
	return fmt.Sprintf("remote: %d: %s", e.Code, e.Message)
}

// Unwrap lets errors.Is(err, model.ErrNotFound) match a 404.
func (e *StatusError) Unwrap() error {
	if e.Code == http.StatusNotFound {
		return model.ErrNotFound
	}
	return nil
}

type envelope struct {
	Success bool           `json:"success"`
	Error   string         `json:"error"`
	Project *model.Project `json:"project"`
}

type Client struct {
	baseURL string
	http    *http.Client
}

// New returns a client for the server at baseURL, e.g. http://localhost:8080.
func New(baseURL string, timeout time.Duration) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse server url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("server url %q: scheme must be http or https", baseURL)
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL: u.String(),
		http:    &http.Client{Timeout: timeout},
	}, nil
}

func (c *Client) GetProject(ctx context.Context, projectID string) (*model.Project, error) {
	env, err := c.do(ctx, http.MethodGet, projectPath(projectID), nil)
	if err != nil {
		return nil, err
	}
	if env.Project == nil {
		return nil, fmt.Errorf("remote: get %s: empty project in response", projectID)
	}
	return env.Project, nil
}

func (c *Client) ShareProject(ctx context.Context, projectID, userID string) error {
	_, err := c.do(ctx, http.MethodPost, projectPath(projectID)+"/share", map[string]string{"userId": userID})
	return err
}

func (c *Client) UpdateSubtask(ctx context.Context, projectID string, index int, completed bool) error {
	path := projectPath(projectID) + "/subtasks/" + strconv.Itoa(index)
	_, err := c.do(ctx, http.MethodPut, path, map[string]bool{"completed": completed})
	return err
}

func (c *Client) UpdateProjectDetails(ctx context.Context, projectID string, d model.ProjectDetails) error {
	_, err := c.do(ctx, http.MethodPut, projectPath(projectID), d)
	return err
}

// Ping checks the server's health endpoint.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/healthz", nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("remote: ping: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode != http.StatusOK {
		return &StatusError{Code: resp.StatusCode}
	}
	return nil
}

func projectPath(id string) string {
	return "/api/projects/" + url.PathEscape(id)
}

func (c *Client) do(ctx context.Context, method, path string, body any) (*envelope, error) {
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("remote: encode request: %w", err)
		}
		r = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, r)
	if err != nil {
		return nil, fmt.Errorf("remote: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("remote: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	var env envelope
	decodeErr := json.NewDecoder(resp.Body).Decode(&env)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{Code: resp.StatusCode, Message: env.Error}
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("remote: decode %s %s: %w", method, path, decodeErr)
	}
	if !env.Success {
		return nil, fmt.Errorf("remote: %s %s: %s", method, path, env.Error)
	}
	return &env, nil
}
