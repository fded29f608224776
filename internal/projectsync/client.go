// Package projectsync keeps local copies of shared projects in step with the
// remote project store: share and join, write-through subtask edits, and a
// per-project poll loop that replaces the local copy when the remote differs.
package projectsync

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"taskquest/internal/model"
)

const (
	DefaultPollInterval = 5 * time.Second
	DefaultMaxFailures  = 3
)

var (
	// ErrInvalidShareCode is returned by join for unknown or malformed codes.
	ErrInvalidShareCode = errors.New("invalid share code")
	ErrSubtaskIndex     = errors.New("subtask index out of range")
	ErrNotShared        = errors.New("project is not shared")
)

type State int

const (
	Idle State = iota
	Sharing
	Polling
	Stopped
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Sharing:
		return "sharing"
	case Polling:
		return "polling"
	case Stopped:
		return "stopped"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Store is the remote, authoritative copy of shared projects.
// GetProject returns an error wrapping model.ErrNotFound for unknown IDs.
type Store interface {
	ShareProject(ctx context.Context, projectID, userID string) error
	GetProject(ctx context.Context, projectID string) (*model.Project, error)
	UpdateSubtask(ctx context.Context, projectID string, index int, completed bool) error
	UpdateProjectDetails(ctx context.Context, projectID string, details model.ProjectDetails) error
}

// LocalProjects is where accepted project snapshots are persisted.
// LoadProject and UpdateProject return an error wrapping model.ErrNotFound
// for unknown IDs. SaveProject inserts when the project is new.
type LocalProjects interface {
	LoadProject(ctx context.Context, id string) (*model.Project, error)
	SaveProject(ctx context.Context, p model.Project) error
	UpdateProject(ctx context.Context, p model.Project) error
}

type Options struct {
	PollInterval time.Duration
	MaxFailures  int
	Logger       *log.Logger
	// OnChange is called with the new snapshot whenever the local copy changes.
	OnChange func(model.Project)
}

func (o Options) withDefaults() Options {
	if o.PollInterval <= 0 {
		o.PollInterval = DefaultPollInterval
	}
	if o.MaxFailures <= 0 {
		o.MaxFailures = DefaultMaxFailures
	}
	if o.Logger == nil {
		o.Logger = log.Default()
	}
	return o
}

// Client reconciles one project. Writes go remote first and are applied
// locally only after the store accepted them; the poll loop replaces the
// local copy wholesale when the remote snapshot differs.
type Client struct {
	parent context.Context
	store  Store
	local  LocalProjects
	opts   Options
	id     string

	mu       sync.Mutex
	state    State
	project  model.Project
	failures int
	cancel   context.CancelFunc
	done     chan struct{}
}

// NewClient creates an idle client for p. parent bounds the lifetime of the
// poll loop; cancelling it stops polling.
func NewClient(parent context.Context, store Store, local LocalProjects, p model.Project, opts Options) *Client {
	done := make(chan struct{})
	close(done)
	return &Client{
		parent:  parent,
		store:   store,
		local:   local,
		opts:    opts.withDefaults(),
		id:      p.ID,
		project: p.Clone(),
		done:    done,
	}
}

func (c *Client) ProjectID() string { return c.id }

func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Project returns a copy of the current local snapshot.
func (c *Client) Project() model.Project {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.project.Clone()
}

// Done is closed when the current poll loop exits. It is already closed
// while the client is not polling.
func (c *Client) Done() <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.done
}

// Share marks the project shared with ownerID as first member, pushes its
// details to the store, registers the owner as a member and starts polling.
// On failure nothing changes locally.
func (c *Client) Share(ctx context.Context, ownerID string) error {
	if ownerID == "" {
		return fmt.Errorf("share %s: owner id is required", c.id)
	}

	c.mu.Lock()
	if c.state == Polling {
		c.mu.Unlock()
		return nil
	}
	prev := c.state
	c.state = Sharing
	next := c.project.Clone()
	c.mu.Unlock()

	next.IsProject = true
	next.MarkShared(ownerID)
	if err := c.store.UpdateProjectDetails(ctx, c.id, next.Details()); err != nil {
		c.setState(prev)
		return fmt.Errorf("share %s: %w", c.id, err)
	}
	if err := c.store.ShareProject(ctx, c.id, ownerID); err != nil {
		c.setState(prev)
		return fmt.Errorf("share %s: add %s: %w", c.id, ownerID, err)
	}
	if err := c.local.SaveProject(ctx, next); err != nil {
		c.setState(prev)
		return fmt.Errorf("share %s: save local: %w", c.id, err)
	}

	c.replace(next)
	c.start()
	return nil
}

// Join fetches the project by share code, stores it locally when it is not
// known yet, and starts polling.
func (c *Client) Join(ctx context.Context) error {
	if _, err := uuid.Parse(c.id); err != nil {
		return ErrInvalidShareCode
	}
	remote, err := c.store.GetProject(ctx, c.id)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidShareCode, err)
	}

	existing, err := c.local.LoadProject(ctx, c.id)
	switch {
	case err == nil:
		c.replaceSilently(*existing)
	case errors.Is(err, model.ErrNotFound):
		fresh := remote.Clone()
		fresh.IsProject = true
		fresh.Completed = false
		if err := c.local.SaveProject(ctx, fresh); err != nil {
			return fmt.Errorf("join %s: save local: %w", c.id, err)
		}
		c.replace(fresh)
	default:
		return fmt.Errorf("join %s: %w", c.id, err)
	}

	c.start()
	return nil
}

// ToggleSubtask sets a subtask's completed flag. For a shared project the
// store is written first and the local copy only changes if that succeeds.
func (c *Client) ToggleSubtask(ctx context.Context, index int, completed bool) error {
	c.mu.Lock()
	n := len(c.project.Subtasks)
	shared := c.project.IsShared
	c.mu.Unlock()

	if index < 0 || index >= n {
		return fmt.Errorf("%w: %d (project has %d)", ErrSubtaskIndex, index, n)
	}
	if shared {
		if err := c.store.UpdateSubtask(ctx, c.id, index, completed); err != nil {
			return fmt.Errorf("update subtask %d of %s: %w", index, c.id, err)
		}
	}

	c.mu.Lock()
	// A poll may have replaced the project while the write was in flight.
	if index >= len(c.project.Subtasks) {
		c.mu.Unlock()
		return fmt.Errorf("%w: %d", ErrSubtaskIndex, index)
	}
	next := c.project.Clone()
	next.Subtasks[index].Completed = completed
	c.mu.Unlock()

	if err := c.local.UpdateProject(ctx, next); err != nil {
		return fmt.Errorf("save project %s: %w", c.id, err)
	}
	c.replace(next)
	return nil
}

// UpdateDetails overwrites the writable project fields, remote first when shared.
func (c *Client) UpdateDetails(ctx context.Context, d model.ProjectDetails) error {
	c.mu.Lock()
	next := c.project.Clone()
	c.mu.Unlock()

	next.ApplyDetails(d)
	if next.IsShared {
		next.AddMember(next.OwnerID)
		if err := c.store.UpdateProjectDetails(ctx, c.id, next.Details()); err != nil {
			return fmt.Errorf("update project %s: %w", c.id, err)
		}
	}
	if err := c.local.UpdateProject(ctx, next); err != nil {
		return fmt.Errorf("save project %s: %w", c.id, err)
	}
	c.replace(next)
	return nil
}

// Start begins polling a project that is already shared.
func (c *Client) Start() error {
	c.mu.Lock()
	shared := c.project.IsShared
	c.mu.Unlock()
	if !shared {
		return fmt.Errorf("poll %s: %w", c.id, ErrNotShared)
	}
	c.start()
	return nil
}

// Stop cancels the poll loop and waits for it to exit.
func (c *Client) Stop() {
	c.mu.Lock()
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	if c.state != Idle {
		c.state = Stopped
	}
	done := c.done
	c.mu.Unlock()
	<-done
}

func (c *Client) start() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == Polling && c.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(c.parent)
	c.cancel = cancel
	c.state = Polling
	c.failures = 0
	c.done = make(chan struct{})
	go c.loop(ctx, c.done)
}

func (c *Client) loop(ctx context.Context, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(c.opts.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !c.pollOnce(ctx) {
				return
			}
		}
	}
}

// pollOnce fetches the remote copy once and reports whether polling continues.
// A differing remote copy replaces the local one, except that Completed and
// CreatedAt stay local: completion is tracked per user. Polling ends when the
// local project has been removed.
func (c *Client) pollOnce(ctx context.Context) bool {
	if _, err := c.local.LoadProject(ctx, c.id); errors.Is(err, model.ErrNotFound) {
		c.halt("removed locally")
		return false
	}

	remote, err := c.store.GetProject(ctx, c.id)
	if ctx.Err() != nil {
		return false
	}
	if err != nil {
		c.mu.Lock()
		c.failures++
		failures := c.failures
		c.mu.Unlock()
		c.opts.Logger.Printf("projectsync: poll %s failed (%d/%d): %v", c.id, failures, c.opts.MaxFailures, err)
		if failures >= c.opts.MaxFailures {
			c.halt("too many failures")
			return false
		}
		return true
	}

	c.mu.Lock()
	c.failures = 0
	next := remote.Clone()
	next.Completed = c.project.Completed
	next.CreatedAt = c.project.CreatedAt
	next.IsProject = true
	equal := model.ProjectsEqual(c.project, next)
	c.mu.Unlock()
	if equal {
		return true
	}

	if err := c.local.UpdateProject(ctx, next); err != nil {
		if errors.Is(err, model.ErrNotFound) {
			c.halt("removed locally")
			return false
		}
		c.opts.Logger.Printf("projectsync: save %s: %v", c.id, err)
	}
	c.replace(next)
	return true
}

// halt moves the client to Stopped from inside the poll loop.
func (c *Client) halt(reason string) {
	c.opts.Logger.Printf("projectsync: stop polling %s: %s", c.id, reason)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = Stopped
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
}

func (c *Client) replace(p model.Project) {
	c.replaceSilently(p)
	if c.opts.OnChange != nil {
		c.opts.OnChange(p.Clone())
	}
}

func (c *Client) replaceSilently(p model.Project) {
	c.mu.Lock()
	c.project = p.Clone()
	c.mu.Unlock()
}

func (c *Client) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

// Failures is the current count of consecutive failed polls.
func (c *Client) Failures() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.failures
}
