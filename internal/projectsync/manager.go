package projectsync

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"taskquest/internal/model"
)

// Manager owns one Client per project. Poll loops run independently of each
// other; the manager only routes calls and tears loops down.
type Manager struct {
	ctx   context.Context
	store Store
	local LocalProjects
	opts  Options

	mu      sync.Mutex
	clients map[string]*Client
}

// NewManager creates a manager whose poll loops live until ctx is cancelled
// or Close is called.
func NewManager(ctx context.Context, store Store, local LocalProjects, opts Options) *Manager {
	return &Manager{
		ctx:     ctx,
		store:   store,
		local:   local,
		opts:    opts.withDefaults(),
		clients: map[string]*Client{},
	}
}

// Client returns the client for projectID, or nil.
func (m *Manager) Client(projectID string) *Client {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.clients[projectID]
}

func (m *Manager) clientFor(p model.Project) *Client {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.clients[p.ID]; ok {
		return c
	}
	c := NewClient(m.ctx, m.store, m.local, p, m.opts)
	m.clients[p.ID] = c
	return c
}

func (m *Manager) forget(projectID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.clients, projectID)
}

func (m *Manager) loadClient(ctx context.Context, projectID string) (*Client, error) {
	if c := m.Client(projectID); c != nil {
		return c, nil
	}
	p, err := m.local.LoadProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if !p.IsProject {
		return nil, fmt.Errorf("task %s is not a project", projectID)
	}
	return m.clientFor(*p), nil
}

// ShareProject shares a local project and returns its share code.
func (m *Manager) ShareProject(ctx context.Context, projectID, ownerID string) (string, error) {
	c, err := m.loadClient(ctx, projectID)
	if err != nil {
		return "", err
	}
	if err := c.Share(ctx, ownerID); err != nil {
		return "", err
	}
	return c.ProjectID(), nil
}

// JoinProject adds the project behind code to the local list and polls it.
// The joining user is registered as a member on a best-effort basis; the next
// poll picks up the new member list either way.
func (m *Manager) JoinProject(ctx context.Context, code, userID string) (*model.Project, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, ErrInvalidShareCode
	}

	_, known := m.lookup(code)
	c := m.clientFor(model.Project{ID: code})
	if err := c.Join(ctx); err != nil {
		if !known {
			m.forget(code)
		}
		return nil, err
	}

	if userID != "" {
		if err := m.store.ShareProject(ctx, code, userID); err != nil {
			m.opts.Logger.Printf("projectsync: register %s on %s: %v", userID, code, err)
		}
	}
	p := c.Project()
	return &p, nil
}

func (m *Manager) lookup(projectID string) (*Client, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.clients[projectID]
	return c, ok
}

func (m *Manager) ToggleSubtask(ctx context.Context, projectID string, index int, completed bool) error {
	c, err := m.loadClient(ctx, projectID)
	if err != nil {
		return err
	}
	return c.ToggleSubtask(ctx, index, completed)
}

func (m *Manager) UpdateDetails(ctx context.Context, projectID string, d model.ProjectDetails) error {
	c, err := m.loadClient(ctx, projectID)
	if err != nil {
		return err
	}
	return c.UpdateDetails(ctx, d)
}

// Watch starts polling a locally known shared project.
func (m *Manager) Watch(ctx context.Context, projectID string) (*Client, error) {
	c, err := m.loadClient(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if err := c.Start(); err != nil {
		return nil, err
	}
	return c, nil
}

// WatchAll starts polling every shared project in projects. Non-shared
// projects are skipped.
func (m *Manager) WatchAll(projects []model.Project) error {
	var errs []error
	for _, p := range projects {
		if !p.IsShared {
			continue
		}
		if err := m.clientFor(p).Start(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Stop ends polling for one project.
func (m *Manager) Stop(projectID string) {
	if c := m.Client(projectID); c != nil {
		c.Stop()
	}
}

// Close stops every poll loop.
func (m *Manager) Close() {
	m.mu.Lock()
	clients := make([]*Client, 0, len(m.clients))
	for _, c := range m.clients {
		clients = append(clients, c)
	}
	m.mu.Unlock()

	for _, c := range clients {
		c.Stop()
	}
}

// States reports the sync state of every known project.
func (m *Manager) States() map[string]State {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]State, len(m.clients))
	for id, c := range m.clients {
		out[id] = c.State()
	}
	return out
}
