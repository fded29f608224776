package root

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log"
	"strings"

	"taskquest/internal/config"
	"taskquest/internal/engine"
	"taskquest/internal/model"
	"taskquest/internal/notify"
	"taskquest/internal/projectsync"
	"taskquest/internal/remote"
	"taskquest/internal/storage"
)

// session bundles what most commands need.
type session struct {
	cfg *config.Config
	svc *engine.Service
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}
	if dbPath != "" {
		cfg.DBPath = dbPath
	}
	return cfg, nil
}

func openDB(ctx context.Context, cfg *config.Config) (*sql.DB, func(), error) {
	path, err := storage.ResolveDBPath(cfg.DBPath)
	if err != nil {
		return nil, nil, err
	}
	db, err := storage.Open(ctx, path)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		_ = db.Close()
	}
	return db, cleanup, nil
}

// openService opens the session database. Level-up and badge notices go to out.
func openService(ctx context.Context, out io.Writer) (*session, func(), error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, nil, err
	}
	db, cleanup, err := openDB(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	svc, err := engine.NewService(ctx, db,
		engine.WithLocation(loc),
		engine.WithNotifier(notify.New(out, storage.NewBadgeRepo(db), log.Default())),
	)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	return &session{cfg: cfg, svc: svc}, cleanup, nil
}

// syncManager connects to the configured project server. logger and onChange
// may be nil.
func (s *session) syncManager(ctx context.Context, logger *log.Logger, onChange func(model.Project)) (*projectsync.Manager, error) {
	rc, err := remote.New(s.cfg.Sync.ServerURL, s.cfg.Sync.RequestTimeout)
	if err != nil {
		return nil, err
	}
	return projectsync.NewManager(ctx, rc, s.svc, projectsync.Options{
		PollInterval: s.cfg.Sync.PollInterval,
		MaxFailures:  s.cfg.Sync.MaxFailures,
		Logger:       logger,
		OnChange:     onChange,
	}), nil
}

// resolveTaskID accepts a full task ID or a unique prefix of one.
func resolveTaskID(ctx context.Context, svc *engine.Service, arg string) (string, error) {
	arg = strings.TrimSpace(arg)
	if arg == "" {
		return "", fmt.Errorf("task id is required")
	}
	tasks, err := svc.TaskRepo().ListAll(ctx)
	if err != nil {
		return "", err
	}
	var matches []string
	for _, t := range tasks {
		if t.ID == arg {
			return t.ID, nil
		}
		if strings.HasPrefix(t.ID, arg) {
			matches = append(matches, t.ID)
		}
	}
	switch len(matches) {
	case 0:
		return "", fmt.Errorf("task %s: %w", arg, engine.ErrTaskNotFound)
	case 1:
		return matches[0], nil
	default:
		return "", fmt.Errorf("task id %q is ambiguous (%d matches)", arg, len(matches))
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
