package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"taskquest/internal/model"
)

// Server drivers understood by OpenServer.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// SharedProjectRepo is the authoritative copy of shared projects kept by
// `tq serve`. Each project is one JSON document; writes are read-modify-write
// inside a transaction so concurrent subtask toggles on one project serialize.
type SharedProjectRepo struct {
	db *sqlx.DB
}

type sharedProjectRow struct {
	ID        string         `db:"id"`
	OwnerID   sql.NullString `db:"owner_id"`
	Data      string         `db:"data"`
	UpdatedAt string         `db:"updated_at"`
}

// OpenServer connects to the server database and creates the shared_projects table.
func OpenServer(ctx context.Context, driver, dsn string) (*sqlx.DB, error) {
	switch driver {
	case DriverSQLite:
		if dsn == "" {
			return nil, fmt.Errorf("open server db: empty sqlite path")
		}
		if err := os.MkdirAll(filepath.Dir(dsn), 0o755); err != nil {
			return nil, fmt.Errorf("create server db dir: %w", err)
		}
		dsn = "file:" + dsn + "?_pragma=busy_timeout(5000)"
	case DriverPostgres:
	default:
		return nil, fmt.Errorf("open server db: unsupported driver %q", driver)
	}

	db, err := sqlx.ConnectContext(ctx, driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", driver, err)
	}
	if _, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS shared_projects (
			id TEXT PRIMARY KEY,
			owner_id TEXT,
			data TEXT NOT NULL,
			updated_at TEXT NOT NULL
		)
	`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate shared_projects: %w", err)
	}
	return db, nil
}

func NewSharedProjectRepo(db *sqlx.DB) *SharedProjectRepo {
	return &SharedProjectRepo{db: db}
}

func (r *SharedProjectRepo) Get(ctx context.Context, id string) (*model.Project, error) {
	return r.get(ctx, r.db, id)
}

// UpsertDetails creates the project if it is new, otherwise overwrites its writable fields.
func (r *SharedProjectRepo) UpsertDetails(ctx context.Context, id string, d model.ProjectDetails) (*model.Project, error) {
	var out *model.Project
	err := r.inTx(ctx, func(tx *sqlx.Tx) error {
		p, err := r.get(ctx, tx, id)
		if err != nil && !errors.Is(err, model.ErrNotFound) {
			return err
		}
		if p == nil {
			p = &model.Project{ID: id, CreatedAt: time.Now().UTC()}
		}
		p.ApplyDetails(d)
		if p.IsShared {
			p.AddMember(p.OwnerID)
		} else {
			p.Unshare()
		}
		out = p
		return r.put(ctx, tx, *p)
	})
	return out, err
}

// AddMember marks the project shared and adds userID to its members. The first
// member of a project that has no owner yet becomes its owner.
func (r *SharedProjectRepo) AddMember(ctx context.Context, id, userID string) (*model.Project, error) {
	var out *model.Project
	err := r.inTx(ctx, func(tx *sqlx.Tx) error {
		p, err := r.get(ctx, tx, id)
		if err != nil {
			return err
		}
		owner := p.OwnerID
		if owner == "" {
			owner = userID
		}
		p.MarkShared(owner)
		p.AddMember(userID)
		out = p
		return r.put(ctx, tx, *p)
	})
	return out, err
}

// SetSubtask sets the completed flag of the subtask at index.
func (r *SharedProjectRepo) SetSubtask(ctx context.Context, id string, index int, completed bool) (*model.Project, error) {
	var out *model.Project
	err := r.inTx(ctx, func(tx *sqlx.Tx) error {
		p, err := r.get(ctx, tx, id)
		if err != nil {
			return err
		}
		if index < 0 || index >= len(p.Subtasks) {
			return fmt.Errorf("subtask index %d out of range [0,%d): %w", index, len(p.Subtasks), ErrIndexOutOfRange)
		}
		p.Subtasks[index].Completed = completed
		out = p
		return r.put(ctx, tx, *p)
	})
	return out, err
}

// ErrIndexOutOfRange is returned by SetSubtask for an index outside the subtask list.
var ErrIndexOutOfRange = errors.New("index out of range")

func (r *SharedProjectRepo) get(ctx context.Context, q sqlx.QueryerContext, id string) (*model.Project, error) {
	var row sharedProjectRow
	query := r.db.Rebind(`SELECT id, owner_id, data, updated_at FROM shared_projects WHERE id = ?`)
	if err := sqlx.GetContext(ctx, q, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("project %s: %w", id, model.ErrNotFound)
		}
		return nil, fmt.Errorf("shared project get: %w", err)
	}
	var p model.Project
	if err := json.Unmarshal([]byte(row.Data), &p); err != nil {
		return nil, fmt.Errorf("unmarshal shared project %s: %w", id, err)
	}
	p.ID = row.ID
	return &p, nil
}

func (r *SharedProjectRepo) put(ctx context.Context, tx *sqlx.Tx, p model.Project) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal shared project: %w", err)
	}
	row := sharedProjectRow{
		ID:        p.ID,
		OwnerID:   sql.NullString{String: p.OwnerID, Valid: p.OwnerID != ""},
		Data:      string(data),
		UpdatedAt: time.Now().UTC().Format(timeLayout),
	}
	_, err = tx.NamedExecContext(ctx, `
		INSERT INTO shared_projects (id, owner_id, data, updated_at)
		VALUES (:id, :owner_id, :data, :updated_at)
		ON CONFLICT (id) DO UPDATE SET
			owner_id = excluded.owner_id,
			data = excluded.data,
			updated_at = excluded.updated_at
	`, row)
	if err != nil {
		return fmt.Errorf("shared project put: %w", err)
	}
	return nil
}

func (r *SharedProjectRepo) inTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}
