package project

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/refract/refract-studio/internal/timeline"
)

type Repository interface {
	CreateProject(ctx context.Context, p *Project) error
	GetProject(ctx context.Context, id string) (*Project, error)
	ListProjects(ctx context.Context) ([]*Project, error)
	ReplaceProject(ctx context.Context, p *Project) error
	DeleteProject(ctx context.Context, id string) error
	SaveTimeline(ctx context.Context, id string, clips []timeline.Clip, savedAt time.Time) error
	CountProjects(ctx context.Context) (int, error)

	GetConfig(ctx context.Context, key string) (string, error)
	SetConfig(ctx context.Context, key, value string) error
}

type SQLiteRepository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const projectColumns = `id, name, workflow, timeline, timeline_saved_at, created_at, updated_at`

func (r *SQLiteRepository) CreateProject(ctx context.Context, p *Project) error {
	workflow, err := json.Marshal(p.Workflow)
	if err != nil {
		return fmt.Errorf("encode workflow: %w", err)
	}
	tl, err := encodeTimeline(p.Timeline)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO projects (id, name, workflow, timeline, timeline_saved_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, p.ID, p.Name, string(workflow), tl, nullTime(p.TimelineSavedAt),
		p.CreatedAt.Format(time.RFC3339), p.UpdatedAt.Format(time.RFC3339))
	return err
}

func (r *SQLiteRepository) GetProject(ctx context.Context, id string) (*Project, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+projectColumns+` FROM projects WHERE id = ?`, id)
	p, err := scanProject(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return p, err
}

func (r *SQLiteRepository) ListProjects(ctx context.Context) ([]*Project, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+projectColumns+`
		FROM projects ORDER BY updated_at DESC, created_at DESC, id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var projects []*Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

// ReplaceProject overwrites name, workflow and updated_at. The saved timeline
// is left alone. Returns ErrNotFound when no row matches.
func (r *SQLiteRepository) ReplaceProject(ctx context.Context, p *Project) error {
	workflow, err := json.Marshal(p.Workflow)
	if err != nil {
		return fmt.Errorf("encode workflow: %w", err)
	}

	res, err := r.db.ExecContext(ctx, `
		UPDATE projects SET name = ?, workflow = ?, updated_at = ? WHERE id = ?
	`, p.Name, string(workflow), p.UpdatedAt.Format(time.RFC3339), p.ID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *SQLiteRepository) DeleteProject(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM projects WHERE id = ?", id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *SQLiteRepository) SaveTimeline(ctx context.Context, id string, clips []timeline.Clip, savedAt time.Time) error {
	tl, err := encodeTimeline(clips)
	if err != nil {
		return err
	}

	stamp := savedAt.Format(time.RFC3339)
	res, err := r.db.ExecContext(ctx, `
		UPDATE projects SET timeline = ?, timeline_saved_at = ?, updated_at = ? WHERE id = ?
	`, tl, stamp, stamp, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *SQLiteRepository) CountProjects(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM projects").Scan(&count)
	return count, err
}

func (r *SQLiteRepository) GetConfig(ctx context.Context, key string) (string, error) {
	var value string
	err := r.db.QueryRowContext(ctx, "SELECT value FROM config WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return value, err
}

func (r *SQLiteRepository) SetConfig(ctx context.Context, key, value string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO config (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProject(row rowScanner) (*Project, error) {
	var p Project
	var workflow string
	var tl, savedAt sql.NullString
	var createdAt, updatedAt string

	if err := row.Scan(&p.ID, &p.Name, &workflow, &tl, &savedAt, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(workflow), &p.Workflow); err != nil {
		return nil, fmt.Errorf("decode workflow for project %s: %w", p.ID, err)
	}
	p.Workflow.normalize()

	if tl.Valid && tl.String != "" {
		if err := json.Unmarshal([]byte(tl.String), &p.Timeline); err != nil {
			return nil, fmt.Errorf("decode timeline for project %s: %w", p.ID, err)
		}
	}
	if savedAt.Valid {
		if t, err := time.Parse(time.RFC3339, savedAt.String); err == nil {
			p.TimelineSavedAt = &t
		}
	}

	p.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	p.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return &p, nil
}

func encodeTimeline(clips []timeline.Clip) (sql.NullString, error) {
	if clips == nil {
		return sql.NullString{}, nil
	}
	b, err := json.Marshal(clips)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("encode timeline: %w", err)
	}
	return sql.NullString{String: string(b), Valid: true}, nil
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func nullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: t.Format(time.RFC3339), Valid: true}
}
