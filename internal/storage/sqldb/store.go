// Package sqldb is the SQL implementation of the storage boundary, backed
// by SQLite through the pure-Go modernc driver.
package sqldb

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/auraforge/orchestrator/internal/domain"
	"github.com/auraforge/orchestrator/internal/storage"
)

// Store persists projects, files, and trace events in SQLite. SaveProject
// runs in a transaction, so the atomicity the materializer expects holds
// without compensation.
type Store struct {
	db *sqlx.DB
}

var _ storage.Store = (*Store)(nil)

// New opens (creating if needed) the database at path and initializes the
// schema.
func New(path string) (*Store, error) {
	db, err := sqlx.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("execute pragma: %w", err)
		}
	}

	s := &Store{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return s, nil
}

func (s *Store) initSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS projects (
id TEXT PRIMARY KEY,
user_id TEXT NOT NULL,
name TEXT NOT NULL,
slug TEXT NOT NULL,
prompt TEXT NOT NULL,
template_type TEXT NOT NULL,
primary_target TEXT NOT NULL,
status TEXT NOT NULL,
created_at TIMESTAMP NOT NULL,
updated_at TIMESTAMP NOT NULL
)`,
		`CREATE TABLE IF NOT EXISTS project_files (
id TEXT PRIMARY KEY,
project_id TEXT NOT NULL,
path TEXT NOT NULL,
content TEXT NOT NULL,
language TEXT,
generated_by TEXT NOT NULL,
version INTEGER NOT NULL,
created_at TIMESTAMP NOT NULL,
updated_at TIMESTAMP NOT NULL,
UNIQUE (project_id, path),
FOREIGN KEY (project_id) REFERENCES projects(id) ON DELETE CASCADE
)`,
		`CREATE TABLE IF NOT EXISTS trace_events (
id TEXT PRIMARY KEY,
project_id TEXT,
kind TEXT NOT NULL,
status TEXT NOT NULL,
metadata TEXT,
created_at TIMESTAMP NOT NULL
)`,
		`CREATE INDEX IF NOT EXISTS idx_project_files_project ON project_files(project_id)`,
		`CREATE INDEX IF NOT EXISTS idx_trace_events_project ON trace_events(project_id, created_at)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
	}
	return nil
}

type projectRow struct {
	ID            string    `db:"id"`
	UserID        string    `db:"user_id"`
	Name          string    `db:"name"`
	Slug          string    `db:"slug"`
	Prompt        string    `db:"prompt"`
	TemplateType  string    `db:"template_type"`
	PrimaryTarget string    `db:"primary_target"`
	Status        string    `db:"status"`
	CreatedAt     time.Time `db:"created_at"`
	UpdatedAt     time.Time `db:"updated_at"`
}

func (r projectRow) toDomain() *domain.Project {
	return &domain.Project{
		ID:            r.ID,
		UserID:        r.UserID,
		Name:          r.Name,
		Slug:          r.Slug,
		Prompt:        r.Prompt,
		TemplateType:  domain.TemplateType(r.TemplateType),
		PrimaryTarget: domain.TargetType(r.PrimaryTarget),
		Status:        domain.ProjectStatus(r.Status),
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
}

type fileRow struct {
	ID          string         `db:"id"`
	ProjectID   string         `db:"project_id"`
	Path        string         `db:"path"`
	Content     string         `db:"content"`
	Language    sql.NullString `db:"language"`
	GeneratedBy string         `db:"generated_by"`
	Version     int            `db:"version"`
	CreatedAt   time.Time      `db:"created_at"`
	UpdatedAt   time.Time      `db:"updated_at"`
}

func (r fileRow) toDomain() domain.ProjectFile {
	return domain.ProjectFile{
		ID:          r.ID,
		ProjectID:   r.ProjectID,
		Path:        r.Path,
		Content:     r.Content,
		Language:    r.Language.String,
		GeneratedBy: domain.GeneratedBy(r.GeneratedBy),
		Version:     r.Version,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

func (s *Store) SaveProject(ctx context.Context, project *domain.Project, files []domain.ProjectFile) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO projects (id, user_id, name, slug, prompt, template_type, primary_target, status, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		project.ID, project.UserID, project.Name, project.Slug, project.Prompt,
		string(project.TemplateType), string(project.PrimaryTarget), string(project.Status),
		project.CreatedAt, project.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert project: %w", err)
	}

	for _, f := range files {
		if err := insertFile(ctx, tx, f); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func insertFile(ctx context.Context, tx *sqlx.Tx, f domain.ProjectFile) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO project_files (id, project_id, path, content, language, generated_by, version, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (project_id, path) DO UPDATE SET
content = excluded.content,
language = excluded.language,
generated_by = excluded.generated_by,
version = excluded.version,
updated_at = excluded.updated_at`,
		f.ID, f.ProjectID, f.Path, f.Content, nullable(f.Language),
		string(f.GeneratedBy), f.Version, f.CreatedAt, f.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert file %s: %w", f.Path, err)
	}
	return nil
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func (s *Store) GetProject(ctx context.Context, id string) (*domain.Project, error) {
	var row projectRow
	err := s.db.GetContext(ctx, &row, `SELECT * FROM projects WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound("project " + id + " not found")
	}
	if err != nil {
		return nil, fmt.Errorf("get project: %w", err)
	}
	return row.toDomain(), nil
}

func (s *Store) ListFiles(ctx context.Context, projectID string) ([]domain.ProjectFile, error) {
	var rows []fileRow
	err := s.db.SelectContext(ctx, &rows,
		`SELECT * FROM project_files WHERE project_id = ? ORDER BY path`, projectID)
	if err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}

	files := make([]domain.ProjectFile, 0, len(rows))
	for _, r := range rows {
		files = append(files, r.toDomain())
	}
	return files, nil
}

func (s *Store) UpsertFiles(ctx context.Context, projectID string, files []domain.ProjectFile) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, f := range files {
		if err := insertFile(ctx, tx, f); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (s *Store) UpdateProjectStatus(ctx context.Context, id string, status domain.ProjectStatus) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE projects SET status = ?, updated_at = ? WHERE id = ?`,
		string(status), time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("update status: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.ErrNotFound("project " + id + " not found")
	}
	return nil
}

func (s *Store) DeleteProject(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM project_files WHERE project_id = ?`, id); err != nil {
		return fmt.Errorf("delete files: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM projects WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete project: %w", err)
	}
	return nil
}

func (s *Store) AppendTrace(ctx context.Context, event *domain.TraceEvent) error {
	meta, err := json.Marshal(event.Metadata)
	if err != nil {
		return fmt.Errorf("marshal trace metadata: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO trace_events (id, project_id, kind, status, metadata, created_at)
VALUES (?, ?, ?, ?, ?, ?)`,
		event.ID, nullable(event.ProjectID), string(event.Kind), string(event.Status),
		string(meta), event.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert trace event: %w", err)
	}
	return nil
}

func (s *Store) ListTraces(ctx context.Context, projectID string) ([]domain.TraceEvent, error) {
	type traceRow struct {
		ID        string         `db:"id"`
		ProjectID sql.NullString `db:"project_id"`
		Kind      string         `db:"kind"`
		Status    string         `db:"status"`
		Metadata  sql.NullString `db:"metadata"`
		CreatedAt time.Time      `db:"created_at"`
	}

	query := `SELECT * FROM trace_events ORDER BY created_at`
	args := []any{}
	if projectID != "" {
		query = `SELECT * FROM trace_events WHERE project_id = ? ORDER BY created_at`
		args = append(args, projectID)
	}

	var rows []traceRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list trace events: %w", err)
	}

	events := make([]domain.TraceEvent, 0, len(rows))
	for _, r := range rows {
		ev := domain.TraceEvent{
			ID:        r.ID,
			ProjectID: r.ProjectID.String,
			Kind:      domain.TraceKind(r.Kind),
			Status:    domain.TraceStatus(r.Status),
			CreatedAt: r.CreatedAt,
		}
		if r.Metadata.Valid && r.Metadata.String != "" {
			if err := json.Unmarshal([]byte(r.Metadata.String), &ev.Metadata); err != nil {
				return nil, fmt.Errorf("unmarshal trace metadata: %w", err)
			}
		}
		events = append(events, ev)
	}
	return events, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}
