// Package storage defines the persistence boundary consumed by the
// orchestration core. Any backend satisfying Store works: the service ships
// an in-memory store for tests and development and a SQL store for real use.
package storage

import (
	"context"

	"github.com/auraforge/orchestrator/internal/domain"
)

// Store persists projects, their files, and the audit trail.
//
// SaveProject is expected to be atomic: either the project and all its files
// become visible together, or nothing does. Backends that cannot guarantee
// that must document it so the materializer can compensate with a rollback.
type Store interface {
	// SaveProject persists a project and its initial file set atomically.
	SaveProject(ctx context.Context, project *domain.Project, files []domain.ProjectFile) error

	// GetProject retrieves a project by id.
	GetProject(ctx context.Context, id string) (*domain.Project, error)

	// ListFiles returns a project's files ordered by path.
	ListFiles(ctx context.Context, projectID string) ([]domain.ProjectFile, error)

	// UpsertFiles inserts new files and replaces changed ones, keyed by
	// (projectID, path). Callers stamp versions; the store writes what it
	// is given.
	UpsertFiles(ctx context.Context, projectID string, files []domain.ProjectFile) error

	// UpdateProjectStatus moves a project through its lifecycle.
	UpdateProjectStatus(ctx context.Context, id string, status domain.ProjectStatus) error

	// DeleteProject removes a project and all its files. Used as rollback
	// compensation after a partial save.
	DeleteProject(ctx context.Context, id string) error

	// AppendTrace appends an immutable audit event.
	AppendTrace(ctx context.Context, event *domain.TraceEvent) error

	// ListTraces returns a project's audit events ordered by time.
	ListTraces(ctx context.Context, projectID string) ([]domain.TraceEvent, error)

	// Close releases backend resources.
	Close() error
}
