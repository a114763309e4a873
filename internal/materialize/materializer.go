// Package materialize turns generated, in-memory artifacts into persisted
// entities with identifiers and versions.
package materialize

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/auraforge/orchestrator/internal/domain"
	"github.com/auraforge/orchestrator/internal/storage"
)

// Materializer assigns identity to generated artifacts and persists them.
type Materializer struct {
	store storage.Store
	now   func() time.Time
}

// New creates a materializer over the given store.
func New(store storage.Store) *Materializer {
	return &Materializer{store: store, now: func() time.Time { return time.Now().UTC() }}
}

// Slugify derives the URL-safe slug: lowercased, every run of
// non-alphanumeric characters collapsed to a single dash, trimmed.
func Slugify(name string) string {
	var b strings.Builder
	lastDash := true // suppress a leading dash
	for _, r := range strings.ToLower(name) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			lastDash = false
		} else if !lastDash {
			b.WriteByte('-')
			lastDash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

// LanguageForPath infers the file language from its extension; empty when
// there is none.
func LanguageForPath(p string) string {
	ext := path.Ext(p)
	if ext == "" {
		return ""
	}
	return strings.TrimPrefix(ext, ".")
}

// Materialize constructs a ready Project and version-1 ProjectFiles from a
// plan and generated file set, then persists them through the store in one
// save. When the save reports partial failure the project is deleted again
// so readers never observe a half-written project.
func (m *Materializer) Materialize(ctx context.Context, plan *domain.GeneratedProjectPlan, files []domain.GeneratedFile, req domain.GenerationRequest) (*domain.Project, []domain.ProjectFile, error) {
	now := m.now()

	project := &domain.Project{
		ID:            "proj_" + uuid.New().String(),
		UserID:        req.UserID,
		Name:          plan.Name,
		Slug:          Slugify(plan.Name),
		Prompt:        req.Prompt,
		TemplateType:  req.TemplateType,
		PrimaryTarget: req.PrimaryTarget,
		Status:        domain.StatusReady,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	projectFiles, err := m.stampFiles(project.ID, files, now)
	if err != nil {
		return nil, nil, err
	}

	if err := m.store.SaveProject(ctx, project, projectFiles); err != nil {
		// The store is expected to save atomically; compensate anyway in
		// case the backend cannot, so no partial project stays visible.
		// The cleanup runs on its own context: a canceled request must not
		// leave the partial write behind either.
		cleanupCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if delErr := m.store.DeleteProject(cleanupCtx, project.ID); delErr != nil {
			return nil, nil, domain.ErrStorage("save failed and rollback incomplete", fmt.Errorf("%w (rollback: %v)", err, delErr))
		}
		return nil, nil, domain.ErrStorage("save project", err)
	}

	return project, projectFiles, nil
}

func (m *Materializer) stampFiles(projectID string, files []domain.GeneratedFile, now time.Time) ([]domain.ProjectFile, error) {
	seen := make(map[string]bool, len(files))
	out := make([]domain.ProjectFile, 0, len(files))

	for _, f := range files {
		if f.Path == "" {
			return nil, domain.ErrInvalidRequest("generated file has empty path")
		}
		if seen[f.Path] {
			return nil, domain.ErrInvalidRequest("generated file set duplicates path " + f.Path)
		}
		seen[f.Path] = true

		out = append(out, domain.ProjectFile{
			ID:          "f_" + uuid.New().String(),
			ProjectID:   projectID,
			Path:        f.Path,
			Content:     f.Content,
			Language:    LanguageForPath(f.Path),
			GeneratedBy: domain.GeneratedByAI,
			Version:     1,
			CreatedAt:   now,
			UpdatedAt:   now,
		})
	}

	return out, nil
}

// Rematerialize diffs freshly generated files against a project's stored
// set and persists only the delta: changed paths get version+1, new paths
// start at version 1, untouched and byte-identical paths are left alone.
// It returns the number of files written. Zero changes mean zero writes.
func (m *Materializer) Rematerialize(ctx context.Context, project *domain.Project, files []domain.GeneratedFile) (int, error) {
	existing, err := m.store.ListFiles(ctx, project.ID)
	if err != nil {
		return 0, domain.ErrStorage("list files", err)
	}

	byPath := make(map[string]domain.ProjectFile, len(existing))
	for _, f := range existing {
		byPath[f.Path] = f
	}

	now := m.now()
	var delta []domain.ProjectFile
	seen := make(map[string]bool, len(files))

	for _, f := range files {
		if f.Path == "" {
			return 0, domain.ErrInvalidRequest("generated file has empty path")
		}
		if seen[f.Path] {
			return 0, domain.ErrInvalidRequest("generated file set duplicates path " + f.Path)
		}
		seen[f.Path] = true

		prev, exists := byPath[f.Path]
		if exists && prev.Content == f.Content {
			continue
		}

		next := domain.ProjectFile{
			ID:          "f_" + uuid.New().String(),
			ProjectID:   project.ID,
			Path:        f.Path,
			Content:     f.Content,
			Language:    LanguageForPath(f.Path),
			GeneratedBy: domain.GeneratedByAI,
			Version:     1,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if exists {
			next.ID = prev.ID
			next.Version = prev.Version + 1
			next.CreatedAt = prev.CreatedAt
		}
		delta = append(delta, next)
	}

	if len(delta) == 0 {
		return 0, nil
	}

	if err := m.store.UpsertFiles(ctx, project.ID, delta); err != nil {
		return 0, domain.ErrStorage("upsert files", err)
	}

	return len(delta), nil
}
