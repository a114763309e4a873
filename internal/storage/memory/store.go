// Package memory is an in-memory Store used in tests and local development.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/auraforge/orchestrator/internal/domain"
	"github.com/auraforge/orchestrator/internal/storage"
)

// Store keeps all state behind one mutex. Saves are trivially atomic.
type Store struct {
	mu       sync.RWMutex
	projects map[string]*domain.Project
	files    map[string]map[string]domain.ProjectFile // projectID -> path -> file
	traces   []domain.TraceEvent
}

var _ storage.Store = (*Store)(nil)

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		projects: make(map[string]*domain.Project),
		files:    make(map[string]map[string]domain.ProjectFile),
	}
}

func (s *Store) SaveProject(ctx context.Context, project *domain.Project, files []domain.ProjectFile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.projects[project.ID]; exists {
		return domain.ErrConflict("project " + project.ID + " already exists")
	}

	p := *project
	s.projects[p.ID] = &p

	byPath := make(map[string]domain.ProjectFile, len(files))
	for _, f := range files {
		byPath[f.Path] = f
	}
	s.files[p.ID] = byPath

	return nil
}

func (s *Store) GetProject(ctx context.Context, id string) (*domain.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, exists := s.projects[id]
	if !exists {
		return nil, domain.ErrNotFound("project " + id + " not found")
	}

	out := *p
	return &out, nil
}

func (s *Store) ListFiles(ctx context.Context, projectID string) ([]domain.ProjectFile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byPath, exists := s.files[projectID]
	if !exists {
		return nil, nil
	}

	out := make([]domain.ProjectFile, 0, len(byPath))
	for _, f := range byPath {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}

func (s *Store) UpsertFiles(ctx context.Context, projectID string, files []domain.ProjectFile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.projects[projectID]; !exists {
		return domain.ErrNotFound("project " + projectID + " not found")
	}

	byPath := s.files[projectID]
	if byPath == nil {
		byPath = make(map[string]domain.ProjectFile)
		s.files[projectID] = byPath
	}
	for _, f := range files {
		byPath[f.Path] = f
	}

	return nil
}

func (s *Store) UpdateProjectStatus(ctx context.Context, id string, status domain.ProjectStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, exists := s.projects[id]
	if !exists {
		return domain.ErrNotFound("project " + id + " not found")
	}

	p.Status = status
	return nil
}

func (s *Store) DeleteProject(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.projects, id)
	delete(s.files, id)
	return nil
}

func (s *Store) AppendTrace(ctx context.Context, event *domain.TraceEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.traces = append(s.traces, *event)
	return nil
}

func (s *Store) ListTraces(ctx context.Context, projectID string) ([]domain.TraceEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.TraceEvent
	for _, ev := range s.traces {
		if projectID == "" || ev.ProjectID == projectID {
			out = append(out, ev)
		}
	}
	return out, nil
}

func (s *Store) Close() error {
	return nil
}
