package materialize

import (
	"context"
	"errors"
	"testing"

	"github.com/auraforge/orchestrator/internal/domain"
	"github.com/auraforge/orchestrator/internal/storage"
	"github.com/auraforge/orchestrator/internal/storage/memory"
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"Todo App", "todo-app"},
		{"AI Wallet App", "ai-wallet-app"},
		{"Hello,  World!!", "hello-world"},
		{"  leading & trailing  ", "leading-trailing"},
		{"already-a-slug", "already-a-slug"},
		{"UPPER case 123", "upper-case-123"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Slugify(tt.name); got != tt.want {
				t.Errorf("Slugify(%q) = %q, want %q", tt.name, got, tt.want)
			}
		})
	}
}

func TestLanguageForPath(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"app/page.tsx", "tsx"},
		{"app/globals.css", "css"},
		{"package.json", "json"},
		{"Makefile", ""},
		{"src/main.go", "go"},
	}

	for _, tt := range tests {
		if got := LanguageForPath(tt.path); got != tt.want {
			t.Errorf("LanguageForPath(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func sampleRequest() domain.GenerationRequest {
	return domain.GenerationRequest{
		Prompt:        "Build a minimal todo app with local storage",
		TemplateType:  domain.TemplateApp,
		PrimaryTarget: domain.TargetWeb,
		UserID:        "user_1",
	}
}

func samplePlan() *domain.GeneratedProjectPlan {
	return &domain.GeneratedProjectPlan{
		Name:    "Todo App",
		Targets: []domain.TargetType{domain.TargetWeb},
		Pages:   []string{"home"},
	}
}

func sampleGenerated() []domain.GeneratedFile {
	return []domain.GeneratedFile{
		{Path: "app/page.tsx", Content: "page"},
		{Path: "package.json", Content: "{}"},
	}
}

func TestMaterialize(t *testing.T) {
	store := memory.New()
	m := New(store)
	ctx := context.Background()

	project, files, err := m.Materialize(ctx, samplePlan(), sampleGenerated(), sampleRequest())
	if err != nil {
		t.Fatalf("Materialize() error = %v", err)
	}

	if project.Slug != "todo-app" {
		t.Errorf("Slug = %q, want todo-app", project.Slug)
	}
	if project.Status != domain.StatusReady {
		t.Errorf("Status = %q, want ready", project.Status)
	}
	if len(files) != 2 {
		t.Fatalf("%d files, want 2", len(files))
	}
	for _, f := range files {
		if f.Version != 1 {
			t.Errorf("%s version = %d, want 1", f.Path, f.Version)
		}
		if f.GeneratedBy != domain.GeneratedByAI {
			t.Errorf("%s generatedBy = %q, want ai", f.Path, f.GeneratedBy)
		}
	}

	// Visible through the store's own read path.
	stored, err := store.GetProject(ctx, project.ID)
	if err != nil {
		t.Fatalf("GetProject() error = %v", err)
	}
	if stored.Name != "Todo App" {
		t.Errorf("stored name = %q", stored.Name)
	}
}

func TestMaterialize_DuplicatePath(t *testing.T) {
	m := New(memory.New())
	files := []domain.GeneratedFile{
		{Path: "a.ts", Content: "x"},
		{Path: "a.ts", Content: "y"},
	}
	_, _, err := m.Materialize(context.Background(), samplePlan(), files, sampleRequest())
	if !domain.IsType(err, domain.ErrorTypeInvalidRequest) {
		t.Errorf("error = %v, want invalid_request", err)
	}
}

// failingStore wraps the memory store: SaveProject leaves a partial write
// behind and reports failure, while the rollback delete goes through.
type failingStore struct {
	storage.Store
	savedID string
}

func (s *failingStore) SaveProject(ctx context.Context, project *domain.Project, files []domain.ProjectFile) error {
	s.savedID = project.ID
	_ = s.Store.SaveProject(ctx, project, files[:1])
	return errors.New("disk full")
}

func TestMaterialize_RollbackOnSaveFailure(t *testing.T) {
	inner := memory.New()
	spy := &failingStore{Store: inner}
	m := New(spy)
	ctx := context.Background()

	_, _, err := m.Materialize(ctx, samplePlan(), sampleGenerated(), sampleRequest())
	if !domain.IsType(err, domain.ErrorTypeStorage) {
		t.Fatalf("error = %v, want storage", err)
	}

	// The partial write must not be visible afterwards.
	if _, err := inner.GetProject(ctx, spy.savedID); !domain.IsType(err, domain.ErrorTypeNotFound) {
		t.Errorf("partial project still visible, err = %v", err)
	}
	files, _ := inner.ListFiles(ctx, spy.savedID)
	if len(files) != 0 {
		t.Errorf("%d partial files still visible", len(files))
	}
}

func TestRematerialize_Idempotent(t *testing.T) {
	store := memory.New()
	m := New(store)
	ctx := context.Background()

	project, _, err := m.Materialize(ctx, samplePlan(), sampleGenerated(), sampleRequest())
	if err != nil {
		t.Fatal(err)
	}

	// Byte-identical regeneration: nothing changes.
	changed, err := m.Rematerialize(ctx, project, sampleGenerated())
	if err != nil {
		t.Fatalf("Rematerialize() error = %v", err)
	}
	if changed != 0 {
		t.Errorf("changed = %d, want 0 for identical content", changed)
	}

	files, _ := store.ListFiles(ctx, project.ID)
	for _, f := range files {
		if f.Version != 1 {
			t.Errorf("%s version = %d, want 1 after identical regen", f.Path, f.Version)
		}
	}
}

func TestRematerialize_VersionMonotonicity(t *testing.T) {
	store := memory.New()
	m := New(store)
	ctx := context.Background()

	project, _, err := m.Materialize(ctx, samplePlan(), sampleGenerated(), sampleRequest())
	if err != nil {
		t.Fatal(err)
	}

	// One file changed, one untouched, one new.
	next := []domain.GeneratedFile{
		{Path: "app/page.tsx", Content: "page v2"},
		{Path: "package.json", Content: "{}"},
		{Path: "app/new.tsx", Content: "new"},
	}
	changed, err := m.Rematerialize(ctx, project, next)
	if err != nil {
		t.Fatal(err)
	}
	if changed != 2 {
		t.Errorf("changed = %d, want 2 (one bump, one new)", changed)
	}

	files, _ := store.ListFiles(ctx, project.ID)
	byPath := make(map[string]domain.ProjectFile)
	for _, f := range files {
		byPath[f.Path] = f
	}

	if v := byPath["app/page.tsx"].Version; v != 2 {
		t.Errorf("changed file version = %d, want 2", v)
	}
	if v := byPath["package.json"].Version; v != 1 {
		t.Errorf("untouched file version = %d, want 1", v)
	}
	if v := byPath["app/new.tsx"].Version; v != 1 {
		t.Errorf("new file version = %d, want 1", v)
	}

	// A second pass with the same content is a no-op.
	changed, err = m.Rematerialize(ctx, project, next)
	if err != nil {
		t.Fatal(err)
	}
	if changed != 0 {
		t.Errorf("second pass changed = %d, want 0", changed)
	}
}

func TestRematerialize_AbsentFilesUntouched(t *testing.T) {
	store := memory.New()
	m := New(store)
	ctx := context.Background()

	project, _, err := m.Materialize(ctx, samplePlan(), sampleGenerated(), sampleRequest())
	if err != nil {
		t.Fatal(err)
	}

	// Regeneration output omits package.json; it must survive untouched.
	changed, err := m.Rematerialize(ctx, project, []domain.GeneratedFile{
		{Path: "app/page.tsx", Content: "page v2"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if changed != 1 {
		t.Errorf("changed = %d, want 1", changed)
	}

	files, _ := store.ListFiles(ctx, project.ID)
	found := false
	for _, f := range files {
		if f.Path == "package.json" {
			found = true
			if f.Version != 1 {
				t.Errorf("package.json version = %d, want 1", f.Version)
			}
		}
	}
	if !found {
		t.Error("package.json was removed by regeneration")
	}
}
