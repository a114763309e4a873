package openaicompat

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/auraforge/orchestrator/internal/domain"
)

func replyWith(t *testing.T, content string) http.HandlerFunc {
	t.Helper()
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("Authorization = %q", got)
		}

		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.Model == "" {
			t.Error("request missing model")
		}

		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"role": "assistant", "content": content}},
			},
		})
	}
}

func testProvider(baseURL string) domain.ModelProvider {
	return domain.ModelProvider{
		ID:           "m1",
		Name:         "Test",
		ModelID:      "test-model",
		BaseURL:      baseURL,
		Capabilities: []string{"code"},
		CostTier:     domain.CostTierFree,
		Enabled:      true,
	}
}

func keyFor(string) string { return "test-key" }

func TestGeneratePlan(t *testing.T) {
	srv := httptest.NewServer(replyWith(t, `{"name":"Todo App","targets":["web"],"pages":["home"],"components":["nav-bar"]}`))
	defer srv.Close()

	a := New(keyFor)
	plan, err := a.GeneratePlan(context.Background(), testProvider(srv.URL), domain.GenerationRequest{
		Prompt:        "Build a minimal todo app with local storage",
		TemplateType:  domain.TemplateApp,
		PrimaryTarget: domain.TargetWeb,
	})
	if err != nil {
		t.Fatalf("GeneratePlan() error = %v", err)
	}
	if plan.Name != "Todo App" {
		t.Errorf("Name = %q", plan.Name)
	}
	if len(plan.Pages) != 1 || plan.Pages[0] != "home" {
		t.Errorf("Pages = %v", plan.Pages)
	}
}

func TestGeneratePlan_FencedReply(t *testing.T) {
	srv := httptest.NewServer(replyWith(t, "```json\n{\"name\":\"Todo App\",\"targets\":[\"web\"],\"pages\":[\"home\"],\"components\":[]}\n```"))
	defer srv.Close()

	a := New(keyFor)
	plan, err := a.GeneratePlan(context.Background(), testProvider(srv.URL), domain.GenerationRequest{Prompt: "Build a todo app", PrimaryTarget: domain.TargetWeb})
	if err != nil {
		t.Fatalf("GeneratePlan() error = %v", err)
	}
	if plan.Name != "Todo App" {
		t.Errorf("fenced reply not parsed: %q", plan.Name)
	}
}

func TestGeneratePlan_DefaultsTargets(t *testing.T) {
	srv := httptest.NewServer(replyWith(t, `{"name":"Todo App","pages":["home"],"components":[]}`))
	defer srv.Close()

	a := New(keyFor)
	plan, err := a.GeneratePlan(context.Background(), testProvider(srv.URL), domain.GenerationRequest{Prompt: "Build a todo app", PrimaryTarget: domain.TargetMobile})
	if err != nil {
		t.Fatal(err)
	}
	if len(plan.Targets) != 1 || plan.Targets[0] != domain.TargetMobile {
		t.Errorf("Targets = %v, want [mobile]", plan.Targets)
	}
}

func TestGenerateFiles(t *testing.T) {
	srv := httptest.NewServer(replyWith(t, `{"files":[{"path":"app/page.tsx","content":"export default function Page() {}"},{"path":"package.json","content":"{}"}]}`))
	defer srv.Close()

	a := New(keyFor)
	plan := &domain.GeneratedProjectPlan{Name: "Todo App", Pages: []string{"home"}}
	files, err := a.GenerateFiles(context.Background(), testProvider(srv.URL), plan, "Build a todo app")
	if err != nil {
		t.Fatalf("GenerateFiles() error = %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("got %d files, want 2", len(files))
	}
}

func TestGenerateFiles_RejectsDuplicatePaths(t *testing.T) {
	srv := httptest.NewServer(replyWith(t, `{"files":[{"path":"a.ts","content":"x"},{"path":"a.ts","content":"y"}]}`))
	defer srv.Close()

	a := New(keyFor)
	_, err := a.GenerateFiles(context.Background(), testProvider(srv.URL), &domain.GeneratedProjectPlan{Name: "X"}, "p")
	if err == nil {
		t.Error("duplicate paths should fail")
	}
}

func TestComplete_UpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":{"message":"rate limited"}}`))
	}))
	defer srv.Close()

	a := New(keyFor)
	_, err := a.GeneratePlan(context.Background(), testProvider(srv.URL), domain.GenerationRequest{Prompt: "Build a todo app"})
	if err == nil {
		t.Error("non-200 upstream should fail")
	}
}

func TestComplete_Timeout(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-block
	}))
	defer srv.Close()
	defer close(block)

	a := New(keyFor)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := a.GeneratePlan(ctx, testProvider(srv.URL), domain.GenerationRequest{Prompt: "Build a todo app"})
	if err == nil {
		t.Error("deadline should fail the call")
	}
}
