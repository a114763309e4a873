// Package openaicompat is a ModelAdapter speaking the OpenAI
// chat-completions wire format. Any vendor exposing a compatible endpoint
// (OpenAI, Google, xAI, DeepSeek, or a local server) is reachable through
// it; the provider catalog supplies the base URL and model id per entry.
package openaicompat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/auraforge/orchestrator/internal/adapter"
	"github.com/auraforge/orchestrator/internal/domain"
)

const defaultBaseURL = "https://api.openai.com/v1"

// Option configures the adapter.
type Option func(*Adapter)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(a *Adapter) {
		a.httpClient = c
	}
}

// KeyFunc resolves the API key for a provider. Keys live in configuration,
// not on the domain type, so the adapter asks rather than carries them.
type KeyFunc func(providerID string) string

// Adapter calls chat-completions endpoints and expects strict-JSON replies.
type Adapter struct {
	httpClient *http.Client
	keyFor     KeyFunc
}

var _ adapter.ModelAdapter = (*Adapter)(nil)

// New creates an adapter resolving API keys through keyFor.
func New(keyFor KeyFunc, opts ...Option) *Adapter {
	a := &Adapter{
		httpClient: http.DefaultClient,
		keyFor:     keyFor,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string        `json:"model"`
	Messages       []chatMessage `json:"messages"`
	Temperature    float32       `json:"temperature"`
	ResponseFormat *struct {
		Type string `json:"type"`
	} `json:"response_format,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

const planSystemPrompt = `You turn a product prompt into a project plan. Reply with a single JSON object, no prose, shaped as:
{"name": string, "targets": [string], "pages": [string], "components": [string], "extra_artifacts": [string]}`

const filesSystemPrompt = `You generate project source files from a plan. Reply with a single JSON object, no prose, shaped as:
{"files": [{"path": string, "content": string}]}
Paths must be relative and unique.`

func (a *Adapter) GeneratePlan(ctx context.Context, provider domain.ModelProvider, req domain.GenerationRequest) (*domain.GeneratedProjectPlan, error) {
	user := fmt.Sprintf("Prompt: %s\nTemplate: %s\nPrimary target: %s",
		req.Prompt, req.TemplateType, req.PrimaryTarget)

	raw, err := a.complete(ctx, provider, planSystemPrompt, user)
	if err != nil {
		return nil, err
	}

	var plan domain.GeneratedProjectPlan
	if err := json.Unmarshal(raw, &plan); err != nil {
		return nil, fmt.Errorf("parse plan reply: %w", err)
	}
	if plan.Name == "" {
		return nil, fmt.Errorf("plan reply missing project name")
	}
	if len(plan.Targets) == 0 {
		plan.Targets = []domain.TargetType{req.PrimaryTarget}
	}
	return &plan, nil
}

func (a *Adapter) GenerateFiles(ctx context.Context, provider domain.ModelProvider, plan *domain.GeneratedProjectPlan, prompt string) ([]domain.GeneratedFile, error) {
	planJSON, err := json.Marshal(plan)
	if err != nil {
		return nil, fmt.Errorf("marshal plan: %w", err)
	}
	user := fmt.Sprintf("Prompt: %s\nPlan: %s", prompt, planJSON)

	raw, err := a.complete(ctx, provider, filesSystemPrompt, user)
	if err != nil {
		return nil, err
	}

	var reply struct {
		Files []domain.GeneratedFile `json:"files"`
	}
	if err := json.Unmarshal(raw, &reply); err != nil {
		return nil, fmt.Errorf("parse files reply: %w", err)
	}
	if len(reply.Files) == 0 {
		return nil, fmt.Errorf("files reply contained no files")
	}

	seen := make(map[string]bool, len(reply.Files))
	for _, f := range reply.Files {
		if f.Path == "" {
			return nil, fmt.Errorf("files reply contained an empty path")
		}
		if seen[f.Path] {
			return nil, fmt.Errorf("files reply duplicated path %s", f.Path)
		}
		seen[f.Path] = true
	}

	return reply.Files, nil
}

// complete issues one chat-completions call and returns the reply content
// with any markdown fencing stripped.
func (a *Adapter) complete(ctx context.Context, provider domain.ModelProvider, system, user string) ([]byte, error) {
	baseURL := strings.TrimSuffix(provider.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	body, err := json.Marshal(&chatRequest{
		Model: provider.ModelID,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		ResponseFormat: &struct {
			Type string `json:"type"`
		}{Type: "json_object"},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if key := a.keyFor(provider.ID); key != "" {
		httpReq.Header.Set("Authorization", "Bearer "+key)
	}

	resp, err := a.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("provider %s returned status %d: %s", provider.ID, resp.StatusCode, truncate(respBody, 512))
	}

	var result chatResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	if len(result.Choices) == 0 {
		return nil, fmt.Errorf("response contained no choices")
	}

	return []byte(stripFences(result.Choices[0].Message.Content)), nil
}

// stripFences removes a surrounding markdown code fence if the model added
// one despite the JSON response format.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
