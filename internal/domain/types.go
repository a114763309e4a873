// Package domain defines the canonical types shared by the routing and
// generation components: model providers, tasks, projects, files, and
// trace events.
package domain

import "time"

// TaskKind categorizes the work being routed to a model.
type TaskKind string

const (
	TaskPlan     TaskKind = "plan"
	TaskCodegen  TaskKind = "codegen"
	TaskRefine   TaskKind = "refine"
	TaskAnalysis TaskKind = "analysis"
)

// CostTier classifies a provider's pricing.
type CostTier string

const (
	CostTierFree CostTier = "free"
	CostTierPaid CostTier = "paid"
)

// CapabilityCode is required for every routable task; models lacking it are
// never selectable.
const (
	CapabilityCode     = "code"
	CapabilityChat     = "chat"
	CapabilityAnalysis = "analysis"
)

// ModelProvider is one configured AI model endpoint. The orchestration core
// treats the catalog as read-only; an external configuration surface owns
// creation and updates.
type ModelProvider struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	ModelID      string   `json:"model_id"`
	BaseURL      string   `json:"base_url,omitempty"`
	Capabilities []string `json:"capabilities"`
	CostTier     CostTier `json:"cost_tier"`
	Enabled      bool     `json:"enabled"`
}

// HasCapability reports whether the provider carries the given capability tag.
func (p ModelProvider) HasCapability(tag string) bool {
	for _, c := range p.Capabilities {
		if c == tag {
			return true
		}
	}
	return false
}

// Constraint narrows routing candidates. It is a closed structure: every
// knob is an explicit field so routing stays deterministic and testable.
type Constraint struct {
	FreeOnly bool `json:"free_only"`
}

// TemplateType is the closed set of project templates.
type TemplateType string

const (
	TemplateLanding   TemplateType = "landing"
	TemplateDashboard TemplateType = "dashboard"
	TemplateSaaS      TemplateType = "saas"
	TemplateApp       TemplateType = "app"
	TemplateCustom    TemplateType = "custom"
)

// ValidTemplateType reports membership in the closed template set.
func ValidTemplateType(t TemplateType) bool {
	switch t {
	case TemplateLanding, TemplateDashboard, TemplateSaaS, TemplateApp, TemplateCustom:
		return true
	}
	return false
}

// TargetType is the closed set of build targets.
type TargetType string

const (
	TargetWeb     TargetType = "web"
	TargetMobile  TargetType = "mobile"
	TargetDesktop TargetType = "desktop"
)

// ValidTargetType reports membership in the closed target set.
func ValidTargetType(t TargetType) bool {
	switch t {
	case TargetWeb, TargetMobile, TargetDesktop:
		return true
	}
	return false
}

// GenerationRequest is the unit of work submitted to the pipeline.
type GenerationRequest struct {
	Prompt        string       `json:"prompt"`
	TemplateType  TemplateType `json:"template_type"`
	PrimaryTarget TargetType   `json:"primary_target"`
	UserID        string       `json:"user_id"`
	Constraint    Constraint   `json:"constraint"`
}

// GeneratedProjectPlan is the planning step's output. It is produced once
// per generation request and immutable after creation.
type GeneratedProjectPlan struct {
	Name           string       `json:"name"`
	Targets        []TargetType `json:"targets"`
	Pages          []string     `json:"pages"`
	Components     []string     `json:"components"`
	ExtraArtifacts []string     `json:"extra_artifacts,omitempty"`
}

// GeneratedFile is one file produced by the codegen step, before it gains
// identity and version through materialization.
type GeneratedFile struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

// GeneratedBy records file provenance.
type GeneratedBy string

const (
	GeneratedByAI   GeneratedBy = "ai"
	GeneratedByUser GeneratedBy = "user"
)

// ProjectStatus is the project lifecycle state.
// draft → ready → synced → building → deployed.
type ProjectStatus string

const (
	StatusDraft    ProjectStatus = "draft"
	StatusReady    ProjectStatus = "ready"
	StatusSynced   ProjectStatus = "synced"
	StatusBuilding ProjectStatus = "building"
	StatusDeployed ProjectStatus = "deployed"
)

// Project is the aggregate root owning its generated files.
type Project struct {
	ID            string        `json:"id"`
	UserID        string        `json:"user_id"`
	Name          string        `json:"name"`
	Slug          string        `json:"slug"`
	Prompt        string        `json:"prompt"`
	TemplateType  TemplateType  `json:"template_type"`
	PrimaryTarget TargetType    `json:"primary_target"`
	Status        ProjectStatus `json:"status"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

// ProjectFile is a materialized GeneratedFile: identity, provenance, and a
// version that starts at 1 and increases by exactly 1 on every content
// change. Path plus project ID is the natural key.
type ProjectFile struct {
	ID          string      `json:"id"`
	ProjectID   string      `json:"project_id"`
	Path        string      `json:"path"`
	Content     string      `json:"content"`
	Language    string      `json:"language,omitempty"`
	GeneratedBy GeneratedBy `json:"generated_by"`
	Version     int         `json:"version"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// TraceKind categorizes an orchestration step for the audit log.
type TraceKind string

const (
	TraceGeneration TraceKind = "generation"
	TraceRefine     TraceKind = "refine"
	TraceSync       TraceKind = "sync"
	TraceDeploy     TraceKind = "deploy"
	TraceTest       TraceKind = "test"
)

// TraceStatus is the outcome of the traced step.
type TraceStatus string

const (
	TraceOK    TraceStatus = "ok"
	TraceError TraceStatus = "error"
)

// TraceEvent is an append-only audit record: one event per discrete
// orchestration step, immutable once written. Metadata is an open key-value
// map; expected keys per kind are a documented convention, not a schema:
//
//	generation: filesGenerated, model, durationMs, promptTokens
//	refine:     filesChanged, model, durationMs
//	sync:       files
//	deploy:     target, provider
type TraceEvent struct {
	ID        string         `json:"id"`
	ProjectID string         `json:"project_id,omitempty"` // empty for pre-project failures
	Kind      TraceKind      `json:"kind"`
	Status    TraceStatus    `json:"status"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}
