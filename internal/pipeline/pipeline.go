// Package pipeline orchestrates project generation end to end: request
// validation, model routing, adapter calls, materialization, and audit
// trace emission. It also drives the project lifecycle through sync and
// deploy.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/auraforge/orchestrator/internal/adapter"
	"github.com/auraforge/orchestrator/internal/deploy"
	"github.com/auraforge/orchestrator/internal/domain"
	"github.com/auraforge/orchestrator/internal/materialize"
	"github.com/auraforge/orchestrator/internal/policy"
	"github.com/auraforge/orchestrator/internal/registry"
	"github.com/auraforge/orchestrator/internal/storage"
)

// Recorder accepts audit events fire-and-forget. The trace emitter
// satisfies this.
type Recorder interface {
	Record(event domain.TraceEvent)
}

// TokenCounter estimates prompt token usage for trace metadata.
type TokenCounter interface {
	Count(model, text string) int
}

// Options tune pipeline behavior.
type Options struct {
	// MinPromptLength is enforced before any routing decision.
	MinPromptLength int

	// AdapterTimeout bounds each external model call.
	AdapterTimeout time.Duration

	// OnDeployFailure is "revert" (building → ready) or "keep"
	// (stay building for inspection).
	OnDeployFailure string
}

func (o Options) withDefaults() Options {
	if o.MinPromptLength <= 0 {
		o.MinPromptLength = 10
	}
	if o.AdapterTimeout <= 0 {
		o.AdapterTimeout = 60 * time.Second
	}
	if o.OnDeployFailure == "" {
		o.OnDeployFailure = "revert"
	}
	return o
}

// Deps collects the pipeline's collaborators.
type Deps struct {
	Registry     *registry.Registry
	Adapter      adapter.ModelAdapter
	Store        storage.Store
	Materializer *materialize.Materializer
	Recorder     Recorder
	Tokens       TokenCounter
	Deployer     deploy.Deployer
	Logger       *slog.Logger
}

// Pipeline coordinates one generation service instance.
type Pipeline struct {
	deps Deps
	opts Options
}

// New creates a pipeline.
func New(deps Deps, opts Options) *Pipeline {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Pipeline{deps: deps, opts: opts.withDefaults()}
}

// GenerateResult summarizes a completed generation.
type GenerateResult struct {
	ProjectID      string               `json:"project_id"`
	Slug           string               `json:"slug"`
	Status         domain.ProjectStatus `json:"status"`
	FilesGenerated int                  `json:"files_generated"`
	Model          string               `json:"model"`
}

// Generate runs the full request → project flow. Validation failures return
// before any routing decision or model call and leave no audit event; every
// failure past validation is recorded as an error event.
func (p *Pipeline) Generate(ctx context.Context, req domain.GenerationRequest) (*GenerateResult, error) {
	start := time.Now()

	if err := p.validate(req); err != nil {
		return nil, err
	}

	// One snapshot for the whole request: a concurrent catalog swap must
	// not change routing mid-flight.
	snap := p.deps.Registry.Snapshot()

	planModel, err := policy.Choose(snap, domain.TaskPlan, req.Constraint)
	if err != nil {
		p.recordFailure(domain.TraceGeneration, "", err, map[string]any{"task": string(domain.TaskPlan)})
		return nil, err
	}

	plan, err := p.generatePlan(ctx, planModel, req)
	if err != nil {
		aerr := domain.ErrAdapter(domain.TaskPlan, err)
		p.recordFailure(domain.TraceGeneration, "", aerr, map[string]any{"model": planModel.ID})
		return nil, aerr
	}

	codegenModel, err := policy.Choose(snap, domain.TaskCodegen, req.Constraint)
	if err != nil {
		p.recordFailure(domain.TraceGeneration, "", err, map[string]any{"task": string(domain.TaskCodegen)})
		return nil, err
	}

	files, err := p.generateFiles(ctx, codegenModel, plan, req.Prompt)
	if err != nil {
		aerr := domain.ErrAdapter(domain.TaskCodegen, err)
		p.recordFailure(domain.TraceGeneration, "", aerr, map[string]any{"model": codegenModel.ID})
		return nil, aerr
	}

	project, stamped, err := p.deps.Materializer.Materialize(ctx, plan, files, req)
	if err != nil {
		p.recordFailure(domain.TraceGeneration, "", err, map[string]any{"model": codegenModel.ID})
		return nil, err
	}

	p.deps.Recorder.Record(domain.TraceEvent{
		ProjectID: project.ID,
		Kind:      domain.TraceGeneration,
		Status:    domain.TraceOK,
		Metadata: map[string]any{
			"filesGenerated": len(stamped),
			"model":          codegenModel.ID,
			"durationMs":     time.Since(start).Milliseconds(),
			"promptTokens":   p.deps.Tokens.Count(planModel.ModelID, req.Prompt),
		},
	})

	p.deps.Logger.Info("project generated",
		slog.String("project_id", project.ID),
		slog.String("slug", project.Slug),
		slog.String("model", codegenModel.ID),
		slog.Int("files", len(stamped)),
	)

	return &GenerateResult{
		ProjectID:      project.ID,
		Slug:           project.Slug,
		Status:         project.Status,
		FilesGenerated: len(stamped),
		Model:          codegenModel.ID,
	}, nil
}

// RegenerateResult summarizes a regeneration pass.
type RegenerateResult struct {
	ProjectID    string `json:"project_id"`
	FilesChanged int    `json:"files_changed"`
	Model        string `json:"model"`
}

// Regenerate re-runs planning and codegen against the project's stored
// prompt and applies only the content differences. A pass that changes
// nothing writes nothing and leaves no audit event.
func (p *Pipeline) Regenerate(ctx context.Context, projectID string) (*RegenerateResult, error) {
	start := time.Now()

	project, err := p.deps.Store.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}

	req := domain.GenerationRequest{
		Prompt:        project.Prompt,
		TemplateType:  project.TemplateType,
		PrimaryTarget: project.PrimaryTarget,
		UserID:        project.UserID,
	}

	snap := p.deps.Registry.Snapshot()
	model, err := policy.Choose(snap, domain.TaskRefine, domain.Constraint{})
	if err != nil {
		p.recordFailure(domain.TraceRefine, project.ID, err, map[string]any{"task": string(domain.TaskRefine)})
		return nil, err
	}

	plan, err := p.generatePlan(ctx, model, req)
	if err != nil {
		aerr := domain.ErrAdapter(domain.TaskRefine, err)
		p.recordFailure(domain.TraceRefine, project.ID, aerr, map[string]any{"model": model.ID})
		return nil, aerr
	}

	files, err := p.generateFiles(ctx, model, plan, req.Prompt)
	if err != nil {
		aerr := domain.ErrAdapter(domain.TaskRefine, err)
		p.recordFailure(domain.TraceRefine, project.ID, aerr, map[string]any{"model": model.ID})
		return nil, aerr
	}

	changed, err := p.deps.Materializer.Rematerialize(ctx, project, files)
	if err != nil {
		p.recordFailure(domain.TraceRefine, project.ID, err, map[string]any{"model": model.ID})
		return nil, err
	}

	if changed > 0 {
		p.deps.Recorder.Record(domain.TraceEvent{
			ProjectID: project.ID,
			Kind:      domain.TraceRefine,
			Status:    domain.TraceOK,
			Metadata: map[string]any{
				"filesChanged": changed,
				"model":        model.ID,
				"durationMs":   time.Since(start).Milliseconds(),
			},
		})
	}

	return &RegenerateResult{ProjectID: project.ID, FilesChanged: changed, Model: model.ID}, nil
}

// Sync moves a ready project to synced, marking its file set as pushed to
// the user's workspace.
func (p *Pipeline) Sync(ctx context.Context, projectID string) (*domain.Project, error) {
	project, err := p.deps.Store.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if project.Status != domain.StatusReady {
		return nil, domain.ErrConflict(fmt.Sprintf("project %s is %s, expected ready", project.ID, project.Status))
	}

	if err := p.deps.Store.UpdateProjectStatus(ctx, project.ID, domain.StatusSynced); err != nil {
		p.recordFailure(domain.TraceSync, project.ID, err, nil)
		return nil, err
	}

	files, err := p.deps.Store.ListFiles(ctx, project.ID)
	if err != nil {
		return nil, err
	}

	p.deps.Recorder.Record(domain.TraceEvent{
		ProjectID: project.ID,
		Kind:      domain.TraceSync,
		Status:    domain.TraceOK,
		Metadata:  map[string]any{"files": len(files)},
	})

	project.Status = domain.StatusSynced
	return project, nil
}

// DeployResult summarizes a completed deployment.
type DeployResult struct {
	ProjectID string               `json:"project_id"`
	Status    domain.ProjectStatus `json:"status"`
	Target    domain.TargetType    `json:"target"`
	Provider  string               `json:"provider"`
	URL       string               `json:"url,omitempty"`
}

// Deploy moves a synced project through building to deployed. On a build
// failure the configured policy decides whether the project reverts to
// ready or stays building for inspection.
func (p *Pipeline) Deploy(ctx context.Context, projectID string) (*DeployResult, error) {
	project, err := p.deps.Store.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if project.Status != domain.StatusSynced {
		return nil, domain.ErrConflict(fmt.Sprintf("project %s is %s, expected synced", project.ID, project.Status))
	}

	files, err := p.deps.Store.ListFiles(ctx, project.ID)
	if err != nil {
		return nil, err
	}

	if err := p.deps.Store.UpdateProjectStatus(ctx, project.ID, domain.StatusBuilding); err != nil {
		p.recordFailure(domain.TraceDeploy, project.ID, err, nil)
		return nil, err
	}

	res, err := p.deps.Deployer.Deploy(ctx, project, files)
	if err != nil {
		p.settleFailedBuild(project.ID)
		derr := &domain.OrchestrationError{Type: domain.ErrorTypeAdapter, Message: "deploy failed", Err: err}
		p.recordFailure(domain.TraceDeploy, project.ID, derr, map[string]any{"on_failure": p.opts.OnDeployFailure})
		return nil, derr
	}

	if err := p.deps.Store.UpdateProjectStatus(ctx, project.ID, domain.StatusDeployed); err != nil {
		p.recordFailure(domain.TraceDeploy, project.ID, err, nil)
		return nil, err
	}

	p.deps.Recorder.Record(domain.TraceEvent{
		ProjectID: project.ID,
		Kind:      domain.TraceDeploy,
		Status:    domain.TraceOK,
		Metadata: map[string]any{
			"target":   string(res.Target),
			"provider": res.Provider,
		},
	})

	return &DeployResult{
		ProjectID: project.ID,
		Status:    domain.StatusDeployed,
		Target:    res.Target,
		Provider:  res.Provider,
		URL:       res.URL,
	}, nil
}

// settleFailedBuild applies the deploy failure policy. The revert runs on a
// fresh context so a cancelled request cannot strand the project in
// building when the policy says ready.
func (p *Pipeline) settleFailedBuild(projectID string) {
	if p.opts.OnDeployFailure != "revert" {
		return
	}
	cleanupCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := p.deps.Store.UpdateProjectStatus(cleanupCtx, projectID, domain.StatusReady); err != nil {
		p.deps.Logger.Error("failed to revert project after build failure",
			slog.String("project_id", projectID),
			slog.String("error", err.Error()),
		)
	}
}

func (p *Pipeline) validate(req domain.GenerationRequest) error {
	prompt := strings.TrimSpace(req.Prompt)
	if utf8.RuneCountInString(prompt) < p.opts.MinPromptLength {
		return domain.ErrInvalidRequest(
			fmt.Sprintf("prompt must be at least %d characters", p.opts.MinPromptLength),
		).WithParam("prompt")
	}
	if !domain.ValidTemplateType(req.TemplateType) {
		return domain.ErrInvalidRequest(
			fmt.Sprintf("unknown template type %q", req.TemplateType),
		).WithParam("template_type")
	}
	if !domain.ValidTargetType(req.PrimaryTarget) {
		return domain.ErrInvalidRequest(
			fmt.Sprintf("unknown target type %q", req.PrimaryTarget),
		).WithParam("primary_target")
	}
	return nil
}

func (p *Pipeline) generatePlan(ctx context.Context, model domain.ModelProvider, req domain.GenerationRequest) (*domain.GeneratedProjectPlan, error) {
	callCtx, cancel := context.WithTimeout(ctx, p.opts.AdapterTimeout)
	defer cancel()
	return p.deps.Adapter.GeneratePlan(callCtx, model, req)
}

func (p *Pipeline) generateFiles(ctx context.Context, model domain.ModelProvider, plan *domain.GeneratedProjectPlan, prompt string) ([]domain.GeneratedFile, error) {
	callCtx, cancel := context.WithTimeout(ctx, p.opts.AdapterTimeout)
	defer cancel()
	return p.deps.Adapter.GenerateFiles(callCtx, model, plan, prompt)
}

func (p *Pipeline) recordFailure(kind domain.TraceKind, projectID string, err error, extra map[string]any) {
	md := map[string]any{"error": err.Error()}
	for k, v := range extra {
		md[k] = v
	}
	p.deps.Recorder.Record(domain.TraceEvent{
		ProjectID: projectID,
		Kind:      kind,
		Status:    domain.TraceError,
		Metadata:  md,
	})
}
