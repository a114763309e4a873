// Package adapter defines the boundary to external model providers. The
// pipeline treats every vendor uniformly through ModelAdapter; concrete
// implementations live in subpackages.
package adapter

import (
	"context"

	"github.com/auraforge/orchestrator/internal/domain"
)

// ModelAdapter invokes a provider's generation capabilities. Implementations
// must honor ctx cancellation and deadlines; the pipeline applies per-call
// timeouts and treats a deadline the same as any other adapter failure.
type ModelAdapter interface {
	// GeneratePlan asks the provider to turn a prompt into a project plan.
	GeneratePlan(ctx context.Context, provider domain.ModelProvider, req domain.GenerationRequest) (*domain.GeneratedProjectPlan, error)

	// GenerateFiles asks the provider to produce the file set for a plan.
	GenerateFiles(ctx context.Context, provider domain.ModelProvider, plan *domain.GeneratedProjectPlan, prompt string) ([]domain.GeneratedFile, error)
}
