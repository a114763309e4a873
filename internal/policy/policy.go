// Package policy selects a model provider for a task.
//
// Selection is a pure function of (task, constraints, catalog snapshot):
// never randomized, never time dependent, so a generation run can be
// reproduced from its inputs. Catalog list order is the tie-break — the
// first eligible provider wins, treating configuration order as priority.
package policy

import (
	"github.com/auraforge/orchestrator/internal/domain"
	"github.com/auraforge/orchestrator/internal/registry"
)

// Policy routes tasks to providers against a registry.
type Policy struct {
	registry *registry.Registry
}

// New creates a routing policy backed by the given registry.
func New(reg *registry.Registry) *Policy {
	return &Policy{registry: reg}
}

// ChooseModel selects exactly one provider for the task:
//
//  1. Candidates are enabled providers tagged "code" — every orchestration
//     task requires a code-capable model.
//  2. FreeOnly narrows to the free cost tier.
//  3. An empty candidate set fails with a no-available-model error.
//  4. Analysis tasks prefer candidates additionally tagged "analysis",
//     falling back to the full candidate set when none carry the tag.
//  5. The first remaining candidate in catalog order is chosen.
//
// It captures one registry snapshot for the whole decision, so a concurrent
// catalog swap never produces a half-old, half-new choice.
func (p *Policy) ChooseModel(task domain.TaskKind, c domain.Constraint) (domain.ModelProvider, error) {
	snap := p.registry.Snapshot()
	return Choose(snap, task, c)
}

// Choose runs the selection algorithm against an explicit snapshot. Exposed
// separately so callers that already hold a snapshot route against it.
func Choose(snap registry.Snapshot, task domain.TaskKind, c domain.Constraint) (domain.ModelProvider, error) {
	candidates := snap.EnabledWithCapability(domain.CapabilityCode)

	if c.FreeOnly {
		narrowed := candidates[:0:0]
		for _, p := range candidates {
			if p.CostTier == domain.CostTierFree {
				narrowed = append(narrowed, p)
			}
		}
		candidates = narrowed
	}

	if len(candidates) == 0 {
		return domain.ModelProvider{}, domain.ErrNoAvailableModel(task)
	}

	if task == domain.TaskAnalysis {
		for _, p := range candidates {
			if p.HasCapability(domain.CapabilityAnalysis) {
				return p, nil
			}
		}
		// No analysis-tagged candidate; fall through to the default rule.
	}

	return candidates[0], nil
}
