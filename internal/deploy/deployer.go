// Package deploy abstracts the build-and-publish step of the project
// lifecycle. The pipeline drives status transitions; a Deployer only
// executes the build.
package deploy

import (
	"context"
	"fmt"
	"time"

	"github.com/auraforge/orchestrator/internal/domain"
)

// Result describes a completed deployment.
type Result struct {
	Target   domain.TargetType `json:"target"`
	Provider string            `json:"provider"`
	URL      string            `json:"url,omitempty"`
	Duration time.Duration     `json:"-"`
}

// Deployer builds and publishes a project's current file set.
type Deployer interface {
	Deploy(ctx context.Context, project *domain.Project, files []domain.ProjectFile) (*Result, error)
}

// Local is a deployer that publishes nothing: it validates the file set and
// reports a synthetic preview URL. It stands in for a hosting provider in
// development and tests.
type Local struct {
	// BaseDomain forms the preview URL, e.g. "preview.local".
	BaseDomain string
}

// NewLocal creates a local deployer with the given preview domain.
func NewLocal(baseDomain string) *Local {
	if baseDomain == "" {
		baseDomain = "preview.local"
	}
	return &Local{BaseDomain: baseDomain}
}

// Deploy implements Deployer.
func (l *Local) Deploy(ctx context.Context, project *domain.Project, files []domain.ProjectFile) (*Result, error) {
	start := time.Now()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("project %s has no files to deploy", project.ID)
	}

	return &Result{
		Target:   project.PrimaryTarget,
		Provider: "local",
		URL:      fmt.Sprintf("https://%s.%s", project.Slug, l.BaseDomain),
		Duration: time.Since(start),
	}, nil
}
