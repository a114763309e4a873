// Package scaffold is a deterministic ModelAdapter that derives a plan and
// file set from the prompt without calling any external model. It is the
// default adapter for local development and the reference behavior for
// pipeline tests: identical input always yields byte-identical output.
package scaffold

import (
	"context"
	"fmt"
	"strings"

	"github.com/auraforge/orchestrator/internal/adapter"
	"github.com/auraforge/orchestrator/internal/domain"
)

// Adapter generates template-driven project scaffolds.
type Adapter struct{}

var _ adapter.ModelAdapter = (*Adapter)(nil)

// New creates a scaffold adapter.
func New() *Adapter {
	return &Adapter{}
}

// stopWords are prompt filler dropped when deriving the project name.
var stopWords = map[string]bool{
	"a": true, "an": true, "the": true, "and": true, "or": true,
	"build": true, "create": true, "make": true, "generate": true,
	"me": true, "my": true, "please": true, "for": true, "with": true,
	"using": true, "that": true, "this": true, "minimal": true,
	"simple": true, "modern": true, "new": true,
}

// deriveName picks the first two significant words of the prompt and
// title-cases them. "Build a minimal todo app with local storage" becomes
// "Todo App".
func deriveName(prompt string) string {
	var words []string
	for _, raw := range strings.Fields(strings.ToLower(prompt)) {
		w := strings.Trim(raw, ".,!?:;\"'()")
		if w == "" || stopWords[w] {
			continue
		}
		words = append(words, w)
		if len(words) == 2 {
			break
		}
	}
	if len(words) == 0 {
		return "Untitled Project"
	}
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

// pagesFor maps the template type to its standard page set.
func pagesFor(template domain.TemplateType) []string {
	switch template {
	case domain.TemplateLanding:
		return []string{"home"}
	case domain.TemplateDashboard:
		return []string{"overview", "settings"}
	case domain.TemplateSaaS:
		return []string{"home", "pricing", "dashboard"}
	case domain.TemplateApp:
		return []string{"home", "settings"}
	default:
		return []string{"home"}
	}
}

func (a *Adapter) GeneratePlan(ctx context.Context, provider domain.ModelProvider, req domain.GenerationRequest) (*domain.GeneratedProjectPlan, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return &domain.GeneratedProjectPlan{
		Name:       deriveName(req.Prompt),
		Targets:    []domain.TargetType{req.PrimaryTarget},
		Pages:      pagesFor(req.TemplateType),
		Components: []string{"app-shell", "nav-bar"},
	}, nil
}

func (a *Adapter) GenerateFiles(ctx context.Context, provider domain.ModelProvider, plan *domain.GeneratedProjectPlan, prompt string) ([]domain.GeneratedFile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	files := []domain.GeneratedFile{
		{Path: "package.json", Content: packageJSON(plan.Name)},
		{Path: "app/layout.tsx", Content: layoutTSX(plan.Name)},
		{Path: "app/globals.css", Content: globalsCSS},
	}

	for _, page := range plan.Pages {
		files = append(files, domain.GeneratedFile{
			Path:    pagePath(page),
			Content: pageTSX(plan.Name, page),
		})
	}

	for _, comp := range plan.Components {
		files = append(files, domain.GeneratedFile{
			Path:    "components/" + comp + ".tsx",
			Content: componentTSX(comp),
		})
	}

	return files, nil
}

func pagePath(page string) string {
	if page == "home" {
		return "app/page.tsx"
	}
	return "app/" + page + "/page.tsx"
}

func packageJSON(name string) string {
	slug := strings.ToLower(strings.ReplaceAll(name, " ", "-"))
	return fmt.Sprintf(`{
  "name": %q,
  "version": "0.1.0",
  "private": true,
  "scripts": {
    "dev": "next dev",
    "build": "next build"
  }
}
`, slug)
}

func layoutTSX(name string) string {
	return fmt.Sprintf(`export const metadata = { title: %q }

export default function RootLayout({ children }: { children: React.ReactNode }) {
  return (
    <html lang="en">
      <body>{children}</body>
    </html>
  )
}
`, name)
}

func pageTSX(name, page string) string {
	title := strings.ToUpper(page[:1]) + page[1:]
	return fmt.Sprintf(`export default function %sPage() {
  return (
    <main>
      <h1>%s — %s</h1>
    </main>
  )
}
`, title, name, title)
}

func componentTSX(comp string) string {
	parts := strings.Split(comp, "-")
	for i, p := range parts {
		parts[i] = strings.ToUpper(p[:1]) + p[1:]
	}
	ident := strings.Join(parts, "")
	return fmt.Sprintf(`export function %s() {
  return <div className=%q />
}
`, ident, comp)
}

const globalsCSS = `:root {
  color-scheme: light dark;
}

body {
  margin: 0;
  font-family: system-ui, sans-serif;
}
`
