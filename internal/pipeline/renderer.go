package pipeline

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"citegate/internal/model"
)

// Renderer writes run outcomes as JSON and Markdown reports.
type Renderer struct {
	includeFooter bool
}

// NewRenderer creates a renderer.
func NewRenderer(includeFooter bool) *Renderer {
	return &Renderer{includeFooter: includeFooter}
}

// RenderJSON writes the outcome as indented JSON.
func (r *Renderer) RenderJSON(outcome *model.RunOutcome, path string) error {
	data, err := json.MarshalIndent(outcome, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal outcome: %w", err)
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}

// RenderMarkdown writes a human-readable report. PASS reports carry the
// full narrative with citations and metric detail; ESCALATED reports carry
// the exact per-cycle guidance so a reader can see why automated revision
// could not close the gap.
func (r *Renderer) RenderMarkdown(outcome *model.RunOutcome, path string) error {
	var b strings.Builder

	fmt.Fprintf(&b, "# Claim-Citation Coverage Report: %s\n\n", outcome.Subject)
	fmt.Fprintf(&b, "**Status:** %s\n\n", outcome.Status)

	switch outcome.Status {
	case model.RunStatusPass:
		r.renderPass(&b, outcome)
	case model.RunStatusEscalated:
		r.renderEscalated(&b, outcome)
	}

	if len(outcome.IngestErrors) > 0 {
		b.WriteString("## Ingestion Warnings\n\n")
		for _, e := range outcome.IngestErrors {
			fmt.Fprintf(&b, "- %s\n", e)
		}
		b.WriteString("\n")
	}

	if r.includeFooter {
		b.WriteString("---\n\nGenerated by citegate. Coverage measures pinpoint traceability, not truth.\n")
	}

	return os.WriteFile(path, []byte(b.String()), 0o644)
}

func (r *Renderer) renderPass(b *strings.Builder, outcome *model.RunOutcome) {
	ccc := outcome.Audit.CCC
	fmt.Fprintf(b, "**Coverage:** %d/%d valid (%.2f%%, threshold %.0f%%)\n\n",
		ccc.Valid, ccc.Total, ccc.Ratio*100, ccc.Threshold*100)
	fmt.Fprintf(b, "**Contradiction checks:** %d run, %d found\n\n",
		outcome.Audit.Contradictions.ChecksRun, outcome.Audit.Contradictions.Found)
	fmt.Fprintf(b, "**Cycles:** %d\n\n", len(outcome.Cycles))

	b.WriteString("## Narrative\n\n")
	for _, c := range outcome.Narrative {
		fmt.Fprintf(b, "%s", c.Text)
		if c.Type == model.ClaimTypeFactual && len(c.Pinpoints) > 0 {
			var cites []string
			for _, p := range c.Pinpoints {
				cites = append(cites, fmt.Sprintf("%s p.%d:%d", p.Source, p.Page, p.Line))
			}
			fmt.Fprintf(b, " [%s]", strings.Join(cites, "; "))
		}
		b.WriteString("\n\n")
	}
}

func (r *Renderer) renderEscalated(b *strings.Builder, outcome *model.RunOutcome) {
	b.WriteString("Automated revision exhausted without passing the coverage gate.\n\n")

	for _, cycle := range outcome.Cycles {
		fmt.Fprintf(b, "## Cycle %d\n\n", cycle.Cycle)
		ccc := cycle.Audit.CCC
		fmt.Fprintf(b, "- Status: %s\n", cycle.Audit.Status)
		fmt.Fprintf(b, "- Coverage: %d/%d (%.2f%%, threshold %.0f%%)\n",
			ccc.Valid, ccc.Total, ccc.Ratio*100, ccc.Threshold*100)
		fmt.Fprintf(b, "- Contradictions: %d\n", cycle.Audit.Contradictions.Found)

		if len(cycle.Audit.Guidance) > 0 {
			b.WriteString("- Guidance:\n")
			for _, g := range cycle.Audit.Guidance {
				fmt.Fprintf(b, "  - `%s` %s: %s\n", g.ClaimID, g.Issue, g.Remedy)
			}
		}
		b.WriteString("\n")
	}
}

// RenderSummary prints a short result line to stdout.
func (r *Renderer) RenderSummary(outcome *model.RunOutcome) {
	switch outcome.Status {
	case model.RunStatusPass:
		ccc := outcome.Audit.CCC
		fmt.Printf("PASS %s: coverage %d/%d (%.2f%%) in %d cycle(s)\n",
			outcome.Subject, ccc.Valid, ccc.Total, ccc.Ratio*100, len(outcome.Cycles))
	case model.RunStatusEscalated:
		fmt.Printf("ESCALATED %s: %d cycle(s) exhausted without passing\n",
			outcome.Subject, len(outcome.Cycles))
	}
}
