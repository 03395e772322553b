// Package pipeline wires the claim-verification stages (evidence store,
// ranker, drafter, auditor) and drives the bounded revision loop over them.
// Stages within one run execute strictly sequentially; independent runs are
// fully independent and may run in parallel.
package pipeline

import (
	"context"
	"fmt"
	"os"

	"citegate/internal/audit"
	"citegate/internal/cache"
	"citegate/internal/draft"
	"citegate/internal/llm"
	"citegate/internal/model"
	"citegate/internal/rank"
	"citegate/internal/store"
	"citegate/internal/worker"
)

// Pipeline orchestrates one or more claim-verification runs.
type Pipeline struct {
	drafter  *draft.Drafter
	renderer *Renderer
	config   *model.Config
}

// NewPipeline creates a pipeline from configuration. If an LLM provider is
// configured, the drafter is generator-backed with retry, rate limiting,
// and completion caching; otherwise it drafts extractively.
func NewPipeline(cfg *model.Config) *Pipeline {
	var gen llm.Generator
	if cfg.LLM.Provider != "" {
		g, err := llm.NewGenerator(llm.ConfigFromModel(cfg.LLM))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to initialize LLM provider: %v\n", err)
		} else if g != nil {
			limiter := worker.NewLimiter(cfg.LLM.RatePerSec, 5)
			gen = llm.WithRetry(g, cfg.LLM.MaxRetries, limiter)
		}
	}

	var completionCache cache.Cache
	if cfg.Cache.Enabled {
		if cfg.Cache.Dir != "" {
			completionCache = cache.NewLayeredCache(cfg.Cache.TTL, cfg.Cache.Dir, cfg.Cache.TTL)
		} else {
			completionCache = cache.NewMemoryCache(cfg.Cache.TTL, cfg.Cache.TTL)
		}
	}

	return &Pipeline{
		drafter:  draft.NewDrafter(gen, completionCache, cfg.Cache.TTL),
		renderer: NewRenderer(cfg.Output.IncludeFooter),
		config:   cfg,
	}
}

// Run executes one full pipeline run over a haystack: ingest, rank, then
// the bounded draft/audit loop. Each run gets a fresh evidence store; the
// store owns its items for the lifetime of the run.
func (p *Pipeline) Run(ctx context.Context, h *Haystack) (*model.RunOutcome, error) {
	evidenceStore := store.New()

	items, ingestErrs := evidenceStore.Ingest(h.Sources)
	if len(items) == 0 {
		if len(ingestErrs) > 0 {
			return nil, fmt.Errorf("no usable sources: %w", ingestErrs[0])
		}
		return nil, fmt.Errorf("haystack contains no sources")
	}

	if p.config.Output.Verbose {
		fmt.Fprintf(os.Stderr, "Ingested %d evidence items (%d sources rejected)\n", len(items), len(ingestErrs))
	}

	ranker := rank.NewRanker(p.config.Pipeline.QualityFloor, p.config.Concurrency.RankWorkers, evidenceStore)
	ranked, err := ranker.Rank(ctx, items)
	if err != nil {
		return nil, fmt.Errorf("rank evidence: %w", err)
	}

	if p.config.Output.Verbose {
		fmt.Fprintf(os.Stderr, "Ranked evidence: %d of %d above quality floor %.2f\n",
			len(ranked), len(items), p.config.Pipeline.QualityFloor)
	}

	auditor := audit.NewAuditor(p.config.Pipeline.CCCThreshold, p.config.Concurrency.AuditWorkers)
	orchestrator := NewOrchestrator(p.config.Pipeline.MaxRevisionCycles)

	draftFn := func(ctx context.Context, prior []model.SentenceClaim, guidance []model.GuidanceEntry) ([]model.SentenceClaim, model.ClaimLedger, error) {
		return p.drafter.Draft(ctx, ranked, prior, guidance)
	}
	auditFn := func(ctx context.Context, ledger model.ClaimLedger) (*model.AuditReport, error) {
		return auditor.Audit(ctx, ledger, evidenceStore)
	}

	outcome, err := orchestrator.Run(ctx, draftFn, auditFn)
	if err != nil {
		return nil, err
	}

	outcome.Subject = h.Subject
	for _, ingestErr := range ingestErrs {
		outcome.IngestErrors = append(outcome.IngestErrors, ingestErr.Error())
	}

	return outcome, nil
}

// RunFile loads a haystack file and runs it. This is the entry point used
// by the batch worker.
func (p *Pipeline) RunFile(ctx context.Context, path string) (*model.RunOutcome, error) {
	h, err := LoadHaystack(path)
	if err != nil {
		return nil, err
	}
	return p.Run(ctx, h)
}

// RenderOutcome renders the run outcome to the configured outputs.
func (p *Pipeline) RenderOutcome(outcome *model.RunOutcome, jsonPath, mdPath string, verbose bool) error {
	if jsonPath != "" {
		if err := p.renderer.RenderJSON(outcome, jsonPath); err != nil {
			return fmt.Errorf("render JSON: %w", err)
		}
		if verbose {
			fmt.Fprintf(os.Stderr, "Wrote JSON: %s\n", jsonPath)
		}
	}

	if mdPath != "" {
		if err := p.renderer.RenderMarkdown(outcome, mdPath); err != nil {
			return fmt.Errorf("render markdown: %w", err)
		}
		if verbose {
			fmt.Fprintf(os.Stderr, "Wrote Markdown: %s\n", mdPath)
		}
	}

	p.renderer.RenderSummary(outcome)
	return nil
}
