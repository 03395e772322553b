// Package draft synthesizes a sentence-level narrative where every factual
// sentence is linked to evidence via exact pinpoints, and produces the claim
// ledger for the cycle. The drafter never invents a pinpoint whose evidence
// identifier is absent from the ranked evidence set.
package draft

import (
	"context"
	"fmt"
	"sort"
	"time"

	"citegate/internal/cache"
	"citegate/internal/llm"
	"citegate/internal/model"
)

// Drafter produces one draft cycle. With a generator configured it is
// LLM-backed; without one it falls back to deterministic extractive
// drafting. Output is deterministic given the same evidence and guidance.
type Drafter struct {
	gen      llm.Generator
	cache    cache.Cache
	cacheTTL time.Duration
}

// NewDrafter creates a drafter. gen may be nil (extractive mode); c may be
// nil (no completion caching).
func NewDrafter(gen llm.Generator, c cache.Cache, cacheTTL time.Duration) *Drafter {
	return &Drafter{gen: gen, cache: c, cacheTTL: cacheTTL}
}

// Draft produces the narrative claims and the cycle's ledger. On the first
// cycle prior and guidance are empty; on revision cycles each guidance entry
// yields a corrected pinpoint, a reclassification to non-factual, or removal
// of the named claim.
func (d *Drafter) Draft(ctx context.Context, ranked []model.EvidenceItem, prior []model.SentenceClaim, guidance []model.GuidanceEntry) ([]model.SentenceClaim, model.ClaimLedger, error) {
	var claims []model.SentenceClaim
	var err error

	switch {
	case len(guidance) > 0 && len(prior) > 0:
		claims, err = d.revise(ctx, ranked, prior, guidance)
	case d.gen != nil:
		claims, err = d.generate(ctx, ranked, nil, nil)
	default:
		claims = extractiveDraft(ranked)
	}
	if err != nil {
		return nil, model.ClaimLedger{}, err
	}

	claims = sanitize(claims, ranked)
	ledger := BuildLedger(claims, ranked)
	return claims, ledger, nil
}

// revise applies audit guidance to the prior narrative.
func (d *Drafter) revise(ctx context.Context, ranked []model.EvidenceItem, prior []model.SentenceClaim, guidance []model.GuidanceEntry) ([]model.SentenceClaim, error) {
	if d.gen != nil {
		return d.generate(ctx, ranked, prior, guidance)
	}
	return applyGuidance(ranked, prior, guidance), nil
}

// generate runs the LLM-backed draft: prompt, completion (cached by prompt
// hash), JSON parse.
func (d *Drafter) generate(ctx context.Context, ranked []model.EvidenceItem, prior []model.SentenceClaim, guidance []model.GuidanceEntry) ([]model.SentenceClaim, error) {
	system := drafterSystemPrompt
	prompt := buildDraftPrompt(ranked, prior, guidance)

	text, err := d.complete(ctx, system, prompt)
	if err != nil {
		return nil, err
	}

	claims, err := parseClaims(text)
	if err != nil {
		return nil, fmt.Errorf("parse draft: %w", err)
	}
	return claims, nil
}

// complete calls the generator through the completion cache.
func (d *Drafter) complete(ctx context.Context, system, prompt string) (string, error) {
	var key string
	if d.cache != nil {
		key = cache.PromptKey(d.gen.Name(), system, prompt)
		if data, ok := d.cache.Get(key); ok {
			return string(data), nil
		}
	}

	resp, err := d.gen.Generate(ctx, llm.GenerateRequest{
		System: system,
		Prompt: prompt,
	})
	if err != nil {
		return "", err
	}

	if d.cache != nil {
		_ = d.cache.Set(key, []byte(resp.Text), d.cacheTTL)
	}
	return resp.Text, nil
}

// sanitize enforces the drafter's structural invariants:
//   - pinpoints naming evidence absent from the ranked set are removed
//   - non-factual claims carry no pinpoints or evidence references
//   - positions are sequential and claims carry trace hashes
//
// A factual claim stripped of all its pinpoints stays factual: catching it
// is the auditor's job, not the drafter's.
func sanitize(claims []model.SentenceClaim, ranked []model.EvidenceItem) []model.SentenceClaim {
	known := make(map[string]bool, len(ranked))
	for _, item := range ranked {
		known[item.ID] = true
	}

	sort.SliceStable(claims, func(i, j int) bool {
		return claims[i].Position < claims[j].Position
	})

	out := make([]model.SentenceClaim, 0, len(claims))
	for i, c := range claims {
		c.Position = i

		if c.Type != model.ClaimTypeFactual {
			c.Pinpoints = nil
			c.EvidenceIDs = nil
		} else {
			var kept []model.Pinpoint
			for _, p := range c.Pinpoints {
				if known[p.EvidenceID] {
					kept = append(kept, p)
				}
			}
			c.Pinpoints = kept

			var ids []string
			seen := make(map[string]bool)
			for _, p := range kept {
				if !seen[p.EvidenceID] {
					seen[p.EvidenceID] = true
					ids = append(ids, p.EvidenceID)
				}
			}
			c.EvidenceIDs = ids
		}

		if c.Confidence < 0 {
			c.Confidence = 0
		}
		if c.Confidence > 1 {
			c.Confidence = 1
		}

		c.TraceHash = c.ComputeTraceHash()
		c.ID = claimID(c)
		out = append(out, c)
	}
	return out
}

// claimID derives a stable identifier from narrative position and trace
// hash, so identical drafts produce identical claims.
func claimID(c model.SentenceClaim) string {
	return fmt.Sprintf("clm-%03d-%s", c.Position, c.TraceHash[:8])
}

// BuildLedger rebuilds the cycle's claim ledger and aggregate statistics.
// The valid-pinpoint count here is the drafter's own view against the
// ranked evidence; the auditor recomputes it independently against the full
// evidence store.
func BuildLedger(claims []model.SentenceClaim, ranked []model.EvidenceItem) model.ClaimLedger {
	byID := make(map[string]model.EvidenceItem, len(ranked))
	for _, item := range ranked {
		byID[item.ID] = item
	}

	stats := model.LedgerStats{TotalClaims: len(claims)}
	for _, c := range claims {
		if c.Type != model.ClaimTypeFactual {
			continue
		}
		stats.FactualClaims++
		for _, p := range c.Pinpoints {
			if item, ok := byID[p.EvidenceID]; ok && item.Provenance.Covers(p.Page, p.Line) {
				stats.ValidPinpointed++
				break
			}
		}
	}

	if stats.FactualClaims == 0 {
		stats.CoverageRatio = 1.0
	} else {
		stats.CoverageRatio = float64(stats.ValidPinpointed) / float64(stats.FactualClaims)
	}

	ledger := model.ClaimLedger{Claims: claims, Stats: stats}
	ledger.Hash = ledger.ComputeLedgerHash()
	return ledger
}
