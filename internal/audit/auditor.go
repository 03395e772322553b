// Package audit independently recomputes which claims carry valid
// pinpoints, runs the logic-inversion contradiction pass, and applies the
// Claim-Citation Coverage gate. It shares no code path with the drafter, so
// the drafter can never approve its own output.
package audit

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"citegate/internal/model"
)

// EvidenceResolver resolves pinpoints against the evidence store. The
// auditor validates against the full store, not the drafter's ranked
// subset.
type EvidenceResolver interface {
	Get(id string) (model.EvidenceItem, bool)
}

// Auditor computes one audit report per cycle. Auditing the same ledger and
// evidence twice yields an identical logical payload (same V, U, ratio,
// contradiction set, guidance).
type Auditor struct {
	threshold float64
	workers   int
	now       func() time.Time
}

// NewAuditor creates an auditor with the given coverage threshold.
func NewAuditor(threshold float64, workers int) *Auditor {
	if workers <= 0 {
		workers = 8
	}
	return &Auditor{threshold: threshold, workers: workers, now: time.Now}
}

// claimVerdict is the per-claim validation result.
type claimVerdict struct {
	claim model.SentenceClaim
	valid bool
	issue model.IssueType
}

// Audit validates every factual claim's pinpoints, computes the CCC metric,
// runs the contradiction pass, and emits revision guidance on FAIL.
func (a *Auditor) Audit(ctx context.Context, ledger model.ClaimLedger, evidence EvidenceResolver) (*model.AuditReport, error) {
	factual := make([]model.SentenceClaim, 0, len(ledger.Claims))
	for _, c := range ledger.Claims {
		if c.Type == model.ClaimTypeFactual {
			factual = append(factual, c)
		}
	}

	// Per-claim validation has no cross-claim dependencies; results land
	// in claim order regardless of scheduling.
	verdicts := make([]claimVerdict, len(factual))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.workers)
	for i := range factual {
		i := i
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			verdicts[i] = validateClaim(factual[i], evidence)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	valid := 0
	var validClaims []model.SentenceClaim
	for _, v := range verdicts {
		if v.valid {
			valid++
			validClaims = append(validClaims, v.claim)
		}
	}

	ratio := 1.0
	if len(factual) > 0 {
		ratio = float64(valid) / float64(len(factual))
	}

	contradictions := findContradictions(validClaims)

	status := model.AuditStatusFail
	if ratio >= a.threshold && contradictions.Found == 0 {
		status = model.AuditStatusPass
	}

	report := &model.AuditReport{
		ID:          uuid.NewString(),
		GeneratedAt: a.now().UTC(),
		Status:      status,
		CCC: model.CCCMetric{
			Valid:     valid,
			Total:     len(factual),
			Ratio:     ratio,
			Threshold: a.threshold,
		},
		Contradictions: contradictions,
	}

	if status == model.AuditStatusFail {
		report.Guidance = buildGuidance(verdicts, contradictions)
	}

	report.Hash = report.ComputeReportHash()
	return report, nil
}

// validateClaim checks every pinpoint of one factual claim. The claim is
// valid when at least one pinpoint resolves to known evidence whose
// provenance range contains the cited page/line.
func validateClaim(c model.SentenceClaim, evidence EvidenceResolver) claimVerdict {
	if len(c.Pinpoints) == 0 {
		return claimVerdict{claim: c, issue: model.IssueMissingPinpoint}
	}

	unknownID := false
	for _, p := range c.Pinpoints {
		item, ok := evidence.Get(p.EvidenceID)
		if !ok {
			unknownID = true
			continue
		}
		if item.Provenance.Covers(p.Page, p.Line) {
			return claimVerdict{claim: c, valid: true}
		}
	}

	if unknownID {
		return claimVerdict{claim: c, issue: model.IssueUnsupportedClaim}
	}
	return claimVerdict{claim: c, issue: model.IssueOutOfRangePinpoint}
}

// buildGuidance emits one entry per invalid claim and one per contradicting
// pair, ordered by narrative position for determinism.
func buildGuidance(verdicts []claimVerdict, contradictions model.ContradictionResult) []model.GuidanceEntry {
	var guidance []model.GuidanceEntry

	ordered := make([]claimVerdict, len(verdicts))
	copy(ordered, verdicts)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].claim.Position < ordered[j].claim.Position
	})

	for _, v := range ordered {
		if v.valid {
			continue
		}
		guidance = append(guidance, model.GuidanceEntry{
			ClaimID: v.claim.ID,
			Issue:   v.issue,
			Remedy:  remedyFor(v.issue),
		})
	}

	for _, pair := range contradictions.Pairs {
		guidance = append(guidance, model.GuidanceEntry{
			ClaimID: pair.ClaimID,
			Issue:   model.IssueContradiction,
			Remedy:  fmt.Sprintf("contradicts claim %s; remove or reconcile one of the pair", pair.OpposingID),
		})
	}

	return guidance
}

func remedyFor(issue model.IssueType) string {
	switch issue {
	case model.IssueMissingPinpoint:
		return "add a pinpoint from the evidence store, or reclassify the claim as non-factual"
	case model.IssueOutOfRangePinpoint:
		return "correct the pinpoint page/line to fall within the cited evidence's provenance range"
	case model.IssueUnsupportedClaim:
		return "cite an evidence item that exists in the store, or remove the claim"
	default:
		return "revise the claim"
	}
}
