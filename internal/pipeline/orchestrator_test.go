package pipeline

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"

	"citegate/internal/audit"
	"citegate/internal/model"
	"citegate/internal/store"
)

func passingAudit(ctx context.Context, ledger model.ClaimLedger) (*model.AuditReport, error) {
	return &model.AuditReport{
		Status: model.AuditStatusPass,
		CCC:    model.CCCMetric{Valid: 1, Total: 1, Ratio: 1.0, Threshold: 0.95},
	}, nil
}

func failingAudit(ctx context.Context, ledger model.ClaimLedger) (*model.AuditReport, error) {
	return &model.AuditReport{
		Status: model.AuditStatusFail,
		CCC:    model.CCCMetric{Valid: 0, Total: 1, Ratio: 0.0, Threshold: 0.95},
		Guidance: []model.GuidanceEntry{
			{ClaimID: "clm-000", Issue: model.IssueMissingPinpoint, Remedy: "add a pinpoint"},
		},
	}, nil
}

func countingDraft(calls *int) DraftFunc {
	return func(ctx context.Context, prior []model.SentenceClaim, guidance []model.GuidanceEntry) ([]model.SentenceClaim, model.ClaimLedger, error) {
		*calls++
		claims := []model.SentenceClaim{{ID: "clm-000", Position: 0, Text: "Draft.", Type: model.ClaimTypeFactual}}
		return claims, model.ClaimLedger{Claims: claims}, nil
	}
}

func TestOrchestrator_PassFirstCycle(t *testing.T) {
	drafts := 0
	o := NewOrchestrator(3)

	outcome, err := o.Run(context.Background(), countingDraft(&drafts), passingAudit)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if outcome.Status != model.RunStatusPass {
		t.Errorf("status = %s, want PASS", outcome.Status)
	}
	if drafts != 1 {
		t.Errorf("draft attempts = %d, want 1", drafts)
	}
	if len(outcome.Cycles) != 1 {
		t.Errorf("cycle records = %d, want 1", len(outcome.Cycles))
	}

	wantTrace := []string{"DRAFTING", "AUDITING", "PASSED"}
	if diff := cmp.Diff(wantTrace, outcome.StateTrace); diff != "" {
		t.Errorf("state trace mismatch (-want +got):\n%s", diff)
	}
}

func TestOrchestrator_ExhaustsRevisionBudget(t *testing.T) {
	// Persistent failure: with a bound of 3 the loop makes exactly three
	// draft attempts and never a fourth.
	drafts := 0
	o := NewOrchestrator(3)

	outcome, err := o.Run(context.Background(), countingDraft(&drafts), failingAudit)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if outcome.Status != model.RunStatusEscalated {
		t.Errorf("status = %s, want ESCALATED", outcome.Status)
	}
	if !outcome.MaxRevisionsExhausted {
		t.Error("expected MaxRevisionsExhausted")
	}
	if drafts != 3 {
		t.Errorf("draft attempts = %d, want exactly 3", drafts)
	}
	if len(outcome.Cycles) != 3 {
		t.Fatalf("cycle records = %d, want 3", len(outcome.Cycles))
	}
	for i, c := range outcome.Cycles {
		if c.Cycle != i {
			t.Errorf("cycle record %d has index %d", i, c.Cycle)
		}
		if c.Audit == nil || c.Audit.Status != model.AuditStatusFail {
			t.Errorf("cycle %d missing its failing audit report", i)
		}
	}

	wantTrace := []string{
		"DRAFTING", "AUDITING", "REVISING",
		"DRAFTING", "AUDITING", "REVISING",
		"DRAFTING", "AUDITING", "ESCALATED",
	}
	if diff := cmp.Diff(wantTrace, outcome.StateTrace); diff != "" {
		t.Errorf("state trace mismatch (-want +got):\n%s", diff)
	}
}

func TestOrchestrator_GuidanceReachesNextDraft(t *testing.T) {
	var received [][]model.GuidanceEntry
	draftFn := func(ctx context.Context, prior []model.SentenceClaim, guidance []model.GuidanceEntry) ([]model.SentenceClaim, model.ClaimLedger, error) {
		received = append(received, guidance)
		claims := []model.SentenceClaim{{ID: "clm-000", Position: 0, Text: "Draft.", Type: model.ClaimTypeFactual}}
		return claims, model.ClaimLedger{Claims: claims}, nil
	}

	calls := 0
	auditFn := func(ctx context.Context, ledger model.ClaimLedger) (*model.AuditReport, error) {
		calls++
		if calls == 1 {
			return failingAudit(ctx, ledger)
		}
		return passingAudit(ctx, ledger)
	}

	o := NewOrchestrator(3)
	outcome, err := o.Run(context.Background(), draftFn, auditFn)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if outcome.Status != model.RunStatusPass {
		t.Errorf("status = %s, want PASS on the revision cycle", outcome.Status)
	}
	if len(received) != 2 {
		t.Fatalf("draft attempts = %d, want 2", len(received))
	}
	if len(received[0]) != 0 {
		t.Errorf("first cycle received guidance: %+v", received[0])
	}
	if len(received[1]) != 1 || received[1][0].Issue != model.IssueMissingPinpoint {
		t.Errorf("second cycle guidance = %+v, want the audit's entry", received[1])
	}
}

func TestOrchestrator_RevisionClosesCoverageGap(t *testing.T) {
	// Integration against the real auditor: under a strict 0.98 threshold
	// the first draft cites a fabricated evidence id and fails; the second
	// draft corrects it and passes.
	evidenceStore := store.New()
	items, _ := evidenceStore.Ingest([]model.RawSource{
		{Content: "The bridge reopened to traffic in October after the retrofit.", SourceLabel: "news.pdf", Page: 2, LineStart: 5, LineEnd: 7},
		{Content: "Retrofit costs came to ninety million dollars in total.", SourceLabel: "budget.pdf", Page: 11, LineStart: 30, LineEnd: 31},
	})
	if len(items) != 2 {
		t.Fatalf("ingest produced %d items, want 2", len(items))
	}

	goodPin := model.Pinpoint{EvidenceID: items[0].ID, Source: "news.pdf", Page: 2, Line: 5}
	fixedPin := model.Pinpoint{EvidenceID: items[1].ID, Source: "budget.pdf", Page: 11, Line: 30}

	attempt := 0
	draftFn := func(ctx context.Context, prior []model.SentenceClaim, guidance []model.GuidanceEntry) ([]model.SentenceClaim, model.ClaimLedger, error) {
		attempt++
		secondPin := model.Pinpoint{EvidenceID: "ev-fabricated", Source: "budget.pdf", Page: 11, Line: 30}
		if attempt > 1 {
			secondPin = fixedPin
		}
		claims := []model.SentenceClaim{
			{ID: "clm-000", Position: 0, Text: "The bridge reopened in October.", Type: model.ClaimTypeFactual, Confidence: 0.9, Pinpoints: []model.Pinpoint{goodPin}},
			{ID: "clm-001", Position: 1, Text: "The retrofit cost ninety million dollars.", Type: model.ClaimTypeFactual, Confidence: 0.9, Pinpoints: []model.Pinpoint{secondPin}},
		}
		return claims, model.ClaimLedger{Claims: claims}, nil
	}

	auditor := audit.NewAuditor(0.98, 2)
	auditFn := func(ctx context.Context, ledger model.ClaimLedger) (*model.AuditReport, error) {
		return auditor.Audit(ctx, ledger, evidenceStore)
	}

	o := NewOrchestrator(3)
	outcome, err := o.Run(context.Background(), draftFn, auditFn)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if outcome.Status != model.RunStatusPass {
		t.Fatalf("status = %s, want PASS after one revision", outcome.Status)
	}
	if attempt != 2 {
		t.Errorf("draft attempts = %d, want 2", attempt)
	}
	if len(outcome.Cycles) != 2 {
		t.Fatalf("cycle records = %d, want 2", len(outcome.Cycles))
	}

	first := outcome.Cycles[0].Audit
	if first.Status != model.AuditStatusFail || first.CCC.Ratio != 0.5 {
		t.Errorf("first cycle audit = %s ratio %v, want FAIL ratio 0.5", first.Status, first.CCC.Ratio)
	}
	if len(first.Guidance) != 1 || first.Guidance[0].Issue != model.IssueUnsupportedClaim {
		t.Errorf("first cycle guidance = %+v, want one unsupported_claim entry", first.Guidance)
	}
	if outcome.Audit.CCC.Ratio != 1.0 {
		t.Errorf("final ratio = %v, want 1.0", outcome.Audit.CCC.Ratio)
	}
}

func TestOrchestrator_CancellationBetweenCycles(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	drafts := 0
	draftFn := func(ctx context.Context, prior []model.SentenceClaim, guidance []model.GuidanceEntry) ([]model.SentenceClaim, model.ClaimLedger, error) {
		drafts++
		cancel() // Cancelled mid-run; the loop must not start another cycle
		claims := []model.SentenceClaim{{ID: "clm-000", Position: 0, Text: "Draft.", Type: model.ClaimTypeFactual}}
		return claims, model.ClaimLedger{Claims: claims}, nil
	}

	o := NewOrchestrator(3)
	_, err := o.Run(ctx, draftFn, failingAudit)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if drafts != 1 {
		t.Errorf("draft attempts = %d, want 1", drafts)
	}
}

func TestOrchestrator_DraftErrorAborts(t *testing.T) {
	draftErr := fmt.Errorf("generator unavailable")
	draftFn := func(ctx context.Context, prior []model.SentenceClaim, guidance []model.GuidanceEntry) ([]model.SentenceClaim, model.ClaimLedger, error) {
		return nil, model.ClaimLedger{}, draftErr
	}

	o := NewOrchestrator(3)
	outcome, err := o.Run(context.Background(), draftFn, passingAudit)
	if err == nil || !errors.Is(err, draftErr) {
		t.Fatalf("err = %v, want wrapped draft error", err)
	}
	if outcome != nil {
		t.Error("infrastructure failure must not produce a terminal outcome")
	}
}
