package draft

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"citegate/internal/cache"
	"citegate/internal/llm"
	"citegate/internal/model"
)

func rankedItem(id, content string, page, line int) model.EvidenceItem {
	return model.EvidenceItem{
		ID:      id,
		Content: content,
		Quality: 0.9,
		Provenance: model.Provenance{
			SourceLabel: "corpus.pdf",
			Page:        page,
			LineStart:   line,
			LineEnd:     line + 2,
		},
	}
}

func testRanked() []model.EvidenceItem {
	return []model.EvidenceItem{
		rankedItem("ev-aaa", "The turbine entered service in June 1994. Further detail follows.", 3, 10),
		rankedItem("ev-bbb", "Annual maintenance outages averaged eleven days per unit.", 5, 40),
	}
}

func TestDrafter_ExtractiveDraft(t *testing.T) {
	d := NewDrafter(nil, nil, 0)

	claims, ledger, err := d.Draft(context.Background(), testRanked(), nil, nil)
	if err != nil {
		t.Fatalf("Draft failed: %v", err)
	}

	if len(claims) != 2 {
		t.Fatalf("expected 2 claims, got %d", len(claims))
	}

	first := claims[0]
	if first.Text != "The turbine entered service in June 1994." {
		t.Errorf("first claim text = %q", first.Text)
	}
	if first.Type != model.ClaimTypeFactual {
		t.Errorf("extractive claims must be factual, got %s", first.Type)
	}
	if len(first.Pinpoints) != 1 || first.Pinpoints[0].EvidenceID != "ev-aaa" {
		t.Fatalf("unexpected pinpoints: %+v", first.Pinpoints)
	}
	if first.Pinpoints[0].Page != 3 || first.Pinpoints[0].Line != 10 {
		t.Errorf("pinpoint at p.%d:%d, want p.3:10", first.Pinpoints[0].Page, first.Pinpoints[0].Line)
	}
	if !strings.HasPrefix(first.ID, "clm-000-") {
		t.Errorf("unexpected claim id: %s", first.ID)
	}

	if ledger.Stats.FactualClaims != 2 || ledger.Stats.ValidPinpointed != 2 {
		t.Errorf("ledger stats = %+v, want 2 factual, 2 pinpointed", ledger.Stats)
	}
	if ledger.Stats.CoverageRatio != 1.0 {
		t.Errorf("coverage ratio = %v, want 1.0", ledger.Stats.CoverageRatio)
	}
	if ledger.Hash == "" {
		t.Error("ledger hash not set")
	}
}

func TestDrafter_Deterministic(t *testing.T) {
	d := NewDrafter(nil, nil, 0)
	ranked := testRanked()

	_, first, err := d.Draft(context.Background(), ranked, nil, nil)
	if err != nil {
		t.Fatalf("first Draft failed: %v", err)
	}
	_, second, err := d.Draft(context.Background(), ranked, nil, nil)
	if err != nil {
		t.Fatalf("second Draft failed: %v", err)
	}

	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("drafting not deterministic (-first +second):\n%s", diff)
	}
}

func TestSanitize_UnknownEvidenceDropped(t *testing.T) {
	claims := []model.SentenceClaim{
		{
			Position:   0,
			Text:       "A claim citing evidence outside the ranked set.",
			Type:       model.ClaimTypeFactual,
			Confidence: 0.8,
			Pinpoints: []model.Pinpoint{
				{EvidenceID: "ev-unknown", Source: "x", Page: 1, Line: 1},
			},
		},
	}

	out := sanitize(claims, testRanked())
	if len(out) != 1 {
		t.Fatalf("expected 1 claim, got %d", len(out))
	}
	// The fabricated pinpoint goes; the claim stays factual so the auditor
	// flags it rather than the drafter hiding it.
	if len(out[0].Pinpoints) != 0 {
		t.Errorf("expected fabricated pinpoint removed, got %+v", out[0].Pinpoints)
	}
	if out[0].Type != model.ClaimTypeFactual {
		t.Errorf("claim reclassified to %s; should stay factual", out[0].Type)
	}
}

func TestSanitize_NonFactualCarriesNoPinpoints(t *testing.T) {
	claims := []model.SentenceClaim{
		{
			Position:   0,
			Text:       "This trend suggests improved reliability.",
			Type:       model.ClaimTypeAnalytical,
			Confidence: 1.7, // Out of range, must clamp
			Pinpoints: []model.Pinpoint{
				{EvidenceID: "ev-aaa", Source: "corpus.pdf", Page: 3, Line: 10},
			},
		},
	}

	out := sanitize(claims, testRanked())
	if len(out[0].Pinpoints) != 0 || len(out[0].EvidenceIDs) != 0 {
		t.Errorf("non-factual claim kept evidence references: %+v", out[0])
	}
	if out[0].Confidence != 1.0 {
		t.Errorf("confidence = %v, want clamped to 1.0", out[0].Confidence)
	}
	if out[0].TraceHash == "" || out[0].ID == "" {
		t.Error("sanitize must assign trace hash and id")
	}
}

func TestSanitize_ResequencesPositions(t *testing.T) {
	claims := []model.SentenceClaim{
		{Position: 7, Text: "Second.", Type: model.ClaimTypeAnalytical},
		{Position: 2, Text: "First.", Type: model.ClaimTypeAnalytical},
	}

	out := sanitize(claims, nil)
	if out[0].Text != "First." || out[0].Position != 0 {
		t.Errorf("out[0] = %q at %d, want First. at 0", out[0].Text, out[0].Position)
	}
	if out[1].Text != "Second." || out[1].Position != 1 {
		t.Errorf("out[1] = %q at %d, want Second. at 1", out[1].Text, out[1].Position)
	}
}

func TestApplyGuidance_CorrectsPinpoint(t *testing.T) {
	ranked := testRanked()
	prior := []model.SentenceClaim{
		{
			ID: "clm-bad", Position: 0,
			Text: "Annual maintenance outages averaged eleven days per unit.",
			Type: model.ClaimTypeFactual, Confidence: 0.8,
			Pinpoints: []model.Pinpoint{{EvidenceID: "ev-bbb", Source: "corpus.pdf", Page: 5, Line: 999}},
		},
	}
	guidance := []model.GuidanceEntry{
		{ClaimID: "clm-bad", Issue: model.IssueOutOfRangePinpoint, Remedy: "correct the pinpoint"},
	}

	out := applyGuidance(ranked, prior, guidance)
	if len(out) != 1 {
		t.Fatalf("expected 1 claim, got %d", len(out))
	}
	if out[0].Type != model.ClaimTypeFactual {
		t.Errorf("supported claim reclassified to %s", out[0].Type)
	}
	p := out[0].Pinpoints[0]
	if p.EvidenceID != "ev-bbb" || p.Line != 40 {
		t.Errorf("repaired pinpoint = %+v, want ev-bbb line 40", p)
	}
}

func TestApplyGuidance_ReclassifiesUnsupportable(t *testing.T) {
	prior := []model.SentenceClaim{
		{
			ID: "clm-orphan", Position: 0,
			Text: "Quarterly profits doubled under the new leadership.",
			Type: model.ClaimTypeFactual, Confidence: 0.8,
		},
	}
	guidance := []model.GuidanceEntry{
		{ClaimID: "clm-orphan", Issue: model.IssueMissingPinpoint, Remedy: "add a pinpoint"},
	}

	out := applyGuidance(testRanked(), prior, guidance)
	if out[0].Type != model.ClaimTypeAnalytical {
		t.Errorf("unsupportable claim type = %s, want analytical", out[0].Type)
	}
	if len(out[0].Pinpoints) != 0 {
		t.Errorf("reclassified claim kept pinpoints: %+v", out[0].Pinpoints)
	}
}

func TestApplyGuidance_RemovesContradictedClaim(t *testing.T) {
	prior := []model.SentenceClaim{
		{ID: "clm-keep", Position: 0, Text: "Kept claim.", Type: model.ClaimTypeFactual},
		{ID: "clm-drop", Position: 1, Text: "Contradicted claim.", Type: model.ClaimTypeFactual},
	}
	guidance := []model.GuidanceEntry{
		{ClaimID: "clm-drop", Issue: model.IssueContradiction, Remedy: "remove or reconcile"},
	}

	out := applyGuidance(testRanked(), prior, guidance)
	if len(out) != 1 || out[0].ID != "clm-keep" {
		t.Errorf("expected only clm-keep to survive, got %+v", out)
	}
}

// scriptedGenerator returns canned completions in order.
type scriptedGenerator struct {
	responses []string
	calls     int
}

func (g *scriptedGenerator) Name() string { return "scripted" }

func (g *scriptedGenerator) Generate(ctx context.Context, req llm.GenerateRequest) (*llm.GenerateResponse, error) {
	if g.calls >= len(g.responses) {
		return nil, fmt.Errorf("no scripted response for call %d", g.calls)
	}
	text := g.responses[g.calls]
	g.calls++
	return &llm.GenerateResponse{Text: text}, nil
}

func (g *scriptedGenerator) IsAvailable(ctx context.Context) bool { return true }

func TestDrafter_GeneratorBacked(t *testing.T) {
	completion := "Here is the draft:\n```json\n" + `[
		{"position": 0, "text": "The turbine entered service in June 1994.", "type": "factual", "confidence": 0.95,
		 "pinpoints": [{"evidence_id": "ev-aaa", "source": "corpus.pdf", "page": 3, "line": 10}]},
		{"position": 1, "text": "Reliability appears to be improving.", "type": "analytical", "confidence": 0.7, "pinpoints": []}
	]` + "\n```"

	gen := &scriptedGenerator{responses: []string{completion}}
	d := NewDrafter(gen, nil, 0)

	claims, ledger, err := d.Draft(context.Background(), testRanked(), nil, nil)
	if err != nil {
		t.Fatalf("Draft failed: %v", err)
	}

	if len(claims) != 2 {
		t.Fatalf("expected 2 claims, got %d", len(claims))
	}
	if claims[0].Type != model.ClaimTypeFactual || claims[1].Type != model.ClaimTypeAnalytical {
		t.Errorf("claim types = %s, %s", claims[0].Type, claims[1].Type)
	}
	if ledger.Stats.FactualClaims != 1 || ledger.Stats.ValidPinpointed != 1 {
		t.Errorf("ledger stats = %+v", ledger.Stats)
	}
}

func TestDrafter_CompletionCache(t *testing.T) {
	completion := `[{"position": 0, "text": "Cached claim.", "type": "analytical", "confidence": 0.5, "pinpoints": []}]`
	gen := &scriptedGenerator{responses: []string{completion}}
	d := NewDrafter(gen, cache.NewMemoryCache(0, 0), 0)

	for i := 0; i < 3; i++ {
		if _, _, err := d.Draft(context.Background(), testRanked(), nil, nil); err != nil {
			t.Fatalf("Draft %d failed: %v", i, err)
		}
	}

	// Identical prompts hit the cache after the first call.
	if gen.calls != 1 {
		t.Errorf("generator called %d times, want 1", gen.calls)
	}
}

func TestParseClaims_Errors(t *testing.T) {
	if _, err := parseClaims("no structured content here"); err == nil {
		t.Error("expected error for completion without a JSON array")
	}
	if _, err := parseClaims("prefix [ not json ] suffix"); err == nil {
		t.Error("expected error for malformed array")
	}
}
