package draft

import (
	"encoding/json"
	"fmt"
	"strings"

	"citegate/internal/model"
)

const drafterSystemPrompt = `You are a structural drafter. You synthesize a sentence-level narrative from normalized evidence fragments.

RULES:
1. Every factual sentence must carry at least one pinpoint naming an evidence id, source, page, and line FROM THE PROVIDED EVIDENCE ONLY.
2. Never cite an evidence id that is not in the provided list.
3. Classify each sentence: "factual" (requires evidence), "analytical", or "opinion".
4. Respond with a JSON array only, no prose around it.`

// claimJSON is the wire shape expected back from the generator.
type claimJSON struct {
	Position   int     `json:"position"`
	Text       string  `json:"text"`
	Type       string  `json:"type"`
	Confidence float64 `json:"confidence"`
	Pinpoints  []struct {
		EvidenceID string `json:"evidence_id"`
		Source     string `json:"source"`
		Page       int    `json:"page"`
		Line       int    `json:"line"`
	} `json:"pinpoints"`
}

// buildDraftPrompt serializes the ranked evidence digest plus, on revision
// cycles, the prior narrative and the audit guidance to address.
func buildDraftPrompt(ranked []model.EvidenceItem, prior []model.SentenceClaim, guidance []model.GuidanceEntry) string {
	var b strings.Builder

	b.WriteString("EVIDENCE (id | source | page | lines | content):\n")
	for _, item := range ranked {
		p := item.Provenance
		fmt.Fprintf(&b, "- %s | %s | p.%d | %d-%d | %s\n",
			item.ID, p.SourceLabel, p.Page, p.LineStart, p.LineEnd, item.Content)
	}

	if len(prior) > 0 {
		b.WriteString("\nPRIOR DRAFT:\n")
		for _, c := range prior {
			fmt.Fprintf(&b, "- [%s] (%s) %s\n", c.ID, c.Type, c.Text)
		}
	}

	if len(guidance) > 0 {
		b.WriteString("\nREVISION GUIDANCE (for each entry, either correct the pinpoint, reclassify the claim as non-factual, or remove it):\n")
		for _, g := range guidance {
			fmt.Fprintf(&b, "- claim %s: %s: %s\n", g.ClaimID, g.Issue, g.Remedy)
		}
	}

	b.WriteString(`
Respond with a JSON array of claims:
[{"position": 0, "text": "...", "type": "factual|analytical|opinion", "confidence": 0.0-1.0, "pinpoints": [{"evidence_id": "...", "source": "...", "page": 1, "line": 1}]}]`)

	return b.String()
}

// parseClaims extracts the JSON claim array from a completion, tolerating
// prose or code fences around it.
func parseClaims(text string) ([]model.SentenceClaim, error) {
	start := strings.Index(text, "[")
	end := strings.LastIndex(text, "]")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("no JSON array in completion")
	}

	var raw []claimJSON
	if err := json.Unmarshal([]byte(text[start:end+1]), &raw); err != nil {
		return nil, fmt.Errorf("unmarshal claims: %w", err)
	}

	claims := make([]model.SentenceClaim, 0, len(raw))
	for i, rc := range raw {
		c := model.SentenceClaim{
			Position:   rc.Position,
			Text:       strings.TrimSpace(rc.Text),
			Type:       claimType(rc.Type),
			Confidence: rc.Confidence,
		}
		if c.Text == "" {
			continue
		}
		if c.Position == 0 && i > 0 {
			c.Position = i
		}
		for _, p := range rc.Pinpoints {
			c.Pinpoints = append(c.Pinpoints, model.Pinpoint{
				EvidenceID: p.EvidenceID,
				Source:     p.Source,
				Page:       p.Page,
				Line:       p.Line,
			})
		}
		claims = append(claims, c)
	}
	return claims, nil
}

func claimType(s string) model.ClaimType {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "factual":
		return model.ClaimTypeFactual
	case "opinion":
		return model.ClaimTypeOpinion
	default:
		return model.ClaimTypeAnalytical
	}
}
