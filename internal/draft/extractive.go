package draft

import (
	"strings"

	"citegate/internal/model"
)

// minRepairOverlap is the fraction of a claim's tokens that must appear in
// an evidence fragment before the fragment counts as support for a repair.
const minRepairOverlap = 0.5

// extractiveDraft builds a narrative directly from the ranked evidence: one
// factual claim per fragment, pinpointed at the fragment's provenance. It is
// fully deterministic and serves as the fallback when no generator is
// configured.
func extractiveDraft(ranked []model.EvidenceItem) []model.SentenceClaim {
	claims := make([]model.SentenceClaim, 0, len(ranked))
	for i, item := range ranked {
		claims = append(claims, model.SentenceClaim{
			Position:    i,
			Text:        firstSentence(item.Content),
			Type:        model.ClaimTypeFactual,
			EvidenceIDs: []string{item.ID},
			Pinpoints:   []model.Pinpoint{pinpointFor(item)},
			Confidence:  item.Quality,
		})
	}
	return claims
}

// applyGuidance mechanically applies audit guidance to the prior narrative:
// contradiction entries remove the claim, coverage entries either get a
// corrected pinpoint from supporting evidence or reclassify the claim to
// analytical.
func applyGuidance(ranked []model.EvidenceItem, prior []model.SentenceClaim, guidance []model.GuidanceEntry) []model.SentenceClaim {
	byClaim := make(map[string][]model.GuidanceEntry)
	for _, g := range guidance {
		byClaim[g.ClaimID] = append(byClaim[g.ClaimID], g)
	}

	var out []model.SentenceClaim
	for _, c := range prior {
		entries, flagged := byClaim[c.ID]
		if !flagged {
			out = append(out, c)
			continue
		}

		if hasIssue(entries, model.IssueContradiction) {
			continue // Removed from the narrative
		}

		if item, ok := bestSupport(c.Text, ranked); ok {
			c.Pinpoints = []model.Pinpoint{pinpointFor(item)}
			c.EvidenceIDs = []string{item.ID}
		} else {
			// No evidence supports the claim: reclassify non-factual.
			c.Type = model.ClaimTypeAnalytical
			c.Pinpoints = nil
			c.EvidenceIDs = nil
		}
		out = append(out, c)
	}
	return out
}

func hasIssue(entries []model.GuidanceEntry, issue model.IssueType) bool {
	for _, e := range entries {
		if e.Issue == issue {
			return true
		}
	}
	return false
}

// bestSupport finds the pinpointable fragment with the highest token
// overlap against the claim text. Ties resolve to the earlier fragment so
// repairs are deterministic.
func bestSupport(text string, ranked []model.EvidenceItem) (model.EvidenceItem, bool) {
	claimTokens := tokenSet(text)
	if len(claimTokens) == 0 {
		return model.EvidenceItem{}, false
	}

	best := -1
	bestScore := 0.0
	for i, item := range ranked {
		if item.Unpinpointable {
			continue
		}
		overlap := overlapFraction(claimTokens, tokenSet(item.Content))
		if overlap > bestScore {
			bestScore = overlap
			best = i
		}
	}

	if best < 0 || bestScore < minRepairOverlap {
		return model.EvidenceItem{}, false
	}
	return ranked[best], true
}

func pinpointFor(item model.EvidenceItem) model.Pinpoint {
	return model.Pinpoint{
		EvidenceID: item.ID,
		Source:     item.Provenance.SourceLabel,
		Page:       item.Provenance.Page,
		Line:       item.Provenance.LineStart,
	}
}

func firstSentence(text string) string {
	for i, r := range text {
		if r == '.' || r == '!' || r == '?' {
			return strings.TrimSpace(text[:i+1])
		}
	}
	return strings.TrimSpace(text)
}

func tokenSet(text string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, w := range strings.Fields(strings.ToLower(text)) {
		w = strings.Trim(w, ".,;:!?\"'()")
		if w != "" {
			set[w] = struct{}{}
		}
	}
	return set
}

func overlapFraction(claim, evidence map[string]struct{}) float64 {
	if len(claim) == 0 {
		return 0
	}
	hits := 0
	for w := range claim {
		if _, ok := evidence[w]; ok {
			hits++
		}
	}
	return float64(hits) / float64(len(claim))
}
