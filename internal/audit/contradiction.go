package audit

import (
	"sort"
	"strings"

	"citegate/internal/model"
)

// negationExpansions de-contracts common negated forms before token-level
// negation stripping.
var negationExpansions = map[string]string{
	"isn't":   "is",
	"aren't":  "are",
	"wasn't":  "was",
	"weren't": "were",
	"don't":   "do",
	"doesn't": "does",
	"didn't":  "did",
	"can't":   "can",
	"cannot":  "can",
	"won't":   "will",
	"hasn't":  "has",
	"haven't": "have",
	"hadn't":  "had",
}

var negationTokens = map[string]bool{
	"not":   true,
	"no":    true,
	"never": true,
}

// findContradictions runs the logic-inversion pass over the valid claims:
// for each claim, construct its negation and check whether another valid
// claim asserts that negation with equal or higher confidence. Claims that
// are merely mutually exclusive in context, without a strict negation, do
// not count.
func findContradictions(valid []model.SentenceClaim) model.ContradictionResult {
	ordered := make([]model.SentenceClaim, len(valid))
	copy(ordered, valid)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Position < ordered[j].Position
	})

	type form struct {
		canonical string
		stripped  string
		negated   bool
	}
	forms := make([]form, len(ordered))
	for i, c := range ordered {
		canonical := canonicalize(c.Text)
		stripped, negated := stripNegation(canonical)
		forms[i] = form{canonical: canonical, stripped: stripped, negated: negated}
	}

	result := model.ContradictionResult{}
	for i := 0; i < len(ordered); i++ {
		for j := i + 1; j < len(ordered); j++ {
			result.ChecksRun++

			var pos, neg int
			switch {
			case forms[j].negated && !forms[i].negated && forms[j].stripped == forms[i].canonical:
				pos, neg = i, j
			case forms[i].negated && !forms[j].negated && forms[i].stripped == forms[j].canonical:
				pos, neg = j, i
			default:
				continue
			}

			// Conservative rule: the negating claim must carry equal or
			// higher confidence than the claim it inverts.
			if ordered[neg].Confidence < ordered[pos].Confidence {
				continue
			}

			result.Found++
			result.Pairs = append(result.Pairs, model.ContradictionPair{
				ClaimID:      ordered[pos].ID,
				OpposingID:   ordered[neg].ID,
				ClaimText:    ordered[pos].Text,
				OpposingText: ordered[neg].Text,
			})
		}
	}

	return result
}

// canonicalize lowercases, strips punctuation, and collapses whitespace.
func canonicalize(text string) string {
	var words []string
	for _, w := range strings.Fields(strings.ToLower(text)) {
		w = strings.Trim(w, ".,;:!?\"'()")
		if w == "" {
			continue
		}
		if expanded, ok := negationExpansions[w]; ok {
			words = append(words, expanded, "not")
			continue
		}
		words = append(words, w)
	}
	return strings.Join(words, " ")
}

// stripNegation removes explicit negation tokens from a canonical form,
// reporting whether any were present.
func stripNegation(canonical string) (string, bool) {
	var words []string
	negated := false
	for _, w := range strings.Fields(canonical) {
		if negationTokens[w] {
			negated = true
			continue
		}
		words = append(words, w)
	}
	return strings.Join(words, " "), negated
}
