// Package rank scores evidence items by a deterministic signal-to-noise
// quality measure and filters what reaches the drafter. Excluded items stay
// in the evidence store for audit traceability.
package rank

import (
	"context"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"citegate/internal/model"
)

// Default scoring weights. Scores land in [0, 1]; the configurable floor
// (default 0.7) decides what the drafter sees.
const (
	baseWeight        = 0.35
	specificityWeight = 0.35
	lengthWeight      = 0.30
	redundancyPenalty = 0.5 // Multiplier applied to near-duplicates

	minWords     = 4
	goodMinWords = 8
	goodMaxWords = 120
	maxWords     = 300

	nearDuplicateJaccard = 0.85
)

// QualityWriter records a score back onto the owning store. The evidence
// store's SetQuality enforces the set-once discipline.
type QualityWriter interface {
	SetQuality(id string, score float64) error
}

// Ranker assigns quality scores and filters by the quality floor.
type Ranker struct {
	floor   float64
	workers int
	writer  QualityWriter
}

// NewRanker creates a ranker. writer may be nil when scores do not need to
// be persisted back to a store.
func NewRanker(floor float64, workers int, writer QualityWriter) *Ranker {
	if workers <= 0 {
		workers = 8
	}
	return &Ranker{floor: floor, workers: workers, writer: writer}
}

// Rank scores every item and returns the subset at or above the quality
// floor, in the original order. Per-item base scoring has no cross-item
// dependencies and runs in parallel; the redundancy pass is sequential over
// a stable order so results are deterministic.
func (r *Ranker) Rank(ctx context.Context, items []model.EvidenceItem) ([]model.EvidenceItem, error) {
	if len(items) == 0 {
		return nil, nil
	}

	base := make([]float64, len(items))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)
	for i := range items {
		i := i
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			score, _ := BaseScore(items[i])
			base[i] = score
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Redundancy pass: near-duplicates of an earlier fragment are
	// down-weighted. Order is content-hash-sorted so the penalty lands on
	// the same item regardless of ingestion order.
	penalized := redundancyPass(items)

	scored := make([]model.EvidenceItem, len(items))
	for i, item := range items {
		score := base[i]
		if penalized[item.ContentHash] {
			score *= redundancyPenalty
		}
		item.Quality = round4(score)
		item.QualitySet = true
		scored[i] = item

		if r.writer != nil {
			if err := r.writer.SetQuality(item.ID, item.Quality); err != nil {
				return nil, err
			}
		}
	}

	var kept []model.EvidenceItem
	for _, item := range scored {
		if item.Quality >= r.floor {
			kept = append(kept, item)
		}
	}
	return kept, nil
}

// BaseScore computes the pre-redundancy quality of a single item and a
// transparent component breakdown.
func BaseScore(item model.EvidenceItem) (float64, map[string]float64) {
	components := map[string]float64{"base": baseWeight}
	score := baseWeight

	// Specificity: a concrete page/line anchor (or a typed multimodal
	// anchor) makes the fragment citable.
	if !item.Unpinpointable || len(item.Anchors) > 0 {
		components["specificity"] = specificityWeight
		score += specificityWeight
	}

	words := len(strings.Fields(item.Content))
	lengthScore := 0.0
	switch {
	case words < minWords || words > maxWords:
		lengthScore = 0
	case words >= goodMinWords && words <= goodMaxWords:
		lengthScore = lengthWeight
	default:
		lengthScore = lengthWeight / 2
	}
	components["length"] = lengthScore
	score += lengthScore

	return round4(score), components
}

// redundancyPass marks content hashes whose token sets nearly duplicate an
// earlier (hash-ordered) fragment.
func redundancyPass(items []model.EvidenceItem) map[string]bool {
	ordered := make([]model.EvidenceItem, len(items))
	copy(ordered, items)
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].ContentHash < ordered[j].ContentHash
	})

	penalized := make(map[string]bool)
	var kept []map[string]struct{}

	for _, item := range ordered {
		tokens := tokenSet(item.Content)
		dup := false
		for _, prev := range kept {
			if jaccard(tokens, prev) >= nearDuplicateJaccard {
				dup = true
				break
			}
		}
		if dup {
			penalized[item.ContentHash] = true
			continue
		}
		kept = append(kept, tokens)
	}

	return penalized
}

func tokenSet(text string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, w := range strings.Fields(strings.ToLower(text)) {
		set[strings.Trim(w, ".,;:!?\"'()")] = struct{}{}
	}
	return set
}

func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	inter := 0
	for w := range a {
		if _, ok := b[w]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	return float64(inter) / float64(union)
}

func round4(f float64) float64 {
	return float64(int(f*10000+0.5)) / 10000
}
