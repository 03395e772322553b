// Package store implements the evidence store: it normalizes raw source
// fragments into immutable, hash-identified evidence records and owns the
// deduplication index for the lifetime of a pipeline run.
package store

import (
	"fmt"
	"sync"
	"time"

	"citegate/internal/model"
)

// Store holds all evidence items for one pipeline run. Only the ingestion
// path writes; every later stage reads. The index mutex enforces that
// single-writer discipline for callers that ingest while other runs read.
type Store struct {
	mu      sync.RWMutex
	byID    map[string]model.EvidenceItem
	byHash  map[string]string // content hash -> item ID
	ordered []string          // IDs in ingestion order
	now     func() time.Time
}

// New creates an empty evidence store.
func New() *Store {
	return &Store{
		byID:   make(map[string]model.EvidenceItem),
		byHash: make(map[string]string),
		now:    time.Now,
	}
}

// Ingest normalizes raw sources into evidence items, deduplicating by
// content hash. Sources that cannot be parsed into discrete fragments are
// reported as MalformedSourceError values in the returned slice; the rest of
// the batch still ingests. Sources lacking page/line provenance are ingested
// but flagged unpinpointable.
func (s *Store) Ingest(sources []model.RawSource) ([]model.EvidenceItem, []error) {
	var items []model.EvidenceItem
	var errs []error

	for _, src := range sources {
		frags := splitFragments(src.Content)
		if len(frags) == 0 {
			errs = append(errs, &model.MalformedSourceError{
				SourceLabel: src.SourceLabel,
				Reason:      "no discrete fragments (empty content)",
			})
			continue
		}

		for _, frag := range frags {
			normalized := NormalizeContent(frag.text)
			if normalized == "" {
				continue
			}

			item, isNew := s.add(src, frag, normalized)
			if isNew {
				items = append(items, item)
			}
		}
	}

	return items, errs
}

// add inserts one fragment under the writer lock, returning the existing
// item when the content hash is already known.
func (s *Store) add(src model.RawSource, frag fragment, normalized string) (model.EvidenceItem, bool) {
	hash := model.TextHash(normalized)

	s.mu.Lock()
	defer s.mu.Unlock()

	if id, ok := s.byHash[hash]; ok {
		return s.byID[id], false
	}

	prov := model.Provenance{
		SourceLabel: src.SourceLabel,
		CapturedAt:  s.now().UTC(),
	}
	if src.Pinpointable() {
		prov.Page = src.Page
		prov.LineStart = src.LineStart + frag.lineOffset
		prov.LineEnd = prov.LineStart + frag.lineCount - 1
		if src.LineEnd > 0 && prov.LineEnd > src.LineEnd {
			prov.LineEnd = src.LineEnd
		}
	}

	// IDs derive from the content hash so the same evidence gets the same
	// identifier on every run.
	item := model.EvidenceItem{
		ID:             "ev-" + hash[:12],
		ContentHash:    hash,
		Content:        normalized,
		Provenance:     prov,
		Anchors:        src.Anchors,
		Unpinpointable: !src.Pinpointable(),
	}

	s.byID[item.ID] = item
	s.byHash[hash] = item.ID
	s.ordered = append(s.ordered, item.ID)

	return item, true
}

// Get returns the evidence item with the given ID.
func (s *Store) Get(id string) (model.EvidenceItem, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	item, ok := s.byID[id]
	return item, ok
}

// Items returns all evidence items in ingestion order, including items the
// ranker later excludes from drafting (they stay here for audit
// traceability).
func (s *Store) Items() []model.EvidenceItem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	items := make([]model.EvidenceItem, 0, len(s.ordered))
	for _, id := range s.ordered {
		items = append(items, s.byID[id])
	}
	return items
}

// Len returns the number of distinct evidence items.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}

// SetQuality records the ranker's quality score for an item. The score is
// set exactly once; a second attempt is an error, keeping evidence items
// immutable after ranking.
func (s *Store) SetQuality(id string, score float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.byID[id]
	if !ok {
		return fmt.Errorf("set quality: unknown evidence item %s", id)
	}
	if item.QualitySet {
		return fmt.Errorf("set quality: score already set for %s", id)
	}

	item.Quality = score
	item.QualitySet = true
	s.byID[id] = item
	return nil
}

// Covers reports whether the pinpoint resolves to a known evidence item
// whose provenance range contains the cited page/line.
func (s *Store) Covers(p model.Pinpoint) bool {
	item, ok := s.Get(p.EvidenceID)
	if !ok {
		return false
	}
	return item.Provenance.Covers(p.Page, p.Line)
}
