package model

import "time"

// RawSource is one fragment of haystack input as supplied by an upstream
// source parser: text plus enough provenance to build pinpoints from it.
type RawSource struct {
	Content     string `json:"content" yaml:"content"`                           // Raw fragment text (may contain markup)
	SourceLabel string `json:"source_label" yaml:"source_label"`                 // Human-readable source identifier (file, document)
	Page        int    `json:"page,omitempty" yaml:"page,omitempty"`             // 1-based page number, 0 = unknown
	LineStart   int    `json:"line_start,omitempty" yaml:"line_start,omitempty"` // 1-based first line, 0 = unknown
	LineEnd     int    `json:"line_end,omitempty" yaml:"line_end,omitempty"`     // 1-based last line, 0 = unknown

	// Anchors carry typed coordinate regions for non-text sources. They are
	// a ranking signal, not a substitute for page/line audit validation.
	Anchors []Anchor `json:"anchors,omitempty" yaml:"anchors,omitempty"`
}

// Pinpointable reports whether the source carries enough provenance to
// compute page/line pinpoints. Sources without it are still ingested but
// claims built from them can never pass the audit.
func (s RawSource) Pinpointable() bool {
	return s.Page > 0 && s.LineStart > 0
}

// EvidenceItem is a normalized, immutable unit of source material.
// The content hash is a pure function of the normalized content; two items
// with the same hash are the same evidence and are deduplicated at ingestion.
type EvidenceItem struct {
	ID             string     `json:"id"`
	ContentHash    string     `json:"content_hash"`
	Content        string     `json:"content"`
	Provenance     Provenance `json:"provenance"`
	Anchors        []Anchor   `json:"anchors,omitempty"`
	Quality        float64    `json:"quality"`        // Set exactly once by the ranker
	QualitySet     bool       `json:"quality_set"`    // Guards the set-once discipline
	Unpinpointable bool       `json:"unpinpointable"` // True when provenance lacks page/line
}

// Provenance records where an evidence fragment came from.
type Provenance struct {
	SourceLabel string    `json:"source_label"`
	Page        int       `json:"page,omitempty"`
	LineStart   int       `json:"line_start,omitempty"`
	LineEnd     int       `json:"line_end,omitempty"`
	CapturedAt  time.Time `json:"captured_at"`
}

// Covers reports whether the given page/line falls inside this provenance
// range. Unpinpointable provenance covers nothing.
func (p Provenance) Covers(page, line int) bool {
	if p.Page == 0 || p.LineStart == 0 {
		return false
	}
	if page != p.Page {
		return false
	}
	end := p.LineEnd
	if end == 0 {
		end = p.LineStart
	}
	return line >= p.LineStart && line <= end
}

// AnchorKind classifies a multimodal anchor region.
type AnchorKind string

const (
	AnchorKindText   AnchorKind = "text"
	AnchorKindFigure AnchorKind = "figure"
	AnchorKindTable  AnchorKind = "table"
)

// Anchor is a typed region with coordinates inside a non-text source,
// used as a pinpoint substitute for multimodal evidence.
type Anchor struct {
	Kind  AnchorKind `json:"kind"`
	X     float64    `json:"x"`
	Y     float64    `json:"y"`
	W     float64    `json:"w"`
	H     float64    `json:"h"`
	Label string     `json:"label,omitempty"`
}
