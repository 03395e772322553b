package model

import (
	"fmt"
	"strings"
)

// ClaimType categorizes the nature of a sentence claim. Only factual claims
// require evidence pinpoints.
type ClaimType string

const (
	ClaimTypeFactual    ClaimType = "factual"
	ClaimTypeAnalytical ClaimType = "analytical"
	ClaimTypeOpinion    ClaimType = "opinion"
)

// Pinpoint is an exact (evidence_id, source, page, line) reference
// substantiating one claim.
type Pinpoint struct {
	EvidenceID string `json:"evidence_id"`
	Source     string `json:"source"`
	Page       int    `json:"page"`
	Line       int    `json:"line"`
}

// SentenceClaim is one sentence of the drafted narrative together with its
// evidentiary backing. Claims are superseded, never mutated: each revision
// cycle produces a fresh claim at the same narrative position.
type SentenceClaim struct {
	ID          string     `json:"id"`
	Position    int        `json:"position"` // 0-based position in the narrative
	Text        string     `json:"text"`
	Type        ClaimType  `json:"type"`
	EvidenceIDs []string   `json:"evidence_ids,omitempty"`
	Pinpoints   []Pinpoint `json:"pinpoints,omitempty"`
	Confidence  float64    `json:"confidence"`
	TraceHash   string     `json:"trace_hash"`
}

// ComputeTraceHash digests the sentence text plus its pinpoints for tamper
// detection.
func (c SentenceClaim) ComputeTraceHash() string {
	var b strings.Builder
	b.WriteString(c.Text)
	for _, p := range c.Pinpoints {
		fmt.Fprintf(&b, "|%s:%s:%d:%d", p.EvidenceID, p.Source, p.Page, p.Line)
	}
	return TextHash(b.String())
}

// LedgerStats aggregates per-cycle claim statistics.
type LedgerStats struct {
	TotalClaims     int     `json:"total_claims"`
	FactualClaims   int     `json:"factual_claims"`
	ValidPinpointed int     `json:"valid_pinpointed"`
	CoverageRatio   float64 `json:"coverage_ratio"`
}

// ClaimLedger is the authoritative registry of all claims in one draft
// cycle. It is rebuilt fresh on every cycle and never mutated in place.
type ClaimLedger struct {
	Claims []SentenceClaim `json:"claims"`
	Stats  LedgerStats     `json:"stats"`
	Hash   string          `json:"hash"`
}

// ComputeLedgerHash digests the full claim list.
func (l ClaimLedger) ComputeLedgerHash() string {
	var b strings.Builder
	for _, c := range l.Claims {
		b.WriteString(c.TraceHash)
		b.WriteString("|")
	}
	return TextHash(b.String())
}
