package model

import (
	"fmt"
	"strings"
	"time"
)

// AuditStatus is the binary verdict of one coverage audit.
type AuditStatus string

const (
	AuditStatusPass AuditStatus = "PASS"
	AuditStatusFail AuditStatus = "FAIL"
)

// IssueType classifies why a claim failed the audit.
type IssueType string

const (
	IssueMissingPinpoint    IssueType = "missing_pinpoint"
	IssueOutOfRangePinpoint IssueType = "out_of_range_pinpoint"
	IssueUnsupportedClaim   IssueType = "unsupported_claim"
	IssueContradiction      IssueType = "contradiction"
)

// CCCMetric is the Claim-Citation Coverage metric: the ratio of factual
// claims with at least one valid pinpoint to total factual claims.
type CCCMetric struct {
	Valid     int     `json:"v"`         // Claims with at least one valid pinpoint
	Total     int     `json:"u"`         // Total factual assertions
	Ratio     float64 `json:"ratio"`     // V/U, 1.0 when U == 0
	Threshold float64 `json:"threshold"` // Minimum acceptable ratio
}

// ContradictionPair names two valid claims that assert each other's negation.
type ContradictionPair struct {
	ClaimID      string `json:"claim_id"`
	OpposingID   string `json:"opposing_id"`
	ClaimText    string `json:"claim_text"`
	OpposingText string `json:"opposing_text"`
}

// ContradictionResult summarizes the logic-inversion pass.
type ContradictionResult struct {
	ChecksRun int                 `json:"checks_run"`
	Found     int                 `json:"found"`
	Pairs     []ContradictionPair `json:"pairs,omitempty"`
}

// GuidanceEntry tells the drafter what to fix on the next revision cycle.
type GuidanceEntry struct {
	ClaimID string    `json:"claim_id"`
	Issue   IssueType `json:"issue"`
	Remedy  string    `json:"remedy"`
}

// AuditReport is the coverage auditor's verdict for one cycle. Reports are
// immutable and retained across all cycles of a pipeline run.
//
// Hash covers only the logical payload (status, metric, contradictions,
// guidance) so that re-auditing the same ledger yields an identical hash
// regardless of report ID or timestamp.
type AuditReport struct {
	ID             string              `json:"id"`
	GeneratedAt    time.Time           `json:"generated_at"`
	Status         AuditStatus         `json:"status"`
	CCC            CCCMetric           `json:"ccc"`
	Contradictions ContradictionResult `json:"contradictions"`
	Guidance       []GuidanceEntry     `json:"guidance,omitempty"`
	Hash           string              `json:"hash"`
}

// ComputeReportHash digests the logical audit payload.
func (r AuditReport) ComputeReportHash() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s|%d/%d|%.6f|%.6f|%d/%d",
		r.Status, r.CCC.Valid, r.CCC.Total, r.CCC.Ratio, r.CCC.Threshold,
		r.Contradictions.Found, r.Contradictions.ChecksRun)
	for _, p := range r.Contradictions.Pairs {
		fmt.Fprintf(&b, "|%s~%s", p.ClaimID, p.OpposingID)
	}
	for _, g := range r.Guidance {
		fmt.Fprintf(&b, "|%s:%s", g.ClaimID, g.Issue)
	}
	return TextHash(b.String())
}

// RunStatus is the terminal outcome of one pipeline run.
type RunStatus string

const (
	RunStatusPass      RunStatus = "PASS"
	RunStatusEscalated RunStatus = "ESCALATED"
)

// CycleRecord pairs the ledger and audit report of one revision cycle.
type CycleRecord struct {
	Cycle  int          `json:"cycle"` // 0-based draft attempt index
	Ledger ClaimLedger  `json:"claim_ledger"`
	Audit  *AuditReport `json:"audit_report"`
}

// RunOutcome is the caller-visible result of a pipeline run: the final
// narrative on PASS, or the full cycle history on ESCALATED.
type RunOutcome struct {
	Subject               string          `json:"subject,omitempty"`
	Status                RunStatus       `json:"status"`
	Narrative             []SentenceClaim `json:"narrative,omitempty"`
	Ledger                *ClaimLedger    `json:"claim_ledger,omitempty"`
	Audit                 *AuditReport    `json:"audit_report,omitempty"`
	Cycles                []CycleRecord   `json:"cycles,omitempty"`
	MaxRevisionsExhausted bool            `json:"max_revisions_exhausted,omitempty"`
	StateTrace            []string        `json:"state_trace,omitempty"`
	IngestErrors          []string        `json:"ingest_errors,omitempty"`
}
