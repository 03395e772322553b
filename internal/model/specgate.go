package model

import "time"

// SpecDocument is an externally authored specification submitted for
// code generation. Hash is the SHA-256 digest of the document content.
type SpecDocument struct {
	Title        string `json:"title" yaml:"title"`
	Requirements string `json:"requirements" yaml:"requirements"`
	Architecture string `json:"architecture,omitempty" yaml:"architecture,omitempty"`
	Hash         string `json:"hash" yaml:"hash"`
}

// ArchitectureDecision is one recorded decision in the ledger.
type ArchitectureDecision struct {
	ID        string    `json:"id" yaml:"id"`
	Summary   string    `json:"summary" yaml:"summary"`
	DecidedAt time.Time `json:"decided_at,omitempty" yaml:"decided_at,omitempty"`
}

// ActiveSpec points at the currently approved specification.
type ActiveSpec struct {
	Title      string    `json:"title" yaml:"title"`
	Hash       string    `json:"hash" yaml:"hash"`
	ApprovedAt time.Time `json:"approved_at,omitempty" yaml:"approved_at,omitempty"`
}

// ArchitectureLedger records architectural decisions and the hash of the
// approved specification. The spec gate only reads it, never writes it.
type ArchitectureLedger struct {
	Decisions  []ArchitectureDecision `json:"decisions,omitempty" yaml:"decisions,omitempty"`
	ActiveSpec ActiveSpec             `json:"active_spec" yaml:"active_spec"`
}
