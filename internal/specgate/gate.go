// Package specgate guards code generation behind a cryptographic proof that
// an approved specification is the one being used. The check is a strict
// byte-for-byte hash equality; there is no partial or fuzzy matching.
package specgate

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"citegate/internal/model"
)

// RejectionReason is the machine-readable cause of a Rejected decision.
const ReasonSpecHashMismatch = "spec_hash_mismatch"

// Decision is the outcome of an authorization check.
type Decision struct {
	Authorized bool   `json:"authorized"`
	Reason     string `json:"reason,omitempty"`
	SpecHash   string `json:"spec_hash"`
	LedgerHash string `json:"ledger_hash"`
}

// Err converts a rejection into an error; authorized decisions return nil.
func (d Decision) Err() error {
	if d.Authorized {
		return nil
	}
	return fmt.Errorf("spec gate rejected (%s): spec hash %s does not match approved hash %s",
		d.Reason, d.SpecHash, d.LedgerHash)
}

// Authorize recomputes the specification's content hash and compares it,
// byte for byte, to the ledger's active spec hash. Any mismatch, including
// a single-byte edit after approval, rejects. Both hashes are reported for
// debuggability.
func Authorize(spec model.SpecDocument, ledger model.ArchitectureLedger) Decision {
	specHash := HashSpec(spec)
	approved := ledger.ActiveSpec.Hash

	if specHash != approved {
		return Decision{
			Authorized: false,
			Reason:     ReasonSpecHashMismatch,
			SpecHash:   specHash,
			LedgerHash: approved,
		}
	}

	return Decision{
		Authorized: true,
		SpecHash:   specHash,
		LedgerHash: approved,
	}
}

// HashSpec digests the specification content (requirements plus
// architecture notes). The stored Hash field is ignored: the gate trusts
// only what it recomputes.
func HashSpec(spec model.SpecDocument) string {
	return model.TextHash(spec.Requirements + "\x00" + spec.Architecture)
}

// LoadSpecDocument reads a specification from disk. Markdown files become
// the requirements body wholesale; YAML files unmarshal into the full
// document shape.
func LoadSpecDocument(path string) (model.SpecDocument, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return model.SpecDocument{}, fmt.Errorf("read spec: %w", err)
	}

	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".yaml" || ext == ".yml" {
		var spec model.SpecDocument
		if err := yaml.Unmarshal(data, &spec); err != nil {
			return model.SpecDocument{}, fmt.Errorf("parse spec: %w", err)
		}
		spec.Hash = HashSpec(spec)
		return spec, nil
	}

	spec := model.SpecDocument{
		Title:        filepath.Base(path),
		Requirements: string(data),
	}
	spec.Hash = HashSpec(spec)
	return spec, nil
}

// LoadLedger reads an architecture ledger from a YAML file.
func LoadLedger(path string) (model.ArchitectureLedger, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return model.ArchitectureLedger{}, fmt.Errorf("read ledger: %w", err)
	}

	var ledger model.ArchitectureLedger
	if err := yaml.Unmarshal(data, &ledger); err != nil {
		return model.ArchitectureLedger{}, fmt.Errorf("parse ledger: %w", err)
	}

	if ledger.ActiveSpec.Hash == "" {
		return model.ArchitectureLedger{}, fmt.Errorf("ledger has no active spec hash")
	}
	return ledger, nil
}
