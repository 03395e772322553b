package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"citegate/internal/specgate"
)

// gateCmd represents the gate command
var gateCmd = &cobra.Command{
	Use:   "gate <spec-file> <ledger-file>",
	Short: "Check a specification against the architecture ledger",
	Long: `Gate recomputes the specification's content hash and compares it,
byte for byte, to the architecture ledger's approved spec hash. Any
mismatch, including a single-byte edit after approval, rejects with a
non-zero exit code. There is no partial or fuzzy matching.

The ledger is a YAML file:
  active_spec:
    title: payment-service-v2
    hash: <sha256 of approved spec content>

Example:
  citegate gate spec.md ledger.yaml`,
	Args: cobra.ExactArgs(2),
	RunE: runGate,
}

func init() {
	rootCmd.AddCommand(gateCmd)
}

func runGate(cmd *cobra.Command, args []string) error {
	spec, err := specgate.LoadSpecDocument(args[0])
	if err != nil {
		return err
	}

	ledger, err := specgate.LoadLedger(args[1])
	if err != nil {
		return err
	}

	decision := specgate.Authorize(spec, ledger)
	if !decision.Authorized {
		// Both hashes are printed so the mismatch is debuggable without
		// access to the approval flow.
		fmt.Fprintf(os.Stderr, "REJECTED (%s)\n", decision.Reason)
		fmt.Fprintf(os.Stderr, "  spec hash:     %s\n", decision.SpecHash)
		fmt.Fprintf(os.Stderr, "  approved hash: %s\n", decision.LedgerHash)
		return decision.Err()
	}

	fmt.Printf("AUTHORIZED %s (%s)\n", ledger.ActiveSpec.Title, decision.SpecHash)
	return nil
}
