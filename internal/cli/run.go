package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"citegate/internal/model"
	"citegate/internal/pipeline"
)

var (
	outJSON      string
	outMD        string
	runTimeout   time.Duration
	threshold    float64
	maxCycles    int
	qualityFloor float64
	noCache      bool
	noFooter     bool
	llmEnabled   bool
	llmProvider  string
	llmModel     string
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run <haystack-file>",
	Short: "Run one haystack through the claim-verification pipeline",
	Long: `Run ingests a haystack file (JSON or YAML), ranks the evidence,
drafts a pinpoint-cited narrative, and audits it against the CCC gate,
revising up to the cycle bound when coverage is insufficient.

The haystack file holds source fragments with provenance:
  {"subject": "...", "sources": [{"content": "...", "source_label": "report.pdf", "page": 4, "line_start": 12, "line_end": 30}]}

Example:
  citegate run haystack.json
  citegate run haystack.yaml --threshold 0.98 --max-cycles 5
  citegate run haystack.json --llm openai --llm-model gpt-4o-mini`,
	Args: cobra.ExactArgs(1),
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)

	// Output flags
	runCmd.Flags().StringVar(&outJSON, "json", "outcome.json", "output JSON path")
	runCmd.Flags().StringVar(&outMD, "md", "", "output Markdown path (optional)")

	// Gate flags
	runCmd.Flags().Float64Var(&threshold, "threshold", 0.95, "minimum acceptable coverage ratio (inclusive)")
	runCmd.Flags().IntVar(&maxCycles, "max-cycles", 3, "bound on revision cycles")
	runCmd.Flags().Float64Var(&qualityFloor, "quality-floor", 0.7, "minimum ranker score admitted to drafting")

	runCmd.Flags().DurationVar(&runTimeout, "timeout", 5*time.Minute, "overall run timeout")
	runCmd.Flags().BoolVar(&noCache, "no-cache", false, "disable completion cache")
	runCmd.Flags().BoolVar(&noFooter, "no-footer", false, "disable footer in Markdown reports")

	// LLM flags
	runCmd.Flags().BoolVar(&llmEnabled, "llm", false, "enable LLM-backed drafting")
	runCmd.Flags().StringVar(&llmProvider, "llm-provider", "openai", "LLM provider (openai, anthropic, ollama)")
	runCmd.Flags().StringVar(&llmModel, "llm-model", "gpt-4o-mini", "LLM model name")
}

// buildConfig layers the run flags over the defaults.
func buildConfig() (*model.Config, error) {
	cfg := model.DefaultConfig()
	cfg.Pipeline.CCCThreshold = threshold
	cfg.Pipeline.MaxRevisionCycles = maxCycles
	cfg.Pipeline.QualityFloor = qualityFloor
	cfg.Cache.Enabled = !noCache
	cfg.Output.Verbose = verbose
	cfg.Output.IncludeFooter = !noFooter

	if llmEnabled {
		cfg.LLM.Provider = llmProvider
		cfg.LLM.Model = llmModel

		switch llmProvider {
		case "openai":
			cfg.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
			if cfg.LLM.APIKey == "" {
				return nil, fmt.Errorf("OPENAI_API_KEY environment variable not set")
			}
		case "anthropic", "claude":
			cfg.LLM.APIKey = os.Getenv("ANTHROPIC_API_KEY")
			if cfg.LLM.APIKey == "" {
				return nil, fmt.Errorf("ANTHROPIC_API_KEY environment variable not set")
			}
		case "ollama":
			if baseURL := os.Getenv("OLLAMA_BASE_URL"); baseURL != "" {
				cfg.LLM.BaseURL = baseURL
			}
		}
	}

	return cfg, nil
}

func runRun(cmd *cobra.Command, args []string) error {
	path := args[0]
	ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
	defer cancel()

	cfg, err := buildConfig()
	if err != nil {
		return err
	}

	if verbose {
		fmt.Fprintf(os.Stderr, "Haystack: %s\n", path)
		fmt.Fprintf(os.Stderr, "Threshold: %.2f, max cycles: %d, quality floor: %.2f\n",
			cfg.Pipeline.CCCThreshold, cfg.Pipeline.MaxRevisionCycles, cfg.Pipeline.QualityFloor)
		fmt.Fprintln(os.Stderr)
	}

	p := pipeline.NewPipeline(cfg)

	outcome, err := p.RunFile(ctx, path)
	if err != nil {
		return fmt.Errorf("run failed: %w", err)
	}

	if verbose {
		fmt.Fprintf(os.Stderr, "Cycles: %d\n", len(outcome.Cycles))
		for _, c := range outcome.Cycles {
			fmt.Fprintf(os.Stderr, "  cycle %d: %s (%d/%d valid)\n",
				c.Cycle, c.Audit.Status, c.Audit.CCC.Valid, c.Audit.CCC.Total)
		}
		fmt.Fprintln(os.Stderr)
	}

	if err := p.RenderOutcome(outcome, outJSON, outMD, verbose); err != nil {
		return fmt.Errorf("render failed: %w", err)
	}

	return nil
}
