package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"citegate/internal/pipeline"
	"citegate/internal/worker"
)

var (
	concurrency  int
	outputDir    string
	batchTimeout time.Duration
)

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch <list-file>",
	Short: "Run multiple haystack files in parallel",
	Long: `Batch runs multiple haystacks concurrently:
- Read haystack file paths from the list file (one per line)
- Each run is fully independent, with its own evidence store
- Generate individual outcome reports per haystack

Example:
  citegate batch haystacks.txt
  citegate batch haystacks.txt --concurrency 8 --output-dir ./reports`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().IntVar(&concurrency, "concurrency", runtime.NumCPU(), "number of concurrent runs")
	batchCmd.Flags().StringVar(&outputDir, "output-dir", "./citegate-reports", "output directory for reports")
	batchCmd.Flags().DurationVar(&batchTimeout, "timeout", 30*time.Minute, "total timeout for batch processing")

	// Gate flags shared with run
	batchCmd.Flags().Float64Var(&threshold, "threshold", 0.95, "minimum acceptable coverage ratio (inclusive)")
	batchCmd.Flags().IntVar(&maxCycles, "max-cycles", 3, "bound on revision cycles")
	batchCmd.Flags().Float64Var(&qualityFloor, "quality-floor", 0.7, "minimum ranker score admitted to drafting")
	batchCmd.Flags().BoolVar(&noCache, "no-cache", false, "disable completion cache")
	batchCmd.Flags().BoolVar(&noFooter, "no-footer", false, "disable footer in Markdown reports")

	// LLM flags
	batchCmd.Flags().BoolVar(&llmEnabled, "llm", false, "enable LLM-backed drafting")
	batchCmd.Flags().StringVar(&llmProvider, "llm-provider", "openai", "LLM provider (openai, anthropic, ollama)")
	batchCmd.Flags().StringVar(&llmModel, "llm-model", "gpt-4o-mini", "LLM model name")
}

func runBatch(cmd *cobra.Command, args []string) error {
	listFile := args[0]
	ctx, cancel := context.WithTimeout(context.Background(), batchTimeout)
	defer cancel()

	cfg, err := buildConfig()
	if err != nil {
		return err
	}
	cfg.Concurrency.BatchRuns = concurrency

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	fmt.Fprintf(os.Stderr, "Batch: %s (%d workers, output %s)\n\n", listFile, concurrency, outputDir)

	p := pipeline.NewPipeline(cfg)
	processor := worker.NewBatchProcessor(p, concurrency)

	results, err := processor.ProcessFile(ctx, listFile)
	if err != nil {
		return fmt.Errorf("batch failed: %w", err)
	}

	passed, escalated, failed := 0, 0, 0
	for _, res := range results {
		if res.Error != nil {
			failed++
			fmt.Fprintf(os.Stderr, "ERROR %s: %v\n", res.Path, res.Error)
			continue
		}

		name := strings.TrimSuffix(filepath.Base(res.Path), filepath.Ext(res.Path))
		jsonPath := filepath.Join(outputDir, name+".json")
		mdPath := filepath.Join(outputDir, name+".md")
		if err := p.RenderOutcome(res.Outcome, jsonPath, mdPath, verbose); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: render %s: %v\n", res.Path, err)
		}

		switch res.Outcome.Status {
		case "PASS":
			passed++
		default:
			escalated++
		}
	}

	fmt.Fprintf(os.Stderr, "\nDone: %d passed, %d escalated, %d errored\n", passed, escalated, failed)
	if failed > 0 {
		return fmt.Errorf("%d of %d runs errored", failed, len(results))
	}
	return nil
}
