package worker

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"citegate/internal/model"
)

// Runner runs one haystack file through a full pipeline. Independent runs
// may execute in parallel: each gets its own evidence store.
type Runner interface {
	RunFile(ctx context.Context, path string) (*model.RunOutcome, error)
}

// RunJob is one haystack-file pipeline run.
type RunJob struct {
	Path   string
	Runner Runner
}

// Execute runs the job.
func (j *RunJob) Execute(ctx context.Context) Result {
	outcome, err := j.Runner.RunFile(ctx, j.Path)
	return &RunResult{
		Path:    j.Path,
		Outcome: outcome,
		Error:   err,
	}
}

// RunResult is the result of one haystack run.
type RunResult struct {
	Path    string
	Outcome *model.RunOutcome
	Error   error
}

// GetError returns the error from the run.
func (r *RunResult) GetError() error {
	return r.Error
}

// BatchProcessor runs multiple haystack files concurrently.
type BatchProcessor struct {
	runner      Runner
	concurrency int
}

// NewBatchProcessor creates a new batch processor.
func NewBatchProcessor(runner Runner, concurrency int) *BatchProcessor {
	return &BatchProcessor{
		runner:      runner,
		concurrency: concurrency,
	}
}

// ProcessPaths runs the given haystack files concurrently. Cancelling ctx
// stops admission of unstarted runs and propagates into running pipelines.
func (b *BatchProcessor) ProcessPaths(ctx context.Context, paths []string) []*RunResult {
	if len(paths) == 0 {
		return []*RunResult{}
	}

	pool := NewPool(ctx, b.concurrency)
	pool.Start()

	// Submission runs alongside the Wait drain: with both channel buffers
	// bounded, submitting the whole batch up front would fill the results
	// buffer and wedge workers on batches larger than the buffers.
	go func() {
		defer pool.Close()
		for _, path := range paths {
			pool.Submit(&RunJob{
				Path:   path,
				Runner: b.runner,
			})
		}
	}()

	results := pool.Wait()

	runResults := make([]*RunResult, len(results))
	for i, result := range results {
		runResults[i] = result.(*RunResult)
	}

	return runResults
}

// ProcessFile reads haystack paths from a list file and runs them.
func (b *BatchProcessor) ProcessFile(ctx context.Context, listPath string) ([]*RunResult, error) {
	paths, err := ReadPathsFromFile(listPath)
	if err != nil {
		return nil, fmt.Errorf("read paths: %w", err)
	}

	return b.ProcessPaths(ctx, paths), nil
}

// ReadPathsFromFile reads haystack file paths (one per line), skipping
// blanks, comments, and duplicates.
func ReadPathsFromFile(listPath string) ([]string, error) {
	file, err := os.Open(listPath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var paths []string
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if !seen[line] {
			seen[line] = true
			paths = append(paths, line)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan file: %w", err)
	}

	return paths, nil
}
