package llm

import (
	"context"
	"errors"
	"testing"
	"time"
)

// flakyGenerator fails a fixed number of times before succeeding.
type flakyGenerator struct {
	failures int
	err      error
	calls    int
}

func (g *flakyGenerator) Name() string { return "flaky" }

func (g *flakyGenerator) Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	g.calls++
	if g.calls <= g.failures {
		return nil, g.err
	}
	return &GenerateResponse{Text: "ok", Model: "test"}, nil
}

func (g *flakyGenerator) IsAvailable(ctx context.Context) bool { return true }

// stubSleep replaces the backoff sleep and records requested durations.
func stubSleep(t *testing.T) *[]time.Duration {
	t.Helper()
	var slept []time.Duration
	orig := retrySleepFunc
	retrySleepFunc = func(ctx context.Context, d time.Duration) error {
		slept = append(slept, d)
		return ctx.Err()
	}
	t.Cleanup(func() { retrySleepFunc = orig })
	return &slept
}

func TestRetryingGenerator_RetriesTransient(t *testing.T) {
	slept := stubSleep(t)
	gen := &flakyGenerator{failures: 2, err: transientf("rate limited")}

	r := WithRetry(gen, 3, nil)
	resp, err := r.Generate(context.Background(), GenerateRequest{Prompt: "p"})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if resp.Text != "ok" {
		t.Errorf("resp.Text = %q", resp.Text)
	}
	if gen.calls != 3 {
		t.Errorf("generator called %d times, want 3", gen.calls)
	}

	// Exponential backoff: 1s then 2s.
	want := []time.Duration{time.Second, 2 * time.Second}
	if len(*slept) != len(want) || (*slept)[0] != want[0] || (*slept)[1] != want[1] {
		t.Errorf("backoff = %v, want %v", *slept, want)
	}
}

func TestRetryingGenerator_NonTransientFailsFast(t *testing.T) {
	stubSleep(t)
	permanent := errors.New("invalid api key")
	gen := &flakyGenerator{failures: 10, err: permanent}

	r := WithRetry(gen, 3, nil)
	_, err := r.Generate(context.Background(), GenerateRequest{Prompt: "p"})
	if !errors.Is(err, permanent) {
		t.Fatalf("err = %v, want the permanent error", err)
	}
	if gen.calls != 1 {
		t.Errorf("generator called %d times, want 1 (no retry on permanent errors)", gen.calls)
	}
}

func TestRetryingGenerator_ExhaustsRetries(t *testing.T) {
	stubSleep(t)
	gen := &flakyGenerator{failures: 10, err: transientf("still overloaded")}

	r := WithRetry(gen, 3, nil)
	_, err := r.Generate(context.Background(), GenerateRequest{Prompt: "p"})
	if err == nil {
		t.Fatal("expected error after exhausting retries")
	}
	if !IsTransient(err) {
		t.Errorf("exhaustion error should keep its transient classification: %v", err)
	}
	if gen.calls != 3 {
		t.Errorf("generator called %d times, want 3", gen.calls)
	}
}

func TestRetryingGenerator_ContextCancelDuringBackoff(t *testing.T) {
	orig := retrySleepFunc
	retrySleepFunc = func(ctx context.Context, d time.Duration) error {
		return context.Canceled
	}
	t.Cleanup(func() { retrySleepFunc = orig })

	gen := &flakyGenerator{failures: 10, err: transientf("overloaded")}
	r := WithRetry(gen, 3, nil)

	_, err := r.Generate(context.Background(), GenerateRequest{Prompt: "p"})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
	if gen.calls != 1 {
		t.Errorf("generator called %d times, want 1", gen.calls)
	}
}

// recordingThrottle records waits per key.
type recordingThrottle struct {
	keys []string
}

func (th *recordingThrottle) Wait(ctx context.Context, key string) error {
	th.keys = append(th.keys, key)
	return nil
}

func TestRetryingGenerator_ThrottlesEveryAttempt(t *testing.T) {
	stubSleep(t)
	th := &recordingThrottle{}
	gen := &flakyGenerator{failures: 1, err: transientf("burst limit")}

	r := WithRetry(gen, 3, th)
	if _, err := r.Generate(context.Background(), GenerateRequest{Prompt: "p"}); err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	if len(th.keys) != 2 {
		t.Fatalf("throttle consulted %d times, want 2 (once per attempt)", len(th.keys))
	}
	for _, k := range th.keys {
		if k != "flaky" {
			t.Errorf("throttle keyed by %q, want provider name", k)
		}
	}
}

func TestIsTransient(t *testing.T) {
	if !IsTransient(transientf("http 503")) {
		t.Error("transientf error should classify as transient")
	}
	if IsTransient(errors.New("bad request")) {
		t.Error("plain error should not classify as transient")
	}
	if IsTransient(nil) {
		t.Error("nil should not classify as transient")
	}
}
