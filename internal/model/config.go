package model

import "time"

// Config is the full runtime configuration. Values are layered by the CLI:
// flags > CITEGATE_* environment variables > config file > defaults.
type Config struct {
	Pipeline    PipelineConfig    `json:"pipeline" yaml:"pipeline" mapstructure:"pipeline"`
	LLM         LLMConfig         `json:"llm" yaml:"llm" mapstructure:"llm"`
	Concurrency ConcurrencyConfig `json:"concurrency" yaml:"concurrency" mapstructure:"concurrency"`
	Cache       CacheConfig       `json:"cache" yaml:"cache" mapstructure:"cache"`
	Output      OutputConfig      `json:"output" yaml:"output" mapstructure:"output"`
}

// PipelineConfig holds the coverage-gate and revision-loop settings.
type PipelineConfig struct {
	CCCThreshold      float64 `json:"ccc_threshold" yaml:"ccc_threshold" mapstructure:"ccc_threshold"`                // Minimum acceptable coverage ratio (inclusive)
	MaxRevisionCycles int     `json:"max_revision_cycles" yaml:"max_revision_cycles" mapstructure:"max_revision_cycles"` // Bound on the revision loop
	QualityFloor      float64 `json:"quality_floor" yaml:"quality_floor" mapstructure:"quality_floor"`                // Minimum ranker score admitted to drafting
}

// LLMConfig configures the language-model generator collaborator.
type LLMConfig struct {
	Provider    string  `json:"provider,omitempty" yaml:"provider" mapstructure:"provider"` // openai, anthropic, ollama, "" (extractive mode)
	Model       string  `json:"model,omitempty" yaml:"model" mapstructure:"model"`
	APIKey      string  `json:"-" yaml:"-" mapstructure:"api_key"` // Never serialized into reports
	BaseURL     string  `json:"base_url,omitempty" yaml:"base_url" mapstructure:"base_url"`
	Timeout     int     `json:"timeout" yaml:"timeout" mapstructure:"timeout"` // Seconds per generator call
	MaxTokens   int     `json:"max_tokens" yaml:"max_tokens" mapstructure:"max_tokens"`
	Temperature float64 `json:"temperature" yaml:"temperature" mapstructure:"temperature"`
	MaxRetries  int     `json:"max_retries" yaml:"max_retries" mapstructure:"max_retries"` // Transient-error retries, distinct from revision cycles
	RatePerSec  float64 `json:"rate_per_sec" yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
	HTTPProxy   string  `json:"-" yaml:"http_proxy,omitempty" mapstructure:"http_proxy"`
	HTTPSProxy  string  `json:"-" yaml:"https_proxy,omitempty" mapstructure:"https_proxy"`
	NoProxy     string  `json:"-" yaml:"no_proxy,omitempty" mapstructure:"no_proxy"`
}

// ConcurrencyConfig bounds the parallel per-item stages.
type ConcurrencyConfig struct {
	RankWorkers  int `json:"rank_workers" yaml:"rank_workers" mapstructure:"rank_workers"`
	AuditWorkers int `json:"audit_workers" yaml:"audit_workers" mapstructure:"audit_workers"`
	BatchRuns    int `json:"batch_runs" yaml:"batch_runs" mapstructure:"batch_runs"` // Parallel independent pipeline runs
}

// CacheConfig configures the generator response cache.
type CacheConfig struct {
	Enabled bool          `json:"enabled" yaml:"enabled" mapstructure:"enabled"`
	Dir     string        `json:"dir,omitempty" yaml:"dir" mapstructure:"dir"`
	TTL     time.Duration `json:"ttl" yaml:"ttl" mapstructure:"ttl"`
}

// OutputConfig controls report rendering.
type OutputConfig struct {
	Verbose       bool `json:"verbose" yaml:"verbose" mapstructure:"verbose"`
	IncludeFooter bool `json:"include_footer" yaml:"include_footer" mapstructure:"include_footer"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Pipeline: PipelineConfig{
			CCCThreshold:      0.95,
			MaxRevisionCycles: 3,
			QualityFloor:      0.7,
		},
		LLM: LLMConfig{
			Provider:    "",
			Timeout:     30,
			MaxTokens:   2000,
			Temperature: 0.0, // Deterministic drafting keeps the revision loop convergent
			MaxRetries:  3,
			RatePerSec:  2,
		},
		Concurrency: ConcurrencyConfig{
			RankWorkers:  8,
			AuditWorkers: 8,
			BatchRuns:    4,
		},
		Cache: CacheConfig{
			Enabled: true,
			TTL:     24 * time.Hour,
		},
		Output: OutputConfig{
			Verbose:       false,
			IncludeFooter: true,
		},
	}
}
