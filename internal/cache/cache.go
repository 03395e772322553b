// Package cache stores generator completions keyed by prompt hash, so
// identical (evidence, guidance) inputs replay identical completions across
// runs instead of re-calling the provider.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Cache defines the interface for completion caching.
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

// PromptKey generates a cache key for a generator call from the provider
// name plus the full system and user prompts.
func PromptKey(provider, system, prompt string) string {
	hash := sha256.Sum256([]byte(provider + "\x00" + system + "\x00" + prompt))
	return "citegate:v1:" + hex.EncodeToString(hash[:])
}
