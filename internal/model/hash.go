package model

import (
	"crypto/sha256"
	"encoding/hex"
)

// TextHash returns the SHA-256 hex digest of the given text. The same
// hashing discipline is used for evidence deduplication, claim trace hashes,
// ledger hashes, and spec-gate verification.
func TextHash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}
