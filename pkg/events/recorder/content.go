package recorder

import (
	"crypto/sha256"
	"encoding/hex"
	"unicode/utf8"
)

// MaxHashSize is the maximum number of bytes hashed from large prompts.
const MaxHashSize = 1024 * 1024 // 1MB

// HashContent returns the hex-encoded SHA-256 of at most the first
// MaxHashSize bytes of content, or "" for empty content.
func HashContent(content string) string {
	if content == "" {
		return ""
	}
	if len(content) > MaxHashSize {
		content = content[:MaxHashSize]
	}
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

// TruncateString truncates s to at most maxLen bytes without splitting a
// UTF-8 sequence, appending "..." when room allows. A non-positive maxLen
// disables truncation.
func TruncateString(s string, maxLen int) string {
	if maxLen <= 0 || len(s) <= maxLen {
		return s
	}

	suffix := "..."
	if maxLen <= len(suffix) {
		suffix = ""
	}

	cut := maxLen - len(suffix)
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + suffix
}
