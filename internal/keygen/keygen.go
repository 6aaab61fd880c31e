// Package keygen generates identifiers, API keys, and customer-facing
// license-key strings. The license-key format and acronym derivation are part
// of the wire contract with customers who type these keys, so they must not
// change between releases.
package keygen

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// AcronymLength is the fixed length of a brand acronym.
const AcronymLength = 4

const apiKeyPrefix = "sk_"

// NewID returns a new opaque entity identifier (UUID v4, canonical form).
func NewID() string {
	return uuid.New().String()
}

// NewAPIKey returns a new API key: "sk_" followed by 256 bits of secure
// randomness as lowercase hex. Both provisioning and validation keys share
// the prefix; the column a key is stored in defines its trust domain.
func NewAPIKey() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	return apiKeyPrefix + hex.EncodeToString(buf), nil
}

// Acronym derives the 4-character uppercase license-key prefix from a brand
// slug.
//
// A slug without separators contributes its first 4 characters ("rankmath"
// -> "RANK"). A hyphenated slug contributes the first letter of each segment
// ("seo-press-pro-max" -> "SPPM"); if that yields fewer than 4 characters the
// slug with hyphens stripped is used instead ("wp-rocket" -> "WPRO").
func Acronym(slug string) string {
	parts := strings.Split(slug, "-")

	if len(parts) == 1 {
		return truncate(strings.ToUpper(slug))
	}

	var b strings.Builder
	for _, part := range parts {
		if part != "" {
			b.WriteString(strings.ToUpper(part[:1]))
		}
	}

	acronym := b.String()
	if len(acronym) < AcronymLength {
		acronym = strings.ToUpper(strings.ReplaceAll(slug, "-", ""))
	}

	return truncate(acronym)
}

func truncate(s string) string {
	if len(s) > AcronymLength {
		return s[:AcronymLength]
	}
	return s
}

// LicenseKey generates a candidate license-key string in the form
// {ACRONYM}-{YEAR}-{RANDOM}, e.g. "RANK-2026-A1B2C3D4E5F6". RANDOM is 12
// uppercase hex characters from 48 bits of secure randomness, so callers must
// still check the result against the persisted key index for collisions.
func LicenseKey(acronym string) (string, error) {
	buf := make([]byte, 6)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}

	random := strings.ToUpper(hex.EncodeToString(buf))
	year := time.Now().UTC().Year()

	return fmt.Sprintf("%s-%d-%s", acronym, year, random), nil
}
