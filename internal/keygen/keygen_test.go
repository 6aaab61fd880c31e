package keygen

import (
	"fmt"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewIDIsCanonicalUUID(t *testing.T) {
	id := NewID()
	parsed, err := uuid.Parse(id)
	require.NoError(t, err)
	assert.Equal(t, id, parsed.String())
}

func TestNewAPIKeyFormat(t *testing.T) {
	key, err := NewAPIKey()
	require.NoError(t, err)

	assert.Regexp(t, `^sk_[0-9a-f]{64}$`, key)

	other, err := NewAPIKey()
	require.NoError(t, err)
	assert.NotEqual(t, key, other)
}

func TestAcronym(t *testing.T) {
	tests := []struct {
		slug string
		want string
	}{
		{"rankmath", "RANK"},
		{"wp-rocket", "WPRO"},
		{"content-ai", "CONT"},
		{"seo-press-pro-max", "SPPM"},
		{"one-two-three-four-five", "OTTF"},
		{"a--b--c--d", "ABCD"},
		{"monsterinsights", "MONS"},
	}

	for _, tt := range tests {
		t.Run(tt.slug, func(t *testing.T) {
			got := Acronym(tt.slug)
			assert.Equal(t, tt.want, got)
			assert.Len(t, got, AcronymLength)
			assert.Equal(t, strings.ToUpper(got), got)

			// Deterministic for a fixed slug.
			assert.Equal(t, got, Acronym(tt.slug))
		})
	}
}

func TestLicenseKeyFormat(t *testing.T) {
	key, err := LicenseKey("RANK")
	require.NoError(t, err)

	re := regexp.MustCompile(`^[A-Z]{4}-(\d{4})-[A-F0-9]{12}$`)
	m := re.FindStringSubmatch(key)
	require.NotNil(t, m, "key %q does not match expected format", key)
	assert.Equal(t, fmt.Sprintf("%d", time.Now().UTC().Year()), m[1])
}

func TestLicenseKeyNoCollisionsAcross10000(t *testing.T) {
	seen := make(map[string]struct{}, 10000)
	for i := 0; i < 10000; i++ {
		key, err := LicenseKey("RANK")
		require.NoError(t, err)
		_, dup := seen[key]
		require.False(t, dup, "duplicate key generated: %s", key)
		seen[key] = struct{}{}
	}
}
