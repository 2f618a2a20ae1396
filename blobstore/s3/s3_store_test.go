package s3

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeyMapping(t *testing.T) {
	tests := []struct {
		name       string
		rootPrefix string
	}{
		{"no trailing slash", "forecasts/gfs-2024"},
		{"trailing slash", "forecasts/gfs-2024/"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewStore(nil, "bucket", tt.rootPrefix)

			full := s.key("winds/u/0.0.0")
			assert.Equal(t, "forecasts/gfs-2024/winds/u/0.0.0", full)
			assert.Equal(t, "winds/u/0.0.0", s.relKey(full))
		})
	}
}

func TestKeyMappingEmptyPrefix(t *testing.T) {
	s := NewStore(nil, "bucket", "")

	assert.Equal(t, "winds/u/0.0.0", s.key("winds/u/0.0.0"))
	assert.Equal(t, "winds/u/0.0.0", s.relKey("winds/u/0.0.0"))
}

func TestKeyMappingShortPrefix(t *testing.T) {
	// Single-character prefixes exercise the off-by-one cases in the
	// absolute-to-relative mapping.
	s := NewStore(nil, "bucket", "p/")

	assert.Equal(t, "p/winds/u/0.0.0", s.key("winds/u/0.0.0"))
	assert.Equal(t, "winds/u/0.0.0", s.relKey("p/winds/u/0.0.0"))
}
