package minio

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeyMapping(t *testing.T) {
	tests := []struct {
		name       string
		rootPrefix string
	}{
		{"no trailing slash", "forecasts"},
		{"trailing slash", "forecasts/"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewStore(nil, "bucket", tt.rootPrefix)

			full := s.key("winds/u/0.0.0")
			assert.Equal(t, "forecasts/winds/u/0.0.0", full)
			assert.Equal(t, "winds/u/0.0.0", s.relKey(full))
		})
	}
}

func TestKeyMappingEmptyPrefix(t *testing.T) {
	s := NewStore(nil, "bucket", "")

	assert.Equal(t, "winds/u/0.0.0", s.key("winds/u/0.0.0"))
	assert.Equal(t, "winds/u/0.0.0", s.relKey("winds/u/0.0.0"))
}
