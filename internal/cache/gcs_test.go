package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIDFromObject(t *testing.T) {
	tests := []struct {
		name   string
		object string
		want   string
		ok     bool
	}{
		{"entry", "cache/142100b_2025.json", "142100b_2025", true},
		{"other prefix", "pdfs/142100b_2025.json", "", false},
		{"nested", "cache/old/142100b_2025.json", "", false},
		{"not json", "cache/142100b_2025.pdf", "", false},
		{"bare suffix", "cache/.json", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, ok := idFromObject("cache", tt.object)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, id)
		})
	}
}

func TestGCSCacheKnown(t *testing.T) {
	c := &GCSCache{prefix: "cache"}
	assert.True(t, c.known("anything"), "no index means every id may exist")

	c.index = map[string]struct{}{"a": {}}
	assert.True(t, c.known("a"))
	assert.False(t, c.known("b"))
}
