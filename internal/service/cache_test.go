package service

import (
	"strings"
	"testing"

	"github.com/mkravets/text-search-server/internal/engine"
)

func TestNormalizeQuery(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		same bool
	}{
		{"reordered plus terms", "curly cat", "cat curly", true},
		{"reordered minus terms", "cat -dog -rat", "cat -rat -dog", true},
		{"mixed reorder", "-dog curly cat", "cat curly -dog", true},
		{"minus is not plus", "cat dog", "cat -dog", false},
		{"different terms", "curly cat", "fluffy cat", false},
		{"extra whitespace collapses", "curly   cat", "curly cat", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := normalizeQuery(tt.a) == normalizeQuery(tt.b)
			if got != tt.same {
				t.Errorf("normalizeQuery(%q) vs normalizeQuery(%q): equal = %v, want %v",
					tt.a, tt.b, got, tt.same)
			}
		})
	}
}

func TestBuildKey(t *testing.T) {
	c := &QueryCache{}

	key := c.buildKey("curly cat", engine.StatusActual)
	if !strings.HasPrefix(key, cacheKeyPrefix) {
		t.Errorf("key %q lacks prefix %q", key, cacheKeyPrefix)
	}
	if len(key) != len(cacheKeyPrefix)+32 {
		t.Errorf("key length = %d, want %d", len(key), len(cacheKeyPrefix)+32)
	}

	if c.buildKey("cat curly", engine.StatusActual) != key {
		t.Error("reordered query produced a different key")
	}
	if c.buildKey("curly cat", engine.StatusBanned) == key {
		t.Error("different status produced the same key")
	}
	if c.buildKey("fluffy dog", engine.StatusActual) == key {
		t.Error("different query produced the same key")
	}
}
