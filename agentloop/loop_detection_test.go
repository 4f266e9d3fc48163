package agentloop

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToolCallSignature(t *testing.T) {
	a := toolCallSignature("read", json.RawMessage(`{"path": "a.go"}`))
	b := toolCallSignature("read", json.RawMessage(`{"path":"a.go"}`))
	c := toolCallSignature("read", json.RawMessage(`{"path":"b.go"}`))
	d := toolCallSignature("write", json.RawMessage(`{"path":"a.go"}`))

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.NotEqual(t, a, d)
}

func TestDetectLoop(t *testing.T) {
	tests := []struct {
		name   string
		sigs   []string
		window int
		want   bool
	}{
		{"too short", []string{"a", "a"}, 4, false},
		{"same call", []string{"a", "a", "a", "a"}, 4, true},
		{"pair", []string{"a", "b", "a", "b"}, 4, true},
		{"triple", []string{"a", "b", "c", "a", "b", "c"}, 6, true},
		{"no pattern", []string{"a", "b", "c", "d"}, 4, false},
		{"only recent window counts", []string{"x", "y", "a", "a", "a"}, 3, true},
		{"broken pattern", []string{"a", "b", "a", "c"}, 4, false},
		{"zero window", []string{"a", "a"}, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectLoop(tt.sigs, tt.window))
		})
	}
}
