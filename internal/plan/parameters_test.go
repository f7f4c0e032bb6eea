package plan

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractParameterBlock(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
		found   bool
	}{
		{
			name:    "leading block",
			content: "parameters:\n  a: 1\n\n  # note\n  b: two\nvm:\n  memory: 1\n",
			want:    "parameters:\n  a: 1\n\n  # note\n  b: two\n",
			found:   true,
		},
		{
			name:    "block after other entries",
			content: "{% set x = 1 %}\nparameters:\n  a: 1\nvm: {}\n",
			want:    "parameters:\n  a: 1\n",
			found:   true,
		},
		{
			name:    "indented keyword is not a block",
			content: "vm:\n  parameters:\n    a: 1\n",
		},
		{
			name:    "block at end of file",
			content: "parameters:\n  a: 1",
			want:    "parameters:\n  a: 1\n",
			found:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, found := ExtractParameterBlock(tt.content)
			assert.Equal(t, tt.found, found)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStripParameters(t *testing.T) {
	tests := []struct {
		name     string
		rendered string
		want     string
	}{
		{
			name:     "leading block removed",
			rendered: "parameters:\n  a: 1\n  b: 2\nvm:\n  memory: 1\n",
			want:     "vm:\n  memory: 1\n",
		},
		{
			name:     "blank lines inside block",
			rendered: "parameters:\n  a: 1\n\n\nvm: {}\n",
			want:     "vm: {}\n",
		},
		{
			name:     "no leading block",
			rendered: "vm:\n  memory: 1\nparameters:\n  a: 1\n",
			want:     "vm:\n  memory: 1\nparameters:\n  a: 1\n",
		},
		{
			name:     "only a block",
			rendered: "parameters:\n  a: 1\n",
			want:     "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := StripParameters(tt.rendered)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got, StripParameters(got), "stripping twice is a no-op")
		})
	}
}
