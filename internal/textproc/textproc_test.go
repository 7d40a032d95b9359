package textproc

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeEmailText(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "strips markup",
			input:    "<p>Hello <b>there</b></p>",
			expected: "hello there",
		},
		{
			name:     "replaces links",
			input:    "Click https://evil.example.com/login now",
			expected: "click URL_LINK now",
		},
		{
			name:     "replaces long digit runs",
			input:    "Your code is 482913 today",
			expected: "your code is NUMBER_TOKEN today",
		},
		{
			name:     "keeps short numbers",
			input:    "See you at 10",
			expected: "see you at 10",
		},
		{
			name:     "collapses whitespace and folds case",
			input:    "  URGENT\t\tAction   Required ",
			expected: "urgent action required",
		},
		{
			name:     "empty input",
			input:    "",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeEmailText(tt.input))
		})
	}
}

func TestNormalizeEmailText_Deterministic(t *testing.T) {
	input := "Verify <a href=\"https://paypa1.com\">here</a> within 24 hours"
	assert.Equal(t, NormalizeEmailText(input), NormalizeEmailText(input))
}

func TestTruncateRunes(t *testing.T) {
	assert.Equal(t, "hello", TruncateRunes("hello", 10))
	assert.Equal(t, "hel", TruncateRunes("hello", 3))
	assert.Equal(t, "hello", TruncateRunes("hello", 0))

	// The bound counts characters, not bytes, so a multi-byte rune is
	// kept whole rather than split.
	assert.Equal(t, "hé", TruncateRunes("héllo", 2))
	assert.Equal(t, "héllo", TruncateRunes("héllo", 5))
}
