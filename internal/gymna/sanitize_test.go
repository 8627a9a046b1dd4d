package gymna

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/honestmeals/honestmeals/internal/models"
)

func TestSanitizeHistory(t *testing.T) {
	tests := []struct {
		name     string
		input    []Turn
		expected []Turn
	}{
		{
			name:     "empty input",
			input:    []Turn{},
			expected: []Turn{},
		},
		{
			name:     "nil input",
			input:    nil,
			expected: []Turn{},
		},
		{
			name: "merges consecutive user turns",
			input: []Turn{
				{Role: models.RoleUser, Text: "a"},
				{Role: models.RoleUser, Text: "b"},
				{Role: models.RoleAssistant, Text: "c"},
			},
			expected: []Turn{
				{Role: models.RoleUser, Text: "a\n\nb"},
				{Role: models.RoleAssistant, Text: "c"},
			},
		},
		{
			name: "drops trailing user turn",
			input: []Turn{
				{Role: models.RoleUser, Text: "a"},
				{Role: models.RoleAssistant, Text: "b"},
				{Role: models.RoleUser, Text: "c"},
			},
			expected: []Turn{
				{Role: models.RoleUser, Text: "a"},
				{Role: models.RoleAssistant, Text: "b"},
			},
		},
		{
			name: "merged trailing user turns are dropped together",
			input: []Turn{
				{Role: models.RoleUser, Text: "a"},
				{Role: models.RoleAssistant, Text: "b"},
				{Role: models.RoleUser, Text: "c"},
				{Role: models.RoleUser, Text: "d"},
			},
			expected: []Turn{
				{Role: models.RoleUser, Text: "a"},
				{Role: models.RoleAssistant, Text: "b"},
			},
		},
		{
			name: "only user turns collapse to nothing",
			input: []Turn{
				{Role: models.RoleUser, Text: "a"},
				{Role: models.RoleUser, Text: "b"},
			},
			expected: []Turn{},
		},
		{
			name: "trailing assistant turn is kept",
			input: []Turn{
				{Role: models.RoleUser, Text: "a"},
				{Role: models.RoleAssistant, Text: "b"},
				{Role: models.RoleAssistant, Text: "c"},
			},
			expected: []Turn{
				{Role: models.RoleUser, Text: "a"},
				{Role: models.RoleAssistant, Text: "b\n\nc"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SanitizeHistory(tt.input)
			assert.Equal(t, tt.expected, got)
		})
	}
}

// No two consecutive entries share a role, and the output never ends in a
// user turn, regardless of input shape.
func TestSanitizeHistoryProperties(t *testing.T) {
	inputs := [][]Turn{
		{{Role: models.RoleUser, Text: "x"}},
		{{Role: models.RoleAssistant, Text: "x"}},
		{
			{Role: models.RoleAssistant, Text: "a"},
			{Role: models.RoleAssistant, Text: "b"},
			{Role: models.RoleUser, Text: "c"},
			{Role: models.RoleUser, Text: "d"},
			{Role: models.RoleAssistant, Text: "e"},
			{Role: models.RoleUser, Text: "f"},
		},
		{
			{Role: models.RoleUser, Text: "a"},
			{Role: models.RoleAssistant, Text: "b"},
			{Role: models.RoleUser, Text: "c"},
			{Role: models.RoleAssistant, Text: "d"},
		},
	}

	for _, input := range inputs {
		out := SanitizeHistory(input)
		for i := 1; i < len(out); i++ {
			assert.NotEqual(t, out[i-1].Role, out[i].Role, "consecutive roles must differ")
		}
		if len(out) > 0 {
			assert.NotEqual(t, models.RoleUser, out[len(out)-1].Role, "output must not end in a user turn")
		}
	}
}
