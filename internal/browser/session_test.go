// internal/browser/session_test.go
package browser

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitLocator(t *testing.T) {
	tests := []struct {
		name     string
		locator  string
		expected []string
	}{
		{
			name:     "single selector",
			locator:  "#username",
			expected: []string{"#username"},
		},
		{
			name:    "fallback list",
			locator: "input[name='acct'], input[name='username'], #username",
			expected: []string{
				"input[name='acct']",
				"input[name='username']",
				"#username",
			},
		},
		{
			name:     "stray commas and whitespace",
			locator:  " #a ,, #b , ",
			expected: []string{"#a", "#b"},
		},
		{
			name:     "empty",
			locator:  "",
			expected: []string{},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, splitLocator(tc.locator))
		})
	}
}
