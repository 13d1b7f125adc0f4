package middleware

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOriginAllowed(t *testing.T) {
	allowed := []string{"https://captureai.app", "https://www.captureai.app"}

	cases := []struct {
		origin string
		want   bool
	}{
		{"https://captureai.app", true},
		{"https://www.captureai.app", true},
		{"chrome-extension://abcdefghijklmnop", true},
		{"moz-extension://uuid-here", true},
		{"https://someone.github.io", true},
		{"https://.github.io", false},
		{"http://someone.github.io", false},
		{"https://evil.example.com", false},
		{"https://captureai.app.evil.com", false},
		{"", false},
	}
	for _, tc := range cases {
		t.Run(tc.origin, func(t *testing.T) {
			assert.Equal(t, tc.want, OriginAllowed(allowed, tc.origin))
		})
	}
}
