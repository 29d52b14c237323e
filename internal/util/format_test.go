package util

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFormatCount(t *testing.T) {
	tests := []struct {
		name     string
		input    int64
		expected string
	}{
		{
			name:     "zero",
			input:    0,
			expected: "0",
		},
		{
			name:     "hundreds",
			input:    999,
			expected: "999",
		},
		{
			name:     "exactly 1000",
			input:    1000,
			expected: "1,000",
		},
		{
			name:     "six digits",
			input:    123456,
			expected: "123,456",
		},
		{
			name:     "seven digits",
			input:    1234567,
			expected: "1,234,567",
		},
		{
			name:     "negative",
			input:    -4500,
			expected: "-4,500",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, FormatCount(tt.input))
		})
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		name     string
		input    time.Duration
		expected string
	}{
		{
			name:     "microseconds",
			input:    250 * time.Microsecond,
			expected: "250µs",
		},
		{
			name:     "milliseconds",
			input:    42 * time.Millisecond,
			expected: "42ms",
		},
		{
			name:     "seconds",
			input:    1500 * time.Millisecond,
			expected: "1.50s",
		},
		{
			name:     "minutes",
			input:    3*time.Minute + 5*time.Second,
			expected: "3m 5s",
		},
		{
			name:     "hours",
			input:    2*time.Hour + 30*time.Minute,
			expected: "2h 30m",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, FormatDuration(tt.input))
		})
	}
}

func TestFormatOptionalCount(t *testing.T) {
	assert.Equal(t, "", FormatOptionalCount(nil))
	n := int64(2048)
	assert.Equal(t, "2,048", FormatOptionalCount(&n))
}
