package llm

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsModelUnavailable(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{
			name:     "nil error",
			err:      nil,
			expected: false,
		},
		{
			name:     "404 with no providers marker",
			err:      &StatusError{Code: 404, Message: "No providers are currently serving this model"},
			expected: true,
		},
		{
			name:     "404 with no endpoints marker",
			err:      &StatusError{Code: 404, Message: "No endpoints found for vendor/model"},
			expected: true,
		},
		{
			name:     "wrapped status error",
			err:      fmt.Errorf("stream failed: %w", &StatusError{Code: 404, Message: "no providers"}),
			expected: true,
		},
		{
			name:     "plain 404",
			err:      &StatusError{Code: 404, Message: "not found"},
			expected: false,
		},
		{
			name:     "marker on wrong status",
			err:      &StatusError{Code: 503, Message: "no providers available"},
			expected: false,
		},
		{
			name:     "untyped error with marker",
			err:      errors.New("no providers"),
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsModelUnavailable(tt.err))
		})
	}
}

func TestIsQuotaExhausted(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{
			name:     "nil error",
			err:      nil,
			expected: false,
		},
		{
			name:     "status 429",
			err:      &StatusError{Code: 429, Message: "slow down"},
			expected: true,
		},
		{
			name:     "native quota message",
			err:      errors.New("googleapi: Error 429: Quota exceeded for quota metric"),
			expected: true,
		},
		{
			name:     "resource exhausted grpc code",
			err:      errors.New("rpc error: code = ResourceExhausted desc = out of tokens"),
			expected: true,
		},
		{
			name:     "rate limit phrase",
			err:      errors.New("provider rate limit reached"),
			expected: true,
		},
		{
			name:     "unrelated error",
			err:      errors.New("connection refused"),
			expected: false,
		},
		{
			name:     "unrelated status error",
			err:      &StatusError{Code: 500, Message: "internal"},
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsQuotaExhausted(tt.err))
		})
	}
}
