package research

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCitationTitle(t *testing.T) {
	tests := []struct {
		name     string
		source   string
		expected string
	}{
		{"plain host", "https://example.com/article", "example.com"},
		{"www stripped", "https://www.golang.org/doc", "golang.org"},
		{"port kept out of hostname", "https://docs.example.com:8443/x", "docs.example.com"},
		{"relative path", "just-a-string", "Source"},
		{"empty", "", "Source"},
		{"invalid url", "http://%zz", "Source"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, CitationTitle(tt.source))
		})
	}
}

func TestCitations(t *testing.T) {
	sources := []string{
		"https://example.com/a",
		"",
		"https://example.com/a", // duplicate
		"https://www.other.org/b",
		"not a url",
	}

	citations := Citations(sources)
	require.Len(t, citations, 3)

	assert.Equal(t, "example.com", citations[0].Title)
	assert.Equal(t, "https://example.com/a", citations[0].URL)
	assert.Equal(t, "other.org", citations[1].Title)
	assert.Equal(t, "Source", citations[2].Title)
	assert.Equal(t, "not a url", citations[2].URL)
}

func TestCitationsEmptyInput(t *testing.T) {
	assert.Empty(t, Citations(nil))
	assert.Empty(t, Citations([]string{"", "  "}))
}
