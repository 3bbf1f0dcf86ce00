// Package research defines the contract for the external deep-research
// collaborator and the shaping of its sources into citations.
package research

import (
	"context"
	"net/url"
	"strings"

	"github.com/codefionn/chatschnell/internal/llm"
)

// Result is what a research run produces: a synthesized answer and the raw
// source URLs it drew from.
type Result struct {
	Answer  string   `json:"answer"`
	Sources []string `json:"sources"`
}

// ProgressFunc receives human-readable progress messages while research is
// running.
type ProgressFunc func(message string)

// Researcher executes a research operation for a prompt. Implementations
// live outside the orchestrator core.
type Researcher interface {
	DeepResearch(ctx context.Context, prompt string, onProgress ProgressFunc) (*Result, error)
}

// CitationTitle derives a display title from a source URL: the hostname when
// the URL parses, "Source" when it does not. Best effort only.
func CitationTitle(raw string) string {
	parsed, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || parsed.Hostname() == "" {
		return "Source"
	}
	return strings.TrimPrefix(parsed.Hostname(), "www.")
}

// Citations shapes raw source URLs into citation records, dropping empty
// entries and duplicates while preserving order.
func Citations(sources []string) []llm.Citation {
	seen := make(map[string]struct{}, len(sources))
	citations := make([]llm.Citation, 0, len(sources))

	for _, src := range sources {
		src = strings.TrimSpace(src)
		if src == "" {
			continue
		}
		if _, dup := seen[src]; dup {
			continue
		}
		seen[src] = struct{}{}
		citations = append(citations, llm.Citation{Title: CitationTitle(src), URL: src})
	}
	return citations
}
