package research

import (
	"context"
	"fmt"
	"strings"

	"github.com/codefionn/chatschnell/internal/consts"
	"github.com/codefionn/chatschnell/internal/logger"
	genai "google.golang.org/genai"
)

const retrievalInstruction = `You are a research assistant. Search the web for
the request below and write a factual summary of what you find. Include the
concrete facts, numbers and names the sources give. Do not editorialize.`

// GoogleResearcher runs the retrieval step on the native provider with web
// grounding enabled. The grounding chunk URIs become the result's sources.
type GoogleResearcher struct {
	client *genai.Client
	model  string
}

// NewGoogleResearcher creates a researcher backed by the given model. An
// empty model identifier uses the baseline fast model.
func NewGoogleResearcher(apiKey, model string) (*GoogleResearcher, error) {
	if strings.TrimSpace(model) == "" {
		model = "models/gemini-2.5-flash"
	}

	ctx := context.Background()
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create research client: %w", err)
	}

	return &GoogleResearcher{client: client, model: model}, nil
}

// DeepResearch performs one grounded retrieval call and collects the answer
// text plus every web source the provider grounded on.
func (r *GoogleResearcher) DeepResearch(ctx context.Context, prompt string, onProgress ProgressFunc) (*Result, error) {
	if onProgress != nil {
		onProgress("Searching the web...")
	}

	cfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(retrievalInstruction, genai.RoleUser),
		MaxOutputTokens:   int32(consts.DefaultMaxTokens),
		Tools: []*genai.Tool{
			{GoogleSearch: &genai.GoogleSearch{}},
		},
	}
	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{genai.NewPartFromText(prompt)}, genai.RoleUser),
	}

	var answer strings.Builder
	seen := make(map[string]struct{})
	var sources []string

	stream := r.client.Models.GenerateContentStream(ctx, r.model, contents, cfg)
	for result, err := range stream {
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, fmt.Errorf("grounded retrieval failed: %w", err)
		}
		if len(result.Candidates) == 0 {
			continue
		}

		candidate := result.Candidates[0]
		if candidate.Content != nil {
			for _, part := range candidate.Content.Parts {
				if part == nil || part.Thought {
					continue
				}
				answer.WriteString(part.Text)
			}
		}
		if candidate.GroundingMetadata == nil {
			continue
		}
		for _, chunk := range candidate.GroundingMetadata.GroundingChunks {
			if chunk == nil || chunk.Web == nil || chunk.Web.URI == "" {
				continue
			}
			if _, dup := seen[chunk.Web.URI]; dup {
				continue
			}
			seen[chunk.Web.URI] = struct{}{}
			sources = append(sources, chunk.Web.URI)
		}
	}

	logger.Debug("grounded retrieval done: %d chars, %d sources", answer.Len(), len(sources))

	if onProgress != nil && len(sources) > 0 {
		onProgress(fmt.Sprintf("Found %d sources", len(sources)))
	}

	return &Result{Answer: answer.String(), Sources: sources}, nil
}
