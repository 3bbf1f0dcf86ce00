package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/codefionn/chatschnell/internal/logger"
	genai "google.golang.org/genai"
)

// GoogleGenAIClient implements the Client interface using the official
// Google GenAI SDK. This is the native path: structured streaming, inline
// binary attachments and reasoning budgets.
type GoogleGenAIClient struct {
	modelName string
	client    *genai.Client
}

// NewGoogleAIClient creates a native client for the provided model. An empty
// model identifier defaults to the baseline fast model.
func NewGoogleAIClient(apiKey, modelName string) (Client, error) {
	normalizedModel := normalizeGoogleModelName(modelName)

	ctx := context.Background()
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Google GenAI client: %w", err)
	}

	return &GoogleGenAIClient{
		modelName: normalizedModel,
		client:    client,
	}, nil
}

func (c *GoogleGenAIClient) ModelName() string {
	return c.modelName
}

func (c *GoogleGenAIClient) Complete(ctx context.Context, req *StreamRequest) (string, error) {
	contents := convertMessagesToGenAI(req.Messages)
	if len(contents) == 0 {
		return "", nil
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.modelName, contents, buildGenAIConfig(req))
	if err != nil {
		return "", fmt.Errorf("google genai completion failed: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", nil
	}
	return collectTextFromContent(resp.Candidates[0].Content), nil
}

func (c *GoogleGenAIClient) Stream(ctx context.Context, req *StreamRequest, fn StreamFunc) error {
	contents := convertMessagesToGenAI(req.Messages)
	if len(contents) == 0 {
		return nil
	}

	stream := c.client.Models.GenerateContentStream(ctx, c.modelName, contents, buildGenAIConfig(req))
	for result, err := range stream {
		if err != nil {
			// Cancellation terminates the sequence, it is not an error.
			if ctx.Err() != nil {
				logger.Debug("GoogleGenAI: stream cancelled for model %s", c.modelName)
				return nil
			}
			return fmt.Errorf("google genai stream failed: %w", err)
		}
		if len(result.Candidates) == 0 || result.Candidates[0].Content == nil {
			continue
		}

		candidate := result.Candidates[0]
		ev := StreamEvent{
			Text:      collectTextFromContent(candidate.Content),
			Citations: collectGroundingCitations(candidate),
		}
		if ev.Text == "" && len(ev.Citations) == 0 {
			continue
		}
		if err := fn(ev); err != nil {
			return err
		}
	}
	return nil
}

func collectTextFromContent(content *genai.Content) string {
	if content == nil {
		return ""
	}

	var sb strings.Builder
	for _, part := range content.Parts {
		if part == nil || part.Thought {
			continue
		}
		if part.Text != "" {
			sb.WriteString(part.Text)
		}
	}
	return sb.String()
}

// collectGroundingCitations lifts web grounding chunks into citation
// fragments so both provider paths expose the same output shape.
func collectGroundingCitations(candidate *genai.Candidate) []Citation {
	if candidate == nil || candidate.GroundingMetadata == nil {
		return nil
	}

	var citations []Citation
	for _, chunk := range candidate.GroundingMetadata.GroundingChunks {
		if chunk == nil || chunk.Web == nil || chunk.Web.URI == "" {
			continue
		}
		title := chunk.Web.Title
		if title == "" {
			title = "Source"
		}
		citations = append(citations, Citation{Title: title, URL: chunk.Web.URI})
	}
	return citations
}

func convertMessagesToGenAI(messages []*Message) []*genai.Content {
	contents := make([]*genai.Content, 0, len(messages))
	for _, msg := range messages {
		if msg == nil {
			continue
		}
		if msg.Content == "" && len(msg.Attachments) == 0 {
			continue
		}

		parts := make([]*genai.Part, 0, len(msg.Attachments)+1)
		if msg.Content != "" {
			parts = append(parts, genai.NewPartFromText(msg.Content))
		}
		for _, att := range msg.Attachments {
			if len(att.Data) == 0 {
				continue
			}
			parts = append(parts, genai.NewPartFromBytes(att.Data, att.MIMEType))
		}

		role := genai.Role(genai.RoleUser)
		if msg.Role == "model" || msg.Role == "assistant" {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromParts(parts, role))
	}
	return contents
}

func buildGenAIConfig(req *StreamRequest) *genai.GenerateContentConfig {
	cfg := &genai.GenerateContentConfig{}

	if req.SystemPrompt != "" {
		cfg.SystemInstruction = genai.NewContentFromText(req.SystemPrompt, genai.RoleUser)
	}
	if req.MaxTokens > 0 {
		cfg.MaxOutputTokens = int32(req.MaxTokens)
	}
	if req.ThinkingBudget > 0 {
		budget := req.ThinkingBudget
		cfg.ThinkingConfig = &genai.ThinkingConfig{ThinkingBudget: &budget}
	}
	if req.JSONResponse {
		cfg.ResponseMIMEType = "application/json"
	}

	return cfg
}

func normalizeGoogleModelName(modelName string) string {
	trimmed := strings.TrimSpace(modelName)
	if trimmed == "" {
		return "models/" + DefaultNativeModel
	}

	lowered := strings.ToLower(trimmed)
	if strings.HasPrefix(lowered, "models/") || strings.HasPrefix(lowered, "publishers/") {
		return trimmed
	}

	return "models/" + trimmed
}
