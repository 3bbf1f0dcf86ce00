package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/codefionn/chatschnell/internal/consts"
	"github.com/codefionn/chatschnell/internal/logger"
)

const (
	relayAPIBaseURL = "https://openrouter.ai/api/v1"
	relayReferer    = "https://github.com/codefionn/chatschnell"
	relayAppTitle   = "chatschnell"
)

// RelayClient implements the Client interface over the third-party HTTP/SSE
// relay. The relay proxies many vendors through one chat-completion
// protocol; the response is newline-delimited SSE terminated by a
// `data: [DONE]` sentinel.
type RelayClient struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
}

// NewRelayClient creates a relay client for the given vendor-prefixed model.
func NewRelayClient(apiKey, modelID string) (Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("relay client requires an API key")
	}

	model := strings.TrimSpace(modelID)
	if model == "" {
		return nil, fmt.Errorf("relay client requires a model identifier")
	}

	return &RelayClient{
		apiKey:  apiKey,
		model:   model,
		baseURL: relayAPIBaseURL,
		httpClient: &http.Client{
			Timeout: consts.Timeout5Minutes,
		},
	}, nil
}

// SetBaseURL overrides the relay endpoint. Intended for tests.
func (c *RelayClient) SetBaseURL(url string) {
	c.baseURL = strings.TrimRight(url, "/")
}

func (c *RelayClient) ModelName() string {
	return c.model
}

func (c *RelayClient) Complete(ctx context.Context, req *StreamRequest) (string, error) {
	httpReq, err := c.newChatRequest(ctx, c.buildChatRequest(req, false))
	if err != nil {
		return "", err
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("relay completion failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", statusErrorFromResponse(resp)
	}

	var chatResp relayChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return "", fmt.Errorf("relay completion failed: %w", err)
	}
	if len(chatResp.Choices) == 0 || chatResp.Choices[0].Message == nil {
		return "", nil
	}
	return extractRelayText(chatResp.Choices[0].Message.Content), nil
}

func (c *RelayClient) Stream(ctx context.Context, req *StreamRequest, fn StreamFunc) error {
	httpReq, err := c.newChatRequest(ctx, c.buildChatRequest(req, true))
	if err != nil {
		return err
	}

	logger.Debug("Relay: starting stream request for model %s", c.model)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("relay stream failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return statusErrorFromResponse(resp)
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, consts.BufferSize256KB), consts.BufferSize1MB)

	for scanner.Scan() {
		if ctx.Err() != nil {
			return nil
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" || !strings.HasPrefix(line, "data:") {
			continue
		}

		data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if data == "" {
			continue
		}
		if data == "[DONE]" {
			break
		}

		var chunk relayStreamChunk
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			// Protocol tolerance: relays interleave comments and partial
			// frames; a line that is not valid JSON is skipped, not fatal.
			logger.Debug("Relay: skipping malformed SSE line (%d bytes)", len(data))
			continue
		}

		for _, choice := range chunk.Choices {
			if choice.Delta == nil {
				continue
			}
			text := extractRelayText(choice.Delta.Content)
			if text == "" {
				continue
			}
			if err := fn(StreamEvent{Text: text}); err != nil {
				return err
			}
		}
	}

	if err := scanner.Err(); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("relay stream failed: %w", err)
	}

	return nil
}

// statusErrorFromResponse translates a non-2xx relay response into a typed
// error carrying the HTTP status and the provider message.
func statusErrorFromResponse(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, consts.BufferSize256KB))

	message := strings.TrimSpace(string(body))
	var envelope relayErrorResponse
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error != nil && envelope.Error.Message != "" {
		message = envelope.Error.Message
	}

	return &StatusError{Code: resp.StatusCode, Message: message}
}

func (c *RelayClient) buildChatRequest(req *StreamRequest, stream bool) *relayChatRequest {
	messages := make([]relayChatMessage, 0, len(req.Messages)+1)

	if system := strings.TrimSpace(req.SystemPrompt); system != "" {
		messages = append(messages, relayChatMessage{Role: "system", Content: system})
	}

	for _, msg := range req.Messages {
		if msg == nil || msg.Content == "" {
			continue
		}
		role := msg.Role
		if role == "model" {
			role = "assistant"
		}
		// Binary attachments are a native-only capability; the relay path
		// carries text exclusively.
		messages = append(messages, relayChatMessage{Role: role, Content: msg.Content})
	}

	payload := &relayChatRequest{
		Model:    c.model,
		Messages: messages,
		Stream:   stream,
	}
	if req.MaxTokens > 0 {
		payload.MaxTokens = req.MaxTokens
	}

	return payload
}

func (c *RelayClient) newChatRequest(ctx context.Context, payload *relayChatRequest) (*http.Request, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("relay failed to encode payload: %w", err)
	}

	url := fmt.Sprintf("%s/chat/completions", strings.TrimRight(c.baseURL, "/"))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("relay failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("HTTP-Referer", relayReferer)
	req.Header.Set("X-Title", relayAppTitle)

	return req, nil
}

func extractRelayText(content interface{}) string {
	switch value := content.(type) {
	case nil:
		return ""
	case string:
		return value
	case []interface{}:
		var sb strings.Builder
		for _, part := range value {
			sb.WriteString(extractRelayText(part))
		}
		return sb.String()
	case map[string]interface{}:
		if text, ok := value["text"].(string); ok {
			return text
		}
		if inner, ok := value["content"]; ok {
			return extractRelayText(inner)
		}
	}
	return ""
}

type relayChatRequest struct {
	Model     string             `json:"model"`
	Messages  []relayChatMessage `json:"messages"`
	MaxTokens int                `json:"max_tokens,omitempty"`
	Stream    bool               `json:"stream,omitempty"`
}

type relayChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type relayErrorResponse struct {
	Error *relayErrorBody `json:"error"`
}

type relayErrorBody struct {
	Message string `json:"message"`
	Code    int    `json:"code"`
}

type relayChatResponse struct {
	ID      string            `json:"id"`
	Model   string            `json:"model"`
	Created int64             `json:"created"`
	Choices []relayChatChoice `json:"choices"`
}

type relayChatChoice struct {
	Index        int                       `json:"index"`
	FinishReason string                    `json:"finish_reason"`
	Message      *relayChatResponseMessage `json:"message"`
}

type relayChatResponseMessage struct {
	Role    string      `json:"role"`
	Content interface{} `json:"content"`
}

type relayStreamChunk struct {
	ID      string              `json:"id"`
	Choices []relayStreamChoice `json:"choices"`
}

type relayStreamChoice struct {
	Index        int               `json:"index"`
	FinishReason string            `json:"finish_reason"`
	Delta        *relayStreamDelta `json:"delta"`
}

type relayStreamDelta struct {
	Role    string      `json:"role"`
	Content interface{} `json:"content"`
}
