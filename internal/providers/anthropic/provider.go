package anthropic

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/mydrawer/mydrawer-server/internal/config"
	"github.com/mydrawer/mydrawer-server/internal/providers"
)

const (
	anthropicAPIURL  = "https://api.anthropic.com/v1/messages"
	anthropicVersion = "2023-06-01"

	defaultMaxTokens = 4096
)

// Provider implements the Anthropic provider against the messages API
type Provider struct {
	id     string
	config config.ProviderConfig
	client *http.Client
}

// AnthropicRequest represents a request to Anthropic's API
type AnthropicRequest struct {
	Model       string               `json:"model"`
	Messages    []AnthropicMessage   `json:"messages"`
	MaxTokens   int                  `json:"max_tokens"`
	Temperature *float32             `json:"temperature,omitempty"`
	Stream      bool                 `json:"stream,omitempty"`
	System      string               `json:"system,omitempty"`
	Tools       []AnthropicTool      `json:"tools,omitempty"`
}

// AnthropicMessage represents a message in Anthropic format
type AnthropicMessage struct {
	Role    string             `json:"role"`
	Content []AnthropicContent `json:"content"`
}

// AnthropicContent represents one content block in a message
type AnthropicContent struct {
	Type   string           `json:"type"`
	Text   string           `json:"text,omitempty"`
	Source *AnthropicSource `json:"source,omitempty"`
}

// AnthropicSource carries image data for image content blocks
type AnthropicSource struct {
	Type      string `json:"type"` // "base64" or "url"
	MediaType string `json:"media_type,omitempty"`
	Data      string `json:"data,omitempty"`
	URL       string `json:"url,omitempty"`
}

// AnthropicTool represents a tool definition; server-side tools like web
// search only need type and name.
type AnthropicTool struct {
	Type    string `json:"type,omitempty"`
	Name    string `json:"name"`
	MaxUses int    `json:"max_uses,omitempty"`
}

// AnthropicResponse represents a response from Anthropic's API
type AnthropicResponse struct {
	ID         string             `json:"id"`
	Type       string             `json:"type"`
	Role       string             `json:"role"`
	Content    []AnthropicContent `json:"content"`
	Model      string             `json:"model"`
	StopReason string             `json:"stop_reason,omitempty"`
	Usage      AnthropicUsage     `json:"usage"`
}

// AnthropicUsage represents token usage
type AnthropicUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// AnthropicStreamEvent represents a streaming event
type AnthropicStreamEvent struct {
	Type    string                `json:"type"`
	Index   int                   `json:"index,omitempty"`
	Delta   *AnthropicStreamDelta `json:"delta,omitempty"`
	Message *AnthropicResponse    `json:"message,omitempty"`
}

// AnthropicStreamDelta represents a delta in streaming
type AnthropicStreamDelta struct {
	Type       string `json:"type"`
	Text       string `json:"text,omitempty"`
	StopReason string `json:"stop_reason,omitempty"`
}

// NewProvider creates a new Anthropic provider
func NewProvider(id string, cfg config.ProviderConfig) (*Provider, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("Anthropic API key is required")
	}

	return &Provider{
		id:     id,
		config: cfg,
		client: &http.Client{},
	}, nil
}

// Name returns the provider name
func (p *Provider) Name() string {
	return p.config.Name
}

// Complete performs a non-streaming completion
func (p *Provider) Complete(ctx context.Context, req providers.CompletionRequest) (*providers.CompletionResponse, error) {
	anthropicReq := p.convertRequest(req)
	anthropicReq.Stream = false

	body, err := json.Marshal(anthropicReq)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", anthropicAPIURL, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	p.setHeaders(httpReq)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("Anthropic API error: %s - %s", resp.Status, string(bodyBytes))
	}

	var anthropicResp AnthropicResponse
	if err := json.NewDecoder(resp.Body).Decode(&anthropicResp); err != nil {
		return nil, err
	}

	return p.convertResponse(&anthropicResp), nil
}

// StreamComplete performs a streaming completion
func (p *Provider) StreamComplete(ctx context.Context, req providers.CompletionRequest) (<-chan providers.StreamChunk, error) {
	chunks := make(chan providers.StreamChunk)

	go func() {
		defer close(chunks)

		anthropicReq := p.convertRequest(req)
		anthropicReq.Stream = true

		body, err := json.Marshal(anthropicReq)
		if err != nil {
			chunks <- providers.StreamChunk{Error: err.Error()}
			return
		}

		httpReq, err := http.NewRequestWithContext(ctx, "POST", anthropicAPIURL, bytes.NewReader(body))
		if err != nil {
			chunks <- providers.StreamChunk{Error: err.Error()}
			return
		}

		p.setHeaders(httpReq)

		resp, err := p.client.Do(httpReq)
		if err != nil {
			chunks <- providers.StreamChunk{Error: err.Error()}
			return
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			bodyBytes, _ := io.ReadAll(resp.Body)
			chunks <- providers.StreamChunk{Error: fmt.Sprintf("Anthropic API error: %s - %s", resp.Status, string(bodyBytes))}
			return
		}

		reader := bufio.NewReader(resp.Body)
		for {
			line, err := reader.ReadString('\n')
			if err == io.EOF {
				break
			}
			if err != nil {
				chunks <- providers.StreamChunk{Error: err.Error()}
				return
			}

			line = strings.TrimSpace(line)
			if !strings.HasPrefix(line, "data: ") {
				continue
			}

			data := strings.TrimPrefix(line, "data: ")

			var event AnthropicStreamEvent
			if err := json.Unmarshal([]byte(data), &event); err != nil {
				continue // Skip malformed events
			}

			switch event.Type {
			case "content_block_delta":
				if event.Delta != nil && event.Delta.Text != "" {
					chunks <- providers.StreamChunk{Delta: event.Delta.Text}
				}
			case "message_delta":
				if event.Delta != nil && event.Delta.StopReason != "" {
					chunks <- providers.StreamChunk{FinishReason: event.Delta.StopReason}
				}
			case "message_stop":
				chunks <- providers.StreamChunk{FinishReason: "stop"}
				return
			}
		}
	}()

	return chunks, nil
}

// ValidateConfig validates the provider configuration
func (p *Provider) ValidateConfig() error {
	if p.config.APIKey == "" {
		return errors.New("API key is required")
	}
	return nil
}

// setHeaders sets the required headers for Anthropic API
func (p *Provider) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", p.config.APIKey)
	req.Header.Set("anthropic-version", anthropicVersion)
}

// convertRequest converts the internal request to an Anthropic request.
// System messages move to the dedicated system field: the messages API only
// takes user/assistant turns.
func (p *Provider) convertRequest(req providers.CompletionRequest) AnthropicRequest {
	anthropicReq := AnthropicRequest{
		Model:       req.Model,
		MaxTokens:   defaultMaxTokens,
		Temperature: req.Temperature,
	}

	if req.MaxTokens != nil {
		anthropicReq.MaxTokens = *req.MaxTokens
	}

	anthropicMessages := []AnthropicMessage{}
	var system []string

	for _, msg := range req.Messages {
		if msg.Role == "system" {
			if msg.Content != "" {
				system = append(system, msg.Content)
			}
			continue
		}

		anthropicMessages = append(anthropicMessages, AnthropicMessage{
			Role:    msg.Role,
			Content: convertContent(msg),
		})
	}

	anthropicReq.Messages = anthropicMessages
	anthropicReq.System = strings.Join(system, "\n\n")

	for _, tool := range req.Tools {
		if !strings.HasPrefix(tool.Type, "web_search") {
			// Not a tool this API knows; skip rather than fail the turn
			continue
		}
		anthropicReq.Tools = append(anthropicReq.Tools, AnthropicTool{
			Type:    tool.Type,
			Name:    tool.Name,
			MaxUses: tool.MaxUses,
		})
	}

	return anthropicReq
}

func convertContent(msg providers.Message) []AnthropicContent {
	if msg.Parts == nil {
		return []AnthropicContent{{Type: "text", Text: msg.Content}}
	}

	content := make([]AnthropicContent, 0, len(msg.Parts))
	for _, part := range msg.Parts {
		switch part.Type {
		case providers.PartTypeText:
			content = append(content, AnthropicContent{Type: "text", Text: part.Text})
		case providers.PartTypeImage:
			content = append(content, AnthropicContent{Type: "image", Source: convertImageSource(part.Image)})
		}
	}
	return content
}

// convertImageSource maps a data URL to a base64 source, anything else to a
// URL source.
func convertImageSource(image string) *AnthropicSource {
	if strings.HasPrefix(image, "data:") {
		rest := strings.TrimPrefix(image, "data:")
		mediaType, data, ok := strings.Cut(rest, ";base64,")
		if ok {
			return &AnthropicSource{Type: "base64", MediaType: mediaType, Data: data}
		}
	}
	return &AnthropicSource{Type: "url", URL: image}
}

func (p *Provider) convertResponse(resp *AnthropicResponse) *providers.CompletionResponse {
	var text strings.Builder
	for _, content := range resp.Content {
		if content.Type == "text" {
			text.WriteString(content.Text)
		}
	}

	return &providers.CompletionResponse{
		ID:    resp.ID,
		Model: resp.Model,
		Choices: []providers.Choice{
			{
				Index: 0,
				Message: providers.Message{
					Role:    "assistant",
					Content: text.String(),
				},
				FinishReason: resp.StopReason,
			},
		},
		Usage: providers.Usage{
			PromptTokens:     resp.Usage.InputTokens,
			CompletionTokens: resp.Usage.OutputTokens,
			TotalTokens:      resp.Usage.InputTokens + resp.Usage.OutputTokens,
		},
	}
}
