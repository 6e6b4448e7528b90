package local

import (
	"context"
	"errors"
	"io"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/mydrawer/mydrawer-server/internal/config"
	"github.com/mydrawer/mydrawer-server/internal/providers"
)

// OpenAICompatibleProvider implements a provider for OpenAI-compatible APIs:
// hosted ones (Groq, Mistral, Google's compatibility endpoint) and local
// engines (LM Studio, Ollama) behind a user-supplied base URL.
type OpenAICompatibleProvider struct {
	id     string
	config config.ProviderConfig
	client *openai.Client
}

// NewOpenAICompatibleProvider creates a new OpenAI-compatible provider
func NewOpenAICompatibleProvider(id string, cfg config.ProviderConfig) (*OpenAICompatibleProvider, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("base URL is required for OpenAI-compatible provider")
	}

	// Local engines usually don't check the key
	apiKey := "not-needed"
	if cfg.APIKey != "" {
		apiKey = cfg.APIKey
	}

	clientConfig := openai.DefaultConfig(apiKey)
	clientConfig.BaseURL = SanitizeBaseURL(cfg.BaseURL) + "/v1"

	client := openai.NewClientWithConfig(clientConfig)

	return &OpenAICompatibleProvider{
		id:     id,
		config: cfg,
		client: client,
	}, nil
}

// SanitizeBaseURL normalizes a user-entered base URL. People paste full
// completion endpoints; strip the path back to the API root.
func SanitizeBaseURL(baseURL string) string {
	out := strings.TrimRight(baseURL, "/")
	out = strings.TrimSuffix(out, "/chat/completions")
	out = strings.TrimRight(out, "/")
	out = strings.TrimSuffix(out, "/v1")
	return strings.TrimRight(out, "/")
}

// Name returns the provider name
func (p *OpenAICompatibleProvider) Name() string {
	return p.config.Name
}

// Complete performs a non-streaming completion
func (p *OpenAICompatibleProvider) Complete(ctx context.Context, req providers.CompletionRequest) (*providers.CompletionResponse, error) {
	openAIReq := convertRequest(req)
	openAIReq.Stream = false

	resp, err := p.client.CreateChatCompletion(ctx, openAIReq)
	if err != nil {
		return nil, err
	}

	choices := make([]providers.Choice, len(resp.Choices))
	for i, c := range resp.Choices {
		choices[i] = providers.Choice{
			Index: c.Index,
			Message: providers.Message{
				Role:    c.Message.Role,
				Content: c.Message.Content,
			},
			FinishReason: string(c.FinishReason),
		}
	}

	return &providers.CompletionResponse{
		ID:      resp.ID,
		Model:   resp.Model,
		Choices: choices,
		Usage: providers.Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}, nil
}

// StreamComplete performs a streaming completion
func (p *OpenAICompatibleProvider) StreamComplete(ctx context.Context, req providers.CompletionRequest) (<-chan providers.StreamChunk, error) {
	chunks := make(chan providers.StreamChunk)

	go func() {
		defer close(chunks)

		openAIReq := convertRequest(req)
		openAIReq.Stream = true

		stream, err := p.client.CreateChatCompletionStream(ctx, openAIReq)
		if err != nil {
			chunks <- providers.StreamChunk{Error: err.Error()}
			return
		}
		defer stream.Close()

		for {
			response, err := stream.Recv()
			if errors.Is(err, io.EOF) {
				chunks <- providers.StreamChunk{FinishReason: "stop"}
				return
			}
			if err != nil {
				chunks <- providers.StreamChunk{Error: err.Error()}
				return
			}

			if len(response.Choices) > 0 {
				choice := response.Choices[0]
				chunk := providers.StreamChunk{
					ID:    response.ID,
					Model: response.Model,
					Delta: choice.Delta.Content,
					Role:  choice.Delta.Role,
				}

				if choice.FinishReason != "" {
					chunk.FinishReason = string(choice.FinishReason)
				}

				chunks <- chunk
			}
		}
	}()

	return chunks, nil
}

// ValidateConfig validates the provider configuration
func (p *OpenAICompatibleProvider) ValidateConfig() error {
	if p.config.BaseURL == "" {
		return errors.New("base URL is required")
	}
	return nil
}

func convertRequest(req providers.CompletionRequest) openai.ChatCompletionRequest {
	messages := make([]openai.ChatCompletionMessage, len(req.Messages))
	for i, msg := range req.Messages {
		if msg.Parts != nil {
			parts := make([]openai.ChatMessagePart, 0, len(msg.Parts))
			for _, part := range msg.Parts {
				switch part.Type {
				case providers.PartTypeText:
					parts = append(parts, openai.ChatMessagePart{
						Type: openai.ChatMessagePartTypeText,
						Text: part.Text,
					})
				case providers.PartTypeImage:
					parts = append(parts, openai.ChatMessagePart{
						Type:     openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{URL: part.Image},
					})
				}
			}
			messages[i] = openai.ChatCompletionMessage{
				Role:         msg.Role,
				MultiContent: parts,
			}
			continue
		}
		messages[i] = openai.ChatCompletionMessage{
			Role:    msg.Role,
			Content: msg.Content,
		}
	}

	openAIReq := openai.ChatCompletionRequest{
		Model:    req.Model,
		Messages: messages,
		Stream:   req.Stream,
	}

	if req.Temperature != nil {
		openAIReq.Temperature = *req.Temperature
	}

	if req.MaxTokens != nil {
		openAIReq.MaxTokens = *req.MaxTokens
	}

	return openAIReq
}
