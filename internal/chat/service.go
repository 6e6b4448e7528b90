package chat

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/mydrawer/mydrawer-server/internal/config"
	"github.com/mydrawer/mydrawer-server/internal/providers"
	"github.com/mydrawer/mydrawer-server/internal/providers/factory"
	"github.com/mydrawer/mydrawer-server/internal/repository"
)

const maxAttachments = 3

// SummaryPrefix marks durable summary messages in the transcript.
const SummaryPrefix = "[Conversation summary] "

// SendOptions selects the model and provider for a turn. APIKey and Custom
// override the configured credentials for this call only and are never
// persisted.
type SendOptions struct {
	ModelID    string
	ProviderID string
	APIKey     string
	Custom     *providers.CustomModelConfig
	WebSearch  bool
}

// Service executes conversation turns: it persists messages, shapes the
// history for the selected model, and streams completions back to the
// caller.
type Service struct {
	conversations repository.ConversationRepository
	folders       repository.FolderRepository
	messages      repository.MessageRepository
	registry      *providers.Registry
	cfg           *config.Config
	estimator     Estimator
	log           *logrus.Logger

	// newProvider builds a throwaway provider for per-call credential or
	// endpoint overrides.
	newProvider func(id string, pc config.ProviderConfig) (providers.Provider, error)
}

func NewService(
	cfg *config.Config,
	registry *providers.Registry,
	conversations repository.ConversationRepository,
	folders repository.FolderRepository,
	messages repository.MessageRepository,
	log *logrus.Logger,
) *Service {
	return &Service{
		conversations: conversations,
		folders:       folders,
		messages:      messages,
		registry:      registry,
		cfg:           cfg,
		estimator:     CharEstimator{},
		log:           log,
		newProvider:   factory.CreateProvider,
	}
}

// SendMessage runs one conversation turn. The user message is persisted
// before any network activity so it survives provider failures. The
// returned channel carries the streamed completion; the assistant reply is
// persisted only when the stream finishes cleanly.
func (s *Service) SendMessage(ctx context.Context, conversationID, content string, attachments []repository.Attachment, opts SendOptions) (<-chan providers.StreamChunk, error) {
	model, err := s.validateTurn(opts, attachments)
	if err != nil {
		return nil, err
	}

	history, err := s.messages.ListByConversation(ctx, conversationID)
	if err != nil {
		return nil, err
	}

	userMsg := repository.Message{
		ID:             uuid.New().String(),
		ConversationID: conversationID,
		Role:           repository.RoleUser,
		Content:        content,
		Attachments:    attachments,
		Status:         repository.StatusCompleted,
		Metadata:       repository.MessageMetadata{TokenCount: s.estimator.Estimate(content)},
		CreatedAt:      time.Now(),
	}
	if _, err := s.messages.Create(ctx, userMsg); err != nil {
		return nil, fmt.Errorf("failed to save user message: %w", err)
	}

	return s.streamTurn(ctx, conversationID, model, opts, history, content, attachments)
}

// EditMessage overwrites a user message in place, discards everything after
// it, and re-runs the turn with the edited content. The caller may supply a
// recovery copy for messages that exist client-side but never reached the
// store; the copy is re-inserted under its original id before the edit
// proceeds.
func (s *Service) EditMessage(ctx context.Context, messageID, newContent string, opts SendOptions, recovery *repository.Message) (<-chan providers.StreamChunk, error) {
	msg, err := s.messages.GetByID(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if msg == nil {
		if recovery == nil {
			return nil, &MessageNotFoundError{MessageID: messageID}
		}
		restored := *recovery
		restored.ID = messageID
		if _, err := s.messages.Create(ctx, restored); err != nil {
			return nil, fmt.Errorf("failed to restore message: %w", err)
		}
		msg = &restored
		s.log.WithField("message_id", messageID).Warn("Restored message missing from store before edit")
	}

	model, err := s.validateTurn(opts, msg.Attachments)
	if err != nil {
		return nil, err
	}

	if err := s.messages.UpdateContent(ctx, messageID, newContent); err != nil {
		return nil, fmt.Errorf("failed to update message: %w", err)
	}
	meta := msg.Metadata
	meta.TokenCount = s.estimator.Estimate(newContent)
	if err := s.messages.UpdateMetadata(ctx, messageID, meta); err != nil {
		return nil, fmt.Errorf("failed to update message metadata: %w", err)
	}
	if err := s.messages.DeleteAfter(ctx, msg.ConversationID, msg.CreatedAt); err != nil {
		return nil, fmt.Errorf("failed to truncate conversation: %w", err)
	}

	prior, err := s.historyBefore(ctx, msg.ConversationID, messageID)
	if err != nil {
		return nil, err
	}
	return s.streamTurn(ctx, msg.ConversationID, model, opts, prior, newContent, msg.Attachments)
}

// Regenerate discards the assistant reply after the last user message and
// re-runs that turn with the same content.
func (s *Service) Regenerate(ctx context.Context, conversationID string, opts SendOptions) (<-chan providers.StreamChunk, error) {
	history, err := s.messages.ListByConversation(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	var target *repository.Message
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role == repository.RoleUser {
			target = &history[i]
			break
		}
	}
	if target == nil {
		return nil, &MessageNotFoundError{MessageID: conversationID}
	}

	model, err := s.validateTurn(opts, target.Attachments)
	if err != nil {
		return nil, err
	}
	if err := s.messages.DeleteAfter(ctx, conversationID, target.CreatedAt); err != nil {
		return nil, fmt.Errorf("failed to truncate conversation: %w", err)
	}

	prior, err := s.historyBefore(ctx, conversationID, target.ID)
	if err != nil {
		return nil, err
	}
	return s.streamTurn(ctx, conversationID, model, opts, prior, target.Content, target.Attachments)
}

// Rewind deletes every message after the given one, leaving it as the new
// tail of the conversation.
func (s *Service) Rewind(ctx context.Context, conversationID, messageID string) error {
	msg, err := s.messages.GetByID(ctx, messageID)
	if err != nil {
		return err
	}
	if msg == nil || msg.ConversationID != conversationID {
		return &MessageNotFoundError{MessageID: messageID}
	}
	return s.messages.DeleteAfter(ctx, conversationID, msg.CreatedAt)
}

// validateTurn resolves the model and checks it against the turn's
// attachments. Nothing is persisted until validation passes.
func (s *Service) validateTurn(opts SendOptions, attachments []repository.Attachment) (*providers.ModelDescriptor, error) {
	model := providers.ResolveModel(opts.ModelID, opts.Custom)
	if model == nil {
		return nil, &ModelNotFoundError{ModelID: opts.ModelID}
	}
	if len(attachments) > maxAttachments {
		return nil, ErrTooManyAttachments
	}
	if len(attachments) > 0 && !model.Capabilities.Image {
		return nil, &CapabilityMismatchError{ModelName: model.Name}
	}
	return model, nil
}

// historyBefore reloads the conversation and returns every message that
// precedes the given one.
func (s *Service) historyBefore(ctx context.Context, conversationID, messageID string) ([]repository.Message, error) {
	history, err := s.messages.ListByConversation(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	for i, m := range history {
		if m.ID == messageID {
			return history[:i], nil
		}
	}
	return history, nil
}

// streamTurn shapes the request payload, dispatches it to the provider, and
// forwards the stream while accumulating the reply for persistence.
func (s *Service) streamTurn(
	ctx context.Context,
	conversationID string,
	model *providers.ModelDescriptor,
	opts SendOptions,
	history []repository.Message,
	content string,
	attachments []repository.Attachment,
) (<-chan providers.StreamChunk, error) {
	reduced := CompactForWindow(history, s.estimator.Estimate(content), model.ContextWindowTokens, s.estimator)
	payload := NormalizeHistory(reduced, model.Capabilities)
	payload = append(payload, BuildTurnContent(content, attachments))

	provider, err := s.resolveProvider(opts)
	if err != nil {
		return nil, err
	}

	req := providers.CompletionRequest{
		Messages: payload,
		Model:    s.effectiveModelID(model, opts),
		Stream:   true,
	}
	if opts.WebSearch && model.Capabilities.WebSearch {
		providers.ApplyWebSearch(opts.ProviderID, &req)
	}

	s.log.WithFields(logrus.Fields{
		"conversation_id": conversationID,
		"provider":        opts.ProviderID,
		"model":           req.Model,
		"history_len":     len(payload),
	}).Info("Dispatching completion")

	upstream, err := provider.StreamComplete(ctx, req)
	if err != nil {
		return nil, &CompletionError{Provider: opts.ProviderID, Err: err}
	}

	out := make(chan providers.StreamChunk)
	go s.forwardStream(ctx, out, upstream, conversationID, model)
	return out, nil
}

// forwardStream relays chunks to the caller. The assistant message is
// written to the store only after a clean finish; cancellation or a stream
// error leaves no assistant row behind.
func (s *Service) forwardStream(ctx context.Context, out chan<- providers.StreamChunk, upstream <-chan providers.StreamChunk, conversationID string, model *providers.ModelDescriptor) {
	defer close(out)
	// Leaving upstream unread would strand the provider goroutine on its
	// next send.
	defer func() {
		for range upstream {
		}
	}()

	var reply strings.Builder
	for chunk := range upstream {
		select {
		case out <- chunk:
		case <-ctx.Done():
			return
		}

		if chunk.Error != "" {
			s.log.WithFields(logrus.Fields{
				"conversation_id": conversationID,
				"error":           chunk.Error,
			}).Error("Stream failed mid-flight")
			return
		}
		reply.WriteString(chunk.Delta)

		if chunk.FinishReason != "" {
			if ctx.Err() != nil {
				return
			}
			s.persistAssistantReply(conversationID, model, reply.String())
			return
		}
	}
}

func (s *Service) persistAssistantReply(conversationID string, model *providers.ModelDescriptor, content string) {
	// The caller's context may already be winding down once the stream
	// finishes; the write gets its own deadline.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	msg := repository.Message{
		ID:             uuid.New().String(),
		ConversationID: conversationID,
		Role:           repository.RoleAssistant,
		Content:        content,
		Status:         repository.StatusCompleted,
		Metadata: repository.MessageMetadata{
			Model:      model.ID,
			TokenCount: s.estimator.Estimate(content),
		},
		CreatedAt: time.Now(),
	}
	if _, err := s.messages.Create(ctx, msg); err != nil {
		s.log.WithFields(logrus.Fields{
			"conversation_id": conversationID,
			"error":           err,
		}).Error("Failed to save assistant message")
	}
}

func (s *Service) effectiveModelID(model *providers.ModelDescriptor, opts SendOptions) string {
	if opts.Custom != nil && opts.Custom.ModelID != "" {
		return opts.Custom.ModelID
	}
	return model.ID
}

// resolveProvider picks the provider for a turn. Per-call overrides build a
// throwaway provider so a pasted key or custom endpoint never leaks into
// the shared registry.
func (s *Service) resolveProvider(opts SendOptions) (providers.Provider, error) {
	if opts.Custom != nil {
		key := opts.APIKey
		if key == "" {
			key = "not-needed"
		}
		return s.newProvider(opts.ProviderID, config.ProviderConfig{
			Type:    "openai-compatible",
			Name:    "Custom",
			BaseURL: opts.Custom.BaseURL,
			APIKey:  key,
		})
	}

	if opts.APIKey != "" {
		pc, ok := s.cfg.Providers[opts.ProviderID]
		if !ok {
			return nil, fmt.Errorf("provider not found: %s", opts.ProviderID)
		}
		pc.APIKey = opts.APIKey
		return s.newProvider(opts.ProviderID, pc)
	}

	if p := s.registry.Get(opts.ProviderID); p != nil {
		return p, nil
	}
	return nil, fmt.Errorf("provider not found: %s", opts.ProviderID)
}
