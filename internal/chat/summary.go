package chat

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/mydrawer/mydrawer-server/internal/providers"
	"github.com/mydrawer/mydrawer-server/internal/repository"
)

const summaryPrompt = `Summarize the conversation below so that a future turn can continue it without the original messages. Preserve decisions, open questions, factual details, and the user's goals. Be dense rather than polished.

%s`

// Summarize folds the conversation's visible history into a durable summary
// message. Prior messages are flagged as compacted and stay in storage;
// future turns see only the summary in their place. The operation is
// all-or-nothing: a failed summarization call leaves every flag untouched.
func (s *Service) Summarize(ctx context.Context, conversationID string, opts SendOptions) (*repository.Message, error) {
	model := providers.ResolveModel(opts.ModelID, opts.Custom)
	if model == nil {
		return nil, &ModelNotFoundError{ModelID: opts.ModelID}
	}

	history, err := s.messages.ListByConversation(ctx, conversationID)
	if err != nil {
		return nil, err
	}

	// Summaries are never folded again, and already-compacted messages have
	// nothing left to contribute. When everything visible is already folded
	// the call is a no-op.
	candidates := make([]repository.Message, 0, len(history))
	for _, m := range history {
		if m.Metadata.IsSummary || m.Metadata.IsCompacted {
			continue
		}
		candidates = append(candidates, m)
	}
	if len(candidates) < 2 {
		return nil, nil
	}

	var transcript strings.Builder
	for _, m := range candidates {
		text, _ := NormalizeContent(m.Content, providers.Capabilities{})
		transcript.WriteString(strings.ToUpper(m.Role))
		transcript.WriteString(": ")
		transcript.WriteString(text)
		transcript.WriteString("\n")
	}

	provider, err := s.resolveProvider(opts)
	if err != nil {
		return nil, err
	}

	req := providers.CompletionRequest{
		Model: s.effectiveModelID(model, opts),
		Messages: []providers.Message{
			{Role: repository.RoleUser, Content: fmt.Sprintf(summaryPrompt, transcript.String())},
		},
	}
	resp, err := provider.Complete(ctx, req)
	if err != nil {
		return nil, &CompletionError{Provider: opts.ProviderID, Err: err}
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return nil, &CompletionError{Provider: opts.ProviderID, Err: fmt.Errorf("empty summary response")}
	}
	summary := resp.Choices[0].Message.Content

	for _, m := range candidates {
		meta := m.Metadata
		meta.IsCompacted = true
		if err := s.messages.UpdateMetadata(ctx, m.ID, meta); err != nil {
			return nil, fmt.Errorf("failed to mark message compacted: %w", err)
		}
	}

	msg := repository.Message{
		ID:             uuid.New().String(),
		ConversationID: conversationID,
		Role:           repository.RoleAssistant,
		Content:        SummaryPrefix + summary,
		Status:         repository.StatusCompleted,
		Metadata: repository.MessageMetadata{
			Model:      model.ID,
			TokenCount: s.estimator.Estimate(summary),
			IsSummary:  true,
		},
		CreatedAt: time.Now(),
	}
	if _, err := s.messages.Create(ctx, msg); err != nil {
		return nil, fmt.Errorf("failed to save summary message: %w", err)
	}

	s.log.WithFields(logrus.Fields{
		"conversation_id": conversationID,
		"folded":          len(candidates),
		"model":           model.ID,
	}).Info("Conversation summarized")
	return &msg, nil
}
