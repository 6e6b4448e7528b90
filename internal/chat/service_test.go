package chat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mydrawer/mydrawer-server/internal/config"
	"github.com/mydrawer/mydrawer-server/internal/providers"
	"github.com/mydrawer/mydrawer-server/internal/repository"
)

// ---- fakes ----

type fakeMessageRepo struct {
	mu       sync.Mutex
	messages []repository.Message
}

func (r *fakeMessageRepo) Create(ctx context.Context, message repository.Message) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, message)
	return message.ID, nil
}

func (r *fakeMessageRepo) GetByID(ctx context.Context, id string) (*repository.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.messages {
		if r.messages[i].ID == id {
			m := r.messages[i]
			return &m, nil
		}
	}
	return nil, nil
}

func (r *fakeMessageRepo) ListByConversation(ctx context.Context, conversationID string) ([]repository.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []repository.Message
	for _, m := range r.messages {
		if m.ConversationID == conversationID {
			out = append(out, m)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *fakeMessageRepo) UpdateContent(ctx context.Context, id string, content string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.messages {
		if r.messages[i].ID == id {
			r.messages[i].Content = content
			return nil
		}
	}
	return fmt.Errorf("message not found: %s", id)
}

func (r *fakeMessageRepo) UpdateMetadata(ctx context.Context, id string, metadata repository.MessageMetadata) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.messages {
		if r.messages[i].ID == id {
			r.messages[i].Metadata = metadata
			return nil
		}
	}
	return fmt.Errorf("message not found: %s", id)
}

func (r *fakeMessageRepo) DeleteAfter(ctx context.Context, conversationID string, ts time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	kept := r.messages[:0]
	for _, m := range r.messages {
		if m.ConversationID == conversationID && m.CreatedAt.After(ts) {
			continue
		}
		kept = append(kept, m)
	}
	r.messages = kept
	return nil
}

func (r *fakeMessageRepo) all(conversationID string) []repository.Message {
	out, _ := r.ListByConversation(context.Background(), conversationID)
	return out
}

type fakeConversationRepo struct {
	mu            sync.Mutex
	conversations []repository.Conversation
}

func (r *fakeConversationRepo) Create(ctx context.Context, c repository.Conversation) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conversations = append(r.conversations, c)
	return c.ID, nil
}

func (r *fakeConversationRepo) Get(ctx context.Context, id string) (*repository.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.conversations {
		if r.conversations[i].ID == id {
			c := r.conversations[i]
			return &c, nil
		}
	}
	return nil, nil
}

func (r *fakeConversationRepo) List(ctx context.Context) ([]repository.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]repository.Conversation(nil), r.conversations...), nil
}

func (r *fakeConversationRepo) UpdateTitle(ctx context.Context, id string, title string) error {
	return nil
}

func (r *fakeConversationRepo) UpdateModel(ctx context.Context, id string, modelID, providerID string) error {
	return nil
}

func (r *fakeConversationRepo) UpdateFolder(ctx context.Context, id string, folderID *string) error {
	return nil
}

func (r *fakeConversationRepo) Delete(ctx context.Context, id string) error { return nil }

type fakeFolderRepo struct{}

func (r *fakeFolderRepo) Create(ctx context.Context, name string) (string, error) { return "f1", nil }
func (r *fakeFolderRepo) List(ctx context.Context) ([]repository.Folder, error)   { return nil, nil }
func (r *fakeFolderRepo) Rename(ctx context.Context, id string, name string) error {
	return nil
}
func (r *fakeFolderRepo) Delete(ctx context.Context, id string) error { return nil }

type fakeProvider struct {
	mu            sync.Mutex
	name          string
	script        []providers.StreamChunk
	streamCh      chan providers.StreamChunk
	streamErr     error
	completeResp  *providers.CompletionResponse
	completeErr   error
	completeCalls int
	lastReq       providers.CompletionRequest
}

func (p *fakeProvider) Name() string { return p.name }

func (p *fakeProvider) Complete(ctx context.Context, req providers.CompletionRequest) (*providers.CompletionResponse, error) {
	p.mu.Lock()
	p.lastReq = req
	p.completeCalls++
	p.mu.Unlock()
	if p.completeErr != nil {
		return nil, p.completeErr
	}
	return p.completeResp, nil
}

func (p *fakeProvider) StreamComplete(ctx context.Context, req providers.CompletionRequest) (<-chan providers.StreamChunk, error) {
	p.mu.Lock()
	p.lastReq = req
	p.mu.Unlock()
	if p.streamErr != nil {
		return nil, p.streamErr
	}
	if p.streamCh != nil {
		return p.streamCh, nil
	}
	ch := make(chan providers.StreamChunk, len(p.script))
	for _, c := range p.script {
		ch <- c
	}
	close(ch)
	return ch, nil
}

func (p *fakeProvider) ValidateConfig() error { return nil }

func (p *fakeProvider) request() providers.CompletionRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastReq
}

// ---- helpers ----

func newTestService(t *testing.T) (*Service, *fakeMessageRepo, *fakeProvider) {
	t.Helper()
	provider := &fakeProvider{
		name: "openai",
		script: []providers.StreamChunk{
			{Delta: "Hel", Role: "assistant"},
			{Delta: "lo"},
			{FinishReason: "stop"},
		},
	}
	registry := providers.NewRegistry()
	registry.Register("openai", provider)
	registry.Register("groq", provider)

	log := logrus.New()
	log.SetOutput(io.Discard)

	messages := &fakeMessageRepo{}
	svc := NewService(
		&config.Config{
			Providers: map[string]config.ProviderConfig{
				"openai": {Type: "openai", Name: "OpenAI"},
			},
			DefaultProvider: "openai",
			DefaultModel:    "gpt-5.2",
		},
		registry,
		&fakeConversationRepo{},
		&fakeFolderRepo{},
		messages,
		log,
	)
	return svc, messages, provider
}

func drain(t *testing.T, stream <-chan providers.StreamChunk) string {
	t.Helper()
	var b strings.Builder
	for chunk := range stream {
		b.WriteString(chunk.Delta)
	}
	return b.String()
}

func seedTurns(repo *fakeMessageRepo, conversationID string, n int) []repository.Message {
	base := time.Now().Add(-time.Hour)
	for i := 0; i < n; i++ {
		role := repository.RoleUser
		if i%2 == 1 {
			role = repository.RoleAssistant
		}
		repo.Create(context.Background(), repository.Message{
			ID:             fmt.Sprintf("m%d", i),
			ConversationID: conversationID,
			Role:           role,
			Content:        fmt.Sprintf("message %d", i),
			Status:         repository.StatusCompleted,
			Metadata:       repository.MessageMetadata{TokenCount: 10},
			CreatedAt:      base.Add(time.Duration(i) * time.Second),
		})
	}
	return repo.all(conversationID)
}

var defaultOpts = SendOptions{ModelID: "gpt-5.2", ProviderID: "openai"}

// ---- SendMessage ----

func TestSendMessage_PersistsUserAndAssistant(t *testing.T) {
	svc, repo, _ := newTestService(t)

	stream, err := svc.SendMessage(context.Background(), "conv-1", "hi there", nil, defaultOpts)
	require.NoError(t, err)
	assert.Equal(t, "Hello", drain(t, stream))

	msgs := repo.all("conv-1")
	require.Len(t, msgs, 2)
	assert.Equal(t, repository.RoleUser, msgs[0].Role)
	assert.Equal(t, "hi there", msgs[0].Content)
	assert.Equal(t, repository.RoleAssistant, msgs[1].Role)
	assert.Equal(t, "Hello", msgs[1].Content)
	assert.Equal(t, "gpt-5.2", msgs[1].Metadata.Model)
	assert.Greater(t, msgs[1].Metadata.TokenCount, 0)
}

func TestSendMessage_UserSurvivesProviderFailure(t *testing.T) {
	svc, repo, provider := newTestService(t)
	provider.streamErr = errors.New("connection refused")

	_, err := svc.SendMessage(context.Background(), "conv-1", "hi", nil, defaultOpts)

	var complErr *CompletionError
	require.ErrorAs(t, err, &complErr)
	msgs := repo.all("conv-1")
	require.Len(t, msgs, 1)
	assert.Equal(t, repository.RoleUser, msgs[0].Role)
}

func TestSendMessage_StreamErrorLeavesNoAssistantRow(t *testing.T) {
	svc, repo, provider := newTestService(t)
	provider.script = []providers.StreamChunk{
		{Delta: "partial"},
		{Error: "rate limited"},
	}

	stream, err := svc.SendMessage(context.Background(), "conv-1", "hi", nil, defaultOpts)
	require.NoError(t, err)
	drain(t, stream)

	msgs := repo.all("conv-1")
	require.Len(t, msgs, 1)
	assert.Equal(t, repository.RoleUser, msgs[0].Role)
}

func TestSendMessage_CancelLeavesNoAssistantRow(t *testing.T) {
	svc, repo, provider := newTestService(t)
	upstream := make(chan providers.StreamChunk)
	provider.streamCh = upstream

	ctx, cancel := context.WithCancel(context.Background())
	stream, err := svc.SendMessage(ctx, "conv-1", "hi", nil, defaultOpts)
	require.NoError(t, err)

	upstream <- providers.StreamChunk{Delta: "partial"}
	<-stream
	cancel()
	upstream <- providers.StreamChunk{FinishReason: "stop"}
	close(upstream)
	for range stream {
	}

	msgs := repo.all("conv-1")
	require.Len(t, msgs, 1)
	assert.Equal(t, repository.RoleUser, msgs[0].Role)
}

func TestSendMessage_UnknownModelRejectedBeforePersist(t *testing.T) {
	svc, repo, _ := newTestService(t)

	_, err := svc.SendMessage(context.Background(), "conv-1", "hi", nil, SendOptions{ModelID: "no-such-model", ProviderID: "openai"})

	var modelErr *ModelNotFoundError
	require.ErrorAs(t, err, &modelErr)
	assert.Equal(t, "no-such-model", modelErr.ModelID)
	assert.Empty(t, repo.all("conv-1"))
}

func TestSendMessage_AttachmentsRejectedForTextOnlyModel(t *testing.T) {
	svc, repo, _ := newTestService(t)
	attachments := []repository.Attachment{{Name: "a.png", MimeType: "image/png", InlineData: "AAAA"}}

	_, err := svc.SendMessage(context.Background(), "conv-1", "look", attachments,
		SendOptions{ModelID: "llama-3.3-70b-versatile", ProviderID: "groq"})

	var capErr *CapabilityMismatchError
	require.ErrorAs(t, err, &capErr)
	assert.Empty(t, repo.all("conv-1"))
}

func TestSendMessage_TooManyAttachments(t *testing.T) {
	svc, repo, _ := newTestService(t)
	attachments := make([]repository.Attachment, 4)
	for i := range attachments {
		attachments[i] = repository.Attachment{Name: fmt.Sprintf("a%d.png", i), MimeType: "image/png", InlineData: "AAAA"}
	}

	_, err := svc.SendMessage(context.Background(), "conv-1", "look", attachments, defaultOpts)

	require.ErrorIs(t, err, ErrTooManyAttachments)
	assert.Empty(t, repo.all("conv-1"))
}

func TestSendMessage_ReducesLongHistory(t *testing.T) {
	svc, repo, provider := newTestService(t)
	base := time.Now().Add(-time.Hour)
	for i := 0; i < 15; i++ {
		repo.Create(context.Background(), repository.Message{
			ID:             fmt.Sprintf("m%d", i),
			ConversationID: "conv-1",
			Role:           repository.RoleUser,
			Content:        fmt.Sprintf("message %d", i),
			Metadata:       repository.MessageMetadata{TokenCount: 40000},
			CreatedAt:      base.Add(time.Duration(i) * time.Second),
		})
	}

	stream, err := svc.SendMessage(context.Background(), "conv-1", "latest", nil, defaultOpts)
	require.NoError(t, err)
	drain(t, stream)

	// Marker, last 10 history messages, current turn.
	req := provider.request()
	require.Len(t, req.Messages, 12)
	assert.Equal(t, ElisionMarker, req.Messages[0].Content)
	assert.Equal(t, "message 5", req.Messages[1].Content)
	assert.Equal(t, "latest", req.Messages[11].Content)
}

func TestSendMessage_WebSearchInjectedWhenSupported(t *testing.T) {
	svc, _, provider := newTestService(t)
	opts := defaultOpts
	opts.WebSearch = true

	stream, err := svc.SendMessage(context.Background(), "conv-1", "what is new", nil, opts)
	require.NoError(t, err)
	drain(t, stream)

	req := provider.request()
	require.Len(t, req.Tools, 1)
	assert.Equal(t, "web_search", req.Tools[0].Type)
}

func TestSendMessage_WebSearchSkippedWithoutCapability(t *testing.T) {
	svc, _, provider := newTestService(t)
	opts := SendOptions{ModelID: "llama-3.3-70b-versatile", ProviderID: "groq", WebSearch: true}

	stream, err := svc.SendMessage(context.Background(), "conv-1", "what is new", nil, opts)
	require.NoError(t, err)
	drain(t, stream)

	assert.Empty(t, provider.request().Tools)
}

func TestSendMessage_CustomModelUsesOverrideEndpoint(t *testing.T) {
	svc, _, provider := newTestService(t)
	var gotConfig config.ProviderConfig
	svc.newProvider = func(id string, pc config.ProviderConfig) (providers.Provider, error) {
		gotConfig = pc
		return provider, nil
	}

	opts := SendOptions{
		ModelID:    "my-local-model",
		ProviderID: "custom",
		Custom:     &providers.CustomModelConfig{BaseURL: "http://localhost:1234", ModelID: "my-local-model"},
	}
	stream, err := svc.SendMessage(context.Background(), "conv-1", "hi", nil, opts)
	require.NoError(t, err)
	drain(t, stream)

	assert.Equal(t, "http://localhost:1234", gotConfig.BaseURL)
	assert.Equal(t, "openai-compatible", gotConfig.Type)
	assert.Equal(t, "my-local-model", provider.request().Model)
}

// ---- EditMessage ----

func TestEditMessage_TruncatesAndRerunsTurn(t *testing.T) {
	svc, repo, provider := newTestService(t)
	seedTurns(repo, "conv-1", 4)

	stream, err := svc.EditMessage(context.Background(), "m2", "edited question", defaultOpts, nil)
	require.NoError(t, err)
	drain(t, stream)

	msgs := repo.all("conv-1")
	require.Len(t, msgs, 4)
	assert.Equal(t, "m2", msgs[2].ID)
	assert.Equal(t, "edited question", msgs[2].Content)
	assert.Equal(t, repository.RoleAssistant, msgs[3].Role)
	assert.Equal(t, "Hello", msgs[3].Content)

	req := provider.request()
	require.Len(t, req.Messages, 3)
	assert.Equal(t, "edited question", req.Messages[2].Content)
}

func TestEditMessage_EarliestMessageClearsConversation(t *testing.T) {
	svc, repo, provider := newTestService(t)
	seedTurns(repo, "conv-1", 4)

	stream, err := svc.EditMessage(context.Background(), "m0", "fresh start", defaultOpts, nil)
	require.NoError(t, err)
	drain(t, stream)

	msgs := repo.all("conv-1")
	require.Len(t, msgs, 2)
	assert.Equal(t, "fresh start", msgs[0].Content)

	req := provider.request()
	require.Len(t, req.Messages, 1)
	assert.Equal(t, "fresh start", req.Messages[0].Content)
}

func TestEditMessage_MissingWithoutRecovery(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.EditMessage(context.Background(), "ghost", "new", defaultOpts, nil)

	var notFound *MessageNotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "ghost", notFound.MessageID)
}

func TestEditMessage_RecoveryReinsertsLostMessage(t *testing.T) {
	svc, repo, _ := newTestService(t)
	recovery := &repository.Message{
		ID:             "lost",
		ConversationID: "conv-1",
		Role:           repository.RoleUser,
		Content:        "original",
		Status:         repository.StatusCompleted,
		CreatedAt:      time.Now().Add(-time.Minute),
	}

	stream, err := svc.EditMessage(context.Background(), "lost", "edited", defaultOpts, recovery)
	require.NoError(t, err)
	drain(t, stream)

	msgs := repo.all("conv-1")
	require.Len(t, msgs, 2)
	assert.Equal(t, "lost", msgs[0].ID)
	assert.Equal(t, "edited", msgs[0].Content)
}

// ---- Regenerate / Rewind ----

func TestRegenerate_ReplacesLastReply(t *testing.T) {
	svc, repo, provider := newTestService(t)
	seedTurns(repo, "conv-1", 4)

	stream, err := svc.Regenerate(context.Background(), "conv-1", defaultOpts)
	require.NoError(t, err)
	drain(t, stream)

	msgs := repo.all("conv-1")
	require.Len(t, msgs, 4)
	assert.Equal(t, "m2", msgs[2].ID)
	assert.Equal(t, "Hello", msgs[3].Content)

	req := provider.request()
	assert.Equal(t, "message 2", req.Messages[len(req.Messages)-1].Content)
}

func TestRegenerate_EmptyConversation(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.Regenerate(context.Background(), "conv-1", defaultOpts)

	var notFound *MessageNotFoundError
	require.ErrorAs(t, err, &notFound)
}

func TestRewind_DeletesEverythingAfterTarget(t *testing.T) {
	svc, repo, _ := newTestService(t)
	seedTurns(repo, "conv-1", 4)

	require.NoError(t, svc.Rewind(context.Background(), "conv-1", "m1"))

	msgs := repo.all("conv-1")
	require.Len(t, msgs, 2)
	assert.Equal(t, "m1", msgs[1].ID)
}

func TestRewind_WrongConversation(t *testing.T) {
	svc, repo, _ := newTestService(t)
	seedTurns(repo, "conv-1", 2)

	err := svc.Rewind(context.Background(), "conv-2", "m1")

	var notFound *MessageNotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Len(t, repo.all("conv-1"), 2)
}

// ---- Summarize ----

func TestSummarize_FoldsHistoryIntoSummary(t *testing.T) {
	svc, repo, provider := newTestService(t)
	provider.completeResp = &providers.CompletionResponse{
		Choices: []providers.Choice{
			{Message: providers.Message{Role: "assistant", Content: "They discussed message ordering."}},
		},
	}
	seedTurns(repo, "conv-1", 4)

	summary, err := svc.Summarize(context.Background(), "conv-1", defaultOpts)
	require.NoError(t, err)
	require.NotNil(t, summary)

	assert.True(t, strings.HasPrefix(summary.Content, SummaryPrefix))
	assert.True(t, summary.Metadata.IsSummary)
	assert.Equal(t, repository.RoleAssistant, summary.Role)

	msgs := repo.all("conv-1")
	require.Len(t, msgs, 5)
	for _, m := range msgs[:4] {
		assert.True(t, m.Metadata.IsCompacted, "message %s should be compacted", m.ID)
	}
	assert.False(t, msgs[4].Metadata.IsCompacted)

	// The summarization prompt carries the ROLE: content transcript.
	prompt := provider.request().Messages[0].Content
	assert.Contains(t, prompt, "USER: message 0")
	assert.Contains(t, prompt, "ASSISTANT: message 1")
}

func TestSummarize_TooFewMessagesIsNoOp(t *testing.T) {
	svc, repo, provider := newTestService(t)
	seedTurns(repo, "conv-1", 1)

	summary, err := svc.Summarize(context.Background(), "conv-1", defaultOpts)

	require.NoError(t, err)
	assert.Nil(t, summary)
	assert.Equal(t, 0, provider.completeCalls)
	assert.Len(t, repo.all("conv-1"), 1)
}

func TestSummarize_FailureLeavesFlagsUntouched(t *testing.T) {
	svc, repo, provider := newTestService(t)
	provider.completeErr = errors.New("model overloaded")
	seedTurns(repo, "conv-1", 4)

	_, err := svc.Summarize(context.Background(), "conv-1", defaultOpts)

	var complErr *CompletionError
	require.ErrorAs(t, err, &complErr)
	for _, m := range repo.all("conv-1") {
		assert.False(t, m.Metadata.IsCompacted)
		assert.False(t, m.Metadata.IsSummary)
	}
}

func TestSummarize_SecondCallIsNoOp(t *testing.T) {
	svc, repo, provider := newTestService(t)
	provider.completeResp = &providers.CompletionResponse{
		Choices: []providers.Choice{
			{Message: providers.Message{Role: "assistant", Content: "The gist."}},
		},
	}
	seedTurns(repo, "conv-1", 4)

	first, err := svc.Summarize(context.Background(), "conv-1", defaultOpts)
	require.NoError(t, err)
	require.NotNil(t, first)

	second, err := svc.Summarize(context.Background(), "conv-1", defaultOpts)
	require.NoError(t, err)
	assert.Nil(t, second)
	assert.Equal(t, 1, provider.completeCalls)
	assert.Len(t, repo.all("conv-1"), 5)
}

func TestSummarize_HiddenFromFollowingTurns(t *testing.T) {
	svc, repo, provider := newTestService(t)
	provider.completeResp = &providers.CompletionResponse{
		Choices: []providers.Choice{
			{Message: providers.Message{Role: "assistant", Content: "Summary of it all."}},
		},
	}
	seedTurns(repo, "conv-1", 4)

	_, err := svc.Summarize(context.Background(), "conv-1", defaultOpts)
	require.NoError(t, err)

	stream, err := svc.SendMessage(context.Background(), "conv-1", "continue", nil, defaultOpts)
	require.NoError(t, err)
	drain(t, stream)

	// Only the summary and the new turn reach the provider.
	req := provider.request()
	require.Len(t, req.Messages, 2)
	assert.Contains(t, req.Messages[0].Content, "Summary of it all.")
	assert.Equal(t, "continue", req.Messages[1].Content)
}
