package chat

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mydrawer/mydrawer-server/internal/repository"
)

func makeHistory(n int, tokensEach int) []repository.Message {
	msgs := make([]repository.Message, 0, n)
	base := time.Now().Add(-time.Hour)
	for i := 0; i < n; i++ {
		role := repository.RoleUser
		if i%2 == 1 {
			role = repository.RoleAssistant
		}
		msgs = append(msgs, repository.Message{
			ID:             fmt.Sprintf("m%d", i),
			ConversationID: "conv-1",
			Role:           role,
			Content:        fmt.Sprintf("message %d", i),
			Metadata:       repository.MessageMetadata{TokenCount: tokensEach},
			CreatedAt:      base.Add(time.Duration(i) * time.Second),
		})
	}
	return msgs
}

func TestCompactForWindow_EmptyHistory(t *testing.T) {
	out := CompactForWindow(nil, 100, 128000, CharEstimator{})
	assert.Empty(t, out)
}

func TestCompactForWindow_BelowThresholdUnchanged(t *testing.T) {
	history := makeHistory(20, 10)
	out := CompactForWindow(history, 10, 128000, CharEstimator{})
	assert.Equal(t, history, out)
}

func TestCompactForWindow_AtMostWindowSizeUnchanged(t *testing.T) {
	// Over budget but too few messages to reduce.
	history := makeHistory(10, 20000)
	out := CompactForWindow(history, 0, 128000, CharEstimator{})
	assert.Equal(t, history, out)
}

func TestCompactForWindow_SlidingWindow(t *testing.T) {
	history := makeHistory(15, 10000)
	out := CompactForWindow(history, 0, 128000, CharEstimator{})

	// 5 elided, one marker, last 10 verbatim.
	require.Len(t, out, 11)
	assert.Equal(t, ElisionMarker, out[0].Content)
	assert.Equal(t, repository.RoleAssistant, out[0].Role)
	assert.Equal(t, "m5", out[1].ID)
	assert.Equal(t, "m14", out[10].ID)
}

func TestCompactForWindow_KeepsSystemMessages(t *testing.T) {
	history := makeHistory(15, 10000)
	history[0].Role = repository.RoleSystem
	history[0].Content = "you are terse"

	out := CompactForWindow(history, 0, 128000, CharEstimator{})
	require.Len(t, out, 12)
	assert.Equal(t, repository.RoleSystem, out[0].Role)
	assert.Equal(t, ElisionMarker, out[1].Content)
	assert.Equal(t, "m5", out[2].ID)
}

func TestCompactForWindow_AllHeadSystemSkipsElision(t *testing.T) {
	history := makeHistory(12, 10000)
	history[0].Role = repository.RoleSystem
	history[1].Role = repository.RoleSystem

	out := CompactForWindow(history, 0, 128000, CharEstimator{})
	require.Len(t, out, 12)
	for _, m := range out {
		assert.NotEqual(t, ElisionMarker, m.Content)
	}
}

func TestCompactForWindow_ExcludesCompactedMessages(t *testing.T) {
	history := makeHistory(20, 10)
	for i := 0; i < 12; i++ {
		history[i].Metadata.IsCompacted = true
	}
	out := CompactForWindow(history, 10, 128000, CharEstimator{})
	require.Len(t, out, 8)
	assert.Equal(t, "m12", out[0].ID)
}

func TestCompactForWindow_EstimatesWhenTokenCountMissing(t *testing.T) {
	history := makeHistory(15, 0)
	for i := range history {
		history[i].Content = strings.Repeat("x", 40000)
	}
	out := CompactForWindow(history, 0, 128000, CharEstimator{})
	require.Len(t, out, 11)
	assert.Equal(t, ElisionMarker, out[0].Content)
}

func TestCompactForWindow_Idempotent(t *testing.T) {
	history := makeHistory(15, 10000)
	once := CompactForWindow(history, 0, 128000, CharEstimator{})
	twice := CompactForWindow(once, 0, 128000, CharEstimator{})
	assert.Equal(t, len(once), len(twice))
}
