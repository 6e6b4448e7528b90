package chat

import (
	"time"

	"github.com/google/uuid"

	"github.com/mydrawer/mydrawer-server/internal/repository"
)

const (
	// contextUsageThreshold is the fraction of the model's context window
	// above which per-turn history reduction kicks in.
	contextUsageThreshold = 0.85

	// slidingWindowSize is the number of trailing messages kept verbatim
	// when the window is reduced.
	slidingWindowSize = 10
)

// ElisionMarker stands in for the discarded middle of a reduced window.
// It is sent to the provider but never persisted.
const ElisionMarker = "[... earlier messages omitted automatically to preserve context window ...]"

// CompactForWindow trims a conversation history to fit the model's context
// window. Messages already folded into a durable summary are always
// excluded. The remaining candidates are returned unchanged unless their
// estimated size plus the current turn crosses the usage threshold and
// there are more of them than the sliding window holds; in that case all
// system messages are kept, the middle is replaced by a single elision
// marker, and the trailing window survives verbatim.
func CompactForWindow(history []repository.Message, currentTurnTokens, contextWindowTokens int, est Estimator) []repository.Message {
	candidates := make([]repository.Message, 0, len(history))
	for _, m := range history {
		if m.Metadata.IsCompacted {
			continue
		}
		candidates = append(candidates, m)
	}
	if len(candidates) <= slidingWindowSize {
		return candidates
	}

	total := currentTurnTokens
	for _, m := range candidates {
		tokens := m.Metadata.TokenCount
		if tokens == 0 {
			tokens = est.Estimate(m.Content)
		}
		total += tokens
	}
	if float64(total) <= contextUsageThreshold*float64(contextWindowTokens) {
		return candidates
	}

	head := candidates[:len(candidates)-slidingWindowSize]
	tail := candidates[len(candidates)-slidingWindowSize:]

	kept := make([]repository.Message, 0, slidingWindowSize+2)
	elided := 0
	for _, m := range head {
		if m.Role == repository.RoleSystem {
			kept = append(kept, m)
		} else {
			elided++
		}
	}
	if elided > 0 {
		kept = append(kept, repository.Message{
			ID:             uuid.New().String(),
			ConversationID: candidates[0].ConversationID,
			Role:           repository.RoleAssistant,
			Content:        ElisionMarker,
			Status:         repository.StatusCompleted,
			CreatedAt:      time.Now(),
		})
	}
	return append(kept, tail...)
}
