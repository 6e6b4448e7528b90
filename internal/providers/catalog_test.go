package providers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetModel_KnownAndUnknown(t *testing.T) {
	m := GetModel("gpt-5.2")
	require.NotNil(t, m)
	assert.Equal(t, "openai", m.Provider)
	assert.True(t, m.Capabilities.Image)

	assert.Nil(t, GetModel("definitely-not-a-model"))
}

func TestResolveModel_UnknownWithoutOverride(t *testing.T) {
	assert.Nil(t, ResolveModel("mystery-7b", nil))
}

func TestResolveModel_CustomGetsDefaultWindow(t *testing.T) {
	m := ResolveModel("mystery-7b", &CustomModelConfig{
		BaseURL: "http://localhost:1234",
		ModelID: "mystery-7b",
		Name:    "Mystery 7B",
	})
	require.NotNil(t, m)
	assert.Equal(t, "custom", m.Provider)
	assert.Equal(t, "Mystery 7B", m.Name)
	assert.Equal(t, DefaultContextWindow, m.ContextWindowTokens)
	assert.False(t, m.Capabilities.Image)
	assert.False(t, m.Capabilities.WebSearch)
}

func TestResolveModel_CustomNameFallsBackToID(t *testing.T) {
	m := ResolveModel("mystery-7b", &CustomModelConfig{BaseURL: "http://localhost:1234", ModelID: "mystery-7b"})
	require.NotNil(t, m)
	assert.Equal(t, "mystery-7b", m.Name)
}

func TestApplyWebSearch_KnownProviders(t *testing.T) {
	var req CompletionRequest
	ApplyWebSearch("openai", &req)
	require.Len(t, req.Tools, 1)
	assert.Equal(t, "web_search", req.Tools[0].Type)

	req = CompletionRequest{}
	ApplyWebSearch("anthropic", &req)
	require.Len(t, req.Tools, 1)
	assert.Equal(t, "web_search_20250305", req.Tools[0].Type)
	assert.Equal(t, 5, req.Tools[0].MaxUses)
}

func TestApplyWebSearch_UnknownProviderIsNoOp(t *testing.T) {
	var req CompletionRequest
	ApplyWebSearch("groq", &req)
	assert.Empty(t, req.Tools)
}
