package chat

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mydrawer/mydrawer-server/internal/providers"
	"github.com/mydrawer/mydrawer-server/internal/repository"
)

func TestNormalizeContent_PlainTextPassesThrough(t *testing.T) {
	text, parts := NormalizeContent("hello world", providers.Capabilities{})
	assert.Equal(t, "hello world", text)
	assert.Nil(t, parts)
}

func TestNormalizeContent_NonArrayJSONPassesThrough(t *testing.T) {
	text, parts := NormalizeContent(`{"weird":"object"}`, providers.Capabilities{Image: true})
	assert.Equal(t, `{"weird":"object"}`, text)
	assert.Nil(t, parts)
}

func TestNormalizeContent_KeepsImagesForCapableModel(t *testing.T) {
	content := `[{"type":"text","text":"look"},{"type":"image","image":"data:image/png;base64,AAAA"}]`
	text, parts := NormalizeContent(content, providers.Capabilities{Image: true})
	assert.Empty(t, text)
	require.Len(t, parts, 2)
	assert.Equal(t, providers.PartTypeText, parts[0].Type)
	assert.Equal(t, providers.PartTypeImage, parts[1].Type)
}

func TestNormalizeContent_DropsImagesAndCollapsesToText(t *testing.T) {
	content := `[{"type":"text","text":"look"},{"type":"image","image":"data:image/png;base64,AAAA"}]`
	text, parts := NormalizeContent(content, providers.Capabilities{})
	assert.Equal(t, "look", text)
	assert.Nil(t, parts)
}

func TestNormalizeContent_AllPartsDroppedBecomesPlaceholder(t *testing.T) {
	content := `[{"type":"image","image":"data:image/png;base64,AAAA"}]`
	text, parts := NormalizeContent(content, providers.Capabilities{})
	assert.Equal(t, ImagePlaceholder, text)
	assert.Nil(t, parts)
}

func TestNormalizeContent_UnknownPartTypesDropped(t *testing.T) {
	content := `[{"type":"text","text":"a"},{"type":"audio","text":"b"}]`
	text, parts := NormalizeContent(content, providers.Capabilities{Image: true})
	assert.Equal(t, "a", text)
	assert.Nil(t, parts)
}

func TestNormalizeHistory_PreservesOrderAndRoles(t *testing.T) {
	history := []repository.Message{
		{Role: repository.RoleSystem, Content: "be brief"},
		{Role: repository.RoleUser, Content: "hi"},
		{Role: repository.RoleAssistant, Content: "hello"},
	}
	out := NormalizeHistory(history, providers.Capabilities{})
	require.Len(t, out, 3)
	assert.Equal(t, "system", out[0].Role)
	assert.Equal(t, "be brief", out[0].Content)
	assert.Equal(t, "assistant", out[2].Role)
}

func TestBuildTurnContent_NoAttachmentsStaysString(t *testing.T) {
	msg := BuildTurnContent("just text", nil)
	assert.Equal(t, "just text", msg.Content)
	assert.Nil(t, msg.Parts)
}

func TestBuildTurnContent_InlineDataBecomesDataURL(t *testing.T) {
	msg := BuildTurnContent("see", []repository.Attachment{
		{Name: "a.png", MimeType: "image/png", InlineData: "AAAA"},
	})
	require.Len(t, msg.Parts, 2)
	assert.Equal(t, "see", msg.Parts[0].Text)
	assert.Equal(t, "data:image/png;base64,AAAA", msg.Parts[1].Image)
}

func TestBuildTurnContent_PathWhenNoInlineData(t *testing.T) {
	msg := BuildTurnContent("", []repository.Attachment{
		{Name: "b.jpg", MimeType: "image/jpeg", Path: "/tmp/b.jpg"},
	})
	require.Len(t, msg.Parts, 1)
	assert.Equal(t, "/tmp/b.jpg", msg.Parts[0].Image)
}
