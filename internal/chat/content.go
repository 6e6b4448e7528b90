package chat

import (
	"encoding/json"
	"strings"

	"github.com/mydrawer/mydrawer-server/internal/providers"
	"github.com/mydrawer/mydrawer-server/internal/repository"
)

// ImagePlaceholder replaces message bodies whose every part was dropped
// during capability filtering.
const ImagePlaceholder = "[Image not supported by current model]"

// DecodeParts interprets a stored message body as a multipart JSON array.
// Plain text bodies (including non-array JSON) report ok = false and are
// passed through unchanged by the normalizer.
func DecodeParts(content string) ([]providers.ContentPart, bool) {
	trimmed := strings.TrimSpace(content)
	if !strings.HasPrefix(trimmed, "[") {
		return nil, false
	}
	var parts []providers.ContentPart
	if err := json.Unmarshal([]byte(trimmed), &parts); err != nil {
		return nil, false
	}
	return parts, true
}

// NormalizeContent reshapes one historical message body for the target
// model. Multipart bodies are filtered down to the parts the model can
// accept; a body left empty by filtering becomes a text placeholder so the
// message keeps its slot in the transcript. A multipart body reduced to a
// single text part collapses back to a bare string.
func NormalizeContent(content string, caps providers.Capabilities) (string, []providers.ContentPart) {
	parts, ok := DecodeParts(content)
	if !ok {
		return content, nil
	}

	kept := make([]providers.ContentPart, 0, len(parts))
	for _, p := range parts {
		switch p.Type {
		case providers.PartTypeText:
			kept = append(kept, p)
		case providers.PartTypeImage:
			if caps.Image {
				kept = append(kept, p)
			}
		}
	}

	if len(kept) == 0 {
		return ImagePlaceholder, nil
	}
	if len(kept) == 1 && kept[0].Type == providers.PartTypeText {
		return kept[0].Text, nil
	}
	return "", kept
}

// NormalizeHistory converts stored messages into provider messages,
// applying per-message capability normalization.
func NormalizeHistory(history []repository.Message, caps providers.Capabilities) []providers.Message {
	out := make([]providers.Message, 0, len(history))
	for _, m := range history {
		text, parts := NormalizeContent(m.Content, caps)
		out = append(out, providers.Message{
			Role:    string(m.Role),
			Content: text,
			Parts:   parts,
		})
	}
	return out
}

// BuildTurnContent assembles the outgoing message for the current turn.
// Without attachments the body stays a bare string; with attachments it
// becomes a text part followed by one image part per attachment. Inline
// data is preferred over the file path when both are present.
func BuildTurnContent(text string, attachments []repository.Attachment) providers.Message {
	msg := providers.Message{Role: string(repository.RoleUser)}
	if len(attachments) == 0 {
		msg.Content = text
		return msg
	}

	parts := make([]providers.ContentPart, 0, len(attachments)+1)
	if text != "" {
		parts = append(parts, providers.ContentPart{Type: providers.PartTypeText, Text: text})
	}
	for _, a := range attachments {
		parts = append(parts, providers.ContentPart{
			Type:  providers.PartTypeImage,
			Image: attachmentImageRef(a),
		})
	}
	msg.Parts = parts
	return msg
}

func attachmentImageRef(a repository.Attachment) string {
	if a.InlineData != "" {
		return "data:" + a.MimeType + ";base64," + a.InlineData
	}
	return a.Path
}
