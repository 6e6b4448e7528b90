package chat

import (
	"errors"
	"fmt"
)

// ErrTooManyAttachments is returned when a turn carries more attachments
// than a single message may hold.
var ErrTooManyAttachments = errors.New("a message can carry at most 3 attachments")

// ModelNotFoundError is returned when a model id resolves to no catalog
// entry and no custom model override was supplied.
type ModelNotFoundError struct {
	ModelID string
}

func (e *ModelNotFoundError) Error() string {
	return fmt.Sprintf("model %s not found", e.ModelID)
}

// CapabilityMismatchError is returned when attachments are sent to a model
// that cannot accept images.
type CapabilityMismatchError struct {
	ModelName string
}

func (e *CapabilityMismatchError) Error() string {
	return fmt.Sprintf("the selected model (%s) does not support images", e.ModelName)
}

// MessageNotFoundError is returned when an edit or rewind target is missing
// from the record store and unrecoverable.
type MessageNotFoundError struct {
	MessageID string
}

func (e *MessageNotFoundError) Error() string {
	return fmt.Sprintf("message %s not found", e.MessageID)
}

// CompletionError wraps a provider failure unchanged
type CompletionError struct {
	Provider string
	Err      error
}

func (e *CompletionError) Error() string {
	return fmt.Sprintf("completion failed (%s): %v", e.Provider, e.Err)
}

func (e *CompletionError) Unwrap() error {
	return e.Err
}
