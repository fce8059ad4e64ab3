package llm

import (
	"context"
	"errors"
)

var (
	// ErrEmptyPrompt is returned before any request is made.
	ErrEmptyPrompt = errors.New("prompt is empty")
	// ErrEmptyReply means the service answered without any text.
	ErrEmptyReply = errors.New("reply is empty")
)

// Generator turns a free-text prompt into a free-text completion.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}
