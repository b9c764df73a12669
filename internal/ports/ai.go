package ports

import (
	"context"
)

// ChatMessage is one turn of a chat conversation sent to the model.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Embedder turns text into an embedding vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// ChatStreamer streams a chat completion, invoking onDelta for every text
// fragment as it arrives. It returns only after the stream is drained or
// fails; a non-nil error means the stream ended abnormally and any deltas
// already delivered must be treated as partial output.
type ChatStreamer interface {
	CompleteStream(ctx context.Context, messages []ChatMessage, onDelta func(text string) error) error
}
