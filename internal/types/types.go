package types

import (
	"context"

	"github.com/xhad/newton/internal/models"
)

// Core interfaces
type Extractor interface {
	Extract(file models.UploadedFile) (string, error)
}

type ImageEncoder interface {
	Encode(data []byte) string
}

// WebSearcher never fails: an unavailable provider yields empty context.
type WebSearcher interface {
	WebContext(ctx context.Context, query string) string
}

type Chunk struct {
	Text string
	Err  error
}

type ChatStreamer interface {
	ChatStream(ctx context.Context, turn models.Turn) <-chan Chunk
}

// Renderer is the display surface of a session.
type Renderer interface {
	Message(msg models.Message)
	Status(label string) (done func())
	Stream(text string, final bool)
	Error(err error)
	Cleared()
}
