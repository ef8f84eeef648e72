package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"github.com/xhad/newton/internal/models"
	"github.com/xhad/newton/internal/types"
	"github.com/xhad/newton/pkg/prompt"
)

// ChatConfig represents the configuration for a chat engine.
type ChatConfig struct {
	BaseURL     string // OpenAI-compatible endpoint
	APIKey      string
	TextModel   string
	VisionModel string
	Temperature float64
	MaxTokens   int
	HTTPClient  *http.Client
}

// ChatEngine streams completions from a hosted model.
type ChatEngine struct {
	config ChatConfig
	llm    llms.Model
}

// NewWithConfig creates a new ChatEngine with the given configuration.
func NewWithConfig(config ChatConfig) (*ChatEngine, error) {
	if config.APIKey == "" {
		return nil, errors.New("api key is required")
	}
	if config.BaseURL == "" {
		config.BaseURL = "https://api.groq.com/openai/v1"
	}

	opts := []openai.Option{
		openai.WithToken(config.APIKey),
		openai.WithBaseURL(config.BaseURL),
		openai.WithModel(config.TextModel),
	}
	if config.HTTPClient != nil {
		opts = append(opts, openai.WithHTTPClient(config.HTTPClient))
	}

	llm, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize LLM: %w", err)
	}

	return NewWithModel(config, llm)
}

// NewWithModel wraps an already constructed model.
func NewWithModel(config ChatConfig, llm llms.Model) (*ChatEngine, error) {
	if config.TextModel == "" {
		config.TextModel = "llama-3.3-70b-versatile"
	}
	if config.VisionModel == "" {
		config.VisionModel = "llama-3.2-11b-vision-preview"
	}
	if config.Temperature < 0 || config.Temperature > 2 {
		return nil, fmt.Errorf("temperature must be between 0 and 2")
	}
	if config.MaxTokens < 0 {
		return nil, fmt.Errorf("max tokens cannot be negative")
	}

	return &ChatEngine{
		config: config,
		llm:    llm,
	}, nil
}

// ModelFor picks the vision model for image turns and the text model otherwise.
func (ce *ChatEngine) ModelFor(turn models.Turn) string {
	if _, ok := turn.(models.ImageTurn); ok {
		return ce.config.VisionModel
	}
	return ce.config.TextModel
}

func (ce *ChatEngine) callOptions(model string) []llms.CallOption {
	opts := []llms.CallOption{
		llms.WithModel(model),
		llms.WithTemperature(ce.config.Temperature),
	}
	if ce.config.MaxTokens > 0 {
		opts = append(opts, llms.WithMaxTokens(ce.config.MaxTokens))
	}
	return opts
}

// ChatStream sends the composed turn and returns its deltas. The channel is
// closed when the stream ends; a failure arrives as the last chunk.
func (ce *ChatEngine) ChatStream(ctx context.Context, turn models.Turn) <-chan types.Chunk {
	resultChan := make(chan types.Chunk)

	go func() {
		defer close(resultChan)

		send := func(c types.Chunk) error {
			select {
			case resultChan <- c:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		messages := prompt.Compose(turn)
		opts := append(ce.callOptions(ce.ModelFor(turn)),
			llms.WithStreamingFunc(func(ctx context.Context, chunk []byte) error {
				if len(chunk) == 0 {
					return nil
				}
				return send(types.Chunk{Text: string(chunk)})
			}),
		)

		if _, err := ce.llm.GenerateContent(ctx, messages, opts...); err != nil {
			send(types.Chunk{Err: fmt.Errorf("chat error: %w", err)})
		}
	}()

	return resultChan
}
