package llm_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
	"github.com/xhad/newton/internal/models"
	"github.com/xhad/newton/internal/types"
	"github.com/xhad/newton/pkg/llm"
)

// fakeModel streams chunks through the streaming callback, then returns err.
type fakeModel struct {
	chunks []string
	err    error

	gotModel       string
	gotTemperature float64
	gotMessages    []llms.MessageContent
}

func (f *fakeModel) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	opts := llms.CallOptions{}
	for _, opt := range options {
		opt(&opts)
	}
	f.gotModel = opts.Model
	f.gotTemperature = opts.Temperature
	f.gotMessages = messages

	var full strings.Builder
	for _, c := range f.chunks {
		if opts.StreamingFunc != nil {
			if err := opts.StreamingFunc(ctx, []byte(c)); err != nil {
				return nil, err
			}
		}
		full.WriteString(c)
	}
	if f.err != nil {
		return nil, f.err
	}
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: full.String()}}}, nil
}

func (f *fakeModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, f, prompt, options...)
}

var testConfig = llm.ChatConfig{
	TextModel:   "text-model",
	VisionModel: "vision-model",
	Temperature: 0.5,
	MaxTokens:   1000,
}

func newEngine(t *testing.T, model llms.Model) *llm.ChatEngine {
	t.Helper()
	engine, err := llm.NewWithModel(testConfig, model)
	require.NoError(t, err)
	return engine
}

func collect(ch <-chan types.Chunk) (string, error) {
	var text strings.Builder
	for c := range ch {
		if c.Err != nil {
			return text.String(), c.Err
		}
		text.WriteString(c.Text)
	}
	return text.String(), nil
}

func TestNewWithConfig(t *testing.T) {
	engine, err := llm.NewWithConfig(llm.ChatConfig{
		BaseURL:     "http://localhost:1234/v1",
		APIKey:      "gsk_test",
		TextModel:   "text-model",
		VisionModel: "vision-model",
		Temperature: 0.5,
	})
	assert.NoError(t, err)
	assert.NotNil(t, engine)
}

func TestNewWithConfigRequiresKey(t *testing.T) {
	_, err := llm.NewWithConfig(llm.ChatConfig{BaseURL: "http://localhost:1234/v1"})
	assert.Error(t, err)
}

func TestNewWithModelValidation(t *testing.T) {
	_, err := llm.NewWithModel(llm.ChatConfig{Temperature: 3}, &fakeModel{})
	assert.Error(t, err)

	_, err = llm.NewWithModel(llm.ChatConfig{MaxTokens: -1}, &fakeModel{})
	assert.Error(t, err)
}

func TestModelFor(t *testing.T) {
	engine := newEngine(t, &fakeModel{})

	tests := []struct {
		name string
		turn models.Turn
		want string
	}{
		{"text turn", models.TextTurn{Prompt: "hi"}, "text-model"},
		{"long text turn", models.TextTurn{Prompt: strings.Repeat("image ", 10000), DocumentText: "png"}, "text-model"},
		{"image turn", models.ImageTurn{Prompt: "hi", Encoded: "AAAA"}, "vision-model"},
		{"image turn with empty question", models.ImageTurn{Encoded: "AAAA"}, "vision-model"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, engine.ModelFor(tt.turn))
		})
	}
}

func TestChatStream(t *testing.T) {
	model := &fakeModel{chunks: []string{"Hel", "", "lo"}}
	engine := newEngine(t, model)

	text, err := collect(engine.ChatStream(context.Background(), models.TextTurn{Prompt: "Say hello"}))
	require.NoError(t, err)
	assert.Equal(t, "Hello", text)
	assert.Equal(t, "text-model", model.gotModel)

	require.Len(t, model.gotMessages, 1)
	part := model.gotMessages[0].Parts[0].(llms.TextContent)
	assert.Equal(t, "File Content: \n\nWeb Content: \n\nUser Question: Say hello", part.Text)
}

func TestChatStreamImageTurnUsesVisionModel(t *testing.T) {
	model := &fakeModel{chunks: []string{"A cat."}}
	engine := newEngine(t, model)

	text, err := collect(engine.ChatStream(context.Background(), models.ImageTurn{Prompt: "What?", Encoded: "AAAA", MediaType: models.MIMEJPEG}))
	require.NoError(t, err)
	assert.Equal(t, "A cat.", text)
	assert.Equal(t, "vision-model", model.gotModel)
	assert.Len(t, model.gotMessages[0].Parts, 2)
}

func TestChatStreamPartialFailure(t *testing.T) {
	model := &fakeModel{chunks: []string{"Par"}, err: errors.New("connection reset")}
	engine := newEngine(t, model)

	text, err := collect(engine.ChatStream(context.Background(), models.TextTurn{Prompt: "q"}))
	assert.Equal(t, "Par", text)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")
}

func TestChatStreamCancelled(t *testing.T) {
	model := &fakeModel{chunks: []string{"a", "b", "c"}}
	engine := newEngine(t, model)

	ctx, cancel := context.WithCancel(context.Background())
	ch := engine.ChatStream(ctx, models.TextTurn{Prompt: "q"})
	first := <-ch
	assert.Equal(t, "a", first.Text)
	cancel()

	done := make(chan struct{})
	go func() {
		for range ch {
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("stream was not closed after cancellation")
	}
}

func TestZeroTemperatureIsSent(t *testing.T) {
	model := &fakeModel{chunks: []string{"ok"}}
	config := testConfig
	config.Temperature = 0
	engine, err := llm.NewWithModel(config, model)
	require.NoError(t, err)

	_, err = collect(engine.ChatStream(context.Background(), models.TextTurn{Prompt: "hi"}))
	require.NoError(t, err)
	assert.Equal(t, 0.0, model.gotTemperature)

	model.gotTemperature = -1
	_, err = collect(newEngine(t, model).ChatStream(context.Background(), models.TextTurn{Prompt: "hi"}))
	require.NoError(t, err)
	assert.Equal(t, 0.5, model.gotTemperature)
}

func TestChatStreamOverHTTP(t *testing.T) {
	var gotAuth, gotBody string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)

		w.Header().Set("Content-Type", "text/event-stream")
		for _, delta := range []string{"Hel", "lo"} {
			w.Write([]byte(`data: {"id":"1","object":"chat.completion.chunk","created":1,"model":"text-model","choices":[{"index":0,"delta":{"content":"` + delta + `"},"finish_reason":null}]}` + "\n\n"))
		}
		w.Write([]byte("data: [DONE]\n\n"))
	}))
	defer server.Close()

	engine, err := llm.NewWithConfig(llm.ChatConfig{
		BaseURL:     server.URL,
		APIKey:      "gsk_test",
		TextModel:   "text-model",
		VisionModel: "vision-model",
	})
	require.NoError(t, err)

	text, err := collect(engine.ChatStream(context.Background(), models.TextTurn{Prompt: "hi"}))
	require.NoError(t, err)
	assert.Equal(t, "Hello", text)
	assert.Equal(t, "Bearer gsk_test", gotAuth)
	assert.Contains(t, gotBody, `"model":"text-model"`)
	assert.Contains(t, gotBody, `"stream":true`)
	assert.Contains(t, gotBody, `"temperature":0`)
}
