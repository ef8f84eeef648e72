package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/xhad/newton/internal/logger"
	"github.com/xhad/newton/internal/models"
	"github.com/xhad/newton/internal/types"
)

type State int

const (
	Idle State = iota
	AwaitingModel
	TurnComplete
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case AwaitingModel:
		return "awaiting-model"
	case TurnComplete:
		return "turn-complete"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

var ErrTurnInProgress = errors.New("a turn is already in progress")

const (
	readingLabel   = "Newton is reading your document..."
	analyzingLabel = "🔍 Analyzing..."
)

type Config struct {
	Cursor    string
	Streaming bool
}

// Session ties one conversation to its uploaded file and collaborators.
// Turns run one at a time.
type Session struct {
	config       Config
	conversation *Conversation
	upload       *models.UploadedFile
	state        State

	chat      types.ChatStreamer
	search    types.WebSearcher
	extractor types.Extractor
	encoder   types.ImageEncoder
}

type Option func(*Session)

// WithSearch enables web context. Without it every turn gets empty web text.
func WithSearch(search types.WebSearcher) Option {
	return func(s *Session) { s.search = search }
}

func WithExtractor(e types.Extractor) Option {
	return func(s *Session) { s.extractor = e }
}

func WithEncoder(e types.ImageEncoder) Option {
	return func(s *Session) { s.encoder = e }
}

func New(config Config, chat types.ChatStreamer, opts ...Option) *Session {
	s := &Session{
		config:       config,
		conversation: NewConversation(),
		chat:         chat,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Session) State() State {
	return s.state
}

func (s *Session) Conversation() *Conversation {
	return s.conversation
}

// Attach replaces the uploaded file. It stays attached across turns until
// replaced or detached.
func (s *Session) Attach(file *models.UploadedFile) {
	s.upload = file
}

func (s *Session) Detach() {
	s.upload = nil
}

func (s *Session) Upload() *models.UploadedFile {
	return s.upload
}

// Clear empties the conversation and re-renders it. It is only valid while
// idle.
func (s *Session) Clear(r types.Renderer) error {
	if s.state != Idle {
		return ErrTurnInProgress
	}
	s.conversation.Clear()
	r.Cleared()
	s.conversation.Render(r)
	return nil
}

// Submit runs one turn for question and returns the assistant message that
// was appended. Failures are rendered and end the turn; they never escape.
func (s *Session) Submit(ctx context.Context, question string, r types.Renderer) (models.Message, error) {
	if s.state != Idle {
		return models.Message{}, ErrTurnInProgress
	}
	s.state = AwaitingModel
	defer func() { s.state = Idle }()

	user := models.Message{Role: models.RoleUser, Content: question}
	s.conversation.Append(user)
	r.Message(user)

	var response string
	turn, err := s.buildTurn(ctx, question, r)
	if err != nil {
		r.Error(err)
	} else {
		response = s.stream(ctx, turn, r)
	}

	assistant := models.Message{Role: models.RoleAssistant, Content: response}
	s.conversation.Append(assistant)
	s.state = TurnComplete
	return assistant, nil
}

func (s *Session) buildTurn(ctx context.Context, question string, r types.Renderer) (models.Turn, error) {
	var documentText string

	if file := s.upload; file != nil {
		if file.Kind.IsImage() {
			return models.ImageTurn{
				Prompt:    question,
				Encoded:   s.encode(file.Data),
				MediaType: file.Kind.MediaType(),
			}, nil
		}
		if s.extractor != nil {
			done := r.Status(readingLabel)
			text, err := s.extractor.Extract(*file)
			done()
			if err != nil {
				return nil, fmt.Errorf("read %s: %w", file.Name, err)
			}
			documentText = text
		}
	}

	var webText string
	if s.search != nil {
		done := r.Status(analyzingLabel)
		webText = s.search.WebContext(ctx, question)
		done()
	}

	return models.TextTurn{
		Prompt:       question,
		DocumentText: documentText,
		WebText:      webText,
	}, nil
}

func (s *Session) encode(data []byte) string {
	if s.encoder == nil {
		return ""
	}
	return s.encoder.Encode(data)
}

// stream folds the model deltas into the response text, rendering after
// every delta. Whatever arrived before a failure is kept.
func (s *Session) stream(ctx context.Context, turn models.Turn, r types.Renderer) string {
	var response string
	var streamErr error

	for chunk := range s.chat.ChatStream(ctx, turn) {
		if chunk.Err != nil {
			streamErr = chunk.Err
			continue
		}
		response += chunk.Text
		if s.config.Streaming {
			r.Stream(response+s.config.Cursor, false)
		}
	}
	if streamErr == nil {
		streamErr = ctx.Err()
	}

	if streamErr != nil {
		logger.Error.Printf("turn failed after %d bytes: %v", len(response), streamErr)
		if response != "" {
			r.Stream(response, true)
		}
		r.Error(streamErr)
		return response
	}

	r.Stream(response, true)
	return response
}
