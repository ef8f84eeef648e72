package server

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xhad/newton/internal/logger"
	"github.com/xhad/newton/internal/models"
	"github.com/xhad/newton/internal/types"
	"github.com/xhad/newton/pkg/extractor"
	"github.com/xhad/newton/pkg/session"
)

func init() {
	logger.Discard()
}

type fakeChat struct {
	mu     sync.Mutex
	chunks []string
	err    error
	turns  []models.Turn
}

func (f *fakeChat) ChatStream(ctx context.Context, turn models.Turn) <-chan types.Chunk {
	f.mu.Lock()
	f.turns = append(f.turns, turn)
	f.mu.Unlock()

	ch := make(chan types.Chunk, len(f.chunks)+1)
	for _, c := range f.chunks {
		ch <- types.Chunk{Text: c}
	}
	if f.err != nil {
		ch <- types.Chunk{Err: f.err}
	}
	close(ch)
	return ch
}

func (f *fakeChat) lastTurn() models.Turn {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.turns) == 0 {
		return nil
	}
	return f.turns[len(f.turns)-1]
}

type received struct {
	Type    string          `json:"type"`
	Content string          `json:"content"`
	Data    json.RawMessage `json:"data"`
}

func newTestServer(t *testing.T, chat *fakeChat) *httptest.Server {
	t.Helper()
	sess := session.New(session.Config{Cursor: "▌", Streaming: true}, chat,
		session.WithExtractor(extractor.New()),
		session.WithEncoder(extractor.ImageEncoder{}),
	)
	ts := httptest.NewServer(NewWSServer(Config{TurnTimeout: time.Minute}, sess).Handler())
	t.Cleanup(ts.Close)
	return ts
}

func dial(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func read(t *testing.T, conn *websocket.Conn) received {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var msg received
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func send(t *testing.T, conn *websocket.Conn, req Request) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(req))
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t, &fakeChat{})

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "OK", string(body))
}

func TestChatTurn(t *testing.T) {
	ts := newTestServer(t, &fakeChat{chunks: []string{"Hel", "lo"}})
	conn := dial(t, ts)

	history := read(t, conn)
	assert.Equal(t, "history", history.Type)
	assert.JSONEq(t, `[]`, string(history.Data))

	send(t, conn, Request{Type: "chat", Content: "hi"})

	expected := []received{
		{Type: "user", Content: "hi"},
		{Type: "stream", Content: "Hel▌"},
		{Type: "stream", Content: "Hello▌"},
		{Type: "response", Content: "Hello"},
	}
	for _, want := range expected {
		got := read(t, conn)
		assert.Equal(t, want.Type, got.Type)
		assert.Equal(t, want.Content, got.Content)
	}
}

func TestChatFailure(t *testing.T) {
	ts := newTestServer(t, &fakeChat{chunks: []string{"Par"}, err: errors.New("rate limited")})
	conn := dial(t, ts)
	read(t, conn)

	send(t, conn, Request{Type: "chat", Content: "hi"})

	assert.Equal(t, "user", read(t, conn).Type)
	assert.Equal(t, "stream", read(t, conn).Type)

	partial := read(t, conn)
	assert.Equal(t, "response", partial.Type)
	assert.Equal(t, "Par", partial.Content)

	failure := read(t, conn)
	assert.Equal(t, "error", failure.Type)
	assert.Equal(t, "Newton error: rate limited", failure.Content)
}

func TestSecondConnectionRejected(t *testing.T) {
	ts := newTestServer(t, &fakeChat{})
	first := dial(t, ts)
	assert.Equal(t, "history", read(t, first).Type)

	second := dial(t, ts)
	msg := read(t, second)
	assert.Equal(t, "error", msg.Type)
	assert.Equal(t, ErrSessionBusy.Error(), msg.Content)

	var rest received
	assert.Error(t, second.ReadJSON(&rest))
}

func TestUploadAndDetach(t *testing.T) {
	png := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00")
	chat := &fakeChat{chunks: []string{"A cat"}}
	ts := newTestServer(t, chat)
	conn := dial(t, ts)
	read(t, conn)

	send(t, conn, Request{Type: "upload", Name: "cat.png", Data: base64.StdEncoding.EncodeToString(png)})
	attached := read(t, conn)
	assert.Equal(t, "attached", attached.Type)
	assert.Equal(t, "cat.png", attached.Content)
	assert.JSONEq(t, `{"kind":"png"}`, string(attached.Data))

	send(t, conn, Request{Type: "chat", Content: "what is this?"})
	for _, want := range []string{"user", "stream", "response"} {
		assert.Equal(t, want, read(t, conn).Type)
	}

	image, ok := chat.lastTurn().(models.ImageTurn)
	require.True(t, ok)
	assert.Equal(t, "what is this?", image.Prompt)
	assert.Equal(t, models.MIMEPNG, image.MediaType)

	send(t, conn, Request{Type: "detach"})
	assert.Equal(t, "detached", read(t, conn).Type)

	send(t, conn, Request{Type: "chat", Content: "and now?"})
	for _, want := range []string{"user", "stream", "response"} {
		assert.Equal(t, want, read(t, conn).Type)
	}
	_, ok = chat.lastTurn().(models.TextTurn)
	assert.True(t, ok)
}

func TestUploadRejected(t *testing.T) {
	ts := newTestServer(t, &fakeChat{})
	conn := dial(t, ts)
	read(t, conn)

	send(t, conn, Request{Type: "upload", Name: "notes.txt", Data: base64.StdEncoding.EncodeToString([]byte("plain text"))})
	msg := read(t, conn)
	assert.Equal(t, "error", msg.Type)
	assert.Contains(t, msg.Content, "unsupported file type")

	send(t, conn, Request{Type: "upload", Name: "bad.png", Data: "%%%"})
	msg = read(t, conn)
	assert.Equal(t, "error", msg.Type)
	assert.Contains(t, msg.Content, "decode upload bad.png")
}

func TestClearAndUnknownType(t *testing.T) {
	ts := newTestServer(t, &fakeChat{chunks: []string{"ok"}})
	conn := dial(t, ts)
	read(t, conn)

	send(t, conn, Request{Type: "chat", Content: "hi"})
	for range []string{"user", "stream", "response"} {
		read(t, conn)
	}

	send(t, conn, Request{Type: "clear"})
	assert.Equal(t, "cleared", read(t, conn).Type)

	send(t, conn, Request{Type: "bogus"})
	msg := read(t, conn)
	assert.Equal(t, "error", msg.Type)
	assert.Contains(t, msg.Content, `unknown message type "bogus"`)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{not json")))
	assert.Contains(t, read(t, conn).Content, "invalid message")
}

func TestReconnectReplaysHistory(t *testing.T) {
	ts := newTestServer(t, &fakeChat{chunks: []string{"Hello"}})
	conn := dial(t, ts)
	read(t, conn)

	send(t, conn, Request{Type: "chat", Content: "hi"})
	for range []string{"user", "stream", "response"} {
		read(t, conn)
	}
	require.NoError(t, conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")))
	conn.Close()

	var history received
	require.Eventually(t, func() bool {
		next := dial(t, ts)
		msg := read(t, next)
		if msg.Type != "history" {
			next.Close()
			return false
		}
		history = msg
		return true
	}, 5*time.Second, 20*time.Millisecond)

	var messages []models.Message
	require.NoError(t, json.Unmarshal(history.Data, &messages))
	assert.Equal(t, []models.Message{
		{Role: models.RoleUser, Content: "hi"},
		{Role: models.RoleAssistant, Content: "Hello"},
	}, messages)
}
