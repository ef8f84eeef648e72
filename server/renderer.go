package server

import (
	"github.com/gorilla/websocket"
	"github.com/xhad/newton/internal/models"
)

// wsRenderer forwards session output to one WebSocket client.
type wsRenderer struct {
	conn *websocket.Conn
}

func (w *wsRenderer) Message(msg models.Message) {
	switch msg.Role {
	case models.RoleUser:
		sendMessage(w.conn, Message{Type: "user", Content: msg.Content})
	case models.RoleAssistant:
		sendMessage(w.conn, Message{Type: "response", Content: msg.Content})
	}
}

// Status has no end marker on the wire; the next message replaces it.
func (w *wsRenderer) Status(label string) func() {
	sendMessage(w.conn, Message{Type: "status", Content: label})
	return func() {}
}

func (w *wsRenderer) Stream(text string, final bool) {
	if final {
		sendMessage(w.conn, Message{Type: "response", Content: text})
		return
	}
	sendMessage(w.conn, Message{Type: "stream", Content: text})
}

func (w *wsRenderer) Error(err error) {
	sendMessage(w.conn, Message{Type: "error", Content: "Newton error: " + err.Error()})
}

func (w *wsRenderer) Cleared() {
	sendMessage(w.conn, Message{Type: "cleared"})
}
