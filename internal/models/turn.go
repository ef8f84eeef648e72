package models

// Turn is the input of one model call. It is either a TextTurn or an
// ImageTurn, decided once when the turn starts.
type Turn interface {
	Question() string
	isTurn()
}

type TextTurn struct {
	Prompt       string
	DocumentText string
	WebText      string
}

func (t TextTurn) Question() string { return t.Prompt }
func (TextTurn) isTurn()            {}

// ImageTurn carries the question together with an already encoded image.
// Document and web context never travel with an image.
type ImageTurn struct {
	Prompt    string
	Encoded   string
	MediaType string
}

func (t ImageTurn) Question() string { return t.Prompt }
func (ImageTurn) isTurn()            {}
