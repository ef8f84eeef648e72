package logger

import (
	"io"
	"log"
	"os"
)

var (
	Info  = log.New(os.Stdout, "[INFO]\t", log.Ltime|log.Lshortfile)
	Warn  = log.New(os.Stderr, "[WARN]\t", log.Ltime|log.Lshortfile)
	Error = log.New(os.Stderr, "[ERROR]\t", log.Ltime|log.Lshortfile)
)

// SetOutput sends every level to w.
func SetOutput(w io.Writer) {
	Info.SetOutput(w)
	Warn.SetOutput(w)
	Error.SetOutput(w)
}

// Discard silences all levels.
func Discard() {
	SetOutput(io.Discard)
}
