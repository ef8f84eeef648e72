package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"
	"github.com/xhad/newton/internal/models"
)

const (
	title   = "🤖 I am Newton"
	caption = "Now supporting Images, PDFs, and Web Search"
)

func getSpinner(w io.Writer, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(-1,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription(color.CyanString(description)),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionSetWidth(20),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionSetRenderBlankState(true),
	)
}

// terminalRenderer draws the conversation on a terminal.
type terminalRenderer struct {
	out    io.Writer
	cursor string

	// inTurn is set while a typed question is being answered; the user
	// already sees the question on screen then.
	inTurn      bool
	headerShown bool
	printed     string
	cursorShown bool

	userPrompt      func(w io.Writer, format string, a ...interface{})
	assistantPrompt func(w io.Writer, format string, a ...interface{})
	errorPrompt     func(w io.Writer, format string, a ...interface{})
}

func newTerminalRenderer(out io.Writer, cursor string) *terminalRenderer {
	return &terminalRenderer{
		out:             out,
		cursor:          cursor,
		userPrompt:      color.New(color.FgGreen).FprintfFunc(),
		assistantPrompt: color.New(color.FgCyan).FprintfFunc(),
		errorPrompt:     color.New(color.FgRed).FprintfFunc(),
	}
}

func (t *terminalRenderer) Banner() {
	t.assistantPrompt(t.out, "%s\n", title)
	fmt.Fprintf(t.out, "%s\n", caption)
	fmt.Fprintf(t.out, "Commands: /upload <path>, /detach, /clear, exit\n")
}

func (t *terminalRenderer) beginTurn() {
	t.inTurn = true
	t.headerShown = false
	t.printed = ""
	t.cursorShown = false
}

func (t *terminalRenderer) endTurn() {
	t.eraseCursor()
	t.inTurn = false
}

func (t *terminalRenderer) Message(msg models.Message) {
	switch msg.Role {
	case models.RoleUser:
		if t.inTurn {
			return
		}
		t.userPrompt(t.out, "\nYou: ")
		fmt.Fprintln(t.out, msg.Content)
	case models.RoleAssistant:
		t.assistantPrompt(t.out, "\nNewton: ")
		fmt.Fprintln(t.out, msg.Content)
	}
}

func (t *terminalRenderer) Status(label string) func() {
	spinner := getSpinner(t.out, label)
	stop := make(chan struct{})
	done := make(chan struct{})

	go func() {
		defer close(done)
		ticker := time.NewTicker(100 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				spinner.Add(1)
			}
		}
	}()

	return func() {
		close(stop)
		<-done
		spinner.Finish()
	}
}

// Stream prints only the part of text that is not on screen yet.
func (t *terminalRenderer) Stream(text string, final bool) {
	body := text
	if !final {
		body = strings.TrimSuffix(text, t.cursor)
	}

	t.eraseCursor()
	t.header()
	if strings.HasPrefix(body, t.printed) {
		fmt.Fprint(t.out, body[len(t.printed):])
	} else {
		fmt.Fprint(t.out, "\n"+body)
	}
	t.printed = body

	if final {
		fmt.Fprintln(t.out)
		return
	}
	if t.cursor != "" {
		fmt.Fprint(t.out, t.cursor)
		t.cursorShown = true
	}
}

// header starts the answer block once the spinners are gone.
func (t *terminalRenderer) header() {
	if t.inTurn && !t.headerShown {
		t.assistantPrompt(t.out, "\nNewton: ")
		t.headerShown = true
	}
}

func (t *terminalRenderer) eraseCursor() {
	if t.cursorShown {
		fmt.Fprint(t.out, "\b \b")
		t.cursorShown = false
	}
}

func (t *terminalRenderer) Error(err error) {
	t.eraseCursor()
	t.header()
	t.errorPrompt(t.out, "\nNewton error: %v\n", err)
}

func (t *terminalRenderer) Cleared() {
	fmt.Fprint(t.out, "\033[H\033[2J")
	t.Banner()
}
