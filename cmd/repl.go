package main

import (
	"bufio"
	"context"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/xhad/newton/pkg/extractor"
	"github.com/xhad/newton/pkg/session"
)

const placeholder = "Ask Newton about your file or the web..."

type repl struct {
	session  *session.Session
	in       io.Reader
	renderer *terminalRenderer
	timeout  time.Duration
}

func newREPL(sess *session.Session, in io.Reader, renderer *terminalRenderer, timeout time.Duration) *repl {
	return &repl{
		session:  sess,
		in:       in,
		renderer: renderer,
		timeout:  timeout,
	}
}

func (r *repl) Run(ctx context.Context) error {
	out := r.renderer.out
	r.renderer.Banner()
	r.session.Conversation().Render(r.renderer)
	if file := r.session.Upload(); file != nil {
		color.New(color.FgGreen).Fprintf(out, "📁 Attached %s (%s)\n", file.Name, file.Kind)
	}
	color.New(color.FgHiBlack).Fprintln(out, placeholder)

	scanner := bufio.NewScanner(r.in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for {
		r.renderer.userPrompt(out, "\nYou: ")
		if !scanner.Scan() {
			break
		}

		line := scanner.Text()
		input := strings.TrimSpace(line)

		switch {
		case input == "":
			continue
		case strings.EqualFold(input, "exit"), strings.EqualFold(input, "quit"):
			return nil
		case input == "/clear":
			if err := r.session.Clear(r.renderer); err != nil {
				r.renderer.Error(err)
			}
		case input == "/detach":
			r.session.Detach()
			color.New(color.FgYellow).Fprintln(out, "File detached")
		case input == "/upload", strings.HasPrefix(input, "/upload "):
			r.attach(strings.TrimSpace(strings.TrimPrefix(input, "/upload")))
		default:
			r.turn(ctx, line)
		}
	}

	return scanner.Err()
}

func (r *repl) attach(path string) {
	out := r.renderer.out
	if path == "" {
		r.renderer.errorPrompt(out, "Usage: /upload <path>\n")
		return
	}

	file, err := extractor.Load(path)
	if err != nil {
		r.renderer.errorPrompt(out, "%v\n", err)
		return
	}
	r.session.Attach(file)
	color.New(color.FgGreen).Fprintf(out, "✓ Attached %s (%s)\n", file.Name, file.Kind)
}

// turn answers one question. Ctrl-C cancels the turn instead of the program.
func (r *repl) turn(ctx context.Context, question string) {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	r.renderer.beginTurn()
	defer r.renderer.endTurn()

	if _, err := r.session.Submit(ctx, question, r.renderer); err != nil {
		r.renderer.Error(err)
	}
}
