package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/pflag"
	"github.com/xhad/newton/internal/logger"
	cfgPkg "github.com/xhad/newton/pkg/config"
	"github.com/xhad/newton/pkg/extractor"
	"github.com/xhad/newton/pkg/llm"
	"github.com/xhad/newton/pkg/search"
	"github.com/xhad/newton/pkg/session"
	"github.com/xhad/newton/server"
)

type Flags struct {
	ConfigPath  string
	BaseURL     string
	TextModel   string
	VisionModel string
	MaxTokens   int
	Temperature float64
	Upload      string
	NoSearch    bool
	NoStream    bool
	Serve       bool
	Addr        string
	Verbose     bool
}

func main() {
	flags := parseFlags()

	if !flags.Verbose {
		logger.Discard()
	}

	config, err := loadConfig(flags)
	if errors.Is(err, cfgPkg.ErrMissingCredential) {
		color.Red(cfgPkg.SetupInstruction)
		os.Exit(1)
	}
	if err != nil {
		log.Fatal(err)
	}

	if err := run(config, flags); err != nil {
		log.Fatal(err)
	}
}

func parseFlags() Flags {
	var flags Flags

	pflag.StringVar(&flags.ConfigPath, "config", "", "Path to config file")
	pflag.StringVar(&flags.BaseURL, "base-url", "", "OpenAI-compatible model endpoint")
	pflag.StringVar(&flags.TextModel, "model", "", "Model used for text questions")
	pflag.StringVar(&flags.VisionModel, "vision-model", "", "Model used for image questions")
	pflag.IntVar(&flags.MaxTokens, "max-tokens", 0, "Maximum tokens for LLM response")
	pflag.Float64Var(&flags.Temperature, "temperature", 0, "Set the LLM Temperature")
	pflag.StringVar(&flags.Upload, "upload", "", "Attach a PDF, Word document, JPEG or PNG at start")
	pflag.BoolVar(&flags.NoSearch, "no-search", false, "Disable web search context")
	pflag.BoolVar(&flags.NoStream, "no-stream", false, "Render only complete responses")
	pflag.BoolVar(&flags.Serve, "serve", false, "Serve the WebSocket front-end instead of the terminal chat")
	pflag.StringVar(&flags.Addr, "addr", "", "Listen address for --serve")
	pflag.BoolVarP(&flags.Verbose, "verbose", "v", false, "Log diagnostics to stderr")
	pflag.Parse()

	return flags
}

func loadConfig(flags Flags) (*cfgPkg.Config, error) {
	config, err := cfgPkg.LoadConfig(flags.ConfigPath)
	if err != nil {
		return nil, err
	}

	// Command line flags win over the config file
	if pflag.CommandLine.Changed("base-url") {
		config.LLM.BaseURL = flags.BaseURL
	}
	if pflag.CommandLine.Changed("model") {
		config.LLM.TextModel = flags.TextModel
	}
	if pflag.CommandLine.Changed("vision-model") {
		config.LLM.VisionModel = flags.VisionModel
	}
	if pflag.CommandLine.Changed("max-tokens") {
		config.LLM.MaxTokens = flags.MaxTokens
	}
	if pflag.CommandLine.Changed("temperature") {
		temperature := flags.Temperature
		config.LLM.Temperature = &temperature
	}
	if pflag.CommandLine.Changed("addr") {
		config.Server.Addr = flags.Addr
	}
	if flags.NoSearch {
		disabled := false
		config.Search.Enabled = &disabled
	}
	if flags.NoStream {
		disabled := false
		config.UI.Streaming = &disabled
	}

	return config, config.Check()
}

func newSession(config *cfgPkg.Config) (*session.Session, error) {
	chatEngine, err := llm.NewWithConfig(llm.ChatConfig{
		BaseURL:     config.LLM.BaseURL,
		APIKey:      config.LLM.APIKey,
		TextModel:   config.LLM.TextModel,
		VisionModel: config.LLM.VisionModel,
		MaxTokens:   config.LLM.MaxTokens,
		Temperature: config.Temperature(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize chat engine: %w", err)
	}

	opts := []session.Option{
		session.WithExtractor(extractor.New()),
		session.WithEncoder(extractor.ImageEncoder{}),
	}

	if config.SearchEnabled() {
		searcher, err := search.NewWithConfig(search.SearchConfig{
			Endpoint:   config.Search.Endpoint,
			MaxResults: config.Search.MaxResults,
			RateLimit:  config.Search.RateLimit,
			Timeout:    config.Search.Timeout,
			UserAgent:  config.Search.UserAgent,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize web search: %w", err)
		}
		opts = append(opts, session.WithSearch(searcher))
	}

	return session.New(session.Config{
		Cursor:    config.UI.Cursor,
		Streaming: config.Streaming(),
	}, chatEngine, opts...), nil
}

func run(config *cfgPkg.Config, flags Flags) error {
	sess, err := newSession(config)
	if err != nil {
		return err
	}

	if flags.Upload != "" {
		file, err := extractor.Load(flags.Upload)
		if err != nil {
			return err
		}
		sess.Attach(file)
	}

	if flags.Serve {
		srv := server.NewWSServer(server.Config{
			Addr:        config.Server.Addr,
			TurnTimeout: config.LLM.Timeout,
		}, sess)
		return srv.ListenAndServe(context.Background())
	}

	repl := newREPL(sess, os.Stdin, newTerminalRenderer(os.Stdout, config.UI.Cursor), config.LLM.Timeout)
	return repl.Run(context.Background())
}
