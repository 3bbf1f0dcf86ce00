package main

import (
	"bufio"
	"context"
	"encoding/base64"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/codefionn/chatschnell/internal/config"
	"github.com/codefionn/chatschnell/internal/directive"
	"github.com/codefionn/chatschnell/internal/llm"
	"github.com/codefionn/chatschnell/internal/logger"
	"github.com/codefionn/chatschnell/internal/orchestrator"
	"github.com/codefionn/chatschnell/internal/progress"
	"github.com/codefionn/chatschnell/internal/research"
	"github.com/codefionn/chatschnell/internal/session"
)

type cliOptions struct {
	configPath   string
	model        string
	intensity    string
	logLevel     string
	imageOut     string
	sessionID    string
	listSessions bool
	prompt       string
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() (err error) {
	opts, parseErr := parseCLIArgs(os.Args[1:])
	if parseErr != nil {
		if errors.Is(parseErr, flag.ErrHelp) {
			return nil
		}
		return parseErr
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if opts.model != "" {
		cfg.Model = opts.model
	}
	if opts.intensity != "" {
		cfg.Intensity = opts.intensity
	}
	if opts.logLevel != "" {
		cfg.LogLevel = opts.logLevel
	}

	var loggerInitialized bool
	defer func() {
		if !loggerInitialized {
			return
		}
		if err != nil {
			logger.Error("Fatal error: %v", err)
		}
		if closeErr := logger.Global().Close(); closeErr != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to close logger: %v\n", closeErr)
		}
	}()

	if initErr := logger.Init(logger.ParseLevel(cfg.LogLevel), cfg.LogPath); initErr != nil {
		return fmt.Errorf("failed to initialize logger: %w", initErr)
	}
	loggerInitialized = true
	logger.Info("chatschnell starting: model=%s intensity=%s", cfg.Model, cfg.Intensity)

	if opts.listSessions {
		return listSessions()
	}

	var sess *session.Session
	var store *session.Storage
	if opts.sessionID != "" {
		store, err = session.NewStorage()
		if err != nil {
			return err
		}
		if opts.sessionID == "new" {
			sess = session.NewSession("")
		} else {
			sess, err = store.LoadOrCreate(opts.sessionID)
			if err != nil {
				return err
			}
		}
	}

	prompt := opts.prompt
	if prompt == "" {
		prompt, err = readPromptFromStdin()
		if err != nil {
			return err
		}
	}
	if strings.TrimSpace(prompt) == "" {
		return fmt.Errorf("no prompt given (pass it as arguments or on stdin)")
	}

	if llm.IsNativeModel(cfg.Model) && cfg.GoogleAPIKey == "" {
		return fmt.Errorf("no Google API key configured (set GEMINI_API_KEY or google_api_key in the config file)")
	}
	if !llm.IsNativeModel(cfg.Model) && cfg.RelayAPIKey == "" {
		return fmt.Errorf("no relay API key configured (set OPENROUTER_API_KEY or relay_api_key in the config file)")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	orch := orchestrator.New(orchestrator.Options{
		Clients:    clientFactory(cfg),
		Researcher: buildResearcher(cfg),
	})

	req := &orchestrator.Request{
		Prompt:    prompt,
		Model:     cfg.Model,
		Intensity: orchestrator.Intensity(cfg.Intensity),
		Decision:  localRoutingDecision(prompt),
		OnChunk: func(u progress.Update) error {
			fmt.Print(u.Message)
			return nil
		},
	}
	if sess != nil {
		req.History = sess.History()
	}

	turn := orch.Respond(ctx, req)
	fmt.Println()

	if sess != nil {
		sess.AddTurn(&orchestrator.Turn{Sender: orchestrator.SenderUser, Text: prompt})
		sess.AddTurn(turn)
		if saveErr := store.Save(sess); saveErr != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to save session: %v\n", saveErr)
		} else if opts.sessionID != sess.ID {
			fmt.Fprintf(os.Stderr, "Session: %s\n", sess.ID)
		}
	}

	if turn.Stopped {
		fmt.Fprintln(os.Stderr, "(stopped)")
	}
	printCitations(turn)

	if turn.ImageData != "" {
		if writeErr := writeImage(opts.imageOut, turn.ImageData); writeErr != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v\n", writeErr)
		} else {
			fmt.Fprintf(os.Stderr, "Image written to %s\n", opts.imageOut)
		}
	}

	return nil
}

func parseCLIArgs(args []string) (*cliOptions, error) {
	opts := &cliOptions{}

	fs := flag.NewFlagSet("chatschnell", flag.ContinueOnError)
	fs.StringVar(&opts.configPath, "config", "", "path to the config file")
	fs.StringVar(&opts.model, "model", "", "model identifier (vendor/model selects the relay)")
	fs.StringVar(&opts.intensity, "intensity", "", "thinking intensity: fast, think, deep or instant")
	fs.StringVar(&opts.logLevel, "log-level", "", "log level: debug, info, warn, error or none")
	fs.StringVar(&opts.imageOut, "image-out", "chatschnell-image.png", "where to write a generated image")
	fs.StringVar(&opts.sessionID, "session", "", "session ID to continue, or \"new\" for a fresh one")
	fs.BoolVar(&opts.listSessions, "sessions", false, "list stored sessions and exit")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: chatschnell [flags] [prompt...]\n\n")
		fmt.Fprintf(fs.Output(), "Reads the prompt from stdin when no arguments are given.\n\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	opts.prompt = strings.TrimSpace(strings.Join(fs.Args(), " "))
	return opts, nil
}

func readPromptFromStdin() (string, error) {
	var sb strings.Builder
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		sb.WriteString(scanner.Text())
		sb.WriteString("\n")
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("failed to read prompt from stdin: %w", err)
	}
	return strings.TrimSpace(sb.String()), nil
}

// clientFactory builds provider clients per model identifier: vendor-prefixed
// identifiers go to the relay, everything else to the native provider.
func clientFactory(cfg *config.Config) orchestrator.ClientFactory {
	return func(model string) (llm.Client, error) {
		if llm.IsNativeModel(model) {
			return llm.NewGoogleAIClient(cfg.GoogleAPIKey, model)
		}

		client, err := llm.NewRelayClient(cfg.RelayAPIKey, model)
		if err != nil {
			return nil, err
		}
		if cfg.RelayBaseURL != "" {
			if relay, ok := client.(*llm.RelayClient); ok {
				relay.SetBaseURL(cfg.RelayBaseURL)
			}
		}
		return client, nil
	}
}

func buildResearcher(cfg *config.Config) research.Researcher {
	if cfg.GoogleAPIKey == "" {
		return nil
	}
	researcher, err := research.NewGoogleResearcher(cfg.GoogleAPIKey, "")
	if err != nil {
		logger.Warn("research unavailable: %v", err)
		return nil
	}
	return researcher
}

// localRoutingDecision lets a user type a directive tag directly. The loose
// scan tolerates a missing close tag the way initial classification does.
func localRoutingDecision(prompt string) *orchestrator.RoutingDecision {
	d, ok := directive.ScanInitial(prompt)
	if !ok {
		return nil
	}

	decision := &orchestrator.RoutingDecision{Action: orchestrator.ActionForDirective(d.Kind)}
	if d.Payload != "" {
		decision.Parameters = map[string]any{"query": d.Payload}
	}
	return decision
}

func listSessions() error {
	store, err := session.NewStorage()
	if err != nil {
		return err
	}
	sessions, err := store.List()
	if err != nil {
		return err
	}
	if len(sessions) == 0 {
		fmt.Println("No stored sessions.")
		return nil
	}
	for _, meta := range sessions {
		title := meta.Title
		if title == "" {
			title = "(untitled)"
		}
		fmt.Printf("%-24s %3d turns  %s  %s\n", meta.ID, meta.TurnCount, meta.UpdatedAt.Format("2006-01-02 15:04"), title)
	}
	return nil
}

func printCitations(turn *orchestrator.Turn) {
	if len(turn.Citations) == 0 {
		return
	}
	fmt.Println("\nSources:")
	for i, c := range turn.Citations {
		fmt.Printf("  [%d] %s - %s\n", i+1, c.Title, c.URL)
	}
}

func writeImage(path, data string) error {
	decoded, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return fmt.Errorf("failed to decode image data: %w", err)
	}
	if err := os.WriteFile(path, decoded, 0644); err != nil {
		return fmt.Errorf("failed to write image: %w", err)
	}
	return nil
}
