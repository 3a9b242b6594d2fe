// Package main is the ragqa CLI entry point.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/hyperjump/ragqa/internal/answer"
	"github.com/hyperjump/ragqa/internal/cli"
	"github.com/hyperjump/ragqa/internal/config"
	"github.com/hyperjump/ragqa/internal/embedding"
	"github.com/hyperjump/ragqa/internal/extract"
	"github.com/hyperjump/ragqa/internal/indexer"
	"github.com/hyperjump/ragqa/internal/models"
	"github.com/hyperjump/ragqa/internal/qa"
	"github.com/hyperjump/ragqa/internal/retrieval"
	"github.com/hyperjump/ragqa/internal/server"
	"github.com/hyperjump/ragqa/internal/storage"
	"github.com/hyperjump/ragqa/internal/tui"
	"github.com/hyperjump/ragqa/internal/vector"
	"github.com/hyperjump/ragqa/internal/watcher"
	"github.com/hyperjump/ragqa/pkg/utils"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/ragqa/config.yaml"

// loadConfig loads config from path. When path is the default, config.yaml in the
// current directory takes precedence; when neither exists, built-in defaults are used
// with data kept under ./data. Returns the config and the path that was loaded
// ("" for built-in defaults).
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
		if _, statErr := os.Stat(path); errors.Is(statErr, os.ErrNotExist) {
			cfg := &config.Config{}
			config.ApplyDefaults(cfg)
			if err := cfg.Validate(); err != nil {
				return nil, "", err
			}
			return cfg, "", nil
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	// OPENAI_API_KEY and friends may come from a .env file.
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "server":
		runServer()
	case "ingest":
		runIngest()
	case "ask":
		runAsk()
	case "chat":
		runChat()
	case "status":
		runStatus()
	case "history":
		runHistory()
	case "version", "--version", "-v":
		fmt.Printf("ragqa version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging (ingestion stages, watcher events, etc.)")
	rebuild := fs.Bool("rebuild", true, "re-ingest stored documents on startup")
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedConfigPath, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	debugMode := cfg.Debug || *debug
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.Bool("debug", debugMode),
	)

	components, err := initializeComponents(cfg, logger, debugMode)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if *rebuild {
		if _, err := components.Indexer.Rebuild(ctx); err != nil {
			logger.Warn("rebuild failed", zap.Error(err))
		}
	}

	if len(cfg.Watch.Directories) > 0 {
		idx := components.Indexer
		watchOpts := []watcher.WatcherOption{}
		if debugMode {
			watchOpts = append(watchOpts, watcher.WithLogger(logger))
		}
		watchSvc := watcher.NewWatcher(
			cfg.Watch.Directories,
			cfg.Ingest.Extensions,
			cfg.Watch.Recursive,
			func(ctx context.Context, path string) {
				if _, err := idx.IngestFile(ctx, path, models.SourceWatch); err != nil {
					logger.Warn("watch ingest failed", zap.String("path", path), zap.Error(err))
				}
			},
			watchOpts...,
		)
		if err := watchSvc.Start(ctx); err != nil {
			logger.Fatal("Failed to start watcher", zap.Error(err))
		}
		defer watchSvc.Stop()
		go watchSvc.SyncExistingFiles()
	}

	srv := server.NewServer(
		components.Engine,
		components.Indexer,
		components.QA,
		components.Storage,
		cfg,
		server.WithLogger(logger),
		server.WithEmbeddingReady(components.Embedder.Loaded),
	)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = srv.Stop(shutdownCtx)
}

// argsReorder moves any flags (and their values) that appear after the positional
// arguments to the front so flag.Parse() sees them. Go's flag package stops at the
// first non-flag argument, so "ragqa ask what is it --output json" would otherwise
// treat --output as part of the question.
func argsReorder(args []string) []string {
	for i, a := range args {
		if len(a) > 0 && a[0] == '-' {
			if i == 0 {
				return args
			}
			reordered := make([]string, 0, len(args))
			reordered = append(reordered, args[i:]...)
			reordered = append(reordered, args[:i]...)
			return reordered
		}
	}
	return args
}

// buildQuestion joins all positional args with spaces so multi-word questions work
// the same with or without shell quoting.
func buildQuestion(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

func parseOutput(s string) cli.OutputFormat {
	format, err := cli.ParseOutputFormat(s)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	return format
}

func runAsk() {
	fs := flag.NewFlagSet("ask", flag.ExitOnError)
	serverURL := fs.String("server", cli.DefaultServerURL, "server URL")
	outputFormat := fs.String("output", "text", "output format: text or json")
	timeout := fs.Duration("timeout", 2*time.Minute, "request timeout")
	_ = fs.Parse(argsReorder(os.Args[2:]))
	format := parseOutput(*outputFormat)

	question := buildQuestion(fs.Args())
	if question == "" {
		fmt.Println("Usage: ragqa ask [flags] <question>")
		os.Exit(1)
	}
	client := cli.NewClient(*serverURL, *timeout)
	resp, err := client.Ask(context.Background(), question)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Ask failed: %v\n", err)
		os.Exit(1)
	}
	if err := cli.WriteAnswer(os.Stdout, question, resp, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	serverURL := fs.String("server", cli.DefaultServerURL, "server URL")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])
	format := parseOutput(*outputFormat)

	status, err := cli.NewClient(*serverURL, 10*time.Second).Status(context.Background())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Status failed: %v\n", err)
		os.Exit(1)
	}
	if err := cli.WriteStatus(os.Stdout, status, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func runHistory() {
	fs := flag.NewFlagSet("history", flag.ExitOnError)
	serverURL := fs.String("server", cli.DefaultServerURL, "server URL")
	limit := fs.Int("limit", 5, "number of entries")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])
	format := parseOutput(*outputFormat)

	history, err := cli.NewClient(*serverURL, 10*time.Second).History(context.Background(), *limit)
	if err != nil {
		fmt.Fprintf(os.Stderr, "History failed: %v\n", err)
		os.Exit(1)
	}
	if err := cli.WriteHistory(os.Stdout, history, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

// ingestPaths ingests files and directories in-process and returns one response per
// document attempted.
func ingestPaths(ctx context.Context, idx *indexer.Indexer, paths []string) ([]*models.IngestResponse, error) {
	var out []*models.IngestResponse
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return out, fmt.Errorf("stat %s: %w", path, err)
		}
		var files []string
		if info.IsDir() {
			err := filepath.WalkDir(path, func(p string, d os.DirEntry, walkErr error) error {
				if walkErr != nil {
					return walkErr
				}
				if !d.IsDir() && idx.Allowed(p) {
					files = append(files, p)
				}
				return nil
			})
			if err != nil {
				return out, err
			}
		} else {
			files = []string{path}
		}
		for _, f := range files {
			outcome, err := idx.IngestFile(ctx, f, models.SourceCLI)
			out = append(out, ingestResponse(f, outcome, err))
		}
	}
	return out, nil
}

func ingestResponse(path string, outcome *indexer.Outcome, err error) *models.IngestResponse {
	resp := &models.IngestResponse{Stage: retrieval.StageRejected.String()}
	if outcome != nil {
		resp.Document = outcome.Document
		if outcome.Result != nil {
			resp.Stage = outcome.Result.Stage.String()
			resp.Chunks = outcome.Result.Chunks
			for _, issue := range outcome.Result.Issues {
				resp.Issues = append(resp.Issues, issue.String())
			}
		} else if outcome.Skipped && outcome.Document != nil {
			resp.Stage = retrieval.StageIndexed.String()
			resp.Chunks = outcome.Document.ChunkCount
		}
	}
	if resp.Document == nil {
		resp.Document = &models.Document{Title: filepath.Base(path), Path: path}
	}
	if err != nil {
		resp.Message = err.Error()
	}
	return resp
}

func runIngest() {
	fs := flag.NewFlagSet("ingest", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(argsReorder(os.Args[2:]))
	format := parseOutput(*outputFormat)

	if fs.NArg() < 1 {
		fmt.Println("Usage: ragqa ingest [flags] <file-or-directory>...")
		os.Exit(1)
	}
	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	debugMode := cfg.Debug || *debug
	logger, err := utils.NewCLILogger(debugMode)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	components, err := initializeComponents(cfg, logger, debugMode)
	if err != nil {
		logger.Fatal("Failed to initialize", zap.Error(err))
	}
	defer components.Close()

	results, err := ingestPaths(context.Background(), components.Indexer, fs.Args())
	if werr := cli.WriteIngestResults(os.Stdout, results, format); werr != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", werr)
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Ingest failed: %v\n", err)
		os.Exit(1)
	}
}

// historyAsker records every answered question in chat history.
type historyAsker struct {
	asker  tui.Asker
	store  storage.Storage
	logger *zap.Logger
}

func (h historyAsker) Ask(ctx context.Context, question string) string {
	a := h.asker.Ask(ctx, question)
	if strings.TrimSpace(question) == "" {
		return a
	}
	entry := &models.ChatEntry{Question: strings.TrimSpace(question), Answer: a, CreatedAt: time.Now().UTC()}
	if err := h.store.AddChatEntry(ctx, entry); err != nil {
		h.logger.Warn("failed to save chat entry", zap.Error(err))
	}
	return a
}

func runChat() {
	fs := flag.NewFlagSet("chat", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(argsReorder(os.Args[2:]))

	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	debugMode := cfg.Debug || *debug
	logger, err := utils.NewCLILogger(debugMode)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	components, err := initializeComponents(cfg, logger, debugMode)
	if err != nil {
		logger.Fatal("Failed to initialize", zap.Error(err))
	}
	defer components.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if fs.NArg() > 0 {
		fmt.Println("Ingesting documents...")
		results, err := ingestPaths(ctx, components.Indexer, fs.Args())
		if err != nil {
			fmt.Fprintf(os.Stderr, "Ingest failed: %v\n", err)
			os.Exit(1)
		}
		_ = cli.WriteIngestResults(os.Stdout, results, cli.OutputText)
	} else if _, err := components.Indexer.Rebuild(ctx); err != nil {
		logger.Warn("rebuild failed", zap.Error(err))
	}
	stats := components.Engine.Stats()
	summary := fmt.Sprintf("%d chunk(s) indexed, top %d retrieved per question", stats.Chunks, components.Engine.TopK())

	asker := historyAsker{asker: components.QA, store: components.Storage, logger: logger}
	p := tea.NewProgram(tui.New(ctx, asker, summary), tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		fmt.Fprintf(os.Stderr, "Chat failed: %v\n", err)
		os.Exit(1)
	}
}

// Components holds initialized services.
type Components struct {
	Storage  storage.Storage
	Files    *storage.FileStore
	Embedder *embedding.Provider
	Engine   *retrieval.Engine
	Indexer  *indexer.Indexer
	QA       *qa.Service
}

func (c *Components) Close() {
	if c.Engine != nil {
		_ = c.Engine.Close()
	}
	if c.Embedder != nil {
		_ = c.Embedder.Close()
	}
	if c.Storage != nil {
		_ = c.Storage.Close()
	}
}

func initializeComponents(cfg *config.Config, logger *zap.Logger, debug bool) (*Components, error) {
	store, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	files, err := storage.NewFileStore(cfg.Storage.UploadDir)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	provider, err := embedding.NewProviderFromConfig(cfg.Embedding, embedding.WithLogger(logger))
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to initialize embedding: %w", err)
	}
	chunker, err := indexer.NewChunker(cfg.Ingest.ChunkSize, cfg.Ingest.ChunkOverlap)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	indexType, fellBack, err := vector.Resolve(cfg.Retrieval.IndexType)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	if fellBack {
		logger.Warn("FAISS not available in this build, falling back to memory index")
	}
	logger.Info("retrieval engine initialized",
		zap.String("index_type", string(indexType)),
		zap.String("embedding_backend", cfg.Embedding.Backend),
		zap.Int("top_k", cfg.Retrieval.TopK))

	engine := retrieval.NewEngine(extract.NewExtractor(), chunker, provider,
		retrieval.WithIndexType(string(indexType)),
		retrieval.WithTopK(cfg.Retrieval.TopK),
		retrieval.WithLogger(logger),
	)

	idxOpts := []indexer.IndexerOption{}
	if debug {
		idxOpts = append(idxOpts, indexer.WithLogger(logger))
	}
	idx := indexer.NewIndexer(store, files, engine, cfg.Ingest.Extensions, idxOpts...)

	generator := answer.NewGeneratorFromConfig(cfg.Generation, logger)
	svc := qa.NewService(engine, generator, qa.WithLogger(logger))

	return &Components{
		Storage:  store,
		Files:    files,
		Embedder: provider,
		Engine:   engine,
		Indexer:  idx,
		QA:       svc,
	}, nil
}

func printUsage() {
	fmt.Println(`ragqa - Ask questions about your documents

Usage:
  ragqa server [flags]                  Start the HTTP server
  ragqa ingest [flags] <path>...        Ingest files or directories (pdf, docx, txt)
  ragqa ask [flags] <question>          Ask the running server a question
  ragqa chat [flags] [path]...          Interactive chat over the given documents
  ragqa status [flags]                  Show server, storage and index status
  ragqa history [flags]                 Show recent questions and answers
  ragqa version                         Show version
  ragqa help                            Show this help

Server Flags:
  --config string    Config file path (default: /usr/local/etc/ragqa/config.yaml, or ./config.yaml)
  --debug            Enable debug logging (ingestion stages, watcher events, etc.)
  --rebuild          Re-ingest stored documents on startup (default: true)

Ingest / Chat Flags:
  --config string    Config file path
  --debug            Enable debug logging
  --output string    Output format for ingest: text or json (default: text)

Ask / Status / History Flags:
  --server string    Server URL (default: http://localhost:8080)
  --output string    Output format: text or json (default: text)
  --timeout duration Request timeout for ask (default: 2m)
  --limit int        Number of history entries (default: 5)

Environment:
  OPENAI_API_KEY     API key for the OpenAI embedding and chat backends (also read from .env)

Examples:
  ragqa server
  ragqa ingest ./manuals handbook.pdf
  ragqa ask "How long is the warranty?"
  ragqa ask --output json what does the contract say about termination
  ragqa chat ./manuals
  ragqa status --output json`)
}
