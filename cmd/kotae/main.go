// Package main is the kotae CLI entry point.
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

	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/cli"
	"github.com/hyperjump/kotae/internal/config"
	"github.com/hyperjump/kotae/internal/server"
	"github.com/hyperjump/kotae/internal/watcher"
	"github.com/hyperjump/kotae/pkg/utils"
)

var version = "dev"

const (
	defaultConfigPath = "/usr/local/etc/kotae/config.yaml"
	defaultServerURL  = "http://localhost:8080"
	clientTimeout     = 2 * time.Minute
)

// loadConfig loads config from path. When path is the default, it first looks for
// config.yaml in the current directory (for development); if that exists it is used.
// A .env file in the working directory is loaded as well.
// Returns the config and the path that was actually loaded.
func loadConfig(path string) (*config.Config, string, error) {
	if err := config.LoadEnv(".env"); err != nil {
		return nil, "", err
	}
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				path = fallback
			}
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
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
	case "chat":
		runChat()
	case "bookings":
		runBookings()
	case "status":
		runStatus()
	case "version", "--version", "-v":
		fmt.Printf("kotae version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func fatalf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedConfigPath, err := loadConfig(*configPath)
	if err != nil {
		fatalf("Failed to load config: %v", err)
	}
	debugMode := cfg.Debug || *debug
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.Bool("debug", debugMode),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	components, err := initializeComponents(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	var watch server.DirectoryLister
	if len(cfg.Watch.Directories) > 0 {
		w := watcher.NewWatcher(
			cfg.Watch.Directories,
			components.Indexer.AllowedExtensions(),
			cfg.Watch.RecursiveOrDefault(),
			components.Indexer,
			watcher.WithLogger(logger),
		)
		if err := w.Start(ctx); err != nil {
			logger.Fatal("Failed to start watcher", zap.Error(err))
		}
		defer w.Stop()
		go func() {
			n := w.SyncExisting(ctx)
			logger.Info("inbox sync finished", zap.Int("ingested", n))
		}()
		watch = w
	}

	srv := server.NewServer(components.deps(watch, version), cfg, logger)
	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		logger.Error("Server failed", zap.Error(err))
	}

	logger.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Stop(shutdownCtx); err != nil {
		logger.Warn("server shutdown failed", zap.Error(err))
	}
}

// argsReorder moves any flags (and their values) that appear after the positional
// arguments to the front so that flag.Parse() sees them. Go's flag package stops
// at the first non-flag argument, so "kotae chat what is this --session abc" would
// otherwise leave --session unparsed.
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

// buildQuery joins all positional args with spaces so multi-word queries
// work the same with or without shell quoting.
func buildQuery(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

func parseFormat(s string) cli.OutputFormat {
	format, err := cli.ParseOutputFormat(s)
	if err != nil {
		fatalf("%v", err)
	}
	return format
}

func runChat() {
	fs := flag.NewFlagSet("chat", flag.ExitOnError)
	serverURL := fs.String("server", defaultServerURL, "server URL")
	sessionID := fs.String("session", "", "session id to continue (empty = new session)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(argsReorder(os.Args[2:]))

	query := buildQuery(fs.Args())
	if query == "" {
		fmt.Println("Usage: kotae chat [flags] <query>")
		os.Exit(1)
	}
	format := parseFormat(*outputFormat)

	resp, err := cli.NewClient(*serverURL, clientTimeout).Chat(context.Background(), *sessionID, query)
	if err != nil {
		fatalf("Chat failed: %v", err)
	}
	if err := cli.WriteChat(os.Stdout, resp, format); err != nil {
		fatalf("Output failed: %v", err)
	}
}

func runBookings() {
	fs := flag.NewFlagSet("bookings", flag.ExitOnError)
	serverURL := fs.String("server", defaultServerURL, "server URL")
	email := fs.String("email", "", "only list bookings for this email")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])
	format := parseFormat(*outputFormat)

	list, err := cli.NewClient(*serverURL, clientTimeout).Bookings(context.Background(), *email)
	if err != nil {
		fatalf("Listing bookings failed: %v", err)
	}
	if err := cli.WriteBookings(os.Stdout, list, format); err != nil {
		fatalf("Output failed: %v", err)
	}
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path (for direct mode)")
	serverURL := fs.String("server", defaultServerURL, "server URL (empty = read storage directly)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])
	format := parseFormat(*outputFormat)

	var status *server.StatusResponse
	if *serverURL != "" {
		res, err := cli.NewClient(*serverURL, clientTimeout).Status(context.Background())
		if err != nil {
			fatalf("Status failed: %v", err)
		}
		status = res
	} else {
		cfg, _, err := loadConfig(*configPath)
		if err != nil {
			fatalf("Failed to load config: %v", err)
		}
		logger, err := utils.NewCLILogger(cfg.Debug)
		if err != nil {
			fatalf("Failed to create logger: %v", err)
		}
		defer logger.Sync()
		ctx := context.Background()
		components, err := initializeComponents(ctx, cfg, logger)
		if err != nil {
			fatalf("Failed to initialize: %v", err)
		}
		defer components.Close()
		status, err = server.NewServer(components.deps(nil, version), cfg, logger).Status(ctx)
		if err != nil {
			fatalf("Status failed: %v", err)
		}
	}
	if err := cli.WriteStatus(os.Stdout, status, format); err != nil {
		fatalf("Output failed: %v", err)
	}
}

func runIngest() {
	fs := flag.NewFlagSet("ingest", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path (for direct mode)")
	serverURL := fs.String("server", defaultServerURL, "server URL (empty = ingest directly into storage)")
	strategy := fs.String("strategy", "", "chunking strategy: sentence or fixed (default from config)")
	chunkSize := fs.Int("chunk-size", 0, "chunk size in characters (default from config)")
	recursive := fs.Bool("recursive", true, "descend into subdirectories (direct mode)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(argsReorder(os.Args[2:]))

	if fs.NArg() < 1 {
		fmt.Println("Usage: kotae ingest [flags] <file-or-directory>")
		os.Exit(1)
	}
	path := fs.Arg(0)
	format := parseFormat(*outputFormat)
	info, err := os.Stat(path)
	if err != nil {
		fatalf("Failed to stat path: %v", err)
	}

	if *serverURL != "" {
		if info.IsDir() {
			fatalf("Directories are ingested in direct mode: kotae ingest --server \"\" %s", path)
		}
		content, err := os.ReadFile(path)
		if err != nil {
			fatalf("Failed to read file: %v", err)
		}
		resp, err := cli.NewClient(*serverURL, clientTimeout).Upload(context.Background(), filepath.Base(path), content, *strategy, *chunkSize)
		if err != nil {
			fatalf("Ingestion failed: %v", err)
		}
		if err := cli.WriteIngest(os.Stdout, resp, format); err != nil {
			fatalf("Output failed: %v", err)
		}
		return
	}

	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fatalf("Failed to load config: %v", err)
	}
	logger, err := utils.NewCLILogger(cfg.Debug)
	if err != nil {
		fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()
	ctx := context.Background()
	components, err := initializeComponents(ctx, cfg, logger)
	if err != nil {
		fatalf("Failed to initialize: %v", err)
	}
	defer components.Close()

	if info.IsDir() {
		n, err := components.Indexer.IngestDirectory(ctx, path, *recursive)
		if err != nil {
			fatalf("Ingesting directory failed: %v", err)
		}
		fmt.Printf("Ingested %d file(s) from %s\n", n, path)
		return
	}
	content, err := os.ReadFile(path)
	if err != nil {
		fatalf("Failed to read file: %v", err)
	}
	resp, err := components.Indexer.Ingest(ctx, ingestRequest(filepath.Base(path), content, *strategy, *chunkSize))
	if err != nil {
		fatalf("Ingestion failed: %v", err)
	}
	if err := cli.WriteIngest(os.Stdout, resp, format); err != nil {
		fatalf("Output failed: %v", err)
	}
}

func printUsage() {
	fmt.Println(`kotae - Document question answering and interview booking

Usage:
  kotae server [flags]              Start the HTTP server (and the inbox watcher)
  kotae ingest [flags] <path>       Ingest a document (or a directory in direct mode)
  kotae chat [flags] <query>        Ask a question or book an interview
  kotae bookings [flags]            List interview bookings
  kotae status [flags]              Show storage/index status
  kotae version                     Show version
  kotae help                        Show this help

Server Flags:
  --config string    Config file path (default: /usr/local/etc/kotae/config.yaml)
  --debug            Enable debug logging

Ingest Flags:
  --server string    Server URL (default: http://localhost:8080). Use --server "" to ingest directly.
  --config string    Config file path (direct mode)
  --strategy string  Chunking strategy: sentence or fixed
  --chunk-size int   Chunk size in characters (100-2000)
  --recursive        Descend into subdirectories (direct mode, default: true)
  --output string    Output format: text or json

Chat Flags:
  --server string    Server URL (default: http://localhost:8080)
  --session string   Session id to continue a conversation
  --output string    Output format: text or json

Bookings Flags:
  --server string    Server URL (default: http://localhost:8080)
  --email string     Only list bookings for this email
  --output string    Output format: text or json

Status Flags:
  --server string    Server URL (default: http://localhost:8080). Use --server "" for direct storage.
  --config string    Config file path (direct mode)
  --output string    Output format: text or json

Examples:
  kotae server
  kotae ingest handbook.pdf
  kotae ingest --strategy fixed --chunk-size 300 notes.txt
  kotae ingest --server "" ./docs
  kotae chat what is the refund policy
  kotae chat --session 3f2a... "book an interview for Ada, ada@example.com, 2026-11-02 at 14:30"
  kotae bookings --email ada@example.com
  kotae status --output json`)
}
