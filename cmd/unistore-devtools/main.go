// Command unistore-devtools serves a persistent store to debugging tools.
//
// The store is backed by SQLite and persists the keys named in a YAML policy
// file. By default it is served over HTTP, with live state changes streamed
// as AG-UI events over Server-Sent Events (SSE). With -mcp the same store is
// exposed as MCP tools over stdio instead.
//
// Configuration is via environment variables (a .env file is loaded if
// present):
//
//	UNISTORE_PORT              - Server port (default: 8000)
//	UNISTORE_LOG_LEVEL         - debug, info, warn, or error (default: info)
//	UNISTORE_DB                - SQLite database path (default: unistore.db)
//	UNISTORE_POLICIES          - YAML policy file; persistence is off without it
//	UNISTORE_PERSIST_INTERVAL  - Persistence throttle window (default: 50ms)
//	UNISTORE_RETRY_ATTEMPTS    - Attempts per database call while busy (default: 3)
//	UNISTORE_HISTORY           - Number of recorded actions kept (default: 100)
//	UNISTORE_INITIAL_STATE     - JSON object used as the initial state
//
// A policy file looks like:
//
//	session: true
//	cache: false
//	prefs:
//	  exclude: [draft, ui.scroll]
//
// Usage:
//
//	UNISTORE_POLICIES=policies.yaml go run ./cmd/unistore-devtools
//	go run ./cmd/unistore-devtools -mcp
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spetersoncode/unistore/devtools"
	"github.com/spetersoncode/unistore/store"
	"github.com/spetersoncode/unistore/store/sqlite"
)

func main() {
	mcpMode := flag.Bool("mcp", false, "serve MCP tools over stdio instead of HTTP")
	flag.Parse()

	cfg, err := LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		os.Exit(1)
	}

	// stdout carries the MCP protocol, so logs always go to stderr.
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: parseLevel(cfg.LogLevel)}))
	slog.SetDefault(logger)

	if err := run(cfg, *mcpMode); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run(cfg *Config, mcpMode bool) error {
	s, closeStore, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	bridge := devtools.New(s,
		devtools.WithHistorySize(cfg.HistorySize),
		devtools.WithLogger(slog.Default()),
	)
	defer bridge.Close()

	if mcpMode {
		slog.Info("serving MCP over stdio")
		return devtools.ServeStdio(bridge, devtools.WithName("unistore-devtools"))
	}
	return serveHTTP(cfg, bridge)
}

// openStore creates the store, attaching SQLite persistence when a policy
// file is configured.
func openStore(cfg *Config) (*store.Store, func(), error) {
	initial := store.State{}
	if cfg.InitialState != "" {
		if err := json.Unmarshal([]byte(cfg.InitialState), &initial); err != nil {
			return nil, nil, fmt.Errorf("UNISTORE_INITIAL_STATE: %w", err)
		}
	}

	policies, err := cfg.LoadPolicies()
	if err != nil {
		return nil, nil, err
	}

	opts := []store.Option{
		store.WithLogger(slog.Default()),
		store.WithPersistInterval(cfg.PersistInterval),
	}
	if policies == nil {
		slog.Info("persistence disabled, no policy file")
		s := store.New(initial, opts...)
		return s, s.Destroy, nil
	}

	adapter, err := sqlite.Open(cfg.DBPath)
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}
	opts = append(opts,
		store.WithAdapter(adapter),
		store.WithPolicies(policies),
		store.WithRetry(cfg.Retry()),
	)
	s := store.New(initial, opts...)
	slog.Info("store hydrated", "db", cfg.DBPath, "policies", len(policies), "keys", len(s.Get()))

	return s, func() {
		s.Flush()
		s.Destroy()
		if err := adapter.Close(); err != nil {
			slog.Error("close database", "error", err)
		}
	}, nil
}

func serveHTTP(cfg *Config, bridge *devtools.Bridge) error {
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      corsMiddleware(NewHandler(bridge)),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 0, // SSE needs no write timeout
		IdleTimeout:  120 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down")
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	slog.Info("devtools server starting", "port", cfg.Port)
	slog.Info("endpoints",
		"state", "GET/POST http://localhost:"+cfg.Port+"/state",
		"events", "GET http://localhost:"+cfg.Port+"/events",
		"jump", "POST http://localhost:"+cfg.Port+"/jump",
	)

	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}

	slog.Info("server stopped")
	return nil
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
