package main

import (
	"chat-panel/infrastructure/rest"
	"chat-panel/internal"
	"chat-panel/runtime"
	"chat-panel/storage"
	"chat-panel/ui"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/Netflix/go-env"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/database"
)

const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Chat terminated with error: %v\n", err)
	}
	os.Exit(code)
}

// run owns every resource so deferred cleanup happens before the exit code is returned.
func run() (int, error) {
	// 1. Configuration & Logger
	_ = godotenv.Load()
	var config internal.Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(config.LogLevel)); err != nil {
		return exitConfig, fmt.Errorf("LOG_LEVEL: %w", err)
	}
	// The terminal belongs to bubbletea: records go to the status line only.
	handler := ui.NewLogHandler(level)
	log := slog.New(handler)

	// 2. Local state
	db, err := badger.Open(badger.DefaultOptions(config.BadgerFilepath).WithLogger(storage.NewBadgerLogger(log)))
	if err != nil {
		return exitRuntime, fmt.Errorf("database opening failed: %w", err)
	}
	defer func() {
		_ = db.Close()
	}()

	if level <= slog.LevelDebug {
		url := fmt.Sprintf("http://localhost:%d/inspect", config.DebugPort)
		log.Info("Debug Badger inspector available", "url", url)
		database.StartDebugServer(db, config.DebugPort, "/inspect", storage.InspectRow)
	}

	// 3. Context & Signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 4. Components
	app, err := runtime.NewApp(log, config, db, rest.NewHTTPClient(config.HTTPTimeout), nil)
	if err != nil {
		return exitConfig, err
	}
	app.Start(ctx)
	defer app.Stop()

	// 5. Terminal
	program := tea.NewProgram(
		ui.NewModel(ctx, app, app.Document, app.Notices, app.Ready()),
		tea.WithAltScreen(),
		tea.WithContext(ctx),
	)
	handler.SetProgram(program)
	_, err = program.Run()
	handler.SetProgram(nil)
	if err != nil && ctx.Err() == nil {
		return exitRuntime, fmt.Errorf("terminal: %w", err)
	}
	return exitOK, nil
}
