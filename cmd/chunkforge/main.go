// Package main is the entry point for the chunkforge terminal preview.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"

	"github.com/joho/godotenv"

	"github.com/samdwyer/chunkforge/internal/config"
	"github.com/samdwyer/chunkforge/internal/game"
	"github.com/samdwyer/chunkforge/internal/level"
	"github.com/samdwyer/chunkforge/internal/store"
	"github.com/samdwyer/chunkforge/internal/stream"
	"github.com/samdwyer/chunkforge/internal/telemetry"
	"github.com/samdwyer/chunkforge/internal/ui"
)

func main() {
	os.Exit(realMain())
}

func realMain() int {
	configPath := flag.String("config", "", "YAML config file")
	logPath := flag.String("log", "chunkforge.log", "log file; the terminal is taken by the preview")
	flag.Parse()

	// Load .env file for local development
	if err := godotenv.Load(); err != nil {
		log.Printf("Note: .env file not loaded: %v", err)
	}
	setupOTelEnv()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logFile, err := os.OpenFile(*logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		log.Fatalf("Failed to open log file: %v", err)
	}
	defer logFile.Close()
	log.SetOutput(logFile)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	shutdown, err := telemetry.Setup(ctx)
	if err != nil {
		log.Printf("Warning: telemetry setup failed: %v", err)
	} else {
		defer func() {
			if err := shutdown(context.Background()); err != nil {
				log.Printf("Error shutting down telemetry: %v", err)
			}
		}()
	}

	if err := run(ctx, cfg, logFile); err != nil {
		log.Printf("chunkforge: %v", err)
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

func loadConfig(path string) (config.Config, error) {
	cfg := config.Default()
	if path != "" {
		var err error
		if cfg, err = config.Load(path); err != nil {
			return cfg, err
		}
	}
	if err := cfg.ApplyEnv(); err != nil {
		return cfg, err
	}
	cfg.Finalize()
	return cfg, cfg.Validate()
}

func openStore(cfg config.Store, logger *log.Logger) (store.Store, error) {
	var inner store.Store = store.NewMemory()
	if cfg.Path != "" {
		db, err := store.OpenSQLite(cfg.Path)
		if err != nil {
			return nil, err
		}
		inner = db
	}
	opts := store.DefaultRetryOptions()
	opts.MaxTries = uint(cfg.MaxTries)
	return store.NewRetrying(inner, opts, logger), nil
}

func run(ctx context.Context, cfg config.Config, out *os.File) (err error) {
	flags := log.LstdFlags | log.Lmicroseconds
	st, err := openStore(cfg.Store, log.New(out, "[store] ", flags))
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	lvl, err := level.Start(ctx, cfg.Level, st, log.New(out, "[level] ", flags))
	if err != nil {
		st.Close()
		return err
	}
	defer func() {
		err = errors.Join(err, lvl.Close())
	}()
	log.Printf("level %s seed %d mode %s", lvl.ID, lvl.Seed, lvl.Mode)

	mgr, err := stream.New(lvl, stream.OptionsFrom(cfg.Stream), log.New(out, "[stream] ", flags))
	if err != nil {
		return err
	}
	defer func() {
		// Flushes dirty chunks even when ctx was cancelled by a signal.
		err = errors.Join(err, mgr.Close(context.Background()))
	}()

	screen, err := ui.NewScreen()
	if err != nil {
		return fmt.Errorf("init screen: %w", err)
	}
	defer screen.Close()

	w, h := lvl.ChunkSize()
	g := game.New(screen, mgr, lvl, w, h, log.New(out, "[game] ", flags))
	if err := g.Run(ctx, screen.Events()); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// setupOTelEnv maps CHUNKFORGE_OTLP_ENDPOINT and CHUNKFORGE_OTLP_HEADERS
// onto the standard OTLP exporter variables. Headers are passed through as
// comma-separated key=value pairs.
func setupOTelEnv() {
	for k, v := range otelEnv(os.Getenv) {
		os.Setenv(k, v)
	}
}

func otelEnv(getenv func(string) string) map[string]string {
	endpoint := getenv("CHUNKFORGE_OTLP_ENDPOINT")
	if endpoint == "" {
		return nil
	}
	env := map[string]string{"OTEL_EXPORTER_OTLP_ENDPOINT": endpoint}
	if headers := getenv("CHUNKFORGE_OTLP_HEADERS"); headers != "" {
		env["OTEL_EXPORTER_OTLP_HEADERS"] = headers
	}
	return env
}
