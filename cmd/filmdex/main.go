package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"filmdex/internal/cache"
	"filmdex/internal/catalog"
	"filmdex/internal/config"
	"filmdex/internal/connectivity"
	"filmdex/internal/repo"
	"filmdex/internal/snapshot"
	"filmdex/internal/store"
)

// Version is set via -ldflags at build time.
var Version = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Best-effort: an absent .env just means the key comes from the shell.
	_ = godotenv.Load()

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("could not determine home directory: %w", err)
	}
	baseDir := filepath.Join(homeDir, ".filmdex")

	cfg, err := config.Load(baseDir)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := newLogger()

	st, err := store.Open(baseDir)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer st.Close()
	st.ConfigurePool(cfg)

	last, err := snapshot.Open(baseDir)
	if err != nil {
		return fmt.Errorf("failed to open snapshot store: %w", err)
	}
	defer last.Close()

	monitor := connectivity.NewProber(cfg.ProbeAddr, cfg.ProbeInterval(), logger)
	monitor.Start()
	defer monitor.Close()

	client := catalog.NewClient(&catalog.ClientConfig{
		BaseURL: cfg.APIBaseURL,
		APIKey:  os.Getenv("FILMDEX_API_KEY"),
		Logger:  logger,
	})

	engine := cache.New(st, cfg)

	repository := repo.New(repo.Options{
		Catalog:      client,
		Store:        st,
		Cache:        engine,
		LastSearch:   last,
		Monitor:      monitor,
		Logger:       logger,
		OfflineFirst: cfg.OfflineFirst,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	repository.Watch(ctx)

	app := newCLIApp(repository, engine, Version)
	return app.RunContext(ctx, os.Args)
}

func newLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stderr)
	logger.SetLevel(logrus.WarnLevel)
	if os.Getenv("FILMDEX_DEBUG") != "" {
		logger.SetLevel(logrus.DebugLevel)
	}
	return logger
}
