package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/rickgao/feedstream/internal/config"
	"github.com/rickgao/feedstream/internal/connection"
	"github.com/rickgao/feedstream/internal/credentials"
	"github.com/rickgao/feedstream/internal/database"
	"github.com/rickgao/feedstream/internal/eventlog"
	"github.com/rickgao/feedstream/internal/metrics"
	"github.com/rickgao/feedstream/internal/subscription"
	"github.com/rickgao/feedstream/internal/tokens"
	"github.com/rickgao/feedstream/internal/version"
)

func main() {
	os.Exit(run())
}

// run wires the streamer and returns the process exit code. Deferred
// shutdown steps (event log flush in particular) run before the exit.
func run() int {
	configPath := flag.String("config", "configs/feedstream.yaml", "path to config file")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		return 0
	}

	// Set up structured logging
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	cfg, err := loadConfig(*configPath, logger)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		return 1
	}

	level, _ := config.ParseLevel(cfg.Log.Level)
	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	logger.Info("starting feedstream", append(version.LogAttrs(), "config", *configPath)...)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	// Static inputs: a missing file is fatal.
	creds, err := credentials.Load(cfg.Credentials.AuthFile, cfg.Credentials.EnvFile)
	if err != nil {
		logger.Error("failed to load credentials", "error", err)
		return 1
	}
	logger.Info("credentials loaded", "credentials", creds)

	fileGroups := make([]tokens.FileGroup, len(cfg.Tokens.Groups))
	for i, g := range cfg.Tokens.Groups {
		fileGroups[i] = tokens.FileGroup{Path: g.Path, ExchangeType: g.ExchangeType}
	}
	groups, err := tokens.NewFileSource(fileGroups...).Load(ctx)
	if err != nil {
		logger.Error("failed to load tokens", "error", err)
		return 1
	}
	for _, g := range groups {
		logger.Info("token group loaded", "file", g.Name, "exchange_type", g.ExchangeType, "tokens", len(g.Tokens))
	}

	// Metrics
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	// Event log
	sink, err := openEventLog(ctx, cfg.Log, m, logger)
	if err != nil {
		logger.Error("failed to open event log", "error", err)
		return 1
	}
	sink.Start()
	defer func() {
		stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer stopCancel()
		if err := sink.Stop(stopCtx); err != nil {
			logger.Error("failed to flush event log", "error", err)
		}
	}()

	// Subscription manager and controller
	subs := subscription.NewManager(
		subscription.Config{Mode: cfg.Feed.Mode, ChunkSize: cfg.Tokens.ChunkSize},
		subscription.WithEventLog(sink),
		subscription.WithMetrics(m),
		subscription.WithLogger(logger),
	)

	dialer := connection.NewWSDialer(connection.ClientConfig{
		URL:              cfg.Feed.URL,
		Header:           creds.Header(),
		HandshakeTimeout: cfg.Feed.HandshakeTimeout,
		WriteTimeout:     cfg.Feed.WriteTimeout,
	}, logger.With("component", "transport"))

	ctl := connection.NewController(connection.ConfigFromStreamer(cfg), dialer, subs, groups,
		connection.WithLogger(logger),
		connection.WithMetrics(m),
		connection.WithEventLog(sink),
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return ctl.Run(gctx)
	})

	if cfg.Metrics.Enabled {
		statusServer := &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Metrics.Port),
			Handler:           newStatusHandler(ctl, reg, cfg.Metrics.Path),
			ReadHeaderTimeout: 5 * time.Second,
		}

		g.Go(func() error {
			logger.Info("starting status server", "port", cfg.Metrics.Port)
			if err := statusServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("status server: %w", err)
			}
			return nil
		})

		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer shutdownCancel()
			return statusServer.Shutdown(shutdownCtx)
		})
	}

	err = g.Wait()
	switch {
	case errors.Is(err, connection.ErrRetriesExhausted):
		logger.Error("feed unreachable, exiting", "error", err)
		return 1
	case err != nil:
		logger.Error("feedstream failed", "error", err)
		return 1
	}

	logger.Info("feedstream stopped")
	return 0
}

// loadConfig reads path, falling back to built-in defaults when the file
// does not exist.
func loadConfig(path string, logger *slog.Logger) (*config.StreamerConfig, error) {
	cfg, found, err := config.LoadOrDefault(path)
	if err != nil {
		return nil, err
	}
	if !found {
		logger.Warn("config file not found, using defaults", "path", path)
	}
	return cfg, nil
}

// openEventLog builds the sink over the JSON log file ("-" for stdout) and,
// if configured, the Postgres event table. An unreachable database is logged and skipped.
func openEventLog(ctx context.Context, cfg config.LogConfig, m *metrics.Metrics, logger *slog.Logger) (*eventlog.Sink, error) {
	var file eventlog.Destination
	if cfg.File == "-" {
		file = eventlog.NewWriterDestination(os.Stdout)
	} else {
		f, err := eventlog.OpenFile(cfg.File)
		if err != nil {
			return nil, err
		}
		file = f
	}

	dest := file
	if cfg.Postgres.Enabled() {
		connectCtx, connectCancel := context.WithTimeout(ctx, 10*time.Second)
		defer connectCancel()

		store, err := database.OpenEventStore(connectCtx, cfg.Postgres)
		if err != nil {
			logger.Error("event table unavailable, logging to file only",
				"host", cfg.Postgres.Host,
				"table", cfg.Postgres.Table,
				"error", err,
			)
		} else {
			logger.Info("event table connected", "host", cfg.Postgres.Host, "table", cfg.Postgres.Table)
			dest = eventlog.MultiDestination{file, store}
		}
	}

	return eventlog.NewSink(dest,
		eventlog.WithSource(cfg.Source),
		eventlog.WithQueueCapacity(cfg.QueueCapacity),
		eventlog.WithLogger(logger.With("component", "eventlog")),
		eventlog.WithMetrics(m),
	), nil
}
