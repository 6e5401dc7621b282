// streamtest connects to the feed with a small token sample and prints what
// arrives. It uses the same config and credential files as feedstream but
// writes events to stdout instead of the event log file.
//
// Usage: go run ./cmd/streamtest -config configs/feedstream.yaml -limit 5 -duration 1m
package main

import (
	"context"
	"encoding/hex"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/rickgao/feedstream/internal/config"
	"github.com/rickgao/feedstream/internal/connection"
	"github.com/rickgao/feedstream/internal/credentials"
	"github.com/rickgao/feedstream/internal/eventlog"
	"github.com/rickgao/feedstream/internal/subscription"
	"github.com/rickgao/feedstream/internal/tokens"
)

func main() {
	configPath := flag.String("config", "configs/feedstream.example.yaml", "path to config file")
	limit := flag.Int("limit", 5, "tokens to subscribe per group (0 = all)")
	duration := flag.Duration("duration", time.Minute, "how long to stream")
	verbose := flag.Bool("verbose", false, "hex dump the start of every message")
	flag.Parse()

	// Setup logger
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))

	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *duration)
	defer cancel()

	// Handle signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("received shutdown signal")
		cancel()
	}()

	creds, err := credentials.Load(cfg.Credentials.AuthFile, cfg.Credentials.EnvFile)
	if err != nil {
		logger.Error("failed to load credentials", "error", err)
		os.Exit(1)
	}

	fileGroups := make([]tokens.FileGroup, len(cfg.Tokens.Groups))
	for i, g := range cfg.Tokens.Groups {
		fileGroups[i] = tokens.FileGroup{Path: g.Path, ExchangeType: g.ExchangeType}
	}
	groups, err := tokens.NewFileSource(fileGroups...).Load(ctx)
	if err != nil {
		logger.Error("failed to load tokens", "error", err)
		os.Exit(1)
	}
	for i := range groups {
		if *limit > 0 && len(groups[i].Tokens) > *limit {
			groups[i].Tokens = groups[i].Tokens[:*limit]
		}
	}

	sink := eventlog.NewSink(eventlog.NewWriterDestination(os.Stdout), eventlog.WithLogger(logger))
	sink.Start()

	var messages, bytesIn atomic.Int64
	onMessage := func(data []byte) {
		messages.Add(1)
		bytesIn.Add(int64(len(data)))
		if *verbose {
			n := min(len(data), 32)
			fmt.Printf("[MSG] %d bytes %s\n", len(data), hex.EncodeToString(data[:n]))
		}
	}

	subs := subscription.NewManager(
		subscription.Config{Mode: cfg.Feed.Mode, ChunkSize: cfg.Tokens.ChunkSize},
		subscription.WithEventLog(sink),
		subscription.WithLogger(logger),
	)
	dialer := connection.NewWSDialer(connection.ClientConfig{
		URL:              cfg.Feed.URL,
		Header:           creds.Header(),
		HandshakeTimeout: cfg.Feed.HandshakeTimeout,
		WriteTimeout:     cfg.Feed.WriteTimeout,
	}, logger)
	ctl := connection.NewController(connection.ConfigFromStreamer(cfg), dialer, subs, groups,
		connection.WithLogger(logger),
		connection.WithEventLog(sink),
		connection.WithMessageHandler(onMessage),
	)

	// Stats printer
	go func() {
		ticker := time.NewTicker(10 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				stats := ctl.Stats()
				logger.Info("stats",
					"state", stats.State,
					"subscriptions", stats.Subscriptions,
					"tokens", stats.Tokens,
					"messages", messages.Load(),
					"bytes", bytesIn.Load(),
					"last_pong", stats.LastPongAt,
				)
			}
		}
	}()

	logger.Info("streaming started - press Ctrl+C to stop", "duration", *duration)
	runErr := ctl.Run(ctx)

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer stopCancel()
	sink.Stop(stopCtx)

	logger.Info("shutdown complete", "messages", messages.Load(), "bytes", bytesIn.Load())
	if runErr != nil {
		logger.Error("stream failed", "error", runErr)
		os.Exit(1)
	}
}
