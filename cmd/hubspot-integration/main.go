package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/andreamil/hubspot-integration/internal/auth"
	"github.com/andreamil/hubspot-integration/internal/config"
	"github.com/andreamil/hubspot-integration/internal/hubspot"
	"github.com/andreamil/hubspot-integration/internal/logging"
	"github.com/andreamil/hubspot-integration/internal/server"
	"github.com/andreamil/hubspot-integration/internal/state"
	"github.com/andreamil/hubspot-integration/internal/webhook"
	"golang.org/x/sync/errgroup"
)

var Version = "dev"

// shutdownTimeout bounds graceful HTTP shutdown after a signal.
const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := logging.NewLogger(cfg.Environment, Version)
	logger.Info("hubspot-integration starting",
		slog.String("addr", cfg.ListenAddr),
		slog.Int("signature_version", cfg.WebhookSignatureVersion),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var journal *state.Journal
	if cfg.JournalPath != "" {
		journal, err = state.Open(cfg.JournalPath)
		if err != nil {
			return fmt.Errorf("opening webhook journal: %w", err)
		}
		defer journal.Close()

		logger.Info("webhook journal open",
			slog.String("path", cfg.JournalPath),
			slog.Int("recorded_events", journal.ProcessedCount()),
		)
	}

	invoker := hubspot.NewInvoker(nil, cfg.MaxOutboundRPS, logger)
	client := hubspot.NewClient(nil, cfg.OAuthTokenURL, cfg.APIContactsURL, cfg.RedirectURI, invoker, logger)

	store := auth.NewStore()
	manager := auth.NewManager(store, client, cfg.ClientID, cfg.ClientSecret, logger)

	mux := server.NewMux(server.MuxConfig{
		Manager:           manager,
		States:            auth.NewStateStore(),
		Client:            client,
		Verifier:          webhook.NewVerifier(cfg.ClientSecret, cfg.WebhookSignatureVersion, logger),
		Events:            webhook.NewProcessor(journal, logger),
		Logger:            logger,
		ClientID:          cfg.ClientID,
		ClientSecret:      cfg.ClientSecret,
		Scopes:            cfg.Scopes,
		RedirectURI:       cfg.RedirectURI,
		OAuthAuthorizeURL: cfg.OAuthAuthorizeURL,
		SignatureVersion:  cfg.WebhookSignatureVersion,
	})

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("HTTP server listening", slog.String("addr", cfg.ListenAddr))

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}

		return nil
	})

	g.Go(func() error {
		<-gctx.Done()

		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
