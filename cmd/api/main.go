package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"legal-assistant/internal/app"
	"legal-assistant/internal/config"
)

//go:generate swagger generate spec -o swagger.json

// General API information
//
// This API answers questions about Polish law and administration using a curated, cited knowledge base.
//
// swagger:meta
//
// ---
// swagger: '2.0'
// info:
//   title: Polish Legal Assistant API
//   description: |
//     Retrieval-augmented answers to questions about Polish legal and administrative procedures.
//     Every answer lists the official sources it was grounded on.
//   version: 1.0.0
// schemes:
//   - http
//   - https
// consumes:
//   - application/json
// produces:
//   - application/json

const shutdownTimeout = 15 * time.Second

func main() {
	// Load configuration first (needed for log level)
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	slog.SetDefault(app.NewLogger(os.Stdout, cfg.LogLevel, cfg.LogFormat))
	slog.Debug("Logging configured", "level", cfg.LogLevel.String(), "format", cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.Build(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}
	defer func() {
		_ = a.Close()
	}()

	// Fail fast when the vector store or embeddings endpoint is misconfigured
	if err := a.Bootstrap(ctx); err != nil {
		slog.Error("Startup checks failed", "error", err)
		_ = a.Close()
		os.Exit(1)
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           a.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Starting API server",
			"addr", srv.Addr,
			"prefix", cfg.Server.APIPrefix,
			"vector_store", cfg.VectorStore.Backend,
			"collection", cfg.VectorStore.Collection,
		)
		slog.Debug("LLM configuration", "base_url", cfg.OpenAI.BaseURL, "model", cfg.OpenAI.Model, "embedding_model", cfg.OpenAI.EmbeddingModel)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			slog.Error("API server failed", "error", err)
			_ = a.Close()
			os.Exit(1)
		}
	case <-ctx.Done():
		slog.Info("Shutting down API server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("Graceful shutdown failed", "error", err)
		}
	}
	slog.Info("API server stopped")
}
