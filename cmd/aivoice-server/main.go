// Command aivoice-server runs the spoken-conversation gateway: the REST
// API, the live websocket endpoint, and the metrics exposition.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/jaminitachi/aivoice-learning/pkg/core/llm"
	"github.com/jaminitachi/aivoice-learning/pkg/gateway/config"
	"github.com/jaminitachi/aivoice-learning/pkg/gateway/server"
	"github.com/jaminitachi/aivoice-learning/pkg/store"
)

func main() {
	if err := run(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "aivoice-server: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	// Missing .env is fine; deployments configure through the environment.
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	cfg, err := config.LoadFromEnv()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer st.Close()

	llmProvider, err := buildLLM(ctx, cfg)
	if err != nil {
		return err
	}

	srv, err := server.New(cfg, st, llmProvider, logger)
	if err != nil {
		return fmt.Errorf("build server: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownGracePeriod)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errCh; err != nil {
		return fmt.Errorf("serve: %w", err)
	}
	logger.Info("gateway stopped")
	return nil
}

func openStore(ctx context.Context, cfg config.Config, logger *slog.Logger) (store.Store, error) {
	if cfg.DatabaseURL == "" {
		logger.Warn("DATABASE_URL not set, using in-memory store; completions will not survive restarts")
		return store.NewMemory(), nil
	}
	if err := store.Migrate(cfg.DatabaseURL); err != nil {
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	st, err := store.NewPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	logger.Info("connected to postgres")
	return st, nil
}

func buildLLM(ctx context.Context, cfg config.Config) (llm.Provider, error) {
	switch cfg.LLMProvider {
	case config.LLMProviderGemini:
		p, err := llm.NewGemini(ctx, llm.GeminiConfig{
			APIKey: cfg.LLMAPIKey,
			Model:  cfg.LLMModel,
		})
		if err != nil {
			return nil, fmt.Errorf("gemini provider: %w", err)
		}
		return p, nil
	default:
		p, err := llm.NewOpenRouter(llm.OpenRouterConfig{
			APIKey:  cfg.LLMAPIKey,
			BaseURL: cfg.LLMBaseURL,
			Model:   cfg.LLMModel,
		})
		if err != nil {
			return nil, fmt.Errorf("openrouter provider: %w", err)
		}
		return p, nil
	}
}
