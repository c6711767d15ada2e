package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/dgallion1/formgest/internal/config"
	"github.com/dgallion1/formgest/internal/fetch"
	"github.com/dgallion1/formgest/internal/generate"
	"github.com/dgallion1/formgest/internal/parser"
	"github.com/dgallion1/formgest/internal/pipeline"
)

// Run wires the service from cfg and serves until ctx is cancelled, then
// drains the job pipeline and shuts the listener down.
func Run(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	fetcher := fetch.FromConfig(cfg, log)
	deps := Deps{
		Parser: parser.New(parser.Options{
			Thresholds:           cfg.Thresholds,
			PersonalInfoKeywords: cfg.PersonalInfoKeywords,
			Logger:               log,
		}),
		Fetcher: fetcher,
	}

	// Generation is only served with a Gemini key.
	var orch *pipeline.Orchestrator
	if err := cfg.RequireGemini(); err != nil {
		log.Warn("generation disabled", "reason", err)
	} else {
		gemini, err := generate.NewGeminiClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModels, log)
		if err != nil {
			return fmt.Errorf("create gemini client: %w", err)
		}
		orch = pipeline.NewOrchestrator(cfg, gemini, log)
		orch.Start(ctx)

		deps.Jobs = orch
		deps.LLM = gemini
		deps.Model = gemini.Model()
		deps.Stats = gemini.Stats
	}

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      NewServer(deps, log, cfg),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting formgest", "port", cfg.Port, "environment", cfg.Environment,
			"fetch_strategies", fetcher.Strategies())
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if orch != nil {
			orch.Stop()
		}
		return fmt.Errorf("listen: %w", err)
	case <-ctx.Done():
	}

	log.Info("shutting down...")
	if orch != nil {
		orch.Stop()
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
