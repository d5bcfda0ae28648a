package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"sheet-agent/internal/agent"
	"sheet-agent/internal/config"
	"sheet-agent/internal/session"
	"sheet-agent/internal/standardize"
	"sheet-agent/internal/workbook"
	serverhttp "sheet-agent/server/http"
)

func main() {
	cfg := config.Load()
	logger := config.SetupLogger(cfg)

	reg := standardize.DefaultRegistry()
	if cfg.RegistryFile != "" {
		var err error
		if reg, err = standardize.LoadRegistry(cfg.RegistryFile); err != nil {
			logger.Fatal().Err(err).Str("file", cfg.RegistryFile).Msg("registry")
		}
	}
	logger.Info().Int("fields", len(reg.Fields)).Int("threshold", reg.Threshold).Msg("registry loaded")

	svc := workbook.NewService(
		standardize.New(reg),
		session.New[workbook.Workbook](cfg.SessionTTL, cfg.SessionTTL/2),
		newAgent(cfg, logger),
		logger,
	)
	r := serverhttp.NewRouter(cfg, logger, svc)

	srv := &http.Server{Addr: cfg.Addr(), Handler: r, ReadHeaderTimeout: 10 * time.Second}
	logger.Info().Str("addr", cfg.Addr()).Msg("server starting")

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("listen")
		}
	}()

	// graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	logger.Info().Msg("server shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctx)
	logger.Info().Msg("bye")
}

// newAgent: без OPENAI_API_KEY вопросы отключены, загрузка работает.
func newAgent(cfg config.Config, logger zerolog.Logger) *agent.Agent {
	if cfg.OpenAIKey == "" {
		logger.Warn().Msg("OPENAI_API_KEY is not set, queries are disabled")
		return nil
	}
	planner := agent.NewOpenAIPlanner(cfg.OpenAIKey, cfg.OpenAIModel)
	return agent.New(planner, cfg.AgentMaxSteps, logger)
}
