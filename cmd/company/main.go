package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/p-blackswan/code-company/internal/config"
	"github.com/p-blackswan/code-company/internal/health"
	"github.com/p-blackswan/code-company/internal/history"
	"github.com/p-blackswan/code-company/internal/llm"
	"github.com/p-blackswan/code-company/internal/memory"
	"github.com/p-blackswan/code-company/internal/metrics"
	"github.com/p-blackswan/code-company/internal/notify"
	"github.com/p-blackswan/code-company/internal/schedule"
	"github.com/p-blackswan/code-company/internal/search"
	"github.com/p-blackswan/code-company/internal/server"
	"github.com/p-blackswan/code-company/internal/supabase"
	"github.com/p-blackswan/code-company/internal/workflow"
)

func main() {
	// Setup structured logging
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	logger := zerolog.New(os.Stdout).With().Timestamp().Caller().Logger()

	if os.Getenv("ENVIRONMENT") == "development" {
		logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	log.Logger = logger

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}

	if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(level)
	}

	logger.Info().
		Str("environment", cfg.Environment).
		Int("http_port", cfg.HTTPPort).
		Str("search_mode", cfg.SearchMode).
		Bool("supabase_enabled", cfg.SupabaseEnabled()).
		Bool("slack_enabled", cfg.SlackEnabled()).
		Bool("scheduler_enabled", cfg.SchedulerEnabled()).
		Msg("starting code company backend")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	// Local state
	store := memory.NewFileStore(cfg.MemoryFile, logger)
	archive := memory.NewArchive(cfg.ProjectsFile, logger)

	// Remote store (optional)
	remote := supabase.NewClient(cfg.SupabaseURL, cfg.SupabaseKey, logger)
	historyLog := history.NewLogger(remote, logger)
	if remote.Enabled() {
		logger.Info().Msg("Supabase client initialized")
	} else {
		logger.Info().Msg("Supabase not configured — history and remote cache disabled")
	}

	// Search adapter
	searcher := search.NewClient(search.Config{
		Mode:    cfg.SearchMode,
		APIURL:  cfg.SearchAPIURL,
		APIKey:  cfg.SearchKey(),
		Timeout: cfg.SearchTimeout,
	}, remote, logger)

	// Completion provider
	provider := llm.NewOpenRouterProvider(cfg.OpenRouterAPIKey,
		llm.WithModel(cfg.OpenRouterModel),
		llm.WithLogger(logger),
	)

	// Workflow rules
	rules, err := workflow.LoadRules(cfg.RulesFile)
	if err != nil {
		logger.Warn().Err(err).Str("path", cfg.RulesFile).Msg("rules file not loaded, using defaults")
	}

	collector := metrics.New()

	orch := workflow.NewOrchestrator(workflow.Config{
		Rules:            rules,
		DecisionTimeout:  cfg.DecisionTimeout,
		ExecutionTimeout: cfg.ExecutionTimeout,
	}, store, archive, searcher, provider, historyLog, logger)
	orch.SetMetrics(collector)

	if cfg.SlackEnabled() {
		orch.SetNotifier(notify.NewSlackNotifier(cfg.SlackBotToken, cfg.SlackChannel, logger))
		logger.Info().Str("channel", cfg.SlackChannel).Msg("Slack run announcements enabled")
	}

	// Health checks
	checker := health.NewChecker(logger)
	checker.Register("state_file", func(context.Context) health.Status {
		if err := store.Save(store.Load()); err != nil {
			return health.StatusDown
		}
		return health.StatusOK
	})
	if remote.Enabled() {
		checker.Register("supabase", func(ctx context.Context) health.Status {
			if _, err := historyLog.Fetch(ctx); err != nil {
				return health.StatusDegraded
			}
			return health.StatusOK
		})
	}

	handlers := server.NewHandlers(orch, store, archive, searcher, historyLog, checker, logger)
	srv := server.New(server.Config{
		ListenAddr:  fmt.Sprintf(":%d", cfg.HTTPPort),
		CORSOrigins: cfg.CORSOrigins,
		Auth: server.AuthConfig{
			Mode:   cfg.AuthMode,
			APIKey: cfg.SecretKey,
		},
	}, handlers, collector, logger)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := srv.Start(); err != nil {
			logger.Error().Err(err).Msg("http server error")
		}
	}()

	// Periodic full runs (optional)
	if cfg.SchedulerEnabled() {
		runner := schedule.NewRunner(cfg.RunInterval, func(ctx context.Context) error {
			_, err := orch.Run(ctx, "schedule")
			return err
		}, logger)

		wg.Add(1)
		go func() {
			defer wg.Done()
			runner.Run(ctx)
		}()
	}

	// Wait for shutdown signal
	sig := <-sigCh
	logger.Info().Str("signal", sig.String()).Msg("shutting down gracefully")

	cancel()

	if err := srv.Shutdown(); err != nil {
		logger.Error().Err(err).Msg("http server shutdown error")
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logger.Info().Msg("all goroutines stopped")
	case <-time.After(15 * time.Second):
		logger.Warn().Msg("forced shutdown after timeout")
	}

	logger.Info().Msg("code company backend stopped")
}
