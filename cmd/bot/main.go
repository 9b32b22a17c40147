// Package main is the entry point for the bot webhook server.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/walkingday-ai/walkbot/internal/bot"
	"github.com/walkingday-ai/walkbot/internal/config"
	"github.com/walkingday-ai/walkbot/internal/finance"
	"github.com/walkingday-ai/walkbot/internal/handler"
	"github.com/walkingday-ai/walkbot/internal/llm"
	"github.com/walkingday-ai/walkbot/internal/middleware"
	natsclient "github.com/walkingday-ai/walkbot/internal/nats"
	"github.com/walkingday-ai/walkbot/internal/retry"
	"github.com/walkingday-ai/walkbot/internal/state"
	"github.com/walkingday-ai/walkbot/internal/telegram"
	"github.com/walkingday-ai/walkbot/internal/weather"
	"github.com/walkingday-ai/walkbot/pkg/logger"
	"github.com/walkingday-ai/walkbot/pkg/tracing"
)

func main() {
	// Load .env when present; the environment wins over file values.
	_ = godotenv.Load()

	cfg := config.Load()

	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	logger.SetGlobal(log)

	log.Info("starting bot server")

	ctx := context.Background()
	if cfg.TracingEnabled {
		tp, err := tracing.InitTracer(ctx, "walkbot", cfg.TracingEndpoint)
		if err != nil {
			log.Warn("failed to initialize tracing", zap.Error(err))
		} else {
			defer tracing.Shutdown(ctx, tp)
		}
	}

	if cfg.TelegramBotToken == "" {
		log.Error("TELEGRAM_BOT_TOKEN is required")
		os.Exit(1)
	}

	// State store backend.
	var store state.Store
	var storeCheck handler.ReadinessCheck
	switch cfg.StateBackend {
	case "redis":
		redisStore, err := state.NewRedisStore(ctx, cfg.RedisURL)
		if err != nil {
			log.Error("failed to connect to redis", zap.Error(err))
			os.Exit(1)
		}
		defer redisStore.Close()
		store = redisStore
		storeCheck = func() error { return redisStore.Ping(ctx) }
		log.Info("using redis state store")
	default:
		store = state.NewMemoryStore()
		log.Info("using in-memory state store")
	}

	// Optional audit stream. An empty NATS URL leaves auditing off.
	var publisher bot.Publisher = bot.NopPublisher{}
	checks := map[string]handler.ReadinessCheck{"store": storeCheck}
	if cfg.NATSURL != "" {
		nc, err := natsclient.Connect(ctx, natsclient.Config{
			URL:   cfg.NATSURL,
			Token: cfg.NATSToken,
		}, log)
		if err != nil {
			log.Error("failed to connect to NATS", zap.Error(err))
			os.Exit(1)
		}
		defer nc.Close()

		streamManager := natsclient.NewStreamManager(nc)
		if err := streamManager.EnsureStream(ctx); err != nil {
			log.Error("failed to ensure audit stream", zap.Error(err))
			os.Exit(1)
		}
		publisher = streamManager
		checks["nats"] = nc.Ping
	}

	policy := retry.Policy{
		MaxAttempts:    cfg.ProviderMaxAttempts,
		InitialBackoff: cfg.ProviderBackoff,
	}

	// Providers.
	weatherClient := weather.New(cfg.WeatherBaseURL, cfg.WeatherAPIKey, policy, log)
	financeClient := finance.New(cfg.AlphaVantageBaseURL, cfg.AlphaVantageAPIKey, policy, log)
	summarizer := llm.NewHuggingFaceSummarizer(cfg.HuggingFaceBaseURL, cfg.HuggingFaceToken, cfg.HuggingFaceModel, policy)

	provider := llm.Provider(cfg.DefaultLLM)
	baseLLM, err := llm.NewClient(ctx, provider, llmKey(cfg, provider))
	if err != nil {
		log.Error("failed to create LLM client", zap.Error(err))
		os.Exit(1)
	}
	textClient := llm.WithRetry(baseLLM, policy)
	visionClient, _ := textClient.(llm.VisionClient)
	log.Info("LLM provider configured", zap.String("provider", string(provider)))

	controller := bot.New(bot.Deps{
		Store:      store,
		Weather:    weatherClient,
		Finance:    financeClient,
		Text:       textClient,
		Vision:     visionClient,
		Summarizer: summarizer,
		Publisher:  publisher,
		Quota: bot.QuotaConfig{
			Limit:  cfg.WalkQuotaLimit,
			Window: cfg.WalkQuotaWindow,
		},
		Logger: log,
		Model:  cfg.Model,
	})

	tgClient := telegram.NewClient(cfg.TelegramBotToken, cfg.TelegramAPIBaseURL)
	webhook := telegram.NewWebhook(controller, tgClient, cfg.TelegramWebhookSecret, log)
	healthHandler := handler.NewHealthHandler(checks)

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging(log))
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS())

	r.Get("/health", healthHandler.Health)
	r.Get("/ready", healthHandler.Ready)
	r.Handle("/metrics", promhttp.Handler())

	// The bot token in the path keeps the webhook URL unguessable, the way
	// Telegram documents it. The route is parameterized so the token never
	// shows up in matched route patterns, and checked here before the
	// handler runs.
	r.Route("/webhook/{token}", func(r chi.Router) {
		r.Use(middleware.RateLimit(cfg.RateLimitRequests, cfg.RateLimitWindow))
		r.Post("/", func(w http.ResponseWriter, req *http.Request) {
			if chi.URLParam(req, "token") != cfg.TelegramBotToken {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			webhook.ServeHTTP(w, req)
		})
	})

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      r,
		ReadTimeout:  cfg.ServerReadTimeout,
		WriteTimeout: cfg.ServerWriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Info("server listening", zap.String("port", cfg.ServerPort))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", zap.Error(err))
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}

	log.Info("server stopped")
}

func llmKey(cfg *config.Config, provider llm.Provider) string {
	switch provider {
	case llm.ProviderOpenAI:
		return cfg.OpenAIAPIKey
	case llm.ProviderAnthropic:
		return cfg.AnthropicAPIKey
	default:
		return cfg.GeminiAPIKey
	}
}
