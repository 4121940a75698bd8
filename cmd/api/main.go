// Package main is the entry point for the coaching engine API server.
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
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/purposepath-ai/coaching-engine/internal/cache"
	"github.com/purposepath-ai/coaching-engine/internal/config"
	"github.com/purposepath-ai/coaching-engine/internal/events"
	"github.com/purposepath-ai/coaching-engine/internal/handler"
	"github.com/purposepath-ai/coaching-engine/internal/llm"
	"github.com/purposepath-ai/coaching-engine/internal/middleware"
	"github.com/purposepath-ai/coaching-engine/internal/outcome"
	"github.com/purposepath-ai/coaching-engine/internal/quota"
	"github.com/purposepath-ai/coaching-engine/internal/service"
	"github.com/purposepath-ai/coaching-engine/internal/store"
	"github.com/purposepath-ai/coaching-engine/pkg/logger"
	"github.com/purposepath-ai/coaching-engine/pkg/tracing"
)

func main() {
	cfg := config.Load()

	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("starting coaching engine")

	ctx := context.Background()
	if cfg.TracingEnabled {
		tp, err := tracing.InitTracer(ctx, "coaching-engine", cfg.TracingEndpoint)
		if err != nil {
			log.Warn("failed to initialize tracing", zap.Error(err))
		} else {
			defer tracing.Shutdown(ctx, tp)
		}
	}

	// The event feed is optional: without NATS the engine runs with a nil
	// publisher and drops events.
	var eventsClient *events.Client
	var publisher *events.Publisher
	if cfg.NATSURL != "" {
		eventsClient, err = events.Connect(events.ClientConfig{
			URL:      cfg.NATSURL,
			CAFile:   cfg.NATSCAFile,
			CertFile: cfg.NATSCertFile,
			KeyFile:  cfg.NATSKeyFile,
			Token:    cfg.NATSToken,
		}, log)
		if err != nil {
			log.Error("failed to connect to NATS", zap.Error(err))
			os.Exit(1)
		}
		defer eventsClient.Close()

		publisher = events.NewPublisher(eventsClient)
		if err := publisher.EnsureStream(ctx); err != nil {
			log.Error("failed to ensure event stream", zap.Error(err))
			os.Exit(1)
		}
	} else {
		log.Info("NATS disabled, events will not be published")
	}

	// Session cache: Redis when configured, in-process otherwise.
	var sessionCache cache.Cache = cache.NewMemory()
	if cfg.RedisAddr != "" {
		redisClient, err := cache.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			log.Warn("failed to connect to Redis, using in-process cache", zap.Error(err))
		} else if redisClient != nil {
			sessionCache = cache.NewRedis(redisClient)
			defer redisClient.Close()
		}
	}

	provider := llm.Provider(cfg.DefaultLLM)
	apiKey := cfg.AnthropicAPIKey
	if provider == llm.ProviderOpenAI {
		apiKey = cfg.OpenAIAPIKey
	} else if apiKey == "" && cfg.OpenAIAPIKey != "" {
		provider = llm.ProviderOpenAI
		apiKey = cfg.OpenAIAPIKey
	}
	gateway, err := llm.NewGateway(provider, apiKey, cfg.CoachModel)
	if err != nil {
		log.Error("failed to create LLM gateway", zap.Error(err))
		os.Exit(1)
	}
	log.Info("LLM gateway ready", zap.String("provider", gateway.Name()))

	mem := store.NewMemory()
	enforcer := quota.NewEnforcer(mem, nil)
	synchronizer := outcome.NewSynchronizer(mem, mem, gateway, publisher, outcome.Config{
		ConfidenceThreshold: cfg.OutcomeConfidenceThreshold,
		AutoUpdate:          cfg.AutoUpdateBusinessData,
		RequireApproval:     cfg.RequireOutcomeApproval,
	}, log)
	orchestrator := service.NewOrchestrator(mem, mem, mem, sessionCache, gateway, enforcer, synchronizer, publisher, log)
	insightsSvc := service.NewInsightsService(mem, mem, mem, log)

	healthHandler := handler.NewHealthHandler(eventsClient)
	conversationHandler := handler.NewConversationHandler(orchestrator, log)
	businessHandler := handler.NewBusinessHandler(mem, log)
	insightsHandler := handler.NewInsightsHandler(insightsSvc, log)

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging(log))
	r.Use(middleware.SecurityHeaders)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Requested-With"},
		ExposedHeaders:   []string{"Link", "X-Correlation-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", healthHandler.Health)
	r.Get("/ready", healthHandler.Ready)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWTSecret))
		r.Use(middleware.RateLimit(cfg.RateLimitRequests, cfg.RateLimitWindow))

		r.Route("/conversations", func(r chi.Router) {
			r.Post("/", conversationHandler.Initiate)
			r.Get("/", conversationHandler.List)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", conversationHandler.Get)
				r.Get("/state", conversationHandler.State)
				r.Delete("/", conversationHandler.Abandon)

				r.With(middleware.UserRateLimit(cfg.RateLimitRequests, cfg.RateLimitWindow)).
					Post("/messages", conversationHandler.Message)
				r.Post("/complete", conversationHandler.Complete)
				r.Post("/pause", conversationHandler.Pause)
				r.Post("/resume", conversationHandler.Resume)
			})
		})

		r.Route("/business", func(r chi.Router) {
			r.Get("/", businessHandler.Get)
			r.Get("/history", businessHandler.History)
			r.Put("/{field}", businessHandler.UpdateField)
		})

		r.Get("/insights", insightsHandler.Get)
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
