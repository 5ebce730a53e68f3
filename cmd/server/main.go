package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/RedRangerWentWild/IITR1/api/openapi"
	"github.com/RedRangerWentWild/IITR1/internal/config"
	"github.com/RedRangerWentWild/IITR1/internal/database"
	"github.com/RedRangerWentWild/IITR1/internal/handlers"
	"github.com/RedRangerWentWild/IITR1/internal/logger"
	"github.com/RedRangerWentWild/IITR1/internal/middleware"
	"github.com/RedRangerWentWild/IITR1/internal/models"
	"github.com/RedRangerWentWild/IITR1/internal/queue"
	"github.com/RedRangerWentWild/IITR1/internal/services/ai"
	"github.com/RedRangerWentWild/IITR1/internal/services/auth"
	"github.com/RedRangerWentWild/IITR1/internal/services/delivery"
	"github.com/RedRangerWentWild/IITR1/internal/services/drafting"
	"github.com/RedRangerWentWild/IITR1/internal/services/mail"
	"github.com/RedRangerWentWild/IITR1/internal/services/metrics"
	"github.com/RedRangerWentWild/IITR1/internal/telemetry"
	"github.com/gorilla/mux"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"
	"go.uber.org/zap"
)

const (
	serviceName          = "draft-api"
	rateLimitReload      = time.Minute
	rabbitMQMaxRetries   = 10
	rabbitMQInitialDelay = 2 * time.Second
)

func main() {
	debugFlag := flag.Bool("debug", false, "Enable debug mode for LLM API logging")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	debugMode := cfg.ServerDebugMode || *debugFlag

	zapLogger, err := logger.NewProductionLogger(debugMode)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() {
		_ = zapLogger.Sync()
	}()

	zapLogger.Info("starting_server",
		zap.Bool("debug_mode", debugMode),
		zap.String("server_port", cfg.ServerPort),
		zap.Strings("allowed_origins", cfg.AllowedOrigins()),
		zap.String("ai_model", cfg.AIModel),
		zap.Bool("otel_enabled", cfg.OTELEnabled),
		zap.Bool("reconciliation_queue", cfg.RabbitMQURL != ""),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tracingEnabled := false
	if cfg.OTELEnabled {
		if cfg.OTELEndpoint == "" {
			zapLogger.Warn("otel_enabled_but_endpoint_not_configured")
		} else if tp, err := telemetry.InitTracer(ctx, serviceName, cfg.OTELEndpoint); err != nil {
			zapLogger.Warn("failed_to_initialize_otel_tracer", zap.Error(err))
		} else {
			tracingEnabled = true
			zapLogger.Info("otel_tracer_initialized", zap.String("endpoint", cfg.OTELEndpoint))
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := telemetry.Shutdown(shutdownCtx, tp); err != nil {
					zapLogger.Error("failed_to_shutdown_otel_tracer", zap.Error(err))
				}
			}()
		}
	}

	db, err := database.New(cfg.DatabaseURL)
	if err != nil {
		zapLogger.Fatal("failed_to_connect_to_database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			zapLogger.Warn("failed_to_close_database_connection", zap.Error(err))
		}
	}()
	zapLogger.Info("connected_to_database")

	redisClient, err := middleware.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		zapLogger.Fatal("failed_to_connect_to_redis", zap.Error(err))
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			zapLogger.Warn("failed_to_close_redis_connection", zap.Error(err))
		}
	}()
	zapLogger.Info("connected_to_redis")

	// The reconciliation queue is optional; without it unrecorded deliveries are only logged
	var jobQueue queue.JobQueue
	if cfg.RabbitMQURL != "" {
		jobQueue = connectRabbitMQ(ctx, cfg.RabbitMQURL, zapLogger)
		defer func() {
			if err := jobQueue.Close(); err != nil {
				zapLogger.Warn("failed_to_close_rabbitmq_connection", zap.Error(err))
			}
		}()
	}

	userRepo := database.NewUserRepository(db)
	logRepo := database.NewConversionLogRepository(db)
	metricsRepo := database.NewDailyMetricsRepository(db)
	ratelimitRepo := database.NewRatelimitConfigRepository(db)

	tokens, err := auth.NewTokenService(cfg.JWTSecret, auth.DefaultTTL)
	if err != nil {
		zapLogger.Fatal("failed_to_create_token_service", zap.Error(err))
	}

	if cfg.AIAPIKey == "" {
		zapLogger.Warn("ai_api_key_not_configured")
	}
	provider := ai.NewOpenAIProvider(ai.ProviderConfig{
		APIKey:  cfg.AIAPIKey,
		BaseURL: cfg.AIBaseURL,
		Model:   cfg.AIModel,
		Timeout: cfg.AITimeout,
	}, zapLogger, debugMode)
	converter := ai.NewConverter(provider, zapLogger)

	// a conversion that exhausts its retries must answer before the request times out
	if cfg.EnsureRequestTimeout(ai.RetryBudget(cfg.AITimeout) + 5*time.Second) {
		zapLogger.Warn("request_timeout_raised_to_conversion_budget",
			zap.Duration("request_timeout", cfg.RequestTimeout),
			zap.Duration("ai_timeout", cfg.AITimeout),
		)
	}

	gmailClient := mail.NewGmailClient(mail.Config{
		ClientID:     cfg.GoogleClientID,
		ClientSecret: cfg.GoogleClientSecret,
		Timeout:      cfg.MailTimeout,
	}, userRepo, zapLogger)

	var reconciler delivery.Reconciler
	if jobQueue != nil {
		reconciler = delivery.NewQueueReconciler(jobQueue)
	}

	draftService := drafting.NewService(drafting.NewAssembler(gmailClient, zapLogger), converter, logRepo, zapLogger)
	orchestrator := delivery.NewOrchestrator(logRepo, metricsRepo, gmailClient, reconciler, cfg.MailTimeout, zapLogger)

	draftHandler := handlers.NewDraftHandler(draftService, orchestrator, zapLogger)
	metricsHandler := handlers.NewMetricsHandler(metrics.NewRollup(logRepo, metricsRepo), metrics.NewSurveyRecorder(metricsRepo), zapLogger)
	extensionHandler := handlers.NewExtensionHandler(drafting.NewContextService(logRepo), zapLogger)
	authHandler := handlers.NewAuthHandler()

	healthChecker := handlers.NewHealthChecker(zapLogger)
	healthChecker.Register("database", db.PingContext)
	healthChecker.Register("redis", func(ctx context.Context) error {
		return redisClient.Ping(ctx).Err()
	})
	if jobQueue != nil {
		healthChecker.Register("queue", jobQueue.HealthCheck)
	}

	openAPIHandler, err := handlers.NewOpenAPIHandler(openapi.Document)
	if err != nil {
		zapLogger.Fatal("failed_to_load_openapi_document", zap.Error(err))
	}

	apiLimiter, err := middleware.NewRateLimitReloader(redisClient, ratelimitRepo, models.RatelimitKeyDefault, middleware.DefaultRatelimitRate, zapLogger, rateLimitReload)
	if err != nil {
		zapLogger.Fatal("failed_to_create_rate_limiter", zap.Error(err))
	}
	convertLimiter, err := middleware.NewRateLimitReloader(redisClient, ratelimitRepo, models.RatelimitKeyConvert, middleware.DefaultConvertRate, zapLogger, rateLimitReload)
	if err != nil {
		zapLogger.Fatal("failed_to_create_convert_rate_limiter", zap.Error(err))
	}

	r := mux.NewRouter()

	// Middleware registered first is the outermost wrapper
	if tracingEnabled {
		r.Use(otelmux.Middleware(serviceName))
	}
	r.Use(middleware.Logging(zapLogger))
	r.Use(middleware.ErrorHandler(zapLogger))
	r.Use(middleware.SecurityHeaders(cfg.EnableHSTS))
	r.Use(middleware.CORS(cfg.AllowedOrigins(), zapLogger))
	r.Use(middleware.MaxRequestSize(middleware.DefaultMaxRequestSize))
	r.Use(middleware.ContentType)
	r.Use(middleware.Timeout(cfg.RequestTimeout))

	r.HandleFunc("/healthz", healthChecker.HealthCheck).Methods("GET")
	openAPIHandler.RegisterRoutes(r)

	apiRouter := r.PathPrefix("/api/v1").Subrouter()
	apiRouter.Use(middleware.Auth(tokens, userRepo, zapLogger))
	apiRouter.Use(apiLimiter.Middleware())

	authHandler.RegisterRoutes(apiRouter.PathPrefix("/auth").Subrouter())
	draftHandler.RegisterRoutes(apiRouter.PathPrefix("/drafts").Subrouter(), convertLimiter.Middleware())
	metricsHandler.RegisterRoutes(apiRouter.PathPrefix("/metrics").Subrouter())
	extensionHandler.RegisterRoutes(apiRouter.PathPrefix("/extension").Subrouter())

	// Preflight requests are answered by the CORS middleware before routing
	r.Methods("OPTIONS").HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		// Conversion retries can take most of the request timeout
		WriteTimeout:   cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	go apiLimiter.Start(ctx)
	go convertLimiter.Start(ctx)

	if dlqPurger, ok := jobQueue.(queue.DLQPurger); ok {
		dlqGC := queue.NewGarbageCollector(dlqPurger, cfg.DLQGCInterval, cfg.DLQRetention, zapLogger)
		go func() {
			if err := dlqGC.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				zapLogger.Error("dlq_garbage_collector_stopped_with_error", zap.Error(err))
			}
		}()
		zapLogger.Info("started_dlq_garbage_collector",
			zap.Duration("interval", cfg.DLQGCInterval),
			zap.Duration("retention", cfg.DLQRetention),
		)
	}

	go func() {
		zapLogger.Info("server_starting", zap.String("port", cfg.ServerPort))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLogger.Fatal("server_failed_to_start", zap.Error(err))
		}
	}()

	<-ctx.Done()
	zapLogger.Info("server_shutting_down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLogger.Error("server_forced_to_shutdown", zap.Error(err))
	}

	zapLogger.Info("server_exited")
}

// connectRabbitMQ retries with exponential backoff to ride out broker startup
func connectRabbitMQ(ctx context.Context, url string, zapLogger *zap.Logger) queue.JobQueue {
	var lastErr error
	for attempt := 0; attempt < rabbitMQMaxRetries; attempt++ {
		q, err := queue.NewRabbitMQQueue(url, zapLogger)
		if err == nil {
			zapLogger.Info("connected_to_rabbitmq")
			return q
		}
		lastErr = err

		delay := rabbitMQInitialDelay * time.Duration(1<<uint(attempt))
		if delay > 30*time.Second {
			delay = 30 * time.Second
		}
		zapLogger.Warn("failed_to_connect_to_rabbitmq_retrying",
			zap.Int("attempt", attempt+1),
			zap.Int("max_retries", rabbitMQMaxRetries),
			zap.Duration("retry_delay", delay),
			zap.Error(err),
		)
		select {
		case <-ctx.Done():
			zapLogger.Fatal("shutdown_while_connecting_to_rabbitmq")
		case <-time.After(delay):
		}
	}
	zapLogger.Fatal("failed_to_connect_to_rabbitmq_after_retries",
		zap.Int("max_retries", rabbitMQMaxRetries),
		zap.Error(lastErr),
	)
	return nil
}
