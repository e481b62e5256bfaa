package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	h "github.com/gorilla/handlers"
	"github.com/pressly/goose/v3"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/whilber-ai/alert-engine/internal/config"
	"github.com/whilber-ai/alert-engine/internal/dispatch"
	"github.com/whilber-ai/alert-engine/internal/handlers"
	"github.com/whilber-ai/alert-engine/internal/intake"
	"github.com/whilber-ai/alert-engine/internal/match"
	"github.com/whilber-ai/alert-engine/internal/metrics"
	"github.com/whilber-ai/alert-engine/internal/middleware"
	"github.com/whilber-ai/alert-engine/internal/migration"
	"github.com/whilber-ai/alert-engine/internal/models"
	"github.com/whilber-ai/alert-engine/internal/notification"
	"github.com/whilber-ai/alert-engine/internal/ratelimit"
	"github.com/whilber-ai/alert-engine/internal/registry"
	"github.com/whilber-ai/alert-engine/internal/repository"
	"github.com/whilber-ai/alert-engine/internal/routes"
	"github.com/whilber-ai/alert-engine/internal/sequencer"
	alerttemporal "github.com/whilber-ai/alert-engine/internal/temporal"
	"github.com/whilber-ai/alert-engine/internal/temporal/activities"
	"github.com/whilber-ai/alert-engine/internal/temporal/workflows"
	"github.com/whilber-ai/alert-engine/internal/worker"

	_ "github.com/lib/pq" // PostgreSQL driver
	tc "go.temporal.io/sdk/client"
	tw "go.temporal.io/sdk/worker"
)

type application struct {
	config         *config.Config
	db             *sql.DB
	temporalClient tc.Client
	logger         zerolog.Logger

	subscribers   repository.SubscriberRepository
	subscriptions repository.SubscriptionRepository
	events        repository.EventRepository
	notifications *notification.Service
	sequencer     *sequencer.Sequencer
}

func main() {
	// Set up structured, level-based logging.
	consoleWriter := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.Kitchen}
	logger := zerolog.New(consoleWriter).With().Timestamp().Logger()

	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	log.SetFlags(0)
	log.SetOutput(logger)

	temporalLogger := alerttemporal.NewZerologAdapter(logger)

	gooseAdapter := migration.NewGooseAdapter(logger)
	goose.SetLogger(gooseAdapter)

	// Load configuration.
	cfg := config.Load()

	// Initialize database connection.
	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to the database")
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		logger.Fatal().Err(err).Msg("Failed to ping database")
	}

	// Run database migrations.
	migration.RunMigrations(cfg.DatabaseURL, logger)

	metrics.Register()

	// Initialize Temporal client.
	temporalClient, err := tc.Dial(tc.Options{
		HostPort:  cfg.Temporal.HostPort,
		Namespace: cfg.Temporal.Namespace,
		Logger:    temporalLogger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("Unable to create Temporal client")
	}
	defer temporalClient.Close()

	app := &application{
		config:         cfg,
		db:             db,
		temporalClient: temporalClient,
		logger:         logger,

		subscribers:   repository.NewSubscriberRepository(db),
		subscriptions: repository.NewSubscriptionRepository(db),
		events:        repository.NewEventRepository(db),
	}
	app.notifications = notification.NewService(repository.NewNotificationRepository(db), logger)
	app.sequencer = sequencer.NewSequencer(app.events, logger)

	// Start the Temporal worker for channel delivery.
	temporalWorker := app.startTemporalWorker(logger)

	// Start the event pipeline and, when configured, the Kafka intake.
	pipelineCtx, stopPipeline := context.WithCancel(context.Background())
	defer stopPipeline()
	app.startPipeline(pipelineCtx, logger)

	var consumer *intake.Consumer
	if cfg.Kafka.Enabled {
		consumer = intake.NewConsumer(cfg.Kafka, app.sequencer, logger)
		go func() {
			if err := consumer.Run(pipelineCtx); err != nil {
				logger.Error().Err(err).Msg("Kafka intake terminated")
			}
		}()
	}

	// Initialize the HTTP router and middleware.
	router := app.initRouter(logger)
	loggedRouter := middleware.LoggingMiddleware(app.logger)(router)
	corsHandler := h.CORS(
		h.AllowedOrigins([]string{"http://localhost:3000"}),
		h.AllowedMethods([]string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
		h.AllowedHeaders([]string{"Content-Type", "Authorization"}),
		h.AllowCredentials(),
	)(loggedRouter)

	// Start the HTTP server and handle graceful shutdown.
	app.startServer(corsHandler, temporalWorker, stopPipeline, consumer, logger)

	logger.Info().Msg("Application terminated.")
}

// initRouter sets up all HTTP handlers and returns the router.
func (app *application) initRouter(logger zerolog.Logger) http.Handler {
	registryService := registry.NewService(app.subscriptions, app.subscribers, logger)

	authHandler := handlers.NewAuthHandler(app.db, app.config, logger)
	subscriptionHandler := handlers.NewSubscriptionHandler(registryService, logger)
	notificationHandler := handlers.NewNotificationHandler(app.notifications, logger)
	subscriberHandler := handlers.NewSubscriberHandler(app.subscribers, logger)
	eventHandler := handlers.NewEventHandler(app.sequencer, logger)

	return routes.NewRouter(authHandler, subscriptionHandler, notificationHandler, subscriberHandler, eventHandler)
}

// channelSenders assembles the per-channel delivery implementations used by
// the Temporal activities.
func (app *application) channelSenders(logger zerolog.Logger) map[models.Channel]notification.Sender {
	senders := map[models.Channel]notification.Sender{
		models.ChannelDesktop:   notification.NewDesktopSender(app.config.Push, logger),
		models.ChannelTelegram:  notification.NewTelegramSender(app.config.Telegram, logger),
		models.ChannelBroadcast: notification.NewBroadcastSender(app.config.Telegram, logger),
		models.ChannelWebhook:   notification.NewWebhookSender(10*time.Second, logger),
	}

	if app.config.Email.SMTPHost != "" {
		emailSender, err := notification.NewEmailSender(app.config.Email, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to configure email sender")
		}
		senders[models.ChannelEmail] = emailSender
	} else {
		logger.Warn().Msg("email sender not configured; email channel will report unavailable")
	}
	return senders
}

func (app *application) startTemporalWorker(logger zerolog.Logger) tw.Worker {
	activityImpl := &activities.Activities{
		Subscribers:   app.subscribers,
		Notifications: repository.NewNotificationRepository(app.db),
		Senders:       app.channelSenders(logger),
	}

	w := tw.New(app.temporalClient, alerttemporal.TaskQueueName, tw.Options{})

	w.RegisterWorkflow(workflows.DeliveryWorkflow)
	w.RegisterActivity(activityImpl)

	// Start the worker in a goroutine so it doesn't block.
	go func() {
		logger.Info().Msg("Starting Temporal worker...")
		if err := w.Run(tw.InterruptCh()); err != nil {
			logger.Fatal().Err(err).Msg("Unable to start worker")
		}
	}()

	return w
}

func (app *application) startPipeline(ctx context.Context, logger zerolog.Logger) {
	redisClient := redis.NewClient(&redis.Options{
		Addr:     app.config.Redis.Addr,
		Password: app.config.Redis.Password,
		DB:       app.config.Redis.DB,
	})
	limiter := ratelimit.NewLimiter(ratelimit.NewRedisCounter(redisClient), logger)
	dispatcher := dispatch.NewDispatcher(dispatch.NewTemporalStarter(app.temporalClient), logger)

	pipeline := worker.NewPipeline(worker.PipelineConfig{
		Events:        app.events,
		Subscriptions: app.subscriptions,
		Subscribers:   app.subscribers,
		Matcher:       match.NewEngine(logger),
		Limiter:       limiter,
		Notifications: app.notifications,
		Dispatcher:    dispatcher,
		PollInterval:  app.config.Pipeline.PollInterval,
		BatchSize:     app.config.Pipeline.BatchSize,
	}, app.sequencer.Wake(), logger)

	go func() {
		if err := pipeline.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error().Err(err).Msg("pipeline terminated")
		}
	}()
}

// startServer launches the HTTP server and handles graceful shutdown.
func (app *application) startServer(handler http.Handler, temporalWorker tw.Worker, stopPipeline context.CancelFunc, consumer *intake.Consumer, logger zerolog.Logger) {
	server := &http.Server{
		Addr:    ":" + app.config.ServerPort,
		Handler: handler,
	}

	// Channel to listen for server errors
	serverErrCh := make(chan error, 1)
	go func() {
		logger.Info().Msgf("Server listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrCh <- err
		}
	}()

	// Wait for an interrupt signal or a server error.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-quit:
		logger.Info().Msgf("Received signal: %s. Shutting down...", sig)
	case err := <-serverErrCh:
		logger.Error().Err(err).Msg("Server error occurred")
	}

	// Stop the pipeline and intake first so no new deliveries start.
	stopPipeline()
	if consumer != nil {
		if err := consumer.Close(); err != nil {
			logger.Error().Err(err).Msg("Kafka intake close error")
		}
	}

	// Gracefully shut down the HTTP server.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("HTTP server shutdown error")
	} else {
		logger.Info().Msg("HTTP server shutdown complete.")
	}

	// Stop the Temporal worker.
	logger.Info().Msg("Stopping Temporal worker...")
	temporalWorker.Stop()
	logger.Info().Msg("Temporal worker stopped.")
}
