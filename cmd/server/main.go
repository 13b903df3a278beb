package main // Entry point package

import (
	"context"
	"errors"
	"io"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/resort-reservation/internal/cart"
	"github.com/iliyamo/resort-reservation/internal/config"
	"github.com/iliyamo/resort-reservation/internal/database"
	"github.com/iliyamo/resort-reservation/internal/document"
	"github.com/iliyamo/resort-reservation/internal/handler"
	"github.com/iliyamo/resort-reservation/internal/jobs"
	"github.com/iliyamo/resort-reservation/internal/logging"
	"github.com/iliyamo/resort-reservation/internal/middleware"
	"github.com/iliyamo/resort-reservation/internal/notify"
	"github.com/iliyamo/resort-reservation/internal/payment"
	"github.com/iliyamo/resort-reservation/internal/queue"
	"github.com/iliyamo/resort-reservation/internal/repository"
	"github.com/iliyamo/resort-reservation/internal/router"
	"github.com/iliyamo/resort-reservation/internal/service"
)

const sweepBatch = 100

func main() {
	_ = godotenv.Load() // .env is optional outside development
	cfg := config.Load()

	logger := logging.New(os.Stdout, logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat, AddSource: cfg.LogAddSource})
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Database
	db, err := database.Open(database.Options{
		Driver: cfg.DBDriver,
		User:   cfg.DBUser,
		Pass:   cfg.DBPass,
		Host:   cfg.DBHost,
		Port:   cfg.DBPort,
		Name:   cfg.DBName,
	})
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()
	if cfg.DBMigrate {
		if err := database.Migrate(ctx, db); err != nil {
			log.Fatalf("migrate: %v", err)
		}
		logger.Info("schema applied", "driver", cfg.DBDriver)
	}
	store := repository.NewSQLStore(db)

	// Redis backs carts, the menu cache and rate limits; all degrade without it.
	rdb := config.NewRedisClient()
	if rdb == nil {
		logger.Warn("redis unreachable: cart disabled, cache and rate limits off")
	} else {
		defer rdb.Close()
	}

	// Events
	brokerCfg := config.LoadBrokerConfig()
	events, closeEvents := newPublisher(brokerCfg, logger)
	defer closeEvents()
	if brokerCfg.Kind == config.BrokerRabbitMQ && brokerCfg.Consume {
		sink := &queue.TicketLog{Path: brokerCfg.TicketLog}
		go func() {
			if err := queue.StartTicketConsumer(ctx, brokerCfg.AMQPURL, sink, logger); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("ticket consumer stopped", "err", err)
			}
		}()
	}

	// Tickets and notifications
	var mailer notify.Notifier = notify.Discard{}
	if mailCfg := config.LoadMailConfig(); mailCfg.Configured() {
		mailer = notify.NewSMTPMailer(mailCfg, logger)
	} else {
		logger.Warn("smtp not configured, emails disabled")
	}
	deps := service.TicketDeps{
		Renderer: document.Renderer{Title: "Resort"},
		Files:    document.NewFileStore(cfg.TicketDir),
		Mailer:   mailer,
		Events:   events,
		Logger:   logger,
	}
	tickets := service.NewTicketIssuer(store, nil, deps)
	lifecycle := service.NewLifecycle(store, tickets, events, logger)
	paymentCfg := config.LoadPaymentConfig()
	registry := providers(paymentCfg, cfg.PaymentVerifyTimeout)
	gateway := service.NewGateway(registry, lifecycle, cfg.PaymentVerifyTimeout, logger)
	checkouts := service.NewCheckoutService(store, registry, paymentCfg.PublicBaseURL, logger)
	restaurant := service.NewRestaurantService(store, cartStore(rdb), deps)

	// Background jobs
	if cfg.CronEnabled {
		sched := jobs.NewScheduler(logger, 5*time.Minute)
		mustAdd(sched, jobs.TicketSweepSpec, "ticket-sweep", jobs.TicketSweep(tickets, sweepBatch, logger))
		mustAdd(sched, jobs.RemindersSpec, "stay-reminders", jobs.NewReminders(store, mailer, logger).Job())
		sched.Start()
		defer func() { <-sched.Stop().Done() }()
	}

	// HTTP
	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewRequestValidator()
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(requestLogger(logger))

	cacheCfg := config.LoadCacheConfig()
	purgeMenu := func(ctx context.Context) {
		if err := middleware.PurgeCache(ctx, rdb, cacheCfg.Prefix); err != nil {
			logger.Warn("menu cache purge failed", "err", err)
		}
	}

	errs := handler.DefaultErrors().WithLogger(logger)
	booking := handler.NewBookingHandler(service.NewAvailabilityChecker(store), service.NewCalendarService(store), lifecycle, tickets)
	booking.Errors = errs
	payments := handler.NewPaymentHandler(gateway, checkouts)
	payments.Errors = errs
	dining := handler.NewRestaurantHandler(restaurant)
	dining.Errors = errs
	admin := handler.NewAdminHandler(store, purgeMenu)
	admin.Errors = errs

	router.RegisterRoutes(e, router.Deps{
		JWTSecret:        cfg.JWTSecret,
		Booking:          booking,
		Payment:          payments,
		Restaurant:       dining,
		Admin:            admin,
		Ready:            handler.Ready(db),
		RateLimit:        middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb),
		WebhookRateLimit: middleware.NewTokenBucket(config.LoadWebhookRateLimitConfig(), rdb),
		MenuCache:        middleware.NewRedisCache(cacheCfg, rdb),
		CartSession:      middleware.CartSession(config.LoadCartConfig()),
	})

	addr := ":" + cfg.Port
	go func() {
		logger.Info("listening", "addr", addr, "env", cfg.Env)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown", "err", err)
	}
}

// providers registers every payment adapter.  Verification calls share
// one client bounded by the verify timeout.
func providers(pc config.PaymentConfig, timeout time.Duration) *payment.Registry {
	client := &http.Client{Timeout: timeout}
	return payment.NewRegistry(
		payment.NewWompi(payment.WompiConfig{PublicKey: pc.WompiPublicKey, EventsSecret: pc.WompiEventsSecret, BaseURL: pc.WompiBaseURL}, client),
		payment.NewEpayco(payment.EpaycoConfig{
			CustomerID: pc.EpaycoCustomerID,
			PKey:       pc.EpaycoPKey,
			PublicKey:  pc.EpaycoPublicKey,
			Test:       pc.EpaycoTest,
			BaseURL:    pc.EpaycoBaseURL,
		}, client),
		payment.NewMercadoPago(payment.MercadoPagoConfig{AccessToken: pc.MPAccessToken, WebhookSecret: pc.MPWebhookSecret, BaseURL: pc.MPBaseURL}, client),
	)
}

// newPublisher selects the event broker.  The returned func closes it.
func newPublisher(bc config.BrokerConfig, logger *slog.Logger) (queue.Publisher, func()) {
	var p interface {
		queue.Publisher
		io.Closer
	}
	switch bc.Kind {
	case config.BrokerRabbitMQ:
		p = queue.NewAMQPPublisher(bc.AMQPURL, logger)
	case config.BrokerKafka:
		if len(bc.KafkaBrokers) == 0 {
			logger.Warn("EVENT_BROKER=kafka without KAFKA_BROKERS, events disabled")
			return queue.NopPublisher{}, func() {}
		}
		p = queue.NewKafkaPublisher(bc.KafkaBrokers, bc.TopicPrefix)
	default:
		return queue.NopPublisher{}, func() {}
	}
	logger.Info("event broker", "kind", bc.Kind)
	return p, func() {
		if err := p.Close(); err != nil {
			logger.Warn("close event broker", "err", err)
		}
	}
}

func cartStore(rdb *redis.Client) cart.Store {
	cc := config.LoadCartConfig()
	return cart.NewRedisStore(rdb, cc.Prefix, cc.TTL)
}

func mustAdd(s *jobs.Scheduler, spec, name string, job jobs.Job) {
	if _, err := s.Add(spec, name, job); err != nil {
		log.Fatalf("schedule %s: %v", name, err)
	}
}

// requestLogger logs one line per request through slog.
func requestLogger(logger *slog.Logger) echo.MiddlewareFunc {
	return echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			attrs := []any{"method", v.Method, "uri", v.URI, "status", v.Status, "latency", v.Latency, "request_id", v.RequestID}
			if v.Error != nil {
				logger.Error("request", append(attrs, "err", v.Error)...)
				return nil
			}
			logger.Info("request", attrs...)
			return nil
		},
	})
}
