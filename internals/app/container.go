package app

import (
	"context"
	"errors"
	"fmt"

	"pulsewatch/config"
	middle "pulsewatch/internals/middleware"
	"pulsewatch/internals/modules/alert"
	"pulsewatch/internals/modules/channel"
	"pulsewatch/internals/modules/executor"
	"pulsewatch/internals/modules/history"
	"pulsewatch/internals/modules/monitor"
	"pulsewatch/internals/modules/result"
	"pulsewatch/internals/modules/scheduler"
	"pulsewatch/internals/modules/status"
	"pulsewatch/internals/modules/user"
	"pulsewatch/internals/security"
	"pulsewatch/pkg/httpclient"
	"pulsewatch/pkg/logger"
	"pulsewatch/pkg/natsbus"
	"pulsewatch/pkg/rabbitmq"
	"pulsewatch/pkg/redisstore"
	"pulsewatch/pkg/utils"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

type Container struct {
	Config *config.Config
	DB     *pgxpool.Pool
	Logger *zerolog.Logger

	redisClient  *redisstore.Client
	rmqConn      *amqp091.Connection
	rmqPublisher *rabbitmq.Publisher
	natsPub      *natsbus.Publisher

	userHandler    *user.Handler
	monitorHandler *monitor.Handler
	channelHandler *channel.Handler
	authMW         *middle.AuthMiddleware

	scheduler  *scheduler.Scheduler
	executor   *executor.Executor
	processor  *result.Processor
	dispatcher *alert.Dispatcher
	janitor    *history.Janitor
}

func NewContainer(ctx context.Context, db *pgxpool.Pool, cfg *config.Config, log *zerolog.Logger) (_ *Container, err error) {
	c := &Container{
		Config: cfg,
		DB:     db,
		Logger: log,
	}
	// release whatever was opened before the failure
	defer func() {
		if err != nil {
			c.closeInfra()
		}
	}()

	validate := utils.NewValidator()

	// history
	var store history.Store
	switch cfg.History.Backend {
	case "memory":
		store = history.NewMemoryStore()
	default:
		store = history.NewPostgresStore(db, logger.Component(log, "history"))
	}
	aggregator := status.NewAggregator(store, cfg.Status.DownThreshold, cfg.Status.Window)

	// alert state and monitor cache
	var (
		alertState   alert.StateStore = alert.NewMemoryStateStore()
		monitorCache monitor.Cache    = monitor.NopCache{}
	)
	if cfg.Redis.URL != "" {
		c.redisClient, err = redisstore.New(&cfg.Redis)
		if err != nil {
			return nil, fmt.Errorf("redis: %w", err)
		}
		alertState = c.redisClient.AlertStateStore(cfg.Retention.Window)
		monitorCache = c.redisClient.MonitorCache(cfg.Redis.MonitorTTL)
		log.Info().Msg("redis alert state and monitor cache enabled")
	}

	// notifiers
	var fallback alert.Notifier = alert.NewLogNotifier(logger.Component(log, "notifier"))
	if cfg.RabbitMQ.BrokerLink != "" {
		c.rmqConn, err = rabbitmq.NewConnection(&cfg.RabbitMQ, log)
		if err != nil {
			return nil, fmt.Errorf("rabbitmq: %w", err)
		}
		keys := []string{string(channel.TypeEmail), string(channel.TypeSMS), string(channel.TypeCall)}
		if err = rabbitmq.SetupTopology(c.rmqConn, &cfg.RabbitMQ, keys...); err != nil {
			return nil, fmt.Errorf("rabbitmq topology: %w", err)
		}
		c.rmqPublisher, err = rabbitmq.NewPublisher(c.rmqConn, cfg.RabbitMQ.ExchangeName)
		if err != nil {
			return nil, fmt.Errorf("rabbitmq publisher: %w", err)
		}
		fallback = alert.NewQueueNotifier(c.rmqPublisher)
		log.Info().Str("exchange", cfg.RabbitMQ.ExchangeName).Msg("alerts routed through rabbitmq")
	}
	router := alert.NewRouter(fallback).
		Register(alert.NewSlackNotifier(httpclient.NewHttpClient(cfg.Alert.SendTimeout)), channel.TypeSlack)

	// channels and alerts
	channelRepo := channel.NewRepository(db, logger.Component(log, "channel"))
	channelSvc := channel.NewService(channelRepo, validate)

	c.dispatcher = alert.NewDispatcher(
		&cfg.Alert,
		alertState,
		channelRepo,
		router,
		logger.Component(log, "alert"),
		alert.WithRecorder(alert.NewRepository(db, logger.Component(log, "alert"))),
	)

	// monitors and the check pipeline
	jobChan := make(chan scheduler.JobPayload, cfg.Scheduler.JobBuffer)
	resultChan := make(chan history.CheckResult, cfg.Result.Buffer)

	monitorRepo := monitor.NewRepository(db, logger.Component(log, "monitor"))

	// the scheduler and the monitor service reference each other
	var monitorSvc *monitor.Service
	c.scheduler = scheduler.NewScheduler(
		schedulableFunc(func(ctx context.Context) ([]monitor.Monitor, error) {
			return monitorSvc.ListSchedulable(ctx)
		}),
		jobChan,
		cfg.Scheduler.TickInterval,
		logger.Component(log, "scheduler"),
	)
	monitorSvc = monitor.NewService(
		monitorRepo,
		monitorCache,
		channelRepo,
		c.scheduler,
		store,
		aggregator,
		c.dispatcher,
		cfg.Retention.HardDelete,
		logger.Component(log, "monitor"),
	)

	c.executor = executor.NewExecutor(
		&cfg.Executor,
		jobChan,
		resultChan,
		httpclient.NewHttpClient(cfg.Executor.Timeout),
		logger.Component(log, "executor"),
	)

	var events result.EventPublisher = natsbus.Nop{}
	if cfg.NATS.URL != "" {
		c.natsPub, err = natsbus.NewPublisher(cfg.NATS.URL, cfg.ServiceName, log)
		if err != nil {
			return nil, fmt.Errorf("nats: %w", err)
		}
		events = c.natsPub
	}

	c.processor = result.NewProcessor(
		&cfg.Result,
		resultChan,
		store,
		monitorSvc,
		aggregator,
		c.dispatcher,
		c.scheduler,
		events,
		cfg.NATS.Subject,
		logger.Component(log, "result"),
	)

	c.janitor = history.NewJanitor(store, cfg.Retention.Window, cfg.Retention.Sweep, logger.Component(log, "janitor"))

	// users and auth
	tokenSvc := security.NewTokenService(&cfg.Auth)
	userSvc := user.NewService(user.NewRepository(db, logger.Component(log, "user")), tokenSvc)

	c.authMW = middle.NewAuthMiddleware(tokenSvc)
	c.userHandler = user.NewHandler(userSvc, validate)
	c.monitorHandler = monitor.NewHandler(monitorSvc, validate)
	c.channelHandler = channel.NewHandler(channelSvc, validate)

	return c, nil
}

type schedulableFunc func(ctx context.Context) ([]monitor.Monitor, error)

func (f schedulableFunc) ListSchedulable(ctx context.Context) ([]monitor.Monitor, error) {
	return f(ctx)
}

// Start launches the background pipeline. Consumers start before producers.
// Only the scheduler stops with ctx; the stages behind it keep running until
// Shutdown drains them.
func (c *Container) Start(ctx context.Context) error {
	workCtx := context.WithoutCancel(ctx)

	c.dispatcher.Start(workCtx)
	c.processor.Start(workCtx)
	c.executor.StartWorkers(workCtx)
	go c.scheduler.Run(ctx)

	if err := c.janitor.Start(workCtx); err != nil {
		return fmt.Errorf("retention janitor: %w", err)
	}
	return nil
}

// Shutdown drains the pipeline front to back, then closes infrastructure.
func (c *Container) Shutdown(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		defer close(done)

		c.scheduler.Stop()
		c.executor.Shutdown()
		c.processor.Wait()
		c.dispatcher.Shutdown()
		c.janitor.Stop()
	}()

	var err error
	select {
	case <-done:
	case <-ctx.Done():
		err = errors.New("pipeline did not drain before the shutdown deadline")
	}

	c.closeInfra()
	return err
}

func (c *Container) closeInfra() {
	if c.natsPub != nil {
		c.natsPub.Close()
	}
	if c.rmqPublisher != nil {
		if err := c.rmqPublisher.Close(); err != nil {
			c.Logger.Error().Err(err).Msg("rabbitmq publisher close failed")
		}
	}
	if c.rmqConn != nil {
		if err := c.rmqConn.Close(); err != nil {
			c.Logger.Error().Err(err).Msg("rabbitmq connection close failed")
		}
	}
	if c.redisClient != nil {
		if err := c.redisClient.Close(); err != nil {
			c.Logger.Error().Err(err).Msg("redis close failed")
		}
	}
	if c.DB != nil {
		c.DB.Close()
	}
}
