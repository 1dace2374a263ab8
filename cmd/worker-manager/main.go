// cmd/worker-manager/main.go
package main

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"immo-workers/internal/api"
	"immo-workers/internal/calculator"
	commonaws "immo-workers/internal/common/aws"
	"immo-workers/internal/common/cache"
	"immo-workers/internal/common/camunda"
	"immo-workers/internal/common/config"
	"immo-workers/internal/common/database"
	"immo-workers/internal/common/logger"
	"immo-workers/internal/common/observability"
	"immo-workers/internal/documents"
	"immo-workers/internal/ecosystem"
	"immo-workers/internal/history"
	"immo-workers/internal/notify"
	"immo-workers/internal/platform"
	"immo-workers/internal/wizard"
	runcalculator "immo-workers/internal/workers/calculation/run-calculator"
	senddocumentemail "immo-workers/internal/workers/communication/send-document-email"
	generatedocument "immo-workers/internal/workers/document/generate-document"
)

// retryWithBackoff runs operation until it succeeds, doubling the delay after
// each failure.
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

// worker is the part of a job handler main needs for lifecycle management.
type worker interface {
	Register() error
	Close()
	GetTaskType() string
	IsEnabled() bool
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		boot := logger.New("info", "console")
		boot.Fatal("config load failed", zap.Error(err))
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog).With(map[string]interface{}{"app": cfg.App.Name})

	zapLog.Info("Starting immo-workers", zap.String("environment", cfg.App.Environment))

	obs := observability.New(cfg.App.Name, observability.TracingOptions{
		OTLPEndpoint: cfg.Tracing.Endpoint,
		Insecure:     cfg.Tracing.Insecure,
		SampleRatio:  cfg.Tracing.SampleRatio,
	})
	defer obs.Shutdown()

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// --- Redis: sessions and read-through cache ---
	var redis *database.RedisClient
	err = retryWithBackoff(func() error {
		var err error
		redis, err = database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return err
		}
		return redis.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "Redis connection")
	if err != nil {
		zapLog.Fatal("redis failed after retries", zap.Error(err))
	}
	defer redis.Close()
	zapLog.Info("Redis connected successfully")

	// --- Platform ---
	client, err := platform.NewClient(platform.ClientOptions{
		Config:        cfg.Platform,
		Logger:        log,
		Observability: obs,
	})
	if err != nil {
		zapLog.Fatal("platform client init failed", zap.Error(err))
	}

	// --- History store ---
	var store history.Store
	var pg *database.PostgresClient
	schema := history.Schema(cfg.History.Schema)
	switch cfg.History.Backend {
	case config.HistoryBackendPostgres:
		err = retryWithBackoff(func() error {
			var err error
			pg, err = database.NewPostgres(cfg.Database.Postgres)
			if err != nil {
				return err
			}
			return pg.Ping(ctx)
		}, 15, 2*time.Second, zapLog, "PostgreSQL connection")
		if err != nil {
			zapLog.Fatal("postgres failed after retries", zap.Error(err))
		}
		defer pg.Close()
		zapLog.Info("PostgreSQL connected successfully")

		pgStore, err := history.NewPostgresStore(pg, cfg.History.Table, schema)
		if err != nil {
			zapLog.Fatal("history store init failed", zap.Error(err))
		}
		store = pgStore
	default:
		store = history.NewPlatformStore(client, schema)
	}

	// --- Notifications ---
	var mailer *notify.Email
	if cfg.Notifications.Email.Enabled {
		ses, err := commonaws.NewSESClient(ctx, cfg.Notifications.AWS.Region)
		if err != nil {
			zapLog.Fatal("ses client init failed", zap.Error(err))
		}
		mailer = notify.NewEmail(ses, cfg.Notifications.Email.FromEmail, log)
	}
	var events *notify.Events
	if cfg.Notifications.Events.Enabled {
		sns, err := commonaws.NewSNSClient(ctx, cfg.Notifications.AWS.Region)
		if err != nil {
			zapLog.Fatal("sns client init failed", zap.Error(err))
		}
		events = notify.NewEvents(sns, cfg.Notifications.Events.TopicARN, log)
	}

	// --- Services ---
	calculators := calculator.Default()
	calcService := calculator.NewService(calculators, log)
	historyService := history.NewService(store, cfg.History.Backend, calculators, log)
	ttl := time.Duration(cfg.Cache.TTL) * time.Second

	wizards := wizard.NewService(wizard.ServiceOptions{
		Registry:         wizard.DefaultRegistry(),
		Store:            wizard.NewRedisSessionStore(redis, time.Duration(cfg.Wizard.SessionTTL)*time.Second),
		Invoker:          client,
		Notifier:         mailer,
		Logger:           log,
		AutosaveInterval: config.GetDuration(cfg.Wizard.AutosaveInterval),
	})
	defer wizards.StopAll()

	docs := documents.NewService(documents.ServiceOptions{
		Invoker:  client,
		Entities: client,
		Notifier: events,
		Logger:   log,
		PageSize: cfg.Sharing.PageSize,
		CacheTTL: ttl,
	})

	eco := ecosystem.NewService(client, cache.New(redis, "eco", ttl, log))

	pollInterval := config.GetDuration(cfg.Sharing.PollInterval)
	poller := documents.NewSharePoller(docs, pollInterval, 10*pollInterval, log)
	go poller.Run(ctx)

	// --- HTTP API ---
	server := api.NewHTTPServer(cfg.HTTP, api.New(api.Options{
		Calculators: calcService,
		History:     historyService,
		Wizards:     wizards,
		Documents:   docs,
		Ecosystem:   eco,
		Auth:        client,
		Uploader:    client,
		Logger:      log,
		Timeout:     config.GetDuration(cfg.HTTP.WriteTimeout),
		Ready: func() error {
			pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if err := redis.Ping(pingCtx); err != nil {
				return err
			}
			if pg != nil {
				return pg.Ping(pingCtx)
			}
			return nil
		},
	}).Routes())

	go func() {
		zapLog.Info("HTTP server listening", zap.String("address", server.Addr))
		if err := server.ListenAndServe(); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			zapLog.Error("HTTP server failed", zap.Error(err))
		}
	}()

	// --- Zeebe workers ---
	var zeebe *camunda.Client
	var workers []worker
	if cfg.Camunda.Enabled {
		err = retryWithBackoff(func() error {
			var err error
			zeebe, err = camunda.NewClient(cfg.Camunda.BrokerAddress, config.GetDuration(cfg.Camunda.RequestTimeout))
			if err != nil {
				return err
			}
			return zeebe.HealthCheck(ctx)
		}, 10, 2*time.Second, zapLog, "Zeebe client initialization")
		if err != nil {
			zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
		}
		zapLog.Info("Zeebe client connected successfully")

		calcWorker, err := runcalculator.NewHandler(runcalculator.HandlerOptions{
			AppConfig:   cfg,
			Camunda:     zeebe,
			Calculators: calcService,
			History:     historyService,
			Logger:      log,
		})
		if err != nil {
			zapLog.Fatal("run-calculator init failed", zap.Error(err))
		}
		docWorker, err := generatedocument.NewHandler(generatedocument.HandlerOptions{
			AppConfig: cfg,
			Camunda:   zeebe,
			Generator: wizards,
			Logger:    log,
		})
		if err != nil {
			zapLog.Fatal("generate-document init failed", zap.Error(err))
		}

		candidates := []worker{calcWorker, docWorker}
		if mailer != nil {
			mailWorker, err := senddocumentemail.NewHandler(senddocumentemail.HandlerOptions{
				AppConfig: cfg,
				Camunda:   zeebe,
				Sender:    mailer,
				Logger:    log,
			})
			if err != nil {
				zapLog.Fatal("send-document-email init failed", zap.Error(err))
			}
			candidates = append(candidates, mailWorker)
		} else {
			zapLog.Info("Email disabled, not registering " + senddocumentemail.TaskType)
		}

		for _, w := range candidates {
			if !w.IsEnabled() {
				zapLog.Info("Worker disabled", zap.String("taskType", w.GetTaskType()))
				continue
			}
			if err := w.Register(); err != nil {
				zapLog.Fatal("worker registration failed", zap.String("taskType", w.GetTaskType()), zap.Error(err))
			}
			workers = append(workers, w)
			zapLog.Info("Worker registered", zap.String("taskType", w.GetTaskType()))
		}
	}

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, stopping...")
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error shutting down HTTP server", zap.Error(err))
	}
	for _, w := range workers {
		w.Close()
	}
	if zeebe != nil {
		if err := zeebe.Close(); err != nil {
			zapLog.Error("Error closing Zeebe client", zap.Error(err))
		}
	}

	zapLog.Info("immo-workers stopped gracefully")
}
