package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/Koyo-os/questionnaire-service/internal/entity"
	"github.com/Koyo-os/questionnaire-service/internal/handler"
	"github.com/Koyo-os/questionnaire-service/internal/loader"
	"github.com/Koyo-os/questionnaire-service/internal/presentation"
	"github.com/Koyo-os/questionnaire-service/internal/repository"
	"github.com/Koyo-os/questionnaire-service/internal/service"
	"github.com/Koyo-os/questionnaire-service/pkg/closer"
	"github.com/Koyo-os/questionnaire-service/pkg/config"
	"github.com/Koyo-os/questionnaire-service/pkg/health"
	"github.com/Koyo-os/questionnaire-service/pkg/logger"
	"github.com/Koyo-os/questionnaire-service/pkg/retrier"
	"github.com/Koyo-os/questionnaire-service/pkg/transport/casher"
	"github.com/Koyo-os/questionnaire-service/pkg/transport/consumer"
	"github.com/Koyo-os/questionnaire-service/pkg/transport/listener"
	"github.com/Koyo-os/questionnaire-service/pkg/transport/publisher"
	"github.com/gin-gonic/gin"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const configPath = "config.yaml"

func main() {
	cfg, err := config.Init(configPath)
	if err != nil {
		panic(err)
	}

	if err = logger.Init(cfg.Log); err != nil {
		panic(err)
	}

	defer logger.Sync()

	logger := logger.Get()

	if err = run(cfg, logger); err != nil {
		logger.Error("service stopped with error", zap.Error(err))
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *logger.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	retry := uint8(cfg.Retry.Count)
	closers := closer.NewCloserGroup()
	defer func() {
		if err := closers.Close(); err != nil {
			logger.Error("error close resources", zap.Error(err))
		}
	}()

	db, err := retrier.Connect(retry, cfg.Retry.Interval, func() (*gorm.DB, error) {
		return repository.Open(cfg.DB.Driver, cfg.DB.DSN)
	})
	if err != nil {
		logger.Error("error connect to database",
			zap.String("driver", cfg.DB.Driver),
			zap.Error(err))
		return err
	}

	repo := repository.Init(db, logger)
	closers.Add(repo)

	if err = repo.Migrate(); err != nil {
		logger.Error("error migrate database", zap.Error(err))
		return err
	}

	redisClient, err := retrier.Connect(retry, cfg.Retry.Interval, func() (*redis.Client, error) {
		return casher.Connect(ctx, cfg.Urls.Redis)
	})
	if err != nil {
		logger.Error("error connect to redis",
			zap.String("url", cfg.Urls.Redis),
			zap.Error(err))
		return err
	}

	cash := casher.Init(redisClient, logger, cfg.Cache.TTL)
	closers.Add(cash)

	conns, err := retrier.MultiConnects(2, func() (*amqp.Connection, error) {
		return amqp.Dial(cfg.Urls.Rabbitmq)
	}, &retrier.RetrierOpts{
		Count:    cfg.Retry.Count,
		Interval: cfg.Retry.Interval,
	}, func(conn *amqp.Connection) { conn.Close() })
	if err != nil {
		logger.Error("error connect to rabbitmq", zap.Error(err))
		return err
	}

	pub, err := publisher.Init(cfg, logger, conns[0])
	if err != nil {
		conns[1].Close()
		return err
	}
	closers.Add(pub)

	cons, err := consumer.Init(cfg, logger, conns[1])
	if err != nil {
		return err
	}
	closers.Add(cons)

	if err = cons.Subscribe(cfg.Exchange.Request, cfg.Reqs.SubmitRequestType, cfg.Queue.Request); err != nil {
		return err
	}

	svc := service.Init(cash, repo, pub, loader.New(cfg.Template.Path, logger), logger, service.Options{
		SuccessLocation: cfg.HTTP.SuccessLocation,
		Sanitize:        cfg.Submission.Sanitize,
		CacheRetry: retrier.RetrierOpts{
			Count:    cfg.Retry.Count,
			Interval: cfg.Retry.Interval,
		},
	})
	var workers sync.WaitGroup
	defer drain(stop, &workers, svc)

	events := make(chan entity.Event, 64)
	workers.Add(2)
	go func() {
		defer workers.Done()
		cons.ConsumeMessages(ctx, events)
	}()
	go func() {
		defer workers.Done()
		listener.Init(events, logger, cfg, svc, pub).Listen(ctx)
	}()

	renderer, err := presentation.NewRenderer()
	if err != nil {
		logger.Error("error load templates", zap.Error(err))
		return err
	}

	checker := health.NewHealthChecker(logger).
		Register("db", repo).
		Register("cache", cash).
		Register("publisher", pub).
		Register("consumer", cons)

	gin.SetMode(gin.ReleaseMode)
	server := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      handler.NewRouter(handler.New(svc, renderer, logger), checker, logger),
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("http server started", zap.String("addr", cfg.HTTP.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down...")
	case err = <-serveErr:
		logger.Error("http server failed", zap.Error(err))
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return server.Shutdown(shutdownCtx)
}

type waiter interface {
	Wait()
}

// drain stops the broker workers and waits for them before waiting on the
// service, so no submission can start background work after svc.Wait.
func drain(stop context.CancelFunc, workers *sync.WaitGroup, svc waiter) {
	stop()
	workers.Wait()
	svc.Wait()
}
