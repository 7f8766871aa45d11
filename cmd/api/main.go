package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"samanvay/internal/adapter/document"
	httpadp "samanvay/internal/adapter/http"
	"samanvay/internal/adapter/middleware"
	"samanvay/internal/adapter/repository/mysql"
	"samanvay/internal/config"
	"samanvay/internal/geocode"
	"samanvay/internal/infrastructure/cache"
	"samanvay/internal/infrastructure/db"
	"samanvay/internal/infrastructure/mq"
	"samanvay/internal/task"
	ucAgency "samanvay/internal/usecase/agency"
	ucOutbox "samanvay/internal/usecase/outbox"
	ucProject "samanvay/internal/usecase/project"
	"samanvay/pkg/logger"
)

func main() {
	cfg := config.Load()
	log := logger.New(logger.Options{Level: cfg.LogLevel, File: cfg.LogFile})
	defer func() { _ = log.Sync() }()

	if err := cfg.Validate(); err != nil {
		log.Fatal("invalid config", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	gdb, err := openDB(cfg)
	if err != nil {
		log.Fatal("open database", zap.String("driver", cfg.DBDriver), zap.Error(err))
	}
	if err := db.Migrate(gdb); err != nil {
		log.Fatal("migrate", zap.Error(err))
	}

	projects := mysql.NewProjectRepository(gdb)
	agencies := mysql.NewAgencyRepository(gdb)
	events := mysql.NewOutboxRepository(gdb)
	tx := mysql.NewGormUoW(gdb)

	docs := document.NewFileGenerator(cfg.DocumentsDir, cfg.PublicBaseURL)
	projectUC := ucProject.NewUsecase(projects, tx).WithDocuments(docs).WithLogger(log)

	// publisher: AMQP when configured, otherwise the log
	var pub ucOutbox.Publisher = mq.LogPublisher{Log: log}
	if cfg.AMQPURL != "" {
		amqpPub, err := mq.NewAMQPPublisher(cfg.AMQPURL, cfg.AMQPExchange)
		if err != nil {
			log.Fatal("amqp", zap.Error(err))
		}
		defer amqpPub.Close()
		pub = amqpPub
	}
	dispatcher := ucOutbox.NewDispatcher(events, pub, log).
		WithInterval(cfg.OutboxInterval).
		WithBatchSize(cfg.OutboxBatchSize).
		WithMaxRetries(cfg.OutboxMaxRetries)
	go dispatcher.Start(ctx)

	tasks, err := task.NewManager(log)
	if err != nil {
		log.Fatal("scheduler", zap.Error(err))
	}
	if err := tasks.RegisterDelaySweep(projectUC, cfg.DelaySweep); err != nil {
		log.Fatal("register delay sweep", zap.Error(err))
	}
	tasks.Start()
	defer tasks.Stop()

	e := echo.New()
	e.HideBanner = true
	e.Validator = httpadp.NewValidator()
	e.Use(echomw.Recover(), middleware.RequestLogger(log), middleware.Metrics())

	deps := httpadp.Deps{
		Core:      httpadp.NewHandler(geocode.Default()),
		Projects:  httpadp.NewProjectHandler(projectUC),
		Documents: httpadp.NewDocumentHandler(cfg.DocumentsDir, projectUC),
		Agencies:  httpadp.NewAgencyHandler(ucAgency.NewUsecase(agencies)),
		Outbox:    httpadp.NewOutboxHandler(ucOutbox.NewService(events)),
		Auth:      middleware.Auth(cfg.JWTSecret),
	}
	// idempotency needs redis; run without it rather than refuse to start
	rdb, err := cache.OpenRedis(ctx, cfg.RedisAddr, cfg.RedisDB)
	if err != nil {
		log.Warn("redis unavailable, idempotency disabled", zap.String("addr", cfg.RedisAddr), zap.Error(err))
	} else {
		defer rdb.Close()
		deps.Idempotency = middleware.IdempotencyMiddleware(rdb, cfg.IdempotencyTTL(), log)
	}
	httpadp.Register(e, deps)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	addr := ":" + cfg.AppPort
	go func() {
		log.Info("listening", zap.String("addr", addr))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown", zap.Error(err))
	}
}

func openDB(cfg *config.Config) (*gorm.DB, error) {
	if cfg.DBDriver == config.DriverSQLite {
		return db.OpenSQLite(cfg.SQLitePath)
	}
	return db.OpenGorm(cfg.MySQLDSN())
}
