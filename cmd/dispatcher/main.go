package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"tradepool/internal/broker"
	"tradepool/internal/broker/upstox"
	"tradepool/internal/bus"
	"tradepool/internal/config"
	cronrunner "tradepool/internal/cron"
	"tradepool/internal/db"
	"tradepool/internal/dispatcher"
	"tradepool/internal/execution"
	"tradepool/internal/handler"
	"tradepool/internal/logger"
	gormrepository "tradepool/internal/repository/gorm"
)

func main() {
	cfgPath := os.Getenv("TP_CONFIG")
	if cfgPath == "" {
		cfgPath = "config/config.yaml"
	}

	envOnly := false
	if envOnlyRaw := os.Getenv("TP_ENV_ONLY"); envOnlyRaw != "" {
		envOnly = strings.EqualFold(envOnlyRaw, "true") || envOnlyRaw == "1"
	}

	cfg, err := config.Load(cfgPath, envOnly)
	if err != nil {
		panic(err)
	}

	logger, err := logger.New(cfg.Log)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	dbConn, err := db.Open(cfg.DB)
	if err != nil {
		logger.Fatal("db open failed", zap.Error(err))
	}
	defer db.Close(dbConn)

	if err := db.SetTimezone(dbConn, cfg.DB.Timezone); err != nil {
		logger.Warn("failed to set timezone", zap.Error(err))
	}
	if err := db.AutoMigrate(dbConn); err != nil {
		logger.Fatal("auto-migrate failed", zap.Error(err))
	}

	store := gormrepository.New(dbConn.Gorm)

	var brk broker.Broker
	if strings.EqualFold(cfg.Broker.Name, "simulator") {
		brk = broker.NewSimulator()
		logger.Warn("running against the order simulator, no real orders will be placed")
	} else {
		token := os.Getenv(cfg.Broker.AccessTokenEnv)
		if token == "" {
			logger.Fatal("brokerage access token missing",
				zap.String("env", cfg.Broker.AccessTokenEnv))
		}
		brk = upstox.NewClient(&http.Client{Timeout: cfg.Broker.Timeout}, cfg.Broker, token)
	}

	publisher := bus.NewKafkaPublisher(cfg.Kafka)
	defer publisher.Close()

	engine := &execution.Engine{
		Repo:   store,
		Broker: brk,
		Bus:    publisher,
		Logger: logger,
	}

	consumer := bus.NewConsumer(cfg.Kafka)
	defer consumer.Close()

	disp := &dispatcher.Dispatcher{
		Consumer: consumer,
		Handler:  engine,
		Logger:   logger,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cronRunner := cronrunner.New(logger, ctx)
	if cfg.Cron.Enabled {
		_, err := cronRunner.Add(cfg.Cron.ProtectionSweep, func(ctx context.Context) {
			engine.SweepUnprotected(ctx, cfg.Sweep.BatchSize)
		})
		if err != nil {
			logger.Warn("cron register protection sweep failed", zap.Error(err))
		}
		cronRunner.Start()
		defer cronRunner.Stop()
	}

	srv := &http.Server{
		Addr:    cfg.Server.HTTPAddr,
		Handler: handler.NewRouter(&handler.HealthHandler{DB: dbConn.Gorm}),
	}

	errCh := make(chan error, 2)

	go func() {
		logger.Info("http server starting", zap.String("addr", cfg.Server.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	go func() {
		logger.Info("dispatcher starting",
			zap.Strings("brokers", cfg.Kafka.Brokers),
			zap.String("topic", cfg.Kafka.SignalsTopic),
			zap.String("group", cfg.Kafka.GroupID))
		if err := disp.Run(ctx); err != nil {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown requested")
	case err := <-errCh:
		logger.Error("server error", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}
