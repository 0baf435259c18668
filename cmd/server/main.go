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
    "github.com/prometheus/client_golang/prometheus"

    "github.com/Frankish0014/EXPRESSGO-PROJECT-sub000/internal/config"
    "github.com/Frankish0014/EXPRESSGO-PROJECT-sub000/internal/database"
    "github.com/Frankish0014/EXPRESSGO-PROJECT-sub000/internal/handler"
    "github.com/Frankish0014/EXPRESSGO-PROJECT-sub000/internal/logger"
    "github.com/Frankish0014/EXPRESSGO-PROJECT-sub000/internal/metrics"
    "github.com/Frankish0014/EXPRESSGO-PROJECT-sub000/internal/queue"
    "github.com/Frankish0014/EXPRESSGO-PROJECT-sub000/internal/repository"
    "github.com/Frankish0014/EXPRESSGO-PROJECT-sub000/internal/router"
    "github.com/Frankish0014/EXPRESSGO-PROJECT-sub000/internal/service"
)

func main() {
    cfg := config.Load()
    log := logger.New(cfg.LogLevel)
    defer func() { _ = log.Sync() }()

    db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
    if err != nil {
        log.Fatal("database unavailable", "error", err)
    }
    defer db.Close()
    if cfg.AutoMigrate {
        if err := database.Migrate(context.Background(), db); err != nil {
            log.Fatal("schema migration failed", "error", err)
        }
        log.Info("schema migrated")
    }

    rdb := config.NewRedisClient()
    if rdb == nil {
        log.Warn("redis unreachable, caching and rate limiting disabled")
    } else {
        defer rdb.Close()
    }

    m := metrics.New("busticket", prometheus.DefaultRegisterer)

    schedules := repository.NewScheduleRepo(db)
    trips := repository.NewTripRepo(db)
    bookings := repository.NewBookingRepo(db)

    runner := service.NewTxRunner(db, cfg.Booking.TxAttempts, log, m)
    ledger := service.NewTripLedger(runner, schedules, trips, bookings, cfg.Booking.TripCreateAttempts, log, m)
    cache := service.NewSeatMapCache(rdb, cfg.Booking.SeatMapTTL, log)
    oracle := service.NewSeatOracle(schedules, trips, bookings, cache, log)

    var notifier service.Notifier
    if cfg.Notify {
        notifier = queue.NewPublisher(cfg.AMQPURL, log)
    }
    engine := service.NewEngine(service.EngineDeps{
        Tx: runner, Schedules: schedules, Trips: trips, Bookings: bookings,
        Ledger: ledger, Oracle: oracle, Codes: service.NewCodeGenerator(nil, nil),
        Notifier: notifier, Cache: cache, Log: log, Metrics: m, MaxLegs: cfg.Booking.MaxLegs,
    })

    ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
    defer stop()

    if cfg.Consume {
        consumer := queue.NewConsumer(cfg.AMQPURL, queue.NewLogMailer("logs", log), log)
        go func() {
            if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
                log.Error("booking event consumer stopped", "error", err)
            }
        }()
    }

    e := echo.New()
    e.HideBanner = true
    e.Use(echomw.Recover())
    e.Use(echomw.RequestID())
    router.Register(e, router.Deps{
        JWTSecret:    cfg.JWTSecret,
        Redis:        rdb,
        RateLimit:    config.LoadRateLimitConfig(),
        Cache:        config.LoadCacheConfig(),
        Gatherer:     prometheus.DefaultGatherer,
        Log:          log,
        Ready:        handler.Ready(db),
        Bookings:     handler.NewBookingHandler(engine, log),
        Availability: handler.NewAvailabilityHandler(oracle, log),
        Admin:        handler.NewAdminHandler(engine, ledger, log),
    })

    addr := ":" + cfg.Port
    go func() {
        log.Info("listening", "addr", addr, "env", cfg.Env)
        if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
            log.Fatal("http server failed", "error", err)
        }
    }()

    <-ctx.Done()
    shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
    defer cancel()
    if err := e.Shutdown(shutdownCtx); err != nil {
        log.Error("http shutdown", "error", err)
    }
    log.Info("stopped")
}
