package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	ecM "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/Skotchmaster/staffhub/internal/config"
	"github.com/Skotchmaster/staffhub/internal/db"
	"github.com/Skotchmaster/staffhub/internal/es"
	"github.com/Skotchmaster/staffhub/internal/events"
	"github.com/Skotchmaster/staffhub/internal/handlers"
	"github.com/Skotchmaster/staffhub/internal/hash"
	"github.com/Skotchmaster/staffhub/internal/logging"
	"github.com/Skotchmaster/staffhub/internal/metrics"
	"github.com/Skotchmaster/staffhub/internal/middleware"
	"github.com/Skotchmaster/staffhub/internal/mykafka"
	"github.com/Skotchmaster/staffhub/internal/repo"
	"github.com/Skotchmaster/staffhub/internal/service"
	"github.com/Skotchmaster/staffhub/internal/tokens"
	httpserver "github.com/Skotchmaster/staffhub/internal/transport/http"
)

func main() {
	cfg := config.Load()
	l := logging.New(cfg.ServiceName, cfg.LogLevel)
	slog.SetDefault(l)

	if err := run(cfg, l); err != nil {
		l.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, l *slog.Logger) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	initCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	gdb, err := db.Open(initCtx, db.Options{
		Driver:      cfg.DBDriver,
		DSN:         cfg.DatabaseURL,
		AutoMigrate: true,
		LogLevel:    logger.Warn,
	})
	cancel()
	if err != nil {
		return fmt.Errorf("db init: %w", err)
	}
	defer func() {
		if err := db.Close(gdb); err != nil {
			l.Error("db close error", "error", err)
		}
	}()

	codec, err := tokens.NewCodec(tokens.Config{
		AccessSecret:  cfg.JWTAccessSecret,
		RefreshSecret: cfg.JWTRefreshSecret,
		AccessTTL:     cfg.JWTAccessTTL,
		RefreshTTL:    cfg.JWTRefreshTTL,
	})
	if err != nil {
		return err
	}

	sinks := events.Multi{}
	var audit *es.AuditSink

	if len(cfg.KafkaBrokers) > 0 {
		prod, err := mykafka.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopic)
		if err != nil {
			return fmt.Errorf("kafka producer: %w", err)
		}
		defer func() {
			if err := prod.Close(); err != nil {
				l.Error("kafka close error", "error", err)
			}
		}()
		sinks = append(sinks, prod)
		l.Info("kafka events enabled", "topic", cfg.KafkaTopic)
	}

	if cfg.ESURL != "" {
		client, err := es.NewClient(es.Config{URL: cfg.ESURL, User: cfg.ESUser, Password: cfg.ESPassword})
		if err != nil {
			return err
		}
		pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err = es.Ping(pingCtx, client)
		cancel()
		if err != nil {
			l.Warn("elasticsearch unavailable, audit disabled", "error", err)
		} else {
			audit = &es.AuditSink{Client: client, Index: cfg.ESAuditIndex}
			sinks = append(sinks, audit)
			l.Info("audit index enabled", "index", cfg.ESAuditIndex)
		}
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	identities := &repo.GormRepo{DB: gdb}
	hasher := hash.Default()

	authSvc := &service.AuthService{
		Repo:    identities,
		Hasher:  hasher,
		Tokens:  codec,
		Events:  sinks,
		Metrics: metrics.NewAuth(reg),
	}
	userSvc := &service.UserService{
		Repo:   identities,
		Hasher: hasher,
		Events: sinks,
	}
	if audit != nil {
		userSvc.Audit = audit
	}

	extractIP, err := middleware.ClientIPExtractor(cfg.TrustedProxies)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	e := echo.New()
	e.HideBanner = true
	e.IPExtractor = extractIP
	e.Server.ReadTimeout = 10 * time.Second
	e.Server.WriteTimeout = 15 * time.Second
	e.Server.ReadHeaderTimeout = 3 * time.Second
	e.Pre(ecM.RemoveTrailingSlash())
	e.Use(ecM.Recover(), ecM.RequestID(), ecM.Secure(), middleware.RequestLogger(l))

	deps := &httpserver.Deps{
		AuthHandler: &handlers.AuthHandler{
			Auth:   authSvc,
			Cookie: handlers.CookieConfig{Name: cfg.RefreshCookieName, Secure: cfg.Production()},
		},
		UserHandler: &handlers.UserHandler{Users: userSvc},
		Validator:   authSvc,
		Ready: func(ctx context.Context) error {
			return readiness(ctx, gdb)
		},
		Metrics: metrics.Handler(reg),
	}
	if cfg.CSRFEnabled {
		csrf := middleware.DefaultCSRFConfig()
		csrf.Secure = cfg.Production()
		deps.CSRF = &csrf
	}
	if cfg.AuthRatePerSecond > 0 {
		lim := middleware.NewIPLimiter(cfg.AuthRatePerSecond, cfg.AuthRateBurst)
		deps.Limiter = lim
		sweepCtx, stopSweep := context.WithCancel(context.Background())
		defer stopSweep()
		go sweepLimiter(sweepCtx, lim)
	}
	httpserver.Register(e, deps)

	addr := fmt.Sprintf(":%d", cfg.ServerPort)
	errCh := make(chan error, 1)
	go func() {
		l.Info("listening", "addr", addr, "env", cfg.Env)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	}

	l.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		l.Error("server shutdown error", "error", err)
	}
	l.Info("shutdown complete")
	return nil
}

func sweepLimiter(ctx context.Context, lim *middleware.IPLimiter) {
	t := time.NewTicker(time.Minute)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			lim.Sweep(now)
		}
	}
}

func readiness(ctx context.Context, gdb *gorm.DB) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return db.Ping(ctx, gdb)
}
