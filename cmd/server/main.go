package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"gorm.io/gorm"

	"github.com/Skotchmaster/tg_landing/internal/cache"
	"github.com/Skotchmaster/tg_landing/internal/config"
	"github.com/Skotchmaster/tg_landing/internal/conversions"
	"github.com/Skotchmaster/tg_landing/internal/httpserver"
	"github.com/Skotchmaster/tg_landing/internal/metrics"
	"github.com/Skotchmaster/tg_landing/internal/mykafka"
	"github.com/Skotchmaster/tg_landing/internal/repo"
	"github.com/Skotchmaster/tg_landing/internal/search"
	"github.com/Skotchmaster/tg_landing/internal/service"
	"github.com/Skotchmaster/tg_landing/internal/storage"
	pkgdb "github.com/Skotchmaster/tg_landing/pkg/db"
	"github.com/Skotchmaster/tg_landing/pkg/logging"
	"github.com/Skotchmaster/tg_landing/pkg/middleware/csrf"
	loggingmw "github.com/Skotchmaster/tg_landing/pkg/middleware/logging"
	"github.com/Skotchmaster/tg_landing/pkg/middleware/ratelimit"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.LogLevel).With("service", cfg.ServiceName)
	slog.SetDefault(logger)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	db, err := config.InitDB(ctx, cfg)
	cancel()
	if err != nil {
		log.Fatalf("db open: %v", err)
	}

	r := &repo.GormRepo{DB: db}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	events := newPublisher(cfg, logger)
	channelCache := newCache(cfg, logger)
	index := newIndex(cfg, logger)

	backend, publicURL, uploadDir := newStorage(cfg)
	logos := storage.NewLogoStore(backend, publicURL)

	authSvc := &service.AuthService{Repo: r, Secret: cfg.SessionSecret, SessionTTL: cfg.SessionTTL, Events: events}
	ctx, cancel = context.WithTimeout(context.Background(), 10*time.Second)
	created, err := authSvc.EnsureAdmin(ctx, cfg.AdminUsername, cfg.AdminPassword)
	cancel()
	if err != nil {
		log.Fatalf("bootstrap admin: %v", err)
	}
	if created {
		logger.Info("admin_bootstrapped", "username", cfg.AdminUsername)
	}

	channelSvc := &service.ChannelService{Repo: r, Logos: logos, Cache: channelCache, Events: events, Metrics: m}
	if index != nil {
		channelSvc.Index = index
	}

	trackingSvc := &service.TrackingService{
		Repo:    r,
		Sender:  conversions.NewClient(cfg.GraphAPIURL, cfg.GraphAPIVersion, cfg.GraphAPITimeout),
		Events:  events,
		Metrics: m,
	}

	e := echo.New()
	e.HideBanner = true
	e.Pre(echomw.RemoveTrailingSlash())
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(loggingmw.RequestLogger(logger))
	e.Use(m.Middleware())
	if len(cfg.CORSOrigins) > 0 {
		e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
			AllowOrigins:     cfg.CORSOrigins,
			AllowCredentials: true,
		}))
	} else {
		e.Use(echomw.CORS())
	}
	e.Use(echomw.BodyLimit(bodyLimit(cfg.MaxLogoBytes)))

	deps := &httpserver.Deps{
		Auth:          &httpserver.AuthHTTP{Svc: authSvc, CookieSecure: cfg.CookieSecure},
		Pixel:         &httpserver.PixelHTTP{Svc: &service.PixelService{Repo: r}},
		Channels:      &httpserver.ChannelHTTP{Svc: channelSvc, MaxLogoBytes: cfg.MaxLogoBytes},
		Tracking:      &httpserver.TrackingHTTP{Svc: trackingSvc},
		SessionSecret: cfg.SessionSecret,
		CookieSecure:  cfg.CookieSecure,
		TrackLimiter:  ratelimit.NewStore(cfg.TrackRPS, cfg.TrackBurst),
		Gatherer:      reg,
		UploadDir:     uploadDir,
		Ready:         dbReady(db),
	}
	if cfg.CSRFEnabled {
		csrfCfg := csrf.DefaultConfig()
		csrfCfg.Secure = cfg.CookieSecure
		deps.CSRF = &csrfCfg
	}
	httpserver.Register(e, deps)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           e,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		ReadHeaderTimeout: 3 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info("server_listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	logger.Info("shutting_down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server_shutdown_failed", "error", err)
	}
	if err := events.Close(); err != nil {
		logger.Error("kafka_close_failed", "error", err)
	}
	if err := channelCache.Close(); err != nil {
		logger.Error("cache_close_failed", "error", err)
	}
	if err := pkgdb.Close(db); err != nil {
		logger.Error("db_close_failed", "error", err)
	}

	logger.Info("shutdown_complete")
}

func newPublisher(cfg *config.Config, logger *slog.Logger) mykafka.Publisher {
	if len(cfg.KafkaBrokers) == 0 {
		logger.Info("kafka_disabled")
		return mykafka.Nop{}
	}
	p, err := mykafka.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopic)
	if err != nil {
		log.Fatalf("kafka producer: %v", err)
	}
	return p
}

func newCache(cfg *config.Config, logger *slog.Logger) cache.ChannelCache {
	if cfg.RedisAddr == "" {
		return cache.NewLRU(cfg.CacheSize, cfg.CacheTTL)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	c, err := cache.NewRedis(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.CacheTTL)
	if err != nil {
		log.Fatalf("redis: %v", err)
	}
	logger.Info("cache_redis", "addr", cfg.RedisAddr)
	return c
}

// newIndex returns nil when Elasticsearch is not configured; search then runs in SQL.
func newIndex(cfg *config.Config, logger *slog.Logger) *search.ChannelIndex {
	if cfg.ESURL == "" {
		logger.Info("search_sql_only")
		return nil
	}
	es, err := search.NewClient(search.ClientConfig{URL: cfg.ESURL, User: cfg.ESUser, Password: cfg.ESPassword}, logger)
	if err != nil {
		logger.Error("es_unavailable", "error", err)
		return nil
	}
	return search.NewChannelIndex(es, cfg.ESIndex)
}

// newStorage returns the provider, its public URL prefix and the directory to serve
// statically (empty for S3).
func newStorage(cfg *config.Config) (storage.Provider, string, string) {
	if cfg.StorageProvider == "s3" {
		p, err := storage.NewS3Provider(storage.S3Options{
			Bucket:    cfg.S3.Bucket,
			Region:    cfg.S3.Region,
			Endpoint:  cfg.S3.Endpoint,
			AccessKey: cfg.S3.AccessKey,
			SecretKey: cfg.S3.SecretKey,
		})
		if err != nil {
			log.Fatalf("s3: %v", err)
		}
		return p, cfg.S3.PublicURL, ""
	}

	p, err := storage.NewLocalProvider(cfg.UploadDir)
	if err != nil {
		log.Fatalf("upload dir: %v", err)
	}
	return p, "/uploads", cfg.UploadDir
}

func bodyLimit(maxLogo int64) string {
	mb := maxLogo>>20 + 1
	return strconv.FormatInt(mb, 10) + "M"
}

func dbReady(db *gorm.DB) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.PingContext(ctx)
	}
}
