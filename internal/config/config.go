package config

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"
	"gorm.io/gorm"

	"github.com/Skotchmaster/tg_landing/internal/models"
	pkgconfig "github.com/Skotchmaster/tg_landing/pkg/config"
	pkgdb "github.com/Skotchmaster/tg_landing/pkg/db"
)

type S3Config struct {
	Bucket    string
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
	PublicURL string
}

type Config struct {
	ServiceName string
	Port        string
	LogLevel    string

	DatabaseURL string
	SQLitePath  string

	SessionSecret []byte
	SessionTTL    time.Duration
	CookieSecure  bool

	StorageProvider string
	UploadDir       string
	MaxLogoBytes    int64
	S3              S3Config

	CacheSize     int
	CacheTTL      time.Duration
	RedisAddr     string
	RedisPassword string

	KafkaBrokers []string
	KafkaTopic   string

	ESURL      string
	ESUser     string
	ESPassword string
	ESIndex    string

	GraphAPIURL     string
	GraphAPIVersion string
	GraphAPITimeout time.Duration

	TrackRPS   float64
	TrackBurst int

	CSRFEnabled bool
	CORSOrigins []string

	AdminUsername string
	AdminPassword string
}

// Load reads .env (when present) and then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("notice: .env not loaded: %v, using process environment", err)
	}

	cfg := &Config{
		ServiceName: pkgconfig.EnvDefault("SERVICE_NAME", "tg_landing"),
		Port:        pkgconfig.EnvDefault("SERVER_PORT", "8080"),
		LogLevel:    pkgconfig.EnvDefault("LOG_LEVEL", "info"),

		DatabaseURL: pkgconfig.EnvDefault("DATABASE_URL", ""),
		SQLitePath:  pkgconfig.EnvDefault("SQLITE_PATH", "tg_landing.db"),

		SessionSecret: []byte(pkgconfig.EnvDefault("SESSION_SECRET", "")),
		SessionTTL:    pkgconfig.EnvDurationDefault("SESSION_TTL", 24*time.Hour),
		CookieSecure:  pkgconfig.EnvBoolDefault("COOKIE_SECURE", false),

		StorageProvider: pkgconfig.EnvDefault("STORAGE_PROVIDER", "local"),
		UploadDir:       pkgconfig.EnvDefault("UPLOAD_DIR", "uploads"),
		MaxLogoBytes:    pkgconfig.EnvInt64Default("MAX_LOGO_BYTES", 5<<20),
		S3: S3Config{
			Bucket:    pkgconfig.EnvDefault("S3_BUCKET", ""),
			Region:    pkgconfig.EnvDefault("S3_REGION", "us-east-1"),
			Endpoint:  pkgconfig.EnvDefault("S3_ENDPOINT", ""),
			AccessKey: pkgconfig.EnvDefault("S3_ACCESS_KEY", ""),
			SecretKey: pkgconfig.EnvDefault("S3_SECRET_KEY", ""),
			PublicURL: pkgconfig.EnvDefault("S3_PUBLIC_URL", ""),
		},

		CacheSize:     pkgconfig.EnvIntDefault("CACHE_SIZE", 1024),
		CacheTTL:      pkgconfig.EnvDurationDefault("CACHE_TTL", 5*time.Minute),
		RedisAddr:     pkgconfig.EnvDefault("REDIS_ADDR", ""),
		RedisPassword: pkgconfig.EnvDefault("REDIS_PASSWORD", ""),

		KafkaBrokers: pkgconfig.CSV(pkgconfig.EnvDefault("KAFKA_BROKERS", "")),
		KafkaTopic:   pkgconfig.EnvDefault("KAFKA_TOPIC", "channel_events"),

		ESURL:      pkgconfig.EnvDefault("ES_URL", ""),
		ESUser:     pkgconfig.EnvDefault("ES_USER", ""),
		ESPassword: pkgconfig.EnvDefault("ES_PASSWORD", ""),
		ESIndex:    pkgconfig.EnvDefault("ES_INDEX", "channels"),

		GraphAPIURL:     pkgconfig.EnvDefault("GRAPH_API_URL", "https://graph.facebook.com"),
		GraphAPIVersion: pkgconfig.EnvDefault("GRAPH_API_VERSION", "v18.0"),
		GraphAPITimeout: pkgconfig.EnvDurationDefault("GRAPH_API_TIMEOUT", 10*time.Second),

		TrackRPS:   pkgconfig.EnvFloatDefault("TRACK_RPS", 2),
		TrackBurst: pkgconfig.EnvIntDefault("TRACK_BURST", 10),

		CSRFEnabled: pkgconfig.EnvBoolDefault("CSRF_ENABLED", false),
		CORSOrigins: pkgconfig.CSV(pkgconfig.EnvDefault("CORS_ORIGINS", "")),

		AdminUsername: pkgconfig.EnvDefault("ADMIN_USERNAME", ""),
		AdminPassword: pkgconfig.EnvDefault("ADMIN_PASSWORD", ""),
	}

	if err := pkgconfig.RequireNonEmptyBytes(cfg.SessionSecret, "SESSION_SECRET"); err != nil {
		return nil, err
	}
	if cfg.StorageProvider == "s3" {
		if err := pkgconfig.RequireNonEmpty(cfg.S3.Bucket, "S3_BUCKET"); err != nil {
			return nil, err
		}
		if err := pkgconfig.RequireNonEmpty(cfg.S3.PublicURL, "S3_PUBLIC_URL"); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// InitDB opens postgres when DATABASE_URL is set and sqlite otherwise, then migrates.
func InitDB(ctx context.Context, cfg *Config) (*gorm.DB, error) {
	var (
		db  *gorm.DB
		err error
	)
	if cfg.DatabaseURL != "" {
		db, err = pkgdb.Open(ctx, cfg.DatabaseURL)
	} else {
		db, err = pkgdb.OpenSQLite(ctx, cfg.SQLitePath)
	}
	if err != nil {
		return nil, err
	}

	if err := db.WithContext(ctx).AutoMigrate(models.Tables()...); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return db, nil
}
