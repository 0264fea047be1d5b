package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type poolSettings struct {
	maxOpenConns    int
	maxIdleConns    int
	connMaxLifetime time.Duration
	connMaxIdleTime time.Duration
}

var postgresPool = poolSettings{
	maxOpenConns:    20,
	maxIdleConns:    10,
	connMaxLifetime: 30 * time.Minute,
	connMaxIdleTime: 5 * time.Minute,
}

// sqlite serializes writers; a single connection also keeps ":memory:" databases shared.
var sqlitePool = poolSettings{
	maxOpenConns: 1,
	maxIdleConns: 1,
}

func configurePool(sqlDB *sql.DB, p poolSettings) {
	sqlDB.SetMaxOpenConns(p.maxOpenConns)
	sqlDB.SetMaxIdleConns(p.maxIdleConns)
	if p.connMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(p.connMaxLifetime)
	}
	if p.connMaxIdleTime > 0 {
		sqlDB.SetConnMaxIdleTime(p.connMaxIdleTime)
	}
}

func gormConfig() *gorm.Config {
	return &gorm.Config{
		NowFunc:        func() time.Time { return time.Now().UTC() },
		Logger:         logger.Default.LogMode(logger.Warn),
		TranslateError: true,
	}
}

func Open(ctx context.Context, dsn string) (*gorm.DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("DATABASE_URL is empty")
	}

	cfg := gormConfig()
	cfg.PrepareStmt = true
	db, err := gorm.Open(postgres.Open(dsn), cfg)
	if err != nil {
		return nil, fmt.Errorf("connect db: %w", err)
	}

	return finish(ctx, db, postgresPool)
}

func OpenSQLite(ctx context.Context, path string) (*gorm.DB, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite path is empty")
	}

	db, err := gorm.Open(sqlite.Open(path), gormConfig())
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	return finish(ctx, db, sqlitePool)
}

func finish(ctx context.Context, db *gorm.DB, p poolSettings) (*gorm.DB, error) {
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql.DB: %w", err)
	}
	configurePool(sqlDB, p)

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(pingCtx); err != nil {
		return nil, fmt.Errorf("ping db: %w", err)
	}

	return db, nil
}

func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
