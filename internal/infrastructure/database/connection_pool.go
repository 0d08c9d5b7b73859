package database

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"relief-http-service/internal/domain/models"
	"relief-http-service/internal/infrastructure/config"
	"relief-http-service/pkg/logger"
)

// ConnectionPool manages the SQL connection backing the operation log
type ConnectionPool struct {
	DB              *gorm.DB
	Driver          string
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// NewConnectionPool opens the operation log database selected by OPLOG_DRIVER
func NewConnectionPool(cfg *config.Config) (*ConnectionPool, error) {
	dialector, err := openDialector(cfg)
	if err != nil {
		return nil, err
	}

	logLevel := gormlogger.Warn
	if cfg.EnvType == "LOCAL" {
		logLevel = gormlogger.Info
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(logLevel),
	})
	if err != nil {
		return nil, fmt.Errorf("open %s operation log: %w", cfg.OpLogDriver, err)
	}

	pool := &ConnectionPool{
		DB:              db,
		Driver:          cfg.OpLogDriver,
		MaxIdleConns:    10,
		MaxOpenConns:    100,
		ConnMaxLifetime: 1 * time.Hour,
		ConnMaxIdleTime: 30 * time.Minute,
	}
	if cfg.OpLogDriver != config.OpLogMySQL {
		// sqlite serializes writers anyway
		pool.MaxIdleConns = 1
		pool.MaxOpenConns = 1
	}

	if err := pool.ConfigurePool(); err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&models.OperationLog{}); err != nil {
		return nil, fmt.Errorf("migrate operation log: %w", err)
	}

	return pool, nil
}

// NewSQLitePool opens an operation log at path, mainly for tests
func NewSQLitePool(path string) (*ConnectionPool, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, err
	}
	pool := &ConnectionPool{DB: db, Driver: config.OpLogSQLite, MaxIdleConns: 1, MaxOpenConns: 1}
	if err := pool.ConfigurePool(); err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&models.OperationLog{}); err != nil {
		return nil, err
	}
	return pool, nil
}

func openDialector(cfg *config.Config) (gorm.Dialector, error) {
	switch cfg.OpLogDriver {
	case config.OpLogMySQL:
		return mysql.Open(cfg.GetDSN()), nil
	case config.OpLogSQLite, "":
		if dir := filepath.Dir(cfg.OpLogSQLitePath); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create operation log directory: %w", err)
			}
		}
		return sqlite.Open(cfg.OpLogSQLitePath), nil
	default:
		return nil, fmt.Errorf("unsupported operation log driver %q", cfg.OpLogDriver)
	}
}

// ConfigurePool applies the pool limits and pings the database
func (p *ConnectionPool) ConfigurePool() error {
	sqlDB, err := p.DB.DB()
	if err != nil {
		return err
	}

	sqlDB.SetMaxIdleConns(p.MaxIdleConns)
	sqlDB.SetMaxOpenConns(p.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(p.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(p.ConnMaxIdleTime)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		return err
	}

	logger.Info("Operation log pool configured: driver=%s, max idle=%d, max open=%d", p.Driver, p.MaxIdleConns, p.MaxOpenConns)
	return nil
}

// Stats returns pool statistics for the health endpoint
func (p *ConnectionPool) Stats() (map[string]interface{}, error) {
	sqlDB, err := p.DB.DB()
	if err != nil {
		return nil, err
	}

	stats := sqlDB.Stats()
	return map[string]interface{}{
		"driver":               p.Driver,
		"max_open_connections": stats.MaxOpenConnections,
		"open_connections":     stats.OpenConnections,
		"in_use":               stats.InUse,
		"idle":                 stats.Idle,
		"wait_count":           stats.WaitCount,
		"wait_duration":        stats.WaitDuration.String(),
	}, nil
}

// Close closes the pool
func (p *ConnectionPool) Close() error {
	sqlDB, err := p.DB.DB()
	if err != nil {
		return err
	}

	return sqlDB.Close()
}

// HealthCheck pings the database
func (p *ConnectionPool) HealthCheck() error {
	sqlDB, err := p.DB.DB()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return sqlDB.PingContext(ctx)
}

// GetDB returns the gorm handle
func (p *ConnectionPool) GetDB() *gorm.DB {
	return p.DB
}
