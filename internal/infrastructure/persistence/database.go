package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/flipflop/backend/internal/infrastructure/config"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Database owns the shop's GORM handle and its connection pool
type Database struct {
	DB *gorm.DB
}

// NewDatabase connects to Postgres with GORM logging silenced
func NewDatabase(cfg *config.DatabaseConfig) (*Database, error) {
	return NewDatabaseWithLogger(cfg, logger.Default.LogMode(logger.Silent))
}

// NewDatabaseWithLogger connects to Postgres, sizes the pool from cfg and
// verifies the server answers before returning
func NewDatabaseWithLogger(cfg *config.DatabaseConfig, gormLogger logger.Interface) (*Database, error) {
	return open(postgres.Open(cfg.DSN()), cfg, gormLogger)
}

func open(dialector gorm.Dialector, cfg *config.DatabaseConfig, gormLogger logger.Interface) (*Database, error) {
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormLogger,
		// Repositories open their own transactions around aggregate writes.
		SkipDefaultTransaction: true,
		PrepareStmt:            true,
		TranslateError:         true,
		// open pings once itself, after the pool is configured
		DisableAutomaticPing: true,
	})
	if err != nil {
		return nil, fmt.Errorf("database: connect: %w", err)
	}
	d := &Database{DB: db}

	sqlDB, err := d.SQL()
	if err != nil {
		return nil, err
	}
	configurePool(sqlDB, cfg)

	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("database: ping %s:%d/%s: %w", cfg.Host, cfg.Port, cfg.DBName, err)
	}
	return d, nil
}

// configurePool applies the pool limits; lifetimes are configured in minutes
func configurePool(sqlDB *sql.DB, cfg *config.DatabaseConfig) {
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetime) * time.Minute)
	sqlDB.SetConnMaxIdleTime(time.Duration(cfg.ConnMaxIdleTime) * time.Minute)
}

// SQL returns the pool under the GORM handle, for migrations and metrics
func (d *Database) SQL() (*sql.DB, error) {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return nil, fmt.Errorf("database: sql handle: %w", err)
	}
	return sqlDB, nil
}

// Ping is the readiness probe for the database
func (d *Database) Ping(ctx context.Context) error {
	sqlDB, err := d.SQL()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close releases every pooled connection
func (d *Database) Close() error {
	sqlDB, err := d.SQL()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
