package persistence

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/flipflop/backend/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm/logger"
)

func poolConfig() *config.DatabaseConfig {
	return &config.DatabaseConfig{
		Host:            "db",
		Port:            5432,
		DBName:          "flipflop",
		MaxOpenConns:    7,
		MaxIdleConns:    3,
		ConnMaxLifetime: 30,
		ConnMaxIdleTime: 5,
	}
}

func openMock(t *testing.T) (*Database, sqlmock.Sqlmock, error) {
	t.Helper()
	conn, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	dialector := postgres.New(postgres.Config{Conn: conn, DriverName: "postgres"})
	mock.ExpectPing()
	db, err := open(dialector, poolConfig(), logger.Default.LogMode(logger.Silent))
	return db, mock, err
}

func TestOpen_ConfiguresPool(t *testing.T) {
	db, mock, err := openMock(t)
	require.NoError(t, err)

	sqlDB, err := db.SQL()
	require.NoError(t, err)
	assert.Equal(t, 7, sqlDB.Stats().MaxOpenConnections)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOpen_PingFailure(t *testing.T) {
	conn, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	mock.ExpectPing().WillReturnError(errors.New("connection refused"))
	mock.ExpectClose()

	_, err = open(postgres.New(postgres.Config{Conn: conn, DriverName: "postgres"}), poolConfig(),
		logger.Default.LogMode(logger.Silent))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "db:5432/flipflop")
	assert.Contains(t, err.Error(), "connection refused")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDatabase_Ping(t *testing.T) {
	db, mock, err := openMock(t)
	require.NoError(t, err)

	mock.ExpectPing()
	assert.NoError(t, db.Ping(context.Background()))

	mock.ExpectPing().WillReturnError(errors.New("server closed the connection"))
	assert.Error(t, db.Ping(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), time.Millisecond)
	defer cancel()
	mock.ExpectPing().WillDelayFor(time.Second)
	assert.Error(t, db.Ping(ctx))
}

func TestDatabase_Close(t *testing.T) {
	db, mock, err := openMock(t)
	require.NoError(t, err)

	mock.ExpectClose()
	assert.NoError(t, db.Close())
	assert.NoError(t, mock.ExpectationsWereMet())
}
