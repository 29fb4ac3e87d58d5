// Package integration runs the shop's repositories and sagas against a real
// PostgreSQL started with testcontainers.
package integration

import (
	"context"
	"database/sql"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/flipflop/backend/internal/infrastructure/migration"
	"github.com/flipflop/backend/migrations"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const defaultPostgresImage = "postgres:16-alpine"

// postgres is the one container every test in the package shares
var postgres struct {
	sync.Mutex
	container *tcpostgres.PostgresContainer
	dsn       string
}

// TestDB is a migrated database plus the two client stacks the server uses:
// GORM for repositories and a pgx pool for stock reservations.
type TestDB struct {
	DB   *gorm.DB
	Pool *pgxpool.Pool
	t    *testing.T
}

// NewSharedTestDB connects to the package-wide container, starting and
// migrating it on first use. Tests sharing it call CleanTables first.
func NewSharedTestDB(t *testing.T) *TestDB {
	t.Helper()
	if testing.Short() {
		t.Skip("integration test needs docker")
	}

	dsn := sharedDSN(t)
	db, sqlDB := openGorm(t, dsn)
	pool, err := pgxpool.New(context.Background(), dsn)
	require.NoError(t, err, "open pgx pool")

	t.Cleanup(func() {
		pool.Close()
		_ = sqlDB.Close()
	})
	return &TestDB{DB: db, Pool: pool, t: t}
}

func sharedDSN(t *testing.T) string {
	postgres.Lock()
	defer postgres.Unlock()
	if postgres.container != nil {
		return postgres.dsn
	}

	image := os.Getenv("TEST_POSTGRES_IMAGE")
	if image == "" {
		image = defaultPostgresImage
	}
	ctx := context.Background()
	container, err := tcpostgres.Run(ctx, image,
		tcpostgres.WithDatabase("flipflop_test"),
		tcpostgres.WithUsername("flipflop"),
		tcpostgres.WithPassword("flipflop"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(time.Minute)),
	)
	require.NoError(t, err, "start postgres container")

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err, "container connection string")

	_, sqlDB := openGorm(t, dsn)
	defer sqlDB.Close()
	require.NoError(t, migration.ApplyEmbedded(sqlDB, migrations.FS, zap.NewNop()), "apply migrations")

	postgres.container = container
	postgres.dsn = dsn
	return dsn
}

// CleanTables empties every application table in one statement so foreign
// keys between them never block the truncate
func (tdb *TestDB) CleanTables() {
	tdb.t.Helper()

	var tables []string
	err := tdb.DB.Raw(`SELECT quote_ident(tablename) FROM pg_tables
		WHERE schemaname = 'public' AND tablename <> 'schema_migrations'`).Scan(&tables).Error
	require.NoError(tdb.t, err, "list tables")
	if len(tables) == 0 {
		return
	}
	require.NoError(tdb.t, tdb.DB.Exec("TRUNCATE "+strings.Join(tables, ", ")+" RESTART IDENTITY CASCADE").Error)
}

func openGorm(t *testing.T, dsn string) (*gorm.DB, *sql.DB) {
	t.Helper()

	level := logger.Silent
	if os.Getenv("TEST_DB_DEBUG") != "" {
		level = logger.Info
	}
	db, err := gorm.Open(gormpostgres.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(level)})
	require.NoError(t, err, "connect")

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(10)
	sqlDB.SetConnMaxLifetime(5 * time.Minute)
	return db, sqlDB
}

// CleanupSharedContainer terminates the shared container. TestMain calls it.
func CleanupSharedContainer() {
	postgres.Lock()
	defer postgres.Unlock()
	if postgres.container == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	_ = postgres.container.Terminate(ctx)
	postgres.container = nil
	postgres.dsn = ""
}
