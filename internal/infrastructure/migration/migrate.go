// Package migration versions the shop schema with golang-migrate and creates
// new migration file pairs for developers.
package migration

import (
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"go.uber.org/zap"
)

// Migrator applies versioned migrations to one database
type Migrator struct {
	m   *migrate.Migrate
	log *zap.Logger
}

// New reads migrations from a directory on disk
func New(db *sql.DB, dir string, log *zap.Logger) (*Migrator, error) {
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return nil, fmt.Errorf("migration: postgres driver: %w", err)
	}
	m, err := migrate.NewWithDatabaseInstance("file://"+dir, "postgres", driver)
	if err != nil {
		return nil, fmt.Errorf("migration: open %s: %w", dir, err)
	}
	return wrap(m, log), nil
}

// NewEmbedded reads migrations compiled into the binary
func NewEmbedded(db *sql.DB, fsys fs.FS, log *zap.Logger) (*Migrator, error) {
	src, err := iofs.New(fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("migration: embedded source: %w", err)
	}
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return nil, fmt.Errorf("migration: postgres driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "postgres", driver)
	if err != nil {
		return nil, fmt.Errorf("migration: open embedded: %w", err)
	}
	return wrap(m, log), nil
}

func wrap(m *migrate.Migrate, log *zap.Logger) *Migrator {
	m.Log = migrateLogger{log.Sugar()}
	return &Migrator{m: m, log: log}
}

// ApplyEmbedded brings the schema up to date at server start. The migrator is
// left open since closing it would close db, which the caller still owns.
func ApplyEmbedded(db *sql.DB, fsys fs.FS, log *zap.Logger) error {
	mg, err := NewEmbedded(db, fsys, log)
	if err != nil {
		return err
	}
	return mg.Up()
}

func (mg *Migrator) Up() error {
	return mg.apply("up", mg.m.Up)
}

// Down rolls back every applied migration
func (mg *Migrator) Down() error {
	return mg.apply("down", mg.m.Down)
}

// Steps applies n migrations; negative n rolls back
func (mg *Migrator) Steps(n int) error {
	return mg.apply(fmt.Sprintf("steps %+d", n), func() error { return mg.m.Steps(n) })
}

func (mg *Migrator) GoTo(version uint) error {
	return mg.apply(fmt.Sprintf("goto %d", version), func() error { return mg.m.Migrate(version) })
}

// apply runs op and logs the resulting version. No pending change is not an
// error.
func (mg *Migrator) apply(op string, run func() error) error {
	err := run()
	switch {
	case errors.Is(err, migrate.ErrNoChange):
		mg.log.Info("Schema already up to date", zap.String("operation", op))
		return nil
	case err != nil:
		return fmt.Errorf("migration %s: %w", op, err)
	}
	version, dirty, err := mg.Version()
	if err != nil {
		return err
	}
	mg.log.Info("Migrations applied",
		zap.String("operation", op),
		zap.Uint("version", version),
		zap.Bool("dirty", dirty))
	return nil
}

// Version is the applied version and dirty flag. 0 means nothing is applied.
func (mg *Migrator) Version() (uint, bool, error) {
	version, dirty, err := mg.m.Version()
	switch {
	case errors.Is(err, migrate.ErrNilVersion):
		return 0, false, nil
	case err != nil:
		return 0, false, fmt.Errorf("migration version: %w", err)
	}
	return version, dirty, nil
}

// Force records version as applied without running anything. It clears the
// dirty flag after a failed migration was repaired by hand.
func (mg *Migrator) Force(version int) error {
	mg.log.Warn("Forcing migration version", zap.Int("version", version))
	if err := mg.m.Force(version); err != nil {
		return fmt.Errorf("migration force %d: %w", version, err)
	}
	return nil
}

// Drop deletes every table in the database
func (mg *Migrator) Drop() error {
	mg.log.Warn("Dropping all tables")
	if err := mg.m.Drop(); err != nil {
		return fmt.Errorf("migration drop: %w", err)
	}
	return nil
}

func (mg *Migrator) Close() error {
	srcErr, dbErr := mg.m.Close()
	return errors.Join(srcErr, dbErr)
}

// migrateLogger routes golang-migrate's progress lines into zap
type migrateLogger struct {
	log *zap.SugaredLogger
}

func (l migrateLogger) Printf(format string, v ...any) {
	l.log.Infof(strings.TrimRight(format, "\n"), v...)
}

func (l migrateLogger) Verbose() bool {
	return l.log.Desugar().Core().Enabled(zap.DebugLevel)
}
