// Command migrate manages the shop database schema.
package main

import (
	"database/sql"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/flipflop/backend/internal/infrastructure/config"
	"github.com/flipflop/backend/internal/infrastructure/logger"
	"github.com/flipflop/backend/internal/infrastructure/migration"
	"github.com/flipflop/backend/migrations"
	_ "github.com/lib/pq"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	migrationsPath string
	logLevel       string
)

func main() {
	root := &cobra.Command{
		Use:           "migrate",
		Short:         "FlipFlop database migration tool",
		SilenceUsage:  true,
		SilenceErrors: true,
		Long: `Applies the versioned shop schema.

Migrations are read from --path when given, otherwise the set compiled
into this binary is used. Connection settings come from config.toml and
SHOP_DATABASE_* environment variables.`,
	}
	root.PersistentFlags().StringVar(&migrationsPath, "path", "", "directory with migration files (default: embedded)")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn, error")

	root.AddCommand(
		withMigrator("up", "Apply all pending migrations", cobra.NoArgs,
			func(m *migration.Migrator, _ []string) error { return m.Up() }),
		withMigrator("down", "Roll back all migrations", cobra.NoArgs,
			func(m *migration.Migrator, _ []string) error { return m.Down() }),
		withMigrator("step <n>", "Apply n migrations (negative rolls back)", cobra.ExactArgs(1),
			func(m *migration.Migrator, args []string) error {
				n, err := strconv.Atoi(args[0])
				if err != nil {
					return fmt.Errorf("invalid step count %q", args[0])
				}
				return m.Steps(n)
			}),
		withMigrator("goto <version>", "Migrate to a specific version", cobra.ExactArgs(1),
			func(m *migration.Migrator, args []string) error {
				v, err := strconv.ParseUint(args[0], 10, 32)
				if err != nil {
					return fmt.Errorf("invalid version %q", args[0])
				}
				return m.GoTo(uint(v))
			}),
		withMigrator("version", "Show the current schema version", cobra.NoArgs,
			func(m *migration.Migrator, _ []string) error {
				v, dirty, err := m.Version()
				if err != nil {
					return err
				}
				fmt.Printf("version %d (dirty=%t)\n", v, dirty)
				return nil
			}),
		withMigrator("force <version>", "Set the version without running migrations", cobra.ExactArgs(1),
			func(m *migration.Migrator, args []string) error {
				v, err := strconv.Atoi(args[0])
				if err != nil {
					return fmt.Errorf("invalid version %q", args[0])
				}
				return m.Force(v)
			}),
		dropCmd(),
		createCmd(),
		listCmd(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newLogger() *zap.Logger {
	log, _ := logger.New(&logger.Config{
		Level:      logLevel,
		Format:     "console",
		Output:     "stdout",
		TimeFormat: "2006-01-02 15:04:05",
	})
	return log
}

// withMigrator builds a subcommand that opens the database and a migrator
// before running fn
func withMigrator(use, short string, args cobra.PositionalArgs, fn func(*migration.Migrator, []string) error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  args,
		RunE: func(cmd *cobra.Command, a []string) error {
			log := newLogger()
			defer func() { _ = log.Sync() }()

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			db, err := sql.Open("postgres", cfg.Database.DSN())
			if err != nil {
				return fmt.Errorf("failed to open database: %w", err)
			}
			if err := db.PingContext(cmd.Context()); err != nil {
				_ = db.Close()
				return fmt.Errorf("failed to reach database: %w", err)
			}

			var m *migration.Migrator
			if migrationsPath != "" {
				m, err = migration.New(db, migrationsPath, log)
			} else {
				m, err = migration.NewEmbedded(db, migrations.FS, log)
			}
			if err != nil {
				_ = db.Close()
				return err
			}
			defer func() { _ = m.Close() }()

			return fn(m, a)
		},
	}
}

func dropCmd() *cobra.Command {
	var confirm bool
	cmd := withMigrator("drop", "Drop every table (destroys all data)", cobra.NoArgs,
		func(m *migration.Migrator, _ []string) error {
			if !confirm {
				return fmt.Errorf("refusing to drop without --confirm")
			}
			return m.Drop()
		})
	cmd.Flags().BoolVar(&confirm, "confirm", false, "confirm dropping all data")
	return cmd
}

func createCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "create <name> [description]",
		Short: "Create the next migration file pair",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := migrationsPath
			if dir == "" {
				dir = "migrations"
			}
			desc := ""
			if len(args) == 2 {
				desc = args[1]
			}
			mf, err := migration.CreateMigration(dir, args[0], desc)
			if err != nil {
				return err
			}
			fmt.Println(mf.UpPath)
			fmt.Println(mf.DownPath)
			return nil
		},
	}
}

func listCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List available migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var fsys fs.FS = migrations.FS
			if migrationsPath != "" {
				fsys = os.DirFS(migrationsPath)
			}
			names, err := migration.ListMigrations(fsys)
			if err != nil {
				return err
			}
			for _, n := range names {
				fmt.Println(n)
			}
			return nil
		},
	}
}
