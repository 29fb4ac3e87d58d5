// Command seed fills a shop database with catalogue fixtures, fake products
// and an administrator account.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/flipflop/backend/internal/infrastructure/config"
	"github.com/flipflop/backend/internal/infrastructure/logger"
	"github.com/flipflop/backend/internal/infrastructure/persistence"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	logLevel string
	dryRun   bool
)

func main() {
	root := &cobra.Command{
		Use:           "seed",
		Short:         "FlipFlop database seeding tool",
		SilenceUsage:  true,
		SilenceErrors: true,
		Long: `Seeds the shop database.

Rows that already exist (same category slug, product SKU or user email)
are skipped, so every command can be re-run safely. Connection settings
come from config.toml and SHOP_DATABASE_* environment variables.`,
	}
	root.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn, error")
	root.PersistentFlags().BoolVar(&dryRun, "dry-run", false, "validate and log without writing")

	root.AddCommand(catalogCmd(), fakeCmd(), adminCmd())

	if err := root.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "seed:", err)
		os.Exit(1)
	}
}

func catalogCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "catalog <fixture.yaml>",
		Short: "Load categories and products from a YAML fixture",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			fx, err := LoadFixture(f)
			if err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}
			return withSeeder(cmd.Context(), func(s *Seeder) error {
				res, err := s.Apply(cmd.Context(), fx)
				if err != nil {
					return err
				}
				printResult(cmd, res)
				return nil
			})
		},
	}
}

func fakeCmd() *cobra.Command {
	var (
		opts FakeOptions
		seed uint64
	)
	cmd := &cobra.Command{
		Use:   "fake",
		Short: "Generate random flip-flop products",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if opts.Products <= 0 {
				return fmt.Errorf("--products must be positive")
			}
			if seed == 0 {
				seed = uint64(time.Now().UnixNano())
			}
			fx := FakeCatalog(gofakeit.New(seed), opts)
			return withSeeder(cmd.Context(), func(s *Seeder) error {
				res, err := s.Apply(cmd.Context(), fx)
				if err != nil {
					return err
				}
				printResult(cmd, res)
				cmd.Printf("faker seed: %d\n", seed)
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&opts.Products, "products", 50, "number of products")
	cmd.Flags().IntVar(&opts.Categories, "categories", 5, "number of categories")
	cmd.Flags().IntVar(&opts.MaxVariants, "max-variants", 4, "maximum size variants per product")
	cmd.Flags().StringVar(&opts.SKUPrefix, "sku-prefix", "FAKE", "prefix of generated SKUs")
	cmd.Flags().Uint64Var(&seed, "seed", 0, "faker seed for a reproducible catalogue (default: random)")
	return cmd
}

func adminCmd() *cobra.Command {
	var email, password, firstName, lastName string
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Create an administrator or promote an existing account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if password == "" {
				password = os.Getenv("SEED_ADMIN_PASSWORD")
			}
			return withSeeder(cmd.Context(), func(s *Seeder) error {
				created, err := s.EnsureAdmin(cmd.Context(), email, password, firstName, lastName)
				if err != nil {
					return err
				}
				if created {
					cmd.Printf("administrator %s created\n", email)
				} else {
					cmd.Printf("administrator %s already present\n", email)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&email, "email", "admin@flipflop.cz", "administrator email")
	cmd.Flags().StringVar(&password, "password", "", "administrator password (default: $SEED_ADMIN_PASSWORD)")
	cmd.Flags().StringVar(&firstName, "first-name", "Admin", "first name")
	cmd.Flags().StringVar(&lastName, "last-name", "FlipFlop", "last name")
	return cmd
}

// withSeeder connects to the configured database and runs fn
func withSeeder(ctx context.Context, fn func(*Seeder) error) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log, err := logger.New(&logger.Config{Level: logLevel, Format: "console", Output: "stderr"})
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	db, err := persistence.NewDatabaseWithLogger(&cfg.Database,
		logger.NewGormLogger(log, logger.MapGormLogLevel(logLevel)))
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Warn("Error closing database", zap.Error(err))
		}
	}()
	if err := db.Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}

	s := NewSeeder(
		persistence.NewGormCategoryRepository(db.DB),
		persistence.NewGormProductRepository(db.DB),
		persistence.NewGormUserRepository(db.DB),
		log,
		dryRun,
	)
	return fn(s)
}

func printResult(cmd *cobra.Command, res Result) {
	cmd.Printf("categories: %d created, %d skipped\n", res.CategoriesCreated, res.CategoriesSkipped)
	cmd.Printf("products:   %d created, %d skipped\n", res.ProductsCreated, res.ProductsSkipped)
}
