/*
main.go - ledgerd entry point

PURPOSE:
  Runs the ledger HTTP server and a few maintenance commands against the
  same SQLite store.

COMMANDS:
  serve          Start the HTTP API and the settlement sweep
  migrate        Create or upgrade the schema, then exit
  seed           Load a chart of accounts into a book
  trial-balance  Print a book's trial balance

GLOBAL FLAGS:
  --config  YAML configuration file (see config/config.go)
  --db      SQLite path, overrides database.path
  --port    HTTP port, overrides server.port

STARTUP SEQUENCE (serve):
  1. Load configuration: defaults, YAML, .env/environment, flags
  2. Build the zap logger
  3. Open and migrate the SQLite store
  4. Wire engine, business service, API handler and router
  5. Start the settlement sweep and the HTTP server

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests (server.shutdown_timeout)
  3. Stop the settlement sweep
  4. Close the database

EXAMPLES:
  ledgerd serve --db ./data/ledger.db
  ledgerd serve --db :memory: --port 3000
  ledgerd seed --book acme
  ledgerd seed --book acme --chart ./charts/retail.yaml
  ledgerd trial-balance --book acme --as-of 2025-03-31

SEE ALSO:
  - api/server.go: Router configuration
  - config/config.go: Configuration sources
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/moon/ledger-engine/api"
	"github.com/moon/ledger-engine/business"
	"github.com/moon/ledger-engine/chart"
	"github.com/moon/ledger-engine/config"
	"github.com/moon/ledger-engine/ledger"
	"github.com/moon/ledger-engine/logging"
	"github.com/moon/ledger-engine/store/sqlite"
)

type globalFlags struct {
	configPath string
	dbPath     string
	port       int
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	flags := &globalFlags{}
	root := &cobra.Command{
		Use:   "ledgerd",
		Short: "Double-entry ledger with document settlement",
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&flags.configPath, "config", "", "YAML configuration file")
	root.PersistentFlags().StringVar(&flags.dbPath, "db", "", "SQLite database path (\":memory:\" for a throwaway store)")
	root.PersistentFlags().IntVar(&flags.port, "port", 0, "HTTP server port")

	root.AddCommand(
		newServeCommand(flags),
		newMigrateCommand(flags),
		newSeedCommand(flags),
		newTrialBalanceCommand(flags),
	)
	return root
}

// loadConfig applies, in order: defaults, --config, environment, flags.
func loadConfig(flags *globalFlags) (*config.Config, error) {
	cfg := config.Default()
	if flags.configPath != "" {
		loaded, err := config.Load(flags.configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	if flags.dbPath != "" {
		cfg.Database.Path = flags.dbPath
	}
	if flags.port != 0 {
		cfg.Server.Port = flags.port
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// openStore opens and migrates the database named by cfg.
func openStore(ctx context.Context, cfg *config.Config) (*sqlite.Store, error) {
	store, err := sqlite.New(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := store.Migrate(ctx); err != nil {
		store.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	return store, nil
}

// =============================================================================
// SERVE
// =============================================================================

func newServeCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}
			logger, _, err := logging.New(cfg.Log)
			if err != nil {
				return err
			}
			defer logger.Sync()
			return serve(cmd.Context(), cfg, logger)
		},
	}
}

func serve(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	engine := ledger.NewEngine(store, store, store, ledger.WithLogger(logger))
	roles := business.NewCodeRoles(store, cfg.Roles)
	svc := business.NewService(store, engine, roles, business.WithLogger(logger))

	handler := api.NewHandler(store, svc,
		api.WithHandlerLogger(logger),
		api.WithTreeTTL(cfg.Cache.TreeTTL),
	)
	router := api.NewRouter(handler, api.RouterOptions{
		CORSOrigins: cfg.Server.CORSOrigins,
		Logger:      logger,
	})

	sweeper := api.NewSettlementSweeper(store, engine, cfg.Settlement.SweepInterval, logger)
	sweeper.Start()
	defer sweeper.Stop()

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting",
			zap.Int("port", cfg.Server.Port),
			zap.String("database", cfg.Database.Path))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case sig := <-quit:
		logger.Info("shutting down", zap.String("signal", sig.String()))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	logger.Info("server stopped")
	return nil
}

// =============================================================================
// MAINTENANCE COMMANDS
// =============================================================================

func newMigrateCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or upgrade the database schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}
			store, err := openStore(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer store.Close()
			fmt.Fprintf(cmd.OutOrStdout(), "schema up to date: %s\n", cfg.Database.Path)
			return nil
		},
	}
}

func newSeedCommand(flags *globalFlags) *cobra.Command {
	var book, chartPath string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load a chart of accounts into a book",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}
			def := chart.Default()
			if chartPath != "" {
				if def, err = chart.Load(chartPath); err != nil {
					return err
				}
			}
			store, err := openStore(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			accounts, err := chart.Seed(cmd.Context(), store, ledger.BookID(book), def)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "seeded %d accounts into %s\n", len(accounts), book)
			return nil
		},
	}
	cmd.Flags().StringVar(&book, "book", "", "book id")
	cmd.Flags().StringVar(&chartPath, "chart", "", "chart YAML file (built-in chart when empty)")
	_ = cmd.MarkFlagRequired("book")
	return cmd
}

func newTrialBalanceCommand(flags *globalFlags) *cobra.Command {
	var book, asOf string
	cmd := &cobra.Command{
		Use:   "trial-balance",
		Short: "Print a book's trial balance",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}
			date := ledger.Day(time.Now())
			if asOf != "" {
				if date, err = time.Parse("2006-01-02", asOf); err != nil {
					return fmt.Errorf("--as-of: %w", err)
				}
			}
			store, err := openStore(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			engine := ledger.NewEngine(store, store, store)
			tb, err := engine.TrialBalance(cmd.Context(), ledger.BookID(book), date)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', tabwriter.AlignRight)
			fmt.Fprintln(w, "CODE\tACCOUNT\tDEBIT\tCREDIT\t")
			for _, row := range tb.Rows {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t\n", row.Code, row.Name, row.Debit, row.Credit)
			}
			fmt.Fprintf(w, "\tTOTAL\t%s\t%s\t\n", tb.TotalDebit, tb.TotalCredit)
			if err := w.Flush(); err != nil {
				return err
			}
			if !tb.Identity.DynamicDiff.IsZero() {
				return fmt.Errorf("accounting identity off by %s", tb.Identity.DynamicDiff)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&book, "book", "", "book id")
	cmd.Flags().StringVar(&asOf, "as-of", "", "report date YYYY-MM-DD (today when empty)")
	_ = cmd.MarkFlagRequired("book")
	return cmd
}
