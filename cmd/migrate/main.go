// Command migrate manages the ledger's Postgres schema.
package main

import (
	"database/sql"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	_ "github.com/lib/pq"
	"github.com/mfgops/ledger/internal/infrastructure/config"
	"github.com/mfgops/ledger/internal/infrastructure/logger"
	"github.com/mfgops/ledger/internal/infrastructure/migration"
	"github.com/mfgops/ledger/migrations"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	migrationsDir string
	databaseURL   string
	confirmDrop   bool
)

var rootCmd = &cobra.Command{
	Use:           "migrate",
	Short:         "Manage the materials ledger database schema",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	log, err := logger.New(logger.DefaultConfig(), "ledger-migrate")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	rootCmd.PersistentFlags().StringVar(&migrationsDir, "dir", "",
		"read migrations from this directory instead of the embedded set")
	rootCmd.PersistentFlags().StringVar(&databaseURL, "database-url", "",
		"postgres URL (defaults to the LEDGER_DATABASE_* configuration)")

	rootCmd.AddCommand(
		migratorCommand(log, "up", "Apply all pending migrations", cobra.NoArgs,
			func(m *migration.Migrator, _ []string) error { return m.Up() }),
		dropCommand(log),
		migratorCommand(log, "step <n>", "Apply n migrations (negative rolls back)", cobra.ExactArgs(1),
			func(m *migration.Migrator, args []string) error {
				n, err := strconv.Atoi(args[0])
				if err != nil {
					return fmt.Errorf("invalid step count %q", args[0])
				}
				return m.Steps(n)
			}),
		migratorCommand(log, "goto <version>", "Migrate to a specific version", cobra.ExactArgs(1),
			func(m *migration.Migrator, args []string) error {
				v, err := strconv.ParseUint(args[0], 10, 32)
				if err != nil {
					return fmt.Errorf("invalid version %q", args[0])
				}
				return m.GoTo(uint(v))
			}),
		migratorCommand(log, "version", "Show the applied migration version", cobra.NoArgs,
			func(m *migration.Migrator, _ []string) error {
				v, dirty, err := m.Version()
				if err != nil {
					return err
				}
				log.Info("Current migration version", zap.Uint("version", v), zap.Bool("dirty", dirty))
				return nil
			}),
		migratorCommand(log, "force <version>", "Mark a version as applied without running it", cobra.ExactArgs(1),
			func(m *migration.Migrator, args []string) error {
				v, err := strconv.Atoi(args[0])
				if err != nil {
					return fmt.Errorf("invalid version %q", args[0])
				}
				return m.Force(v)
			}),
		createCommand(log),
		listCommand(),
	)

	if err := rootCmd.Execute(); err != nil {
		log.Error("migrate failed", zap.Error(err))
		os.Exit(1)
	}
}

func migratorCommand(log *zap.Logger, use, short string, args cobra.PositionalArgs,
	run func(*migration.Migrator, []string) error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  args,
		RunE: func(cmd *cobra.Command, a []string) error {
			return withMigrator(log, func(m *migration.Migrator) error { return run(m, a) })
		},
	}
}

// dropCommand rolls every migration back. It refuses to run without --confirm.
func dropCommand(log *zap.Logger) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "down",
		Short: "Roll back all migrations (destroys ledger data)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !confirmDrop {
				return fmt.Errorf("refusing to roll back everything without --confirm")
			}
			return withMigrator(log, func(m *migration.Migrator) error { return m.Down() })
		},
	}
	cmd.Flags().BoolVar(&confirmDrop, "confirm", false, "confirm the full rollback")
	return cmd
}

func createCommand(log *zap.Logger) *cobra.Command {
	var description string
	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a new migration file pair",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mf, err := migration.CreateMigration(sourceDir(), args[0], description)
			if err != nil {
				return err
			}
			log.Info("Migration created",
				zap.Uint("version", mf.Version),
				zap.String("up", mf.UpPath),
				zap.String("down", mf.DownPath),
			)
			return nil
		},
	}
	cmd.Flags().StringVarP(&description, "description", "m", "", "description written into the file header")
	return cmd
}

func listCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List migrations on disk",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			list, err := migration.ListMigrations(sourceDir())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(list) == 0 {
				fmt.Fprintln(out, "no migrations found")
				return nil
			}
			for _, m := range list {
				down := ""
				if !m.HasDown {
					down = "  (no down)"
				}
				fmt.Fprintf(out, "%06d  %s%s\n", m.Version, m.Name, down)
			}
			return nil
		},
	}
}

// sourceDir is where create and list operate on disk.
func sourceDir() string {
	if migrationsDir != "" {
		return migrationsDir
	}
	return "migrations"
}

func withMigrator(log *zap.Logger, fn func(*migration.Migrator) error) error {
	url := databaseURL
	if url == "" {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if cfg.Database.Driver != config.DriverPostgres {
			return fmt.Errorf("migrations target postgres; configured driver is %q", cfg.Database.Driver)
		}
		url = cfg.Database.DSN()
	}

	db, err := sql.Open("postgres", url)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to reach database: %w", err)
	}

	var src fs.FS = migrations.FS
	if migrationsDir != "" {
		src = os.DirFS(migrationsDir)
	}

	m, err := migration.New(db, src, log)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := m.Close(); cerr != nil {
			log.Warn("failed to close migrator", zap.Error(cerr))
		}
	}()
	return fn(m)
}
