package main

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strconv"

	"clinic-booking/internal/configs"
	"clinic-booking/migrations"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var configPath string

// newMigrator opens the configured database through pgx and binds it to the embedded migrations.
func newMigrator() (*migrate.Migrate, error) {
	if configPath == "" {
		return nil, errors.New("no config file path was given")
	}
	_ = godotenv.Load()
	config, err := configs.Load(configPath)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open("pgx", config.DatabaseDSN())
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err = db.Ping(); err != nil {
		return nil, fmt.Errorf("ping db: %w", err)
	}
	dbDriver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return nil, fmt.Errorf("db driver: %w", err)
	}
	srcDriver, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return nil, fmt.Errorf("source driver: %w", err)
	}
	return migrate.NewWithInstance("iofs", srcDriver, "postgres", dbDriver)
}

// withMigrator runs fn over a new migrator and releases it.
func withMigrator(fn func(m *migrate.Migrate) error) error {
	m, err := newMigrator()
	if err != nil {
		return err
	}
	defer func() { _, _ = m.Close() }()
	if err = fn(m); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}

func main() {
	rootCmd := &cobra.Command{
		Use:          "migrate",
		Short:        "Run the clinic booking database migrations",
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file path")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(func(m *migrate.Migrate) error { return m.Up() })
		},
	})
	rootCmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Revert every migration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(func(m *migrate.Migrate) error { return m.Down() })
		},
	})
	rootCmd.AddCommand(&cobra.Command{
		Use:   "force VERSION",
		Short: "Set the migration version without running it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			version, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid version: %w", err)
			}
			return withMigrator(func(m *migrate.Migrate) error { return m.Force(version) })
		},
	})

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
