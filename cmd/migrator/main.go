package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strconv"

	"github.com/pressly/goose/v3"
	"github.com/spf13/cobra"

	"github.com/noah-isme/aladab-school-api/migrations"
	"github.com/noah-isme/aladab-school-api/pkg/config"
	"github.com/noah-isme/aladab-school-api/pkg/database"
)

const migrationsDir = "."

// migrationRunner opens a database and runs one goose operation against it.
type migrationRunner func(op func(db *sql.DB) error) error

func main() {
	if err := newRootCmd(connect).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func connect(op func(db *sql.DB) error) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	db, err := database.NewPostgres(context.Background(), cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer db.Close() //nolint:errcheck

	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	return op(db.DB)
}

func newRootCmd(run migrationRunner) *cobra.Command {
	root := &cobra.Command{
		Use:           "migrator",
		Short:         "Apply and inspect the school database schema",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply every pending migration",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return run(func(db *sql.DB) error { return goose.Up(db, migrationsDir) })
			},
		},
		&cobra.Command{
			Use:   "up-to VERSION",
			Short: "Apply migrations up to and including VERSION",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				version, err := strconv.ParseInt(args[0], 10, 64)
				if err != nil {
					return fmt.Errorf("invalid version %q", args[0])
				}
				return run(func(db *sql.DB) error { return goose.UpTo(db, migrationsDir, version) })
			},
		},
		&cobra.Command{
			Use:   "down",
			Short: "Roll back the latest migration",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return run(func(db *sql.DB) error { return goose.Down(db, migrationsDir) })
			},
		},
		&cobra.Command{
			Use:   "reset",
			Short: "Roll back every migration",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return run(func(db *sql.DB) error { return goose.Reset(db, migrationsDir) })
			},
		},
		&cobra.Command{
			Use:   "status",
			Short: "Print the applied state of every migration",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return run(func(db *sql.DB) error { return goose.Status(db, migrationsDir) })
			},
		},
		&cobra.Command{
			Use:   "version",
			Short: "Print the current schema version",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return run(func(db *sql.DB) error { return goose.Version(db, migrationsDir) })
			},
		},
	)
	return root
}
