package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/turtacn/fishlwr/internal/infrastructure/database/postgres"
	"github.com/turtacn/fishlwr/pkg/errors"
)

type migrationStatus struct {
	Version uint `json:"version"`
	Dirty   bool `json:"dirty"`
}

func (s migrationStatus) String() string {
	if s.Dirty {
		return fmt.Sprintf("schema version %d (dirty)", s.Version)
	}
	return fmt.Sprintf("schema version %d", s.Version)
}

func newMigrateCmd() *cobra.Command {
	var source string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the postgres schema",
	}
	cmd.PersistentFlags().StringVar(&source, "source", "", "migration source URL (default: database.migration_path)")

	// withMigrator opens a migrator for the duration of fn.
	withMigrator := func(cmd *cobra.Command, fn func(m *postgres.Migrator) error) error {
		cc, err := GetCLIContext(cmd)
		if err != nil {
			return err
		}
		cfg := cc.Config
		if !cfg.Database.Enabled {
			return errors.New(errors.ErrCodeBadRequest, "migrate requires database.enabled")
		}
		if source == "" {
			source = cfg.Database.MigrationPath
		}

		conn, err := postgres.NewConnection(cfg.Database, cc.Logger.Named("postgres"))
		if err != nil {
			return err
		}
		defer conn.Close()

		m, err := postgres.NewMigrator(conn, source)
		if err != nil {
			return err
		}
		defer m.Close()
		return fn(m)
	}

	status := func(cmd *cobra.Command, m *postgres.Migrator) error {
		v, dirty, err := m.Status()
		if err != nil {
			return err
		}
		return PrintResult(cmd, migrationStatus{Version: v, Dirty: dirty})
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return withMigrator(cmd, func(m *postgres.Migrator) error {
					if err := m.Up(); err != nil {
						return err
					}
					return status(cmd, m)
				})
			},
		},
		&cobra.Command{
			Use:   "down [N]",
			Short: "Roll back N migrations (default 1)",
			Args:  cobra.MaximumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				steps := 1
				if len(args) == 1 {
					n, err := strconv.Atoi(args[0])
					if err != nil || n < 1 {
						return errors.Newf(errors.ErrCodeBadRequest, "invalid step count %q", args[0])
					}
					steps = n
				}
				return withMigrator(cmd, func(m *postgres.Migrator) error {
					if err := m.Down(steps); err != nil {
						return err
					}
					return status(cmd, m)
				})
			},
		},
		&cobra.Command{
			Use:   "status",
			Short: "Print the current schema version",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return withMigrator(cmd, func(m *postgres.Migrator) error { return status(cmd, m) })
			},
		},
		&cobra.Command{
			Use:   "force VERSION",
			Short: "Set the schema version without running migrations and clear the dirty flag",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				v, err := strconv.Atoi(args[0])
				if err != nil {
					return errors.Newf(errors.ErrCodeBadRequest, "invalid version %q", args[0])
				}
				return withMigrator(cmd, func(m *postgres.Migrator) error {
					if err := m.Force(v); err != nil {
						return err
					}
					return status(cmd, m)
				})
			},
		},
	)

	return cmd
}

//Personal.AI order the ending
