// migrate manages the database schema and development data. Run via go run ./cmd/migrate <command>.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"tenant-storage-core/backend/internal/catalog"
	"tenant-storage-core/backend/internal/config"
	"tenant-storage-core/backend/internal/db/migrate"
	"tenant-storage-core/backend/internal/logging"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "migrate:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "migrate",
		Short:         "Manage the tenant-storage-core database",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		directionCmd(migrate.Up, "Apply all pending migrations"),
		directionCmd(migrate.Down, "Roll back all migrations"),
		versionCmd(),
		checkManifestsCmd(),
		seedCmd(),
	)
	return root
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is not set; create a .env from .env.example or set DATABASE_URL")
	}
	return cfg, nil
}

func directionCmd(direction migrate.Direction, short string) *cobra.Command {
	return &cobra.Command{
		Use:   string(direction),
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if err := migrate.Run(cfg.DatabaseURL, direction); err != nil && !errors.Is(err, migrate.ErrNoChange) {
				return err
			}
			cmd.Println("ok")
			return nil
		},
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the applied schema version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			v, dirty, err := migrate.Version(cfg.DatabaseURL)
			if err != nil {
				return err
			}
			cmd.Printf("version %d (dirty=%t)\n", v, dirty)
			return nil
		},
	}
}

// checkManifestsCmd runs the startup PII manifest check without touching the database.
func checkManifestsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check-manifests",
		Short: "Validate the PII manifests of all persisted types",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger, err := logging.NewWriter(cmd.ErrOrStderr(), cfg.LogLevel, cfg.LogFormat)
			if err != nil {
				return err
			}
			reg, err := catalog.Check(cfg.PIIPolicy(), logger)
			if err != nil {
				return err
			}
			for _, typ := range reg.Types() {
				fields, _ := reg.PIIFields(typ)
				cmd.Printf("%s: %v\n", typ, fields)
			}
			return nil
		},
	}
}
