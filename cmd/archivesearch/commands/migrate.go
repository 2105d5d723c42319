package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dshills/archivesearch/internal/storage"
)

// newMigrateCmd creates `archivesearch migrate`
func newMigrateCmd() *cobra.Command {
	var rollback bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or roll back schema migrations",
		Long: `Brings the archive schema up to the current version. With --rollback,
undoes the most recent migration instead.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cfg, logger, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			// SQLite migrates on open regardless; --rollback then undoes the latest step
			cfg.Database.Migrate = !rollback

			store, err := openStorage(ctx, cfg, logger)
			if err != nil {
				return fmt.Errorf("open storage: %w", err)
			}
			defer func() { _ = store.Close() }()

			if rollback {
				if err := storage.RollbackMigration(ctx, store.DB(), store.Dialect()); err != nil {
					return err
				}
			}

			version, err := storage.CurrentVersion(ctx, store.DB())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s schema at version %s (latest %s)\n",
				store.Dialect().Name(), version, storage.CurrentSchemaVersion)
			return nil
		},
	}
	cmd.Flags().BoolVar(&rollback, "rollback", false, "roll back the most recent migration")
	return cmd
}
