package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the audit tables",
	Long:  `Creates the audit event, entry and change tables and the root index. Key-value stores need no schema and are left alone.`,
	Args:  cobra.NoArgs,
	RunE:  runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	ctx := context.Background()
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	s, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = closeStore() }()

	if err := migrate(ctx, s); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s store ready\n", cfg.Store)
	return nil
}
