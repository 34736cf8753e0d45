package root

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/PDUUR/Super-Muslim-Assistant/internal/pkg/db"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the database schema and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, closer, err := loadConfig()
			if err != nil {
				return err
			}
			defer closer.Close()

			pool, err := db.NewPool(cmd.Context(), &cfg.Database)
			if err != nil {
				return err
			}
			defer pool.Close()

			if err := db.Migrate(cmd.Context(), pool.Pool); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), goodStyle.Render("✔ schema is up to date"))
			return nil
		},
	}
}
