package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yungbote/devjourney-backend/internal/app"
	devrepos "github.com/yungbote/devjourney-backend/internal/data/repos/development"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Push records written while the remote store was down",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := applyCatalogFlag(cmd); err != nil {
			return err
		}
		ctx := context.Background()
		application, err := app.New(ctx)
		if err != nil {
			return fmt.Errorf("init app: %w", err)
		}
		defer application.Close()

		pushed, err := application.SyncOnce(ctx)
		for _, kind := range devrepos.Kinds() {
			if n, ok := pushed[kind]; ok {
				fmt.Fprintf(cmd.OutOrStdout(), "%-12s %d\n", kind, n)
			}
		}
		return err
	},
}
