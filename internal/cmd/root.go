package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:          "devjourney",
	Short:        "Developmental journey backend",
	Long:         "devjourney serves age-banded developmental journeys and assessments over HTTP on top of tiered storage.",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd)
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().String("catalog", "", "Path to a catalog YAML file (overrides CATALOG_PATH)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(catalogCmd)
	rootCmd.AddCommand(tokenCmd)
}

// applyCatalogFlag lets --catalog take precedence over CATALOG_PATH.
func applyCatalogFlag(cmd *cobra.Command) error {
	p, _ := cmd.Flags().GetString("catalog")
	if p == "" {
		return nil
	}
	return os.Setenv("CATALOG_PATH", p)
}
