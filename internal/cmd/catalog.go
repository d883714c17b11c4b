package cmd

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/yungbote/devjourney-backend/internal/data/catalog"
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Inspect the content catalog",
}

var catalogValidateCmd = &cobra.Command{
	Use:   "validate [path]",
	Short: "Load a catalog file and report what it contains",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("catalog")
		if len(args) == 1 {
			path = args[0]
		}
		c, err := catalog.Load(path)
		if err != nil {
			return fmt.Errorf("invalid catalog: %w", err)
		}
		source := path
		if source == "" {
			source = "embedded seed"
		}

		active := 0
		byDomain := map[string]int{}
		for _, e := range c.Entries() {
			if !e.IsActive {
				continue
			}
			active++
			byDomain[e.Domain]++
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "catalog: %s\n", source)
		fmt.Fprintf(out, "entries: %d (%d active)\n", len(c.Entries()), active)
		fmt.Fprintf(out, "modules: %d\n", len(c.Modules()))
		domains := make([]string, 0, len(byDomain))
		for d := range byDomain {
			domains = append(domains, d)
		}
		sort.Strings(domains)
		for _, d := range domains {
			fmt.Fprintf(out, "  %-16s %d\n", d, byDomain[d])
		}
		return nil
	},
}

func init() {
	catalogCmd.AddCommand(catalogValidateCmd)
}
