package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/surgekit/surgekit/internal/scenario"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the available benchmark scenarios",
	RunE: func(cmd *cobra.Command, args []string) error {
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tMODE")
		for _, def := range scenario.All() {
			mode := "closed-loop"
			if def.Stream != nil {
				mode = "streaming"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\n", def.ID, def.Name, mode)
		}
		return w.Flush()
	},
}
