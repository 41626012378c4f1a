package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/tatianab/clinical-sim/internal/clinical"
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "List the care environments and pathologies scenarios are drawn from",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		writeCatalog(cmd.OutOrStdout(), clinical.DefaultCatalog())
	},
}

func writeCatalog(w io.Writer, c clinical.Catalog) {
	for _, env := range c.Environments() {
		fmt.Fprintf(w, "%s (%d-%d anni)\n", env.Name, env.MinAge, env.MaxAge)
		for _, p := range env.Pathologies {
			fmt.Fprintf(w, "  - %s (gravità %d)\n", p, clinical.SeverityFor(p))
		}
	}
}
