package cli

import (
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/tatianab/clinical-sim/internal/mcpserver"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the simulation tools over MCP on stdio",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		return mcpserver.Run(ctx, mcpserver.New(a.engine, a.guard))
	},
}
