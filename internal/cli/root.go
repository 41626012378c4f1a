// Package cli holds the clinical-sim commands.
package cli

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/tatianab/clinical-sim/internal/config"
)

var logLevel string // overrides CLINICAL_SIM_LOG_LEVEL when set

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:           "clinical-sim",
	Short:         "Adaptive clinical simulations for nursing students",
	SilenceUsage:  true,
	SilenceErrors: false,
}

// Execute runs the CLI root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (trace, debug, info, warn, error); defaults to CLINICAL_SIM_LOG_LEVEL")

	rootCmd.AddCommand(serveCmd, mcpCmd, simulateCmd, kbCmd, transcriptsCmd, catalogCmd)
}

// setupLogging applies the flag, or the configured level, to the standard
// logger.
func setupLogging(cfg *config.Config) error {
	level := cfg.LogLevel
	if logLevel != "" {
		level = logLevel
	}
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return err
	}
	logrus.SetLevel(lvl)
	logrus.SetOutput(os.Stderr)
	return nil
}
