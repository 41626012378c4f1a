package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tatianab/clinical-sim/internal/config"
	"github.com/tatianab/clinical-sim/internal/models"
	"github.com/tatianab/clinical-sim/internal/report"
)

var transcriptsCmd = &cobra.Command{
	Use:   "transcripts",
	Short: "Browse saved simulation transcripts",
}

var transcriptsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved transcripts",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Parse()
		if err != nil {
			return err
		}
		ids, err := models.ListTranscripts(cfg.SaveDir)
		if err != nil {
			return err
		}
		for _, id := range ids {
			fmt.Fprintln(cmd.OutOrStdout(), id)
		}
		return nil
	},
}

var transcriptsShowCmd = &cobra.Command{
	Use:   "show <game-id>",
	Short: "Replay a saved transcript",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Parse()
		if err != nil {
			return err
		}
		t, err := models.LoadTranscript(cfg.SaveDir, args[0])
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%s · %s · %d anni · %s\n\n", t.Game.Environment, t.Game.Context.Pathology, t.Game.Age, t.Game.Gender)
		for i, s := range t.Steps {
			fmt.Fprintln(out, report.Step(s))
			if i < len(t.Choices) {
				fmt.Fprintf(out, "> %s\n", t.Choices[i])
			}
			fmt.Fprintln(out)
		}
		if t.Debrief != nil {
			fmt.Fprintln(out, report.Debrief(*t.Debrief))
		}
		return nil
	},
}

func init() {
	transcriptsCmd.AddCommand(transcriptsListCmd, transcriptsShowCmd)
}
