package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/tatianab/clinical-sim/internal/engine"
	"github.com/tatianab/clinical-sim/internal/llm"
	"github.com/tatianab/clinical-sim/internal/models"
	"github.com/tatianab/clinical-sim/internal/report"
)

var (
	simUser     string // student id the episode is played as
	simMaxTurns int    // hard stop for runaway episodes
	simNoSave   bool   // skip writing the transcript
)

const studentPrompt = `Sei uno studente di Infermieristica al 3° anno durante una simulazione clinica.
Leggi il turno e scegli l'azione che ritieni prioritaria.
Rispondi SOLO con la lettera dell'azione scelta (A, B, C o D), senza commenti.`

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Play a full episode with the model acting as the student",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		t, err := playEpisode(ctx, a.engine, a.client, simUser, simMaxTurns, func(s string) {
			fmt.Fprintln(cmd.OutOrStdout(), s)
			fmt.Fprintln(cmd.OutOrStdout())
		})
		if err != nil {
			return err
		}
		game, err := a.store.GetGame(ctx, t.Game.ID)
		if err != nil {
			return fmt.Errorf("read game: %w", err)
		}
		t.Game = game

		if simNoSave {
			return nil
		}
		path, err := t.Save(a.cfg.SaveDir)
		if err != nil {
			return fmt.Errorf("save transcript: %w", err)
		}
		logrus.WithField("path", path).Info("transcript saved")
		return nil
	},
}

func init() {
	simulateCmd.Flags().StringVar(&simUser, "user", "simulatore", "Student id to play as")
	simulateCmd.Flags().IntVar(&simMaxTurns, "max-turns", 12, "Stop after this many steps")
	simulateCmd.Flags().BoolVar(&simNoSave, "no-save", false, "Do not write the transcript")
}

// turnRunner runs simulation turns.
type turnRunner interface {
	HandleTurn(ctx context.Context, req engine.TurnRequest) (engine.TurnResult, error)
}

// playEpisode starts a game and lets student pick actions until the debrief
// or maxTurns steps. Each rendered turn is passed to emit. The returned
// transcript carries only the game id.
func playEpisode(ctx context.Context, sim turnRunner, student llm.Client, userID string, maxTurns int,
	emit func(string)) (*models.Transcript, error) {
	res, err := sim.HandleTurn(ctx, engine.TurnRequest{Action: engine.ActionStart, UserID: userID})
	if err != nil {
		return nil, fmt.Errorf("start: %w", err)
	}
	t := &models.Transcript{}

	for i := 0; ; i++ {
		if res.Debrief != nil {
			t.Debrief = res.Debrief
			t.Game.ID = res.Debrief.GameID
			emit(report.Debrief(*res.Debrief))
			return t, nil
		}
		step := *res.Step
		t.Game.ID = step.GameID
		t.Steps = append(t.Steps, step)
		emit(report.Step(step))

		if i >= maxTurns {
			logrus.WithField("game_id", step.GameID).Warn("turn limit reached before the case ended")
			return t, nil
		}

		choice := chooseAction(ctx, student, step)
		t.Choices = append(t.Choices, choice.Label)
		emit("> " + choice.ID + ") " + choice.Label)

		res, err = sim.HandleTurn(ctx, engine.TurnRequest{
			Action: engine.ActionStep,
			UserID: userID,
			GameID: step.GameID,
			Choice: choice.Label,
		})
		if err != nil {
			return t, fmt.Errorf("step %d: %w", step.Turn+1, err)
		}
	}
}

// chooseAction asks the student model for a choice and falls back to the
// first offered action when the reply matches none.
func chooseAction(ctx context.Context, student llm.Client, step models.StepResponse) models.Action {
	if len(step.AvailableActions) == 0 {
		step.AvailableActions = engine.FallbackActions()
	}
	first := step.AvailableActions[0]
	var b strings.Builder
	fmt.Fprintf(&b, "Turno %d, fase: %s\n%s\n", step.Turn, step.Phase, step.PatientUpdate)
	fmt.Fprintf(&b, "Parametri: FC %d, PA %s, FR %d, SpO2 %d%%, TC %.1f, coscienza %s\n",
		step.Vitals.HR, step.Vitals.BP, step.Vitals.RR, step.Vitals.SpO2, step.Vitals.Temp, step.Vitals.Consciousness)
	b.WriteString("Azioni disponibili:\n")
	for _, a := range step.AvailableActions {
		fmt.Fprintf(&b, "%s) %s\n", a.ID, a.Label)
	}

	reply, err := student.Complete(ctx, llm.Request{System: studentPrompt, User: b.String(), Temperature: 1})
	if err != nil {
		logrus.WithError(err).Warn("student model failed, taking the first action")
		return first
	}
	if a, ok := matchAction(reply, step.AvailableActions); ok {
		return a
	}
	return first
}

// matchAction finds the action named by a reply: its id ("B", "B)", "b.")
// or its label.
func matchAction(reply string, actions []models.Action) (models.Action, bool) {
	reply = strings.TrimSpace(reply)
	id := strings.ToUpper(strings.TrimRight(reply, ").: "))
	for _, a := range actions {
		if strings.EqualFold(a.ID, id) {
			return a, true
		}
	}
	lower := strings.ToLower(reply)
	for _, a := range actions {
		if strings.Contains(lower, strings.ToLower(a.Label)) {
			return a, true
		}
	}
	return models.Action{}, false
}
