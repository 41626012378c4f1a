package engine

import "github.com/tatianab/clinical-sim/internal/models"

// MinTurns is the first turn on which an episode may end.
const MinTurns = 5

// Transition is the single state-machine step of a game. Given the stored
// status, the turn being played and the model's proposed outcome it returns
// the next status and the outcome that takes effect.
//
//	NEW         -> IN_PROGRESS, always ongoing
//	IN_PROGRESS -> TERMINATED when proposed is terminal and turn >= MinTurns
//	IN_PROGRESS -> IN_PROGRESS, ongoing, otherwise
//	TERMINATED  -> TERMINATED
func Transition(status models.GameStatus, turn int, proposed models.Outcome) (models.GameStatus, models.Outcome) {
	switch status {
	case models.StatusNew:
		return models.StatusInProgress, models.OutcomeOngoing
	case models.StatusTerminated:
		return models.StatusTerminated, proposed
	}
	if proposed.Terminal() && turn >= MinTurns {
		return models.StatusTerminated, proposed
	}
	return models.StatusInProgress, models.OutcomeOngoing
}

// SoftCeiling is the turn from which the model is asked to drive the case
// toward a conclusion. It is guidance only; nothing stops a longer episode.
func SoftCeiling(effectiveSeverity int) int {
	if effectiveSeverity <= 3 {
		return 6
	}
	return 7
}
