package behavior

import (
	"github.com/tatianab/clinical-sim/internal/clinical"
	"github.com/tatianab/clinical-sim/internal/models"
)

// Modifier raises difficulty by one when its condition holds.
type Modifier struct {
	Name string
	When func(p models.BehaviorProfile) bool
}

// Modifiers are independent; each adds +1.
var Modifiers = []Modifier{
	{Name: "escalation-delay", When: func(p models.BehaviorProfile) bool { return p.EscalationDelay > 3 }},
	{Name: "renal-neglect", When: func(p models.BehaviorProfile) bool { return p.RenalNeglect > 3 }},
	{Name: "airway-fixation", When: func(p models.BehaviorProfile) bool { return p.AirwayFocus > 4 }},
}

// AdaptiveDifficulty derives the effective severity of the next turn.
func AdaptiveDifficulty(profile models.BehaviorProfile, baseSeverity int) int {
	severity := baseSeverity
	for _, m := range Modifiers {
		if m.When(profile) {
			severity++
		}
	}
	return min(severity, clinical.MaxSeverity)
}
