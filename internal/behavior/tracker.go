// Package behavior tracks a student's decision tendencies across turns and
// turns them into an adaptive difficulty.
package behavior

import (
	"github.com/tatianab/clinical-sim/internal/clinical"
	"github.com/tatianab/clinical-sim/internal/models"
)

// Rule is one (predicate, effect) pair of the tracker table.
type Rule struct {
	Name  string
	Match func(normalizedChoice string) bool
	Apply func(p *models.BehaviorProfile)
	// Lowers marks rules that decrement a floored counter.
	Lowers bool
}

var (
	airwayTerms      = []string{"ossigen", "o2", "maschera", "venturi", "occhialini", "saturazion", "aspira", "vie aeree", "niv", "cpap", "ventila"}
	waitTerms        = []string{"attend", "aspett", "rimand", "più tardi", "piu tardi", "osservazione", "prossimo giro", "nessun intervento"}
	escalationTerms  = []string{"medico", "rianimator", "allert", "escalation", "sbar", "team di emergenza", "chiama", "118"}
	hemodynamicTerms = []string{"liquid", "fluid", "bolo", "cristalloid", "fisiologica", "pressione", "accesso venoso", "infusion", "emocromo", "emorragi"}
	renalTerms       = []string{"diuresi", "catetere", "bilancio idrico", "urin", "creatinin"}
	impulsiveTerms   = []string{"immediatamente", "subito", "senza valutare", "senza attendere", "di propria iniziativa"}
)

func has(terms []string) func(string) bool {
	return func(s string) bool { return clinical.ContainsAny(s, terms) }
}

func lacks(terms []string) func(string) bool {
	return func(s string) bool { return !clinical.ContainsAny(s, terms) }
}

func decrement(counter *int) {
	if *counter > 0 {
		*counter--
	}
}

// Rules is the tracker table. Every matching rule applies; increments go
// before decrements so the result does not depend on table order.
var Rules = []Rule{
	{
		Name:  "airway-focus",
		Match: has(airwayTerms),
		Apply: func(p *models.BehaviorProfile) { p.AirwayFocus++ },
	},
	{
		Name:  "escalation-delay",
		Match: has(waitTerms),
		Apply: func(p *models.BehaviorProfile) { p.EscalationDelay++ },
	},
	{
		Name:   "escalation",
		Match:  has(escalationTerms),
		Apply:  func(p *models.BehaviorProfile) { decrement(&p.EscalationDelay) },
		Lowers: true,
	},
	{
		Name:   "hemodynamic-care",
		Match:  has(hemodynamicTerms),
		Apply:  func(p *models.BehaviorProfile) { decrement(&p.HemodynamicNeglect) },
		Lowers: true,
	},
	{
		Name:  "hemodynamic-neglect",
		Match: lacks(hemodynamicTerms),
		Apply: func(p *models.BehaviorProfile) { p.HemodynamicNeglect++ },
	},
	{
		Name:   "renal-care",
		Match:  has(renalTerms),
		Apply:  func(p *models.BehaviorProfile) { decrement(&p.RenalNeglect) },
		Lowers: true,
	},
	{
		Name:  "renal-neglect",
		Match: lacks(renalTerms),
		Apply: func(p *models.BehaviorProfile) { p.RenalNeglect++ },
	},
	{
		Name:  "impulsivity",
		Match: has(impulsiveTerms),
		Apply: func(p *models.BehaviorProfile) { p.Impulsivity++ },
	},
}

// Update returns profile adjusted for one chosen action label. XP and level
// are left untouched. An empty label changes nothing.
func Update(profile models.BehaviorProfile, choiceLabel string) models.BehaviorProfile {
	choice := clinical.Normalize(choiceLabel)
	if choice == "" {
		return profile
	}
	for _, lowers := range []bool{false, true} {
		for _, r := range Rules {
			if r.Lowers == lowers && r.Match(choice) {
				r.Apply(&profile)
			}
		}
	}
	return profile
}

// Matched lists the names of the rules that fire on a label, in table order.
func Matched(choiceLabel string) []string {
	choice := clinical.Normalize(choiceLabel)
	if choice == "" {
		return nil
	}
	var names []string
	for _, r := range Rules {
		if r.Match(choice) {
			names = append(names, r.Name)
		}
	}
	return names
}
