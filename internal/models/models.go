package models

import "time"

// Outcome is the model-proposed direction of a turn.
type Outcome string

const (
	OutcomeOngoing    Outcome = "ongoing"
	OutcomeImproved   Outcome = "improved"
	OutcomeCritical   Outcome = "critical"
	OutcomeStabilized Outcome = "stabilized"
)

// ParseOutcome maps free text to a known outcome. Anything unrecognised is ongoing.
func ParseOutcome(s string) Outcome {
	switch o := Outcome(s); o {
	case OutcomeImproved, OutcomeCritical, OutcomeStabilized:
		return o
	default:
		return OutcomeOngoing
	}
}

// Terminal reports whether the outcome ends an episode.
func (o Outcome) Terminal() bool {
	return o == OutcomeImproved || o == OutcomeCritical || o == OutcomeStabilized
}

// RiskLevel is the qualitative risk derived from a vitals snapshot.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// Valid reports whether r is one of the three known levels.
func (r RiskLevel) Valid() bool {
	return r == RiskLow || r == RiskMedium || r == RiskHigh
}

// GameStatus is the persisted state of the turn state machine.
type GameStatus string

const (
	// StatusNew is never stored: it is the state of a game that does not exist yet.
	StatusNew        GameStatus = "NEW"
	StatusInProgress GameStatus = "IN_PROGRESS"
	StatusTerminated GameStatus = "TERMINATED"
)

const (
	GenderMale          = "M"
	GenderFemale        = "F"
	GenderNotApplicable = "N/A"
)

// GameContext is the scenario blob fixed at creation time.
type GameContext struct {
	Pathology    string `json:"pathology" yaml:"pathology"`
	Personality  string `json:"personality" yaml:"personality"`
	BaseSeverity int    `json:"baseSeverity" yaml:"base_severity"`
	Pregnant     bool   `json:"pregnant" yaml:"pregnant"`
}

// Game is one simulation episode. Environment and Context.Pathology never
// change after creation.
type Game struct {
	ID          string      `json:"id" yaml:"id"`
	UserID      string      `json:"userId" yaml:"user_id"`
	Environment string      `json:"environment" yaml:"environment"`
	Age         int         `json:"age" yaml:"age"`
	Gender      string      `json:"gender" yaml:"gender"`
	Context     GameContext `json:"context" yaml:"context"`
	Turn        int         `json:"turn" yaml:"turn"`
	Status      GameStatus  `json:"status" yaml:"status"`
	CreatedAt   time.Time   `json:"createdAt" yaml:"created_at"`
	UpdatedAt   time.Time   `json:"updatedAt" yaml:"updated_at"`
}

// State is the latest physiological snapshot of a game.
type State struct {
	GameID    string    `json:"gameId" yaml:"game_id"`
	Vitals    Vitals    `json:"vitals" yaml:"vitals"`
	UpdatedAt time.Time `json:"updatedAt" yaml:"updated_at"`
}

// BehaviorProfile accumulates a user's decision tendencies across games.
type BehaviorProfile struct {
	UserID             string `json:"userId" yaml:"user_id"`
	EscalationDelay    int    `json:"escalationDelay" yaml:"escalation_delay"`
	AirwayFocus        int    `json:"airwayFocus" yaml:"airway_focus"`
	HemodynamicNeglect int    `json:"hemodynamicNeglect" yaml:"hemodynamic_neglect"`
	RenalNeglect       int    `json:"renalNeglect" yaml:"renal_neglect"`
	Impulsivity        int    `json:"impulsivity" yaml:"impulsivity"`
	XP                 int    `json:"xp" yaml:"xp"`
	Level              int    `json:"level" yaml:"level"`
}

// LevelForXP is floor(xp/100)+1.
func LevelForXP(xp int) int {
	if xp < 0 {
		xp = 0
	}
	return xp/100 + 1
}

// Action is one option offered to the student.
type Action struct {
	ID    string `json:"id" yaml:"id"`
	Label string `json:"label" yaml:"label"`
}

// TurnRecord is the durable history of one completed turn.
type TurnRecord struct {
	GameID        string    `json:"gameId" yaml:"game_id"`
	Turn          int       `json:"turn" yaml:"turn"`
	Choice        string    `json:"choice,omitempty" yaml:"choice,omitempty"`
	Phase         string    `json:"phase" yaml:"phase"`
	PatientUpdate string    `json:"patientUpdate" yaml:"patient_update"`
	Vitals        Vitals    `json:"vitals" yaml:"vitals"`
	Outcome       Outcome   `json:"outcome" yaml:"outcome"`
	RiskLevel     RiskLevel `json:"riskLevel" yaml:"risk_level"`
	XPDelta       int       `json:"xpDelta" yaml:"xp_delta"`
	CreatedAt     time.Time `json:"createdAt" yaml:"created_at"`
}

// StepResponse is returned for every non-terminal turn.
type StepResponse struct {
	Type             string    `json:"type" yaml:"type"`
	GameID           string    `json:"gameId" yaml:"game_id"`
	Environment      string    `json:"environment" yaml:"environment"`
	Turn             int       `json:"turn" yaml:"turn"`
	AdaptiveSeverity int       `json:"adaptiveSeverity" yaml:"adaptive_severity"`
	Phase            string    `json:"phase" yaml:"phase"`
	PatientUpdate    string    `json:"patientUpdate" yaml:"patient_update"`
	Vitals           Vitals    `json:"vitals" yaml:"vitals"`
	NewFindings      []string  `json:"newFindings" yaml:"new_findings"`
	AvailableActions []Action  `json:"availableActions" yaml:"available_actions"`
	Outcome          Outcome   `json:"outcome" yaml:"outcome"`
	XPDelta          int       `json:"xpDelta" yaml:"xp_delta"`
	RiskLevel        RiskLevel `json:"riskLevel" yaml:"risk_level"`
}

// DebriefResponse is the end-of-episode retrospective.
type DebriefResponse struct {
	Type                string   `json:"type" yaml:"type"`
	GameID              string   `json:"gameId" yaml:"game_id"`
	Outcome             Outcome  `json:"outcome" yaml:"outcome"`
	Summary             string   `json:"summary" yaml:"summary"`
	Strengths           []string `json:"strengths" yaml:"strengths"`
	PriorityErrors      []string `json:"priorityErrors" yaml:"priority_errors"`
	MissedRisks         []string `json:"missedRisks" yaml:"missed_risks"`
	CommunicationNotes  []string `json:"communicationNotes" yaml:"communication_notes"`
	ClinicalReasoning   []string `json:"clinicalReasoning" yaml:"clinical_reasoning"`
	WhatWouldHappenNext string   `json:"whatWouldHappenNext" yaml:"what_would_happen_next"`
	XPTotal             int      `json:"xpTotal" yaml:"xp_total"`
	Level               int      `json:"level" yaml:"level"`
}

const (
	ResponseTypeStep    = "step"
	ResponseTypeDebrief = "debrief"
)
