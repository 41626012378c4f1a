package engine

import (
	"encoding/json"

	"github.com/tatianab/clinical-sim/internal/clinical"
	"github.com/tatianab/clinical-sim/internal/llm"
	"github.com/tatianab/clinical-sim/internal/models"
)

// TurnData is one model turn after decoding and repair.
type TurnData struct {
	Phase            string
	Turn             int
	Environment      string
	PatientUpdate    string
	Vitals           models.Vitals
	NewFindings      []string
	Interruptions    []string
	PendingEffects   []string
	AvailableActions []models.Action
	Outcome          models.Outcome
	XPDelta          int
	RiskLevel        models.RiskLevel
	// Repairs names every substitution made while decoding.
	Repairs []string
}

const (
	minActions = 2
	maxActions = 4
)

var actionIDs = [maxActions]string{"A", "B", "C", "D"}

// FallbackActions is the option list used when the model's list is unusable.
func FallbackActions() []models.Action {
	return []models.Action{
		{ID: "A", Label: "Rivaluta il paziente"},
		{ID: "B", Label: "Richiedi supporto"},
		{ID: "C", Label: "Controlla i parametri"},
		{ID: "D", Label: "Documenta"},
	}
}

// DecodeTurn parses the model's message content into a TurnData, repairing
// missing or malformed fields. Content that is not a JSON object, even after
// removing Markdown fences, is a content-stage *llm.FormatError.
func DecodeTurn(content string) (TurnData, error) {
	fields, err := llm.ParseObject(content)
	if err != nil {
		return TurnData{}, err
	}

	var d TurnData
	d.Phase = llm.String(fields["phase"])
	d.Environment = llm.String(fields["environment"])
	d.PatientUpdate = llm.String(fields["patientUpdate"])
	d.Turn, _ = llm.Int(fields["turn"])
	d.XPDelta, _ = llm.Int(fields["xpDelta"])
	d.NewFindings = llm.Strings(fields["newFindings"])
	d.Interruptions = llm.Strings(fields["interruptions"])
	d.PendingEffects = llm.Strings(fields["pendingEffects"])

	d.decodeVitals(fields["vitals"])
	d.decodeActions(fields["availableActions"])

	rawOutcome := llm.String(fields["outcome"])
	d.Outcome = models.ParseOutcome(rawOutcome)
	if string(d.Outcome) != rawOutcome {
		d.Repairs = append(d.Repairs, "outcome")
	}

	d.RiskLevel = models.RiskLevel(llm.String(fields["riskLevel"]))
	if !d.RiskLevel.Valid() {
		d.RiskLevel = clinical.ClassifyRisk(d.Vitals)
		d.Repairs = append(d.Repairs, "riskLevel")
	}
	return d, nil
}

func (d *TurnData) decodeVitals(raw json.RawMessage) {
	def := clinical.DefaultVitals()
	if llm.IsAbsent(raw) {
		d.Vitals = def
		d.Repairs = append(d.Repairs, "vitals")
		return
	}
	var v models.Vitals
	if err := json.Unmarshal(raw, &v); err != nil {
		d.Vitals = def
		d.Repairs = append(d.Repairs, "vitals")
		return
	}
	filled := v.WithDefaults(def)
	if filled != v {
		d.Repairs = append(d.Repairs, "vitals-fields")
	}
	d.Vitals = filled
}

func (d *TurnData) decodeActions(raw json.RawMessage) {
	var items []json.RawMessage
	if llm.IsAbsent(raw) || json.Unmarshal(raw, &items) != nil {
		d.AvailableActions = FallbackActions()
		d.Repairs = append(d.Repairs, "availableActions")
		return
	}

	var actions []models.Action
	for _, item := range items {
		a, ok := decodeAction(item)
		if !ok {
			continue
		}
		actions = append(actions, a)
	}
	if len(actions) < minActions {
		d.AvailableActions = FallbackActions()
		d.Repairs = append(d.Repairs, "availableActions")
		return
	}
	if len(actions) > maxActions {
		actions = actions[:maxActions]
		d.Repairs = append(d.Repairs, "availableActions-truncated")
	}
	for i := range actions {
		if actions[i].ID == "" {
			actions[i].ID = actionIDs[i]
		}
	}
	d.AvailableActions = actions
}

func decodeAction(raw json.RawMessage) (models.Action, bool) {
	if label := llm.String(raw); label != "" {
		return models.Action{Label: label}, true
	}
	var obj struct {
		ID    json.RawMessage `json:"id"`
		Label json.RawMessage `json:"label"`
	}
	if json.Unmarshal(raw, &obj) != nil {
		return models.Action{}, false
	}
	label := llm.String(obj.Label)
	if label == "" {
		return models.Action{}, false
	}
	return models.Action{ID: llm.String(obj.ID), Label: label}, true
}
