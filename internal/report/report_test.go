package report

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tatianab/clinical-sim/internal/models"
)

func TestStep(t *testing.T) {
	out := Step(models.StepResponse{
		Turn:             3,
		Environment:      "Pronto Soccorso",
		AdaptiveSeverity: 4,
		Phase:            "Rivalutazione",
		PatientUpdate:    "Il paziente appare sudato.",
		Vitals: models.Vitals{
			HR: 118, BP: models.BloodPressure{Systolic: 92, Diastolic: 55},
			RR: 26, SpO2: 91, Temp: 38.6, Consciousness: "soporoso",
		},
		NewFindings:      []string{"cute marezzata"},
		AvailableActions: []models.Action{{ID: "A", Label: "Ossigeno"}, {ID: "B", Label: "Chiama il medico"}},
		RiskLevel:        models.RiskHigh,
		XPDelta:          10,
	})

	for _, want := range []string{
		"Turno 3", "Pronto Soccorso", "gravità 4", "Rivalutazione", "rischio high",
		"Il paziente appare sudato.", "PA 92/55 mmHg", "SpO2 91%", "TC 38.6", "soporoso",
		"cute marezzata", "A) Ossigeno", "B) Chiama il medico", "+10 XP",
	} {
		assert.Contains(t, out, want)
	}
}

func TestStepWithoutFindings(t *testing.T) {
	out := Step(models.StepResponse{Turn: 1, RiskLevel: models.RiskLow})
	assert.NotContains(t, out, "Nuovi reperti")
	assert.NotContains(t, out, "XP")
}

func TestDebrief(t *testing.T) {
	out := Debrief(models.DebriefResponse{
		Outcome:             models.OutcomeCritical,
		Summary:             "Il quadro è peggiorato.",
		PriorityErrors:      []string{"Escalation tardiva."},
		MissedRisks:         []string{},
		ClinicalReasoning:   []string{"Hai monitorato i parametri."},
		WhatWouldHappenNext: "Trasferimento in terapia intensiva.",
		XPTotal:             120,
		Level:               2,
	})
	for _, want := range []string{
		"esito critical", "Il quadro è peggiorato.", "Errori di priorità", "• Escalation tardiva.",
		"Ragionamento clinico", "Trasferimento in terapia intensiva.", "XP totali 120 · livello 2",
	} {
		assert.Contains(t, out, want)
	}
	assert.NotContains(t, out, "Rischi non riconosciuti")
}
