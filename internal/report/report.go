// Package report renders simulation turns and debriefs for the terminal.
package report

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/tatianab/clinical-sim/internal/models"
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFA500")).
			Bold(true).
			Underline(true)

	headingStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#EEEEEE")).
			Background(lipgloss.Color("#5F5F87")).
			Bold(true).
			PaddingLeft(1).
			PaddingRight(1)

	bodyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFFFF"))

	vitalsStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder(), false, false, false, true).
			BorderForeground(lipgloss.Color("#3C3C3C")).
			PaddingLeft(2).
			Foreground(lipgloss.Color("#AAAAAA"))

	actionStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87AFD7"))

	noteStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888")).
			Italic(true)

	riskColors = map[models.RiskLevel]lipgloss.Color{
		models.RiskLow:    lipgloss.Color("#5FAF5F"),
		models.RiskMedium: lipgloss.Color("#D7AF00"),
		models.RiskHigh:   lipgloss.Color("#D75F5F"),
	}
)

func riskBadge(r models.RiskLevel) string {
	return lipgloss.NewStyle().
		Foreground(riskColors[r]).
		Bold(true).
		Render("rischio " + string(r))
}

// Vitals renders the six parameters on two lines.
func Vitals(v models.Vitals) string {
	return vitalsStyle.Render(fmt.Sprintf(
		"FC %d bpm   PA %s mmHg   FR %d atti/min\nSpO2 %d%%   TC %.1f °C   coscienza: %s",
		v.HR, v.BP, v.RR, v.SpO2, v.Temp, v.Consciousness,
	))
}

// Step renders one turn with its options.
func Step(s models.StepResponse) string {
	header := fmt.Sprintf("Turno %d · %s · gravità %d", s.Turn, s.Environment, s.AdaptiveSeverity)
	parts := []string{
		titleStyle.Render(header),
		headingStyle.Render(s.Phase) + "  " + riskBadge(s.RiskLevel),
		bodyStyle.Render(s.PatientUpdate),
		Vitals(s.Vitals),
	}
	if len(s.NewFindings) > 0 {
		parts = append(parts, list("Nuovi reperti", s.NewFindings))
	}
	var actions []string
	for _, a := range s.AvailableActions {
		actions = append(actions, actionStyle.Render(fmt.Sprintf("%s) %s", a.ID, a.Label)))
	}
	parts = append(parts, headingStyle.Render("Azioni disponibili"), strings.Join(actions, "\n"))
	if s.XPDelta > 0 {
		parts = append(parts, noteStyle.Render(fmt.Sprintf("+%d XP", s.XPDelta)))
	}
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

// Debrief renders the end-of-case retrospective.
func Debrief(d models.DebriefResponse) string {
	parts := []string{
		titleStyle.Render("Debriefing · esito " + string(d.Outcome)),
		bodyStyle.Render(d.Summary),
	}
	for _, sec := range []struct {
		title string
		items []string
	}{
		{"Punti di forza", d.Strengths},
		{"Errori di priorità", d.PriorityErrors},
		{"Rischi non riconosciuti", d.MissedRisks},
		{"Comunicazione", d.CommunicationNotes},
		{"Ragionamento clinico", d.ClinicalReasoning},
	} {
		if len(sec.items) > 0 {
			parts = append(parts, list(sec.title, sec.items))
		}
	}
	if d.WhatWouldHappenNext != "" {
		parts = append(parts, headingStyle.Render("Cosa sarebbe successo dopo"), bodyStyle.Render(d.WhatWouldHappenNext))
	}
	parts = append(parts, noteStyle.Render(fmt.Sprintf("XP totali %d · livello %d", d.XPTotal, d.Level)))
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func list(title string, items []string) string {
	lines := make([]string, 0, len(items)+1)
	lines = append(lines, headingStyle.Render(title))
	for _, it := range items {
		lines = append(lines, bodyStyle.Render("• "+it))
	}
	return strings.Join(lines, "\n")
}
