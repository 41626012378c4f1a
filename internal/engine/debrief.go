package engine

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/tatianab/clinical-sim/internal/models"
)

// bundle is the fixed text of a debrief for one outcome.
type bundle struct {
	summary           string
	strengths         []string
	priorityErrors    []string
	missedRisks       []string
	missedWithFinding []string
	reasoning         []string
	next              string
}

var debriefBundles = map[models.Outcome]bundle{
	models.OutcomeImproved: {
		summary: "Il paziente ha mostrato un miglioramento clinico.",
		strengths: []string{
			"Hai riconosciuto precocemente i segni di instabilità.",
			"Hai scelto interventi coerenti con le priorità cliniche.",
			"Hai monitorato in modo sistematico i parametri vitali.",
		},
		missedWithFinding: []string{"Alcuni reperti non sono stati integrati pienamente."},
		reasoning: []string{
			"Il ragionamento clinico è stato coerente con la situazione.",
			"Hai mantenuto una buona sequenza decisionale.",
		},
		next: "Il paziente potrebbe consolidare il miglioramento con monitoraggio continuo.",
	},
	models.OutcomeCritical: {
		summary:   "Il quadro clinico è evoluto verso una condizione critica.",
		strengths: []string{"Hai mantenuto un monitoraggio costante."},
		priorityErrors: []string{
			"Alcune priorità critiche non sono state affrontate tempestivamente.",
			"La sequenza degli interventi non ha rispecchiato la gravità del quadro.",
		},
		missedRisks:       []string{"Il deterioramento non è stato anticipato."},
		missedWithFinding: []string{"Alcuni reperti indicavano un rischio imminente non riconosciuto."},
		reasoning: []string{
			"Il ragionamento clinico è stato presente ma non sempre allineato alla gravità.",
			"Alcuni segni di allarme non sono stati interpretati come prioritari.",
		},
		next: "In uno scenario reale sarebbe necessaria un'escalation assistenziale urgente.",
	},
	models.OutcomeStabilized: {
		summary: "Il paziente ha raggiunto una stabilizzazione relativa.",
		strengths: []string{
			"Hai ottenuto una stabilizzazione dei parametri vitali.",
			"Hai mantenuto un monitoraggio regolare.",
		},
		priorityErrors:    []string{"Alcune aree di rischio residuo non sono state affrontate completamente."},
		missedWithFinding: []string{"Alcuni reperti suggeriscono rischi evolutivi."},
		reasoning: []string{
			"Il ragionamento clinico ha evitato un deterioramento.",
			"La gestione delle priorità è stata adeguata.",
		},
		next: "Con monitoraggio continuo il paziente potrebbe progredire verso un miglioramento.",
	},
}

var fallbackBundle = bundle{
	summary:           "La simulazione si è conclusa.",
	missedWithFinding: []string{"Alcuni reperti finali richiedono ancora una rivalutazione."},
	reasoning:         []string{"Rivedi la sequenza delle priorità adottate durante il turno."},
	next:              "Il paziente richiede una rivalutazione completa alla consegna successiva.",
}

// ProfileReader reads a user's XP and level.
type ProfileReader interface {
	GetProfile(ctx context.Context, userID string) (models.BehaviorProfile, error)
}

// Debriefer builds the end-of-episode report from fixed templates. It never
// calls the model.
type Debriefer struct {
	profiles ProfileReader
}

func NewDebriefer(profiles ProfileReader) *Debriefer {
	return &Debriefer{profiles: profiles}
}

// Build assembles the debrief of a terminal turn. history is the ordered
// list of chosen action labels.
func (d *Debriefer) Build(ctx context.Context, userID string, data TurnData, history []string) (models.DebriefResponse, error) {
	profile, err := d.profiles.GetProfile(ctx, userID)
	if err != nil {
		return models.DebriefResponse{}, fmt.Errorf("read profile: %w", err)
	}

	b, ok := debriefBundles[data.Outcome]
	if !ok {
		b = fallbackBundle
	}

	missed := b.missedRisks
	if len(data.NewFindings) > 0 {
		missed = b.missedWithFinding
	}

	reasoning := slices.Clone(b.reasoning)
	if len(history) > 0 {
		reasoning = append(reasoning,
			fmt.Sprintf("La sequenza delle azioni (%s) mostra il tuo stile decisionale.", strings.Join(history, " → ")))
	}

	summary := b.summary
	if update := strings.TrimSpace(data.PatientUpdate); update != "" {
		summary += " " + update
	}

	return models.DebriefResponse{
		Type:                models.ResponseTypeDebrief,
		Outcome:             data.Outcome,
		Summary:             summary,
		Strengths:           nonNil(b.strengths),
		PriorityErrors:      nonNil(b.priorityErrors),
		MissedRisks:         nonNil(missed),
		CommunicationNotes:  []string{},
		ClinicalReasoning:   nonNil(reasoning),
		WhatWouldHappenNext: b.next,
		XPTotal:             profile.XP,
		Level:               profile.Level,
	}, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return slices.Clone(s)
}
