package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tatianab/clinical-sim/internal/clinical"
	"github.com/tatianab/clinical-sim/internal/llm"
	"github.com/tatianab/clinical-sim/internal/models"
)

func TestDecodeTurnStripsFences(t *testing.T) {
	content := "```json\n{\"phase\":\"Arrivo\",\"turn\":2,\"outcome\":\"ongoing\",\"riskLevel\":\"low\"," +
		"\"availableActions\":[{\"id\":\"A\",\"label\":\"Uno\"},{\"id\":\"B\",\"label\":\"Due\"}]," +
		"\"vitals\":{\"hr\":80,\"bp\":\"120/80\",\"rr\":14,\"spo2\":99,\"temp\":36.5,\"consciousness\":\"vigile\"}}\n```"

	d, err := DecodeTurn(content)
	require.NoError(t, err)
	assert.Equal(t, "Arrivo", d.Phase)
	assert.Equal(t, 2, d.Turn)
	assert.Equal(t, models.RiskLow, d.RiskLevel)
	assert.Empty(t, d.Repairs)
}

func TestDecodeTurnRejectsNonJSON(t *testing.T) {
	for _, content := range []string{"", "nessun json qui", "```\n[1,2]\n```", "null"} {
		_, err := DecodeTurn(content)
		var fe *llm.FormatError
		require.True(t, errors.As(err, &fe), "%q", content)
		assert.Equal(t, llm.StageContent, fe.Stage)
		assert.Equal(t, content, fe.Raw)
	}
}

func TestDecodeTurnVitalsRepair(t *testing.T) {
	d, err := DecodeTurn(`{"availableActions":["a","b"]}`)
	require.NoError(t, err)
	assert.Equal(t, clinical.DefaultVitals(), d.Vitals)
	assert.Contains(t, d.Repairs, "vitals")

	d, err = DecodeTurn(`{"vitals":"stabili","availableActions":["a","b"]}`)
	require.NoError(t, err)
	assert.Equal(t, clinical.DefaultVitals(), d.Vitals)

	d, err = DecodeTurn(`{"vitals":{"hr":"128","spo2":"88%"},"availableActions":["a","b"]}`)
	require.NoError(t, err)
	assert.Equal(t, models.Vitals{
		HR: 128, BP: models.BloodPressure{Systolic: 120, Diastolic: 70},
		RR: 16, SpO2: 88, Temp: 36.8, Consciousness: "vigile",
	}, d.Vitals)
	assert.Contains(t, d.Repairs, "vitals-fields")
	assert.Equal(t, models.RiskHigh, d.RiskLevel)
}

func TestDecodeTurnActions(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    []models.Action
	}{
		{
			name:    "absent",
			content: `{}`,
			want:    FallbackActions(),
		},
		{
			name:    "not a list",
			content: `{"availableActions":"A) ossigeno B) medico"}`,
			want:    FallbackActions(),
		},
		{
			name:    "single usable entry",
			content: `{"availableActions":[{"id":"A","label":"Ossigeno"},{"id":"B","label":"  "}]}`,
			want:    FallbackActions(),
		},
		{
			name:    "missing ids by position",
			content: `{"availableActions":[{"label":"Ossigeno"},"Chiama il medico",{"id":"X","label":"Documenta"}]}`,
			want: []models.Action{
				{ID: "A", Label: "Ossigeno"},
				{ID: "B", Label: "Chiama il medico"},
				{ID: "X", Label: "Documenta"},
			},
		},
		{
			name:    "more than four",
			content: `{"availableActions":["1","2","3","4","5","6"]}`,
			want: []models.Action{
				{ID: "A", Label: "1"}, {ID: "B", Label: "2"}, {ID: "C", Label: "3"}, {ID: "D", Label: "4"},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := DecodeTurn(tt.content)
			require.NoError(t, err)
			assert.Equal(t, tt.want, d.AvailableActions)
		})
	}
}

func TestDecodeTurnOutcomeAndRisk(t *testing.T) {
	d, err := DecodeTurn(`{"outcome":"deceased","riskLevel":"extreme","vitals":{"hr":90,"bp":"85/50","rr":16,"spo2":97,"temp":36.8,"consciousness":"vigile"}}`)
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeOngoing, d.Outcome)
	assert.Equal(t, models.RiskHigh, d.RiskLevel)
	assert.Contains(t, d.Repairs, "outcome")
	assert.Contains(t, d.Repairs, "riskLevel")

	// A valid model risk is kept.
	d, err = DecodeTurn(`{"outcome":"critical","riskLevel":"medium","vitals":{"hr":90,"bp":"85/50","rr":16,"spo2":97,"temp":36.8,"consciousness":"vigile"}}`)
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeCritical, d.Outcome)
	assert.Equal(t, models.RiskMedium, d.RiskLevel)
}

func TestDecodeTurnLists(t *testing.T) {
	d, err := DecodeTurn(`{"newFindings":["cute marezzata", 3, null],"interruptions":"allarme pompa","xpDelta":"15"}`)
	require.NoError(t, err)
	assert.Equal(t, []string{"cute marezzata", "3"}, d.NewFindings)
	assert.Equal(t, []string{"allarme pompa"}, d.Interruptions)
	assert.Equal(t, []string{}, d.PendingEffects)
	assert.Equal(t, 15, d.XPDelta)
}

func TestTransition(t *testing.T) {
	tests := []struct {
		status      models.GameStatus
		turn        int
		proposed    models.Outcome
		wantStatus  models.GameStatus
		wantOutcome models.Outcome
	}{
		{models.StatusNew, 1, models.OutcomeImproved, models.StatusInProgress, models.OutcomeOngoing},
		{models.StatusInProgress, 2, models.OutcomeCritical, models.StatusInProgress, models.OutcomeOngoing},
		{models.StatusInProgress, 4, models.OutcomeStabilized, models.StatusInProgress, models.OutcomeOngoing},
		{models.StatusInProgress, 5, models.OutcomeStabilized, models.StatusTerminated, models.OutcomeStabilized},
		{models.StatusInProgress, 9, models.OutcomeOngoing, models.StatusInProgress, models.OutcomeOngoing},
		{models.StatusTerminated, 7, models.OutcomeCritical, models.StatusTerminated, models.OutcomeCritical},
	}
	for _, tt := range tests {
		status, outcome := Transition(tt.status, tt.turn, tt.proposed)
		assert.Equal(t, tt.wantStatus, status, "%v turn %d %v", tt.status, tt.turn, tt.proposed)
		assert.Equal(t, tt.wantOutcome, outcome, "%v turn %d %v", tt.status, tt.turn, tt.proposed)
	}
}

func TestTurnFloorProperty(t *testing.T) {
	for turn := 1; turn < MinTurns; turn++ {
		for _, o := range []models.Outcome{models.OutcomeImproved, models.OutcomeCritical, models.OutcomeStabilized, models.OutcomeOngoing} {
			_, got := Transition(models.StatusInProgress, turn, o)
			assert.False(t, got.Terminal(), "turn %d %s", turn, o)
		}
	}
}

func TestSoftCeiling(t *testing.T) {
	assert.Equal(t, 6, SoftCeiling(1))
	assert.Equal(t, 6, SoftCeiling(3))
	assert.Equal(t, 7, SoftCeiling(4))
	assert.Equal(t, 7, SoftCeiling(5))
}

type staticProfiles models.BehaviorProfile

func (p staticProfiles) GetProfile(context.Context, string) (models.BehaviorProfile, error) {
	return models.BehaviorProfile(p), nil
}

func TestDebriefBundles(t *testing.T) {
	d := NewDebriefer(staticProfiles{XP: 230, Level: 3})
	ctx := context.Background()

	r, err := d.Build(ctx, "u1", TurnData{Outcome: models.OutcomeCritical, PatientUpdate: "Arresto respiratorio."}, nil)
	require.NoError(t, err)
	assert.Equal(t, "Il quadro clinico è evoluto verso una condizione critica. Arresto respiratorio.", r.Summary)
	assert.Equal(t, []string{"Il deterioramento non è stato anticipato."}, r.MissedRisks)
	assert.Len(t, r.PriorityErrors, 2)
	assert.Len(t, r.ClinicalReasoning, 2)
	assert.Equal(t, 230, r.XPTotal)
	assert.Equal(t, 3, r.Level)

	r, err = d.Build(ctx, "u1", TurnData{Outcome: models.OutcomeCritical, NewFindings: []string{"midriasi"}}, []string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Alcuni reperti indicavano un rischio imminente non riconosciuto."}, r.MissedRisks)
	assert.Equal(t, "La sequenza delle azioni (a → b) mostra il tuo stile decisionale.", r.ClinicalReasoning[2])

	r, err = d.Build(ctx, "u1", TurnData{Outcome: models.OutcomeImproved}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{}, r.PriorityErrors)
	assert.Equal(t, []string{}, r.MissedRisks)

	r, err = d.Build(ctx, "u1", TurnData{Outcome: models.OutcomeOngoing}, nil)
	require.NoError(t, err)
	assert.Equal(t, "La simulazione si è conclusa.", r.Summary)
	assert.NotEmpty(t, r.WhatWouldHappenNext)
}

func TestDebriefDoesNotShareTemplates(t *testing.T) {
	d := NewDebriefer(staticProfiles{})
	r, err := d.Build(context.Background(), "u1", TurnData{Outcome: models.OutcomeImproved}, []string{"x"})
	require.NoError(t, err)
	r.Strengths[0] = "changed"

	r2, err := d.Build(context.Background(), "u1", TurnData{Outcome: models.OutcomeImproved}, nil)
	require.NoError(t, err)
	assert.Equal(t, "Hai riconosciuto precocemente i segni di instabilità.", r2.Strengths[0])
	assert.Len(t, r2.ClinicalReasoning, 2)
}
