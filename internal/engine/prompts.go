package engine

import (
	"bytes"
	_ "embed"
	"text/template"

	"github.com/tatianab/clinical-sim/internal/models"
	"github.com/tatianab/clinical-sim/internal/store"
)

//go:embed prompts/system.txt
var systemPrompt string

//go:embed prompts/start.txt
var startPrompt string

//go:embed prompts/step.txt
var stepPrompt string

// maxReferences bounds the knowledge-base documents quoted in a start prompt.
const maxReferences = 6

// historyWindow is the number of past turns quoted in a step prompt.
const historyWindow = 6

type startData struct {
	Game       models.Game
	Vitals     models.Vitals
	Severity   int
	Ceiling    int
	References []store.Document
}

type stepData struct {
	Game     models.Game
	Vitals   models.Vitals
	Severity int
	Turn     int
	MinTurns int
	Ceiling  int
	Choice   string
	History  []models.TurnRecord
}

func render(name, text string, data any) (string, error) {
	tmpl, err := template.New(name).Parse(text)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
