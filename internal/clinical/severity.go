package clinical

import "github.com/tatianab/clinical-sim/internal/models"

const (
	MinSeverity     = 1
	MaxSeverity     = 5
	DefaultSeverity = 2
)

// severityRules infer a scenario's base severity from its pathology label.
var severityRules = []KeywordRule[int]{
	{Keywords: []string{"shock", "ards", "emorragia"}, Value: 4},
	{Keywords: []string{"infarto", "sepsi", "ictus"}, Value: 3},
}

// SeverityFor returns the base severity of a pathology.
func SeverityFor(pathology string) int {
	if s, ok := FirstMatch(severityRules, pathology); ok {
		return s
	}
	return DefaultSeverity
}

// vitalsBands is indexed by severity band (1..4).
var vitalsBands = [...]models.Vitals{
	{HR: 78, BP: models.BloodPressure{Systolic: 124, Diastolic: 78}, RR: 14, SpO2: 98, Temp: 36.6, Consciousness: "vigile"},
	{HR: 92, BP: models.BloodPressure{Systolic: 115, Diastolic: 72}, RR: 18, SpO2: 96, Temp: 37.3, Consciousness: "vigile"},
	{HR: 105, BP: models.BloodPressure{Systolic: 100, Diastolic: 60}, RR: 22, SpO2: 94, Temp: 38, Consciousness: "vigile"},
	{HR: 128, BP: models.BloodPressure{Systolic: 85, Diastolic: 50}, RR: 28, SpO2: 89, Temp: 38.9, Consciousness: "soporoso"},
}

// VitalsForSeverity returns the fixed vitals tuple of a severity band.
// Severities below 1 use band 1; severities above 4 use band 4.
func VitalsForSeverity(severity int) models.Vitals {
	band := min(max(severity, 1), len(vitalsBands))
	return vitalsBands[band-1]
}

// DefaultVitals is the healthy-adult tuple used when a model omits vitals.
func DefaultVitals() models.Vitals {
	return models.Vitals{
		HR:            90,
		BP:            models.BloodPressure{Systolic: 120, Diastolic: 70},
		RR:            16,
		SpO2:          98,
		Temp:          36.8,
		Consciousness: "vigile",
	}
}
