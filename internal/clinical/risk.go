package clinical

import "github.com/tatianab/clinical-sim/internal/models"

// ClassifyRisk maps vitals to a qualitative risk level. Any single
// qualifying vital is enough; high conditions are checked first.
func ClassifyRisk(v models.Vitals) models.RiskLevel {
	sys := v.BP.Systolic

	if v.SpO2 < 90 || sys < 90 || v.HR > 130 || v.RR > 30 || v.Temp > 39.5 || v.Temp < 35 {
		return models.RiskHigh
	}
	if v.SpO2 < 94 || sys < 100 || v.HR > 110 || v.RR > 24 || v.Temp > 38.5 {
		return models.RiskMedium
	}
	return models.RiskLow
}
