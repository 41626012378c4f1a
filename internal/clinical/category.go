package clinical

// CategoryGeneral is returned when no category rule fires.
const CategoryGeneral = "general"

// categoryRules classify free text into a knowledge-base category.
// First match wins: "shock settico" is sepsis, not cardiology.
var categoryRules = []KeywordRule[string]{
	{Keywords: []string{"sepsi", "septic", "shock settico"}, Value: "sepsis"},
	{Keywords: []string{"ards", "polmon", "respir", "niv", "cpap", "bipap", "ventilazione", "ega", "bpco", "asma", "bronchiolite"}, Value: "respiratory"},
	{Keywords: []string{"scompenso", "insufficienza cardiaca", "shock cardiogeno", "cardiaco", "infarto", "fibrillazione", "atrioventricolare"}, Value: "cardiology"},
	{Keywords: []string{"lesione da pressione", "decubito", "ulcera", "wound", "piaga"}, Value: "wound"},
	{Keywords: []string{"glasgow", "gcs", "neurolog", "delirium", "coscienza", "ictus", "convulsion", "trauma cranico"}, Value: "neuro"},
	{Keywords: []string{"peg", "nutrizione enterale", "gastrostomia"}, Value: "peg"},
	{Keywords: []string{"stomia", "stomaterapia", "colostomia", "ileostomia"}, Value: "stoma"},
	{Keywords: []string{"ecmo", "vv-ecmo", "va-ecmo"}, Value: "ecmo"},
	{Keywords: []string{"salute orale", "igiene orale", "bocca"}, Value: "oral_health"},
	{Keywords: []string{"dolore", "pain", "cpot", "bps", "nrs"}, Value: "pain"},
	{Keywords: []string{"news2", "early warning", "escalation", "sbar", "sicurezza", "risk management"}, Value: "safety"},
	{Keywords: []string{"diuresi", "bilancio idrico", "aki", "insufficienza renale", "urinari"}, Value: "renal"},
	{Keywords: []string{"nutrizione", "malnutrizione", "bmi", "albumina", "disidratazione"}, Value: "nutrition"},
}

// DetectCategory returns the knowledge-base category of text.
func DetectCategory(text string) string {
	if c, ok := FirstMatch(categoryRules, text); ok {
		return c
	}
	return CategoryGeneral
}

// forbiddenQueryPatterns mark decision-making questions that the
// definitions-only tutor refuses.
var forbiddenQueryPatterns = []string{
	"come ", "quando ", "perché", "perche", "perchè",
	"cosa devo", "cosa faccio", "cosa fare",
	"meglio", "preferibile", "scelta", "confronto",
	" vs ", "versus",
	"gestire", "gestisco",
	"trattare",
	"dose", "dosaggio",
	"protocollo", "algoritmo",
	"quale ", "qual è", "qual e",
	"differenza", "differenze",
	"se il paziente", "se il pz",
	"se peggiora", "se migliora",
	"cosa succede se",
}

// IsForbiddenQuery reports whether a tutor query asks for decisions rather
// than definitions.
func IsForbiddenQuery(query string) bool {
	return ContainsAny(Normalize(query), forbiddenQueryPatterns)
}
