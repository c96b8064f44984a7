package risk

import "health-risk/internal/schema"

// FallbackRecommendation is returned alone for any pair outside the table.
const FallbackRecommendation = "Consult a healthcare professional"

var recommendations = map[schema.Condition]map[Level][]string{
	schema.Diabetes: {
		Low: {
			"Maintain a balanced diet",
			"Regular check-ups annually",
			"Stay physically active",
		},
		Medium: {
			"Reduce sugar intake",
			"Exercise at least 3 times a week",
			"Monitor blood sugar periodically",
		},
		High: {
			"Consult a doctor soon",
			"Daily blood sugar monitoring",
			"Follow a strict diabetic diet plan",
		},
	},
	schema.Cardiovascular: {
		Low: {
			"Maintain healthy lifestyle",
			"Regular exercise",
			"Balanced diet",
		},
		Medium: {
			"Reduce salt intake",
			"Exercise regularly",
			"Monitor blood pressure monthly",
		},
		High: {
			"Consult a cardiologist",
			"Consider medication options",
			"Follow a heart-healthy diet strictly",
		},
	},
	schema.KidneyStone: {
		Low: {
			"Stay hydrated",
			"Moderate calcium intake",
			"Reduce sodium consumption",
		},
		Medium: {
			"Drink at least 2L water daily",
			"Reduce oxalate-rich foods",
			"Consider dietary changes",
		},
		High: {
			"Consult a urologist",
			"Follow specific diet plans",
			"Increase fluid intake significantly",
		},
	},
}

// Recommendations returns the advice list for a condition and tier. The result
// is never empty and is a fresh slice the caller may modify.
func Recommendations(c schema.Condition, l Level) []string {
	list, ok := recommendations[c][l]
	if !ok || len(list) == 0 {
		return []string{FallbackRecommendation}
	}
	out := make([]string, len(list))
	copy(out, list)
	return out
}
