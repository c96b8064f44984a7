package schema

// Version of the feature tables below. Bump when any condition's feature order
// or any mapping changes, and retrain the affected artifacts.
const Version = 1

var diabetesFeatures = []string{
	"Age", "Sex", "Height", "Weight", "BMI", "Physical activity level",
	"Smoking status", "Alcohol consumption", "Sleep duration",
	"Fruit and vegetable consumption", "Processed food consumption",
	"Added sugar intake", "Family history of diabetes",
	"Frequent urination", "Unexplained thirst", "Unexplained weight loss",
}

var cardiovascularFeatures = []string{
	"Age", "Sex", "Height", "Weight", "BMI", "Physical activity level",
	"Smoking status", "Alcohol consumption",
	"Chest pain or discomfort", "Shortness of breath during normal activities",
	"Fatigue", "Stress levels", "Salt intake", "Activity intensity",
	"Family history of cardiovascular disease",
}

var kidneyStoneFeatures = []string{
	"Age", "Sex", "Weight", "Height", "Daily water intake",
	"Salt intake", "Red meat consumption", "Family history of kidney stones",
	"Previous kidney stones", "Back or flank pain",
	"Painful urination", "Blood in urine",
}

// Sleep duration is answered in hour buckets, so it is categorical even though
// the raw quantity is numeric.
var categoricalMappings = map[string]CategoricalMapping{
	"Sex": {Codes: map[string]int{"Male": 0, "Female": 1, "Other": 2}, Default: 0},
	"Physical activity level": {Codes: map[string]int{
		"None":                     0,
		"Light (1-2 days/week)":    1,
		"Moderate (3-5 days/week)": 2,
		"High (6-7 days/week)":     3,
	}, Default: 1},
	"Smoking status": {Codes: map[string]int{
		"Never smoked":                     0,
		"Former smoker (quit >1 year ago)": 1,
		"Former smoker (quit <1 year ago)": 2,
		"Current smoker (occasional)":      3,
		"Current smoker (daily)":           4,
	}, Default: 0},
	"Alcohol consumption": {Codes: map[string]int{
		"None":                         0,
		"Occasional (1-2 drinks/week)": 1,
		"Moderate (3-7 drinks/week)":   2,
		"Heavy (>7 drinks/week)":       3,
	}, Default: 0},
	"Fruit and vegetable consumption": {Codes: map[string]int{
		"Less than 1 serving/day": 0,
		"1-2 servings/day":        1,
		"3-4 servings/day":        2,
		"5+ servings/day":         3,
	}, Default: 1},
	"Processed food consumption": {Codes: map[string]int{
		"Rarely":         0,
		"1-3 times/week": 1,
		"4-6 times/week": 2,
		"Daily":          3,
	}, Default: 1},
	"Added sugar intake": {Codes: map[string]int{"Low": 0, "Moderate": 1, "High": 2}, Default: 1},
	"Daily water intake": {Codes: map[string]int{
		"<4 glasses":  0,
		"4-6 glasses": 1,
		"7-8 glasses": 2,
		">8 glasses":  3,
	}, Default: 1},
	"Family history of diabetes": {Codes: map[string]int{
		"No":                    0,
		"Yes (one parent)":      1,
		"Yes (both parents)":    2,
		"Yes (siblings)":        1,
		"Yes (extended family)": 1,
	}, Default: 0},
	"Family history of cardiovascular disease": {Codes: map[string]int{
		"No":                    0,
		"Yes (one parent)":      1,
		"Yes (both parents)":    2,
		"Yes (siblings)":        1,
		"Yes (extended family)": 1,
	}, Default: 0},
	"Family history of kidney stones": {Codes: map[string]int{
		"No":                     0,
		"Yes (immediate family)": 1,
		"Yes (extended family)":  1,
	}, Default: 0},
	"Frequent urination": {Codes: map[string]int{
		"No":              0,
		"Occasionally":    1,
		"Frequently":      2,
		"Very frequently": 3,
	}, Default: 0},
	"Unexplained thirst": {Codes: map[string]int{
		"No":                0,
		"Yes (slight)":      1,
		"Yes (significant)": 2,
	}, Default: 0},
	"Unexplained weight loss": {Codes: map[string]int{
		"No":                                 0,
		"Yes (less than 5% of body weight)":  1,
		"Yes (5-10% of body weight)":         2,
		"Yes (more than 10% of body weight)": 3,
	}, Default: 0},
	"Previous kidney stones": {Codes: map[string]int{
		"No":                   0,
		"Yes (once)":           1,
		"Yes (multiple times)": 2,
	}, Default: 0},
	"Chest pain or discomfort": {Codes: map[string]int{
		"No":           0,
		"Rarely":       1,
		"Occasionally": 2,
		"Frequently":   3,
	}, Default: 0},
	"Shortness of breath during normal activities": {Codes: map[string]int{
		"No":       0,
		"Mild":     1,
		"Moderate": 2,
		"Severe":   3,
	}, Default: 0},
	"Fatigue": {Codes: map[string]int{
		"None":     0,
		"Mild":     1,
		"Moderate": 2,
		"Severe":   3,
	}, Default: 0},
	"Stress levels": {Codes: map[string]int{
		"Low":       0,
		"Moderate":  1,
		"High":      2,
		"Very high": 3,
	}, Default: 1},
	"Salt intake": {Codes: map[string]int{"Low": 0, "Moderate": 1, "High": 2}, Default: 1},
	"Activity intensity": {Codes: map[string]int{
		"Low":       0,
		"Moderate":  1,
		"High":      2,
		"Very high": 3,
	}, Default: 1},
	"Red meat consumption": {Codes: map[string]int{
		"Rarely":         0,
		"1-2 times/week": 1,
		"3-4 times/week": 2,
		"5+ times/week":  3,
	}, Default: 1},
	"Back or flank pain": {Codes: map[string]int{
		"No":       0,
		"Mild":     1,
		"Moderate": 2,
		"Severe":   3,
	}, Default: 0},
	"Painful urination": {Codes: map[string]int{
		"No":       0,
		"Mild":     1,
		"Moderate": 2,
		"Severe":   3,
	}, Default: 0},
	// yes/no flag
	"Blood in urine": {Codes: map[string]int{"No": 0, "Yes": 1}, Default: 0},
	"Sleep duration": {Codes: map[string]int{
		"<6 hours":  0,
		"6-7 hours": 1,
		"7-8 hours": 2,
		">8 hours":  3,
	}, Default: 1},
}

var numericDefaults = map[string]float64{
	"Age":    35,
	"Height": 170,
	"Weight": 70,
	"BMI":    24.5,
}

var numericRanges = map[string]NumericRange{
	"Age":    {Min: 0, Max: 120},
	"Height": {Min: 50, Max: 250}, // cm
	"Weight": {Min: 20, Max: 300}, // kg
	"BMI":    {Min: 10, Max: 60},
}
