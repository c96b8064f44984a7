package features

import (
	"math"

	"health-risk/internal/schema"

	"github.com/rs/zerolog/log"
)

// derivedBMI applies when BMI was not supplied but Height and Weight were.
func derivedBMI(input RawInput) (float64, bool) {
	if _, ok := input[schema.FeatureBMI]; ok {
		return 0, false
	}
	height, okH := input[schema.FeatureHeight]
	weight, okW := input[schema.FeatureWeight]
	if !okH || !okW {
		return 0, false
	}
	return CalculateBMI(height, weight), true
}

// CalculateBMI returns weight_kg / height_m² for a height in centimetres.
// Missing or unparseable inputs and non-positive heights yield 0.
func CalculateBMI(heightCM, weightKG any) float64 {
	h, okH := toFloat(heightCM)
	w, okW := toFloat(weightKG)
	if !okH || !okW {
		log.Debug().Interface("height", heightCM).Interface("weight", weightKG).Msg("BMI calculation skipped, unparseable input")
		return 0
	}

	heightM := h / 100
	if heightM <= 0 {
		return 0
	}
	bmi := w / (heightM * heightM)
	if math.IsNaN(bmi) || math.IsInf(bmi, 0) {
		return 0
	}
	return bmi
}
