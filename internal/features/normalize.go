// Package features turns raw questionnaire answers into the fixed-shape numeric
// vectors consumed by condition scorers.
//
// Normalization never fails: malformed, missing or unrecognized values fall
// back to the feature's configured default so that every assessment produces a
// fully populated vector.
package features

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"health-risk/internal/schema"
)

// RawInput maps feature names to user-supplied values. Values are whatever the
// decoder produced: strings, numbers, booleans or nil. Unknown keys are ignored.
type RawInput map[string]any

// Normalize converts one raw value into the numeric code for spec.
//
// Priority: an exact categorical label, then a well-formed number (a
// non-negative whole number for categorical features, an in-range value for
// numeric ones), then the feature default.
func Normalize(raw any, spec schema.FeatureSpec) float64 {
	if spec.Kind == schema.Categorical {
		return normalizeCategorical(raw, spec)
	}
	return normalizeNumeric(raw, spec)
}

func normalizeCategorical(raw any, spec schema.FeatureSpec) float64 {
	if label, ok := raw.(string); ok {
		if code, found := spec.Mapping.Lookup(label); found {
			return float64(code)
		}
	}

	// Codes beyond the mapping's known values pass through unchanged.
	if v, ok := toFloat(raw); ok && v >= 0 && v == math.Trunc(v) {
		return v
	}
	return spec.Default
}

func normalizeNumeric(raw any, spec schema.FeatureSpec) float64 {
	v, ok := toFloat(raw)
	if !ok {
		return spec.Default
	}
	// Out-of-range input is treated as untrustworthy, not clamped to a bound.
	if !spec.Range.Contains(v) {
		return spec.Default
	}
	return v
}

// toFloat parses a raw value as a finite number. Booleans count as 1 and 0.
func toFloat(raw any) (float64, bool) {
	var v float64
	switch x := raw.(type) {
	case nil:
		return 0, false
	case float64:
		v = x
	case float32:
		v = float64(x)
	case int:
		v = float64(x)
	case int8:
		v = float64(x)
	case int16:
		v = float64(x)
	case int32:
		v = float64(x)
	case int64:
		v = float64(x)
	case uint:
		v = float64(x)
	case uint8:
		v = float64(x)
	case uint16:
		v = float64(x)
	case uint32:
		v = float64(x)
	case uint64:
		v = float64(x)
	case bool:
		if x {
			v = 1
		}
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return 0, false
		}
		v = f
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return 0, false
		}
		v = f
	default:
		return 0, false
	}

	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}
