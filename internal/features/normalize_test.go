package features

import (
	"encoding/json"
	"math"
	"testing"

	"health-risk/internal/schema"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func specFor(t *testing.T, name string) schema.FeatureSpec {
	t.Helper()
	spec, ok := schema.Default().Spec(name)
	require.True(t, ok, "feature %q should resolve", name)
	return spec
}

func TestNormalize_Categorical(t *testing.T) {
	t.Parallel()
	sex := specFor(t, "Sex")
	activity := specFor(t, "Physical activity level")

	tests := []struct {
		name string
		spec schema.FeatureSpec
		raw  any
		want float64
	}{
		{"label", sex, "Female", 1},
		{"label zero", sex, "Male", 0},
		{"integer code", sex, 0, 0},
		{"float code", sex, 2.0, 2},
		{"code outside mapping", sex, 99, 99},
		{"numeric string", sex, "2", 2},
		{"json number", sex, json.Number("1"), 1},
		{"bool true", sex, true, 1},
		{"bool false", sex, false, 0},
		{"unknown label", activity, "Sometimes", 1},
		{"case mismatch", activity, "none", 1},
		{"fractional", activity, 1.5, 1},
		{"negative", activity, -3, 1},
		{"nil", activity, nil, 1},
		{"unsupported type", activity, []string{"None"}, 1},
		{"exact label", activity, "High (6-7 days/week)", 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.raw, tt.spec))
		})
	}
}

func TestNormalize_Numeric(t *testing.T) {
	t.Parallel()
	age := specFor(t, "Age")
	bmi := specFor(t, "BMI")

	tests := []struct {
		name string
		spec schema.FeatureSpec
		raw  any
		want float64
	}{
		{"in range", age, 45, 45},
		{"lower bound", age, 0, 0},
		{"upper bound", age, 120.0, 120},
		{"above range", age, 150, 35},
		{"below range", age, -1, 35},
		{"string", age, "  52 ", 52},
		{"garbage string", age, "fifty", 35},
		{"empty string", age, "", 35},
		{"nil", age, nil, 35},
		{"NaN", age, math.NaN(), 35},
		{"infinite", age, math.Inf(1), 35},
		{"NaN string", age, "NaN", 35},
		{"float32", bmi, float32(22.5), 22.5},
		{"bmi out of range", bmi, 75, 24.5},
		{"bool", age, true, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.raw, tt.spec))
		})
	}
}

func TestNormalize_UnboundedNumeric(t *testing.T) {
	t.Parallel()
	spec, ok := schema.Default().Spec("Not a feature")
	require.False(t, ok)

	assert.Equal(t, 0.0, Normalize(nil, spec))
	assert.Equal(t, 12.5, Normalize("12.5", spec))
	assert.Equal(t, 0.0, Normalize(-4, spec))
}

func TestNormalize_LabelRoundTrip(t *testing.T) {
	t.Parallel()
	r := schema.Default()

	// Every label maps to its code, and that code normalizes to itself.
	for _, name := range r.AllFeatures() {
		spec, ok := r.Spec(name)
		require.True(t, ok)
		if spec.Kind != schema.Categorical {
			continue
		}
		for label, code := range spec.Mapping.Codes {
			assert.Equal(t, float64(code), Normalize(label, spec), "%s/%s", name, label)
			assert.Equal(t, float64(code), Normalize(code, spec), "%s/%d", name, code)
		}
	}
}
