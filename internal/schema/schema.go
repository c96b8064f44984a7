// Package schema defines the per-condition feature schemas used by the risk
// assessment pipeline. A schema is the ordered list of features a condition's
// scorer expects, together with the categorical mappings, numeric ranges and
// defaults needed to turn free-form answers into numeric codes.
//
// Feature order is part of the scorer contract: model artifacts are validated
// against it at load time.
package schema

import (
	"errors"
	"math"
)

// ErrUnknownCondition is returned for condition identifiers outside the registry.
var ErrUnknownCondition = errors.New("unknown condition")

// Condition identifies one predicted health outcome.
type Condition string

const (
	Diabetes       Condition = "diabetes"
	Cardiovascular Condition = "cardiovascular"
	KidneyStone    Condition = "kidney_stone"
)

// Conditions lists every condition in processing order.
var Conditions = []Condition{Diabetes, Cardiovascular, KidneyStone}

// Feature names referenced by derived-feature rules.
const (
	FeatureBMI    = "BMI"
	FeatureHeight = "Height"
	FeatureWeight = "Weight"
)

// Kind tells the normalizer which path a feature takes.
type Kind int

const (
	Numeric Kind = iota
	Categorical
)

func (k Kind) String() string {
	if k == Categorical {
		return "categorical"
	}
	return "numeric"
}

// CategoricalMapping translates accepted labels to non-negative integer codes.
// Default is used when the label is absent or unrecognized.
type CategoricalMapping struct {
	Codes   map[string]int
	Default int
}

// Lookup returns the code for an exact label match.
func (m CategoricalMapping) Lookup(label string) (int, bool) {
	code, ok := m.Codes[label]
	return code, ok
}

// NumericRange is an inclusive [Min, Max] bound.
type NumericRange struct {
	Min float64
	Max float64
}

// Unbounded is the range used by numeric features without configured bounds.
var Unbounded = NumericRange{Min: 0, Max: math.Inf(1)}

// Contains reports whether v lies inside the inclusive range.
func (r NumericRange) Contains(v float64) bool {
	return v >= r.Min && v <= r.Max
}

// FeatureSpec is everything the normalizer needs for one feature.
type FeatureSpec struct {
	Name    string
	Kind    Kind
	Mapping CategoricalMapping // Categorical only
	Range   NumericRange       // Numeric only
	Default float64
}

// Schema is the versioned, ordered feature list for one condition.
type Schema struct {
	Condition Condition
	Version   int
	Features  []string
}

// Len returns the number of features in the schema.
func (s Schema) Len() int {
	return len(s.Features)
}
