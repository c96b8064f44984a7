package schema

import (
	"fmt"
	"sort"
)

// Registry is a read-only lookup over condition schemas and feature specs.
// It is safe for concurrent use because nothing mutates it after construction.
type Registry struct {
	version  int
	schemas  map[Condition][]string
	mappings map[string]CategoricalMapping
	defaults map[string]float64
	ranges   map[string]NumericRange
}

// Default returns the registry built from the shipped feature tables.
func Default() *Registry {
	return &Registry{
		version: Version,
		schemas: map[Condition][]string{
			Diabetes:       diabetesFeatures,
			Cardiovascular: cardiovascularFeatures,
			KidneyStone:    kidneyStoneFeatures,
		},
		mappings: categoricalMappings,
		defaults: numericDefaults,
		ranges:   numericRanges,
	}
}

// Version returns the schema version artifacts are validated against.
func (r *Registry) Version() int {
	return r.version
}

// Schema returns the ordered feature list for a condition.
func (r *Registry) Schema(c Condition) (Schema, error) {
	features, ok := r.schemas[c]
	if !ok {
		return Schema{}, fmt.Errorf("%w: %q", ErrUnknownCondition, c)
	}
	out := make([]string, len(features))
	copy(out, features)
	return Schema{Condition: c, Version: r.version, Features: out}, nil
}

// Spec resolves a feature name. The second result is false when the feature has
// neither a categorical mapping nor any numeric configuration.
func (r *Registry) Spec(name string) (FeatureSpec, bool) {
	if m, ok := r.mappings[name]; ok {
		return FeatureSpec{
			Name:    name,
			Kind:    Categorical,
			Mapping: m,
			Default: float64(m.Default),
		}, true
	}

	def, hasDefault := r.defaults[name]
	rng, hasRange := r.ranges[name]
	if !hasRange {
		rng = Unbounded
	}
	return FeatureSpec{
		Name:    name,
		Kind:    Numeric,
		Range:   rng,
		Default: def,
	}, hasDefault || hasRange
}

// Catalog returns condition -> ordered feature names for every condition.
func (r *Registry) Catalog() map[Condition][]string {
	out := make(map[Condition][]string, len(r.schemas))
	for c, features := range r.schemas {
		cp := make([]string, len(features))
		copy(cp, features)
		out[c] = cp
	}
	return out
}

// AllFeatures returns the sorted union of every condition's features, without
// BMI since callers supply Height and Weight instead.
func (r *Registry) AllFeatures() []string {
	seen := make(map[string]struct{})
	for _, features := range r.schemas {
		for _, f := range features {
			if f == FeatureBMI {
				continue
			}
			seen[f] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for f := range seen {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

// Validate checks that every feature of every schema resolves to a spec and
// that categorical codes are non-negative.
func (r *Registry) Validate() error {
	for _, c := range Conditions {
		features, ok := r.schemas[c]
		if !ok {
			return fmt.Errorf("condition %s has no schema", c)
		}
		seen := make(map[string]bool, len(features))
		for _, f := range features {
			if seen[f] {
				return fmt.Errorf("condition %s: duplicate feature %q", c, f)
			}
			seen[f] = true
			if _, ok := r.Spec(f); !ok {
				return fmt.Errorf("condition %s: feature %q has no mapping or numeric default", c, f)
			}
		}
	}
	for name, m := range r.mappings {
		if m.Default < 0 {
			return fmt.Errorf("feature %q: negative default code %d", name, m.Default)
		}
		for label, code := range m.Codes {
			if code < 0 {
				return fmt.Errorf("feature %q: label %q has negative code %d", name, label, code)
			}
		}
	}
	return nil
}
