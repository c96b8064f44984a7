package features

import (
	"health-risk/internal/schema"
)

// Vector is a fully populated feature vector in schema order.
type Vector []float64

// Builder assembles vectors for any condition in a registry.
type Builder struct {
	registry *schema.Registry
}

// NewBuilder creates a builder backed by registry.
func NewBuilder(registry *schema.Registry) *Builder {
	return &Builder{registry: registry}
}

// Registry returns the schema registry the builder reads from.
func (b *Builder) Registry() *schema.Registry {
	return b.registry
}

// Build returns the vector for condition c. The only error is an unknown
// condition; any input, including an empty map, yields a complete vector.
func (b *Builder) Build(input RawInput, c schema.Condition) (Vector, error) {
	s, err := b.registry.Schema(c)
	if err != nil {
		return nil, err
	}
	return b.BuildFor(input, s), nil
}

// BuildFor builds a vector for an already resolved schema.
func (b *Builder) BuildFor(input RawInput, s schema.Schema) Vector {
	vec := make(Vector, len(s.Features))
	for i, name := range s.Features {
		if name == schema.FeatureBMI {
			if bmi, ok := derivedBMI(input); ok {
				vec[i] = bmi
				continue
			}
		}
		// Unresolvable names normalize as unbounded numerics with default 0.
		spec, _ := b.registry.Spec(name)
		vec[i] = Normalize(input[name], spec)
	}
	return vec
}
