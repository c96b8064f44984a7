package assess

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"health-risk/internal/features"

	"gopkg.in/yaml.v3"
)

// ErrInvalidInput means the request body is not a single mapping of answers.
var ErrInvalidInput = errors.New("invalid input")

// ParseInput decodes a JSON object of answers. Numbers are kept as
// json.Number. Anything other than exactly one object is ErrInvalidInput.
func ParseInput(data []byte) (features.RawInput, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: trailing data after object", ErrInvalidInput)
	}
	return asRawInput(v)
}

// ParseYAMLInput decodes a YAML mapping of answers.
func ParseYAMLInput(data []byte) (features.RawInput, error) {
	var v any
	if err := yaml.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return asRawInput(v)
}

func asRawInput(v any) (features.RawInput, error) {
	m, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: expected an object of answers, got %s", ErrInvalidInput, describe(v))
	}
	return features.RawInput(m), nil
}

func describe(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case []any:
		return "array"
	case string:
		return "string"
	case bool:
		return "boolean"
	case json.Number, float64, int:
		return "number"
	default:
		return fmt.Sprintf("%T", v)
	}
}
