package ml

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"health-risk/internal/schema"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeArtifact writes a logistic artifact whose features match c's schema.
// mutate may adjust it before it is written.
func writeArtifact(t *testing.T, dir string, c schema.Condition, mutate func(*LogisticArtifact)) string {
	t.Helper()
	s, err := schema.Default().Schema(c)
	require.NoError(t, err)

	var a LogisticArtifact
	a.Version = "2024-06-01"
	a.TrainedAt = "2024-06-01T12:00:00Z"
	a.SchemaVersion = s.Version
	a.Model.Type = "logistic_regression"
	a.Model.FeatureNames = s.Features
	a.Model.Weights = Weights{Bias: -1, Coefficients: make([]float64, s.Len())}
	if mutate != nil {
		mutate(&a)
	}

	content, err := json.Marshal(a)
	require.NoError(t, err)
	path := filepath.Join(dir, string(c)+"_model.json")
	require.NoError(t, os.WriteFile(path, content, 0o644))
	return path
}

func diabetesSchema(t *testing.T) schema.Schema {
	t.Helper()
	s, err := schema.Default().Schema(schema.Diabetes)
	require.NoError(t, err)
	return s
}

func TestFileLoader_LoadsLogistic(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := writeArtifact(t, dir, schema.Diabetes, nil)

	model, info, err := NewFileLoader(dir, "").Load(context.Background(), diabetesSchema(t))
	require.NoError(t, err)
	assert.Equal(t, path, info.Path)
	assert.Equal(t, FormatLogistic, info.Format)
	assert.Equal(t, "2024-06-01", info.Version)
	assert.False(t, info.LoadedAt.IsZero())

	probs, err := model.PredictProba(make([]float64, 16))
	require.NoError(t, err)
	assert.InDelta(t, sigmoid(-1), probs[1], 1e-12)
}

func TestFileLoader_Missing(t *testing.T) {
	t.Parallel()
	_, _, err := NewFileLoader(t.TempDir(), "").Load(context.Background(), diabetesSchema(t))
	assert.ErrorIs(t, err, ErrArtifactNotFound)
}

func TestFileLoader_Rejects(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		mutate   func(*LogisticArtifact)
		mismatch bool
	}{
		{"reordered features", func(a *LogisticArtifact) {
			names := append([]string(nil), a.Model.FeatureNames...)
			names[0], names[1] = names[1], names[0]
			a.Model.FeatureNames = names
		}, true},
		{"missing feature", func(a *LogisticArtifact) {
			a.Model.FeatureNames = a.Model.FeatureNames[:len(a.Model.FeatureNames)-1]
		}, true},
		{"short coefficients", func(a *LogisticArtifact) {
			a.Model.Weights.Coefficients = a.Model.Weights.Coefficients[1:]
		}, true},
		{"schema version", func(a *LogisticArtifact) {
			a.SchemaVersion = 99
		}, true},
		{"model type", func(a *LogisticArtifact) {
			a.Model.Type = "random_forest"
		}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			writeArtifact(t, dir, schema.Diabetes, tt.mutate)

			_, _, err := NewFileLoader(dir, "").Load(context.Background(), diabetesSchema(t))
			require.Error(t, err)
			assert.NotErrorIs(t, err, ErrArtifactNotFound)
			if tt.mismatch {
				assert.ErrorIs(t, err, ErrSchemaMismatch)
			}
		})
	}
}

func TestFileLoader_UnversionedArtifactAccepted(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	writeArtifact(t, dir, schema.Diabetes, func(a *LogisticArtifact) {
		a.SchemaVersion = 0
		a.Model.Type = ""
	})

	_, _, err := NewFileLoader(dir, "").Load(context.Background(), diabetesSchema(t))
	assert.NoError(t, err)
}

func TestFileLoader_CorruptJSON(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "diabetes_model.json"), []byte("{not json"), 0o644))

	_, _, err := NewFileLoader(dir, "").Load(context.Background(), diabetesSchema(t))
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrArtifactNotFound)
}

func TestFileLoader_CancelledContext(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := NewFileLoader(t.TempDir(), "").Load(ctx, diabetesSchema(t))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFileLoader_ArtifactPath(t *testing.T) {
	t.Parallel()
	l := NewFileLoader("models/saved", "")
	assert.Equal(t, filepath.Join("models/saved", "kidney_stone_model.onnx"), l.ArtifactPath(schema.KidneyStone, "onnx"))
}
