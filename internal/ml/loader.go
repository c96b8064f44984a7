package ml

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"health-risk/internal/schema"
)

// Loader builds a model for one condition schema.
type Loader interface {
	Load(ctx context.Context, s schema.Schema) (Model, ArtifactInfo, error)
}

// Artifact formats, in lookup order.
const (
	FormatLogistic = "logistic_json"
	FormatONNX     = "onnx"
)

// FileLoader reads artifacts named {condition}_model.json or
// {condition}_model.onnx from Dir. The JSON form wins when both exist.
type FileLoader struct {
	Dir string
	// ONNXRuntimeLib is the shared library path, defaulting to
	// Dir/libonnxruntime.so.
	ONNXRuntimeLib string
}

// NewFileLoader returns a loader rooted at dir.
func NewFileLoader(dir, onnxLib string) *FileLoader {
	return &FileLoader{Dir: dir, ONNXRuntimeLib: onnxLib}
}

// ArtifactPath returns the path for a condition and extension.
func (l *FileLoader) ArtifactPath(c schema.Condition, ext string) string {
	return filepath.Join(l.Dir, fmt.Sprintf("%s_model.%s", c, ext))
}

func (l *FileLoader) Load(ctx context.Context, s schema.Schema) (Model, ArtifactInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, ArtifactInfo{}, err
	}

	jsonPath := l.ArtifactPath(s.Condition, "json")
	if exists(jsonPath) {
		model, artifact, err := loadLogistic(jsonPath, s)
		if err != nil {
			return nil, ArtifactInfo{}, fmt.Errorf("load %s: %w", jsonPath, err)
		}
		return model, ArtifactInfo{
			Path:      jsonPath,
			Format:    FormatLogistic,
			Version:   artifact.Version,
			TrainedAt: artifact.TrainedAt,
			LoadedAt:  time.Now(),
		}, nil
	}

	onnxPath := l.ArtifactPath(s.Condition, "onnx")
	if exists(onnxPath) {
		lib := l.ONNXRuntimeLib
		if lib == "" {
			lib = filepath.Join(l.Dir, "libonnxruntime.so")
		}
		model, err := loadONNX(onnxPath, lib, s)
		if err != nil {
			return nil, ArtifactInfo{}, fmt.Errorf("load %s: %w", onnxPath, err)
		}
		info := ArtifactInfo{Path: onnxPath, Format: FormatONNX, LoadedAt: time.Now()}
		if st, err := os.Stat(onnxPath); err == nil {
			info.Version = st.ModTime().UTC().Format(time.RFC3339)
		}
		return model, info, nil
	}

	return nil, ArtifactInfo{}, fmt.Errorf("%w: %s_model.{json,onnx} in %s", ErrArtifactNotFound, s.Condition, l.Dir)
}

func exists(path string) bool {
	st, err := os.Stat(path)
	if err != nil {
		return !errors.Is(err, fs.ErrNotExist)
	}
	return !st.IsDir()
}
