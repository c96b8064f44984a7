package ml

import (
	"fmt"
	"sync"

	"health-risk/internal/schema"

	ort "github.com/yalue/onnxruntime_go"
)

// ortEnv is the process-wide ONNX Runtime environment.
var ortEnv struct {
	once sync.Once
	err  error
}

// initORT initializes ONNX Runtime once; later calls return the first result.
func initORT(libPath string) error {
	ortEnv.once.Do(func() {
		ort.SetSharedLibraryPath(libPath)
		ortEnv.err = ort.InitializeEnvironment()
	})
	return ortEnv.err
}

// ONNXModel runs a binary classifier exported to ONNX with a single float
// input of shape [batch, n] and a probability output of shape [batch, 2].
type ONNXModel struct {
	mu         sync.Mutex
	session    *ort.DynamicAdvancedSession
	inputName  string
	outputName string
	nFeatures  int64
	outShape   ort.Shape
}

func loadONNX(modelPath, libPath string, s schema.Schema) (*ONNXModel, error) {
	if err := initORT(libPath); err != nil {
		return nil, fmt.Errorf("onnx: failed to initialize runtime: %w", err)
	}

	inputs, outputs, err := ort.GetInputOutputInfo(modelPath)
	if err != nil {
		return nil, fmt.Errorf("onnx: failed to read model info: %w", err)
	}

	if len(inputs) != 1 {
		return nil, fmt.Errorf("onnx: expected 1 input, got %d", len(inputs))
	}
	in := inputs[0]
	if in.DataType != ort.TensorElementDataTypeFloat {
		return nil, fmt.Errorf("onnx: input %q is %v, expected float", in.Name, in.DataType)
	}
	if len(in.Dimensions) != 2 || in.Dimensions[1] != int64(s.Len()) {
		return nil, fmt.Errorf("%w: onnx input shape %v, expected [batch, %d]",
			ErrSchemaMismatch, in.Dimensions, s.Len())
	}

	out, ok := probabilityOutput(outputs)
	if !ok {
		return nil, fmt.Errorf("onnx: no output with trailing dimension 2")
	}
	outShape := make(ort.Shape, len(out.Dimensions))
	for i, d := range out.Dimensions {
		// dynamic axes are reported as -1
		if d <= 0 {
			d = 1
		}
		outShape[i] = d
	}

	opts, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("onnx: failed to create session options: %w", err)
	}
	defer opts.Destroy()
	opts.SetIntraOpNumThreads(1)
	opts.SetInterOpNumThreads(1)

	session, err := ort.NewDynamicAdvancedSession(
		modelPath,
		[]string{in.Name},
		[]string{out.Name},
		opts,
	)
	if err != nil {
		return nil, fmt.Errorf("onnx: failed to create session: %w", err)
	}

	return &ONNXModel{
		session:    session,
		inputName:  in.Name,
		outputName: out.Name,
		nFeatures:  int64(s.Len()),
		outShape:   outShape,
	}, nil
}

func probabilityOutput(outputs []ort.InputOutputInfo) (ort.InputOutputInfo, bool) {
	for _, o := range outputs {
		dims := o.Dimensions
		if len(dims) > 0 && dims[len(dims)-1] == 2 {
			return o, true
		}
	}
	return ort.InputOutputInfo{}, false
}

func (m *ONNXModel) PredictProba(features []float64) ([]float64, error) {
	if int64(len(features)) != m.nFeatures {
		return nil, fmt.Errorf("expected %d features, got %d", m.nFeatures, len(features))
	}
	data := make([]float32, len(features))
	for i, f := range features {
		data[i] = float32(f)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	tIn, err := ort.NewTensor(ort.NewShape(1, m.nFeatures), data)
	if err != nil {
		return nil, fmt.Errorf("onnx: failed to create input tensor: %w", err)
	}
	defer tIn.Destroy()

	tOut, err := ort.NewEmptyTensor[float32](m.outShape)
	if err != nil {
		return nil, fmt.Errorf("onnx: failed to create output tensor: %w", err)
	}
	defer tOut.Destroy()

	if err := m.session.Run([]ort.Value{tIn}, []ort.Value{tOut}); err != nil {
		return nil, fmt.Errorf("onnx: inference failed: %w", err)
	}

	src := tOut.GetData()
	if len(src) < 2 {
		return nil, fmt.Errorf("%w: onnx output has %d values", ErrInvalidPrediction, len(src))
	}
	return []float64{float64(src[0]), float64(src[1])}, nil
}

func (m *ONNXModel) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session.Destroy()
}
