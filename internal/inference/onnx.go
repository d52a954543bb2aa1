package inference

import (
	"captchasolver/internal/captcha"
	"fmt"
	"log"
	"path/filepath"

	ort "github.com/yalue/onnxruntime_go"
)

// outputLayout describes how per-position probabilities come out of a network.
// Exported multi-head networks produce one [1, classes] output per position;
// single-head exports produce one [1, positions, classes] output.
type outputLayout struct {
	stacked   bool
	positions int
	classes   int
}

// ONNXModel runs an ONNX export of a captcha network through ONNX Runtime
type ONNXModel struct {
	path        string
	session     *ort.DynamicAdvancedSession
	inputName   string
	outputNames []string
	layout      outputLayout
}

// NewONNXModel opens the model at path and checks its input and output shapes
// against the profile. The ONNX Runtime environment must already be initialized.
func NewONNXModel(path string, profile captcha.Profile) (*ONNXModel, error) {
	inputs, outputs, err := ort.GetInputOutputInfo(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read model info: %w", err)
	}
	if len(inputs) != 1 {
		return nil, fmt.Errorf("model has %d inputs, want 1", len(inputs))
	}
	if err := checkInputShape(inputs[0].Dimensions); err != nil {
		return nil, fmt.Errorf("input %q: %w", inputs[0].Name, err)
	}

	shapes := make([][]int64, len(outputs))
	outputNames := make([]string, len(outputs))
	for i, o := range outputs {
		shapes[i] = o.Dimensions
		outputNames[i] = o.Name
	}
	layout, err := resolveLayout(shapes, profile.OutputLength, profile.Vocabulary.Size())
	if err != nil {
		return nil, err
	}

	session, err := ort.NewDynamicAdvancedSession(path, []string{inputs[0].Name}, outputNames, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	log.Printf("[ONNX] Loaded %s (%d classes, %d positions, input %q)",
		filepath.Base(path), layout.classes, layout.positions, inputs[0].Name)

	return &ONNXModel{
		path:        path,
		session:     session,
		inputName:   inputs[0].Name,
		outputNames: outputNames,
		layout:      layout,
	}, nil
}

// Name returns the model file name
func (m *ONNXModel) Name() string {
	return filepath.Base(m.path)
}

// Predict runs the network on a single input
func (m *ONNXModel) Predict(input *Input) (Prediction, error) {
	in, err := ort.NewTensor(ort.NewShape(input.Shape()...), input.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to create input tensor: %w", err)
	}
	defer in.Destroy()

	outTensors := make([]*ort.Tensor[float32], len(m.outputNames))
	outputs := make([]ort.Value, len(m.outputNames))
	defer func() {
		for _, t := range outTensors {
			if t != nil {
				t.Destroy()
			}
		}
	}()
	for i := range outTensors {
		shape := ort.NewShape(1, int64(m.layout.classes))
		if m.layout.stacked {
			shape = ort.NewShape(1, int64(m.layout.positions), int64(m.layout.classes))
		}
		t, err := ort.NewEmptyTensor[float32](shape)
		if err != nil {
			return nil, fmt.Errorf("failed to create output tensor: %w", err)
		}
		outTensors[i] = t
		outputs[i] = t
	}

	if err := m.session.Run([]ort.Value{in}, outputs); err != nil {
		return nil, fmt.Errorf("inference failed: %w", err)
	}

	if m.layout.stacked {
		return splitStacked(outTensors[0].GetData(), m.layout.positions, m.layout.classes)
	}

	pred := make(Prediction, len(outTensors))
	for i, t := range outTensors {
		data := t.GetData()
		vec := make([]float32, len(data))
		copy(vec, data)
		pred[i] = vec
	}
	return pred, nil
}

// Close destroys the session
func (m *ONNXModel) Close() error {
	if m.session == nil {
		return nil
	}
	err := m.session.Destroy()
	m.session = nil
	return err
}

// checkInputShape accepts [batch, 32, 128, 1]; non-positive dims are dynamic.
func checkInputShape(dims []int64) error {
	want := []int64{1, Height, Width, Channels}
	if len(dims) != len(want) {
		return fmt.Errorf("input rank %d, want %d", len(dims), len(want))
	}
	for i := 1; i < len(want); i++ {
		if dims[i] > 0 && dims[i] != want[i] {
			return fmt.Errorf("input shape %v, want %v", dims, want)
		}
	}
	return nil
}

func resolveLayout(shapes [][]int64, positions, classes int) (outputLayout, error) {
	switch {
	case len(shapes) == 0:
		return outputLayout{}, fmt.Errorf("model has no outputs")

	case len(shapes) == 1 && len(shapes[0]) == 3:
		dims := shapes[0]
		if !dimMatches(dims[1], positions) || !dimMatches(dims[2], classes) {
			return outputLayout{}, fmt.Errorf("output shape %v, want [1 %d %d]", dims, positions, classes)
		}
		return outputLayout{stacked: true, positions: positions, classes: classes}, nil

	default:
		if len(shapes) != positions {
			return outputLayout{}, fmt.Errorf("model has %d outputs, want %d positions", len(shapes), positions)
		}
		for i, dims := range shapes {
			if len(dims) != 2 || !dimMatches(dims[1], classes) {
				return outputLayout{}, fmt.Errorf("output %d shape %v, want [1 %d]", i, dims, classes)
			}
		}
		return outputLayout{positions: positions, classes: classes}, nil
	}
}

func dimMatches(dim int64, want int) bool {
	return dim <= 0 || dim == int64(want)
}

func splitStacked(data []float32, positions, classes int) (Prediction, error) {
	if len(data) != positions*classes {
		return nil, fmt.Errorf("output has %d values, want %d", len(data), positions*classes)
	}
	pred := make(Prediction, positions)
	for i := range pred {
		vec := make([]float32, classes)
		copy(vec, data[i*classes:(i+1)*classes])
		pred[i] = vec
	}
	return pred, nil
}
