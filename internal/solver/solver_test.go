package solver

import (
	"bytes"
	"captchasolver/internal/captcha"
	"captchasolver/internal/inference"
	"captchasolver/internal/model"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"reflect"
	"strings"
	"testing"
	"time"
)

// fakeModel returns the same one-hot prediction for every input.
type fakeModel struct {
	indices []int
	classes int
	err     error
	panics  bool
	calls   int
}

func (m *fakeModel) Predict(in *inference.Input) (inference.Prediction, error) {
	m.calls++
	if m.panics {
		panic("tensor shape mismatch")
	}
	if m.err != nil {
		return nil, m.err
	}
	pred := make(inference.Prediction, len(m.indices))
	for i, idx := range m.indices {
		v := make([]float32, m.classes)
		v[idx] = 0.75
		v[(idx+1)%m.classes] = 0.25
		pred[i] = v
	}
	return pred, nil
}

func (m *fakeModel) Name() string { return "fake.onnx" }

func (m *fakeModel) Close() error { return nil }

type fakeModels map[captcha.Type]inference.Model

func (f fakeModels) Get(t captcha.Type) (inference.Model, error) {
	if m, ok := f[t]; ok {
		return m, nil
	}
	return nil, errors.New("file not found")
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, 150, 40))
	for i := range img.Pix {
		img.Pix[i] = uint8(i % 256)
	}
	img.Set(0, 0, color.White)
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png.Encode: %v", err)
	}
	return buf.Bytes()
}

// text "ab3" with blanks at positions 1 and 3
func textModel() *fakeModel {
	return &fakeModel{indices: []int{10, 36, 11, 36, 3}, classes: 37}
}

// math "12+3" followed by padding
func mathModel() *fakeModel {
	return &fakeModel{indices: []int{3, 4, 0, 5, 12, 12, 12, 12}, classes: 13}
}

func TestSolveText(t *testing.T) {
	s := New(fakeModels{captcha.TypeText: textModel()})

	resp, err := s.Solve(context.Background(), Request{Data: pngBytes(t), ContentType: "image/png"})
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}

	if !resp.Success || resp.Prediction != "ab3" || resp.Type != "text" {
		t.Errorf("resp = %+v", resp)
	}
	if resp.Expression != nil {
		t.Errorf("Expression = %q, want nil for text", *resp.Expression)
	}
	if resp.Confidence != 75 {
		t.Errorf("Confidence = %v, want 75", resp.Confidence)
	}
	if resp.Model != "Text CAPTCHA Model" || resp.Architecture != captcha.Architecture || resp.VocabSize != 37 {
		t.Errorf("metadata = %q %q %d", resp.Model, resp.Architecture, resp.VocabSize)
	}
	if len(resp.CharDetails) != 5 {
		t.Fatalf("got %d char details, want 5", len(resp.CharDetails))
	}
	want := []model.Candidate{
		{Char: "_", Confidence: 75},
		{Char: "0", Confidence: 25},
		{Char: "1", Confidence: 0},
	}
	if got := resp.CharDetails[1].Top3; !reflect.DeepEqual(got, want) {
		t.Errorf("Top3 = %v, want %v", got, want)
	}
}

func TestSolveMath(t *testing.T) {
	s := New(fakeModels{captcha.TypeText: textModel(), captcha.TypeMath: mathModel()})

	resp, err := s.Solve(context.Background(), Request{Data: pngBytes(t), ContentType: "image/png", Type: "math"})
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	if resp.Expression == nil || *resp.Expression != "12+3" {
		t.Fatalf("Expression = %v, want 12+3", resp.Expression)
	}
	if resp.Prediction != "15" {
		t.Errorf("Prediction = %q, want 15", resp.Prediction)
	}
	if resp.Type != "math" || resp.VocabSize != 13 || resp.Model != "Math CAPTCHA Model" {
		t.Errorf("resp = %+v", resp)
	}
}

func TestSolveMathMalformedKeepsExpression(t *testing.T) {
	// "5--" then padding
	m := &fakeModel{indices: []int{7, 1, 1, 12, 12, 12, 12, 12}, classes: 13}
	s := New(fakeModels{captcha.TypeMath: m})

	resp, err := s.Solve(context.Background(), Request{Data: pngBytes(t), ContentType: "image/jpeg", Type: "math"})
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	if resp.Prediction != "5--" || *resp.Expression != "5--" {
		t.Errorf("Prediction = %q, Expression = %q", resp.Prediction, *resp.Expression)
	}
}

func TestSolveUnknownTypeUsesText(t *testing.T) {
	text := textModel()
	s := New(fakeModels{captcha.TypeText: text})

	resp, err := s.Solve(context.Background(), Request{Data: pngBytes(t), ContentType: "image/png", Type: "audio"})
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	if resp.Type != "text" || text.calls != 1 {
		t.Errorf("type = %q, calls = %d", resp.Type, text.calls)
	}
}

func TestSolveRejectsNonImage(t *testing.T) {
	text := textModel()
	s := New(fakeModels{captcha.TypeText: text})

	for _, ct := range []string{"", "text/plain", "application/octet-stream", "IMAGE/png"} {
		_, err := s.Solve(context.Background(), Request{Data: pngBytes(t), ContentType: ct})
		if !errors.Is(err, ErrNotImage) {
			t.Errorf("content type %q: err = %v, want ErrNotImage", ct, err)
		}
	}
	if text.calls != 0 {
		t.Errorf("model called %d times for rejected uploads", text.calls)
	}
}

func TestSolveModelUnavailable(t *testing.T) {
	s := New(fakeModels{captcha.TypeText: textModel()})

	_, err := s.Solve(context.Background(), Request{Data: pngBytes(t), ContentType: "image/png", Type: "math"})
	var unavailable *ModelUnavailableError
	if !errors.As(err, &unavailable) {
		t.Fatalf("err = %v, want ModelUnavailableError", err)
	}
	if unavailable.Type != captcha.TypeMath {
		t.Errorf("Type = %q", unavailable.Type)
	}
	if err.Error() != "Math model not loaded" {
		t.Errorf("message = %q", err.Error())
	}
}

func TestSolveDecodeError(t *testing.T) {
	text := textModel()
	s := New(fakeModels{captcha.TypeText: text})

	_, err := s.Solve(context.Background(), Request{Data: []byte("GIF89a-truncated"), ContentType: "image/gif"})
	var decErr *DecodeError
	if !errors.As(err, &decErr) {
		t.Fatalf("err = %v, want DecodeError", err)
	}
	if text.calls != 0 {
		t.Error("model called for undecodable upload")
	}
}

func TestSolveInferenceFailures(t *testing.T) {
	tests := []struct {
		name  string
		model *fakeModel
		ctx   func() context.Context
		msg   string
	}{
		{
			name:  "predict error",
			model: &fakeModel{err: errors.New("session closed")},
			ctx:   context.Background,
			msg:   "session closed",
		},
		{
			name:  "panic",
			model: &fakeModel{panics: true},
			ctx:   context.Background,
			msg:   "tensor shape mismatch",
		},
		{
			name:  "canceled",
			model: textModel(),
			ctx: func() context.Context {
				ctx, cancel := context.WithCancel(context.Background())
				cancel()
				return ctx
			},
			msg: "context canceled",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New(fakeModels{captcha.TypeText: tt.model})
			_, err := s.Solve(tt.ctx(), Request{Data: pngBytes(t), ContentType: "image/png"})
			var infErr *InferenceError
			if !errors.As(err, &infErr) {
				t.Fatalf("err = %v, want InferenceError", err)
			}
			if !strings.Contains(err.Error(), tt.msg) {
				t.Errorf("message = %q, want it to contain %q", err.Error(), tt.msg)
			}
		})
	}
}

func TestSolveProcessingTime(t *testing.T) {
	s := New(fakeModels{captcha.TypeText: textModel()})
	base := time.Unix(1700000000, 0)
	ticks := []time.Duration{0, 41600 * time.Microsecond}
	s.now = func() time.Time {
		d := ticks[0]
		ticks = ticks[1:]
		return base.Add(d)
	}

	resp, err := s.Solve(context.Background(), Request{Data: pngBytes(t), ContentType: "image/png"})
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	if resp.ProcessingTimeMs != 42 {
		t.Errorf("ProcessingTimeMs = %d, want 42", resp.ProcessingTimeMs)
	}
}

func TestSolveInputBlankIsDeterministic(t *testing.T) {
	s := New(fakeModels{captcha.TypeText: textModel()})

	first, err := s.SolveInput(context.Background(), captcha.TypeText, inference.Blank())
	if err != nil {
		t.Fatalf("SolveInput: %v", err)
	}
	second, err := s.SolveInput(context.Background(), captcha.TypeText, inference.Blank())
	if err != nil {
		t.Fatalf("SolveInput: %v", err)
	}
	first.ProcessingTimeMs, second.ProcessingTimeMs = 0, 0
	if !reflect.DeepEqual(first, second) {
		t.Errorf("blank input decoded differently:\n%+v\n%+v", first, second)
	}
}
