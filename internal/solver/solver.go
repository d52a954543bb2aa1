package solver

import (
	"captchasolver/internal/captcha"
	"captchasolver/internal/decoder"
	"captchasolver/internal/inference"
	"captchasolver/internal/mathexpr"
	"captchasolver/internal/model"
	"captchasolver/internal/preprocess"
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"strings"
	"time"
)

// Models resolves the loaded model for a captcha type
type Models interface {
	Get(t captcha.Type) (inference.Model, error)
}

// Request is one uploaded captcha
type Request struct {
	Data        []byte
	ContentType string
	Type        string
}

// Solver runs uploads through preprocess -> inference -> decode -> evaluate.
// It holds no per-request state and is safe for concurrent use.
type Solver struct {
	models Models
	now    func() time.Time
}

// New creates a solver over the models loaded at startup
func New(models Models) *Solver {
	return &Solver{models: models, now: time.Now}
}

// Solve validates the upload and solves it. Errors are *ModelUnavailableError,
// *DecodeError, *InferenceError or ErrNotImage.
func (s *Solver) Solve(ctx context.Context, req Request) (*model.SolveResponse, error) {
	start := s.now()

	if !strings.HasPrefix(req.ContentType, "image/") {
		return nil, ErrNotImage
	}

	t := captcha.ParseType(req.Type)
	m, err := s.model(t)
	if err != nil {
		return nil, err
	}

	return s.run(ctx, t, m, start, func() (*inference.Input, error) {
		return preprocess.Image(req.Data)
	})
}

// SolveInput solves an already preprocessed tensor.
func (s *Solver) SolveInput(ctx context.Context, t captcha.Type, input *inference.Input) (*model.SolveResponse, error) {
	start := s.now()

	m, err := s.model(t)
	if err != nil {
		return nil, err
	}

	return s.run(ctx, t, m, start, func() (*inference.Input, error) {
		return input, nil
	})
}

func (s *Solver) model(t captcha.Type) (inference.Model, error) {
	m, err := s.models.Get(t)
	if err != nil {
		return nil, &ModelUnavailableError{Type: t, Cause: err}
	}
	return m, nil
}

func (s *Solver) run(ctx context.Context, t captcha.Type, m inference.Model, start time.Time,
	input func() (*inference.Input, error)) (resp *model.SolveResponse, err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[Solve] Recovered from panic (%s model): %v", t, r)
			resp = nil
			err = &InferenceError{Stage: "pipeline", Err: fmt.Errorf("%v", r)}
		}
	}()

	in, err := input()
	if err != nil {
		var decErr *DecodeError
		if errors.As(err, &decErr) {
			return nil, err
		}
		return nil, &InferenceError{Stage: "preprocess", Err: err}
	}

	if err := ctx.Err(); err != nil {
		return nil, &InferenceError{Stage: "inference", Err: err}
	}

	pred, err := m.Predict(in)
	if err != nil {
		return nil, &InferenceError{Stage: "inference", Err: err}
	}

	profile := captcha.ProfileFor(t)
	decoded := decoder.Decode(pred, profile.Vocabulary)

	resp = &model.SolveResponse{
		Success:      true,
		Prediction:   decoded.Text,
		Confidence:   decoded.Confidence,
		Type:         string(t),
		Model:        profile.ModelName,
		Architecture: captcha.Architecture,
		CharDetails:  decoded.Details,
		VocabSize:    profile.Vocabulary.Size(),
	}

	if t == captcha.TypeMath {
		expr := decoded.Text
		resp.Expression = &expr
		resp.Prediction = mathexpr.Evaluate(expr)
	}

	resp.ProcessingTimeMs = int64(math.Round(float64(s.now().Sub(start)) / float64(time.Millisecond)))
	return resp, nil
}
