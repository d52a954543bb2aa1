package solver

import (
	"captchasolver/internal/captcha"
	"captchasolver/internal/preprocess"
	"errors"
	"fmt"
)

// ErrNotImage is returned when the upload does not declare an image content type.
var ErrNotImage = errors.New("must be an image")

// DecodeError is the preprocessor's error for unreadable uploads.
type DecodeError = preprocess.DecodeError

// ModelUnavailableError means the model for a captcha type failed to load at startup.
type ModelUnavailableError struct {
	Type  captcha.Type
	Cause error
}

func (e *ModelUnavailableError) Error() string {
	return fmt.Sprintf("%s model not loaded", e.Type.Title())
}

func (e *ModelUnavailableError) Unwrap() error {
	return e.Cause
}

// InferenceError wraps any other failure inside the solve pipeline.
type InferenceError struct {
	Stage string
	Err   error
}

func (e *InferenceError) Error() string {
	return e.Err.Error()
}

func (e *InferenceError) Unwrap() error {
	return e.Err
}
