package inference

import (
	"captchasolver/internal/captcha"
	"errors"
	"fmt"
	"log"

	ort "github.com/yalue/onnxruntime_go"
)

// Loader opens the model artifact at path for the given captcha profile
type Loader func(path string, profile captcha.Profile) (Model, error)

// Registry holds the models loaded at startup. It is never modified after
// construction, so it is safe for concurrent use.
type Registry struct {
	models  map[captcha.Type]Model
	errs    map[captcha.Type]error
	onClose func() error
}

// NewRegistry loads one model per captcha type. A type whose path is empty or
// whose load fails is recorded as unavailable; it is never retried.
func NewRegistry(paths map[captcha.Type]string, load Loader) *Registry {
	r := &Registry{
		models: make(map[captcha.Type]Model),
		errs:   make(map[captcha.Type]error),
	}

	for _, t := range captcha.Types() {
		profile := captcha.ProfileFor(t)
		path := paths[t]
		if path == "" {
			r.errs[t] = fmt.Errorf("no model path configured")
			log.Printf("[Models] %s model: %v", profile.ModelName, r.errs[t])
			continue
		}

		m, err := load(path, profile)
		if err != nil {
			r.errs[t] = err
			log.Printf("[Models] %s model error (%s): %v", profile.ModelName, path, err)
			continue
		}
		r.models[t] = m
		log.Printf("[Models] %s model ready: %s (%d classes)", profile.ModelName, m.Name(), profile.Vocabulary.Size())
	}

	return r
}

// LoadONNX initializes the ONNX Runtime environment and loads both models.
// If the runtime itself cannot start, every type is reported unavailable.
func LoadONNX(libPath string, paths map[captcha.Type]string) *Registry {
	if libPath != "" {
		ort.SetSharedLibraryPath(libPath)
	}
	if err := ort.InitializeEnvironment(); err != nil {
		log.Printf("[ONNX] Failed to initialize runtime: %v", err)
		return NewRegistry(paths, func(string, captcha.Profile) (Model, error) {
			return nil, fmt.Errorf("onnx runtime unavailable: %w", err)
		})
	}

	r := NewRegistry(paths, func(path string, profile captcha.Profile) (Model, error) {
		return NewONNXModel(path, profile)
	})
	r.onClose = ort.DestroyEnvironment
	return r
}

// Get returns the model for t, or the error that kept it from loading.
func (r *Registry) Get(t captcha.Type) (Model, error) {
	if m, ok := r.models[t]; ok {
		return m, nil
	}
	if err, ok := r.errs[t]; ok {
		return nil, err
	}
	return nil, fmt.Errorf("unknown captcha type %q", t)
}

// Status reports, per type, whether the model loaded.
func (r *Registry) Status() map[captcha.Type]bool {
	status := make(map[captcha.Type]bool, len(captcha.Types()))
	for _, t := range captcha.Types() {
		_, ok := r.models[t]
		status[t] = ok
	}
	return status
}

// Close releases every loaded model and the runtime environment.
func (r *Registry) Close() error {
	var errs []error
	for t, m := range r.models {
		if err := m.Close(); err != nil {
			errs = append(errs, fmt.Errorf("%s model: %w", t, err))
		}
	}
	if r.onClose != nil {
		if err := r.onClose(); err != nil {
			errs = append(errs, fmt.Errorf("onnx runtime: %w", err))
		}
	}
	return errors.Join(errs...)
}
