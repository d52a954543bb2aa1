package inference

// Model defines the interface for a loaded captcha recognition network
type Model interface {
	// Predict runs one preprocessed image through the network and returns
	// one probability vector per output position
	Predict(input *Input) (Prediction, error)

	// Name returns the artifact the model was loaded from
	Name() string

	// Close releases the runtime resources held by the model
	Close() error
}
