package inference

import "fmt"

// Fixed input geometry of both networks (NHWC, batch of one).
const (
	Height   = 32
	Width    = 128
	Channels = 1
)

// Input is a preprocessed image tensor of shape [1, Height, Width, Channels]
// with values in [0, 1], stored row-major.
type Input struct {
	Data []float32
}

// NewInput wraps data, checking that it has exactly Height*Width*Channels values.
func NewInput(data []float32) (*Input, error) {
	if want := Height * Width * Channels; len(data) != want {
		return nil, fmt.Errorf("input has %d values, want %d", len(data), want)
	}
	return &Input{Data: data}, nil
}

// Blank returns an all-zero input.
func Blank() *Input {
	return &Input{Data: make([]float32, Height*Width*Channels)}
}

// Shape returns the 4-D tensor shape of the input.
func (in *Input) Shape() []int64 {
	return []int64{1, Height, Width, Channels}
}

// Prediction holds one probability vector per character position, in position order.
type Prediction [][]float32
