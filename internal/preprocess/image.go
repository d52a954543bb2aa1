package preprocess

import (
	"bytes"
	"captchasolver/internal/inference"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"
)

// DecodeError means the uploaded bytes are not a decodable image.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return "invalid image: " + e.Err.Error()
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Image decodes raw image bytes and turns them into the model input tensor:
// grayscale, resized to 128x32 with a Lanczos filter (aspect ratio ignored),
// scaled to [0, 1].
func Image(data []byte) (*inference.Input, error) {
	if len(data) == 0 {
		return nil, &DecodeError{Err: fmt.Errorf("empty upload")}
	}

	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, &DecodeError{Err: err}
	}

	return FromImage(img)
}

// FromImage converts an already decoded image to the model input tensor.
func FromImage(img image.Image) (*inference.Input, error) {
	b := img.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 {
		return nil, &DecodeError{Err: fmt.Errorf("image has no pixels")}
	}

	var gray image.Image = img
	if _, ok := img.(*image.Gray); !ok {
		gray = imaging.Grayscale(img)
	}
	resized := imaging.Resize(gray, inference.Width, inference.Height, imaging.Lanczos)

	data := make([]float32, 0, inference.Height*inference.Width*inference.Channels)
	for y := 0; y < inference.Height; y++ {
		for x := 0; x < inference.Width; x++ {
			// NRGBA from imaging is non-premultiplied, so R carries the gray level as is.
			c := resized.NRGBAAt(x, y)
			data = append(data, float32(c.R)/255.0)
		}
	}

	return inference.NewInput(data)
}

