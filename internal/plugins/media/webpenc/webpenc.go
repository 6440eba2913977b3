// Package webpenc encodes media variants as lossy WebP through libwebp.
// It is kept out of package media because it needs cgo; media only sees
// the Encoder interface.
package webpenc

import (
	"fmt"
	"image"
	"io"

	"github.com/kolesa-team/go-webp/encoder"
	"github.com/kolesa-team/go-webp/webp"
)

// Encoder writes lossy WebP at a fixed quality.
type Encoder struct {
	options *encoder.Options
}

// New creates an encoder for quality in 1..100.
func New(quality int) (*Encoder, error) {
	if quality < 1 || quality > 100 {
		return nil, fmt.Errorf("webp quality %d out of range 1-100", quality)
	}
	opts, err := encoder.NewLossyEncoderOptions(encoder.PresetDefault, float32(quality))
	if err != nil {
		return nil, fmt.Errorf("creating webp encoder options: %w", err)
	}
	return &Encoder{options: opts}, nil
}

// Encode writes img to w.
func (e *Encoder) Encode(w io.Writer, img image.Image) error {
	if err := webp.Encode(w, img, e.options); err != nil {
		return fmt.Errorf("encoding webp: %w", err)
	}
	return nil
}
