package media

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"io"
	"log/slog"
	"math"

	"github.com/disintegration/imaging"

	// Register the WebP decoder so WebP uploads can be resized too.
	_ "golang.org/x/image/webp"
)

// Encoder writes an image in the variant output format. The production
// implementation (package webpenc) encodes lossy WebP at a fixed quality.
type Encoder interface {
	Encode(w io.Writer, img image.Image) error
}

// GenerateResult is the outcome of variant generation for one original.
type GenerateResult struct {
	Width    int
	Height   int
	Variants VariantSet
}

// VariantGenerator produces downscaled renditions of raster originals.
type VariantGenerator struct {
	store   *FileStore
	encoder Encoder
	specs   []VariantSpec
}

// NewVariantGenerator creates a generator writing into store. specs must be
// ordered by width; nil means DefaultVariantSpecs.
func NewVariantGenerator(store *FileStore, encoder Encoder, specs []VariantSpec) *VariantGenerator {
	if specs == nil {
		specs = DefaultVariantSpecs
	}
	return &VariantGenerator{store: store, encoder: encoder, specs: specs}
}

// Generate decodes the original at originalPath and writes one variant per
// spec narrower than the source. Sources are never upscaled. A failure on
// one variant is logged and skipped; only an undecodable source is an
// error.
func (g *VariantGenerator) Generate(ctx context.Context, originalPath, storageKey string) (GenerateResult, error) {
	src, err := imaging.Open(originalPath, imaging.AutoOrientation(true))
	if err != nil {
		return GenerateResult{}, fmt.Errorf("decoding %s: %w", storageKey, err)
	}

	b := src.Bounds()
	res := GenerateResult{Width: b.Dx(), Height: b.Dy()}

	for _, spec := range g.specs {
		if res.Width <= spec.Width {
			continue
		}
		v, err := g.generateOne(src, res.Width, res.Height, storageKey, spec)
		if err != nil {
			variantFailuresTotal.WithLabelValues(spec.Name).Inc()
			slog.WarnContext(ctx, "variant generation failed",
				slog.String("key", storageKey),
				slog.String("variant", spec.Name),
				slog.Any("error", err),
			)
			continue
		}
		variantsGeneratedTotal.WithLabelValues(spec.Name).Inc()
		res.Variants.set(v)
	}
	return res, nil
}

func (g *VariantGenerator) generateOne(src image.Image, w, h int, storageKey string, spec VariantSpec) (Variant, error) {
	height := ScaledHeight(w, h, spec.Width)
	dst := imaging.Resize(src, spec.Width, height, imaging.Lanczos)

	var buf bytes.Buffer
	if err := g.encoder.Encode(&buf, dst); err != nil {
		return Variant{}, fmt.Errorf("encoding: %w", err)
	}

	key := VariantKey(storageKey, spec.Name)
	if err := g.store.Write(key, buf.Bytes()); err != nil {
		return Variant{}, err
	}
	return Variant{Name: spec.Name, Path: key, Width: spec.Width, Height: height}, nil
}

// ScaledHeight returns the height that preserves the w:h aspect ratio at
// targetWidth, rounded to the nearest pixel and never below 1.
func ScaledHeight(w, h, targetWidth int) int {
	height := int(math.Round(float64(h) * float64(targetWidth) / float64(w)))
	return max(height, 1)
}
