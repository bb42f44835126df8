package normalize

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"strings"

	// Native decoders for the formats galleries commonly produce.
	_ "image/gif"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/gen2brain/heic"

	"github.com/oshokin/receipt-scan/internal/logger"
)

// DefaultJPEGQuality is the quality of HEIC to JPEG conversions.
const DefaultJPEGQuality = 92

// Converter rewrites image bytes into a natively decodable format.
type Converter interface {
	Convert(ctx context.Context, data []byte) ([]byte, error)
}

// HEICConverter converts HEIC/HEIF bytes to JPEG in pure Go.
type HEICConverter struct {
	// Quality is the JPEG quality (1-100).
	Quality int
}

// Convert decodes HEIC data and re-encodes it as JPEG.
func (c HEICConverter) Convert(ctx context.Context, data []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	img, err := heic.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode heic: %w", err)
	}

	quality := c.Quality
	if quality <= 0 || quality > 100 {
		quality = DefaultJPEGQuality
	}

	var out bytes.Buffer
	if err := jpeg.Encode(&out, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}

	return out.Bytes(), nil
}

// Normalizer prepares uploaded images for decoding.
type Normalizer struct {
	// converter is the software fallback for HEIC/HEIF input.
	converter Converter
}

// Option configures a Normalizer.
type Option func(*Normalizer)

// WithConverter replaces the HEIC fallback converter.
func WithConverter(c Converter) Option {
	return func(n *Normalizer) {
		if c != nil {
			n.converter = c
		}
	}
}

// New creates a Normalizer with the pure Go HEIC converter.
func New(opts ...Option) *Normalizer {
	n := &Normalizer{
		converter: HEICConverter{Quality: DefaultJPEGQuality},
	}

	for _, opt := range opts {
		opt(n)
	}

	return n
}

// Normalize returns bytes ready for DecodeBitmap. It never fails: input that
// cannot be converted is returned unchanged and left for the decoder to reject.
func (n *Normalizer) Normalize(ctx context.Context, data []byte, contentType string) []byte {
	if !IsHEIC(data, contentType) {
		return data
	}

	// Native decode first. The heic import registers the "heic" brand, so only
	// other brands (mif1, heix, ...) reach the converter.
	if _, format, err := image.DecodeConfig(bytes.NewReader(data)); err == nil {
		logger.DebugKV(ctx, "HEIC image decodes natively", "format", format)

		return data
	}

	converted, err := n.converter.Convert(ctx, data)
	if err != nil {
		logger.WarnKV(ctx, "HEIC conversion failed, passing original bytes through", "error", err)

		return data
	}

	logger.DebugKV(ctx, "Converted HEIC image to JPEG", "input_bytes", len(data), "output_bytes", len(converted))

	return converted
}

// heifBrands are the ISO-BMFF major brands used by HEIC/HEIF stills and sequences.
//
//nolint:gochecknoglobals // Static lookup table.
var heifBrands = map[string]struct{}{
	"heic": {}, "heix": {}, "hevc": {}, "hevx": {},
	"heim": {}, "heis": {}, "hevm": {}, "hevs": {},
	"mif1": {}, "msf1": {},
}

// IsHEIC reports whether the content type or the file header identifies HEIC/HEIF.
func IsHEIC(data []byte, contentType string) bool {
	ct := strings.ToLower(strings.TrimSpace(strings.Split(contentType, ";")[0]))
	switch ct {
	case "image/heic", "image/heif", "image/heic-sequence", "image/heif-sequence":
		return true
	}

	if len(data) < 12 || string(data[4:8]) != "ftyp" {
		return false
	}

	_, ok := heifBrands[string(data[8:12])]

	return ok
}
