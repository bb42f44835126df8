package scan

import (
	"context"
	"fmt"
	"image"

	"github.com/oshokin/receipt-scan/internal/domain/scanflow"
	"github.com/oshokin/receipt-scan/internal/fiscalurl"
	"github.com/oshokin/receipt-scan/internal/normalize"
	"github.com/oshokin/receipt-scan/internal/qr"
)

// nonFiscalMessage is shown when a decoded code is not a fiscal portal URL.
const nonFiscalMessage = "This QR code is not a fiscal receipt. Scan the code printed on the receipt."

// Pipeline turns image bytes into a validated fiscal URL without touching
// the backend.
type Pipeline struct {
	// normalizer converts HEIC/HEIF uploads.
	normalizer *normalize.Normalizer
	// locator finds the code in a bitmap.
	locator *qr.Locator
	// validator checks decoded strings against the fiscal host allow-list.
	validator *fiscalurl.Validator
}

// PipelineOption configures a Pipeline.
type PipelineOption func(*Pipeline)

// WithNormalizer replaces the image normalizer.
func WithNormalizer(n *normalize.Normalizer) PipelineOption {
	return func(p *Pipeline) {
		if n != nil {
			p.normalizer = n
		}
	}
}

// WithLocator replaces the QR locator.
func WithLocator(l *qr.Locator) PipelineOption {
	return func(p *Pipeline) {
		if l != nil {
			p.locator = l
		}
	}
}

// WithValidator replaces the fiscal URL validator.
func WithValidator(v *fiscalurl.Validator) PipelineOption {
	return func(p *Pipeline) {
		if v != nil {
			p.validator = v
		}
	}
}

// NewPipeline creates a pipeline with the default components.
func NewPipeline(opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		normalizer: normalize.New(),
		locator:    qr.NewLocator(),
		validator:  fiscalurl.NewValidator(),
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Decode normalizes the bytes and returns the raw decoded code. It fails
// with qr.ErrInvalidImage or qr.ErrNoQRFound.
func (p *Pipeline) Decode(ctx context.Context, data []byte, contentType string) (string, error) {
	return p.locator.Decode(ctx, p.normalizer.Normalize(ctx, data, contentType))
}

// DecodeFrame decodes a camera frame that is already a bitmap.
func (p *Pipeline) DecodeFrame(ctx context.Context, frame image.Image) (string, error) {
	return p.locator.DecodeImage(ctx, frame)
}

// Validate returns the normalized fiscal URL, or a NON_FISCAL_QR
// recoverable error.
func (p *Pipeline) Validate(raw string) (string, error) {
	valid, ok := p.validator.Normalize(raw)
	if !ok {
		return "", scanflow.NewRecoverable(scanflow.CodeNonFiscalQR, nonFiscalMessage)
	}

	return valid, nil
}

// DecodeURL decodes and validates in one step.
func (p *Pipeline) DecodeURL(ctx context.Context, data []byte, contentType string) (string, error) {
	raw, err := p.Decode(ctx, data, contentType)
	if err != nil {
		return "", fmt.Errorf("decode image: %w", err)
	}

	return p.Validate(raw)
}
