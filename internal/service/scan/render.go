package scan

import (
	"context"
	"errors"
	"fmt"

	qrgen "github.com/skip2/go-qrcode"

	"github.com/oshokin/receipt-scan/internal/fiscalurl"
	"github.com/oshokin/receipt-scan/internal/logger"
)

// DefaultRenderSize is the edge of rendered codes in pixels.
const DefaultRenderSize = 512

// RenderOptions configures the render command.
type RenderOptions struct {
	// Content is the fiscal URL to encode.
	Content string
	// OutputPath is where the PNG is written.
	OutputPath string
	// Size is the image edge in pixels.
	Size int
	// FiscalHosts overrides the default fiscal host allow-list.
	FiscalHosts []string
}

// errOutputPathRequired is returned when no output file was given.
var errOutputPathRequired = errors.New("output path must be provided")

// RunRender writes a PNG QR code for a fiscal URL, for example to test
// scanners against a known receipt.
func RunRender(ctx context.Context, opts *RenderOptions) error {
	ctx = logger.WithName(ctx, "render")

	if opts.OutputPath == "" {
		return errOutputPathRequired
	}

	url, err := NewPipeline(WithValidator(fiscalurl.NewValidator(opts.FiscalHosts...))).Validate(opts.Content)
	if err != nil {
		return err
	}

	size := opts.Size
	if size <= 0 {
		size = DefaultRenderSize
	}

	if err = qrgen.WriteFile(url, qrgen.Medium, size, opts.OutputPath); err != nil {
		return fmt.Errorf("render QR code: %w", err)
	}

	logger.InfoKV(ctx, "QR code written", "path", opts.OutputPath, "size", size)

	return nil
}
