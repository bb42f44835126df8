package scan

import (
	"context"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/oshokin/receipt-scan/internal/fiscalurl"
	"github.com/oshokin/receipt-scan/internal/logger"
)

// DecodeOptions configures the offline decode and validate commands.
type DecodeOptions struct {
	// ImagePath is the image to decode.
	ImagePath string
	// Raw is a code string to validate instead of decoding an image.
	Raw string
	// FiscalHosts overrides the default fiscal host allow-list.
	FiscalHosts []string
	// Output receives the validated URL.
	Output io.Writer
}

// RunDecode decodes an image and prints the fiscal URL it contains.
func RunDecode(ctx context.Context, opts *DecodeOptions) error {
	ctx = logger.WithName(ctx, "decode")

	if opts.ImagePath == "" {
		return errImagePathRequired
	}

	data, err := os.ReadFile(opts.ImagePath)
	if err != nil {
		return fmt.Errorf("read image: %w", err)
	}

	pipeline := NewPipeline(WithValidator(fiscalurl.NewValidator(opts.FiscalHosts...)))

	url, err := pipeline.DecodeURL(ctx, data, mime.TypeByExtension(strings.ToLower(filepath.Ext(opts.ImagePath))))
	if err != nil {
		return err
	}

	return printLine(opts.Output, url)
}

// RunValidate prints the normalized fiscal URL for opts.Raw.
func RunValidate(_ context.Context, opts *DecodeOptions) error {
	url, err := NewPipeline(WithValidator(fiscalurl.NewValidator(opts.FiscalHosts...))).Validate(opts.Raw)
	if err != nil {
		return err
	}

	return printLine(opts.Output, url)
}

func printLine(w io.Writer, line string) error {
	if w == nil {
		w = os.Stdout
	}

	if _, err := fmt.Fprintln(w, line); err != nil {
		return fmt.Errorf("print: %w", err)
	}

	return nil
}
