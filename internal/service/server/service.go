package server

import (
	"context"

	"github.com/oshokin/receipt-scan/internal/domain/scanflow"
	"github.com/oshokin/receipt-scan/internal/qr"
	"github.com/oshokin/receipt-scan/internal/service/scan"
	"github.com/oshokin/receipt-scan/internal/telemetry"
)

// service reports telemetry around the decode pipeline. It is unexported to
// keep the transport decoupled from the implementation.
type service struct {
	// pipeline decodes and validates codes.
	pipeline *scan.Pipeline
	// reporter receives decode outcomes.
	reporter telemetry.Reporter
}

// newService creates a service over the pipeline.
func newService(pipeline *scan.Pipeline, reporter telemetry.Reporter) *service {
	return &service{
		pipeline: pipeline,
		reporter: telemetry.Guard(reporter),
	}
}

// DecodeURL decodes an uploaded image into a fiscal URL.
func (s *service) DecodeURL(ctx context.Context, data []byte, contentType string) (string, error) {
	url, err := s.pipeline.DecodeURL(ctx, data, contentType)

	s.report(ctx, url, err)

	return url, err
}

// Validate checks a code scanned on the client.
func (s *service) Validate(raw string) (string, error) {
	ctx := context.Background()
	url, err := s.pipeline.Validate(raw)

	s.report(ctx, url, err)

	return url, err
}

func (s *service) report(ctx context.Context, url string, err error) {
	switch {
	case err == nil:
		s.reporter.ScanDecoded(ctx, url)
	case scanflow.HasCode(err, scanflow.CodeNonFiscalQR):
		s.reporter.RecoverableError(ctx, string(scanflow.CodeNonFiscalQR))
	case qr.Code(err) != "":
		s.reporter.RecoverableError(ctx, qr.Code(err))
	}
}
