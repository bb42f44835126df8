package server

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/receipt-scan/internal/domain/scanflow"
	"github.com/oshokin/receipt-scan/internal/qr"
	"github.com/oshokin/receipt-scan/internal/service/scan"
	"github.com/oshokin/receipt-scan/internal/telemetry"
)

const fiscalURL = "https://suf.purs.gov.rs/v/?vl=A0pBNVc2UjRQ"

// eventRecorder keeps decoded URLs and recoverable codes.
type eventRecorder struct {
	telemetry.Nop

	mu      sync.Mutex
	decoded []string
	codes   []string
}

func (r *eventRecorder) ScanDecoded(_ context.Context, url string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.decoded = append(r.decoded, url)
}

func (r *eventRecorder) RecoverableError(_ context.Context, code string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.codes = append(r.codes, code)
}

// TestService_ReportsOutcomes sends one event per decode or validation.
func TestService_ReportsOutcomes(t *testing.T) {
	t.Parallel()

	rec := new(eventRecorder)
	svc := newService(scan.NewPipeline(), rec)

	url, err := svc.Validate(fiscalURL)
	require.NoError(t, err)
	require.Equal(t, fiscalURL, url)

	_, err = svc.Validate("https://example.com")
	require.True(t, scanflow.HasCode(err, scanflow.CodeNonFiscalQR))

	_, err = svc.DecodeURL(context.Background(), []byte("nope"), "")
	require.ErrorIs(t, err, qr.ErrInvalidImage)

	require.Equal(t, []string{fiscalURL}, rec.decoded)
	require.Equal(t, []string{string(scanflow.CodeNonFiscalQR), qr.CodeInvalidImage}, rec.codes)
}
