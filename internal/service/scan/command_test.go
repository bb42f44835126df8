package scan

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/receipt-scan/internal/config"
	"github.com/oshokin/receipt-scan/internal/domain/receipt"
	"github.com/oshokin/receipt-scan/internal/service/common"
	"github.com/oshokin/receipt-scan/internal/service/retry"
)

// writeFixtures stores a settings file pointing at backendURL and a rendered receipt code.
func writeFixtures(t *testing.T, backendURL string) (string, string) {
	t.Helper()

	dir := t.TempDir()
	configPath := filepath.Join(dir, config.DefaultConfigFilename)
	imagePath := filepath.Join(dir, "receipt.png")

	require.NoError(t, config.Save(configPath, &config.Config{
		BackendURL: backendURL,
		APIToken:   "token-1",
		RateLimit:  100,
	}))
	require.NoError(t, os.WriteFile(imagePath, fiscalPNG(t, fiscalURL), 0o600))

	return configPath, imagePath
}

// TestRun_RetriesAndPrintsReceipt scans a file against a flaky backend.
func TestRun_RetriesAndPrintsReceipt(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32

	var authorized atomic.Bool

	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != common.ReceiptsPath {
			http.NotFound(w, r)

			return
		}

		authorized.Store(r.Header.Get("Authorization") == "Bearer token-1")

		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"message":"Fiscal portal temporarily unavailable"}`))

			return
		}

		var req receipt.CreateRequest
		_ = json.NewDecoder(r.Body).Decode(&req)

		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(receipt.Receipt{ID: "r-1", QRCodeURL: req.QRCodeURL, GroupID: req.GroupID})
	}))
	t.Cleanup(backend.Close)

	configPath, imagePath := writeFixtures(t, backend.URL)

	var out bytes.Buffer

	err := Run(context.Background(), &Options{
		ConfigPath:   configPath,
		ImagePath:    imagePath,
		GroupID:      "g-1",
		Output:       &out,
		retryOptions: []retry.Option{retry.WithSchedule(0, 10*time.Millisecond)},
	})
	require.NoError(t, err)
	require.EqualValues(t, 2, calls.Load())
	require.True(t, authorized.Load())

	printed := out.String()
	require.Contains(t, printed, "Submitting receipt (attempt 1)...")
	require.Contains(t, printed, "Fiscal portal unavailable, attempt 2 of 2 in 10ms.")
	require.Contains(t, printed, "Submitting receipt (attempt 2)...")

	jsonStart := strings.Index(printed, "{")
	require.GreaterOrEqual(t, jsonStart, 0)

	var created receipt.Receipt
	require.NoError(t, json.Unmarshal([]byte(printed[jsonStart:]), &created))
	require.Equal(t, "r-1", created.ID)
	require.Equal(t, fiscalURL, created.QRCodeURL)
	require.Equal(t, "g-1", created.GroupID)
}

// TestRun_CancelFromInput aborts the wait when the user types c.
func TestRun_CancelFromInput(t *testing.T) {
	t.Parallel()

	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	t.Cleanup(backend.Close)

	configPath, imagePath := writeFixtures(t, backend.URL)
	input, feed := ioPipe()

	var out syncBuffer

	errCh := make(chan error, 1)

	go func() {
		errCh <- Run(context.Background(), &Options{
			ConfigPath:   configPath,
			ImagePath:    imagePath,
			Input:        input,
			Output:       &out,
			retryOptions: []retry.Option{retry.WithSchedule(0, time.Hour)},
		})
	}()

	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), "Type r to retry now")
	}, 10*time.Second, 10*time.Millisecond)

	_, err := feed.Write([]byte("c\n"))
	require.NoError(t, err)

	select {
	case err = <-errCh:
	case <-time.After(10 * time.Second):
		t.Fatal("scan did not stop after cancel")
	}

	require.ErrorContains(t, err, "RETRY_CANCELLED")
	require.Contains(t, out.String(), "Submission cancelled.")
	require.NoError(t, feed.Close())
}

// TestRun_RequiresImage fails fast without an image path.
func TestRun_RequiresImage(t *testing.T) {
	t.Parallel()

	require.ErrorIs(t, Run(context.Background(), &Options{}), errImagePathRequired)
}

// TestRunDecodeAndValidate prints validated URLs offline.
func TestRunDecodeAndValidate(t *testing.T) {
	t.Parallel()

	_, imagePath := writeFixtures(t, "http://127.0.0.1:1")

	var out bytes.Buffer

	require.NoError(t, RunDecode(context.Background(), &DecodeOptions{ImagePath: imagePath, Output: &out}))
	require.Equal(t, fiscalURL+"\n", out.String())

	out.Reset()
	require.NoError(t, RunValidate(context.Background(), &DecodeOptions{Raw: " " + fiscalURL, Output: &out}))
	require.Equal(t, fiscalURL+"\n", out.String())

	err := RunValidate(context.Background(), &DecodeOptions{Raw: "https://example.com", Output: &out})
	require.ErrorContains(t, err, "NON_FISCAL_QR")

	err = RunValidate(context.Background(), &DecodeOptions{
		Raw:         "https://example.com/receipt",
		FiscalHosts: []string{"example.com"},
		Output:      &out,
	})
	require.NoError(t, err)
}

// TestRunRender writes a code that decodes back to the same URL.
func TestRunRender(t *testing.T) {
	t.Parallel()

	out := filepath.Join(t.TempDir(), "code.png")

	require.NoError(t, RunRender(context.Background(), &RenderOptions{Content: fiscalURL, OutputPath: out}))

	var printed bytes.Buffer

	require.NoError(t, RunDecode(context.Background(), &DecodeOptions{ImagePath: out, Output: &printed}))
	require.Equal(t, fiscalURL+"\n", printed.String())

	err := RunRender(context.Background(), &RenderOptions{Content: "https://example.com", OutputPath: out})
	require.ErrorContains(t, err, "NON_FISCAL_QR")

	require.ErrorIs(t, RunRender(context.Background(), &RenderOptions{Content: fiscalURL}), errOutputPathRequired)
}
