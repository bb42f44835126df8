package integration

import (
	"encoding/json"
	"image"
	"image/color"
	"net"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/disintegration/imaging"
	qrgen "github.com/skip2/go-qrcode"
	"github.com/stretchr/testify/require"

	"github.com/oshokin/receipt-scan/internal/domain/receipt"
	"github.com/oshokin/receipt-scan/internal/service/common"
)

const fiscalURL = "https://suf.purs.gov.rs/v/?vl=A0pBNVc2UjRQQ1BYVk5ZOVeSAQAAVlEAAA"

// backendCall is one request seen by the fake backend.
type backendCall struct {
	idempotencyKey string
	body           receipt.CreateRequest
}

// fakeBackend answers receipt creation with scripted statuses, then 201.
type fakeBackend struct {
	*httptest.Server

	statuses []int

	mu    sync.Mutex
	calls []backendCall
}

func newFakeBackend(t *testing.T, statuses ...int) *fakeBackend {
	t.Helper()

	b := &fakeBackend{statuses: statuses}
	b.Server = httptest.NewServer(http.HandlerFunc(b.handle))
	t.Cleanup(b.Close)

	return b
}

func (b *fakeBackend) handle(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost || r.URL.Path != common.ReceiptsPath {
		http.Error(w, "unexpected route", http.StatusMethodNotAllowed)

		return
	}

	var body receipt.CreateRequest
	_ = json.NewDecoder(r.Body).Decode(&body)

	b.mu.Lock()
	n := len(b.calls)
	b.calls = append(b.calls, backendCall{
		idempotencyKey: r.Header.Get(common.HeaderIdempotencyKey),
		body:           body,
	})
	b.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")

	if n < len(b.statuses) {
		status := b.statuses[n]
		w.WriteHeader(status)

		if status >= http.StatusInternalServerError || status == http.StatusTooManyRequests {
			_, _ = w.Write([]byte(`{"message":"Fiscal portal temporarily unavailable"}`))
		} else {
			_, _ = w.Write([]byte(`{"message":"Invalid token"}`))
		}

		return
	}

	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(receipt.Receipt{
		ID:        "receipt-1",
		QRCodeURL: body.QRCodeURL,
		StoreName: "Maxi 0451",
		GroupID:   body.GroupID,
		PaidByID:  body.PaidByID,
	})
}

func (b *fakeBackend) recorded() []backendCall {
	b.mu.Lock()
	defer b.mu.Unlock()

	return append([]backendCall(nil), b.calls...)
}

// receiptPhoto renders the fiscal code the way a sideways, washed-out thermal
// print shows it: ink and paper differ by less than the detector's minimum
// contrast, so only the contrast-stretching pass recovers it.
func receiptPhoto(t *testing.T) image.Image {
	t.Helper()

	code, err := qrgen.New(fiscalURL, qrgen.Medium)
	require.NoError(t, err)

	faded := imaging.AdjustFunc(code.Image(360), func(c color.NRGBA) color.NRGBA {
		v := uint8(83)
		if c.R < 128 {
			v = 60
		}

		return color.NRGBA{R: v, G: v, B: v, A: 255}
	})

	return imaging.Rotate270(faded)
}

// reservePort finds a free local TCP address.
func reservePort(t *testing.T) string {
	t.Helper()

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	addr := l.Addr().String()
	require.NoError(t, l.Close())

	return addr
}
