package scan

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	qrgen "github.com/skip2/go-qrcode"
	"github.com/stretchr/testify/require"

	"github.com/oshokin/receipt-scan/internal/domain/scanflow"
	"github.com/oshokin/receipt-scan/internal/qr"
	scansvc "github.com/oshokin/receipt-scan/internal/service/scan"
)

const fiscalURL = "https://suf.purs.gov.rs/v/?vl=A0pBNVc2UjRQ"

//nolint:gochecknoinits // Gin mode is process-wide.
func init() {
	gin.SetMode(gin.TestMode)
}

// fakeService implements Service with canned results.
type fakeService struct {
	decodeErr   error
	contentType string
}

func (f *fakeService) DecodeURL(_ context.Context, _ []byte, contentType string) (string, error) {
	f.contentType = contentType

	if f.decodeErr != nil {
		return "", f.decodeErr
	}

	return fiscalURL, nil
}

func (f *fakeService) Validate(raw string) (string, error) {
	if raw != fiscalURL {
		return "", scanflow.NewRecoverable(scanflow.CodeNonFiscalQR, "not fiscal")
	}

	return raw, nil
}

func multipartImage(t *testing.T, field, contentType string, data []byte) (*bytes.Buffer, string) {
	t.Helper()

	var body bytes.Buffer

	w := multipart.NewWriter(&body)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename="receipt"`, field))
	header.Set("Content-Type", contentType)

	part, err := w.CreatePart(header)
	require.NoError(t, err)

	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	return &body, w.FormDataContentType()
}

func do(t *testing.T, handler http.Handler, req *http.Request) (int, map[string]string) {
	t.Helper()

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	var payload map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload), rec.Body.String())

	return rec.Code, payload
}

// TestServer_Health answers liveness probes.
func TestServer_Health(t *testing.T) {
	t.Parallel()

	router := NewServer(new(fakeService)).Router(context.Background())

	status, payload := do(t, router, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "ok", payload["status"])
}

// TestServer_DecodeErrors maps decode failures to 422 codes.
func TestServer_DecodeErrors(t *testing.T) {
	t.Parallel()

	cases := []struct {
		err    error
		status int
		code   string
	}{
		{err: nil, status: http.StatusOK},
		{err: fmt.Errorf("decode image: %w", qr.ErrInvalidImage), status: http.StatusUnprocessableEntity, code: qr.CodeInvalidImage},
		{err: qr.ErrNoQRFound, status: http.StatusUnprocessableEntity, code: qr.CodeNoQRFound},
		{err: scanflow.NewRecoverable(scanflow.CodeNonFiscalQR, "not fiscal"), status: http.StatusUnprocessableEntity, code: string(scanflow.CodeNonFiscalQR)},
		{err: errors.New("boom"), status: http.StatusInternalServerError, code: codeInternal},
	}

	for _, tc := range cases {
		svc := &fakeService{decodeErr: tc.err}
		router := NewServer(svc).Router(context.Background())

		body, contentType := multipartImage(t, imageField, "image/heic", []byte("bytes"))
		req := httptest.NewRequest(http.MethodPost, "/v1/scan/decode", body)
		req.Header.Set("Content-Type", contentType)

		status, payload := do(t, router, req)
		require.Equal(t, tc.status, status, tc.code)
		require.Equal(t, "image/heic", svc.contentType)

		if tc.err == nil {
			require.Equal(t, fiscalURL, payload["url"])
		} else {
			require.Equal(t, tc.code, payload["code"])
			require.NotEmpty(t, payload["message"])
		}
	}
}

// TestServer_DecodeRequiresImage rejects requests without the image field.
func TestServer_DecodeRequiresImage(t *testing.T) {
	t.Parallel()

	router := NewServer(new(fakeService)).Router(context.Background())

	body, contentType := multipartImage(t, "photo", "image/png", []byte("bytes"))
	req := httptest.NewRequest(http.MethodPost, "/v1/scan/decode", body)
	req.Header.Set("Content-Type", contentType)

	status, payload := do(t, router, req)
	require.Equal(t, http.StatusBadRequest, status)
	require.Equal(t, codeBadRequest, payload["code"])
}

// TestServer_Validate covers accepted, rejected and malformed bodies.
func TestServer_Validate(t *testing.T) {
	t.Parallel()

	router := NewServer(new(fakeService)).Router(context.Background())

	newRequest := func(body string) *http.Request {
		req := httptest.NewRequest(http.MethodPost, "/v1/scan/validate", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")

		return req
	}

	status, payload := do(t, router, newRequest(`{"raw":"`+fiscalURL+`"}`))
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, fiscalURL, payload["url"])

	status, payload = do(t, router, newRequest(`{"raw":"https://example.com"}`))
	require.Equal(t, http.StatusUnprocessableEntity, status)
	require.Equal(t, string(scanflow.CodeNonFiscalQR), payload["code"])

	status, payload = do(t, router, newRequest(`{}`))
	require.Equal(t, http.StatusBadRequest, status)
	require.Equal(t, codeBadRequest, payload["code"])
}

// TestServer_DecodeWithPipeline runs a rendered code through the real pipeline.
func TestServer_DecodeWithPipeline(t *testing.T) {
	t.Parallel()

	png, err := qrgen.Encode(fiscalURL, qrgen.Medium, 256)
	require.NoError(t, err)

	router := NewServer(scansvc.NewPipeline()).Router(context.Background())

	body, contentType := multipartImage(t, imageField, "image/png", png)
	req := httptest.NewRequest(http.MethodPost, "/v1/scan/decode", body)
	req.Header.Set("Content-Type", contentType)

	status, payload := do(t, router, req)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, fiscalURL, payload["url"])

	body, contentType = multipartImage(t, imageField, "image/png", []byte("garbage"))
	req = httptest.NewRequest(http.MethodPost, "/v1/scan/decode", body)
	req.Header.Set("Content-Type", contentType)

	status, payload = do(t, router, req)
	require.Equal(t, http.StatusUnprocessableEntity, status)
	require.Equal(t, qr.CodeInvalidImage, payload["code"])
}
