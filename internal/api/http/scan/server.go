package scan

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/oshokin/receipt-scan/internal/domain/scanflow"
	"github.com/oshokin/receipt-scan/internal/logger"
	"github.com/oshokin/receipt-scan/internal/qr"
)

const (
	// MaxImageBytes bounds uploaded images.
	MaxImageBytes = 20 << 20

	// imageField is the multipart field carrying the image.
	imageField = "image"

	codeBadRequest    = "BAD_REQUEST"
	codeImageTooLarge = "IMAGE_TOO_LARGE"
	codeInternal      = "INTERNAL"
)

// Service abstracts the decode operations the transport layer depends on.
type Service interface {
	DecodeURL(ctx context.Context, data []byte, contentType string) (string, error)
	Validate(raw string) (string, error)
}

// Server implements the scan HTTP API.
type Server struct {
	// service provides decoding and validation.
	service Service
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// URLResponse carries a validated fiscal URL.
type URLResponse struct {
	URL string `json:"url"`
}

// ValidateRequest is the body of POST /v1/scan/validate.
type ValidateRequest struct {
	Raw string `json:"raw" binding:"required"`
}

// NewServer wires the provided service implementation into HTTP handlers.
func NewServer(service Service) *Server {
	return &Server{
		service: service,
	}
}

// Router returns a gin engine with every route registered.
func (s *Server) Router(ctx context.Context) *gin.Engine {
	router := gin.New()
	router.MaxMultipartMemory = MaxImageBytes
	router.Use(gin.Recovery(), requestLogger(ctx))

	s.Register(router)

	return router
}

// Register adds the routes to r.
func (s *Server) Register(r gin.IRouter) {
	r.GET("/healthz", s.Health)

	v1 := r.Group("/v1/scan")
	v1.POST("/decode", s.Decode)
	v1.POST("/validate", s.Validate)
}

// Health reports liveness.
// GET /healthz
func (s *Server) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Decode finds the fiscal URL in an uploaded image.
// POST /v1/scan/decode
func (s *Server) Decode(c *gin.Context) {
	header, err := c.FormFile(imageField)
	if err != nil {
		respondError(c, http.StatusBadRequest, codeBadRequest, "multipart field \"image\" is required")

		return
	}

	if header.Size > MaxImageBytes {
		respondError(c, http.StatusRequestEntityTooLarge, codeImageTooLarge, "image is too large")

		return
	}

	file, err := header.Open()
	if err != nil {
		respondError(c, http.StatusBadRequest, codeBadRequest, "unable to read image")

		return
	}

	defer func() { _ = file.Close() }()

	data, err := io.ReadAll(io.LimitReader(file, MaxImageBytes))
	if err != nil {
		respondError(c, http.StatusBadRequest, codeBadRequest, "unable to read image")

		return
	}

	url, err := s.service.DecodeURL(c.Request.Context(), data, header.Header.Get("Content-Type"))
	if err != nil {
		handleError(c, err)

		return
	}

	c.JSON(http.StatusOK, URLResponse{URL: url})
}

// Validate checks a code string scanned elsewhere.
// POST /v1/scan/validate
func (s *Server) Validate(c *gin.Context) {
	var req ValidateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, codeBadRequest, "field \"raw\" is required")

		return
	}

	url, err := s.service.Validate(req.Raw)
	if err != nil {
		handleError(c, err)

		return
	}

	c.JSON(http.StatusOK, URLResponse{URL: url})
}

// handleError maps decode and validation errors to responses. Input errors
// are 422 so clients can tell them from malformed requests.
func handleError(c *gin.Context, err error) {
	var recoverable *scanflow.RecoverableError

	switch {
	case errors.As(err, &recoverable):
		respondError(c, http.StatusUnprocessableEntity, string(recoverable.Code), recoverable.Message)
	case errors.Is(err, qr.ErrInvalidImage):
		respondError(c, http.StatusUnprocessableEntity, qr.CodeInvalidImage, "The image could not be read.")
	case errors.Is(err, qr.ErrNoQRFound):
		respondError(c, http.StatusUnprocessableEntity, qr.CodeNoQRFound, "No QR code was found in the image.")
	default:
		logger.ErrorKV(c.Request.Context(), "Scan request failed", "error", err)
		respondError(c, http.StatusInternalServerError, codeInternal, "internal error")
	}
}

func respondError(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, ErrorResponse{Code: code, Message: message})
}

// requestLogger logs one line per request through the context logger.
func requestLogger(ctx context.Context) gin.HandlerFunc {
	return func(c *gin.Context) {
		started := time.Now()

		c.Next()

		logger.DebugKV(ctx, "HTTP request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"elapsed", time.Since(started),
		)
	}
}
