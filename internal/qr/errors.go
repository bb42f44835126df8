package qr

import "errors"

var (
	// ErrInvalidImage is returned when the bytes cannot be decoded into a bitmap.
	ErrInvalidImage = errors.New("invalid image")
	// ErrNoQRFound is returned when every rotation and pass failed to detect a code.
	ErrNoQRFound = errors.New("no QR code found")
)

const (
	// CodeInvalidImage is the wire code of ErrInvalidImage.
	CodeInvalidImage = "INVALID_IMAGE"
	// CodeNoQRFound is the wire code of ErrNoQRFound.
	CodeNoQRFound = "NO_QR_FOUND"
)

// Code maps decode errors to their wire codes. Unknown errors map to "".
func Code(err error) string {
	switch {
	case errors.Is(err, ErrInvalidImage):
		return CodeInvalidImage
	case errors.Is(err, ErrNoQRFound):
		return CodeNoQRFound
	default:
		return ""
	}
}
