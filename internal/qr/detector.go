package qr

import (
	"context"
	"fmt"
	"image"

	"github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/qrcode"
)

// Detector finds and decodes a single QR code in a bitmap.
type Detector interface {
	Detect(ctx context.Context, img image.Image) (string, error)
}

// ZXingDetector detects QR codes with the gozxing port of ZXing.
type ZXingDetector struct {
	// hints are passed to every decode call.
	hints map[gozxing.DecodeHintType]interface{}
}

// NewZXingDetector returns a detector that tries harder on every bitmap.
func NewZXingDetector() *ZXingDetector {
	return &ZXingDetector{
		hints: map[gozxing.DecodeHintType]interface{}{
			gozxing.DecodeHintType_TRY_HARDER:    true,
			gozxing.DecodeHintType_CHARACTER_SET: "UTF-8",
		},
	}
}

// Detect implements Detector. A reader is created per call so the detector
// can be shared between goroutines.
func (d *ZXingDetector) Detect(ctx context.Context, img image.Image) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	bmp, err := gozxing.NewBinaryBitmapFromImage(img)
	if err != nil {
		return "", fmt.Errorf("binary bitmap: %w", err)
	}

	result, err := qrcode.NewQRCodeReader().Decode(bmp, d.hints)
	if err != nil {
		return "", err
	}

	return result.GetText(), nil
}
