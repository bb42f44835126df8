package qr

import (
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"
)

// tone is one contrast/brightness step with CSS filter semantics:
// contrast c maps v to (v-0.5)*c+0.5, brightness b maps v to v*b, both clamped.
type tone struct {
	contrast   float64
	brightness float64
}

// toneLUT folds the steps into one 8-bit lookup table.
func toneLUT(steps ...tone) [256]uint8 {
	var lut [256]uint8

	for i := range lut {
		v := float64(i) / 255

		for _, s := range steps {
			if s.contrast != 0 {
				v = clamp01((v-0.5)*s.contrast + 0.5)
			}

			if s.brightness != 0 {
				v = clamp01(v * s.brightness)
			}
		}

		lut[i] = uint8(math.Round(v * 255))
	}

	return lut
}

func clamp01(v float64) float64 {
	return math.Min(1, math.Max(0, v))
}

// applyTone applies the steps to every color channel, keeping alpha.
func applyTone(img image.Image, steps ...tone) *image.NRGBA {
	lut := toneLUT(steps...)

	return imaging.AdjustFunc(img, func(c color.NRGBA) color.NRGBA {
		return color.NRGBA{R: lut[c.R], G: lut[c.G], B: lut[c.B], A: c.A}
	})
}

// rotate turns img clockwise by the given multiple of 90 degrees.
func rotate(img image.Image, degrees int) image.Image {
	switch degrees {
	case 90:
		return imaging.Rotate270(img)
	case 180:
		return imaging.Rotate180(img)
	case 270:
		return imaging.Rotate90(img)
	default:
		return img
	}
}
