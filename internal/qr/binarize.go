package qr

import (
	"image"
	"math"

	"github.com/disintegration/imaging"
)

const (
	// binarizeBias is subtracted from the local mean before thresholding.
	binarizeBias = 10
	// minBlockSize is the smallest neighbourhood edge in pixels.
	minBlockSize = 15
	// blockDivisor relates the neighbourhood to the short image side.
	blockDivisor = 40
)

// blockSize returns max(15, round(min(w,h)/40)) forced odd.
func blockSize(w, h int) int {
	size := int(math.Round(float64(min(w, h)) / blockDivisor))
	size = max(minBlockSize, size)

	if size%2 == 0 {
		size++
	}

	return size
}

// binarize applies Wellner-style adaptive thresholding: a pixel becomes black
// when its luminance is below the mean of its block neighbourhood minus
// binarizeBias, white otherwise. integral is a scratch buffer of at least
// (w+1)*(h+1) entries.
func binarize(img image.Image, integral []uint32) *image.Gray {
	gray := imaging.Grayscale(img)
	w, h := gray.Rect.Dx(), gray.Rect.Dy()
	stride := w + 1

	integral = integral[:stride*(h+1)]
	clear(integral[:stride])

	// The sums wrap on very large images; window sums stay exact modulo 2^32.
	for y := range h {
		var rowSum uint32

		integral[(y+1)*stride] = 0
		row := gray.Pix[y*gray.Stride:]

		for x := range w {
			rowSum += uint32(row[x*4])
			integral[(y+1)*stride+x+1] = integral[y*stride+x+1] + rowSum
		}
	}

	out := image.NewGray(image.Rect(0, 0, w, h))
	half := blockSize(w, h) / 2

	for y := range h {
		y1, y2 := max(0, y-half), min(h-1, y+half)

		for x := range w {
			x1, x2 := max(0, x-half), min(w-1, x+half)

			sum := integral[(y2+1)*stride+x2+1] -
				integral[y1*stride+x2+1] -
				integral[(y2+1)*stride+x1] +
				integral[y1*stride+x1]
			count := int64((x2 - x1 + 1) * (y2 - y1 + 1))
			lum := int64(gray.Pix[y*gray.Stride+x*4])

			// lum < sum/count - bias, without division.
			if lum*count < int64(sum)-binarizeBias*count {
				out.Pix[y*out.Stride+x] = 0
			} else {
				out.Pix[y*out.Stride+x] = 255
			}
		}
	}

	return out
}
