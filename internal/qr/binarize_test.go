package qr

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestBlockSize checks the neighbourhood size rule.
func TestBlockSize(t *testing.T) {
	t.Parallel()

	cases := []struct {
		w, h int
		want int
	}{
		{w: 40, h: 20, want: 15},
		{w: 600, h: 600, want: 15},
		{w: 1200, h: 800, want: 21},
		{w: 2000, h: 1000, want: 25},
		{w: 4032, h: 3024, want: 77},
		{w: 3000, h: 1100, want: 29},
	}

	for _, tc := range cases {
		got := blockSize(tc.w, tc.h)
		require.Equal(t, tc.want, got, "%dx%d", tc.w, tc.h)
		require.Equal(t, 1, got%2)
	}
}

// TestBinarize_Uniform turns a flat image white.
func TestBinarize_Uniform(t *testing.T) {
	t.Parallel()

	img := image.NewGray(image.Rect(0, 0, 32, 24))
	for i := range img.Pix {
		img.Pix[i] = 90
	}

	out := binarize(img, make([]uint32, 33*25))
	for _, p := range out.Pix {
		require.Equal(t, uint8(255), p)
	}
}

// TestBinarize_UnevenLighting keeps small dark marks black across a strong
// left-to-right lighting gradient while the paper stays white.
func TestBinarize_UnevenLighting(t *testing.T) {
	t.Parallel()

	const size = 60

	img := image.NewNRGBA(image.Rect(0, 0, size, size))
	dots := map[image.Point]bool{}

	for _, origin := range []image.Point{{X: 5, Y: 28}, {X: 28, Y: 10}, {X: 50, Y: 45}} {
		for dy := range 3 {
			for dx := range 3 {
				dots[origin.Add(image.Pt(dx, dy))] = true
			}
		}
	}

	for y := range size {
		for x := range size {
			v := 100 + 2*x
			if dots[image.Pt(x, y)] {
				v -= 60
			}

			img.Set(x, y, color.NRGBA{R: uint8(v), G: uint8(v), B: uint8(v), A: 255})
		}
	}

	// Oversized scratch is fine.
	out := binarize(img, make([]uint32, 2*(size+1)*(size+1)))

	for y := range size {
		for x := range size {
			want := uint8(255)
			if dots[image.Pt(x, y)] {
				want = 0
			}

			require.Equal(t, want, out.GrayAt(x, y).Y, "pixel %d,%d", x, y)
		}
	}
}

// TestToneLUT checks the CSS-style contrast and brightness mapping.
func TestToneLUT(t *testing.T) {
	t.Parallel()

	contrast := toneLUT(tone{contrast: 3})
	require.Equal(t, uint8(0), contrast[0])
	require.Equal(t, uint8(45), contrast[100])
	require.Equal(t, uint8(255), contrast[200])
	require.Equal(t, uint8(255), contrast[255])

	brightness := toneLUT(tone{brightness: 2})
	require.Equal(t, uint8(200), brightness[100])
	require.Equal(t, uint8(255), brightness[200])

	identity := toneLUT()
	for i := range identity {
		require.Equal(t, uint8(i), identity[i])
	}
}
