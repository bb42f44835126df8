package qr

import (
	"context"
	"fmt"
	"image"
	"sync"

	"github.com/disintegration/imaging"

	"github.com/oshokin/receipt-scan/internal/logger"
	"github.com/oshokin/receipt-scan/internal/normalize"
)

// Rotations are the clockwise rotations tried, in order.
//
//nolint:gochecknoglobals // Fixed decode schedule.
var Rotations = [...]int{0, 90, 180, 270}

// pass is one enhancement step applied to a rotated bitmap.
type pass struct {
	name  string
	apply func(img image.Image, src *decodeSource) image.Image
}

//nolint:gochecknoglobals // Fixed decode schedule.
var (
	fadedTone     = []tone{{contrast: 2}}
	veryFadedTone = []tone{{contrast: 3, brightness: 1.3}}
	sharpenTone   = []tone{{contrast: 2, brightness: 1.2}, {contrast: 2, brightness: 1.2}}

	passes = [...]pass{
		{
			name:  "raw",
			apply: func(img image.Image, _ *decodeSource) image.Image { return img },
		},
		{
			name: "contrast",
			apply: func(img image.Image, _ *decodeSource) image.Image {
				return imaging.Grayscale(applyTone(img, fadedTone...))
			},
		},
		{
			name: "contrast_brightness",
			apply: func(img image.Image, _ *decodeSource) image.Image {
				return imaging.Grayscale(applyTone(img, veryFadedTone...))
			},
		},
		{
			name: "binarize",
			apply: func(img image.Image, src *decodeSource) image.Image {
				return binarize(img, src.integral(img.Bounds()))
			},
		},
		{
			name: "sharpen_binarize",
			apply: func(img image.Image, src *decodeSource) image.Image {
				return binarize(applyTone(img, sharpenTone...), src.integral(img.Bounds()))
			},
		},
	}
)

// PassCount is the number of enhancement passes per rotation.
const PassCount = len(passes)

// firstBinarizedPass is the index of the first pass that thresholds the bitmap.
const firstBinarizedPass = 3

// step is one detector attempt: a rotation and the pass applied to it.
type step struct {
	rotation int
	pass     int
}

// schedule is the full detector order. The upright bitmap only gets the tone
// passes at first; its binarized passes run after every rotated bitmap had
// its full set.
//
//nolint:gochecknoglobals // Fixed decode schedule.
var schedule = buildSchedule()

func buildSchedule() []step {
	out := make([]step, 0, len(Rotations)*PassCount)

	for _, degrees := range Rotations {
		for i := range passes {
			if degrees == 0 && i >= firstBinarizedPass {
				continue
			}

			out = append(out, step{rotation: degrees, pass: i})
		}
	}

	for i := firstBinarizedPass; i < PassCount; i++ {
		out = append(out, step{rotation: 0, pass: i})
	}

	return out
}

// Locator runs the rotation and enhancement schedule over a bitmap.
type Locator struct {
	// detector finds the code in each candidate bitmap.
	detector Detector
	// decodeBitmap turns bytes into a bitmap.
	decodeBitmap func([]byte) (image.Image, error)
	// scratch pools integral-image buffers between decode calls.
	scratch sync.Pool
}

// Option configures a Locator.
type Option func(*Locator)

// WithDetector replaces the ZXing detector.
func WithDetector(d Detector) Option {
	return func(l *Locator) {
		if d != nil {
			l.detector = d
		}
	}
}

// WithBitmapDecoder replaces the byte decoder.
func WithBitmapDecoder(fn func([]byte) (image.Image, error)) Option {
	return func(l *Locator) {
		if fn != nil {
			l.decodeBitmap = fn
		}
	}
}

// NewLocator creates a Locator backed by ZXing and normalize.DecodeBitmap.
func NewLocator(opts ...Option) *Locator {
	l := &Locator{
		detector:     NewZXingDetector(),
		decodeBitmap: normalize.DecodeBitmap,
	}

	for _, opt := range opts {
		opt(l)
	}

	return l
}

// Decode decodes image bytes and returns the embedded code string.
// It fails with ErrInvalidImage or ErrNoQRFound, or with the context error.
func (l *Locator) Decode(ctx context.Context, data []byte) (string, error) {
	img, err := l.decodeBitmap(data)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidImage, err)
	}

	return l.DecodeImage(ctx, img)
}

// DecodeImage runs the schedule over an already decoded bitmap, such as a camera frame.
func (l *Locator) DecodeImage(ctx context.Context, img image.Image) (string, error) {
	if img == nil || img.Bounds().Empty() {
		return "", ErrInvalidImage
	}

	src := l.acquire(img)
	defer src.release()

	var (
		rotated  image.Image
		current  = -1
		attempts int
	)

	for _, st := range schedule {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		if st.rotation != current {
			rotated, current = rotate(src.bitmap, st.rotation), st.rotation
		}

		p := passes[st.pass]
		attempts++

		text, err := l.detector.Detect(ctx, p.apply(rotated, src))
		if err == nil && text != "" {
			logger.DebugKV(ctx, "QR code detected",
				"rotation", st.rotation,
				"pass", p.name,
				"attempts", attempts,
			)

			return text, nil
		}

		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
	}

	logger.DebugKV(ctx, "QR code not found", "attempts", attempts)

	return "", ErrNoQRFound
}

// decodeSource is the bitmap exclusively owned by one decode call together
// with its pooled scratch buffer. release must run on every exit path.
type decodeSource struct {
	bitmap image.Image
	buf    *[]uint32
	pool   *sync.Pool
}

func (l *Locator) acquire(img image.Image) *decodeSource {
	return &decodeSource{
		bitmap: img,
		pool:   &l.scratch,
	}
}

// release returns the scratch buffer and drops the bitmap reference.
func (s *decodeSource) release() {
	if s.buf != nil {
		s.pool.Put(s.buf)
		s.buf = nil
	}

	s.bitmap = nil
}

// integral returns a scratch buffer large enough for an integral image of bounds.
func (s *decodeSource) integral(bounds image.Rectangle) []uint32 {
	need := (bounds.Dx() + 1) * (bounds.Dy() + 1)

	if s.buf == nil {
		if pooled, ok := s.pool.Get().(*[]uint32); ok {
			s.buf = pooled
		} else {
			s.buf = new([]uint32)
		}
	}

	if cap(*s.buf) < need {
		*s.buf = make([]uint32, need)
	}

	return (*s.buf)[:need]
}
