// Package imaging downsamples and re-encodes images before they are stored
// or sent for extraction.
package imaging

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"io"
	"math"

	// Decoders for the formats a phone camera or gallery may hand us.
	_ "image/gif"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"expensy/internal/core"
	"expensy/internal/metrics"
)

// Profile bounds the output of Normalize.
type Profile struct {
	Name string
	// MaxDimension caps the longer edge in pixels.
	MaxDimension int
	// Quality is the JPEG quality, 1-100.
	Quality int
}

var (
	ReceiptProfile = Profile{Name: "receipt", MaxDimension: 1200, Quality: 85}
	QRCodeProfile  = Profile{Name: "qrcode", MaxDimension: 800, Quality: 80}
)

// Normalize decodes r, scales it down so the longer edge fits p.MaxDimension
// and re-encodes it as JPEG. Images already within bounds keep their size.
func Normalize(r io.Reader, p Profile) (core.Image, error) {
	img, err := normalize(r, p)
	metrics.ImagesNormalized.WithLabelValues(p.Name, metrics.Outcome(err)).Inc()
	return img, err
}

func normalize(r io.Reader, p Profile) (core.Image, error) {
	src, _, err := image.Decode(r)
	if err != nil {
		return core.Image{}, fmt.Errorf("%w: %v", core.ErrImageDecode, err)
	}

	b := src.Bounds()
	w, h := FitWithin(b.Dx(), b.Dy(), p.MaxDimension)

	// JPEG has no alpha; transparent regions become white.
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	if w == b.Dx() && h == b.Dy() {
		draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Over)
	} else {
		draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Over, nil)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: p.Quality}); err != nil {
		return core.Image{}, fmt.Errorf("encode jpeg: %w", err)
	}
	return core.Image{MIMEType: "image/jpeg", Data: buf.Bytes()}, nil
}

// NormalizeBytes is Normalize over an in-memory source.
func NormalizeBytes(data []byte, p Profile) (core.Image, error) {
	if len(data) == 0 {
		return core.Image{}, fmt.Errorf("%w: empty input", core.ErrImageDecode)
	}
	return Normalize(bytes.NewReader(data), p)
}

// FitWithin returns the dimensions of a w×h image scaled so that its longer
// edge is at most limit. It never scales up.
func FitWithin(w, h, limit int) (int, int) {
	if limit <= 0 {
		return w, h
	}
	if w > h {
		if w > limit {
			h = int(math.Round(float64(h) * float64(limit) / float64(w)))
			w = limit
		}
	} else if h > limit {
		w = int(math.Round(float64(w) * float64(limit) / float64(h)))
		h = limit
	}
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	return w, h
}
