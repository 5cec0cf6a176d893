package transcode

import (
	"fmt"
	"image"
	"io"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/gen2brain/webp"
)

// Encoder turns pixels into delivery bytes at a given quality (1-100).
type Encoder interface {
	Encode(w io.Writer, img image.Image, quality int) error
	MediaType() string
}

const (
	FormatWebP = "webp"
	FormatJPEG = "jpeg"
)

func NewEncoder(format string) (Encoder, error) {
	switch strings.ToLower(format) {
	case "", FormatWebP:
		return WebPEncoder{}, nil
	case FormatJPEG, "jpg":
		return JPEGEncoder{}, nil
	default:
		return nil, fmt.Errorf("unsupported delivery format: %s", format)
	}
}

// WebPEncoder produces lossy WebP and keeps the alpha channel, so letterbox
// padding stays transparent.
type WebPEncoder struct{}

func (WebPEncoder) Encode(w io.Writer, img image.Image, quality int) error {
	return webp.Encode(w, img, webp.Options{Quality: quality, Method: 4})
}

func (WebPEncoder) MediaType() string {
	return "image/webp"
}

// JPEGEncoder has no alpha channel; transparent padding is flattened to black.
type JPEGEncoder struct{}

func (JPEGEncoder) Encode(w io.Writer, img image.Image, quality int) error {
	return imaging.Encode(w, img, imaging.JPEG, imaging.JPEGQuality(quality))
}

func (JPEGEncoder) MediaType() string {
	return "image/jpeg"
}
