// Package codec decodes and encodes the raster images that flow through the pipeline.
package codec

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"  // GIF decode support
	_ "image/jpeg" // JPEG decode support
	"image/png"

	_ "golang.org/x/image/webp" // WebP decode support
)

// ErrInvalidImage is returned when bytes cannot be decoded as an image.
var ErrInvalidImage = errors.New("invalid image")

// Decode reads PNG, JPEG, GIF or WebP bytes.
func Decode(data []byte) (image.Image, string, error) {
	if len(data) == 0 {
		return nil, "", fmt.Errorf("%w: empty input", ErrInvalidImage)
	}
	img, kind, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("%w: %w", ErrInvalidImage, err)
	}
	if b := img.Bounds(); b.Dx() == 0 || b.Dy() == 0 {
		return nil, "", fmt.Errorf("%w: zero-sized image", ErrInvalidImage)
	}
	return img, kind, nil
}

// EncodePNG encodes img losslessly.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	enc := png.Encoder{CompressionLevel: png.BestSpeed}
	if err := enc.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// ContentType maps a Decode kind to its MIME type. Unknown kinds are PNG.
func ContentType(kind string) string {
	switch kind {
	case "jpeg":
		return "image/jpeg"
	case "gif":
		return "image/gif"
	case "webp":
		return "image/webp"
	default:
		return "image/png"
	}
}
