package imageutil

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif" // Register GIF decoder
	"image/jpeg"
	_ "image/png" // Register PNG decoder
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // Register WebP decoder

	"slowlooking/pkg/llm"
)

const (
	jpegQuality      = 85
	defaultMediaType = "image/jpeg"
)

// ErrEmptyImage is returned for zero-length input.
var ErrEmptyImage = errors.New("image data is empty")

var extensionTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
}

// SupportedExtensions lists the file extensions accepted as artwork images.
func SupportedExtensions() []string {
	return []string{".jpg", ".jpeg", ".png", ".gif", ".webp"}
}

// IsSupported reports whether filename has an image extension the pipeline accepts.
func IsSupported(filename string) bool {
	_, ok := extensionTypes[strings.ToLower(filepath.Ext(filename))]
	return ok
}

// DetectMediaType sniffs data first, falls back to the filename extension,
// and finally to image/jpeg.
func DetectMediaType(data []byte, filename string) string {
	if len(data) > 0 {
		mt := mimetype.Detect(data).String()
		for _, known := range extensionTypes {
			if mt == known {
				return mt
			}
		}
	}
	if mt, ok := extensionTypes[strings.ToLower(filepath.Ext(filename))]; ok {
		return mt
	}
	return defaultMediaType
}

// Prepare builds the request image. When maxDim > 0 and the picture is larger,
// it is scaled to fit and re-encoded as JPEG. The caller's bytes are never modified.
func Prepare(data []byte, filename string, maxDim int) (llm.Image, error) {
	if len(data) == 0 {
		return llm.Image{}, ErrEmptyImage
	}

	img := llm.Image{Data: data, MediaType: DetectMediaType(data, filename)}
	if maxDim <= 0 {
		return img, nil
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil || (cfg.Width <= maxDim && cfg.Height <= maxDim) {
		// Undecodable images go to the provider untouched.
		return img, nil
	}

	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return img, nil
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, scaleToFit(src, maxDim), &jpeg.Options{Quality: jpegQuality}); err != nil {
		return llm.Image{}, fmt.Errorf("failed to encode JPEG: %w", err)
	}
	return llm.Image{Data: buf.Bytes(), MediaType: "image/jpeg"}, nil
}

// scaleToFit scales the image so that neither side exceeds maxDim, preserving aspect ratio.
// Does not upscale.
func scaleToFit(img image.Image, maxDim int) image.Image {
	b := img.Bounds()
	w := b.Dx()
	h := b.Dy()

	if w <= maxDim && h <= maxDim {
		return img
	}

	ratio := float64(maxDim) / float64(w)
	if rh := float64(maxDim) / float64(h); rh < ratio {
		ratio = rh
	}

	newW := max(1, int(float64(w)*ratio))
	newH := max(1, int(float64(h)*ratio))

	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	draw.BiLinear.Scale(dst, dst.Bounds(), img, b, draw.Over, nil)
	return dst
}
