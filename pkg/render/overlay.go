package render

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	_ "image/gif" // Register GIF decoder
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	_ "golang.org/x/image/webp" // Register WebP decoder

	"slowlooking/pkg/fileutil"
	"slowlooking/pkg/model"
)

const (
	outlineWidth = 5
	labelPadding = 4
	labelOffset  = 10
	jpegQuality  = 95
)

// Step colours, cycled when a journey has more steps than entries.
var palette = []color.NRGBA{
	{255, 0, 0, 100},
	{0, 255, 0, 100},
	{0, 0, 255, 100},
	{255, 255, 0, 100},
	{255, 0, 255, 100},
	{0, 255, 255, 100},
}

var labelBackground = color.NRGBA{255, 255, 255, 200}

// Overlay returns a copy of src with every step's region shaded, outlined and
// numbered. Regions extending past the image are clipped.
func Overlay(src image.Image, j *model.Journey) *image.RGBA {
	b := src.Bounds()
	dst := image.NewRGBA(b)
	draw.Draw(dst, b, src, b.Min, draw.Src)

	for i, s := range j.Steps {
		c := palette[i%len(palette)]
		r := regionRect(s.Region, b)
		if r.Empty() {
			continue
		}
		draw.Draw(dst, r, image.NewUniform(c), image.Point{}, draw.Over)
		strokeRect(dst, r, color.NRGBA{c.R, c.G, c.B, 255})
		drawLabel(dst, image.Pt(r.Min.X+labelOffset, r.Min.Y+labelOffset), strconv.Itoa(s.StepNumber), color.NRGBA{c.R, c.G, c.B, 255})
	}
	return dst
}

func regionRect(reg model.Region, b image.Rectangle) image.Rectangle {
	w, h := float64(b.Dx()), float64(b.Dy())
	x0 := b.Min.X + int(reg.X*w)
	y0 := b.Min.Y + int(reg.Y*h)
	r := image.Rect(x0, y0, x0+int(reg.Width*w), y0+int(reg.Height*h))
	return r.Intersect(b)
}

func strokeRect(dst *image.RGBA, r image.Rectangle, c color.Color) {
	u := image.NewUniform(c)
	t := outlineWidth
	edges := []image.Rectangle{
		image.Rect(r.Min.X, r.Min.Y, r.Max.X, r.Min.Y+t),
		image.Rect(r.Min.X, r.Max.Y-t, r.Max.X, r.Max.Y),
		image.Rect(r.Min.X, r.Min.Y, r.Min.X+t, r.Max.Y),
		image.Rect(r.Max.X-t, r.Min.Y, r.Max.X, r.Max.Y),
	}
	for _, e := range edges {
		draw.Draw(dst, e.Intersect(r), u, image.Point{}, draw.Src)
	}
}

func drawLabel(dst *image.RGBA, at image.Point, text string, c color.Color) {
	face := basicfont.Face7x13
	d := &font.Drawer{Dst: dst, Src: image.NewUniform(c), Face: face}
	width := d.MeasureString(text).Ceil()
	m := face.Metrics()

	bg := image.Rect(at.X-labelPadding, at.Y-labelPadding,
		at.X+width+labelPadding, at.Y+(m.Ascent+m.Descent).Ceil()+labelPadding)
	draw.Draw(dst, bg.Intersect(dst.Bounds()), image.NewUniform(labelBackground), image.Point{}, draw.Over)

	d.Dot = fixed.P(at.X, at.Y+m.Ascent.Ceil())
	d.DrawString(text)
}

// Encode writes img as PNG or JPEG depending on format ("png", "jpg", "jpeg").
func Encode(w io.Writer, img image.Image, format string) error {
	switch strings.ToLower(strings.TrimPrefix(format, ".")) {
	case "png":
		return png.Encode(w, img)
	case "jpg", "jpeg":
		return jpeg.Encode(w, img, &jpeg.Options{Quality: jpegQuality})
	}
	return fmt.Errorf("unsupported output format %q", format)
}

// OverlayFile decodes imagePath, draws the journey on it and writes the
// result to outPath, choosing the encoding from outPath's extension.
func OverlayFile(imagePath string, j *model.Journey, outPath string) error {
	f, err := os.Open(imagePath)
	if err != nil {
		return err
	}
	defer f.Close()

	src, _, err := image.Decode(f)
	if err != nil {
		return fmt.Errorf("decode %s: %w", filepath.Base(imagePath), err)
	}

	var buf bytes.Buffer
	if err := Encode(&buf, Overlay(src, j), filepath.Ext(outPath)); err != nil {
		return err
	}
	return fileutil.WriteFileAtomic(outPath, buf.Bytes(), 0o644)
}
