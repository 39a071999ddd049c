package compositor

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"math"
	"unicode/utf8"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"

	"github.com/okian/adcraft/internal/domain/format"
)

// fontSet holds parsed fonts. Parsed fonts are read-only and shared; faces are
// created per call because an opentype face is not safe for concurrent use.
type fontSet struct {
	regular *opentype.Font
	bold    *opentype.Font
}

func loadFonts() (*fontSet, error) {
	regular, err := opentype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("parse regular font: %w", err)
	}
	bold, err := opentype.Parse(gobold.TTF)
	if err != nil {
		return nil, fmt.Errorf("parse bold font: %w", err)
	}
	return &fontSet{regular: regular, bold: bold}, nil
}

func (fs *fontSet) face(style format.TextStyle) (font.Face, error) {
	f := fs.regular
	if style.Bold {
		f = fs.bold
	}
	return opentype.NewFace(f, &opentype.FaceOptions{
		Size:    math.Max(1, style.FontSize),
		DPI:     72,
		Hinting: font.HintingFull,
	})
}

// Measure implements Measurer.
func (fs *fontSet) Measure(text string, style format.TextStyle) float64 {
	face, err := fs.face(style)
	if err != nil {
		return approxMeasurer{}.Measure(text, style)
	}
	defer face.Close()
	return measureFace(face, text, style)
}

func measureFace(face font.Face, text string, style format.TextStyle) float64 {
	w := fixedToFloat(font.MeasureString(face, text))
	if n := utf8.RuneCountInString(text); n > 1 {
		w += float64(n-1) * style.Tracking * style.FontSize
	}
	return w
}

// RasterRenderer draws glyphs in pure Go with the Go font family.
type RasterRenderer struct {
	fonts *fontSet
}

// NewRasterRenderer parses the embedded fonts.
func NewRasterRenderer() (*RasterRenderer, error) {
	fs, err := loadFonts()
	if err != nil {
		return nil, err
	}
	return &RasterRenderer{fonts: fs}, nil
}

// Name implements TextRenderer.
func (r *RasterRenderer) Name() string { return BackendRaster }

// Available implements TextRenderer.
func (r *RasterRenderer) Available() bool { return r != nil && r.fonts != nil }

// Measure implements Measurer.
func (r *RasterRenderer) Measure(text string, style format.TextStyle) float64 {
	return r.fonts.Measure(text, style)
}

// Render implements TextRenderer.
func (r *RasterRenderer) Render(ctx context.Context, dst *image.RGBA, layout Layout) error {
	typo := layout.Typography
	for _, e := range layout.Elements {
		if err := ctx.Err(); err != nil {
			return err
		}
		face, err := r.fonts.face(e.Style)
		if err != nil {
			return fmt.Errorf("%s face: %w", e.Kind, err)
		}

		fill := hexColor(e.Style.Color, color.White)
		switch e.Kind {
		case KindHeadline:
			drawShadow(dst, face, e, typo.HeadlineShadow)
		case KindCTA:
			b := e.Box
			rect := image.Rect(int(b.X), int(b.Y), int(math.Ceil(b.X+b.W)), int(math.Ceil(b.Y+b.H)))
			mask := &roundedRect{r: rect, radius: b.Radius}
			bg := image.NewUniform(hexColor(typo.CTABackground, color.RGBA{R: 0x39, G: 0xFF, B: 0x14, A: 0xFF}))
			draw.DrawMask(dst, rect, bg, image.Point{}, mask, rect.Min, draw.Over)
		}
		drawLines(dst, face, e, image.NewUniform(fill), 0, 0)
		face.Close()
	}
	return nil
}

// drawLines draws each line centered on e.CenterX, vertically centered in its line box.
func drawLines(dst draw.Image, face font.Face, e Element, src image.Image, dx, dy float64) {
	m := face.Metrics()
	ascent, descent := fixedToFloat(m.Ascent), fixedToFloat(m.Descent)
	d := &font.Drawer{Dst: dst, Src: src, Face: face}
	for i, line := range e.Lines {
		width := measureFace(face, line, e.Style)
		x := e.CenterX - width/2 + dx
		lineTop := e.Top + float64(i)*e.LineHeight
		baseline := lineTop + (e.LineHeight-(ascent+descent))/2 + ascent + dy
		d.Dot = fixed.Point26_6{X: floatToFixed(x), Y: floatToFixed(baseline)}
		if e.Style.Tracking == 0 {
			d.DrawString(line)
			continue
		}
		step := floatToFixed(e.Style.Tracking * e.Style.FontSize)
		for _, ch := range line {
			d.DrawString(string(ch))
			d.Dot.X += step
		}
	}
}

// drawShadow renders the element into an alpha mask, blurs it by scaling down
// and back up, and composites it in black under the text.
func drawShadow(dst *image.RGBA, face font.Face, e Element, s format.Shadow) {
	if s.Opacity <= 0 {
		return
	}
	pad := int(math.Ceil(s.Blur*2 + math.Abs(s.OffsetX) + math.Abs(s.OffsetY)))
	region := image.Rect(0, int(e.Top)-pad, dst.Bounds().Dx(), int(math.Ceil(e.Top+e.Height))+pad).Intersect(dst.Bounds())
	if region.Empty() {
		return
	}

	mask := image.NewAlpha(region)
	drawLines(mask, face, e, image.Opaque, s.OffsetX, s.OffsetY)

	blurred := mask
	if factor := int(math.Max(2, s.Blur/2)); s.Blur > 0 {
		small := image.NewAlpha(image.Rect(0, 0, max(1, region.Dx()/factor), max(1, region.Dy()/factor)))
		draw.ApproxBiLinear.Scale(small, small.Bounds(), mask, region, draw.Src, nil)
		blurred = image.NewAlpha(region)
		draw.BiLinear.Scale(blurred, region, small, small.Bounds(), draw.Src, nil)
	}

	shade := image.NewUniform(color.NRGBA{A: uint8(math.Min(1, s.Opacity) * 255)})
	draw.DrawMask(dst, region, shade, image.Point{}, blurred, region.Min, draw.Over)
}

// roundedRect is an anti-aliased rounded rectangle alpha mask.
type roundedRect struct {
	r      image.Rectangle
	radius float64
}

func (rr *roundedRect) ColorModel() color.Model { return color.AlphaModel }
func (rr *roundedRect) Bounds() image.Rectangle { return rr.r }

func (rr *roundedRect) At(x, y int) color.Color {
	px, py := float64(x)+0.5, float64(y)+0.5
	minX, minY := float64(rr.r.Min.X), float64(rr.r.Min.Y)
	maxX, maxY := float64(rr.r.Max.X), float64(rr.r.Max.Y)
	rad := rr.radius
	if rad < 0.5 {
		if image.Pt(x, y).In(rr.r) {
			return color.Alpha{A: 0xFF}
		}
		return color.Alpha{}
	}

	// distance to the nearest corner centre, only inside the corner squares
	cx := math.Max(minX+rad, math.Min(px, maxX-rad))
	cy := math.Max(minY+rad, math.Min(py, maxY-rad))
	dist := math.Hypot(px-cx, py-cy)
	cov := rad + 0.5 - dist
	switch {
	case cov >= 1:
		return color.Alpha{A: 0xFF}
	case cov <= 0:
		return color.Alpha{}
	default:
		return color.Alpha{A: uint8(cov * 255)}
	}
}

func hexColor(hex string, fallback color.Color) color.Color {
	r, g, b, ok := format.ParseHex(hex)
	if !ok {
		return fallback
	}
	return color.RGBA{R: r, G: g, B: b, A: 0xFF}
}

func fixedToFloat(v fixed.Int26_6) float64 { return float64(v) / 64 }

func floatToFixed(v float64) fixed.Int26_6 { return fixed.Int26_6(math.Round(v * 64)) }
