package compositor

import (
	"bytes"
	"context"
	"fmt"
	"html"
	"image"
	"os/exec"
	"strconv"
	"strings"

	"golang.org/x/image/draw"

	"github.com/okian/adcraft/internal/domain/format"
	"github.com/okian/adcraft/internal/render/codec"
)

const (
	defaultSVGBinary = "rsvg-convert"
	svgFontFamily    = "Go, Inter, Helvetica, Arial, sans-serif"
)

// SVGOption configures an SVGRenderer.
type SVGOption func(*SVGRenderer)

// WithSVGBinary overrides the rasterizer executable.
func WithSVGBinary(name string) SVGOption {
	return func(r *SVGRenderer) {
		if name != "" {
			r.binary = name
		}
	}
}

// SVGRenderer builds an SVG overlay and rasterizes it with an external
// rsvg-convert process.
type SVGRenderer struct {
	binary string
	path   string
	fonts  *fontSet
}

// NewSVGRenderer resolves the rasterizer on PATH. A missing binary is not an
// error here; Available reports it.
func NewSVGRenderer(opts ...SVGOption) (*SVGRenderer, error) {
	r := &SVGRenderer{binary: defaultSVGBinary}
	for _, opt := range opts {
		opt(r)
	}
	if p, err := exec.LookPath(r.binary); err == nil {
		r.path = p
	}
	fs, err := loadFonts()
	if err != nil {
		return nil, err
	}
	r.fonts = fs
	return r, nil
}

// Name implements TextRenderer.
func (r *SVGRenderer) Name() string { return BackendSVG }

// Available implements TextRenderer.
func (r *SVGRenderer) Available() bool { return r != nil && r.path != "" }

// Measure implements Measurer.
func (r *SVGRenderer) Measure(text string, style format.TextStyle) float64 {
	return r.fonts.Measure(text, style)
}

// Render implements TextRenderer.
func (r *SVGRenderer) Render(ctx context.Context, dst *image.RGBA, layout Layout) error {
	if !r.Available() {
		return ErrRendererUnavailable
	}
	markup := BuildSVG(layout)

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, r.path, "--format=png",
		"--width", strconv.Itoa(layout.Width), "--height", strconv.Itoa(layout.Height))
	cmd.Stdin = strings.NewReader(markup)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%w: %s: %v: %s", ErrRendererUnavailable, r.binary, err, strings.TrimSpace(stderr.String()))
	}

	overlay, _, err := codec.Decode(stdout.Bytes())
	if err != nil {
		return fmt.Errorf("decode svg overlay: %w", err)
	}
	draw.Draw(dst, dst.Bounds(), overlay, overlay.Bounds().Min, draw.Over)
	return nil
}

// BuildSVG returns the overlay markup for layout. Every piece of user text is
// XML-escaped before it is embedded.
func BuildSVG(layout Layout) string {
	typo := layout.Typography
	var b strings.Builder
	fmt.Fprintf(&b, `<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">`,
		layout.Width, layout.Height, layout.Width, layout.Height)

	s := typo.HeadlineShadow
	fmt.Fprintf(&b, `<defs><filter id="shadow" x="-10%%" y="-30%%" width="120%%" height="160%%">`+
		`<feDropShadow dx="%s" dy="%s" stdDeviation="%s" flood-color="#000000" flood-opacity="%s"/></filter></defs>`,
		num(s.OffsetX), num(s.OffsetY), num(s.Blur/2), num(s.Opacity))

	for _, e := range layout.Elements {
		if e.Box != nil {
			fmt.Fprintf(&b, `<rect x="%s" y="%s" width="%s" height="%s" rx="%s" ry="%s" fill="%s"/>`,
				num(e.Box.X), num(e.Box.Y), num(e.Box.W), num(e.Box.H), num(e.Box.Radius), num(e.Box.Radius),
				html.EscapeString(typo.CTABackground))
		}
		weight := "400"
		if e.Style.Bold {
			weight = "700"
		}
		filter := ""
		if e.Kind == KindHeadline {
			filter = ` filter="url(#shadow)"`
		}
		for i, line := range e.Lines {
			// cap height is roughly 0.7em, so this centres capitals in the line box
			baseline := e.Top + float64(i)*e.LineHeight + e.LineHeight/2 + e.Style.FontSize*0.35
			fmt.Fprintf(&b, `<text x="%s" y="%s" text-anchor="middle" font-family="%s" font-size="%s" font-weight="%s" letter-spacing="%s" fill="%s"%s>%s</text>`,
				num(e.CenterX), num(baseline), svgFontFamily, num(e.Style.FontSize), weight,
				num(e.Style.Tracking*e.Style.FontSize), html.EscapeString(e.Style.Color), filter,
				html.EscapeString(line))
		}
	}
	b.WriteString(`</svg>`)
	return b.String()
}

func num(v float64) string { return strconv.FormatFloat(v, 'f', 2, 64) }
