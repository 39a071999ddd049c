// Package compositor bakes eyebrow, headline and CTA text into creatives.
package compositor

import (
	"context"
	"image"
	"time"

	"golang.org/x/image/draw"

	"github.com/okian/adcraft/internal/domain/format"
	"github.com/okian/adcraft/internal/domain/model"
	"github.com/okian/adcraft/internal/render/codec"
	"github.com/okian/adcraft/pkg/logger"
	"github.com/okian/adcraft/pkg/metrics"
)

// Overlay is the text placed on one creative. Eyebrow and CTA are optional.
type Overlay struct {
	Eyebrow  string
	Headline string
	CTA      string
}

// OverlayFromTexts maps a copy variation onto overlay slots.
func OverlayFromTexts(t model.TextIteration) Overlay {
	return Overlay{Eyebrow: t.PreHeadline, Headline: t.Headline, CTA: t.CTA}
}

// Option configures a Compositor.
type Option func(*Compositor)

// WithRenderer sets the text renderer. Defaults to pass-through.
func WithRenderer(r TextRenderer) Option {
	return func(c *Compositor) {
		if r != nil {
			c.renderer = r
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(c *Compositor) {
		if l != nil {
			c.log = l
		}
	}
}

// Compositor lays out overlay text inside a format's safe zones and hands it to a renderer.
type Compositor struct {
	renderer TextRenderer
	log      logger.Logger
}

// New creates a Compositor.
func New(opts ...Option) *Compositor {
	c := &Compositor{renderer: Passthrough{}, log: logger.Nop()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Renderer returns the active backend.
func (c *Compositor) Renderer() TextRenderer { return c.renderer }

// Compose decodes base, draws the overlay and returns PNG bytes. When no
// renderer can draw, base is returned unchanged. Only undecodable input errors.
func (c *Compositor) Compose(ctx context.Context, base []byte, f model.CreativeFormat, ov Overlay, palette []string) ([]byte, error) {
	img, _, err := codec.Decode(base)
	if err != nil {
		return nil, err
	}
	out, drawn, err := c.ComposeImage(ctx, img, f, ov, palette)
	if err != nil {
		return nil, err
	}
	if !drawn {
		return base, nil
	}
	return codec.EncodePNG(out)
}

// ComposeImage is Compose on a decoded image. drawn is false when the image
// was passed through untouched.
func (c *Compositor) ComposeImage(ctx context.Context, img image.Image, f model.CreativeFormat, ov Overlay, palette []string) (image.Image, bool, error) {
	zones, typo, err := format.Geometry(f, palette)
	if err != nil {
		return nil, false, err
	}

	// Geometry is defined on the format canvas; scale it if the image differs.
	b := img.Bounds()
	if b.Dx() != zones.Width || b.Dy() != zones.Height {
		zones, typo = scaleGeometry(zones, typo, b.Dx(), b.Dy())
	}

	if !c.renderer.Available() {
		c.fallback(ctx, f, nil)
		return img, false, nil
	}

	var m Measurer
	if mm, ok := c.renderer.(Measurer); ok {
		m = mm
	}
	layout := BuildLayout(ov, zones, typo, m)

	start := time.Now()
	canvas := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(canvas, canvas.Bounds(), img, b.Min, draw.Src)
	if err := c.renderer.Render(ctx, canvas, layout); err != nil {
		c.fallback(ctx, f, err)
		return img, false, nil
	}
	metrics.RecordStageLatency("compose", float64(time.Since(start).Milliseconds()))
	return canvas, true, nil
}

func (c *Compositor) fallback(ctx context.Context, f model.CreativeFormat, err error) {
	metrics.RecordRendererFallback(c.renderer.Name())
	fields := []logger.Field{logger.String("format", string(f)), logger.String("backend", c.renderer.Name())}
	if err != nil {
		fields = append(fields, logger.Error(err))
	}
	c.log.Warn(ctx, "text overlay skipped, passing image through", fields...)
}

func scaleGeometry(z format.SafeZoneSpec, t format.TypographySpec, w, h int) (format.SafeZoneSpec, format.TypographySpec) {
	k := float64(w) / float64(z.Width)
	z.Width, z.Height = w, h
	t.Headline.FontSize *= k
	t.Eyebrow.FontSize *= k
	t.CTA.FontSize *= k
	t.CTAPaddingX *= k
	t.CTAPaddingY *= k
	t.CTARadius *= k
	t.ElementGap *= k
	t.HeadlineShadow.OffsetX *= k
	t.HeadlineShadow.OffsetY *= k
	t.HeadlineShadow.Blur *= k
	return z, t
}
