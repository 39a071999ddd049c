// Package adapter remaps a base visual onto a target creative format.
package adapter

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"

	"golang.org/x/image/draw"

	"github.com/okian/adcraft/internal/domain/format"
	"github.com/okian/adcraft/internal/domain/model"
	"github.com/okian/adcraft/internal/render/codec"
	"github.com/okian/adcraft/pkg/logger"
)

// Strategy selects how the source is mapped onto the target canvas.
type Strategy string

// Strategies. Auto uses cover when aspect ratios match and inset otherwise.
const (
	StrategyAuto  Strategy = "auto"
	StrategyCover Strategy = "cover"
	StrategyInset Strategy = "inset"
)

// ErrUnknownStrategy is returned for an unrecognised strategy name.
var ErrUnknownStrategy = errors.New("unknown adapt strategy")

const (
	aspectTolerance  = 0.01
	blurDownscale    = 24   // backdrop is shrunk by this factor and scaled back up
	backdropShade    = 115  // alpha of the black layer over the blurred backdrop, about 45%
	insetMargin      = 0.04 // fraction of the subject area kept clear around the inset
	topGradientEnd   = 0.18
	topGradientAlpha = 0.55
	bottomGradStart  = 0.58
	bottomGradAlpha  = 0.75
)

// Option configures an Adapter.
type Option func(*Adapter)

// WithStrategy forces a strategy for every format.
func WithStrategy(s Strategy) Option {
	return func(a *Adapter) {
		if s != "" {
			a.strategy = s
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(a *Adapter) {
		if l != nil {
			a.log = l
		}
	}
}

// Adapter produces format-sized canvases from a base visual.
type Adapter struct {
	strategy Strategy
	log      logger.Logger
}

// New creates an Adapter using the auto strategy.
func New(opts ...Option) (*Adapter, error) {
	a := &Adapter{strategy: StrategyAuto, log: logger.Nop()}
	for _, opt := range opts {
		opt(a)
	}
	switch a.strategy {
	case StrategyAuto, StrategyCover, StrategyInset:
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, a.strategy)
	}
	return a, nil
}

// Adapt decodes base, remaps it onto f and returns PNG bytes of exactly f's size.
func (a *Adapter) Adapt(ctx context.Context, base []byte, f model.CreativeFormat) ([]byte, error) {
	src, _, err := codec.Decode(base)
	if err != nil {
		return nil, err
	}
	out, err := a.AdaptImage(ctx, src, f)
	if err != nil {
		return nil, err
	}
	return codec.EncodePNG(out)
}

// AdaptImage is Adapt without the codec round trip.
func (a *Adapter) AdaptImage(ctx context.Context, src image.Image, f model.CreativeFormat) (*image.RGBA, error) {
	zones, _, err := format.Geometry(f, nil)
	if err != nil {
		return nil, err
	}
	sb := src.Bounds()
	if sb.Dx() == 0 || sb.Dy() == 0 {
		return nil, fmt.Errorf("%w: zero-sized source", codec.ErrInvalidImage)
	}

	strategy := a.strategy
	if strategy == StrategyAuto {
		srcAspect := float64(sb.Dx()) / float64(sb.Dy())
		dstAspect := float64(zones.Width) / float64(zones.Height)
		if math.Abs(srcAspect-dstAspect)/dstAspect <= aspectTolerance {
			strategy = StrategyCover
		} else {
			strategy = StrategyInset
		}
	}

	a.log.Debug(ctx, "adapting visual",
		logger.String("format", string(f)),
		logger.String("strategy", string(strategy)),
		logger.Int("src_w", sb.Dx()), logger.Int("src_h", sb.Dy()))

	if strategy == StrategyCover {
		return CoverFit(src, zones.Width, zones.Height), nil
	}
	return ExtendAndInset(src, zones), nil
}

// CoverFit scales src to fill w x h and center-crops the overflow.
func CoverFit(src image.Image, w, h int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, coverCrop(src.Bounds(), w, h), draw.Src, nil)
	return dst
}

// coverCrop returns the largest centered region of sb with the w:h aspect ratio.
func coverCrop(sb image.Rectangle, w, h int) image.Rectangle {
	sw, sh := float64(sb.Dx()), float64(sb.Dy())
	target := float64(w) / float64(h)
	if sw/sh > target {
		cw := int(math.Round(sh * target))
		x0 := sb.Min.X + (sb.Dx()-cw)/2
		return image.Rect(x0, sb.Min.Y, x0+cw, sb.Max.Y)
	}
	ch := int(math.Round(sw / target))
	y0 := sb.Min.Y + (sb.Dy()-ch)/2
	return image.Rect(sb.Min.X, y0, sb.Max.X, y0+ch)
}

// ExtendAndInset builds a blurred, darkened cover-fit backdrop, places a
// contained copy of src inside the subject area and adds top and bottom
// gradients so overlay text stays legible.
func ExtendAndInset(src image.Image, zones format.SafeZoneSpec) *image.RGBA {
	w, h := zones.Width, zones.Height
	dst := blurredBackdrop(src, w, h)

	shade := image.NewUniform(color.NRGBA{A: backdropShade})
	draw.Draw(dst, dst.Bounds(), shade, image.Point{}, draw.Over)

	area := pxRect(zones.SubjectArea(), w, h)
	draw.CatmullRom.Scale(dst, containRect(src.Bounds(), area), src, src.Bounds(), draw.Over, nil)

	verticalGradient(dst, 0, int(topGradientEnd*float64(h)), topGradientAlpha, 0)
	verticalGradient(dst, int(bottomGradStart*float64(h)), h, 0, bottomGradAlpha)
	return dst
}

func blurredBackdrop(src image.Image, w, h int) *image.RGBA {
	cover := CoverFit(src, w, h)
	small := image.NewRGBA(image.Rect(0, 0, max(1, w/blurDownscale), max(1, h/blurDownscale)))
	draw.ApproxBiLinear.Scale(small, small.Bounds(), cover, cover.Bounds(), draw.Src, nil)
	out := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.BiLinear.Scale(out, out.Bounds(), small, small.Bounds(), draw.Src, nil)
	return out
}

// containRect fits sb inside area (minus a margin) preserving aspect ratio, centered.
func containRect(sb, area image.Rectangle) image.Rectangle {
	mx := int(float64(area.Dx()) * insetMargin)
	my := int(float64(area.Dy()) * insetMargin)
	inner := area.Inset(min(mx, my))
	if inner.Empty() {
		inner = area
	}
	scale := math.Min(float64(inner.Dx())/float64(sb.Dx()), float64(inner.Dy())/float64(sb.Dy()))
	cw := int(math.Round(float64(sb.Dx()) * scale))
	ch := int(math.Round(float64(sb.Dy()) * scale))
	x0 := inner.Min.X + (inner.Dx()-cw)/2
	y0 := inner.Min.Y + (inner.Dy()-ch)/2
	return image.Rect(x0, y0, x0+cw, y0+ch)
}

// verticalGradient blends black rows from alpha a0 at y0 to a1 at y1.
func verticalGradient(dst *image.RGBA, y0, y1 int, a0, a1 float64) {
	if y1 <= y0 {
		return
	}
	width := dst.Bounds().Dx()
	span := float64(y1 - y0)
	for y := y0; y < y1; y++ {
		t := float64(y-y0) / span
		alpha := a0 + (a1-a0)*t
		if alpha <= 0 {
			continue
		}
		row := image.Rect(0, y, width, y+1)
		draw.Draw(dst, row, image.NewUniform(color.NRGBA{A: uint8(alpha * 255)}), image.Point{}, draw.Over)
	}
}

func pxRect(r format.Rect, w, h int) image.Rectangle {
	fw, fh := float64(w)/100, float64(h)/100
	return image.Rect(
		int(math.Round(r.X*fw)), int(math.Round(r.Y*fh)),
		int(math.Round((r.X+r.W)*fw)), int(math.Round((r.Y+r.H)*fh)),
	)
}
