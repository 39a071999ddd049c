package compositor

import (
	"context"
	"errors"
	"image"

	"github.com/okian/adcraft/pkg/logger"
)

// Backend names accepted by NewTextRenderer.
const (
	BackendRaster = "raster"
	BackendSVG    = "svg"
	BackendNone   = "none"
)

// ErrRendererUnavailable means the backend cannot draw text in this process.
var ErrRendererUnavailable = errors.New("text renderer unavailable")

// TextRenderer draws a positioned overlay onto a canvas.
type TextRenderer interface {
	Name() string
	Available() bool
	Render(ctx context.Context, dst *image.RGBA, layout Layout) error
}

// NewTextRenderer returns the requested backend when it can run here and the
// pass-through renderer otherwise. Falling back is logged, never fatal.
func NewTextRenderer(ctx context.Context, backend string, log logger.Logger, opts ...SVGOption) TextRenderer {
	if log == nil {
		log = logger.Nop()
	}

	var r TextRenderer
	var err error
	switch backend {
	case BackendRaster:
		r, err = NewRasterRenderer()
	case BackendSVG:
		r, err = NewSVGRenderer(opts...)
	case BackendNone, "":
		return Passthrough{}
	default:
		err = errors.New("unknown backend " + backend)
	}

	if err != nil || r == nil || !r.Available() {
		log.Warn(ctx, "text renderer unavailable, creatives will ship without baked text",
			logger.String("backend", backend), logger.Error(err))
		return Passthrough{}
	}
	log.Info(ctx, "text renderer ready", logger.String("backend", r.Name()))
	return r
}

// Passthrough leaves the canvas untouched.
type Passthrough struct{}

// Name implements TextRenderer.
func (Passthrough) Name() string { return BackendNone }

// Available implements TextRenderer. Pass-through never draws.
func (Passthrough) Available() bool { return false }

// Render implements TextRenderer.
func (Passthrough) Render(context.Context, *image.RGBA, Layout) error {
	return ErrRendererUnavailable
}
