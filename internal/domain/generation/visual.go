package generation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/okian/adcraft/internal/domain/model"
	"github.com/okian/adcraft/pkg/logger"
	"github.com/okian/adcraft/pkg/metrics"
)

// BaseAspectRatio is the aspect ratio of every synthesized base visual.
const BaseAspectRatio = "1:1"

// VisualSynthesizer produces the single base visual of a job.
type VisualSynthesizer struct {
	model ImageModel
	opts  options
}

// NewVisualSynthesizer creates a synthesizer around an image model.
func NewVisualSynthesizer(m ImageModel, opts ...Option) *VisualSynthesizer {
	return &VisualSynthesizer{model: m, opts: newOptions(opts)}
}

// Synthesize requests exactly one square image for the iteration.
func (v *VisualSynthesizer) Synthesize(ctx context.Context, it model.TextIteration, a model.DeepAnalysisResult) ([]byte, error) {
	if v.model == nil {
		return nil, ErrNoModel
	}
	start := time.Now()
	img, err := v.model.GenerateImage(ctx, BuildImagePrompt(it, a), BaseAspectRatio)
	if err != nil {
		metrics.RecordStageError("visual")
		return nil, fmt.Errorf("visual synthesis: %w", err)
	}
	if len(img) == 0 {
		metrics.RecordStageError("visual")
		return nil, ErrEmptyImage
	}
	metrics.RecordStageLatency("visual", float64(time.Since(start).Milliseconds()))
	v.opts.log.Debug(ctx, "base visual ready", logger.Int("bytes", len(img)), logger.Duration("took", time.Since(start)))
	return img, nil
}

// BuildImagePrompt renders the image prompt. Text is added later by the
// compositor, so the model is told to leave a clean area for it.
func BuildImagePrompt(it model.TextIteration, a model.DeepAnalysisResult) string {
	var b strings.Builder
	b.WriteString("Create one square (1:1) photographic advertising visual for paid social.\n")
	if it.Headline != "" {
		fmt.Fprintf(&b, "The image must visually express this message: %q.\n", it.Headline)
	}
	if a.CoreMessage != "" {
		fmt.Fprintf(&b, "Brand message: %s.\n", a.CoreMessage)
	}
	if a.TargetAudience != "" {
		fmt.Fprintf(&b, "Audience: %s.\n", a.TargetAudience)
	}
	if len(a.VisualThemes) > 0 {
		fmt.Fprintf(&b, "Visual themes: %s.\n", strings.Join(a.VisualThemes, ", "))
	}
	if len(a.ColorPalette) > 0 {
		fmt.Fprintf(&b, "Use the brand colors %s as accents.\n", strings.Join(a.ColorPalette, ", "))
	}
	if a.AestheticStyle != "" {
		fmt.Fprintf(&b, "Aesthetic: %s.\n", a.AestheticStyle)
	}
	b.WriteString(`
Hard rules:
- NO text, letters, numbers, logos, watermarks or UI elements anywhere in the image.
- Keep the main subject in the lower half of the frame.
- Leave the upper half calm and uncluttered with low detail: text will be placed there.
- Natural lighting, sharp focus on the subject, high resolution.
`)
	return b.String()
}
