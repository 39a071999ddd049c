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

// TextVariationGenerator writes new copy in an analyzed brand voice.
type TextVariationGenerator struct {
	model TextModel
	opts  options
}

// NewTextVariationGenerator creates a generator around a text model.
func NewTextVariationGenerator(m TextModel, opts ...Option) *TextVariationGenerator {
	return &TextVariationGenerator{model: m, opts: newOptions(opts)}
}

type variationsEnvelope struct {
	Variations []model.TextIteration `json:"variations"`
}

// Generate asks for count distinct variations. Extra variations are dropped;
// fewer than count after removing duplicates is an error.
func (g *TextVariationGenerator) Generate(ctx context.Context, analysis model.DeepAnalysisResult, count int) ([]model.TextIteration, error) {
	if g.model == nil {
		return nil, ErrNoModel
	}
	if count <= 0 {
		return nil, ErrInvalidCount
	}

	start := time.Now()
	raw, err := g.model.GenerateText(ctx, BuildVariationsPrompt(analysis, count))
	if err != nil {
		metrics.RecordStageError("variations")
		return nil, fmt.Errorf("text variations: %w", err)
	}

	var env variationsEnvelope
	if err := decodeStrict(raw, variationsSchema, &env); err != nil {
		metrics.RecordStageError("variations")
		return nil, fmt.Errorf("text variations: %w", err)
	}

	out := distinct(env.Variations)
	if len(out) < count {
		metrics.RecordStageError("variations")
		return nil, fmt.Errorf("%w: got %d, want %d", ErrTooFewVariations, len(out), count)
	}
	out = out[:count]

	metrics.RecordStageLatency("variations", float64(time.Since(start).Milliseconds()))
	g.opts.log.Debug(ctx, "text variations done",
		logger.Int("count", len(out)),
		logger.Int("returned", len(env.Variations)),
		logger.Duration("took", time.Since(start)))
	return out, nil
}

// distinct trims every field and drops variations whose headline and CTA repeat an earlier one.
func distinct(in []model.TextIteration) []model.TextIteration {
	seen := make(map[string]struct{}, len(in))
	out := make([]model.TextIteration, 0, len(in))
	for _, v := range in {
		v.PreHeadline = strings.TrimSpace(v.PreHeadline)
		v.Headline = strings.TrimSpace(v.Headline)
		v.SubHeadline = strings.TrimSpace(v.SubHeadline)
		v.CTA = strings.TrimSpace(v.CTA)
		if v.Headline == "" {
			continue
		}
		key := strings.ToLower(v.Headline + "\x00" + v.CTA)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, v)
	}
	return out
}

// BuildVariationsPrompt renders the copy prompt for count variations.
func BuildVariationsPrompt(a model.DeepAnalysisResult, count int) string {
	address := "informal \"du\" (du, dich, dein)"
	if a.Tone == model.ToneSie {
		address = "formal \"Sie\" (Sie, Ihnen, Ihr)"
	}

	var b strings.Builder
	fmt.Fprintf(&b, `You write German ad copy for paid social.
Write %d distinct ad copy variations for the brand profiled below.

Rules:
- Address the reader with the %s form throughout. Never mix forms.
- Reuse key phrases, headline patterns and CTA patterns verbatim where it reads naturally.
- preHeadline: 1 to 4 words, an eyebrow line above the headline.
- headline: at most 60 characters, concrete and benefit-led.
- subHeadline: optional, at most 90 characters.
- cta: 2 to 4 words, imperative.
- Every variation must differ in angle, not just in wording.

Return ONLY this JSON, no prose:
{"variations":[{"preHeadline":"...","headline":"...","subHeadline":"...","cta":"..."}]}
`, count, address)

	b.WriteString("\n=== BRAND PROFILE ===\n")
	line(&b, "Core message", a.CoreMessage)
	line(&b, "Value proposition", a.ValueProposition)
	line(&b, "Target audience", a.TargetAudience)
	line(&b, "Voice", a.VoiceStyle)
	list(&b, "Emotional triggers", a.EmotionalTriggers)
	list(&b, "Pain points", a.PainPoints)
	list(&b, "Solutions", a.Solutions)
	list(&b, "Key phrases", a.KeyPhrases)
	list(&b, "Headline patterns", a.HeadlinePatterns)
	list(&b, "CTA patterns", a.CTAPatterns)
	return b.String()
}

func line(b *strings.Builder, label, v string) {
	if v = strings.TrimSpace(v); v != "" {
		fmt.Fprintf(b, "%s: %s\n", label, v)
	}
}

func list(b *strings.Builder, label string, vs []string) {
	if len(vs) == 0 {
		return
	}
	fmt.Fprintf(b, "%s:\n", label)
	for _, v := range vs {
		fmt.Fprintf(b, "- %s\n", v)
	}
}
