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

// BrandAnalyzer derives the brand and messaging profile of a campaign.
type BrandAnalyzer struct {
	model TextModel
	opts  options
}

// NewBrandAnalyzer creates an analyzer around a text model.
func NewBrandAnalyzer(m TextModel, opts ...Option) *BrandAnalyzer {
	return &BrandAnalyzer{model: m, opts: newOptions(opts)}
}

// Analyze runs one structured prompt over the landing page text and the
// reference ad texts. A response without valid JSON is an error; it is not retried.
func (a *BrandAnalyzer) Analyze(ctx context.Context, landingText string, adTexts []string) (model.DeepAnalysisResult, error) {
	if a.model == nil {
		return model.DeepAnalysisResult{}, ErrNoModel
	}
	landingText = strings.TrimSpace(landingText)
	ads := a.selectAdTexts(adTexts)
	if landingText == "" && len(ads) == 0 {
		return model.DeepAnalysisResult{}, ErrEmptyInput
	}

	start := time.Now()
	prompt := BuildAnalysisPrompt(truncateRunes(landingText, a.opts.maxLandingChars), ads)
	raw, err := a.model.GenerateText(ctx, prompt)
	if err != nil {
		metrics.RecordStageError("analyze")
		return model.DeepAnalysisResult{}, fmt.Errorf("brand analysis: %w", err)
	}

	var res model.DeepAnalysisResult
	if err := decodeStrict(raw, analysisSchema, &res); err != nil {
		metrics.RecordStageError("analyze")
		return model.DeepAnalysisResult{}, fmt.Errorf("brand analysis: %w", err)
	}
	// the schema admits any letter case
	res.Tone = model.Tone(strings.ToLower(string(res.Tone)))

	metrics.RecordStageLatency("analyze", float64(time.Since(start).Milliseconds()))
	a.opts.log.Debug(ctx, "brand analysis done",
		logger.String("tone", string(res.Tone)),
		logger.Int("palette", len(res.ColorPalette)),
		logger.Duration("took", time.Since(start)))
	return res, nil
}

func (a *BrandAnalyzer) selectAdTexts(adTexts []string) []string {
	out := make([]string, 0, min(len(adTexts), a.opts.maxAdTexts))
	for _, t := range adTexts {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		out = append(out, truncateRunes(t, a.opts.maxAdTextChars))
		if len(out) == a.opts.maxAdTexts {
			break
		}
	}
	return out
}

// BuildAnalysisPrompt renders the brand analysis prompt.
func BuildAnalysisPrompt(landingText string, adTexts []string) string {
	var b strings.Builder
	b.WriteString(`You are a senior performance-marketing strategist for the German-speaking market.
Analyze the landing page and the best performing ads below and describe the brand's voice.

Return ONLY one JSON object, no prose, with exactly these keys:
{
  "coreMessage": string,
  "valueProposition": string,
  "targetAudience": string,
  "tone": "du" | "sie",
  "voiceStyle": string,
  "emotionalTriggers": [string],
  "painPoints": [string],
  "solutions": [string],
  "keyPhrases": [string],
  "headlinePatterns": [string],
  "ctaPatterns": [string],
  "visualThemes": [string],
  "colorPalette": [hex color like "#1A2B3C"],
  "aestheticStyle": string
}

Rules:
- tone: "du" if the copy addresses the reader informally, "sie" if formally. Decide from the text, do not guess.
- emotionalTriggers: the emotions the copy leans on (e.g. fear of missing out, status, relief).
- headlinePatterns: reusable headline structures observed in the copy, with placeholders where useful.
- ctaPatterns: the calls to action as used, verbatim where possible.
- keyPhrases: short phrases worth reusing verbatim.
- colorPalette: the brand colors, most prominent first.
- Write all descriptive values in German.
`)
	b.WriteString("\n=== LANDING PAGE ===\n")
	if landingText == "" {
		b.WriteString("(not available)\n")
	} else {
		b.WriteString(landingText)
		b.WriteString("\n")
	}
	b.WriteString("\n=== WINNING ADS ===\n")
	if len(adTexts) == 0 {
		b.WriteString("(none)\n")
	}
	for i, t := range adTexts {
		fmt.Fprintf(&b, "Ad %d:\n%s\n\n", i+1, t)
	}
	return b.String()
}
