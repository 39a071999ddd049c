package generation_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/okian/adcraft/internal/domain/generation"
	"github.com/okian/adcraft/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

// scriptedText returns a fixed reply and remembers the prompt it saw.
type scriptedText struct {
	reply  string
	err    error
	calls  int
	prompt string
}

func (s *scriptedText) GenerateText(_ context.Context, prompt string) (string, error) {
	s.calls++
	s.prompt = prompt
	return s.reply, s.err
}

type scriptedImage struct {
	img    []byte
	err    error
	calls  int
	prompt string
	ratio  string
}

func (s *scriptedImage) GenerateImage(_ context.Context, prompt, ratio string) ([]byte, error) {
	s.calls++
	s.prompt, s.ratio = prompt, ratio
	return s.img, s.err
}

const analysisJSON = `{
  "coreMessage": "Mehr Termine ohne Kaltakquise",
  "valueProposition": "Planbare Neukunden in 90 Tagen",
  "targetAudience": "Coaches und Berater",
  "tone": "du",
  "voiceStyle": "direkt, locker",
  "emotionalTriggers": ["Sicherheit", "Freiheit"],
  "painPoints": ["leerer Kalender"],
  "solutions": ["Funnel"],
  "keyPhrases": ["planbar wachsen"],
  "headlinePatterns": ["So {Ergebnis} ohne {Schmerz}"],
  "ctaPatterns": ["Jetzt Termin sichern"],
  "visualThemes": ["Laptop", "Café"],
  "colorPalette": ["#0A0A0A", "#FF6600"],
  "aestheticStyle": "clean"
}`

func TestExtractJSON(t *testing.T) {
	Convey("Given model output", t, func() {
		Convey("A fenced object is found", func() {
			got, err := generation.ExtractJSON("Klar!\n```json\n{\"a\": {\"b\": 1}}\n```\nViel Erfolg")
			So(err, ShouldBeNil)
			So(got, ShouldEqual, `{"a": {"b": 1}}`)
		})

		Convey("Braces inside strings are not counted", func() {
			got, err := generation.ExtractJSON(`{"h": "Spar {50%} \"jetzt\" }"} trailing }`)
			So(err, ShouldBeNil)
			So(got, ShouldEqual, `{"h": "Spar {50%} \"jetzt\" }"}`)
		})

		Convey("Only the first object is returned", func() {
			got, err := generation.ExtractJSON(`{"x":1} {"y":2}`)
			So(err, ShouldBeNil)
			So(got, ShouldEqual, `{"x":1}`)
		})

		Convey("An unbalanced opener is skipped for a later complete object", func() {
			got, err := generation.ExtractJSON(`{ oops {"ok":true}`)
			So(err, ShouldBeNil)
			So(got, ShouldEqual, `{"ok":true}`)
		})

		Convey("No object is an error", func() {
			_, err := generation.ExtractJSON("Entschuldigung, das kann ich nicht.")
			So(errors.Is(err, generation.ErrNoJSON), ShouldBeTrue)
			_, err = generation.ExtractJSON(`{"never": "closed"`)
			So(errors.Is(err, generation.ErrNoJSON), ShouldBeTrue)
		})
	})
}

func TestBrandAnalyzer(t *testing.T) {
	ctx := context.Background()

	Convey("Given a model that answers with fenced JSON", t, func() {
		m := &scriptedText{reply: "```json\n" + analysisJSON + "\n```"}
		a := generation.NewBrandAnalyzer(m)

		res, err := a.Analyze(ctx, "Wir helfen dir, planbar zu wachsen.", []string{"Ad eins", "  ", "Ad zwei"})

		Convey("Then the profile is decoded", func() {
			So(err, ShouldBeNil)
			So(res.Tone, ShouldEqual, model.ToneDu)
			So(res.CTAPatterns, ShouldResemble, []string{"Jetzt Termin sichern"})
			So(res.ColorPalette, ShouldHaveLength, 2)
		})

		Convey("Then the prompt asks for tone, triggers and patterns", func() {
			So(m.calls, ShouldEqual, 1)
			So(m.prompt, ShouldContainSubstring, `"tone": "du" | "sie"`)
			So(m.prompt, ShouldContainSubstring, "emotionalTriggers")
			So(m.prompt, ShouldContainSubstring, "headlinePatterns")
			So(m.prompt, ShouldContainSubstring, "ctaPatterns")
			So(m.prompt, ShouldContainSubstring, "Ad 2:\nAd zwei")
			So(m.prompt, ShouldNotContainSubstring, "Ad 3:")
		})
	})

	Convey("Given a long landing page", t, func() {
		m := &scriptedText{reply: analysisJSON}
		a := generation.NewBrandAnalyzer(m, generation.WithMaxLandingChars(20), generation.WithMaxAdTexts(1, 5))

		_, err := a.Analyze(ctx, strings.Repeat("ä", 50), []string{"abcdefghij", "second"})

		Convey("Then inputs are truncated by characters", func() {
			So(err, ShouldBeNil)
			So(m.prompt, ShouldContainSubstring, strings.Repeat("ä", 20)+"\n")
			So(m.prompt, ShouldNotContainSubstring, strings.Repeat("ä", 21))
			So(m.prompt, ShouldContainSubstring, "Ad 1:\nabcde\n")
			So(m.prompt, ShouldNotContainSubstring, "second")
		})
	})

	Convey("Given bad model output", t, func() {
		Convey("Prose without JSON fails once, without retry", func() {
			m := &scriptedText{reply: "Ich kann das leider nicht."}
			_, err := generation.NewBrandAnalyzer(m).Analyze(ctx, "text", nil)
			So(errors.Is(err, generation.ErrNoJSON), ShouldBeTrue)
			So(m.calls, ShouldEqual, 1)
		})

		Convey("An unknown tone violates the schema", func() {
			m := &scriptedText{reply: strings.Replace(analysisJSON, `"tone": "du"`, `"tone": "ihr"`, 1)}
			_, err := generation.NewBrandAnalyzer(m).Analyze(ctx, "text", nil)
			So(errors.Is(err, generation.ErrSchemaViolation), ShouldBeTrue)
		})

		Convey("A capitalized tone is accepted and lowered", func() {
			m := &scriptedText{reply: strings.Replace(analysisJSON, `"tone": "du"`, `"tone": "Sie"`, 1)}
			res, err := generation.NewBrandAnalyzer(m).Analyze(ctx, "text", nil)
			So(err, ShouldBeNil)
			So(res.Tone, ShouldEqual, model.ToneSie)
		})

		Convey("Unknown fields are rejected", func() {
			m := &scriptedText{reply: strings.Replace(analysisJSON, `"aestheticStyle": "clean"`, `"aestheticStyle": "clean", "mood": "x"`, 1)}
			_, err := generation.NewBrandAnalyzer(m).Analyze(ctx, "text", nil)
			So(errors.Is(err, generation.ErrSchemaViolation), ShouldBeTrue)
		})

		Convey("A missing required field is rejected", func() {
			m := &scriptedText{reply: `{"coreMessage": "x", "tone": "sie"}`}
			_, err := generation.NewBrandAnalyzer(m).Analyze(ctx, "text", nil)
			So(errors.Is(err, generation.ErrSchemaViolation), ShouldBeTrue)
		})

		Convey("Model errors are wrapped", func() {
			boom := errors.New("quota exceeded")
			_, err := generation.NewBrandAnalyzer(&scriptedText{err: boom}).Analyze(ctx, "text", nil)
			So(errors.Is(err, boom), ShouldBeTrue)
		})
	})

	Convey("Given nothing to analyze", t, func() {
		m := &scriptedText{reply: analysisJSON}
		_, err := generation.NewBrandAnalyzer(m).Analyze(ctx, "  ", []string{""})

		Convey("Then the model is not called", func() {
			So(errors.Is(err, generation.ErrEmptyInput), ShouldBeTrue)
			So(m.calls, ShouldEqual, 0)
		})
	})
}

func TestTextVariationGenerator(t *testing.T) {
	ctx := context.Background()
	analysis := model.DeepAnalysisResult{
		CoreMessage:      "Mehr Termine",
		Tone:             model.ToneSie,
		KeyPhrases:       []string{"planbar wachsen"},
		HeadlinePatterns: []string{"So {Ergebnis}"},
		CTAPatterns:      []string{"Jetzt anfragen"},
	}

	Convey("Given a model returning more variations than asked", t, func() {
		m := &scriptedText{reply: `{"variations":[
			{"preHeadline":"Neu","headline":"Eins","cta":"Jetzt anfragen"},
			{"preHeadline":"Neu","headline":"Zwei","subHeadline":"mehr","cta":"Jetzt anfragen"},
			{"preHeadline":"Neu","headline":"Drei","cta":"Jetzt anfragen"}]}`}

		out, err := generation.NewTextVariationGenerator(m).Generate(ctx, analysis, 2)

		Convey("Then the list is truncated in order", func() {
			So(err, ShouldBeNil)
			So(out, ShouldHaveLength, 2)
			So(out[0].Headline, ShouldEqual, "Eins")
			So(out[1].SubHeadline, ShouldEqual, "mehr")
		})

		Convey("Then the prompt fixes the formal address and reuses patterns", func() {
			So(m.prompt, ShouldContainSubstring, `formal "Sie"`)
			So(m.prompt, ShouldContainSubstring, "verbatim")
			So(m.prompt, ShouldContainSubstring, "- planbar wachsen")
			So(m.prompt, ShouldContainSubstring, "Write 2 distinct")
		})
	})

	Convey("Given fewer variations than asked", t, func() {
		m := &scriptedText{reply: `{"variations":[{"preHeadline":"","headline":"Eins","cta":"Los"}]}`}
		_, err := generation.NewTextVariationGenerator(m).Generate(ctx, analysis, 3)

		Convey("Then it is an error and the model is asked once", func() {
			So(errors.Is(err, generation.ErrTooFewVariations), ShouldBeTrue)
			So(m.calls, ShouldEqual, 1)
		})
	})

	Convey("Given duplicate variations", t, func() {
		m := &scriptedText{reply: `{"variations":[
			{"preHeadline":"A","headline":"Gleich","cta":"Los"},
			{"preHeadline":"B","headline":" gleich ","cta":"los"}]}`}
		_, err := generation.NewTextVariationGenerator(m).Generate(ctx, analysis, 2)

		Convey("Then duplicates do not count", func() {
			So(errors.Is(err, generation.ErrTooFewVariations), ShouldBeTrue)
		})
	})

	Convey("Given an invalid count", t, func() {
		m := &scriptedText{}
		_, err := generation.NewTextVariationGenerator(m).Generate(ctx, analysis, 0)
		So(errors.Is(err, generation.ErrInvalidCount), ShouldBeTrue)
		So(m.calls, ShouldEqual, 0)
	})

	Convey("Given a variation without a CTA", t, func() {
		m := &scriptedText{reply: `{"variations":[{"preHeadline":"x","headline":"y"}]}`}
		_, err := generation.NewTextVariationGenerator(m).Generate(ctx, analysis, 1)
		So(errors.Is(err, generation.ErrSchemaViolation), ShouldBeTrue)
	})
}

func TestVisualSynthesizer(t *testing.T) {
	ctx := context.Background()
	it := model.TextIteration{PreHeadline: "Neu", Headline: "Mehr Zeit für dich", CTA: "Los"}
	analysis := model.DeepAnalysisResult{VisualThemes: []string{"Natur"}, ColorPalette: []string{"#FF6600"}, AestheticStyle: "warm"}

	Convey("Given an image model", t, func() {
		m := &scriptedImage{img: []byte{0x89, 'P', 'N', 'G'}}
		img, err := generation.NewVisualSynthesizer(m).Synthesize(ctx, it, analysis)

		Convey("Then exactly one square image is requested", func() {
			So(err, ShouldBeNil)
			So(img, ShouldResemble, []byte{0x89, 'P', 'N', 'G'})
			So(m.calls, ShouldEqual, 1)
			So(m.ratio, ShouldEqual, "1:1")
		})

		Convey("Then the prompt carries the theme, palette and a no-text rule", func() {
			So(m.prompt, ShouldContainSubstring, "Mehr Zeit für dich")
			So(m.prompt, ShouldContainSubstring, "Natur")
			So(m.prompt, ShouldContainSubstring, "#FF6600")
			So(m.prompt, ShouldContainSubstring, "NO text")
			So(m.prompt, ShouldContainSubstring, "text will be placed there")
		})
	})

	Convey("Given an empty image", t, func() {
		_, err := generation.NewVisualSynthesizer(&scriptedImage{}).Synthesize(ctx, it, analysis)
		So(errors.Is(err, generation.ErrEmptyImage), ShouldBeTrue)
	})

	Convey("Given no image model", t, func() {
		_, err := generation.NewVisualSynthesizer(nil).Synthesize(ctx, it, analysis)
		So(errors.Is(err, generation.ErrNoModel), ShouldBeTrue)
	})
}
