package pipeline_test

import (
	"context"
	"errors"
	"image"
	"image/color"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/okian/adcraft/internal/adapters/assets"
	"github.com/okian/adcraft/internal/domain/model"
	"github.com/okian/adcraft/internal/pipeline"
	"github.com/okian/adcraft/internal/render/adapter"
	"github.com/okian/adcraft/internal/render/codec"
	"github.com/okian/adcraft/internal/render/compositor"
	"github.com/okian/adcraft/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

type fakeLanding struct {
	text string
	err  error
}

func (f fakeLanding) Fetch(context.Context, string) (string, error) { return f.text, f.err }

type fakeAnalyzer struct {
	mu      sync.Mutex
	landing string
	refs    []string
}

func (a *fakeAnalyzer) Analyze(_ context.Context, landing string, refs []string) (model.DeepAnalysisResult, error) {
	a.mu.Lock()
	a.landing, a.refs = landing, refs
	a.mu.Unlock()
	return model.DeepAnalysisResult{CoreMessage: "Mehr Leads", Tone: model.ToneDu, ColorPalette: []string{"#FF6600"}}, nil
}

type fakeVariations struct{ err error }

func (v fakeVariations) Generate(_ context.Context, _ model.DeepAnalysisResult, count int) ([]model.TextIteration, error) {
	if v.err != nil {
		return nil, v.err
	}
	out := make([]model.TextIteration, count)
	for i := range out {
		out[i] = model.TextIteration{PreHeadline: "Neu", Headline: "Headline " + string(rune('A'+i)), CTA: "Los"}
	}
	return out, nil
}

type fakeVisual struct{ calls atomic.Int32 }

func (v *fakeVisual) Synthesize(context.Context, model.TextIteration, model.DeepAnalysisResult) ([]byte, error) {
	v.calls.Add(1)
	img := image.NewRGBA(image.Rect(0, 0, 64, 64))
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 4), G: 80, B: uint8(y * 4), A: 255})
		}
	}
	return codec.EncodePNG(img)
}

// countingCompositor tracks how many compositions run at once.
type countingCompositor struct {
	inner    *compositor.Compositor
	inFlight atomic.Int32
	peak     atomic.Int32
}

func (c *countingCompositor) Compose(ctx context.Context, base []byte, f model.CreativeFormat, ov compositor.Overlay, palette []string) ([]byte, error) {
	n := c.inFlight.Add(1)
	defer c.inFlight.Add(-1)
	for {
		p := c.peak.Load()
		if n <= p || c.peak.CompareAndSwap(p, n) {
			break
		}
	}
	time.Sleep(10 * time.Millisecond)
	return c.inner.Compose(ctx, base, f, ov, palette)
}

type reporter struct {
	mu        sync.Mutex
	completed map[string][]model.GeneratedCreative
	failed    map[string]string
	delivery  string
}

func newReporter() *reporter {
	return &reporter{completed: map[string][]model.GeneratedCreative{}, failed: map[string]string{}}
}

func (r *reporter) CompleteJob(_ context.Context, jobID string, c []model.GeneratedCreative, deliveryID string) (model.CallbackOutcome, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.completed[jobID] = c
	r.delivery = deliveryID
	return model.OutcomeApplied, nil
}

func (r *reporter) FailJob(_ context.Context, jobID, msg, deliveryID string) (model.CallbackOutcome, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failed[jobID] = msg
	r.delivery = deliveryID
	return model.OutcomeApplied, nil
}

func (r *reporter) done(jobID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, c := r.completed[jobID]
	_, f := r.failed[jobID]
	return c || f
}

type harness struct {
	stages   pipeline.Stages
	analyzer *fakeAnalyzer
	visual   *fakeVisual
	comp     *countingCompositor
	store    *assets.MemoryStore
}

func newHarness() *harness {
	ad, err := adapter.New()
	if err != nil {
		panic(err)
	}
	h := &harness{
		analyzer: &fakeAnalyzer{},
		visual:   &fakeVisual{},
		comp:     &countingCompositor{inner: compositor.New()},
		store:    assets.NewMemoryStore("http://assets.test/"),
	}
	h.stages = pipeline.Stages{
		Landing:    fakeLanding{text: "Landing copy"},
		Analyzer:   h.analyzer,
		Variations: fakeVariations{},
		Visual:     h.visual,
		Adapter:    ad,
		Compositor: h.comp,
		Assets:     h.store,
	}
	return h
}

func payload(format string, count int) model.DispatchPayload {
	return model.DispatchPayload{
		JobID:          "job-1",
		CampaignID:     "c-1",
		LandingPageURL: "https://example.com/lp",
		WinningAd:      &model.WinningAd{ID: "best", Headline: "Mehr Leads", BodyText: "Jetzt starten"},
		Format:         format,
		Count:          count,
		ReferenceTexts: []string{"Mehr Leads\nJetzt starten", "Zweite Anzeige"},
	}
}

func TestRun(t *testing.T) {
	_ = logger.Init()
	ctx := context.Background()

	Convey("Given a pipeline with concurrency two", t, func() {
		h := newHarness()
		p, err := pipeline.New(h.stages, pipeline.WithConcurrency(2), pipeline.WithLogger(logger.Nop()))
		So(err, ShouldBeNil)

		Convey("When two variations are rendered for all formats", func() {
			creatives, err := p.Run(ctx, payload("all", 2))
			So(err, ShouldBeNil)

			Convey("Then every variation exists in every format", func() {
				So(creatives, ShouldHaveLength, 6)
				seen := map[string]bool{}
				for _, c := range creatives {
					seen[string(c.Format)+c.Texts.Headline] = true
					So(c.ImageURL, ShouldStartWith, "http://assets.test/job-1/")
				}
				So(seen, ShouldHaveLength, 6)
				So(creatives[0].Index, ShouldEqual, 0)
				So(creatives[5].Index, ShouldEqual, 1)
			})

			Convey("Then only one base visual was requested", func() {
				So(h.visual.calls.Load(), ShouldEqual, 1)
			})

			Convey("Then the render fan-out respected the limit", func() {
				So(h.comp.peak.Load(), ShouldBeLessThanOrEqualTo, 2)
			})

			Convey("Then uploaded assets have the format's exact size", func() {
				So(h.store.Len(), ShouldEqual, 6)
				data, ctype, err := h.store.Get(assets.CreativeKey("job-1", 1, "story", "png"))
				So(err, ShouldBeNil)
				So(ctype, ShouldEqual, "image/png")
				img, _, err := codec.Decode(data)
				So(err, ShouldBeNil)
				So(img.Bounds(), ShouldResemble, image.Rect(0, 0, 1080, 1920))
			})

			Convey("Then the analyzer saw landing copy and deduplicated references", func() {
				So(h.analyzer.landing, ShouldEqual, "Landing copy")
				So(h.analyzer.refs, ShouldResemble, []string{"Mehr Leads\nJetzt starten", "Zweite Anzeige"})
			})
		})

		Convey("When the landing page cannot be fetched", func() {
			h.stages.Landing = fakeLanding{err: errors.New("404")}
			p, _ := pipeline.New(h.stages, pipeline.WithLogger(logger.Nop()))
			creatives, err := p.Run(ctx, payload("feed", 1))

			Convey("Then reference copy alone carries the run", func() {
				So(err, ShouldBeNil)
				So(creatives, ShouldHaveLength, 1)
				So(h.analyzer.landing, ShouldBeEmpty)
			})
		})

		Convey("When the variation stage fails", func() {
			h.stages.Variations = fakeVariations{err: errors.New("too few variations")}
			p, _ := pipeline.New(h.stages, pipeline.WithLogger(logger.Nop()))
			_, err := p.Run(ctx, payload("feed", 3))

			Convey("Then the error surfaces and nothing is uploaded", func() {
				So(err, ShouldNotBeNil)
				So(err.Error(), ShouldContainSubstring, "too few variations")
				So(h.store.Len(), ShouldEqual, 0)
			})
		})

		Convey("When the format is unknown", func() {
			_, err := p.Run(ctx, payload("banner", 1))
			So(errors.Is(err, model.ErrUnknownFormat), ShouldBeTrue)
		})
	})
}

func TestDispatch(t *testing.T) {
	ctx := context.Background()

	Convey("Given a started pipeline with a reporter", t, func() {
		h := newHarness()
		p, err := pipeline.New(h.stages, pipeline.WithLogger(logger.Nop()), pipeline.WithWorkers(1))
		So(err, ShouldBeNil)

		Convey("Then dispatch without a reporter is refused", func() {
			So(errors.Is(p.Dispatch(ctx, payload("feed", 1)), pipeline.ErrNotAttached), ShouldBeTrue)
		})

		r := newReporter()
		p.Attach(r)
		p.Start(ctx)
		defer func() { _ = p.Shutdown(ctx) }()

		Convey("When a job is dispatched", func() {
			So(p.Dispatch(ctx, payload("reel", 2)), ShouldBeNil)

			Convey("Then the completion is reported with a local delivery id", func() {
				deadline := time.Now().Add(5 * time.Second)
				for !r.done("job-1") && time.Now().Before(deadline) {
					time.Sleep(10 * time.Millisecond)
				}
				r.mu.Lock()
				defer r.mu.Unlock()
				So(r.completed["job-1"], ShouldHaveLength, 2)
				So(r.delivery, ShouldEqual, "local-job-1")
			})
		})
	})

	Convey("Given a pipeline whose generation fails", t, func() {
		h := newHarness()
		h.stages.Variations = fakeVariations{err: errors.New("model said no")}
		p, _ := pipeline.New(h.stages, pipeline.WithLogger(logger.Nop()))
		r := newReporter()
		p.Attach(r)
		p.Start(ctx)
		defer func() { _ = p.Shutdown(ctx) }()

		So(p.Dispatch(ctx, payload("feed", 1)), ShouldBeNil)

		Convey("Then the failure is reported", func() {
			deadline := time.Now().Add(5 * time.Second)
			for !r.done("job-1") && time.Now().Before(deadline) {
				time.Sleep(10 * time.Millisecond)
			}
			r.mu.Lock()
			defer r.mu.Unlock()
			So(r.failed["job-1"], ShouldContainSubstring, "model said no")
		})
	})
}

func TestNewValidatesStages(t *testing.T) {
	Convey("Given stages without an analyzer", t, func() {
		_, err := pipeline.New(pipeline.Stages{})
		So(err, ShouldNotBeNil)
		So(err.Error(), ShouldContainSubstring, "analyzer")
	})
}
