package model_test

import (
	"errors"
	"testing"
	"time"

	model "github.com/okian/adcraft/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestJobLifecycle(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	Convey("Given a new job", t, func() {
		job := model.NewCreativeJob("job-1", "acct-1", "camp-1", "https://example.com", "feed", 3, now)

		So(job.Status, ShouldEqual, model.StatusPending)
		So(job.Paused, ShouldBeFalse)

		Convey("When it is completed straight from pending", func() {
			err := job.Complete(nil, now)

			Convey("Then the transition is rejected", func() {
				So(errors.Is(err, model.ErrInvalidTransition), ShouldBeTrue)
				So(job.Status, ShouldEqual, model.StatusPending)
			})
		})

		Convey("When it moves to processing and completes", func() {
			So(job.MarkProcessing(now.Add(time.Second)), ShouldBeNil)
			creatives := []model.GeneratedCreative{{Index: 0, Format: model.FormatFeed, ImageURL: "https://cdn/x.png"}}
			So(job.Complete(creatives, now.Add(time.Minute)), ShouldBeNil)

			Convey("Then it is terminal with a result", func() {
				So(job.Status, ShouldEqual, model.StatusCompleted)
				So(job.Result.Creatives, ShouldHaveLength, 1)
				So(*job.CompletedAt, ShouldEqual, now.Add(time.Minute))
			})

			Convey("Then a later failure is refused", func() {
				err := job.Fail("late", now.Add(2*time.Minute))
				So(errors.Is(err, model.ErrJobTerminal), ShouldBeTrue)
				So(job.Status, ShouldEqual, model.StatusCompleted)
				So(job.ErrorMessage, ShouldBeEmpty)
			})

			Convey("Then it cannot be paused", func() {
				So(errors.Is(job.Pause(now), model.ErrJobTerminal), ShouldBeTrue)
			})
		})

		Convey("When it fails from pending", func() {
			So(job.Fail("queue full", now), ShouldBeNil)

			Convey("Then the message is kept and processing is unreachable", func() {
				So(job.ErrorMessage, ShouldEqual, "queue full")
				So(errors.Is(job.MarkProcessing(now), model.ErrJobTerminal), ShouldBeTrue)
			})
		})

		Convey("When it is paused and resumed", func() {
			So(job.Pause(now), ShouldBeNil)
			So(job.Pause(now), ShouldBeNil)
			So(job.Paused, ShouldBeTrue)
			So(job.MarkProcessing(now), ShouldBeNil)

			Convey("Then the status is independent of the flag", func() {
				So(job.Status, ShouldEqual, model.StatusProcessing)
				So(job.Resume(now), ShouldBeNil)
				So(job.Paused, ShouldBeFalse)
			})

			Convey("Then reaching a terminal state clears the flag", func() {
				So(job.Fail("boom", now), ShouldBeNil)
				So(job.Paused, ShouldBeFalse)
			})

			Convey("Then a held completion waits for resume", func() {
				creatives := []model.GeneratedCreative{{ImageURL: "https://cdn/held.png"}}
				So(job.Hold(model.HeldOutcome{Creatives: creatives}, now), ShouldBeTrue)
				So(job.Hold(model.HeldOutcome{ErrorMessage: "second"}, now), ShouldBeFalse)
				So(job.Status, ShouldEqual, model.StatusProcessing)

				So(job.Resume(now.Add(time.Second)), ShouldBeNil)
				So(job.Status, ShouldEqual, model.StatusCompleted)
				So(job.Result.Creatives, ShouldResemble, creatives)
				So(job.Held, ShouldBeNil)
			})

			Convey("Then a held failure is applied on resume", func() {
				So(job.Hold(model.HeldOutcome{ErrorMessage: "render crashed"}, now), ShouldBeTrue)
				So(job.Clone().Held != job.Held, ShouldBeTrue)

				So(job.Resume(now), ShouldBeNil)
				So(job.Status, ShouldEqual, model.StatusFailed)
				So(job.ErrorMessage, ShouldEqual, "render crashed")
			})
		})

		Convey("When it is processing and not paused", func() {
			So(job.MarkProcessing(now), ShouldBeNil)

			Convey("Then nothing can be held", func() {
				So(job.Hold(model.HeldOutcome{ErrorMessage: "x"}, now), ShouldBeFalse)
				So(job.Held, ShouldBeNil)
			})
		})
	})
}

func TestStatusGraph(t *testing.T) {
	Convey("Given every pair of statuses", t, func() {
		allowed := map[[2]model.JobStatus]bool{
			{model.StatusPending, model.StatusProcessing}:   true,
			{model.StatusPending, model.StatusFailed}:       true,
			{model.StatusProcessing, model.StatusCompleted}: true,
			{model.StatusProcessing, model.StatusFailed}:    true,
		}

		Convey("Then only lifecycle edges are allowed and pending is never re-entered", func() {
			for _, from := range model.AllStatuses {
				for _, to := range model.AllStatuses {
					So(from.CanTransition(to), ShouldEqual, allowed[[2]model.JobStatus{from, to}])
				}
				So(from.CanTransition(model.StatusPending), ShouldBeFalse)
			}
		})
	})
}

func TestCloneIsDeep(t *testing.T) {
	Convey("Given a completed job", t, func() {
		now := time.Now()
		job := model.NewCreativeJob("j", "", "c", "", "all", 1, now)
		_ = job.MarkProcessing(now)
		_ = job.Complete([]model.GeneratedCreative{{ImageURL: "a"}}, now)

		clone := job.Clone()
		clone.Result.Creatives[0].ImageURL = "b"
		*clone.CompletedAt = now.Add(time.Hour)

		So(job.Result.Creatives[0].ImageURL, ShouldEqual, "a")
		So(*job.CompletedAt, ShouldEqual, now)
	})
}

func TestFormats(t *testing.T) {
	Convey("Given format names", t, func() {
		Convey("Dimensions match the placements", func() {
			w, h, ok := model.FormatFeed.Dimensions()
			So([]any{w, h, ok}, ShouldResemble, []any{1080, 1080, true})
			w, h, _ = model.FormatStory.Dimensions()
			So([]int{w, h}, ShouldResemble, []int{1080, 1920})
			w, h, _ = model.FormatReel.Dimensions()
			So([]int{w, h}, ShouldResemble, []int{1080, 1920})
		})

		Convey("all expands to every format", func() {
			got, err := model.ExpandFormats("ALL")
			So(err, ShouldBeNil)
			So(got, ShouldResemble, []model.CreativeFormat{model.FormatFeed, model.FormatStory, model.FormatReel})
		})

		Convey("unknown names are rejected", func() {
			_, err := model.ExpandFormats("banner")
			So(errors.Is(err, model.ErrUnknownFormat), ShouldBeTrue)
		})

		Convey("tone validation", func() {
			So(model.ToneDu.Valid(), ShouldBeTrue)
			So(model.Tone("ihr").Valid(), ShouldBeFalse)
		})
	})
}
