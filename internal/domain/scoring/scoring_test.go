package scoring_test

import (
	"math"
	"testing"

	"github.com/okian/adcraft/internal/domain/model"
	scoring "github.com/okian/adcraft/internal/domain/scoring"
	. "github.com/smartystreets/goconvey/convey"
)

func sample(id string, spend, leads, roas, cpl, cpoc, ctr, cpm float64) model.AdPerformanceSample {
	return model.AdPerformanceSample{
		ID: id, Name: "ad " + id,
		Spend: spend, Leads: leads,
		ROASOrderVolume: roas, CostPerLead: cpl, CostPerOutboundClick: cpoc,
		OutboundCTR: ctr, CPM: cpm,
	}
}

func TestIdentifyWinningCreatives(t *testing.T) {
	Convey("Given a scorer with default weights", t, func() {
		scorer := scoring.NewScorer()

		Convey("When the input is empty", func() {
			Convey("Then the result is empty, not nil", func() {
				got := scorer.IdentifyWinningCreatives(nil, 5)
				So(got, ShouldNotBeNil)
				So(got, ShouldBeEmpty)
			})
		})

		Convey("When ranking a best, a worst and an unspent ad", func() {
			best := sample("a", 1000, 50, 3, 20, 5, 2, 10)
			worst := sample("b", 500, 10, 1.5, 50, 10, 1, 20)
			unspent := sample("c", 0, 0, 10, 0, 0, 4, 0)

			got := scorer.IdentifyWinningCreatives([]model.AdPerformanceSample{worst, unspent, best}, 10)

			Convey("Then the best ad takes every term", func() {
				So(got, ShouldHaveLength, 3)
				So(got[0].AdID, ShouldEqual, "a")
				So(got[0].Score, ShouldAlmostEqual, 100, 1e-9)
				So(got[0].Rank, ShouldEqual, 1)
			})

			Convey("Then the unspent ad is scored but cannot move the bounds", func() {
				So(got[1].AdID, ShouldEqual, "c")
				// ROAS and CTR clamp at the basis maximum; absent costs contribute nothing.
				So(got[1].Score, ShouldAlmostEqual, 50, 1e-9)
			})

			Convey("Then the worst ad only keeps its positive terms", func() {
				So(got[2].AdID, ShouldEqual, "b")
				So(got[2].Score, ShouldAlmostEqual, 25, 1e-9)
				So(got[2].Rank, ShouldEqual, 3)
			})

			Convey("Then the metrics are carried through", func() {
				So(got[0].Metrics.CostPerLead, ShouldEqual, 20)
				So(got[0].AdName, ShouldEqual, "ad a")
			})
		})

		Convey("When the inverse metrics have no spread", func() {
			only := sample("x", 100, 5, 2, 20, 3, 1.5, 8)
			got := scorer.IdentifyWinningCreatives([]model.AdPerformanceSample{only}, 1)

			Convey("Then min==max contributes zero instead of NaN", func() {
				So(math.IsNaN(got[0].Score), ShouldBeFalse)
				So(got[0].Score, ShouldAlmostEqual, 50, 1e-9)
			})
		})

		Convey("When no ad qualifies for the basis", func() {
			got := scorer.IdentifyWinningCreatives([]model.AdPerformanceSample{
				sample("p", 0, 0, 4, 0, 0, 1, 0),
				sample("q", 10, 0, 2, 0, 0, 1, 0),
			}, 5)

			Convey("Then every score is zero and input order is kept", func() {
				So(got[0].AdID, ShouldEqual, "p")
				So(got[1].AdID, ShouldEqual, "q")
				So(got[0].Score, ShouldEqual, 0)
				So(got[1].Rank, ShouldEqual, 2)
			})
		})

		Convey("When topN is smaller than the input", func() {
			in := []model.AdPerformanceSample{
				sample("1", 100, 5, 1, 20, 3, 1, 8),
				sample("2", 100, 5, 2, 20, 3, 1, 8),
				sample("3", 100, 5, 3, 20, 3, 1, 8),
			}
			got := scorer.IdentifyWinningCreatives(in, 2)

			Convey("Then the list is truncated after ranking", func() {
				So(got, ShouldHaveLength, 2)
				So(got[0].AdID, ShouldEqual, "3")
				So(got[1].AdID, ShouldEqual, "2")
			})
		})

		Convey("When cash-collected ROAS beats order-volume ROAS", func() {
			a := sample("ov", 100, 5, 2, 20, 3, 1, 8)
			b := sample("cc", 100, 5, 0, 20, 3, 1, 8)
			b.ROASCashCollect = 4
			got := scorer.IdentifyWinningCreatives([]model.AdPerformanceSample{a, b}, 2)

			Convey("Then the larger of the two is used", func() {
				So(got[0].AdID, ShouldEqual, "cc")
			})
		})
	})

	Convey("Given custom weights", t, func() {
		scorer := scoring.NewScorer(scoring.WithWeights(scoring.Weights{CTR: 100}))
		got := scorer.IdentifyWinningCreatives([]model.AdPerformanceSample{
			sample("lo", 100, 5, 9, 10, 1, 1, 1),
			sample("hi", 100, 5, 1, 90, 9, 3, 9),
		}, 2)

		Convey("Then only the weighted metric matters", func() {
			So(got[0].AdID, ShouldEqual, "hi")
			So(got[0].Score, ShouldAlmostEqual, 100, 1e-9)
		})
	})
}

func TestDerive(t *testing.T) {
	Convey("Given raw platform counters", t, func() {
		raw := model.RawAdStats{
			ID: "ad-1", Spend: 1000, Leads: 50, Impressions: 10000, OutboundClicks: 200,
			OrderVolumeValue: 4000, CashCollectedValue: 2500,
		}
		s := scoring.Derive(raw)

		Convey("Then the ratios match the reference figures", func() {
			So(s.CostPerLead, ShouldEqual, 20)
			So(s.OutboundCTR, ShouldAlmostEqual, 2, 1e-9)
			So(s.ConversionRate, ShouldEqual, 25)
			So(s.CostPerOutboundClick, ShouldEqual, 5)
			So(s.CPM, ShouldAlmostEqual, 100, 1e-9)
			So(s.ROASOrderVolume, ShouldEqual, 4)
			So(s.ROASCashCollect, ShouldEqual, 2.5)
		})

		Convey("Then zero divisors yield zero", func() {
			z := scoring.Derive(model.RawAdStats{Spend: 10})
			So(z.CostPerLead, ShouldEqual, 0)
			So(z.OutboundCTR, ShouldEqual, 0)
			So(z.ConversionRate, ShouldEqual, 0)
			So(z.CPM, ShouldEqual, 0)
		})
	})
}
