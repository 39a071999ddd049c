package scoring_test

import (
	"math"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/okian/adcraft/internal/domain/model"
	scoring "github.com/okian/adcraft/internal/domain/scoring"
)

func genSample() gopter.Gen {
	return gopter.CombineGens(
		gen.AlphaString(),
		gen.Float64Range(0, 5000), // spend
		gen.Float64Range(0, 200),  // leads
		gen.Float64Range(0, 12),   // roas order volume
		gen.Float64Range(0, 12),   // roas cash collect
		gen.Float64Range(0, 150),  // cpl
		gen.Float64Range(0, 20),   // cpoc
		gen.Float64Range(0, 8),    // ctr
		gen.Float64Range(0, 60),   // cpm
	).Map(func(v []interface{}) model.AdPerformanceSample {
		return model.AdPerformanceSample{
			ID:                   v[0].(string),
			Spend:                v[1].(float64),
			Leads:                v[2].(float64),
			ROASOrderVolume:      v[3].(float64),
			ROASCashCollect:      v[4].(float64),
			CostPerLead:          v[5].(float64),
			CostPerOutboundClick: v[6].(float64),
			OutboundCTR:          v[7].(float64),
			CPM:                  v[8].(float64),
		}
	})
}

func TestWinnerProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("length is min(topN, n)", prop.ForAll(
		func(samples []model.AdPerformanceSample, topN int) bool {
			got := scoring.IdentifyWinningCreatives(samples, topN)
			want := topN
			if len(samples) < want {
				want = len(samples)
			}
			return len(got) == want
		},
		gen.SliceOf(genSample()),
		gen.IntRange(1, 20),
	))

	properties.Property("ranks are contiguous and scores non-increasing", prop.ForAll(
		func(samples []model.AdPerformanceSample, topN int) bool {
			got := scoring.IdentifyWinningCreatives(samples, topN)
			for i, w := range got {
				if w.Rank != i+1 {
					return false
				}
				if i > 0 && got[i-1].Score < w.Score {
					return false
				}
			}
			return true
		},
		gen.SliceOf(genSample()),
		gen.IntRange(1, 20),
	))

	properties.Property("scores are finite and within 0..100", prop.ForAll(
		func(samples []model.AdPerformanceSample) bool {
			for _, w := range scoring.IdentifyWinningCreatives(samples, len(samples)+1) {
				if math.IsNaN(w.Score) || math.IsInf(w.Score, 0) || w.Score < 0 || w.Score > 100+1e-9 {
					return false
				}
			}
			return true
		},
		gen.SliceOf(genSample()),
	))

	properties.Property("scoring is deterministic", prop.ForAll(
		func(samples []model.AdPerformanceSample) bool {
			a := scoring.IdentifyWinningCreatives(samples, 5)
			b := scoring.IdentifyWinningCreatives(samples, 5)
			if len(a) != len(b) {
				return false
			}
			for i := range a {
				if a[i] != b[i] {
					return false
				}
			}
			return true
		},
		gen.SliceOf(genSample()),
	))

	properties.TestingRun(t)
}
