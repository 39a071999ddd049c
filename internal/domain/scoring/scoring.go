// Package scoring ranks ad performance samples into winning creatives.
package scoring

import (
	"math"
	"sort"

	"github.com/okian/adcraft/internal/domain/model"
)

// Default weights. They sum to 100 so a perfect ad scores 100.
const (
	defaultROASWeight = 40
	defaultCPLWeight  = 30
	defaultCPOCWeight = 15
	defaultCTRWeight  = 10
	defaultCPMWeight  = 5
)

// Weights are the per-metric contributions to a score.
type Weights struct {
	ROAS float64
	CPL  float64
	CPOC float64
	CTR  float64
	CPM  float64
}

// Option applies a configuration option to the Scorer.
type Option func(*Scorer)

// WithWeights replaces the default weights. Negative weights are ignored.
func WithWeights(w Weights) Option {
	return func(s *Scorer) {
		if w.ROAS >= 0 && w.CPL >= 0 && w.CPOC >= 0 && w.CTR >= 0 && w.CPM >= 0 {
			s.weights = w
		}
	}
}

// Scorer computes weighted performance scores. It holds no state between calls.
type Scorer struct {
	weights Weights
}

// NewScorer creates a scorer with the default 40/30/15/10/5 weighting.
func NewScorer(opts ...Option) *Scorer {
	s := &Scorer{weights: Weights{
		ROAS: defaultROASWeight,
		CPL:  defaultCPLWeight,
		CPOC: defaultCPOCWeight,
		CTR:  defaultCTRWeight,
		CPM:  defaultCPMWeight,
	}}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// bounds are computed over the normalization basis only.
type bounds struct {
	maxROAS, maxCTR  float64
	minCPL, maxCPL   float64
	minCPOC, maxCPOC float64
	minCPM, maxCPM   float64

	hasCPL, hasCPOC, hasCPM bool
}

// inBasis reports whether a sample may set normalization bounds.
func inBasis(s model.AdPerformanceSample) bool {
	return s.Spend > 0 && s.Leads > 0
}

func bestROAS(s model.AdPerformanceSample) float64 {
	return math.Max(s.ROASOrderVolume, s.ROASCashCollect)
}

func computeBounds(samples []model.AdPerformanceSample) bounds {
	var b bounds
	for _, s := range samples {
		if !inBasis(s) {
			continue
		}
		b.maxROAS = math.Max(b.maxROAS, bestROAS(s))
		b.maxCTR = math.Max(b.maxCTR, s.OutboundCTR)
		b.minCPL, b.maxCPL, b.hasCPL = extend(b.minCPL, b.maxCPL, b.hasCPL, s.CostPerLead)
		b.minCPOC, b.maxCPOC, b.hasCPOC = extend(b.minCPOC, b.maxCPOC, b.hasCPOC, s.CostPerOutboundClick)
		b.minCPM, b.maxCPM, b.hasCPM = extend(b.minCPM, b.maxCPM, b.hasCPM, s.CPM)
	}
	return b
}

// extend widens [lo, hi] with v. Zero means "not reported" and never sets a bound.
func extend(lo, hi float64, seen bool, v float64) (float64, float64, bool) {
	if v <= 0 {
		return lo, hi, seen
	}
	if !seen {
		return v, v, true
	}
	return math.Min(lo, v), math.Max(hi, v), true
}

// norm maps v into [0,1] against max. A zero max contributes nothing.
func norm(v, maxV float64) float64 {
	if maxV <= 0 || v <= 0 {
		return 0
	}
	return clamp01(v / maxV)
}

// invNorm rewards low values. Absent values and a degenerate range contribute nothing.
func invNorm(v, lo, hi float64, seen bool) float64 {
	if !seen || v <= 0 || hi == lo {
		return 0
	}
	return clamp01((hi - v) / (hi - lo))
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(0, math.Min(1, v))
}

// score computes the weighted score of one sample against precomputed bounds.
func (sc *Scorer) score(s model.AdPerformanceSample, b bounds) float64 {
	w := sc.weights
	return w.ROAS*norm(bestROAS(s), b.maxROAS) +
		w.CPL*invNorm(s.CostPerLead, b.minCPL, b.maxCPL, b.hasCPL) +
		w.CPOC*invNorm(s.CostPerOutboundClick, b.minCPOC, b.maxCPOC, b.hasCPOC) +
		w.CTR*norm(s.OutboundCTR, b.maxCTR) +
		w.CPM*invNorm(s.CPM, b.minCPM, b.maxCPM, b.hasCPM)
}

// IdentifyWinningCreatives scores every sample, sorts by score descending
// (ties keep input order), assigns ranks 1..K and returns at most topN.
// Samples without spend and leads are still scored but never move the bounds.
func (sc *Scorer) IdentifyWinningCreatives(samples []model.AdPerformanceSample, topN int) []model.WinningCreativeScore {
	if len(samples) == 0 || topN <= 0 {
		return []model.WinningCreativeScore{}
	}

	b := computeBounds(samples)
	out := make([]model.WinningCreativeScore, len(samples))
	for i, s := range samples {
		out[i] = model.WinningCreativeScore{
			AdID:   s.ID,
			AdName: s.Name,
			Score:  sc.score(s, b),
			Metrics: model.WinnerMetrics{
				ROASOrderVolume:      s.ROASOrderVolume,
				ROASCashCollect:      s.ROASCashCollect,
				CostPerLead:          s.CostPerLead,
				CostPerOutboundClick: s.CostPerOutboundClick,
				OutboundCTR:          s.OutboundCTR,
				CPM:                  s.CPM,
			},
		}
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })

	if topN < len(out) {
		out = out[:topN]
	}
	for i := range out {
		out[i].Rank = i + 1
	}
	return out
}

// IdentifyWinningCreatives ranks samples with the default weights.
func IdentifyWinningCreatives(samples []model.AdPerformanceSample, topN int) []model.WinningCreativeScore {
	return NewScorer().IdentifyWinningCreatives(samples, topN)
}
