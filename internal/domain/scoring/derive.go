package scoring

import "github.com/okian/adcraft/internal/domain/model"

// Derive turns raw platform counters into a scoring sample.
// Any ratio with a zero divisor is reported as 0.
func Derive(raw model.RawAdStats) model.AdPerformanceSample {
	return model.AdPerformanceSample{
		ID:                   raw.ID,
		Name:                 raw.Name,
		AdSetID:              raw.AdSetID,
		ROASOrderVolume:      ratio(raw.OrderVolumeValue, raw.Spend),
		ROASCashCollect:      ratio(raw.CashCollectedValue, raw.Spend),
		CostPerLead:          CostPerLead(raw.Spend, raw.Leads),
		CostPerOutboundClick: ratio(raw.Spend, raw.OutboundClicks),
		OutboundCTR:          OutboundCTR(raw.OutboundClicks, raw.Impressions),
		CPM:                  ratio(raw.Spend, raw.Impressions) * 1000,
		Spend:                raw.Spend,
		Leads:                raw.Leads,
		Impressions:          raw.Impressions,
		OutboundClicks:       raw.OutboundClicks,
		ConversionRate:       ConversionRate(raw.Leads, raw.OutboundClicks),
		ImageURL:             raw.ImageURL,
		Headline:             raw.Headline,
		BodyText:             raw.BodyText,
		LinkURL:              raw.LinkURL,
	}
}

// CostPerLead is spend / leads.
func CostPerLead(spend, leads float64) float64 { return ratio(spend, leads) }

// OutboundCTR is outbound clicks per impression, in percent.
func OutboundCTR(clicks, impressions float64) float64 { return ratio(clicks, impressions) * 100 }

// ConversionRate is leads per outbound click, in percent.
func ConversionRate(leads, clicks float64) float64 { return ratio(leads, clicks) * 100 }

func ratio(num, den float64) float64 {
	if den <= 0 {
		return 0
	}
	return num / den
}
