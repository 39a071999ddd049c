// Package model contains domain models passed between layers.
package model

// AdPerformanceSample is one ad's performance snapshot as fed to the scorer.
// Ratios are already derived; zero means "not reported".
type AdPerformanceSample struct {
	ID                   string  `json:"id"`
	Name                 string  `json:"name"`
	AdSetID              string  `json:"adSetId,omitempty"`
	ROASOrderVolume      float64 `json:"roasOrderVolume"`
	ROASCashCollect      float64 `json:"roasCashCollect"`
	CostPerLead          float64 `json:"costPerLead"`
	CostPerOutboundClick float64 `json:"costPerOutboundClick"`
	OutboundCTR          float64 `json:"outboundCtr"` // percent
	CPM                  float64 `json:"cpm"`
	Spend                float64 `json:"spend"`
	Leads                float64 `json:"leads"`
	Impressions          float64 `json:"impressions"`
	OutboundClicks       float64 `json:"outboundClicks,omitempty"`
	ConversionRate       float64 `json:"conversionRate,omitempty"` // percent

	// Reference creative fields, filled by the platform adapter when known.
	ImageURL string `json:"imageUrl,omitempty"`
	Headline string `json:"headline,omitempty"`
	BodyText string `json:"bodyText,omitempty"`
	LinkURL  string `json:"linkUrl,omitempty"`
}

// RawAdStats holds the counters an ads platform reports before any ratio is derived.
type RawAdStats struct {
	ID                 string
	Name               string
	AdSetID            string
	Spend              float64
	Leads              float64
	Impressions        float64
	OutboundClicks     float64
	OrderVolumeValue   float64
	CashCollectedValue float64
	ImageURL           string
	Headline           string
	BodyText           string
	LinkURL            string
}

// WinnerMetrics are the six metrics reported next to a winner.
type WinnerMetrics struct {
	ROASOrderVolume      float64 `json:"roasOrderVolume"`
	ROASCashCollect      float64 `json:"roasCashCollect"`
	CostPerLead          float64 `json:"costPerLead"`
	CostPerOutboundClick float64 `json:"costPerOutboundClick"`
	OutboundCTR          float64 `json:"outboundCtr"`
	CPM                  float64 `json:"cpm"`
}

// WinningCreativeScore is one ranked ad. Rank starts at 1.
type WinningCreativeScore struct {
	AdID    string        `json:"adId"`
	AdName  string        `json:"adName"`
	Score   float64       `json:"score"`
	Rank    int           `json:"rank"`
	Metrics WinnerMetrics `json:"metrics"`
}

// Targeting is the audience definition of the ad set a winner ran in.
type Targeting struct {
	AgeMin       int            `json:"ageMin"`
	AgeMax       int            `json:"ageMax"`
	Genders      []int          `json:"genders"`
	GeoLocations map[string]any `json:"geoLocations"`
	Interests    []Interest     `json:"interests"`
	Locales      []int          `json:"locales"`
}

// Interest is a platform interest id/name pair.
type Interest struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// CampaignAds is everything the dispatcher needs from the ads platform for one campaign.
type CampaignAds struct {
	CampaignID string                `json:"campaignId"`
	AdSetID    string                `json:"adSetId,omitempty"`
	Ads        []AdPerformanceSample `json:"ads"`
	Targeting  *Targeting            `json:"targeting,omitempty"`
}
