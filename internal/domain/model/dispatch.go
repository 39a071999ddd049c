package model

// WinningAd is the reference ad sent to the automation target.
type WinningAd struct {
	ID       string        `json:"id"`
	Name     string        `json:"name"`
	ImageURL string        `json:"imageUrl"`
	Headline string        `json:"headline,omitempty"`
	BodyText string        `json:"bodyText,omitempty"`
	Metrics  WinnerMetrics `json:"metrics"`
}

// DispatchPayload is the body POSTed to the automation target.
// WinningAd and Targeting are encoded as null when unknown.
type DispatchPayload struct {
	JobID          string     `json:"jobId"`
	CampaignID     string     `json:"campaignId"`
	AdSetID        string     `json:"adSetId,omitempty"`
	LandingPageURL string     `json:"landingPageUrl"`
	WinningAd      *WinningAd `json:"winningAd"`
	Targeting      *Targeting `json:"targeting"`
	Format         string     `json:"format"`
	Count          int        `json:"count"`
	CallbackURL    string     `json:"callbackUrl"`
	// ReferenceTexts are copy samples of the top ranked ads, best first.
	ReferenceTexts []string `json:"referenceTexts,omitempty"`
}

// CallbackOutcome reports what a completion, failure or timeout did to a job.
type CallbackOutcome string

// Callback outcomes.
const (
	// OutcomeApplied means the job transitioned.
	OutcomeApplied CallbackOutcome = "applied"
	// OutcomeIgnored means the job is no longer processing or is gone.
	OutcomeIgnored CallbackOutcome = "ignored"
	// OutcomeHeld means the job is paused; the result applies on resume.
	OutcomeHeld CallbackOutcome = "held"
	// OutcomeDuplicate means the delivery id was already seen.
	OutcomeDuplicate CallbackOutcome = "duplicate"
)
