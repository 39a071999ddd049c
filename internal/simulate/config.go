// Package simulate drives a running adcraft service end to end: it creates
// jobs, optionally plays the automation target by posting completion
// callbacks, and polls until every job is terminal.
package simulate

import (
	"time"

	"github.com/okian/adcraft/internal/domain/model"
)

// Config holds configuration for a simulation run.
type Config struct {
	BaseURL        string        // Base URL of the service
	AccountID      string        // Sent as X-Account-ID
	CampaignID     string        // Campaign whose winners seed the jobs
	LandingPageURL string        // Optional; the winner's link is used when empty
	Format         string        // feed, story, reel or all
	Count          int           // Variations per job
	Jobs           int           // Number of jobs to create
	Workers        int           // Concurrent requests
	PlayAutomation bool          // Post completion callbacks instead of waiting for the real target
	CallbackToken  string        // Sent as X-Callback-Token when playing automation
	Timeout        time.Duration // Per request timeout
	PollInterval   time.Duration // Delay between job polls
	Verbose        bool          // Log every job transition
}

// Stats holds run statistics.
type Stats struct {
	JobsCreated   int
	JobsRejected  int
	CallbacksSent int
	JobsCompleted int
	JobsFailed    int
	JobsPending   int
	StartTime     time.Time
	EndTime       time.Time
	Duration      time.Duration
}

// JobView is the subset of a job the simulator reads back.
type JobView struct {
	JobID        string          `json:"jobId"`
	Status       model.JobStatus `json:"status"`
	Paused       bool            `json:"paused"`
	ErrorMessage string          `json:"errorMessage,omitempty"`
	Result       *struct {
		Creatives []model.GeneratedCreative `json:"creatives"`
	} `json:"result,omitempty"`
}

type createJobRequest struct {
	CampaignID     string `json:"campaignId"`
	LandingPageURL string `json:"landingPageUrl,omitempty"`
	Format         string `json:"format"`
	Count          int    `json:"count"`
}

type createJobResponse struct {
	JobID  string `json:"jobId"`
	Status string `json:"status"`
}

type creativeItem struct {
	URL      string `json:"url"`
	Format   string `json:"format"`
	Headline string `json:"headline,omitempty"`
	Eyebrow  string `json:"eyebrow,omitempty"`
	CTA      string `json:"cta,omitempty"`
	Index    int    `json:"index"`
}

type creativesCallback struct {
	JobID      string         `json:"jobId"`
	Creatives  []creativeItem `json:"creatives"`
	DeliveryID string         `json:"deliveryId"`
}

type callbackAck struct {
	JobID  string `json:"jobId"`
	Status string `json:"status"`
}
