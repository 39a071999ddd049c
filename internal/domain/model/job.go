package model

import (
	"fmt"
	"time"
)

// JobStatus is the lifecycle state of a CreativeJob.
type JobStatus string

// Statuses. Completed and failed are terminal.
const (
	StatusPending    JobStatus = "pending"
	StatusProcessing JobStatus = "processing"
	StatusCompleted  JobStatus = "completed"
	StatusFailed     JobStatus = "failed"
)

// AllStatuses lists every status, in lifecycle order.
var AllStatuses = []JobStatus{StatusPending, StatusProcessing, StatusCompleted, StatusFailed}

// Terminal reports whether no further transition is possible.
func (s JobStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// CanTransition reports whether s -> to is an edge of the lifecycle graph.
// pending is never re-entered.
func (s JobStatus) CanTransition(to JobStatus) bool {
	switch s {
	case StatusPending:
		return to == StatusProcessing || to == StatusFailed
	case StatusProcessing:
		return to == StatusCompleted || to == StatusFailed
	default:
		return false
	}
}

// GeneratedCreative is one rendered creative. Index is the variation it was built from.
type GeneratedCreative struct {
	Index    int            `json:"index"`
	Format   CreativeFormat `json:"format"`
	ImageURL string         `json:"imageUrl"`
	Texts    TextIteration  `json:"texts"`
}

// JobResult is attached to a completed job.
type JobResult struct {
	Creatives []GeneratedCreative `json:"creatives"`
}

// CreativeJob tracks one asynchronous generation request.
type CreativeJob struct {
	ID             string     `json:"jobId"`
	OwnerID        string     `json:"ownerId,omitempty"`
	CampaignID     string     `json:"campaignId"`
	LandingPageURL string     `json:"landingPageUrl,omitempty"`
	Format         string     `json:"format"`
	Count          int        `json:"count"`
	Status         JobStatus  `json:"status"`
	Paused         bool       `json:"paused"`
	Result         *JobResult `json:"result,omitempty"`
	ErrorMessage   string     `json:"errorMessage,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
	DispatchedAt   *time.Time `json:"dispatchedAt,omitempty"`
	CompletedAt    *time.Time `json:"completedAt,omitempty"`

	// Held is a callback result that arrived while the job was paused. Resume
	// applies it.
	Held *HeldOutcome `json:"held,omitempty"`
}

// HeldOutcome is a parked completion (Creatives set) or failure (ErrorMessage).
type HeldOutcome struct {
	Creatives    []GeneratedCreative `json:"creatives,omitempty"`
	ErrorMessage string              `json:"errorMessage,omitempty"`
}

// NewCreativeJob returns a pending job.
func NewCreativeJob(id, ownerID, campaignID, landingPageURL, format string, count int, now time.Time) *CreativeJob {
	return &CreativeJob{
		ID:             id,
		OwnerID:        ownerID,
		CampaignID:     campaignID,
		LandingPageURL: landingPageURL,
		Format:         format,
		Count:          count,
		Status:         StatusPending,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

func (j *CreativeJob) transition(to JobStatus, now time.Time) error {
	if j.Status.Terminal() {
		return fmt.Errorf("%w: %s is %s", ErrJobTerminal, j.ID, j.Status)
	}
	if !j.Status.CanTransition(to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, j.Status, to)
	}
	j.Status = to
	j.UpdatedAt = now
	if to.Terminal() {
		j.Paused = false
		j.Held = nil
		t := now
		j.CompletedAt = &t
	}
	return nil
}

// MarkProcessing moves a pending job to processing.
func (j *CreativeJob) MarkProcessing(now time.Time) error {
	return j.transition(StatusProcessing, now)
}

// MarkDispatched claims the job for its single dispatch. It is set before the
// target is called, so it also marks a dispatch in flight.
func (j *CreativeJob) MarkDispatched(now time.Time) {
	t := now
	j.DispatchedAt = &t
	j.UpdatedAt = now
}

// Complete attaches the creatives and moves a processing job to completed.
func (j *CreativeJob) Complete(creatives []GeneratedCreative, now time.Time) error {
	if err := j.transition(StatusCompleted, now); err != nil {
		return err
	}
	j.Result = &JobResult{Creatives: creatives}
	return nil
}

// Fail records msg and moves a pending or processing job to failed.
func (j *CreativeJob) Fail(msg string, now time.Time) error {
	if err := j.transition(StatusFailed, now); err != nil {
		return err
	}
	j.ErrorMessage = msg
	return nil
}

// Pause sets the paused flag. Pausing twice is a no-op.
func (j *CreativeJob) Pause(now time.Time) error {
	if j.Status.Terminal() {
		return fmt.Errorf("%w: %s is %s", ErrJobTerminal, j.ID, j.Status)
	}
	if !j.Paused {
		j.Paused = true
		j.UpdatedAt = now
	}
	return nil
}

// Hold parks a callback result on a paused processing job. Only the first
// result is kept; Hold reports whether h was taken.
func (j *CreativeJob) Hold(h HeldOutcome, now time.Time) bool {
	if j.Status != StatusProcessing || !j.Paused || j.Held != nil {
		return false
	}
	j.Held = &h
	j.UpdatedAt = now
	return true
}

// Resume clears the paused flag and applies a held result, which may finish
// the job. Resuming a running job is a no-op.
func (j *CreativeJob) Resume(now time.Time) error {
	if j.Status.Terminal() {
		return fmt.Errorf("%w: %s is %s", ErrJobTerminal, j.ID, j.Status)
	}
	if !j.Paused {
		return nil
	}
	j.Paused = false
	j.UpdatedAt = now
	if h := j.Held; h != nil && j.Status == StatusProcessing {
		if len(h.Creatives) > 0 {
			return j.Complete(h.Creatives, now)
		}
		return j.Fail(h.ErrorMessage, now)
	}
	return nil
}

// Clone returns a deep copy so stores never hand out shared state.
func (j *CreativeJob) Clone() *CreativeJob {
	if j == nil {
		return nil
	}
	c := *j
	if j.Result != nil {
		r := JobResult{Creatives: append([]GeneratedCreative(nil), j.Result.Creatives...)}
		c.Result = &r
	}
	if j.DispatchedAt != nil {
		t := *j.DispatchedAt
		c.DispatchedAt = &t
	}
	if j.CompletedAt != nil {
		t := *j.CompletedAt
		c.CompletedAt = &t
	}
	if j.Held != nil {
		h := HeldOutcome{
			Creatives:    append([]GeneratedCreative(nil), j.Held.Creatives...),
			ErrorMessage: j.Held.ErrorMessage,
		}
		c.Held = &h
	}
	return &c
}
