package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/okian/adcraft/internal/adapters/repository"
	"github.com/okian/adcraft/internal/domain/model"
	"github.com/okian/adcraft/pkg/logger"
	"github.com/okian/adcraft/pkg/metrics"
)

const callbackPath = "/api/v1/callbacks/creatives"

// handleDispatch is the worker body for one DispatchTask. Failures are
// recorded on the job; the returned error is only for the worker's log.
//
// The dispatch is claimed inside the store update that marks the job, so a
// second task for the same job (queued again by Resume while the first was
// still waiting) finds DispatchedAt set and drops out.
func (s *Service) handleDispatch(ctx context.Context, task DispatchTask) error {
	log := s.logger.With(logger.JobID(task.JobID))

	var skip string
	job, err := s.store.Update(ctx, task.JobID, func(j *model.CreativeJob) error {
		switch {
		case j.Status.Terminal():
			skip = "job is " + string(j.Status)
		case j.Paused:
			skip = "job is paused"
		case j.DispatchedAt != nil:
			skip = "already dispatched"
		}
		if skip != "" {
			return errNotApplicable
		}
		now := s.now()
		if j.Status == model.StatusPending {
			if err := j.MarkProcessing(now); err != nil {
				return err
			}
		}
		j.MarkDispatched(now)
		return nil
	})
	switch {
	case errors.Is(err, repository.ErrNotFound):
		log.Debug(ctx, "job deleted before dispatch")
		return nil
	case errors.Is(err, errNotApplicable):
		log.Info(ctx, "dispatch suppressed", logger.String("reason", skip))
		return nil
	case err != nil:
		return fmt.Errorf("claim dispatch %s: %w", task.JobID, err)
	}

	start := time.Now()
	payload, err := s.buildPayload(ctx, job)
	if err == nil {
		err = s.dispatcher.Dispatch(ctx, payload)
	}
	metrics.RecordStageLatency("dispatch", float64(time.Since(start).Milliseconds()))
	if err != nil {
		metrics.RecordStageError("dispatch")
		s.failDispatch(ctx, job.ID, err)
		return err
	}
	log.Info(ctx, "job dispatched", logger.String("landing", payload.LandingPageURL))
	return nil
}

func (s *Service) failDispatch(ctx context.Context, jobID string, cause error) {
	msg := "dispatch failed: " + cause.Error()
	job, err := s.store.Update(ctx, jobID, func(j *model.CreativeJob) error {
		if j.Status.Terminal() {
			return errNotApplicable
		}
		return j.Fail(msg, s.now())
	})
	if err != nil {
		if !errors.Is(err, errNotApplicable) && !errors.Is(err, repository.ErrNotFound) {
			s.logger.Error(ctx, "could not record dispatch failure", logger.JobID(jobID), logger.Error(err))
		}
		return
	}
	metrics.RecordJobFailed("dispatch", float64(job.UpdatedAt.Sub(job.CreatedAt).Milliseconds()))
	s.logger.Warn(ctx, "job failed during dispatch", logger.JobID(jobID), logger.Error(cause))
}

// buildPayload ranks the campaign, picks the winner and resolves the landing
// page and targeting.
func (s *Service) buildPayload(ctx context.Context, job *model.CreativeJob) (model.DispatchPayload, error) {
	samples, err := s.ads.CampaignAds(ctx, job.CampaignID)
	if err != nil {
		return model.DispatchPayload{}, fmt.Errorf("load campaign %s: %w", job.CampaignID, err)
	}
	winners := s.scorer.IdentifyWinningCreatives(samples, s.topN)
	if len(winners) == 0 {
		return model.DispatchPayload{}, fmt.Errorf("%w for campaign %s", ErrNoWinner, job.CampaignID)
	}

	byID := make(map[string]model.AdPerformanceSample, len(samples))
	for _, a := range samples {
		if _, ok := byID[a.ID]; !ok {
			byID[a.ID] = a
		}
	}
	top := byID[winners[0].AdID]

	landing := job.LandingPageURL
	if landing == "" {
		landing = top.LinkURL
	}
	if landing == "" {
		return model.DispatchPayload{}, fmt.Errorf("%w: request has none and winning ad %s links nowhere", ErrNoLanding, top.ID)
	}

	var targeting *model.Targeting
	if top.AdSetID != "" {
		targeting, err = s.ads.Targeting(ctx, top.AdSetID)
		if err != nil {
			// targeting only refines the brief
			s.logger.Warn(ctx, "targeting unavailable", logger.JobID(job.ID), logger.String("adSet", top.AdSetID), logger.Error(err))
			targeting = nil
		}
	}

	refs := make([]string, 0, len(winners))
	for _, w := range winners {
		a := byID[w.AdID]
		if t := joinNonEmpty("\n", a.Headline, a.BodyText); t != "" {
			refs = append(refs, t)
		}
	}

	return model.DispatchPayload{
		JobID:          job.ID,
		CampaignID:     job.CampaignID,
		AdSetID:        top.AdSetID,
		LandingPageURL: landing,
		WinningAd: &model.WinningAd{
			ID:       top.ID,
			Name:     top.Name,
			ImageURL: top.ImageURL,
			Headline: top.Headline,
			BodyText: top.BodyText,
			Metrics:  winners[0].Metrics,
		},
		Targeting:      targeting,
		Format:         job.Format,
		Count:          job.Count,
		CallbackURL:    strings.TrimRight(s.callbackBase, "/") + callbackPath,
		ReferenceTexts: refs,
	}, nil
}

func joinNonEmpty(sep string, parts ...string) string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, sep)
}
