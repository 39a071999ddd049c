package api

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/okian/adcraft/internal/domain/model"
)

// creativeItem is one creative reported by the automation target.
type creativeItem struct {
	URL         string `json:"url"`
	Format      string `json:"format"`
	Headline    string `json:"headline,omitempty"`
	Eyebrow     string `json:"eyebrow,omitempty"`
	CTA         string `json:"cta,omitempty"`
	SubHeadline string `json:"subHeadline,omitempty"`
	Index       *int   `json:"index,omitempty"`
}

type creativesCallback struct {
	JobID      string         `json:"jobId"`
	Creatives  []creativeItem `json:"creatives"`
	DeliveryID string         `json:"deliveryId,omitempty"`
}

type failureCallback struct {
	JobID        string `json:"jobId"`
	ErrorMessage string `json:"errorMessage"`
	DeliveryID   string `json:"deliveryId,omitempty"`
}

type callbackResponse struct {
	JobID  string                `json:"jobId"`
	Status model.CallbackOutcome `json:"status"`
}

// toCreatives validates the items. A missing index falls back to the
// position in the list.
func (c creativesCallback) toCreatives() ([]model.GeneratedCreative, error) {
	if strings.TrimSpace(c.JobID) == "" {
		return nil, fmt.Errorf("%w: missing jobId", ErrBadRequest)
	}
	if len(c.Creatives) == 0 {
		return nil, fmt.Errorf("%w: creatives must not be empty", ErrBadRequest)
	}
	out := make([]model.GeneratedCreative, 0, len(c.Creatives))
	for i, item := range c.Creatives {
		if strings.TrimSpace(item.URL) == "" {
			return nil, fmt.Errorf("%w: creatives[%d] missing url", ErrBadRequest, i)
		}
		f, err := model.ParseFormat(item.Format)
		if err != nil {
			return nil, fmt.Errorf("%w: creatives[%d]: %v", ErrBadRequest, i, err)
		}
		idx := i
		if item.Index != nil {
			idx = *item.Index
		}
		out = append(out, model.GeneratedCreative{
			Index:    idx,
			Format:   f,
			ImageURL: item.URL,
			Texts: model.TextIteration{
				PreHeadline: item.Eyebrow,
				Headline:    item.Headline,
				SubHeadline: item.SubHeadline,
				CTA:         item.CTA,
			},
		})
	}
	return out, nil
}

func (s *Server) handleCreativesCallback(w http.ResponseWriter, r *http.Request) {
	var req creativesCallback
	if err := decodeJSON(w, r, s.requestLimit, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	creatives, err := req.toCreatives()
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	outcome, err := s.jobs.CompleteJob(r.Context(), req.JobID, creatives, req.DeliveryID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, callbackResponse{JobID: req.JobID, Status: outcome})
}

func (s *Server) handleFailureCallback(w http.ResponseWriter, r *http.Request) {
	var req failureCallback
	if err := decodeJSON(w, r, s.requestLimit, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	if strings.TrimSpace(req.JobID) == "" {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: missing jobId", ErrBadRequest))
		return
	}
	msg := strings.TrimSpace(req.ErrorMessage)
	if msg == "" {
		msg = "automation reported a failure"
	}
	outcome, err := s.jobs.FailJob(r.Context(), req.JobID, msg, req.DeliveryID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, callbackResponse{JobID: req.JobID, Status: outcome})
}
