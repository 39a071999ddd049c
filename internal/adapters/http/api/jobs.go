package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	service "github.com/okian/adcraft/internal/app"
	"github.com/okian/adcraft/internal/domain/model"
)

// createJobRequest mirrors the OpenAPI schema for POST /api/v1/jobs.
type createJobRequest struct {
	CampaignID     string `json:"campaignId"`
	LandingPageURL string `json:"landingPageUrl"`
	Format         string `json:"format"`
	Count          int    `json:"count"`
}

type createJobResponse struct {
	JobID  string          `json:"jobId"`
	Status model.JobStatus `json:"status"`
}

func (s *Server) handleCreateJob(w http.ResponseWriter, r *http.Request) {
	var req createJobRequest
	if err := decodeJSON(w, r, s.requestLimit, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	job, err := s.jobs.CreateJob(r.Context(), service.CreateJobRequest{
		OwnerID:        r.Header.Get(headerAccountID),
		CampaignID:     req.CampaignID,
		LandingPageURL: req.LandingPageURL,
		Format:         req.Format,
		Count:          req.Count,
	})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	w.Header().Set("Location", "/api/v1/jobs/"+job.ID)
	writeJSON(w, http.StatusAccepted, createJobResponse{JobID: job.ID, Status: job.Status})
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	job, err := s.jobs.GetJob(r.Context(), r.Header.Get(headerAccountID), chi.URLParam(r, "jobID"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (s *Server) handlePauseJob(w http.ResponseWriter, r *http.Request) {
	job, err := s.jobs.Pause(r.Context(), r.Header.Get(headerAccountID), chi.URLParam(r, "jobID"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (s *Server) handleResumeJob(w http.ResponseWriter, r *http.Request) {
	job, err := s.jobs.Resume(r.Context(), r.Header.Get(headerAccountID), chi.URLParam(r, "jobID"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (s *Server) handleDeleteJob(w http.ResponseWriter, r *http.Request) {
	if err := s.jobs.Delete(r.Context(), r.Header.Get(headerAccountID), chi.URLParam(r, "jobID")); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
