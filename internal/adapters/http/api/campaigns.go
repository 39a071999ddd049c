package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/okian/adcraft/internal/domain/format"
	"github.com/okian/adcraft/internal/domain/model"
)

type winnersResponse struct {
	CampaignID string                       `json:"campaignId"`
	Winners    []model.WinningCreativeScore `json:"winners"`
}

// handleWinners handles GET /api/v1/campaigns/{campaignID}/winners?limit=N.
func (s *Server) handleWinners(w http.ResponseWriter, r *http.Request) {
	campaignID := chi.URLParam(r, "campaignID")
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: limit must be a positive integer", ErrBadRequest))
			return
		}
		limit = n
	}
	winners, err := s.jobs.Winners(r.Context(), campaignID, limit)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if winners == nil {
		winners = []model.WinningCreativeScore{}
	}
	writeJSON(w, http.StatusOK, winnersResponse{CampaignID: campaignID, Winners: winners})
}

type formatInfo struct {
	Format      model.CreativeFormat  `json:"format"`
	Width       int                   `json:"width"`
	Height      int                   `json:"height"`
	AspectRatio string                `json:"aspectRatio"`
	SafeZones   format.SafeZoneSpec   `json:"safeZones"`
	Typography  format.TypographySpec `json:"typography"`
}

// handleFormats handles GET /api/v1/formats with the default palette.
func handleFormats(w http.ResponseWriter, _ *http.Request) {
	out := make([]formatInfo, 0, len(model.AllFormats))
	for _, f := range model.AllFormats {
		zones, typo, err := format.Geometry(f, nil)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", err)
			return
		}
		out = append(out, formatInfo{
			Format:      f,
			Width:       zones.Width,
			Height:      zones.Height,
			AspectRatio: f.AspectRatio(),
			SafeZones:   zones,
			Typography:  typo,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"formats": out})
}
