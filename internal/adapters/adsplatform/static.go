package adsplatform

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/okian/adcraft/internal/domain/model"
)

// StaticSource serves campaigns from memory, usually loaded from a JSON fixture.
type StaticSource struct {
	mu        sync.RWMutex
	campaigns map[string]model.CampaignAds
}

// NewStaticSource creates a source holding campaigns.
func NewStaticSource(campaigns ...model.CampaignAds) *StaticSource {
	s := &StaticSource{campaigns: make(map[string]model.CampaignAds, len(campaigns))}
	for _, c := range campaigns {
		s.Put(c)
	}
	return s
}

// LoadStaticSource reads a JSON array of campaigns from path. An empty path
// yields an empty source.
func LoadStaticSource(path string) (*StaticSource, error) {
	if path == "" {
		return NewStaticSource(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read ads fixture: %w", err)
	}
	var campaigns []model.CampaignAds
	if err := json.Unmarshal(raw, &campaigns); err != nil {
		return nil, fmt.Errorf("decode ads fixture %s: %w", path, err)
	}
	return NewStaticSource(campaigns...), nil
}

// Put adds or replaces a campaign.
func (s *StaticSource) Put(c model.CampaignAds) {
	s.mu.Lock()
	s.campaigns[c.CampaignID] = c
	s.mu.Unlock()
}

// CampaignAds returns a copy of the campaign's ads.
func (s *StaticSource) CampaignAds(_ context.Context, campaignID string) ([]model.AdPerformanceSample, error) {
	s.mu.RLock()
	c, ok := s.campaigns[campaignID]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrCampaignNotFound, campaignID)
	}
	out := make([]model.AdPerformanceSample, len(c.Ads))
	copy(out, c.Ads)
	return out, nil
}

// Targeting returns the targeting of the campaign whose ad set matches, or nil.
func (s *StaticSource) Targeting(_ context.Context, adSetID string) (*model.Targeting, error) {
	if adSetID == "" {
		return nil, ErrEmptyID
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.campaigns {
		if c.AdSetID == adSetID && c.Targeting != nil {
			t := *c.Targeting
			return &t, nil
		}
	}
	return nil, nil
}
