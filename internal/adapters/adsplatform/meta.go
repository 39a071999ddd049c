package adsplatform

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/okian/adcraft/internal/domain/model"
	"github.com/okian/adcraft/internal/domain/scoring"
	"github.com/okian/adcraft/pkg/logger"
)

const (
	defaultGraphURL     = "https://graph.facebook.com"
	defaultGraphVersion = "v21.0"
	maxPages            = 10
	maxErrorBody        = 8 << 10

	adFields = "id,name,adset_id," +
		"creative{image_url,thumbnail_url,title,body,object_url,link_url}," +
		"insights.date_preset(maximum){spend,impressions,outbound_clicks,actions,action_values}"
)

// Default action types. Order volume and cash collected are usually custom
// conversions and can be overridden per account.
var (
	DefaultLeadActions        = []string{"lead", "offsite_conversion.fb_pixel_lead", "onsite_conversion.lead_grouped"}
	DefaultOrderVolumeActions = []string{"offsite_conversion.fb_pixel_purchase", "purchase"}
	DefaultCashCollectActions = []string{"offsite_conversion.custom.cash_collected"}
)

// MetaOption configures a MetaClient.
type MetaOption func(*MetaClient)

// WithGraphURL overrides the Graph API base URL and version.
func WithGraphURL(base, version string) MetaOption {
	return func(c *MetaClient) {
		if base != "" {
			c.baseURL = strings.TrimRight(base, "/")
		}
		if version != "" {
			c.version = version
		}
	}
}

// WithHTTPClient sets the client.
func WithHTTPClient(h *http.Client) MetaOption {
	return func(c *MetaClient) {
		if h != nil {
			c.http = h
		}
	}
}

// WithActionTypes overrides which action types count as leads, order volume and cash collected.
func WithActionTypes(leads, orderVolume, cashCollect []string) MetaOption {
	return func(c *MetaClient) {
		if len(leads) > 0 {
			c.leadActions = leads
		}
		if len(orderVolume) > 0 {
			c.orderActions = orderVolume
		}
		if len(cashCollect) > 0 {
			c.cashActions = cashCollect
		}
	}
}

// WithMetaLogger sets the logger.
func WithMetaLogger(l logger.Logger) MetaOption {
	return func(c *MetaClient) {
		if l != nil {
			c.log = l
		}
	}
}

// MetaClient reads ads and targeting from the Meta Graph API. It never retries.
type MetaClient struct {
	token        string
	baseURL      string
	version      string
	http         *http.Client
	leadActions  []string
	orderActions []string
	cashActions  []string
	log          logger.Logger
}

// NewMetaClient creates a client authenticated with token.
func NewMetaClient(token string, opts ...MetaOption) *MetaClient {
	c := &MetaClient{
		token:        token,
		baseURL:      defaultGraphURL,
		version:      defaultGraphVersion,
		http:         &http.Client{Timeout: 30 * time.Second},
		leadActions:  DefaultLeadActions,
		orderActions: DefaultOrderVolumeActions,
		cashActions:  DefaultCashCollectActions,
		log:          logger.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type graphAction struct {
	ActionType string `json:"action_type"`
	Value      string `json:"value"`
}

type graphInsight struct {
	Spend          string        `json:"spend"`
	Impressions    string        `json:"impressions"`
	OutboundClicks []graphAction `json:"outbound_clicks"`
	Actions        []graphAction `json:"actions"`
	ActionValues   []graphAction `json:"action_values"`
}

type graphAd struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	AdSetID  string `json:"adset_id"`
	Creative struct {
		ImageURL     string `json:"image_url"`
		ThumbnailURL string `json:"thumbnail_url"`
		Title        string `json:"title"`
		Body         string `json:"body"`
		ObjectURL    string `json:"object_url"`
		LinkURL      string `json:"link_url"`
	} `json:"creative"`
	Insights struct {
		Data []graphInsight `json:"data"`
	} `json:"insights"`
}

type graphPage struct {
	Data   []graphAd `json:"data"`
	Paging struct {
		Next string `json:"next"`
	} `json:"paging"`
}

// CampaignAds returns every ad of the campaign with derived performance ratios.
func (c *MetaClient) CampaignAds(ctx context.Context, campaignID string) ([]model.AdPerformanceSample, error) {
	if c.token == "" {
		return nil, ErrNoToken
	}
	if strings.TrimSpace(campaignID) == "" {
		return nil, ErrEmptyID
	}

	q := url.Values{}
	q.Set("fields", adFields)
	q.Set("limit", "100")
	next := fmt.Sprintf("%s/%s/%s/ads?%s", c.baseURL, c.version, url.PathEscape(campaignID), q.Encode())

	var out []model.AdPerformanceSample
	for page := 0; next != "" && page < maxPages; page++ {
		var p graphPage
		if err := c.get(ctx, next, &p); err != nil {
			return nil, err
		}
		for _, ad := range p.Data {
			out = append(out, scoring.Derive(c.rawStats(ad)))
		}
		next = p.Paging.Next
	}
	c.log.Debug(ctx, "campaign ads loaded", logger.String("campaign_id", campaignID), logger.Int("ads", len(out)))
	return out, nil
}

func (c *MetaClient) rawStats(ad graphAd) model.RawAdStats {
	raw := model.RawAdStats{
		ID:       ad.ID,
		Name:     ad.Name,
		AdSetID:  ad.AdSetID,
		ImageURL: firstNonEmpty(ad.Creative.ImageURL, ad.Creative.ThumbnailURL),
		Headline: ad.Creative.Title,
		BodyText: ad.Creative.Body,
		LinkURL:  firstNonEmpty(ad.Creative.LinkURL, ad.Creative.ObjectURL),
	}
	for _, in := range ad.Insights.Data {
		raw.Spend += parseNum(in.Spend)
		raw.Impressions += parseNum(in.Impressions)
		raw.OutboundClicks += sumActions(in.OutboundClicks, []string{"outbound_click"})
		raw.Leads += sumActions(in.Actions, c.leadActions)
		raw.OrderVolumeValue += sumActions(in.ActionValues, c.orderActions)
		raw.CashCollectedValue += sumActions(in.ActionValues, c.cashActions)
	}
	return raw
}

type graphTargeting struct {
	Targeting struct {
		AgeMin       int            `json:"age_min"`
		AgeMax       int            `json:"age_max"`
		Genders      []int          `json:"genders"`
		GeoLocations map[string]any `json:"geo_locations"`
		Locales      []int          `json:"locales"`
		Interests    []model.Interest `json:"interests"`
		FlexibleSpec []struct {
			Interests []model.Interest `json:"interests"`
		} `json:"flexible_spec"`
	} `json:"targeting"`
}

// Targeting returns the audience of an ad set.
func (c *MetaClient) Targeting(ctx context.Context, adSetID string) (*model.Targeting, error) {
	if c.token == "" {
		return nil, ErrNoToken
	}
	if strings.TrimSpace(adSetID) == "" {
		return nil, ErrEmptyID
	}
	u := fmt.Sprintf("%s/%s/%s?fields=targeting", c.baseURL, c.version, url.PathEscape(adSetID))
	var g graphTargeting
	if err := c.get(ctx, u, &g); err != nil {
		return nil, err
	}
	t := &model.Targeting{
		AgeMin:       g.Targeting.AgeMin,
		AgeMax:       g.Targeting.AgeMax,
		Genders:      g.Targeting.Genders,
		GeoLocations: g.Targeting.GeoLocations,
		Locales:      g.Targeting.Locales,
		Interests:    g.Targeting.Interests,
	}
	for _, fs := range g.Targeting.FlexibleSpec {
		t.Interests = append(t.Interests, fs.Interests...)
	}
	return t, nil
}

func (c *MetaClient) get(ctx context.Context, rawURL string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("build graph request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("graph request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &PlatformError{StatusCode: resp.StatusCode, Body: string(body)}
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode graph response: %w", err)
	}
	return nil
}

func sumActions(actions []graphAction, types []string) float64 {
	total := 0.0
	for _, a := range actions {
		for _, t := range types {
			if a.ActionType == t {
				total += parseNum(a.Value)
				break
			}
		}
	}
	return total
}

func parseNum(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return v
}

func firstNonEmpty(vs ...string) string {
	for _, v := range vs {
		if v != "" {
			return v
		}
	}
	return ""
}
