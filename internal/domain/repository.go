package domain

import (
	"context"
	"time"
)

// HierarchyFilter is the request body of the parametrized fetches. Providers
// backed by static documents ignore it.
type HierarchyFilter struct {
	DateRange         *DateRange `json:"dateRange,omitempty"`
	SelectedMetrics   []string   `json:"selectedMetrics,omitempty"`
	SelectedCampaigns []string   `json:"selectedCampaigns,omitempty"`
	SelectedAdSets    []string   `json:"selectedAdsets,omitempty"`
	SelectedAds       []string   `json:"selectedAds,omitempty"`
}

// FilterFromState builds the refresh payload from the current selection
func FilterFromState(s State) HierarchyFilter {
	dr := s.DateRange
	return HierarchyFilter{
		DateRange:         &dr,
		SelectedMetrics:   s.Selected.Metrics.Sorted(),
		SelectedCampaigns: s.Selected.Campaigns.Sorted(),
		SelectedAdSets:    s.Selected.AdSets.Sorted(),
		SelectedAds:       s.Selected.Ads.Sorted(),
	}
}

func (f HierarchyFilter) IsZero() bool {
	return f.DateRange == nil &&
		len(f.SelectedMetrics) == 0 &&
		len(f.SelectedCampaigns) == 0 &&
		len(f.SelectedAdSets) == 0 &&
		len(f.SelectedAds) == 0
}

// DataProvider supplies the hierarchy and the metric catalog
type DataProvider interface {
	FetchCampaigns(ctx context.Context, filter HierarchyFilter) (*CampaignsDocument, error)
	FetchAdSets(ctx context.Context, filter HierarchyFilter) (*AdSetsDocument, error)
	FetchAds(ctx context.Context, filter HierarchyFilter) (*AdsDocument, error)
	FetchMetrics(ctx context.Context) (*MetricsDocument, error)
}

// SessionSnapshot is the persisted part of a dashboard session
type SessionSnapshot struct {
	ID        string    `json:"id"`
	State     State     `json:"state"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SessionRepository persists session snapshots across restarts. Load
// returns nil, nil when no snapshot exists.
type SessionRepository interface {
	Save(ctx context.Context, snapshot SessionSnapshot) error
	Load(ctx context.Context, id string) (*SessionSnapshot, error)
	Delete(ctx context.Context, id string) error
}
