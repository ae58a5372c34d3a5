package domain

// Wire documents returned by the data provider

type CampaignsDocument struct {
	Campaigns []Campaign `json:"campaigns"`
}

type AdSetsDocument struct {
	AdSets map[string][]AdSet `json:"adsets"`
}

type AdsDocument struct {
	Ads map[string][]Ad `json:"ads"`
}

type MetricsDocument struct {
	Metrics []Metric `json:"metrics"`
}

// Hierarchy holds everything one load produced. Ad sets are keyed by
// campaign id and ads by ad set id; a child list only exists under its parent.
type Hierarchy struct {
	Campaigns []Campaign         `json:"campaigns"`
	AdSets    map[string][]AdSet `json:"adsets"`
	Ads       map[string][]Ad    `json:"ads"`
	Metrics   []Metric           `json:"metrics"`
}

// NewHierarchy assembles a hierarchy from the four provider documents
func NewHierarchy(campaigns *CampaignsDocument, adsets *AdSetsDocument, ads *AdsDocument, metrics *MetricsDocument) Hierarchy {
	h := Hierarchy{
		AdSets: map[string][]AdSet{},
		Ads:    map[string][]Ad{},
	}
	if campaigns != nil {
		h.Campaigns = campaigns.Campaigns
	}
	if adsets != nil && adsets.AdSets != nil {
		h.AdSets = adsets.AdSets
	}
	if ads != nil && ads.Ads != nil {
		h.Ads = ads.Ads
	}
	if metrics != nil {
		h.Metrics = metrics.Metrics
	}
	return h
}

// FallbackHierarchy is the single-item dataset shown when a load fails
func FallbackHierarchy() Hierarchy {
	return Hierarchy{
		Campaigns: []Campaign{{ID: "camp1", Name: "Sample Campaign", Status: StatusActive}},
		AdSets: map[string][]AdSet{
			"camp1": {{ID: "adset1", Name: "Sample Ad Set", Status: StatusActive}},
		},
		Ads: map[string][]Ad{
			"adset1": {{ID: "ad1", Name: "Sample Ad", Status: StatusActive}},
		},
		Metrics: BuiltinMetrics(),
	}
}

// AdSetsOf returns the ad sets of a campaign, or nil for an unknown campaign
func (h Hierarchy) AdSetsOf(campaignID string) []AdSet {
	if campaignID == "" || !h.HasCampaign(campaignID) {
		return nil
	}
	return h.AdSets[campaignID]
}

// AdsOf returns the ads of an ad set, or nil when the ad set has no parent campaign
func (h Hierarchy) AdsOf(campaignID, adsetID string) []Ad {
	if adsetID == "" || !h.HasAdSet(campaignID, adsetID) {
		return nil
	}
	return h.Ads[adsetID]
}

func (h Hierarchy) HasCampaign(id string) bool {
	for _, c := range h.Campaigns {
		if c.ID == id {
			return true
		}
	}
	return false
}

func (h Hierarchy) HasAdSet(campaignID, adsetID string) bool {
	if !h.HasCampaign(campaignID) {
		return false
	}
	for _, a := range h.AdSets[campaignID] {
		if a.ID == adsetID {
			return true
		}
	}
	return false
}

// Counts reports collection sizes for logging
func (h Hierarchy) Counts() map[string]int {
	adsets, ads := 0, 0
	for _, list := range h.AdSets {
		adsets += len(list)
	}
	for _, list := range h.Ads {
		ads += len(list)
	}
	return map[string]int{
		"campaigns": len(h.Campaigns),
		"adsets":    adsets,
		"ads":       ads,
		"metrics":   len(h.Metrics),
	}
}

// collectionIDs returns the ids of the collection of kind visible under focus
func (h Hierarchy) collectionIDs(kind Kind, focus Focus) map[string]struct{} {
	ids := make(map[string]struct{})
	switch kind {
	case KindCampaigns:
		for _, c := range h.Campaigns {
			ids[c.ID] = struct{}{}
		}
	case KindAdSets:
		for _, a := range h.AdSetsOf(focus.CampaignID()) {
			ids[a.ID] = struct{}{}
		}
	case KindAds:
		for _, a := range h.AdsOf(focus.CampaignID(), focus.AdSetID()) {
			ids[a.ID] = struct{}{}
		}
	case KindMetrics:
		for _, m := range h.Metrics {
			ids[m.ID] = struct{}{}
		}
	}
	return ids
}
