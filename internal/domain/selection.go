package domain

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"
)

// Kind names one of the four multi-select collections
type Kind string

const (
	KindCampaigns Kind = "campaigns"
	KindAdSets    Kind = "adsets"
	KindAds       Kind = "ads"
	KindMetrics   Kind = "metrics"
)

var Kinds = []Kind{KindCampaigns, KindAdSets, KindAds, KindMetrics}

func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w: unknown kind %q", ErrInvalidAction, s)
}

// IDSet is a set of entity ids. It serialises as a sorted array.
type IDSet map[string]struct{}

func NewIDSet(ids ...string) IDSet {
	s := make(IDSet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

func (s IDSet) Has(id string) bool {
	_, ok := s[id]
	return ok
}

func (s IDSet) Len() int { return len(s) }

// Sorted returns the members in ascending order
func (s IDSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func (s IDSet) Clone() IDSet {
	out := make(IDSet, len(s))
	for id := range s {
		out[id] = struct{}{}
	}
	return out
}

func (s IDSet) equal(other IDSet) bool {
	if len(s) != len(other) {
		return false
	}
	for id := range s {
		if !other.Has(id) {
			return false
		}
	}
	return true
}

func (s IDSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Sorted())
}

func (s *IDSet) UnmarshalJSON(data []byte) error {
	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		return err
	}
	*s = NewIDSet(ids...)
	return nil
}

// FocusLevel tags which drill-down level is entered
type FocusLevel string

const (
	FocusNone     FocusLevel = "none"
	FocusCampaign FocusLevel = "campaign"
	FocusAdSet    FocusLevel = "adset"
)

// Focus is the drill-down position. It is a separate axis from the
// multi-select sets: entering a campaign never checks it.
type Focus struct {
	Level    FocusLevel `json:"level"`
	Campaign string     `json:"campaign_id,omitempty"`
	AdSet    string     `json:"adset_id,omitempty"`
}

func NoFocus() Focus { return Focus{Level: FocusNone} }

func CampaignFocus(campaignID string) Focus {
	return Focus{Level: FocusCampaign, Campaign: campaignID}
}

func AdSetFocus(campaignID, adsetID string) Focus {
	return Focus{Level: FocusAdSet, Campaign: campaignID, AdSet: adsetID}
}

// CampaignID returns the focused campaign, or "" when none is entered
func (f Focus) CampaignID() string {
	if f.Level == FocusCampaign || f.Level == FocusAdSet {
		return f.Campaign
	}
	return ""
}

// AdSetID returns the focused ad set, or "" unless an ad set is entered
func (f Focus) AdSetID() string {
	if f.Level == FocusAdSet {
		return f.AdSet
	}
	return ""
}

// Selections holds the four independent multi-select sets
type Selections struct {
	Campaigns IDSet `json:"campaigns"`
	AdSets    IDSet `json:"adsets"`
	Ads       IDSet `json:"ads"`
	Metrics   IDSet `json:"metrics"`
}

func (s Selections) Of(kind Kind) IDSet {
	switch kind {
	case KindCampaigns:
		return s.Campaigns
	case KindAdSets:
		return s.AdSets
	case KindAds:
		return s.Ads
	case KindMetrics:
		return s.Metrics
	}
	return nil
}

func (s *Selections) set(kind Kind, ids IDSet) {
	switch kind {
	case KindCampaigns:
		s.Campaigns = ids
	case KindAdSets:
		s.AdSets = ids
	case KindAds:
		s.Ads = ids
	case KindMetrics:
		s.Metrics = ids
	}
}

// State is the full selection and filter state of one dashboard
type State struct {
	Focus     Focus      `json:"focus"`
	Selected  Selections `json:"selected"`
	DateRange DateRange  `json:"date_range"`
}

// NewState returns the initial state: nothing focused or selected and
// the default 30 day window ending at now.
func NewState(now time.Time) State {
	return State{
		Focus: NoFocus(),
		Selected: Selections{
			Campaigns: NewIDSet(),
			AdSets:    NewIDSet(),
			Ads:       NewIDSet(),
			Metrics:   NewIDSet(),
		},
		DateRange: DefaultDateRange(now),
	}
}

// Clone deep-copies the selection sets
func (s State) Clone() State {
	out := s
	out.Selected = Selections{
		Campaigns: s.Selected.Campaigns.Clone(),
		AdSets:    s.Selected.AdSets.Clone(),
		Ads:       s.Selected.Ads.Clone(),
		Metrics:   s.Selected.Metrics.Clone(),
	}
	return out
}

// Prune drops focus and selected ids that no longer exist in h. It is
// applied after a reload or when a persisted snapshot is restored.
func (s State) Prune(h Hierarchy) State {
	out := s.Clone()

	switch {
	case out.Focus.Level == FocusAdSet && h.HasAdSet(out.Focus.Campaign, out.Focus.AdSet):
	case out.Focus.CampaignID() != "" && h.HasCampaign(out.Focus.CampaignID()):
		out.Focus = CampaignFocus(out.Focus.CampaignID())
	default:
		out.Focus = NoFocus()
	}

	for _, kind := range Kinds {
		valid := h.collectionIDs(kind, out.Focus)
		kept := NewIDSet()
		for id := range out.Selected.Of(kind) {
			if _, ok := valid[id]; ok {
				kept[id] = struct{}{}
			}
		}
		out.Selected.set(kind, kept)
	}
	return out
}
