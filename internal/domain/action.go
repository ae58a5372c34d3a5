package domain

import (
	"encoding/json"
	"time"
)

type ActionType string

const (
	ActionSelectCampaign   ActionType = "select_campaign"
	ActionSelectAdSet      ActionType = "select_adset"
	ActionToggle           ActionType = "toggle"
	ActionSelectAllVisible ActionType = "select_all_visible"
	ActionClearAll         ActionType = "clear_all"
	ActionSetDateRange     ActionType = "set_date_range"
	ActionApplyPreset      ActionType = "apply_preset"
)

// Action is one user interaction reported by the presentation layer.
// Only the fields relevant to Type are read.
type Action struct {
	Type    ActionType
	Kind    Kind
	ID      string
	Checked bool
	IDs     []string
	Start   time.Time
	End     time.Time
	Days    int
}

func SelectCampaign(id string) Action { return Action{Type: ActionSelectCampaign, ID: id} }

func SelectAdSet(id string) Action { return Action{Type: ActionSelectAdSet, ID: id} }

func Toggle(kind Kind, id string, checked bool) Action {
	return Action{Type: ActionToggle, Kind: kind, ID: id, Checked: checked}
}

func SelectAllVisible(kind Kind, ids []string) Action {
	return Action{Type: ActionSelectAllVisible, Kind: kind, IDs: ids}
}

func ClearAll(kind Kind) Action { return Action{Type: ActionClearAll, Kind: kind} }

func SetDateRange(start, end time.Time) Action {
	return Action{Type: ActionSetDateRange, Start: start, End: end}
}

func ApplyPreset(days int) Action { return Action{Type: ActionApplyPreset, Days: days} }

// Change is the set of views that must be recomputed after a transition
type Change uint16

const (
	ChangeCampaigns Change = 1 << iota
	ChangeAdSets
	ChangeAds
	ChangeMetrics
	ChangeDateRange
	ChangeNotice
	ChangeData

	ChangeNone Change = 0
	ChangeAll         = ChangeCampaigns | ChangeAdSets | ChangeAds | ChangeMetrics | ChangeDateRange | ChangeNotice | ChangeData
)

var changeNames = []struct {
	flag Change
	name string
}{
	{ChangeCampaigns, "campaigns"},
	{ChangeAdSets, "adsets"},
	{ChangeAds, "ads"},
	{ChangeMetrics, "metrics"},
	{ChangeDateRange, "date_range"},
	{ChangeNotice, "notice"},
	{ChangeData, "data"},
}

func (c Change) Has(flag Change) bool { return c&flag == flag }

// Views lists the changed view names in a stable order
func (c Change) Views() []string {
	views := []string{}
	for _, n := range changeNames {
		if c.Has(n.flag) {
			views = append(views, n.name)
		}
	}
	return views
}

func (c Change) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.Views())
}

func changeFor(kind Kind) Change {
	switch kind {
	case KindCampaigns:
		return ChangeCampaigns
	case KindAdSets:
		return ChangeAdSets
	case KindAds:
		return ChangeAds
	case KindMetrics:
		return ChangeMetrics
	}
	return ChangeNone
}
