package delivery

import (
	"errors"
	"fmt"
	"time"

	"adsdash/internal/domain"
	"adsdash/internal/usecase"
)

var errBadRequest = errors.New("bad request")

// actionRequest is the body of POST /sessions/:id/actions
type actionRequest struct {
	Type    string   `json:"type" binding:"required"`
	Kind    string   `json:"kind"`
	ID      string   `json:"id"`
	Checked bool     `json:"checked"`
	IDs     []string `json:"ids"`
	// Query is used by select_all_visible when IDs is omitted: the ids
	// currently shown under this search text are selected.
	Query string `json:"query"`
	Start string `json:"start"`
	End   string `json:"end"`
	Days  int    `json:"days"`
}

// toAction validates the payload and builds the domain action
func (r actionRequest) toAction(store *usecase.Store) (domain.Action, error) {
	switch domain.ActionType(r.Type) {
	case domain.ActionSelectCampaign:
		return domain.SelectCampaign(r.ID), nil

	case domain.ActionSelectAdSet:
		return domain.SelectAdSet(r.ID), nil

	case domain.ActionToggle:
		kind, err := domain.ParseKind(r.Kind)
		if err != nil {
			return domain.Action{}, err
		}
		if r.ID == "" {
			return domain.Action{}, fmt.Errorf("%w: id is required", errBadRequest)
		}
		return domain.Toggle(kind, r.ID, r.Checked), nil

	case domain.ActionSelectAllVisible:
		kind, err := domain.ParseKind(r.Kind)
		if err != nil {
			return domain.Action{}, err
		}
		ids := r.IDs
		if ids == nil {
			if ids, err = store.VisibleIDs(kind, r.Query); err != nil {
				return domain.Action{}, err
			}
		}
		return domain.SelectAllVisible(kind, ids), nil

	case domain.ActionClearAll:
		kind, err := domain.ParseKind(r.Kind)
		if err != nil {
			return domain.Action{}, err
		}
		return domain.ClearAll(kind), nil

	case domain.ActionSetDateRange:
		start, err := parseDate(r.Start)
		if err != nil {
			return domain.Action{}, fmt.Errorf("%w: start: %v", errBadRequest, err)
		}
		end, err := parseDate(r.End)
		if err != nil {
			return domain.Action{}, fmt.Errorf("%w: end: %v", errBadRequest, err)
		}
		if dr := (domain.DateRange{Start: start, End: end}); !dr.Ordered() {
			return domain.Action{}, fmt.Errorf("%w: start must not be after end", errBadRequest)
		}
		return domain.SetDateRange(start, end), nil

	case domain.ActionApplyPreset:
		return domain.ApplyPreset(r.Days), nil
	}

	return domain.Action{}, fmt.Errorf("%w: unknown action type %q", domain.ErrInvalidAction, r.Type)
}

// parseDate accepts a date input value (YYYY-MM-DD) or an RFC3339 timestamp
func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, errors.New("date is required")
	}
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("date must be in YYYY-MM-DD or RFC3339 format")
	}
	return t, nil
}

type itemResponse struct {
	ID       string        `json:"id"`
	Name     string        `json:"name"`
	Status   domain.Status `json:"status"`
	Selected bool          `json:"selected"`
	Focused  bool          `json:"focused"`
}

type metricResponse struct {
	ID          string `json:"id"`
	Label       string `json:"label"`
	Description string `json:"description,omitempty"`
	Selected    bool   `json:"selected"`
}

type metricGroupResponse struct {
	Category domain.MetricCategory `json:"category"`
	Label    string                `json:"label"`
	Metrics  []metricResponse      `json:"metrics"`
}

type dateRangeResponse struct {
	Start   string `json:"start"`
	End     string `json:"end"`
	Presets []int  `json:"presets"`
}

type viewResponse struct {
	SessionID string            `json:"session_id"`
	Loaded    bool              `json:"loaded"`
	Focus     domain.Focus      `json:"focus"`
	Selected  domain.Selections `json:"selected"`
	DateRange dateRangeResponse `json:"date_range"`
	Notice    *usecase.Notice   `json:"notice"`
	Counts    map[string]int    `json:"counts"`
}

func newViewResponse(session *usecase.Session) viewResponse {
	view := session.Store.View()
	return viewResponse{
		SessionID: session.ID,
		Loaded:    view.Loaded,
		Focus:     view.State.Focus,
		Selected:  view.State.Selected,
		DateRange: dateRangeResponse{
			Start:   view.State.DateRange.Start.Format(time.DateOnly),
			End:     view.State.DateRange.End.Format(time.DateOnly),
			Presets: domain.DatePresets,
		},
		Notice: view.Notice,
		Counts: view.Hierarchy.Counts(),
	}
}

func campaignItems(campaigns []domain.Campaign, state domain.State) []itemResponse {
	items := make([]itemResponse, 0, len(campaigns))
	for _, c := range campaigns {
		items = append(items, itemResponse{
			ID:       c.ID,
			Name:     c.Name,
			Status:   c.Status,
			Selected: state.Selected.Campaigns.Has(c.ID),
			Focused:  state.Focus.CampaignID() == c.ID,
		})
	}
	return items
}

func adsetItems(adsets []domain.AdSet, state domain.State) []itemResponse {
	items := make([]itemResponse, 0, len(adsets))
	for _, a := range adsets {
		items = append(items, itemResponse{
			ID:       a.ID,
			Name:     a.Name,
			Status:   a.Status,
			Selected: state.Selected.AdSets.Has(a.ID),
			Focused:  state.Focus.AdSetID() == a.ID,
		})
	}
	return items
}

func adItems(ads []domain.Ad, state domain.State) []itemResponse {
	items := make([]itemResponse, 0, len(ads))
	for _, a := range ads {
		items = append(items, itemResponse{
			ID:       a.ID,
			Name:     a.Name,
			Status:   a.Status,
			Selected: state.Selected.Ads.Has(a.ID),
		})
	}
	return items
}

func metricGroups(metrics []domain.Metric, state domain.State) []metricGroupResponse {
	groups := domain.GroupMetrics(metrics)
	out := make([]metricGroupResponse, 0, len(groups))
	for _, g := range groups {
		items := make([]metricResponse, 0, len(g.Metrics))
		for _, m := range g.Metrics {
			items = append(items, metricResponse{
				ID:          m.ID,
				Label:       m.Label,
				Description: m.Description,
				Selected:    state.Selected.Metrics.Has(m.ID),
			})
		}
		out = append(out, metricGroupResponse{Category: g.Category, Label: g.Label, Metrics: items})
	}
	return out
}

// allSelected is the state of a "select all" checkbox over items
func allSelected(items []itemResponse) bool {
	if len(items) == 0 {
		return false
	}
	for _, item := range items {
		if !item.Selected {
			return false
		}
	}
	return true
}
