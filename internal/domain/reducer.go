package domain

import (
	"fmt"
	"time"
)

// Apply computes the state that follows action. It never mutates state;
// on error the returned state is the input state and the change is empty.
//
// Entering a campaign resets the ad set focus and clears the ad set and
// ad selections. Entering an ad set clears the ad selection. The campaign
// selection set is never touched by focus changes.
func Apply(state State, h Hierarchy, action Action, now time.Time) (State, Change, error) {
	switch action.Type {
	case ActionSelectCampaign:
		if !h.HasCampaign(action.ID) {
			return state, ChangeNone, fmt.Errorf("%w: campaign %q does not exist", ErrInvalidSelection, action.ID)
		}
		next := state.Clone()
		next.Focus = CampaignFocus(action.ID)
		next.Selected.AdSets = NewIDSet()
		next.Selected.Ads = NewIDSet()
		return next, ChangeCampaigns | ChangeAdSets | ChangeAds, nil

	case ActionSelectAdSet:
		campaignID := state.Focus.CampaignID()
		if campaignID == "" {
			return state, ChangeNone, fmt.Errorf("%w: no campaign is focused", ErrInvalidSelection)
		}
		if !h.HasAdSet(campaignID, action.ID) {
			return state, ChangeNone, fmt.Errorf("%w: ad set %q is not under campaign %q", ErrInvalidSelection, action.ID, campaignID)
		}
		next := state.Clone()
		next.Focus = AdSetFocus(campaignID, action.ID)
		next.Selected.Ads = NewIDSet()
		return next, ChangeAdSets | ChangeAds, nil

	case ActionToggle:
		if _, err := ParseKind(string(action.Kind)); err != nil {
			return state, ChangeNone, err
		}
		next := state.Clone()
		set := next.Selected.Of(action.Kind)
		if !action.Checked {
			delete(set, action.ID)
			return next, changeFor(action.Kind), nil
		}
		if _, ok := h.collectionIDs(action.Kind, state.Focus)[action.ID]; !ok {
			return state, ChangeNone, fmt.Errorf("%w: %s id %q is not in the current view", ErrInvalidSelection, action.Kind, action.ID)
		}
		set[action.ID] = struct{}{}
		return next, changeFor(action.Kind), nil

	case ActionSelectAllVisible:
		if _, err := ParseKind(string(action.Kind)); err != nil {
			return state, ChangeNone, err
		}
		valid := h.collectionIDs(action.Kind, state.Focus)
		selected := NewIDSet()
		for _, id := range action.IDs {
			if _, ok := valid[id]; ok {
				selected[id] = struct{}{}
			}
		}
		next := state.Clone()
		next.Selected.set(action.Kind, selected)
		return next, changeFor(action.Kind), nil

	case ActionClearAll:
		if _, err := ParseKind(string(action.Kind)); err != nil {
			return state, ChangeNone, err
		}
		next := state.Clone()
		next.Selected.set(action.Kind, NewIDSet())
		return next, changeFor(action.Kind), nil

	case ActionSetDateRange:
		next := state.Clone()
		next.DateRange = DateRange{Start: action.Start, End: action.End}
		return next, ChangeDateRange, nil

	case ActionApplyPreset:
		if action.Days < 0 {
			return state, ChangeNone, fmt.Errorf("%w: preset days must not be negative, got %d", ErrInvalidAction, action.Days)
		}
		next := state.Clone()
		next.DateRange = PresetRange(now, action.Days)
		return next, ChangeDateRange, nil
	}

	return state, ChangeNone, fmt.Errorf("%w: unknown action type %q", ErrInvalidAction, action.Type)
}
