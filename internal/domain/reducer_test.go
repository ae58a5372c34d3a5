package domain

import (
	"errors"
	"testing"
	"time"
)

var testNow = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

func testHierarchy() Hierarchy {
	return Hierarchy{
		Campaigns: []Campaign{
			{ID: "c1", Name: "Summer Sale", Status: StatusActive},
			{ID: "c2", Name: "Winter Launch", Status: StatusPaused},
		},
		AdSets: map[string][]AdSet{
			"c1": {
				{ID: "as1", Name: "Lookalike 1%", Status: StatusActive},
				{ID: "as2", Name: "Retargeting", Status: StatusActive},
			},
			"c2": {
				{ID: "as3", Name: "Broad", Status: StatusPaused},
			},
		},
		Ads: map[string][]Ad{
			"as1": {{ID: "ad1", Name: "Carousel"}, {ID: "ad2", Name: "Video"}},
			"as2": {{ID: "ad3", Name: "Static"}},
			"as3": {{ID: "ad4", Name: "Story"}},
		},
		Metrics: BuiltinMetrics(),
	}
}

func mustApply(t *testing.T, s State, h Hierarchy, a Action) State {
	t.Helper()
	next, _, err := Apply(s, h, a, testNow)
	if err != nil {
		t.Fatalf("Apply(%s): %v", a.Type, err)
	}
	return next
}

func TestSelectCampaignResetsChildren(t *testing.T) {
	h := testHierarchy()
	s := NewState(testNow)
	s = mustApply(t, s, h, Toggle(KindCampaigns, "c2", true))
	s = mustApply(t, s, h, SelectCampaign("c1"))
	s = mustApply(t, s, h, Toggle(KindAdSets, "as1", true))
	s = mustApply(t, s, h, SelectAdSet("as1"))
	s = mustApply(t, s, h, Toggle(KindAds, "ad1", true))

	for _, id := range []string{"c1", "c2"} {
		next, change, err := Apply(s, h, SelectCampaign(id), testNow)
		if err != nil {
			t.Fatalf("select %s: %v", id, err)
		}
		if got := next.Focus.CampaignID(); got != id {
			t.Fatalf("focused campaign = %q, want %q", got, id)
		}
		if next.Focus.AdSetID() != "" {
			t.Fatalf("ad set focus = %q, want none", next.Focus.AdSetID())
		}
		if next.Selected.AdSets.Len() != 0 || next.Selected.Ads.Len() != 0 {
			t.Fatalf("adsets=%v ads=%v, want both empty", next.Selected.AdSets.Sorted(), next.Selected.Ads.Sorted())
		}
		if !next.Selected.Campaigns.Has("c2") {
			t.Fatal("campaign multi-select must not be touched by focus changes")
		}
		if !change.Has(ChangeAdSets | ChangeAds) {
			t.Fatalf("change = %v, want adsets and ads", change.Views())
		}
	}

	// input state is not mutated
	if s.Selected.Ads.Len() != 1 {
		t.Fatalf("input ads = %v, want [ad1]", s.Selected.Ads.Sorted())
	}
}

func TestSelectAdSetKeepsCampaign(t *testing.T) {
	h := testHierarchy()
	s := mustApply(t, NewState(testNow), h, SelectCampaign("c1"))
	s = mustApply(t, s, h, SelectAdSet("as2"))
	s = mustApply(t, s, h, Toggle(KindAds, "ad3", true))

	next := mustApply(t, s, h, SelectAdSet("as1"))
	if next.Focus.AdSetID() != "as1" {
		t.Fatalf("ad set focus = %q, want as1", next.Focus.AdSetID())
	}
	if next.Focus.CampaignID() != "c1" {
		t.Fatalf("campaign focus = %q, want c1", next.Focus.CampaignID())
	}
	if next.Selected.Ads.Len() != 0 {
		t.Fatalf("ads = %v, want empty", next.Selected.Ads.Sorted())
	}
}

func TestSelectAdSetRejectsForeignID(t *testing.T) {
	h := testHierarchy()

	tests := []struct {
		name  string
		state State
		id    string
	}{
		{name: "no campaign focused", state: NewState(testNow), id: "as1"},
		{name: "ad set of another campaign", state: mustApply(t, NewState(testNow), h, SelectCampaign("c1")), id: "as3"},
		{name: "unknown ad set", state: mustApply(t, NewState(testNow), h, SelectCampaign("c1")), id: "nope"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next, change, err := Apply(tt.state, h, SelectAdSet(tt.id), testNow)
			if !errors.Is(err, ErrInvalidSelection) {
				t.Fatalf("err = %v, want ErrInvalidSelection", err)
			}
			if change != ChangeNone {
				t.Fatalf("change = %v, want none", change.Views())
			}
			if next.Focus != tt.state.Focus {
				t.Fatalf("focus changed to %+v", next.Focus)
			}
		})
	}
}

func TestSelectCampaignRejectsUnknownID(t *testing.T) {
	_, _, err := Apply(NewState(testNow), testHierarchy(), SelectCampaign("zzz"), testNow)
	if !errors.Is(err, ErrInvalidSelection) {
		t.Fatalf("err = %v, want ErrInvalidSelection", err)
	}
}

func TestToggleRoundTrip(t *testing.T) {
	h := testHierarchy()
	base := mustApply(t, NewState(testNow), h, SelectCampaign("c1"))
	base = mustApply(t, base, h, SelectAdSet("as1"))
	base = mustApply(t, base, h, Toggle(KindMetrics, "ctr", true))

	tests := []struct {
		kind Kind
		id   string
	}{
		{KindCampaigns, "c2"},
		{KindAdSets, "as2"},
		{KindAds, "ad2"},
		{KindMetrics, "roas"},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			checked := mustApply(t, base, h, Toggle(tt.kind, tt.id, true))
			if !checked.Selected.Of(tt.kind).Has(tt.id) {
				t.Fatalf("%s not selected after check", tt.id)
			}
			unchecked := mustApply(t, checked, h, Toggle(tt.kind, tt.id, false))
			if !unchecked.Selected.Of(tt.kind).equal(base.Selected.Of(tt.kind)) {
				t.Fatalf("set = %v, want %v", unchecked.Selected.Of(tt.kind).Sorted(), base.Selected.Of(tt.kind).Sorted())
			}
		})
	}
}

func TestToggleDoesNotCascade(t *testing.T) {
	h := testHierarchy()
	s := mustApply(t, NewState(testNow), h, SelectCampaign("c1"))
	s = mustApply(t, s, h, Toggle(KindAdSets, "as1", true))

	next := mustApply(t, s, h, Toggle(KindCampaigns, "c1", false))
	if !next.Selected.AdSets.Has("as1") {
		t.Fatal("unchecking a campaign must not touch the ad set selection")
	}
}

func TestToggleRejectsIDOutsideView(t *testing.T) {
	h := testHierarchy()
	s := mustApply(t, NewState(testNow), h, SelectCampaign("c1"))

	_, _, err := Apply(s, h, Toggle(KindAdSets, "as3", true), testNow)
	if !errors.Is(err, ErrInvalidSelection) {
		t.Fatalf("err = %v, want ErrInvalidSelection", err)
	}

	// unchecking is always allowed
	if _, _, err := Apply(s, h, Toggle(KindAdSets, "as3", false), testNow); err != nil {
		t.Fatalf("uncheck: %v", err)
	}
}

func TestSelectAllVisibleThenClear(t *testing.T) {
	h := testHierarchy()
	s := mustApply(t, NewState(testNow), h, SelectCampaign("c1"))
	s = mustApply(t, s, h, SelectAdSet("as1"))

	s = mustApply(t, s, h, SelectAllVisible(KindAds, []string{"ad1", "ad2", "ad4"}))
	if got := s.Selected.Ads.Sorted(); len(got) != 2 || got[0] != "ad1" || got[1] != "ad2" {
		t.Fatalf("ads = %v, want [ad1 ad2]", got)
	}

	s = mustApply(t, s, h, ClearAll(KindAds))
	if s.Selected.Ads.Len() != 0 {
		t.Fatalf("ads = %v, want empty", s.Selected.Ads.Sorted())
	}
}

func TestSelectAllVisibleReplacesSet(t *testing.T) {
	h := testHierarchy()
	s := mustApply(t, NewState(testNow), h, Toggle(KindMetrics, "cpc", true))

	s = mustApply(t, s, h, SelectAllVisible(KindMetrics, []string{"ctr", "clicks"}))
	if s.Selected.Metrics.Has("cpc") {
		t.Fatal("select all must replace the set, not merge into it")
	}
	if s.Selected.Metrics.Len() != 2 {
		t.Fatalf("metrics = %v, want 2 entries", s.Selected.Metrics.Sorted())
	}
}

func TestApplyPresetIsRelativeToNow(t *testing.T) {
	h := testHierarchy()
	s, change, err := Apply(NewState(testNow), h, ApplyPreset(7), testNow)
	if err != nil {
		t.Fatalf("apply preset: %v", err)
	}
	if change != ChangeDateRange {
		t.Fatalf("change = %v, want date_range", change.Views())
	}
	if !s.DateRange.End.Equal(testNow) || !s.DateRange.Start.Equal(testNow.Add(-7*24*time.Hour)) {
		t.Fatalf("range = %+v", s.DateRange)
	}

	later := testNow.Add(time.Hour)
	s, _, err = Apply(s, h, ApplyPreset(7), later)
	if err != nil {
		t.Fatalf("apply preset again: %v", err)
	}
	if !s.DateRange.End.Equal(later) || !s.DateRange.Start.Equal(later.Add(-7*24*time.Hour)) {
		t.Fatalf("range = %+v, want bounds relative to %s", s.DateRange, later)
	}
}

func TestSetDateRangeDoesNotEnforceOrder(t *testing.T) {
	start := testNow
	end := testNow.Add(-48 * time.Hour)
	s := mustApply(t, NewState(testNow), testHierarchy(), SetDateRange(start, end))
	if !s.DateRange.Start.Equal(start) || !s.DateRange.End.Equal(end) {
		t.Fatalf("range = %+v", s.DateRange)
	}
	if s.DateRange.Ordered() {
		t.Fatal("expected an inverted range to be stored as given")
	}
}

func TestApplyRejectsBadActions(t *testing.T) {
	h := testHierarchy()
	tests := []struct {
		name   string
		action Action
	}{
		{name: "unknown type", action: Action{Type: "explode"}},
		{name: "unknown kind", action: Toggle("widgets", "x", true)},
		{name: "clear unknown kind", action: ClearAll("widgets")},
		{name: "negative preset", action: ApplyPreset(-1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := Apply(NewState(testNow), h, tt.action, testNow)
			if !errors.Is(err, ErrInvalidAction) {
				t.Fatalf("err = %v, want ErrInvalidAction", err)
			}
		})
	}
}

func TestDrillDownScenario(t *testing.T) {
	h := testHierarchy()
	s := mustApply(t, NewState(testNow), h, SelectCampaign("c1"))

	adsets := h.AdSetsOf(s.Focus.CampaignID())
	if len(adsets) != 2 || adsets[0].ID != "as1" {
		t.Fatalf("adsets view = %+v", adsets)
	}

	s = mustApply(t, s, h, SelectAdSet("as1"))
	ads := h.AdsOf(s.Focus.CampaignID(), s.Focus.AdSetID())
	if len(ads) != 2 {
		t.Fatalf("ads view = %+v", ads)
	}
	s = mustApply(t, s, h, Toggle(KindAds, "ad1", true))

	s = mustApply(t, s, h, SelectCampaign("c2"))
	if s.Focus.AdSetID() != "" {
		t.Fatalf("ad set focus = %q, want none", s.Focus.AdSetID())
	}
	if got := h.AdsOf(s.Focus.CampaignID(), s.Focus.AdSetID()); len(got) != 0 {
		t.Fatalf("ads view = %+v, want empty", got)
	}
	if s.Selected.Ads.Len() != 0 {
		t.Fatalf("ads selection = %v, want empty", s.Selected.Ads.Sorted())
	}
}
