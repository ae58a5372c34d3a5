package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"adsdash/internal/domain"
	"adsdash/pkg/logger"
	"adsdash/pkg/metrics"

	"github.com/prometheus/client_golang/prometheus"
)

func newTestSessionService(t *testing.T, provider *fakeProvider, repo domain.SessionRepository) *SessionService {
	t.Helper()
	log := logger.Discard()
	m := metrics.New(prometheus.NewRegistry())
	loader := NewLoadService(provider, log, m, 0)
	return NewSessionService(loader, repo, log, m, time.Minute, time.Hour)
}

func TestSessionServiceCreateAndDispatch(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestSessionService(t, newFakeProvider(testHierarchy()), repo)
	ctx := context.Background()

	session, err := svc.Create(ctx)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if session.ID == "" {
		t.Fatal("session id should be set")
	}
	if svc.Count() != 1 {
		t.Fatalf("count = %d, want 1", svc.Count())
	}

	change, err := svc.Dispatch(ctx, session.ID, domain.SelectCampaign("c1"))
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if !change.Has(domain.ChangeAdSets) {
		t.Fatalf("change = %v", change.Views())
	}

	snapshot, err := repo.Load(ctx, session.ID)
	if err != nil || snapshot == nil {
		t.Fatalf("snapshot = %v, %v", snapshot, err)
	}
	if snapshot.State.Focus.CampaignID() != "c1" {
		t.Fatalf("persisted focus = %+v, want c1", snapshot.State.Focus)
	}
}

func TestSessionServiceCreateWithFailedLoad(t *testing.T) {
	provider := newFakeProvider(testHierarchy())
	provider.fail["ads"] = true
	svc := newTestSessionService(t, provider, newMemoryRepo())

	session, err := svc.Create(context.Background())
	if !errors.Is(err, domain.ErrDataFetch) {
		t.Fatalf("err = %v, want ErrDataFetch", err)
	}
	if session == nil {
		t.Fatal("a failed load still yields a session")
	}
	if session.Store.Notice() == nil {
		t.Fatal("fallback session should carry a notice")
	}
}

func TestSessionServiceRejectedDispatchIsNotPersisted(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestSessionService(t, newFakeProvider(testHierarchy()), repo)
	ctx := context.Background()

	session, err := svc.Create(ctx)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	saves := repo.saves

	_, err = svc.Dispatch(ctx, session.ID, domain.SelectCampaign("missing"))
	if !errors.Is(err, domain.ErrInvalidSelection) {
		t.Fatalf("err = %v, want ErrInvalidSelection", err)
	}
	if repo.saves != saves {
		t.Fatalf("saves = %d, want %d", repo.saves, saves)
	}
}

func TestSessionServiceRestoresFromRepository(t *testing.T) {
	repo := newMemoryRepo()
	provider := newFakeProvider(testHierarchy())
	ctx := context.Background()

	first := newTestSessionService(t, provider, repo)
	session, err := first.Create(ctx)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	for _, a := range []domain.Action{
		domain.SelectCampaign("c1"),
		domain.SelectAdSet("as1"),
		domain.Toggle(domain.KindAds, "ad2", true),
	} {
		if _, err := first.Dispatch(ctx, session.ID, a); err != nil {
			t.Fatalf("%s: %v", a.Type, err)
		}
	}

	// a fresh service simulates a restart
	second := newTestSessionService(t, provider, repo)
	restored, err := second.Get(ctx, session.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	state := restored.Store.State()
	if state.Focus.AdSetID() != "as1" {
		t.Fatalf("focus = %+v, want as1", state.Focus)
	}
	if !state.Selected.Ads.Has("ad2") {
		t.Fatal("restored session lost its ad selection")
	}
	if !restored.CreatedAt.Equal(session.CreatedAt) {
		t.Fatalf("created_at = %v, want %v", restored.CreatedAt, session.CreatedAt)
	}
}

func TestSessionServiceRestorePrunesStaleIDs(t *testing.T) {
	repo := newMemoryRepo()
	ctx := context.Background()

	state := domain.NewState(testNow)
	state.Focus = domain.AdSetFocus("gone", "gone-set")
	state.Selected.Campaigns = domain.NewIDSet("c1", "gone")
	if err := repo.Save(ctx, domain.SessionSnapshot{ID: "s1", State: state, CreatedAt: testNow}); err != nil {
		t.Fatalf("save: %v", err)
	}

	svc := newTestSessionService(t, newFakeProvider(testHierarchy()), repo)
	session, err := svc.Get(ctx, "s1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	got := session.Store.State()
	if got.Focus.Level != domain.FocusNone {
		t.Fatalf("focus = %+v, want none", got.Focus)
	}
	if got.Selected.Campaigns.Has("gone") || !got.Selected.Campaigns.Has("c1") {
		t.Fatalf("campaigns = %v, want [c1]", got.Selected.Campaigns.Sorted())
	}
}

func TestSessionServiceNotFound(t *testing.T) {
	svc := newTestSessionService(t, newFakeProvider(testHierarchy()), newMemoryRepo())
	ctx := context.Background()

	if _, err := svc.Get(ctx, "nope"); !IsNotFound(err) {
		t.Fatalf("get err = %v, want not found", err)
	}
	if _, err := svc.Dispatch(ctx, "nope", domain.ClearAll(domain.KindAds)); !IsNotFound(err) {
		t.Fatalf("dispatch err = %v, want not found", err)
	}
	if err := svc.Delete(ctx, "nope"); !IsNotFound(err) {
		t.Fatalf("delete err = %v, want not found", err)
	}
}

func TestSessionServiceDelete(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestSessionService(t, newFakeProvider(testHierarchy()), repo)
	ctx := context.Background()

	session, err := svc.Create(ctx)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	changes, _ := session.Store.Subscribe()

	if err := svc.Delete(ctx, session.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if svc.Count() != 0 {
		t.Fatalf("count = %d, want 0", svc.Count())
	}
	if snap, _ := repo.Load(ctx, session.ID); snap != nil {
		t.Fatal("snapshot should be removed")
	}
	for range changes {
	}
	if _, err := svc.Get(ctx, session.ID); !IsNotFound(err) {
		t.Fatalf("get after delete = %v, want not found", err)
	}
}

func TestSessionServiceRefreshUsesSelection(t *testing.T) {
	provider := newFakeProvider(testHierarchy())
	svc := newTestSessionService(t, provider, newMemoryRepo())
	ctx := context.Background()

	session, err := svc.Create(ctx)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.Dispatch(ctx, session.ID, domain.Toggle(domain.KindCampaigns, "c2", true)); err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if _, err := svc.Refresh(ctx, session.ID); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	last := provider.filters[len(provider.filters)-1]
	if len(last.SelectedCampaigns) != 1 || last.SelectedCampaigns[0] != "c2" {
		t.Fatalf("filter = %+v, want c2", last)
	}

	if _, err := svc.Reload(ctx, session.ID); err != nil {
		t.Fatalf("reload: %v", err)
	}
	if last := provider.filters[len(provider.filters)-1]; !last.IsZero() {
		t.Fatalf("reload filter = %+v, want zero", last)
	}
}

func TestSessionServiceSavesDispatchesInOrder(t *testing.T) {
	repo := newGatedRepo()
	svc := newTestSessionService(t, newFakeProvider(testHierarchy()), repo)
	ctx := context.Background()

	session, err := svc.Create(ctx)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	repo.hold()
	first := make(chan error, 1)
	go func() {
		_, err := svc.Dispatch(ctx, session.ID, domain.Toggle(domain.KindCampaigns, "c1", true))
		first <- err
	}()
	<-repo.entered

	second := make(chan error, 1)
	go func() {
		_, err := svc.Dispatch(ctx, session.ID, domain.Toggle(domain.KindCampaigns, "c2", true))
		second <- err
	}()

	// let the second dispatch race the held save
	time.Sleep(20 * time.Millisecond)
	close(repo.release)

	if err := <-first; err != nil {
		t.Fatalf("first dispatch: %v", err)
	}
	if err := <-second; err != nil {
		t.Fatalf("second dispatch: %v", err)
	}

	snapshot, _ := repo.Load(ctx, session.ID)
	got := snapshot.State.Selected.Campaigns
	if !got.Has("c1") || !got.Has("c2") {
		t.Fatalf("persisted campaigns = %v, want [c1 c2]", got.Sorted())
	}
}

func TestSessionServiceEvictIdle(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestSessionService(t, newFakeProvider(testHierarchy()), repo)
	now := testNow
	svc.now = func() time.Time { return now }
	ctx := context.Background()

	idle, err := svc.Create(ctx)
	if err != nil {
		t.Fatalf("create idle: %v", err)
	}
	busy, err := svc.Create(ctx)
	if err != nil {
		t.Fatalf("create busy: %v", err)
	}

	now = now.Add(30 * time.Minute)
	if _, err := svc.Get(ctx, busy.ID); err != nil {
		t.Fatalf("get busy: %v", err)
	}

	now = now.Add(45 * time.Minute)
	if n := svc.EvictIdle(ctx); n != 1 {
		t.Fatalf("evicted = %d, want 1", n)
	}
	if svc.Count() != 1 {
		t.Fatalf("count = %d, want 1", svc.Count())
	}

	// the snapshot survives eviction
	restored, err := svc.Get(ctx, idle.ID)
	if err != nil {
		t.Fatalf("get evicted: %v", err)
	}
	if restored == idle {
		t.Fatal("evicted session should be restored into a new store")
	}

	// an open event stream keeps a session alive
	_, cancel := busy.Store.Subscribe()
	defer cancel()
	now = now.Add(2 * time.Hour)
	if n := svc.EvictIdle(ctx); n != 1 {
		t.Fatalf("evicted = %d, want 1", n)
	}
	if _, err := svc.Get(ctx, busy.ID); err != nil || svc.Count() != 1 {
		t.Fatalf("busy session should stay in memory: count = %d, err = %v", svc.Count(), err)
	}
}
