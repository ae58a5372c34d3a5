package usecase

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"adsdash/internal/domain"
	"adsdash/pkg/logger"
	"adsdash/pkg/metrics"

	"github.com/prometheus/client_golang/prometheus"
)

var testNow = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

func testHierarchy() domain.Hierarchy {
	return domain.Hierarchy{
		Campaigns: []domain.Campaign{
			{ID: "c1", Name: "Summer Sale", Status: domain.StatusActive},
			{ID: "c2", Name: "Winter Launch", Status: domain.StatusPaused},
		},
		AdSets: map[string][]domain.AdSet{
			"c1": {{ID: "as1", Name: "Lookalike"}, {ID: "as2", Name: "Retargeting"}},
			"c2": {{ID: "as3", Name: "Broad"}},
		},
		Ads: map[string][]domain.Ad{
			"as1": {{ID: "ad1", Name: "Carousel"}, {ID: "ad2", Name: "Video"}},
			"as3": {{ID: "ad4", Name: "Story"}},
		},
		Metrics: domain.BuiltinMetrics(),
	}
}

func newTestStore(t *testing.T, opts ...StoreOption) *Store {
	t.Helper()
	opts = append([]StoreOption{WithClock(func() time.Time { return testNow })}, opts...)
	return NewStore(logger.Discard(), metrics.New(prometheus.NewRegistry()), opts...)
}

// fakeProvider serves a fixed hierarchy; failing documents return errFake
type fakeProvider struct {
	mu       sync.Mutex
	h        domain.Hierarchy
	fail     map[string]bool
	delay    time.Duration
	filters  []domain.HierarchyFilter
	inFlight int
	maxSeen  int
}

var errFake = errors.New("fixture unavailable")

func newFakeProvider(h domain.Hierarchy) *fakeProvider {
	return &fakeProvider{h: h, fail: map[string]bool{}}
}

func (p *fakeProvider) enter(ctx context.Context, doc string) error {
	p.mu.Lock()
	p.inFlight++
	if p.inFlight > p.maxSeen {
		p.maxSeen = p.inFlight
	}
	fail := p.fail[doc]
	delay := p.delay
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		p.inFlight--
		p.mu.Unlock()
	}()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if fail {
		return errFake
	}
	return nil
}

func (p *fakeProvider) FetchCampaigns(ctx context.Context, filter domain.HierarchyFilter) (*domain.CampaignsDocument, error) {
	p.mu.Lock()
	p.filters = append(p.filters, filter)
	p.mu.Unlock()
	if err := p.enter(ctx, "campaigns"); err != nil {
		return nil, err
	}
	return &domain.CampaignsDocument{Campaigns: p.h.Campaigns}, nil
}

func (p *fakeProvider) FetchAdSets(ctx context.Context, _ domain.HierarchyFilter) (*domain.AdSetsDocument, error) {
	if err := p.enter(ctx, "adsets"); err != nil {
		return nil, err
	}
	return &domain.AdSetsDocument{AdSets: p.h.AdSets}, nil
}

func (p *fakeProvider) FetchAds(ctx context.Context, _ domain.HierarchyFilter) (*domain.AdsDocument, error) {
	if err := p.enter(ctx, "ads"); err != nil {
		return nil, err
	}
	return &domain.AdsDocument{Ads: p.h.Ads}, nil
}

func (p *fakeProvider) FetchMetrics(ctx context.Context) (*domain.MetricsDocument, error) {
	if err := p.enter(ctx, "metrics"); err != nil {
		return nil, err
	}
	return &domain.MetricsDocument{Metrics: p.h.Metrics}, nil
}

// memoryRepo is a minimal SessionRepository for service tests
type memoryRepo struct {
	mu        sync.Mutex
	snapshots map[string]domain.SessionSnapshot
	saves     int
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{snapshots: map[string]domain.SessionSnapshot{}}
}

func (r *memoryRepo) Save(_ context.Context, s domain.SessionSnapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snapshots[s.ID] = s
	r.saves++
	return nil
}

func (r *memoryRepo) Load(_ context.Context, id string) (*domain.SessionSnapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.snapshots[id]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func (r *memoryRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.snapshots, id)
	return nil
}

// gatedRepo holds the first Save after hold() until release is closed
type gatedRepo struct {
	*memoryRepo
	armed   atomic.Bool
	entered chan struct{}
	release chan struct{}
}

func newGatedRepo() *gatedRepo {
	return &gatedRepo{
		memoryRepo: newMemoryRepo(),
		entered:    make(chan struct{}),
		release:    make(chan struct{}),
	}
}

func (r *gatedRepo) hold() { r.armed.Store(true) }

func (r *gatedRepo) Save(ctx context.Context, s domain.SessionSnapshot) error {
	if r.armed.CompareAndSwap(true, false) {
		close(r.entered)
		<-r.release
	}
	return r.memoryRepo.Save(ctx, s)
}
