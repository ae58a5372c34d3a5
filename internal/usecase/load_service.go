package usecase

import (
	"context"
	"fmt"
	"time"

	"adsdash/internal/domain"
	"adsdash/pkg/logger"
	"adsdash/pkg/metrics"

	"golang.org/x/sync/errgroup"
)

// FallbackMessage is shown to the user when a load fails
const FallbackMessage = "Failed to load data. Please try again."

type LoadService struct {
	provider domain.DataProvider
	logger   *logger.Logger
	metrics  *metrics.Metrics
	timeout  time.Duration
}

// NewLoadService creates a loader. A zero timeout means no deadline
// beyond the caller's context.
func NewLoadService(
	provider domain.DataProvider,
	logger *logger.Logger,
	metrics *metrics.Metrics,
	timeout time.Duration,
) *LoadService {
	return &LoadService{
		provider: provider,
		logger:   logger,
		metrics:  metrics,
		timeout:  timeout,
	}
}

// Load fetches the whole hierarchy and installs it in store. When any
// fetch fails the load is abandoned, the store receives the fallback
// dataset plus an error notice, and the returned error wraps
// domain.ErrDataFetch. The store is never left half populated.
func (s *LoadService) Load(ctx context.Context, store *Store, filter domain.HierarchyFilter) error {
	start := time.Now()
	s.metrics.IncDataLoadsInFlight()
	defer s.metrics.DecDataLoadsInFlight()

	log := s.logger.WithContext(ctx)
	log.WithField("filtered", !filter.IsZero()).Info("Loading dashboard data")

	h, err := s.fetch(ctx, filter)
	if err != nil {
		s.metrics.RecordDataLoad("fallback", time.Since(start))
		log.WithError(err).Error("Dashboard data load failed, using fallback dataset")

		store.ReplaceHierarchy(domain.FallbackHierarchy())
		store.ReportError(FallbackMessage)
		return fmt.Errorf("%w: %w", domain.ErrDataFetch, err)
	}

	store.ReplaceHierarchy(h)

	counts := h.Counts()
	for collection, n := range counts {
		s.metrics.RecordRecordsLoaded(collection, n)
	}
	duration := time.Since(start)
	s.metrics.RecordDataLoad("success", duration)

	log.WithFields(map[string]any{
		"duration":  duration,
		"campaigns": counts["campaigns"],
		"adsets":    counts["adsets"],
		"ads":       counts["ads"],
		"metrics":   counts["metrics"],
	}).Info("Dashboard data loaded")

	return nil
}

// Refresh reloads with the store's current selection as filter payload
func (s *LoadService) Refresh(ctx context.Context, store *Store) error {
	filter := domain.FilterFromState(store.State())

	s.logger.WithContext(ctx).WithFields(map[string]any{
		"metrics":   len(filter.SelectedMetrics),
		"campaigns": len(filter.SelectedCampaigns),
		"adsets":    len(filter.SelectedAdSets),
		"ads":       len(filter.SelectedAds),
	}).Info("Refreshing dashboard data with filters")

	return s.Load(ctx, store, filter)
}

// fetch runs the four provider calls concurrently; the first error
// cancels the rest.
func (s *LoadService) fetch(ctx context.Context, filter domain.HierarchyFilter) (domain.Hierarchy, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	var (
		campaigns *domain.CampaignsDocument
		adsets    *domain.AdSetsDocument
		ads       *domain.AdsDocument
		catalog   *domain.MetricsDocument
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		var err error
		campaigns, err = s.provider.FetchCampaigns(gctx, filter)
		if err != nil {
			return fmt.Errorf("campaigns: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		var err error
		adsets, err = s.provider.FetchAdSets(gctx, filter)
		if err != nil {
			return fmt.Errorf("adsets: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		var err error
		ads, err = s.provider.FetchAds(gctx, filter)
		if err != nil {
			return fmt.Errorf("ads: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		var err error
		catalog, err = s.provider.FetchMetrics(gctx)
		if err != nil {
			return fmt.Errorf("metrics: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return domain.Hierarchy{}, err
	}

	return domain.NewHierarchy(campaigns, adsets, ads, catalog), nil
}
