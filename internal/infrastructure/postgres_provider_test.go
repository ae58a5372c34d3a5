package infrastructure

import (
	"context"
	"os"
	"testing"

	"adsdash/internal/domain"
	"adsdash/pkg/logger"
	"adsdash/pkg/metrics"

	"github.com/prometheus/client_golang/prometheus"
)

func TestNonNil(t *testing.T) {
	if got := nonNil(nil); got == nil || len(got) != 0 {
		t.Fatalf("nonNil(nil) = %#v, want empty slice", got)
	}
	if got := nonNil([]string{"a"}); len(got) != 1 {
		t.Fatalf("nonNil = %v", got)
	}
}

// Runs against a database migrated with migrations/0001_dashboard.sql
func TestPostgresProvider(t *testing.T) {
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx := context.Background()

	pool, err := NewPostgresPool(ctx, dsn, 2, 0)
	if err != nil {
		t.Fatalf("pool: %v", err)
	}
	defer pool.Close()

	_, err = pool.Exec(ctx, `
		TRUNCATE ads, adsets, campaigns, metrics;
		INSERT INTO campaigns (id, name, status) VALUES ('c1', 'Summer Sale', 'ACTIVE'), ('c2', 'Winter Launch', 'PAUSED');
		INSERT INTO adsets (id, campaign_id, name, status) VALUES ('as1', 'c1', 'Lookalike', 'ACTIVE'), ('as3', 'c2', 'Broad', 'ACTIVE');
		INSERT INTO ads (id, adset_id, name, status) VALUES ('ad1', 'as1', 'Carousel', 'ACTIVE'), ('ad4', 'as3', 'Story', 'PAUSED');
	`)
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	p := NewPostgresProvider(pool, logger.Discard(), metrics.New(prometheus.NewRegistry()))

	campaigns, err := p.FetchCampaigns(ctx, domain.HierarchyFilter{})
	if err != nil {
		t.Fatalf("campaigns: %v", err)
	}
	if len(campaigns.Campaigns) != 2 {
		t.Fatalf("campaigns = %+v", campaigns.Campaigns)
	}

	all, err := p.FetchAdSets(ctx, domain.HierarchyFilter{})
	if err != nil {
		t.Fatalf("adsets: %v", err)
	}
	if len(all.AdSets) != 2 {
		t.Fatalf("adsets = %+v", all.AdSets)
	}

	scoped, err := p.FetchAdSets(ctx, domain.HierarchyFilter{SelectedCampaigns: []string{"c2"}})
	if err != nil {
		t.Fatalf("scoped adsets: %v", err)
	}
	if _, ok := scoped.AdSets["c1"]; ok || len(scoped.AdSets["c2"]) != 1 {
		t.Fatalf("scoped adsets = %+v", scoped.AdSets)
	}

	ads, err := p.FetchAds(ctx, domain.HierarchyFilter{SelectedAdSets: []string{"as1"}})
	if err != nil {
		t.Fatalf("ads: %v", err)
	}
	if len(ads.Ads) != 1 || ads.Ads["as1"][0].ID != "ad1" {
		t.Fatalf("ads = %+v", ads.Ads)
	}

	catalog, err := p.FetchMetrics(ctx)
	if err != nil {
		t.Fatalf("metrics: %v", err)
	}
	if len(catalog.Metrics) != len(domain.BuiltinMetrics()) {
		t.Fatalf("metrics = %d, want builtin catalog for an empty table", len(catalog.Metrics))
	}
}
