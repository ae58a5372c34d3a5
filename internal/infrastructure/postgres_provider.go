package infrastructure

import (
	"context"
	"fmt"
	"time"

	"adsdash/internal/domain"
	"adsdash/pkg/logger"
	"adsdash/pkg/metrics"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const providerPostgres = "postgres"

// NewPostgresPool creates a PostgreSQL connection pool and pings it
func NewPostgresPool(ctx context.Context, dsn string, maxConns, minConns int32) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parsing dsn: %w", err)
	}

	if maxConns > 0 {
		config.MaxConns = maxConns
	}
	if minConns > 0 {
		config.MinConns = minConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("creating pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return pool, nil
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// PostgresProvider reads the hierarchy from the campaigns, adsets, ads and
// metrics tables. Ad sets are narrowed to the filter's selected campaigns
// and ads to its selected ad sets; an empty selection means all rows.
type PostgresProvider struct {
	db      querier
	logger  *logger.Logger
	metrics *metrics.Metrics
}

func NewPostgresProvider(pool *pgxpool.Pool, logger *logger.Logger, metrics *metrics.Metrics) *PostgresProvider {
	return &PostgresProvider{db: pool, logger: logger, metrics: metrics}
}

func (p *PostgresProvider) FetchCampaigns(ctx context.Context, _ domain.HierarchyFilter) (*domain.CampaignsDocument, error) {
	start := time.Now()

	rows, err := p.db.Query(ctx, `
		SELECT id, name, status
		FROM campaigns ORDER BY name, id
	`)
	if err != nil {
		return nil, p.failed(DocCampaigns, "query", err)
	}
	defer rows.Close()

	campaigns := []domain.Campaign{}
	for rows.Next() {
		var c domain.Campaign
		if err := rows.Scan(&c.ID, &c.Name, &c.Status); err != nil {
			return nil, p.failed(DocCampaigns, "scan", err)
		}
		campaigns = append(campaigns, c)
	}
	if err := rows.Err(); err != nil {
		return nil, p.failed(DocCampaigns, "rows", err)
	}

	p.metrics.RecordProviderCall(providerPostgres, DocCampaigns, "success", time.Since(start))
	return &domain.CampaignsDocument{Campaigns: campaigns}, nil
}

func (p *PostgresProvider) FetchAdSets(ctx context.Context, filter domain.HierarchyFilter) (*domain.AdSetsDocument, error) {
	start := time.Now()

	rows, err := p.db.Query(ctx, `
		SELECT id, campaign_id, name, status
		FROM adsets
		WHERE cardinality($1::text[]) = 0 OR campaign_id = ANY($1)
		ORDER BY campaign_id, name, id
	`, nonNil(filter.SelectedCampaigns))
	if err != nil {
		return nil, p.failed(DocAdSets, "query", err)
	}
	defer rows.Close()

	adsets := map[string][]domain.AdSet{}
	for rows.Next() {
		var (
			a          domain.AdSet
			campaignID string
		)
		if err := rows.Scan(&a.ID, &campaignID, &a.Name, &a.Status); err != nil {
			return nil, p.failed(DocAdSets, "scan", err)
		}
		adsets[campaignID] = append(adsets[campaignID], a)
	}
	if err := rows.Err(); err != nil {
		return nil, p.failed(DocAdSets, "rows", err)
	}

	p.metrics.RecordProviderCall(providerPostgres, DocAdSets, "success", time.Since(start))
	return &domain.AdSetsDocument{AdSets: adsets}, nil
}

func (p *PostgresProvider) FetchAds(ctx context.Context, filter domain.HierarchyFilter) (*domain.AdsDocument, error) {
	start := time.Now()

	rows, err := p.db.Query(ctx, `
		SELECT id, adset_id, name, status
		FROM ads
		WHERE cardinality($1::text[]) = 0 OR adset_id = ANY($1)
		ORDER BY adset_id, name, id
	`, nonNil(filter.SelectedAdSets))
	if err != nil {
		return nil, p.failed(DocAds, "query", err)
	}
	defer rows.Close()

	ads := map[string][]domain.Ad{}
	for rows.Next() {
		var (
			a       domain.Ad
			adsetID string
		)
		if err := rows.Scan(&a.ID, &adsetID, &a.Name, &a.Status); err != nil {
			return nil, p.failed(DocAds, "scan", err)
		}
		ads[adsetID] = append(ads[adsetID], a)
	}
	if err := rows.Err(); err != nil {
		return nil, p.failed(DocAds, "rows", err)
	}

	p.metrics.RecordProviderCall(providerPostgres, DocAds, "success", time.Since(start))
	return &domain.AdsDocument{Ads: ads}, nil
}

// FetchMetrics serves the built-in catalog when the metrics table is empty
func (p *PostgresProvider) FetchMetrics(ctx context.Context) (*domain.MetricsDocument, error) {
	start := time.Now()

	rows, err := p.db.Query(ctx, `
		SELECT id, label, category, COALESCE(description, '')
		FROM metrics ORDER BY position, id
	`)
	if err != nil {
		return nil, p.failed(DocMetrics, "query", err)
	}
	defer rows.Close()

	var catalog []domain.Metric
	for rows.Next() {
		var m domain.Metric
		if err := rows.Scan(&m.ID, &m.Label, &m.Category, &m.Description); err != nil {
			return nil, p.failed(DocMetrics, "scan", err)
		}
		catalog = append(catalog, m)
	}
	if err := rows.Err(); err != nil {
		return nil, p.failed(DocMetrics, "rows", err)
	}

	p.metrics.RecordProviderCall(providerPostgres, DocMetrics, "success", time.Since(start))
	if len(catalog) == 0 {
		p.logger.WithContext(ctx).Debug("Metrics table is empty, serving built-in catalog")
		return builtinMetricsDocument(), nil
	}
	return &domain.MetricsDocument{Metrics: catalog}, nil
}

func (p *PostgresProvider) failed(doc, errType string, err error) error {
	p.metrics.RecordProviderFailure(providerPostgres, doc, errType)
	return fmt.Errorf("failed to load %s: %w", doc, err)
}

func nonNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}
