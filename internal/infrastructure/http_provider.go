package infrastructure

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"adsdash/internal/domain"
	"adsdash/pkg/logger"
	"adsdash/pkg/metrics"

	"golang.org/x/time/rate"
)

const providerHTTP = "http"

// implements domain.DataProvider against a remote document server
type HTTPProvider struct {
	client       *http.Client
	baseURL      string
	parametrized bool
	logger       *logger.Logger
	metrics      *metrics.Metrics
	rateLimiter  *rate.Limiter
}

type HTTPProviderOptions struct {
	BaseURL string
	// Parametrized POSTs the current filter to <base>/<doc> instead of
	// GETting the static <base>/<doc>.json
	Parametrized       bool
	Timeout            time.Duration
	RateLimitPerSecond float64
}

func NewHTTPProvider(opts HTTPProviderOptions, logger *logger.Logger, metrics *metrics.Metrics) *HTTPProvider {
	limit := rate.Inf
	if opts.RateLimitPerSecond > 0 {
		limit = rate.Limit(opts.RateLimitPerSecond)
	}
	return &HTTPProvider{
		client: &http.Client{
			Timeout: opts.Timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		baseURL:      strings.TrimRight(opts.BaseURL, "/"),
		parametrized: opts.Parametrized,
		logger:       logger,
		metrics:      metrics,
		rateLimiter:  rate.NewLimiter(limit, 10),
	}
}

func (p *HTTPProvider) FetchCampaigns(ctx context.Context, filter domain.HierarchyFilter) (*domain.CampaignsDocument, error) {
	body, err := p.fetch(ctx, DocCampaigns, &filter)
	if err != nil {
		return nil, err
	}
	d, err := decodeCampaigns(body)
	if err != nil {
		p.metrics.RecordProviderFailure(providerHTTP, DocCampaigns, "json_parse")
		return nil, err
	}
	p.logFetched(ctx, DocCampaigns, len(d.Campaigns))
	return d, nil
}

func (p *HTTPProvider) FetchAdSets(ctx context.Context, filter domain.HierarchyFilter) (*domain.AdSetsDocument, error) {
	body, err := p.fetch(ctx, DocAdSets, &filter)
	if err != nil {
		return nil, err
	}
	d, err := decodeAdSets(body)
	if err != nil {
		p.metrics.RecordProviderFailure(providerHTTP, DocAdSets, "json_parse")
		return nil, err
	}
	p.logFetched(ctx, DocAdSets, len(d.AdSets))
	return d, nil
}

func (p *HTTPProvider) FetchAds(ctx context.Context, filter domain.HierarchyFilter) (*domain.AdsDocument, error) {
	body, err := p.fetch(ctx, DocAds, &filter)
	if err != nil {
		return nil, err
	}
	d, err := decodeAds(body)
	if err != nil {
		p.metrics.RecordProviderFailure(providerHTTP, DocAds, "json_parse")
		return nil, err
	}
	p.logFetched(ctx, DocAds, len(d.Ads))
	return d, nil
}

// FetchMetrics always GETs the static catalog; it takes no filter
func (p *HTTPProvider) FetchMetrics(ctx context.Context) (*domain.MetricsDocument, error) {
	body, err := p.fetch(ctx, DocMetrics, nil)
	if err != nil {
		return nil, err
	}
	d, err := decodeMetrics(body)
	if err != nil {
		p.metrics.RecordProviderFailure(providerHTTP, DocMetrics, "json_parse")
		return nil, err
	}
	p.logFetched(ctx, DocMetrics, len(d.Metrics))
	return d, nil
}

func (p *HTTPProvider) fetch(ctx context.Context, doc string, filter *domain.HierarchyFilter) ([]byte, error) {
	start := time.Now()

	if err := p.rateLimiter.Wait(ctx); err != nil {
		p.metrics.RecordProviderFailure(providerHTTP, doc, "rate_limit")
		return nil, fmt.Errorf("rate limit exceeded: %w", err)
	}

	req, err := p.newRequest(ctx, doc, filter)
	if err != nil {
		p.metrics.RecordProviderFailure(providerHTTP, doc, "request_creation")
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		p.metrics.RecordProviderFailure(providerHTTP, doc, "network_error")
		return nil, fmt.Errorf("failed to fetch %s: %w", doc, err)
	}
	defer resp.Body.Close()

	duration := time.Since(start)

	if resp.StatusCode != http.StatusOK {
		p.metrics.RecordProviderCall(providerHTTP, doc, fmt.Sprintf("error_%d", resp.StatusCode), duration)
		return nil, fmt.Errorf("%s endpoint returned status %d", doc, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		p.metrics.RecordProviderFailure(providerHTTP, doc, "read_body")
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	p.metrics.RecordProviderCall(providerHTTP, doc, "success", duration)
	return body, nil
}

func (p *HTTPProvider) newRequest(ctx context.Context, doc string, filter *domain.HierarchyFilter) (*http.Request, error) {
	if !p.parametrized || filter == nil {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/"+doc+".json", nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		return req, nil
	}

	payload, err := json.Marshal(filter)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal filter: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/"+doc, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	return req, nil
}

func (p *HTTPProvider) logFetched(ctx context.Context, doc string, records int) {
	p.logger.WithContext(ctx).WithFields(map[string]any{
		"document": doc,
		"base_url": p.baseURL,
		"records":  records,
	}).Debug("Fetched provider document")
}
