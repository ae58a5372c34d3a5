package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"adsdash/internal/domain"
	"adsdash/pkg/logger"
	"adsdash/pkg/metrics"
)

const providerFile = "file"

// FileProvider serves the four documents from a directory of JSON files
type FileProvider struct {
	fsys    fs.FS
	logger  *logger.Logger
	metrics *metrics.Metrics
}

func NewFileProvider(dir string, logger *logger.Logger, metrics *metrics.Metrics) *FileProvider {
	return NewFileProviderFS(os.DirFS(dir), logger, metrics)
}

func NewFileProviderFS(fsys fs.FS, logger *logger.Logger, metrics *metrics.Metrics) *FileProvider {
	return &FileProvider{fsys: fsys, logger: logger, metrics: metrics}
}

func (p *FileProvider) FetchCampaigns(ctx context.Context, _ domain.HierarchyFilter) (*domain.CampaignsDocument, error) {
	body, err := p.read(ctx, DocCampaigns)
	if err != nil {
		return nil, err
	}
	d, err := decodeCampaigns(body)
	if err != nil {
		p.metrics.RecordProviderFailure(providerFile, DocCampaigns, "json_parse")
	}
	return d, err
}

func (p *FileProvider) FetchAdSets(ctx context.Context, _ domain.HierarchyFilter) (*domain.AdSetsDocument, error) {
	body, err := p.read(ctx, DocAdSets)
	if err != nil {
		return nil, err
	}
	d, err := decodeAdSets(body)
	if err != nil {
		p.metrics.RecordProviderFailure(providerFile, DocAdSets, "json_parse")
	}
	return d, err
}

func (p *FileProvider) FetchAds(ctx context.Context, _ domain.HierarchyFilter) (*domain.AdsDocument, error) {
	body, err := p.read(ctx, DocAds)
	if err != nil {
		return nil, err
	}
	d, err := decodeAds(body)
	if err != nil {
		p.metrics.RecordProviderFailure(providerFile, DocAds, "json_parse")
	}
	return d, err
}

// FetchMetrics falls back to the built-in catalog when metrics.json is absent
func (p *FileProvider) FetchMetrics(ctx context.Context) (*domain.MetricsDocument, error) {
	body, err := p.read(ctx, DocMetrics)
	if errors.Is(err, fs.ErrNotExist) {
		p.logger.WithContext(ctx).Debug("No metrics.json, serving built-in catalog")
		return builtinMetricsDocument(), nil
	}
	if err != nil {
		return nil, err
	}
	d, err := decodeMetrics(body)
	if err != nil {
		p.metrics.RecordProviderFailure(providerFile, DocMetrics, "json_parse")
	}
	return d, err
}

func (p *FileProvider) read(ctx context.Context, doc string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := time.Now()
	name := doc + ".json"
	body, err := fs.ReadFile(p.fsys, name)
	if err != nil {
		errType := "read"
		if errors.Is(err, fs.ErrNotExist) {
			errType = "not_found"
		}
		p.metrics.RecordProviderFailure(providerFile, doc, errType)
		return nil, fmt.Errorf("failed to read %s: %w", name, err)
	}
	p.metrics.RecordProviderCall(providerFile, doc, "success", time.Since(start))
	return body, nil
}
