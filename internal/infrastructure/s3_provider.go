package infrastructure

import (
	"context"
	"fmt"
	"io"
	"path"
	"time"

	"adsdash/internal/domain"
	"adsdash/pkg/logger"
	"adsdash/pkg/metrics"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

const providerS3 = "s3"

// S3Config holds S3/MinIO connection settings
type S3Config struct {
	Endpoint        string // e.g. "http://localhost:9000" for MinIO
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	Prefix          string
	Region          string
}

// objectGetter is the part of the S3 client the provider uses
type objectGetter interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Provider reads the documents as <prefix>/<doc>.json objects
type S3Provider struct {
	client  objectGetter
	bucket  string
	prefix  string
	logger  *logger.Logger
	metrics *metrics.Metrics
}

func NewS3Provider(cfg S3Config, logger *logger.Logger, metrics *metrics.Metrics) *S3Provider {
	client := s3.New(s3.Options{
		Region:       cfg.Region,
		BaseEndpoint: aws.String(cfg.Endpoint),
		Credentials: credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"",
		),
		UsePathStyle: true, // required for MinIO
	})
	return newS3Provider(client, cfg.Bucket, cfg.Prefix, logger, metrics)
}

func newS3Provider(client objectGetter, bucket, prefix string, logger *logger.Logger, metrics *metrics.Metrics) *S3Provider {
	return &S3Provider{
		client:  client,
		bucket:  bucket,
		prefix:  prefix,
		logger:  logger,
		metrics: metrics,
	}
}

func (p *S3Provider) FetchCampaigns(ctx context.Context, _ domain.HierarchyFilter) (*domain.CampaignsDocument, error) {
	body, err := p.get(ctx, DocCampaigns)
	if err != nil {
		return nil, err
	}
	return decodeWith(p, DocCampaigns, body, decodeCampaigns)
}

func (p *S3Provider) FetchAdSets(ctx context.Context, _ domain.HierarchyFilter) (*domain.AdSetsDocument, error) {
	body, err := p.get(ctx, DocAdSets)
	if err != nil {
		return nil, err
	}
	return decodeWith(p, DocAdSets, body, decodeAdSets)
}

func (p *S3Provider) FetchAds(ctx context.Context, _ domain.HierarchyFilter) (*domain.AdsDocument, error) {
	body, err := p.get(ctx, DocAds)
	if err != nil {
		return nil, err
	}
	return decodeWith(p, DocAds, body, decodeAds)
}

func (p *S3Provider) FetchMetrics(ctx context.Context) (*domain.MetricsDocument, error) {
	body, err := p.get(ctx, DocMetrics)
	if err != nil {
		return nil, err
	}
	return decodeWith(p, DocMetrics, body, decodeMetrics)
}

// Key returns the object key of doc
func (p *S3Provider) Key(doc string) string {
	return path.Join(p.prefix, doc+".json")
}

func (p *S3Provider) get(ctx context.Context, doc string) ([]byte, error) {
	start := time.Now()
	key := p.Key(doc)

	out, err := p.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(p.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		p.metrics.RecordProviderFailure(providerS3, doc, "get_object")
		return nil, fmt.Errorf("getting s3 object %s: %w", key, err)
	}
	defer out.Body.Close()

	body, err := io.ReadAll(out.Body)
	if err != nil {
		p.metrics.RecordProviderFailure(providerS3, doc, "read_body")
		return nil, fmt.Errorf("reading s3 object %s: %w", key, err)
	}

	p.metrics.RecordProviderCall(providerS3, doc, "success", time.Since(start))
	p.logger.WithContext(ctx).WithFields(map[string]any{
		"bucket": p.bucket,
		"key":    key,
		"bytes":  len(body),
	}).Debug("Fetched provider document")
	return body, nil
}

// decodeWith counts decode errors against the provider
func decodeWith[T any](p *S3Provider, doc string, body []byte, decode func([]byte) (T, error)) (T, error) {
	v, err := decode(body)
	if err != nil {
		p.metrics.RecordProviderFailure(providerS3, doc, "json_parse")
	}
	return v, err
}
