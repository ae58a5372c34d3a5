package infrastructure

import (
	"encoding/json"
	"fmt"

	"adsdash/internal/domain"
)

// Document names as they appear in file names, object keys and URLs
const (
	DocCampaigns = "campaigns"
	DocAdSets    = "adsets"
	DocAds       = "ads"
	DocMetrics   = "metrics"
)

// decodeDocument unmarshals body into out after checking that the
// document's top-level key is present.
func decodeDocument(doc string, body []byte, out any) error {
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(body, &envelope); err != nil {
		return fmt.Errorf("%w: %s: %v", domain.ErrMalformedDocument, doc, err)
	}
	if _, ok := envelope[doc]; !ok {
		return fmt.Errorf("%w: %s: missing %q key", domain.ErrMalformedDocument, doc, doc)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: %s: %v", domain.ErrMalformedDocument, doc, err)
	}
	return nil
}

func decodeCampaigns(body []byte) (*domain.CampaignsDocument, error) {
	var d domain.CampaignsDocument
	if err := decodeDocument(DocCampaigns, body, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

func decodeAdSets(body []byte) (*domain.AdSetsDocument, error) {
	var d domain.AdSetsDocument
	if err := decodeDocument(DocAdSets, body, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

func decodeAds(body []byte) (*domain.AdsDocument, error) {
	var d domain.AdsDocument
	if err := decodeDocument(DocAds, body, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

func decodeMetrics(body []byte) (*domain.MetricsDocument, error) {
	var d domain.MetricsDocument
	if err := decodeDocument(DocMetrics, body, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

// builtinMetricsDocument is served when a backend has no catalog of its own
func builtinMetricsDocument() *domain.MetricsDocument {
	return &domain.MetricsDocument{Metrics: domain.BuiltinMetrics()}
}
