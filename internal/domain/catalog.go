package domain

type MetricCategory string

const (
	CategoryPerformance MetricCategory = "performance"
	CategoryFinancial   MetricCategory = "financial"
	CategoryAudience    MetricCategory = "audience"
	CategoryConversion  MetricCategory = "conversion"
)

// MetricCategories lists categories in display order
var MetricCategories = []MetricCategory{
	CategoryPerformance,
	CategoryFinancial,
	CategoryAudience,
	CategoryConversion,
}

var categoryLabels = map[MetricCategory]string{
	CategoryPerformance: "Performance",
	CategoryFinancial:   "Financial",
	CategoryAudience:    "Audience",
	CategoryConversion:  "Conversion",
}

// Label returns the display label, or the raw value for unknown categories
func (c MetricCategory) Label() string {
	if label, ok := categoryLabels[c]; ok {
		return label
	}
	return string(c)
}

func (c MetricCategory) Valid() bool {
	_, ok := categoryLabels[c]
	return ok
}

// Metric is a selectable measurement label. Nothing is computed from it.
type Metric struct {
	ID          string         `json:"id"`
	Label       string         `json:"label"`
	Category    MetricCategory `json:"category"`
	Description string         `json:"description"`
}

func (m Metric) EntityID() string { return m.ID }

func (m Metric) SearchText() []string { return []string{m.Label, m.Description} }

// BuiltinMetrics returns a fresh copy of the static metric catalog
func BuiltinMetrics() []Metric {
	return []Metric{
		{ID: "impressions", Label: "Impressions", Category: CategoryPerformance, Description: "Total number of impressions"},
		{ID: "clicks", Label: "Clicks", Category: CategoryPerformance, Description: "Total number of clicks"},
		{ID: "ctr", Label: "CTR", Category: CategoryPerformance, Description: "Click-through rate"},
		{ID: "reach", Label: "Reach", Category: CategoryPerformance, Description: "Unique people reached"},
		{ID: "frequency", Label: "Frequency", Category: CategoryPerformance, Description: "Average impressions per person"},

		{ID: "cpc", Label: "CPC", Category: CategoryFinancial, Description: "Cost per click"},
		{ID: "cpm", Label: "CPM", Category: CategoryFinancial, Description: "Cost per thousand impressions"},
		{ID: "cost", Label: "Cost", Category: CategoryFinancial, Description: "Total cost"},
		{ID: "budget", Label: "Budget", Category: CategoryFinancial, Description: "Configured budget"},

		{ID: "age", Label: "Age", Category: CategoryAudience, Description: "Breakdown by age"},
		{ID: "gender", Label: "Gender", Category: CategoryAudience, Description: "Breakdown by gender"},
		{ID: "location", Label: "Location", Category: CategoryAudience, Description: "Geographic breakdown"},

		{ID: "conversions", Label: "Conversions", Category: CategoryConversion, Description: "Number of conversions"},
		{ID: "conversion_rate", Label: "Conversion Rate", Category: CategoryConversion, Description: "Conversion rate"},
		{ID: "roas", Label: "ROAS", Category: CategoryConversion, Description: "Return on ad spend"},
	}
}

// MetricGroup is one category section of the metric picker
type MetricGroup struct {
	Category MetricCategory `json:"category"`
	Label    string         `json:"label"`
	Metrics  []Metric       `json:"metrics"`
}

// GroupMetrics buckets metrics by category in display order. Unknown
// categories are appended after the known ones, in first-seen order.
func GroupMetrics(metrics []Metric) []MetricGroup {
	byCategory := make(map[MetricCategory][]Metric)
	var extra []MetricCategory
	for _, m := range metrics {
		if _, seen := byCategory[m.Category]; !seen && !m.Category.Valid() {
			extra = append(extra, m.Category)
		}
		byCategory[m.Category] = append(byCategory[m.Category], m)
	}

	groups := make([]MetricGroup, 0, len(MetricCategories)+len(extra))
	for _, c := range append(append([]MetricCategory{}, MetricCategories...), extra...) {
		items, ok := byCategory[c]
		if !ok {
			continue
		}
		groups = append(groups, MetricGroup{Category: c, Label: c.Label(), Metrics: items})
	}
	return groups
}
