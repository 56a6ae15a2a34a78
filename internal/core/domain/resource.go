package domain

// Category identifies a logical data category served by the engine.
type Category string

const (
	CategoryMarketData    Category = "market_data"
	CategoryNews          Category = "news"
	CategorySentiment     Category = "sentiment"
	CategoryOHLCV         Category = "ohlcv"
	CategoryExplorer      Category = "explorer"
	CategoryOnchain       Category = "onchain"
	CategoryWhaleTracking Category = "whale_tracking"
)

// KnownCategories lists the categories the engine ships with. Config may
// introduce additional ones; the engine treats Category as an open set.
var KnownCategories = []Category{
	CategoryMarketData,
	CategoryNews,
	CategorySentiment,
	CategoryOHLCV,
	CategoryExplorer,
	CategoryOnchain,
	CategoryWhaleTracking,
}

// Priority is the selection tier of a resource. Lower values are tried first.
type Priority int

const (
	PriorityCritical  Priority = 0
	PriorityHigh      Priority = 1
	PriorityMedium    Priority = 2
	PriorityLow       Priority = 3
	PriorityEmergency Priority = 4
)

// String returns the config-facing name of a priority tier.
func (p Priority) String() string {
	switch p {
	case PriorityCritical:
		return "critical"
	case PriorityHigh:
		return "high"
	case PriorityMedium:
		return "medium"
	case PriorityLow:
		return "low"
	case PriorityEmergency:
		return "emergency"
	default:
		return "unknown"
	}
}

// ParsePriority maps a config string to a Priority tier.
func ParsePriority(s string) (Priority, bool) {
	switch s {
	case "critical":
		return PriorityCritical, true
	case "high":
		return PriorityHigh, true
	case "medium":
		return PriorityMedium, true
	case "low":
		return PriorityLow, true
	case "emergency":
		return PriorityEmergency, true
	}
	return 0, false
}

// ResourceStatus is the derived health state of a resource. The authoritative
// state is the counter set held by the health tracker; status is what those
// counters currently imply.
type ResourceStatus string

const (
	StatusAvailable   ResourceStatus = "available"
	StatusRateLimited ResourceStatus = "rate_limited"
	StatusDegraded    ResourceStatus = "degraded"
	StatusFailed      ResourceStatus = "failed"
)

// Resource describes one configured provider endpoint for one category.
// Resources are immutable once loaded; all mutable health state lives in the
// health tracker, keyed by ID.
type Resource struct {
	ID               string   `json:"id"`
	Name             string   `json:"name"`
	BaseURL          string   `json:"base_url"`
	EndpointTemplate string   `json:"endpoint_template"`
	Category         Category `json:"category"`
	Priority         Priority `json:"priority"`
	RequiresAuth     bool     `json:"requires_auth"`
	// CredentialRef names the environment variable holding the credential.
	// The secret itself never appears in config or logs.
	CredentialRef string `json:"credential_ref,omitempty"`
}
