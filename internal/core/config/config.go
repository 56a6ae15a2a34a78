package config

import (
	"time"

	"github.com/vietddude/aggregator/internal/core/domain"
	redisclient "github.com/vietddude/aggregator/internal/infra/redis"
	"github.com/vietddude/aggregator/internal/infra/storage/postgres"
)

// AppConfig represents the top-level configuration.
type AppConfig struct {
	Server     ServerConfig       `yaml:"server"`
	Logging    LoggingConfig      `yaml:"logging"`
	Engine     EngineConfig       `yaml:"engine"`
	Cache      CacheConfig        `yaml:"cache"`
	Redis      redisclient.Config `yaml:"redis"`
	Database   postgres.Config    `yaml:"database"`
	Categories []CategoryConfig   `yaml:"categories"`
}

// ServerConfig holds the observability HTTP server settings.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

// EngineConfig holds the fallback engine tuning knobs. The defaults mirror
// what worked in production, but none of the thresholds is claimed optimal;
// operators are expected to tune them per deployment.
type EngineConfig struct {
	// FailureThreshold is the consecutive-failure count that triggers a
	// short cooldown. Single blips never suspend a resource.
	FailureThreshold int `yaml:"failure_threshold"`
	// FailureCooldown is applied once FailureThreshold is reached.
	FailureCooldown time.Duration `yaml:"failure_cooldown"`
	// RateLimitCooldown is applied immediately when a provider explicitly
	// asks to back off.
	RateLimitCooldown time.Duration `yaml:"rate_limit_cooldown"`
	// ExploreChance is the probability of picking a non-best candidate.
	ExploreChance float64 `yaml:"explore_chance"`
	// ExploreTopN bounds exploration to the best N candidates so emergency
	// resources are never exploratively preferred over healthy ones.
	ExploreTopN int `yaml:"explore_top_n"`
}

// CacheConfig holds cache tier settings.
type CacheConfig struct {
	// MaxEntries bounds the in-memory tier; least recently used entries are
	// evicted past this size.
	MaxEntries int `yaml:"max_entries"`
	// Retention is how long the Redis tier keeps entries for stale reads.
	// Freshness is tracked by the stored fetch timestamp, not this bound.
	Retention time.Duration `yaml:"retention"`
}

// CategoryConfig holds settings and the resource pool for one data category.
type CategoryConfig struct {
	Name           domain.Category `yaml:"name"`
	TTL            time.Duration   `yaml:"ttl"`
	AttemptTimeout time.Duration   `yaml:"attempt_timeout"`
	MaxAttempts    int             `yaml:"max_attempts"`
	// WarmInterval enables the background cache warmer when non-zero.
	WarmInterval time.Duration `yaml:"warm_interval"`
	// Warm lists the request shapes the warmer refreshes.
	Warm      []map[string]string `yaml:"warm"`
	Resources []ResourceConfig    `yaml:"resources"`
}

// ResourceConfig holds the descriptor for one provider endpoint.
type ResourceConfig struct {
	ID           string `yaml:"id"`
	Name         string `yaml:"name"`
	URL          string `yaml:"url"`
	Endpoint     string `yaml:"endpoint"`
	Priority     string `yaml:"priority"` // critical, high, medium, low, emergency
	RequiresAuth bool   `yaml:"requires_auth"`
	// CredentialRef names the env var holding the API credential.
	CredentialRef string `yaml:"credential_ref"`
}

// CategoryFor returns the config block for a category, if present.
func (c *AppConfig) CategoryFor(name domain.Category) (CategoryConfig, bool) {
	for _, cc := range c.Categories {
		if cc.Name == name {
			return cc, true
		}
	}
	return CategoryConfig{}, false
}
