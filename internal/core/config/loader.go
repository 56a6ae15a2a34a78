package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"

	"github.com/vietddude/aggregator/internal/core/domain"
)

// Defaults applied when the config omits a value.
const (
	DefaultPort              = 8080
	DefaultFailureThreshold  = 3
	DefaultFailureCooldown   = 5 * time.Minute
	DefaultRateLimitCooldown = 60 * time.Minute
	DefaultExploreChance     = 0.2
	DefaultExploreTopN       = 3
	DefaultTTL               = 60 * time.Second
	DefaultAttemptTimeout    = 10 * time.Second
	DefaultMaxAttempts       = 5
	DefaultCacheMaxEntries   = 10000
	DefaultCacheRetention    = 7 * 24 * time.Hour
)

// Load reads configuration from a YAML file. Malformed configuration is
// startup-fatal; the engine never runs with a partially valid resource pool.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg AppConfig
	// Expand environment variables in the YAML content
	expanded := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func applyDefaults(cfg *AppConfig) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = DefaultPort
	}
	if cfg.Engine.FailureThreshold == 0 {
		cfg.Engine.FailureThreshold = DefaultFailureThreshold
	}
	if cfg.Engine.FailureCooldown == 0 {
		cfg.Engine.FailureCooldown = DefaultFailureCooldown
	}
	if cfg.Engine.RateLimitCooldown == 0 {
		cfg.Engine.RateLimitCooldown = DefaultRateLimitCooldown
	}
	if cfg.Engine.ExploreChance == 0 {
		cfg.Engine.ExploreChance = DefaultExploreChance
	}
	if cfg.Engine.ExploreTopN == 0 {
		cfg.Engine.ExploreTopN = DefaultExploreTopN
	}
	if cfg.Cache.MaxEntries == 0 {
		cfg.Cache.MaxEntries = DefaultCacheMaxEntries
	}
	if cfg.Cache.Retention == 0 {
		cfg.Cache.Retention = DefaultCacheRetention
	}

	for i := range cfg.Categories {
		cc := &cfg.Categories[i]
		if cc.TTL == 0 {
			cc.TTL = DefaultTTL
		}
		if cc.AttemptTimeout == 0 {
			cc.AttemptTimeout = DefaultAttemptTimeout
		}
		if cc.MaxAttempts == 0 {
			cc.MaxAttempts = DefaultMaxAttempts
		}
	}
}

func validate(cfg *AppConfig) error {
	if cfg.Engine.ExploreChance < 0 || cfg.Engine.ExploreChance > 1 {
		return fmt.Errorf("engine.explore_chance must be in [0,1], got %v", cfg.Engine.ExploreChance)
	}

	seenCategory := make(map[domain.Category]bool)
	seenID := make(map[string]string)
	for _, cc := range cfg.Categories {
		if cc.Name == "" {
			return fmt.Errorf("category with empty name")
		}
		if seenCategory[cc.Name] {
			return fmt.Errorf("duplicate category %q", cc.Name)
		}
		seenCategory[cc.Name] = true

		for _, rc := range cc.Resources {
			if rc.ID == "" {
				return fmt.Errorf("category %q: resource with empty id", cc.Name)
			}
			if prev, dup := seenID[rc.ID]; dup {
				return fmt.Errorf("resource id %q declared in both %q and %q", rc.ID, prev, cc.Name)
			}
			seenID[rc.ID] = string(cc.Name)
			if rc.URL == "" {
				return fmt.Errorf("resource %q: missing url", rc.ID)
			}
			if _, ok := domain.ParsePriority(rc.Priority); !ok {
				return fmt.Errorf("resource %q: unknown priority %q", rc.ID, rc.Priority)
			}
			if rc.RequiresAuth && rc.CredentialRef == "" {
				return fmt.Errorf("resource %q: requires_auth set without credential_ref", rc.ID)
			}
		}
	}

	return nil
}

// Resources flattens the config into domain resources, in declaration order.
func (c *AppConfig) Resources() []domain.Resource {
	var out []domain.Resource
	for _, cc := range c.Categories {
		for _, rc := range cc.Resources {
			prio, _ := domain.ParsePriority(rc.Priority)
			name := rc.Name
			if name == "" {
				name = rc.ID
			}
			out = append(out, domain.Resource{
				ID:               rc.ID,
				Name:             name,
				BaseURL:          rc.URL,
				EndpointTemplate: rc.Endpoint,
				Category:         cc.Name,
				Priority:         prio,
				RequiresAuth:     rc.RequiresAuth,
				CredentialRef:    rc.CredentialRef,
			})
		}
	}
	return out
}
