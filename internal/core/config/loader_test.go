package config

import (
	"os"
	"testing"
	"time"

	"github.com/vietddude/aggregator/internal/core/domain"
)

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	tmpFile, err := os.CreateTemp(t.TempDir(), "config_*.yaml")
	if err != nil {
		t.Fatalf("Failed to create temp file: %v", err)
	}
	if _, err := tmpFile.Write([]byte(content)); err != nil {
		t.Fatalf("Failed to write to temp file: %v", err)
	}
	tmpFile.Close()
	return tmpFile.Name()
}

func TestLoad_EnvSubstitution(t *testing.T) {
	os.Setenv("TEST_REDIS_URL", "redis://localhost:6380/2")
	defer os.Unsetenv("TEST_REDIS_URL")

	path := writeTempConfig(t, `
redis:
  url: ${TEST_REDIS_URL}
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Redis.URL != "redis://localhost:6380/2" {
		t.Errorf("Expected redis URL redis://localhost:6380/2, got %s", cfg.Redis.URL)
	}
}

func TestLoad_Defaults(t *testing.T) {
	path := writeTempConfig(t, `
categories:
  - name: market_data
    resources:
      - id: coingecko
        url: https://api.coingecko.com/api/v3
        priority: critical
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Port != DefaultPort {
		t.Errorf("Expected default port %d, got %d", DefaultPort, cfg.Server.Port)
	}
	if cfg.Engine.FailureThreshold != 3 {
		t.Errorf("Expected failure threshold 3, got %d", cfg.Engine.FailureThreshold)
	}
	if cfg.Engine.RateLimitCooldown != 60*time.Minute {
		t.Errorf("Expected rate limit cooldown 60m, got %v", cfg.Engine.RateLimitCooldown)
	}
	if cfg.Engine.FailureCooldown != 5*time.Minute {
		t.Errorf("Expected failure cooldown 5m, got %v", cfg.Engine.FailureCooldown)
	}

	cc := cfg.Categories[0]
	if cc.TTL != DefaultTTL || cc.AttemptTimeout != DefaultAttemptTimeout || cc.MaxAttempts != DefaultMaxAttempts {
		t.Errorf("Category defaults not applied: %+v", cc)
	}
}

func TestLoad_CategoryResources(t *testing.T) {
	path := writeTempConfig(t, `
categories:
  - name: market_data
    ttl: 30s
    resources:
      - id: coingecko
        url: https://api.coingecko.com/api/v3
        endpoint: /simple/price?ids={ids}&vs_currencies={vs}
        priority: critical
      - id: cmc
        name: CoinMarketCap
        url: https://pro-api.coinmarketcap.com/v1
        priority: high
        requires_auth: true
        credential_ref: CMC_API_KEY
  - name: news
    ttl: 10m
    resources:
      - id: cryptopanic
        url: https://cryptopanic.com/api/v1
        priority: high
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	resources := cfg.Resources()
	if len(resources) != 3 {
		t.Fatalf("Expected 3 resources, got %d", len(resources))
	}

	cg := resources[0]
	if cg.ID != "coingecko" || cg.Category != domain.CategoryMarketData || cg.Priority != domain.PriorityCritical {
		t.Errorf("Unexpected first resource: %+v", cg)
	}
	if cg.Name != "coingecko" {
		t.Errorf("Expected name fallback to id, got %q", cg.Name)
	}

	cmc := resources[1]
	if !cmc.RequiresAuth || cmc.CredentialRef != "CMC_API_KEY" {
		t.Errorf("Auth fields not carried: %+v", cmc)
	}
	if cmc.Name != "CoinMarketCap" {
		t.Errorf("Expected explicit name, got %q", cmc.Name)
	}
}

func TestLoad_RejectsMalformed(t *testing.T) {
	cases := []struct {
		name    string
		content string
	}{
		{
			name: "duplicate resource id",
			content: `
categories:
  - name: market_data
    resources:
      - id: dup
        url: https://a.example.com
        priority: high
  - name: news
    resources:
      - id: dup
        url: https://b.example.com
        priority: high
`,
		},
		{
			name: "unknown priority",
			content: `
categories:
  - name: market_data
    resources:
      - id: r1
        url: https://a.example.com
        priority: urgent
`,
		},
		{
			name: "missing url",
			content: `
categories:
  - name: market_data
    resources:
      - id: r1
        priority: high
`,
		},
		{
			name: "auth without credential ref",
			content: `
categories:
  - name: market_data
    resources:
      - id: r1
        url: https://a.example.com
        priority: high
        requires_auth: true
`,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := writeTempConfig(t, tc.content)
			if _, err := Load(path); err == nil {
				t.Errorf("Expected error for %s, got nil", tc.name)
			}
		})
	}
}
