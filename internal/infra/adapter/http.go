package adapter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/vietddude/aggregator/internal/core/domain"
)

// throttlePatterns are body substrings providers use to signal rate limiting
// without a proper 429 status.
var throttlePatterns = []string{
	"rate limit exceeded",
	"too many requests",
	"daily request count exceeded",
	"monthly quota exceeded",
	"plan limit",
}

// HTTP is the generic JSON-over-HTTP adapter. A resource's endpoint template
// carries {name} placeholders filled from request params; leftover params go
// to the query string. Credentials are resolved from the environment via the
// resource's credential ref and injected as a header.
type HTTP struct {
	client     *http.Client
	authHeader string
}

// Option configures the HTTP adapter.
type Option func(*HTTP)

// WithClient replaces the underlying http.Client.
func WithClient(c *http.Client) Option {
	return func(h *HTTP) { h.client = c }
}

// WithAuthHeader sets the header used for credential injection.
func WithAuthHeader(name string) Option {
	return func(h *HTTP) { h.authHeader = name }
}

// NewHTTP creates the generic HTTP adapter. Per-attempt deadlines come from
// the caller's context; the client itself carries no timeout so the
// orchestrator stays in charge of cancellation.
func NewHTTP(opts ...Option) *HTTP {
	h := &HTTP{
		client: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		authHeader: "X-API-Key",
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Call performs one provider request and classifies any failure.
func (h *HTTP) Call(ctx context.Context, res domain.Resource, params map[string]string) (json.RawMessage, error) {
	target, err := buildURL(res, params)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, domain.Attempt(domain.KindNetwork, fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Accept", "application/json")

	if res.RequiresAuth {
		cred := os.Getenv(res.CredentialRef)
		if cred == "" {
			return nil, domain.Attemptf(domain.KindAuth, "credential %s not set", res.CredentialRef)
		}
		req.Header.Set(h.authHeader, cred)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, classifyTransport(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, classifyTransport(err)
	}

	if err := classifyStatus(resp, body); err != nil {
		return nil, err
	}

	if !json.Valid(body) {
		return nil, domain.Attemptf(domain.KindMalformed, "invalid JSON from %s", res.ID)
	}
	return json.RawMessage(body), nil
}

func classifyTransport(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return domain.Attempt(domain.KindTimeout, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return domain.Attempt(domain.KindTimeout, err)
	}
	return domain.Attempt(domain.KindNetwork, err)
}

func classifyStatus(resp *http.Response, body []byte) error {
	switch {
	case resp.StatusCode == http.StatusOK:
		return nil
	case resp.StatusCode == http.StatusTooManyRequests:
		retryAfter := resp.Header.Get("Retry-After")
		return domain.Attemptf(domain.KindRateLimited, "429, retry after %q", retryAfter)
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return domain.Attemptf(domain.KindAuth, "http %d", resp.StatusCode)
	case resp.StatusCode >= 500:
		return domain.Attemptf(domain.KindServer, "http %d", resp.StatusCode)
	}

	// Some providers rate limit with a 200-range miss or odd 4xx plus a
	// telltale message in the body.
	if detectThrottle(string(body)) {
		return domain.Attemptf(domain.KindRateLimited, "throttle detected in http %d response", resp.StatusCode)
	}
	return domain.Attemptf(domain.KindServer, "http %d: %s", resp.StatusCode, truncate(body, 200))
}

func detectThrottle(body string) bool {
	lower := strings.ToLower(body)
	for _, p := range throttlePatterns {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}

// buildURL expands {name} placeholders in the endpoint template from params;
// unused params become the query string.
func buildURL(res domain.Resource, params map[string]string) (string, error) {
	path := res.EndpointTemplate
	leftover := url.Values{}

	for k, v := range params {
		ph := "{" + k + "}"
		if strings.Contains(path, ph) {
			path = strings.ReplaceAll(path, ph, url.PathEscape(v))
		} else {
			leftover.Set(k, v)
		}
	}

	if i := strings.IndexByte(path, '{'); i >= 0 {
		return "", domain.Attemptf(domain.KindMalformed, "unresolved placeholder in template %q", res.EndpointTemplate)
	}

	target := strings.TrimRight(res.BaseURL, "/") + path
	if enc := leftover.Encode(); enc != "" {
		sep := "?"
		if strings.Contains(target, "?") {
			sep = "&"
		}
		target += sep + enc
	}
	return target, nil
}
