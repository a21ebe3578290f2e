package adapters

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"landtrust/internal/verification/identity"
	"landtrust/internal/verification/providers"
)

// maxResponseBytes caps how much of a provider response is read.
const maxResponseBytes = 1 << 20

// DefaultTimeout bounds a single provider call when none is configured.
const DefaultTimeout = 8 * time.Second

// HTTPDoer is the minimal interface needed from an HTTP client.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// AuthStyle selects how a credential is attached to outbound requests.
type AuthStyle int

const (
	// AuthHeader sends the credential in a named header (e.g., X-Api-Key).
	AuthHeader AuthStyle = iota
	// AuthBearer sends "Authorization: Bearer <credential>".
	AuthBearer
	// AuthQuery sends the credential as a named query parameter.
	AuthQuery
)

// Credential describes one provider credential and where it goes on the wire.
type Credential struct {
	Style AuthStyle
	Name  string // header or query parameter name; unused for AuthBearer
	Value string
}

// Client performs authenticated GET requests against one provider and
// classifies every failure into a *providers.CallError.
type Client struct {
	id         string
	baseURL    string
	credential Credential
	http       HTTPDoer
	timeout    time.Duration
}

// ClientConfig configures a Client.
type ClientConfig struct {
	ID         string
	BaseURL    string
	Credential Credential
	Timeout    time.Duration
	HTTPClient HTTPDoer
}

// NewClient creates a provider HTTP client.
func NewClient(cfg ClientConfig) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	doer := cfg.HTTPClient
	if doer == nil {
		doer = &http.Client{Timeout: cfg.Timeout}
	}
	return &Client{
		id:         cfg.ID,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		credential: cfg.Credential,
		http:       doer,
		timeout:    cfg.Timeout,
	}
}

// ID returns the provider identifier this client calls.
func (c *Client) ID() string {
	return c.id
}

// Get issues a GET to baseURL+path with the given query and returns the body of
// a 2xx response. The call is bounded by the client timeout in addition to ctx.
func (c *Client) Get(ctx context.Context, path string, query url.Values) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if query == nil {
		query = url.Values{}
	}
	if c.credential.Style == AuthQuery && c.credential.Value != "" {
		query.Set(c.credential.Name, c.credential.Value)
	}

	target := c.baseURL + path
	if encoded := query.Encode(); encoded != "" {
		target += "?" + encoded
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, providers.NewCallError(providers.ErrorInternal, c.id, "failed to create request", err)
	}
	req.Header.Set("Accept", "application/json")
	switch c.credential.Style {
	case AuthHeader:
		if c.credential.Value != "" {
			req.Header.Set(c.credential.Name, c.credential.Value)
		}
	case AuthBearer:
		if c.credential.Value != "" {
			req.Header.Set("Authorization", "Bearer "+c.credential.Value)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if isTimeout(ctx, err) {
			return nil, providers.NewCallError(providers.ErrorTimeout, c.id, "request timeout", redactURLError(err))
		}
		return nil, providers.NewCallError(providers.ErrorProviderOutage, c.id, "failed to execute request", redactURLError(err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		if isTimeout(ctx, err) {
			return nil, providers.NewCallError(providers.ErrorTimeout, c.id, "response read timeout", err)
		}
		return nil, providers.NewCallError(providers.ErrorBadData, c.id, "failed to read response", err)
	}

	if err := classifyStatus(c.id, resp.StatusCode); err != nil {
		return nil, err
	}
	return body, nil
}

func classifyStatus(providerID string, status int) error {
	switch {
	case status >= 200 && status < 300:
		return nil
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return providers.NewCallError(providers.ErrorAuthentication, providerID,
			fmt.Sprintf("authentication failed: %d", status), nil)
	case status == http.StatusNotFound:
		return providers.NewCallError(providers.ErrorNotFound, providerID, "record not found", nil)
	case status == http.StatusTooManyRequests:
		return providers.NewCallError(providers.ErrorRateLimited, providerID, "rate limit exceeded", nil)
	case status >= 500:
		return providers.NewCallError(providers.ErrorProviderOutage, providerID,
			fmt.Sprintf("provider unavailable: %d", status), nil)
	default:
		return providers.NewCallError(providers.ErrorBadData, providerID,
			fmt.Sprintf("unexpected status: %d", status), nil)
	}
}

func isTimeout(ctx context.Context, err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// redactURLError drops the request URL from transport errors, since query-key
// providers carry their credential in it.
func redactURLError(err error) error {
	var uerr *url.Error
	if errors.As(err, &uerr) {
		return fmt.Errorf("%s: %w", uerr.Op, uerr.Err)
	}
	return err
}

// ResponseParser converts a provider's 2xx body into a partial result.
// Parsers are pure functions so they can be tested against recorded fixtures.
type ResponseParser func(body []byte, d identity.Descriptor) (*providers.PartialResult, error)

// QueryBuilder maps a descriptor to the provider's query parameters.
type QueryBuilder func(d identity.Descriptor) url.Values

// HTTPAdapter binds a Client, a request shape and a ResponseParser into a
// providers.Provider.
type HTTPAdapter struct {
	client       *Client
	path         string
	requirements providers.Requirements
	query        QueryBuilder
	parser       ResponseParser
}

// HTTPAdapterConfig configures an HTTP adapter
type HTTPAdapterConfig struct {
	Client       ClientConfig
	Path         string
	Requirements providers.Requirements
	Query        QueryBuilder
	Parser       ResponseParser
}

// NewHTTPAdapter creates a provider backed by one GET endpoint.
func NewHTTPAdapter(cfg HTTPAdapterConfig) *HTTPAdapter {
	return &HTTPAdapter{
		client:       NewClient(cfg.Client),
		path:         cfg.Path,
		requirements: cfg.Requirements,
		query:        cfg.Query,
		parser:       cfg.Parser,
	}
}

// ID returns the provider identifier
func (a *HTTPAdapter) ID() string {
	return a.client.ID()
}

// Requirements returns the descriptor fields this provider needs.
func (a *HTTPAdapter) Requirements() providers.Requirements {
	return a.requirements
}

// Verify calls the provider and parses its response. A descriptor that does
// not satisfy Requirements yields (nil, nil) without a network call.
func (a *HTTPAdapter) Verify(ctx context.Context, d identity.Descriptor) (*providers.PartialResult, error) {
	if !a.requirements.SatisfiedBy(d) {
		return nil, nil
	}

	var query url.Values
	if a.query != nil {
		query = a.query(d)
	}

	body, err := a.client.Get(ctx, a.path, query)
	if err != nil {
		return nil, err
	}

	result, err := a.parser(body, d)
	if err != nil {
		return nil, providers.NewCallError(providers.ErrorBadData, a.ID(), "failed to parse response", err)
	}
	if result == nil {
		return nil, nil
	}
	result.Source = a.ID()
	if result.Details == nil {
		result.Details = map[string]any{}
	}
	if result.Warnings == nil {
		result.Warnings = []string{}
	}
	result.Score = ClampScore(result.Score)
	return result, nil
}

// ClampScore bounds a normalized score to [0, 100].
func ClampScore(score float64) float64 {
	switch {
	case score < 0:
		return 0
	case score > 100:
		return 100
	default:
		return score
	}
}
