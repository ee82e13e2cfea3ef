// Package gateway is the resource-shaped client for the upstream provider's
// three endpoint groups: identity/account management, business data, and
// performance metrics. Callers get list/get/update operations; transport
// details, token handling, and retry policy stay inside.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/alexanderovie/fascinante-listings/apierrors"
	"github.com/alexanderovie/fascinante-listings/logging"
	"github.com/alexanderovie/fascinante-listings/retryx"
)

// Group names one of the provider's logical endpoint groups.
type Group string

const (
	GroupIdentity    Group = "identity"
	GroupBusiness    Group = "business-data"
	GroupPerformance Group = "performance"
)

// DefaultTimeout bounds every upstream call; expiry surfaces as a Timeout
// classification.
const DefaultTimeout = 30 * time.Second

const maxBodyBytes = 1 << 20

// TokenSource supplies a currently-valid access token for a principal.
// Implemented by tokens.Coordinator.
type TokenSource interface {
	AccessToken(ctx context.Context, principalID string, forceRefresh bool) (string, error)
}

// Endpoints are the base URLs per group.
type Endpoints struct {
	Identity    string
	Business    string
	Performance string
}

type Client struct {
	hc        *http.Client
	tokens    TokenSource
	endpoints Endpoints
	timeout   time.Duration
	policy    retryx.Policy
	log       logging.Logger
}

type Option func(*Client)

func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

func WithRetryPolicy(p retryx.Policy) Option {
	return func(c *Client) { c.policy = p }
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.hc = hc }
}

func NewClient(tokens TokenSource, endpoints Endpoints, log logging.Logger, opts ...Option) *Client {
	c := &Client{
		hc:        &http.Client{},
		tokens:    tokens,
		endpoints: endpoints,
		timeout:   DefaultTimeout,
		policy:    retryx.DefaultPolicy(),
		log:       log,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) baseURL(group Group) string {
	switch group {
	case GroupIdentity:
		return c.endpoints.Identity
	case GroupBusiness:
		return c.endpoints.Business
	case GroupPerformance:
		return c.endpoints.Performance
	}
	return ""
}

// do issues one logical call under the retry policy. An Unauthorized outcome
// forces exactly one credential refresh; a second Unauthorized after the
// forced refresh is surfaced non-retryable so a revoked grant cannot loop.
func (c *Client) do(ctx context.Context, principalID, method string, group Group, path string, query url.Values, body any, out any) error {
	forceRefresh := false
	refreshSpent := false

	return retryx.Do(ctx, c.policy, func(ctx context.Context) error {
		err := c.attempt(ctx, principalID, method, group, path, query, body, out, forceRefresh)
		forceRefresh = false

		if apierrors.IsKind(err, apierrors.KindUnauthorized) {
			if refreshSpent {
				return apierrors.From(err).NonRetryable()
			}
			refreshSpent = true
			forceRefresh = true
		}
		return err
	})
}

func (c *Client) attempt(ctx context.Context, principalID, method string, group Group, path string, query url.Values, body any, out any, forceRefresh bool) error {
	token, err := c.tokens.AccessToken(ctx, principalID, forceRefresh)
	if err != nil {
		return err
	}

	base := c.baseURL(group)
	if base == "" {
		return apierrors.New(apierrors.KindInvalidRequest, 0, fmt.Sprintf("unknown endpoint group %q", group))
	}

	u := base + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reqBody io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return apierrors.Wrap(apierrors.KindInvalidRequest, 0, "request body not serializable", err)
		}
		reqBody = bytes.NewReader(buf)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, u, reqBody)
	if err != nil {
		return apierrors.ClassifyTransport(err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return apierrors.ClassifyTransport(err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return apierrors.ClassifyTransport(err)
	}

	if resp.StatusCode >= 400 {
		env := apierrors.Classify(resp.StatusCode, respBody)
		c.log.Warn(ctx, "upstream call failed",
			"group", string(group), "path", path,
			"status", resp.StatusCode, "kind", string(env.Kind),
		)
		return env
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return apierrors.ClassifyDecode(err)
		}
	}
	return nil
}
